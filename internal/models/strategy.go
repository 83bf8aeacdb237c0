package models

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite — сторона закрывающего ордера.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

type EntryType string

const (
	EntryMACrossover  EntryType = "MA_CROSSOVER"
	EntryMACrossunder EntryType = "MA_CROSSUNDER"
	EntryRSI          EntryType = "RSI"
	EntryPriceAbove   EntryType = "PRICE_ABOVE"
	EntryPriceBelow   EntryType = "PRICE_BELOW"
	EntryCustom       EntryType = "CUSTOM"
)

type MAType string

const (
	MATypeSMA MAType = "SMA"
	MATypeEMA MAType = "EMA"
)

// StrategyConfig — числовые параметры, извлечённые из текста стратегии.
// Пересчитывается на каждом проходе, никогда не кешируется между правками текста.
type StrategyConfig struct {
	EntryType     EntryType `json:"entry_type"`
	FastPeriod    int       `json:"fast_period"`
	SlowPeriod    int       `json:"slow_period"`
	MAType        MAType    `json:"ma_type"`
	StopLossPct   float64   `json:"stop_loss_pct"`
	TakeProfitPct float64   `json:"take_profit_pct"`
	RSIPeriod     int       `json:"rsi_period"`
	RSIOverbought float64   `json:"rsi_overbought"`
	RSIOversold   float64   `json:"rsi_oversold"`
}

// Normalize удерживает инварианты: периоды >= 1, проценты >= 0.
func (c *StrategyConfig) Normalize() {
	if c.FastPeriod < 1 {
		c.FastPeriod = 1
	}
	if c.SlowPeriod < 1 {
		c.SlowPeriod = 1
	}
	if c.RSIPeriod < 1 {
		c.RSIPeriod = 1
	}
	if c.StopLossPct < 0 {
		c.StopLossPct = 0
	}
	if c.TakeProfitPct < 0 {
		c.TakeProfitPct = 0
	}
}

// MinCandles — минимум свечей, при котором конфиг вообще можно оценить.
func (c StrategyConfig) MinCandles() int {
	if c.EntryType == EntryRSI {
		return c.RSIPeriod + 2
	}
	n := c.FastPeriod
	if c.SlowPeriod > n {
		n = c.SlowPeriod
	}
	return n + 2
}

// Signal — результат одной оценки. Живёт в пределах прохода и
// материализуется в Trade только при исполнении.
type Signal struct {
	Side       Side    `json:"side"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Reason     string  `json:"reason"`
}

// Strategy — запись стратегии пользователя. Владеет ею внешняя админка,
// движок читает и никогда не пишет.
type Strategy struct {
	ID         int64
	UserID     int64
	Symbol     string
	Script     string
	IsActive   bool
	Timeframes []string
}
