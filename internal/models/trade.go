package models

import "time"

type TradeStatus string

const (
	TradeOpen      TradeStatus = "OPEN"
	TradeClosed    TradeStatus = "CLOSED"
	TradeFailed    TradeStatus = "FAILED"
	TradeCancelled TradeStatus = "CANCELLED"
)

// Trade — долговременная запись одной попытки исполнения сигнала.
// Существование Trade по (user, symbol, timeframe) с created_at внутри
// текущей свечи гасит повторное срабатывание — это единственный ключ
// идемпотентности движка.
type Trade struct {
	ID             int64
	UserID         int64
	StrategyID     int64
	Symbol         string
	Timeframe      string
	Side           Side
	Status         TradeStatus
	EntryPrice     float64
	StopLoss       float64
	TakeProfit     float64
	Quantity       float64
	CreditLocked   bool
	CreditConsumed bool
	ErrorMessage   string
	OpenedAt       *time.Time
	CreatedAt      time.Time
}
