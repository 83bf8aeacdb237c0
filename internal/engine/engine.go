// Package engine — батч-оценка стратегий и исполнение сигналов.
// Один проход: отобрать пользователей, оценить их активные стратегии
// по выбранным таймфреймам и исполнить сработавшие сигналы с учётом
// кредитов и идемпотентности по свече.
package engine

import (
	"context"
	"time"

	"auto_trader/internal/models"
)

// MarketData — публичные рыночные данные.
type MarketData interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderGateway — приватные ордера под ключами конкретного пользователя.
type OrderGateway interface {
	PlaceMarket(ctx context.Context, symbol string, side models.Side, qty float64) (string, error)
	PlaceStopLoss(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error)
	PlaceTakeProfit(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error)
}

type UserStore interface {
	Eligible(ctx context.Context) ([]models.TraderState, error)
	Keys(ctx context.Context, userID int64) (*models.APIKeys, error)
	ReserveCredit(ctx context.Context, userID int64) (bool, error)
	RefundCredit(ctx context.Context, userID int64) error
}

type StrategyStore interface {
	ActiveByUser(ctx context.Context, userID int64) ([]models.Strategy, error)
	ByID(ctx context.Context, id int64) (*models.Strategy, error)
}

type TradeStore interface {
	Insert(ctx context.Context, t *models.Trade) error
	ExistsSince(ctx context.Context, userID int64, symbol, timeframe string, since time.Time) (bool, error)
}

// Notifier шлёт пользователю сообщение о судьбе его сигнала.
type Notifier interface {
	SendF(ctx context.Context, chatID int64, format string, args ...interface{})
}

// Sizer переводит бюджет сделки в количество базовой валюты.
type Sizer func(notionalUSD, price float64) float64

// NotionalSizer — фиксированный бюджет в quote-валюте на сделку.
func NotionalSizer(notionalUSD, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return notionalUSD / price
}

type Config struct {
	CandleLimit int
	CallTimeout time.Duration
	NotionalUSD float64
}

func (c *Config) normalize() {
	if c.CandleLimit <= 0 {
		c.CandleLimit = 100
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.NotionalUSD <= 0 {
		c.NotionalUSD = 100
	}
}

type Engine struct {
	users      UserStore
	strategies StrategyStore
	trades     TradeStore
	market     MarketData
	orders     func(keys models.APIKeys) OrderGateway
	notify     Notifier
	sizer      Sizer
	cfg        Config

	now func() time.Time // подменяется в тестах
}

func New(
	users UserStore,
	strategies StrategyStore,
	trades TradeStore,
	market MarketData,
	orders func(keys models.APIKeys) OrderGateway,
	notify Notifier,
	cfg Config,
) *Engine {
	cfg.normalize()
	return &Engine{
		users:      users,
		strategies: strategies,
		trades:     trades,
		market:     market,
		orders:     orders,
		notify:     notify,
		sizer:      NotionalSizer,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetSizer меняет модель сайзинга. Вызывать до старта проходов.
func (e *Engine) SetSizer(s Sizer) {
	if s != nil {
		e.sizer = s
	}
}
