package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// --- фейки ---

type fakeUsers struct {
	mu       sync.Mutex
	eligible []models.TraderState
	keys     map[int64]*models.APIKeys
	credits  map[int64]int
}

func (f *fakeUsers) Eligible(ctx context.Context) ([]models.TraderState, error) {
	return f.eligible, nil
}

func (f *fakeUsers) Keys(ctx context.Context, userID int64) (*models.APIKeys, error) {
	return f.keys[userID], nil
}

func (f *fakeUsers) ReserveCredit(ctx context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credits[userID] <= 0 {
		return false, nil
	}
	f.credits[userID]--
	return true, nil
}

func (f *fakeUsers) RefundCredit(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[userID]++
	return nil
}

type fakeStrategies struct {
	list []models.Strategy
}

func (f *fakeStrategies) ActiveByUser(ctx context.Context, userID int64) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, st := range f.list {
		if st.UserID == userID && st.IsActive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStrategies) ByID(ctx context.Context, id int64) (*models.Strategy, error) {
	for _, st := range f.list {
		if st.ID == id {
			cp := st
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeTrades struct {
	mu   sync.Mutex
	rows []models.Trade
	now  time.Time
}

func (f *fakeTrades) Insert(ctx context.Context, t *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = int64(len(f.rows) + 1)
	t.CreatedAt = f.now
	f.rows = append(f.rows, *t)
	return nil
}

func (f *fakeTrades) ExistsSince(ctx context.Context, userID int64, symbol, timeframe string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.Symbol == symbol && r.Timeframe == timeframe && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeMarket struct {
	closes      map[string][]float64
	price       map[string]float64
	panicSymbol string
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if symbol == f.panicSymbol {
		panic("market data corrupted")
	}
	closes, ok := f.closes[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	out := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{OpenTime: base.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return out, nil
}

func (f *fakeMarket) LastPrice(ctx context.Context, symbol string) (float64, error) {
	px, ok := f.price[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return px, nil
}

type placedOrder struct {
	kind   string
	symbol string
	side   models.Side
	qty    float64
	px     float64
}

type fakeGateway struct {
	mu         sync.Mutex
	orders     []placedOrder
	failMarket bool
	failStops  bool
}

func (f *fakeGateway) record(o placedOrder) {
	f.mu.Lock()
	f.orders = append(f.orders, o)
	f.mu.Unlock()
}

func (f *fakeGateway) PlaceMarket(ctx context.Context, symbol string, side models.Side, qty float64) (string, error) {
	if f.failMarket {
		return "", fmt.Errorf("insufficient balance")
	}
	f.record(placedOrder{kind: "MARKET", symbol: symbol, side: side, qty: qty})
	return "1001", nil
}

func (f *fakeGateway) PlaceStopLoss(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error) {
	if f.failStops {
		return "", fmt.Errorf("stop rejected")
	}
	f.record(placedOrder{kind: "STOP_LOSS", symbol: symbol, side: side, qty: qty, px: stopPrice})
	return "1002", nil
}

func (f *fakeGateway) PlaceTakeProfit(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error) {
	if f.failStops {
		return "", fmt.Errorf("tp rejected")
	}
	f.record(placedOrder{kind: "TAKE_PROFIT", symbol: symbol, side: side, qty: qty, px: stopPrice})
	return "1003", nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) SendF(ctx context.Context, chatID int64, format string, args ...interface{}) {
	f.mu.Lock()
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

// --- сборка ---

// затяжное падение, последняя свеча выдёргивает быструю EMA через медленную
func buyCloses() []float64 {
	closes := make([]float64, 0, 39)
	for i := 0; i < 38; i++ {
		closes = append(closes, 100-float64(i))
	}
	return append(closes, 200)
}

func flatCloses() []float64 {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	return closes
}

type rig struct {
	engine *Engine
	users  *fakeUsers
	trades *fakeTrades
	gw     *fakeGateway
	notify *fakeNotifier
	now    time.Time
}

func newRig(t *testing.T, strategies []models.Strategy, market *fakeMarket, credits int) *rig {
	t.Helper()

	now := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	users := &fakeUsers{
		eligible: []models.TraderState{{UserID: 7, Credits: credits, BotEnabled: true, SelectedTimeframes: []string{"1h"}}},
		keys:     map[int64]*models.APIKeys{7: {UserID: 7, APIKey: "k", SecretKey: "s"}},
		credits:  map[int64]int{7: credits},
	}
	trades := &fakeTrades{now: now}
	gw := &fakeGateway{}
	notify := &fakeNotifier{}

	e := New(
		users,
		&fakeStrategies{list: strategies},
		trades,
		market,
		func(models.APIKeys) OrderGateway { return gw },
		notify,
		Config{CandleLimit: 100, CallTimeout: time.Second, NotionalUSD: 100},
	)
	e.now = func() time.Time { return now }

	return &rig{engine: e, users: users, trades: trades, gw: gw, notify: notify, now: now}
}

func oneStrategy(script string) []models.Strategy {
	return []models.Strategy{{
		ID: 1, UserID: 7, Symbol: "BTCUSDT", Script: script,
		IsActive: true, Timeframes: []string{"1h"},
	}}
}

// --- тесты ---

func TestRunPass_ExecutesCrossoverSignal(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy("Buy when fast MA crosses above slow MA. Stop loss 2%, take profit 4%."), market, 5)

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeExecuted, rep.Items[0].Outcome)
	assert.Equal(t, models.SideBuy, rep.Items[0].Side)
	assert.Equal(t, 1, rep.Users)
	assert.Equal(t, 1, rep.Evaluated)

	// кредит списан ровно один раз
	assert.Equal(t, 4, r.users.credits[7])

	// маркет + защитные ордера
	require.Len(t, r.gw.orders, 3)
	assert.Equal(t, "MARKET", r.gw.orders[0].kind)
	assert.Equal(t, models.SideBuy, r.gw.orders[0].side)
	assert.InDelta(t, 1.0, r.gw.orders[0].qty, 1e-9) // 100 USD / цена 100
	assert.Equal(t, "STOP_LOSS", r.gw.orders[1].kind)
	assert.InDelta(t, 98.0, r.gw.orders[1].px, 1e-9)
	assert.Equal(t, "TAKE_PROFIT", r.gw.orders[2].kind)
	assert.InDelta(t, 104.0, r.gw.orders[2].px, 1e-9)

	// сделка записана открытой, кредит потрачен
	require.Len(t, r.trades.rows, 1)
	tr := r.trades.rows[0]
	assert.Equal(t, models.TradeOpen, tr.Status)
	assert.True(t, tr.CreditLocked)
	assert.True(t, tr.CreditConsumed)
	assert.Equal(t, 100.0, tr.EntryPrice)

	require.Len(t, r.notify.msgs, 1)
	assert.Contains(t, r.notify.msgs[0], "Открыта позиция")
}

func TestRunPass_NoSignalNoSideEffects(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": flatCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 5)

	rep := r.engine.RunPass(context.Background())

	assert.Equal(t, 1, rep.Evaluated)
	assert.Empty(t, rep.Items)
	assert.Equal(t, 5, r.users.credits[7])
	assert.Empty(t, r.gw.orders)
	assert.Empty(t, r.trades.rows)
}

func TestRunPass_OrderFailureRefundsCredit(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 3)
	r.gw.failMarket = true

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeFailed, rep.Items[0].Outcome)
	assert.Contains(t, rep.Items[0].Err, "insufficient balance")

	// кредит вернулся, баланс как до прохода
	assert.Equal(t, 3, r.users.credits[7])

	// неудача зафиксирована в trades; кредит возвращён, значит
	// запись его не держит и не тратит
	require.Len(t, r.trades.rows, 1)
	tr := r.trades.rows[0]
	assert.Equal(t, models.TradeFailed, tr.Status)
	assert.False(t, tr.CreditLocked)
	assert.False(t, tr.CreditConsumed)
	assert.Contains(t, tr.ErrorMessage, "insufficient balance")

	require.Len(t, r.notify.msgs, 1)
	assert.Contains(t, r.notify.msgs[0], "Кредит возвращён")
}

func TestRunPass_SecondPassSameCandleSkipped(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 5)

	rep1 := r.engine.RunPass(context.Background())
	rep2 := r.engine.RunPass(context.Background())

	require.Len(t, rep1.Items, 1)
	assert.Equal(t, models.OutcomeExecuted, rep1.Items[0].Outcome)

	require.Len(t, rep2.Items, 1)
	assert.Equal(t, models.OutcomeSkipped, rep2.Items[0].Outcome)
	assert.Contains(t, rep2.Items[0].Err, "already opened")

	// ровно одна сделка и одно списание на свечу
	assert.Len(t, r.trades.rows, 1)
	assert.Equal(t, 4, r.users.credits[7])
	assert.Len(t, r.gw.orders, 3)
}

func TestRunPass_NoCreditsSkips(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	// в выборку попал, но кредиты успели кончиться
	r := newRig(t, oneStrategy(""), market, 0)

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeSkipped, rep.Items[0].Outcome)
	assert.Contains(t, rep.Items[0].Err, "no credits")
	assert.Empty(t, r.gw.orders)
	assert.Empty(t, r.trades.rows)
}

func TestRunPass_PanicIsolatedPerStrategy(t *testing.T) {
	strategies := []models.Strategy{
		{ID: 1, UserID: 7, Symbol: "BADUSDT", Script: "", IsActive: true, Timeframes: []string{"1h"}},
		{ID: 2, UserID: 7, Symbol: "BTCUSDT", Script: "", IsActive: true, Timeframes: []string{"1h"}},
	}
	market := &fakeMarket{
		closes:      map[string][]float64{"BTCUSDT": buyCloses()},
		price:       map[string]float64{"BTCUSDT": 100},
		panicSymbol: "BADUSDT",
	}
	r := newRig(t, strategies, market, 5)

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 2)
	assert.Equal(t, models.OutcomeError, rep.Items[0].Outcome)
	assert.Contains(t, rep.Items[0].Err, "panic")
	assert.Equal(t, models.OutcomeExecuted, rep.Items[1].Outcome)
}

func TestRunPass_MarketErrorIsErrorOutcome(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{}, // рынок не знает символа
		price:  map[string]float64{},
	}
	r := newRig(t, oneStrategy(""), market, 5)

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeError, rep.Items[0].Outcome)
	// ошибка чтения рынка не трогает ни кредиты, ни trades
	assert.Equal(t, 5, r.users.credits[7])
	assert.Empty(t, r.trades.rows)
}

func TestRunPass_UserWithoutKeysSkipped(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 5)
	r.users.keys = map[int64]*models.APIKeys{}

	rep := r.engine.RunPass(context.Background())

	assert.Equal(t, 1, rep.Users)
	assert.Equal(t, 0, rep.Evaluated)
	assert.Empty(t, rep.Items)
}

func TestRunPass_TimeframeIntersection(t *testing.T) {
	strategies := []models.Strategy{{
		ID: 1, UserID: 7, Symbol: "BTCUSDT", Script: "",
		IsActive: true, Timeframes: []string{"1h", "4h"},
	}}
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": flatCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	// пользователь выбрал только 1h
	r := newRig(t, strategies, market, 5)

	rep := r.engine.RunPass(context.Background())
	assert.Equal(t, 1, rep.Evaluated)
}

func TestRunPass_StopFailureKeepsTradeOpen(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 5)
	r.gw.failStops = true

	rep := r.engine.RunPass(context.Background())

	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeExecuted, rep.Items[0].Outcome)
	require.Len(t, r.trades.rows, 1)
	assert.Equal(t, models.TradeOpen, r.trades.rows[0].Status)

	// два предупреждения и одно подтверждение
	require.Len(t, r.notify.msgs, 3)
	assert.Contains(t, r.notify.msgs[0], "стоп-лосс")
	assert.Contains(t, r.notify.msgs[1], "тейк-профит")
	assert.Contains(t, r.notify.msgs[2], "Открыта позиция")
}

func TestEvaluateScript_DryRun(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, nil, market, 5)

	res, err := r.engine.EvaluateScript(context.Background(), "fast = 12, slow = 26, ema", "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, models.SideBuy, res.Signal.Side)
	assert.Equal(t, 12, res.Config.FastPeriod)
	assert.Equal(t, 26, res.Config.SlowPeriod)

	// сухой прогон не трогает ни кредиты, ни биржу
	assert.Equal(t, 5, r.users.credits[7])
	assert.Empty(t, r.gw.orders)
	assert.Empty(t, r.trades.rows)
}

func TestEvaluateStrategy_ByID(t *testing.T) {
	market := &fakeMarket{
		closes: map[string][]float64{"BTCUSDT": buyCloses()},
		price:  map[string]float64{"BTCUSDT": 100},
	}
	r := newRig(t, oneStrategy(""), market, 5)

	res, err := r.engine.EvaluateStrategy(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.StrategyID)
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.Equal(t, "1h", res.Timeframe)
	assert.Equal(t, models.SideBuy, res.Signal.Side)

	_, err = r.engine.EvaluateStrategy(context.Background(), 99, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
