package engine

import (
	"context"

	"github.com/pkg/errors"

	"auto_trader/internal/evaluator"
	"auto_trader/internal/models"
	"auto_trader/internal/script"
)

// TestResult — прогон одной стратегии без исполнения: что извлекли
// из текста и что бы сейчас сработало.
type TestResult struct {
	StrategyID int64                 `json:"strategy_id,omitempty"`
	Symbol     string                `json:"symbol"`
	Timeframe  string                `json:"timeframe"`
	Price      float64               `json:"price"`
	Candles    int                   `json:"candles"`
	Config     models.StrategyConfig `json:"config"`
	Signal     models.Signal         `json:"signal"`
}

// EvaluateStrategy — сухой прогон сохранённой стратегии. Ордеров,
// кредитов и записей в trades нет.
func (e *Engine) EvaluateStrategy(ctx context.Context, strategyID int64, timeframe string) (*TestResult, error) {
	st, err := e.strategies.ByID(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.Errorf("strategy %d not found", strategyID)
	}

	tf := timeframe
	if tf == "" && len(st.Timeframes) > 0 {
		tf = st.Timeframes[0]
	}

	res, err := e.EvaluateScript(ctx, st.Script, st.Symbol, tf)
	if err != nil {
		return nil, err
	}
	res.StrategyID = st.ID
	return res, nil
}

// EvaluateScript — сухой прогон произвольного текста стратегии
// на живых рыночных данных.
func (e *Engine) EvaluateScript(ctx context.Context, text, symbol, timeframe string) (*TestResult, error) {
	if symbol == "" {
		return nil, errors.New("symbol required")
	}
	tf := models.NormTimeframe(timeframe)
	if tf == "" {
		tf = "1h"
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	cfg := script.Extract(text)

	candles, err := e.market.Candles(cctx, symbol, tf, e.cfg.CandleLimit)
	if err != nil {
		return nil, errors.Wrap(err, "candles")
	}
	price, err := e.market.LastPrice(cctx, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "last price")
	}

	return &TestResult{
		Symbol:    symbol,
		Timeframe: tf,
		Price:     price,
		Candles:   len(candles),
		Config:    cfg,
		Signal:    evaluator.Evaluate(cfg, candles, price),
	}, nil
}
