package engine

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"auto_trader/internal/evaluator"
	"auto_trader/internal/models"
	"auto_trader/internal/script"
	"auto_trader/pkg/logger"
)

// RunPass выполняет один батч-проход по всем подходящим пользователям.
// Проход не падает: любая ошибка отдельной единицы работы становится
// ERROR-строкой отчёта, отчёт возвращается всегда.
func (e *Engine) RunPass(ctx context.Context) *models.PassReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.pass")
	defer span.Finish()

	rep := &models.PassReport{StartedAt: e.now()}
	defer func() {
		rep.Duration = e.now().Sub(rep.StartedAt)
		logger.Info("pass done: users=%d evaluated=%d executed=%d skipped=%d failed=%d errors=%d dur=%s",
			rep.Users, rep.Evaluated,
			rep.Count(models.OutcomeExecuted), rep.Count(models.OutcomeSkipped),
			rep.Count(models.OutcomeFailed), rep.Count(models.OutcomeError),
			rep.Duration)
	}()

	users, err := e.users.Eligible(ctx)
	if err != nil {
		logger.Error("pass: eligible users: %v", err)
		rep.Items = append(rep.Items, models.ItemReport{
			Outcome: models.OutcomeError,
			Err:     err.Error(),
		})
		return rep
	}
	rep.Users = len(users)

	for _, u := range users {
		e.runUser(ctx, u, rep)
	}
	return rep
}

func (e *Engine) runUser(ctx context.Context, u models.TraderState, rep *models.PassReport) {
	keys, err := e.users.Keys(ctx, u.UserID)
	if err != nil {
		rep.Items = append(rep.Items, models.ItemReport{
			UserID:  u.UserID,
			Outcome: models.OutcomeError,
			Err:     err.Error(),
		})
		return
	}
	if keys == nil {
		// без ключей исполнять нечем, пользователя пропускаем целиком
		logger.Info("user %d: no api keys, skipping", u.UserID)
		return
	}

	strategies, err := e.strategies.ActiveByUser(ctx, u.UserID)
	if err != nil {
		rep.Items = append(rep.Items, models.ItemReport{
			UserID:  u.UserID,
			Outcome: models.OutcomeError,
			Err:     err.Error(),
		})
		return
	}

	gw := e.orders(*keys)
	for _, st := range strategies {
		for _, tf := range intersect(st.Timeframes, u.SelectedTimeframes) {
			rep.Evaluated++
			if item, ok := e.evaluateItem(ctx, u, st, tf, gw); ok {
				rep.Items = append(rep.Items, item)
			}
		}
	}
}

// evaluateItem оценивает одну пару (стратегия, таймфрейм). ok=false —
// сигнала нет и отчитываться не о чем. Паника внутри единицы работы
// превращается в ERROR и не роняет проход.
func (e *Engine) evaluateItem(ctx context.Context, u models.TraderState, st models.Strategy, tf string, gw OrderGateway) (item models.ItemReport, ok bool) {
	item = models.ItemReport{
		UserID:     u.UserID,
		StrategyID: st.ID,
		Symbol:     st.Symbol,
		Timeframe:  tf,
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("strategy %d tf %s: panic: %v", st.ID, tf, p)
			item.Outcome = models.OutcomeError
			item.Err = fmt.Sprintf("panic: %v", p)
			ok = true
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	cfg := script.Extract(st.Script)

	candles, err := e.market.Candles(cctx, st.Symbol, tf, e.cfg.CandleLimit)
	if err != nil {
		item.Outcome = models.OutcomeError
		item.Err = err.Error()
		return item, true
	}
	price, err := e.market.LastPrice(cctx, st.Symbol)
	if err != nil {
		item.Outcome = models.OutcomeError
		item.Err = err.Error()
		return item, true
	}

	sig := evaluator.Evaluate(cfg, candles, price)
	if sig.Side == models.SideNone {
		return item, false
	}
	item.Side = sig.Side

	e.execute(cctx, u, st, tf, sig, gw, &item)
	return item, true
}

// intersect — таймфреймы стратегии, которые пользователь выбрал.
// Пустой выбор пользователя значит "все таймфреймы стратегии".
func intersect(strategyTFs, userTFs []string) []string {
	norm := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, tf := range in {
			out = append(out, models.NormTimeframe(tf))
		}
		return out
	}

	sTFs := norm(strategyTFs)
	if len(userTFs) == 0 {
		return sTFs
	}

	picked := make(map[string]bool, len(userTFs))
	for _, tf := range norm(userTFs) {
		picked[tf] = true
	}

	var out []string
	for _, tf := range sTFs {
		if picked[tf] {
			out = append(out, tf)
		}
	}
	return out
}
