package engine

import (
	"context"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// execute доводит сработавший сигнал до сделки. Инварианты:
// одна свеча — одна сделка, кредит либо потрачен на исполненный
// ордер, либо возвращён.
func (e *Engine) execute(ctx context.Context, u models.TraderState, st models.Strategy, tf string, sig models.Signal, gw OrderGateway, item *models.ItemReport) {
	since := models.CandleOpenTime(e.now(), tf)
	exists, err := e.trades.ExistsSince(ctx, u.UserID, st.Symbol, tf, since)
	if err != nil {
		item.Outcome = models.OutcomeError
		item.Err = err.Error()
		return
	}
	if exists {
		item.Outcome = models.OutcomeSkipped
		item.Err = "trade already opened on this candle"
		return
	}

	ok, err := e.users.ReserveCredit(ctx, u.UserID)
	if err != nil {
		item.Outcome = models.OutcomeError
		item.Err = err.Error()
		return
	}
	if !ok {
		item.Outcome = models.OutcomeSkipped
		item.Err = "no credits left"
		return
	}

	qty := e.sizer(e.cfg.NotionalUSD, sig.Price)
	if qty <= 0 {
		e.refund(ctx, u.UserID)
		item.Outcome = models.OutcomeSkipped
		item.Err = "zero position size"
		return
	}

	orderID, err := gw.PlaceMarket(ctx, st.Symbol, sig.Side, qty)
	if err != nil {
		e.refund(ctx, u.UserID)
		e.recordFailed(ctx, u, st, tf, sig, qty, err.Error())
		e.notify.SendF(ctx, u.UserID, "❗ Ордер не исполнен: %s %s %s\nПричина: %s\nКредит возвращён",
			sig.Side, st.Symbol, tf, err.Error())
		item.Outcome = models.OutcomeFailed
		item.Err = err.Error()
		return
	}
	logger.Info("user %d: %s %s %s filled, order %s", u.UserID, sig.Side, st.Symbol, tf, orderID)

	// защитные ордера — best effort: позиция уже открыта,
	// их неудача сделку не отменяет
	if sig.StopLoss > 0 {
		if _, err := gw.PlaceStopLoss(ctx, st.Symbol, sig.Side, qty, sig.StopLoss); err != nil {
			logger.Warn("user %d: stop-loss %s %s: %v", u.UserID, st.Symbol, tf, err)
			e.notify.SendF(ctx, u.UserID, "⚠ Позиция %s %s открыта, но стоп-лосс не поставлен: %s",
				st.Symbol, tf, err.Error())
		}
	}
	if sig.TakeProfit > 0 {
		if _, err := gw.PlaceTakeProfit(ctx, st.Symbol, sig.Side, qty, sig.TakeProfit); err != nil {
			logger.Warn("user %d: take-profit %s %s: %v", u.UserID, st.Symbol, tf, err)
			e.notify.SendF(ctx, u.UserID, "⚠ Позиция %s %s открыта, но тейк-профит не поставлен: %s",
				st.Symbol, tf, err.Error())
		}
	}

	now := e.now()
	trade := &models.Trade{
		UserID:         u.UserID,
		StrategyID:     st.ID,
		Symbol:         st.Symbol,
		Timeframe:      tf,
		Side:           sig.Side,
		Status:         models.TradeOpen,
		EntryPrice:     sig.Price,
		StopLoss:       sig.StopLoss,
		TakeProfit:     sig.TakeProfit,
		Quantity:       qty,
		CreditLocked:   true,
		CreditConsumed: true,
		OpenedAt:       &now,
	}
	if err := e.trades.Insert(ctx, trade); err != nil {
		// ордер уже на бирже, потерять запись нельзя молча
		logger.Error("user %d: trade not recorded after fill (order %s): %v", u.UserID, orderID, err)
	}

	e.notify.SendF(ctx, u.UserID, "✅ Открыта позиция %s %s %s\nЦена: %.4f\nSL: %.4f | TP: %.4f\n%s",
		sig.Side, st.Symbol, tf, sig.Price, sig.StopLoss, sig.TakeProfit, sig.Reason)
	item.Outcome = models.OutcomeExecuted
}

func (e *Engine) refund(ctx context.Context, userID int64) {
	if err := e.users.RefundCredit(ctx, userID); err != nil {
		logger.Error("user %d: credit refund: %v", userID, err)
	}
}

func (e *Engine) recordFailed(ctx context.Context, u models.TraderState, st models.Strategy, tf string, sig models.Signal, qty float64, msg string) {
	// кредит к этому моменту уже возвращён: запись фиксирует неудачу,
	// а не удержание
	trade := &models.Trade{
		UserID:       u.UserID,
		StrategyID:   st.ID,
		Symbol:       st.Symbol,
		Timeframe:    tf,
		Side:         sig.Side,
		Status:       models.TradeFailed,
		EntryPrice:   sig.Price,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		Quantity:     qty,
		ErrorMessage: msg,
	}
	if err := e.trades.Insert(ctx, trade); err != nil {
		logger.Error("user %d: failed trade not recorded: %v", u.UserID, err)
	}
}
