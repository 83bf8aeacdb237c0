package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

type Trades struct {
	txm db.TxManager
}

func NewTrades(txm db.TxManager) *Trades {
	return &Trades{txm: txm}
}

// Insert пишет сделку в транзакции и проставляет ID/CreatedAt.
func (s *Trades) Insert(ctx context.Context, t *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Insert: %w", err)
		}
	}()

	return s.txm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx, `
			INSERT INTO trades (
				user_id, strategy_id, symbol, timeframe, side, status,
				entry_price, stop_loss, take_profit, quantity,
				credit_locked, credit_consumed, error_message, opened_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id, created_at`,
			t.UserID, t.StrategyID, t.Symbol, t.Timeframe, t.Side, t.Status,
			t.EntryPrice, t.StopLoss, t.TakeProfit, t.Quantity,
			t.CreditLocked, t.CreditConsumed, t.ErrorMessage, t.OpenedAt,
		).Scan(&t.ID, &t.CreatedAt)
	})
}

// ExistsSince — была ли уже сделка по (user, symbol, timeframe)
// не раньше since. since — время открытия текущей свечи: одна свеча,
// одна сделка.
func (s *Trades) ExistsSince(ctx context.Context, userID int64, symbol, timeframe string, since time.Time) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.ExistsSince: %w", err)
		}
	}()

	err = s.txm.Conn().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trades
			WHERE user_id = $1 AND symbol = $2 AND timeframe = $3
			  AND created_at >= $4
		)`, userID, symbol, timeframe, since).Scan(&ok)
	return ok, err
}
