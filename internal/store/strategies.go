package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

type Strategies struct {
	txm db.TxManager
}

func NewStrategies(txm db.TxManager) *Strategies {
	return &Strategies{txm: txm}
}

// ActiveByUser — активные стратегии пользователя в стабильном порядке.
func (s *Strategies) ActiveByUser(ctx context.Context, userID int64) (out []models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.ActiveByUser: %w", err)
		}
	}()

	rows, err := s.txm.Conn().Query(ctx, `
		SELECT id, user_id, symbol, script, is_active, timeframes
		FROM strategies
		WHERE user_id = $1 AND is_active
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st models.Strategy
		if err = rows.Scan(&st.ID, &st.UserID, &st.Symbol, &st.Script, &st.IsActive, &st.Timeframes); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ByID — одна стратегия, (nil, nil) если не найдена.
func (s *Strategies) ByID(ctx context.Context, id int64) (st *models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.ByID: %w", err)
		}
	}()

	var out models.Strategy
	err = s.txm.Conn().QueryRow(ctx, `
		SELECT id, user_id, symbol, script, is_active, timeframes
		FROM strategies
		WHERE id = $1`, id).
		Scan(&out.ID, &out.UserID, &out.Symbol, &out.Script, &out.IsActive, &out.Timeframes)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveSymbols — уникальные символы всех активных стратегий.
// Нужен для прогрева WS-стримов цен.
func (s *Strategies) ActiveSymbols(ctx context.Context) (out []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Strategies.ActiveSymbols: %w", err)
		}
	}()

	rows, err := s.txm.Conn().Query(ctx, `
		SELECT DISTINCT symbol
		FROM strategies
		WHERE is_active
		ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sym string
		if err = rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
