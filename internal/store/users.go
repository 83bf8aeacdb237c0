// Package store — доступ к состоянию трейдеров, стратегиям и сделкам.
// Движок только читает чужие таблицы (trader_states, strategies,
// user_api_keys) и владеет trades.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

type Users struct {
	txm db.TxManager
}

func NewUsers(txm db.TxManager) *Users {
	return &Users{txm: txm}
}

// Eligible — пользователи с включённым ботом и хотя бы одним кредитом.
// Только они попадают в проход.
func (s *Users) Eligible(ctx context.Context) (out []models.TraderState, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Users.Eligible: %w", err)
		}
	}()

	rows, err := s.txm.Conn().Query(ctx, `
		SELECT user_id, credits, bot_enabled, selected_timeframes
		FROM trader_states
		WHERE bot_enabled AND credits > 0
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.TraderState
		if err = rows.Scan(&u.UserID, &u.Credits, &u.BotEnabled, &u.SelectedTimeframes); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Keys возвращает API-ключи пользователя, (nil, nil) если ключей нет.
func (s *Users) Keys(ctx context.Context, userID int64) (keys *models.APIKeys, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Users.Keys: %w", err)
		}
	}()

	var k models.APIKeys
	err = s.txm.Conn().QueryRow(ctx, `
		SELECT user_id, api_key, secret_key
		FROM user_api_keys
		WHERE user_id = $1`, userID).Scan(&k.UserID, &k.APIKey, &k.SecretKey)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ReserveCredit атомарно списывает один кредит. false — кредиты
// кончились, резервировать нечего.
func (s *Users) ReserveCredit(ctx context.Context, userID int64) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Users.ReserveCredit: %w", err)
		}
	}()

	tag, err := s.txm.Conn().Exec(ctx, `
		UPDATE trader_states
		SET credits = credits - 1
		WHERE user_id = $1 AND credits > 0`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RefundCredit возвращает кредит после неудачного исполнения.
func (s *Users) RefundCredit(ctx context.Context, userID int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Users.RefundCredit: %w", err)
		}
	}()

	_, err = s.txm.Conn().Exec(ctx, `
		UPDATE trader_states
		SET credits = credits + 1
		WHERE user_id = $1`, userID)
	return err
}
