package models

import "time"

type Outcome string

const (
	OutcomeExecuted Outcome = "EXECUTED"
	OutcomeSkipped  Outcome = "SKIPPED"
	OutcomeFailed   Outcome = "FAILED"
	OutcomeError    Outcome = "ERROR"
)

// ItemReport — итог одной единицы работы (user x strategy x timeframe),
// по которой сработал сигнал или случилась ошибка.
type ItemReport struct {
	UserID     int64   `json:"user_id"`
	StrategyID int64   `json:"strategy_id"`
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	Side       Side    `json:"side,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Err        string  `json:"error,omitempty"`
}

// PassReport — отчёт одного батч-прохода. Проход обязан завершиться и
// вернуть отчёт, что бы ни происходило с отдельными стратегиями.
type PassReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Users     int           `json:"users"`
	Evaluated int           `json:"evaluated"`
	Items     []ItemReport  `json:"items"`
}

func (r *PassReport) Count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}
