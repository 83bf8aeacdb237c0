package models

import (
	"strings"
	"time"
)

// Candle — одна OHLCV-свеча. Серии всегда упорядочены по OpenTime по возрастанию.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// NormTimeframe приводит обозначение таймфрейма к каноничному виду ("60m" -> "1h").
func NormTimeframe(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// TimeframeDuration — длительность свечи таймфрейма.
func TimeframeDuration(tf string) (time.Duration, bool) {
	switch NormTimeframe(tf) {
	case "1m":
		return time.Minute, true
	case "3m":
		return 3 * time.Minute, true
	case "5m":
		return 5 * time.Minute, true
	case "10m":
		return 10 * time.Minute, true
	case "15m":
		return 15 * time.Minute, true
	case "30m":
		return 30 * time.Minute, true
	case "1h":
		return time.Hour, true
	case "4h":
		return 4 * time.Hour, true
	case "1d":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// CandleOpenTime — время открытия текущей (ещё не закрытой) свечи.
// Слот считается по Unix-времени, шаг равен длительности таймфрейма.
func CandleOpenTime(now time.Time, tf string) time.Time {
	d, ok := TimeframeDuration(tf)
	if !ok {
		d = time.Minute
	}
	step := int64(d / time.Second)
	sec := now.Unix()
	sec -= sec % step
	return time.Unix(sec, 0).UTC()
}
