// Package script извлекает числовые параметры стратегии из свободного текста.
// Извлечение best-effort: каждый параметр ищется отдельным именованным
// правилом, не найденное остаётся дефолтом. Extract никогда не фейлится.
package script

import (
	"regexp"
	"strconv"
	"strings"

	"auto_trader/internal/models"
)

var (
	reFast       = regexp.MustCompile(`(?i)\bfast[\s_]*(?:length|period|len|ma|ema|sma)?\s*[:=(]?\s*(\d+)`)
	reSlow       = regexp.MustCompile(`(?i)\bslow[\s_]*(?:length|period|len|ma|ema|sma)?\s*[:=(]?\s*(\d+)`)
	reMACall     = regexp.MustCompile(`(?i)\b(?:ta\.)?(?:ema|sma)\s*\(\s*(?:[a-z]+\s*,\s*)?(\d+)\s*\)`)
	reMAType     = regexp.MustCompile(`(?i)\b(ema|sma)\b`)
	reStopLoss   = regexp.MustCompile(`(?i)(?:stop[\s_-]*loss|\bsl\b)[^0-9%]{0,12}(\d+(?:\.\d+)?)`)
	reTakeProfit = regexp.MustCompile(`(?i)(?:take[\s_-]*profit|\btp\b)[^0-9%]{0,12}(\d+(?:\.\d+)?)`)
	reRSIPeriod  = regexp.MustCompile(`(?i)\brsi[\s_]*(?:period|length|len)?\s*[:=(]?\s*(\d+)`)
	reOverbought = regexp.MustCompile(`(?i)overbought[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	reOversold   = regexp.MustCompile(`(?i)oversold[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	reCrossunder = regexp.MustCompile(`(?i)cross[\s_-]*under|cross(?:es|ed)?\s+below`)
	reRSIWord    = regexp.MustCompile(`(?i)\brsi\b`)
)

// Defaults — документированные дефолты конфига.
// RSI-поля применяются, только когда определился entryType=RSI.
func Defaults() models.StrategyConfig {
	return models.StrategyConfig{
		EntryType:     models.EntryMACrossover,
		FastPeriod:    12,
		SlowPeriod:    26,
		MAType:        models.MATypeEMA,
		StopLossPct:   2.0,
		TakeProfitPct: 4.0,
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
	}
}

// rule — именованный экстрактор одного параметра: применился или нет.
type rule struct {
	name  string
	apply func(text string, cfg *models.StrategyConfig) bool
}

var rules = []rule{
	{"fast_period", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findInt(reFast, text)
		if ok {
			cfg.FastPeriod = v
		}
		return ok
	}},
	{"slow_period", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findInt(reSlow, text)
		if ok {
			cfg.SlowPeriod = v
		}
		return ok
	}},
	{"ma_type", func(text string, cfg *models.StrategyConfig) bool {
		m := reMAType.FindStringSubmatch(text)
		if m == nil {
			return false
		}
		if strings.EqualFold(m[1], "sma") {
			cfg.MAType = models.MATypeSMA
		} else {
			cfg.MAType = models.MATypeEMA
		}
		return true
	}},
	{"stop_loss_pct", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findFloat(reStopLoss, text)
		if ok {
			cfg.StopLossPct = v
		}
		return ok
	}},
	{"take_profit_pct", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findFloat(reTakeProfit, text)
		if ok {
			cfg.TakeProfitPct = v
		}
		return ok
	}},
	{"rsi_period", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findInt(reRSIPeriod, text)
		if ok {
			cfg.RSIPeriod = v
		}
		return ok
	}},
	{"rsi_overbought", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findFloat(reOverbought, text)
		if ok {
			cfg.RSIOverbought = v
		}
		return ok
	}},
	{"rsi_oversold", func(text string, cfg *models.StrategyConfig) bool {
		v, ok := findFloat(reOversold, text)
		if ok {
			cfg.RSIOversold = v
		}
		return ok
	}},
}

// Extract — единственная точка входа: текст -> StrategyConfig поверх дефолтов.
func Extract(text string) models.StrategyConfig {
	cfg := Defaults()

	found := map[string]bool{}
	for _, r := range rules {
		if r.apply(text, &cfg) {
			found[r.name] = true
		}
	}

	// fast/slow не заданы явно — пробуем вытащить периоды из вызовов ema(..)/sma(..)
	if !found["fast_period"] && !found["slow_period"] {
		if calls := reMACall.FindAllStringSubmatch(text, -1); len(calls) >= 2 {
			if v, err := strconv.Atoi(calls[0][1]); err == nil {
				cfg.FastPeriod = v
			}
			if v, err := strconv.Atoi(calls[1][1]); err == nil {
				cfg.SlowPeriod = v
			}
		}
	}

	rsiSeen := found["rsi_period"] || found["rsi_overbought"] || found["rsi_oversold"] ||
		reRSIWord.MatchString(text)

	switch {
	case rsiSeen:
		cfg.EntryType = models.EntryRSI
	case reCrossunder.MatchString(text):
		cfg.EntryType = models.EntryMACrossunder
	default:
		cfg.EntryType = models.EntryMACrossover
	}

	cfg.Normalize()
	return cfg
}

func findInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

func findFloat(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
