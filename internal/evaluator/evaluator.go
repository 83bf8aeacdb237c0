// Package evaluator превращает (конфиг, свечи, цену) в торговый сигнал.
// Evaluate — чистая функция: одинаковый вход всегда даёт одинаковый сигнал,
// никаких ошибок наружу — при нехватке данных возвращается NONE.
package evaluator

import (
	"fmt"

	"auto_trader/internal/indicator"
	"auto_trader/internal/models"
)

// Evaluate возвращает ровно один сигнал за вызов; нет пересечения — NONE.
func Evaluate(cfg models.StrategyConfig, candles []models.Candle, price float64) models.Signal {
	cfg.Normalize()

	if len(candles) < cfg.MinCandles() {
		return models.Signal{Side: models.SideNone, Reason: "insufficient data"}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	switch cfg.EntryType {
	case models.EntryRSI:
		return evalRSI(cfg, closes, price)
	case models.EntryMACrossunder:
		return evalCross(cfg, closes, price, true)
	default:
		// PRICE_ABOVE / PRICE_BELOW / CUSTOM оцениваются как обычный кроссовер
		return evalCross(cfg, closes, price, false)
	}
}

func evalCross(cfg models.StrategyConfig, closes []float64, price float64, inverted bool) models.Signal {
	var fast, slow []float64
	if cfg.MAType == models.MATypeSMA {
		fast = indicator.SMA(closes, cfg.FastPeriod)
		slow = indicator.SMA(closes, cfg.SlowPeriod)
	} else {
		fast = indicator.EMA(closes, cfg.FastPeriod)
		slow = indicator.EMA(closes, cfg.SlowPeriod)
	}

	n := len(closes)
	prevFast, curFast := fast[n-2], fast[n-1]
	prevSlow, curSlow := slow[n-2], slow[n-1]

	crossUp := prevFast <= prevSlow && curFast > curSlow
	crossDown := prevFast >= prevSlow && curFast < curSlow

	reason := func(dir string) string {
		return fmt.Sprintf("%s %d/%d %s: fast %.4f vs slow %.4f",
			cfg.MAType, cfg.FastPeriod, cfg.SlowPeriod, dir, curFast, curSlow)
	}

	switch {
	case crossUp && !inverted:
		return buildSignal(models.SideBuy, price, cfg, reason("crossover"))
	case crossUp && inverted:
		return buildSignal(models.SideSell, price, cfg, reason("crossover"))
	case crossDown && !inverted:
		return buildSignal(models.SideSell, price, cfg, reason("crossunder"))
	case crossDown && inverted:
		return buildSignal(models.SideBuy, price, cfg, reason("crossunder"))
	default:
		return models.Signal{Side: models.SideNone, Reason: "no crossover"}
	}
}

func evalRSI(cfg models.StrategyConfig, closes []float64, price float64) models.Signal {
	series := indicator.RSI(closes, cfg.RSIPeriod)
	n := len(series)
	prev, cur := series[n-2], series[n-1]

	if prev <= cfg.RSIOversold && cur > cfg.RSIOversold {
		reason := fmt.Sprintf("RSI(%d) crossed up through oversold %.1f: %.2f -> %.2f",
			cfg.RSIPeriod, cfg.RSIOversold, prev, cur)
		return buildSignal(models.SideBuy, price, cfg, reason)
	}
	if prev >= cfg.RSIOverbought && cur < cfg.RSIOverbought {
		reason := fmt.Sprintf("RSI(%d) crossed down through overbought %.1f: %.2f -> %.2f",
			cfg.RSIPeriod, cfg.RSIOverbought, prev, cur)
		return buildSignal(models.SideSell, price, cfg, reason)
	}
	return models.Signal{Side: models.SideNone, Reason: "no rsi cross"}
}

// buildSignal считает SL/TP от текущей цены, знак зависит от стороны.
func buildSignal(side models.Side, price float64, cfg models.StrategyConfig, reason string) models.Signal {
	sig := models.Signal{Side: side, Price: price, Reason: reason}
	if side == models.SideBuy {
		sig.StopLoss = price * (1 - cfg.StopLossPct/100)
		sig.TakeProfit = price * (1 + cfg.TakeProfitPct/100)
	} else {
		sig.StopLoss = price * (1 + cfg.StopLossPct/100)
		sig.TakeProfit = price * (1 - cfg.TakeProfitPct/100)
	}
	return sig
}
