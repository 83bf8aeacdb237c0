package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auto_trader/internal/models"
)

func TestExtract_NoRecognizableParamsYieldsDefaults(t *testing.T) {
	cfg := Extract("buy the dip when volume spikes and the trend looks strong")
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, models.EntryMACrossover, cfg.EntryType)
	assert.Equal(t, 12, cfg.FastPeriod)
	assert.Equal(t, 26, cfg.SlowPeriod)
	assert.Equal(t, models.MATypeEMA, cfg.MAType)
	assert.Equal(t, 2.0, cfg.StopLossPct)
	assert.Equal(t, 4.0, cfg.TakeProfitPct)
}

func TestExtract_PartialOverridesOnlyFoundFields(t *testing.T) {
	cfg := Extract("fast length = 9, slow length = 21, use SMA, stop loss 1.5%")

	assert.Equal(t, 9, cfg.FastPeriod)
	assert.Equal(t, 21, cfg.SlowPeriod)
	assert.Equal(t, models.MATypeSMA, cfg.MAType)
	assert.Equal(t, 1.5, cfg.StopLossPct)
	// в тексте не встречается, остаётся дефолт
	assert.Equal(t, 4.0, cfg.TakeProfitPct)
	assert.Equal(t, models.EntryMACrossover, cfg.EntryType)
}

func TestExtract_CrossunderKeyword(t *testing.T) {
	cfg := Extract("ema crossunder, fast 5 slow 15, take profit 2%")
	assert.Equal(t, models.EntryMACrossunder, cfg.EntryType)
	assert.Equal(t, 5, cfg.FastPeriod)
	assert.Equal(t, 15, cfg.SlowPeriod)
	assert.Equal(t, 2.0, cfg.TakeProfitPct)
}

func TestExtract_RSIParamsForceRSIEntry(t *testing.T) {
	cfg := Extract("RSI(7), overbought = 80, oversold: 20, stop loss 1%")

	assert.Equal(t, models.EntryRSI, cfg.EntryType)
	assert.Equal(t, 7, cfg.RSIPeriod)
	assert.Equal(t, 80.0, cfg.RSIOverbought)
	assert.Equal(t, 20.0, cfg.RSIOversold)
	assert.Equal(t, 1.0, cfg.StopLossPct)
}

func TestExtract_RSIWinsOverCrossunder(t *testing.T) {
	cfg := Extract("rsi crossunder strategy")
	assert.Equal(t, models.EntryRSI, cfg.EntryType)
	// пороги остаются документированными дефолтами
	assert.Equal(t, 14, cfg.RSIPeriod)
	assert.Equal(t, 70.0, cfg.RSIOverbought)
	assert.Equal(t, 30.0, cfg.RSIOversold)
}

func TestExtract_PineStyleMACalls(t *testing.T) {
	cfg := Extract("enter long on ta.crossover(ta.ema(close, 8), ta.ema(close, 34))")
	assert.Equal(t, 8, cfg.FastPeriod)
	assert.Equal(t, 34, cfg.SlowPeriod)
	assert.Equal(t, models.MATypeEMA, cfg.MAType)
	assert.Equal(t, models.EntryMACrossover, cfg.EntryType)
}

func TestExtract_NeverFailsOnGarbage(t *testing.T) {
	for _, text := range []string{"", "   ", "42", "!!!", "стратегия без параметров", "fast="} {
		cfg := Extract(text)
		assert.GreaterOrEqual(t, cfg.FastPeriod, 1, "text %q", text)
		assert.GreaterOrEqual(t, cfg.SlowPeriod, 1, "text %q", text)
	}
}

func TestExtract_InvariantsClamped(t *testing.T) {
	cfg := Extract("fast = 0, slow = 0, stop loss 0%")
	assert.Equal(t, 1, cfg.FastPeriod)
	assert.Equal(t, 1, cfg.SlowPeriod)
	assert.Equal(t, 0.0, cfg.StopLossPct)
}
