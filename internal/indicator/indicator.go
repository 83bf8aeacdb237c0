// Package indicator — чистые функции-серии над ценами закрытия.
// Все функции возвращают серию той же длины, что и вход, даже на пустом
// или коротком входе: на это опирается сравнение кроссоверов в evaluator.
package indicator

// SMA — простая скользящая средняя. Позиции до period-1 заполняются нулями.
func SMA(closes []float64, period int) []float64 {
	if period < 1 {
		period = 1
	}
	out := make([]float64, len(closes))
	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA — экспоненциальная скользящая, множитель 2/(period+1).
// Первые period значений бутстрапятся бегущим средним, дальше обычная рекурсия.
func EMA(closes []float64, period int) []float64 {
	if period < 1 {
		period = 1
	}
	out := make([]float64, len(closes))
	k := 2.0 / (float64(period) + 1)
	sum := 0.0
	for i, c := range closes {
		if i < period {
			sum += c
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = c*k + out[i-1]*(1-k)
	}
	return out
}

// RSI по Уайлдеру: средний gain/loss по хвостовому окну.
// Недогретые позиции получают 50, при нулевом среднем убытке — 100.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50
	}
	if period < 1 || len(closes) <= period {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			ch := closes[j] - closes[j-1]
			if ch > 0 {
				gain += ch
			} else {
				loss -= ch
			}
		}
		avgLoss := loss / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		avgGain := gain / float64(period)
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
