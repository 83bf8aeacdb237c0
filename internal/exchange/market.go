package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"auto_trader/internal/models"
)

const (
	klinesPath = "/api/v3/klines"
	tickerPath = "/api/v3/ticker/price"

	// сколько живёт цена из WS-стрима, прежде чем уйти в REST
	priceCacheTTL = 5 * time.Second
)

// Candles возвращает последние limit свечей (symbol, interval),
// упорядоченные по openTime по возрастанию. Ошибки транспорта уходят
// наверх как есть — политику восстановления решает вызывающий.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+klinesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	// [[openTime, "open", "high", "low", "close", "volume", ...], ...]
	var raw [][]interface{}
	if err := sonic.Unmarshal(rb, &raw); err != nil {
		return nil, fmt.Errorf("klines decode: %w", err)
	}

	out := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		ot, _ := k[0].(float64)
		out = append(out, models.Candle{
			OpenTime: time.UnixMilli(int64(ot)).UTC(),
			Open:     parseField(k[1]),
			High:     parseField(k[2]),
			Low:      parseField(k[3]),
			Close:    parseField(k[4]),
			Volume:   parseField(k[5]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}

// LastPrice — мгновенная цена: сперва свежий кеш из WS-стрима, затем REST.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if px, ok := c.prices.get(symbol, priceCacheTTL); ok {
		return px, nil
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tickerPath+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var wrap struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := sonic.Unmarshal(rb, &wrap); err != nil {
		return 0, fmt.Errorf("ticker decode: %w", err)
	}
	px, err := strconv.ParseFloat(wrap.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker price %q: %w", wrap.Price, err)
	}

	c.SetPrice(symbol, px)
	return px, nil
}

func parseField(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}
