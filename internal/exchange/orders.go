package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"auto_trader/internal/models"
)

const orderPath = "/api/v3/order"

type orderResponse struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// PlaceMarket ставит рыночный ордер на qty базовой валюты.
func (c *Client) PlaceMarket(ctx context.Context, symbol string, side models.Side, qty float64) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", formatQty(qty))
	return c.signedPost(ctx, q)
}

// PlaceStopLoss ставит стоп противоположной стороной от позиции.
func (c *Client) PlaceStopLoss(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side.Opposite()))
	q.Set("type", "STOP_LOSS")
	q.Set("quantity", formatQty(qty))
	q.Set("stopPrice", formatPrice(stopPrice))
	return c.signedPost(ctx, q)
}

func (c *Client) PlaceTakeProfit(ctx context.Context, symbol string, side models.Side, qty, stopPrice float64) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side.Opposite()))
	q.Set("type", "TAKE_PROFIT")
	q.Set("quantity", formatQty(qty))
	q.Set("stopPrice", formatPrice(stopPrice))
	return c.signedPost(ctx, q)
}

// signedPost дописывает timestamp, подписывает канонизированный query
// HMAC-SHA256 секретом и шлёт POST с ключом в заголовке.
func (c *Client) signedPost(ctx context.Context, q url.Values) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", errors.New("api creds empty")
	}

	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	payload := q.Encode() // ключи сортируются, значения экранируются
	signed := payload + "&signature=" + c.sign(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderPath+"?"+signed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "order request")
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var or orderResponse
	if err := sonic.Unmarshal(rb, &or); err != nil {
		return "", errors.Wrap(err, "order decode")
	}
	return strconv.FormatInt(or.OrderID, 10), nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatQty(v float64) string {
	return trimZeros(strconv.FormatFloat(v, 'f', 8, 64))
}

func formatPrice(v float64) string {
	return trimZeros(strconv.FormatFloat(v, 'f', 8, 64))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
