// Package exchange — клиент биржи: публичные свечи/цены по REST,
// стрим цен по WS и подписанные приватные ордера.
package exchange

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	baseURL  string
	wsURL    string
	http     *http.Client
	wsDialer *websocket.Dialer

	apiKey    string
	apiSecret string

	prices *priceCache
}

func NewClient(baseURL, wsURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		wsURL:    strings.TrimRight(wsURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		prices:   &priceCache{m: make(map[string]cachedPrice)},
	}
}

// WithCreds — копия клиента под ключи конкретного юзера.
// HTTP-клиент и кеш цен остаются общими.
func (c *Client) WithCreds(apiKey, secretKey string) *Client {
	cp := *c
	cp.apiKey, cp.apiSecret = apiKey, secretKey
	return &cp
}

func (c *Client) SetPrice(symbol string, px float64) {
	c.prices.mu.Lock()
	c.prices.m[symbol] = cachedPrice{px: px, at: time.Now()}
	c.prices.mu.Unlock()
}

type priceCache struct {
	mu sync.RWMutex
	m  map[string]cachedPrice
}

type cachedPrice struct {
	px float64
	at time.Time
}

func (p *priceCache) get(symbol string, maxAge time.Duration) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp, ok := p.m[symbol]
	if !ok || cp.px <= 0 || time.Since(cp.at) > maxAge {
		return 0, false
	}
	return cp.px, true
}
