package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"auto_trader/pkg/logger"
)

const (
	pingInterval = 15 * time.Second
	maxRetryStep = 8
)

type miniTicker struct {
	Close string `json:"c"`
}

// StreamPrices держит WS-подписку на miniTicker символа и складывает
// последнюю цену в кеш клиента. Блокирует до отмены контекста,
// при обрыве переподключается с нарастающей задержкой.
func (c *Client) StreamPrices(ctx context.Context, symbol string) {
	endpoint := c.wsURL + "/ws/" + strings.ToLower(symbol) + "@miniTicker"

	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if retry > 0 {
			if retry > maxRetryStep {
				retry = maxRetryStep
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(retry) * 300 * time.Millisecond):
			}
		}
		retry++

		conn, _, err := c.wsDialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			logger.Warn("ws dial %s: %v", endpoint, err)
			continue
		}
		logger.Info("ws connected: %s", endpoint)
		retry = 0

		if err := c.readLoop(ctx, conn, symbol); err != nil {
			logger.Warn("ws %s: %v", symbol, err)
		}
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, symbol string) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.Close() // будим ReadMessage
				return
			case <-t.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var t miniTicker
		if err := sonic.Unmarshal(msg, &t); err != nil || t.Close == "" {
			continue
		}
		if px := parseField(t.Close); px > 0 {
			c.SetPrice(symbol, px)
		}
	}
}
