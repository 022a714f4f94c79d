// Package ingest consumes the exchange trade stream and maintains the
// per-symbol tick buffers the analytics engine reads from.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TickHandler receives every validated tick.
type TickHandler func(models.Tick)

// StreamClient manages the websocket connection to the Binance futures
// aggregate trade stream, with automatic reconnection.
type StreamClient struct {
	cfg    config.IngestConfig
	logger *zap.Logger

	conn          *websocket.Conn
	mu            sync.RWMutex
	subscriptions map[string]bool
	handlers      []TickHandler

	ctx    context.Context
	cancel context.CancelFunc

	isConnected        bool
	connectionAttempts int
	nextRequestID      int
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// aggTradeMessage is the Binance futures aggTrade payload. When connected
// to a combined stream the payload arrives wrapped in a data envelope.
type aggTradeMessage struct {
	EventType    string          `json:"e"`
	Symbol       string          `json:"s"`
	AggTradeID   int64           `json:"a"`
	Price        decimal.Decimal `json:"p"`
	Quantity     decimal.Decimal `json:"q"`
	TradeTimeMs  int64           `json:"T"`
	IsBuyerMaker bool            `json:"m"`
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// NewStreamClient creates a streaming client. Connect must be called before
// ticks flow.
func NewStreamClient(cfg config.IngestConfig, logger *zap.Logger) *StreamClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamClient{
		cfg:           cfg,
		logger:        logger,
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// RegisterHandler appends a tick callback. Handlers run on the read
// goroutine and must not block.
func (c *StreamClient) RegisterHandler(h TickHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Connect establishes the websocket connection and starts the reader.
func (c *StreamClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.isConnected = false
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.cfg.WebsocketURL, nil)
	if err != nil {
		c.connectionAttempts++
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.isConnected = true
	c.connectionAttempts = 0

	if len(c.subscriptions) > 0 {
		if err := c.sendSubscribe(c.streamNames()); err != nil {
			c.conn.Close()
			c.conn = nil
			c.isConnected = false
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	go c.handleMessages(conn)

	c.logger.Info("websocket connected", zap.String("url", c.cfg.WebsocketURL))
	return nil
}

// Subscribe adds symbols to the aggTrade stream. Symbols staged before the
// connection is up are subscribed on connect.
func (c *StreamClient) Subscribe(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(s)
		c.subscriptions[s] = true
		params = append(params, s+"@aggTrade")
	}

	if c.isConnected {
		return c.sendSubscribe(params)
	}
	c.logger.Info("staged subscriptions", zap.Strings("symbols", symbols))
	return nil
}

// Unsubscribe removes symbols from the stream.
func (c *StreamClient) Unsubscribe(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(s)
		delete(c.subscriptions, s)
		params = append(params, s+"@aggTrade")
	}

	if c.isConnected {
		c.nextRequestID++
		return c.conn.WriteJSON(subscribeRequest{
			Method: "UNSUBSCRIBE",
			Params: params,
			ID:     c.nextRequestID,
		})
	}
	return nil
}

// sendSubscribe writes a SUBSCRIBE request. Caller must hold the lock.
func (c *StreamClient) sendSubscribe(params []string) error {
	c.nextRequestID++
	c.logger.Info("subscribing", zap.Strings("streams", params))
	return c.conn.WriteJSON(subscribeRequest{
		Method: "SUBSCRIBE",
		Params: params,
		ID:     c.nextRequestID,
	})
}

func (c *StreamClient) streamNames() []string {
	params := make([]string, 0, len(c.subscriptions))
	for s := range c.subscriptions {
		params = append(params, s+"@aggTrade")
	}
	return params
}

// handleMessages reads from the connection until it fails, then hands off
// to the reconnect loop.
func (c *StreamClient) handleMessages(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.isConnected = false
		c.mu.Unlock()
		c.reconnect()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error("websocket read error", zap.Error(err))
				}
				return
			}
			c.processMessage(raw)
		}
	}
}

// processMessage unwraps combined-stream envelopes and dispatches ticks.
func (c *StreamClient) processMessage(raw []byte) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}

	var msg aggTradeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Debug("failed to parse stream message", zap.Error(err))
		return
	}
	if msg.EventType != "aggTrade" {
		return
	}

	tick := models.Tick{
		Symbol:       strings.ToLower(msg.Symbol),
		Price:        msg.Price,
		Size:         msg.Quantity,
		Timestamp:    time.UnixMilli(msg.TradeTimeMs).UTC(),
		TradeID:      msg.AggTradeID,
		IsBuyerMaker: msg.IsBuyerMaker,
	}
	if err := c.validate(tick); err != nil {
		c.logger.Debug("dropping invalid tick",
			zap.String("symbol", tick.Symbol),
			zap.Error(err))
		return
	}

	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	for _, h := range handlers {
		h(tick)
	}
}

// validate rejects malformed or stale ticks before they reach the buffers.
func (c *StreamClient) validate(tick models.Tick) error {
	if tick.Symbol == "" {
		return fmt.Errorf("missing symbol")
	}
	if !tick.Price.IsPositive() {
		return fmt.Errorf("non-positive price %s", tick.Price)
	}
	if !tick.Size.IsPositive() {
		return fmt.Errorf("non-positive size %s", tick.Size)
	}
	if age := time.Since(tick.Timestamp); age > c.cfg.MaxTickAge {
		return fmt.Errorf("tick is %s old", age)
	}
	return nil
}

// reconnect retries the connection with exponential backoff, capped by the
// configured maximum delay. MaxReconnects of zero retries forever.
func (c *StreamClient) reconnect() {
	backoff := c.cfg.ReconnectDelay
	if backoff <= 0 {
		backoff = time.Second
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
			c.mu.RLock()
			attempts := c.connectionAttempts
			c.mu.RUnlock()
			if c.cfg.MaxReconnects > 0 && attempts >= c.cfg.MaxReconnects {
				c.logger.Error("max reconnect attempts reached, giving up",
					zap.Int("attempts", attempts))
				return
			}

			c.logger.Info("attempting to reconnect",
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempts+1))

			if err := c.Connect(); err != nil {
				c.logger.Error("reconnect failed", zap.Error(err))
				backoff *= 2
				if backoff > c.cfg.MaxReconnectDelay {
					backoff = c.cfg.MaxReconnectDelay
				}
				continue
			}
			c.logger.Info("reconnected successfully")
			return
		}
	}
}

// Close shuts down the stream client.
func (c *StreamClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
			c.logger.Debug("error sending close message", zap.Error(err))
		}
		closeErr := c.conn.Close()
		c.conn = nil
		c.isConnected = false
		return closeErr
	}
	return nil
}

// IsConnected reports connection status.
func (c *StreamClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}
