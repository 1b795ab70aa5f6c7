package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"impact_chat/internal/chat/domain"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 512 * 1024
)

// ErrNotConnected emit while the socket is down
var ErrNotConnected = errors.New("transport not connected")

// WSTransport gorilla websocket push channel speaking {"event","data"} frames
type WSTransport struct {
	url       string
	reconnect time.Duration
	token     func() string
	dialer    *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport create WSTransport; reconnect <= 0 disables reconnecting.
// token is read on every dial so a later login is picked up.
func NewWSTransport(wsURL string, reconnect time.Duration, token func() string) *WSTransport {
	if token == nil {
		token = func() string { return "" }
	}
	return &WSTransport{
		url:       wsURL,
		reconnect: reconnect,
		token:     token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Emit write one event, ErrNotConnected while down
func (t *WSTransport) Emit(name domain.EventName, data any) error {
	env, err := domain.NewEnvelope(name, data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, raw)
}

// Run connect and pump frames into out until ctx is done
func (t *WSTransport) Run(ctx context.Context, out chan<- domain.Envelope) error {
	for {
		err := t.serve(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if t.reconnect <= 0 {
			return err
		}

		metrics.Reconnects.Inc()
		logger.Log.Info("transport reconnecting", zap.Duration("in", t.reconnect), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.reconnect):
		}
	}
}

func (t *WSTransport) dialURL() (string, http.Header, error) {
	header := http.Header{}
	tok := t.token()
	if tok == "" {
		return t.url, header, nil
	}

	u, err := url.Parse(t.url)
	if err != nil {
		return "", nil, err
	}
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	header.Set("Authorization", "Bearer "+tok)
	return u.String(), header, nil
}

func (t *WSTransport) serve(ctx context.Context, out chan<- domain.Envelope) error {
	target, header, err := t.dialURL()
	if err != nil {
		return fmt.Errorf("bad websocket url: %w", err)
	}

	conn, _, err := t.dialer.DialContext(ctx, target, header)
	if err != nil {
		if ctx.Err() == nil {
			push(ctx, out, infoEnvelope(domain.EventConnectError, err.Error()))
		}
		return err
	}

	t.setConn(conn)
	defer func() {
		t.setConn(nil)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	push(ctx, out, domain.Envelope{Event: domain.EventConnect})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					logger.Log.Warn("ping failed", zap.Error(err))
					conn.Close()
					return
				}
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
				return
			case <-stop:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			push(ctx, out, infoEnvelope(domain.EventDisconnect, err.Error()))
			return err
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Log.Error("bad frame", zap.Error(err))
			continue
		}
		push(ctx, out, env)
	}
}

func (t *WSTransport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn = conn
}

func push(ctx context.Context, out chan<- domain.Envelope, env domain.Envelope) {
	select {
	case out <- env:
	case <-ctx.Done():
	}
}

func infoEnvelope(name domain.EventName, msg string) domain.Envelope {
	env, _ := domain.NewEnvelope(name, domain.InfoPayload{Message: msg})
	return env
}
