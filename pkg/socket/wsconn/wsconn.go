// Package wsconn wraps a gorilla websocket with buffered, non-blocking sends,
// deadlines and ping keepalive.
package wsconn

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quka-ai/livetable/pkg/errors"
	"github.com/quka-ai/livetable/pkg/i18n"
	"github.com/quka-ai/livetable/pkg/safe"
)

var (
	ErrClosed     = stderrors.New("connection closed")
	ErrSlowReader = stderrors.New("send buffer full")
)

type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

func (o *Options) applyDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 1 << 20
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// pong 超时为两个 ping 周期
func (o Options) readTimeout() time.Duration {
	return o.PingInterval * 2
}

type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	opts   Options

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func New(ws *websocket.Conn, userID string, opts Options) *Conn {
	opts.applyDefaults()
	return &Conn{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		opts:   opts,
		send:   make(chan []byte, opts.SendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) UserID() string {
	return c.userID
}

func transportError(trace string, err error) error {
	return errors.New(trace, i18n.ERROR_TRANSPORT, err).Code(errors.StatusTransport)
}

// Send queues raw for delivery. A full buffer closes the connection, a reader
// that cannot keep up has to rejoin and take a fresh snapshot.
func (c *Conn) Send(raw []byte) error {
	select {
	case <-c.closed:
		return transportError("wsconn.Send", ErrClosed)
	default:
	}

	select {
	case c.send <- raw:
		return nil
	case <-c.closed:
		return transportError("wsconn.Send", ErrClosed)
	default:
		slog.Warn("websocket send buffer full, closing", slog.String("conn", c.id), slog.String("user", c.userID))
		c.Close()
		return transportError("wsconn.Send", ErrSlowReader)
	}
}

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Run pumps frames until the peer goes away, ctx ends or Close is called.
// onMessage runs on the read goroutine, onPong after every pong frame.
func (c *Conn) Run(ctx context.Context, onMessage func(raw []byte), onPong func()) error {
	defer c.Close()

	safe.Go("wsconn.write", func() {
		c.writePump(ctx)
	})

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.readTimeout()))
	c.ws.SetPongHandler(func(string) error {
		if onPong != nil {
			onPong()
		}
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.readTimeout()))
	})

	for {
		messageType, raw, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return transportError("wsconn.Run", err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.readTimeout()))

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		onMessage(raw)
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(c.opts.WriteTimeout))
			return
		case <-c.closed:
			return
		case raw := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				slog.Debug("websocket write failed", slog.String("conn", c.id), slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
