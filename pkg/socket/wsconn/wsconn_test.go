package wsconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/livetable/pkg/errors"
)

func serve(t *testing.T, opts Options, ready chan<- *Conn, onMessage func(c *Conn, raw []byte)) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := New(ws, "u1", opts)
		ready <- conn
		_ = conn.Run(r.Context(), func(raw []byte) {
			onMessage(conn, raw)
		}, nil)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEcho(t *testing.T) {
	ready := make(chan *Conn, 1)
	srv := serve(t, Options{}, ready, func(c *Conn, raw []byte) {
		_ = c.Send(append([]byte("echo:"), raw...))
	})
	client := dial(t, srv)

	conn := <-ready
	assert.Equal(t, "u1", conn.UserID())
	assert.NotEmpty(t, conn.ID())

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hi")))
	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", string(raw))
}

func TestSendAfterClose(t *testing.T) {
	ready := make(chan *Conn, 1)
	srv := serve(t, Options{}, ready, func(*Conn, []byte) {})
	client := dial(t, srv)

	conn := <-ready
	require.NoError(t, client.Close())

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed after peer went away")
	}

	err := conn.Send([]byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestSlowReaderIsDisconnected(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ready := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// 不启动 Run，发送队列不会被消费
		ready <- New(ws, "u1", Options{SendBuffer: 1})
	}))
	defer srv.Close()
	dial(t, srv)

	conn := <-ready
	require.NoError(t, conn.Send([]byte("1")))
	err := conn.Send([]byte("2"))
	assert.ErrorIs(t, err, ErrSlowReader)

	select {
	case <-conn.Done():
	default:
		t.Fatal("slow connection should be closed")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		done <- New(ws, "u1", Options{}).Run(ctx, func([]byte) {}, nil)
	}))
	defer srv.Close()
	dial(t, srv)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
