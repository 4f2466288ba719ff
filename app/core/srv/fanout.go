package srv

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/quka-ai/livetable/pkg/socket/broker"
	"github.com/quka-ai/livetable/pkg/socket/hub"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

// Fanout joins the local subscriber registry with the cross-process broker.
// Every change goes through the broker, each process delivers it to its own members.
type Fanout struct {
	hub      *hub.Hub
	broker   broker.Broker
	echo     bool
	observer func(op protocol.Operation, delivered int)
}

func NewFanout(b broker.Broker, echoToOriginator bool) *Fanout {
	return &Fanout{
		hub:    hub.New(),
		broker: b,
		echo:   echoToOriginator,
	}
}

func ApplyFanout(b broker.Broker, echoToOriginator bool) ApplyFunc {
	return func(s *Srv) {
		s.fanout = NewFanout(b, echoToOriginator)
	}
}

// Observe registers a callback invoked after each local delivery.
func (f *Fanout) Observe(fn func(op protocol.Operation, delivered int)) {
	f.observer = fn
}

func (f *Fanout) Start(ctx context.Context) error {
	return f.broker.Subscribe(ctx, f.dispatch)
}

func (f *Fanout) Close() error {
	return f.broker.Close()
}

func (f *Fanout) Join(tableID string, conn hub.Conn) {
	f.hub.Subscribe(tableID, conn)
}

func (f *Fanout) Leave(tableID, connID string) {
	f.hub.Unsubscribe(tableID, connID)
}

func (f *Fanout) Members(tableID string) []hub.Conn {
	return f.hub.Members(tableID)
}

// Publish broadcasts msg to the table group, origin is the producing connection id
// or empty for changes made through the http api.
func (f *Fanout) Publish(ctx context.Context, origin string, msg protocol.Message) error {
	return f.broker.Publish(ctx, msg.TableID, protocol.Envelope{
		Origin:  origin,
		Message: msg,
	})
}

func (f *Fanout) dispatch(tableID string, env protocol.Envelope) {
	raw, err := json.Marshal(env.Message)
	if err != nil {
		slog.Error("failed to marshal broadcast message", slog.String("component", "fanout"), slog.String("error", err.Error()))
		return
	}

	except := env.Origin
	if f.echo {
		except = ""
	}

	delivered := f.hub.Deliver(tableID, raw, except, func(conn hub.Conn, err error) {
		slog.Debug("broadcast not delivered", slog.String("component", "fanout"),
			slog.String("conn", conn.ID()), slog.String("error", err.Error()))
	})

	if env.Message.Type == protocol.OP_TABLE_DELETE {
		f.hub.Drop(tableID)
	}

	if f.observer != nil {
		f.observer(env.Message.Type, delivered)
	}
}
