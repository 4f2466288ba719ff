// Package broker carries table change envelopes between gateway processes.
package broker

import (
	"context"

	"github.com/quka-ai/livetable/pkg/types/protocol"
)

type Handler func(tableID string, env protocol.Envelope)

// Broker publishes an envelope to every process subscribed, the publisher included.
// Envelopes published for one table are handed to the handler in publish order.
type Broker interface {
	Publish(ctx context.Context, tableID string, env protocol.Envelope) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// Local is the single process broker, the handler runs on the publishing goroutine.
type Local struct {
	handler Handler
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Publish(ctx context.Context, tableID string, env protocol.Envelope) error {
	if l.handler != nil {
		l.handler(tableID, env)
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, handler Handler) error {
	l.handler = handler
	return nil
}

func (l *Local) Close() error {
	return nil
}
