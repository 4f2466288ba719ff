package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/quka-ai/livetable/pkg/safe"
	"github.com/quka-ai/livetable/pkg/types"
	"github.com/quka-ai/livetable/pkg/types/protocol"
)

// Redis fans envelopes out through redis pub/sub, one channel per table.
type Redis struct {
	client redis.UniversalClient
	prefix string
	pubsub *redis.PubSub
}

func NewRedis(client redis.UniversalClient, keyPrefix string) *Redis {
	return &Redis{
		client: client,
		prefix: keyPrefix + types.FANOUT_TOPIC_PREFIX,
	}
}

func (r *Redis) channel(tableID string) string {
	return r.prefix + tableID
}

func (r *Redis) Publish(ctx context.Context, tableID string, env protocol.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel(tableID), raw).Err()
}

// Subscribe blocks until the pattern subscription is confirmed, then receives in background.
func (r *Redis) Subscribe(ctx context.Context, handler Handler) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe fan-out channel, %w", err)
	}
	r.pubsub = pubsub

	safe.Go("broker.redis", func() {
		for msg := range pubsub.Channel() {
			var env protocol.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Error("failed to decode fan-out envelope", slog.String("channel", msg.Channel), slog.String("error", err.Error()))
				continue
			}
			tableID := strings.TrimPrefix(msg.Channel, r.prefix)
			safe.RunWithLog(func() {
				handler(tableID, env)
			}, "broker.redis.handler")
		}
	})
	return nil
}

func (r *Redis) Close() error {
	if r.pubsub == nil {
		return nil
	}
	return r.pubsub.Close()
}
