package changes

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "places:changed"

// RedisFeed publishes and subscribes to change events over Redis pub/sub.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed creates a feed on the given channel. Channel may be empty.
func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisFeed{client: client, channel: channel}
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", f.channel, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ps := f.client.Subscribe(ctx, f.channel)
	// wait for the subscription confirmation so no publish after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", f.channel, err)
	}
	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				logger.Debugf("changes: redis event on %s: %s", msg.Channel, msg.Payload)
				signal(out)
			}
		}
	}()
	return out, nil
}
