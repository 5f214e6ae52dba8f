package changes

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	feed := NewRedisFeed(client, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), Event{Op: OpCreate, DocumentID: "abc"}))
	select {
	case _, ok := <-ch:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("expected notification from redis feed")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

// fakeKafka is an in-memory reader/writer pair.
type fakeKafka struct {
	mu      sync.Mutex
	written []kafka.Message
	msgs    chan kafka.Message
	readErr error
	closed  bool
}

func newFakeKafka() *fakeKafka { return &fakeKafka{msgs: make(chan kafka.Message, 8)} }

func (f *fakeKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	rerr := f.readErr
	f.readErr = nil
	f.mu.Unlock()
	if rerr != nil {
		return kafka.Message{}, rerr
	}
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-f.msgs:
		return m, nil
	}
}

func (f *fakeKafka) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, msgs...)
	for _, m := range msgs {
		f.msgs <- m
	}
	return nil
}

func (f *fakeKafka) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaFeed_PublishEncodesEvent(t *testing.T) {
	fk := newFakeKafka()
	feed := NewKafkaFeedWith(fk, fk)

	require.NoError(t, feed.Publish(context.Background(), Event{Op: OpUpdate, DocumentID: "abc"}))
	require.Len(t, fk.written, 1)
	require.Equal(t, "abc", string(fk.written[0].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(fk.written[0].Value, &ev))
	require.Equal(t, OpUpdate, ev.Op)
	require.Equal(t, "abc", ev.DocumentID)
	require.False(t, ev.At.IsZero(), "publish stamps the event time")
}

func TestKafkaFeed_SubscribeSignalsAndRecovers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fk := newFakeKafka()
	fk.readErr = errors.New("broker unavailable")
	feed := NewKafkaFeedWith(fk, fk)
	feed.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), Event{Op: OpCreate, DocumentID: "x"}))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected notification after transient read error")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Close())
	require.True(t, fk.closed)
}
