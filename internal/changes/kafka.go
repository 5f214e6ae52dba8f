package changes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
)

// KafkaReader is the subset of *kafka.Reader the feed uses.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaWriter is the subset of *kafka.Writer the feed uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaFeed publishes change events to a topic and turns every message read
// from it into a notification.
type KafkaFeed struct {
	reader  KafkaReader
	writer  KafkaWriter
	backoff time.Duration
}

// NewKafkaFeed wires a reader and writer for topic on brokers. Each service
// instance needs its own groupID so every instance sees every event.
func NewKafkaFeed(brokers []string, topic, groupID string) *KafkaFeed {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
	})
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaFeedWith(r, w)
}

// NewKafkaFeedWith builds a feed on existing reader/writer values.
func NewKafkaFeedWith(r KafkaReader, w KafkaWriter) *KafkaFeed {
	return &KafkaFeed{reader: r, writer: w, backoff: time.Second}
}

func (f *KafkaFeed) Publish(ctx context.Context, ev Event) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(ev.DocumentID), Value: b}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (f *KafkaFeed) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			msg, err := f.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				logger.Warnf("changes: kafka read failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.backoff):
				}
				continue
			}
			logger.Debugf("changes: kafka event topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
			signal(out)
		}
	}()
	return out, nil
}

// Close releases the reader and writer.
func (f *KafkaFeed) Close() error {
	return errors.Join(f.reader.Close(), f.writer.Close())
}
