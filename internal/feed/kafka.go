package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Kafka writes every notification to one topic, keyed by change topic. Each
// process reads the whole topic through its own consumer group and dispatches
// into a Local table, so every process sees every change.
type Kafka struct {
	writer *kafka.Writer
	reader *kafka.Reader
	local  *Local
	cancel context.CancelFunc
	done   chan struct{}
	logger zerolog.Logger
}

func NewKafka(brokers []string, topic string, logger zerolog.Logger) *Kafka {
	logger = logger.With().Str("component", "feed.kafka").Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "chat-feed-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     250 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	k := &Kafka{
		writer: writer,
		reader: reader,
		local:  NewLocal(),
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger,
	}
	go k.consume(ctx)
	return k
}

func (k *Kafka) consume(ctx context.Context) {
	defer close(k.done)
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			k.logger.Error().Err(err).Msg("reading change feed, retrying in 1s")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		k.local.Notify(string(m.Key))
	}
}

func (k *Kafka) Publish(ctx context.Context, topic string) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(topic),
		Value: []byte(topic),
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write change %s: %w", topic, err)
	}
	return nil
}

func (k *Kafka) Subscribe(topic string, fn func()) (func(), error) {
	return k.local.Subscribe(topic, fn)
}

func (k *Kafka) Close() error {
	k.cancel()
	<-k.done
	return errors.Join(k.reader.Close(), k.writer.Close())
}
