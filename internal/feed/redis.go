package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "chat:changes:"

// Redis publishes change notifications on one pub/sub channel per topic.
type Redis struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewRedis(rdb *redis.Client, logger zerolog.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger.With().Str("component", "feed.redis").Logger()}
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	if err := r.rdb.Publish(ctx, redisChannelPrefix+topic, topic).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so no
// notification published after Subscribe returns is missed.
func (r *Redis) Subscribe(topic string, fn func()) (func(), error) {
	ctx := context.Background()
	ps := r.rdb.Subscribe(ctx, redisChannelPrefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ps.Channel() {
			fn()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				r.logger.Warn().Err(err).Str("topic", topic).Msg("closing subscription")
			}
			<-done
		})
	}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
