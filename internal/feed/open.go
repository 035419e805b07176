package feed

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// Open builds the change feed selected by cfg.FeedDriver. The returned close
// function releases broker connections.
func Open(cfg *config.Config, logger zerolog.Logger) (domain.ChangeFeed, func() error, error) {
	switch cfg.FeedDriver {
	case "local":
		return NewLocal(), func() error { return nil }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		f := NewRedis(rdb, logger)
		return f, f.Close, nil
	case "nats":
		f, err := DialNATS(cfg.NatsURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	case "kafka":
		f := NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		return f, f.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown feed driver %q", cfg.FeedDriver)
}
