package feed

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const natsSubjectPrefix = "chat.changes"

// NATS maps every topic onto its own core NATS subject. Topics embed user ids,
// which may contain subject separators, so the topic is base64url encoded into
// a single token.
type NATS struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// DialNATS connects to the server at url.
func DialNATS(url string, logger zerolog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("chat-change-feed"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATS(nc, logger), nil
}

func NewNATS(nc *nats.Conn, logger zerolog.Logger) *NATS {
	return &NATS{nc: nc, logger: logger.With().Str("component", "feed.nats").Logger()}
}

func natsSubject(topic string) string {
	return natsSubjectPrefix + "." + base64.RawURLEncoding.EncodeToString([]byte(topic))
}

func (n *NATS) Publish(_ context.Context, topic string) error {
	subject := natsSubject(topic)
	if err := n.nc.Publish(subject, []byte(topic)); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", subject, err)
	}
	return nil
}

func (n *NATS) Subscribe(topic string, fn func()) (func(), error) {
	subject := natsSubject(topic)
	sub, err := n.nc.Subscribe(subject, func(*nats.Msg) { fn() })
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject '%s': %w", subject, err)
	}
	// make sure the server knows about the interest before returning
	if err := n.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription '%s': %w", subject, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				n.logger.Warn().Err(err).Str("subject", subject).Msg("unsubscribe")
			}
		})
	}, nil
}

func (n *NATS) Close() error {
	return n.nc.Drain()
}
