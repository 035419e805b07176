// Package messages reads and writes a conversation's message log and turns
// change notifications into ordered snapshots.
package messages

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
)

type Adapter struct {
	log    domain.MessageLog
	feed   domain.ChangeFeed
	logger zerolog.Logger
}

func NewAdapter(log domain.MessageLog, f domain.ChangeFeed, logger zerolog.Logger) *Adapter {
	return &Adapter{
		log:    log,
		feed:   f,
		logger: logger.With().Str("component", "messages").Logger(),
	}
}

// Append validates m, stores it with status sent and notifies subscribers of
// the conversation. The store fills in ID, Timestamp and Seq.
func (a *Adapter) Append(ctx context.Context, conversationID string, m *domain.Message) error {
	if conversationID == "" {
		return domain.ErrMissingParticipant
	}
	if !m.Type.Valid() {
		return domain.ErrInvalidMessageType
	}
	if !m.HasContent() {
		return domain.ErrEmptyContent
	}

	m.ConversationID = conversationID
	m.Status = domain.StatusSent
	if err := a.log.AppendMessage(ctx, m); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	a.publish(ctx, conversationID)
	return nil
}

// SetStatus overwrites the status of one message. Ordering of statuses is the
// caller's concern.
func (a *Adapter) SetStatus(ctx context.Context, conversationID, messageID string, status domain.MessageStatus) error {
	return a.AdvanceStatus(ctx, conversationID, messageID, "", status)
}

// AdvanceStatus moves one message from `from` to `to`. When another writer got
// there first the store is left alone and domain.ErrStatusChanged is returned.
func (a *Adapter) AdvanceStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	if !to.Valid() || (from != "" && !from.Valid()) {
		return domain.ErrInvalidStatus
	}
	if err := a.log.UpdateMessageStatus(ctx, conversationID, messageID, from, to); err != nil {
		return fmt.Errorf("set status of %s: %w", messageID, err)
	}
	a.publish(ctx, conversationID)
	return nil
}

// List reads the conversation once, ordered.
func (a *Adapter) List(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	msgs, err := a.log.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

// Subscribe delivers the full ordered conversation right away and again after
// every change. Deliveries never overlap. unsubscribe is idempotent, returns
// once no further delivery can happen and must not be called from fn.
func (a *Adapter) Subscribe(conversationID string, fn func([]*domain.Message)) (unsubscribe func(), err error) {
	if conversationID == "" {
		return nil, domain.ErrMissingParticipant
	}
	return feed.Follow(a.feed, domain.MessagesTopic(conversationID), func(ctx context.Context) {
		msgs, err := a.List(ctx, conversationID)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to read snapshot")
			}
			return
		}
		fn(msgs)
	})
}

func (a *Adapter) publish(ctx context.Context, conversationID string) {
	if err := a.feed.Publish(ctx, domain.MessagesTopic(conversationID)); err != nil {
		a.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to publish change")
	}
}
