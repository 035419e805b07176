package service

import (
	"context"

	"github.com/IgoorDrt/ErroOps-v1/internal/convkey"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/messages"
)

// ConversationService answers one-shot questions about a user pair's
// conversation.
type ConversationService struct {
	messages *messages.Adapter
}

func NewConversationService(adapter *messages.Adapter) *ConversationService {
	return &ConversationService{messages: adapter}
}

// History returns the ordered conversation between currentUser and peerID.
func (s *ConversationService) History(ctx context.Context, currentUser, peerID string) (string, []*domain.Message, error) {
	convID, err := convkey.Derive(currentUser, peerID)
	if err != nil {
		return "", nil, err
	}
	msgs, err := s.messages.List(ctx, convID)
	if err != nil {
		return "", nil, err
	}
	return convID, msgs, nil
}

// HistoryByKey returns a conversation addressed by its key. Only the two
// participants may read it.
func (s *ConversationService) HistoryByKey(ctx context.Context, currentUser, conversationID string) ([]*domain.Message, error) {
	if !convkey.Includes(conversationID, currentUser) {
		return nil, domain.ErrNotFound
	}
	return s.messages.List(ctx, conversationID)
}
