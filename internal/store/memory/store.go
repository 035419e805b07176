// Package memory is an in-process document store backend. It is the default
// for tests and single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	logs     map[string][]*domain.Message
	presence map[string]domain.PresenceRecord
	profiles map[string]domain.Profile
}

var _ domain.Backend = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now as the store's write clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:      now,
		logs:     make(map[string][]*domain.Message),
		presence: make(map[string]domain.PresenceRecord),
		profiles: make(map[string]domain.Profile),
	}
}

func (s *Store) AppendMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	m.ID = uuid.NewString()
	m.Timestamp = s.now().UTC()
	m.Seq = s.seq
	s.logs[m.ConversationID] = append(s.logs[m.ConversationID], m.Clone())
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[conversationID]
	res := make([]*domain.Message, 0, len(log))
	for _, m := range log {
		res = append(res, m.Clone())
	}
	domain.SortMessages(res)
	return res, nil
}

func (s *Store) UpdateMessageStatus(_ context.Context, conversationID, messageID string, from, to domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.logs[conversationID] {
		if m.ID == messageID {
			if from != "" && m.Status != from {
				return domain.ErrStatusChanged
			}
			m.Status = to
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) SetPresence(_ context.Context, userID string, status domain.PresenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.presence[userID] = domain.PresenceRecord{UserID: userID, Status: status, LastSeen: &now}
	return nil
}

func (s *Store) GetPresence(_ context.Context, userID string) (*domain.PresenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.presence[userID]
	if !ok {
		return nil, nil
	}
	if rec.LastSeen != nil {
		ls := *rec.LastSeen
		rec.LastSeen = &ls
	}
	return &rec, nil
}

func (s *Store) PutProfile(_ context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
