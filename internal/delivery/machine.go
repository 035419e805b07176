// Package delivery advances the peer's messages through sent, delivered and
// read as the recipient observes snapshots of a conversation.
package delivery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// StatusWriter moves one message from the status the recipient saw to the
// next one, failing with domain.ErrStatusChanged if the stored status differs.
type StatusWriter interface {
	AdvanceStatus(ctx context.Context, conversationID, messageID string, from, to domain.MessageStatus) error
}

// Transition is one status write the recipient owes.
type Transition struct {
	ConversationID string
	MessageID      string
	From           domain.MessageStatus
	To             domain.MessageStatus
}

// Plan returns the writes currentUser owes for msgs: every message from the
// peer moves one step forward. The user's own messages and read messages are
// left alone.
func Plan(currentUser string, msgs []*domain.Message) []Transition {
	var out []Transition
	for _, m := range msgs {
		if m.SenderID == currentUser {
			continue
		}
		switch m.Status {
		case domain.StatusSent, domain.StatusDelivered:
			next, _ := m.Status.Next()
			out = append(out, Transition{
				ConversationID: m.ConversationID,
				MessageID:      m.ID,
				From:           m.Status,
				To:             next,
			})
		}
	}
	return out
}

// Result counts the writes one Process call started, how many failed, and how
// many were skipped because another writer had already moved the message.
type Result struct {
	Issued int
	Failed int
	Stale  int
}

// Machine issues the transitions of Plan for one recipient. It remembers
// writes already issued, so feeding it the same snapshot again starts nothing
// new. A failed write is forgotten and planned again on a later snapshot.
type Machine struct {
	writer      StatusWriter
	currentUser string
	workers     int
	logger      zerolog.Logger

	mu     sync.Mutex
	issued map[string]domain.MessageStatus
}

func NewMachine(writer StatusWriter, currentUser string, workers int, logger zerolog.Logger) *Machine {
	if workers <= 0 {
		workers = 1
	}
	return &Machine{
		writer:      writer,
		currentUser: currentUser,
		workers:     workers,
		logger:      logger.With().Str("component", "delivery").Str("user_id", currentUser).Logger(),
		issued:      make(map[string]domain.MessageStatus),
	}
}

// Process plans msgs and runs the new writes concurrently, bounded by the
// worker count. It returns once every write has finished. One failed write
// does not stop the others.
func (m *Machine) Process(ctx context.Context, msgs []*domain.Message) Result {
	todo := m.claim(msgs)
	if len(todo) == 0 {
		return Result{}
	}

	var failed, stale atomic.Int32
	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, tr := range todo {
		tr := tr
		g.Go(func() error {
			err := m.writer.AdvanceStatus(ctx, tr.ConversationID, tr.MessageID, tr.From, tr.To)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrStatusChanged):
				stale.Add(1)
				m.forget(tr)
				m.logger.Debug().
					Str("message_id", tr.MessageID).
					Str("status", string(tr.To)).
					Msg("message already moved by another writer")
			default:
				failed.Add(1)
				m.forget(tr)
				m.logger.Error().Err(err).
					Str("message_id", tr.MessageID).
					Str("status", string(tr.To)).
					Msg("failed to advance message status")
			}
			return nil
		})
	}
	_ = g.Wait()

	return Result{Issued: len(todo), Failed: int(failed.Load()), Stale: int(stale.Load())}
}

// claim drops entries the snapshot has caught up with and marks the new
// transitions as issued.
func (m *Machine) claim(msgs []*domain.Message) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range msgs {
		if st, ok := m.issued[msg.ID]; ok && msg.Status.Rank() >= st.Rank() {
			delete(m.issued, msg.ID)
		}
	}

	var todo []Transition
	for _, tr := range Plan(m.currentUser, msgs) {
		if m.issued[tr.MessageID].Rank() >= tr.To.Rank() {
			continue
		}
		m.issued[tr.MessageID] = tr.To
		todo = append(todo, tr)
	}
	return todo
}

func (m *Machine) forget(tr Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issued[tr.MessageID] == tr.To {
		delete(m.issued, tr.MessageID)
	}
}

// Pending reports how many issued writes the snapshots have not yet confirmed.
func (m *Machine) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issued)
}
