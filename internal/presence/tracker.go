// Package presence keeps each user's online/offline record in step with their
// auth state and lets a conversation follow its peer's record.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
)

type Tracker struct {
	repo         domain.PresenceRepository
	feed         domain.ChangeFeed
	identity     domain.IdentityProvider
	logger       zerolog.Logger
	writeTimeout time.Duration

	mu     sync.Mutex
	tracks map[string]int
}

func NewTracker(repo domain.PresenceRepository, f domain.ChangeFeed, identity domain.IdentityProvider, logger zerolog.Logger, writeTimeout time.Duration) *Tracker {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Tracker{
		repo:         repo,
		feed:         f,
		identity:     identity,
		logger:       logger.With().Str("component", "presence").Logger(),
		writeTimeout: writeTimeout,
		tracks:       make(map[string]int),
	}
}

// SetOnline records the user as online. Failures are logged and dropped.
func (t *Tracker) SetOnline(ctx context.Context, userID string) {
	t.set(ctx, userID, domain.PresenceOnline)
}

// SetOffline records the user as offline. Failures are logged and dropped.
func (t *Tracker) SetOffline(ctx context.Context, userID string) {
	t.set(ctx, userID, domain.PresenceOffline)
}

func (t *Tracker) set(ctx context.Context, userID string, status domain.PresenceStatus) {
	ctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()

	if err := t.repo.SetPresence(ctx, userID, status); err != nil {
		t.logger.Error().Err(err).Str("user_id", userID).Str("status", string(status)).Msg("failed to write presence")
		return
	}
	if err := t.feed.Publish(ctx, domain.PresenceTopic(userID)); err != nil {
		t.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to publish presence change")
	}
}

// ObserveAuthState forwards the user's auth transitions. The identity provider
// reports the current state right away.
func (t *Tracker) ObserveAuthState(userID string, onSignedIn, onSignedOut func()) func() {
	return t.identity.OnAuthStateChanged(userID, func(signedIn bool) {
		if signedIn {
			onSignedIn()
		} else {
			onSignedOut()
		}
	})
}

// Track mirrors the user's auth state into their presence record until stop
// is called. A user may be tracked several times at once (one per open
// conversation). Stopping the last one always leaves the record offline, even
// when a sign-out has already been written; stopping any other writes nothing.
func (t *Tracker) Track(userID string) (stop func(ctx context.Context)) {
	t.mu.Lock()
	t.tracks[userID]++
	t.mu.Unlock()

	unsubscribe := t.ObserveAuthState(userID,
		func() { t.SetOnline(context.Background(), userID) },
		func() { t.SetOffline(context.Background(), userID) },
	)

	var once sync.Once
	return func(ctx context.Context) {
		once.Do(func() {
			unsubscribe()
			if t.release(userID) > 0 {
				return
			}
			t.SetOffline(ctx, userID)
		})
	}
}

// release drops one track of userID and returns how many remain.
func (t *Tracker) release(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks[userID]--
	n := t.tracks[userID]
	if n <= 0 {
		delete(t.tracks, userID)
	}
	return n
}

// Watch delivers the user's current record, then the record after every
// change. The record is nil while the user has none. Read failures are logged
// and skipped.
func (t *Tracker) Watch(userID string, fn func(*domain.PresenceRecord)) (unsubscribe func(), err error) {
	return feed.Follow(t.feed, domain.PresenceTopic(userID), func(ctx context.Context) {
		rec, err := t.repo.GetPresence(ctx, userID)
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Error().Err(err).Str("user_id", userID).Msg("failed to read presence")
			}
			return
		}
		fn(rec)
	})
}

// Get reads the user's record once; nil when there is none.
func (t *Tracker) Get(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	return t.repo.GetPresence(ctx, userID)
}
