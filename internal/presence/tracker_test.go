package presence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/memory"
)

// fakeIdentity reports a settable signed-in flag per user.
type fakeIdentity struct {
	mu       sync.Mutex
	signedIn map[string]bool
	obs      map[string]map[int]func(bool)
	next     int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{signedIn: map[string]bool{}, obs: map[string]map[int]func(bool){}}
}

func (f *fakeIdentity) OnAuthStateChanged(userID string, fn func(bool)) func() {
	f.mu.Lock()
	f.next++
	id := f.next
	if f.obs[userID] == nil {
		f.obs[userID] = map[int]func(bool){}
	}
	f.obs[userID][id] = fn
	state := f.signedIn[userID]
	f.mu.Unlock()

	fn(state)
	return func() {
		f.mu.Lock()
		delete(f.obs[userID], id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) set(userID string, signedIn bool) {
	f.mu.Lock()
	f.signedIn[userID] = signedIn
	fns := make([]func(bool), 0, len(f.obs[userID]))
	for _, fn := range f.obs[userID] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(signedIn)
	}
}

type MockPresenceRepo struct {
	mock.Mock
}

func (m *MockPresenceRepo) SetPresence(ctx context.Context, userID string, status domain.PresenceStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func (m *MockPresenceRepo) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresenceRecord), args.Error(1)
}

func status(t *testing.T, repo domain.PresenceRepository, userID string) domain.PresenceStatus {
	t.Helper()
	rec, err := repo.GetPresence(context.Background(), userID)
	require.NoError(t, err)
	if rec == nil {
		return ""
	}
	return rec.Status
}

func TestTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("FollowsAuthState", func(t *testing.T) {
		store := memory.New()
		ids := newFakeIdentity()
		ids.set("u1", true)
		tr := presence.NewTracker(store, feed.NewLocal(), ids, zerolog.Nop(), time.Second)

		stop := tr.Track("u1")
		assert.Equal(t, domain.PresenceOnline, status(t, store, "u1"))

		ids.set("u1", false)
		assert.Equal(t, domain.PresenceOffline, status(t, store, "u1"))

		ids.set("u1", true)
		assert.Equal(t, domain.PresenceOnline, status(t, store, "u1"))

		stop(ctx)
		assert.Equal(t, domain.PresenceOffline, status(t, store, "u1"))

		// no longer observed
		ids.set("u1", true)
		assert.Equal(t, domain.PresenceOffline, status(t, store, "u1"))
	})

	t.Run("StopWithoutSignOutLeavesOffline", func(t *testing.T) {
		store := memory.New()
		ids := newFakeIdentity()
		ids.set("u1", true)
		tr := presence.NewTracker(store, feed.NewLocal(), ids, zerolog.Nop(), time.Second)

		stop := tr.Track("u1")
		stop(ctx)

		rec, err := store.GetPresence(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.PresenceOffline, rec.Status)
		assert.NotNil(t, rec.LastSeen)
	})

	t.Run("StopAfterSignOutWritesAgain", func(t *testing.T) {
		repo := new(MockPresenceRepo)
		repo.On("SetPresence", mock.Anything, "u1", domain.PresenceOnline).Return(nil).Once()
		repo.On("SetPresence", mock.Anything, "u1", domain.PresenceOffline).Return(nil).Twice()

		ids := newFakeIdentity()
		ids.set("u1", true)
		tr := presence.NewTracker(repo, feed.NewLocal(), ids, zerolog.Nop(), time.Second)

		stop := tr.Track("u1")
		ids.set("u1", false)
		stop(ctx)
		stop(ctx)

		repo.AssertExpectations(t)
	})

	t.Run("OnlyLastStopWritesOffline", func(t *testing.T) {
		store := memory.New()
		ids := newFakeIdentity()
		ids.set("u1", true)
		tr := presence.NewTracker(store, feed.NewLocal(), ids, zerolog.Nop(), time.Second)

		first := tr.Track("u1")
		second := tr.Track("u1")

		first(ctx)
		first(ctx)
		assert.Equal(t, domain.PresenceOnline, status(t, store, "u1"))

		second(ctx)
		assert.Equal(t, domain.PresenceOffline, status(t, store, "u1"))

		third := tr.Track("u1")
		assert.Equal(t, domain.PresenceOnline, status(t, store, "u1"))
		third(ctx)
		assert.Equal(t, domain.PresenceOffline, status(t, store, "u1"))
	})
}

func TestSetOnlineSwallowsFailures(t *testing.T) {
	repo := new(MockPresenceRepo)
	repo.On("SetPresence", mock.Anything, "u1", domain.PresenceOnline).Return(errors.New("unavailable"))

	f := feed.NewLocal()
	published := false
	cancel, err := f.Subscribe(domain.PresenceTopic("u1"), func() { published = true })
	require.NoError(t, err)
	defer cancel()

	tr := presence.NewTracker(repo, f, newFakeIdentity(), zerolog.Nop(), time.Second)
	assert.NotPanics(t, func() { tr.SetOnline(context.Background(), "u1") })
	assert.False(t, published)
	repo.AssertExpectations(t)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	f := feed.NewLocal()
	tr := presence.NewTracker(store, f, newFakeIdentity(), zerolog.Nop(), time.Second)

	var (
		mu   sync.Mutex
		seen []*domain.PresenceRecord
	)
	unsubscribe, err := tr.Watch("u2", func(rec *domain.PresenceRecord) {
		mu.Lock()
		seen = append(seen, rec)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	last := func() (int, *domain.PresenceRecord) {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 {
			return 0, nil
		}
		return len(seen), seen[len(seen)-1]
	}

	require.Eventually(t, func() bool { n, _ := last(); return n == 1 }, time.Second, 5*time.Millisecond)
	_, rec := last()
	assert.Nil(t, rec)

	tr.SetOnline(ctx, "u2")
	require.Eventually(t, func() bool {
		_, rec := last()
		return rec != nil && rec.Status == domain.PresenceOnline
	}, time.Second, 5*time.Millisecond)

	tr.SetOffline(ctx, "u2")
	require.Eventually(t, func() bool {
		_, rec := last()
		return rec != nil && rec.Status == domain.PresenceOffline
	}, time.Second, 5*time.Millisecond)
}
