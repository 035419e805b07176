package service

import (
	"sync"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// Sessions is the in-process identity provider: it tracks which users are
// signed in and tells observers about every transition.
type Sessions struct {
	mu     sync.Mutex
	nextID uint64
	users  map[string]*authState
}

type authState struct {
	// mu orders notifications for one user
	mu        sync.Mutex
	signedIn  bool
	observers map[uint64]func(bool)
}

var _ domain.IdentityProvider = (*Sessions)(nil)

func NewSessions() *Sessions {
	return &Sessions{users: make(map[string]*authState)}
}

func (s *Sessions) state(userID string) *authState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok {
		st = &authState{observers: make(map[uint64]func(bool))}
		s.users[userID] = st
	}
	return st
}

func (s *Sessions) SignIn(userID string)  { s.set(userID, true) }
func (s *Sessions) SignOut(userID string) { s.set(userID, false) }

func (s *Sessions) set(userID string, signedIn bool) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.signedIn == signedIn {
		return
	}
	st.signedIn = signedIn
	for _, fn := range st.observers {
		fn(signedIn)
	}
}

func (s *Sessions) SignedIn(userID string) bool {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.signedIn
}

// OnAuthStateChanged registers fn for userID and calls it with the current
// state before returning. fn runs with the user's state locked, so it must not
// sign the user in or out, nor unsubscribe itself.
func (s *Sessions) OnAuthStateChanged(userID string, fn func(signedIn bool)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	st := s.state(userID)
	st.mu.Lock()
	st.observers[id] = fn
	fn(st.signedIn)
	st.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.observers, id)
			st.mu.Unlock()
		})
	}
}
