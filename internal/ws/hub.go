package ws

import (
	"sync"
)

// Hub tracks the open conversation sessions of every user.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register adds a session for its user.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[s.userID] == nil {
		h.sessions[s.userID] = make(map[*Session]struct{})
	}
	h.sessions[s.userID][s] = struct{}{}
}

// Unregister removes a session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.sessions[s.userID]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.sessions, s.userID)
		}
	}
}

// Find returns one live session of userID talking to peerID, or nil.
func (h *Hub) Find(userID, peerID string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions[userID] {
		if s.peerID == peerID {
			return s
		}
	}
	return nil
}

// CloseUser closes every session of userID. The sessions unregister
// themselves as their connections wind down.
func (h *Hub) CloseUser(userID string) int {
	h.mu.RLock()
	victims := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		victims = append(victims, s)
	}
	h.mu.RUnlock()

	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}

// Count reports the number of open sessions of userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// CloseAll closes every open session.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var victims []*Session
	for _, sessions := range h.sessions {
		for s := range sessions {
			victims = append(victims, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range victims {
		s.Close()
	}
}
