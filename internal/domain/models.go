package domain

import (
	"sort"
	"strings"
	"time"
)

// MessageType is the kind of payload a message carries.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageDocument MessageType = "document"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageDocument:
		return true
	}
	return false
}

// MessageStatus is the delivery acknowledgement stage of a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses along the delivery lifecycle. Unknown statuses rank 0.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Valid reports whether s is a known lifecycle stage.
func (s MessageStatus) Valid() bool {
	return s.Rank() > 0
}

// Next returns the stage following s. Read is terminal.
func (s MessageStatus) Next() (MessageStatus, bool) {
	switch s {
	case StatusSent:
		return StatusDelivered, true
	case StatusDelivered:
		return StatusRead, true
	}
	return "", false
}

// Message is a single entry of a conversation's message log.
// Everything except Status is immutable once the store has accepted it.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Type           MessageType   `json:"type"`
	Text           string        `json:"text"`
	MediaURL       string        `json:"media_url,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Seq            int64         `json:"seq"`
	Status         MessageStatus `json:"status"`
}

// HasContent reports whether the message carries text or media.
func (m *Message) HasContent() bool {
	return strings.TrimSpace(m.Text) != "" || strings.TrimSpace(m.MediaURL) != ""
}

// Clone returns a shallow copy so store internals never leak to subscribers.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// SortMessages orders messages by timestamp, then sequence number, then id.
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
}

// PresenceStatus is a user's coarse online state.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceRecord is the per-user presence singleton. LastSeen is assigned by
// the store at write time.
type PresenceRecord struct {
	UserID   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen *time.Time     `json:"last_seen,omitempty"`
}

// Profile is the public account document of a user.
type Profile struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
