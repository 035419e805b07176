package domain

import (
	"context"
	"io"
)

// MessageLog is the ordered, per-conversation message collection of the
// document store.
type MessageLog interface {
	// AppendMessage stores m at the end of its conversation's log. The store
	// assigns ID, Timestamp and Seq and writes them back into m.
	AppendMessage(ctx context.Context, m *Message) error
	// ListMessages returns the conversation ordered by Timestamp, then Seq.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	// UpdateMessageStatus sets the status field to `to` only while it still
	// equals `from`; an empty `from` writes unconditionally. ErrNotFound when
	// the message does not exist, ErrStatusChanged when it holds another status.
	UpdateMessageStatus(ctx context.Context, conversationID, messageID string, from, to MessageStatus) error
}

// PresenceRepository stores one presence record per user.
type PresenceRepository interface {
	// SetPresence overwrites the user's record; LastSeen is the store's clock.
	SetPresence(ctx context.Context, userID string, status PresenceStatus) error
	// GetPresence returns nil, nil when the user has no record yet.
	GetPresence(ctx context.Context, userID string) (*PresenceRecord, error)
}

// ProfileRepository stores account profiles.
type ProfileRepository interface {
	PutProfile(ctx context.Context, p *Profile) error
	// GetProfile returns nil, nil when the profile does not exist.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Backend is a complete document store backend.
type Backend interface {
	MessageLog
	PresenceRepository
	ProfileRepository
}

// ChangeFeed carries "something changed" notifications for a topic. Readers
// re-query the backend on every notification.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(topic string, fn func()) (cancel func(), err error)
}

// BlobStore keeps attachment bytes and hands back a URL clients can fetch.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (url string, err error)
}

// IdentityProvider reports auth-state transitions for a user. Implementations
// invoke fn once with the current state when the observer registers.
type IdentityProvider interface {
	OnAuthStateChanged(userID string, fn func(signedIn bool)) (unsubscribe func())
}

// MessagesTopic is the change-feed topic of a conversation's message log.
func MessagesTopic(conversationID string) string {
	return "messages/" + conversationID
}

// PresenceTopic is the change-feed topic of a user's presence record.
func PresenceTopic(userID string) string {
	return "presence/" + userID
}
