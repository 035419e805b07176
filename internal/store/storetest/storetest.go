// Package storetest holds the behaviour every domain.Backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// Run exercises b. Every case works on fresh random identifiers so the suite
// can share one database across cases.
func Run(t *testing.T, b domain.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("AppendAssignsIdentity", func(t *testing.T) {
		conv := "c-" + uuid.NewString()
		m := &domain.Message{ConversationID: conv, SenderID: "u1", Type: domain.MessageText, Text: "hi", Status: domain.StatusSent}
		require.NoError(t, b.AppendMessage(ctx, m))

		assert.NotEmpty(t, m.ID)
		assert.NotZero(t, m.Seq)
		assert.False(t, m.Timestamp.IsZero())

		got, err := b.ListMessages(ctx, conv)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, m.ID, got[0].ID)
		assert.Equal(t, "u1", got[0].SenderID)
		assert.Equal(t, domain.MessageText, got[0].Type)
		assert.Equal(t, "hi", got[0].Text)
		assert.Equal(t, domain.StatusSent, got[0].Status)
		assert.Equal(t, conv, got[0].ConversationID)
	})

	t.Run("ListIsOrderedAndIsolated", func(t *testing.T) {
		conv := "c-" + uuid.NewString()
		other := "c-" + uuid.NewString()
		var ids []string
		for _, text := range []string{"one", "two", "three"} {
			m := &domain.Message{ConversationID: conv, SenderID: "u1", Type: domain.MessageText, Text: text, Status: domain.StatusSent}
			require.NoError(t, b.AppendMessage(ctx, m))
			ids = append(ids, m.ID)
		}
		require.NoError(t, b.AppendMessage(ctx, &domain.Message{
			ConversationID: other, SenderID: "u9", Type: domain.MessageImage, MediaURL: "http://x/y.png", Status: domain.StatusSent,
		}))

		got, err := b.ListMessages(ctx, conv)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, m := range got {
			assert.Equal(t, ids[i], m.ID)
		}
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
		}

		empty, err := b.ListMessages(ctx, "c-"+uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("UpdateStatusTouchesOnlyStatus", func(t *testing.T) {
		conv := "c-" + uuid.NewString()
		m := &domain.Message{ConversationID: conv, SenderID: "u1", Type: domain.MessageImage, MediaURL: "http://x/a.png", Status: domain.StatusSent}
		require.NoError(t, b.AppendMessage(ctx, m))

		require.NoError(t, b.UpdateMessageStatus(ctx, conv, m.ID, "", domain.StatusDelivered))

		got, err := b.ListMessages(ctx, conv)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.StatusDelivered, got[0].Status)
		assert.Equal(t, "http://x/a.png", got[0].MediaURL)
		assert.Equal(t, m.Seq, got[0].Seq)
		assert.True(t, m.Timestamp.Equal(got[0].Timestamp))
	})

	t.Run("UpdateUnknownMessage", func(t *testing.T) {
		err := b.UpdateMessageStatus(ctx, "c-"+uuid.NewString(), uuid.NewString(), "", domain.StatusRead)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = b.UpdateMessageStatus(ctx, "c-"+uuid.NewString(), uuid.NewString(), domain.StatusSent, domain.StatusDelivered)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ConditionalUpdateNeverRegresses", func(t *testing.T) {
		conv := "c-" + uuid.NewString()
		m := &domain.Message{ConversationID: conv, SenderID: "u1", Type: domain.MessageText, Text: "hi", Status: domain.StatusSent}
		require.NoError(t, b.AppendMessage(ctx, m))

		require.NoError(t, b.UpdateMessageStatus(ctx, conv, m.ID, domain.StatusSent, domain.StatusDelivered))
		require.NoError(t, b.UpdateMessageStatus(ctx, conv, m.ID, domain.StatusDelivered, domain.StatusRead))

		// a writer still holding the original snapshot
		err := b.UpdateMessageStatus(ctx, conv, m.ID, domain.StatusSent, domain.StatusDelivered)
		assert.ErrorIs(t, err, domain.ErrStatusChanged)
		err = b.UpdateMessageStatus(ctx, conv, m.ID, domain.StatusDelivered, domain.StatusRead)
		assert.ErrorIs(t, err, domain.ErrStatusChanged)

		got, err := b.ListMessages(ctx, conv)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.StatusRead, got[0].Status)
	})

	t.Run("Presence", func(t *testing.T) {
		user := "u-" + uuid.NewString()

		rec, err := b.GetPresence(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, rec)

		require.NoError(t, b.SetPresence(ctx, user, domain.PresenceOnline))
		rec, err = b.GetPresence(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.PresenceOnline, rec.Status)
		require.NotNil(t, rec.LastSeen)

		require.NoError(t, b.SetPresence(ctx, user, domain.PresenceOffline))
		rec, err = b.GetPresence(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.PresenceOffline, rec.Status)
		assert.NotNil(t, rec.LastSeen)
	})

	t.Run("Profiles", func(t *testing.T) {
		user := "u-" + uuid.NewString()

		p, err := b.GetProfile(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, p)

		require.NoError(t, b.PutProfile(ctx, &domain.Profile{UserID: user, DisplayName: "Alice", PasswordHash: "hash"}))
		p, err = b.GetProfile(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Alice", p.DisplayName)
		assert.Equal(t, "hash", p.PasswordHash)

		require.NoError(t, b.PutProfile(ctx, &domain.Profile{UserID: user, DisplayName: "Alice B", PhotoURL: "http://x/p.png", PasswordHash: "hash"}))
		p, err = b.GetProfile(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Alice B", p.DisplayName)
		assert.Equal(t, "http://x/p.png", p.PhotoURL)
	})
}
