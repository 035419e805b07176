package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/memory"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}

func TestEqualTimestampsFallBackToSeq(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := memory.NewWithClock(func() time.Time { return fixed })

	var ids []string
	for i := 0; i < 5; i++ {
		m := &domain.Message{ConversationID: "u1_u2", SenderID: "u1", Type: domain.MessageText, Text: "x", Status: domain.StatusSent}
		require.NoError(t, s.AppendMessage(ctx, m))
		ids = append(ids, m.ID)
	}

	got, err := s.ListMessages(ctx, "u1_u2")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, ids[i], m.ID)
		assert.True(t, m.Timestamp.Equal(fixed))
	}
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := &domain.Message{ConversationID: "u1_u2", SenderID: "u1", Type: domain.MessageText, Text: "x", Status: domain.StatusSent}
	require.NoError(t, s.AppendMessage(ctx, m))

	got, err := s.ListMessages(ctx, "u1_u2")
	require.NoError(t, err)
	got[0].Status = domain.StatusRead
	m.Status = domain.StatusRead

	again, err := s.ListMessages(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, again[0].Status)
}
