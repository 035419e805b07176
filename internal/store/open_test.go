package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/store"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/memory"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		b, closeFn, err := store.Open(ctx, &config.Config{StoreDriver: "memory"}, zerolog.Nop())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.Store{}, b)
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg := &config.Config{StoreDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "chat.db")}
		b, closeFn, err := store.Open(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &sqlite.Store{}, b)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := store.Open(ctx, &config.Config{StoreDriver: "mongo"}, zerolog.Nop())
		assert.Error(t, err)
	})
}
