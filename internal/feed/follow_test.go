package feed_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
)

func TestFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("InitialRunThenOnChange", func(t *testing.T) {
		f := feed.NewLocal()
		var runs atomic.Int32

		stop, err := feed.Follow(f, "messages/u1_u2", func(context.Context) { runs.Add(1) })
		require.NoError(t, err)
		defer stop()

		require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, f.Publish(ctx, "messages/u1_u2"))
		require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("RunsNeverOverlap", func(t *testing.T) {
		f := feed.NewLocal()
		var active, maxActive atomic.Int32
		release := make(chan struct{})
		var once sync.Once

		stop, err := feed.Follow(f, "t", func(context.Context) {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			once.Do(func() { <-release })
			active.Add(-1)
		})
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			require.NoError(t, f.Publish(ctx, "t"))
		}
		close(release)
		time.Sleep(20 * time.Millisecond)
		stop()

		assert.Equal(t, int32(1), maxActive.Load())
	})

	t.Run("NoRunAfterStop", func(t *testing.T) {
		f := feed.NewLocal()
		var runs atomic.Int32

		stop, err := feed.Follow(f, "t", func(context.Context) { runs.Add(1) })
		require.NoError(t, err)
		require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

		stop()
		stop()
		require.NoError(t, f.Publish(ctx, "t"))
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, int32(1), runs.Load())
		assert.Equal(t, 0, f.Topics())
	})
}
