package feed

import (
	"context"
	"sync"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

// Follow subscribes to topic and runs refresh on a dedicated goroutine: once
// right away and again after notifications. Notifications that arrive while
// refresh is running collapse into a single further run, so refresh calls never
// overlap.
//
// stop is idempotent and returns only after refresh has finished for good. It
// cancels the context handed to refresh and must not be called from inside
// refresh.
func Follow(f domain.ChangeFeed, topic string, refresh func(ctx context.Context)) (stop func(), err error) {
	signal := make(chan struct{}, 1)
	cancelSub, err := f.Subscribe(topic, func() {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				if ctx.Err() != nil {
					return
				}
				refresh(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelSub()
			cancel()
			<-done
		})
	}, nil
}
