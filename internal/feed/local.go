// Package feed implements domain.ChangeFeed over in-process fan-out, Redis
// pub/sub, NATS subjects and a Kafka topic.
package feed

import (
	"context"
	"sync"
)

// Local fans notifications out to subscribers of the same process. It is also
// the dispatch table the broker-backed feeds deliver into.
type Local struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func()
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[uint64]func())}
}

func (l *Local) Publish(_ context.Context, topic string) error {
	l.Notify(topic)
	return nil
}

// Notify runs every subscriber of topic on the caller's goroutine, outside the
// lock. Subscribers must not block.
func (l *Local) Notify(topic string) {
	l.mu.RLock()
	fns := make([]func(), 0, len(l.subs[topic]))
	for _, fn := range l.subs[topic] {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (l *Local) Subscribe(topic string, fn func()) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	if l.subs[topic] == nil {
		l.subs[topic] = make(map[uint64]func())
	}
	l.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(topic, id) })
	}, nil
}

// Topics returns the number of topics with at least one subscriber.
func (l *Local) Topics() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

func (l *Local) remove(topic string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if subs, ok := l.subs[topic]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(l.subs, topic)
		}
	}
}
