package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Snapshot is the full result of one fetch. A snapshot with Err set is the
// last one a feed delivers.
type Snapshot[T any] struct {
	Items []T
	At    time.Time
	Err   error
}

// Feed is a live listing: an initial snapshot followed by a fresh one each
// time the watched topic fires.
type Feed[T any] struct {
	ch     chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch subscribes to topic before the first fetch, so no change between
// the initial snapshot and the subscription is lost. The feed runs until
// ctx is cancelled, Close is called or fetch fails.
func Watch[T any](ctx context.Context, n Notifier, topic string, fetch func(context.Context) ([]T, error)) (*Feed[T], error) {
	ctx, cancel := context.WithCancel(ctx)

	sub, err := n.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", topic, err)
	}

	f := &Feed[T]{
		ch:     make(chan Snapshot[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run(ctx, sub, fetch)
	return f, nil
}

func (f *Feed[T]) run(ctx context.Context, sub Subscription, fetch func(context.Context) ([]T, error)) {
	defer close(f.done)
	defer close(f.ch)
	defer sub.Close()

	// emit reports whether the feed should keep going.
	emit := func() bool {
		items, err := fetch(ctx)
		if ctx.Err() != nil {
			return false
		}
		snap := Snapshot[T]{Items: items, At: time.Now().UTC(), Err: err}
		select {
		case f.ch <- snap:
		case <-ctx.Done():
			return false
		}
		return err == nil
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok || !emit() {
				return
			}
		}
	}
}

// Snapshots is closed when the feed ends.
func (f *Feed[T]) Snapshots() <-chan Snapshot[T] {
	return f.ch
}

// Close stops the feed and waits for its goroutine to exit. Safe to call
// more than once and from several goroutines.
func (f *Feed[T]) Close() {
	f.once.Do(f.cancel)
	<-f.done
}
