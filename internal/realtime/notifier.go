// Package realtime carries "something changed" signals between writers and
// live feeds. A signal has no payload; subscribers re-read the store.
package realtime

import (
	"context"
	"sync"
)

const TopicProfiles = "profiles"

// ConversationsTopic fires when any conversation of userID is created or
// gets a new message.
func ConversationsTopic(userID string) string {
	return "conversations:" + userID
}

// MessagesTopic fires when a message is appended to conversationID.
func MessagesTopic(conversationID string) string {
	return "messages:" + conversationID
}

type Notifier interface {
	Publish(ctx context.Context, topic string) error

	// Subscribe starts listening on topic. Once it returns, every later
	// Publish on topic is observed by the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription delivers coalesced signals: several publishes that arrive
// while the reader is busy collapse into one pending receive.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

// signal does a non-blocking send on a 1-buffered channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// LocalNotifier fans signals out inside one process.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[string]map[*localSubscription]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[string]map[*localSubscription]struct{})}
}

func (n *LocalNotifier) Publish(_ context.Context, topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs[topic] {
		signal(sub.ch)
	}
	return nil
}

func (n *LocalNotifier) Subscribe(_ context.Context, topic string) (Subscription, error) {
	sub := &localSubscription{n: n, topic: topic, ch: make(chan struct{}, 1)}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[*localSubscription]struct{})
	}
	n.subs[topic][sub] = struct{}{}
	return sub, nil
}

func (n *LocalNotifier) remove(sub *localSubscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.subs[sub.topic], sub)
	if len(n.subs[sub.topic]) == 0 {
		delete(n.subs, sub.topic)
	}
}

type localSubscription struct {
	n     *LocalNotifier
	topic string
	ch    chan struct{}
	once  sync.Once
}

func (s *localSubscription) C() <-chan struct{} { return s.ch }

func (s *localSubscription) Close() error {
	s.once.Do(func() { s.n.remove(s) })
	return nil
}
