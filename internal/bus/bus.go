// Package bus is the in-process publish/subscribe registry that keeps
// dashboard views consistent when wallet or agent state changes.
//
// Delivery is synchronous on the publisher's goroutine, in registration
// order. A handler may publish again; the nested publish completes before the
// outer one continues (depth-first). The registry lock is never held while a
// handler runs.
package bus

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic names a stream of change events.
type Topic string

const (
	TopicWalletCreated     Topic = "wallet.created"
	TopicWalletSynced      Topic = "wallet.synced"
	TopicWalletDeleted     Topic = "wallet.deleted"
	TopicWalletPrimary     Topic = "wallet.primary"
	TopicAgentStatus       Topic = "agent.status"
	TopicAgentMessage      Topic = "agent.message"
	TopicAgentCoordination Topic = "agent.coordination"
	TopicAnalysisCompleted Topic = "analysis.completed"
	TopicNFTMinted         Topic = "nft.minted"
	TopicFeedbackSubmitted Topic = "feedback.submitted"
)

// AllTopics lists every topic published by AgentDesk services.
func AllTopics() []Topic {
	return []Topic{
		TopicWalletCreated,
		TopicWalletSynced,
		TopicWalletDeleted,
		TopicWalletPrimary,
		TopicAgentStatus,
		TopicAgentMessage,
		TopicAgentCoordination,
		TopicAnalysisCompleted,
		TopicNFTMinted,
		TopicFeedbackSubmitted,
	}
}

// Event is what a handler receives.
type Event struct {
	Topic   Topic
	Payload any
	At      time.Time
}

// Handler consumes an event. A returned error is logged and does not stop
// delivery to the remaining handlers.
type Handler func(Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a topic -> handlers registry. The zero value is not usable; call New.
type Bus struct {
	mu     sync.Mutex
	subs   map[Topic][]subscription
	nextID uint64
	log    *zap.Logger
	now    func() time.Time
}

// New creates an empty Bus. A nil logger discards handler failures.
func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs: make(map[Topic][]subscription),
		log:  log,
		now:  time.Now,
	}
}

// Subscribe registers handler under topic and returns a function that removes
// exactly this registration. Registering the same handler twice yields two
// independent registrations. The returned function is idempotent.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

// SubscribeMany registers handler under each topic and returns one function
// that removes all of those registrations.
func (b *Bus) SubscribeMany(topics []Topic, handler Handler) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(topics))
	for _, t := range topics {
		unsubs = append(unsubs, b.Subscribe(t, handler))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// Copy so snapshots taken by in-flight publishes stay intact.
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = next
		}
		return
	}
}

// Publish delivers payload to every handler registered for topic at the time
// of the call, in registration order.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	snapshot := b.subs[topic]
	b.mu.Unlock()

	evt := Event{Topic: topic, Payload: payload, At: b.now()}
	for _, s := range snapshot {
		b.deliver(s, evt)
	}
}

// deliver runs one handler, converting a panic into a logged failure.
func (b *Bus) deliver(s subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus: handler panicked",
				zap.String("topic", string(evt.Topic)),
				zap.Uint64("subscription", s.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.handler(evt); err != nil {
		b.log.Warn("bus: handler failed",
			zap.String("topic", string(evt.Topic)),
			zap.Uint64("subscription", s.id),
			zap.Error(err))
	}
}

// Count returns the number of registrations for topic.
func (b *Bus) Count(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
