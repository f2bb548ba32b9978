package bus

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublish_DuplicateSubscriptionsBothInvokedInOrder(t *testing.T) {
	b := New(nil)
	var calls []string
	h := func(name string) Handler {
		return func(Event) error {
			calls = append(calls, name)
			return nil
		}
	}
	same := h("dup")
	b.Subscribe(TopicWalletCreated, same)
	b.Subscribe(TopicWalletCreated, same)
	b.Subscribe(TopicWalletCreated, h("third"))

	b.Publish(TopicWalletCreated, "payload")

	assert.Equal(t, []string{"dup", "dup", "third"}, calls)
}

func TestPublish_OnlyMatchingTopic(t *testing.T) {
	b := New(nil)
	var got []Topic
	b.Subscribe(TopicWalletSynced, func(e Event) error {
		got = append(got, e.Topic)
		return nil
	})

	b.Publish(TopicWalletCreated, nil)
	b.Publish(TopicWalletSynced, nil)

	assert.Equal(t, []Topic{TopicWalletSynced}, got)
}

func TestPublish_PayloadAndTimestamp(t *testing.T) {
	b := New(nil)
	var got Event
	b.Subscribe(TopicNFTMinted, func(e Event) error {
		got = e
		return nil
	})

	b.Publish(TopicNFTMinted, 42)

	assert.Equal(t, 42, got.Payload)
	assert.False(t, got.At.IsZero())
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := New(nil)
	assert.NotPanics(t, func() { b.Publish(TopicAgentStatus, nil) })
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New(nil)
	count := 0
	unsub := b.Subscribe(TopicAgentMessage, func(Event) error {
		count++
		return nil
	})

	b.Publish(TopicAgentMessage, nil)
	unsub()
	b.Publish(TopicAgentMessage, nil)
	b.Publish(TopicAgentMessage, nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.Count(TopicAgentMessage))
}

func TestUnsubscribe_RemovesOnlyItsOwnRegistration(t *testing.T) {
	b := New(nil)
	count := 0
	h := func(Event) error {
		count++
		return nil
	}
	first := b.Subscribe(TopicAgentMessage, h)
	b.Subscribe(TopicAgentMessage, h)

	first()
	b.Publish(TopicAgentMessage, nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 1, b.Count(TopicAgentMessage))
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	b := New(nil)
	unsub := b.Subscribe(TopicAgentMessage, func(Event) error { return nil })
	b.Subscribe(TopicAgentMessage, func(Event) error { return nil })

	unsub()
	unsub()

	assert.Equal(t, 1, b.Count(TopicAgentMessage))
}

func TestPublish_PanickingHandlerIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := New(zap.New(core))
	var calls []string
	b.Subscribe(TopicWalletDeleted, func(Event) error {
		calls = append(calls, "before")
		return nil
	})
	b.Subscribe(TopicWalletDeleted, func(Event) error {
		panic("boom")
	})
	b.Subscribe(TopicWalletDeleted, func(Event) error {
		calls = append(calls, "after")
		return nil
	})

	require.NotPanics(t, func() { b.Publish(TopicWalletDeleted, nil) })

	assert.Equal(t, []string{"before", "after"}, calls)
	assert.Equal(t, 1, logs.FilterMessage("bus: handler panicked").Len())
}

func TestPublish_ErroringHandlerIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := New(zap.New(core))
	ran := false
	b.Subscribe(TopicWalletPrimary, func(Event) error {
		return errors.New("nope")
	})
	b.Subscribe(TopicWalletPrimary, func(Event) error {
		ran = true
		return nil
	})

	b.Publish(TopicWalletPrimary, nil)

	assert.True(t, ran)
	assert.Equal(t, 1, logs.FilterMessage("bus: handler failed").Len())
}

func TestPublish_ReentrantDepthFirst(t *testing.T) {
	b := New(nil)
	var order []string
	b.Subscribe(TopicWalletCreated, func(Event) error {
		order = append(order, "outer-1")
		b.Publish(TopicWalletSynced, nil)
		return nil
	})
	b.Subscribe(TopicWalletCreated, func(Event) error {
		order = append(order, "outer-2")
		return nil
	})
	b.Subscribe(TopicWalletSynced, func(Event) error {
		order = append(order, "nested-1")
		return nil
	})
	b.Subscribe(TopicWalletSynced, func(Event) error {
		order = append(order, "nested-2")
		return nil
	})

	b.Publish(TopicWalletCreated, nil)

	assert.Equal(t, []string{"outer-1", "nested-1", "nested-2", "outer-2"}, order)
}

func TestPublish_HandlerMaySubscribeWithoutDeadlock(t *testing.T) {
	b := New(nil)
	added := 0
	b.Subscribe(TopicAgentStatus, func(Event) error {
		b.Subscribe(TopicAgentStatus, func(Event) error {
			added++
			return nil
		})
		return nil
	})

	b.Publish(TopicAgentStatus, nil)
	assert.Equal(t, 0, added, "registration during publish is not part of that publish")

	b.Publish(TopicAgentStatus, nil)
	assert.Equal(t, 1, added)
}

func TestSubscribeMany(t *testing.T) {
	b := New(nil)
	var got []Topic
	unsub := b.SubscribeMany([]Topic{TopicWalletCreated, TopicNFTMinted}, func(e Event) error {
		got = append(got, e.Topic)
		return nil
	})

	b.Publish(TopicWalletCreated, nil)
	b.Publish(TopicNFTMinted, nil)
	unsub()
	b.Publish(TopicWalletCreated, nil)

	assert.Equal(t, []Topic{TopicWalletCreated, TopicNFTMinted}, got)
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	b := New(nil)
	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := b.Subscribe(TopicAgentMessage, func(Event) error {
				mu.Lock()
				total++
				mu.Unlock()
				return nil
			})
			b.Publish(TopicAgentMessage, nil)
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.Count(TopicAgentMessage))
	assert.Positive(t, total)
}

func TestAllTopics_Unique(t *testing.T) {
	seen := map[Topic]bool{}
	for _, tp := range AllTopics() {
		assert.False(t, seen[tp], "duplicate topic %s", tp)
		seen[tp] = true
	}
	assert.Len(t, seen, 10)
}
