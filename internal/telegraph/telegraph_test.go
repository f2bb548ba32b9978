package telegraph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startRelay(t *testing.T, r *Relay) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not stop")
		}
	}
}

func waitSent(t *testing.T, m *MockAdapter, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for m.SentCount() < n {
		select {
		case <-m.Sent():
		case <-deadline:
			t.Fatalf("sent %d messages, want %d", m.SentCount(), n)
		}
	}
}

func TestNewRelay_RequiresAdapter(t *testing.T) {
	if _, err := NewRelay(RelayOpts{}); err == nil {
		t.Fatal("expected error without adapter")
	}
}

func TestNewRelay_Defaults(t *testing.T) {
	r, err := NewRelay(RelayOpts{Adapter: NewMockAdapter()})
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	if cap(r.queue) != DefaultQueueSize {
		t.Errorf("queue cap = %d, want %d", cap(r.queue), DefaultQueueSize)
	}
}

func TestRelay_PostsBusEvents(t *testing.T) {
	mock := NewMockAdapter()
	r, _ := NewRelay(RelayOpts{Adapter: mock, ChannelID: "C1"})
	b := bus.New(zap.NewNop())
	detach := r.Attach(b)
	defer detach()

	stop := startRelay(t, r)
	b.Publish(bus.TopicWalletCreated, wallet.Event{UserID: "u-1", Wallet: models.Wallet{Name: "Main", Kind: "solana"}})
	b.Publish(bus.TopicAgentCoordination, agent.Coordination{From: "nova", To: "sage", Status: agent.CoordinationPending})
	waitSent(t, mock, 2)
	stop()

	sent := mock.AllSent()
	if sent[0].ChannelID != "C1" {
		t.Errorf("channel = %q, want C1", sent[0].ChannelID)
	}
	if sent[0].Text != "Wallet created" || len(sent[0].Events) != 1 {
		t.Errorf("first message = %+v", sent[0])
	}
	if !mock.Closed() {
		t.Error("adapter should be closed after Run returns")
	}
}

func TestRelay_IgnoresUnrelayedTopics(t *testing.T) {
	mock := NewMockAdapter()
	r, _ := NewRelay(RelayOpts{Adapter: mock})
	b := bus.New(zap.NewNop())
	defer r.Attach(b)()

	b.Publish(bus.TopicAgentStatus, agent.StatusChange{AgentID: "nova"})
	b.Publish(bus.TopicWalletSynced, wallet.BalanceEvent{})
	if len(r.queue) != 0 {
		t.Errorf("queue len = %d, want 0", len(r.queue))
	}
}

func TestRelay_EnqueueDropsWhenFull(t *testing.T) {
	r, _ := NewRelay(RelayOpts{Adapter: NewMockAdapter(), QueueSize: 1})
	if !r.Enqueue(OutboundMessage{Text: "a"}) {
		t.Fatal("first enqueue should succeed")
	}
	if r.Enqueue(OutboundMessage{Text: "b"}) {
		t.Fatal("second enqueue should be dropped")
	}
}

func TestRelay_DrainsOnShutdown(t *testing.T) {
	mock := NewMockAdapter()
	r, _ := NewRelay(RelayOpts{Adapter: mock})
	for i := 0; i < 3; i++ {
		r.Enqueue(OutboundMessage{Text: fmt.Sprintf("m%d", i)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if mock.SentCount() != 3 {
		t.Errorf("sent = %d, want 3", mock.SentCount())
	}
}

func TestRelay_SendFailureKeepsRunning(t *testing.T) {
	mock := NewMockAdapter()
	r, _ := NewRelay(RelayOpts{Adapter: mock})
	stop := startRelay(t, r)
	defer stop()

	mock.FailSends(fmt.Errorf("platform down"))
	r.Enqueue(OutboundMessage{Text: "lost"})
	time.Sleep(20 * time.Millisecond)
	mock.FailSends(nil)
	r.Enqueue(OutboundMessage{Text: "kept"})

	deadline := time.After(2 * time.Second)
	for {
		if last, ok := mock.LastSent(); ok && last.Text == "kept" {
			return
		}
		select {
		case <-mock.Sent():
		case <-deadline:
			t.Fatal("relay stopped sending after a failure")
		}
	}
}

func TestRelay_ConnectError(t *testing.T) {
	mock := NewMockAdapter()
	mock.Close()
	r, _ := NewRelay(RelayOpts{Adapter: mock})
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
}
