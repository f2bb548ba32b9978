package telegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/agentdesk/internal/bus"
	"go.uber.org/zap"
)

const (
	// DefaultQueueSize is the relay's outbound buffer.
	DefaultQueueSize = 64
	// sendTimeout bounds one platform call.
	sendTimeout = 15 * time.Second
)

// RelayTopics are the bus topics posted to chat.
var RelayTopics = []bus.Topic{
	bus.TopicWalletCreated,
	bus.TopicWalletDeleted,
	bus.TopicWalletPrimary,
	bus.TopicNFTMinted,
	bus.TopicAgentCoordination,
	bus.TopicFeedbackSubmitted,
}

// Relay posts bus events to a chat platform. Bus handlers only enqueue;
// the network call happens on the Run goroutine so publishing never waits on
// the platform.
type Relay struct {
	adapter   Adapter
	channelID string
	queue     chan OutboundMessage
	log       *zap.Logger
}

// RelayOpts holds parameters for creating a Relay.
type RelayOpts struct {
	Adapter   Adapter
	ChannelID string // optional; adapters fall back to their default channel
	QueueSize int    // defaults to DefaultQueueSize
	Log       *zap.Logger
}

// NewRelay creates a Relay with the given options.
func NewRelay(opts RelayOpts) (*Relay, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		adapter:   opts.Adapter,
		channelID: opts.ChannelID,
		queue:     make(chan OutboundMessage, size),
		log:       log,
	}, nil
}

// Attach subscribes the relay to RelayTopics. The returned function detaches
// it.
func (r *Relay) Attach(b *bus.Bus) (detach func()) {
	return b.SubscribeMany(RelayTopics, r.handle)
}

func (r *Relay) handle(e bus.Event) error {
	fe, ok := Format(e)
	if !ok {
		return nil
	}
	r.Enqueue(OutboundMessage{Text: fe.Title, Events: []FormattedEvent{fe}})
	return nil
}

// Enqueue queues msg without blocking. It reports false and drops the
// message when the queue is full.
func (r *Relay) Enqueue(msg OutboundMessage) bool {
	if msg.ChannelID == "" {
		msg.ChannelID = r.channelID
	}
	select {
	case r.queue <- msg:
		return true
	default:
		r.log.Warn("telegraph: queue full, dropping message", zap.String("text", msg.Text))
		return false
	}
}

// Run connects the adapter and sends queued messages until ctx is cancelled.
// Messages still queued at shutdown are sent on a short grace period before
// the adapter is closed.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}
	defer r.adapter.Close()
	r.log.Info("telegraph: relay connected")

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case msg := <-r.queue:
			r.send(ctx, msg)
		}
	}
}

func (r *Relay) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	for {
		select {
		case msg := <-r.queue:
			r.send(ctx, msg)
		default:
			return
		}
	}
}

func (r *Relay) send(ctx context.Context, msg OutboundMessage) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := r.adapter.Send(sendCtx, msg); err != nil {
		r.log.Warn("telegraph: send failed", zap.String("text", msg.Text), zap.Error(err))
	}
}
