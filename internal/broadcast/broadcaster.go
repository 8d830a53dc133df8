package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mrsawy/task-management/internal/domain"
)

// subscriptionBuffer bounds how far a slow consumer may lag before events
// are dropped for it. Dropped events are recovered by the client's refetch
// on the next event or reconnect.
const subscriptionBuffer = 16

// AccessVerifier decides whether a connecting identity may subscribe to a
// recipient-scoped channel.
type AccessVerifier interface {
	VerifyChannelAccess(ctx context.Context, userID, recipientID string) (bool, error)
}

// VerifierFunc adapts a function to the AccessVerifier interface.
type VerifierFunc func(ctx context.Context, userID, recipientID string) (bool, error)

// VerifyChannelAccess calls f.
func (f VerifierFunc) VerifyChannelAccess(ctx context.Context, userID, recipientID string) (bool, error) {
	return f(ctx, userID, recipientID)
}

// SameRecipient authorizes a subscription only when the connecting identity
// is the channel's recipient.
func SameRecipient() AccessVerifier {
	return VerifierFunc(func(_ context.Context, userID, recipientID string) (bool, error) {
		return userID == recipientID, nil
	})
}

// Broadcaster fans domain events out to the currently connected subscribers
// of each recipient's channel. Delivery is best-effort and at-most-once per
// subscriber: sends never block, full buffers drop, disconnected recipients
// simply miss the event. Lifecycle: New -> Subscribe/Publish -> Shutdown.
type Broadcaster struct {
	verifier AccessVerifier

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a Broadcaster using the given channel-access verifier.
func New(verifier AccessVerifier) *Broadcaster {
	return &Broadcaster{
		verifier: verifier,
		subs:     make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers userID on the channel scoped to recipientID.
// A failed access check is a hard ErrSubscriptionRejected, never a silent
// empty channel.
func (b *Broadcaster) Subscribe(ctx context.Context, userID, recipientID string) (*Subscription, error) {
	ok, err := b.verifier.VerifyChannelAccess(ctx, userID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("verify channel access: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s may not subscribe to %s",
			domain.ErrSubscriptionRejected, userID, ChannelName(recipientID))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, domain.ErrBroadcasterClosed
	}

	sub := &Subscription{
		broadcaster: b,
		recipientID: recipientID,
		ch:          make(chan Envelope, subscriptionBuffer),
	}
	if b.subs[recipientID] == nil {
		b.subs[recipientID] = make(map[*Subscription]struct{})
	}
	b.subs[recipientID][sub] = struct{}{}

	slog.Debug("client subscribed", "channel", ChannelName(recipientID))

	return sub, nil
}

// Publish delivers the event to every current subscription of its recipient.
// Zero subscribers discards the event: staleness is resolved by the client
// refetching on reconnect, not by replaying history here.
func (b *Broadcaster) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := NewEnvelope(event)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.ErrBroadcasterClosed
	}

	targets := b.subs[event.RecipientID]
	if len(targets) == 0 {
		slog.Debug("no subscribers, event discarded",
			"channel", env.RecipientChannel,
			"event", env.EventName,
		)
		return nil
	}

	for sub := range targets {
		select {
		case sub.ch <- env:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
			slog.Warn("subscriber buffer full, event dropped",
				"channel", env.RecipientChannel,
				"event", env.EventName,
			)
		}
	}

	return nil
}

// Shutdown rejects further subscriptions and closes every open one.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, set := range b.subs {
		for sub := range set {
			b.closeSubLocked(sub)
		}
	}
	b.subs = nil

	slog.Info("broadcaster shut down",
		"events_delivered", b.delivered.Load(),
		"events_dropped", b.dropped.Load(),
	)
}

// Delivered returns how many envelopes reached a subscriber buffer.
func (b *Broadcaster) Delivered() uint64 { return b.delivered.Load() }

// Dropped returns how many envelopes were discarded at a full buffer.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// closeSubLocked closes a subscription exactly once. Caller holds b.mu.
func (b *Broadcaster) closeSubLocked(sub *Subscription) {
	if sub.closedLocked {
		return
	}
	sub.closedLocked = true
	if set, ok := b.subs[sub.recipientID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.recipientID)
		}
	}
	close(sub.ch)
}

// Subscription is one client's attachment to a recipient-scoped channel.
type Subscription struct {
	broadcaster *Broadcaster
	recipientID string
	ch          chan Envelope

	// closedLocked is guarded by broadcaster.mu.
	closedLocked bool
}

// Events returns the envelope stream. The channel is closed when the
// subscription is closed or the broadcaster shuts down.
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

// Channel returns the logical channel name this subscription is attached to.
func (s *Subscription) Channel() string {
	return ChannelName(s.recipientID)
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.broadcaster.mu.Lock()
	defer s.broadcaster.mu.Unlock()
	s.broadcaster.closeSubLocked(s)
}
