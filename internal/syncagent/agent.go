package syncagent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mrsawy/task-management/internal/broadcast"
	"github.com/mrsawy/task-management/internal/domain"
)

// State is the agent's position in its connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	// StateRejected is terminal for the current identity: a rejected
	// subscription is never retried automatically. A new identity must go
	// through SwitchIdentity.
	StateRejected State = "rejected"
)

const (
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 30 * time.Second
)

// Config tunes the reconnect policy.
type Config struct {
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaultBackoffCap
	}
	return c
}

// RefetchFunc loads the authoritative task list after an invalidation,
// through the same read path the UI uses.
type RefetchFunc func(ctx context.Context) ([]*domain.Task, error)

// Agent keeps one client instance synchronized with its recipient-scoped
// channel. It subscribes, reconnects with jittered capped backoff on
// transport drops, and on every received event invalidates the local cache
// exactly once and refetches. Sibling agents for the same recipient (other
// tabs) run independently; no coordination exists or is needed.
type Agent struct {
	transport Transport
	cache     *TaskCache
	refetch   RefetchFunc
	cfg       Config

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	handler func(broadcast.Envelope)
}

// New creates an Agent in the Disconnected state.
func New(transport Transport, cache *TaskCache, refetch RefetchFunc, cfg Config) *Agent {
	return &Agent{
		transport: transport,
		cache:     cache,
		refetch:   refetch,
		cfg:       cfg.withDefaults(),
		state:     StateDisconnected,
	}
}

// OnEvent registers a handler for the advisory envelope (toast text and the
// like). Cache reconciliation happens regardless of the handler.
func (a *Agent) OnEvent(fn func(broadcast.Envelope)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = fn
}

// Start begins the subscribe/reconnect loop for the given identity.
// It returns an error if the agent is already running.
func (a *Agent) Start(ctx context.Context, recipientID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return errors.New("sync agent already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = StateConnecting

	go a.run(runCtx, recipientID, a.done)

	return nil
}

// Stop tears the subscription down promptly and waits for the loop to exit.
// Used on sign-out; the agent ends Disconnected and no reconnect loop
// survives.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SwitchIdentity re-homes the agent onto a different user's channel: the old
// subscription is torn down before the new one is established.
func (a *Agent) SwitchIdentity(ctx context.Context, recipientID string) error {
	a.Stop()
	return a.Start(ctx, recipientID)
}

// Connected reports whether the agent currently holds a live subscription.
func (a *Agent) Connected() bool {
	return a.Status() == StateSubscribed
}

// Status returns the agent's current lifecycle state.
func (a *Agent) Status() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *Agent) run(ctx context.Context, recipientID string, done chan struct{}) {
	defer close(done)

	backoff := a.newBackoff()

	for {
		a.setState(StateConnecting)

		stream, err := a.transport.Subscribe(ctx, recipientID)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionRejected) {
				a.setState(StateRejected)
				slog.Error("channel subscription rejected",
					"channel", broadcast.ChannelName(recipientID),
					"error", err,
				)
				return
			}
			if ctx.Err() != nil {
				a.setState(StateDisconnected)
				return
			}

			if !a.waitBackoff(ctx, backoff, recipientID, err) {
				return
			}
			continue
		}

		a.setState(StateSubscribed)
		slog.Info("subscribed", "channel", broadcast.ChannelName(recipientID))

		connectedAt := time.Now()
		received := a.consume(ctx, stream)
		_ = stream.Close()

		if ctx.Err() != nil {
			a.setState(StateDisconnected)
			return
		}

		// Reset the policy only once the connection proved stable: it
		// delivered an event or outlived the backoff cap. A transport that
		// accepts the subscription and immediately drops it keeps climbing
		// the same backoff curve as one that refuses to accept at all.
		if received || time.Since(connectedAt) >= a.cfg.BackoffCap {
			backoff = a.newBackoff()
		}

		// Transport drop: back off, then reconnect to the same channel.
		if !a.waitBackoff(ctx, backoff, recipientID, ErrStreamClosed) {
			return
		}
	}
}

// waitBackoff sleeps for the next backoff step. It returns false when the
// context ended first, with the state already set to Disconnected.
func (a *Agent) waitBackoff(ctx context.Context, backoff retry.Backoff, recipientID string, cause error) bool {
	delay, _ := backoff.Next()
	slog.Warn("reconnecting",
		"channel", broadcast.ChannelName(recipientID),
		"delay", delay,
		"error", cause,
	)
	select {
	case <-ctx.Done():
		a.setState(StateDisconnected)
		return false
	case <-time.After(delay):
		return true
	}
}

// consume processes envelopes until the stream errors or the context ends.
// It reports whether at least one envelope arrived.
func (a *Agent) consume(ctx context.Context, stream Stream) bool {
	received := false
	for {
		env, err := stream.Next(ctx)
		if err != nil {
			return received
		}
		received = true
		a.handleEvent(ctx, env)
	}
}

// handleEvent reconciles state for one envelope: exactly one invalidation,
// one refetch. Duplicate envelopes are not deduplicated; each re-triggers,
// which is harmless because refetch is idempotent.
func (a *Agent) handleEvent(ctx context.Context, env broadcast.Envelope) {
	a.cache.Invalidate()

	if a.refetch != nil {
		tasks, err := a.refetch(ctx)
		if err != nil {
			slog.Warn("task refetch failed, cache stays stale",
				"event", env.EventName,
				"error", err,
			)
		} else {
			a.cache.Replace(tasks)
		}
	}

	a.mu.Lock()
	handler := a.handler
	a.mu.Unlock()
	if handler != nil {
		handler(env)
	}
}

func (a *Agent) newBackoff() retry.Backoff {
	b := retry.NewExponential(a.cfg.BackoffBase)
	b = retry.WithJitter(a.cfg.BackoffBase/2, b)
	b = retry.WithCappedDuration(a.cfg.BackoffCap, b)
	return b
}
