package syncagent_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsawy/task-management/internal/broadcast"
	"github.com/mrsawy/task-management/internal/domain"
	"github.com/mrsawy/task-management/internal/syncagent"
)

// fakeStream feeds scripted envelopes; closing it simulates a transport drop.
type fakeStream struct {
	ch   chan broadcast.Envelope
	once sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan broadcast.Envelope, 16)}
}

func (s *fakeStream) Next(ctx context.Context) (broadcast.Envelope, error) {
	select {
	case <-ctx.Done():
		return broadcast.Envelope{}, ctx.Err()
	case env, ok := <-s.ch:
		if !ok {
			return broadcast.Envelope{}, syncagent.ErrStreamClosed
		}
		return env, nil
	}
}

func (s *fakeStream) Close() error {
	return nil
}

func (s *fakeStream) drop() {
	s.once.Do(func() { close(s.ch) })
}

// fakeTransport hands out fakeStreams and records every subscribe attempt.
type fakeTransport struct {
	mu              sync.Mutex
	err             error
	dropOnSubscribe bool
	subscribes      int
	recipients      []string
	streams         []*fakeStream
}

func (t *fakeTransport) Subscribe(_ context.Context, recipientID string) (syncagent.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribes++
	t.recipients = append(t.recipients, recipientID)
	if t.err != nil {
		return nil, t.err
	}
	stream := newFakeStream()
	if t.dropOnSubscribe {
		stream.drop()
	}
	t.streams = append(t.streams, stream)
	return stream, nil
}

func (t *fakeTransport) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

func (t *fakeTransport) setDropOnSubscribe(drop bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropOnSubscribe = drop
}

func (t *fakeTransport) subscribeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes
}

func (t *fakeTransport) lastRecipient() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.recipients) == 0 {
		return ""
	}
	return t.recipients[len(t.recipients)-1]
}

func (t *fakeTransport) stream(i int) *fakeStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[i]
}

func testConfig() syncagent.Config {
	return syncagent.Config{
		BackoffBase: 5 * time.Millisecond,
		BackoffCap:  20 * time.Millisecond,
	}
}

func testEnvelope() broadcast.Envelope {
	return broadcast.NewEnvelope(domain.Event{
		RecipientID: "user-1",
		Kind:        domain.EventKindUpdated,
		Message:     "Task updated",
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestEventInvalidatesAndRefetches(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	cache := syncagent.NewTaskCache()

	fresh := []*domain.Task{{ID: "t1", Title: "Refetched"}}
	agent := syncagent.New(transport, cache, func(context.Context) ([]*domain.Task, error) {
		return fresh, nil
	}, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "agent should subscribe")

	transport.stream(0).ch <- testEnvelope()

	waitFor(t, func() bool { return cache.Invalidations() == 1 }, "one invalidation per event")
	tasks, valid := cache.Tasks()
	assert.True(t, valid)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Refetched", tasks[0].Title)

	// A duplicate envelope re-triggers the cycle; refetch idempotence makes
	// that harmless.
	transport.stream(0).ch <- testEnvelope()
	waitFor(t, func() bool { return cache.Invalidations() == 2 }, "duplicate re-triggers invalidation")
}

func TestRefetchFailureLeavesCacheStale(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	cache := syncagent.NewTaskCache()

	agent := syncagent.New(transport, cache, func(context.Context) ([]*domain.Task, error) {
		return nil, errors.New("api unavailable")
	}, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "agent should subscribe")
	transport.stream(0).ch <- testEnvelope()

	waitFor(t, func() bool { return cache.Invalidations() == 1 }, "invalidation still happens")
	_, valid := cache.Tasks()
	assert.False(t, valid, "cache stays stale until a refetch succeeds")
}

func TestOnEventHandlerReceivesEnvelope(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	cache := syncagent.NewTaskCache()

	agent := syncagent.New(transport, cache, nil, testConfig())

	var mu sync.Mutex
	var seen []broadcast.Envelope
	agent.OnEvent(func(env broadcast.Envelope) {
		mu.Lock()
		seen = append(seen, env)
		mu.Unlock()
	})

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "agent should subscribe")
	transport.stream(0).ch <- testEnvelope()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, "handler sees the envelope")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "tasks.updated.user-1", seen[0].EventName)
}

func TestStreamDropReconnectsToSameChannel(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "initial subscription")
	transport.stream(0).drop()

	waitFor(t, func() bool {
		return transport.subscribeCount() == 2 && agent.Connected()
	}, "agent reconnects after a drop")
	assert.Equal(t, "user-1", transport.lastRecipient())
}

func TestFlappingTransportIsRateLimited(t *testing.T) {
	ctx := context.Background()

	// The transport accepts every subscription and drops it immediately.
	// Reconnects must climb the backoff curve, not spin.
	transport := &fakeTransport{dropOnSubscribe: true}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, syncagent.Config{
		BackoffBase: 20 * time.Millisecond,
		BackoffCap:  100 * time.Millisecond,
	})

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	time.Sleep(250 * time.Millisecond)
	attempts := transport.subscribeCount()
	assert.GreaterOrEqual(t, attempts, 2, "agent must keep reconnecting")
	assert.LessOrEqual(t, attempts, 10, "reconnects after drops must be delayed by backoff")

	// Once the transport stabilizes the agent recovers on its own.
	transport.setDropOnSubscribe(false)
	waitFor(t, agent.Connected, "agent recovers when streams stop dropping")
}

func TestBackoffResetsAfterDeliveredEvent(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	cache := syncagent.NewTaskCache()
	agent := syncagent.New(transport, cache, nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "initial subscription")

	// A connection that delivered an event counts as stable: the next drop
	// starts from the base delay again instead of a climbed-up one.
	transport.stream(0).ch <- testEnvelope()
	waitFor(t, func() bool { return cache.Invalidations() == 1 }, "event consumed")
	transport.stream(0).drop()

	waitFor(t, func() bool {
		return transport.subscribeCount() == 2 && agent.Connected()
	}, "reconnect after a stable connection is quick")
}

func TestTransientSubscribeErrorIsRetried(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{err: errors.New("connection refused")}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, func() bool { return transport.subscribeCount() >= 2 }, "agent keeps retrying")

	transport.setErr(nil)
	waitFor(t, agent.Connected, "agent recovers once the transport does")
}

func TestRejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{
		err: fmt.Errorf("%w: user user-1 may not subscribe", domain.ErrSubscriptionRejected),
	}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, func() bool { return agent.Status() == syncagent.StateRejected }, "rejection is surfaced")

	// No retry loop survives a rejection.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, transport.subscribeCount())
	assert.Equal(t, syncagent.StateRejected, agent.Status())
}

func TestStopDisconnectsPromptly(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	waitFor(t, agent.Connected, "agent should subscribe")

	agent.Stop()
	assert.Equal(t, syncagent.StateDisconnected, agent.Status())

	// Stopping twice is safe, and a stopped agent can start again.
	agent.Stop()
	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()
	waitFor(t, agent.Connected, "agent restarts after stop")
}

func TestStartWhileRunningFails(t *testing.T) {
	ctx := context.Background()
	agent := syncagent.New(&fakeTransport{}, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	assert.Error(t, agent.Start(ctx, "user-1"))
}

func TestSwitchIdentity(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	agent := syncagent.New(transport, syncagent.NewTaskCache(), nil, testConfig())

	require.NoError(t, agent.Start(ctx, "user-1"))
	waitFor(t, agent.Connected, "first identity subscribes")

	require.NoError(t, agent.SwitchIdentity(ctx, "user-2"))
	defer agent.Stop()

	waitFor(t, func() bool {
		return agent.Connected() && transport.lastRecipient() == "user-2"
	}, "agent re-homes onto the new identity's channel")
}

func TestLocalTransportEndToEnd(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	cache := syncagent.NewTaskCache()
	fresh := []*domain.Task{{ID: "t1"}}
	agent := syncagent.New(
		syncagent.NewLocalTransport(b, "user-1"),
		cache,
		func(context.Context) ([]*domain.Task, error) { return fresh, nil },
		testConfig(),
	)

	require.NoError(t, agent.Start(ctx, "user-1"))
	defer agent.Stop()

	waitFor(t, agent.Connected, "agent subscribes through the broadcaster")

	require.NoError(t, b.Publish(ctx, domain.Event{
		RecipientID: "user-1",
		Kind:        domain.EventKindCreated,
		Message:     "New task created",
	}))

	waitFor(t, func() bool { return cache.Invalidations() == 1 }, "published event reaches the agent")
}

func TestLocalTransportRejectsForeignChannel(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	agent := syncagent.New(
		syncagent.NewLocalTransport(b, "user-1"),
		syncagent.NewTaskCache(),
		nil,
		testConfig(),
	)

	require.NoError(t, agent.Start(ctx, "user-2"))
	defer agent.Stop()

	waitFor(t, func() bool { return agent.Status() == syncagent.StateRejected }, "foreign channel is terminal")
}
