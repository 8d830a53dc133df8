package broadcast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsawy/task-management/internal/broadcast"
	"github.com/mrsawy/task-management/internal/domain"
)

func TestChannelAndEventNames(t *testing.T) {
	assert.Equal(t, "private-tasks.user-1", broadcast.ChannelName("user-1"))
	assert.Equal(t, "tasks.created.user-1", broadcast.EventName(domain.EventKindCreated, "user-1"))

	env := broadcast.NewEnvelope(domain.Event{
		RecipientID: "user-1",
		Kind:        domain.EventKindReassigned,
		Message:     "You have a new task",
	})
	assert.Equal(t, "private-tasks.user-1", env.RecipientChannel)
	assert.Equal(t, "tasks.reassigned.user-1", env.EventName)
	assert.Equal(t, "You have a new task", env.Body.Message)
}

func TestSubscribeOwnChannel(t *testing.T) {
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	sub, err := b.Subscribe(context.Background(), "user-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "private-tasks.user-1", sub.Channel())
}

func TestSubscribeForeignChannelRejected(t *testing.T) {
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	_, err := b.Subscribe(context.Background(), "user-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrSubscriptionRejected)
}

func TestVerifierErrorSurfaces(t *testing.T) {
	boom := errors.New("directory down")
	b := broadcast.New(broadcast.VerifierFunc(func(context.Context, string, string) (bool, error) {
		return false, boom
	}))
	defer b.Shutdown()

	_, err := b.Subscribe(context.Background(), "user-1", "user-1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrSubscriptionRejected)
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	// Two tabs for user-1, one for user-2.
	tab1, err := b.Subscribe(ctx, "user-1", "user-1")
	require.NoError(t, err)
	tab2, err := b.Subscribe(ctx, "user-1", "user-1")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "user-2", "user-2")
	require.NoError(t, err)

	event := domain.Event{RecipientID: "user-1", Kind: domain.EventKindUpdated, Message: "Task updated"}
	require.NoError(t, b.Publish(ctx, event))

	for _, sub := range []*broadcast.Subscription{tab1, tab2} {
		env := <-sub.Events()
		assert.Equal(t, "tasks.updated.user-1", env.EventName)
		assert.Equal(t, "Task updated", env.Body.Message)
	}

	select {
	case env := <-other.Events():
		t.Fatalf("event leaked to another recipient: %+v", env)
	default:
	}

	assert.Equal(t, uint64(2), b.Delivered())
}

func TestPublishWithoutSubscribersDiscards(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	err := b.Publish(ctx, domain.Event{RecipientID: "user-1", Kind: domain.EventKindCreated})
	require.NoError(t, err)
	assert.Zero(t, b.Delivered())
	assert.Zero(t, b.Dropped())
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	sub, err := b.Subscribe(ctx, "user-1", "user-1")
	require.NoError(t, err)

	// Fill the buffer without draining, then overflow by one.
	event := domain.Event{RecipientID: "user-1", Kind: domain.EventKindUpdated}
	for i := 0; i < 16; i++ {
		require.NoError(t, b.Publish(ctx, event))
	}
	require.NoError(t, b.Publish(ctx, event))

	assert.Equal(t, uint64(16), b.Delivered())
	assert.Equal(t, uint64(1), b.Dropped())

	// The subscriber still drains what was buffered.
	for i := 0; i < 16; i++ {
		<-sub.Events()
	}
}

func TestClosedSubscriberMissesEvents(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	sub, err := b.Subscribe(ctx, "user-1", "user-1")
	require.NoError(t, err)
	sub.Close()

	err = b.Publish(ctx, domain.Event{RecipientID: "user-1", Kind: domain.EventKindUpdated})
	require.NoError(t, err)
	assert.Zero(t, b.Delivered())
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	sub, err := b.Subscribe(context.Background(), "user-1", "user-1")
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	b := broadcast.New(broadcast.SameRecipient())

	sub, err := b.Subscribe(ctx, "user-1", "user-1")
	require.NoError(t, err)

	b.Shutdown()

	_, open := <-sub.Events()
	assert.False(t, open, "shutdown must close open subscriptions")

	_, err = b.Subscribe(ctx, "user-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrBroadcasterClosed)

	err = b.Publish(ctx, domain.Event{RecipientID: "user-1"})
	assert.ErrorIs(t, err, domain.ErrBroadcasterClosed)

	// A second shutdown is a no-op.
	b.Shutdown()
}

func TestPublishWithCancelledContext(t *testing.T) {
	b := broadcast.New(broadcast.SameRecipient())
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Publish(ctx, domain.Event{RecipientID: "user-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
