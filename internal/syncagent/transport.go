package syncagent

import (
	"context"
	"errors"

	"github.com/mrsawy/task-management/internal/broadcast"
)

// ErrStreamClosed reports that the push transport dropped the connection.
// The agent treats it as a signal to reconnect, not as a fatal error.
var ErrStreamClosed = errors.New("event stream closed")

// Stream is one live attachment to a recipient-scoped channel.
type Stream interface {
	// Next blocks for the next envelope. It returns ErrStreamClosed on a
	// transport drop and the context error on cancellation.
	Next(ctx context.Context) (broadcast.Envelope, error)
	Close() error
}

// Transport establishes subscriptions on behalf of a fixed authenticated
// identity. Implementations must surface domain.ErrSubscriptionRejected
// unwrapped so the agent can treat it as terminal.
type Transport interface {
	Subscribe(ctx context.Context, recipientID string) (Stream, error)
}

// LocalTransport attaches directly to an in-process Broadcaster. It serves
// same-process clients and tests; a remote client would implement Transport
// over the SSE endpoint instead.
type LocalTransport struct {
	broadcaster *broadcast.Broadcaster
	userID      string
}

// NewLocalTransport creates a transport authenticated as userID.
func NewLocalTransport(b *broadcast.Broadcaster, userID string) *LocalTransport {
	return &LocalTransport{broadcaster: b, userID: userID}
}

// Subscribe attaches to the recipient's channel, subject to the
// broadcaster's access check.
func (t *LocalTransport) Subscribe(ctx context.Context, recipientID string) (Stream, error) {
	sub, err := t.broadcaster.Subscribe(ctx, t.userID, recipientID)
	if err != nil {
		return nil, err
	}
	return &localStream{sub: sub}, nil
}

type localStream struct {
	sub *broadcast.Subscription
}

func (s *localStream) Next(ctx context.Context) (broadcast.Envelope, error) {
	select {
	case <-ctx.Done():
		return broadcast.Envelope{}, ctx.Err()
	case env, ok := <-s.sub.Events():
		if !ok {
			return broadcast.Envelope{}, ErrStreamClosed
		}
		return env, nil
	}
}

func (s *localStream) Close() error {
	s.sub.Close()
	return nil
}
