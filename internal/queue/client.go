package queue

import (
	"context"
	"fmt"
)

// Client sends audit messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// SendAll sends msgs in order and stops at the first failure, returning how
// many were delivered.
func SendAll(ctx context.Context, c Client, msgs []Message) (int, error) {
	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := c.Send(ctx, msg); err != nil {
			return i, fmt.Errorf("send %s: %w", msg.SignatureID, err)
		}
	}
	return len(msgs), nil
}
