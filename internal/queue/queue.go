package queue

import (
	"context"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

// Delivery is one in-flight job descriptor pulled from the work queue. The
// message stays invisible to other consumers for the visibility window; it is
// redelivered unless Ack removes it.
type Delivery interface {
	Data() []byte
	Ack() error
	Attempt() uint64
}

// Consumer pulls job descriptors from the work queue with a bounded long
// poll. An empty result after the wait elapses is not an error.
type Consumer interface {
	Fetch(ctx context.Context, max int) ([]Delivery, error)
}

// Publisher enqueues job descriptors. Used by the enqueue path only.
type Publisher interface {
	Publish(ctx context.Context, msg models.JobMessage) error
}
