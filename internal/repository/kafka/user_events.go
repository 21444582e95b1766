package kafka

import (
	"context"

	"github.com/NordCoder/Authgate/internal/domain/outbox"

	"github.com/segmentio/kafka-go"
)

// EventHeader names the header that carries the event kind.
const EventHeader = "event"

// UserEvents publishes user lifecycle events keyed by user id, so every
// event of one user lands in the same partition.
type UserEvents struct {
	p *Producer
}

func NewUserEvents(p *Producer) *UserEvents { return &UserEvents{p: p} }

func (e *UserEvents) PublishUserEvent(ctx context.Context, kind outbox.Kind, userID int64, data []byte) error {
	return e.p.Publish(ctx, KeyFromInt64(userID), data, kafka.Header{Key: EventHeader, Value: []byte(kind.String())})
}
