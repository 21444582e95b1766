package outbox

import (
	"context"
	"time"
)

// Status is the delivery state of a row in the outbox table.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

type Kind int

const (
	KindUserRegistered Kind = 1
	KindUserDeleted    Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindUserRegistered:
		return "user.registered"
	case KindUserDeleted:
		return "user.deleted"
	default:
		return "unknown"
	}
}

// TraceContext is the W3C context captured when a message was enqueued.
type TraceContext struct {
	Parent  string
	State   string
	Baggage string
}

// Carrier exposes the context under the header names propagators expect.
func (tc TraceContext) Carrier() map[string]string {
	return map[string]string{
		"traceparent": tc.Parent,
		"tracestate":  tc.State,
		"baggage":     tc.Baggage,
	}
}

// TraceContextFromCarrier is the inverse of Carrier.
func TraceContextFromCarrier(c map[string]string) TraceContext {
	return TraceContext{Parent: c["traceparent"], State: c["tracestate"], Baggage: c["baggage"]}
}

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	Trace          TraceContext
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository stores pending messages. Enqueue is expected to join the
// transaction carried by ctx; a repeated key is ignored.
type Repository interface {
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error
	// PickBatch claims up to batch messages that are new or whose claim is
	// older than inProgressTTL.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)
	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)

// UserEvent is the JSON body of every user lifecycle message.
type UserEvent struct {
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}
