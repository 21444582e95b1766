package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Authgate/internal/domain/outbox"
	"github.com/NordCoder/Authgate/internal/domain/user"
)

// Events records user lifecycle messages in the outbox. Call it with the
// ctx of the transaction that changes the user row.
type Events struct {
	repo outbox.Repository
	now  func() time.Time
}

func NewEvents(repo outbox.Repository, now func() time.Time) *Events {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Events{repo: repo, now: now}
}

func (e *Events) UserRegistered(ctx context.Context, u *user.User) error {
	return e.enqueue(ctx, outbox.KindUserRegistered, u)
}

func (e *Events) UserDeleted(ctx context.Context, u *user.User) error {
	return e.enqueue(ctx, outbox.KindUserDeleted, u)
}

func (e *Events) enqueue(ctx context.Context, kind outbox.Kind, u *user.User) error {
	data, err := json.Marshal(outbox.UserEvent{Type: kind.String(), UserID: u.ID, Email: u.Email, At: e.now()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	key := fmt.Sprintf("%s:%d", kind, u.ID)
	return e.repo.Enqueue(ctx, key, kind, data)
}

// NopEvents is used when event publishing is disabled.
type NopEvents struct{}

func (NopEvents) UserRegistered(context.Context, *user.User) error { return nil }
func (NopEvents) UserDeleted(context.Context, *user.User) error    { return nil }
