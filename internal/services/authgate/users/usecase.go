package users

import (
	"context"
	"strings"
	"time"

	"github.com/NordCoder/Authgate/internal/domain/user"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/password"
	"github.com/NordCoder/Authgate/internal/repository/postgres"

	"go.uber.org/zap"
)

type Events interface {
	UserRegistered(ctx context.Context, u *user.User) error
	UserDeleted(ctx context.Context, u *user.User) error
}

// Revoker drops every refresh token of a user.
type Revoker interface {
	RevokeAllForOwner(ctx context.Context, userID int64) error
}

type Deps struct {
	Users   user.Repo
	Revoker Revoker
	Hasher  password.Hasher
	Tx      postgres.Transactor
	Events  Events
	Logger  *zap.Logger
	Now     func() time.Time
}

type Usecase struct {
	users   user.Repo
	revoker Revoker
	hasher  password.Hasher
	tx      postgres.Transactor
	events  Events
	log     *zap.Logger
	clk     func() time.Time
}

func New(d Deps) *Usecase {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tx == nil {
		d.Tx = inline{}
	}
	if d.Events == nil {
		d.Events = nopEvents{}
	}
	return &Usecase{
		users:   d.Users,
		revoker: d.Revoker,
		hasher:  d.Hasher,
		tx:      d.Tx,
		events:  d.Events,
		log:     d.Logger.With(zap.String("component", "users")),
		clk:     d.Now,
	}
}

func (u *Usecase) List(ctx context.Context) ([]*user.User, error) {
	return u.users.List(ctx)
}

func (u *Usecase) Create(ctx context.Context, email, plain string, roles []user.Role) (*user.User, error) {
	hash, err := u.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}
	now := u.clk()
	created := &user.User{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  hash,
		Roles:     normalizeRoles(roles),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.users.Create(ctx, created); err != nil {
			return err
		}
		if err := u.users.ReplaceRoles(ctx, created.ID, created.Roles); err != nil {
			return err
		}
		return u.events.UserRegistered(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	obs.WithTrace(ctx, u.log).Info("users.create", zap.Int64("user_id", created.ID), zap.Int("roles", len(created.Roles)))
	return created, nil
}

// Update replaces email and roles. The password is left as is.
func (u *Usecase) Update(ctx context.Context, id int64, email string, roles []user.Role) (*user.User, error) {
	upd := &user.User{
		ID:    id,
		Email: strings.ToLower(strings.TrimSpace(email)),
		Roles: normalizeRoles(roles),
	}
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.users.Update(ctx, upd); err != nil {
			return err
		}
		return u.users.ReplaceRoles(ctx, id, upd.Roles)
	})
	if err != nil {
		return nil, err
	}
	obs.WithTrace(ctx, u.log).Info("users.update", zap.Int64("user_id", id))
	return upd, nil
}

// Delete removes the user together with its refresh tokens and returns the
// row as it was.
func (u *Usecase) Delete(ctx context.Context, id int64) (*user.User, error) {
	var gone *user.User
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := u.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := u.revoker.RevokeAllForOwner(ctx, id); err != nil {
			return err
		}
		if _, err := u.users.Delete(ctx, id); err != nil {
			return err
		}
		gone = cur
		return u.events.UserDeleted(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	obs.WithTrace(ctx, u.log).Info("users.delete", zap.Int64("user_id", id))
	return gone, nil
}

// normalizeRoles trims names and drops blanks and repeats, keeping order.
func normalizeRoles(in []user.Role) []user.Role {
	out := make([]user.Role, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		name := strings.TrimSpace(r.Role)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, user.Role{Role: name})
	}
	return out
}

type inline struct{}

func (inline) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type nopEvents struct{}

func (nopEvents) UserRegistered(context.Context, *user.User) error { return nil }
func (nopEvents) UserDeleted(context.Context, *user.User) error    { return nil }
