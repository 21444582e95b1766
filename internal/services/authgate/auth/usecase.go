package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	authn "github.com/NordCoder/Authgate/internal/auth"
	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
	"github.com/NordCoder/Authgate/internal/domain/user"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/password"
	"github.com/NordCoder/Authgate/internal/repository/postgres"

	"go.uber.org/zap"
)

const (
	MsgRegistered      = "user registered"
	MsgEmailTaken      = "user with this email already exists"
	MsgLoggedIn        = "logged in"
	MsgBadCredentials  = "invalid email or password"
	MsgRefreshed       = "tokens refreshed"
	MsgBadRefresh      = "invalid or expired refresh token"
	MsgLoggedOut       = "logged out"
	MsgTokenNotFound   = "token not found"
	MsgLoggedOutAll    = "logged out from all devices"
	MsgUnauthenticated = "unauthorized"
	MsgPasswordTooLong = "password must be at most 72 bytes"
)

// TokenStore is the slice of auth.Store the handlers need.
type TokenStore interface {
	MintPair(ctx context.Context, userID int64, email string) (domainauth.TokenPair, error)
	Rotate(ctx context.Context, refresh string) (domainauth.TokenPair, bool, error)
	RevokeOne(ctx context.Context, token string) (bool, error)
	RevokeAllForOwner(ctx context.Context, userID int64) error
}

type AccessVerifier interface {
	VerifyAccess(token string) (domainauth.Payload, bool)
}

type Events interface {
	UserRegistered(ctx context.Context, u *user.User) error
}

type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	User    *UserView             `json:"user,omitempty"`
	Tokens  *domainauth.TokenPair `json:"tokens,omitempty"`
}

type RefreshResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Tokens  *domainauth.TokenPair `json:"tokens,omitempty"`
}

type StatusResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Deps struct {
	Users    user.Repo
	Tokens   TokenStore
	Verifier AccessVerifier
	Hasher   password.Hasher
	Tx       postgres.Transactor
	Events   Events
	Logger   *zap.Logger
	Now      func() time.Time
}

type Usecase struct {
	users    user.Repo
	tokens   TokenStore
	verifier AccessVerifier
	hasher   password.Hasher
	tx       postgres.Transactor
	events   Events
	log      *zap.Logger
	now      func() time.Time
}

func NewUseCase(d Deps) *Usecase {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tx == nil {
		d.Tx = noTx{}
	}
	if d.Events == nil {
		d.Events = noEvents{}
	}
	return &Usecase{
		users:    d.Users,
		tokens:   d.Tokens,
		verifier: d.Verifier,
		hasher:   d.Hasher,
		tx:       d.Tx,
		events:   d.Events,
		log:      d.Logger.With(zap.String("component", "auth")),
		now:      d.Now,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates the principal and issues its first pair. The user row,
// its outbox event and the refresh record commit together.
func (u *Usecase) Register(ctx context.Context, email, plain string) (AuthResult, error) {
	email = normalizeEmail(email)
	log := obs.WithTrace(ctx, u.log)

	if _, err := u.users.GetByEmail(ctx, email); err == nil {
		log.Info("auth.register rejected", zap.String("email", email))
		return AuthResult{Message: MsgEmailTaken}, nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := u.hasher.Hash(plain)
	if errors.Is(err, password.ErrTooLong) {
		return AuthResult{Message: MsgPasswordTooLong}, nil
	}
	if err != nil {
		return AuthResult{}, err
	}

	now := u.now()
	created := &user.User{Email: email, Password: hash, CreatedAt: now, UpdatedAt: now}
	var pair domainauth.TokenPair

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.users.Create(ctx, created); err != nil {
			return err
		}
		if err := u.events.UserRegistered(ctx, created); err != nil {
			return err
		}
		p, err := u.tokens.MintPair(ctx, created.ID, created.Email)
		pair = p
		return err
	})
	if errors.Is(err, user.ErrEmailExists) {
		log.Info("auth.register rejected", zap.String("email", email))
		return AuthResult{Message: MsgEmailTaken}, nil
	}
	if err != nil {
		return AuthResult{}, err
	}

	log.Info("auth.register", zap.Int64("user_id", created.ID), zap.String("email", email))
	return AuthResult{Success: true, Message: MsgRegistered, User: view(created), Tokens: &pair}, nil
}

// Login issues a fresh pair for an existing principal. Alternate devices
// keep their own pairs.
func (u *Usecase) Login(ctx context.Context, email, plain string) (AuthResult, error) {
	email = normalizeEmail(email)
	log := obs.WithTrace(ctx, u.log)

	rec, err := u.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		log.Info("auth.login rejected", zap.String("email", email))
		return AuthResult{Message: MsgBadCredentials}, nil
	}
	if err != nil {
		return AuthResult{}, err
	}

	ok, err := u.hasher.Verify(rec.Password, plain)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		log.Info("auth.login rejected", zap.String("email", email))
		return AuthResult{Message: MsgBadCredentials}, nil
	}

	pair, err := u.tokens.MintPair(ctx, rec.ID, rec.Email)
	if err != nil {
		return AuthResult{}, err
	}

	log.Info("auth.login", zap.Int64("user_id", rec.ID))
	return AuthResult{Success: true, Message: MsgLoggedIn, User: view(rec), Tokens: &pair}, nil
}

func (u *Usecase) Refresh(ctx context.Context, refresh string) (RefreshResult, error) {
	pair, ok, err := u.tokens.Rotate(ctx, refresh)
	if err != nil {
		return RefreshResult{}, err
	}
	if !ok {
		obs.WithTrace(ctx, u.log).Info("auth.refresh rejected")
		return RefreshResult{Message: MsgBadRefresh}, nil
	}
	obs.WithTrace(ctx, u.log).Info("auth.refresh")
	return RefreshResult{Success: true, Message: MsgRefreshed, Tokens: &pair}, nil
}

func (u *Usecase) Logout(ctx context.Context, refresh string) (StatusResult, error) {
	revoked, err := u.tokens.RevokeOne(ctx, refresh)
	if err != nil {
		return StatusResult{}, err
	}
	obs.WithTrace(ctx, u.log).Info("auth.logout", zap.Bool("revoked", revoked))
	if !revoked {
		return StatusResult{Message: MsgTokenNotFound}, nil
	}
	return StatusResult{Success: true, Message: MsgLoggedOut}, nil
}

func (u *Usecase) LogoutAll(ctx context.Context, userID int64) (StatusResult, error) {
	if err := u.tokens.RevokeAllForOwner(ctx, userID); err != nil {
		return StatusResult{}, err
	}
	obs.WithTrace(ctx, u.log).Info("auth.logout_all", zap.Int64("user_id", userID))
	return StatusResult{Success: true, Message: MsgLoggedOutAll}, nil
}

// Authenticate resolves an Authorization header value to the access payload.
func (u *Usecase) Authenticate(header string) (domainauth.Payload, error) {
	token, ok := authn.ParseBearer(header)
	if !ok {
		return domainauth.Payload{}, domainauth.ErrAuthentication
	}
	p, ok := u.verifier.VerifyAccess(token)
	if !ok {
		return domainauth.Payload{}, domainauth.ErrAuthentication
	}
	return p, nil
}

func view(u *user.User) *UserView {
	return &UserView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type noEvents struct{}

func (noEvents) UserRegistered(context.Context, *user.User) error { return nil }
