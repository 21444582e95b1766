package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	authn "github.com/NordCoder/Authgate/internal/auth"
	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
	"github.com/NordCoder/Authgate/internal/domain/user"
	"github.com/NordCoder/Authgate/internal/password"
	"github.com/NordCoder/Authgate/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	uc     *Usecase
	db     *memory.DB
	tokens *memory.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := func() time.Time { return testNow }
	db := memory.New(now)
	tokens := db.Tokens()
	issuer := authn.NewIssuer(authn.IssuerConfig{
		AccessSecret:  []byte("access-test"),
		RefreshSecret: []byte("refresh-test"),
		Now:           now,
	})
	uc := NewUseCase(Deps{
		Users:    db,
		Tokens:   authn.NewStore(issuer, tokens),
		Verifier: issuer,
		Hasher:   password.NewBcrypt(bcrypt.MinCost),
		Now:      now,
	})
	return &fixture{uc: uc, db: db, tokens: tokens}
}

func (f *fixture) register(t *testing.T, email string) AuthResult {
	t.Helper()
	res, err := f.uc.Register(context.Background(), email, "secret-pass")
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res
}

func TestRegister_ThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.register(t, "A@Example.com ")
	assert.Equal(t, MsgRegistered, res.Message)
	require.NotNil(t, res.User)
	assert.Equal(t, "a@example.com", res.User.Email)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Equal(t, 1, f.tokens.CountForOwner(res.User.ID))

	again, err := f.uc.Register(ctx, "a@example.com", "other-pass")
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, MsgEmailTaken, again.Message)
	assert.Nil(t, again.Tokens)
	assert.Nil(t, again.User)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "b@example.com")

	res, err := f.uc.Login(ctx, "b@example.com", "secret-pass")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEqual(t, reg.Tokens.RefreshToken, res.Tokens.RefreshToken)
	assert.Equal(t, 2, f.tokens.CountForOwner(reg.User.ID))

	bad, err := f.uc.Login(ctx, "b@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.Equal(t, MsgBadCredentials, bad.Message)

	unknown, err := f.uc.Login(ctx, "nobody@example.com", "secret-pass")
	require.NoError(t, err)
	assert.False(t, unknown.Success)
	assert.Equal(t, MsgBadCredentials, unknown.Message)
	assert.Equal(t, 2, f.tokens.CountForOwner(reg.User.ID))
}

func TestRefresh_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "c@example.com")

	first, err := f.uc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.Equal(t, MsgRefreshed, first.Message)

	replay, err := f.uc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, replay.Success)
	assert.Equal(t, MsgBadRefresh, replay.Message)

	next, err := f.uc.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, next.Success)
	assert.Equal(t, 1, f.tokens.CountForOwner(reg.User.ID))
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "d@example.com")

	res, err := f.uc.Refresh(context.Background(), reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, f.tokens.CountForOwner(reg.User.ID))
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "e@example.com")

	res, err := f.uc.Logout(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgLoggedOut, res.Message)

	res, err = f.uc.Logout(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgTokenNotFound, res.Message)

	res, err = f.uc.Logout(ctx, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestLogoutAll_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.register(t, "a@example.com")
	_, err := f.uc.Login(ctx, "a@example.com", "secret-pass")
	require.NoError(t, err)
	b := f.register(t, "b@example.com")
	c := f.register(t, "c@example.com")
	require.Equal(t, 2, f.tokens.CountForOwner(a.User.ID))

	res, err := f.uc.LogoutAll(ctx, a.User.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgLoggedOutAll, res.Message)

	assert.Equal(t, 0, f.tokens.CountForOwner(a.User.ID))
	assert.Equal(t, 1, f.tokens.CountForOwner(b.User.ID))
	assert.Equal(t, 1, f.tokens.CountForOwner(c.User.ID))

	again, err := f.uc.Refresh(ctx, a.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, again.Success)

	bRot, err := f.uc.Refresh(ctx, b.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, bRot.Success)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "f@example.com")

	p, err := f.uc.Authenticate("Bearer " + reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, p.UserID)
	assert.Equal(t, "f@example.com", p.Email)

	for _, h := range []string{
		"",
		reg.Tokens.AccessToken,
		"Bearer ",
		"Bearer " + reg.Tokens.RefreshToken,
		"Basic " + reg.Tokens.AccessToken,
	} {
		_, err := f.uc.Authenticate(h)
		assert.ErrorIs(t, err, domainauth.ErrAuthentication, h)
	}
}

type failingStore struct{ err error }

func (s failingStore) MintPair(context.Context, int64, string) (domainauth.TokenPair, error) {
	return domainauth.TokenPair{}, s.err
}
func (s failingStore) Rotate(context.Context, string) (domainauth.TokenPair, bool, error) {
	return domainauth.TokenPair{}, false, s.err
}
func (s failingStore) RevokeOne(context.Context, string) (bool, error) { return false, s.err }
func (s failingStore) RevokeAllForOwner(context.Context, int64) error  { return s.err }

func TestStorageFailurePropagates(t *testing.T) {
	storeErr := fmt.Errorf("%w: %w", domainauth.ErrStorageUnavailable, errors.New("conn refused"))
	db := memory.New(nil)
	uc := NewUseCase(Deps{
		Users:  db,
		Tokens: failingStore{err: storeErr},
		Hasher: password.NewBcrypt(bcrypt.MinCost),
	})
	ctx := context.Background()

	_, err := uc.Register(ctx, "g@example.com", "secret-pass")
	assert.ErrorIs(t, err, domainauth.ErrStorageUnavailable)
	_, err = uc.Refresh(ctx, "whatever")
	assert.ErrorIs(t, err, domainauth.ErrStorageUnavailable)
	_, err = uc.Logout(ctx, "whatever")
	assert.ErrorIs(t, err, domainauth.ErrStorageUnavailable)
	_, err = uc.LogoutAll(ctx, 1)
	assert.ErrorIs(t, err, domainauth.ErrStorageUnavailable)
}

type recordingEvents struct {
	got []*user.User
	err error
}

func (e *recordingEvents) UserRegistered(_ context.Context, u *user.User) error {
	e.got = append(e.got, u)
	return e.err
}

func TestRegister_EmitsEvent(t *testing.T) {
	f := newFixture(t)
	ev := &recordingEvents{}
	f.uc.events = ev

	res := f.register(t, "h@example.com")
	require.Len(t, ev.got, 1)
	assert.Equal(t, res.User.ID, ev.got[0].ID)

	ev.err = errors.New("outbox down")
	_, err := f.uc.Register(context.Background(), "i@example.com", "secret-pass")
	require.Error(t, err)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Register(ctx, "long@example.com", strings.Repeat("p", password.MaxLength+1))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgPasswordTooLong, res.Message)

	_, err = f.db.GetByEmail(ctx, "long@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	res, err = f.uc.Register(ctx, "edge@example.com", strings.Repeat("p", password.MaxLength))
	require.NoError(t, err)
	assert.True(t, res.Success)
}
