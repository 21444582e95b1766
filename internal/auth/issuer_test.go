package auth

import (
	"strings"
	"testing"
	"time"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestIssuer(clk *fakeClock) *Issuer {
	return NewIssuer(IssuerConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Now:           clk.Now,
	})
}

func TestIssuer_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(newClock())
	p := domainauth.Payload{UserID: 42, Email: "a@x.com"}

	tok, err := iss.MintAccess(p)
	require.NoError(t, err)

	got, ok := iss.VerifyAccess(tok)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestIssuer_AccessExpiresAtBoundary(t *testing.T) {
	t.Parallel()

	clk := newClock()
	iss := newTestIssuer(clk)

	tok, err := iss.MintAccess(domainauth.Payload{UserID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	clk.Advance(15*time.Minute - time.Second)
	_, ok := iss.VerifyAccess(tok)
	assert.True(t, ok, "still valid one second before expiry")

	clk.Advance(time.Second)
	_, ok = iss.VerifyAccess(tok)
	assert.False(t, ok, "exactly at expiry is expired")
}

func TestIssuer_RefreshRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	iss := newTestIssuer(clk)
	p := domainauth.Payload{UserID: 7, Email: "b@x.com"}

	tok, exp, err := iss.MintRefresh(p)
	require.NoError(t, err)
	assert.True(t, clk.Now().Add(7*24*time.Hour).Equal(exp))

	got, ok := iss.VerifyRefresh(tok)
	require.True(t, ok)
	assert.Equal(t, p, got)

	clk.Advance(7 * 24 * time.Hour)
	_, ok = iss.VerifyRefresh(tok)
	assert.False(t, ok)
}

func TestIssuer_ClassesAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(newClock())
	p := domainauth.Payload{UserID: 1, Email: "a@x.com"}

	access, err := iss.MintAccess(p)
	require.NoError(t, err)
	refresh, _, err := iss.MintRefresh(p)
	require.NoError(t, err)

	_, ok := iss.VerifyRefresh(access)
	assert.False(t, ok)
	_, ok = iss.VerifyAccess(refresh)
	assert.False(t, ok)
}

func TestIssuer_SameSecretStillSeparatesClasses(t *testing.T) {
	t.Parallel()

	clk := newClock()
	iss := NewIssuer(IssuerConfig{
		AccessSecret:  []byte("shared"),
		RefreshSecret: []byte("shared"),
		Now:           clk.Now,
	})
	refresh, _, err := iss.MintRefresh(domainauth.Payload{UserID: 1})
	require.NoError(t, err)

	_, ok := iss.VerifyAccess(refresh)
	assert.False(t, ok)
}

func TestIssuer_RejectsMalformedAndForged(t *testing.T) {
	t.Parallel()

	clk := newClock()
	iss := newTestIssuer(clk)
	other := NewIssuer(IssuerConfig{AccessSecret: []byte("other"), Now: clk.Now})

	forged, err := other.MintAccess(domainauth.Payload{UserID: 1})
	require.NoError(t, err)

	valid, err := iss.MintAccess(domainauth.Payload{UserID: 1})
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": 1,
		"use":    useAccess,
		"exp":    clk.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"forged":    forged,
		"tampered":  tampered,
		"alg none":  none,
		"two parts": parts[0] + "." + parts[1],
	} {
		_, ok := iss.VerifyAccess(tok)
		assert.False(t, ok, name)
	}
}

func TestIssuer_DefaultsApplied(t *testing.T) {
	t.Parallel()

	clk := newClock()
	iss := NewIssuer(IssuerConfig{Now: clk.Now})
	assert.Equal(t, []byte(DefaultAccessSecret), iss.accessSecret)
	assert.Equal(t, []byte(DefaultRefreshSecret), iss.refreshSecret)
	assert.Equal(t, DefaultAccessTTL, iss.accessTTL)
	assert.Equal(t, DefaultRefreshTTL, iss.refreshTTL)

	assert.True(t, IssuerConfig{}.UsesDefaultSecrets())
	assert.True(t, IssuerConfig{AccessSecret: []byte("x"), RefreshSecret: []byte(DefaultRefreshSecret)}.UsesDefaultSecrets())
	assert.False(t, IssuerConfig{AccessSecret: []byte("x"), RefreshSecret: []byte("y")}.UsesDefaultSecrets())
}

func TestIssuer_TokensAreUniquePerMint(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(newClock())
	p := domainauth.Payload{UserID: 1, Email: "a@x.com"}

	a, _, err := iss.MintRefresh(p)
	require.NoError(t, err)
	b, _, err := iss.MintRefresh(p)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseBearer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "", false},
		{"BEARER abc", "", false},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"Bearer a b", "", false},
	}
	for _, c := range cases {
		got, ok := ParseBearer(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}
