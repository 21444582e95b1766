package auth

import (
	"fmt"
	"time"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessSecret  = "default-access-secret"
	DefaultRefreshSecret = "default-refresh-secret"

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

type IssuerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// UsesDefaultSecrets reports whether either secret falls back to the
// development placeholder.
func (c IssuerConfig) UsesDefaultSecrets() bool {
	return len(c.AccessSecret) == 0 || string(c.AccessSecret) == DefaultAccessSecret ||
		len(c.RefreshSecret) == 0 || string(c.RefreshSecret) == DefaultRefreshSecret
}

type claims struct {
	domainauth.Payload
	Use string `json:"use"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 credentials. It performs no I/O.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if len(cfg.AccessSecret) == 0 {
		cfg.AccessSecret = []byte(DefaultAccessSecret)
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = []byte(DefaultRefreshSecret)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
	}
}

func (i *Issuer) MintAccess(p domainauth.Payload) (string, error) {
	token, _, err := i.mint(p, useAccess, i.accessSecret, i.accessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access: %w", err)
	}
	return token, nil
}

// MintRefresh also returns the expiry instant encoded in the token.
func (i *Issuer) MintRefresh(p domainauth.Payload) (string, time.Time, error) {
	token, exp, err := i.mint(p, useRefresh, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh: %w", err)
	}
	return token, exp, nil
}

func (i *Issuer) VerifyAccess(token string) (domainauth.Payload, bool) {
	return i.verify(token, useAccess, i.accessSecret)
}

func (i *Issuer) VerifyRefresh(token string) (domainauth.Payload, bool) {
	return i.verify(token, useRefresh, i.refreshSecret)
}

func (i *Issuer) mint(p domainauth.Payload, use string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := jwt.NewNumericDate(now.Add(ttl))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Payload: p,
		Use:     use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

// verify collapses every failure into ok=false. A token presented exactly
// at its exp instant is expired.
func (i *Issuer) verify(token, use string, secret []byte) (domainauth.Payload, bool) {
	if token == "" {
		return domainauth.Payload{}, false
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid || c.Use != use {
		return domainauth.Payload{}, false
	}
	return c.Payload, true
}
