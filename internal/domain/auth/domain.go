package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredential covers every signature, expiry and lookup failure.
	// The cause is never exposed.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrDuplicateToken is returned when a refresh token string is already stored.
	ErrDuplicateToken = errors.New("duplicate refresh token")
	// ErrStorageUnavailable marks infrastructure failures of the token store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrAuthentication is the single unauthorized outcome for protected routes.
	ErrAuthentication = errors.New("authentication required")
)

// Payload identifies the principal a credential was minted for.
type Payload struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
