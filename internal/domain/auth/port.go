package auth

import (
	"context"
	"time"
)

type RefreshTokenRepo interface {
	// FindByToken returns (nil, nil) when no record matches.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	Insert(ctx context.Context, t *RefreshToken) error
	// DeleteByID reports whether a row was removed. Concurrent rotations of
	// the same token are serialized here.
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteAllByOwner(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
