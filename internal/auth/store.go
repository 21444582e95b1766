package auth

import (
	"context"
	"time"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
)

// Store is the authoritative record of refresh tokens that may still be
// rotated. Minting is delegated to the Issuer.
type Store struct {
	issuer *Issuer
	repo   domainauth.RefreshTokenRepo
}

func NewStore(issuer *Issuer, repo domainauth.RefreshTokenRepo) *Store {
	return &Store{issuer: issuer, repo: repo}
}

// MintPair issues an access/refresh pair and persists the refresh half.
func (s *Store) MintPair(ctx context.Context, userID int64, email string) (domainauth.TokenPair, error) {
	p := domainauth.Payload{UserID: userID, Email: email}

	access, err := s.issuer.MintAccess(p)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	refresh, exp, err := s.issuer.MintRefresh(p)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	if err := s.Persist(ctx, refresh, userID, exp); err != nil {
		return domainauth.TokenPair{}, err
	}
	return domainauth.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Persist fails with domainauth.ErrDuplicateToken if the token is already stored.
func (s *Store) Persist(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return s.repo.Insert(ctx, &domainauth.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: s.issuer.now(),
	})
}

// Rotate consumes refresh and returns a replacement pair. ok is false for
// any verification or lookup failure; err is set only for storage failures.
func (s *Store) Rotate(ctx context.Context, refresh string) (pair domainauth.TokenPair, ok bool, err error) {
	p, valid := s.issuer.VerifyRefresh(refresh)
	if !valid {
		return domainauth.TokenPair{}, false, nil
	}

	rec, err := s.repo.FindByToken(ctx, refresh)
	if err != nil {
		return domainauth.TokenPair{}, false, err
	}
	if rec == nil || !rec.ExpiresAt.After(s.issuer.now()) {
		return domainauth.TokenPair{}, false, nil
	}

	deleted, err := s.repo.DeleteByID(ctx, rec.ID)
	if err != nil {
		return domainauth.TokenPair{}, false, err
	}
	if !deleted {
		// another request consumed it between lookup and delete
		return domainauth.TokenPair{}, false, nil
	}

	pair, err = s.MintPair(ctx, p.UserID, p.Email)
	if err != nil {
		return domainauth.TokenPair{}, false, err
	}
	return pair, true, nil
}

// RevokeOne reports whether a record was removed.
func (s *Store) RevokeOne(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.repo.DeleteByToken(ctx, token)
}

func (s *Store) RevokeAllForOwner(ctx context.Context, userID int64) error {
	_, err := s.repo.DeleteAllByOwner(ctx, userID)
	return err
}

// PurgeExpired drops records whose stored expiration has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.issuer.now())
}
