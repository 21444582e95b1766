package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Authgate/internal/domain/auth"

	"github.com/jackc/pgx/v5"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTInsert = `
INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id;`

	qRTByToken = `
SELECT id, token, user_id, expires_at, created_at
FROM refresh_tokens
WHERE token = $1;`

	qRTDeleteByID = `
DELETE FROM refresh_tokens WHERE id = $1;`

	qRTDeleteByToken = `
DELETE FROM refresh_tokens WHERE token = $1;`

	qRTDeleteByOwner = `
DELETE FROM refresh_tokens WHERE user_id = $1;`

	qRTDeleteExpired = `
DELETE FROM refresh_tokens WHERE expires_at <= $1;`
)

func (r *RefreshTokenRepo) Insert(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qRTInsert, t.Token, t.UserID, t.ExpiresAt, t.CreatedAt).Scan(&t.ID)
	switch {
	case err == nil:
		return nil
	case pgCode(err) == pgUniqueViolation:
		return auth.ErrDuplicateToken
	case pgCode(err) == pgForeignKeyViolation:
		return fmt.Errorf("refresh insert: %w: %w", ErrConstraint, err)
	default:
		return storageErr("refresh insert", err)
	}
}

func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	err := r.db.execQueryer(ctx).QueryRow(ctx, qRTByToken, token).
		Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("refresh find", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	n, err := r.exec(ctx, "refresh delete by id", qRTDeleteByID, id)
	return n > 0, err
}

func (r *RefreshTokenRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := r.exec(ctx, "refresh delete by token", qRTDeleteByToken, token)
	return n > 0, err
}

func (r *RefreshTokenRepo) DeleteAllByOwner(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, "refresh delete by owner", qRTDeleteByOwner, userID)
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "refresh delete expired", qRTDeleteExpired, before)
}

func (r *RefreshTokenRepo) exec(ctx context.Context, op, q string, args ...any) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, q, args...)
	if err != nil {
		return 0, storageErr(op, err)
	}
	return tag.RowsAffected(), nil
}
