package postgres

import (
	"context"
	"errors"

	"github.com/NordCoder/Authgate/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (email, password_hash)
VALUES ($1, $2)
RETURNING id, email, password_hash, created_at, updated_at;`

	qUserByID = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE email = $1;`

	qUserList = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
ORDER BY id;`

	qUserUpdate = `
UPDATE users
SET email         = $2,
    password_hash = COALESCE(NULLIF($3, ''), password_hash),
    updated_at    = NOW()
WHERE id = $1
RETURNING id, email, password_hash, created_at, updated_at;`

	qUserDelete = `
DELETE FROM users
WHERE id = $1
RETURNING id, email, password_hash, created_at, updated_at;`

	qRolesByUsers = `
SELECT user_id, role
FROM roles
WHERE user_id = ANY($1)
ORDER BY id;`

	qRolesDelete = `
DELETE FROM roles WHERE user_id = $1;`

	qRoleInsert = `
INSERT INTO roles (user_id, role) VALUES ($1, $2);`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	roles := u.Roles
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert, u.Email, u.Password), u); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return user.ErrEmailExists
		}
		return err
	}
	u.Roles = roles
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, qUserByID, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, qUserByEmail, email)
}

func (r *UserRepo) List(ctx context.Context) ([]*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserList)
	if err != nil {
		return nil, storageErr("user list", err)
	}
	defer rows.Close()

	out := make([]*user.User, 0)
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("user list", err)
	}
	rows.Close()

	if err := r.loadRoles(ctx, out...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	roles := u.Roles
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserUpdate, u.ID, u.Email, u.Password), u); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		if pgCode(err) == pgUniqueViolation {
			return user.ErrEmailExists
		}
		return err
	}
	u.Roles = roles
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserDelete, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ReplaceRoles drops the user's roles and inserts the given set. Call it
// inside a Transactor to keep the swap atomic.
func (r *UserRepo) ReplaceRoles(ctx context.Context, userID int64, roles []user.Role) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qRolesDelete, userID); err != nil {
		return storageErr("roles delete", err)
	}
	for _, role := range roles {
		if _, err := eq.Exec(ctx, qRoleInsert, userID, role.Role); err != nil {
			return storageErr("role insert", err)
		}
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, q, arg), &u); err != nil {
		return nil, err
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) loadRoles(ctx context.Context, users ...*user.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(users))
	byID := make(map[int64]*user.User, len(users))
	for _, u := range users {
		u.Roles = []user.Role{}
		ids = append(ids, u.ID)
		byID[u.ID] = u
	}

	rows, err := r.db.execQueryer(ctx).Query(ctx, qRolesByUsers, ids)
	if err != nil {
		return storageErr("roles load", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			uid  int64
			role string
		)
		if err := rows.Scan(&uid, &role); err != nil {
			return storageErr("scan role", err)
		}
		if u, ok := byID[uid]; ok {
			u.Roles = append(u.Roles, user.Role{Role: role})
		}
	}
	return rows.Err()
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Email, &out.Password, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return storageErr("scan user", err)
	}
	return nil
}
