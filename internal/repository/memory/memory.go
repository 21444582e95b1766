// Package memory keeps users and refresh tokens in process memory. It backs
// db.driver=memory for local runs and the usecase tests. Deleting a user
// drops its roles and refresh tokens, like the FK cascades in postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
	"github.com/NordCoder/Authgate/internal/domain/user"
)

var (
	_ user.Repo                   = (*DB)(nil)
	_ domainauth.RefreshTokenRepo = (*Tokens)(nil)
)

type DB struct {
	mu      sync.Mutex
	now     func() time.Time
	userSeq int64
	users   map[int64]*user.User
	tokSeq  int64
	tokens  map[int64]*domainauth.RefreshToken
}

func New(now func() time.Time) *DB {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DB{
		now:    now,
		users:  map[int64]*user.User{},
		tokens: map[int64]*domainauth.RefreshToken{},
	}
}

// Tokens exposes the refresh-token half of the store.
func (db *DB) Tokens() *Tokens { return &Tokens{db: db} }

func cloneUser(u *user.User) *user.User {
	cp := *u
	cp.Roles = append([]user.Role{}, u.Roles...)
	return &cp
}

func (db *DB) emailTaken(email string, except int64) bool {
	for id, u := range db.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (db *DB) Create(_ context.Context, u *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.emailTaken(u.Email, 0) {
		return user.ErrEmailExists
	}
	db.userSeq++
	now := db.now()
	u.ID = db.userSeq
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Roles == nil {
		u.Roles = []user.Role{}
	}
	db.users[u.ID] = cloneUser(u)
	return nil
}

func (db *DB) GetByID(_ context.Context, id int64) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (db *DB) GetByEmail(_ context.Context, email string) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (db *DB) List(_ context.Context) ([]*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*user.User, 0, len(db.users))
	for _, u := range db.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update keeps the stored password when u.Password is empty.
func (db *DB) Update(_ context.Context, u *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	if db.emailTaken(u.Email, u.ID) {
		return user.ErrEmailExists
	}
	cur.Email = u.Email
	if u.Password != "" {
		cur.Password = u.Password
	}
	cur.UpdatedAt = db.now()

	roles := u.Roles
	*u = *cloneUser(cur)
	if roles != nil {
		u.Roles = roles
	}
	return nil
}

func (db *DB) Delete(_ context.Context, id int64) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	delete(db.users, id)
	for tid, t := range db.tokens {
		if t.UserID == id {
			delete(db.tokens, tid)
		}
	}
	return cloneUser(u), nil
}

func (db *DB) ReplaceRoles(_ context.Context, userID int64, roles []user.Role) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Roles = append([]user.Role{}, roles...)
	return nil
}

type Tokens struct {
	db *DB
}

func (t *Tokens) FindByToken(_ context.Context, token string) (*domainauth.RefreshToken, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for _, rec := range t.db.tokens {
		if rec.Token == token {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *Tokens) Insert(_ context.Context, rec *domainauth.RefreshToken) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for _, existing := range t.db.tokens {
		if existing.Token == rec.Token {
			return domainauth.ErrDuplicateToken
		}
	}
	t.db.tokSeq++
	rec.ID = t.db.tokSeq
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.db.now()
	}
	cp := *rec
	t.db.tokens[rec.ID] = &cp
	return nil
}

func (t *Tokens) DeleteByID(_ context.Context, id int64) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if _, ok := t.db.tokens[id]; !ok {
		return false, nil
	}
	delete(t.db.tokens, id)
	return true, nil
}

func (t *Tokens) DeleteByToken(_ context.Context, token string) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for id, rec := range t.db.tokens {
		if rec.Token == token {
			delete(t.db.tokens, id)
			return true, nil
		}
	}
	return false, nil
}

func (t *Tokens) DeleteAllByOwner(_ context.Context, userID int64) (int64, error) {
	return t.deleteWhere(func(rec *domainauth.RefreshToken) bool { return rec.UserID == userID }), nil
}

func (t *Tokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return t.deleteWhere(func(rec *domainauth.RefreshToken) bool { return !rec.ExpiresAt.After(before) }), nil
}

// CountForOwner is used by tests to inspect the stored records.
func (t *Tokens) CountForOwner(userID int64) int {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	n := 0
	for _, rec := range t.db.tokens {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

func (t *Tokens) deleteWhere(match func(*domainauth.RefreshToken) bool) int64 {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	var n int64
	for id, rec := range t.db.tokens {
		if match(rec) {
			delete(t.db.tokens, id)
			n++
		}
	}
	return n
}
