package postgres

import (
	"errors"
	"fmt"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var ErrConstraint = errors.New("constraint violation")

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// storageErr keeps both the op context and the original cause reachable via errors.Is.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domainauth.ErrStorageUnavailable, err)
}
