package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgDuplicateKeyCode         = "23505"
	pgForeignKeyCode           = "23503"
	pgSerializationFailureCode = "40001"
	pgDeadlockDetectedCode     = "40P01"
)

// MapError translates database errors to domain errors.
// It maps sql.ErrNoRows to notFoundErr and PostgreSQL unique violation (23505)
// to duplicateErr. Other errors are returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode {
		return duplicateErr
	}

	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation (23505).
// When constraint is non-empty, the violated constraint name must also match.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgDuplicateKeyCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsRetryable reports whether err is a serialization failure (40001) or a
// deadlock (40P01). Re-running the whole transaction may succeed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailureCode || pgErr.Code == pgDeadlockDetectedCode
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (23503), optionally on the named constraint.
func IsForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgForeignKeyCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
