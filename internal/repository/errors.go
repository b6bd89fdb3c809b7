package repository

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ErrIntegrity marks a commit rejected by a uniqueness, non-null, check or
// foreign-key constraint. Nothing from the failed commit is persisted.
var ErrIntegrity = errors.New("integrity constraint violated")

// ErrNotFound marks a commit whose staged update matched no row.
var ErrNotFound = errors.New("record not found")

// IsIntegrityViolation reports whether err came from a constraint failure in
// either supported driver or from model validation.
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrIntegrity) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	// SQLSTATE class 23: integrity constraint violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}

	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}
