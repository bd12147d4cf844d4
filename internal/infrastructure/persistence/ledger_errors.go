package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the ledger store reacts to
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// translateError maps driver and gorm errors onto the ledger's failure kinds.
// Domain errors and already translated storage errors pass through untouched.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	var storageErr *shared.StorageError
	if errors.As(err, &storageErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), pgconn.Timeout(err):
		return &shared.StorageError{Op: op, Timeout: true, Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError("ALREADY_EXISTS", "A record with the same unique key already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewStorageError(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgQueryCanceled:
			return &shared.StorageError{Op: op, Timeout: true, Err: err}
		case pgSerializationFailure, pgDeadlockDetected:
			return shared.NewConflictError(op, err)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return &shared.StorageError{Op: op, Timeout: true, Err: err}
	}

	return shared.NewStorageError(op, err)
}

// notFound converts gorm's missing-row error into a NOT_FOUND domain error
func notFound(op string, err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewDomainError(shared.ErrNotFound.Code, message)
	}
	return translateError(op, err)
}

// isTranslated reports whether err already is one of the ledger failure kinds
func isTranslated(err error) bool {
	var domainErr *shared.DomainError
	var storageErr *shared.StorageError
	return errors.As(err, &domainErr) || errors.As(err, &storageErr)
}
