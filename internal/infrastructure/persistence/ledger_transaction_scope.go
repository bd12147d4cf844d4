package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	appfiado "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTxTimeout bounds a ledger transaction when none is configured
const DefaultTxTimeout = 5 * time.Second

// GormTransactionScope implements the ledger TransactionScope using GORM transactions.
//
// The transaction context keeps the caller's values but not its
// cancellation: once started, a unit of work runs to commit or rollback and
// is only bounded by the transaction timeout. Lock waits count against it.
type GormTransactionScope struct {
	db          *gorm.DB
	timeout     time.Duration
	lockTimeout time.Duration
	logger      *zap.Logger
}

// TransactionScopeOption configures a GormTransactionScope
type TransactionScopeOption func(*GormTransactionScope)

// WithTxTimeout sets the bound on one whole transaction
func WithTxTimeout(d time.Duration) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLockTimeout sets PostgreSQL's lock_timeout for row locks taken inside
// the transaction. Zero leaves lock waits bounded by the transaction timeout only.
func WithLockTimeout(d time.Duration) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.lockTimeout = d
	}
}

// WithScopeLogger sets the logger for rollback diagnostics
func WithScopeLogger(logger *zap.Logger) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.logger = logger
	}
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...TransactionScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{
		db:      db,
		timeout: DefaultTxTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back and the error is
// returned as a domain error or a storage error; nothing else escapes.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appfiado.TransactionalRepositories) error) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(txCtx, &gormTransactionalRepositories{tx: tx})
	})
	if err == nil {
		return nil
	}

	// A driver error raised because the deadline fired is still a timeout.
	if errors.Is(txCtx.Err(), context.DeadlineExceeded) && !isTranslated(err) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	translated := translateError("transaction", err)
	s.logger.Debug("Ledger transaction rolled back", zap.Error(translated))
	return translated
}

// gormTransactionalRepositories provides access to the ledger repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ClienteRepo returns the client repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ClienteRepo() fiado.ClienteRepository {
	return NewGormClienteRepository(r.tx)
}

// FiadoRepo returns the fiado repository scoped to the current transaction.
func (r *gormTransactionalRepositories) FiadoRepo() fiado.FiadoRepository {
	return NewGormFiadoRepository(r.tx)
}

// PagoRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PagoRepo() fiado.PagoRepository {
	return NewGormPagoRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfiado.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appfiado.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
