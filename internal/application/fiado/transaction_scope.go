package fiado

import (
	"context"

	"github.com/kiosco/fiados/internal/domain/fiado"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every state-changing ledger operation runs inside exactly one Execute call:
// reads, validation and writes either commit together or not at all.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back and the error returned.
	// The ctx passed to fn is detached from the caller's cancellation and
	// bounded by the store's transaction timeout; fn must use it for every call.
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to one transaction.
// Fiados read through FiadoRepo().FindByIDForUpdate stay locked until the
// transaction ends.
type TransactionalRepositories interface {
	// ClienteRepo returns the client repository scoped to the current transaction
	ClienteRepo() fiado.ClienteRepository
	// FiadoRepo returns the fiado repository scoped to the current transaction
	FiadoRepo() fiado.FiadoRepository
	// PagoRepo returns the payment repository scoped to the current transaction
	PagoRepo() fiado.PagoRepository
}

// NoOpTransactionScope runs the function against plain repositories without a
// transaction. It is meant for tests with mocked repositories.
type NoOpTransactionScope struct {
	clienteRepo fiado.ClienteRepository
	fiadoRepo   fiado.FiadoRepository
	pagoRepo    fiado.PagoRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	clienteRepo fiado.ClienteRepository,
	fiadoRepo fiado.FiadoRepository,
	pagoRepo fiado.PagoRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		clienteRepo: clienteRepo,
		fiadoRepo:   fiadoRepo,
		pagoRepo:    pagoRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	return fn(ctx, s)
}

// ClienteRepo returns the client repository.
func (s *NoOpTransactionScope) ClienteRepo() fiado.ClienteRepository {
	return s.clienteRepo
}

// FiadoRepo returns the fiado repository.
func (s *NoOpTransactionScope) FiadoRepo() fiado.FiadoRepository {
	return s.fiadoRepo
}

// PagoRepo returns the payment repository.
func (s *NoOpTransactionScope) PagoRepo() fiado.PagoRepository {
	return s.pagoRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
