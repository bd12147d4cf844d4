package fiado

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FiadoFilter defines filtering options for fiado queries
type FiadoFilter struct {
	Estado    *Estado    // Filter by estado
	ClienteID *uuid.UUID // Filter by client
}

// ClienteRepository defines the interface for client persistence
type ClienteRepository interface {
	// FindByID finds a client by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Cliente, error)

	// FindByNombre finds a client by exact (trimmed) name
	FindByNombre(ctx context.Context, nombre string) (*Cliente, error)

	// FindAll lists clients ordered by name
	FindAll(ctx context.Context, soloActivos bool) ([]Cliente, error)

	// ExistsByNombre checks name uniqueness
	ExistsByNombre(ctx context.Context, nombre string) (bool, error)

	// Save creates or updates a client
	Save(ctx context.Context, cliente *Cliente) error
}

// FiadoRepository defines the interface for fiado persistence
type FiadoRepository interface {
	// FindByID finds a fiado by ID without locking
	FindByID(ctx context.Context, id uuid.UUID) (*Fiado, error)

	// FindByIDForUpdate finds a fiado and locks its row until the surrounding
	// transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Fiado, error)

	// FindOpenByClienteForUpdate locks and returns every Pendiente or Parcial
	// fiado of a client in ascending creation order
	FindOpenByClienteForUpdate(ctx context.Context, clienteID uuid.UUID) ([]*Fiado, error)

	// FindAll lists fiados newest first
	FindAll(ctx context.Context, filter FiadoFilter) ([]Fiado, error)

	// Create inserts a new fiado
	Create(ctx context.Context, f *Fiado) error

	// SaveWithLock updates a fiado if its persisted version is still the
	// one it was read with
	SaveWithLock(ctx context.Context, f *Fiado) error

	// Delete removes a fiado
	Delete(ctx context.Context, id uuid.UUID) error
}

// PagoRepository defines the interface for payment persistence
type PagoRepository interface {
	// Create appends a payment
	Create(ctx context.Context, pago *PagoFiado) error

	// FindByFiado lists a fiado's payments newest first
	FindByFiado(ctx context.Context, fiadoID uuid.UUID) ([]PagoFiado, error)

	// FindByCliente lists every payment of a client's fiados newest first
	FindByCliente(ctx context.Context, clienteID uuid.UUID) ([]PagoFiado, error)

	// DeleteByFiado removes the payments of a fiado being deleted
	DeleteByFiado(ctx context.Context, fiadoID uuid.UUID) error
}

// Totals aggregates fiado counts and sums
type Totals struct {
	Cantidad       int64
	Pendientes     int64
	Parciales      int64
	Pagados        int64
	MontoTotal     decimal.Decimal
	MontoPagado    decimal.Decimal
	SaldoPendiente decimal.Decimal
	CantidadPagos  int64
}

// ReportRepository computes read-only aggregates
type ReportRepository interface {
	// ClienteTotals aggregates the fiados and payments of one client
	ClienteTotals(ctx context.Context, clienteID uuid.UUID) (*Totals, error)

	// GlobalTotals aggregates every fiado
	GlobalTotals(ctx context.Context) (*Totals, error)
}
