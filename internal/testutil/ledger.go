package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultStart is the initial time of the fixture clock.
var DefaultStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Ledger is the whole application layer wired over an in-memory sqlite store.
type Ledger struct {
	DB       *gorm.DB
	Clock    *Clock
	Clientes *fiadoapp.ClienteService
	Ledger   *fiadoapp.LedgerService
	Queries  *fiadoapp.QueryService
}

// NewLedger migrates a fresh sqlite database and builds the services over it.
// Extra options are applied to the LedgerService after the clock and logger.
func NewLedger(t *testing.T, opts ...fiadoapp.LedgerOption) *Ledger {
	t.Helper()

	db := NewSQLiteDB(t)
	require.NoError(t, persistence.AutoMigrate(db))

	clock := NewClock(DefaultStart)
	log := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db, persistence.WithTxTimeout(5*time.Second))

	clientes := persistence.NewGormClienteRepository(db)
	fiados := persistence.NewGormFiadoRepository(db)
	pagos := persistence.NewGormPagoRepository(db)
	reports := persistence.NewGormLedgerReportRepository(db)

	ledgerOpts := append([]fiadoapp.LedgerOption{
		fiadoapp.WithClock(clock.Now),
		fiadoapp.WithLogger(log),
	}, opts...)

	return &Ledger{
		DB:       db,
		Clock:    clock,
		Clientes: fiadoapp.NewClienteService(scope, clientes, clock.Now, log),
		Ledger:   fiadoapp.NewLedgerService(scope, ledgerOpts...),
		Queries:  fiadoapp.NewQueryService(clientes, fiados, pagos, reports),
	}
}

// Cliente registers a client and returns its id.
func (l *Ledger) Cliente(t *testing.T, nombre string) uuid.UUID {
	t.Helper()
	c, err := l.Clientes.AgregarCliente(context.Background(), fiadoapp.AgregarClienteRequest{Nombre: nombre})
	require.NoError(t, err)
	return c.ID
}

// Fiado extends credit to clienteID and advances the clock one minute so
// creation order is strict.
func (l *Ledger) Fiado(t *testing.T, clienteID uuid.UUID, monto, interes string) *fiadoapp.FiadoResponse {
	t.Helper()
	req := fiadoapp.CrearFiadoRequest{
		ClienteID:     clienteID,
		MontoOriginal: decimal.RequireFromString(monto),
	}
	if interes != "" {
		req.InteresPorcentaje = decimal.RequireFromString(interes)
	}
	f, err := l.Ledger.CrearFiado(context.Background(), req)
	require.NoError(t, err)
	l.Clock.Advance(time.Minute)
	return f
}

// Pago registers a payment against fiadoID.
func (l *Ledger) Pago(t *testing.T, fiadoID uuid.UUID, monto string) *fiadoapp.PagoResult {
	t.Helper()
	r, err := l.Ledger.RegistrarPago(context.Background(), fiadoID, fiadoapp.RegistrarPagoRequest{
		Monto: decimal.RequireFromString(monto),
	})
	require.NoError(t, err)
	l.Clock.Advance(time.Minute)
	return r
}
