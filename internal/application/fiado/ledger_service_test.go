package fiado_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/persistence"
	"github.com/kiosco/fiados/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, domainErr.Code)
	assert.True(t, shared.IsValidationFailure(err))
}

// assertConsistent checks the balance and estado invariants of a fiado read.
func assertConsistent(t *testing.T, f *fiadoapp.FiadoResponse) {
	t.Helper()
	saldo := f.MontoTotal.Sub(f.MontoPagado.Decimal).Round(2)
	assert.True(t, f.SaldoPendiente.Equal(saldo), "saldo %s != total %s - pagado %s",
		f.SaldoPendiente, f.MontoTotal, f.MontoPagado)
	assert.False(t, f.SaldoPendiente.IsNegative())

	switch {
	case shared.IsEffectivelyZero(f.SaldoPendiente.Decimal):
		assert.Equal(t, "Pagado", f.Estado)
	case f.MontoPagado.IsZero():
		assert.Equal(t, "Pendiente", f.Estado)
	default:
		assert.Equal(t, "Parcial", f.Estado)
	}
}

func TestLedgerService_CrearFiado(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Don Ramón")

	t.Run("principal with interest", func(t *testing.T) {
		f, err := l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{
			ClienteID:         clienteID,
			MontoOriginal:     dec("3500"),
			InteresPorcentaje: dec("10"),
			Nota:              "  fiambre  ",
		})
		require.NoError(t, err)

		assert.Equal(t, "3850.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "3850.00", f.SaldoPendiente.StringFixed(2))
		assert.True(t, f.MontoPagado.IsZero())
		assert.Equal(t, "Pendiente", f.Estado)
		assert.Equal(t, "Don Ramón", f.ClienteNombre)
		assert.Equal(t, "fiambre", f.Nota)
		assert.Equal(t, testutil.DefaultStart, f.FechaCreacion.UTC())
		assert.Nil(t, f.FechaCompletado)
		assertConsistent(t, f)
	})

	t.Run("explicit name snapshot", func(t *testing.T) {
		f, err := l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{
			ClienteID:     clienteID,
			ClienteNombre: "Ramón (kiosco)",
			MontoOriginal: dec("10"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ramón (kiosco)", f.ClienteNombre)
	})

	t.Run("rejections", func(t *testing.T) {
		_, err := l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{ClienteID: clienteID, MontoOriginal: dec("0")})
		assertDomainCode(t, err, "INVALID_AMOUNT")

		_, err = l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{ClienteID: clienteID, MontoOriginal: dec("-5")})
		assertDomainCode(t, err, "INVALID_AMOUNT")

		_, err = l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{
			ClienteID: clienteID, MontoOriginal: dec("10"), InteresPorcentaje: dec("-1"),
		})
		assertDomainCode(t, err, "INVALID_INTEREST")

		_, err = l.Ledger.CrearFiado(ctx, fiadoapp.CrearFiadoRequest{ClienteID: uuid.New(), MontoOriginal: dec("10")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	fiados, err := l.Queries.ObtenerFiados(ctx, fiadoapp.FiadoListFilter{})
	require.NoError(t, err)
	assert.Len(t, fiados, 2, "rejected creations leave nothing behind")
}

func TestLedgerService_RegistrarPago(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Don Ramón")
	created := l.Fiado(t, clienteID, "3500", "10")

	first, err := l.Ledger.RegistrarPago(ctx, created.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("1000"), Nota: "efectivo"})
	require.NoError(t, err)
	assert.Equal(t, "3850.00", first.SaldoAnterior.StringFixed(2))
	assert.Equal(t, "2850.00", first.SaldoRestante.StringFixed(2))
	assert.Equal(t, "1000.00", first.TotalPagado.StringFixed(2))
	assert.Equal(t, "Parcial", first.Estado)
	assert.False(t, first.Completado)
	assert.Equal(t, "Don Ramón", first.Cliente)
	l.Clock.Advance(time.Minute)

	t.Run("overpayment is rejected exactly", func(t *testing.T) {
		_, err := l.Ledger.RegistrarPago(ctx, created.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("2850.01")})
		assertDomainCode(t, err, "EXCEEDS_OUTSTANDING")

		_, err = l.Ledger.RegistrarPago(ctx, created.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("0")})
		assertDomainCode(t, err, "INVALID_AMOUNT")

		f, err := l.Queries.ObtenerFiado(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "2850.00", f.SaldoPendiente.StringFixed(2))
	})

	completedAt := l.Clock.Now()
	second, err := l.Ledger.RegistrarPago(ctx, created.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("2850")})
	require.NoError(t, err)
	assert.Equal(t, "0.00", second.SaldoRestante.StringFixed(2))
	assert.Equal(t, "Pagado", second.Estado)
	assert.True(t, second.Completado)

	f, err := l.Queries.ObtenerFiado(ctx, created.ID)
	require.NoError(t, err)
	assertConsistent(t, f)
	require.NotNil(t, f.FechaCompletado)
	assert.True(t, f.FechaCompletado.Equal(completedAt))
	assert.Equal(t, "100", f.PorcentajePagado.String())

	_, err = l.Ledger.RegistrarPago(ctx, created.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("1")})
	assertDomainCode(t, err, "ALREADY_PAID")

	_, err = l.Ledger.RegistrarPago(ctx, uuid.New(), fiadoapp.RegistrarPagoRequest{Monto: dec("1")})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	historial, err := l.Queries.ObtenerHistorialFiado(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, historial, 2)
	assert.Equal(t, "2850.00", historial[0].Monto.StringFixed(2))
	assert.Equal(t, "efectivo", historial[1].Nota)
}

func TestLedgerService_PagoMonotonicity(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	f := l.Fiado(t, l.Cliente(t, "Lucía"), "99.99", "3.3")

	last := decimal.Zero
	for _, monto := range []string{"10", "0.01", "33.33", "20"} {
		r, err := l.Ledger.RegistrarPago(ctx, f.ID, fiadoapp.RegistrarPagoRequest{Monto: dec(monto)})
		require.NoError(t, err)
		assert.True(t, r.TotalPagado.GreaterThan(last))
		last = r.TotalPagado.Decimal

		got, err := l.Queries.ObtenerFiado(ctx, f.ID)
		require.NoError(t, err)
		assertConsistent(t, got)
	}
}

func TestLedgerService_AplicarInteresCliente(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Marta")

	_, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("5")})
	assertDomainCode(t, err, "NO_ELIGIBLE_FIADOS")

	f := l.Fiado(t, clienteID, "1000", "")

	first, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, 1, first.FiadosActualizados)
	assert.Equal(t, "50.00", first.TotalInteresMonto.StringFixed(2))
	require.Len(t, first.Detalle, 1)
	assert.True(t, first.Detalle[0].InteresNuevo.Equal(dec("5")))
	assert.Equal(t, "1050.00", first.Detalle[0].MontoTotalNuevo.StringFixed(2))

	second, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, "1050.00", second.Detalle[0].MontoTotalAnterior.StringFixed(2))
	assert.Equal(t, "1100.00", second.Detalle[0].MontoTotalNuevo.StringFixed(2), "interest is additive on the principal")

	got, err := l.Queries.ObtenerFiado(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, got.InteresPorcentaje.Equal(dec("10")))
	assert.Equal(t, "1100.00", got.MontoTotal.StringFixed(2))
	assert.Equal(t, "Pendiente", got.Estado)
}

func TestLedgerService_AplicarInteresPreservesCollected(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Marta")
	parcial := l.Fiado(t, clienteID, "200", "")
	l.Pago(t, parcial.ID, "50")
	pagado := l.Fiado(t, clienteID, "30", "")
	l.Pago(t, pagado.ID, "30")

	r, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, 1, r.FiadosActualizados, "settled fiados are skipped")

	got, err := l.Queries.ObtenerFiado(ctx, parcial.ID)
	require.NoError(t, err)
	assert.Equal(t, "220.00", got.MontoTotal.StringFixed(2))
	assert.Equal(t, "50.00", got.MontoPagado.StringFixed(2))
	assert.Equal(t, "170.00", got.SaldoPendiente.StringFixed(2))
	assert.Equal(t, "Parcial", got.Estado)
	assertConsistent(t, got)

	t.Run("negative rate that would wipe the balance", func(t *testing.T) {
		_, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("-80")})
		assertDomainCode(t, err, "INVALID_INTEREST")

		got, err := l.Queries.ObtenerFiado(ctx, parcial.ID)
		require.NoError(t, err)
		assert.Equal(t, "220.00", got.MontoTotal.StringFixed(2))
	})
}

func TestLedgerService_AplicarInteresIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Nora")
	first := l.Fiado(t, clienteID, "100", "")
	second := l.Fiado(t, clienteID, "100", "")
	l.Pago(t, second.ID, "60")

	// first is updated and saved before second fails: -50% would leave it
	// owing less than the 60 already collected.
	_, err := l.Ledger.AplicarInteresCliente(ctx, clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("-50")})
	assertDomainCode(t, err, "INVALID_INTEREST")

	got, err := l.Queries.ObtenerFiado(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.MontoTotal.StringFixed(2))
	assert.Equal(t, "100.00", got.SaldoPendiente.StringFixed(2))
	assert.True(t, got.InteresPorcentaje.IsZero())

	got, err = l.Queries.ObtenerFiado(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.MontoTotal.StringFixed(2))
	assert.Equal(t, "40.00", got.SaldoPendiente.StringFixed(2))
}

func TestLedgerService_RegistrarPagoRejectsFractionsOfACent(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	f := l.Fiado(t, l.Cliente(t, "Olga"), "10", "")

	_, err := l.Ledger.RegistrarPago(ctx, f.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("10.004")})
	assertDomainCode(t, err, "INVALID_AMOUNT")

	got, err := l.Queries.ObtenerFiado(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pendiente", got.Estado)
	assert.Equal(t, "10.00", got.SaldoPendiente.StringFixed(2))

	pagos, err := l.Queries.ObtenerHistorialFiado(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, pagos)
}

func TestLedgerService_PagarTodoCliente(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Beto")
	older := l.Fiado(t, clienteID, "100", "")
	newer := l.Fiado(t, clienteID, "200.50", "")

	_, err := l.Ledger.PagarTodoCliente(ctx, clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("300.51")})
	assertDomainCode(t, err, "AMOUNT_MISMATCH")
	_, err = l.Ledger.PagarTodoCliente(ctx, clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("300.49")})
	assertDomainCode(t, err, "AMOUNT_MISMATCH")

	pagos, err := l.Queries.ObtenerHistorialPagosCliente(ctx, clienteID)
	require.NoError(t, err)
	assert.Zero(t, pagos.TotalPagosRealizados, "a rejected payoff writes nothing")

	r, err := l.Ledger.PagarTodoCliente(ctx, clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("300.50")})
	require.NoError(t, err)
	assert.Equal(t, 2, r.CantidadFiados)
	assert.Equal(t, "300.50", r.TotalPagado.StringFixed(2))
	assert.Equal(t, "Beto", r.ClienteNombre)
	require.Len(t, r.FiadosPagados, 2)
	assert.Equal(t, older.ID, r.FiadosPagados[0].FiadoID, "oldest first")
	assert.Equal(t, "100.00", r.FiadosPagados[0].MontoPagado.StringFixed(2))
	assert.Equal(t, newer.ID, r.FiadosPagados[1].FiadoID)
	assert.Equal(t, "200.50", r.FiadosPagados[1].MontoPagado.StringFixed(2))
	assert.Equal(t, "Pendiente", r.FiadosPagados[1].EstadoAnterior)

	for _, id := range []uuid.UUID{older.ID, newer.ID} {
		f, err := l.Queries.ObtenerFiado(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Pagado", f.Estado)
		assertConsistent(t, f)

		historial, err := l.Queries.ObtenerHistorialFiado(ctx, id)
		require.NoError(t, err)
		require.Len(t, historial, 1)
		assert.Equal(t, fiado.DefaultPayOffNota, historial[0].Nota)
	}

	_, err = l.Ledger.PagarTodoCliente(ctx, clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("1")})
	assertDomainCode(t, err, "NO_ELIGIBLE_FIADOS")
}

func TestLedgerService_PagarTodoToleratesSubCentNoise(t *testing.T) {
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Beto")
	l.Fiado(t, clienteID, "33.33", "")
	l.Fiado(t, clienteID, "66.67", "")

	r, err := l.Ledger.PagarTodoCliente(context.Background(), clienteID, fiadoapp.PagarTodoRequest{
		MontoTotal: dec("100.004"),
		Nota:       "cierre de mes",
	})
	require.NoError(t, err)
	assert.Equal(t, "100.00", r.TotalPagado.StringFixed(2), "each fiado is paid its own balance")
}

func TestLedgerService_ModificarFiado(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Elsa")
	f := l.Fiado(t, clienteID, "1000", "")
	l.Pago(t, f.ID, "400")

	_, err := l.Ledger.ModificarFiado(ctx, f.ID, fiadoapp.ModificarFiadoRequest{})
	assertDomainCode(t, err, "INVALID_INPUT")

	low := dec("399.98")
	_, err = l.Ledger.ModificarFiado(ctx, f.ID, fiadoapp.ModificarFiadoRequest{MontoOriginal: &low})
	assertDomainCode(t, err, "BELOW_COLLECTED")

	interes := dec("20")
	got, err := l.Ledger.ModificarFiado(ctx, f.ID, fiadoapp.ModificarFiadoRequest{InteresPorcentaje: &interes})
	require.NoError(t, err)
	assert.Equal(t, "1200.00", got.MontoTotal.StringFixed(2))
	assert.Equal(t, "800.00", got.SaldoPendiente.StringFixed(2))
	assert.Equal(t, "Parcial", got.Estado)
	assertConsistent(t, got)

	t.Run("reduction to the collected amount completes the fiado", func(t *testing.T) {
		orig := dec("400")
		cero := decimal.Zero
		got, err := l.Ledger.ModificarFiado(ctx, f.ID, fiadoapp.ModificarFiadoRequest{MontoOriginal: &orig, InteresPorcentaje: &cero})
		require.NoError(t, err)
		assert.Equal(t, "Pagado", got.Estado)
		assert.NotNil(t, got.FechaCompletado)
		assertConsistent(t, got)

		nota := "otra"
		_, err = l.Ledger.ModificarFiado(ctx, f.ID, fiadoapp.ModificarFiadoRequest{Nota: &nota})
		assertDomainCode(t, err, "ALREADY_PAID")
	})
}

func TestLedgerService_EliminarFiado(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Elsa")
	open := l.Fiado(t, clienteID, "500", "")
	l.Pago(t, open.ID, "100")
	paid := l.Fiado(t, clienteID, "10", "")
	l.Pago(t, paid.ID, "10")

	require.NoError(t, l.Ledger.EliminarFiado(ctx, open.ID))
	_, err := l.Queries.ObtenerFiado(ctx, open.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	resumen, err := l.Queries.ObtenerResumenCliente(ctx, clienteID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, resumen.CantidadPagos, "payments go with their fiado")

	assertDomainCode(t, l.Ledger.EliminarFiado(ctx, paid.ID), "ALREADY_PAID")
	assert.True(t, errors.Is(l.Ledger.EliminarFiado(ctx, uuid.New()), shared.ErrNotFound))
}

// failingPagos fails the nth Create call inside the real transaction.
type failingPagos struct {
	fiado.PagoRepository
	calls  *int
	failAt int
}

func (p failingPagos) Create(ctx context.Context, pago *fiado.PagoFiado) error {
	*p.calls++
	if *p.calls == p.failAt {
		return errors.New("disk full")
	}
	return p.PagoRepository.Create(ctx, pago)
}

type failingRepos struct {
	fiadoapp.TransactionalRepositories
	pagos failingPagos
}

func (r failingRepos) PagoRepo() fiado.PagoRepository { return r.pagos }

type failingScope struct {
	inner  fiadoapp.TransactionScope
	calls  int
	failAt int
}

func (s *failingScope) Execute(ctx context.Context, fn func(context.Context, fiadoapp.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(ctx context.Context, repos fiadoapp.TransactionalRepositories) error {
		return fn(ctx, failingRepos{
			TransactionalRepositories: repos,
			pagos:                     failingPagos{PagoRepository: repos.PagoRepo(), calls: &s.calls, failAt: s.failAt},
		})
	})
}

func TestLedgerService_PagarTodoIsAtomic(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLedger(t)
	clienteID := l.Cliente(t, "Beto")
	first := l.Fiado(t, clienteID, "100", "")
	second := l.Fiado(t, clienteID, "200.50", "")

	scope := &failingScope{inner: persistence.NewGormTransactionScope(l.DB), failAt: 2}
	ledger := fiadoapp.NewLedgerService(scope, fiadoapp.WithClock(l.Clock.Now))

	_, err := ledger.PagarTodoCliente(ctx, clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("300.50")})
	require.Error(t, err)
	assert.True(t, shared.IsStorageFailure(err))
	assert.False(t, shared.IsValidationFailure(err))

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		f, err := l.Queries.ObtenerFiado(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Pendiente", f.Estado, "the first fiado is rolled back too")
		assert.True(t, f.MontoPagado.IsZero())
	}
	stats, err := l.Queries.ObtenerEstadisticasGlobales(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.CantidadPagos)
}
