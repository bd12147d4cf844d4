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
	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var mockNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type mockLedger struct {
	clientes *MockClienteRepository
	fiados   *MockFiadoRepository
	pagos    *MockPagoRepository
	service  *fiadoapp.LedgerService
	reader   *sdkmetric.ManualReader
}

func newMockLedger(t *testing.T) *mockLedger {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	m := &mockLedger{
		clientes: new(MockClienteRepository),
		fiados:   new(MockFiadoRepository),
		pagos:    new(MockPagoRepository),
		reader:   reader,
	}
	scope := fiadoapp.NewNoOpTransactionScope(m.clientes, m.fiados, m.pagos)
	m.service = fiadoapp.NewLedgerService(scope,
		fiadoapp.WithClock(func() time.Time { return mockNow }),
		fiadoapp.WithMetrics(metrics),
	)
	return m
}

// counter sums the data points of an int64 counter that carry all attrs.
func (m *mockLedger) counter(t *testing.T, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, m.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != name {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				matches := true
				for _, kv := range attrs {
					if v, ok := dp.Attributes.Value(kv.Key); !ok || v.Emit() != kv.Value.Emit() {
						matches = false
					}
				}
				if matches {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func openFiado(t *testing.T, monto string) *fiado.Fiado {
	t.Helper()
	f, err := fiado.NewFiado(uuid.New(), "Rosa", dec(monto), dec("0"), "", mockNow)
	require.NoError(t, err)
	return f
}

func TestLedgerService_RegistrarPago_StorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure becomes a permanent storage error", func(t *testing.T) {
		m := newMockLedger(t)
		id := uuid.New()
		m.fiados.On("FindByIDForUpdate", mock.Anything, id).Return(nil, errors.New("connection refused"))

		_, err := m.service.RegistrarPago(ctx, id, fiadoapp.RegistrarPagoRequest{Monto: dec("10")})

		var storageErr *shared.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, fiadoapp.OpRegistrarPago, storageErr.Op)
		assert.False(t, storageErr.Retryable())
		assert.False(t, shared.IsValidationFailure(err))
		assert.EqualValues(t, 1, m.counter(t, "fiados_storage_failures_total",
			telemetry.AttrOperation.String(fiadoapp.OpRegistrarPago), telemetry.AttrTimeout.Bool(false)))
	})

	t.Run("version conflict is retryable", func(t *testing.T) {
		m := newMockLedger(t)
		f := openFiado(t, "100")
		m.fiados.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)
		m.fiados.On("SaveWithLock", mock.Anything, f).Return(shared.NewConflictError("save_fiado", errors.New("version mismatch")))

		_, err := m.service.RegistrarPago(ctx, f.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("10")})

		var storageErr *shared.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.True(t, storageErr.Conflict)
		assert.True(t, storageErr.Retryable())
		m.pagos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("timeout stays a timeout", func(t *testing.T) {
		m := newMockLedger(t)
		id := uuid.New()
		timeout := &shared.StorageError{Op: "transaction", Timeout: true, Err: context.DeadlineExceeded}
		m.fiados.On("FindByIDForUpdate", mock.Anything, id).Return(nil, timeout)

		_, err := m.service.RegistrarPago(ctx, id, fiadoapp.RegistrarPagoRequest{Monto: dec("10")})

		assert.True(t, shared.IsTimeout(err))
		assert.EqualValues(t, 1, m.counter(t, "fiados_storage_failures_total", telemetry.AttrTimeout.Bool(true)))
	})
}

func TestLedgerService_RegistrarPago_RejectionWritesNothing(t *testing.T) {
	m := newMockLedger(t)
	f := openFiado(t, "100")
	m.fiados.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)

	_, err := m.service.RegistrarPago(context.Background(), f.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("100.01")})
	assertDomainCode(t, err, "EXCEEDS_OUTSTANDING")

	m.fiados.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	m.pagos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.EqualValues(t, 1, m.counter(t, "fiados_rejections_total",
		telemetry.AttrOperation.String(fiadoapp.OpRegistrarPago),
		telemetry.AttrErrorCode.String("EXCEEDS_OUTSTANDING")))
	assert.Zero(t, m.counter(t, "fiados_pagos_total"))
}

func TestLedgerService_RegistrarPago_Metrics(t *testing.T) {
	m := newMockLedger(t)
	f := openFiado(t, "100")
	m.fiados.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)
	m.fiados.On("SaveWithLock", mock.Anything, f).Return(nil)
	m.pagos.On("Create", mock.Anything, mock.MatchedBy(func(p *fiado.PagoFiado) bool {
		return p.FiadoID == f.ID && p.Monto.Equal(dec("100")) && p.Fecha.Equal(mockNow)
	})).Return(nil)

	r, err := m.service.RegistrarPago(context.Background(), f.ID, fiadoapp.RegistrarPagoRequest{Monto: dec("100")})
	require.NoError(t, err)
	assert.True(t, r.Completado)
	assert.EqualValues(t, 1, m.counter(t, "fiados_pagos_total"))
	m.fiados.AssertExpectations(t)
	m.pagos.AssertExpectations(t)
}

func TestLedgerService_PagarTodo_StopsAtFirstFailure(t *testing.T) {
	m := newMockLedger(t)
	clienteID := uuid.New()
	cliente, err := fiado.NewCliente("Rosa", fiado.Contacto{}, mockNow)
	require.NoError(t, err)
	first, second := openFiado(t, "10"), openFiado(t, "20")

	m.clientes.On("FindByID", mock.Anything, clienteID).Return(cliente, nil)
	m.fiados.On("FindOpenByClienteForUpdate", mock.Anything, clienteID).Return([]*fiado.Fiado{first, second}, nil)
	m.fiados.On("SaveWithLock", mock.Anything, first).Return(errors.New("disk I/O error"))

	_, err = m.service.PagarTodoCliente(context.Background(), clienteID, fiadoapp.PagarTodoRequest{MontoTotal: dec("30")})
	require.Error(t, err)
	assert.True(t, shared.IsStorageFailure(err))

	m.fiados.AssertNotCalled(t, "SaveWithLock", mock.Anything, second)
	m.pagos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Zero(t, m.counter(t, "fiados_payoffs_total"))
}

func TestLedgerService_AplicarInteres_UnknownCliente(t *testing.T) {
	m := newMockLedger(t)
	clienteID := uuid.New()
	m.clientes.On("FindByID", mock.Anything, clienteID).Return(nil, shared.ErrNotFound)

	_, err := m.service.AplicarInteresCliente(context.Background(), clienteID, fiadoapp.AplicarInteresRequest{PorcentajeInteres: dec("5")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	m.fiados.AssertNotCalled(t, "FindOpenByClienteForUpdate", mock.Anything, mock.Anything)
}
