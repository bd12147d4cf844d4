package fiado

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestFiado(t *testing.T, orig, interes string) *Fiado {
	t.Helper()
	f, err := NewFiado(uuid.New(), "Ana Gómez", d(orig), d(interes), "", testNow)
	require.NoError(t, err)
	return f
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

// assertInvariants checks the balance identity and state derivation
func assertInvariants(t *testing.T, f *Fiado) {
	t.Helper()
	assert.False(t, f.SaldoPendiente.IsNegative(), "saldo must never be negative")
	assert.True(t, f.MontoTotal.Equal(shared.ApplyRate(f.MontoOriginal, f.InteresPorcentaje)))
	switch {
	case shared.IsEffectivelyZero(f.SaldoPendiente):
		assert.Equal(t, EstadoPagado, f.Estado)
		assert.True(t, f.SaldoPendiente.IsZero())
	case f.MontoPagado.IsZero():
		assert.Equal(t, EstadoPendiente, f.Estado)
		assert.True(t, f.SaldoPendiente.Equal(f.MontoTotal))
	default:
		assert.Equal(t, EstadoParcial, f.Estado)
		assert.True(t, f.SaldoPendiente.Equal(shared.Round2(f.MontoTotal.Sub(f.MontoPagado))))
	}
}

// ============================================
// Estado Tests
// ============================================

func TestEstado(t *testing.T) {
	tests := []struct {
		estado   Estado
		valid    bool
		open     bool
		terminal bool
	}{
		{EstadoPendiente, true, true, false},
		{EstadoParcial, true, true, false},
		{EstadoPagado, true, false, true},
		{Estado("Anulado"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.estado), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.estado.IsValid())
			assert.Equal(t, tt.open, tt.estado.IsOpen())
			assert.Equal(t, tt.terminal, tt.estado.IsTerminal())
		})
	}

	e, ok := ParseEstado("parcial")
	assert.True(t, ok)
	assert.Equal(t, EstadoParcial, e)
	_, ok = ParseEstado("cerrado")
	assert.False(t, ok)
}

// ============================================
// Creation Tests
// ============================================

func TestNewFiado(t *testing.T) {
	t.Run("computes total with interest", func(t *testing.T) {
		f := newTestFiado(t, "3500", "10")
		assert.Equal(t, "3850.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "3850.00", f.SaldoPendiente.StringFixed(2))
		assert.True(t, f.MontoPagado.IsZero())
		assert.Equal(t, EstadoPendiente, f.Estado)
		assert.Equal(t, 1, f.Version)
		assert.Equal(t, testNow, f.CreatedAt)
		assert.Nil(t, f.FechaCompletado)
		assertInvariants(t, f)
	})

	t.Run("rejects non-positive principal", func(t *testing.T) {
		_, err := NewFiado(uuid.New(), "Ana", decimal.Zero, decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
		_, err = NewFiado(uuid.New(), "Ana", d("-5"), decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
	})

	t.Run("rejects a total within tolerance of zero", func(t *testing.T) {
		_, err := NewFiado(uuid.New(), "Ana", d("0.01"), decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
	})

	t.Run("rejects negative interest", func(t *testing.T) {
		_, err := NewFiado(uuid.New(), "Ana", d("100"), d("-1"), "", testNow)
		requireCode(t, err, "INVALID_INTEREST")
	})

	t.Run("rejects rates finer than the stored scale", func(t *testing.T) {
		_, err := NewFiado(uuid.New(), "Ana", d("1000000"), d("3.33333"), "", testNow)
		requireCode(t, err, "INVALID_INTEREST")

		f := newTestFiado(t, "1000000", "3.3333")
		assert.Equal(t, "1033333.00", f.MontoTotal.StringFixed(2))
		assertInvariants(t, f)
	})

	t.Run("rejects fractions of a cent in the principal", func(t *testing.T) {
		_, err := NewFiado(uuid.New(), "Ana", d("100.005"), decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
	})

	t.Run("requires a client", func(t *testing.T) {
		_, err := NewFiado(uuid.Nil, "Ana", d("100"), decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_CLIENT")
		_, err = NewFiado(uuid.New(), "  ", d("100"), decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_CLIENT")
	})
}

// ============================================
// Payment Tests
// ============================================

func TestFiado_ApplyPayment(t *testing.T) {
	t.Run("partial then full payment", func(t *testing.T) {
		f := newTestFiado(t, "3500", "10")

		pago, err := f.ApplyPayment(d("1000"), "primer pago", testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, f.ID, pago.FiadoID)
		assert.Equal(t, "1000.00", pago.Monto.StringFixed(2))
		assert.Equal(t, "2850.00", f.SaldoPendiente.StringFixed(2))
		assert.Equal(t, EstadoParcial, f.Estado)
		assert.Nil(t, f.FechaCompletado)
		assert.Equal(t, 2, f.Version)
		assertInvariants(t, f)

		done := testNow.Add(2 * time.Hour)
		_, err = f.ApplyPayment(d("2850"), "", done)
		require.NoError(t, err)
		assert.Equal(t, "0.00", f.SaldoPendiente.StringFixed(2))
		assert.Equal(t, EstadoPagado, f.Estado)
		require.NotNil(t, f.FechaCompletado)
		assert.Equal(t, done, *f.FechaCompletado)
		assert.Equal(t, done, f.UpdatedAt)
		assertInvariants(t, f)
	})

	t.Run("rejects payment on a paid fiado", func(t *testing.T) {
		f := newTestFiado(t, "100", "0")
		_, err := f.ApplyPayment(d("100"), "", testNow)
		require.NoError(t, err)

		_, err = f.ApplyPayment(d("1"), "", testNow)
		requireCode(t, err, "ALREADY_PAID")
	})

	t.Run("rejects overpayment exactly", func(t *testing.T) {
		f := newTestFiado(t, "100", "0")
		_, err := f.ApplyPayment(d("100.01"), "", testNow)
		requireCode(t, err, "EXCEEDS_OUTSTANDING")
		assert.True(t, f.MontoPagado.IsZero())
		assert.Equal(t, 1, f.Version)
	})

	t.Run("sub-cent overpayment is rejected, not rounded away", func(t *testing.T) {
		f := newTestFiado(t, "10", "0")
		_, err := f.ApplyPayment(d("10.004"), "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
		assert.Equal(t, EstadoPendiente, f.Estado)
		assert.True(t, f.MontoPagado.IsZero())

		_, err = f.ApplyPayment(d("0.005"), "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
		assert.Equal(t, "10.00", f.SaldoPendiente.StringFixed(2))
	})

	t.Run("trailing zeros are whole cents", func(t *testing.T) {
		f := newTestFiado(t, "10", "0")
		pago, err := f.ApplyPayment(d("2.500"), "", testNow)
		require.NoError(t, err)
		assert.Equal(t, "2.50", pago.Monto.StringFixed(2))
		assert.Equal(t, "7.50", f.SaldoPendiente.StringFixed(2))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newTestFiado(t, "100", "0")
		_, err := f.ApplyPayment(decimal.Zero, "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
		_, err = f.ApplyPayment(d("0.004"), "", testNow)
		requireCode(t, err, "INVALID_AMOUNT")
	})

	t.Run("residue within tolerance settles the fiado", func(t *testing.T) {
		f := newTestFiado(t, "100", "0")
		_, err := f.ApplyPayment(d("99.99"), "", testNow)
		require.NoError(t, err)
		assert.Equal(t, EstadoPagado, f.Estado)
		assert.True(t, f.SaldoPendiente.IsZero())
		assert.Equal(t, "99.99", f.MontoPagado.StringFixed(2))
	})

	t.Run("collected amount never decreases", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		prev := f.MontoPagado
		for _, m := range []string{"10", "250.50", "0.49", "300"} {
			_, err := f.ApplyPayment(d(m), "", testNow)
			require.NoError(t, err)
			assert.True(t, f.MontoPagado.GreaterThan(prev))
			prev = f.MontoPagado
			assertInvariants(t, f)
		}
		assert.Equal(t, "439.01", f.SaldoPendiente.StringFixed(2))
	})
}

// ============================================
// Interest Tests
// ============================================

func TestFiado_ApplyInterest(t *testing.T) {
	t.Run("interest is additive on the principal", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")

		c1, err := f.ApplyInterest(d("5"), testNow)
		require.NoError(t, err)
		assert.Equal(t, "5", f.InteresPorcentaje.String())
		assert.Equal(t, "1050.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "50.00", c1.InteresAgregado().StringFixed(2))

		c2, err := f.ApplyInterest(d("5"), testNow)
		require.NoError(t, err)
		assert.Equal(t, "10", f.InteresPorcentaje.String())
		assert.Equal(t, "1100.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "1050.00", c2.MontoTotalAnterior.StringFixed(2))
		assert.Equal(t, "1100.00", c2.SaldoNuevo.StringFixed(2))
		assert.Equal(t, EstadoPendiente, f.Estado)
		assertInvariants(t, f)
	})

	t.Run("preserves amounts already collected", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		_, err := f.ApplyPayment(d("400"), "", testNow)
		require.NoError(t, err)

		change, err := f.ApplyInterest(d("10"), testNow)
		require.NoError(t, err)
		assert.Equal(t, "1100.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "700.00", f.SaldoPendiente.StringFixed(2))
		assert.Equal(t, "400.00", f.MontoPagado.StringFixed(2))
		assert.Equal(t, "700.00", change.SaldoNuevo.StringFixed(2))
		assert.Equal(t, EstadoParcial, f.Estado)
		assertInvariants(t, f)
	})

	t.Run("rejects paid fiados", func(t *testing.T) {
		f := newTestFiado(t, "10", "0")
		_, err := f.ApplyPayment(d("10"), "", testNow)
		require.NoError(t, err)
		_, err = f.ApplyInterest(d("5"), testNow)
		requireCode(t, err, "ALREADY_PAID")
	})

	t.Run("rejects a reduction below the collected amount", func(t *testing.T) {
		f := newTestFiado(t, "1000", "10")
		_, err := f.ApplyPayment(d("1000"), "", testNow)
		require.NoError(t, err)

		_, err = f.ApplyInterest(d("-10"), testNow)
		requireCode(t, err, "INVALID_INTEREST")
		assert.Equal(t, "1100.00", f.MontoTotal.StringFixed(2))
	})

	t.Run("rejects rates finer than the stored scale", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		_, err := f.ApplyInterest(d("0.00001"), testNow)
		requireCode(t, err, "INVALID_INTEREST")
		assert.True(t, f.InteresPorcentaje.IsZero())
	})

	t.Run("allows a reduction that keeps a positive balance", func(t *testing.T) {
		f := newTestFiado(t, "1000", "10")
		_, err := f.ApplyInterest(d("-4"), testNow)
		require.NoError(t, err)
		assert.Equal(t, "1060.00", f.MontoTotal.StringFixed(2))
		assertInvariants(t, f)
	})
}

// ============================================
// Payoff Tests
// ============================================

func TestFiado_PayOff(t *testing.T) {
	f := newTestFiado(t, "200", "0")
	_, err := f.ApplyPayment(d("0.50"), "", testNow)
	require.NoError(t, err)

	pago, err := f.PayOff("", testNow)
	require.NoError(t, err)
	assert.Equal(t, "199.50", pago.Monto.StringFixed(2))
	assert.Equal(t, DefaultPayOffNota, pago.Nota)
	assert.True(t, f.MontoPagado.Equal(f.MontoTotal))
	assert.Equal(t, EstadoPagado, f.Estado)
	assertInvariants(t, f)

	_, err = f.PayOff("", testNow)
	requireCode(t, err, "ALREADY_PAID")
}

// ============================================
// Administrative Edit Tests
// ============================================

func TestFiado_Modify(t *testing.T) {
	t.Run("principal edit keeps collected amount", func(t *testing.T) {
		f := newTestFiado(t, "1000", "10")
		_, err := f.ApplyPayment(d("100"), "", testNow)
		require.NoError(t, err)

		orig := d("2000")
		nota := "  corregido "
		require.NoError(t, f.Modify(Changes{MontoOriginal: &orig, Nota: &nota}, testNow))
		assert.Equal(t, "2200.00", f.MontoTotal.StringFixed(2))
		assert.Equal(t, "100.00", f.MontoPagado.StringFixed(2))
		assert.Equal(t, "2100.00", f.SaldoPendiente.StringFixed(2))
		assert.Equal(t, "corregido", f.Nota)
		assert.Equal(t, EstadoParcial, f.Estado)
		assertInvariants(t, f)
	})

	t.Run("pending fiado stays pending", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		orig := d("500")
		require.NoError(t, f.Modify(Changes{MontoOriginal: &orig}, testNow))
		assert.Equal(t, EstadoPendiente, f.Estado)
		assert.Equal(t, "500.00", f.SaldoPendiente.StringFixed(2))
	})

	t.Run("reduction to the collected amount settles", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		_, err := f.ApplyPayment(d("600"), "", testNow)
		require.NoError(t, err)
		orig := d("600")
		require.NoError(t, f.Modify(Changes{MontoOriginal: &orig}, testNow))
		assert.Equal(t, EstadoPagado, f.Estado)
		assert.NotNil(t, f.FechaCompletado)
		assertInvariants(t, f)
	})

	t.Run("rejects total below collected amount", func(t *testing.T) {
		f := newTestFiado(t, "1000", "0")
		_, err := f.ApplyPayment(d("600"), "", testNow)
		require.NoError(t, err)
		orig := d("500")
		requireCode(t, f.Modify(Changes{MontoOriginal: &orig}, testNow), "BELOW_COLLECTED")
		assert.Equal(t, "1000.00", f.MontoTotal.StringFixed(2))
	})

	t.Run("rejects a total one cent below the collected amount", func(t *testing.T) {
		f := newTestFiado(t, "100", "0")
		_, err := f.ApplyPayment(d("50"), "", testNow)
		require.NoError(t, err)
		orig := d("49.99")
		requireCode(t, f.Modify(Changes{MontoOriginal: &orig}, testNow), "BELOW_COLLECTED")
		assert.Equal(t, EstadoParcial, f.Estado)
		assert.Equal(t, "50.00", f.SaldoPendiente.StringFixed(2))
	})

	t.Run("rejects edits and deletes on paid fiados", func(t *testing.T) {
		f := newTestFiado(t, "50", "0")
		_, err := f.ApplyPayment(d("50"), "", testNow)
		require.NoError(t, err)
		orig := d("60")
		requireCode(t, f.Modify(Changes{MontoOriginal: &orig}, testNow), "ALREADY_PAID")
		requireCode(t, f.EnsureDeletable(), "ALREADY_PAID")
	})
}

func TestFiado_PorcentajePagado(t *testing.T) {
	f := newTestFiado(t, "3500", "10")
	_, err := f.ApplyPayment(d("1000"), "", testNow)
	require.NoError(t, err)
	assert.Equal(t, "25.97", f.PorcentajePagado().StringFixed(2))
}

func TestNewCliente(t *testing.T) {
	t.Run("trims name and contact", func(t *testing.T) {
		c, err := NewCliente("  Doña Rosa ", Contacto{Telefono: " 555-1234 "}, testNow)
		require.NoError(t, err)
		assert.Equal(t, "Doña Rosa", c.Nombre)
		assert.Equal(t, "555-1234", c.Telefono)
		assert.True(t, c.Activo)
		assert.NotEqual(t, uuid.Nil, c.ID)
	})

	t.Run("rejects short names", func(t *testing.T) {
		_, err := NewCliente(" A ", Contacto{}, testNow)
		requireCode(t, err, "INVALID_NAME")
	})

	t.Run("counts runes, not bytes", func(t *testing.T) {
		_, err := NewCliente("Ñ", Contacto{}, testNow)
		requireCode(t, err, "INVALID_NAME")
		c, err := NewCliente("Ñu", Contacto{}, testNow)
		require.NoError(t, err)
		assert.Equal(t, "Ñu", c.Nombre)
	})
}
