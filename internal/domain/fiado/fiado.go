package fiado

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Fiado is one store-credit extension to a client.
//
// MontoTotal is always ApplyRate(MontoOriginal, InteresPorcentaje).
// SaldoPendiente is MontoTotal - MontoPagado, never negative, and clamped to
// exactly zero once the residue is within shared.Tolerance.
// CreatedAt and UpdatedAt are the creation and last-mutation times.
type Fiado struct {
	shared.BaseAggregateRoot
	ClienteID         uuid.UUID
	ClienteNombre     string // snapshot taken at creation, not a live join
	MontoOriginal     decimal.Decimal
	InteresPorcentaje decimal.Decimal
	MontoTotal        decimal.Decimal
	MontoPagado       decimal.Decimal
	SaldoPendiente    decimal.Decimal
	Estado            Estado
	FechaCompletado   *time.Time
	Nota              string
}

var _ shared.AggregateRoot = (*Fiado)(nil)

// NewFiado creates a Pendiente fiado for a client
func NewFiado(clienteID uuid.UUID, clienteNombre string, montoOriginal, interes decimal.Decimal, nota string, now time.Time) (*Fiado, error) {
	if clienteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	clienteNombre = strings.TrimSpace(clienteNombre)
	if clienteNombre == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client name cannot be empty")
	}

	total, err := computeTotal(montoOriginal, interes)
	if err != nil {
		return nil, err
	}

	return &Fiado{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ClienteID:         clienteID,
		ClienteNombre:     clienteNombre,
		MontoOriginal:     montoOriginal,
		InteresPorcentaje: interes,
		MontoTotal:        total,
		MontoPagado:       decimal.Zero,
		SaldoPendiente:    total,
		Estado:            EstadoPendiente,
		Nota:              strings.TrimSpace(nota),
	}, nil
}

// computeTotal validates principal and rate and returns the rounded total.
// A total within tolerance of zero is rejected: it would be born settled.
func computeTotal(montoOriginal, interes decimal.Decimal) (decimal.Decimal, error) {
	if !montoOriginal.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Principal must be greater than 0")
	}
	if shared.HasMoreDecimals(montoOriginal, 2) {
		return decimal.Zero, errSubCent("Principal", montoOriginal)
	}
	if interes.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_INTEREST", "Interest rate cannot be negative")
	}
	if err := checkRateScale(interes); err != nil {
		return decimal.Zero, err
	}
	total := shared.ApplyRate(montoOriginal, interes)
	if shared.IsEffectivelyZero(total) {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Total must be greater than 0.01")
	}
	return total, nil
}

// ApplyPayment records a payment against the current balance.
// Overpayment is rejected exactly; only the resulting residue is tolerant.
func (f *Fiado) ApplyPayment(monto decimal.Decimal, nota string, now time.Time) (*PagoFiado, error) {
	if f.Estado.IsTerminal() {
		return nil, errAlreadyPaid(f.ID)
	}
	if !monto.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be greater than 0")
	}
	if shared.HasMoreDecimals(monto, 2) {
		return nil, errSubCent("Payment amount", monto)
	}
	if monto.GreaterThan(f.SaldoPendiente) {
		return nil, shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding balance %s",
				monto.StringFixed(2), f.SaldoPendiente.StringFixed(2)))
	}

	f.MontoPagado = shared.Round2(f.MontoPagado.Add(monto))
	f.SaldoPendiente = shared.Round2(f.MontoTotal.Sub(f.MontoPagado))
	if shared.IsEffectivelyZero(f.SaldoPendiente) {
		f.settle(now)
	} else {
		f.Estado = EstadoParcial
	}
	f.touch(now)

	return newPagoFiado(f.ID, monto, strings.TrimSpace(nota), now), nil
}

// InterestChange describes the effect of one interest application
type InterestChange struct {
	FiadoID            uuid.UUID
	InteresAnterior    decimal.Decimal
	InteresNuevo       decimal.Decimal
	MontoTotalAnterior decimal.Decimal
	MontoTotalNuevo    decimal.Decimal
	SaldoNuevo         decimal.Decimal
}

// InteresAgregado returns the amount the application added to the total
func (c InterestChange) InteresAgregado() decimal.Decimal {
	return c.MontoTotalNuevo.Sub(c.MontoTotalAnterior)
}

// ApplyInterest adds porcentaje to the cumulative rate and recomputes the
// total on the original principal. The amount collected so far is derived as
// MontoTotal - SaldoPendiente and carried over unchanged. Estado is untouched.
func (f *Fiado) ApplyInterest(porcentaje decimal.Decimal, now time.Time) (InterestChange, error) {
	if !f.Estado.IsOpen() {
		return InterestChange{}, errAlreadyPaid(f.ID)
	}
	if err := checkRateScale(porcentaje); err != nil {
		return InterestChange{}, err
	}

	nuevoInteres := f.InteresPorcentaje.Add(porcentaje)
	nuevoTotal := shared.ApplyRate(f.MontoOriginal, nuevoInteres)
	yaPagado := f.MontoTotal.Sub(f.SaldoPendiente)
	nuevoSaldo := shared.Round2(nuevoTotal.Sub(yaPagado))
	if nuevoInteres.IsNegative() || shared.IsEffectivelyZero(nuevoSaldo) || nuevoSaldo.IsNegative() {
		return InterestChange{}, shared.NewDomainError("INVALID_INTEREST",
			fmt.Sprintf("Interest of %s%% would leave fiado %s without a positive balance", porcentaje.String(), f.ID))
	}

	change := InterestChange{
		FiadoID:            f.ID,
		InteresAnterior:    f.InteresPorcentaje,
		InteresNuevo:       nuevoInteres,
		MontoTotalAnterior: f.MontoTotal,
		MontoTotalNuevo:    nuevoTotal,
		SaldoNuevo:         nuevoSaldo,
	}

	f.InteresPorcentaje = nuevoInteres
	f.MontoTotal = nuevoTotal
	f.SaldoPendiente = nuevoSaldo
	f.touch(now)

	return change, nil
}

// PayOff settles the whole remaining balance with a single payment
func (f *Fiado) PayOff(nota string, now time.Time) (*PagoFiado, error) {
	if !f.Estado.IsOpen() {
		return nil, errAlreadyPaid(f.ID)
	}
	monto := f.SaldoPendiente
	if !monto.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Nothing left to pay")
	}
	if strings.TrimSpace(nota) == "" {
		nota = DefaultPayOffNota
	}

	f.MontoPagado = f.MontoTotal
	f.settle(now)
	f.touch(now)

	return newPagoFiado(f.ID, monto, strings.TrimSpace(nota), now), nil
}

// Changes holds the administrative edits allowed on an open fiado.
// Nil fields are left as they are.
type Changes struct {
	MontoOriginal     *decimal.Decimal
	InteresPorcentaje *decimal.Decimal
	Nota              *string
}

// Modify applies an administrative edit. The collected amount is preserved;
// the total and balance are recomputed from the new principal and rate.
func (f *Fiado) Modify(c Changes, now time.Time) error {
	if f.Estado.IsTerminal() {
		return errAlreadyPaid(f.ID)
	}

	orig := f.MontoOriginal
	if c.MontoOriginal != nil {
		orig = *c.MontoOriginal
	}
	interes := f.InteresPorcentaje
	if c.InteresPorcentaje != nil {
		interes = *c.InteresPorcentaje
	}
	total, err := computeTotal(orig, interes)
	if err != nil {
		return err
	}

	saldo := shared.Round2(total.Sub(f.MontoPagado))
	if saldo.IsNegative() {
		return shared.NewDomainError("BELOW_COLLECTED",
			fmt.Sprintf("New total %s is below the amount already collected %s",
				total.StringFixed(2), f.MontoPagado.StringFixed(2)))
	}

	f.MontoOriginal = orig
	f.InteresPorcentaje = interes
	f.MontoTotal = total
	f.SaldoPendiente = saldo
	if c.Nota != nil {
		f.Nota = strings.TrimSpace(*c.Nota)
	}

	switch {
	case f.MontoPagado.IsZero():
		f.Estado = EstadoPendiente
	case shared.IsEffectivelyZero(saldo):
		f.settle(now)
	default:
		f.Estado = EstadoParcial
	}
	f.touch(now)
	return nil
}

// EnsureDeletable rejects deletion of settled fiados
func (f *Fiado) EnsureDeletable() error {
	if f.Estado.IsTerminal() {
		return errAlreadyPaid(f.ID)
	}
	return nil
}

// PorcentajePagado returns the collected share of the total, in percent
func (f *Fiado) PorcentajePagado() decimal.Decimal {
	return shared.Percentage(f.MontoPagado, f.MontoTotal)
}

// IsCompleted returns true once the fiado is Pagado
func (f *Fiado) IsCompleted() bool {
	return f.Estado == EstadoPagado
}

func (f *Fiado) settle(now time.Time) {
	f.SaldoPendiente = decimal.Zero
	f.Estado = EstadoPagado
	completedAt := now
	f.FechaCompletado = &completedAt
}

func (f *Fiado) touch(now time.Time) {
	f.UpdatedAt = now
	f.IncrementVersion()
}

// checkRateScale rejects rates finer than the stored scale, so a reloaded
// fiado recomputes to the same total.
func checkRateScale(rate decimal.Decimal) error {
	if shared.HasMoreDecimals(rate, shared.RateScale) {
		return shared.NewDomainError("INVALID_INTEREST",
			fmt.Sprintf("Interest rate %s has more than %d decimals", rate.String(), shared.RateScale))
	}
	return nil
}

func errSubCent(what string, d decimal.Decimal) error {
	return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("%s %s has fractions of a cent", what, d.String()))
}

func errAlreadyPaid(id uuid.UUID) error {
	return shared.NewDomainError("ALREADY_PAID", fmt.Sprintf("Fiado %s is already paid", id))
}
