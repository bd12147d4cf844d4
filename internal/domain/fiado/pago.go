package fiado

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPayOffNota is the note recorded on payments created by a bulk payoff
const DefaultPayOffNota = "Pago completo"

// PagoFiado is one payment against one fiado. Payments are append-only:
// they are never mutated and only disappear when their fiado is deleted.
type PagoFiado struct {
	// ID is a version 7 UUID, so ids created in one process sort in
	// creation order even when Fecha is equal.
	ID      uuid.UUID
	FiadoID uuid.UUID
	Monto   decimal.Decimal
	Fecha   time.Time
	Nota    string
}

func newPagoFiado(fiadoID uuid.UUID, monto decimal.Decimal, nota string, now time.Time) *PagoFiado {
	return &PagoFiado{
		ID:      uuid.Must(uuid.NewV7()),
		FiadoID: fiadoID,
		Monto:   monto,
		Fecha:   now,
		Nota:    nota,
	}
}
