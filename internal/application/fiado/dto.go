package fiado

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Monto is a money amount that renders with exactly two decimals in JSON
type Monto struct {
	decimal.Decimal
}

// NewMonto rounds d to cents
func NewMonto(d decimal.Decimal) Monto {
	return Monto{Decimal: shared.Round2(d)}
}

// MarshalJSON renders the amount as a quoted fixed-point string, e.g. "3850.00"
func (m Monto) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// =============================================================================
// Requests
// =============================================================================

// CrearFiadoRequest represents a request to extend credit to a client
type CrearFiadoRequest struct {
	ClienteID         uuid.UUID       `json:"cliente_id"`
	ClienteNombre     string          `json:"cliente_nombre" binding:"max=200"`
	MontoOriginal     decimal.Decimal `json:"monto_original"`
	InteresPorcentaje decimal.Decimal `json:"interes_porcentaje"`
	Nota              string          `json:"nota" binding:"max=500"`
}

// RegistrarPagoRequest represents a payment against one fiado
type RegistrarPagoRequest struct {
	Monto decimal.Decimal `json:"monto"`
	Nota  string          `json:"nota" binding:"max=500"`
}

// AplicarInteresRequest represents an interest application to a client's open fiados
type AplicarInteresRequest struct {
	PorcentajeInteres decimal.Decimal `json:"porcentaje_interes"`
}

// PagarTodoRequest represents a bulk payoff of everything a client owes
type PagarTodoRequest struct {
	MontoTotal decimal.Decimal `json:"monto_total"`
	Nota       string          `json:"nota" binding:"max=500"`
}

// ModificarFiadoRequest represents an administrative edit. Nil fields are left unchanged.
type ModificarFiadoRequest struct {
	MontoOriginal     *decimal.Decimal `json:"monto_original"`
	InteresPorcentaje *decimal.Decimal `json:"interes_porcentaje"`
	Nota              *string          `json:"nota" binding:"omitempty,max=500"`
}

// FiadoListFilter represents filter options for the fiado list
type FiadoListFilter struct {
	Estado    string `form:"estado"`
	ClienteID string `form:"cliente_id" binding:"omitempty,uuid"`
}

// AgregarClienteRequest represents a request to register a client
type AgregarClienteRequest struct {
	Nombre    string `json:"nombre" binding:"required,max=200"`
	Telefono  string `json:"telefono" binding:"max=50"`
	Email     string `json:"email" binding:"omitempty,email,max=200"`
	Direccion string `json:"direccion" binding:"max=500"`
	Notas     string `json:"notas" binding:"max=2000"`
}

// =============================================================================
// Responses
// =============================================================================

// ClienteResponse represents a client in API responses
type ClienteResponse struct {
	ID                 uuid.UUID `json:"id"`
	Nombre             string    `json:"nombre"`
	Telefono           string    `json:"telefono,omitempty"`
	Email              string    `json:"email,omitempty"`
	Direccion          string    `json:"direccion,omitempty"`
	Notas              string    `json:"notas,omitempty"`
	Activo             bool      `json:"activo"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	FechaActualizacion time.Time `json:"fecha_actualizacion"`
}

// ToClienteResponse converts a domain Cliente to its response form
func ToClienteResponse(c *fiado.Cliente) ClienteResponse {
	return ClienteResponse{
		ID:                 c.ID,
		Nombre:             c.Nombre,
		Telefono:           c.Telefono,
		Email:              c.Email,
		Direccion:          c.Direccion,
		Notas:              c.Notas,
		Activo:             c.Activo,
		FechaCreacion:      c.CreatedAt,
		FechaActualizacion: c.UpdatedAt,
	}
}

// FiadoResponse represents a fiado in API responses
type FiadoResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ClienteID          uuid.UUID       `json:"cliente_id"`
	ClienteNombre      string          `json:"cliente_nombre"`
	MontoOriginal      Monto           `json:"monto_original"`
	InteresPorcentaje  decimal.Decimal `json:"interes_porcentaje"`
	MontoTotal         Monto           `json:"monto_total"`
	MontoPagado        Monto           `json:"monto_pagado"`
	SaldoPendiente     Monto           `json:"saldo_pendiente"`
	PorcentajePagado   decimal.Decimal `json:"porcentaje_pagado"`
	Estado             string          `json:"estado"`
	Nota               string          `json:"nota,omitempty"`
	FechaCreacion      time.Time       `json:"fecha_creacion"`
	FechaActualizacion time.Time       `json:"fecha_actualizacion"`
	FechaCompletado    *time.Time      `json:"fecha_completado,omitempty"`
	Version            int             `json:"version"`
}

// ToFiadoResponse converts a domain Fiado to its response form
func ToFiadoResponse(f *fiado.Fiado) FiadoResponse {
	return FiadoResponse{
		ID:                 f.ID,
		ClienteID:          f.ClienteID,
		ClienteNombre:      f.ClienteNombre,
		MontoOriginal:      NewMonto(f.MontoOriginal),
		InteresPorcentaje:  f.InteresPorcentaje,
		MontoTotal:         NewMonto(f.MontoTotal),
		MontoPagado:        NewMonto(f.MontoPagado),
		SaldoPendiente:     NewMonto(f.SaldoPendiente),
		PorcentajePagado:   f.PorcentajePagado(),
		Estado:             f.Estado.String(),
		Nota:               f.Nota,
		FechaCreacion:      f.CreatedAt,
		FechaActualizacion: f.UpdatedAt,
		FechaCompletado:    f.FechaCompletado,
		Version:            f.Version,
	}
}

// ToFiadoResponses converts a list of domain fiados
func ToFiadoResponses(fiados []fiado.Fiado) []FiadoResponse {
	out := make([]FiadoResponse, len(fiados))
	for i := range fiados {
		out[i] = ToFiadoResponse(&fiados[i])
	}
	return out
}

// PagoResponse represents a payment in API responses
type PagoResponse struct {
	ID      uuid.UUID `json:"id"`
	FiadoID uuid.UUID `json:"fiado_id"`
	Monto   Monto     `json:"monto"`
	Fecha   time.Time `json:"fecha"`
	Nota    string    `json:"nota,omitempty"`
}

// ToPagoResponses converts a list of domain payments
func ToPagoResponses(pagos []fiado.PagoFiado) []PagoResponse {
	out := make([]PagoResponse, len(pagos))
	for i, p := range pagos {
		out[i] = PagoResponse{
			ID:      p.ID,
			FiadoID: p.FiadoID,
			Monto:   NewMonto(p.Monto),
			Fecha:   p.Fecha,
			Nota:    p.Nota,
		}
	}
	return out
}

// PagoResult is the outcome of RegistrarPago
type PagoResult struct {
	PagoID        uuid.UUID `json:"pago_id"`
	FiadoID       uuid.UUID `json:"fiado_id"`
	Cliente       string    `json:"cliente"`
	MontoPagado   Monto     `json:"monto_pagado"`
	TotalPagado   Monto     `json:"total_pagado"`
	SaldoAnterior Monto     `json:"saldo_anterior"`
	SaldoRestante Monto     `json:"saldo_restante"`
	Estado        string    `json:"estado"`
	Completado    bool      `json:"completado"`
}

// InteresDetalle describes the effect of an interest application on one fiado
type InteresDetalle struct {
	FiadoID            uuid.UUID       `json:"fiado_id"`
	InteresAnterior    decimal.Decimal `json:"interes_anterior"`
	InteresNuevo       decimal.Decimal `json:"interes_nuevo"`
	MontoTotalAnterior Monto           `json:"monto_total_anterior"`
	MontoTotalNuevo    Monto           `json:"monto_total_nuevo"`
	SaldoNuevo         Monto           `json:"saldo_nuevo"`
}

// InteresResult is the outcome of AplicarInteresCliente
type InteresResult struct {
	ClienteID          uuid.UUID        `json:"cliente_id"`
	PorcentajeAplicado decimal.Decimal  `json:"porcentaje_aplicado"`
	FiadosActualizados int              `json:"fiados_actualizados"`
	TotalInteresMonto  Monto            `json:"total_interes_monto"`
	Detalle            []InteresDetalle `json:"detalle"`
}

// PagoTodoDetalle describes one fiado settled by a bulk payoff
type PagoTodoDetalle struct {
	FiadoID        uuid.UUID `json:"fiado_id"`
	PagoID         uuid.UUID `json:"pago_id"`
	MontoPagado    Monto     `json:"monto_pagado"`
	EstadoAnterior string    `json:"estado_anterior"`
}

// PagarTodoResult is the outcome of PagarTodoCliente
type PagarTodoResult struct {
	ClienteID      uuid.UUID         `json:"cliente_id"`
	ClienteNombre  string            `json:"cliente_nombre"`
	TotalPagado    Monto             `json:"total_pagado"`
	CantidadFiados int               `json:"cantidad_fiados"`
	FiadosPagados  []PagoTodoDetalle `json:"fiados_pagados"`
}

// ResumenFiados holds the per-status counts and sums of a client's fiados
type ResumenFiados struct {
	TotalFiados    int64 `json:"total_fiados"`
	Pendientes     int64 `json:"pendientes"`
	Parciales      int64 `json:"parciales"`
	Pagados        int64 `json:"pagados"`
	TotalDeuda     Monto `json:"total_deuda"`
	TotalPagado    Monto `json:"total_pagado"`
	SaldoPendiente Monto `json:"saldo_pendiente"`
}

// ResumenClienteResponse is the client summary
type ResumenClienteResponse struct {
	Cliente        ClienteResponse `json:"cliente"`
	ResumenFiados  ResumenFiados   `json:"resumen_fiados"`
	CantidadPagos  int64           `json:"cantidad_pagos"`
	Fiados         []FiadoResponse `json:"fiados"`
	HistorialPagos []PagoResponse  `json:"historial_pagos"`
}

// FiadoConPagos is one fiado with its payments, used by the grouped history
type FiadoConPagos struct {
	FiadoID        uuid.UUID      `json:"fiado_id"`
	MontoTotal     Monto          `json:"monto_total"`
	MontoPagado    Monto          `json:"monto_pagado"`
	SaldoPendiente Monto          `json:"saldo_pendiente"`
	Estado         string         `json:"estado"`
	FechaCreacion  time.Time      `json:"fecha_creacion"`
	Pagos          []PagoResponse `json:"pagos"`
}

// HistorialPagosClienteResponse is a client's payment history grouped per fiado
type HistorialPagosClienteResponse struct {
	ClienteID            uuid.UUID       `json:"cliente_id"`
	ClienteNombre        string          `json:"cliente_nombre"`
	Fiados               []FiadoConPagos `json:"fiados"`
	TotalFiados          int             `json:"total_fiados"`
	TotalPagadoGeneral   Monto           `json:"total_pagado_general"`
	TotalPagosRealizados int             `json:"total_pagos_realizados"`
}

// EstadisticasResponse holds the global ledger statistics
type EstadisticasResponse struct {
	Total           int64 `json:"total"`
	Pendientes      int64 `json:"pendientes"`
	Parciales       int64 `json:"parciales"`
	Pagados         int64 `json:"pagados"`
	SaldoPendiente  Monto `json:"saldo_pendiente"`
	MontoTotal      Monto `json:"monto_total"`
	MontoRecuperado Monto `json:"monto_recuperado"`
	CantidadPagos   int64 `json:"cantidad_pagos"`
}
