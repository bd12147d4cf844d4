package fiado

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QueryService answers the read-only ledger questions. Nothing here writes,
// so repeated calls without intervening mutations return identical results.
type QueryService struct {
	clientes fiado.ClienteRepository
	fiados   fiado.FiadoRepository
	pagos    fiado.PagoRepository
	reports  fiado.ReportRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(
	clientes fiado.ClienteRepository,
	fiados fiado.FiadoRepository,
	pagos fiado.PagoRepository,
	reports fiado.ReportRepository,
) *QueryService {
	return &QueryService{
		clientes: clientes,
		fiados:   fiados,
		pagos:    pagos,
		reports:  reports,
	}
}

// ObtenerFiados lists fiados newest first, optionally by estado and client
func (s *QueryService) ObtenerFiados(ctx context.Context, filter FiadoListFilter) ([]FiadoResponse, error) {
	var domainFilter fiado.FiadoFilter
	if filter.Estado != "" {
		estado, ok := fiado.ParseEstado(filter.Estado)
		if !ok {
			return nil, shared.NewDomainError("INVALID_ESTADO",
				fmt.Sprintf("Unknown estado %q (expected Pendiente, Parcial or Pagado)", filter.Estado))
		}
		domainFilter.Estado = &estado
	}
	if filter.ClienteID != "" {
		clienteID, err := uuid.Parse(filter.ClienteID)
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "cliente_id must be a UUID")
		}
		domainFilter.ClienteID = &clienteID
	}

	fiados, err := s.fiados.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToFiadoResponses(fiados), nil
}

// ObtenerFiado returns one fiado
func (s *QueryService) ObtenerFiado(ctx context.Context, id uuid.UUID) (*FiadoResponse, error) {
	f, err := s.fiados.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToFiadoResponse(f)
	return &resp, nil
}

// ObtenerHistorialFiado lists a fiado's payments newest first
func (s *QueryService) ObtenerHistorialFiado(ctx context.Context, fiadoID uuid.UUID) ([]PagoResponse, error) {
	if _, err := s.fiados.FindByID(ctx, fiadoID); err != nil {
		return nil, err
	}
	pagos, err := s.pagos.FindByFiado(ctx, fiadoID)
	if err != nil {
		return nil, err
	}
	return ToPagoResponses(pagos), nil
}

// ObtenerResumenCliente summarizes a client's fiados and payments
func (s *QueryService) ObtenerResumenCliente(ctx context.Context, clienteID uuid.UUID) (*ResumenClienteResponse, error) {
	cliente, err := s.clientes.FindByID(ctx, clienteID)
	if err != nil {
		return nil, err
	}

	totals, err := s.reports.ClienteTotals(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	fiados, err := s.fiados.FindAll(ctx, fiado.FiadoFilter{ClienteID: &clienteID})
	if err != nil {
		return nil, err
	}
	pagos, err := s.pagos.FindByCliente(ctx, clienteID)
	if err != nil {
		return nil, err
	}

	return &ResumenClienteResponse{
		Cliente: ToClienteResponse(cliente),
		ResumenFiados: ResumenFiados{
			TotalFiados:    totals.Cantidad,
			Pendientes:     totals.Pendientes,
			Parciales:      totals.Parciales,
			Pagados:        totals.Pagados,
			TotalDeuda:     NewMonto(totals.MontoTotal),
			TotalPagado:    NewMonto(totals.MontoPagado),
			SaldoPendiente: NewMonto(totals.SaldoPendiente),
		},
		CantidadPagos:  totals.CantidadPagos,
		Fiados:         ToFiadoResponses(fiados),
		HistorialPagos: ToPagoResponses(pagos),
	}, nil
}

// ObtenerHistorialPagosCliente groups a client's payments per fiado.
// Fiados keep the newest-first order; payments inside each group too.
func (s *QueryService) ObtenerHistorialPagosCliente(ctx context.Context, clienteID uuid.UUID) (*HistorialPagosClienteResponse, error) {
	cliente, err := s.clientes.FindByID(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	fiados, err := s.fiados.FindAll(ctx, fiado.FiadoFilter{ClienteID: &clienteID})
	if err != nil {
		return nil, err
	}
	pagos, err := s.pagos.FindByCliente(ctx, clienteID)
	if err != nil {
		return nil, err
	}

	byFiado := make(map[uuid.UUID][]fiado.PagoFiado, len(fiados))
	for _, p := range pagos {
		byFiado[p.FiadoID] = append(byFiado[p.FiadoID], p)
	}

	resp := &HistorialPagosClienteResponse{
		ClienteID:     cliente.ID,
		ClienteNombre: cliente.Nombre,
		Fiados:        make([]FiadoConPagos, 0, len(fiados)),
	}
	totalPagado := decimal.Zero
	for _, f := range fiados {
		group := byFiado[f.ID]
		for _, p := range group {
			totalPagado = totalPagado.Add(p.Monto)
		}
		resp.Fiados = append(resp.Fiados, FiadoConPagos{
			FiadoID:        f.ID,
			MontoTotal:     NewMonto(f.MontoTotal),
			MontoPagado:    NewMonto(f.MontoPagado),
			SaldoPendiente: NewMonto(f.SaldoPendiente),
			Estado:         f.Estado.String(),
			FechaCreacion:  f.CreatedAt,
			Pagos:          ToPagoResponses(group),
		})
		resp.TotalPagosRealizados += len(group)
	}
	resp.TotalFiados = len(resp.Fiados)
	resp.TotalPagadoGeneral = NewMonto(totalPagado)
	return resp, nil
}

// ObtenerEstadisticasGlobales returns counts and sums over the whole ledger
func (s *QueryService) ObtenerEstadisticasGlobales(ctx context.Context) (*EstadisticasResponse, error) {
	totals, err := s.reports.GlobalTotals(ctx)
	if err != nil {
		return nil, err
	}
	return &EstadisticasResponse{
		Total:           totals.Cantidad,
		Pendientes:      totals.Pendientes,
		Parciales:       totals.Parciales,
		Pagados:         totals.Pagados,
		SaldoPendiente:  NewMonto(totals.SaldoPendiente),
		MontoTotal:      NewMonto(totals.MontoTotal),
		MontoRecuperado: NewMonto(totals.MontoPagado),
		CantidadPagos:   totals.CantidadPagos,
	}, nil
}
