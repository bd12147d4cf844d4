package fiado

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used in logs, spans and metrics
const (
	OpCrearFiado       = "crear_fiado"
	OpRegistrarPago    = "registrar_pago"
	OpAplicarInteres   = "aplicar_interes"
	OpPagarTodo        = "pagar_todo"
	OpModificarFiado   = "modificar_fiado"
	OpEliminarFiado    = "eliminar_fiado"
	OpAgregarCliente   = "agregar_cliente"
	ledgerSpanService  = "fiado"
	clienteSpanService = "cliente"
)

// LedgerService runs the state-changing fiado operations. Every operation
// is one unit of work inside the TransactionScope; the service never touches
// a repository outside of it.
type LedgerService struct {
	scope   TransactionScope
	now     func() time.Time
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// LedgerOption configures a LedgerService
type LedgerOption func(*LedgerService)

// WithClock injects the clock used for every timestamp the ledger writes
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) {
		s.now = now
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) LedgerOption {
	return func(s *LedgerService) {
		s.logger = logger
	}
}

// WithMetrics sets the ledger metrics recorder
func WithMetrics(metrics *telemetry.LedgerMetrics) LedgerOption {
	return func(s *LedgerService) {
		s.metrics = metrics
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		scope:  scope,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CrearFiado extends credit to an existing client. An empty ClienteNombre
// snapshots the client's current name.
func (s *LedgerService) CrearFiado(ctx context.Context, req CrearFiadoRequest) (*FiadoResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, ledgerSpanService, OpCrearFiado,
		telemetry.WithAttribute("cliente_id", req.ClienteID.String()))
	defer span.End()

	now := s.now()
	var created *fiado.Fiado
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		cliente, err := repos.ClienteRepo().FindByID(ctx, req.ClienteID)
		if err != nil {
			return err
		}

		nombre := req.ClienteNombre
		if strings.TrimSpace(nombre) == "" {
			nombre = cliente.Nombre
		}

		f, err := fiado.NewFiado(cliente.ID, nombre, req.MontoOriginal, req.InteresPorcentaje, req.Nota, now)
		if err != nil {
			return err
		}
		if err := repos.FiadoRepo().Create(ctx, f); err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, OpCrearFiado, err)
	}

	s.metrics.RecordFiadoCreated(ctx, created.MontoTotal)
	s.logger.Info("Fiado created",
		zap.String("fiado_id", created.ID.String()),
		zap.String("cliente_id", created.ClienteID.String()),
		zap.String("monto_original", created.MontoOriginal.StringFixed(2)),
		zap.String("interes_porcentaje", created.InteresPorcentaje.String()),
		zap.String("monto_total", created.MontoTotal.StringFixed(2)),
	)
	telemetry.SetOK(span)

	resp := ToFiadoResponse(created)
	return &resp, nil
}

// RegistrarPago applies a payment to a fiado against its locked current row.
// The amount must not exceed the outstanding balance.
func (s *LedgerService) RegistrarPago(ctx context.Context, fiadoID uuid.UUID, req RegistrarPagoRequest) (*PagoResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, ledgerSpanService, OpRegistrarPago,
		telemetry.WithAttribute("fiado_id", fiadoID.String()),
		telemetry.WithAttribute("monto", req.Monto.String()))
	defer span.End()

	now := s.now()
	var result *PagoResult
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		f, err := repos.FiadoRepo().FindByIDForUpdate(ctx, fiadoID)
		if err != nil {
			return err
		}

		saldoAnterior := f.SaldoPendiente
		pago, err := f.ApplyPayment(req.Monto, req.Nota, now)
		if err != nil {
			return err
		}
		if err := repos.FiadoRepo().SaveWithLock(ctx, f); err != nil {
			return err
		}
		if err := repos.PagoRepo().Create(ctx, pago); err != nil {
			return err
		}

		result = &PagoResult{
			PagoID:        pago.ID,
			FiadoID:       f.ID,
			Cliente:       f.ClienteNombre,
			MontoPagado:   NewMonto(pago.Monto),
			TotalPagado:   NewMonto(f.MontoPagado),
			SaldoAnterior: NewMonto(saldoAnterior),
			SaldoRestante: NewMonto(f.SaldoPendiente),
			Estado:        f.Estado.String(),
			Completado:    f.IsCompleted(),
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, OpRegistrarPago, err)
	}

	s.metrics.RecordPago(ctx, result.MontoPagado.Decimal, result.Completado)
	s.logger.Info("Payment registered",
		zap.String("fiado_id", result.FiadoID.String()),
		zap.String("pago_id", result.PagoID.String()),
		zap.String("monto", result.MontoPagado.StringFixed(2)),
		zap.String("saldo_restante", result.SaldoRestante.StringFixed(2)),
		zap.String("estado", result.Estado),
	)
	telemetry.SetAttributes(span, "estado", result.Estado, "completado", result.Completado)
	telemetry.SetOK(span)

	return result, nil
}

// AplicarInteresCliente adds a percentage to the cumulative rate of every
// open fiado of a client in a single batch. Amounts already collected are preserved.
func (s *LedgerService) AplicarInteresCliente(ctx context.Context, clienteID uuid.UUID, req AplicarInteresRequest) (*InteresResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, clienteSpanService, OpAplicarInteres,
		telemetry.WithAttribute("cliente_id", clienteID.String()),
		telemetry.WithAttribute("porcentaje", req.PorcentajeInteres.String()))
	defer span.End()

	now := s.now()
	result := &InteresResult{
		ClienteID:          clienteID,
		PorcentajeAplicado: req.PorcentajeInteres,
	}
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.ClienteRepo().FindByID(ctx, clienteID); err != nil {
			return err
		}

		fiados, err := repos.FiadoRepo().FindOpenByClienteForUpdate(ctx, clienteID)
		if err != nil {
			return err
		}
		if len(fiados) == 0 {
			return errNoEligibleFiados(clienteID)
		}

		agregado := decimal.Zero
		detalle := make([]InteresDetalle, 0, len(fiados))
		for _, f := range fiados {
			change, err := f.ApplyInterest(req.PorcentajeInteres, now)
			if err != nil {
				return err
			}
			if err := repos.FiadoRepo().SaveWithLock(ctx, f); err != nil {
				return err
			}
			agregado = agregado.Add(change.InteresAgregado())
			detalle = append(detalle, InteresDetalle{
				FiadoID:            change.FiadoID,
				InteresAnterior:    change.InteresAnterior,
				InteresNuevo:       change.InteresNuevo,
				MontoTotalAnterior: NewMonto(change.MontoTotalAnterior),
				MontoTotalNuevo:    NewMonto(change.MontoTotalNuevo),
				SaldoNuevo:         NewMonto(change.SaldoNuevo),
			})
		}

		result.FiadosActualizados = len(detalle)
		result.TotalInteresMonto = NewMonto(agregado)
		result.Detalle = detalle
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, OpAplicarInteres, err)
	}

	s.metrics.RecordInterestApplied(ctx, result.FiadosActualizados)
	s.logger.Info("Interest applied",
		zap.String("cliente_id", clienteID.String()),
		zap.String("porcentaje", req.PorcentajeInteres.String()),
		zap.Int("fiados", result.FiadosActualizados),
		zap.String("interes_agregado", result.TotalInteresMonto.StringFixed(2)),
	)
	telemetry.SetAttributes(span, "fiados_actualizados", result.FiadosActualizados)
	telemetry.SetOK(span)

	return result, nil
}

// PagarTodoCliente settles every open fiado of a client in one batch, oldest
// first. The entered amount must match the summed balances within the
// rounding tolerance; each fiado is paid exactly its own balance.
func (s *LedgerService) PagarTodoCliente(ctx context.Context, clienteID uuid.UUID, req PagarTodoRequest) (*PagarTodoResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, clienteSpanService, OpPagarTodo,
		telemetry.WithAttribute("cliente_id", clienteID.String()),
		telemetry.WithAttribute("monto_total", req.MontoTotal.String()))
	defer span.End()

	now := s.now()
	var result *PagarTodoResult
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		cliente, err := repos.ClienteRepo().FindByID(ctx, clienteID)
		if err != nil {
			return err
		}

		fiados, err := repos.FiadoRepo().FindOpenByClienteForUpdate(ctx, clienteID)
		if err != nil {
			return err
		}
		if len(fiados) == 0 {
			return errNoEligibleFiados(clienteID)
		}

		adeudado := decimal.Zero
		for _, f := range fiados {
			adeudado = adeudado.Add(f.SaldoPendiente)
		}
		if !shared.WithinTolerance(adeudado, req.MontoTotal) {
			return shared.NewDomainError("AMOUNT_MISMATCH",
				fmt.Sprintf("Amount %s does not match the outstanding balance %s",
					req.MontoTotal.StringFixed(2), adeudado.StringFixed(2)))
		}

		total := decimal.Zero
		detalle := make([]PagoTodoDetalle, 0, len(fiados))
		for _, f := range fiados {
			estadoAnterior := f.Estado
			pago, err := f.PayOff(req.Nota, now)
			if err != nil {
				return err
			}
			if err := repos.FiadoRepo().SaveWithLock(ctx, f); err != nil {
				return err
			}
			if err := repos.PagoRepo().Create(ctx, pago); err != nil {
				return err
			}
			total = total.Add(pago.Monto)
			detalle = append(detalle, PagoTodoDetalle{
				FiadoID:        f.ID,
				PagoID:         pago.ID,
				MontoPagado:    NewMonto(pago.Monto),
				EstadoAnterior: estadoAnterior.String(),
			})
		}

		result = &PagarTodoResult{
			ClienteID:      cliente.ID,
			ClienteNombre:  cliente.Nombre,
			TotalPagado:    NewMonto(total),
			CantidadFiados: len(detalle),
			FiadosPagados:  detalle,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, OpPagarTodo, err)
	}

	s.metrics.RecordPayoff(ctx, result.CantidadFiados, result.TotalPagado.Decimal)
	s.logger.Info("Client paid off",
		zap.String("cliente_id", clienteID.String()),
		zap.Int("fiados", result.CantidadFiados),
		zap.String("total_pagado", result.TotalPagado.StringFixed(2)),
	)
	telemetry.SetAttributes(span, "cantidad_fiados", result.CantidadFiados)
	telemetry.SetOK(span)

	return result, nil
}

// ModificarFiado edits principal, rate or note of an open fiado. Collected
// amounts are kept and the balance and estado are re-derived.
func (s *LedgerService) ModificarFiado(ctx context.Context, fiadoID uuid.UUID, req ModificarFiadoRequest) (*FiadoResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, ledgerSpanService, OpModificarFiado,
		telemetry.WithAttribute("fiado_id", fiadoID.String()))
	defer span.End()

	if req.MontoOriginal == nil && req.InteresPorcentaje == nil && req.Nota == nil {
		return nil, s.fail(ctx, span, OpModificarFiado,
			shared.NewDomainError(shared.ErrInvalidInput.Code, "No changes provided"))
	}

	now := s.now()
	var updated *fiado.Fiado
	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		f, err := repos.FiadoRepo().FindByIDForUpdate(ctx, fiadoID)
		if err != nil {
			return err
		}
		if err := f.Modify(fiado.Changes{
			MontoOriginal:     req.MontoOriginal,
			InteresPorcentaje: req.InteresPorcentaje,
			Nota:              req.Nota,
		}, now); err != nil {
			return err
		}
		if err := repos.FiadoRepo().SaveWithLock(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, OpModificarFiado, err)
	}

	s.logger.Info("Fiado modified",
		zap.String("fiado_id", updated.ID.String()),
		zap.String("monto_total", updated.MontoTotal.StringFixed(2)),
		zap.String("saldo_pendiente", updated.SaldoPendiente.StringFixed(2)),
		zap.String("estado", updated.Estado.String()),
	)
	telemetry.SetOK(span)

	resp := ToFiadoResponse(updated)
	return &resp, nil
}

// EliminarFiado removes an open fiado together with its payments
func (s *LedgerService) EliminarFiado(ctx context.Context, fiadoID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, ledgerSpanService, OpEliminarFiado,
		telemetry.WithAttribute("fiado_id", fiadoID.String()))
	defer span.End()

	err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		f, err := repos.FiadoRepo().FindByIDForUpdate(ctx, fiadoID)
		if err != nil {
			return err
		}
		if err := f.EnsureDeletable(); err != nil {
			return err
		}
		if err := repos.PagoRepo().DeleteByFiado(ctx, f.ID); err != nil {
			return err
		}
		return repos.FiadoRepo().Delete(ctx, f.ID)
	})
	if err != nil {
		return s.fail(ctx, span, OpEliminarFiado, err)
	}

	s.logger.Info("Fiado deleted", zap.String("fiado_id", fiadoID.String()))
	telemetry.SetOK(span)
	return nil
}

// fail records a failed operation and normalizes its error into one of the
// two ledger failure kinds.
func (s *LedgerService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	telemetry.RecordError(span, err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordRejected(ctx, op, domainErr.Code)
		s.logger.Debug("Ledger operation rejected",
			zap.String("operation", op),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message),
		)
		return err
	}

	var storageErr *shared.StorageError
	if !errors.As(err, &storageErr) {
		storageErr = shared.NewStorageError(op, err)
		err = storageErr
	}
	s.metrics.RecordStorageFailure(ctx, op, storageErr.Timeout)
	if storageErr.Retryable() {
		s.logger.Warn("Ledger operation could not complete",
			zap.String("operation", op),
			zap.Bool("timeout", storageErr.Timeout),
			zap.Bool("conflict", storageErr.Conflict),
			zap.Error(err),
		)
	} else {
		s.logger.Error("Ledger storage failure", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func errNoEligibleFiados(clienteID uuid.UUID) error {
	return shared.NewDomainError("NO_ELIGIBLE_FIADOS",
		fmt.Sprintf("Client %s has no pending fiados", clienteID))
}
