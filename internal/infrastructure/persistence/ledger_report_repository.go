package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerReportRepository implements fiado.ReportRepository using SQL aggregates
type GormLedgerReportRepository struct {
	db *gorm.DB
}

// NewGormLedgerReportRepository creates a new GormLedgerReportRepository
func NewGormLedgerReportRepository(db *gorm.DB) *GormLedgerReportRepository {
	return &GormLedgerReportRepository{db: db}
}

// totalsRow receives the aggregate query. SQLite sums decimal columns as
// REAL, so sums are re-rounded before leaving the repository.
type totalsRow struct {
	Cantidad       int64
	Pendientes     int64
	Parciales      int64
	Pagados        int64
	MontoTotal     decimal.Decimal
	MontoPagado    decimal.Decimal
	SaldoPendiente decimal.Decimal
}

const totalsSelect = `COUNT(*) AS cantidad,
	COALESCE(SUM(CASE WHEN estado = ? THEN 1 ELSE 0 END), 0) AS pendientes,
	COALESCE(SUM(CASE WHEN estado = ? THEN 1 ELSE 0 END), 0) AS parciales,
	COALESCE(SUM(CASE WHEN estado = ? THEN 1 ELSE 0 END), 0) AS pagados,
	COALESCE(SUM(monto_total), 0) AS monto_total,
	COALESCE(SUM(monto_pagado), 0) AS monto_pagado,
	COALESCE(SUM(saldo_pendiente), 0) AS saldo_pendiente`

// ClienteTotals aggregates the fiados and payments of one client
func (r *GormLedgerReportRepository) ClienteTotals(ctx context.Context, clienteID uuid.UUID) (*fiado.Totals, error) {
	totals, err := r.totals(ctx, r.db.WithContext(ctx).Where("cliente_id = ?", clienteID))
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.PagoFiadoModel{}).
		Joins("JOIN fiados ON fiados.id = pagos_fiados.fiado_id").
		Where("fiados.cliente_id = ?", clienteID).
		Count(&totals.CantidadPagos).Error; err != nil {
		return nil, translateError("count pagos", err)
	}
	return totals, nil
}

// GlobalTotals aggregates every fiado in the ledger
func (r *GormLedgerReportRepository) GlobalTotals(ctx context.Context) (*fiado.Totals, error) {
	totals, err := r.totals(ctx, r.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&models.PagoFiadoModel{}).Count(&totals.CantidadPagos).Error; err != nil {
		return nil, translateError("count pagos", err)
	}
	return totals, nil
}

func (r *GormLedgerReportRepository) totals(_ context.Context, scope *gorm.DB) (*fiado.Totals, error) {
	var row totalsRow
	if err := scope.Model(&models.FiadoModel{}).
		Select(totalsSelect,
			string(fiado.EstadoPendiente),
			string(fiado.EstadoParcial),
			string(fiado.EstadoPagado)).
		Scan(&row).Error; err != nil {
		return nil, translateError("aggregate fiados", err)
	}

	return &fiado.Totals{
		Cantidad:       row.Cantidad,
		Pendientes:     row.Pendientes,
		Parciales:      row.Parciales,
		Pagados:        row.Pagados,
		MontoTotal:     shared.Round2(row.MontoTotal),
		MontoPagado:    shared.Round2(row.MontoPagado),
		SaldoPendiente: shared.Round2(row.SaldoPendiente),
	}, nil
}

// Ensure GormLedgerReportRepository implements fiado.ReportRepository
var _ fiado.ReportRepository = (*GormLedgerReportRepository)(nil)
