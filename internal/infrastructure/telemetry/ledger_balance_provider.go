package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBalanceProvider implements BalanceProvider with one aggregate query
// over the fiados table.
type GormBalanceProvider struct {
	db *gorm.DB
}

// NewGormBalanceProvider creates a new GormBalanceProvider.
func NewGormBalanceProvider(db *gorm.DB) *GormBalanceProvider {
	return &GormBalanceProvider{db: db}
}

// LedgerSnapshot counts open fiados by estado and sums their balances.
func (p *GormBalanceProvider) LedgerSnapshot(ctx context.Context) (LedgerSnapshot, error) {
	var row struct {
		Pendientes     int64
		Parciales      int64
		SaldoPendiente decimal.Decimal
	}
	err := p.db.WithContext(ctx).
		Table("fiados").
		Select(`COALESCE(SUM(CASE WHEN estado = ? THEN 1 ELSE 0 END), 0) AS pendientes,
			COALESCE(SUM(CASE WHEN estado = ? THEN 1 ELSE 0 END), 0) AS parciales,
			COALESCE(SUM(saldo_pendiente), 0) AS saldo_pendiente`, "Pendiente", "Parcial").
		Where("estado IN ?", []string{"Pendiente", "Parcial"}).
		Scan(&row).Error
	if err != nil {
		return LedgerSnapshot{}, err
	}

	return LedgerSnapshot{
		Pendientes:     row.Pendientes,
		Parciales:      row.Parciales,
		SaldoPendiente: row.SaldoPendiente.Round(2),
	}, nil
}
