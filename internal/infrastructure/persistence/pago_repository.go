package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPagoRepository implements fiado.PagoRepository using GORM
type GormPagoRepository struct {
	db *gorm.DB
}

// NewGormPagoRepository creates a new GormPagoRepository
func NewGormPagoRepository(db *gorm.DB) *GormPagoRepository {
	return &GormPagoRepository{db: db}
}

// Create appends a payment
func (r *GormPagoRepository) Create(ctx context.Context, pago *fiado.PagoFiado) error {
	model := models.PagoFiadoModelFromDomain(pago)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError("create pago", err)
	}
	return nil
}

// FindByFiado lists the payments of a fiado, newest first. Payments with the
// same fecha (a bulk payoff) fall back to their time-ordered id.
func (r *GormPagoRepository) FindByFiado(ctx context.Context, fiadoID uuid.UUID) ([]fiado.PagoFiado, error) {
	var pagoModels []models.PagoFiadoModel
	if err := r.db.WithContext(ctx).
		Where("fiado_id = ?", fiadoID).
		Order("fecha DESC").
		Order("id DESC").
		Find(&pagoModels).Error; err != nil {
		return nil, translateError("list pagos", err)
	}
	return toPagos(pagoModels), nil
}

// FindByCliente lists the payments of every fiado of a client, newest first
func (r *GormPagoRepository) FindByCliente(ctx context.Context, clienteID uuid.UUID) ([]fiado.PagoFiado, error) {
	var pagoModels []models.PagoFiadoModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN fiados ON fiados.id = pagos_fiados.fiado_id").
		Where("fiados.cliente_id = ?", clienteID).
		Order("pagos_fiados.fecha DESC").
		Order("pagos_fiados.id DESC").
		Find(&pagoModels).Error; err != nil {
		return nil, translateError("list pagos", err)
	}
	return toPagos(pagoModels), nil
}

// DeleteByFiado removes every payment of a fiado
func (r *GormPagoRepository) DeleteByFiado(ctx context.Context, fiadoID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("fiado_id = ?", fiadoID).
		Delete(&models.PagoFiadoModel{}).Error; err != nil {
		return translateError("delete pagos", err)
	}
	return nil
}

func toPagos(pagoModels []models.PagoFiadoModel) []fiado.PagoFiado {
	pagos := make([]fiado.PagoFiado, len(pagoModels))
	for i, model := range pagoModels {
		pagos[i] = *model.ToDomain()
	}
	return pagos
}

// Ensure GormPagoRepository implements fiado.PagoRepository
var _ fiado.PagoRepository = (*GormPagoRepository)(nil)
