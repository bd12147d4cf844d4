package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFiadoRepository implements fiado.FiadoRepository using GORM.
// The ForUpdate finders only serialize writers when the repository is bound
// to a transaction handle.
type GormFiadoRepository struct {
	db *gorm.DB
}

// NewGormFiadoRepository creates a new GormFiadoRepository
func NewGormFiadoRepository(db *gorm.DB) *GormFiadoRepository {
	return &GormFiadoRepository{db: db}
}

// FindByID finds a fiado by its ID
func (r *GormFiadoRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiado.Fiado, error) {
	var model models.FiadoModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound("find fiado", err, fmt.Sprintf("Fiado %s not found", id))
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a fiado and takes a row lock on it (SELECT ... FOR UPDATE).
// SQLite has no row locks; its immediate transactions already hold the write lock.
func (r *GormFiadoRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fiado.Fiado, error) {
	var model models.FiadoModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound("lock fiado", err, fmt.Sprintf("Fiado %s not found", id))
	}
	return model.ToDomain(), nil
}

// FindOpenByClienteForUpdate locks the open fiados of a client, oldest first
func (r *GormFiadoRepository) FindOpenByClienteForUpdate(ctx context.Context, clienteID uuid.UUID) ([]*fiado.Fiado, error) {
	var fiadoModels []models.FiadoModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cliente_id = ? AND estado IN ?", clienteID, openEstados()).
		Order("fecha_creacion ASC").
		Order("id ASC").
		Find(&fiadoModels).Error; err != nil {
		return nil, translateError("lock fiados", err)
	}

	fiados := make([]*fiado.Fiado, len(fiadoModels))
	for i := range fiadoModels {
		fiados[i] = fiadoModels[i].ToDomain()
	}
	return fiados, nil
}

// FindAll lists fiados matching the filter, newest first
func (r *GormFiadoRepository) FindAll(ctx context.Context, filter fiado.FiadoFilter) ([]fiado.Fiado, error) {
	var fiadoModels []models.FiadoModel
	query := r.db.WithContext(ctx).Model(&models.FiadoModel{})
	if filter.Estado != nil {
		query = query.Where("estado = ?", string(*filter.Estado))
	}
	if filter.ClienteID != nil {
		query = query.Where("cliente_id = ?", *filter.ClienteID)
	}
	if err := query.Order("fecha_creacion DESC").Order("id DESC").Find(&fiadoModels).Error; err != nil {
		return nil, translateError("list fiados", err)
	}

	fiados := make([]fiado.Fiado, len(fiadoModels))
	for i, model := range fiadoModels {
		fiados[i] = *model.ToDomain()
	}
	return fiados, nil
}

// Create inserts a new fiado
func (r *GormFiadoRepository) Create(ctx context.Context, f *fiado.Fiado) error {
	model := models.FiadoModelFromDomain(f)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError("create fiado", err)
	}
	return nil
}

// SaveWithLock saves a fiado with optimistic locking (version check).
// The domain bumps Version once per mutation, so the stored row must still
// carry Version-1.
func (r *GormFiadoRepository) SaveWithLock(ctx context.Context, f *fiado.Fiado) error {
	model := models.FiadoModelFromDomain(f)
	result := r.db.WithContext(ctx).
		Model(&models.FiadoModel{}).
		Where("id = ? AND version = ?", f.ID, f.Version-1).
		Updates(model.MutableColumns())

	if result.Error != nil {
		return translateError("save fiado", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("save fiado",
			fmt.Errorf("fiado %s was modified by another transaction", f.ID))
	}
	return nil
}

// Delete deletes a fiado
func (r *GormFiadoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FiadoModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete fiado", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("Fiado %s not found", id))
	}
	return nil
}

func openEstados() []string {
	estados := fiado.OpenEstados()
	out := make([]string, len(estados))
	for i, e := range estados {
		out[i] = string(e)
	}
	return out
}

// Ensure GormFiadoRepository implements fiado.FiadoRepository
var _ fiado.FiadoRepository = (*GormFiadoRepository)(nil)
