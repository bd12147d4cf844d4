package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClienteRepository implements fiado.ClienteRepository using GORM
type GormClienteRepository struct {
	db *gorm.DB
}

// NewGormClienteRepository creates a new GormClienteRepository
func NewGormClienteRepository(db *gorm.DB) *GormClienteRepository {
	return &GormClienteRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClienteRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiado.Cliente, error) {
	var model models.ClienteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound("find cliente", err, fmt.Sprintf("Client %s not found", id))
	}
	return model.ToDomain(), nil
}

// FindByNombre finds a client by its exact trimmed name
func (r *GormClienteRepository) FindByNombre(ctx context.Context, nombre string) (*fiado.Cliente, error) {
	nombre = strings.TrimSpace(nombre)
	var model models.ClienteModel
	if err := r.db.WithContext(ctx).Where("nombre = ?", nombre).First(&model).Error; err != nil {
		return nil, notFound("find cliente", err, fmt.Sprintf("Client %q not found", nombre))
	}
	return model.ToDomain(), nil
}

// FindAll lists clients ordered by name
func (r *GormClienteRepository) FindAll(ctx context.Context, soloActivos bool) ([]fiado.Cliente, error) {
	var clienteModels []models.ClienteModel
	query := r.db.WithContext(ctx).Model(&models.ClienteModel{})
	if soloActivos {
		query = query.Where("activo = ?", true)
	}
	if err := query.Order("nombre ASC").Find(&clienteModels).Error; err != nil {
		return nil, translateError("list clientes", err)
	}

	clientes := make([]fiado.Cliente, len(clienteModels))
	for i, model := range clienteModels {
		clientes[i] = *model.ToDomain()
	}
	return clientes, nil
}

// ExistsByNombre checks whether a client with this name exists
func (r *GormClienteRepository) ExistsByNombre(ctx context.Context, nombre string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClienteModel{}).
		Where("nombre = ?", strings.TrimSpace(nombre)).
		Count(&count).Error; err != nil {
		return false, translateError("find cliente", err)
	}
	return count > 0, nil
}

// Save creates or updates a client
func (r *GormClienteRepository) Save(ctx context.Context, cliente *fiado.Cliente) error {
	model := models.ClienteModelFromDomain(cliente)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateError("save cliente", err)
	}
	return nil
}

// Ensure GormClienteRepository implements fiado.ClienteRepository
var _ fiado.ClienteRepository = (*GormClienteRepository)(nil)
