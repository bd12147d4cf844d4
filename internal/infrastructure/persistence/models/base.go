package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/shared"
)

// BaseModel provides the id and audit timestamps shared by ledger tables.
// Timestamps are set by the domain clock, never by gorm.
type BaseModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	FechaCreacion      time.Time `gorm:"column:fecha_creacion;not null;index"`
	FechaActualizacion time.Time `gorm:"column:fecha_actualizacion;not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.FechaCreacion,
		UpdatedAt: m.FechaActualizacion,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.FechaCreacion = e.CreatedAt
	m.FechaActualizacion = e.UpdatedAt
}

// AggregateModel extends BaseModel with the optimistic-lock version
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ToDomainAggregateRoot converts AggregateModel to domain BaseAggregateRoot
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.BaseModel.ToDomain(),
		Version:    m.Version,
	}
}
