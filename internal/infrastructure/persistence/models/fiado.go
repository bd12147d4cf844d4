package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/shopspring/decimal"
)

// ClienteModel is the persistence model for the clientes table
type ClienteModel struct {
	BaseModel
	Nombre    string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Telefono  string `gorm:"type:varchar(50)"`
	Email     string `gorm:"type:varchar(200)"`
	Direccion string `gorm:"type:varchar(500)"`
	Notas     string `gorm:"type:text"`
	Activo    bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ClienteModel) TableName() string {
	return "clientes"
}

// ToDomain converts the persistence model to a domain Cliente
func (m *ClienteModel) ToDomain() *fiado.Cliente {
	return &fiado.Cliente{
		BaseEntity: m.BaseModel.ToDomain(),
		Nombre:     m.Nombre,
		Contacto: fiado.Contacto{
			Telefono:  m.Telefono,
			Email:     m.Email,
			Direccion: m.Direccion,
			Notas:     m.Notas,
		},
		Activo: m.Activo,
	}
}

// ClienteModelFromDomain creates a persistence model from a domain Cliente
func ClienteModelFromDomain(c *fiado.Cliente) *ClienteModel {
	m := &ClienteModel{
		Nombre:    c.Nombre,
		Telefono:  c.Telefono,
		Email:     c.Email,
		Direccion: c.Direccion,
		Notas:     c.Notas,
		Activo:    c.Activo,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// FiadoModel is the persistence model for the fiados table.
// Cliente only exists so the schema carries the cascading foreign key;
// repositories never load or save it.
type FiadoModel struct {
	AggregateModel
	ClienteID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cliente           *ClienteModel   `gorm:"foreignKey:ClienteID;constraint:OnDelete:CASCADE"`
	ClienteNombre     string          `gorm:"type:varchar(200);not null"`
	MontoOriginal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	InteresPorcentaje decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	MontoTotal        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoPagado       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SaldoPendiente    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Estado            string          `gorm:"type:varchar(20);not null;index"`
	FechaCompletado   *time.Time      `gorm:"column:fecha_completado"`
	Nota              string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FiadoModel) TableName() string {
	return "fiados"
}

// ToDomain converts the persistence model to a domain Fiado
func (m *FiadoModel) ToDomain() *fiado.Fiado {
	return &fiado.Fiado{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregateRoot(),
		ClienteID:         m.ClienteID,
		ClienteNombre:     m.ClienteNombre,
		MontoOriginal:     m.MontoOriginal,
		InteresPorcentaje: m.InteresPorcentaje,
		MontoTotal:        m.MontoTotal,
		MontoPagado:       m.MontoPagado,
		SaldoPendiente:    m.SaldoPendiente,
		Estado:            fiado.Estado(m.Estado),
		FechaCompletado:   m.FechaCompletado,
		Nota:              m.Nota,
	}
}

// FiadoModelFromDomain creates a persistence model from a domain Fiado
func FiadoModelFromDomain(f *fiado.Fiado) *FiadoModel {
	m := &FiadoModel{
		ClienteID:         f.ClienteID,
		ClienteNombre:     f.ClienteNombre,
		MontoOriginal:     f.MontoOriginal,
		InteresPorcentaje: f.InteresPorcentaje,
		MontoTotal:        f.MontoTotal,
		MontoPagado:       f.MontoPagado,
		SaldoPendiente:    f.SaldoPendiente,
		Estado:            string(f.Estado),
		FechaCompletado:   f.FechaCompletado,
		Nota:              f.Nota,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	return m
}

// MutableColumns returns the columns a ledger mutation may change, keyed by
// column name so zero values (a 0.00 balance, an empty note) are written too.
func (m *FiadoModel) MutableColumns() map[string]any {
	return map[string]any{
		"monto_original":      m.MontoOriginal,
		"interes_porcentaje":  m.InteresPorcentaje,
		"monto_total":         m.MontoTotal,
		"monto_pagado":        m.MontoPagado,
		"saldo_pendiente":     m.SaldoPendiente,
		"estado":              m.Estado,
		"fecha_completado":    m.FechaCompletado,
		"fecha_actualizacion": m.FechaActualizacion,
		"nota":                m.Nota,
		"version":             m.Version,
	}
}

// PagoFiadoModel is the persistence model for the pagos_fiados table
type PagoFiadoModel struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FiadoID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Fiado   *FiadoModel     `gorm:"foreignKey:FiadoID;constraint:OnDelete:CASCADE"`
	Monto   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Fecha   time.Time       `gorm:"not null;index"`
	Nota    string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PagoFiadoModel) TableName() string {
	return "pagos_fiados"
}

// ToDomain converts the persistence model to a domain PagoFiado
func (m *PagoFiadoModel) ToDomain() *fiado.PagoFiado {
	return &fiado.PagoFiado{
		ID:      m.ID,
		FiadoID: m.FiadoID,
		Monto:   m.Monto,
		Fecha:   m.Fecha,
		Nota:    m.Nota,
	}
}

// PagoFiadoModelFromDomain creates a persistence model from a domain PagoFiado
func PagoFiadoModelFromDomain(p *fiado.PagoFiado) *PagoFiadoModel {
	return &PagoFiadoModel{
		ID:      p.ID,
		FiadoID: p.FiadoID,
		Monto:   p.Monto,
		Fecha:   p.Fecha,
		Nota:    p.Nota,
	}
}

// LedgerModels lists the ledger tables in dependency order
func LedgerModels() []any {
	return []any{&ClienteModel{}, &FiadoModel{}, &PagoFiadoModel{}}
}
