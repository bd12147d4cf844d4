package fiado

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiosco/fiados/internal/domain/shared"
)

// MinNombreLength is the minimum length of a client name after trimming
const MinNombreLength = 2

// Contacto holds the optional contact details of a client
type Contacto struct {
	Telefono  string
	Email     string
	Direccion string
	Notas     string
}

// Cliente is a debtor. Clients are never hard-deleted by the ledger.
type Cliente struct {
	shared.BaseEntity
	Nombre string
	Contacto
	Activo bool
}

// NewCliente creates an active client with a validated, trimmed name
func NewCliente(nombre string, contacto Contacto, now time.Time) (*Cliente, error) {
	nombre, err := NormalizeNombre(nombre)
	if err != nil {
		return nil, err
	}

	return &Cliente{
		BaseEntity: shared.NewBaseEntity(now),
		Nombre:     nombre,
		Contacto: Contacto{
			Telefono:  strings.TrimSpace(contacto.Telefono),
			Email:     strings.TrimSpace(contacto.Email),
			Direccion: strings.TrimSpace(contacto.Direccion),
			Notas:     strings.TrimSpace(contacto.Notas),
		},
		Activo: true,
	}, nil
}

// NormalizeNombre trims a client name and checks its length
func NormalizeNombre(nombre string) (string, error) {
	nombre = strings.TrimSpace(nombre)
	if utf8.RuneCountInString(nombre) < MinNombreLength {
		return "", shared.NewDomainError("INVALID_NAME", "Client name must have at least 2 characters")
	}
	return nombre, nil
}
