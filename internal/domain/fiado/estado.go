package fiado

import "strings"

// Estado is the lifecycle state of a fiado: Pendiente -> Parcial -> Pagado.
// Transitions never go backward.
type Estado string

const (
	EstadoPendiente Estado = "Pendiente"
	EstadoParcial   Estado = "Parcial"
	EstadoPagado    Estado = "Pagado"
)

// IsValid checks if the estado is a known value
func (e Estado) IsValid() bool {
	switch e {
	case EstadoPendiente, EstadoParcial, EstadoPagado:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (e Estado) String() string {
	return string(e)
}

// IsOpen reports whether the fiado still accepts payments and interest
func (e Estado) IsOpen() bool {
	return e == EstadoPendiente || e == EstadoParcial
}

// IsTerminal returns true for Pagado
func (e Estado) IsTerminal() bool {
	return e == EstadoPagado
}

// ParseEstado parses an estado case-insensitively
func ParseEstado(s string) (Estado, bool) {
	for _, e := range []Estado{EstadoPendiente, EstadoParcial, EstadoPagado} {
		if strings.EqualFold(s, string(e)) {
			return e, true
		}
	}
	return "", false
}

// OpenEstados lists the states eligible for payment and interest
func OpenEstados() []Estado {
	return []Estado{EstadoPendiente, EstadoParcial}
}
