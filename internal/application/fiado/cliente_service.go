package fiado

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ClienteService manages the client registry the ledger depends on
type ClienteService struct {
	scope    TransactionScope
	clientes fiado.ClienteRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewClienteService creates a new ClienteService. A nil clock defaults to
// time.Now and a nil logger to a no-op logger.
func NewClienteService(scope TransactionScope, clientes fiado.ClienteRepository, now func() time.Time, logger *zap.Logger) *ClienteService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClienteService{
		scope:    scope,
		clientes: clientes,
		now:      now,
		logger:   logger,
	}
}

// AgregarCliente registers a new client with a unique trimmed name
func (s *ClienteService) AgregarCliente(ctx context.Context, req AgregarClienteRequest) (*ClienteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, clienteSpanService, OpAgregarCliente)
	defer span.End()

	cliente, err := fiado.NewCliente(req.Nombre, fiado.Contacto{
		Telefono:  req.Telefono,
		Email:     req.Email,
		Direccion: req.Direccion,
		Notas:     req.Notas,
	}, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		exists, err := repos.ClienteRepo().ExistsByNombre(ctx, cliente.Nombre)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code,
				fmt.Sprintf("Client %q already exists", cliente.Nombre))
		}
		return repos.ClienteRepo().Save(ctx, cliente)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Client registered",
		zap.String("cliente_id", cliente.ID.String()),
		zap.String("nombre", cliente.Nombre),
	)
	telemetry.SetOK(span)

	resp := ToClienteResponse(cliente)
	return &resp, nil
}

// ObtenerCliente returns a client by ID
func (s *ClienteService) ObtenerCliente(ctx context.Context, id uuid.UUID) (*ClienteResponse, error) {
	cliente, err := s.clientes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToClienteResponse(cliente)
	return &resp, nil
}

// BuscarClientePorNombre returns the client with exactly this (trimmed) name
func (s *ClienteService) BuscarClientePorNombre(ctx context.Context, nombre string) (*ClienteResponse, error) {
	cliente, err := s.clientes.FindByNombre(ctx, nombre)
	if err != nil {
		return nil, err
	}
	resp := ToClienteResponse(cliente)
	return &resp, nil
}

// ListarClientes lists clients ordered by name
func (s *ClienteService) ListarClientes(ctx context.Context, soloActivos bool) ([]ClienteResponse, error) {
	clientes, err := s.clientes.FindAll(ctx, soloActivos)
	if err != nil {
		return nil, err
	}
	out := make([]ClienteResponse, len(clientes))
	for i := range clientes {
		out[i] = ToClienteResponse(&clientes[i])
	}
	return out, nil
}
