package fiado_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/stretchr/testify/mock"
)

// MockClienteRepository is a mock implementation of fiado.ClienteRepository
type MockClienteRepository struct {
	mock.Mock
}

func (m *MockClienteRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiado.Cliente, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Cliente), args.Error(1)
}

func (m *MockClienteRepository) FindByNombre(ctx context.Context, nombre string) (*fiado.Cliente, error) {
	args := m.Called(ctx, nombre)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Cliente), args.Error(1)
}

func (m *MockClienteRepository) FindAll(ctx context.Context, soloActivos bool) ([]fiado.Cliente, error) {
	args := m.Called(ctx, soloActivos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiado.Cliente), args.Error(1)
}

func (m *MockClienteRepository) ExistsByNombre(ctx context.Context, nombre string) (bool, error) {
	args := m.Called(ctx, nombre)
	return args.Bool(0), args.Error(1)
}

func (m *MockClienteRepository) Save(ctx context.Context, cliente *fiado.Cliente) error {
	args := m.Called(ctx, cliente)
	return args.Error(0)
}

// MockFiadoRepository is a mock implementation of fiado.FiadoRepository
type MockFiadoRepository struct {
	mock.Mock
}

func (m *MockFiadoRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiado.Fiado, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Fiado), args.Error(1)
}

func (m *MockFiadoRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fiado.Fiado, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Fiado), args.Error(1)
}

func (m *MockFiadoRepository) FindOpenByClienteForUpdate(ctx context.Context, clienteID uuid.UUID) ([]*fiado.Fiado, error) {
	args := m.Called(ctx, clienteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fiado.Fiado), args.Error(1)
}

func (m *MockFiadoRepository) FindAll(ctx context.Context, filter fiado.FiadoFilter) ([]fiado.Fiado, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiado.Fiado), args.Error(1)
}

func (m *MockFiadoRepository) Create(ctx context.Context, f *fiado.Fiado) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFiadoRepository) SaveWithLock(ctx context.Context, f *fiado.Fiado) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFiadoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPagoRepository is a mock implementation of fiado.PagoRepository
type MockPagoRepository struct {
	mock.Mock
}

func (m *MockPagoRepository) Create(ctx context.Context, pago *fiado.PagoFiado) error {
	args := m.Called(ctx, pago)
	return args.Error(0)
}

func (m *MockPagoRepository) FindByFiado(ctx context.Context, fiadoID uuid.UUID) ([]fiado.PagoFiado, error) {
	args := m.Called(ctx, fiadoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiado.PagoFiado), args.Error(1)
}

func (m *MockPagoRepository) FindByCliente(ctx context.Context, clienteID uuid.UUID) ([]fiado.PagoFiado, error) {
	args := m.Called(ctx, clienteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiado.PagoFiado), args.Error(1)
}

func (m *MockPagoRepository) DeleteByFiado(ctx context.Context, fiadoID uuid.UUID) error {
	args := m.Called(ctx, fiadoID)
	return args.Error(0)
}

// MockReportRepository is a mock implementation of fiado.ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) ClienteTotals(ctx context.Context, clienteID uuid.UUID) (*fiado.Totals, error) {
	args := m.Called(ctx, clienteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Totals), args.Error(1)
}

func (m *MockReportRepository) GlobalTotals(ctx context.Context) (*fiado.Totals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiado.Totals), args.Error(1)
}

var (
	_ fiado.ClienteRepository = (*MockClienteRepository)(nil)
	_ fiado.FiadoRepository   = (*MockFiadoRepository)(nil)
	_ fiado.PagoRepository    = (*MockPagoRepository)(nil)
	_ fiado.ReportRepository  = (*MockReportRepository)(nil)
)
