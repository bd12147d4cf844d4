//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appfiado "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresLedgerDB starts a throwaway PostgreSQL and applies the SQL migrations
func newPostgresLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fiados_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("fiados"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migration.Config{Driver: "postgres", MigrationsPath: migrationsPath}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestLedger_PostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newPostgresLedgerDB(t)
	ctx := context.Background()

	t.Run("concurrent payments serialize on the row lock", func(t *testing.T) {
		c := seedCliente(t, db, "Ana")
		f := seedFiado(t, db, c, "100", testNow)
		scope := NewGormTransactionScope(db, WithLockTimeout(2*time.Second))
		pay := payInScope(scope, f.ID, decimal.NewFromInt(15))

		const workers = 10
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- pay(ctx)
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, shared.IsValidationFailure(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 6, ok)

		got, err := NewGormFiadoRepository(db).FindByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "10.00", got.SaldoPendiente.StringFixed(2))
	})

	t.Run("lock wait beyond lock_timeout is a timeout", func(t *testing.T) {
		c := seedCliente(t, db, "Beto")
		f := seedFiado(t, db, c, "100", testNow)
		holder := NewGormTransactionScope(db)
		waiter := NewGormTransactionScope(db, WithLockTimeout(100*time.Millisecond))

		locked := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- holder.Execute(ctx, func(ctx context.Context, repos appfiado.TransactionalRepositories) error {
				if _, err := repos.FiadoRepo().FindByIDForUpdate(ctx, f.ID); err != nil {
					return err
				}
				close(locked)
				<-release
				return nil
			})
		}()
		<-locked

		err := waiter.Execute(ctx, func(ctx context.Context, repos appfiado.TransactionalRepositories) error {
			_, err := repos.FiadoRepo().FindByIDForUpdate(ctx, f.ID)
			return err
		})
		close(release)

		assert.True(t, shared.IsTimeout(err), "expected timeout, got %v", err)
		require.NoError(t, <-done)
	})

	t.Run("check constraints reject a paid fiado without completion date", func(t *testing.T) {
		c := seedCliente(t, db, "Carla")
		f := seedFiado(t, db, c, "100", testNow)

		err := db.Exec("UPDATE fiados SET estado = ?, saldo_pendiente = 0, monto_pagado = monto_total WHERE id = ?",
			string(fiado.EstadoPagado), f.ID).Error
		require.Error(t, err)
	})

	t.Run("duplicate client name", func(t *testing.T) {
		seedCliente(t, db, "Dora")
		dup, err := fiado.NewCliente("Dora", fiado.Contacto{}, testNow)
		require.NoError(t, err)
		err = NewGormClienteRepository(db).Save(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown fiado", func(t *testing.T) {
		_, err := NewGormFiadoRepository(db).FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
