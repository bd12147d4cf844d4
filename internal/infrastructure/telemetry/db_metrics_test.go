package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiosco/fiados/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func TestDBMetricsPlugin_RecordsStatements(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := telemetry.NewDBMetrics(mp.Meter("test"), telemetry.DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	db := newBalanceDB(t)
	require.NoError(t, db.Use(telemetry.NewDBMetricsPlugin(metrics)))

	require.NoError(t, db.Exec(`INSERT INTO fiados (id, estado, saldo_pendiente) VALUES ('a', 'Pendiente', 10)`).Error)
	var count int64
	require.NoError(t, db.Table("fiados").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	data := collect(t, reader)
	assert.Equal(t, int64(1), intSum(t, data["db_query_total"],
		telemetry.AttrDBOperation.String("INSERT"), telemetry.AttrDBOutcome.String("ok")))
	assert.Equal(t, int64(1), intSum(t, data["db_query_total"],
		telemetry.AttrDBOperation.String("SELECT"), telemetry.AttrDBOutcome.String("ok")))
	assert.Contains(t, data, "db_query_duration_seconds")
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := telemetry.NewDBMetrics(mp.Meter("test"), telemetry.DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 10 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	sqlDB, err := newBalanceDB(t).DB()
	require.NoError(t, err)
	metrics.StartPoolStatsCollection(context.Background(), sqlDB)
	metrics.Stop()
	metrics.Stop()

	data := collect(t, reader)
	assert.Contains(t, data, "db_pool_connections")
	assert.Contains(t, data, "db_pool_connections_max")
}

func TestRegisterDBMetrics_DisabledReturnsNil(t *testing.T) {
	metrics, err := telemetry.RegisterDBMetrics(context.Background(), newBalanceDB(t), nil,
		telemetry.DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestNewDBMetrics_Noop(t *testing.T) {
	metrics, err := telemetry.NewDBMetrics(noop.NewMeterProvider().Meter("test"), telemetry.DBMetricsConfig{}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		metrics.RecordQuery(context.Background(), "", "", time.Second, nil)
	})
}

func TestDBSystemFor(t *testing.T) {
	assert.Equal(t, "sqlite", telemetry.DBSystemFor("sqlite"))
	assert.Equal(t, "postgresql", telemetry.DBSystemFor("postgres"))
	assert.Equal(t, "postgresql", telemetry.DBSystemFor(""))
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(newBalanceDB(t)))
}

func TestDBTracingPlugin_Enabled(t *testing.T) {
	withSpanRecorder(t)
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:  true,
		DBSystem: telemetry.DBSystemFor("sqlite"),
	}, zap.NewNop())

	db := newBalanceDB(t)
	require.NoError(t, plugin.RegisterOtelGorm(db))

	var count int64
	require.NoError(t, db.Table("fiados").Count(&count).Error)
}
