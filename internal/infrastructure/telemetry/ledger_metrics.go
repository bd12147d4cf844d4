package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records ledger activity. A nil *LedgerMetrics is valid and
// records nothing, so services can run without a meter.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	fiadosCreated    *Counter
	creditExtended   *FloatCounter
	pagosTotal       *Counter
	pagoAmount       *Histogram
	amountCollected  *FloatCounter
	interestApplied  *Counter
	payoffsTotal     *Counter
	rejectionsTotal  *Counter
	storageFailures  *Counter
	openFiados       *Gauge
	outstandingTotal *FloatGauge

	balanceProvider BalanceProvider
	interval        time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	collectOnce     sync.Once
}

// LedgerSnapshot is the state of the open book at one point in time
type LedgerSnapshot struct {
	Pendientes     int64
	Parciales      int64
	SaldoPendiente decimal.Decimal
}

// BalanceProvider reads the open book for the periodic gauges.
// It lets telemetry sample the ledger without importing the domain.
type BalanceProvider interface {
	LedgerSnapshot(ctx context.Context) (LedgerSnapshot, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BalanceProvider BalanceProvider
	CollectInterval time.Duration // Default: 1 minute
}

// NewLedgerMetrics creates the ledger instruments on cfg.Meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = time.Minute
	}

	lm := &LedgerMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		balanceProvider: cfg.BalanceProvider,
		interval:        interval,
		stopChan:        make(chan struct{}),
	}

	var err error
	if lm.fiadosCreated, err = NewCounter(cfg.Meter, "fiados_created_total",
		"Number of fiados created", "{fiados}"); err != nil {
		return nil, err
	}
	if lm.creditExtended, err = NewFloatCounter(cfg.Meter, "fiados_credit_extended_total",
		"Total amount extended on credit, interest included", "{currency}"); err != nil {
		return nil, err
	}
	if lm.pagosTotal, err = NewCounter(cfg.Meter, "fiados_pagos_total",
		"Number of payments recorded", "{pagos}"); err != nil {
		return nil, err
	}
	if lm.pagoAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fiados_pago_amount",
		Description: "Distribution of single payment amounts",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.amountCollected, err = NewFloatCounter(cfg.Meter, "fiados_amount_collected_total",
		"Total amount collected through payments", "{currency}"); err != nil {
		return nil, err
	}
	if lm.interestApplied, err = NewCounter(cfg.Meter, "fiados_interest_applied_total",
		"Number of fiados that received an interest increment", "{fiados}"); err != nil {
		return nil, err
	}
	if lm.payoffsTotal, err = NewCounter(cfg.Meter, "fiados_payoffs_total",
		"Number of fiados settled by a bulk payoff", "{fiados}"); err != nil {
		return nil, err
	}
	if lm.rejectionsTotal, err = NewCounter(cfg.Meter, "fiados_rejections_total",
		"Operations rejected by a ledger rule", "{operations}"); err != nil {
		return nil, err
	}
	if lm.storageFailures, err = NewCounter(cfg.Meter, "fiados_storage_failures_total",
		"Operations that failed in the ledger store", "{operations}"); err != nil {
		return nil, err
	}
	if lm.openFiados, err = NewGauge(cfg.Meter, "fiados_open",
		"Fiados with an outstanding balance", "{fiados}"); err != nil {
		return nil, err
	}
	if lm.outstandingTotal, err = NewFloatGauge(cfg.Meter, "fiados_outstanding_balance",
		"Sum of all outstanding balances", "{currency}"); err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordFiadoCreated records a new fiado and the credit it extends
func (lm *LedgerMetrics) RecordFiadoCreated(ctx context.Context, montoTotal decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.fiadosCreated.Inc(ctx)
	lm.creditExtended.Add(ctx, montoTotal.InexactFloat64())
}

// RecordPago records one payment against one fiado
func (lm *LedgerMetrics) RecordPago(ctx context.Context, monto decimal.Decimal, completado bool) {
	if lm == nil {
		return
	}
	amount := monto.InexactFloat64()
	lm.pagosTotal.Inc(ctx, AttrCompletado.Bool(completado))
	lm.pagoAmount.Record(ctx, amount)
	lm.amountCollected.Add(ctx, amount)
}

// RecordInterestApplied records a bulk interest increment over n fiados
func (lm *LedgerMetrics) RecordInterestApplied(ctx context.Context, n int) {
	if lm == nil {
		return
	}
	lm.interestApplied.Add(ctx, int64(n))
}

// RecordPayoff records a bulk payoff that settled n fiados for total
func (lm *LedgerMetrics) RecordPayoff(ctx context.Context, n int, total decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.payoffsTotal.Add(ctx, int64(n))
	lm.amountCollected.Add(ctx, total.InexactFloat64())
}

// RecordRejected records a business-rule rejection with its error code
func (lm *LedgerMetrics) RecordRejected(ctx context.Context, operation, code string) {
	if lm == nil {
		return
	}
	lm.rejectionsTotal.Inc(ctx, AttrOperation.String(operation), AttrErrorCode.String(code))
}

// RecordStorageFailure records an operation the ledger store could not complete
func (lm *LedgerMetrics) RecordStorageFailure(ctx context.Context, operation string, timeout bool) {
	if lm == nil {
		return
	}
	lm.storageFailures.Inc(ctx, AttrOperation.String(operation), AttrTimeout.Bool(timeout))
}

// RecordSnapshot records the open-book gauges
func (lm *LedgerMetrics) RecordSnapshot(ctx context.Context, s LedgerSnapshot) {
	if lm == nil {
		return
	}
	lm.openFiados.Record(ctx, s.Pendientes, AttrEstado.String("Pendiente"))
	lm.openFiados.Record(ctx, s.Parciales, AttrEstado.String("Parcial"))
	lm.outstandingTotal.Record(ctx, s.SaldoPendiente.InexactFloat64())
}

// StartPeriodicCollection samples the balance provider every interval until
// Stop is called or ctx is done. Only the first call starts a collector.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context) {
	if lm == nil || lm.balanceProvider == nil {
		return
	}
	lm.collectOnce.Do(func() {
		go lm.runPeriodicCollection(ctx)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context) {
	ticker := time.NewTicker(lm.interval)
	defer ticker.Stop()

	lm.collect(ctx)
	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			lm.collect(ctx)
		}
	}
}

func (lm *LedgerMetrics) collect(ctx context.Context) {
	snapshot, err := lm.balanceProvider.LedgerSnapshot(ctx)
	if err != nil {
		lm.logger.Warn("Failed to sample ledger balance", zap.Error(err))
		return
	}
	lm.RecordSnapshot(ctx, snapshot)
}

// Stop stops the periodic collection. Safe to call more than once.
func (lm *LedgerMetrics) Stop() {
	if lm == nil {
		return
	}
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
