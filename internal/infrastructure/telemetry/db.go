package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig selects the database instrumentation.
type DBConfig struct {
	// TraceEnabled registers otelgorm spans for every statement
	TraceEnabled bool
	// LogFullSQL keeps bound variables in span statements
	LogFullSQL bool
	// SlowQueryThreshold defaults to 200ms
	SlowQueryThreshold time.Duration
	DBName             string
}

// DBMetrics records query counts and latency through gorm callbacks and
// reports connection pool stats as observable gauges.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowThreshold  time.Duration
	registration   metric.Registration
}

const dbStartKey = "telemetry:db_start"

// InstrumentDB attaches tracing and metrics to db. meter may be nil to
// skip metrics.
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("failed to register otelgorm: %w", err)
		}
		logger.Info("Database tracing enabled", zap.Bool("log_full_sql", cfg.LogFullSQL))
	}

	if meter == nil {
		return nil, nil
	}
	m, err := newDBMetrics(meter, cfg.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	if err := m.registerCallbacks(db); err != nil {
		return nil, err
	}
	if err := m.observePool(db, meter); err != nil {
		return nil, err
	}
	return m, nil
}

func newDBMetrics(meter metric.Meter, slow time.Duration) (*DBMetrics, error) {
	m := &DBMetrics{slowThreshold: slow}
	var err error
	if m.queryTotal, err = NewCounter(meter, Instrument{Name: "db_query_total", Description: "Database statements by operation", Unit: "{query}"}); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, Instrument{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Buckets:     DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, Instrument{Name: "db_slow_query_total", Description: "Database statements slower than the threshold", Unit: "{query}"}); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DBMetrics) registerCallbacks(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(dbStartKey, time.Now()) }
	processors := []struct {
		name   string
		before func(string) error
		after  func(string) error
	}{
		{"create", func(n string) error { return db.Callback().Create().Before("gorm:create").Register(n, before) },
			func(n string) error { return db.Callback().Create().After("gorm:create").Register(n, m.after("insert")) }},
		{"query", func(n string) error { return db.Callback().Query().Before("gorm:query").Register(n, before) },
			func(n string) error { return db.Callback().Query().After("gorm:query").Register(n, m.after("select")) }},
		{"update", func(n string) error { return db.Callback().Update().Before("gorm:update").Register(n, before) },
			func(n string) error { return db.Callback().Update().After("gorm:update").Register(n, m.after("update")) }},
		{"delete", func(n string) error { return db.Callback().Delete().Before("gorm:delete").Register(n, before) },
			func(n string) error { return db.Callback().Delete().After("gorm:delete").Register(n, m.after("delete")) }},
		{"raw", func(n string) error { return db.Callback().Raw().Before("gorm:raw").Register(n, before) },
			func(n string) error { return db.Callback().Raw().After("gorm:raw").Register(n, m.after("")) }},
		{"row", func(n string) error { return db.Callback().Row().Before("gorm:row").Register(n, before) },
			func(n string) error { return db.Callback().Row().After("gorm:row").Register(n, m.after("")) }},
	}
	for _, p := range processors {
		if err := p.before("telemetry:before_" + p.name); err != nil {
			return err
		}
		if err := p.after("telemetry:after_" + p.name); err != nil {
			return err
		}
	}
	return nil
}

// after records the statement; an empty operation is derived from the SQL
func (m *DBMetrics) after(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(dbStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		op := operation
		if op == "" {
			op = OperationFromSQL(tx.Statement.SQL.String())
		}
		m.Record(tx.Statement.Context, op, tx.Statement.Table, time.Since(start))
	}
}

// Record records one statement
func (m *DBMetrics) Record(ctx context.Context, operation, table string, d time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation), AttrDBTable.String(table))
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation), AttrDBTable.String(table))
	if d >= m.slowThreshold {
		m.slowQueryTotal.Inc(ctx, AttrDBOperation.String(operation), AttrDBTable.String(table))
	}
}

func (m *DBMetrics) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		return nil
	}, conns, maxConns)
	return err
}

// Stop unregisters the pool gauges
func (m *DBMetrics) Stop() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

// OperationFromSQL returns the lower-cased leading verb of a statement
func OperationFromSQL(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch op := strings.ToLower(fields[0]); op {
	case "select", "insert", "update", "delete", "with":
		return op
	default:
		return "other"
	}
}
