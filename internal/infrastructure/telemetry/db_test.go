package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestOperationFromSQL(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM widgets":            "select",
		"  insert into widgets values (1)": "insert",
		"UPDATE widgets SET name = ?":      "update",
		"delete from widgets":              "delete",
		"WITH x AS (SELECT 1) SELECT *":   "with",
		"PRAGMA foreign_keys":             "other",
		"":                                "unknown",
	}
	for sql, want := range tests {
		assert.Equal(t, want, OperationFromSQL(sql), sql)
	}
}

func TestInstrumentDB_NilMeterOnlyTraces(t *testing.T) {
	db := newTestDB(t)

	m, err := InstrumentDB(db, DBConfig{TraceEnabled: true, DBName: "test"}, nil, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, db.Create(&widget{Name: "a"}).Error)
	assert.NoError(t, m.Stop())
}

func TestInstrumentDB_RecordsQueries(t *testing.T) {
	// Setup
	reader, mp := newTestMeter(t)
	db := newTestDB(t)
	m, err := InstrumentDB(db, DBConfig{SlowQueryThreshold: time.Hour}, mp.Meter("test"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	ctx := context.Background()

	// Execute
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	var got []widget
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)
	require.NoError(t, db.WithContext(ctx).Model(&widget{}).Where("id = ?", got[0].ID).Update("name", "b").Error)
	require.NoError(t, db.WithContext(ctx).Exec("DELETE FROM widgets").Error)

	// Verify
	metrics := collect(t, reader)
	total := metrics["db_query_total"]
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("insert")))
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("select")))
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("update")))
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("delete")))
	assert.Zero(t, sumFor(t, metrics["db_slow_query_total"]))

	pool, ok := metrics["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, pool.DataPoints, 2)
}

func TestDBMetrics_SlowQuery(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := newDBMetrics(mp.Meter("test"), 100*time.Millisecond)
	require.NoError(t, err)

	m.Record(context.Background(), "select", "integrations", 50*time.Millisecond)
	m.Record(context.Background(), "select", "integrations", 300*time.Millisecond)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, metrics["db_query_total"], AttrDBTable.String("integrations")))
	assert.Equal(t, int64(1), sumFor(t, metrics["db_slow_query_total"], AttrDBTable.String("integrations")))
}
