package telemetry_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/pentactl/internal/telemetry"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) telemetry.Config {
	t.Helper()

	return telemetry.Config{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "telemetry.db"),
	}
}

func TestDisabledServiceIsNoop(t *testing.T) {
	collector, err := telemetry.NewService(telemetry.Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, collector.Record(context.Background(), &telemetry.Snapshot{}))
	assert.NoError(t, collector.Close())
}

func TestEnabledWithoutPathFails(t *testing.T) {
	_, err := telemetry.NewService(telemetry.Config{Enabled: true})
	assert.Error(t, err)
}

func TestRecordPersistsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	collector, err := telemetry.NewService(cfg)
	require.NoError(t, err)
	defer collector.Close()

	snapshot := &telemetry.Snapshot{
		Timestamp:       time.Unix(1700000000, 0),
		CPUTemp:         47.5,
		DiskTempAverage: 41.0,
		Duty:            0.25,
		FanEnabled:      true,
		DisplayPage:     2,
	}
	require.NoError(t, collector.Record(context.Background(), snapshot))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var cpuTemp, duty float64
	var fanEnabled, page int
	row := db.QueryRow("SELECT cpu_temp, duty, fan_enabled, display_page FROM telemetry WHERE timestamp = ?", 1700000000)
	require.NoError(t, row.Scan(&cpuTemp, &duty, &fanEnabled, &page))

	assert.InDelta(t, 47.5, cpuTemp, 1e-9)
	assert.InDelta(t, 0.25, duty, 1e-9)
	assert.Equal(t, 1, fanEnabled)
	assert.Equal(t, 2, page)
}

func TestRecordUpsertsSameTimestamp(t *testing.T) {
	cfg := testConfig(t)
	collector, err := telemetry.NewService(cfg)
	require.NoError(t, err)
	defer collector.Close()

	at := time.Unix(1700000000, 0)
	require.NoError(t, collector.Record(context.Background(), &telemetry.Snapshot{Timestamp: at, Duty: 0.5}))
	require.NoError(t, collector.Record(context.Background(), &telemetry.Snapshot{Timestamp: at, Duty: 0.0}))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	assert.Equal(t, 1, count)

	var duty float64
	require.NoError(t, db.QueryRow("SELECT duty FROM telemetry").Scan(&duty))
	assert.Zero(t, duty)
}

func TestRecordNilSnapshot(t *testing.T) {
	collector, err := telemetry.NewService(testConfig(t))
	require.NoError(t, err)
	defer collector.Close()

	assert.Error(t, collector.Record(context.Background(), nil))
}

func TestRecordCancelledContext(t *testing.T) {
	collector, err := telemetry.NewService(testConfig(t))
	require.NoError(t, err)
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, collector.Record(ctx, &telemetry.Snapshot{Timestamp: time.Now()}))
}
