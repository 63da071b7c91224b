package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProfiler_Disabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.New(core))

	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
	assert.Equal(t, 1, logs.FilterMessage("Continuous profiling disabled").Len())
}

func TestNewProfiler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProfilerConfig
		wantErr string
	}{
		{
			name:    "missing server address",
			cfg:     ProfilerConfig{Enabled: true, ApplicationName: "adinventory"},
			wantErr: "server address is required",
		},
		{
			name:    "missing application name",
			cfg:     ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"},
			wantErr: "application name is required",
		},
		{
			name: "unknown profile type",
			cfg: ProfilerConfig{
				Enabled:         true,
				ServerAddress:   "http://localhost:4040",
				ApplicationName: "adinventory",
				ProfileTypes:    []string{"cpu", "heapdump"},
			},
			wantErr: `unknown profile type "heapdump"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProfiler(tt.cfg, zap.NewNop())

			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseProfileTypes(t *testing.T) {
	t.Run("empty falls back to defaults", func(t *testing.T) {
		types, err := ParseProfileTypes(nil)

		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		}, types)
	})

	t.Run("names are normalized and deduplicated", func(t *testing.T) {
		types, err := ParseProfileTypes([]string{" CPU", "cpu", "mutex_count"})

		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexCount}, types)
	})
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Sync-Type":      "full",
		"provider":       "kevel",
		"integration_id": "3f0c",
		"Company ID":     "c-1",
		"empty":          "",
		"note":           strings.Repeat("x", 200),
	})

	assert.Equal(t, []string{
		"note", strings.Repeat("x", maxLabelValueLength),
		"provider", "kevel",
		"sync_type", "full",
	}, pairs)
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("labels are visible inside fn", func(t *testing.T) {
		// Setup
		var provider, syncType string
		var called bool

		// Execute
		WithProfilingLabels(context.Background(), SyncProfilingLabels("hubspot", "contacts"), func(ctx context.Context) {
			called = true
			provider, _ = pprof.Label(ctx, ProfilingLabelProvider)
			syncType, _ = pprof.Label(ctx, ProfilingLabelSyncType)
		})

		// Verify
		assert.True(t, called)
		assert.Equal(t, "hubspot", provider)
		assert.Equal(t, "contacts", syncType)
	})

	t.Run("no usable labels still runs fn", func(t *testing.T) {
		var called bool

		WithProfilingLabels(context.Background(), map[string]string{"job_id": "j-1"}, func(ctx context.Context) {
			called = true
			_, ok := pprof.Label(ctx, "job_id")
			assert.False(t, ok)
		})

		assert.True(t, called)
	})
}

func TestEnableSpanProfiles_TracingDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.EnableSpanProfiles())
}
