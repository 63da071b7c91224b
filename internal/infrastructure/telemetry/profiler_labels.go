package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys. Keep them low-cardinality.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelProvider  = "provider"
	ProfilingLabelSyncType  = "sync_type"
)

// maxLabelValueLength caps label values before they reach Pyroscope
const maxLabelValueLength = 128

// Per-row identifiers would explode profile series.
var highCardinalityLabels = map[string]bool{
	"company_id":     true,
	"integration_id": true,
	"campaign_id":    true,
	"job_id":         true,
	"request_id":     true,
	"trace_id":       true,
	"span_id":        true,
}

// SyncProfilingLabels labels a sync run by provider and sync type
func SyncProfilingLabels(provider, syncType string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: "sync",
		ProfilingLabelProvider:  provider,
		ProfilingLabelSyncType:  syncType,
	}
}

// WithProfilingLabels runs fn with labels attached to every CPU sample it
// produces. Without a running profiler the labels are plain pprof labels.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels drops empty and high-cardinality entries, normalizes keys
// to snake_case, truncates values and returns pairs sorted by key.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		v := labels[k]
		key := sanitizeLabelKey(k)
		if key == "" || v == "" || highCardinalityLabels[key] {
			continue
		}
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteByte(c)
		case c == ' ' || c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
