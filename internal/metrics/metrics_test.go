package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/dtsfetch/pkg/observability"
)

var (
	_ observability.AcquireHooks = (*Metrics)(nil)
	_ observability.CacheHooks   = (*Metrics)(nil)
	_ observability.HTTPHooks    = (*Metrics)(nil)
)

func TestAcquireHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnRunStart(ctx, "cli")
	m.OnTreeResolved(ctx, "react", false, nil)
	m.OnTreeResolved(ctx, "@types/lodash", true, nil)
	m.OnTreeResolved(ctx, "@types/left-pad", true, errors.New("not found"))
	m.OnFileDownloaded(ctx, "react", 120, nil)
	m.OnFileDownloaded(ctx, "react", 0, errors.New("timeout"))
	m.OnRunComplete(ctx, "cli", 2, time.Second)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"runs", testutil.ToFloat64(m.runsTotal.WithLabelValues("cli")), 1},
		{"module trees", testutil.ToFloat64(m.treesTotal.WithLabelValues("module", "ok")), 1},
		{"types trees ok", testutil.ToFloat64(m.treesTotal.WithLabelValues("types", "ok")), 1},
		{"types trees error", testutil.ToFloat64(m.treesTotal.WithLabelValues("types", "error")), 1},
		{"files ok", testutil.ToFloat64(m.filesTotal.WithLabelValues("ok")), 1},
		{"files error", testutil.ToFloat64(m.filesTotal.WithLabelValues("error")), 1},
		{"bytes", testutil.ToFloat64(m.fileBytes), 120},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCacheAndHTTPHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnCacheHit(ctx, "tree")
	m.OnCacheMiss(ctx, "tree")
	m.OnCacheSet(ctx, "tree", 64)
	m.OnResponse(ctx, "GET", "data.jsdelivr.com", "/v1/package/npm/react", 200, 50*time.Millisecond)
	m.OnError(ctx, "GET", "cdn.jsdelivr.net", "/npm/react@18.2.0/index.d.ts", errors.New("reset"))
	m.RecordHTTPRequest("POST", "/v1/acquire", 200, time.Second)

	if got := testutil.ToFloat64(m.cacheOpsTotal.WithLabelValues("tree", "hit")); got != 1 {
		t.Errorf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes); got != 64 {
		t.Errorf("cache bytes = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamTotal.WithLabelValues("data.jsdelivr.com", "200")); got != 1 {
		t.Errorf("upstream ok = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamTotal.WithLabelValues("cdn.jsdelivr.net", "error")); got != 1 {
		t.Errorf("upstream errors = %v", got)
	}
	if got := testutil.ToFloat64(m.httpTotal.WithLabelValues("POST", "/v1/acquire", "200")); got != 1 {
		t.Errorf("api requests = %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.OnRunStart(context.Background(), "serve")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `dtsfetch_runs_total{name="serve"} 1`) {
		t.Errorf("metrics output missing run counter:\n%s", body)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.OnRunStart(context.Background(), "x")
	if got := testutil.ToFloat64(b.runsTotal.WithLabelValues("x")); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
