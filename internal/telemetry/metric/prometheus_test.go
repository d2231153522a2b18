package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.OperationsTotal == nil || r.OperationDuration == nil || r.CrossTabEvents == nil {
		t.Error("metric vectors not initialized")
	}
}

func TestObserveOperation(t *testing.T) {
	r := NewRegistry()

	r.ObserveOperation(domain.BackendLocal, "set", time.Now(), nil)
	r.ObserveOperation(domain.BackendLocal, "set", time.Now(), domain.ErrQuotaExceeded)
	r.ObserveOperation(domain.BackendCookie, "get", time.Now(), errors.New("plain"))

	tests := []struct {
		labels []string
		want   float64
	}{
		{[]string{"localStorage", "set", ResultOK}, 1},
		{[]string{"localStorage", "set", "WS-BACK-5070"}, 1},
		{[]string{"cookie", "get", ResultError}, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues(tt.labels...))
		if got != tt.want {
			t.Errorf("operations_total%v = %v, want %v", tt.labels, got, tt.want)
		}
	}
}

func TestObserve_NilRegistry(t *testing.T) {
	var r *Registry
	r.ObserveOperation(domain.BackendLocal, "set", time.Now(), nil)
	r.ObserveEviction(domain.BackendLocal)
	r.ObserveDecryptionFailure()
	r.ObserveFallback(domain.BackendLocal, nil)
	r.ObserveCrossTab(CrossTabDelivered)
	if err := r.Register(nil); err != nil {
		t.Errorf("Register() on nil registry error = %v", err)
	}
}

func TestCounters(t *testing.T) {
	r := NewRegistry()
	r.ObserveEviction(domain.BackendSession)
	r.ObserveDecryptionFailure()
	r.ObserveFallback(domain.BackendLocal, domain.ErrUnavailableBackend)
	r.ObserveCrossTab(CrossTabMalformed)
	r.ObserveCrossTab(CrossTabMalformed)

	if got := testutil.ToFloat64(r.TTLEvictions.WithLabelValues("sessionStorage")); got != 1 {
		t.Errorf("ttl_evictions_total = %v", got)
	}
	if got := testutil.ToFloat64(r.DecryptionFailures); got != 1 {
		t.Errorf("decryption_failures_total = %v", got)
	}
	if got := testutil.ToFloat64(r.FallbackAttempts.WithLabelValues("localStorage", "WS-BACK-5030")); got != 1 {
		t.Errorf("fallback_attempts_total = %v", got)
	}
	if got := testutil.ToFloat64(r.CrossTabEvents.WithLabelValues(CrossTabMalformed)); got != 2 {
		t.Errorf("crosstab_events_total = %v", got)
	}
}

type fakeSource []storage.SubstrateStats

func (f fakeSource) Stats() []storage.SubstrateStats { return f }

func TestCollector(t *testing.T) {
	src := fakeSource{
		{Backend: domain.BackendLocal, Entries: 2, UsageBytes: 40, QuotaBytes: 100},
		{Backend: domain.BackendCookie, Entries: 1, UsageBytes: 12, QuotaBytes: 4096},
	}
	c := NewCollector(src)

	if n := testutil.CollectAndCount(c); n != 6 {
		t.Errorf("collected %d metrics, want 6", n)
	}

	expected := `
# HELP webstore_substrate_usage_bytes Bytes used by a storage substrate.
# TYPE webstore_substrate_usage_bytes gauge
webstore_substrate_usage_bytes{backend="cookie"} 12
webstore_substrate_usage_bytes{backend="localStorage"} 40
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "webstore_substrate_usage_bytes"); err != nil {
		t.Error(err)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveOperation(domain.BackendLocal, "get", time.Now(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "webstore_operations_total") {
		t.Error("metrics output missing webstore_operations_total")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing Go runtime metrics")
	}
}
