package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/storage"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
)

// EntryCounts defines the preload sizes for benchmarking.
var EntryCounts = []int{100, 1000, 10000}

// SmallEntryCounts for quick benchmarks.
var SmallEntryCounts = []int{100, 1000}

const benchSecret = "benchmark-secret-value"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// cartItem is a typical small structured value.
type cartItem struct {
	SKU      string  `json:"sku"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"price"`
}

func sampleValue(i int) []cartItem {
	return []cartItem{
		{SKU: fmt.Sprintf("sku-%06d", i), Quantity: i%5 + 1, Price: 9.99},
		{SKU: fmt.Sprintf("sku-%06d", i+1), Quantity: 1, Price: 24.5},
	}
}

// openOrigin opens an origin with quotas large enough for the preloads.
// dir empty keeps everything in memory.
func openOrigin(b *testing.B, dir string) *storage.Origin {
	b.Helper()
	cfg := storage.DefaultConfig("bench")
	cfg.DataDir = dir
	cfg.LocalQuotaBytes = 1 << 30
	cfg.SessionQuotaBytes = 1 << 30
	cfg.Logger = discard
	o, err := storage.Open(cfg)
	if err != nil {
		b.Fatalf("open origin: %v", err)
	}
	b.Cleanup(func() { o.Close() })
	return o
}

// newManager creates a manager over o. encrypted enables the crypt service
// with the minimum key derivation cost.
func newManager(b *testing.B, o *storage.Origin, encrypted bool) *service.Manager {
	b.Helper()
	cfg := service.DefaultConfig()
	cfg.Namespace = "bench"
	cfg.Logger = discard
	if encrypted {
		cfg.Encryption = service.EncryptionConfig{
			Enabled:    true,
			Secret:     benchSecret,
			Iterations: crypt.MinIterations,
		}
	}
	m, err := service.NewManager(o, cfg)
	if err != nil {
		b.Fatalf("new manager: %v", err)
	}
	b.Cleanup(func() { m.Close() })
	return m
}

// prefill writes count entries to backend and returns their keys.
func prefill(ctx context.Context, b *testing.B, m *service.Manager, backend domain.Backend, count int, opts ...service.Option) []string {
	b.Helper()
	keys := make([]string, count)
	opts = append(opts, service.InStorage(backend))
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%06d", i)
		if err := m.Set(ctx, keys[i], sampleValue(i), opts...); err != nil {
			b.Fatalf("prefill %s: %v", keys[i], err)
		}
	}
	return keys
}

// benchBackends are the backends without a per-entry count ceiling.
var benchBackends = []domain.Backend{domain.BackendLocal, domain.BackendSession, domain.BackendIndexedDB}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runPerBackend runs benchFn for every backend and preload size.
func runPerBackend(b *testing.B, counts []int, benchFn func(b *testing.B, backend domain.Backend, count int)) {
	for _, backend := range benchBackends {
		for _, count := range counts {
			b.Run(fmt.Sprintf("%s/entries_%d", backend, count), func(b *testing.B) {
				benchFn(b, backend, count)
			})
		}
	}
}
