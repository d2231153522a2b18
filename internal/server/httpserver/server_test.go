package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestManager(t *testing.T) *service.Manager {
	t.Helper()
	cfg := storage.DefaultConfig("test")
	cfg.Logger = discard
	o, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { o.Close() })

	scfg := service.DefaultConfig()
	scfg.Namespace = "app"
	scfg.Logger = discard
	m, err := service.NewManager(o, scfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestServer_StartShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := New("127.0.0.1:0", handler, discard)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Addr() == nil {
		t.Fatal("Addr is nil after Start")
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}
}

func TestServer_StartBadAddr(t *testing.T) {
	s := New("256.0.0.1:99999", http.NotFoundHandler(), discard)
	if err := s.Start(); err == nil {
		t.Fatal("Start should fail on an invalid address")
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg.RateLimit <= 0 {
		t.Error("RateLimit should be positive")
	}
	if len(cfg.AllowList) == 0 {
		t.Error("AllowList should restrict to loopback by default")
	}
}

func TestRouter_Routes(t *testing.T) {
	m := newTestManager(t)
	if err := m.Set(context.Background(), "theme", "dark"); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(&RouterConfig{
		Manager: m,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
		Logger: discard,
	})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/backends", http.StatusOK},
		{http.MethodGet, "/keys", http.StatusOK},
		{http.MethodGet, "/keys/theme", http.StatusOK},
		{http.MethodGet, "/keys/missing", http.StatusNotFound},
		{http.MethodPost, "/keys/theme", http.StatusMethodNotAllowed},
		{http.MethodGet, "/sessions", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestRouter_NoMetricsHandler(t *testing.T) {
	router := NewRouter(&RouterConfig{Manager: newTestManager(t), Logger: discard})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRouter_AllowListExemptsHealth(t *testing.T) {
	router := NewRouter(&RouterConfig{
		Manager:   newTestManager(t),
		Logger:    discard,
		AllowList: []string{"10.0.0.0/8"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("/keys status = %d, want 403", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "WS-SYS-4031" {
		t.Errorf("code = %q, want WS-SYS-4031", body["code"])
	}
}
