package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Manager *service.Manager

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	Logger *slog.Logger

	// AllowList restricts clients to these IPs and CIDR blocks (empty = no
	// restriction). /health is exempt.
	AllowList []string

	// RateLimit is the per-IP request rate; 0 disables limiting.
	RateLimit int
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AllowList: []string{"127.0.0.1", "::1"},
		RateLimit: 50,
	}
}

// NewRouter builds the route table and middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handler.New(cfg.Manager, log)

	// Order: Recover -> RequestID -> AccessLog -> [ACL -> RateLimit] -> handler
	base := []Middleware{Recover(log), RequestID(), AccessLog(log)}

	guarded := append([]Middleware(nil), base...)
	guarded = append(guarded, NetworkACL(cfg.AllowList, log))
	if cfg.RateLimit > 0 {
		guarded = append(guarded, RateLimit(cfg.RateLimit))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", Chain(h, base...))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, guarded...))
	}
	mux.Handle("GET /backends", Chain(h, guarded...))
	mux.Handle("GET /keys", Chain(h, guarded...))
	mux.Handle("GET /keys/{key}", Chain(h, guarded...))

	return mux
}
