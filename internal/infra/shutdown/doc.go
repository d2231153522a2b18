// Package shutdown coordinates process exit for long-running webstore
// commands such as watch and the metrics endpoint.
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return origin.Close() })
//	err := h.Wait(ctx) // SIGINT, SIGTERM, Trigger or ctx cancellation
package shutdown
