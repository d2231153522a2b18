// Package logger provides structured logging for webstore.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the global level
//   - context.go: context propagation of the logger and context IDs
//   - redact.go: masking of secrets and plaintext before output
//
// Components that accept a *slog.Logger receive Logger.Slog(), which
// keeps the redacting handler.
package logger
