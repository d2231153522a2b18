// Package metric provides Prometheus metrics for webstore.
//
//   - prometheus.go: the metrics registry and HTTP handler
//   - collector.go: a collector reporting substrate usage and quotas
//
// Registry methods are safe on a nil *Registry, so components can run
// without metrics.
package metric
