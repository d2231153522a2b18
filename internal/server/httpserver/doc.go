// Package httpserver serves a read-only view of a storage context over HTTP.
//
// Routes:
//
//	GET /health          liveness
//	GET /metrics         Prometheus exposition
//	GET /backends        availability, capabilities and usage per backend
//	GET /keys            keys of the namespace (?storage= selects a backend)
//	GET /keys/{key}      value and expiry of one key
//
// The server never writes; it is meant for inspecting a running process.
package httpserver
