// Package command defines the webstore command-line tool.
//
// Every invocation acts as one browsing context of the configured origin.
// With a data directory, localStorage and IndexedDB persist between runs
// and concurrent processes see each other's writes; sessionStorage and
// cookies live only for the invocation.
//
//   - root.go: App, global flags and the per-invocation environment
//   - kv.go: set, get, rm, keys, has, clear, ttl
//   - backend.go: backends and fallback
//   - watch.go: cross-context change stream and the inspection server
//   - config.go: config show and validate
package command
