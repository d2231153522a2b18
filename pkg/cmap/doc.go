// Package cmap provides a sharded concurrent map keyed by string.
//
// Keys are spread over a power-of-two number of shards with murmur3, and
// every shard is guarded by its own RWMutex. Read operations (Get, Has,
// Range) take read locks; writes take the shard's write lock only.
//
// Usage:
//
//	m := cmap.New[*entry]()
//	m.Set("demo-app:theme", e)
//	v, ok := m.Get("demo-app:theme")
//
// Iteration visits shards one at a time, so Range does not observe a single
// consistent snapshot across shards.
package cmap
