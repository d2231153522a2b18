// Package benchmark provides performance benchmarks for webstore.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run one backend at larger preloads:
//
//	go test -bench='BenchmarkGet/indexedDB' -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
