// Package storage owns the storage substrates of one origin.
//
// An Origin is shared by every context (tab) of an application:
//
//   - the local webstorage Area, optionally file-backed so several
//     processes share it
//   - the cookie Jar
//   - the IndexedDB factory and its cached connections
//
// Session areas are private: each context asks the Origin for its own and
// releases it when done.
//
// Subpackages implement the substrates (webstorage, cookiejar, indexeddb),
// the adapters over them (adapter) and the entry pipeline (codec, crypt,
// namespace, ttl).
package storage
