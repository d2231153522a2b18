// Package indexeddb is a transactional, versioned object-store database on
// top of Badger.
//
// A Factory opens databases by name. The first Open of a database creates
// the Badger instance and negotiates the schema version; later Opens reuse
// the same connection. Each database holds any number of named stores,
// which share the Badger keyspace under a per-store prefix.
//
// Keyspace layout:
//
//	m/version          schema version (decimal)
//	m/store/<name>     store marker
//	s/<name>/<key>     record
//
// Version negotiation:
//
//   - a new database is created at the requested version
//   - requesting a lower version than stored fails with ErrVersionDowngrade
//   - requesting a higher version runs one registered step per version; a
//     missing step fails with ErrNoUpgradePath and nothing is changed
//   - stores listed in the schema are created when missing
package indexeddb
