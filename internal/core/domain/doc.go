// Package domain defines the core domain model of webstore.
//
// Domain types are plain values without IO dependencies:
//
//   - Envelope: the metadata-wrapped unit persisted to a backend
//   - Sealed: the authenticated ciphertext carried by encrypted envelopes
//   - Backend: the closed set of storage backends and their capabilities
//   - Errors: the public error taxonomy shared by every layer
package domain
