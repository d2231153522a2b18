// Package adaptive provides AEAD ciphers with hardware-aware algorithm
// selection.
//
// Supported algorithms:
//
//   - AES-GCM: preferred where the CPU has AES instructions
//   - ChaCha20-Poly1305: fallback for other architectures
//
// Seal generates a fresh random nonce on every call and returns it apart
// from the ciphertext, so callers can persist the two as separate fields.
//
// Usage:
//
//	c, err := adaptive.New(key)
//	nonce, ct, err := c.Seal(plaintext, aad)
//	plaintext, err := c.Open(nonce, ct, aad)
//
// All ciphers are safe for concurrent use.
package adaptive
