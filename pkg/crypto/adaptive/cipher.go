package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	// CipherAuto picks the fastest algorithm for the current architecture.
	CipherAuto     CipherType = "auto"
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// ErrInvalidNonce is returned by Open when the nonce has the wrong length.
var ErrInvalidNonce = errors.New("adaptive: invalid nonce length")

// Cipher provides authenticated encryption with explicit nonces.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Seal encrypts plaintext under a fresh random nonce.
	Seal(plaintext, additionalData []byte) (nonce, ciphertext []byte, err error)

	// Open authenticates and decrypts ciphertext.
	Open(nonce, ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// ParseCipherType parses an algorithm name. The empty string means auto.
func ParseCipherType(s string) (CipherType, error) {
	switch CipherType(strings.ToLower(strings.TrimSpace(s))) {
	case "", CipherAuto:
		return CipherAuto, nil
	case CipherAESGCM, "aes-256-gcm", "aesgcm":
		return CipherAESGCM, nil
	case CipherChaCha20, "chacha20":
		return CipherChaCha20, nil
	default:
		return "", fmt.Errorf("unknown cipher type: %s", s)
	}
}

// New creates a cipher for key using the preferred algorithm of this
// architecture.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, CipherAuto)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAuto:
		if hasAESNI() {
			return NewAESGCM(key)
		}
		return NewChaCha20(key)
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, errors.New("unknown cipher type: " + string(cipherType))
	}
}

// Go's crypto/aes uses AES-NI on amd64 and the ARMv8 crypto extensions on
// arm64. Elsewhere ChaCha20 is faster in software.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x":
		return true
	default:
		return false
	}
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType {
	return c.typ
}

func (c *aeadCipher) NonceSize() int {
	return c.aead.NonceSize()
}

func (c *aeadCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *aeadCipher) Seal(plaintext, additionalData []byte) ([]byte, []byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, c.aead.Seal(nil, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrInvalidNonce
	}
	return c.aead.Open(nil, nonce, ciphertext, additionalData)
}
