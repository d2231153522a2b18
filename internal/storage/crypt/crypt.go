// Package crypt implements the encryption service used for encrypted
// entries.
//
// A Service derives its session key from a secret and a random per-session
// salt with PBKDF2-HMAC-SHA256. Every sealed value records the salt it was
// written with, so a Service holding the same secret can open values
// written by any other session.
package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/pkg/cmap"
	"github.com/yndnr/webstore-go/pkg/crypto/adaptive"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used when none is set.
	DefaultIterations = 100000

	// MinIterations is the lowest accepted iteration count.
	MinIterations = 1000

	// MinSecretLength is the minimum secret length in bytes.
	MinSecretLength = 8

	// SaltSize is the length of the per-session salt.
	SaltSize = 16

	// KeySize is the derived key length (AES-256 / ChaCha20).
	KeySize = 32
)

// Config configures a Service.
type Config struct {
	// Secret is the shared application secret.
	Secret string

	// Iterations is the PBKDF2 iteration count (0 means DefaultIterations).
	Iterations int

	// Algorithm selects the AEAD (empty means auto).
	Algorithm adaptive.CipherType

	// Rand is the randomness source for the session salt (nil means
	// crypto/rand).
	Rand io.Reader
}

// Service seals and opens values. It is safe for concurrent use; the
// session salt never changes after New returns.
type Service struct {
	secret     []byte
	iterations int
	algorithm  adaptive.CipherType
	salt       []byte

	// ciphers caches one cipher per salt seen, keyed by the raw salt bytes.
	ciphers *cmap.Map[adaptive.Cipher]
}

// New validates cfg, generates the session salt and derives the session key.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, domain.ErrConfiguration.Detailf("encryption secret must be at least %d bytes", MinSecretLength)
	}

	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = DefaultIterations
	}
	if iterations < MinIterations {
		return nil, domain.ErrConfiguration.Detailf("key derivation iterations %d below minimum %d", iterations, MinIterations)
	}

	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = adaptive.CipherAuto
	}
	if _, err := adaptive.ParseCipherType(string(algorithm)); err != nil {
		return nil, domain.ErrConfiguration.WithDetails(err.Error())
	}

	random := cfg.Rand
	if random == nil {
		random = rand.Reader
	}
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, domain.ErrEncryption.WithDetails("generate salt").WithCause(err)
	}

	s := &Service{
		secret:     []byte(cfg.Secret),
		iterations: iterations,
		algorithm:  algorithm,
		salt:       salt,
		ciphers:    cmap.New[adaptive.Cipher](),
	}

	// Derive eagerly so a bad algorithm surfaces at construction.
	if _, err := s.cipherFor(salt); err != nil {
		return nil, err
	}

	return s, nil
}

// Salt returns a copy of the session salt.
func (s *Service) Salt() []byte {
	out := make([]byte, len(s.salt))
	copy(out, s.salt)
	return out
}

// Algorithm returns the configured cipher type.
func (s *Service) Algorithm() adaptive.CipherType {
	return s.algorithm
}

// Encrypt seals plaintext under the session key with a fresh IV. aad is
// bound to the ciphertext and must be presented again to Decrypt.
func (s *Service) Encrypt(plaintext, aad []byte) (*domain.Sealed, error) {
	c, err := s.cipherFor(s.salt)
	if err != nil {
		return nil, err
	}

	iv, ct, err := c.Seal(plaintext, aad)
	if err != nil {
		return nil, domain.ErrEncryption.WithCause(err)
	}

	return &domain.Sealed{IV: iv, Salt: s.Salt(), Ciphertext: ct}, nil
}

// Decrypt opens sealed with the key derived for its salt.
func (s *Service) Decrypt(sealed *domain.Sealed, aad []byte) ([]byte, error) {
	if sealed == nil {
		return nil, domain.ErrDecryption.WithDetails("nil sealed value")
	}
	if err := sealed.Validate(); err != nil {
		return nil, domain.ErrDecryption.WithDetails(err.Error())
	}

	c, err := s.cipherFor(sealed.Salt)
	if err != nil {
		return nil, err
	}

	pt, err := c.Open(sealed.IV, sealed.Ciphertext, aad)
	if err != nil {
		return nil, domain.ErrDecryption.WithCause(err)
	}
	return pt, nil
}

func (s *Service) cipherFor(salt []byte) (adaptive.Cipher, error) {
	if c, ok := s.ciphers.Get(string(salt)); ok {
		return c, nil
	}

	key := DeriveKey(s.secret, salt, s.iterations)
	c, err := adaptive.NewWithType(key, s.algorithm)
	if err != nil {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("cipher %s", s.algorithm)).WithCause(err)
	}

	// A concurrent derivation for the same salt yields an equivalent cipher;
	// keep whichever landed first.
	c, _ = s.ciphers.GetOrSet(string(salt), c)
	return c, nil
}

// DeriveKey runs PBKDF2-HMAC-SHA256 and returns a KeySize-byte key.
func DeriveKey(secret, salt []byte, iterations int) []byte {
	return pbkdf2.Key(secret, salt, iterations, KeySize, sha256.New)
}
