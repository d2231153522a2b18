package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
	"github.com/yndnr/webstore-go/internal/storage/namespace"
	"github.com/yndnr/webstore-go/internal/telemetry/logger"
	"github.com/yndnr/webstore-go/pkg/crypto/adaptive"
)

// Verify validates the configuration. Every problem found is reported; the
// result matches domain.ErrConfiguration.
func Verify(cfg *Config) error {
	var result *multierror.Error
	add := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	add(namespace.Validate(cfg.Namespace))
	add(verifyBackends(cfg))
	add(verifyOrigin(&cfg.Origin))
	add(verifyEncryption(&cfg.Encryption))
	add(verifyIndexedDB(&cfg.IndexedDB))
	add(verifyCookie(&cfg.Cookie))
	add(verifyArea("local", &cfg.Local))
	add(verifyArea("session", &cfg.Session))
	add(verifyLog(&cfg.Log))

	if err := result.ErrorOrNil(); err != nil {
		return domain.ErrConfiguration.WithCause(err)
	}
	return nil
}

func verifyBackends(cfg *Config) error {
	def, err := domain.ParseBackend(cfg.DefaultStorage)
	if err != nil {
		return fmt.Errorf("default_storage: %w", err)
	}
	if def == domain.BackendDefault && cfg.DefaultStorage != "" {
		return fmt.Errorf("default_storage: %q does not name a backend", cfg.DefaultStorage)
	}

	seen := make(map[domain.Backend]bool)
	for _, s := range cfg.Fallback {
		b, err := domain.ParseBackend(s)
		if err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
		if b == domain.BackendDefault {
			return fmt.Errorf("fallback: %q does not name a backend", s)
		}
		if seen[b] {
			return fmt.Errorf("fallback: %s listed twice", b)
		}
		seen[b] = true
	}
	return nil
}

func verifyOrigin(cfg *OriginSection) error {
	if cfg.Name == "" {
		return fmt.Errorf("origin.name is required")
	}
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("origin.url %q is not an absolute URL", cfg.URL)
		}
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return fmt.Errorf("cannot create data directory: %w", err)
		}
	}
	return nil
}

func verifyEncryption(cfg *EncryptionSection) error {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.Secret) < crypt.MinSecretLength {
		return fmt.Errorf("encryption.secret must be at least %d bytes", crypt.MinSecretLength)
	}
	if cfg.KeyDerivationIterations != 0 && cfg.KeyDerivationIterations < crypt.MinIterations {
		return fmt.Errorf("encryption.key_derivation_iterations must be at least %d", crypt.MinIterations)
	}
	if cfg.Algorithm != "" {
		if _, err := adaptive.ParseCipherType(cfg.Algorithm); err != nil {
			return fmt.Errorf("encryption.algorithm: %w", err)
		}
	}
	return nil
}

func verifyIndexedDB(cfg *IndexedDBSection) error {
	if cfg.Version < 0 {
		return fmt.Errorf("indexeddb.version must not be negative")
	}
	return nil
}

func verifyCookie(cfg *CookieSection) error {
	mode, err := ParseSameSite(cfg.SameSite)
	if err != nil {
		return err
	}
	if mode == http.SameSiteNoneMode && !cfg.Secure {
		return fmt.Errorf("cookie.same_site=None requires cookie.secure")
	}
	if cfg.MaxEntryBytes < 0 {
		return fmt.Errorf("cookie.max_entry_bytes must not be negative")
	}
	return nil
}

func verifyArea(name string, cfg *AreaSection) error {
	if cfg.QuotaBytes < 0 {
		return fmt.Errorf("%s.quota_bytes must not be negative", name)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	var result *multierror.Error
	if _, err := logger.ParseFormat(cfg.Format); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.format: %w", err))
	}
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}
	return result.ErrorOrNil()
}

// ParseSameSite parses Strict, Lax or None (case-insensitive). Empty
// means the browser default.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "":
		return http.SameSiteDefaultMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("cookie.same_site %q: want Strict, Lax or None", s)
	}
}
