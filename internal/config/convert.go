package config

import (
	"log/slog"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/storage"
	"github.com/yndnr/webstore-go/internal/telemetry/metric"
	"github.com/yndnr/webstore-go/pkg/crypto/adaptive"
)

// StorageConfig returns the origin configuration. cfg must have passed
// Verify.
func (c *Config) StorageConfig(logger *slog.Logger) storage.Config {
	sc := storage.DefaultConfig(c.Origin.Name)
	if c.Origin.URL != "" {
		sc.URL = c.Origin.URL
	}
	sc.DataDir = c.Origin.DataDir
	sc.LocalQuotaBytes = c.Local.QuotaBytes
	sc.SessionQuotaBytes = c.Session.QuotaBytes
	sc.CookieMaxEntryBytes = c.Cookie.MaxEntryBytes
	sc.DisableLocal = !c.Local.Enabled
	sc.DisableSession = !c.Session.Enabled
	sc.DisableCookies = !c.Cookie.Enabled
	sc.DisableIndexedDB = !c.IndexedDB.Enabled
	sc.Logger = logger
	return sc
}

// ServiceConfig returns the Manager configuration.
func (c *Config) ServiceConfig(logger *slog.Logger, metrics *metric.Registry) (*service.Config, error) {
	sc := service.DefaultConfig()
	sc.Namespace = c.Namespace
	sc.Logger = logger
	sc.Metrics = metrics

	def, err := domain.ParseBackend(c.DefaultStorage)
	if err != nil {
		return nil, err
	}
	sc.DefaultStorage = def

	if len(c.Fallback) > 0 {
		sc.Fallback = make([]domain.Backend, 0, len(c.Fallback))
		for _, s := range c.Fallback {
			b, err := domain.ParseBackend(s)
			if err != nil {
				return nil, err
			}
			sc.Fallback = append(sc.Fallback, b)
		}
	}

	if c.Encryption.Enabled {
		algo, err := adaptive.ParseCipherType(c.Encryption.Algorithm)
		if err != nil {
			return nil, domain.ErrConfiguration.WithDetails(err.Error())
		}
		sc.Encryption = service.EncryptionConfig{
			Enabled:    true,
			Secret:     c.Encryption.Secret,
			Iterations: c.Encryption.KeyDerivationIterations,
			Algorithm:  algo,
		}
	}

	sc.IndexedDB.DBName = c.IndexedDB.DBName
	sc.IndexedDB.StoreName = c.IndexedDB.StoreName
	sc.IndexedDB.Version = c.IndexedDB.Version

	sameSite, err := ParseSameSite(c.Cookie.SameSite)
	if err != nil {
		return nil, domain.ErrConfiguration.WithDetails(err.Error())
	}
	sc.Cookie = service.CookieConfig{
		Path:     c.Cookie.Path,
		Secure:   c.Cookie.Secure,
		SameSite: sameSite,
	}
	return sc, nil
}
