package config

import (
	"github.com/yndnr/webstore-go/internal/storage/cookiejar"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
	"github.com/yndnr/webstore-go/internal/storage/webstorage"
)

// Default configuration values.
const (
	DefaultNamespace      = "webstore"
	DefaultStorageBackend = "localStorage"
	DefaultOriginName     = "webstore"
	DefaultOriginURL      = "https://localhost"

	DefaultAlgorithm = "auto"

	DefaultDBName    = "webstore"
	DefaultStoreName = "keyvalue"
	DefaultDBVersion = 1

	DefaultCookiePath     = "/"
	DefaultCookieSameSite = "Lax"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsAddr = "127.0.0.1:9108"
)

// DefaultFallback is the default fallback priority order.
var DefaultFallback = []string{"localStorage", "sessionStorage", "cookie", "indexedDB"}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Namespace:      DefaultNamespace,
		DefaultStorage: DefaultStorageBackend,
		Fallback:       append([]string(nil), DefaultFallback...),
		Origin: OriginSection{
			Name: DefaultOriginName,
			URL:  DefaultOriginURL,
		},
		Encryption: EncryptionSection{
			KeyDerivationIterations: crypt.DefaultIterations,
			Algorithm:               DefaultAlgorithm,
		},
		IndexedDB: IndexedDBSection{
			Enabled:   true,
			DBName:    DefaultDBName,
			StoreName: DefaultStoreName,
			Version:   DefaultDBVersion,
		},
		Cookie: CookieSection{
			Enabled:       true,
			Path:          DefaultCookiePath,
			SameSite:      DefaultCookieSameSite,
			MaxEntryBytes: cookiejar.MaxEntryBytes,
		},
		Local: AreaSection{
			Enabled:    true,
			QuotaBytes: webstorage.DefaultQuotaBytes,
		},
		Session: AreaSection{
			Enabled:    true,
			QuotaBytes: webstorage.DefaultQuotaBytes,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
	}
}
