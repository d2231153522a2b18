package config

// Config is the root configuration of a webstore application.
type Config struct {
	Namespace      string   `koanf:"namespace" yaml:"namespace"`
	DefaultStorage string   `koanf:"default_storage" yaml:"default_storage"`
	Fallback       []string `koanf:"fallback" yaml:"fallback"`

	Origin     OriginSection     `koanf:"origin" yaml:"origin"`
	Encryption EncryptionSection `koanf:"encryption" yaml:"encryption"`
	IndexedDB  IndexedDBSection  `koanf:"indexeddb" yaml:"indexeddb"`
	Cookie     CookieSection     `koanf:"cookie" yaml:"cookie"`
	Local      AreaSection       `koanf:"local" yaml:"local"`
	Session    AreaSection       `koanf:"session" yaml:"session"`
	Log        LogSection        `koanf:"log" yaml:"log"`
	Metrics    MetricsSection    `koanf:"metrics" yaml:"metrics"`
}

// OriginSection identifies the origin and where it persists.
type OriginSection struct {
	Name string `koanf:"name" yaml:"name"`
	URL  string `koanf:"url" yaml:"url"`

	// DataDir makes localStorage and IndexedDB persistent. Processes
	// sharing it behave as tabs of one browser.
	DataDir string `koanf:"data_dir" yaml:"data_dir"`
}

// EncryptionSection configures value encryption.
type EncryptionSection struct {
	Enabled                 bool   `koanf:"enabled" yaml:"enabled"`
	Secret                  string `koanf:"secret" yaml:"secret"`
	KeyDerivationIterations int    `koanf:"key_derivation_iterations" yaml:"key_derivation_iterations"`
	Algorithm               string `koanf:"algorithm" yaml:"algorithm"`
}

// IndexedDBSection names the database and object store.
type IndexedDBSection struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled"`
	DBName    string `koanf:"db_name" yaml:"db_name"`
	StoreName string `koanf:"store_name" yaml:"store_name"`
	Version   int    `koanf:"version" yaml:"version"`
}

// CookieSection holds the default cookie attributes.
type CookieSection struct {
	Enabled       bool   `koanf:"enabled" yaml:"enabled"`
	Path          string `koanf:"path" yaml:"path"`
	Secure        bool   `koanf:"secure" yaml:"secure"`
	SameSite      string `koanf:"same_site" yaml:"same_site"`
	MaxEntryBytes int    `koanf:"max_entry_bytes" yaml:"max_entry_bytes"`
}

// AreaSection configures localStorage or sessionStorage.
type AreaSection struct {
	Enabled    bool  `koanf:"enabled" yaml:"enabled"`
	QuotaBytes int64 `koanf:"quota_bytes" yaml:"quota_bytes"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}
