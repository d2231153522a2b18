package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	sanitized.Fallback = append([]string(nil), cfg.Fallback...)

	if sanitized.Encryption.Secret != "" {
		sanitized.Encryption.Secret = maskSecret(sanitized.Encryption.Secret)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
