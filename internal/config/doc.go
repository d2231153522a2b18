// Package config defines the webstore configuration file.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: secret masking for logs
//   - convert.go: translation into storage and service configuration
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and WEBSTORE_ environment variables.
package config
