// Package confloader loads configuration with koanf.
//
// Sources, from highest to lowest priority:
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (WEBSTORE_ prefix, "__" between sections)
//  3. A YAML configuration file
//  4. Values already present in the target struct
//
// The loader is format-agnostic beyond YAML; typed validation belongs to
// the package that owns the target struct.
package confloader
