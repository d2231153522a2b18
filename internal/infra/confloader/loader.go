package confloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "WEBSTORE_"

// EnvSectionSeparator separates nesting levels in environment variable
// names. A single underscore stays part of the key.
const EnvSectionSeparator = "__"

// Source labels recorded by Sources.
const (
	SourceEnv      = "env"
	SourceOverride = "override"
)

// FileSource returns the source label of a configuration file.
func FileSource(path string) string {
	return "file:" + path
}

// Loader layers configuration sources over a target struct. Every key
// remembers the last source that set it.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	sources   map[string]string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		sources:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies the file (if configured) and then the environment to
// target. Fields no source mentions keep the values already in target,
// so callers prefill defaults. Flags go on top with LoadMap.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return err
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.merge(FileSource(path), file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables named PREFIX + SECTION__KEY, with
// a double underscore between levels so keys like data_dir survive.
// Example: WEBSTORE_ORIGIN__DATA_DIR=/var/lib/webstore -> origin.data_dir
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, EnvSectionSeparator, ".")
	}
	if err := l.merge(SourceEnv, env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap merges values keyed by dotted paths, such as parsed CLI flags.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.merge(SourceOverride, mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

func (l *Loader) merge(source string, p koanf.Provider, parser koanf.Parser) error {
	layer := koanf.New(".")
	if err := layer.Load(p, parser); err != nil {
		return err
	}
	for _, key := range layer.Keys() {
		l.sources[key] = source
	}
	return l.k.Merge(layer)
}

// Unmarshal writes the merged values into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Keys returns every key set by a source, sorted.
func (l *Loader) Keys() []string {
	keys := l.k.Keys()
	sort.Strings(keys)
	return keys
}

// Sources maps each key set by a source to the source's label.
func (l *Loader) Sources() map[string]string {
	out := make(map[string]string, len(l.sources))
	for k, v := range l.sources {
		out[k] = v
	}
	return out
}
