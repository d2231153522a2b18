package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webstore.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, DefaultNamespace)
	}
	if cfg.Cookie.MaxEntryBytes == 0 {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
namespace: shop
default_storage: indexedDB
fallback: [indexedDB, localStorage]
origin:
  name: shop
encryption:
  enabled: true
  secret: file-secret-value
cookie:
  same_site: Strict
`)
	t.Setenv("WEBSTORE_ENCRYPTION__SECRET", "env-secret-value")

	cfg, err := Load(path, map[string]any{"origin.data_dir": dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Namespace != "shop" || cfg.DefaultStorage != "indexedDB" {
		t.Errorf("namespace/default = %q/%q", cfg.Namespace, cfg.DefaultStorage)
	}
	if len(cfg.Fallback) != 2 || cfg.Fallback[0] != "indexedDB" {
		t.Errorf("Fallback = %v", cfg.Fallback)
	}
	if cfg.Encryption.Secret != "env-secret-value" {
		t.Errorf("Secret = %q, want env to override file", cfg.Encryption.Secret)
	}
	if cfg.Origin.DataDir != dir {
		t.Errorf("DataDir = %q, want override %q", cfg.Origin.DataDir, dir)
	}
	if cfg.Origin.URL != DefaultOriginURL {
		t.Errorf("URL = %q, want default kept", cfg.Origin.URL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "default_storage: floppy\n")

	_, err := Load(path, nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoadWithSources(t *testing.T) {
	path := writeConfig(t, `
namespace: shop
log:
  level: debug
`)
	t.Setenv("WEBSTORE_LOG__FORMAT", "json")

	cfg, sources, err := LoadWithSources(path, map[string]any{"namespace": "flagged"})
	if err != nil {
		t.Fatalf("LoadWithSources() error = %v", err)
	}
	if cfg.Namespace != "flagged" {
		t.Errorf("Namespace = %q, want override", cfg.Namespace)
	}

	want := map[string]string{
		"namespace":  "override",
		"log.level":  "file:" + path,
		"log.format": "env",
	}
	for key, source := range want {
		if sources[key] != source {
			t.Errorf("sources[%q] = %q, want %q", key, sources[key], source)
		}
	}
	if _, ok := sources["cookie.path"]; ok {
		t.Error("defaults should not be attributed to a source")
	}
}
