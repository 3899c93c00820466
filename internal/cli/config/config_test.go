package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate keeps Load away from any real config file or UFOMETA_* variable
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, ".cache"))
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix+"_") {
			key, _, _ := strings.Cut(kv, "=")
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Zenodo.BaseURL != "https://sandbox.zenodo.org" {
		t.Errorf("expected sandbox zenodo, got %s", cfg.Zenodo.BaseURL)
	}
	if cfg.GitHub.UpstreamOwner != "ThanosWang" || cfg.GitHub.UpstreamRepo != "UFOMetadata" {
		t.Errorf("unexpected upstream %s/%s", cfg.GitHub.UpstreamOwner, cfg.GitHub.UpstreamRepo)
	}
	if cfg.GitHub.Branch != "main" || cfg.GitHub.CatalogPath != "Metadata" {
		t.Errorf("unexpected catalog location %s:%s", cfg.GitHub.Branch, cfg.GitHub.CatalogPath)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected memory cache, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected 24h ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Validation.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Validation.Timeout)
	}
	if cfg.Validation.ReferencesAsWarnings {
		t.Error("expected references to be hard failures by default")
	}
	if cfg.Zenodo.Token != "" || cfg.GitHub.Token != "" {
		t.Error("expected no tokens by default")
	}
	if want := filepath.Join(dir, ".cache", "ufometa", "catalog.db"); cfg.Index.Path != want {
		t.Errorf("expected index at %s, got %s", want, cfg.Index.Path)
	}
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	isolate(t)

	configContent := `
zenodo:
  base_url: https://zenodo.org
github:
  upstream_owner: ufo-models
  upstream_repo: catalog
validation:
  references_as_warnings: true
cache:
  backend: redis
  ttl: 1h
  redis:
    addr: cache:6379
    db: 2
log:
  level: debug
  format: json
`
	if err := os.WriteFile("ufometa.yaml", []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Zenodo.BaseURL != "https://zenodo.org" {
		t.Errorf("expected production zenodo, got %s", cfg.Zenodo.BaseURL)
	}
	if cfg.GitHub.UpstreamOwner != "ufo-models" || cfg.GitHub.UpstreamRepo != "catalog" {
		t.Errorf("unexpected upstream %s/%s", cfg.GitHub.UpstreamOwner, cfg.GitHub.UpstreamRepo)
	}
	if !cfg.Validation.ReferencesAsWarnings {
		t.Error("expected references_as_warnings from file")
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "cache:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	// untouched keys keep their defaults
	if cfg.GitHub.Branch != "main" {
		t.Errorf("expected default branch, got %s", cfg.GitHub.Branch)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("index:\n  path: /tmp/ufo.db\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Index.Path != "/tmp/ufo.db" {
		t.Errorf("expected index path from file, got %s", cfg.Index.Path)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)

	if err := os.WriteFile("ufometa.yaml", []byte("zenodo:\n  token: from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("UFOMETA_ZENODO_TOKEN", "from-env")
	t.Setenv("UFOMETA_GITHUB_TOKEN", "gh-env")
	t.Setenv("UFOMETA_VALIDATION_REFERENCES_AS_WARNINGS", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Zenodo.Token != "from-env" {
		t.Errorf("expected token from environment, got %s", cfg.Zenodo.Token)
	}
	if cfg.GitHub.Token != "gh-env" {
		t.Errorf("expected github token from environment, got %s", cfg.GitHub.Token)
	}
	if !cfg.Validation.ReferencesAsWarnings {
		t.Error("expected references_as_warnings from environment")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "relative zenodo url",
			content: "zenodo:\n  base_url: zenodo.org\n",
			wantErr: "zenodo.base_url",
		},
		{
			name:    "unknown cache backend",
			content: "cache:\n  backend: memcached\n",
			wantErr: "cache.backend",
		},
		{
			name:    "unknown log format",
			content: "log:\n  format: xml\n",
			wantErr: "log.format",
		},
		{
			name:    "catalog path with slash",
			content: "github:\n  catalog_path: /Metadata\n",
			wantErr: "github.catalog_path",
		},
		{
			name:    "negative rate limit",
			content: "github:\n  rate_limit: -1\n",
			wantErr: "rate_limit",
		},
		{
			name:    "empty upstream",
			content: "github:\n  upstream_owner: \"\"\n",
			wantErr: "upstream_owner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if err := os.WriteFile("ufometa.yaml", []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			_, err := Load("")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
