package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UFOMETA_ZENODO_TOKEN
const EnvPrefix = "UFOMETA"

// Config represents the ufometa configuration
type Config struct {
	Zenodo     ZenodoConfig     `mapstructure:"zenodo"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Validation ValidationConfig `mapstructure:"validation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Index      IndexConfig      `mapstructure:"index"`
	Log        LogConfig        `mapstructure:"log"`
}

// ZenodoConfig represents the archival service
type ZenodoConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	Token     string  `mapstructure:"token"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// GitHubConfig represents the hosting service and the upstream catalog
type GitHubConfig struct {
	APIURL        string  `mapstructure:"api_url"`
	RawURL        string  `mapstructure:"raw_url"`
	Token         string  `mapstructure:"token"`
	RateLimit     float64 `mapstructure:"rate_limit"`
	UpstreamOwner string  `mapstructure:"upstream_owner"`
	UpstreamRepo  string  `mapstructure:"upstream_repo"`
	Branch        string  `mapstructure:"branch"`
	CatalogPath   string  `mapstructure:"catalog_path"`
}

// ValidationConfig represents reference checking
type ValidationConfig struct {
	ReferencesAsWarnings bool          `mapstructure:"references_as_warnings"`
	DOIResolver          string        `mapstructure:"doi_resolver"`
	ArXivResolver        string        `mapstructure:"arxiv_resolver"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// CacheConfig represents the reference lookup cache
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis cache backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IndexConfig represents the local catalog index
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig represents logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration. An empty path looks for ufometa.yaml in the
// working directory and then in the user config directory; a missing file
// means defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ufometa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ufometa"))
		}
	}

	// UFOMETA_GITHUB_TOKEN overrides github.token
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("zenodo.base_url", "https://sandbox.zenodo.org")
	v.SetDefault("zenodo.token", "")
	v.SetDefault("zenodo.rate_limit", 2)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.raw_url", "https://raw.githubusercontent.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.rate_limit", 5)
	v.SetDefault("github.upstream_owner", "ThanosWang")
	v.SetDefault("github.upstream_repo", "UFOMetadata")
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.catalog_path", "Metadata")

	v.SetDefault("validation.references_as_warnings", false)
	v.SetDefault("validation.doi_resolver", "https://doi.org/")
	v.SetDefault("validation.arxiv_resolver", "https://arxiv.org/abs/")
	v.SetDefault("validation.timeout", "30s")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("index.path", defaultIndexPath())

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

func defaultIndexPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".ufometa-catalog.db"
	}
	return filepath.Join(dir, "ufometa", "catalog.db")
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	for key, url := range map[string]string{
		"zenodo.base_url":           cfg.Zenodo.BaseURL,
		"github.api_url":            cfg.GitHub.APIURL,
		"github.raw_url":            cfg.GitHub.RawURL,
		"validation.doi_resolver":   cfg.Validation.DOIResolver,
		"validation.arxiv_resolver": cfg.Validation.ArXivResolver,
	} {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("%s must be an http(s) URL, got: %q", key, url)
		}
	}

	if cfg.Zenodo.RateLimit < 0 || cfg.GitHub.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}

	if cfg.GitHub.UpstreamOwner == "" || cfg.GitHub.UpstreamRepo == "" {
		return fmt.Errorf("github.upstream_owner and github.upstream_repo are required")
	}
	if strings.HasPrefix(cfg.GitHub.CatalogPath, "/") || strings.HasSuffix(cfg.GitHub.CatalogPath, "/") {
		return fmt.Errorf("github.catalog_path must not start or end with '/', got: %s", cfg.GitHub.CatalogPath)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	if cfg.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}
	return nil
}
