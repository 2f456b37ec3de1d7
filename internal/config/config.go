// Package config loads tessera settings from an optional YAML file and
// TESSERA_* environment variables.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"tessera/internal/application"
	"tessera/internal/logging"
)

const DefaultVaultPath = "~/Documents/vault"

// Cache backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the resolved tessera configuration
type Config struct {
	Vault      string           `mapstructure:"vault"`
	VaultID    string           `mapstructure:"vault_id"`
	Widgets    string           `mapstructure:"widgets"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

type SimilarityConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

// VaultPath returns the vault path from TESSERA_VAULT,
// falling back to DefaultVaultPath.
func VaultPath() string {
	if env := os.Getenv("TESSERA_VAULT"); env != "" {
		return env
	}
	return DefaultVaultPath
}

// Dir returns the directory searched for config.yaml
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tessera")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tessera")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vault", DefaultVaultPath)
	v.SetDefault("vault_id", "")
	v.SetDefault("widgets", "")
	v.SetDefault("cache.backend", BackendSQLite)
	v.SetDefault("cache.dir", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("similarity.default_limit", 10)
}

// Load reads the configuration. An empty path searches Dir() for
// config.yaml and uses defaults when there is none.
func Load(path string) (*Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with overrides, keyed like the config file
// (e.g. "vault", "cache.backend"), that win over file and environment.
func LoadWith(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TESSERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandHome(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands paths and fills derived values
func (c *Config) resolve() error {
	vault := expandHome(c.Vault)
	if vault != "" {
		abs, err := filepath.Abs(vault)
		if err != nil {
			return fmt.Errorf("resolve vault path: %w", err)
		}
		vault = abs
	}
	c.Vault = vault

	if c.VaultID == "" && vault != "" {
		c.VaultID = VaultID(vault)
	}
	if c.Widgets == "" && vault != "" {
		c.Widgets = filepath.Join(vault, ".tessera", "widgets.yaml")
	}
	c.Widgets = expandHome(c.Widgets)
	c.Cache.Dir = expandHome(c.Cache.Dir)
	c.Log.File = expandHome(c.Log.File)
	return nil
}

// VaultID derives a stable short identifier from an absolute vault path
func VaultID(vaultPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(vaultPath)))
	return hex.EncodeToString(sum[:6])
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := application.ValidateRequired("vaultPath", c.Vault); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case BackendSQLite, BackendBadger, BackendMemory, BackendNone:
	default:
		return &application.ValidationError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("unknown cache backend %q (want sqlite, badger, memory or none)", c.Cache.Backend),
		}
	}

	if !logging.ValidLevel(c.Log.Level) {
		return &application.ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level %q", c.Log.Level),
		}
	}
	if c.Watch.DebounceMs < 0 {
		return &application.ValidationError{Field: "watch.debounce_ms", Message: "must not be negative"}
	}
	if c.Similarity.DefaultLimit <= 0 {
		return &application.ValidationError{Field: "similarity.default_limit", Message: "must be positive"}
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
