package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FIGURESHELF_API_ORIGIN
const EnvPrefix = "FIGURESHELF"

// envAliases are the bare variable names deployments already set
var envAliases = map[string][]string{
	"api.internal_key":    {"INTERNAL_API_KEY"},
	"api.deployment_host": {"VERCEL_URL"},
}

// Load loads the configuration from file, .env and environment.
// A missing config file is fine when no explicit path was given.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".figureshelf"))
		}

		v.AddConfigPath("/etc/figureshelf/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.origin", "")
	v.SetDefault("api.deployment_host", "")
	v.SetDefault("api.proxy_url", "")
	v.SetDefault("api.internal_key", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.page_size", 8)
	v.SetDefault("api.access_token", "")
	v.SetDefault("api.refresh_token", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.thumbnails.enabled", true)
	v.SetDefault("server.thumbnails.max_width", 600)
	v.SetDefault("server.thumbnails.cache_size", 128)

	v.SetDefault("browse.prefs_path", "~/.config/figureshelf/prefs.toml")

	v.SetDefault("update.repository", "s0up4200/figureshelf")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// bindEnv maps FIGURESHELF_SECTION_KEY and the bare aliases onto config keys
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	for name, raw := range map[string]string{"api.origin": cfg.API.Origin, "api.proxy_url": cfg.API.ProxyURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	if cfg.API.PageSize < 1 {
		return fmt.Errorf("api.page_size must be positive, got %d", cfg.API.PageSize)
	}

	if cfg.Server.Thumbnails.Enabled && cfg.Server.Thumbnails.MaxWidth < 1 {
		return fmt.Errorf("server.thumbnails.max_width must be positive when thumbnails are enabled")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
