package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Browse  BrowseConfig  `mapstructure:"browse"`
	Filters FilterConfig  `mapstructure:"filters"`
	Update  UpdateConfig  `mapstructure:"update"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds the figure backend connection details
type APIConfig struct {
	// Origin is the absolute backend URL used for server-initiated calls
	Origin string `mapstructure:"origin"`
	// DeploymentHost is used as https://<host> when Origin is empty
	DeploymentHost string `mapstructure:"deployment_host"`
	// ProxyURL is the front end address user-scoped calls are sent through
	ProxyURL    string        `mapstructure:"proxy_url"`
	InternalKey string        `mapstructure:"internal_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PageSize    int           `mapstructure:"page_size"`
	// AccessToken and RefreshToken let the CLI act as a user
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// HasUserTokens reports whether the CLI should issue user-scoped calls
func (c APIConfig) HasUserTokens() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// ServerConfig contains web front end settings
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Thumbnails    ThumbConfig   `mapstructure:"thumbnails"`
}

// ThumbConfig controls the image resizing endpoint
type ThumbConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	MaxWidth  int  `mapstructure:"max_width"`
	CacheSize int  `mapstructure:"cache_size"`
	// AllowedHosts lists image hosts besides the backend that may be fetched
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

// BrowseConfig contains terminal browser settings
type BrowseConfig struct {
	PrefsPath string `mapstructure:"prefs_path"`
}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// UpdateConfig contains self-update settings
type UpdateConfig struct {
	Repository string `mapstructure:"repository"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
