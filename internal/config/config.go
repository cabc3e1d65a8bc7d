package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/username/festival-planner/internal/preferences"
)

const envPrefix = "FESTIVAL_PLANNER"

// Config represents application configuration
type Config struct {
	Year        int               `mapstructure:"year" yaml:"year"`
	Catalog     CatalogConfig     `mapstructure:"catalog" yaml:"catalog"`
	Holidays    HolidaysConfig    `mapstructure:"holidays" yaml:"holidays"`
	Preferences PreferencesConfig `mapstructure:"preferences" yaml:"preferences"`
	Share       ShareConfig       `mapstructure:"share" yaml:"share"`
	Daemon      DaemonConfig      `mapstructure:"daemon" yaml:"daemon"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

// CatalogConfig represents the festival catalog source
type CatalogConfig struct {
	URL          string `mapstructure:"url" yaml:"url"`                     // http(s) URL or local path
	FallbackFile string `mapstructure:"fallback_file" yaml:"fallback_file"` // used when url fails
	Timeout      string `mapstructure:"timeout" yaml:"timeout"`
	ImportURL    string `mapstructure:"import_url" yaml:"import_url"` // listing page for the import command
}

// HolidaysConfig represents the school holiday calendar source
type HolidaysConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	FallbackFile   string `mapstructure:"fallback_file" yaml:"fallback_file"`
	CacheTTL       string `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Timeout        string `mapstructure:"timeout" yaml:"timeout"`
	PublicHolidays bool   `mapstructure:"public_holidays" yaml:"public_holidays"`
}

// PreferencesConfig represents where liked festivals are stored
type PreferencesConfig struct {
	File string `mapstructure:"file" yaml:"file"`
	Key  string `mapstructure:"key" yaml:"key"`
}

// ShareConfig represents the base of generated share links
type ShareConfig struct {
	Origin string `mapstructure:"origin" yaml:"origin"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// DaemonConfig represents refresh loop configuration
type DaemonConfig struct {
	Schedule string `mapstructure:"schedule" yaml:"schedule"` // cron expression or @every
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// ServerConfig represents the local HTTP API
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Year: 2026,
		Catalog: CatalogConfig{
			URL:     "data/festivals_2026.json",
			Timeout: "10s",
		},
		Holidays: HolidaysConfig{
			URL:            "data/ferien_nrw_2026.ics",
			CacheTTL:       "1d",
			Timeout:        "10s",
			PublicHolidays: true,
		},
		Preferences: PreferencesConfig{
			File: defaultPreferencesFile(),
			Key:  preferences.DefaultStorageKey,
		},
		Share: ShareConfig{
			Origin: "http://localhost:8080",
			Path:   "/",
		},
		Daemon: DaemonConfig{
			Schedule: "@every 6h",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8080",
		},
	}
}

func defaultPreferencesFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".festival-planner/preferences.json"
	}
	return filepath.Join(home, ".festival-planner", "preferences.json")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("year", d.Year)
	v.SetDefault("catalog.url", d.Catalog.URL)
	v.SetDefault("catalog.fallback_file", d.Catalog.FallbackFile)
	v.SetDefault("catalog.timeout", d.Catalog.Timeout)
	v.SetDefault("catalog.import_url", d.Catalog.ImportURL)
	v.SetDefault("holidays.url", d.Holidays.URL)
	v.SetDefault("holidays.fallback_file", d.Holidays.FallbackFile)
	v.SetDefault("holidays.cache_ttl", d.Holidays.CacheTTL)
	v.SetDefault("holidays.timeout", d.Holidays.Timeout)
	v.SetDefault("holidays.public_holidays", d.Holidays.PublicHolidays)
	v.SetDefault("preferences.file", d.Preferences.File)
	v.SetDefault("preferences.key", d.Preferences.Key)
	v.SetDefault("share.origin", d.Share.Origin)
	v.SetDefault("share.path", d.Share.Path)
	v.SetDefault("daemon.schedule", d.Daemon.Schedule)
	v.SetDefault("daemon.log_file", d.Daemon.LogFile)
	v.SetDefault("daemon.log_level", d.Daemon.LogLevel)
	v.SetDefault("server.listen", d.Server.Listen)
}

// Load loads configuration from file. Without an explicit path a missing
// config file is not an error and defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.festival-planner")
		v.AddConfigPath("/etc/festival-planner")
	}

	// FESTIVAL_PLANNER_CATALOG_URL overrides catalog.url
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Year < 1900 || c.Year > 9999 {
		return fmt.Errorf("year must be between 1900 and 9999, got %d", c.Year)
	}

	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog.url is required")
	}
	if err := validateDuration("catalog.timeout", c.Catalog.Timeout); err != nil {
		return err
	}
	if err := validateDuration("holidays.cache_ttl", c.Holidays.CacheTTL); err != nil {
		return err
	}
	if err := validateDuration("holidays.timeout", c.Holidays.Timeout); err != nil {
		return err
	}

	if c.Preferences.File == "" {
		return fmt.Errorf("preferences.file is required")
	}

	if c.Share.Origin != "" && !strings.HasPrefix(c.Share.Origin, "http://") && !strings.HasPrefix(c.Share.Origin, "https://") {
		return fmt.Errorf("share.origin must start with http:// or https://, got '%s'", c.Share.Origin)
	}

	if c.Daemon.Schedule != "" {
		if _, err := cron.ParseStandard(c.Daemon.Schedule); err != nil {
			return fmt.Errorf("daemon.schedule is invalid: %w", err)
		}
	}

	switch strings.ToLower(c.Daemon.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("daemon.log_level must be debug, info, warn or error, got '%s'", c.Daemon.LogLevel)
	}

	return nil
}

func validateDuration(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := str2duration.ParseDuration(value); err != nil {
		return fmt.Errorf("%s is not a duration: %w", name, err)
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	duration, err := str2duration.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// GetTimeout returns the catalog fetch timeout
func (c *CatalogConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetCacheTTL returns cache TTL duration
func (c *HolidaysConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetTimeout returns the holiday fetch timeout
func (c *HolidaysConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetKey returns the storage key for liked festivals
func (c *PreferencesConfig) GetKey() string {
	if c.Key == "" {
		return preferences.DefaultStorageKey
	}
	return c.Key
}

// GetPath returns the share path, always starting with '/'
func (c *ShareConfig) GetPath() string {
	if c.Path == "" {
		return "/"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return "/" + c.Path
	}
	return c.Path
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Catalog.URL = os.ExpandEnv(c.Catalog.URL)
	c.Catalog.FallbackFile = os.ExpandEnv(c.Catalog.FallbackFile)
	c.Holidays.URL = os.ExpandEnv(c.Holidays.URL)
	c.Holidays.FallbackFile = os.ExpandEnv(c.Holidays.FallbackFile)
	c.Preferences.File = os.ExpandEnv(c.Preferences.File)
	c.Daemon.LogFile = os.ExpandEnv(c.Daemon.LogFile)
}

// WriteDefault writes a starter config file to path. Existing files are
// left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".festival-planner-config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move config into place: %w", err)
	}

	return nil
}
