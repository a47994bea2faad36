package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Location providers understood by LocationConfig.Provider.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
	ProviderHTTP   = "http"
	ProviderClient = "client"
)

// Config is the root configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Display  DisplayConfig  `yaml:"display"`
	Location LocationConfig `yaml:"location"`
	Preview  PreviewConfig  `yaml:"preview"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains the widget HTTP server settings
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MaxUploadSize  string   `yaml:"maxUploadSize"`
}

// DisplayConfig controls how dates are rendered
type DisplayConfig struct {
	DateLayout string `yaml:"dateLayout"`
	TimeZone   string `yaml:"timeZone"`
}

// LocationConfig selects the fallback location provider
type LocationConfig struct {
	Provider       string  `yaml:"provider"`
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
	URL            string  `yaml:"url"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// PreviewConfig controls the rendered preview
type PreviewConfig struct {
	MaxSize int `yaml:"maxSize"`
	Quality int `yaml:"quality"`
}

// LogConfig controls logrus
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:7070",
			AllowedOrigins: []string{"*"},
			MaxUploadSize:  "32MB",
		},
		Display: DisplayConfig{
			DateLayout: "1/2/2006, 3:04:05 PM",
			TimeZone:   "Local",
		},
		Location: LocationConfig{
			Provider: ProviderClient,
		},
		Preview: PreviewConfig{
			MaxSize: 640,
			Quality: 85,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads the YAML file at configPath on top of the defaults.
// An empty path or a missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(configPath string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *Config) applyEnvironmentOverrides() {
	if addr := os.Getenv("PHOTODETAILS_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if provider := os.Getenv("PHOTODETAILS_LOCATION_PROVIDER"); provider != "" {
		c.Location.Provider = provider
	}
	if level := os.Getenv("PHOTODETAILS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	c.Location.Provider = strings.ToLower(strings.TrimSpace(c.Location.Provider))
	switch c.Location.Provider {
	case "":
		c.Location.Provider = ProviderNone
	case ProviderNone, ProviderClient:
	case ProviderStatic:
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 || c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return fmt.Errorf("static location out of range: %v, %v", c.Location.Latitude, c.Location.Longitude)
		}
	case ProviderHTTP:
		if c.Location.URL == "" {
			return errors.New("http location provider needs a url")
		}
	default:
		return fmt.Errorf("unknown location provider %q", c.Location.Provider)
	}
	if c.Location.TimeoutSeconds < 0 {
		return fmt.Errorf("negative location timeout: %d", c.Location.TimeoutSeconds)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	if _, err := c.TimeZone(); err != nil {
		return err
	}
	return nil
}

// MaxUploadBytes parses Server.MaxUploadSize, e.g. "32MB" or "10 MiB".
func (c *Config) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Server.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid maxUploadSize %q: %w", c.Server.MaxUploadSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid maxUploadSize %q: must be positive", c.Server.MaxUploadSize)
	}
	return int64(n), nil
}

// TimeZone resolves Display.TimeZone; empty means Local.
func (c *Config) TimeZone() (*time.Location, error) {
	if c.Display.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timeZone %q: %w", c.Display.TimeZone, err)
	}
	return loc, nil
}

// LocationTimeout is the per-lookup deadline; zero means none.
func (c *Config) LocationTimeout() time.Duration {
	return time.Duration(c.Location.TimeoutSeconds) * time.Second
}
