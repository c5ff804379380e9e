// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Host and Port form the HTTP listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// DataFile is the JSON document holding scores and the reveal flag.
	DataFile string `koanf:"data_file"`

	// InitDataFile creates an empty DataFile on start when it is missing.
	InitDataFile bool `koanf:"init_data_file"`

	// PublicDir holds the judge and dashboard pages. Empty disables them.
	PublicDir string `koanf:"public_dir"`

	// Judges lists the identities allowed to submit scores.
	Judges []string `koanf:"judges"`

	// KeepAliveInterval spaces comment lines on idle event streams. Zero disables them.
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval"`

	// SubscriberBuffer is how many events a viewer may lag before it is dropped.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// SerializeWrites runs every mutation on a single writer goroutine.
	SerializeWrites bool `koanf:"serialize_writes"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `koanf:"cors_origins"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MetricsEnabled turns metric recording on.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are key=value pairs attached to every series.
	MetricsLabels []string `koanf:"metrics_labels"`

	// MetricsRefreshInterval is how often process gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Port:              3456,
		DataFile:          "data.json",
		Judges:            []string{"aleksej", "egor"},
		KeepAliveInterval: 15 * time.Second,
		SubscriberBuffer:  64,
		ShutdownTimeout:   30 * time.Second,

		MetricsEnabled:         true,
		MetricsNamespace:       "tally",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case strings.TrimSpace(c.DataFile) == "":
		return fmt.Errorf("%w: data_file must not be empty", ErrInvalidConfig)
	case len(c.Judges) == 0:
		return fmt.Errorf("%w: at least one judge is required", ErrInvalidConfig)
	case c.KeepAliveInterval < 0:
		return fmt.Errorf("%w: keep_alive_interval must not be negative", ErrInvalidConfig)
	case c.SubscriberBuffer < 0:
		return fmt.Errorf("%w: subscriber_buffer must not be negative", ErrInvalidConfig)
	case c.ShutdownTimeout < 0:
		return fmt.Errorf("%w: shutdown_timeout must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	if _, err := c.MetricsConstLabels(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q is not text or json", ErrInvalidConfig, c.LogFormat)
	}
	for _, j := range c.Judges {
		if strings.TrimSpace(j) == "" || strings.Contains(j, "/") {
			return fmt.Errorf("%w: judge %q is not a usable identifier", ErrInvalidConfig, j)
		}
	}
	return nil
}

// MetricsConstLabels parses MetricsLabels into a label set.
func (c *Config) MetricsConstLabels() (map[string]string, error) {
	labels := make(map[string]string, len(c.MetricsLabels))
	for _, pair := range c.MetricsLabels {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return nil, fmt.Errorf("%w: metrics label %q is not name=value", ErrInvalidConfig, pair)
		}
		if _, dup := labels[name]; dup {
			return nil, fmt.Errorf("%w: metrics label %q set twice", ErrInvalidConfig, name)
		}
		labels[name] = strings.TrimSpace(value)
	}
	return labels, nil
}
