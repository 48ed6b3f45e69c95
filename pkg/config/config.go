package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultURL                     = "wss://chat.example.org"
	DefaultStateDir                = ".chatsock"
	DefaultLogLevel                = "info"
	DefaultConnectTimeout          = 20 * time.Second
	DefaultUnauthenticatedRotation = 5 * time.Minute
	DefaultKeepAlivePath           = "/v1/keepalive"
	DefaultKeepAliveInterval       = 30 * time.Second
	DefaultKeepAliveTimeout        = 30 * time.Second
	DefaultStaleThreshold          = 5 * time.Minute
	DefaultJitter                  = 5 * time.Second
)

// Validation errors.
var (
	ErrMissingURL       = errors.New("url is required")
	ErrInvalidURL       = errors.New("url must be ws, wss, http or https")
	ErrPartialLogin     = errors.New("username and password must be set together")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn or error")
	ErrInvalidKeepAlive = errors.New("keepalive timeout must not exceed stale_threshold")
)

// ClientConfig is the client configuration file.
type ClientConfig struct {
	// URL is the chat service base URL.
	URL string `yaml:"url"`

	// Username and Password are the account credentials. Both empty runs
	// the client without an authenticated channel.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// CACert is a PEM file with additional trusted roots.
	CACert string `yaml:"ca_cert,omitempty"`

	// UserAgent is sent on every upgrade.
	UserAgent string `yaml:"user_agent,omitempty"`

	// StateDir holds the aggregated stats.
	StateDir string `yaml:"state_dir"`

	// ProtocolLog is a protocol event log file. Empty disables it.
	ProtocolLog string `yaml:"protocol_log,omitempty"`

	// MetricsAddr serves Prometheus metrics when set (":9090").
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	ReceiveStories bool     `yaml:"receive_stories"`
	Languages      []string `yaml:"languages,omitempty"`

	ConnectTimeout          Duration `yaml:"connect_timeout"`
	UnauthenticatedRotation Duration `yaml:"unauthenticated_rotation"`

	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	Backoff   BackoffConfig   `yaml:"backoff"`
}

// KeepAliveConfig configures channel keepalives.
type KeepAliveConfig struct {
	Path           string   `yaml:"path"`
	Interval       Duration `yaml:"interval"`
	Timeout        Duration `yaml:"timeout"`
	StaleThreshold Duration `yaml:"stale_threshold"`
}

// BackoffConfig configures reconnect delays.
type BackoffConfig struct {
	// Jitter is the maximum random delay added. Negative disables it.
	Jitter Duration `yaml:"jitter"`
}

// LoadError reports a configuration file that could not be used.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns the default configuration.
func Default() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields with their defaults.
func (c *ClientConfig) ApplyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if c.UnauthenticatedRotation <= 0 {
		c.UnauthenticatedRotation = Duration(DefaultUnauthenticatedRotation)
	}
	if c.KeepAlive.Path == "" {
		c.KeepAlive.Path = DefaultKeepAlivePath
	}
	if c.KeepAlive.Interval <= 0 {
		c.KeepAlive.Interval = Duration(DefaultKeepAliveInterval)
	}
	if c.KeepAlive.Timeout <= 0 {
		c.KeepAlive.Timeout = Duration(DefaultKeepAliveTimeout)
	}
	if c.KeepAlive.StaleThreshold <= 0 {
		c.KeepAlive.StaleThreshold = Duration(DefaultStaleThreshold)
	}
	if c.Backoff.Jitter == 0 {
		c.Backoff.Jitter = Duration(DefaultJitter)
	}
}

// Validate checks the configuration after defaults were applied.
func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return ErrInvalidURL
	}

	if (c.Username == "") != (c.Password == "") {
		return ErrPartialLogin
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.KeepAlive.Timeout > c.KeepAlive.StaleThreshold {
		return ErrInvalidKeepAlive
	}

	return nil
}

// HasCredentials reports whether a login is configured.
func (c *ClientConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// Parse decodes, defaults and validates a configuration.
func Parse(data []byte) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// Load reads a configuration file.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *ClientConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ErrInvalidLogLevel
	}
}
