// Package config loads client and server configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultServerURL        = "http://localhost:8080"
	DefaultSyncFrequency    = 10.0
	DefaultCrashedCountWait = 10
	DefaultStorageStrategy  = "bolt"
	DefaultStoragePath      = "datasync.db"
	DefaultRequestTimeout   = 30 * time.Second
	DefaultLogLevel         = "info"

	// PassphraseEnv names the variable holding the local storage passphrase
	PassphraseEnv = "DATASYNC_PASSPHRASE"
)

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Client configures the sync engine
type Client struct {
	// ServerURL is the base URL of the remote store
	ServerURL string `yaml:"server_url"`

	// StorageStrategy selects the persistence backend: memory or bolt
	StorageStrategy string `yaml:"storage_strategy"`

	// StoragePath is the bbolt file used by the bolt strategy
	StoragePath string `yaml:"storage_path"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Passphrase enables encryption of the bolt file. Never read from YAML.
	Passphrase string `yaml:"-"`

	// SyncFrequency is the number of seconds between sync cycles
	SyncFrequency float64 `yaml:"sync_frequency"`

	// CrashedCountWait is the number of consecutive failed cycles after
	// which a dataset stops syncing
	CrashedCountWait int `yaml:"crashed_count_wait"`

	// RequestTimeout bounds one sync cycle
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultClient returns a Client with defaults applied
func DefaultClient() Client {
	return Client{
		ServerURL:        DefaultServerURL,
		StorageStrategy:  DefaultStorageStrategy,
		StoragePath:      DefaultStoragePath,
		LogLevel:         DefaultLogLevel,
		SyncFrequency:    DefaultSyncFrequency,
		CrashedCountWait: DefaultCrashedCountWait,
		RequestTimeout:   DefaultRequestTimeout,
	}
}

// LoadClient reads a YAML file over the defaults. A missing file is not an
// error when path is empty. The passphrase is taken from the environment.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.Passphrase = os.Getenv(PassphraseEnv)
	return cfg, nil
}

// MinSyncInterval is the shortest accepted sync period
const MinSyncInterval = time.Millisecond

// maxSyncFrequency keeps SyncInterval within time.Duration
const maxSyncFrequency = float64(math.MaxInt64 / int64(time.Second))

// SyncInterval returns SyncFrequency as a duration
func (c Client) SyncInterval() time.Duration {
	return time.Duration(c.SyncFrequency * float64(time.Second))
}

// Validate checks the configuration
func (c Client) Validate() error {
	if c.ServerURL == "" {
		return &ValidationError{Field: "server_url", Message: "must not be empty"}
	}
	if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "server_url", Message: "must be an absolute URL"}
	}
	if c.SyncFrequency <= 0 || math.IsNaN(c.SyncFrequency) || math.IsInf(c.SyncFrequency, 0) {
		return &ValidationError{Field: "sync_frequency", Message: "must be a positive number of seconds"}
	}
	// Вне диапазона time.Duration преобразование не определено
	if c.SyncFrequency > maxSyncFrequency || c.SyncInterval() < MinSyncInterval {
		return &ValidationError{Field: "sync_frequency", Message: fmt.Sprintf("must be between %s and %.0f seconds", MinSyncInterval, maxSyncFrequency)}
	}
	if c.CrashedCountWait < 1 {
		return &ValidationError{Field: "crashed_count_wait", Message: "must be at least 1"}
	}
	if c.RequestTimeout <= 0 {
		return &ValidationError{Field: "request_timeout", Message: "must be positive"}
	}
	switch c.StorageStrategy {
	case "memory":
	case "bolt":
		if c.StoragePath == "" {
			return &ValidationError{Field: "storage_path", Message: "required for bolt storage"}
		}
	default:
		return &ValidationError{Field: "storage_strategy", Message: fmt.Sprintf("unknown strategy %q (want memory or bolt)", c.StorageStrategy)}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// Server configures the reference remote store
type Server struct {
	Addr     string
	DBPath   string
	LogLevel string

	// RateLimit is the number of requests one client may send per
	// RateWindow; 0 disables the limit
	RateLimit  int
	RateWindow time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultServer returns a Server with defaults applied
func DefaultServer() Server {
	return Server{
		Addr:            ":8080",
		DBPath:          "datasync-server.db",
		LogLevel:        DefaultLogLevel,
		RateWindow:      time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration
func (s Server) Validate() error {
	if s.Addr == "" {
		return &ValidationError{Field: "addr", Message: "must not be empty"}
	}
	if s.DBPath == "" {
		return &ValidationError{Field: "db", Message: "must not be empty"}
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return &ValidationError{Field: "log-level", Message: err.Error()}
	}
	if s.RateLimit < 0 {
		return &ValidationError{Field: "rate-limit", Message: "must not be negative"}
	}
	if s.RateLimit > 0 && s.RateWindow <= 0 {
		return &ValidationError{Field: "rate-window", Message: "must be positive when rate-limit is set"}
	}
	if s.ShutdownTimeout <= 0 {
		return &ValidationError{Field: "shutdown-timeout", Message: "must be positive"}
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, errors.New("unknown log level " + s)
	}
	return level, nil
}
