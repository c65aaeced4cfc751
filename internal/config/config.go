// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Handler names accepted in Config.Handlers.
const (
	HandlerJSON    = "json"
	HandlerBar     = "bar"
	HandlerLog     = "log"
	HandlerMetrics = "metrics"
	HandlerStore   = "store"
	HandlerPublish = "publish"
	HandlerArchive = "archive"
)

var knownHandlers = map[string]struct{}{
	HandlerJSON:    {},
	HandlerBar:     {},
	HandlerLog:     {},
	HandlerMetrics: {},
	HandlerStore:   {},
	HandlerPublish: {},
	HandlerArchive: {},
}

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	// Handlers lists the enabled handlers in fan-out order.
	Handlers []string       `mapstructure:"handlers"`
	Reporter ReporterConfig `mapstructure:"reporter"`
	JSON     JSONConfig     `mapstructure:"json"`
	Bar      BarConfig      `mapstructure:"bar"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ReporterConfig controls the Writer and the shutdown handshake.
type ReporterConfig struct {
	// DisconnectTimeout bounds the wait for the Writer; 0 waits forever.
	DisconnectTimeout time.Duration `mapstructure:"disconnect_timeout"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
}

// JSONConfig selects where JSON records go.
type JSONConfig struct {
	// Path is a file to append records to; empty means stderr.
	Path string `mapstructure:"path"`
}

// BarConfig tunes the terminal bar.
type BarConfig struct {
	Width          int           `mapstructure:"width"`
	LifecycleDelay time.Duration `mapstructure:"lifecycle_delay"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// Run store drivers accepted in DBConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Archive backends accepted in StorageConfig.Backend.
const (
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// DBConfig controls where the store handler persists runs.
type DBConfig struct {
	// Driver is postgres or memory.
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds publish targets.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// StorageConfig sets where archives are uploaded.
type StorageConfig struct {
	// Backend is gcs or local.
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("handlers", []string{HandlerJSON, HandlerBar})
	v.SetDefault("reporter.disconnect_timeout", "0s")
	v.SetDefault("reporter.handler_timeout", "10s")
	v.SetDefault("json.path", "")
	v.SetDefault("bar.width", 40)
	v.SetDefault("bar.lifecycle_delay", "500ms")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.prefix", "progress")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Handlers))
	for _, name := range c.Handlers {
		if _, ok := knownHandlers[name]; !ok {
			return fmt.Errorf("handlers: unknown handler %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("handlers: %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	if c.Reporter.DisconnectTimeout < 0 {
		return fmt.Errorf("reporter.disconnect_timeout must be >= 0")
	}
	if c.Reporter.HandlerTimeout < 0 {
		return fmt.Errorf("reporter.handler_timeout must be >= 0")
	}
	if c.Enabled(HandlerBar) && c.Bar.Width <= 0 {
		return fmt.Errorf("bar.width must be > 0")
	}
	if c.Bar.LifecycleDelay < 0 {
		return fmt.Errorf("bar.lifecycle_delay must be >= 0")
	}
	if c.Enabled(HandlerStore) {
		switch c.DB.Driver {
		case DriverPostgres:
			if c.DB.DSN == "" {
				return fmt.Errorf("db.dsn must be set when the store handler uses postgres")
			}
		case DriverMemory:
		default:
			return fmt.Errorf("db.driver: unknown driver %q", c.DB.Driver)
		}
	}
	if c.Enabled(HandlerPublish) && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when the publish handler is enabled")
	}
	if c.Enabled(HandlerArchive) {
		switch c.Storage.Backend {
		case BackendGCS:
			if c.Storage.GCSBucket == "" {
				return fmt.Errorf("storage.gcs_bucket must be set when the archive handler uses gcs")
			}
		case BackendLocal:
			if c.Storage.LocalDir == "" {
				return fmt.Errorf("storage.local_dir must be set when the archive handler uses local")
			}
		default:
			return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
		}
	}
	return nil
}

// Enabled reports whether the named handler is configured.
func (c Config) Enabled(name string) bool {
	for _, h := range c.Handlers {
		if h == name {
			return true
		}
	}
	return false
}
