// Package config loads run configuration from defaults, an optional config
// file, CLEARING_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xraph/clearing"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "CLEARING"

// Config holds the run configuration.
type Config struct {
	// Input is the CSV file to replay. "-" reads stdin.
	Input string `json:"input" mapstructure:"input" yaml:"input" validate:"required"`

	// Output is where the snapshot is written. "-" or empty means stdout.
	Output string `json:"output" mapstructure:"output" yaml:"output"`

	Log     LogConfig     `json:"log" mapstructure:"log" yaml:"log"`
	History HistoryConfig `json:"history" mapstructure:"history" yaml:"history"`
	Engine  EngineConfig  `json:"engine" mapstructure:"engine" yaml:"engine"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics" yaml:"metrics"`
	Audit   AuditConfig   `json:"audit" mapstructure:"audit" yaml:"audit"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Production bool   `json:"production" mapstructure:"production" yaml:"production"`
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	// Backend is one of memory, bolt, sqlite or mongo (default: memory).
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend" validate:"oneof=memory bolt sqlite mongo"`

	// DSN is a file path for bolt and sqlite, a connection URI for mongo.
	// With more than one partition, file backends get a ".partN" suffix.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn" validate:"required_unless=Backend memory"`

	// MongoDatabase is the database name for the mongo backend.
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	// LockPolicy is "reject" or "allow" (default: reject).
	LockPolicy string `json:"lock_policy" mapstructure:"lock_policy" yaml:"lock_policy" validate:"oneof=reject allow"`

	// Partitions is the number of engines run side by side (default: 1).
	Partitions int `json:"partitions" mapstructure:"partitions" yaml:"partitions" validate:"min=1,max=256"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	// StrictInput fails the run on the first malformed row instead of
	// skipping it.
	StrictInput bool `json:"strict_input" mapstructure:"strict_input" yaml:"strict_input"`
}

// MetricsConfig controls the Prometheus metrics plugin.
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`

	// File, when set, receives the metrics in Prometheus text format at
	// the end of the run.
	File string `json:"file" mapstructure:"file" yaml:"file"`
}

// AuditConfig controls the audit trail plugin.
type AuditConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Output: "-",
		Log: LogConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Backend:       "memory",
			MongoDatabase: "clearing",
		},
		Engine: EngineConfig{
			LockPolicy:  "reject",
			Partitions:  1,
			HookTimeout: 5 * time.Second,
		},
	}
}

// LockPolicy parses Engine.LockPolicy.
func (c Config) LockPolicy() (clearing.LockPolicy, error) {
	return clearing.ParseLockPolicy(c.Engine.LockPolicy)
}

// Validate checks field constraints.
func (c Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := v.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var multi clearing.MultiError
	for _, fe := range verrs {
		multi.Add(clearing.ValidationError{
			Field:   strings.ToLower(fe.Namespace()),
			Message: fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return multi
}

// Load resolves the configuration. configFile may be empty. flags may be
// nil; otherwise every flag whose name matches a key overrides it.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.production", d.Log.Production)
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.dsn", d.History.DSN)
	v.SetDefault("history.mongo_database", d.History.MongoDatabase)
	v.SetDefault("engine.lock_policy", d.Engine.LockPolicy)
	v.SetDefault("engine.partitions", d.Engine.Partitions)
	v.SetDefault("engine.hook_timeout", d.Engine.HookTimeout)
	v.SetDefault("engine.strict_input", d.Engine.StrictInput)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.file", d.Metrics.File)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
}
