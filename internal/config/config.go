// Package config provides Viper-based configuration loading for the dice roller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DiceConfig holds parser limits and the random source selection.
type DiceConfig struct {
	// Source is the randomness provider: "crypto" or "seeded".
	Source string `mapstructure:"source"`
	// Seed initialises the seeded source. Ignored for "crypto".
	Seed int64 `mapstructure:"seed"`
	// MaxDepth bounds recursive rule application per expression.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxLength bounds expression length in bytes.
	MaxLength int `mapstructure:"max_length"`
	// MaxRolls bounds the dice drawn while evaluating one expression.
	MaxRolls int `mapstructure:"max_rolls"`
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxLine bounds one input line in bytes. 0 derives it from dice.max_length.
	MaxLine int `mapstructure:"max_line"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// HealthConfig holds the gRPC health endpoint settings.
type HealthConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Addr returns the "host:port" HTTP listen address.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// MacrosConfig holds the named-macro file settings.
type MacrosConfig struct {
	// Path is the YAML macro file. Empty disables macros.
	Path string `mapstructure:"path"`
	// Watch reloads the file when it changes on disk.
	Watch bool `mapstructure:"watch"`
	// Debounce coalesces bursts of file events into one reload.
	Debounce time.Duration `mapstructure:"debounce"`
}

// ScriptingConfig holds Lua scripting settings.
type ScriptingConfig struct {
	// ScriptDir is searched for relative script paths.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit bounds the Lua VM instructions per call. 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dice      DiceConfig      `mapstructure:"dice"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	Health    HealthConfig    `mapstructure:"health"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Macros    MacrosConfig    `mapstructure:"macros"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateDice(c.Dice),
		validateTelnet(c.Telnet),
		validateHealth(c.Health),
		validateMetrics(c.Metrics),
		validateMacros(c.Macros),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	validSources := map[string]bool{"crypto": true, "seeded": true}
	if !validSources[d.Source] {
		errs = append(errs, fmt.Sprintf("dice.source must be one of [crypto, seeded], got %q", d.Source))
	}
	if d.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_depth must be >= 1, got %d", d.MaxDepth))
	}
	if d.MaxLength < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_length must be >= 1, got %d", d.MaxLength))
	}
	if d.MaxRolls < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_rolls must be >= 1, got %d", d.MaxRolls))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if !validPort(t.Port) {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.MaxLine < 0 {
		errs = append(errs, fmt.Sprintf("telnet.max_line must be >= 0, got %d", t.MaxLine))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	var errs []string
	if h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	if !validPort(h.GRPCPort) {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 1-65535, got %d", h.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMetrics(m MetricsConfig) error {
	if !m.Enabled {
		return nil
	}
	var errs []string
	if !validPort(m.Port) {
		errs = append(errs, fmt.Sprintf("metrics.port must be 1-65535, got %d", m.Port))
	}
	if !strings.HasPrefix(m.Path, "/") {
		errs = append(errs, fmt.Sprintf("metrics.path must start with '/', got %q", m.Path))
	}
	if m.Namespace == "" {
		errs = append(errs, "metrics.namespace must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMacros(m MacrosConfig) error {
	if m.Watch && m.Path == "" {
		return errors.New("macros.watch requires macros.path")
	}
	if m.Debounce < 0 {
		return errors.New("macros.debounce must not be negative")
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("dice.source", "crypto")
	v.SetDefault("dice.seed", 0)
	v.SetDefault("dice.max_depth", 64)
	v.SetDefault("dice.max_length", 1024)
	v.SetDefault("dice.max_rolls", 100000)

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "5m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_line", 0)

	v.SetDefault("health.grpc_host", "127.0.0.1")
	v.SetDefault("health.grpc_port", 50051)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "diceroll")

	v.SetDefault("macros.path", "")
	v.SetDefault("macros.watch", false)
	v.SetDefault("macros.debounce", "250ms")

	v.SetDefault("scripting.script_dir", "")
	v.SetDefault("scripting.instruction_limit", 100000)
}
