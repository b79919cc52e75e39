// Package config provides Viper-based configuration loading for the combat
// service.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is "standalone" (in-process per-character locks) or
	// "distributed" (Redis per-character locks).
	Mode string `mapstructure:"mode"`
	// ShutdownTimeout bounds graceful shutdown of every service.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the per-character lock store settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// LockTTL is how long a character lock survives a crashed holder.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// LockRetry is the pause between acquisition attempts.
	LockRetry time.Duration `mapstructure:"lock_retry"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds the gRPC combat service settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// APIKeyHash is the bcrypt hash clients' x-api-key must match. Empty
	// disables authentication.
	APIKeyHash string `mapstructure:"api_key_hash"`
	// RequestTimeout bounds one RPC including lock waits.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Addr returns the "host:port" gRPC address.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// RulesConfig holds content locations and engine calibration.
type RulesConfig struct {
	ContentDir string `mapstructure:"content_dir"`
	TierMin    int    `mapstructure:"tier_min"`
	TierMax    int    `mapstructure:"tier_max"`
	// Neutral is the LiveStats value pruned after aggregation.
	Neutral int `mapstructure:"neutral"`
	// ScriptInstructionLimit caps Lua opcodes per formula evaluation.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// TierTable returns the configured tier table.
func (r RulesConfig) TierTable() stats.TierTable {
	return stats.TierTable{MinValue: r.TierMin, MaxValue: r.TierMax}
}

// EffectsDir returns the effect content directory.
func (r RulesConfig) EffectsDir() string { return filepath.Join(r.ContentDir, "effects") }

// AbilitiesDir returns the ability content directory.
func (r RulesConfig) AbilitiesDir() string { return filepath.Join(r.ContentDir, "abilities") }

// TracingConfig holds OpenTelemetry export settings. An empty Endpoint
// disables export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateDatabase(c.Database),
		validateRedis(c.Server, c.Redis),
		validateLogging(c.Logging),
		validateGameServer(c.GameServer),
		validateRules(c.Rules),
		validateTracing(c.Tracing),
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

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "distributed": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, distributed], got %q", s.Mode)
	}
	if s.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(s ServerConfig, r RedisConfig) error {
	if s.Mode != "distributed" {
		return nil
	}
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty in distributed mode")
	}
	if r.LockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("redis.lock_ttl must be positive, got %s", r.LockTTL))
	}
	if r.LockRetry <= 0 {
		errs = append(errs, fmt.Sprintf("redis.lock_retry must be positive, got %s", r.LockRetry))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.RequestTimeout < 0 {
		errs = append(errs, "gameserver.request_timeout must not be negative")
	}
	if g.APIKeyHash != "" && !strings.HasPrefix(g.APIKeyHash, "$2") {
		errs = append(errs, "gameserver.api_key_hash must be a bcrypt hash")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	if r.ContentDir == "" {
		errs = append(errs, "rules.content_dir must not be empty")
	}
	if r.TierMin > r.TierMax {
		errs = append(errs, fmt.Sprintf("rules.tier_min (%d) must not exceed rules.tier_max (%d)", r.TierMin, r.TierMax))
	}
	if r.ScriptInstructionLimit < 0 {
		errs = append(errs, "rules.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTracing(t TracingConfig) error {
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1], got %v", t.SampleRatio)
	}
	if t.Endpoint != "" && t.ServiceName == "" {
		return errors.New("tracing.service_name must not be empty when tracing.endpoint is set")
	}
	return nil
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

// Load reads configuration from path, applies RPC_-prefixed environment
// overrides, and validates the result. An empty path loads defaults and
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and environment
// overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
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
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rpcombat")
	v.SetDefault("database.password", "rpcombat")
	v.SetDefault("database.name", "rpcombat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10s")
	v.SetDefault("redis.lock_retry", "25ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.api_key_hash", "")
	v.SetDefault("gameserver.request_timeout", "5s")

	v.SetDefault("rules.content_dir", "content")
	v.SetDefault("rules.tier_min", stats.DefaultTierMin)
	v.SetDefault("rules.tier_max", stats.DefaultTierMax)
	v.SetDefault("rules.neutral", 0)
	v.SetDefault("rules.script_instruction_limit", 10_000)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "rpcombat")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)
}
