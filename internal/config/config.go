// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package config loads the TaskVault process configuration.
//
// Sources, lowest precedence first: flag defaults, an optional YAML file,
// a .env file, the process environment, and flags set on the command line.
// Keys are the lowercased environment variable names, so DATABASE_URL,
// database_url in YAML and --database-url all address the same value.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values for configuration keys.
const (
	DefaultJWTAlgorithm           = "HS256"
	DefaultAccessTokenExpireHours = 24
	DefaultCORSOrigins            = "http://localhost:3000"
	DefaultHTTPAddr               = ":8000"
	DefaultMetricsAddr            = "127.0.0.1:9100"
	DefaultLogFormat              = "json"
	DefaultEnvFile                = ".env"
)

// Config is the immutable process configuration, built once at startup and
// passed to the components that need it.
type Config struct {
	DatabaseURL            string `koanf:"database_url" jsonschema_description:"PostgreSQL connection string"`
	AuthSecret             string `koanf:"auth_secret" jsonschema_description:"HMAC secret used to sign access tokens"`
	JWTAlgorithm           string `koanf:"jwt_algorithm" jsonschema:"enum=HS256,enum=HS384,enum=HS512"`
	AccessTokenExpireHours int    `koanf:"access_token_expire_hours" jsonschema:"minimum=1"`
	CORSOrigins            string `koanf:"cors_origins" jsonschema_description:"Comma-separated allowed origins; glob patterns allowed"`
	Debug                  bool   `koanf:"debug"`
	HTTPAddr               string `koanf:"http_addr"`
	MetricsAddr            string `koanf:"metrics_addr" jsonschema_description:"Metrics and health address; empty disables"`
	LogFormat              string `koanf:"log_format" jsonschema:"enum=json,enum=text"`
}

// knownKeys are the keys accepted from the environment.
var knownKeys = map[string]bool{
	"database_url":              true,
	"auth_secret":               true,
	"jwt_algorithm":             true,
	"access_token_expire_hours": true,
	"cors_origins":              true,
	"debug":                     true,
	"http_addr":                 true,
	"metrics_addr":              true,
	"log_format":                true,
}

// RegisterFlags defines the configuration flags on fs. Their defaults are
// the lowest-precedence source. The signing secret has no flag so it never
// shows up in a process listing.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.String("jwt-algorithm", DefaultJWTAlgorithm, "token signing algorithm (HS256, HS384 or HS512)")
	fs.Int("access-token-expire-hours", DefaultAccessTokenExpireHours, "access token lifetime in hours")
	fs.String("cors-origins", DefaultCORSOrigins, "comma-separated allowed CORS origins; glob patterns allowed")
	fs.Bool("debug", false, "enable debug logging")
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
}

// Sources names the files Load reads in addition to the environment.
type Sources struct {
	// ConfigFile is an optional YAML file; empty skips it.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment when it
	// exists. Variables already set in the environment win.
	EnvFile string
}

// Load assembles a Config from every source and validates it.
func Load(flags *pflag.FlagSet, src Sources) (*Config, error) {
	cfg, err := Read(flags, src)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read assembles a Config from every source without validating it, for
// commands that need only part of the configuration.
func Read(flags *pflag.FlagSet, src Sources) (*Config, error) {
	k := koanf.New(".")

	if src.ConfigFile != "" {
		data, err := os.ReadFile(src.ConfigFile)
		if err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", src.ConfigFile).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", src.ConfigFile).Wrap(err)
		}
		if err := k.Load(file.Provider(src.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", src.ConfigFile).Wrap(err)
		}
	}

	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_ENV_FILE_INVALID").With("path", src.EnvFile).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue("", ".", legacyEnvKey(k)), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	// Unchanged flags only fill keys no other source set; changed flags win.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return cfg, nil
}

// envKey maps DATABASE_URL to database_url and drops unrelated variables.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(key)
	if !knownKeys[key] {
		return "", nil
	}
	return key, strings.TrimSpace(value)
}

// legacyEnvKeys are older variable names still honoured for deployments
// that predate the current ones.
var legacyEnvKeys = map[string]string{
	"better_auth_secret": "auth_secret",
}

// legacyEnvKey fills a key from its legacy variable only when no file or
// current variable set it.
func legacyEnvKey(k *koanf.Koanf) func(key, value string) (string, any) {
	return func(key, value string) (string, any) {
		target, ok := legacyEnvKeys[strings.ToLower(key)]
		if !ok || k.String(target) != "" {
			return "", nil
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		return target, value
	}
}

// flagKey maps --database-url to database_url. Flags that are not
// configuration keys (--config, --skip-migrate) are skipped.
func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !knownKeys[key] {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// ValidateDatabase checks only what the migrate commands need.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return invalid("database_url", "DATABASE_URL is required")
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.AuthSecret == "" {
		return invalid("auth_secret", "AUTH_SECRET (or BETTER_AUTH_SECRET) is required")
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return invalid("jwt_algorithm", "JWT_ALGORITHM must be HS256, HS384 or HS512, got %q", c.JWTAlgorithm)
	}
	if c.AccessTokenExpireHours <= 0 {
		return invalid("access_token_expire_hours", "ACCESS_TOKEN_EXPIRE_HOURS must be positive, got %d", c.AccessTokenExpireHours)
	}
	if len(c.AllowedOrigins()) == 0 {
		return invalid("cors_origins", "CORS_ORIGINS must list at least one origin")
	}
	if c.HTTPAddr == "" {
		return invalid("http_addr", "HTTP_ADDR is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "LOG_FORMAT must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}

// TokenTTL returns the access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireHours) * time.Hour
}

// AllowedOrigins splits CORSOrigins on commas, trimming blanks.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
