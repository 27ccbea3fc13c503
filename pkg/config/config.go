// Package config holds nestup's compiled defaults, the viper-backed run
// configuration, and the optional per-subproject .nestup.toml.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ewagner-dev/nestup/pkg/errors"
)

const (
	// DefaultMaxDepth bounds the discovery walk.
	DefaultMaxDepth = 3

	// DefaultBackendTimeout bounds every vcs/installer backend call.
	DefaultBackendTimeout = 2 * time.Minute

	// SubprojectConfigFile is the optional per-subproject configuration.
	SubprojectConfigFile = ".nestup.toml"

	// EnvPrefix is the prefix for NESTUP_* environment variables.
	EnvPrefix = "NESTUP"
)

// DefaultIgnore are directory names never considered subprojects.
func DefaultIgnore() []string {
	return []string{"venv", ".venv", "node_modules", "__pycache__", "tests", "build", "dist"}
}

// Config is the effective run configuration after merging defaults, the
// optional config file, environment variables, and flags.
type Config struct {
	RootPath      string
	EnvPath       string
	Execute       bool
	GitOnly       bool
	MaxDepth      int
	Ignore        []string
	AllowOverride bool
	LogLevel      string
	LogFile       string
	Format        string
	Timeout       time.Duration
}

// NewViper returns a viper instance with nestup defaults, environment
// binding, and an optional nestup.toml config file in the working
// directory.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("max-depth", DefaultMaxDepth)
	v.SetDefault("ignore", DefaultIgnore())
	v.SetDefault("log-level", "info")
	v.SetDefault("format", "text")
	v.SetDefault("timeout", DefaultBackendTimeout)

	v.SetConfigName("nestup")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the effective configuration out of viper. A missing config
// file is fine; a malformed one is a CONFIG_PARSE error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, errors.Wrap(err, errors.ErrConfigParse, "cannot parse config file")
		}
	}

	cfg := Config{
		RootPath:      v.GetString("root-path"),
		EnvPath:       v.GetString("env-path"),
		Execute:       v.GetBool("execute"),
		GitOnly:       v.GetBool("git-only"),
		MaxDepth:      v.GetInt("max-depth"),
		Ignore:        v.GetStringSlice("ignore"),
		AllowOverride: v.GetBool("allow-override"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
		Format:        v.GetString("format"),
		Timeout:       v.GetDuration("timeout"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration invariants the engine depends on.
func (c Config) Validate() error {
	if c.RootPath == "" {
		return errors.New(errors.ErrInvalidInput, "root path is required")
	}
	if c.EnvPath == "" && !c.GitOnly {
		return errors.New(errors.ErrInvalidInput, "environment path is required unless running git-only")
	}
	if c.MaxDepth < 1 {
		return errors.Newf(errors.ErrInvalidInput, "max depth must be at least 1, got %d", c.MaxDepth)
	}
	switch c.Format {
	case "", "text", "yaml", "junit":
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown report format %q", c.Format)
	}
	return nil
}

// AbsRoot returns the absolute root path.
func (c Config) AbsRoot() (string, error) {
	abs, err := filepath.Abs(c.RootPath)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve root path")
	}
	return abs, nil
}
