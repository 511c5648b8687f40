// Package config holds the tunables of actors and their event loops.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hedisam/goexec/internal/mailbox"
)

const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultMailboxCapacity = 100
)

type Config struct {
	// PollInterval bounds how long a loop with pending waits idles between ticks
	PollInterval time.Duration `yaml:"pollInterval"`
	// ProbeTimeout bounds a single process probe, PollInterval when zero
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
	// IdleTimeout delivers a timeout message to idle actors, zero disables it
	IdleTimeout time.Duration `yaml:"idleTimeout"`
	Mailbox     Mailbox       `yaml:"mailbox"`
	Log         Log           `yaml:"log"`
}

type Mailbox struct {
	// Kind is "ring" or "mpsc"
	Kind     string `yaml:"kind"`
	Capacity uint64 `yaml:"capacity"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		Mailbox: Mailbox{
			Kind:     mailbox.KindRing,
			Capacity: DefaultMailboxCapacity,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Parse decodes YAML on top of the defaults. Durations are strings like "250ms".
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(data)
}

func (c Config) Validate() error {
	var result *multierror.Error
	if c.PollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("invalid pollInterval: %s", c.PollInterval))
	}
	if c.ProbeTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid probeTimeout: %s", c.ProbeTimeout))
	}
	if c.IdleTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid idleTimeout: %s", c.IdleTimeout))
	}
	switch c.Mailbox.Kind {
	case mailbox.KindRing, mailbox.KindMPSC:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid mailbox kind: %q", c.Mailbox.Kind))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid log level: %w", err))
	}
	return result.ErrorOrNil()
}

// EffectiveProbeTimeout is the probe bound actually used by the reactor
func (c Config) EffectiveProbeTimeout() time.Duration {
	if c.ProbeTimeout > 0 {
		return c.ProbeTimeout
	}
	return c.PollInterval
}

// NewLogger builds a zap logger from the log section
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if c.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
