package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Session   SessionConfig   `toml:"session"`
	Render    ConsumerConfig  `toml:"render"`
	Main      MainConfig      `toml:"main"`
	Scripting ScriptingConfig `toml:"scripting"`
	Schema    SchemaConfig    `toml:"schema"`
	Stats     StatsConfig     `toml:"stats"`
	Logging   LoggingConfig   `toml:"logging"`
	Profile   ProfileConfig   `toml:"profile"`
}

type SessionConfig struct {
	Name         string        `toml:"name"`
	MaxEntities  int           `toml:"max_entities"`
	TickRate     time.Duration `toml:"tick_rate"`
	MaxTicks     uint32        `toml:"max_ticks"`     // 0 = run until cancelled
	DrainTimeout time.Duration `toml:"drain_timeout"` // final release wait at shutdown
}

// ConsumerConfig paces a consumer thread. AckDelay holds each acknowledgement
// back by that many frames, standing in for a thread that lags the simulation.
type ConsumerConfig struct {
	FrameInterval time.Duration `toml:"frame_interval"`
	AckDelay      int           `toml:"ack_delay"`
}

type MainConfig struct {
	ConsumerConfig
	ReportEvery int `toml:"report_every"` // frames between stats reports
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type SchemaConfig struct {
	Path string `toml:"path"`
}

type StatsConfig struct {
	DSN             string        `toml:"dsn"` // empty disables persistence
	BatchSize       int           `toml:"batch_size"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Path string `toml:"path"`
}

var ErrInvalid = errors.New("invalid config")

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Session.MaxEntities <= 0:
		return fmt.Errorf("%w: session.max_entities must be positive", ErrInvalid)
	case c.Session.TickRate <= 0:
		return fmt.Errorf("%w: session.tick_rate must be positive", ErrInvalid)
	case c.Render.FrameInterval <= 0 || c.Main.FrameInterval <= 0:
		return fmt.Errorf("%w: frame_interval must be positive", ErrInvalid)
	case c.Render.AckDelay < 0 || c.Main.AckDelay < 0:
		return fmt.Errorf("%w: ack_delay must not be negative", ErrInvalid)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("%w: unknown profile mode %q", ErrInvalid, c.Profile.Mode)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Session: SessionConfig{
			Name:         "simcore",
			MaxEntities:  10000,
			TickRate:     1000 * time.Millisecond / 60,
			DrainTimeout: 2 * time.Second,
		},
		Render: ConsumerConfig{
			FrameInterval: 1000 * time.Millisecond / 60,
			AckDelay:      1,
		},
		Main: MainConfig{
			ConsumerConfig: ConsumerConfig{
				FrameInterval: 1000 * time.Millisecond / 30,
				AckDelay:      0,
			},
			ReportEvery: 60,
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Schema: SchemaConfig{
			Path: "data/components.yaml",
		},
		Stats: StatsConfig{
			BatchSize:       64,
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
