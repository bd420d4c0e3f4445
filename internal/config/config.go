package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file location.
const EnvPath = "STELLAR_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/server.toml"

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Rules      RulesConfig      `toml:"rules"`
	Database   DatabaseConfig   `toml:"database"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Scripting  ScriptingConfig  `toml:"scripting"`
	Game       GameConfig       `toml:"game"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type SimulationConfig struct {
	Tick                  time.Duration `toml:"tick"` // one simulation step
	MaxTicksPerAdvance    int           `toml:"max_ticks_per_advance"`
	MaxDispatchIterations int           `toml:"max_dispatch_iterations"`
	SystemBudget          time.Duration `toml:"system_budget"` // per handler call; 0 disables
	MinSpeed              float64       `toml:"min_speed"`
	MaxSpeed              float64       `toml:"max_speed"`
	HistoryLimit          int           `toml:"history_limit"`
	CommandRate           float64       `toml:"command_rate"` // per faction per simulated second; 0 disables
	CommandBurst          int           `toml:"command_burst"`
	DigestEvery           uint64        `toml:"digest_every"` // ticks between digest log lines; 0 disables
}

type RulesConfig struct {
	Path string `toml:"path"` // YAML tuning tables; empty uses built-in defaults
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres" or "sqlite"; empty disables saving
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	Timeout         time.Duration `toml:"timeout"`
}

type GatewayConfig struct {
	Enabled         bool          `toml:"enabled"`
	BindAddress     string        `toml:"bind_address"`
	Path            string        `toml:"path"`
	InQueueSize     int           `toml:"in_queue_size"`
	OutQueueSize    int           `toml:"out_queue_size"`
	MaxCommandsTick int           `toml:"max_commands_per_tick"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	MessageRate     float64       `toml:"message_rate"` // per session per wall second; 0 disables
	MessageBurst    int           `toml:"message_burst"`
	TokenHash       string        `toml:"token_hash"` // bcrypt hash; empty allows anonymous observers only
}

type ScriptingConfig struct {
	Dir             string `toml:"dir"`
	AIIntervalTicks uint64 `toml:"ai_interval_ticks"`
}

type GameConfig struct {
	Seed          uint64 `toml:"seed"`
	PlanetCount   int    `toml:"planet_count"`
	AIOpponents   int    `toml:"ai_opponents"`
	PlayerName    string `toml:"player_name"`
	AutosaveTicks uint64 `toml:"autosave_ticks"` // 0 disables
	SaveSlot      string `toml:"save_slot"`
	LoadOnBoot    bool   `toml:"load_on_boot"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path resolves the config file location from the environment.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	s := c.Simulation
	switch {
	case s.Tick <= 0:
		return fmt.Errorf("simulation.tick must be positive")
	case s.MaxTicksPerAdvance < 1:
		return fmt.Errorf("simulation.max_ticks_per_advance must be at least 1")
	case s.MinSpeed < 0 || s.MaxSpeed < s.MinSpeed:
		return fmt.Errorf("simulation speed range [%g, %g] is invalid", s.MinSpeed, s.MaxSpeed)
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Gateway.MessageRate < 0 {
		return fmt.Errorf("gateway.message_rate must not be negative")
	}
	if c.Game.PlanetCount < c.Game.AIOpponents+1 {
		return fmt.Errorf("game.planet_count %d cannot seat %d factions", c.Game.PlanetCount, c.Game.AIOpponents+1)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "Stellar Dominion",
		},
		Simulation: SimulationConfig{
			Tick:                  100 * time.Millisecond,
			MaxTicksPerAdvance:    10,
			MaxDispatchIterations: 10000,
			SystemBudget:          2 * time.Millisecond,
			MinSpeed:              0,
			MaxSpeed:              10,
			HistoryLimit:          100,
			CommandRate:           20,
			CommandBurst:          40,
			DigestEvery:           600,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:stellar.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			Timeout:         5 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled:         true,
			BindAddress:     "0.0.0.0:7070",
			Path:            "/ws",
			InQueueSize:     256,
			OutQueueSize:    256,
			MaxCommandsTick: 64,
			WriteTimeout:    10 * time.Second,
			ReadTimeout:     60 * time.Second,
			MessageRate:     50,
			MessageBurst:    100,
		},
		Scripting: ScriptingConfig{
			Dir:             "scripts",
			AIIntervalTicks: 10,
		},
		Game: GameConfig{
			Seed:          1,
			PlanetCount:   12,
			AIOpponents:   3,
			PlayerName:    "Terran Union",
			AutosaveTicks: 3000,
			SaveSlot:      "autosave",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
