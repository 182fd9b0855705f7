// Package config loads the HCL configuration shared by the holdem binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/roomsync"
	"github.com/lox/headsup/internal/session"
)

// Environment variables that override the file.
const (
	EnvRedisAddr = "HOLDEM_REDIS_ADDR"
	EnvLogLevel  = "HOLDEM_LOG_LEVEL"
	EnvSeed      = "HOLDEM_SEED"
)

// Sync backends.
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendWebsocket = "websocket"
)

// Config is the complete configuration.
type Config struct {
	Game     *GameSettings     `hcl:"game,block"`
	Opponent *OpponentSettings `hcl:"opponent,block"`
	Sync     *SyncSettings     `hcl:"sync,block"`
	Log      *LogSettings      `hcl:"log,block"`
}

// GameSettings controls stacks, betting and pacing.
type GameSettings struct {
	StartingChips  int    `hcl:"starting_chips,optional"`
	RaiseIncrement int    `hcl:"raise_increment,optional"`
	MaxRaises      int    `hcl:"max_raises,optional"`
	NextHandDelay  string `hcl:"next_hand_delay,optional"`
	Seed           int64  `hcl:"seed,optional"`
	PlayerName     string `hcl:"player_name,optional"`
}

// OpponentSettings picks and tunes the computer opponent.
type OpponentSettings struct {
	Name     string  `hcl:"name,optional"`
	Strategy string  `hcl:"strategy,optional"`
	Fold     float64 `hcl:"fold,optional"`
	Call     float64 `hcl:"call,optional"`
	Raise    float64 `hcl:"raise,optional"`
	Samples  int     `hcl:"samples,optional"`
}

// SyncSettings chooses where shared rooms live.
type SyncSettings struct {
	Backend     string `hcl:"backend,optional"`
	RedisAddr   string `hcl:"redis_addr,optional"`
	RedisDB     int    `hcl:"redis_db,optional"`
	RedisPrefix string `hcl:"redis_prefix,optional"`
	URL         string `hcl:"url,optional"`
	Listen      string `hcl:"listen,optional"`
	MaxAttempts int    `hcl:"max_attempts,optional"`
}

// LogSettings controls the logger.
type LogSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
	// History appends every finished hand here in PHH format when set.
	History string `hcl:"history,optional"`
}

// Default returns the classic settings.
func Default() *Config {
	p := policy.DefaultConfig()
	return &Config{
		Game: &GameSettings{
			StartingChips:  1000,
			RaiseIncrement: 50,
			NextHandDelay:  "2s",
			PlayerName:     "You",
		},
		Opponent: &OpponentSettings{
			Name:     "AI",
			Strategy: "stochastic",
			Fold:     p.Fold,
			Call:     p.Call,
			Raise:    p.Raise,
			Samples:  p.Samples,
		},
		Sync: &SyncSettings{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "holdem",
			URL:         "ws://localhost:8080/ws",
			Listen:      ":8080",
			MaxAttempts: 5,
		},
		Log: &LogSettings{
			Level: "info",
			File:  "holdem.log",
		},
	}
}

// Load reads filename, falling back to defaults when it does not exist.
// Unset fields keep their defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.fillDefaults(Default())
	return &cfg, nil
}

// fillDefaults allocates missing blocks and fills unset fields from d.
func (c *Config) fillDefaults(d *Config) {
	if c.Game == nil {
		c.Game = &GameSettings{}
	}
	if c.Opponent == nil {
		c.Opponent = &OpponentSettings{}
	}
	if c.Sync == nil {
		c.Sync = &SyncSettings{}
	}
	if c.Log == nil {
		c.Log = &LogSettings{}
	}

	if c.Game.StartingChips == 0 {
		c.Game.StartingChips = d.Game.StartingChips
	}
	if c.Game.RaiseIncrement == 0 {
		c.Game.RaiseIncrement = d.Game.RaiseIncrement
	}
	if c.Game.NextHandDelay == "" {
		c.Game.NextHandDelay = d.Game.NextHandDelay
	}
	if c.Game.PlayerName == "" {
		c.Game.PlayerName = d.Game.PlayerName
	}

	if c.Opponent.Name == "" {
		c.Opponent.Name = d.Opponent.Name
	}
	if c.Opponent.Strategy == "" {
		c.Opponent.Strategy = d.Opponent.Strategy
	}
	if c.Opponent.Fold == 0 && c.Opponent.Call == 0 && c.Opponent.Raise == 0 {
		c.Opponent.Fold, c.Opponent.Call, c.Opponent.Raise = d.Opponent.Fold, d.Opponent.Call, d.Opponent.Raise
	}
	if c.Opponent.Samples == 0 {
		c.Opponent.Samples = d.Opponent.Samples
	}

	if c.Sync.Backend == "" {
		c.Sync.Backend = d.Sync.Backend
	}
	if c.Sync.RedisAddr == "" {
		c.Sync.RedisAddr = d.Sync.RedisAddr
	}
	if c.Sync.RedisPrefix == "" {
		c.Sync.RedisPrefix = d.Sync.RedisPrefix
	}
	if c.Sync.URL == "" {
		c.Sync.URL = d.Sync.URL
	}
	if c.Sync.Listen == "" {
		c.Sync.Listen = d.Sync.Listen
	}
	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = d.Sync.MaxAttempts
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies the HOLDEM_* overrides. Variables already set win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Sync.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Game.Seed = seed
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Game.StartingChips <= 0 {
		return fmt.Errorf("starting_chips must be positive, got %d", c.Game.StartingChips)
	}
	if c.Game.RaiseIncrement <= 0 {
		return fmt.Errorf("raise_increment must be positive, got %d", c.Game.RaiseIncrement)
	}
	if c.Game.MaxRaises < 0 {
		return fmt.Errorf("max_raises must not be negative, got %d", c.Game.MaxRaises)
	}
	if _, err := c.Delay(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch c.Sync.Backend {
	case BackendMemory, BackendRedis, BackendWebsocket:
	default:
		return fmt.Errorf("unknown sync backend %q", c.Sync.Backend)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.Sync.MaxAttempts)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Delay parses next_hand_delay.
func (c *Config) Delay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Game.NextHandDelay)
	if err != nil {
		return 0, fmt.Errorf("next_hand_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("next_hand_delay must not be negative, got %s", d)
	}
	return d, nil
}

// PolicyConfig returns the opponent tunables.
func (c *Config) PolicyConfig() policy.Config {
	return policy.Config{
		Fold:    c.Opponent.Fold,
		Call:    c.Opponent.Call,
		Raise:   c.Opponent.Raise,
		Samples: c.Opponent.Samples,
	}
}

// Policy builds the configured opponent.
func (c *Config) Policy() (policy.Policy, error) {
	return policy.New(strings.TrimSpace(c.Opponent.Strategy), c.PolicyConfig())
}

// Session returns the local game settings.
func (c *Config) Session() session.Config {
	delay, _ := c.Delay()
	return session.Config{
		StartingChips:  c.Game.StartingChips,
		RaiseIncrement: c.Game.RaiseIncrement,
		MaxRaises:      c.Game.MaxRaises,
		NextHandDelay:  delay,
		Seed:           c.Game.Seed,
		HumanName:      c.Game.PlayerName,
		OpponentName:   c.Opponent.Name,
	}
}

// Room returns the settings for joining room as playerID.
func (c *Config) Room(room, playerID, name string) roomsync.Config {
	delay, _ := c.Delay()
	return roomsync.Config{
		Room:           room,
		PlayerID:       playerID,
		Name:           name,
		StartingChips:  c.Game.StartingChips,
		RaiseIncrement: c.Game.RaiseIncrement,
		MaxRaises:      c.Game.MaxRaises,
		NextHandDelay:  delay,
		AutoDeal:       true,
		MaxAttempts:    c.Sync.MaxAttempts,
		Seed:           c.Game.Seed,
	}
}
