// Package config loads process-wide configuration for the battle server.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Room     RoomConfig     `yaml:"room"`
	Balance  BalanceConfig  `yaml:"balance"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig controls the HTTP/websocket bind address.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// RoomConfig carries the room-lifecycle constants: tick cadence, countdown
// length, lane geometry, and deck size limit.
type RoomConfig struct {
	TickInterval     time.Duration `yaml:"tick_interval"`
	CountdownSeconds int           `yaml:"countdown_seconds"`
	StageLength      float64       `yaml:"stage_length"`
	MaxDeckSize      int           `yaml:"max_deck_size"`
	Player1CastleX   float64       `yaml:"player1_castle_x"`
	Player2CastleX   float64       `yaml:"player2_castle_x"`
}

// BalanceConfig centralizes combat/resource tuning values for easy operator
// tuning without a rebuild.
type BalanceConfig struct {
	Resource ResourceBalance `yaml:"resource"`
	Combat   CombatBalance   `yaml:"combat"`
}

// ResourceBalance holds the cost-level tables, indexed by costLevel-1.
type ResourceBalance struct {
	InitialCost     int   `yaml:"initial_cost"`
	MaxLevels       []int `yaml:"max_levels"`
	UpgradeCosts    []int `yaml:"upgrade_costs"`
	RegenPerSecond  []int `yaml:"regen_per_second"`
	InitialCastleHP int   `yaml:"initial_castle_hp"`
}

// CombatBalance holds the fixed combat geometry/timing constants.
// DefaultUnitWidth is not read by the simulator: a unit's width always
// comes from its catalog entry (60 × scale).
type CombatBalance struct {
	DefaultUnitWidth      float64 `yaml:"default_unit_width"`
	MinSameSideGap        float64 `yaml:"min_same_side_gap"`
	SpawnToWalkMs         int     `yaml:"spawn_to_walk_ms"`
	HitstunMs             int     `yaml:"hitstun_ms"`
	DeathLingerMs         int     `yaml:"death_linger_ms"`
	KnockbackThresholdPct float64 `yaml:"knockback_threshold_pct"`
	TargetingRangePadding float64 `yaml:"targeting_range_padding"`
	SpawnInsetFromCastle  float64 `yaml:"spawn_inset_from_castle"`
}

// DatabaseConfig holds connection strings for the optional persistence
// adapters. Empty strings mean "run without that backend".
type DatabaseConfig struct {
	PostgresURL string `yaml:"postgres_url"`
	RedisURL    string `yaml:"redis_url"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the process configuration with built-in constants.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: defaultPort(),
			Host: "0.0.0.0",
		},
		Room: RoomConfig{
			TickInterval:     50 * time.Millisecond,
			CountdownSeconds: 3,
			StageLength:      1200,
			MaxDeckSize:      7,
			Player1CastleX:   80,
			Player2CastleX:   1120,
		},
		Balance:  DefaultBalanceConfig(),
		Database: DatabaseConfig{},
	}
}

// defaultPort reads PORT from the environment, defaulting to 2567.
func defaultPort() int {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			return p
		}
	}
	return 2567
}

// DefaultBalanceConfig returns the built-in resource/combat tuning tables.
func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{
		Resource: ResourceBalance{
			InitialCost:     200,
			MaxLevels:       []int{1000, 2500, 4500, 7000, 10000, 15000, 25000, 99999},
			UpgradeCosts:    []int{500, 1200, 2500, 4500, 8000, 12000, 20000},
			RegenPerSecond:  []int{100, 150, 250, 400, 600, 900, 1500, 2500},
			InitialCastleHP: 5000,
		},
		Combat: CombatBalance{
			DefaultUnitWidth:      60,
			MinSameSideGap:        30,
			SpawnToWalkMs:         300,
			HitstunMs:             200,
			DeathLingerMs:         500,
			KnockbackThresholdPct: 0.15,
			TargetingRangePadding: 20,
			SpawnInsetFromCastle:  50,
		},
	}
}
