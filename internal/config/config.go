package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUCTIONBOT_"

// Config represents the application configuration.
type Config struct {
	Discord        DiscordConfig        `yaml:"discord"`
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
	Auction        AuctionConfig        `yaml:"auction"`
	Remote         RemoteConfig         `yaml:"remote"`
}

// DiscordConfig holds Discord bot settings. An empty token disables the bot.
type DiscordConfig struct {
	Token        string `yaml:"token"`
	GuildID      string `yaml:"guild_id"`
	KeepCommands bool   `yaml:"keep_commands"` // leave slash commands registered on shutdown
}

// Enabled reports whether a bot token is configured.
func (d DiscordConfig) Enabled() bool { return d.Token != "" }

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	Host        string      `yaml:"host"`
	Port        int         `yaml:"port"`
	User        string      `yaml:"user"`
	Password    string      `yaml:"password"`
	DBName      string      `yaml:"dbname"`
	SSLMode     string      `yaml:"sslmode"`
	Driver      string      `yaml:"driver"` // "sqlx", "ent", "redis" or "memory"
	AutoMigrate bool        `yaml:"auto_migrate"`
	Redis       RedisConfig `yaml:"redis"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds settings for the redis store driver.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
	LogLevel       string `yaml:"log_level"` // debug, info, warn or error
}

// Enabled reports whether telemetry is exported over OTLP.
func (t TelemetryConfig) Enabled() bool { return t.OTLPEndpoint != "" }

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// AuctionConfig holds the session defaults used until a snapshot or the
// remote settings say otherwise.
type AuctionConfig struct {
	TeamKey          string      `yaml:"team_key"`
	TotalPoints      int         `yaml:"total_points"`
	PlayersNeeded    int         `yaml:"players_needed"`
	MinBasePerPlayer int         `yaml:"min_base_per_player"`
	CategoryBases    map[int]int `yaml:"category_bases"`
	RulesFile        string      `yaml:"rules_file"`
	RosterFile       string      `yaml:"roster_file"`
	RosterURL        string      `yaml:"roster_url"`
}

// RemoteConfig points at the team settings backend. An empty BaseURL
// disables remote settings.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped and variables already set win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a YAML configuration file from the given path and applies
// AUCTIONBOT_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML over the defaults, then applies overrides from lookup.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration used for every unset field.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			SSLMode:     "disable",
			Driver:      "sqlx",
			AutoMigrate: true,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "auctionbot:",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctionbot",
			ServiceVersion: "0.1.0",
			LogLevel:       "info",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctionbot-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
		Auction: AuctionConfig{
			TeamKey:          "default",
			TotalPoints:      1000,
			PlayersNeeded:    11,
			MinBasePerPlayer: 50,
		},
		Remote: RemoteConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// applyEnv overlays secrets and deployment knobs from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DISCORD_TOKEN":     &c.Discord.Token,
		"DISCORD_GUILD_ID":  &c.Discord.GuildID,
		"DATABASE_DRIVER":   &c.Database.Driver,
		"DATABASE_HOST":     &c.Database.Host,
		"DATABASE_PASSWORD": &c.Database.Password,
		"REDIS_ADDR":        &c.Database.Redis.Addr,
		"REDIS_PASSWORD":    &c.Database.Redis.Password,
		"TEAM_KEY":          &c.Auction.TeamKey,
		"REMOTE_URL":        &c.Remote.BaseURL,
		"OTLP_ENDPOINT":     &c.Telemetry.OTLPEndpoint,
		"LOG_LEVEL":         &c.Telemetry.LogLevel,
	}
	for name, dst := range str {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "DATABASE_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDATABASE_PORT=%q: %w", EnvPrefix, v, err)
		}
		c.Database.Port = port
	}
	return nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlx", "ent", "memory":
		// valid
	case "redis":
		if c.Database.Redis.Addr == "" {
			return errors.New("redis driver requires database.redis.addr")
		}
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"sqlx\", \"ent\", \"redis\" or \"memory\"", c.Database.Driver)
	}

	if c.Telemetry.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Telemetry.LogLevel)); err != nil {
			return fmt.Errorf("telemetry.log_level: %w", err)
		}
	}

	a := c.Auction
	switch {
	case a.TeamKey == "":
		return errors.New("auction.team_key must not be empty")
	case a.TotalPoints <= 0:
		return fmt.Errorf("auction.total_points must be positive, got %d", a.TotalPoints)
	case a.PlayersNeeded <= 0:
		return fmt.Errorf("auction.players_needed must be positive, got %d", a.PlayersNeeded)
	case a.MinBasePerPlayer < 0:
		return fmt.Errorf("auction.min_base_per_player must not be negative, got %d", a.MinBasePerPlayer)
	}
	for cat, base := range a.CategoryBases {
		if cat < 1 || cat > 5 || base < 0 {
			return fmt.Errorf("auction.category_bases: invalid entry %d: %d", cat, base)
		}
	}

	for field, raw := range map[string]string{"remote.base_url": c.Remote.BaseURL, "auction.roster_url": a.RosterURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
		}
	}
	return nil
}
