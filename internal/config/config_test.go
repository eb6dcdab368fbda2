package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
)

func TestLoad_Example(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load(config.example.yaml): %v", err)
	}

	wantAuction := config.AuctionConfig{
		TeamKey:          "lions",
		TotalPoints:      1000,
		PlayersNeeded:    11,
		MinBasePerPlayer: 50,
		CategoryBases:    map[int]int{1: 100, 2: 80, 3: 60, 4: 50, 5: 50},
	}
	if !reflect.DeepEqual(cfg.Auction, wantAuction) {
		t.Errorf("auction = %+v, want %+v", cfg.Auction, wantAuction)
	}
	if cfg.Discord.Enabled() || cfg.Telemetry.Enabled() || cfg.LeaderElection.Enabled {
		t.Errorf("example enables optional surfaces: discord=%v telemetry=%v leader=%v",
			cfg.Discord.Enabled(), cfg.Telemetry.Enabled(), cfg.LeaderElection.Enabled)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second || cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.Server.ShutdownTimeout, cfg.Remote.Timeout)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "overrides",
			yaml: `
discord: {token: test-token, guild_id: "123456"}
database: {host: db.example.com, port: 5433, dbname: auction, sslmode: require}
server: {port: 9090}
telemetry: {service_name: my-bot, otlp_endpoint: "localhost:4318"}
auction:
  team_key: tigers
  total_points: 1200
  players_needed: 14
  min_base_per_player: 40
  category_bases: {1: 120, 5: 40}
remote: {base_url: "https://settings.example.com/api"}
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Discord.Token != "test-token" || !cfg.Discord.Enabled() {
					t.Errorf("discord = %+v", cfg.Discord)
				}
				if got := cfg.Database.DSN(); got != "host=db.example.com port=5433 user= password= dbname=auction sslmode=require" {
					t.Errorf("DSN = %q", got)
				}
				if cfg.Server.Port != 9090 || !cfg.Telemetry.Enabled() {
					t.Errorf("server port %d, telemetry %+v", cfg.Server.Port, cfg.Telemetry)
				}
				want := config.AuctionConfig{
					TeamKey: "tigers", TotalPoints: 1200, PlayersNeeded: 14, MinBasePerPlayer: 40,
					CategoryBases: map[int]int{1: 120, 5: 40},
				}
				if !reflect.DeepEqual(cfg.Auction, want) {
					t.Errorf("auction = %+v, want %+v", cfg.Auction, want)
				}
			},
		},
		{
			name: "empty document keeps defaults",
			yaml: ``,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				want := config.Defaults()
				if !reflect.DeepEqual(cfg, want) {
					t.Errorf("got %+v, want defaults %+v", cfg, want)
				}
				if cfg.Database.Driver != "sqlx" || !cfg.Database.AutoMigrate {
					t.Errorf("database defaults = %+v", cfg.Database)
				}
			},
		},
		{
			name: "redis driver keeps default prefix",
			yaml: `
database:
  driver: redis
  redis: {addr: "cache:6379"}
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Redis != (config.RedisConfig{Addr: "cache:6379", KeyPrefix: "auctionbot:"}) {
					t.Errorf("redis = %+v", cfg.Database.Redis)
				}
			},
		},
		{
			name: "memory driver and bot options",
			yaml: `
discord: {token: tok, keep_commands: true}
database: {driver: memory}
telemetry: {log_level: debug}
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "memory" || !cfg.Discord.KeepCommands {
					t.Errorf("driver %q, keep_commands %v", cfg.Database.Driver, cfg.Discord.KeepCommands)
				}
				if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.Enabled() {
					t.Errorf("telemetry = %+v", cfg.Telemetry)
				}
			},
		},
		{name: "ent driver", yaml: "database: {driver: ent}"},
		{name: "invalid yaml", yaml: `{{{invalid`, wantErr: "parsing config file"},
		{name: "unknown driver", yaml: "database: {driver: mongodb}", wantErr: `unsupported database driver "mongodb"`},
		{name: "redis without address", yaml: "database: {driver: redis, redis: {addr: \"\"}}", wantErr: "requires database.redis.addr"},
		{name: "empty team key", yaml: "auction: {team_key: \"\"}", wantErr: "team_key"},
		{name: "non-positive purse", yaml: "auction: {total_points: 0}", wantErr: "total_points"},
		{name: "no slots", yaml: "auction: {players_needed: -1}", wantErr: "players_needed"},
		{name: "negative min base", yaml: "auction: {min_base_per_player: -5}", wantErr: "min_base_per_player"},
		{name: "bad category", yaml: "auction: {category_bases: {9: 10}}", wantErr: "category_bases"},
		{name: "relative remote url", yaml: "remote: {base_url: /settings}", wantErr: "remote.base_url"},
		{name: "roster url without scheme", yaml: "auction: {roster_url: example.com/roster.csv}", wantErr: "auction.roster_url"},
		{name: "unknown log level", yaml: "telemetry: {log_level: chatty}", wantErr: "log_level"},
	}

	noEnv := func(string) (string, bool) { return "", false }
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.yaml), noEnv)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"AUCTIONBOT_DISCORD_TOKEN":     "from-env",
		"AUCTIONBOT_DATABASE_PASSWORD": "s3cret",
		"AUCTIONBOT_DATABASE_PORT":     "6543",
		"AUCTIONBOT_TEAM_KEY":          "tigers",
		"AUCTIONBOT_LOG_LEVEL":         "error",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := config.Parse([]byte("discord:\n  token: from-file\n"), lookup)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Errorf("got token %q, want env value", cfg.Discord.Token)
	}
	if cfg.Database.Password != "s3cret" || cfg.Database.Port != 6543 {
		t.Errorf("got database %+v", cfg.Database)
	}
	if cfg.Auction.TeamKey != "tigers" {
		t.Errorf("got team key %q, want %q", cfg.Auction.TeamKey, "tigers")
	}
	if cfg.Telemetry.LogLevel != "error" {
		t.Errorf("got log level %q, want %q", cfg.Telemetry.LogLevel, "error")
	}

	env["AUCTIONBOT_DATABASE_PORT"] = "not-a-port"
	if _, err := config.Parse(nil, lookup); err == nil {
		t.Error("expected error for non-numeric port override")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUCTIONBOT_TEST_LOADENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("AUCTIONBOT_TEST_LOADENV") })

	if err := config.LoadEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("AUCTIONBOT_TEST_LOADENV"); got != "loaded" {
		t.Errorf("got %q, want %q", got, "loaded")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
