// Command auctionbot runs the auction assistant: one team's session behind
// Discord slash commands, an HTTP API and a live websocket board.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/telemetry"

	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/entstore"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/memstore"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/redisstore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	envFile := flag.String("env-file", ".env", "optional .env file with AUCTIONBOT_* overrides")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *configPath, *envFile)
	stop()
	if err != nil {
		slog.Error("auctionbot exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envFile string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("OTLP export unavailable, logging locally", slog.Any("error", err))
		tp = telemetry.NewLocalProvider(os.Stderr, cfg.Telemetry.ServiceName, slog.LevelInfo)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("flushing telemetry", slog.Any("error", err))
		}
	}()

	a, err := newApp(ctx, cfg, tp)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.InfoContext(ctx, "starting auctionbot",
		slog.String("version", version),
		slog.String("team", cfg.Auction.TeamKey),
		slog.String("store", cfg.Database.Driver),
	)
	return a.run(ctx)
}
