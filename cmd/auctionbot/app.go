package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/bot"
	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/health"
	"github.com/jensholdgaard/cricket-auctionbot/internal/httpapi"
	"github.com/jensholdgaard/cricket-auctionbot/internal/hub"
	"github.com/jensholdgaard/cricket-auctionbot/internal/leader"
	"github.com/jensholdgaard/cricket-auctionbot/internal/remote"
	"github.com/jensholdgaard/cricket-auctionbot/internal/seed"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/telemetry"
)

// app is the wired process. Every replica serves HTTP; only the one holding
// the session (the leader, when election is on) bootstraps it and runs the bot.
type app struct {
	cfg      *config.Config
	tp       *telemetry.Provider
	logger   *slog.Logger
	repos    *store.Repositories
	defaults auction.Defaults
	mgr      *auction.Manager
	remote   *remote.Client
	boards   *hub.Hub
	health   *health.Handler
	cleanup  []func()
}

func newApp(ctx context.Context, cfg *config.Config, tp *telemetry.Provider) (*app, error) {
	a := &app{cfg: cfg, tp: tp, logger: tp.Logger}
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return nil, err
	}
	a.repos = repos
	a.cleanup = append(a.cleanup, func() {
		if err := repos.Close(); err != nil {
			a.logger.Error("closing store", slog.Any("error", err))
		}
	})

	if a.defaults, err = seed.Defaults(cfg.Auction); err != nil {
		a.close()
		return nil, err
	}
	a.mgr, err = auction.NewManager(cfg.Auction.TeamKey, a.defaults, repos.Snapshots, repos.Events,
		a.logger, tp.TracerProvider, tp.MeterProvider, clk)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("creating auction manager: %w", err)
	}

	a.remote = remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, a.logger, tp.TracerProvider)
	a.boards = hub.New(ctx, a.logger)
	a.cleanup = append(a.cleanup, a.boards.Close, a.mgr.Subscribe(a.boards.Publish))

	a.health = health.NewHandler(clk, health.Checker{Name: "session", Check: func(context.Context) error {
		_, err := a.mgr.Snapshot()
		return err
	}})
	if repos.Ping != nil {
		a.health.AddChecker(health.Checker{Name: "store", Check: repos.Ping})
	}
	return a, nil
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func (a *app) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           httpapi.NewRouter(a.mgr, a.remote, a.boards.Handler(), a.logger, a.tp.TracerProvider, a.health.Routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	listenErr := make(chan error, 1)
	go func() {
		a.logger.InfoContext(ctx, "http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		if err, ok := <-listenErr; ok {
			cancel(fmt.Errorf("http server: %w", err))
		}
	}()

	var err error
	if a.cfg.LeaderElection.Enabled {
		err = a.elect(ctx, cancel)
	} else {
		err = a.serve(ctx)
	}
	if err == nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer done()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("http server shutdown", slog.Any("error", shutdownErr))
	}
	a.logger.Info("shutdown complete")
	return err
}

// elect blocks until ctx ends, serving the session while this replica holds
// the lease. Losing the lease ends the process so the pod restarts as a
// follower with a clean manager.
func (a *app) elect(ctx context.Context, cancel context.CancelCauseFunc) error {
	client, err := leader.InCluster()
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}
	elector := leader.New(a.cfg.LeaderElection, client, leader.Identity(), a.logger)
	a.logger.InfoContext(ctx, "waiting for leadership", slog.String("identity", elector.ID()))

	return elector.Run(ctx,
		func(ctx context.Context) {
			if err := a.serve(ctx); err != nil {
				cancel(err)
			}
		},
		func() { cancel(errors.New("lost leadership")) },
	)
}

// serve bootstraps the session, starts the bot and blocks until ctx ends.
func (a *app) serve(ctx context.Context) error {
	restored, err := a.mgr.Bootstrap(ctx, seed.Roster(a.cfg.Auction, a.defaults.Bases, a.remote))
	if err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}
	a.logger.InfoContext(ctx, "auction session ready", slog.Bool("restored", restored))

	if a.remote.Enabled() {
		// A failed sync is logged by the manager and keeps the local settings.
		_ = a.mgr.SyncRemote(ctx, a.remote)
	}

	var discord *bot.Bot
	if a.cfg.Discord.Enabled() {
		if discord, err = bot.New(a.cfg.Discord, a.mgr, a.remote, a.logger, a.tp.TracerProvider); err != nil {
			return fmt.Errorf("creating bot: %w", err)
		}
		if err := discord.Start(ctx); err != nil {
			return fmt.Errorf("starting bot: %w", err)
		}
	} else {
		a.logger.InfoContext(ctx, "no discord token, running without the bot")
	}

	a.health.SetReady(true)
	<-ctx.Done()
	a.health.SetReady(false)

	if discord != nil {
		if err := discord.Stop(); err != nil {
			a.logger.Error("stopping bot", slog.Any("error", err))
		}
	}
	return nil
}
