// Package bot runs the Discord front end of the auction.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/bot/commands"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
)

// Bot connects the slash commands to one Discord guild.
type Bot struct {
	session  *discordgo.Session
	cfg      config.DiscordConfig
	logger   *slog.Logger
	handlers *commands.Handlers

	appID      string
	registered []*discordgo.ApplicationCommand
}

// New prepares a Bot. Nothing is sent to Discord until Start.
func New(cfg config.DiscordConfig, svc commands.Service, fetcher auction.RosterFetcher, logger *slog.Logger, tp trace.TracerProvider) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	// Slash commands arrive as interactions; no message intents needed.
	session.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{
		session:  session,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "bot")),
		handlers: commands.NewHandlers(svc, fetcher, logger, tp),
	}, nil
}

// Start opens the gateway connection and registers the slash commands,
// replacing any stale definitions.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.InfoContext(ctx, "connected to discord",
			slog.String("user", r.User.Username),
			slog.Int("guilds", len(r.Guilds)),
		)
	})
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	b.appID = b.session.State.User.ID

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.appID, b.cfg.GuildID, commands.SlashCommands())
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("registering slash commands: %w", err)
	}
	b.registered = registered

	b.logger.InfoContext(ctx, "slash commands registered",
		slog.Int("count", len(registered)),
		slog.String("guild_id", b.cfg.GuildID),
	)
	return nil
}

// Stop unregisters the commands unless configured to keep them, then
// closes the connection.
func (b *Bot) Stop() error {
	if !b.cfg.KeepCommands {
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(b.appID, b.cfg.GuildID, cmd.ID); err != nil {
				b.logger.Error("failed to delete command", slog.String("command", cmd.Name), slog.Any("error", err))
			}
		}
	}
	return b.session.Close()
}

// onInteraction keeps a panicking command from taking the gateway down.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("command handler panicked", slog.Any("panic", r))
		}
	}()
	b.handlers.InteractionCreate(s, i)
}
