package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

// boardRows is how many candidates /board lists.
const boardRows = 10

var (
	minWonBid   = 1.0
	minCheckBid = 0.0

	adminOnly int64 = discordgo.PermissionAdministrator
)

// Service is the auction surface the commands drive.
type Service interface {
	Snapshot() (auction.State, error)
	RandomizeQueue(ctx context.Context) (auction.State, error)
	NextPlayer(ctx context.Context) (auction.Advance, error)
	CheckBid(ctx context.Context, playerID string, bid int) (budget.Ledger, error)
	MarkWon(ctx context.Context, playerID string, bid int) error
	MarkLost(ctx context.Context, playerID string) error
	Undo(ctx context.Context) (auction.Decision, bool, error)
	ImportURL(ctx context.Context, f auction.RosterFetcher, url string) (int, error)
}

// Options are the interaction options keyed by name.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// Handlers process Discord interactions.
type Handlers struct {
	svc     Service
	fetcher auction.RosterFetcher
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates new command handlers. fetcher may be nil, which
// disables /import.
func NewHandlers(svc Service, fetcher auction.RosterFetcher, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		svc:     svc,
		fetcher: fetcher,
		logger:  logger,
		tracer:  tp.Tracer("github.com/jensholdgaard/cricket-auctionbot/internal/bot/commands"),
	}
}

func playerOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "player",
		Description: "Player name or id (defaults to the open lot)",
		Required:    required,
	}
}

func bidOption(desc string, minValue *float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "bid",
		Description: desc,
		Required:    true,
		MinValue:    minValue,
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "next", Description: "Open the next player in the queue"},
		{Name: "shuffle", Description: "Reshuffle the queue of pending players"},
		{
			Name:        "won",
			Description: "Record a player as bought",
			Options: []*discordgo.ApplicationCommandOption{
				bidOption("Final bid", &minWonBid),
				playerOption(false),
			},
		},
		{
			Name:        "lost",
			Description: "Record a player as not bought",
			Options:     []*discordgo.ApplicationCommandOption{playerOption(false)},
		},
		{Name: "undo", Description: "Revert the latest decision"},
		{Name: "board", Description: "Show purse, quotas and the best remaining players"},
		{
			Name:        "check",
			Description: "Check a bid against the budget guardrail",
			Options: []*discordgo.ApplicationCommandOption{
				bidOption("Bid to check, 0 for the current position", &minCheckBid),
				playerOption(false),
			},
		},
		{
			Name:                     "import",
			Description:              "Replace the roster with a CSV sheet (admin only)",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "URL of the roster CSV",
					Required:    true,
				},
			},
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	ctx, span := h.tracer.Start(context.Background(), "InteractionCreate",
		trace.WithAttributes(attribute.String("command", data.Name)),
	)
	defer span.End()

	opts := make(Options, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}
	respond(s, i, h.Execute(ctx, data.Name, opts))
}

// Execute runs the named command and returns the reply text.
func (h *Handlers) Execute(ctx context.Context, name string, opts Options) string {
	switch name {
	case "next":
		return h.handleNext(ctx)
	case "shuffle":
		return h.handleShuffle(ctx)
	case "won":
		return h.handleWon(ctx, opts)
	case "lost":
		return h.handleLost(ctx, opts)
	case "undo":
		return h.handleUndo(ctx)
	case "board":
		return h.handleBoard()
	case "check":
		return h.handleCheck(ctx, opts)
	case "import":
		return h.handleImport(ctx, opts)
	default:
		return "Unknown command"
	}
}

func (h *Handlers) handleNext(ctx context.Context) string {
	adv, err := h.svc.NextPlayer(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to open next lot: %s", err)
	}
	if adv.Reshuffled {
		if adv.Queued == 0 {
			return "No pending players left."
		}
		return fmt.Sprintf("Queue was empty, reshuffled %d pending players. Use `/next` again.", adv.Queued)
	}

	st, err := h.svc.Snapshot()
	if err != nil {
		return fmt.Sprintf("Failed to read state: %s", err)
	}
	b := dashboard.Build(st)
	if b.Active == nil {
		return "No lot open."
	}
	c := b.Active
	return fmt.Sprintf("Up next: **%s** (%s, cat %d, base %d)\nValue %.1f (%s) | priority %.1f | cap %d | range %d-%d | win %.0f%%\n%d left in queue.",
		c.Player.Name, c.Player.Role, c.Player.Category, c.Player.Base,
		c.Value, c.Tier.Label, c.Advice.Priority, c.Advice.Cap,
		c.Advice.Band.Low, c.Advice.Band.High, c.Advice.WinProbability*100,
		adv.Queued,
	)
}

func (h *Handlers) handleShuffle(ctx context.Context) string {
	st, err := h.svc.RandomizeQueue(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to shuffle: %s", err)
	}
	return fmt.Sprintf("Queue reshuffled: %d players.", len(st.Queue))
}

func (h *Handlers) handleWon(ctx context.Context, opts Options) string {
	p, reply := h.resolve(opts)
	if reply != "" {
		return reply
	}
	bid := int(opts["bid"].IntValue())
	if err := h.svc.MarkWon(ctx, p.ID, bid); err != nil {
		return fmt.Sprintf("Cannot mark **%s** won: %s", p.Name, err)
	}

	st, err := h.svc.Snapshot()
	if err != nil {
		return fmt.Sprintf("**%s** won for %d.", p.Name, bid)
	}
	l := st.Ledger()
	return fmt.Sprintf("**%s** won for %d. Remaining %d, open slots %d, max bid %d.",
		p.Name, bid, l.RemainingBudget(), l.RemainingSlots(), l.MaxBid())
}

func (h *Handlers) handleLost(ctx context.Context, opts Options) string {
	p, reply := h.resolve(opts)
	if reply != "" {
		return reply
	}
	if err := h.svc.MarkLost(ctx, p.ID); err != nil {
		return fmt.Sprintf("Cannot mark **%s** lost: %s", p.Name, err)
	}
	return fmt.Sprintf("**%s** marked lost.", p.Name)
}

func (h *Handlers) handleUndo(ctx context.Context) string {
	d, ok, err := h.svc.Undo(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to undo: %s", err)
	}
	if !ok {
		return "Nothing to undo."
	}

	name := d.Subject()
	if st, err := h.svc.Snapshot(); err == nil {
		if p, found := st.Player(d.Subject()); found {
			name = p.Name
		}
	}
	switch d := d.(type) {
	case auction.Won:
		return fmt.Sprintf("Undid win: **%s** (%d) is pending again.", name, d.Bid)
	default:
		return fmt.Sprintf("Undid loss: **%s** is pending again.", name)
	}
}

func (h *Handlers) handleBoard() string {
	st, err := h.svc.Snapshot()
	if err != nil {
		return fmt.Sprintf("Failed to read state: %s", err)
	}
	return FormatBoard(dashboard.Build(st))
}

func (h *Handlers) handleCheck(ctx context.Context, opts Options) string {
	bid := int(opts["bid"].IntValue())
	var id string
	if _, ok := opts["player"]; ok {
		p, reply := h.resolve(opts)
		if reply != "" {
			return reply
		}
		id = p.ID
	}

	l, err := h.svc.CheckBid(ctx, id, bid)
	switch {
	case err == nil:
		return fmt.Sprintf("Bid %d is OK. Max bid %d, remaining %d.", bid, l.MaxBid(), l.RemainingBudget())
	case errors.Is(err, budget.ErrGuardrailViolation), errors.Is(err, auction.ErrBidBelowBase),
		errors.Is(err, auction.ErrInvalidBid), errors.Is(err, auction.ErrNotPending):
		return fmt.Sprintf("Bid %d refused: %s", bid, err)
	default:
		return fmt.Sprintf("Failed to check bid: %s", err)
	}
}

func (h *Handlers) handleImport(ctx context.Context, opts Options) string {
	if h.fetcher == nil {
		return "Remote import is not configured."
	}
	url := opts["url"].StringValue()
	n, err := h.svc.ImportURL(ctx, h.fetcher, url)
	if err != nil {
		h.logger.WarnContext(ctx, "roster import failed", slog.String("url", url), slog.Any("error", err))
		return fmt.Sprintf("Import failed, roster unchanged: %s", err)
	}
	return fmt.Sprintf("Imported %d players. Queue reshuffled.", n)
}

// resolve finds the player named by the "player" option, matching id or
// name case-insensitively, or the open lot when the option is absent.
// On failure the second result is the reply to send.
func (h *Handlers) resolve(opts Options) (roster.Player, string) {
	st, err := h.svc.Snapshot()
	if err != nil {
		return roster.Player{}, fmt.Sprintf("Failed to read state: %s", err)
	}

	o, ok := opts["player"]
	if !ok {
		p, open := st.Lot()
		if !open {
			return roster.Player{}, "No lot is open. Name a player or use `/next`."
		}
		return p, ""
	}

	q := strings.TrimSpace(o.StringValue())
	if p, found := st.Player(q); found {
		return p, ""
	}
	for _, p := range st.Players {
		if strings.EqualFold(p.Name, q) {
			return p, ""
		}
	}
	return roster.Player{}, fmt.Sprintf("No player named %q.", q)
}

// FormatBoard renders the board as a Discord message.
func FormatBoard(b dashboard.Board) string {
	var sb strings.Builder
	p := b.Purse
	fmt.Fprintf(&sb, "**Purse** spent %d of %d | remaining %d | slots %d | max bid %d\n",
		p.Spent, p.Budget.TotalPoints, p.RemainingBudget, p.RemainingSlots, p.MaxBid)
	fmt.Fprintf(&sb, "**Players** %d won, %d lost, %d pending, %d queued\n",
		b.Counts.Won, b.Counts.Lost, b.Counts.Pending, b.Counts.Queued)

	if len(b.Compliance.PerRule) > 0 {
		sb.WriteString("**Quotas**\n")
		for _, rs := range b.Compliance.PerRule {
			mark := "ok"
			if !rs.OK {
				mark = "needs work"
			}
			bound := fmt.Sprintf("min %d", rs.Rule.MinCount)
			if rs.Rule.MaxCount != nil {
				bound += fmt.Sprintf(", max %d", *rs.Rule.MaxCount)
			}
			fmt.Fprintf(&sb, "- %s: %d (%s) %s\n", rs.Rule.Name(), rs.Count, bound, mark)
		}
	}

	if b.Active != nil {
		fmt.Fprintf(&sb, "**On the block** %s, cap %d\n", b.Active.Player.Name, b.Active.Advice.Cap)
	}

	if len(b.Candidates) > 0 {
		sb.WriteString("**Best remaining**\n")
		for i, c := range b.Candidates {
			if i == boardRows {
				fmt.Fprintf(&sb, "...and %d more\n", len(b.Candidates)-boardRows)
				break
			}
			fmt.Fprintf(&sb, "%d. %s (%s) %.1f %s, cap %d\n",
				i+1, c.Player.Name, c.Player.Role, c.Value, c.Tier.Label, c.Advice.Cap)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
