package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/bot/commands"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/memstore"
)

type stubFetcher struct{}

func (stubFetcher) FetchCSV(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("name,role\nZed,Bowler\nYan,Batsman\n")), nil
}

func player(id, role string, base int) roster.Player {
	return roster.Player{ID: id, Name: "Player " + id, Role: role, Base: base, Category: 3, Rating: 70, Status: roster.StatusPending}
}

func newManager(t *testing.T) *auction.Manager {
	t.Helper()
	clk := clock.NewMock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	m, err := auction.NewManager("lions",
		auction.Defaults{
			Budget: budget.Budget{TotalPoints: 1000, PlayersNeeded: 6, MinBasePerPlayer: 50},
			Rules:  rules.Default(),
			Bases:  roster.DefaultCategoryBases(),
		},
		memstore.NewSnapshots(), memstore.NewEvents(clk),
		slog.Default(), noop.NewTracerProvider(), metricnoop.NewMeterProvider(), clk,
		auction.WithShuffle(func(int, func(i, j int)) {}),
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Bootstrap(context.Background(), func(context.Context) (string, []roster.Player, error) {
		return "test", []roster.Player{
			player("p1", "Batsman", 100),
			player("p2", "Bowler", 80),
			player("p3", "Wicket Keeper", 60),
			player("p4", "All Rounder", 50),
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func opts(o ...*discordgo.ApplicationCommandInteractionDataOption) commands.Options {
	out := commands.Options{}
	for _, x := range o {
		out[x.Name] = x
	}
	return out
}

func TestExecute_Session(t *testing.T) {
	h := commands.NewHandlers(newManager(t), nil, slog.Default(), noop.NewTracerProvider())
	ctx := context.Background()

	steps := []struct {
		command string
		opts    commands.Options
		want    string
	}{
		{"won", opts(intOpt("bid", 150)), "No lot is open"},
		{"next", nil, "Up next: **Player p1** (Batsman, cat 3, base 100)"},
		{"won", opts(intOpt("bid", 150)), "**Player p1** won for 150. Remaining 850, open slots 5, max bid 650."},
		{"won", opts(intOpt("bid", 10), strOpt("player", "player P2")), "Cannot mark **Player p2** won: bid is below base price"},
		{"won", opts(intOpt("bid", 100), strOpt("player", "nobody")), `No player named "nobody".`},
		{"lost", opts(strOpt("player", "p2")), "**Player p2** marked lost."},
		{"check", opts(intOpt("bid", 650)), "Bid 650 is OK."},
		{"check", opts(intOpt("bid", 700)), "Bid 700 refused: bid breaks the budget guardrail"},
		{"check", opts(intOpt("bid", 120), strOpt("player", "p1")), "Bid 120 refused: player is not pending"},
		{"board", nil, "**Purse** spent 150 of 1000 | remaining 850 | slots 5 | max bid 650"},
		{"undo", nil, "Undid loss: **Player p2** is pending again."},
		{"undo", nil, "Undid win: **Player p1** (150) is pending again."},
		{"undo", nil, "Nothing to undo."},
		{"shuffle", nil, "Queue reshuffled: 4 players."},
		{"import", opts(strOpt("url", "http://sheets/roster.csv")), "Remote import is not configured."},
		{"auction", nil, "Unknown command"},
	}

	for _, s := range steps {
		got := h.Execute(ctx, s.command, s.opts)
		if !strings.Contains(got, s.want) {
			t.Fatalf("/%s = %q, want it to contain %q", s.command, got, s.want)
		}
	}
}

func TestExecute_NextWhenExhausted(t *testing.T) {
	m := newManager(t)
	h := commands.NewHandlers(m, nil, slog.Default(), noop.NewTracerProvider())
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		if got := h.Execute(ctx, "lost", opts(strOpt("player", id))); !strings.Contains(got, "marked lost") {
			t.Fatalf("/lost %s = %q", id, got)
		}
	}
	if got := h.Execute(ctx, "next", nil); got != "No pending players left." {
		t.Errorf("/next = %q", got)
	}

	h.Execute(ctx, "undo", nil)
	if got := h.Execute(ctx, "next", nil); !strings.Contains(got, "reshuffled 1 pending players") {
		t.Errorf("/next after undo = %q", got)
	}
}

func TestExecute_Import(t *testing.T) {
	m := newManager(t)
	h := commands.NewHandlers(m, stubFetcher{}, slog.Default(), noop.NewTracerProvider())

	got := h.Execute(context.Background(), "import", opts(strOpt("url", "http://sheets/roster.csv")))
	if got != "Imported 2 players. Queue reshuffled." {
		t.Fatalf("/import = %q", got)
	}
	st, _ := m.Snapshot()
	if len(st.Players) != 2 {
		t.Errorf("roster has %d players, want 2", len(st.Players))
	}
}

func TestFormatBoard_Truncates(t *testing.T) {
	b := dashboard.Board{Purse: dashboard.Purse{Ledger: budget.Ledger{Budget: budget.Budget{TotalPoints: 1000}}}}
	for i := range 12 {
		b.Candidates = append(b.Candidates, dashboard.Candidate{Player: roster.Player{Name: fmt.Sprintf("P%02d", i), Role: "Batsman"}})
	}

	out := commands.FormatBoard(b)
	if !strings.Contains(out, "10. P09") || strings.Contains(out, "P10") {
		t.Errorf("board lists wrong rows:\n%s", out)
	}
	if !strings.HasSuffix(out, "...and 2 more") {
		t.Errorf("board missing overflow line:\n%s", out)
	}
	if strings.Contains(out, "**Quotas**") {
		t.Error("board without rules lists quotas")
	}
}

func TestSlashCommands(t *testing.T) {
	want := map[string]bool{"next": true, "shuffle": true, "won": true, "lost": true, "undo": true, "board": true, "check": true, "import": true}
	cmds := commands.SlashCommands()
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(want))
	}
	for _, c := range cmds {
		if !want[c.Name] {
			t.Errorf("unexpected command %q", c.Name)
		}
		restricted := c.DefaultMemberPermissions != nil
		if restricted != (c.Name == "import") {
			t.Errorf("/%s restricted = %v", c.Name, restricted)
		}
	}
}
