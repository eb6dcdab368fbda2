package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/cricket-auctionbot/cmd/auctionctl/commands"
	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/seed"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/memstore"
)

const testConfig = `
database:
  driver: memory
auction:
  team_key: lions
  total_points: 1000
  players_needed: 6
  min_base_per_player: 50
`

type harness struct {
	t       *testing.T
	dir     string
	cfgPath string
	clk     *clock.Mock
	repos   *store.Repositories
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o600))

	clk := clock.NewMock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	return &harness{
		t:       t,
		dir:     dir,
		cfgPath: cfgPath,
		clk:     clk,
		repos: &store.Repositories{
			Snapshots: memstore.NewSnapshots(),
			Events:    memstore.NewEvents(clk),
		},
	}
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := commands.NewRootCmd(commands.Deps{
		OpenStore: func(context.Context, config.DatabaseConfig, clock.Clock) (*store.Repositories, error) {
			return h.repos, nil
		},
		Clock: h.clk,
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--config", h.cfgPath,
		"--env-file", filepath.Join(h.dir, "missing.env"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// manager restores the stored session the way the bot would.
func (h *harness) manager() *auction.Manager {
	h.t.Helper()
	cfg, err := config.Load(h.cfgPath)
	require.NoError(h.t, err)
	defaults, err := seed.Defaults(cfg.Auction)
	require.NoError(h.t, err)

	m, err := auction.NewManager("lions", defaults, h.repos.Snapshots, h.repos.Events,
		slog.Default(), noop.NewTracerProvider(), metricnoop.NewMeterProvider(), h.clk)
	require.NoError(h.t, err)

	restored, err := m.Bootstrap(context.Background(), func(context.Context) (string, []roster.Player, error) {
		return "", nil, assert.AnError
	})
	require.NoError(h.t, err)
	require.True(h.t, restored)
	return m
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t)
	first := h.writeFile("roster.csv", "name,role,rank,rating\nAsha,Batsman,3,80\nBen,Bowler,20,70\nCal,Wicket Keeper,30,60\n")

	out, err := h.run("keys")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = h.run("board")
	require.ErrorIs(t, err, store.ErrNotFound)

	out, err = h.run("import", first)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 players into lions")

	out, err = h.run("keys")
	require.NoError(t, err)
	assert.Equal(t, "lions\n", out)

	out, err = h.run("board")
	require.NoError(t, err)
	assert.Contains(t, out, "**Purse** spent 0 of 1000")
	assert.Contains(t, out, "**Best remaining**")

	m := h.manager()
	st, err := m.Snapshot()
	require.NoError(t, err)
	require.NoError(t, m.MarkWon(context.Background(), st.Players[0].ID, 150))

	out, err = h.run("board", "--json")
	require.NoError(t, err)
	var b dashboard.Board
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 3, b.Counts.Total)
	assert.Equal(t, 1, b.Counts.Won)
	assert.Equal(t, 150, b.Purse.Spent)

	out, err = h.run("export")
	require.NoError(t, err)
	assert.Equal(t, "name,role,category,rating,final_bid\nAsha,Batsman,1,80,150\n", out)

	exported := filepath.Join(h.dir, "squad.csv")
	_, err = h.run("export", "-o", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Asha,Batsman,1,80,150")

	out, err = h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "roster.imported")
	assert.Contains(t, out, "lot.won")
}

func TestImport_ReplacesExistingRoster(t *testing.T) {
	h := newHarness(t)
	first := h.writeFile("a.csv", "name,role\nAsha,Batsman\nBen,Bowler\nCal,Bowler\n")
	second := h.writeFile("b.csv", "name,role\nZed,Bowler\nYan,Batsman\n")

	_, err := h.run("import", first)
	require.NoError(t, err)
	out, err := h.run("import", second)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 players into lions")

	st, err := h.manager().Snapshot()
	require.NoError(t, err)
	assert.Len(t, st.Players, 2)
	assert.Len(t, st.Queue, 2)
}

func TestImport_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("import")
	assert.Error(t, err, "missing argument")

	_, err = h.run("import", filepath.Join(h.dir, "nope.csv"))
	assert.Error(t, err)

	empty := h.writeFile("empty.csv", "name,role\n")
	_, err = h.run("import", empty)
	assert.ErrorIs(t, err, roster.ErrEmptyImport)

	out, err := h.run("keys")
	require.NoError(t, err)
	assert.Empty(t, out, "failed imports must not create a session")
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("import", h.writeFile("roster.csv", "name,role\nAsha,Batsman\n"))
	require.NoError(t, err)

	_, err = h.run("reset")
	require.Error(t, err)
	out, _ := h.run("keys")
	assert.Equal(t, "lions\n", out)

	out, err = h.run("reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Reset session for lions\n", out)

	out, err = h.run("keys")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTeamFlag(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("--team", "tigers", "import", h.writeFile("roster.csv", "name,role\nAsha,Batsman\n"))
	require.NoError(t, err)

	out, err := h.run("keys")
	require.NoError(t, err)
	assert.Equal(t, "tigers\n", out)

	_, err = h.run("board")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
