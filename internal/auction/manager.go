package auction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

const instrumentationName = "github.com/jensholdgaard/cricket-auctionbot/internal/auction"

// ErrNotReady is returned by operations called before Bootstrap.
var ErrNotReady = errors.New("auction session not started")

// Defaults seed a fresh session.
type Defaults struct {
	Budget budget.Budget
	Rules  rules.RuleSet
	Bases  roster.CategoryBases
}

// Seed supplies the roster for a fresh session and names where it came from.
type Seed func(ctx context.Context) (source string, players []roster.Player, err error)

// SettingsSource serves remote team settings. A nil result means the
// remote has nothing for the team.
type SettingsSource interface {
	LoadSettings(ctx context.Context, teamKey string) (*budget.Patch, error)
	LoadConstraints(ctx context.Context, teamKey string) (rules.RuleSet, error)
}

// RosterFetcher downloads a roster CSV.
type RosterFetcher interface {
	FetchCSV(ctx context.Context, url string) (io.ReadCloser, error)
}

// Manager owns the single live session for one team key. Operations run
// one at a time, each including its snapshot write, and subscribers see
// every resulting state.
type Manager struct {
	mu      sync.Mutex
	session *Session

	key       string
	defaults  Defaults
	snapshots store.SnapshotRepository
	events    event.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     clock.Clock
	opts      []Option

	decisions  metric.Int64Counter
	rejections metric.Int64Counter
	undos      metric.Int64Counter

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewManager creates a Manager for teamKey. Call Bootstrap before use.
func NewManager(
	teamKey string,
	defaults Defaults,
	snapshots store.SnapshotRepository,
	events event.Store,
	logger *slog.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	clk clock.Clock,
	opts ...Option,
) (*Manager, error) {
	meter := mp.Meter(instrumentationName)
	decisions, err := meter.Int64Counter("auction.decisions",
		metric.WithDescription("Committed auction decisions by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}
	rejections, err := meter.Int64Counter("auction.guardrail_rejections",
		metric.WithDescription("Bids refused by the budget guardrail"))
	if err != nil {
		return nil, fmt.Errorf("creating rejections counter: %w", err)
	}
	undos, err := meter.Int64Counter("auction.undos",
		metric.WithDescription("Decisions reverted by undo"))
	if err != nil {
		return nil, fmt.Errorf("creating undos counter: %w", err)
	}

	return &Manager{
		key:        teamKey,
		defaults:   defaults,
		snapshots:  snapshots,
		events:     events,
		logger:     logger,
		tracer:     tp.Tracer(instrumentationName),
		clock:      clk,
		opts:       opts,
		decisions:  decisions,
		rejections: rejections,
		undos:      undos,
		subs:       map[int]func(State){},
	}, nil
}

// TeamKey returns the key the session is persisted under.
func (m *Manager) TeamKey() string { return m.key }

// Bootstrap restores the persisted session for the team key. A missing or
// malformed snapshot is replaced by a fresh session seeded from seed.
// It reports whether a snapshot was restored.
func (m *Manager) Bootstrap(ctx context.Context, seed Seed) (bool, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Bootstrap",
		trace.WithAttributes(attribute.String("team_key", m.key)),
	)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.snapshots.Load(ctx, m.key)
	switch {
	case err == nil:
		s, rerr := m.restore(data)
		if rerr == nil {
			m.session = s
			m.logger.InfoContext(ctx, "restored auction session",
				slog.String("team_key", m.key),
				slog.String("session_id", s.ID()),
				slog.Int("version", s.Version()),
			)
			m.publish(s.Snapshot())
			return true, nil
		}
		m.logger.WarnContext(ctx, "discarding malformed snapshot",
			slog.String("team_key", m.key),
			slog.Any("error", rerr),
		)
	case errors.Is(err, store.ErrNotFound):
		m.logger.InfoContext(ctx, "no snapshot found, seeding new session", slog.String("team_key", m.key))
	default:
		return false, fmt.Errorf("loading snapshot: %w", err)
	}

	source, players, err := seed(ctx)
	if err != nil {
		return false, fmt.Errorf("seeding roster: %w", err)
	}
	roster.FillBase(players, m.defaults.Bases)

	s, err := New(m.key+"-"+uuid.NewString(), m.defaults.Budget, m.defaults.Rules, m.opts...)
	if err != nil {
		return false, fmt.Errorf("creating session: %w", err)
	}
	if err := s.Import(source, players); err != nil {
		return false, fmt.Errorf("importing seed roster from %s: %w", source, err)
	}
	m.session = s
	m.persist(ctx)

	m.logger.InfoContext(ctx, "seeded auction session",
		slog.String("team_key", m.key),
		slog.String("session_id", s.ID()),
		slog.String("source", source),
		slog.Int("players", len(players)),
	)
	return false, nil
}

func (m *Manager) restore(data []byte) (*Session, error) {
	st, err := DecodeState(data)
	if err != nil {
		return nil, err
	}
	return Restore(st, m.opts...)
}

// Snapshot returns a detached copy of the current state.
func (m *Manager) Snapshot() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return State{}, ErrNotReady
	}
	return m.session.Snapshot(), nil
}

// RandomizeQueue rebuilds the queue from the pending players.
func (m *Manager) RandomizeQueue(ctx context.Context) (State, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RandomizeQueue")
	defer span.End()

	var st State
	err := m.apply(ctx, func(s *Session) error {
		s.RandomizeQueue()
		st = s.Snapshot()
		return nil
	})
	return st, err
}

// NextPlayer opens the next lot, reshuffling when the queue is empty.
func (m *Manager) NextPlayer(ctx context.Context) (Advance, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.NextPlayer")
	defer span.End()

	var adv Advance
	err := m.apply(ctx, func(s *Session) error {
		adv = s.NextPlayer()
		return nil
	})
	if err != nil {
		return Advance{}, err
	}
	span.SetAttributes(
		attribute.String("player_id", adv.PlayerID),
		attribute.Bool("reshuffled", adv.Reshuffled),
	)
	return adv, nil
}

// CheckBid reports whether bid would be accepted. With an empty playerID
// only the budget guardrail is checked. The ledger is returned either way.
func (m *Manager) CheckBid(ctx context.Context, playerID string, bid int) (budget.Ledger, error) {
	_, span := m.tracer.Start(ctx, "Manager.CheckBid",
		trace.WithAttributes(
			attribute.String("player_id", playerID),
			attribute.Int("bid", bid),
		),
	)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return budget.Ledger{}, ErrNotReady
	}

	ledger := budget.NewLedger(m.session.budget, m.session.players)
	if playerID == "" {
		return ledger, ledger.Check(bid)
	}
	return ledger, m.session.CheckBid(playerID, bid)
}

// MarkWon commits a purchase.
func (m *Manager) MarkWon(ctx context.Context, playerID string, bid int) error {
	ctx, span := m.tracer.Start(ctx, "Manager.MarkWon",
		trace.WithAttributes(
			attribute.String("player_id", playerID),
			attribute.Int("bid", bid),
		),
	)
	defer span.End()

	err := m.apply(ctx, func(s *Session) error { return s.MarkWon(playerID, bid) })
	if errors.Is(err, budget.ErrGuardrailViolation) {
		m.rejections.Add(ctx, 1)
	}
	if err != nil {
		return err
	}

	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kindWon)))
	m.logger.InfoContext(ctx, "player won",
		slog.String("player_id", playerID),
		slog.Int("bid", bid),
	)
	return nil
}

// MarkLost commits a pass.
func (m *Manager) MarkLost(ctx context.Context, playerID string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.MarkLost",
		trace.WithAttributes(attribute.String("player_id", playerID)),
	)
	defer span.End()

	if err := m.apply(ctx, func(s *Session) error { return s.MarkLost(playerID) }); err != nil {
		return err
	}

	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kindLost)))
	m.logger.InfoContext(ctx, "player lost", slog.String("player_id", playerID))
	return nil
}

// Undo reverts the latest decision. It reports false when there was
// nothing to undo, in which case nothing is persisted.
func (m *Manager) Undo(ctx context.Context) (Decision, bool, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Undo")
	defer span.End()

	var (
		d  Decision
		ok bool
	)
	err := m.apply(ctx, func(s *Session) error {
		d, ok = s.Undo()
		if !ok {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	m.undos.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kindOf(d))))
	m.logger.InfoContext(ctx, "decision undone",
		slog.String("player_id", d.Subject()),
		slog.String("kind", kindOf(d)),
	)
	return d, true, nil
}

// ImportCSV replaces the roster with the players parsed from r. Parse
// errors leave the session untouched.
func (m *Manager) ImportCSV(ctx context.Context, source string, r io.Reader) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ImportCSV",
		trace.WithAttributes(attribute.String("source", source)),
	)
	defer span.End()

	players, err := roster.ParseCSV(r)
	if err != nil {
		return 0, fmt.Errorf("parsing roster from %s: %w", source, err)
	}
	roster.FillBase(players, m.defaults.Bases)

	if err := m.apply(ctx, func(s *Session) error { return s.Import(source, players) }); err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "roster imported",
		slog.String("source", source),
		slog.Int("players", len(players)),
	)
	return len(players), nil
}

// ImportURL downloads a roster CSV and imports it. The download runs
// without holding the session lock.
func (m *Manager) ImportURL(ctx context.Context, f RosterFetcher, url string) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ImportURL",
		trace.WithAttributes(attribute.String("url", url)),
	)
	defer span.End()

	body, err := f.FetchCSV(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetching roster: %w", err)
	}
	defer body.Close()

	return m.ImportCSV(ctx, url, body)
}

// ExportCSV writes the won players as CSV.
func (m *Manager) ExportCSV(ctx context.Context, w io.Writer) error {
	_, span := m.tracer.Start(ctx, "Manager.ExportCSV")
	defer span.End()

	st, err := m.Snapshot()
	if err != nil {
		return err
	}
	return roster.ExportCSV(w, st.Players)
}

// SyncRemote applies remote settings and quota rules for the team key.
// Each half is best effort: a failed fetch, an empty answer or an invalid
// value keeps the current configuration. Failures are returned joined.
func (m *Manager) SyncRemote(ctx context.Context, src SettingsSource) error {
	ctx, span := m.tracer.Start(ctx, "Manager.SyncRemote",
		trace.WithAttributes(attribute.String("team_key", m.key)),
	)
	defer span.End()

	var errs []error

	patch, err := src.LoadSettings(ctx, m.key)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("loading settings: %w", err))
	case patch != nil && !patch.Empty():
		err := m.apply(ctx, func(s *Session) error { return s.Configure(patch.Apply(s.budget)) })
		if err != nil {
			errs = append(errs, fmt.Errorf("applying settings: %w", err))
		}
	}

	rs, err := src.LoadConstraints(ctx, m.key)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("loading constraints: %w", err))
	case rs != nil:
		if err := m.apply(ctx, func(s *Session) error { return s.SetRules(rs) }); err != nil {
			errs = append(errs, fmt.Errorf("applying constraints: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.WarnContext(ctx, "remote settings not fully applied",
			slog.String("team_key", m.key),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// History returns the audit trail of the current session.
func (m *Manager) History(ctx context.Context) ([]event.Event, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.History")
	defer span.End()

	st, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	events, err := m.events.Load(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return events, nil
}

// Subscribe registers fn to receive the state after every change. fn runs
// under the session lock and must not block or call back into the Manager.
// The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// errNoChange aborts apply without persisting.
var errNoChange = errors.New("no change")

// apply runs fn on the session under the lock and, if it succeeds,
// persists and publishes the result before releasing the lock.
func (m *Manager) apply(ctx context.Context, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNotReady
	}
	if err := fn(m.session); err != nil {
		return err
	}
	m.persist(ctx)
	return nil
}

// persist writes the snapshot and then appends pending events. Storage
// failures are logged, not returned: the in-memory state stays
// authoritative. Events are only appended once their snapshot is durable,
// so a restart never replays versions the store already holds.
func (m *Manager) persist(ctx context.Context) {
	st := m.session.Snapshot()
	events := m.session.PendingEvents()

	if err := m.saveSnapshot(ctx, st); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist snapshot",
			slog.String("team_key", m.key),
			slog.Int("dropped_events", len(events)),
			slog.Any("error", err),
		)
		m.publish(st)
		return
	}

	now := m.clock.Now()
	for i := range events {
		events[i].CreatedAt = now
	}
	if len(events) > 0 {
		if err := m.events.Append(ctx, events...); err != nil {
			m.logger.ErrorContext(ctx, "failed to persist events",
				slog.Int("count", len(events)),
				slog.Any("error", err),
			)
		}
	}

	m.publish(st)
}

func (m *Manager) saveSnapshot(ctx context.Context, st State) error {
	data, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return m.snapshots.Save(ctx, m.key, data)
}

func (m *Manager) publish(st State) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, fn := range m.subs {
		fn(st)
	}
}
