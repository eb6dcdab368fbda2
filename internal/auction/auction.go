// Package auction owns the live auction: the player pool, the bidding queue,
// the lot under the hammer and the undo log. Every mutation goes through a
// Session; everything else reads detached State copies.
package auction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
)

// Errors returned by session operations.
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotPending        = errors.New("player is not pending")
	ErrBidBelowBase      = errors.New("bid is below base price")
	ErrInvalidBid        = errors.New("bid must be positive")
	ErrEmptyRoster       = errors.New("roster is empty")
	ErrInvalidRoster     = errors.New("invalid roster")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// Advance is the outcome of NextPlayer.
type Advance struct {
	// PlayerID is the new lot; empty when the queue had run dry.
	PlayerID string `json:"player_id,omitempty"`
	// Reshuffled is set when the queue was empty and got rebuilt instead.
	Reshuffled bool `json:"reshuffled"`
	// Queued is the queue length after the call.
	Queued int `json:"queued"`
}

// Option configures a Session.
type Option func(*Session)

// WithShuffle replaces the queue shuffler. The default is a uniform
// math/rand/v2 shuffle.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Session) { s.shuffle = fn }
}

// Session is the aggregate root for one auction. It is not safe for
// concurrent use; Manager serialises access.
type Session struct {
	id      string
	players []roster.Player
	index   map[string]int
	queue   []string
	active  string
	log     Log
	budget  budget.Budget
	rules   rules.RuleSet
	version int

	shuffle func(n int, swap func(i, j int))
	events  []event.Event
}

// New creates an empty session with the given purse and quota rules.
func New(id string, b budget.Budget, rs rules.RuleSet, opts ...Option) (*Session, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:      id,
		index:   map[string]int{},
		budget:  b,
		rules:   rs.Clone(),
		shuffle: rand.Shuffle,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Restore rebuilds a session from a validated State. No events are recorded.
func Restore(st State, opts ...Option) (*Session, error) {
	if err := st.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:      st.ID,
		players: roster.CloneAll(st.Players),
		queue:   slices.Clone(st.Queue),
		active:  st.Active,
		log:     slices.Clone(st.Log),
		budget:  st.Budget,
		rules:   st.Rules.Clone(),
		version: st.Version,
		shuffle: rand.Shuffle,
	}
	s.reindex()
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Version returns the number of events recorded over the session's life.
func (s *Session) Version() int { return s.version }

// Import replaces the player pool, clears the undo log and builds a fresh
// queue. On error the session is left unchanged.
func (s *Session) Import(source string, players []roster.Player) error {
	if len(players) == 0 {
		return ErrEmptyRoster
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p.ID == "" {
			return fmt.Errorf("%w: player %q has no id", ErrInvalidRoster, p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidRoster, p.ID)
		}
		seen[p.ID] = struct{}{}
		if err := checkPlayer(p); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRoster, err)
		}
	}

	s.players = roster.CloneAll(players)
	s.reindex()
	s.log = nil
	s.active = ""
	s.record(event.RosterImported, event.RosterImportedData{Source: source, Players: len(players)})
	s.RandomizeQueue()
	return nil
}

// Configure replaces the purse totals.
func (s *Session) Configure(b budget.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.budget = b
	s.record(event.SettingsApplied, event.SettingsAppliedData{
		TotalPoints:      b.TotalPoints,
		PlayersNeeded:    b.PlayersNeeded,
		MinBasePerPlayer: b.MinBasePerPlayer,
	})
	return nil
}

// SetRules replaces the quota rules.
func (s *Session) SetRules(rs rules.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	s.rules = rs.Clone()
	s.record(event.RulesApplied, event.RulesAppliedData{Rules: len(rs)})
	return nil
}

// RandomizeQueue rebuilds the queue from every pending player in random
// order and closes any open lot.
func (s *Session) RandomizeQueue() {
	queue := make([]string, 0, len(s.players))
	for _, p := range s.players {
		if p.IsPending() {
			queue = append(queue, p.ID)
		}
	}
	s.shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	s.queue = queue
	s.active = ""
	s.record(event.QueueShuffled, event.QueueShuffledData{Queued: len(queue)})
}

// NextPlayer opens the head of the queue as the new lot. An open lot that
// was never decided is dropped and stays pending. When the queue is empty
// it is rebuilt instead and the session stays idle.
func (s *Session) NextPlayer() Advance {
	if len(s.queue) == 0 {
		s.RandomizeQueue()
		return Advance{Reshuffled: true, Queued: len(s.queue)}
	}

	id := s.queue[0]
	s.queue = s.queue[1:]
	s.active = id
	s.record(event.LotOpened, event.LotOpenedData{PlayerID: id, Name: s.players[s.index[id]].Name})
	return Advance{PlayerID: id, Queued: len(s.queue)}
}

// CheckBid reports whether committing bid for player id would be accepted,
// without changing anything.
func (s *Session) CheckBid(id string, bid int) error {
	p, err := s.pending(id)
	if err != nil {
		return err
	}
	if bid <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBid, bid)
	}
	if bid < p.Base {
		return fmt.Errorf("%w: %d < %d for %s", ErrBidBelowBase, bid, p.Base, p.Name)
	}
	return budget.NewLedger(s.budget, s.players).Check(bid)
}

// MarkWon commits player id as bought at bid. The bid must reach the base
// price and pass the budget guardrail.
func (s *Session) MarkWon(id string, bid int) error {
	if err := s.CheckBid(id, bid); err != nil {
		return err
	}

	p := &s.players[s.index[id]]
	p.Status = roster.StatusWon
	p.FinalBid = &bid
	s.commit(Won{PlayerID: id, Bid: bid})
	s.record(event.LotWon, event.LotWonData{PlayerID: id, Bid: bid})
	return nil
}

// MarkLost commits player id as not bought.
func (s *Session) MarkLost(id string) error {
	if _, err := s.pending(id); err != nil {
		return err
	}

	p := &s.players[s.index[id]]
	p.Status = roster.StatusLost
	p.FinalBid = nil
	s.commit(Lost{PlayerID: id})
	s.record(event.LotLost, event.LotLostData{PlayerID: id})
	return nil
}

// Undo reverses the most recent decision and returns it. With an empty log
// it does nothing and reports false. The player returns to pending but not
// to the queue.
func (s *Session) Undo() (Decision, bool) {
	if len(s.log) == 0 {
		return nil, false
	}
	d := s.log[len(s.log)-1]
	s.log = s.log[:len(s.log)-1]

	p := &s.players[s.index[d.Subject()]]
	p.Status = roster.StatusPending
	p.FinalBid = nil

	data := event.DecisionUndoneData{PlayerID: d.Subject(), Kind: kindOf(d)}
	if w, ok := d.(Won); ok {
		data.Bid = w.Bid
	}
	s.record(event.DecisionUndone, data)
	return d, true
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() State {
	return State{
		ID:      s.id,
		Players: roster.CloneAll(s.players),
		Queue:   slices.Clone(s.queue),
		Active:  s.active,
		Log:     slices.Clone(s.log),
		Budget:  s.budget,
		Rules:   s.rules.Clone(),
		Version: s.version,
	}
}

// PendingEvents returns uncommitted events and clears the buffer.
func (s *Session) PendingEvents() []event.Event {
	events := s.events
	s.events = nil
	return events
}

func (s *Session) pending(id string) (roster.Player, error) {
	i, ok := s.index[id]
	if !ok {
		return roster.Player{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, id)
	}
	p := s.players[i]
	if !p.IsPending() {
		return roster.Player{}, fmt.Errorf("%w: %s is %s", ErrNotPending, p.Name, p.Status)
	}
	return p, nil
}

// commit appends d to the log, closes the lot and drops the player from the queue.
func (s *Session) commit(d Decision) {
	s.log = append(s.log, d)
	s.active = ""
	s.queue = slices.DeleteFunc(s.queue, func(q string) bool { return q == d.Subject() })
}

func (s *Session) reindex() {
	s.index = make(map[string]int, len(s.players))
	for i, p := range s.players {
		s.index[p.ID] = i
	}
}

func (s *Session) record(t event.Type, payload any) {
	data, _ := json.Marshal(payload)
	s.version++
	s.events = append(s.events, event.Event{
		AggregateID: s.id,
		Type:        t,
		Data:        data,
		Version:     s.version,
	})
}
