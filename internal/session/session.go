// Package session runs a single-process heads-up match: the human in seat 0
// against a policy-driven opponent in seat 1, with the next hand dealt by a
// cancellable timer.
package session

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/randutil"
)

const (
	HumanSeat    = 0
	OpponentSeat = 1

	historyLimit = 200
)

var (
	ErrNotStarted     = errors.New("session not started")
	ErrGameOver       = errors.New("game over")
	ErrClosed         = errors.New("session closed")
	ErrHandInProgress = errors.New("hand in progress")
)

// Config holds the match settings.
type Config struct {
	StartingChips  int
	RaiseIncrement int
	MaxRaises      int
	NextHandDelay  time.Duration
	Seed           int64
	HumanName      string
	OpponentName   string
}

// DefaultConfig returns the classic settings: 1000 chips each, raises of 50,
// two seconds between hands.
func DefaultConfig() Config {
	return Config{
		StartingChips:  1000,
		RaiseIncrement: game.DefaultRaiseIncrement,
		NextHandDelay:  2 * time.Second,
		HumanName:      "You",
		OpponentName:   "AI",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StartingChips <= 0 {
		c.StartingChips = d.StartingChips
	}
	if c.RaiseIncrement <= 0 {
		c.RaiseIncrement = d.RaiseIncrement
	}
	if c.NextHandDelay < 0 {
		c.NextHandDelay = 0
	}
	if c.HumanName == "" {
		c.HumanName = d.HumanName
	}
	if c.OpponentName == "" {
		c.OpponentName = d.OpponentName
	}
	return c
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for the inter-hand timer.
func WithClock(clock quartz.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDecks supplies the deck for every new hand. Returning nil shuffles a
// fresh one.
func WithDecks(next func(hand int) *deck.Deck) Option {
	return func(s *Session) { s.decks = next }
}

// Session serializes every state change under one mutex. The opponent's
// decisions run inside the same step as the human action that handed it the
// turn.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	seed   int64
	clock  quartz.Clock
	logger *log.Logger
	policy policy.Policy

	deckRNG   *rand.Rand
	policyRNG *rand.Rand
	decks     func(hand int) *deck.Deck

	round     *game.RoundState
	total     int
	formatter *game.EventFormatter
	bus       *game.SimpleEventBus
	history   []string

	timer *quartz.Timer
	gen   uint64

	gameOver bool
	closed   bool

	// notifyMu orders deliveries without holding mu while observers run.
	notifyMu  sync.Mutex
	observers game.ObserverSet
}

// New creates a session. Call Start to deal the first hand.
func New(cfg Config, p policy.Policy, opts ...Option) *Session {
	if p == nil {
		panic("policy is required")
	}
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:       cfg,
		seed:      randutil.Seed(cfg.Seed),
		policy:    p,
		formatter: game.NewEventFormatter(game.FormattingOptions{Perspective: HumanSeat}),
		bus:       game.NewEventBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithPrefix("session")

	root := randutil.New(s.seed)
	s.deckRNG = randutil.Split(root)
	s.policyRNG = randutil.Split(root)

	s.bus.Subscribe(game.EventSubscriberFunc(s.logEvent))

	s.logger.Info("Session created",
		"seed", s.seed,
		"opponent", p.Name(),
		"chips", cfg.StartingChips,
		"raise", cfg.RaiseIncrement)
	return s
}

// Seed returns the seed actually used, so a match can be replayed.
func (s *Session) Seed() int64 { return s.seed }

// Start deals the first hand.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.round != nil {
		s.mu.Unlock()
		return nil
	}
	lines, err := s.newMatch()
	s.deliver(lines, err)
	return err
}

// Act applies the human's action, then lets the opponent play until the
// human is to act again or the hand is over.
func (s *Session) Act(action game.Action) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.round == nil:
		s.mu.Unlock()
		return ErrNotStarted
	case s.gameOver:
		s.mu.Unlock()
		return ErrGameOver
	}

	out, err := s.round.Act(HumanSeat, action)
	if err != nil && !errors.Is(err, deck.ErrDeckExhausted) {
		s.mu.Unlock()
		return err
	}
	lines := s.record(out.Events)
	if err != nil {
		s.logger.Warn("Hand aborted", "hand", s.round.HandNumber, "error", err)
	} else {
		lines = append(lines, s.playOpponent()...)
	}
	lines = append(lines, s.settle()...)
	s.deliver(lines, nil)
	return nil
}

// DealNow starts the next hand immediately, cancelling the pending timer.
func (s *Session) DealNow() error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.round == nil:
		s.mu.Unlock()
		return ErrNotStarted
	case s.gameOver:
		s.mu.Unlock()
		return ErrGameOver
	case s.round.Stage != game.HandOver:
		s.mu.Unlock()
		return ErrHandInProgress
	}
	s.cancelTimer()
	lines, err := s.nextHand()
	s.deliver(lines, err)
	return err
}

// Rebuy resets both stacks and starts a new match.
func (s *Session) Rebuy() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cancelTimer()
	s.gameOver = false
	lines, err := s.newMatch()
	s.deliver(lines, err)
	return err
}

// Snapshot returns the human's view of the current hand.
func (s *Session) Snapshot() (game.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return game.Snapshot{}, ErrNotStarted
	}
	return s.round.Snapshot().ForSeat(HumanSeat), nil
}

// History returns the most recent log lines, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// GameOver reports whether a player has busted.
func (s *Session) GameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameOver
}

// Subscribe registers an observer for every state change. Observers run on
// the goroutine that made the change and must not call Act, DealNow or
// Rebuy synchronously.
func (s *Session) Subscribe(o game.Observer) func() {
	return s.observers.Subscribe(o)
}

// SubscribeEvents registers a subscriber for the raw game events.
func (s *Session) SubscribeEvents(sub game.EventSubscriber) func() {
	return s.bus.Subscribe(sub)
}

// Close stops the pending timer. Further calls fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimer()
	s.closed = true
}

func (s *Session) seats(chips int) []game.PlayerSeat {
	return []game.PlayerSeat{
		{ID: "human", Name: s.cfg.HumanName, Chips: chips},
		{ID: "opponent", Name: s.cfg.OpponentName, Chips: chips},
	}
}

// newMatch deals hand 1 (or the hand after the current one) with fresh stacks.
// Called with mu held.
func (s *Session) newMatch() ([]string, error) {
	hand := 1
	if s.round != nil {
		hand = s.round.HandNumber + 1
	}
	opts := []game.RoundOption{game.WithHandNumber(hand)}
	if d := s.deckFor(hand); d != nil {
		opts = append(opts, game.WithDeck(d))
	}
	cfg := game.RoundConfig{RaiseIncrement: s.cfg.RaiseIncrement, MaxRaises: s.cfg.MaxRaises}
	r, err := game.NewRound(cfg, s.seats(s.cfg.StartingChips), s.deckRNG, opts...)
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	s.round = r
	s.total = r.TotalChips()
	return s.begin(), nil
}

// nextHand deals the following hand with the chips carried over. Called
// with mu held.
func (s *Session) nextHand() ([]string, error) {
	hand := s.round.HandNumber + 1
	var opts []game.RoundOption
	if d := s.deckFor(hand); d != nil {
		opts = append(opts, game.WithDeck(d))
	}
	r, err := game.NextRound(s.round, s.deckRNG, opts...)
	if err != nil {
		return nil, fmt.Errorf("deal hand %d: %w", hand, err)
	}
	s.round = r
	return s.begin(), nil
}

func (s *Session) deckFor(hand int) *deck.Deck {
	if s.decks == nil {
		return nil
	}
	return s.decks(hand)
}

// begin records the hand start and plays the opponent if it acts first.
func (s *Session) begin() []string {
	s.logger.Info("Hand started",
		"hand", s.round.HandNumber,
		"first", s.round.Players[s.round.FirstToAct].DisplayName())
	lines := s.record(s.round.DrainEvents())
	lines = append(lines, s.playOpponent()...)
	return append(lines, s.settle()...)
}

// playOpponent lets the policy act while it holds the turn.
func (s *Session) playOpponent() []string {
	var lines []string
	for s.round.Stage.IsBetting() && s.round.ToAct == OpponentSeat {
		view := s.round.Snapshot().ForSeat(OpponentSeat)
		action := s.policy.Decide(view, OpponentSeat, s.policyRNG)
		out, err := s.round.Act(OpponentSeat, action)
		lines = append(lines, s.record(out.Events)...)
		if err != nil {
			s.logger.Warn("Hand aborted", "hand", s.round.HandNumber, "error", err)
			break
		}
	}
	return lines
}

// settle checks conservation and, once the hand is over, either ends the
// match or schedules the next hand.
func (s *Session) settle() []string {
	var lines []string
	if err := s.round.CheckConservation(s.total); err != nil {
		s.logger.Error("Chip conservation violated", "error", err)
	}
	if s.round.Stage != game.HandOver {
		return lines
	}

	for _, p := range s.round.Players {
		if p.Chips > 0 {
			continue
		}
		winner := s.round.Opponent(p.Seat)
		s.gameOver = true
		line := fmt.Sprintf("Game over! %s wins the match.", winner.DisplayName())
		if winner.Seat == HumanSeat {
			line = "Game over! You win the match."
		}
		s.logger.Info("Match finished", "winner", winner.DisplayName(), "hands", s.round.HandNumber)
		s.appendHistory(line)
		return append(lines, line)
	}

	s.schedule()
	return lines
}

// schedule arms the next-hand timer, replacing any pending one.
func (s *Session) schedule() {
	s.cancelTimer()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.cfg.NextHandDelay, func() {
		s.fire(gen)
	})
	s.logger.Debug("Next hand scheduled", "delay", s.cfg.NextHandDelay)
}

// fire runs when the timer expires. Stale generations are ignored.
func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed || s.gameOver || s.round == nil || s.round.Stage != game.HandOver {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.gen++
	lines, err := s.nextHand()
	if err != nil {
		s.logger.Error("Failed to deal next hand", "error", err)
	}
	s.deliver(lines, err)
}

// cancelTimer stops the pending timer and invalidates its callback.
func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Session) record(events []game.GameEvent) []string {
	for _, e := range events {
		s.bus.Publish(e)
	}
	lines := s.formatter.FormatAll(events)
	s.appendHistory(lines...)
	return lines
}

func (s *Session) appendHistory(lines ...string) {
	s.history = append(s.history, lines...)
	if n := len(s.history) - historyLimit; n > 0 {
		s.history = append(s.history[:0:0], s.history[n:]...)
	}
}

func (s *Session) logEvent(e game.GameEvent) {
	switch ev := e.(type) {
	case game.PlayerActionEvent:
		s.logger.Debug("Player action",
			"hand", ev.HandNumber,
			"player", ev.Name,
			"requested", ev.Requested,
			"applied", ev.Action,
			"amount", ev.Amount,
			"pot", ev.PotAfter)
	case game.StreetChangeEvent:
		s.logger.Debug("Street change", "hand", ev.HandNumber, "stage", ev.Stage, "board", deck.FormatCards(ev.Community))
	case game.HandEndEvent:
		s.logger.Info("Hand finished",
			"hand", ev.HandNumber,
			"reason", ev.Result.Reason,
			"winners", ev.Result.Winners,
			"pot", ev.Result.Pot)
	case game.HandAbortedEvent:
		s.logger.Warn("Hand cancelled", "hand", ev.HandNumber, "cause", ev.Cause, "refunds", ev.Refunds)
	}
}

// deliver releases mu and pushes one Update to every observer. notifyMu is
// taken before mu is released so updates arrive in commit order.
func (s *Session) deliver(lines []string, err error) {
	var snap game.Snapshot
	if s.round != nil {
		snap = s.round.Snapshot().ForSeat(HumanSeat)
	}
	u := game.Update{Snapshot: snap, Events: lines}
	if err != nil {
		u.Warning = err.Error()
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	s.observers.Notify(u)
}
