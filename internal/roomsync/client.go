// Package roomsync plays a heads-up hand between two processes that share
// nothing but a room document in a store.Backend. Every change goes through
// store.Update and replays the betting state machine on the freshly read
// state, so two clients acting at once can never both apply a stale move.
package roomsync

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	jsoniter "github.com/json-iterator/go"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/randutil"
	"github.com/lox/headsup/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrRoomFull  = errors.New("room is full")
	ErrNotSeated = errors.New("not seated")
	ErrWaiting   = errors.New("waiting for an opponent")
	ErrGameOver  = errors.New("game over")
)

const dealTimeout = 5 * time.Second

// Config identifies the room and player and carries the table rules used
// when this client creates the room.
type Config struct {
	Room           string
	PlayerID       string
	Name           string
	StartingChips  int
	RaiseIncrement int
	MaxRaises      int
	NextHandDelay  time.Duration
	// AutoDeal deals the next hand NextHandDelay after the previous one
	// ends. Both clients may run it; the second deal is a no-op.
	AutoDeal    bool
	MaxAttempts int
	Seed        int64
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for automatic dealing.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is one participant's connection to a room.
type Client struct {
	backend   store.Backend
	cfg       Config
	clock     quartz.Clock
	logger    *log.Logger
	formatter *game.EventFormatter

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.Mutex
	current   *room // last known-good state
	seat      int
	logSeq    int
	sub       store.Subscription
	timer     *quartz.Timer
	timerHand int
	closed    bool

	notifyMu  sync.Mutex
	observers game.ObserverSet
}

// New creates a client. Call Join to take a seat.
func New(b store.Backend, cfg Config, opts ...Option) *Client {
	if cfg.StartingChips <= 0 {
		cfg.StartingChips = 1000
	}
	if cfg.RaiseIncrement <= 0 {
		cfg.RaiseIncrement = game.DefaultRaiseIncrement
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = store.DefaultMaxAttempts
	}
	if cfg.Name == "" {
		cfg.Name = cfg.PlayerID
	}
	c := &Client{
		backend:   b,
		cfg:       cfg,
		seat:      -1,
		timerHand: -1,
		formatter: game.NewEventFormatter(game.FormattingOptions{Perspective: game.NoPerspective}),
		rng:       randutil.New(randutil.Seed(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = quartz.NewReal()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = c.logger.With("room", cfg.Room, "player", cfg.PlayerID)
	return c
}

func (c *Client) mutateOpts() []store.MutateOption {
	return []store.MutateOption{store.WithMaxAttempts(c.cfg.MaxAttempts)}
}

// Join takes the next free seat, creating the room if needed, and starts
// following the room. Joining a room the player already sits in resumes it.
func (c *Client) Join(ctx context.Context) error {
	res, err := store.Update(ctx, c.backend, c.cfg.Room, func(txn *store.Txn) error {
		rm, ok, err := readRoom(txn)
		if err != nil {
			return err
		}
		if !ok {
			rm = &room{table: newTable(c.cfg)}
		}
		for _, id := range rm.table.Seats {
			if id == c.cfg.PlayerID {
				return store.ErrAbort
			}
		}
		if len(rm.table.Seats) >= 2 {
			return ErrRoomFull
		}
		seat := len(rm.table.Seats)
		rm.table.Seats = append(rm.table.Seats, c.cfg.PlayerID)
		rm.players = append(rm.players, newPlayer(c.cfg.Name, seat, rm.table.StartingChips))
		rm.table.appendLog(fmt.Sprintf("%s joined the table.", c.cfg.Name))
		return rm.write(txn)
	}, c.mutateOpts()...)
	if err != nil {
		return fmt.Errorf("join %s: %w", c.cfg.Room, err)
	}
	if res.Status == store.Conflict {
		return fmt.Errorf("join %s: %w", c.cfg.Room, res.Err())
	}
	if res.Status == store.Aborted {
		c.logger.Info("Resuming seat")
	} else {
		c.logger.Info("Joined room")
	}

	sub, err := c.backend.Subscribe(ctx, c.cfg.Room, func(snap store.Snapshot) {
		if err := c.ingest(snap); err != nil {
			c.logger.Warn("Ignoring room snapshot", "revision", snap.Revision, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.Room, err)
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return c.Resync(ctx)
}

// Resync reads the full room and replaces the local state with it. It is
// how a reconnecting client catches up; local state is never trusted over
// the store.
func (c *Client) Resync(ctx context.Context) error {
	snap, err := c.backend.Snapshot(ctx, c.cfg.Room)
	if err != nil {
		return fmt.Errorf("resync %s: %w", c.cfg.Room, err)
	}
	return c.ingest(snap)
}

// ingest applies a snapshot if it is well formed and newer than the local
// state, and notifies observers with the log lines it added.
func (c *Client) ingest(snap store.Snapshot) error {
	rm, err := decodeRoom(snap)
	if err != nil {
		return err
	}
	view, err := rm.snapshot()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.current != nil && rm.revision <= c.current.revision {
		c.mu.Unlock()
		return nil
	}
	lines := rm.table.linesSince(c.logSeq)
	c.logSeq = rm.table.LogSeq
	c.current = rm
	c.seat = view.SeatOf(c.cfg.PlayerID)
	c.maybeScheduleDeal()

	u := game.Update{Snapshot: c.viewOf(view), Events: lines}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.observers.Notify(u)
	return nil
}

func (c *Client) viewOf(s game.Snapshot) game.Snapshot {
	// A spectator (seat -1) sees no hole cards until the showdown.
	return s.ForSeat(c.seat)
}

// View returns this player's view of the room.
func (c *Client) View() (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return game.Snapshot{}, ErrNotSeated
	}
	s, err := c.current.snapshot()
	if err != nil {
		return game.Snapshot{}, err
	}
	return c.viewOf(s), nil
}

// Seat returns this player's seat, or -1 before Join.
func (c *Client) Seat() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

// Revision returns the store revision of the local state.
func (c *Client) Revision() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.revision
}

// Subscribe registers an observer for room changes and sync warnings.
func (c *Client) Subscribe(o game.Observer) func() {
	return c.observers.Subscribe(o)
}

type guard struct {
	hand  int
	stage game.Stage
	toAct int
	bet   int
}

func guardOf(rm *room) guard {
	return guard{hand: rm.table.HandNumber, stage: rm.stage(), toAct: rm.table.ToAct, bet: *rm.table.CurrentBet}
}

// SubmitAction applies action for this player. It only commits if the hand,
// stage, turn and bet level in the store are still the ones this client
// last saw; otherwise nothing is written, observers get a warning and the
// returned error wraps store.ErrConflict. amount is accepted for callers
// that send one; raises are always the table's fixed increment.
func (c *Client) SubmitAction(ctx context.Context, action game.Action, amount ...int) error {
	c.mu.Lock()
	rm, seat := c.current, c.seat
	c.mu.Unlock()

	switch {
	case rm == nil || seat < 0:
		return ErrNotSeated
	case len(rm.table.Seats) < 2:
		return ErrWaiting
	case !rm.stage().IsBetting():
		return game.ErrHandOver
	case rm.table.ToAct != seat:
		return fmt.Errorf("%w: seat %d to act", game.ErrNotYourTurn, rm.table.ToAct)
	}
	if len(amount) > 0 && action == game.Raise && amount[0] != rm.table.RaiseIncrement {
		c.logger.Debug("Raise amount ignored", "amount", amount[0], "increment", rm.table.RaiseIncrement)
	}

	seen := guardOf(rm)
	var applied game.Outcome
	res, err := store.Update(ctx, c.backend, c.cfg.Room, func(txn *store.Txn) error {
		fresh, ok, err := readRoom(txn)
		if err != nil {
			return err
		}
		if !ok || guardOf(fresh) != seen {
			return store.ErrStale
		}
		r, err := fresh.round()
		if err != nil {
			return err
		}
		out, err := r.Act(seat, action)
		if err != nil && !errors.Is(err, deck.ErrDeckExhausted) {
			return err
		}
		applied = out
		fresh.apply(r, c.formatter.FormatAll(out.Events))
		return fresh.write(txn)
	}, c.mutateOpts()...)
	if err != nil {
		return fmt.Errorf("submit %s: %w", action, err)
	}
	if res.Status == store.Conflict {
		c.logger.Warn("Action lost a sync race", "action", action, "attempts", res.Attempts)
		c.warn(fmt.Sprintf("Sync conflict: your %s was not applied. The table changed; showing the latest state.", action))
		return fmt.Errorf("submit %s: %w", action, res.Err())
	}

	c.logger.Debug("Action committed",
		"requested", action,
		"applied", applied.Applied,
		"amount", applied.Amount,
		"attempts", res.Attempts)
	return c.Resync(ctx)
}

// NextHand deals the hand after the one this client last saw. If another
// client already dealt it, NextHand does nothing.
func (c *Client) NextHand(ctx context.Context) error {
	c.mu.Lock()
	rm := c.current
	c.mu.Unlock()
	if rm == nil {
		return ErrNotSeated
	}
	return c.deal(ctx, rm.table.HandNumber)
}

// deal starts hand seenHand+1 if the room is still at seenHand and over.
func (c *Client) deal(ctx context.Context, seenHand int) error {
	res, err := store.Update(ctx, c.backend, c.cfg.Room, func(txn *store.Txn) error {
		fresh, ok, err := readRoom(txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotSeated
		}
		if len(fresh.table.Seats) < 2 {
			return ErrWaiting
		}
		if fresh.stage() != game.HandOver || fresh.table.HandNumber != seenHand {
			return store.ErrAbort
		}
		for seat, p := range fresh.players {
			if *p.Chips == 0 {
				return fmt.Errorf("%w: seat %d is out of chips", ErrGameOver, seat)
			}
		}

		prev, err := fresh.round()
		if err != nil {
			return err
		}
		c.rngMu.Lock()
		defer c.rngMu.Unlock()
		var r *game.RoundState
		if fresh.table.HandNumber == 0 {
			seats := make([]game.PlayerSeat, len(prev.Players))
			for i, p := range prev.Players {
				seats[i] = game.PlayerSeat{ID: p.ID, Name: p.Name, Chips: p.Chips}
			}
			cfg := game.RoundConfig{RaiseIncrement: fresh.table.RaiseIncrement, MaxRaises: fresh.table.MaxRaises}
			r, err = game.NewRound(cfg, seats, c.rng)
		} else {
			r, err = game.NextRound(prev, c.rng)
		}
		if err != nil {
			return err
		}
		fresh.apply(r, c.formatter.FormatAll(r.DrainEvents()))
		return fresh.write(txn)
	}, c.mutateOpts()...)
	if err != nil {
		return fmt.Errorf("deal: %w", err)
	}
	switch res.Status {
	case store.Aborted:
		c.logger.Debug("Hand already dealt", "seen", seenHand)
	case store.Conflict:
		c.logger.Warn("Deal lost a sync race", "attempts", res.Attempts)
		c.warn("Sync conflict: could not deal the next hand.")
		return fmt.Errorf("deal: %w", res.Err())
	default:
		c.logger.Info("Dealt hand", "hand", seenHand+1)
	}
	return c.Resync(ctx)
}

// maybeScheduleDeal arms the auto-deal timer once per finished hand. Called
// with mu held.
func (c *Client) maybeScheduleDeal() {
	rm := c.current
	if !c.cfg.AutoDeal || c.seat < 0 || len(rm.table.Seats) < 2 || rm.stage() != game.HandOver {
		return
	}
	for _, p := range rm.players {
		if *p.Chips == 0 {
			return
		}
	}
	hand := rm.table.HandNumber
	if c.timerHand == hand {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerHand = hand
	c.timer = c.clock.AfterFunc(c.cfg.NextHandDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dealTimeout)
		defer cancel()
		if err := c.deal(ctx, hand); err != nil {
			c.logger.Warn("Automatic deal failed", "hand", hand+1, "error", err)
		}
	})
}

// pendingDeal reports the hand an armed auto-deal timer is waiting on.
func (c *Client) pendingDeal() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerHand, c.timer != nil
}

func (c *Client) warn(msg string) {
	c.mu.Lock()
	var view game.Snapshot
	if c.current != nil {
		if s, err := c.current.snapshot(); err == nil {
			view = c.viewOf(s)
		}
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.observers.Notify(game.Update{Snapshot: view, Warning: msg})
}

// Close stops following the room. The room document is left as it is.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	sub := c.sub
	c.mu.Unlock()
	if sub != nil {
		return sub.Close()
	}
	return nil
}
