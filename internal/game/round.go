package game

import (
	"fmt"

	"github.com/lox/headsup/internal/deck"
)

// DefaultRaiseIncrement is the fixed raise size when none is configured.
const DefaultRaiseIncrement = 50

// RoundConfig holds the betting rules that stay fixed across hands.
type RoundConfig struct {
	RaiseIncrement int
	// MaxRaises caps raises per street; 0 means uncapped.
	MaxRaises int
}

// PlayerSeat describes a player joining a hand.
type PlayerSeat struct {
	ID    string
	Name  string
	Chips int
}

// EndReason says how a hand finished.
type EndReason string

const (
	EndFold     EndReason = "fold"
	EndShowdown EndReason = "showdown"
	EndAborted  EndReason = "aborted"
)

// Result is the outcome of a finished hand.
type Result struct {
	Reason EndReason
	// Winners lists the winning seats; two seats on a split.
	Winners []int
	// Payouts is indexed by seat and sums to Pot.
	Payouts []int
	Pot     int
	// Hands holds each seat's best hand description after a showdown.
	Hands []string
}

// IsSplit reports whether the pot was chopped.
func (r *Result) IsSplit() bool {
	return r != nil && len(r.Winners) > 1
}

// RoundState is the complete state of one hand.
type RoundState struct {
	HandNumber       int
	Stage            Stage
	Pot              int // chips collected from closed streets
	CurrentBet       int // bet level of the current street
	RaiseIncrement   int
	MaxRaises        int
	RaisesThisStreet int
	Players          []*Player
	Community        []deck.Card
	ToAct            int
	FirstToAct       int
	Result           *Result
	Deck             *deck.Deck

	pending []GameEvent
}

// NewRound deals a new hand: a freshly shuffled deck (or the one given with
// WithDeck), two hole cards each, stage Preflop with an empty pot.
func NewRound(cfg RoundConfig, seats []PlayerSeat, rng deck.RandSource, opts ...RoundOption) (*RoundState, error) {
	o := roundOptions{handNumber: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if rng == nil && o.deck == nil {
		panic("rng is required for round creation")
	}
	if len(seats) != 2 {
		return nil, fmt.Errorf("%w: heads-up needs 2 players, got %d", ErrInvalidRound, len(seats))
	}
	if o.firstToAct != 0 && o.firstToAct != 1 {
		return nil, fmt.Errorf("%w: first seat %d out of range", ErrInvalidRound, o.firstToAct)
	}
	if cfg.RaiseIncrement <= 0 {
		cfg.RaiseIncrement = DefaultRaiseIncrement
	}

	players := make([]*Player, len(seats))
	for i, s := range seats {
		if s.Chips <= 0 {
			return nil, fmt.Errorf("%w: player %q has no chips", ErrInvalidRound, s.ID)
		}
		players[i] = &Player{ID: s.ID, Name: s.Name, Seat: i, Chips: s.Chips}
	}

	d := o.deck
	if d == nil {
		d = deck.NewShuffled(rng)
	}

	r := &RoundState{
		HandNumber:     o.handNumber,
		Stage:          Preflop,
		RaiseIncrement: cfg.RaiseIncrement,
		MaxRaises:      cfg.MaxRaises,
		Players:        players,
		ToAct:          o.firstToAct,
		FirstToAct:     o.firstToAct,
		Deck:           d,
	}

	for _, p := range players {
		hole, err := d.Deal(2)
		if err != nil {
			return nil, fmt.Errorf("deal hole cards: %w", err)
		}
		p.Hole = hole
	}

	r.emit(newHandStartEvent(r))
	return r, nil
}

// NextRound starts the following hand with the chip counts from prev. The
// first seat alternates and the hand number increments.
func NextRound(prev *RoundState, rng deck.RandSource, opts ...RoundOption) (*RoundState, error) {
	seats := make([]PlayerSeat, len(prev.Players))
	for i, p := range prev.Players {
		seats[i] = PlayerSeat{ID: p.ID, Name: p.Name, Chips: p.Chips}
	}
	base := []RoundOption{
		WithHandNumber(prev.HandNumber + 1),
		WithFirstToAct(1 - prev.FirstToAct),
	}
	cfg := RoundConfig{RaiseIncrement: prev.RaiseIncrement, MaxRaises: prev.MaxRaises}
	return NewRound(cfg, seats, rng, append(base, opts...)...)
}

// TotalPot returns the pot including chips committed on the open street.
func (r *RoundState) TotalPot() int {
	total := r.Pot
	for _, p := range r.Players {
		total += p.Committed
	}
	return total
}

// TotalChips returns pot + Σchips + Σcommitted.
func (r *RoundState) TotalChips() int {
	total := r.TotalPot()
	for _, p := range r.Players {
		total += p.Chips
	}
	return total
}

// CheckConservation verifies that no chips were created or lost.
func (r *RoundState) CheckConservation(total int) error {
	if got := r.TotalChips(); got != total {
		return fmt.Errorf("%w: hand %d has %d chips, expected %d", ErrChipConservation, r.HandNumber, got, total)
	}
	return nil
}

// ToCall returns the chips seat must add to match the current bet.
func (r *RoundState) ToCall(seat int) int {
	return max(r.CurrentBet-r.Players[seat].Committed, 0)
}

// Opponent returns the other player.
func (r *RoundState) Opponent(seat int) *Player {
	return r.Players[1-seat]
}

// Abort cancels the hand and hands every player back what they put in.
// It is used when the deck runs out mid-hand.
func (r *RoundState) Abort(cause error) {
	if r.Stage == HandOver {
		return
	}
	payouts := make([]int, len(r.Players))
	for i, p := range r.Players {
		p.Chips += p.Contributed
		payouts[i] = p.Contributed
		p.Committed = 0
		p.Contributed = 0
		p.AllIn = false
	}
	r.Pot = 0
	r.CurrentBet = 0
	r.Stage = HandOver
	r.Result = &Result{Reason: EndAborted, Payouts: payouts}
	r.emit(HandAbortedEvent{HandNumber: r.HandNumber, Cause: cause, Refunds: payouts, timestamp: now()})
}

// DrainEvents returns the events emitted since the last call.
func (r *RoundState) DrainEvents() []GameEvent {
	events := r.pending
	r.pending = nil
	return events
}

func (r *RoundState) emit(e GameEvent) {
	r.pending = append(r.pending, e)
}
