package phh

import (
	"fmt"
	"sync"

	"github.com/lox/headsup/internal/game"
)

// Recorder builds a HandHistory from the game event stream and passes each
// finished hand to a sink. It implements game.EventSubscriber.
//
// Hole cards are written as "????" unless shown at showdown.
type Recorder struct {
	table          string
	raiseIncrement int
	sink           func(*HandHistory) error
	onError        func(error)

	mu    sync.Mutex
	hand  *HandHistory
	board int
}

// NewRecorder records hands played with the given raise size. Sink errors go
// to onError, which may be nil.
func NewRecorder(table string, raiseIncrement int, sink func(*HandHistory) error, onError func(error)) *Recorder {
	return &Recorder{table: table, raiseIncrement: raiseIncrement, sink: sink, onError: onError}
}

// OnEvent implements game.EventSubscriber.
func (r *Recorder) OnEvent(event game.GameEvent) {
	r.mu.Lock()
	finished := r.apply(event)
	r.mu.Unlock()

	if finished == nil {
		return
	}
	if err := r.sink(finished); err != nil && r.onError != nil {
		r.onError(err)
	}
}

// apply updates the hand in progress and returns it once it is over.
// Called with mu held.
func (r *Recorder) apply(event game.GameEvent) *HandHistory {
	switch e := event.(type) {
	case game.HandStartEvent:
		r.start(e)
	case game.PlayerActionEvent:
		if r.hand == nil {
			return nil
		}
		r.hand.Actions = append(r.hand.Actions, action(e))
	case game.StreetChangeEvent:
		if r.hand == nil || len(e.Community) <= r.board {
			return nil
		}
		r.hand.Actions = append(r.hand.Actions, "d db "+Cards(e.Community[r.board:], 0))
		r.board = len(e.Community)
	case game.ShowdownEvent:
		if r.hand == nil {
			return nil
		}
		for _, h := range e.Hands {
			r.hand.Actions = append(r.hand.Actions, fmt.Sprintf("p%d sm %s", h.Seat+1, Cards(h.Hole, 2)))
		}
	case game.HandEndEvent:
		if r.hand == nil {
			return nil
		}
		return r.finish(e.Stacks, e.Result.Payouts, nil)
	case game.HandAbortedEvent:
		if r.hand == nil {
			return nil
		}
		return r.finish(r.hand.StartingStacks, nil, e.Cause)
	}
	return nil
}

func (r *Recorder) start(e game.HandStartEvent) {
	h := &HandHistory{
		Variant:           FixedLimitHoldem,
		Table:             r.table,
		Antes:             make([]int, len(e.Seats)),
		BlindsOrStraddles: make([]int, len(e.Seats)),
		SmallBet:          r.raiseIncrement,
		BigBet:            r.raiseIncrement,
		StartingStacks:    make([]int, len(e.Seats)),
		Players:           make([]string, len(e.Seats)),
		Hand:              e.HandNumber,
		Metadata:          map[string]any{"first_to_act": fmt.Sprintf("p%d", e.FirstToAct+1)},
	}
	h.stamp(e.Timestamp())
	for i, s := range e.Seats {
		h.StartingStacks[i] = s.Chips
		h.Players[i] = s.Name
		h.Actions = append(h.Actions, fmt.Sprintf("d dh p%d ????", i+1))
	}
	r.hand = h
	r.board = 0
}

// finish closes the hand with the final stacks and the chips won by each
// seat. An aborted hand refunds everything and wins nothing.
func (r *Recorder) finish(stacks, winnings []int, cause error) *HandHistory {
	h := r.hand
	r.hand = nil
	h.FinishingStacks = append([]int(nil), stacks...)
	h.Winnings = make([]int, len(h.StartingStacks))
	copy(h.Winnings, winnings)
	if cause != nil {
		h.Metadata["aborted"] = cause.Error()
	}
	return h
}

func action(e game.PlayerActionEvent) string {
	switch e.Action {
	case game.Fold:
		return fmt.Sprintf("p%d f", e.Seat+1)
	case game.Raise:
		return fmt.Sprintf("p%d cbr %d", e.Seat+1, e.BetLevel)
	default:
		return fmt.Sprintf("p%d cc", e.Seat+1)
	}
}

var _ game.EventSubscriber = (*Recorder)(nil)
