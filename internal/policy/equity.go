package policy

import (
	"context"
	"math"

	"github.com/lox/headsup/internal/evaluator"
	"github.com/lox/headsup/internal/game"
)

// Equity plays by estimated win probability against a random hand: raise
// when well ahead, fold when well behind and facing a bet, otherwise call.
type Equity struct {
	Samples    int
	RaiseAbove float64
	FoldBelow  float64
}

// NewEquity returns an Equity policy with the usual thresholds.
func NewEquity(samples int) Equity {
	if samples <= 0 {
		samples = 400
	}
	return Equity{Samples: samples, RaiseAbove: 0.65, FoldBelow: 0.35}
}

func (e Equity) Name() string { return "equity" }

// Decide takes one draw from rng and uses it to seed the simulation. The
// simulation runs to completion, so the same view and draw always give the
// same action. A view the evaluator rejects is played as a call.
func (e Equity) Decide(view game.Snapshot, seat int, rng Float64Source) game.Action {
	seed := int64(rng.Float64() * math.MaxInt32)
	me := view.Players[seat]

	eq, err := evaluator.EstimateEquity(context.Background(), me.Hole, view.Community, e.Samples, seed)
	if err != nil {
		return Clamp(view, seat, game.Call)
	}

	switch v := eq.Value(); {
	case v >= e.RaiseAbove:
		return Clamp(view, seat, game.Raise)
	case v < e.FoldBelow:
		return Clamp(view, seat, game.Fold)
	default:
		return game.Call
	}
}
