package policy

import (
	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
)

// Chart plays preflop from a starting-hand chart and hands over to Equity
// once the flop is out.
type Chart struct {
	Postflop Equity
	// RaiseAbove and FoldBelow are starting-hand percentiles.
	RaiseAbove float64
	FoldBelow  float64
	// Bluff is the chance of raising a hand that would only call.
	Bluff float64
}

// NewChart returns a Chart raising the top fifth of hands preflop and
// folding the bottom quarter to a bet.
func NewChart(samples int) Chart {
	return Chart{Postflop: NewEquity(samples), RaiseAbove: 0.8, FoldBelow: 0.25, Bluff: 0.1}
}

func (c Chart) Name() string { return "chart" }

// Decide takes exactly one draw from rng on every street.
func (c Chart) Decide(view game.Snapshot, seat int, rng Float64Source) game.Action {
	if len(view.Community) > 0 {
		return c.Postflop.Decide(view, seat, rng)
	}
	u := rng.Float64()
	pct, ok := deck.StartingHandPercentile(view.Players[seat].Hole)
	if !ok {
		return Clamp(view, seat, game.Call)
	}
	switch {
	case pct >= c.RaiseAbove:
		return Clamp(view, seat, game.Raise)
	case pct < c.FoldBelow:
		return Clamp(view, seat, game.Fold)
	case u < c.Bluff:
		return Clamp(view, seat, game.Raise)
	default:
		return game.Call
	}
}
