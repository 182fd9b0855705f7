package policy

import (
	"fmt"
	"math"

	"github.com/lox/headsup/internal/game"
)

// Stochastic picks fold, call or raise with fixed probabilities. The three
// weights are normalized into a partition of [0,1): a draw below Fold folds,
// below Fold+Call calls, anything else raises.
type Stochastic struct {
	Fold  float64
	Call  float64
	Raise float64
}

// NewStochastic validates and normalizes the weights.
func NewStochastic(fold, call, raise float64) (Stochastic, error) {
	for _, w := range []float64{fold, call, raise} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Stochastic{}, fmt.Errorf("invalid opponent weight %v", w)
		}
	}
	total := fold + call + raise
	if total == 0 {
		return Stochastic{}, fmt.Errorf("opponent weights sum to zero")
	}
	return Stochastic{Fold: fold / total, Call: call / total, Raise: raise / total}, nil
}

func (s Stochastic) Name() string { return "stochastic" }

// Pick maps a draw u in [0,1) to an action without clamping.
func (s Stochastic) Pick(u float64) game.Action {
	switch {
	case u < s.Fold:
		return game.Fold
	case u < s.Fold+s.Call:
		return game.Call
	default:
		return game.Raise
	}
}

// Decide takes exactly one draw from rng.
func (s Stochastic) Decide(view game.Snapshot, seat int, rng Float64Source) game.Action {
	return Clamp(view, seat, s.Pick(rng.Float64()))
}

func (s Stochastic) String() string {
	return fmt.Sprintf("fold %.0f%% / call %.0f%% / raise %.0f%%", s.Fold*100, s.Call*100, s.Raise*100)
}
