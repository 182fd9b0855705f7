// Package policy decides actions for the computer opponent.
package policy

import (
	"fmt"
	"strings"

	"github.com/lox/headsup/internal/game"
)

// Float64Source is the random source a policy draws from.
// *math/rand/v2.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// Policy picks an action for seat given a view of the hand. Implementations
// hold no per-hand state; the same view and draw give the same action.
type Policy interface {
	Decide(view game.Snapshot, seat int, rng Float64Source) game.Action
	Name() string
}

// Config carries the tunables for every strategy New can build.
type Config struct {
	Fold  float64
	Call  float64
	Raise float64
	// Samples is the Monte Carlo sample count for the equity and chart
	// strategies.
	Samples int
}

// DefaultConfig matches the classic opponent: fold 30%, call 40%, raise 30%.
func DefaultConfig() Config {
	return Config{Fold: 0.3, Call: 0.4, Raise: 0.3, Samples: 400}
}

// Names lists the strategies New understands.
var Names = []string{"stochastic", "call", "raise", "equity", "chart"}

// New builds the named strategy.
func New(name string, cfg Config) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "stochastic", "random":
		return NewStochastic(cfg.Fold, cfg.Call, cfg.Raise)
	case "call", "always-call":
		return AlwaysCall{}, nil
	case "raise", "always-raise":
		return AlwaysRaise{}, nil
	case "equity":
		return NewEquity(cfg.Samples), nil
	case "chart":
		return NewChart(cfg.Samples), nil
	default:
		return nil, fmt.Errorf("unknown opponent strategy %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// Clamp rewrites an action the player cannot sensibly make:
//   - folding when nothing is owed becomes a check
//   - raising with no chips, against an all-in opponent, or past the raise
//     cap becomes a call
//   - raising when the stack covers the call but not the full raise becomes
//     a call
//
// Calls that cannot be covered are left for the state machine to clamp to
// an all-in.
func Clamp(view game.Snapshot, seat int, a game.Action) game.Action {
	me := view.Players[seat]
	opp := view.Opponent(seat)
	owed := view.ToCall(seat)

	switch a {
	case game.Fold:
		if owed == 0 {
			return game.Call
		}
	case game.Raise:
		switch {
		case me.Chips == 0, opp.AllIn, opp.Chips == 0:
			return game.Call
		case view.MaxRaises > 0 && view.RaisesThisStreet >= view.MaxRaises:
			return game.Call
		case me.Chips >= owed && me.Chips < owed+view.RaiseIncrement:
			return game.Call
		}
	}
	return a
}

// AlwaysCall checks or calls every street.
type AlwaysCall struct{}

func (AlwaysCall) Name() string { return "call" }

func (AlwaysCall) Decide(game.Snapshot, int, Float64Source) game.Action {
	return game.Call
}

// AlwaysRaise raises whenever it is allowed to.
type AlwaysRaise struct{}

func (AlwaysRaise) Name() string { return "raise" }

func (AlwaysRaise) Decide(view game.Snapshot, seat int, _ Float64Source) game.Action {
	return Clamp(view, seat, game.Raise)
}
