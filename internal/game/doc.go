// Package game implements heads-up fixed-increment Texas Hold'em.
//
// The main type is RoundState, which holds everything about a single hand:
// both players, the deck, the community cards, the pot and whose turn it is.
// All mutation goes through Act, which validates the action, moves chips,
// closes streets and resolves the hand.
//
// # Basic Usage
//
//	rng := randutil.New(42)
//	r, err := game.NewRound(game.RoundConfig{RaiseIncrement: 50},
//	    []game.PlayerSeat{{ID: "you", Chips: 1000}, {ID: "ai", Chips: 1000}}, rng)
//	out, err := r.Act(r.ToAct, game.Raise)
//	if r.Stage == game.HandOver {
//	    next, err := game.NextRound(r, rng)
//	}
//
// # Chip Accounting
//
// Chips committed during a street stay in Player.Committed until the street
// closes, then move into Pot. pot + Σchips + Σcommitted is constant for the
// whole hand, and CheckConservation verifies it. Calls and raises a player
// cannot cover are clamped to an all-in rather than rejected.
//
// # Presentation
//
// The package never renders anything. Act returns typed events which an
// EventFormatter turns into log lines, and Snapshot returns a deep copy that
// observers can keep.
package game
