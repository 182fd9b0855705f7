package game

import "github.com/lox/headsup/internal/deck"

// RoundOption configures a RoundState during creation.
type RoundOption func(*roundOptions)

type roundOptions struct {
	deck       *deck.Deck // overrides the RNG when set
	handNumber int
	firstToAct int
}

// WithDeck deals from the given deck instead of shuffling a fresh one.
// Tests use it to script exact hands or to force ErrDeckExhausted.
func WithDeck(d *deck.Deck) RoundOption {
	return func(o *roundOptions) {
		o.deck = d
	}
}

// WithHandNumber sets the hand counter. Default is 1.
func WithHandNumber(n int) RoundOption {
	return func(o *roundOptions) {
		o.handNumber = n
	}
}

// WithFirstToAct picks the seat that acts first on every street. Default 0.
func WithFirstToAct(seat int) RoundOption {
	return func(o *roundOptions) {
		o.firstToAct = seat
	}
}
