package deck

import (
	"errors"
	"fmt"
)

// ErrDeckExhausted is returned when more cards are requested than remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// RandSource is the uniform random generator used for shuffling.
// *math/rand/v2.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// Deck represents a deck of playing cards. Cards are dealt from the top
// (index 0) and never returned.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck in a fixed order: suits ♠ ♥ ♦ ♣,
// ranks Two to Ace within each suit.
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	return d
}

// NewShuffled creates a fresh deck and shuffles it with rng.
func NewShuffled(rng RandSource) *Deck {
	d := New()
	d.Shuffle(rng)
	return d
}

// FromCards creates a deck that deals the given cards in order. It is meant
// for scripted hands; duplicates are rejected.
func FromCards(cards []Card) (*Deck, error) {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card %v", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}
	return &Deck{cards: append([]Card(nil), cards...)}, nil
}

// Shuffle randomizes the remaining cards in place using Fisher-Yates.
func (d *Deck) Shuffle(rng RandSource) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top n cards. The deck is left untouched when
// fewer than n cards remain.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d cards: negative count", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d cards with %d remaining: %w", n, len(d.cards), ErrDeckExhausted)
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards in dealing order.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}
