package phh

import (
	"strings"

	"github.com/lox/headsup/internal/deck"
)

// Card writes c in PHH notation: ASCII rank then lower-case suit, "Th".
func Card(c deck.Card) string {
	if !c.Valid() {
		return "??"
	}
	rank := c.Rank.String()
	if c.Rank == deck.Ten {
		rank = "T"
	}
	var suit string
	switch c.Suit {
	case deck.Spades:
		suit = "s"
	case deck.Hearts:
		suit = "h"
	case deck.Diamonds:
		suit = "d"
	default:
		suit = "c"
	}
	return rank + suit
}

// Cards concatenates cards without separators, "AsKd". Nil gives one
// "??" per unknown card, n of them.
func Cards(cards []deck.Card, n int) string {
	if len(cards) == 0 {
		return strings.Repeat("??", n)
	}
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(Card(c))
	}
	return b.String()
}
