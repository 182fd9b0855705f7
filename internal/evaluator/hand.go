package evaluator

import (
	"fmt"

	"github.com/lox/headsup/internal/deck"
)

// Category is the class of a five-card poker hand, weakest first.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
	RoyalFlush
)

// String returns the string representation of a hand category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case Trips:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case Quads:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Ordering is the result of comparing two hands.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// HandRank is the strength of the best five-card hand found in a set of cards.
type HandRank struct {
	Category Category
	// Tiebreakers are compared lexicographically within a category,
	// e.g. Quads [quad, kicker], TwoPair [high pair, low pair, kicker].
	Tiebreakers []deck.Rank
	// Cards are the five cards making the hand, most significant first.
	Cards []deck.Card
}

// Compare orders a against b: category first, then tiebreakers.
func Compare(a, b HandRank) Ordering {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return Greater
		}
		return Less
	}
	for i := 0; i < len(a.Tiebreakers) && i < len(b.Tiebreakers); i++ {
		if a.Tiebreakers[i] > b.Tiebreakers[i] {
			return Greater
		}
		if a.Tiebreakers[i] < b.Tiebreakers[i] {
			return Less
		}
	}
	// Within a category the tiebreaker length is fixed, so this only
	// matters for hand-built values.
	switch {
	case len(a.Tiebreakers) > len(b.Tiebreakers):
		return Greater
	case len(a.Tiebreakers) < len(b.Tiebreakers):
		return Less
	}
	return Equal
}

// Compare compares h against other
func (h HandRank) Compare(other HandRank) Ordering {
	return Compare(h, other)
}

// Beats returns true if h is strictly stronger than other
func (h HandRank) Beats(other HandRank) bool {
	return Compare(h, other) == Greater
}

// String describes the hand, e.g. "Full House, Twos over Nines".
func (h HandRank) String() string {
	tb := h.Tiebreakers
	at := func(i int) deck.Rank {
		if i < len(tb) {
			return tb[i]
		}
		return 0
	}

	switch h.Category {
	case HighCard:
		return fmt.Sprintf("High Card, %s", at(0).Name())
	case Pair:
		return fmt.Sprintf("Pair of %s", at(0).Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", at(0).Plural(), at(1).Plural())
	case Trips:
		return fmt.Sprintf("Three of a Kind, %s", at(0).Plural())
	case Straight:
		return fmt.Sprintf("Straight, %s high", at(0).Name())
	case Flush:
		return fmt.Sprintf("Flush, %s high", at(0).Name())
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", at(0).Plural(), at(1).Plural())
	case Quads:
		return fmt.Sprintf("Four of a Kind, %s", at(0).Plural())
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", at(0).Name())
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Describe returns the hand description followed by its cards.
func (h HandRank) Describe() string {
	if len(h.Cards) == 0 {
		return h.String()
	}
	return fmt.Sprintf("%s [%s]", h.String(), deck.FormatCards(h.Cards))
}

// CompareWithExplanation compares two hands and explains the deciding factor.
func CompareWithExplanation(a, b HandRank) (Ordering, string) {
	result := Compare(a, b)
	if result == Equal {
		return result, "hands tie"
	}

	winner, loser := a, b
	if result == Less {
		winner, loser = b, a
	}

	explanation := fmt.Sprintf("%s beats %s", winner, loser)
	if winner.Category != loser.Category {
		return result, explanation
	}
	for i := range winner.Tiebreakers {
		if i >= len(loser.Tiebreakers) || winner.Tiebreakers[i] == loser.Tiebreakers[i] {
			continue
		}
		what := "kicker"
		if i < primaryTiebreakers(winner.Category) {
			what = "rank"
		}
		explanation += fmt.Sprintf(" (higher %s: %s vs %s)", what, winner.Tiebreakers[i], loser.Tiebreakers[i])
		break
	}
	return result, explanation
}

// primaryTiebreakers is the number of leading tiebreakers that describe the
// made hand rather than kickers.
func primaryTiebreakers(c Category) int {
	switch c {
	case TwoPair, FullHouse:
		return 2
	case Flush, HighCard:
		return 5
	default:
		return 1
	}
}
