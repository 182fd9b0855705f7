// Package evaluator ranks poker hands. Evaluate finds the best five-card
// hand in five to seven cards by trying every five-card subset, and Compare
// gives a strict total order over the results.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/headsup/internal/deck"
)

// ErrInvalidHand is returned for card sets Evaluate cannot rank.
var ErrInvalidHand = errors.New("invalid hand")

// Evaluate returns the best HandRank among all five-card subsets of cards.
// It accepts five to seven distinct cards; the input order does not matter.
func Evaluate(cards []deck.Card) (HandRank, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandRank{}, fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidHand, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return HandRank{}, fmt.Errorf("%w: bad card %d/%d", ErrInvalidHand, c.Rank, c.Suit)
		}
		if seen[c] {
			return HandRank{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c)
		}
		seen[c] = true
	}

	var (
		best  HandRank
		found bool
		five  [5]deck.Card
	)
	forEachCombination(len(cards), 5, func(idx []int) {
		for i, j := range idx {
			five[i] = cards[j]
		}
		rank := evaluateFive(five)
		if !found || Compare(rank, best) == Greater {
			best, found = rank, true
		}
	})
	return best, nil
}

// MustEvaluate is Evaluate for known-good input; it panics on error.
func MustEvaluate(cards []deck.Card) HandRank {
	rank, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return rank
}

// Best evaluates hole cards together with the board.
func Best(hole, board []deck.Card) (HandRank, error) {
	all := make([]deck.Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	return Evaluate(all)
}

// forEachCombination calls fn with every k-subset of [0, n) as ascending
// indices. The slice is reused between calls.
func forEachCombination(n, k int, fn func(idx []int)) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// rankGroup is a rank and how many of the five cards carry it.
type rankGroup struct {
	rank  deck.Rank
	count int
}

// evaluateFive classifies exactly five cards.
func evaluateFive(five [5]deck.Card) HandRank {
	cards := five[:]
	sorted := make([]deck.Card, 5)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank > sorted[j].Rank
		}
		return sorted[i].Suit < sorted[j].Suit
	})

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	high, straight := straightHigh(sorted)
	if straight {
		ordered := sorted
		if high == deck.Five && sorted[0].Rank == deck.Ace {
			// Wheel: the ace plays low.
			ordered = append(append([]deck.Card{}, sorted[1:]...), sorted[0])
		}
		switch {
		case flush && high == deck.Ace:
			return HandRank{Category: RoyalFlush, Tiebreakers: []deck.Rank{}, Cards: ordered}
		case flush:
			return HandRank{Category: StraightFlush, Tiebreakers: []deck.Rank{high}, Cards: ordered}
		}
		// A plain straight still loses to quads and full houses, but five
		// distinct ranks rule both out, so it can be returned here.
		return HandRank{Category: Straight, Tiebreakers: []deck.Rank{high}, Cards: ordered}
	}

	groups := groupRanks(sorted)
	tiebreakers := make([]deck.Rank, len(groups))
	for i, g := range groups {
		tiebreakers[i] = g.rank
	}
	ordered := orderByGroups(sorted, groups)

	var category Category
	switch {
	case groups[0].count == 4:
		category = Quads
	case groups[0].count == 3 && groups[1].count == 2:
		category = FullHouse
	case flush:
		category = Flush
	case groups[0].count == 3:
		category = Trips
	case groups[0].count == 2 && groups[1].count == 2:
		category = TwoPair
	case groups[0].count == 2:
		category = Pair
	default:
		category = HighCard
	}

	return HandRank{Category: category, Tiebreakers: tiebreakers, Cards: ordered}
}

// straightHigh reports whether the rank-descending cards form a straight and
// its high card. A-2-3-4-5 counts with a high card of Five.
func straightHigh(sorted []deck.Card) (deck.Rank, bool) {
	consecutive := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Rank != sorted[i-1].Rank-1 {
			consecutive = false
			break
		}
	}
	if consecutive {
		return sorted[0].Rank, true
	}

	if sorted[0].Rank == deck.Ace &&
		sorted[1].Rank == deck.Five &&
		sorted[2].Rank == deck.Four &&
		sorted[3].Rank == deck.Three &&
		sorted[4].Rank == deck.Two {
		return deck.Five, true
	}
	return 0, false
}

// groupRanks groups cards by rank, largest group first, then higher rank first.
func groupRanks(sorted []deck.Card) []rankGroup {
	var groups []rankGroup
	for _, c := range sorted {
		if n := len(groups); n > 0 && groups[n-1].rank == c.Rank {
			groups[n-1].count++
			continue
		}
		groups = append(groups, rankGroup{rank: c.Rank, count: 1})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// orderByGroups lays the cards out in tiebreaker order: the biggest group
// first, kickers last.
func orderByGroups(sorted []deck.Card, groups []rankGroup) []deck.Card {
	out := make([]deck.Card, 0, len(sorted))
	for _, g := range groups {
		for _, c := range sorted {
			if c.Rank == g.rank {
				out = append(out, c)
			}
		}
	}
	return out
}
