package game

import (
	"errors"
	"testing"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/randutil"
)

// TestChipConservationUnderRandomPlay plays many hands with random actions
// and uneven stacks, checking after every action that no chips appear or
// vanish and that stages only move forward.
func TestChipConservationUnderRandomPlay(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 150; seed++ {
		rng := randutil.New(seed)
		stacks := []int{20 + rng.IntN(400), 20 + rng.IntN(400)}
		total := stacks[0] + stacks[1]
		cfg := RoundConfig{RaiseIncrement: 10 + 10*rng.IntN(5), MaxRaises: rng.IntN(4)}

		r, err := NewRound(cfg, seats(stacks...), rng)
		if err != nil {
			t.Fatalf("seed %d: NewRound: %v", seed, err)
		}

		for hand := 0; hand < 30; hand++ {
			last := r.Stage
			for steps := 0; r.Stage != HandOver; steps++ {
				if steps > 200 {
					t.Fatalf("seed %d hand %d: hand did not finish", seed, hand)
				}
				action := Action(rng.IntN(3))
				// Fold rarely so hands reach the later streets.
				if action == Fold && rng.IntN(4) != 0 {
					action = Call
				}
				out, err := r.Act(r.ToAct, action)
				if err != nil {
					t.Fatalf("seed %d hand %d: act %s: %v", seed, hand, action, err)
				}
				if out.Downgraded != nil && out.Applied == action && !errors.Is(out.Downgraded, ErrInsufficientChips) {
					t.Fatalf("seed %d: downgrade %v reported without a change of action", seed, out.Downgraded)
				}
				if err := r.CheckConservation(total); err != nil {
					t.Fatalf("seed %d hand %d: %v", seed, hand, err)
				}
				if r.Stage < last {
					t.Fatalf("seed %d hand %d: stage went back from %s to %s", seed, hand, last, r.Stage)
				}
				if r.Stage != HandOver && len(r.Community) != r.Stage.boardSize() {
					t.Fatalf("seed %d: %d community cards on the %s", seed, len(r.Community), r.Stage)
				}
				for _, p := range r.Players {
					if p.Chips < 0 || p.Committed < 0 {
						t.Fatalf("seed %d: negative chips %+v", seed, p)
					}
				}
				last = r.Stage
			}

			if got := sum(r.Result.Payouts); got != r.Result.Pot && r.Result.Reason != EndAborted {
				t.Fatalf("seed %d: paid out %d of a %d pot", seed, got, r.Result.Pot)
			}
			if r.Players[0].Chips == 0 || r.Players[1].Chips == 0 {
				break
			}
			if r, err = NextRound(r, rng); err != nil {
				t.Fatalf("seed %d: NextRound: %v", seed, err)
			}
		}
	}
}

func TestDeckIntegrityAcrossHand(t *testing.T) {
	t.Parallel()

	r, err := NewRound(RoundConfig{}, seats(1000, 1000), randutil.New(5))
	if err != nil {
		t.Fatal(err)
	}
	for r.Stage != HandOver {
		if _, err := r.Act(r.ToAct, Call); err != nil {
			t.Fatal(err)
		}
	}

	seen := make(map[deck.Card]bool)
	var all []deck.Card
	for _, p := range r.Players {
		all = append(all, p.Hole...)
	}
	all = append(all, r.Community...)
	all = append(all, r.Deck.Cards()...)
	for _, c := range all {
		if seen[c] {
			t.Fatalf("card %s seen twice", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Fatalf("dealt + remaining = %d cards, want 52", len(seen))
	}
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
