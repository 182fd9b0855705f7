package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/randutil"
)

func seats(chips ...int) []PlayerSeat {
	names := []string{"You", "AI"}
	out := make([]PlayerSeat, len(chips))
	for i, c := range chips {
		out[i] = PlayerSeat{ID: names[i%2], Name: names[i%2], Chips: c}
	}
	return out
}

// scripted builds a deck dealing seat 0's hole cards, seat 1's hole cards,
// then the board, in that order.
func scripted(t *testing.T, cards string) RoundOption {
	t.Helper()
	d, err := deck.FromCards(deck.MustParseCards(cards))
	require.NoError(t, err)
	return WithDeck(d)
}

func newTestRound(t *testing.T, cfg RoundConfig, chips []int, opts ...RoundOption) *RoundState {
	t.Helper()
	r, err := NewRound(cfg, seats(chips...), randutil.New(1), opts...)
	require.NoError(t, err)
	r.DrainEvents()
	return r
}

func mustAct(t *testing.T, r *RoundState, seat int, a Action) Outcome {
	t.Helper()
	out, err := r.Act(seat, a)
	require.NoError(t, err, "seat %d %s", seat, a)
	return out
}

func TestNewRoundDealsFreshHand(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000})

	assert.Equal(t, Preflop, r.Stage)
	assert.Equal(t, 0, r.Pot)
	assert.Equal(t, 0, r.CurrentBet)
	assert.Empty(t, r.Community)
	assert.Equal(t, 48, r.Deck.Remaining())
	for _, p := range r.Players {
		assert.Len(t, p.Hole, 2)
		assert.Equal(t, 1000, p.Chips)
	}
	assert.NotEqual(t, r.Players[0].Hole, r.Players[1].Hole)
	assert.Equal(t, 0, r.ToAct)
	assert.Equal(t, 1, r.HandNumber)
}

func TestNewRoundRejectsBadSeating(t *testing.T) {
	t.Parallel()

	_, err := NewRound(RoundConfig{}, seats(1000), randutil.New(1))
	assert.ErrorIs(t, err, ErrInvalidRound)

	_, err = NewRound(RoundConfig{}, seats(1000, 0), randutil.New(1))
	assert.ErrorIs(t, err, ErrInvalidRound)

	d, err := deck.FromCards(deck.MustParseCards("As Ks Qs"))
	require.NoError(t, err)
	_, err = NewRound(RoundConfig{}, seats(1000, 1000), nil, WithDeck(d))
	assert.ErrorIs(t, err, deck.ErrDeckExhausted)
}

func TestChecksRunToShowdown(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000},
		scripted(t, "As Ad  Kc Kd  2c 7h 9s  Jd  3h"))

	var stages []Stage
	for r.Stage != HandOver {
		stages = append(stages, r.Stage)
		mustAct(t, r, r.ToAct, Call)
		mustAct(t, r, r.ToAct, Call)
	}

	assert.Equal(t, []Stage{Preflop, Flop, Turn, River}, stages)
	assert.Len(t, r.Community, 5)
	require.NotNil(t, r.Result)
	assert.Equal(t, EndShowdown, r.Result.Reason)
	assert.Equal(t, []int{0}, r.Result.Winners)
	assert.Equal(t, "Pair of Aces", r.Result.Hands[0])
	assert.Equal(t, 1000, r.Players[0].Chips)
	assert.NoError(t, r.CheckConservation(2000))
}

func TestRaiseCallShowdownMovesChips(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000},
		scripted(t, "As Ad  Kc Kd  2c 7h 9s  Jd  3h"))

	out := mustAct(t, r, 0, Raise)
	assert.Equal(t, 50, out.Amount)
	assert.Equal(t, 50, r.CurrentBet)
	assert.Equal(t, 50, r.TotalPot())
	assert.Equal(t, 0, r.Pot, "committed chips stay out of the pot until the street closes")

	out = mustAct(t, r, 1, Raise)
	assert.Equal(t, 100, out.Amount)
	assert.Equal(t, 100, r.CurrentBet)

	out = mustAct(t, r, 0, Call)
	assert.Equal(t, 50, out.Amount)
	assert.True(t, out.StreetClosed)
	assert.Equal(t, Flop, r.Stage)
	assert.Equal(t, 200, r.Pot)
	assert.Equal(t, 0, r.CurrentBet)
	for _, p := range r.Players {
		assert.Equal(t, 0, p.Committed)
		assert.False(t, p.Acted)
	}

	for r.Stage != HandOver {
		mustAct(t, r, r.ToAct, Call)
	}
	assert.Equal(t, 1100, r.Players[0].Chips)
	assert.Equal(t, 900, r.Players[1].Chips)
	assert.NoError(t, r.CheckConservation(2000))
}

func TestFoldEndsHandImmediately(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000})

	mustAct(t, r, 0, Raise)
	mustAct(t, r, 1, Raise)
	out := mustAct(t, r, 0, Fold)

	assert.Equal(t, HandOver, r.Stage)
	assert.Empty(t, r.Community)
	require.NotNil(t, r.Result)
	assert.Equal(t, EndFold, r.Result.Reason)
	assert.Equal(t, []int{1}, r.Result.Winners)
	assert.Equal(t, 150, r.Result.Pot)
	assert.Equal(t, 950, r.Players[0].Chips)
	assert.Equal(t, 1050, r.Players[1].Chips)
	assert.NoError(t, r.CheckConservation(2000))

	var ended bool
	for _, e := range out.Events {
		if _, ok := e.(HandEndEvent); ok {
			ended = true
		}
	}
	assert.True(t, ended, "fold should emit a hand end event")
}

func TestCallDowngradedToAllIn(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{30, 1000},
		scripted(t, "As Ad  Kc Kd  2c 7h 9s  Jd  3h"))

	mustAct(t, r, 0, Call)
	mustAct(t, r, 1, Raise)
	out := mustAct(t, r, 0, Call)

	assert.Equal(t, 30, out.Amount)
	assert.ErrorIs(t, out.Downgraded, ErrInsufficientChips)
	assert.True(t, out.StreetClosed)

	// The short stack is all-in, so the board runs out.
	assert.Equal(t, HandOver, r.Stage)
	assert.Len(t, r.Community, 5)
	assert.Equal(t, 60, r.Result.Pot, "the uncalled 20 goes back to the raiser")
	assert.Equal(t, 60, r.Players[0].Chips)
	assert.Equal(t, 970, r.Players[1].Chips)
	assert.NoError(t, r.CheckConservation(1030))
}

func TestShortRaiseIsAllIn(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{30, 1000})

	out := mustAct(t, r, 0, Raise)
	assert.Equal(t, Raise, out.Applied)
	assert.Equal(t, 30, out.Amount)
	assert.ErrorIs(t, out.Downgraded, ErrInsufficientChips)
	assert.True(t, r.Players[0].AllIn)
	assert.Equal(t, 30, r.CurrentBet)
	assert.Equal(t, 1, r.ToAct)

	out = mustAct(t, r, 1, Raise)
	assert.Equal(t, Call, out.Applied, "nobody is left to call a raise")
	assert.ErrorIs(t, out.Downgraded, ErrOpponentAllIn)
	assert.Equal(t, 30, out.Amount)
	assert.Equal(t, HandOver, r.Stage)
	assert.NoError(t, r.CheckConservation(1030))
}

func TestRaiseCap(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50, MaxRaises: 1}, []int{1000, 1000})

	mustAct(t, r, 0, Raise)
	out := mustAct(t, r, 1, Raise)
	assert.Equal(t, Call, out.Applied)
	assert.ErrorIs(t, out.Downgraded, ErrRaiseCapped)
	assert.Equal(t, Flop, r.Stage)
	assert.Equal(t, 100, r.Pot)

	// The cap resets each street.
	out = mustAct(t, r, 0, Raise)
	assert.Equal(t, Raise, out.Applied)
}

func TestActErrors(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{}, []int{1000, 1000})

	_, err := r.Act(1, Call)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = r.Act(0, Action(9))
	assert.ErrorIs(t, err, ErrUnknownAction)

	mustAct(t, r, 0, Fold)
	_, err = r.Act(1, Call)
	assert.ErrorIs(t, err, ErrHandOver)
}

func TestDeckExhaustedAbortsAndRefunds(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000},
		scripted(t, "As Ad Kc Kd 2c"))

	mustAct(t, r, 0, Raise)
	out, err := r.Act(1, Call)
	require.Error(t, err)
	assert.True(t, errors.Is(err, deck.ErrDeckExhausted))

	assert.Equal(t, HandOver, r.Stage)
	require.NotNil(t, r.Result)
	assert.Equal(t, EndAborted, r.Result.Reason)
	assert.Equal(t, []int{50, 50}, r.Result.Payouts)
	for _, p := range r.Players {
		assert.Equal(t, 1000, p.Chips)
	}
	assert.NoError(t, r.CheckConservation(2000))

	var aborted bool
	for _, e := range out.Events {
		if _, ok := e.(HandAbortedEvent); ok {
			aborted = true
		}
	}
	assert.True(t, aborted)
}

func TestTiedShowdownSplitsOddPot(t *testing.T) {
	t.Parallel()

	// Both players play the board: a royal flush.
	d, err := deck.FromCards(nil)
	require.NoError(t, err)
	r := &RoundState{
		HandNumber:     7,
		Stage:          River,
		Pot:            101,
		RaiseIncrement: 50,
		Community:      deck.MustParseCards("As Ks Qs Js Ts"),
		Players: []*Player{
			{ID: "a", Seat: 0, Chips: 400, Hole: deck.MustParseCards("2c 3d"), Contributed: 51},
			{ID: "b", Seat: 1, Chips: 499, Hole: deck.MustParseCards("4c 5d"), Contributed: 50},
		},
		FirstToAct: 0,
		Deck:       d,
	}
	total := r.TotalChips()

	mustAct(t, r, 0, Call)
	mustAct(t, r, 1, Call)

	require.Equal(t, HandOver, r.Stage)
	assert.True(t, r.Result.IsSplit())
	assert.Equal(t, []int{51, 50}, r.Result.Payouts)
	assert.Equal(t, 451, r.Players[0].Chips)
	assert.Equal(t, 549, r.Players[1].Chips)
	assert.NoError(t, r.CheckConservation(total))
}

func TestNextRoundCarriesChips(t *testing.T) {
	t.Parallel()

	rng := randutil.New(3)
	r, err := NewRound(RoundConfig{RaiseIncrement: 25, MaxRaises: 3}, seats(1000, 1000), rng)
	require.NoError(t, err)
	mustAct(t, r, 0, Raise)
	mustAct(t, r, 1, Fold)

	next, err := NextRound(r, rng)
	require.NoError(t, err)

	assert.Equal(t, 2, next.HandNumber)
	assert.Equal(t, 1, next.FirstToAct)
	assert.Equal(t, 1, next.ToAct)
	assert.Equal(t, 25, next.RaiseIncrement)
	assert.Equal(t, 3, next.MaxRaises)
	assert.Equal(t, r.Players[0].Chips, next.Players[0].Chips)
	assert.Equal(t, r.Players[1].Chips, next.Players[1].Chips)
	assert.Equal(t, Preflop, next.Stage)
	assert.Zero(t, next.Pot)

	third, err := NextRound(next, rng)
	require.NoError(t, err)
	assert.Equal(t, 0, third.FirstToAct)
}

func TestSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{}, []int{1000, 1000})
	snap := r.Snapshot()
	snap.Players[0].Hole[0] = deck.Card{}
	snap.Players[0].Chips = 1

	assert.NotEqual(t, deck.Card{}, r.Players[0].Hole[0])
	assert.Equal(t, 1000, r.Players[0].Chips)

	view := r.Snapshot().ForSeat(0)
	assert.Len(t, view.Players[0].Hole, 2)
	assert.Nil(t, view.Players[1].Hole, "opponent cards hidden before showdown")
	assert.Equal(t, 0, view.SeatOf("You"))
	assert.Equal(t, -1, view.SeatOf("nobody"))
}

func TestSnapshotRevealsAfterShowdownOnly(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{}, []int{1000, 1000})
	mustAct(t, r, 0, Fold)
	assert.Nil(t, r.Snapshot().ForSeat(0).Players[1].Hole, "folded hands stay hidden")

	r = newTestRound(t, RoundConfig{}, []int{1000, 1000})
	for r.Stage != HandOver {
		mustAct(t, r, r.ToAct, Call)
	}
	assert.Len(t, r.Snapshot().ForSeat(0).Players[1].Hole, 2)
}
