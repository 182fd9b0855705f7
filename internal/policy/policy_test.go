package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/randutil"
)

type fixedDraw float64

func (f fixedDraw) Float64() float64 { return float64(f) }

type countingSource struct {
	draws int
	u     float64
}

func (c *countingSource) Float64() float64 {
	c.draws++
	return c.u
}

// view builds a snapshot with the opponent (seat 1) to act.
func view(myChips, oppChips, currentBet, myCommitted int) game.Snapshot {
	return game.Snapshot{
		Stage:          game.Preflop,
		CurrentBet:     currentBet,
		RaiseIncrement: 50,
		ToAct:          1,
		Players: []game.PlayerView{
			{ID: "you", Seat: 0, Chips: oppChips, Committed: currentBet, AllIn: oppChips == 0},
			{ID: "ai", Seat: 1, Chips: myChips, Committed: myCommitted},
		},
	}
}

func TestStochasticPick(t *testing.T) {
	t.Parallel()

	s, err := NewStochastic(0.3, 0.4, 0.3)
	require.NoError(t, err)

	tests := []struct {
		u    float64
		want game.Action
	}{
		{0, game.Fold},
		{0.299, game.Fold},
		{0.301, game.Call},
		{0.699, game.Call},
		{0.701, game.Raise},
		{0.999, game.Raise},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Pick(tt.u), "draw %v", tt.u)
	}
}

func TestNewStochasticNormalizes(t *testing.T) {
	t.Parallel()

	s, err := NewStochastic(3, 4, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, s.Fold, 1e-9)
	assert.InDelta(t, 0.4, s.Call, 1e-9)
	assert.InDelta(t, 0.3, s.Raise, 1e-9)

	_, err = NewStochastic(-1, 1, 1)
	assert.Error(t, err)
	_, err = NewStochastic(0, 0, 0)
	assert.Error(t, err)
}

func TestStochasticSameDrawSameAction(t *testing.T) {
	t.Parallel()

	s, err := NewStochastic(0.3, 0.4, 0.3)
	require.NoError(t, err)
	v := view(1000, 1000, 50, 0)

	for _, u := range []float64{0.1, 0.5, 0.9} {
		first := s.Decide(v, 1, fixedDraw(u))
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, s.Decide(v, 1, fixedDraw(u)))
		}
	}

	src := &countingSource{u: 0.5}
	s.Decide(v, 1, src)
	assert.Equal(t, 1, src.draws, "Decide must take exactly one draw")
}

func TestStochasticFrequencies(t *testing.T) {
	t.Parallel()

	s, err := NewStochastic(0.3, 0.4, 0.3)
	require.NoError(t, err)
	v := view(1000, 1000, 50, 0)
	rng := randutil.New(21)

	counts := map[game.Action]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[s.Decide(v, 1, rng)]++
	}
	assert.InDelta(t, 0.3, float64(counts[game.Fold])/n, 0.02)
	assert.InDelta(t, 0.4, float64(counts[game.Call])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts[game.Raise])/n, 0.02)
}

func TestClamp(t *testing.T) {
	t.Parallel()

	capped := view(1000, 1000, 50, 0)
	capped.MaxRaises = 1
	capped.RaisesThisStreet = 1

	tests := []struct {
		name   string
		view   game.Snapshot
		action game.Action
		want   game.Action
	}{
		{"fold facing a bet stays a fold", view(1000, 1000, 50, 0), game.Fold, game.Fold},
		{"fold with nothing owed checks", view(1000, 1000, 0, 0), game.Fold, game.Call},
		{"raise allowed", view(1000, 1000, 50, 0), game.Raise, game.Raise},
		{"raise with no chips", view(0, 1000, 50, 0), game.Raise, game.Call},
		{"raise against all-in", view(1000, 0, 50, 0), game.Raise, game.Call},
		{"raise past the cap", capped, game.Raise, game.Call},
		{"stack covers call not raise", view(80, 1000, 50, 0), game.Raise, game.Call},
		{"stack short of the call is left alone", view(30, 1000, 50, 0), game.Raise, game.Raise},
		{"call is never changed", view(10, 1000, 50, 0), game.Call, game.Call},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Clamp(tt.view, 1, tt.action))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range Names {
		p, err := New(name, DefaultConfig())
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}

	_, err := New("telepathic", DefaultConfig())
	assert.Error(t, err)

	_, err = New("stochastic", Config{})
	assert.Error(t, err, "all-zero weights")
}

func TestAlwaysPolicies(t *testing.T) {
	t.Parallel()

	v := view(1000, 1000, 50, 0)
	assert.Equal(t, game.Call, AlwaysCall{}.Decide(v, 1, nil))
	assert.Equal(t, game.Raise, AlwaysRaise{}.Decide(v, 1, nil))
	assert.Equal(t, game.Call, AlwaysRaise{}.Decide(view(1000, 0, 50, 0), 1, nil))
}

func TestEquityPolicy(t *testing.T) {
	t.Parallel()

	p := NewEquity(300)

	strong := view(1000, 1000, 50, 0)
	strong.Stage = game.Flop
	strong.Players[1].Hole = deck.MustParseCards("As Ah")
	strong.Community = deck.MustParseCards("Ad Ac 7h")
	assert.Equal(t, game.Raise, p.Decide(strong, 1, fixedDraw(0.5)))

	weak := view(1000, 1000, 50, 0)
	weak.Stage = game.River
	weak.Players[1].Hole = deck.MustParseCards("2c 3d")
	weak.Community = deck.MustParseCards("As Ks Qh Jd 8c")
	assert.Equal(t, game.Fold, p.Decide(weak, 1, fixedDraw(0.5)))

	weak.CurrentBet = 0
	weak.Players[0].Committed = 0
	assert.Equal(t, game.Call, p.Decide(weak, 1, fixedDraw(0.5)), "never fold when checking is free")

	marginal := view(1000, 1000, 50, 0)
	marginal.Stage = game.Flop
	marginal.Players[1].Hole = deck.MustParseCards("Jh Tc")
	marginal.Community = deck.MustParseCards("Js 8d 3c")
	for _, draw := range []float64{0.1, 0.42, 0.9} {
		first := p.Decide(marginal, 1, fixedDraw(draw))
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, p.Decide(marginal, 1, fixedDraw(draw)), "draw %v", draw)
		}
	}
}

func TestChartPolicy(t *testing.T) {
	t.Parallel()

	p := NewChart(200)
	hand := func(hole string) game.Snapshot {
		v := view(1000, 1000, 50, 0)
		v.Players[1].Hole = deck.MustParseCards(hole)
		return v
	}

	tests := []struct {
		hole string
		draw float64
		want game.Action
	}{
		{"AsAh", 0.5, game.Raise},
		{"KsQs", 0.5, game.Raise},
		{"7c2d", 0.5, game.Fold},
		{"9h8h", 0.5, game.Call},
		{"9h8h", 0.05, game.Raise},
	}
	for _, tt := range tests {
		src := &countingSource{u: tt.draw}
		assert.Equal(t, tt.want, p.Decide(hand(tt.hole), 1, src), tt.hole)
		assert.Equal(t, 1, src.draws, "one draw per decision")
	}

	free := hand("7c2d")
	free.CurrentBet = 0
	free.Players[0].Committed = 0
	assert.Equal(t, game.Call, p.Decide(free, 1, fixedDraw(0.5)), "checks instead of folding")

	flop := hand("AsAh")
	flop.Stage = game.Flop
	flop.Community = deck.MustParseCards("Ad Ac 7h")
	assert.Equal(t, game.Raise, p.Decide(flop, 1, fixedDraw(0.5)))
}
