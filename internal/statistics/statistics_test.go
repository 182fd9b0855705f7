package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	t.Parallel()

	var s Statistics
	assert.Zero(t, s.Mean())
	assert.Zero(t, s.Variance())
	assert.Zero(t, s.StdDev())
	assert.Zero(t, s.StdError())
	assert.Zero(t, s.Median())
	assert.Zero(t, s.Percentile(0.9))
	assert.Error(t, s.Validate())
}

func TestSingleHand(t *testing.T) {
	t.Parallel()

	var s Statistics
	s.Add(HandResult{Net: 2.5, Seed: 12345, Position: SecondToAct, WentToShowdown: true, FinalPot: 250, BoardCards: 5})

	assert.Equal(t, 1, s.Hands)
	assert.Equal(t, 2.5, s.Mean())
	assert.Zero(t, s.Variance(), "one sample has no variance")
	assert.Equal(t, 2.5, s.Median())
	assert.Equal(t, 1, s.Showdowns)
	assert.Equal(t, 1, s.ShowdownWins)
	assert.Equal(t, 1, s.Positions[SecondToAct].Hands)
	assert.Equal(t, 250, s.MaxPot)
	assert.Equal(t, 1, s.Streets[5])
	require.NoError(t, s.Validate())
}

func TestMomentsAndPercentiles(t *testing.T) {
	t.Parallel()

	var s Statistics
	for i, v := range []float64{1, -1, 3, -3, 0} {
		s.Add(HandResult{Net: v, Position: i % 2, WentToShowdown: math.Abs(v) > 2, FinalPot: 100 * (i + 1)})
	}

	assert.Zero(t, s.Mean())
	assert.InDelta(t, 5.0, s.Variance(), 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/5.0), s.StdError(), 1e-9)
	lo, hi := s.ConfidenceInterval95()
	assert.InDelta(t, -hi, lo, 1e-9)
	assert.Zero(t, s.Median())
	assert.Equal(t, -3.0, s.Percentile(0))
	assert.Equal(t, 3.0, s.Percentile(1))
	assert.InDelta(t, 2.0, s.Percentile(0.875), 1e-9)

	assert.Equal(t, 2, s.Showdowns)
	assert.Equal(t, 1, s.ShowdownWins)
	assert.Equal(t, 1, s.NonShowdownWins)
	assert.Equal(t, 3, s.Positions[FirstToAct].Hands)
	assert.Equal(t, 2, s.Positions[SecondToAct].Hands)
	assert.Equal(t, 500, s.MaxPot)
	require.NoError(t, s.Validate())
}

func TestMergeMatchesSequentialAdds(t *testing.T) {
	t.Parallel()

	results := []HandResult{
		{Net: 2, Position: FirstToAct, WentToShowdown: true, FinalPot: 400, BoardCards: 5},
		{Net: -1, Position: SecondToAct, FinalPot: 100, BoardCards: 0},
		{Net: 1, Position: FirstToAct, FinalPot: 200, BoardCards: 3},
		{Net: -4, Position: SecondToAct, WentToShowdown: true, FinalPot: 800, BoardCards: 5},
	}

	var all, left, right Statistics
	for i, r := range results {
		all.Add(r)
		if i < 2 {
			left.Add(r)
		} else {
			right.Add(r)
		}
	}
	left.Merge(&right)
	left.Merge(nil)

	assert.Equal(t, all.Moments, left.Moments)
	assert.Equal(t, all.Positions, left.Positions)
	assert.Equal(t, all.Streets, left.Streets)
	assert.Equal(t, all.MaxPot, left.MaxPot)
	assert.ElementsMatch(t, all.Values, left.Values)
	require.NoError(t, left.Validate())
}

func TestValidateCatchesInconsistentLedger(t *testing.T) {
	t.Parallel()

	var s Statistics
	s.Add(HandResult{Net: 1, Position: FirstToAct})
	s.ShowdownNet = 5
	assert.ErrorContains(t, s.Validate(), "ledger mismatch")

	s = Statistics{}
	s.Add(HandResult{Net: 1, Position: 7})
	assert.ErrorContains(t, s.Validate(), "position hands")
}
