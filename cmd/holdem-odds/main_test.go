package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/headsup/internal/deck"
)

func TestParseHands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []string
		want    int
		wantErr bool
	}{
		{"single hand", []string{"AcKh"}, 1, false},
		{"two hands", []string{"AcKh", "KdQs"}, 2, false},
		{"hand with spaces", []string{"Ac Kh"}, 1, false},
		{"three hands", []string{"AcKh", "KdQs", "2c2d"}, 0, true},
		{"too many cards", []string{"AcKhQd"}, 0, true},
		{"too few cards", []string{"Ac"}, 0, true},
		{"invalid card", []string{"AcXy"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hands, err := parseHands(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, hands, tt.want)
		})
	}
}

func TestValidateNoDuplicates(t *testing.T) {
	t.Parallel()

	hands := [][]deck.Card{deck.MustParseCards("AcKh"), deck.MustParseCards("QdQs")}
	assert.NoError(t, validateNoDuplicates(hands, deck.MustParseCards("2c3c4c")))
	assert.ErrorContains(t, validateNoDuplicates(hands, deck.MustParseCards("Ac3c4c")), "hand 1")
	assert.ErrorContains(t, validateNoDuplicates(hands, deck.MustParseCards("2c2c")), "duplicate")
}

func TestMonteCarloHeadsUp(t *testing.T) {
	t.Parallel()

	aces := deck.MustParseCards("AsAh")
	sevenDeuce := deck.MustParseCards("7c2d")
	results := calculateMonteCarlo([][]deck.Card{aces, sevenDeuce}, nil, 20000, 1)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 20000, r.Total)
	}
	assert.Equal(t, results[0].Ties, results[1].Ties)
	assert.Equal(t, 20000, results[0].Wins+results[1].Wins+results[0].Ties)
	assert.InDelta(t, 0.87, float64(results[0].Wins)/20000, 0.03)

	again := calculateMonteCarlo([][]deck.Card{aces, sevenDeuce}, nil, 20000, 1)
	assert.Equal(t, results[0].Wins, again[0].Wins, "same seed, same result")
}

func TestMonteCarloCompleteBoard(t *testing.T) {
	t.Parallel()

	board := deck.MustParseCards("2c 7h 9s Jd 3h")
	results := calculateMonteCarlo([][]deck.Card{deck.MustParseCards("AsAd"), deck.MustParseCards("KsKd")}, board, 50, 1)
	assert.Equal(t, 50, results[0].Wins)
	assert.Zero(t, results[1].Wins)
}

func TestRun(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(CLI{Hands: []string{"AsAh", "KsKh"}, Board: "2c7d9h", Iterations: 500, Seed: 3, Possibilities: true}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "A♠ A♥")
	assert.Contains(t, out.String(), "board")
	assert.Contains(t, out.String(), "Pair")
	assert.Contains(t, out.String(), "500 iterations")
	assert.Contains(t, out.String(), "seed 3")

	out.Reset()
	require.NoError(t, run(CLI{Hands: []string{"AsAh"}, Iterations: 200, Seed: 3}, &out))
	assert.Contains(t, out.String(), "random")

	assert.Error(t, run(CLI{Hands: []string{"AsAh"}, Board: "2c3c4c5c6c7c", Iterations: 10}, &out))
	assert.Error(t, run(CLI{Hands: []string{"AsAh"}, Iterations: 0}, &out))
}
