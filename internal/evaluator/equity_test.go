package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/lox/headsup/internal/deck"
)

func TestEstimateEquity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		hole        string
		board       string
		expectedMin float64
		expectedMax float64
	}{
		{
			name:        "pocket aces preflop",
			hole:        "AsAd",
			expectedMin: 0.78,
			expectedMax: 0.90,
		},
		{
			name:        "seven deuce offsuit",
			hole:        "7h2c",
			expectedMin: 0.26,
			expectedMax: 0.40,
		},
		{
			name:        "nut flush draw",
			hole:        "AsKs",
			board:       "QsJs2h",
			expectedMin: 0.60,
			expectedMax: 0.85,
		},
		{
			name:        "made royal on the river",
			hole:        "AsKs",
			board:       "QsJsTs2h3d",
			expectedMin: 1.0,
			expectedMax: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var board []deck.Card
			if tt.board != "" {
				board = deck.MustParseCards(tt.board)
			}
			eq, err := EstimateEquity(context.Background(), deck.MustParseCards(tt.hole), board, 2000, 12345)
			if err != nil {
				t.Fatalf("EstimateEquity: %v", err)
			}
			if eq.Samples != 2000 {
				t.Errorf("ran %d samples, want 2000", eq.Samples)
			}
			if v := eq.Value(); v < tt.expectedMin || v > tt.expectedMax {
				t.Errorf("equity %.3f outside [%.2f, %.2f]", v, tt.expectedMin, tt.expectedMax)
			}
		})
	}
}

func TestEstimateEquityIsReproducible(t *testing.T) {
	t.Parallel()

	hole := deck.MustParseCards("9h9c")
	board := deck.MustParseCards("Kd7s2c")
	a, err := EstimateEquity(context.Background(), hole, board, 500, 99)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EstimateEquity(context.Background(), hole, board, 500, 99)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
}

func TestEstimateEquityIndependentOfWorkers(t *testing.T) {
	t.Parallel()

	hole := deck.MustParseCards("AhQd")
	board := deck.MustParseCards("Qc8s3h")
	want, err := estimateEquity(context.Background(), hole, board, 403, 7, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{2, 3, 8, 64} {
		got, err := estimateEquity(context.Background(), hole, board, 403, 7, workers)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%d workers gave %+v, one worker gave %+v", workers, got, want)
		}
	}
}

func TestEstimateEquityInvalidInputs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := EstimateEquity(ctx, deck.MustParseCards("As"), nil, 10, 1); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("one hole card: got %v", err)
	}
	if _, err := EstimateEquity(ctx, deck.MustParseCards("AsKs"), deck.MustParseCards("2c3c4c5c6c7c"), 10, 1); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("six board cards: got %v", err)
	}
	if _, err := EstimateEquity(ctx, deck.MustParseCards("AsKs"), deck.MustParseCards("As2c3c"), 10, 1); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("duplicate card: got %v", err)
	}
	if eq, err := EstimateEquity(ctx, deck.MustParseCards("AsKs"), nil, 0, 1); err != nil || eq.Samples != 0 {
		t.Errorf("zero samples: %+v %v", eq, err)
	}
}

func TestEstimateEquityHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := EstimateEquity(ctx, deck.MustParseCards("AsKs"), nil, 1000, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
