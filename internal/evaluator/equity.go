package evaluator

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/randutil"
)

// Equity is the result of a Monte Carlo run against a random opponent hand.
type Equity struct {
	Wins    int
	Ties    int
	Samples int
}

// Value returns the share of the pot won on average, counting ties as half.
func (e Equity) Value() float64 {
	if e.Samples == 0 {
		return 0
	}
	return (float64(e.Wins) + float64(e.Ties)/2) / float64(e.Samples)
}

func (e Equity) String() string {
	return fmt.Sprintf("%.1f%%", e.Value()*100)
}

// EstimateEquity deals out the rest of the board and a random opponent hand
// samples times and reports how often hole wins. Samples are split into a
// fixed number of shards, each with its own generator derived from seed, so
// the result depends only on the seed and not on how many CPUs run them.
func EstimateEquity(ctx context.Context, hole, board []deck.Card, samples int, seed int64) (Equity, error) {
	return estimateEquity(ctx, hole, board, samples, seed, runtime.NumCPU())
}

// equityShards is the number of independent sample streams.
const equityShards = 8

func estimateEquity(ctx context.Context, hole, board []deck.Card, samples int, seed int64, workers int) (Equity, error) {
	if len(hole) != 2 {
		return Equity{}, fmt.Errorf("%w: need 2 hole cards, got %d", ErrInvalidHand, len(hole))
	}
	if len(board) > 5 {
		return Equity{}, fmt.Errorf("%w: board has %d cards", ErrInvalidHand, len(board))
	}
	if samples <= 0 {
		return Equity{}, nil
	}

	used := make(map[deck.Card]bool, 7)
	for _, c := range append(append([]deck.Card(nil), hole...), board...) {
		if !c.Valid() || used[c] {
			return Equity{}, fmt.Errorf("%w: bad or duplicate card %s", ErrInvalidHand, c)
		}
		used[c] = true
	}
	var available []deck.Card
	for _, c := range deck.New().Cards() {
		if !used[c] {
			available = append(available, c)
		}
	}

	shards := min(equityShards, samples)
	results := make([]Equity, shards)
	root := randutil.New(seed)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := 0; i < shards; i++ {
		n := samples / shards
		if i < samples%shards {
			n++
		}
		rng := randutil.Split(root)
		g.Go(func() error {
			res, err := runEquityWorker(ctx, hole, board, available, n, rng)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Equity{}, err
	}

	var total Equity
	for _, r := range results {
		total.Wins += r.Wins
		total.Ties += r.Ties
		total.Samples += r.Samples
	}
	return total, nil
}

func runEquityWorker(ctx context.Context, hole, board, available []deck.Card, n int, rng deck.RandSource) (Equity, error) {
	var res Equity
	pool := append([]deck.Card(nil), available...)
	need := 2 + 5 - len(board)
	hero := make([]deck.Card, 0, 7)
	villain := make([]deck.Card, 0, 7)

	for i := 0; i < n; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		// Partial Fisher-Yates: the last need cards of pool become the sample.
		for j := 0; j < need; j++ {
			last := len(pool) - 1 - j
			k := rng.IntN(last + 1)
			pool[k], pool[last] = pool[last], pool[k]
		}
		drawn := pool[len(pool)-need:]

		hero = append(append(append(hero[:0], hole...), board...), drawn[2:]...)
		villain = append(append(append(villain[:0], drawn[:2]...), board...), drawn[2:]...)

		a, err := Evaluate(hero)
		if err != nil {
			return res, err
		}
		b, err := Evaluate(villain)
		if err != nil {
			return res, err
		}
		switch Compare(a, b) {
		case Greater:
			res.Wins++
		case Equal:
			res.Ties++
		}
		res.Samples++
	}
	return res, nil
}
