package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/headsup/internal/fileutil"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/phh"
	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/randutil"
	"github.com/lox/headsup/internal/statistics"
)

type CLI struct {
	Hands          int     `default:"10000" help:"Number of hands to simulate"`
	Hero           string  `default:"equity" help:"Hero strategy: stochastic, call, raise, equity"`
	Villain        string  `default:"stochastic" help:"Villain strategy: stochastic, call, raise, equity"`
	Stack          int     `default:"1000" help:"Chips each player starts every hand with"`
	RaiseIncrement int     `default:"50" help:"Fixed raise size"`
	MaxRaises      int     `default:"0" help:"Raise cap per street (0 = uncapped)"`
	Fold           float64 `default:"0.3" help:"Stochastic fold weight"`
	Call           float64 `default:"0.4" help:"Stochastic call weight"`
	Raise          float64 `default:"0.3" help:"Stochastic raise weight"`
	Samples        int     `default:"200" help:"Monte Carlo samples per equity decision"`
	Seed           int64   `default:"0" help:"RNG seed (0 for random)"`
	Workers        int     `default:"0" help:"Parallel workers (0 = CPU count)"`
	Report         string  `type:"path" help:"Also write a JSON summary to this file"`
	History        string  `type:"path" help:"Write every hand to this file in PHH format"`
	Verbose        bool    `short:"v" help:"Verbose logging"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem-sim"),
		kong.Description("Plays two opponent strategies against each other heads-up."))

	level := log.WarnLevel
	if cli.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	var history *phh.Writer
	if cli.History != "" {
		f, err := os.Create(cli.History)
		if err != nil {
			logger.Error("Failed to create history file", "error", err)
			ctx.Exit(1)
		}
		defer func() { _ = f.Close() }()
		history = phh.NewWriter(f)
	}

	stats, err := simulate(context.Background(), cli, history, logger)
	if err != nil {
		logger.Error("Simulation failed", "error", err)
		ctx.Exit(1)
	}
	report(os.Stdout, cli, stats)
	if cli.Report != "" {
		if err := fileutil.WriteJSON(cli.Report, summarize(cli, stats)); err != nil {
			logger.Error("Failed to write report", "error", err)
			ctx.Exit(1)
		}
	}
}

// simulate plays cli.Hands hands. Each hand is also written to history when
// it is not nil.
func simulate(ctx context.Context, cli CLI, history *phh.Writer, logger *log.Logger) (*statistics.Statistics, error) {
	if cli.Hands <= 0 || cli.Stack <= 0 || cli.RaiseIncrement <= 0 {
		return nil, fmt.Errorf("hands, stack and raise increment must be positive")
	}
	pcfg := policy.Config{Fold: cli.Fold, Call: cli.Call, Raise: cli.Raise, Samples: cli.Samples}
	hero, err := policy.New(cli.Hero, pcfg)
	if err != nil {
		return nil, fmt.Errorf("hero: %w", err)
	}
	villain, err := policy.New(cli.Villain, pcfg)
	if err != nil {
		return nil, fmt.Errorf("villain: %w", err)
	}

	workers := cli.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, cli.Hands)
	seed := randutil.Seed(cli.Seed)
	logger.Info("Starting simulation", "hands", cli.Hands, "hero", hero.Name(), "villain", villain.Name(), "seed", seed, "workers", workers)

	parts := make([]*statistics.Statistics, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		first := w * cli.Hands / workers
		last := (w + 1) * cli.Hands / workers
		g.Go(func() error {
			var rec *phh.Recorder
			if history != nil {
				rec = phh.NewRecorder("sim", cli.RaiseIncrement, history.Write, nil)
			}
			s, err := playRange(gctx, cli, [2]policy.Policy{hero, villain}, seed, first, last, rec)
			parts[w] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &statistics.Statistics{}
	for _, p := range parts {
		total.Merge(p)
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}
	return total, nil
}

// playRange plays hands [first, last). Each hand gets its own generator
// derived from the run seed, so results do not depend on the worker count.
func playRange(ctx context.Context, cli CLI, players [2]policy.Policy, seed int64, first, last int, rec *phh.Recorder) (*statistics.Statistics, error) {
	stats := &statistics.Statistics{}
	seats := []game.PlayerSeat{
		{ID: "hero", Name: players[0].Name(), Chips: cli.Stack},
		{ID: "villain", Name: players[1].Name(), Chips: cli.Stack},
	}
	cfg := game.RoundConfig{RaiseIncrement: cli.RaiseIncrement, MaxRaises: cli.MaxRaises}

	for hand := first; hand < last; hand++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		handSeed := seed + int64(hand)*0x9e3779b9
		rng := randutil.New(handSeed)
		r, err := game.NewRound(cfg, seats, rng, game.WithHandNumber(hand+1), game.WithFirstToAct(hand%2))
		if err != nil {
			return stats, err
		}
		for r.Stage.IsBetting() {
			seat := r.ToAct
			view := r.Snapshot().ForSeat(seat)
			out, err := r.Act(seat, players[seat].Decide(view, seat, rng))
			if err != nil {
				return stats, fmt.Errorf("hand %d: %w", hand+1, err)
			}
			if rec != nil {
				for _, e := range out.Events {
					rec.OnEvent(e)
				}
			}
		}
		if err := r.CheckConservation(2 * cli.Stack); err != nil {
			return stats, fmt.Errorf("hand %d: %w", hand+1, err)
		}

		stats.Add(statistics.HandResult{
			Net:            float64(r.Players[0].Chips-cli.Stack) / float64(cli.RaiseIncrement),
			Seed:           handSeed,
			Position:       hand % 2,
			WentToShowdown: r.Result.Reason == game.EndShowdown,
			FinalPot:       r.Result.Pot,
			BoardCards:     len(r.Community),
		})
	}
	return stats, nil
}

func report(out io.Writer, cli CLI, s *statistics.Statistics) {
	lo, hi := s.ConfidenceInterval95()
	folds := s.Hands - s.Showdowns
	fmt.Fprintf(out, "%s vs %s over %d hands\n\n", cli.Hero, cli.Villain, s.Hands)
	fmt.Fprintf(out, "Hero result:   %+.3f raises/hand (95%% CI %+.3f to %+.3f)\n", s.Mean(), lo, hi)
	fmt.Fprintf(out, "Std deviation: %.3f, median %+.2f, p5 %+.2f, p95 %+.2f\n", s.StdDev(), s.Median(), s.Percentile(0.05), s.Percentile(0.95))
	fmt.Fprintf(out, "Showdowns:     %d (%.1f%%), won %d, hero net %+.1f\n", s.Showdowns, pct(s.Showdowns, s.Hands), s.ShowdownWins, s.ShowdownNet)
	fmt.Fprintf(out, "No showdown:   %d (%.1f%%), won %d, hero net %+.1f\n", folds, pct(folds, s.Hands), s.NonShowdownWins, s.NonShowdownNet)
	fmt.Fprintf(out, "Acting first:  %+.3f/hand over %d hands\n", s.Positions[statistics.FirstToAct].Mean(), s.Positions[statistics.FirstToAct].Hands)
	fmt.Fprintf(out, "Acting second: %+.3f/hand over %d hands\n", s.Positions[statistics.SecondToAct].Mean(), s.Positions[statistics.SecondToAct].Hands)
	fmt.Fprintf(out, "Largest pot:   $%d\n", s.MaxPot)
	fmt.Fprintf(out, "Ended preflop: %.1f%%, flop %.1f%%, turn %.1f%%, river %.1f%%\n",
		pct(s.Streets[0], s.Hands), pct(s.Streets[3], s.Hands), pct(s.Streets[4], s.Hands), pct(s.Streets[5], s.Hands))
}

// Summary is the JSON report.
type Summary struct {
	Hero        string     `json:"hero"`
	Villain     string     `json:"villain"`
	Hands       int        `json:"hands"`
	Mean        float64    `json:"mean"`
	StdDev      float64    `json:"stddev"`
	CI95        [2]float64 `json:"ci95"`
	Showdowns   int        `json:"showdowns"`
	ShowdownNet float64    `json:"showdown_net"`
	FoldNet     float64    `json:"fold_net"`
	MaxPot      int        `json:"max_pot"`
}

func summarize(cli CLI, s *statistics.Statistics) Summary {
	lo, hi := s.ConfidenceInterval95()
	return Summary{
		Hero:        cli.Hero,
		Villain:     cli.Villain,
		Hands:       s.Hands,
		Mean:        s.Mean(),
		StdDev:      s.StdDev(),
		CI95:        [2]float64{lo, hi},
		Showdowns:   s.Showdowns,
		ShowdownNet: s.ShowdownNet,
		FoldNet:     s.NonShowdownNet,
		MaxPot:      s.MaxPot,
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
