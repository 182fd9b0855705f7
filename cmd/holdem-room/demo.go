package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/headsup/internal/config"
	"github.com/lox/headsup/internal/display"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/randutil"
	"github.com/lox/headsup/internal/roomid"
	"github.com/lox/headsup/internal/roomsync"
	"github.com/lox/headsup/internal/store"
)

type DemoCmd struct {
	Hands   int           `default:"20" help:"Hands to play"`
	First   string        `default:"equity" help:"First bot strategy"`
	Second  string        `default:"stochastic" help:"Second bot strategy"`
	Delay   time.Duration `default:"200ms" help:"Pause between hands"`
	Timeout time.Duration `default:"2m" help:"Give up after this long"`
	Quiet   bool          `short:"q" help:"Only print the final table"`
}

func (c *DemoCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stderr, cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	var out io.Writer = os.Stdout
	if c.Quiet {
		out = io.Discard
	}
	final, err := c.play(ctx, cfg, backend, out, logger)
	if err != nil {
		return err
	}
	r := display.NewRenderer(os.Stdout)
	fmt.Println(r.Table(final, 0))
	return nil
}

// botSeeds resolves seed once and gives each bot its own offset from it.
func botSeeds(seed int64, n int) []int64 {
	base := randutil.Seed(seed)
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
		if seeds[i] == 0 {
			seeds[i] = int64(n)
		}
	}
	return seeds
}

// play seats two bots in a fresh room, prints the room log as it grows and
// returns the last view once both bots stop.
func (c *DemoCmd) play(ctx context.Context, cfg *config.Config, backend store.Backend, out io.Writer, logger *log.Logger) (game.Snapshot, error) {
	room := roomid.New()
	fmt.Fprintf(out, "Room %s\n", room)

	seeds := botSeeds(cfg.Game.Seed, 2)
	var clients []*roomsync.Client
	var bots []*roomsync.Bot
	for i, strategy := range []string{c.First, c.Second} {
		p, err := policy.New(strategy, cfg.PolicyConfig())
		if err != nil {
			return game.Snapshot{}, err
		}
		rc := cfg.Room(room, roomid.Player("bot"), fmt.Sprintf("%s-%d", p.Name(), i+1))
		rc.NextHandDelay = c.Delay
		client := roomsync.New(backend, rc, roomsync.WithLogger(logger))
		defer func() { _ = client.Close() }()
		if err := client.Join(ctx); err != nil {
			return game.Snapshot{}, err
		}
		bot := roomsync.NewBot(client, p, seeds[i], logger)
		bot.Hands = c.Hands
		clients = append(clients, client)
		bots = append(bots, bot)
	}

	unsubscribe := clients[0].Subscribe(game.ObserverFunc(func(u game.Update) {
		for _, e := range u.Events {
			fmt.Fprintln(out, e)
		}
	}))
	defer unsubscribe()

	if err := clients[0].NextHand(ctx); err != nil {
		return game.Snapshot{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error { return b.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return game.Snapshot{}, err
	}

	if err := clients[0].Resync(ctx); err != nil {
		return game.Snapshot{}, err
	}
	return clients[0].View()
}
