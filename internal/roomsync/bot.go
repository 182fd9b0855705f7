package roomsync

import (
	"context"
	"errors"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/randutil"
	"github.com/lox/headsup/internal/store"
)

// Bot plays a client's seat with a policy.
type Bot struct {
	client *Client
	policy policy.Policy
	rng    *rand.Rand
	logger *log.Logger
	// Hands stops the bot once this many hands have finished. Zero plays
	// until the match is over.
	Hands int
}

// NewBot creates a bot for an already joined client.
func NewBot(c *Client, p policy.Policy, seed int64, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		client: c,
		policy: p,
		rng:    randutil.New(randutil.Seed(seed)),
		logger: logger.With("bot", p.Name(), "player", c.cfg.PlayerID),
	}
}

// Run acts whenever it is the bot's turn until ctx ends, the hand limit is
// reached or a player busts. Lost sync races are expected and retried from
// the next update.
func (b *Bot) Run(ctx context.Context) error {
	wake := make(chan struct{}, 1)
	unsubscribe := b.client.Subscribe(game.ObserverFunc(func(game.Update) {
		select {
		case wake <- struct{}{}:
		default:
		}
	}))
	defer unsubscribe()

	for {
		view, err := b.client.View()
		if err == nil && len(view.Players) == 2 {
			if b.finished(view) {
				return nil
			}
			seat := b.client.Seat()
			if view.Stage.IsBetting() && view.ToAct == seat {
				action := b.policy.Decide(view, seat, b.rng)
				err := b.client.SubmitAction(ctx, action)
				switch {
				case err == nil:
					continue
				case errors.Is(err, store.ErrConflict),
					errors.Is(err, game.ErrNotYourTurn),
					errors.Is(err, game.ErrHandOver):
					b.logger.Debug("Action not applied", "action", action, "error", err)
				default:
					return err
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (b *Bot) finished(view game.Snapshot) bool {
	if b.Hands > 0 && view.HandNumber > b.Hands {
		return true
	}
	if view.Stage != game.HandOver || view.HandNumber == 0 {
		return false
	}
	if b.Hands > 0 && view.HandNumber == b.Hands {
		return true
	}
	for _, p := range view.Players {
		if p.Chips == 0 {
			return true
		}
	}
	return false
}
