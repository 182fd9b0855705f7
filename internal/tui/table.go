package tui

import (
	"context"

	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/roomsync"
	"github.com/lox/headsup/internal/session"
)

// Table is the game the model drives: a local session against the computer
// or a seat in a shared room.
type Table interface {
	View() (game.Snapshot, error)
	Seat() int
	Act(ctx context.Context, a game.Action) error
	Next(ctx context.Context) error
	Subscribe(o game.Observer) func()
	History() []string
}

// Rebuyer is implemented by tables that can start a fresh match.
type Rebuyer interface {
	Rebuy() error
}

type localTable struct {
	s *session.Session
}

// Local adapts a session.
func Local(s *session.Session) Table {
	return localTable{s: s}
}

func (t localTable) View() (game.Snapshot, error)               { return t.s.Snapshot() }
func (t localTable) Seat() int                                  { return session.HumanSeat }
func (t localTable) Act(_ context.Context, a game.Action) error { return t.s.Act(a) }
func (t localTable) Next(context.Context) error                 { return t.s.DealNow() }
func (t localTable) Subscribe(o game.Observer) func()           { return t.s.Subscribe(o) }
func (t localTable) History() []string                          { return t.s.History() }
func (t localTable) Rebuy() error                               { return t.s.Rebuy() }

type roomTable struct {
	c *roomsync.Client
}

// Room adapts a joined room client.
func Room(c *roomsync.Client) Table {
	return roomTable{c: c}
}

func (t roomTable) View() (game.Snapshot, error) { return t.c.View() }
func (t roomTable) Seat() int                    { return t.c.Seat() }
func (t roomTable) Act(ctx context.Context, a game.Action) error {
	return t.c.SubmitAction(ctx, a)
}
func (t roomTable) Next(ctx context.Context) error   { return t.c.NextHand(ctx) }
func (t roomTable) Subscribe(o game.Observer) func() { return t.c.Subscribe(o) }
func (t roomTable) History() []string                { return nil }
