package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/headsup/internal/config"
	"github.com/lox/headsup/internal/display"
	"github.com/lox/headsup/internal/roomid"
	"github.com/lox/headsup/internal/roomsync"
	"github.com/lox/headsup/internal/tui"
)

type PlayCmd struct {
	Room   string `arg:"" optional:"" help:"Room to join; a new one is created when empty"`
	Player string `help:"Player id; reuse it to resume a seat"`
	Name   string `short:"n" help:"Display name (defaults to the configured player name)"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	room := c.Room
	if room == "" {
		room = roomid.New()
		fmt.Printf("Created room %s\n", room)
	} else if err := roomid.Validate(room); err != nil {
		return err
	}
	player := c.Player
	if player == "" {
		player = roomid.Player("p")
	}
	name := c.Name
	if name == "" {
		name = cfg.Game.PlayerName
	}

	logFile, err := config.OpenLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			log.Error("Failed to close log file", "error", err)
		}
	}()
	logger := config.NewLogger(logFile, cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	client := roomsync.New(backend, cfg.Room(room, player, name), roomsync.WithLogger(logger))
	defer func() { _ = client.Close() }()
	if err := client.Join(ctx); err != nil {
		return err
	}
	logger.Info("Playing", "room", room, "player", player, "seat", client.Seat())

	return tui.Run(tui.Room(client), display.NewRenderer(os.Stdout), logger)
}
