package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/headsup/internal/config"
	"github.com/lox/headsup/internal/display"
	"github.com/lox/headsup/internal/phh"
	"github.com/lox/headsup/internal/session"
	"github.com/lox/headsup/internal/tui"
)

type CLI struct {
	Config   string `short:"c" default:"holdem.hcl" help:"Configuration file"`
	EnvFile  string `default:".env" help:"Dotenv file with HOLDEM_* overrides"`
	Seed     int64  `help:"Deck seed (0 keeps the configured seed)"`
	Strategy string `short:"s" help:"Opponent strategy: stochastic, call, raise, equity"`
	LogLevel string `help:"Log level: debug, info, warn, error"`
	LogFile  string `help:"Write logs here instead of the configured file"`
	History  string `help:"Append hand histories (PHH) to this file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem"),
		kong.Description("Heads-up Texas Hold'em against a computer opponent."))

	if err := run(cli); err != nil {
		log.Error("Game failed", "error", err)
		ctx.Exit(1)
	}
}

func load(cli CLI) (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(cli.EnvFile); err != nil {
		return nil, err
	}
	if cli.Seed != 0 {
		cfg.Game.Seed = cli.Seed
	}
	if cli.Strategy != "" {
		cfg.Opponent.Strategy = cli.Strategy
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cli.History != "" {
		cfg.Log.History = cli.History
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cli CLI) error {
	cfg, err := load(cli)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI, so logs go to a file.
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

	opponent, err := cfg.Policy()
	if err != nil {
		return err
	}
	s := session.New(cfg.Session(), opponent, session.WithLogger(logger))
	defer s.Close()

	if cfg.Log.History != "" {
		history, err := config.OpenHistoryFile(cfg.Log.History)
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()
		w := phh.NewWriter(history)
		rec := phh.NewRecorder("local", cfg.Game.RaiseIncrement, w.Write, func(err error) {
			logger.Warn("Failed to record hand", "error", err)
		})
		defer s.SubscribeEvents(rec)()
	}

	logger.Info("Starting game", "opponent", opponent.Name(), "seed", s.Seed(), "chips", cfg.Game.StartingChips)
	if err := s.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	return tui.Run(tui.Local(s), display.NewRenderer(os.Stdout), logger)
}
