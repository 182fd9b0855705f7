package main

import (
	"github.com/alecthomas/kong"
)

// Globals are shared by every subcommand.
type Globals struct {
	Config   string `short:"c" default:"holdem.hcl" help:"Configuration file"`
	EnvFile  string `default:".env" help:"Dotenv file with HOLDEM_* overrides"`
	Backend  string `short:"b" help:"Sync backend: memory, redis, websocket (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

type CLI struct {
	Globals

	Serve ServeCmd `cmd:"" help:"Serve rooms to remote players over websockets"`
	Play  PlayCmd  `cmd:"" help:"Join a room and play at the terminal"`
	Demo  DemoCmd  `cmd:"" help:"Watch two bots play a match in a shared room"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem-room"),
		kong.Description("Shared heads-up rooms kept in sync through a common store."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
