package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/evaluator"
	"github.com/lox/headsup/internal/randutil"
)

type CLI struct {
	Hands         []string `arg:"" help:"One or two hands, e.g. 'AcKd' 'QhJs'. One hand runs against a random hand."`
	Board         string   `short:"b" help:"Community cards, e.g. 'Td7s8h'"`
	Possibilities bool     `short:"p" help:"Show how often each hand category is made"`
	Iterations    int      `short:"i" help:"Monte Carlo iterations" default:"100000"`
	Seed          int64    `help:"Random seed (0 picks one)"`
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	handStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	winStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tieStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	percentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem-odds"),
		kong.Description("Heads-up Hold'em equity calculator."))

	if err := run(cli, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}
}

func run(cli CLI, out io.Writer) error {
	hands, err := parseHands(cli.Hands)
	if err != nil {
		return err
	}
	var board []deck.Card
	if cli.Board != "" {
		if board, err = deck.ParseCards(cli.Board); err != nil {
			return fmt.Errorf("board: %w", err)
		}
	}
	if len(board) > 5 {
		return fmt.Errorf("board cannot have more than 5 cards")
	}
	if err := validateNoDuplicates(hands, board); err != nil {
		return err
	}
	if cli.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	seed := randutil.Seed(cli.Seed)

	start := time.Now()
	var results []PlayerResult
	if len(hands) == 1 {
		eq, err := evaluator.EstimateEquity(context.Background(), hands[0], board, cli.Iterations, seed)
		if err != nil {
			return err
		}
		results = []PlayerResult{{Hand: hands[0], Wins: eq.Wins, Ties: eq.Ties, Total: eq.Samples}}
	} else {
		results = calculateMonteCarlo(hands, board, cli.Iterations, seed)
	}
	displayResults(out, results, board, cli.Possibilities && len(hands) == 2, cli.Iterations, seed, time.Since(start))
	return nil
}

type PlayerResult struct {
	Hand          []deck.Card
	Wins          int
	Ties          int
	Total         int
	Possibilities map[evaluator.Category]int
}

func parseHands(handStrings []string) ([][]deck.Card, error) {
	if len(handStrings) == 0 || len(handStrings) > 2 {
		return nil, fmt.Errorf("give one or two hands, got %d", len(handStrings))
	}
	var hands [][]deck.Card
	for i, s := range handStrings {
		hand, err := deck.ParseCards(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i+1, err)
		}
		if len(hand) != 2 {
			return nil, fmt.Errorf("hand %d: must contain exactly 2 cards, got %d", i+1, len(hand))
		}
		hands = append(hands, hand)
	}
	return hands, nil
}

func validateNoDuplicates(hands [][]deck.Card, board []deck.Card) error {
	seen := make(map[deck.Card]bool)
	for _, card := range board {
		if seen[card] {
			return fmt.Errorf("duplicate card found: %s", card)
		}
		seen[card] = true
	}
	for i, hand := range hands {
		for _, card := range hand {
			if seen[card] {
				return fmt.Errorf("duplicate card found in hand %d: %s", i+1, card)
			}
			seen[card] = true
		}
	}
	return nil
}

// calculateMonteCarlo runs out random boards for two known hands.
func calculateMonteCarlo(hands [][]deck.Card, board []deck.Card, iterations int, seed int64) []PlayerResult {
	rng := randutil.New(seed)
	results := make([]PlayerResult, len(hands))
	for i := range results {
		results[i] = PlayerResult{Hand: hands[i], Total: iterations, Possibilities: make(map[evaluator.Category]int)}
	}

	used := make(map[deck.Card]bool)
	for _, c := range board {
		used[c] = true
	}
	for _, h := range hands {
		for _, c := range h {
			used[c] = true
		}
	}
	var available []deck.Card
	for _, c := range deck.New().Cards() {
		if !used[c] {
			available = append(available, c)
		}
	}

	need := 5 - len(board)
	fullBoard := make([]deck.Card, 5)
	copy(fullBoard, board)
	ranks := make([]evaluator.HandRank, len(hands))
	for iter := 0; iter < iterations; iter++ {
		// Partial Fisher-Yates: the first need cards are a uniform draw.
		for i := 0; i < need; i++ {
			j := i + rng.IntN(len(available)-i)
			available[i], available[j] = available[j], available[i]
			fullBoard[len(board)+i] = available[i]
		}

		for i, h := range hands {
			ranks[i], _ = evaluator.Best(h, fullBoard)
			results[i].Possibilities[ranks[i].Category]++
		}
		switch evaluator.Compare(ranks[0], ranks[1]) {
		case evaluator.Greater:
			results[0].Wins++
		case evaluator.Less:
			results[1].Wins++
		default:
			results[0].Ties++
			results[1].Ties++
		}
	}
	return results
}

func displayResults(out io.Writer, results []PlayerResult, board []deck.Card, showPossibilities bool, iterations int, seed int64, duration time.Duration) {
	if len(board) > 0 {
		fmt.Fprintf(out, "%s\n%s\n\n", headerStyle.Render("board"), deck.FormatCards(board))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", headerStyle.Render("hand"), headerStyle.Render("win"), headerStyle.Render("tie"))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			handStyle.Render(deck.FormatCards(r.Hand)),
			winStyle.Render(percent(r.Wins, r.Total)),
			tieStyle.Render(percent(r.Ties, r.Total)))
	}
	if len(results) == 1 {
		fmt.Fprintf(w, "%s\t\t\n", handStyle.Render("random"))
	}
	_ = w.Flush()

	if showPossibilities {
		fmt.Fprintln(out)
		displayPossibilities(out, results)
	}
	fmt.Fprintf(out, "\n%d iterations in %v (seed %d)\n", iterations, duration.Truncate(time.Millisecond), seed)
}

func displayPossibilities(out io.Writer, results []PlayerResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s", categoryStyle.Render("hand"))
	for _, r := range results {
		fmt.Fprintf(w, "\t%s", handStyle.Render(deck.FormatCards(r.Hand)))
	}
	fmt.Fprintln(w)

	for c := evaluator.RoyalFlush; c >= evaluator.HighCard; c-- {
		seen := false
		for _, r := range results {
			seen = seen || r.Possibilities[c] > 0
		}
		if !seen {
			continue
		}
		fmt.Fprintf(w, "%s", categoryStyle.Render(c.String()))
		for _, r := range results {
			if n := r.Possibilities[c]; n > 0 {
				fmt.Fprintf(w, "\t%s", percentStyle.Render(percent(n, r.Total)))
			} else {
				fmt.Fprintf(w, "\t%s", percentStyle.Render("."))
			}
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
