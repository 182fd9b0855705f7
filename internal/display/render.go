// Package display renders game snapshots for a terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/evaluator"
	"github.com/lox/headsup/internal/game"
)

// CardBack stands in for a card the viewer may not see.
const CardBack = "🂠"

// Renderer turns snapshots into styled text.
type Renderer struct {
	styles Styles
}

// NewRenderer detects the colour support of w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{styles: newStyles(lipgloss.NewRenderer(w))}
}

// NewPlainRenderer renders without escape codes.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{styles: newStyles(lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii)))}
}

// Styles exposes the renderer's styles for surrounding chrome.
func (r *Renderer) Styles() Styles { return r.styles }

// Card renders one card in its suit colour.
func (r *Renderer) Card(c deck.Card) string {
	if c.IsRed() {
		return r.styles.RedCard.Render(c.String())
	}
	return r.styles.BlackCard.Render(c.String())
}

// Cards renders cards separated by spaces.
func (r *Renderer) Cards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = r.Card(c)
	}
	return strings.Join(parts, " ")
}

// Hole renders a player's hole cards, or two card backs when they are
// hidden from the viewer.
func (r *Renderer) Hole(p game.PlayerView) string {
	if len(p.Hole) == 0 {
		return r.styles.Hidden.Render(CardBack + " " + CardBack)
	}
	return r.Cards(p.Hole)
}

// Board renders the community cards, padding undealt ones with dots.
func (r *Renderer) Board(cards []deck.Card) string {
	parts := make([]string, 0, 5)
	for _, c := range cards {
		parts = append(parts, r.Card(c))
	}
	for len(parts) < 5 {
		parts = append(parts, r.styles.Info.Render("··"))
	}
	return strings.Join(parts, " ")
}

// Table renders the board, pot and both players as seat sees them.
func (r *Renderer) Table(view game.Snapshot, seat int) string {
	if len(view.Players) < 2 {
		return r.styles.Info.Render("Waiting for an opponent...")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  Hand #%d  %s\n\n",
		r.styles.Header.Render("Heads-up Hold'em"), view.HandNumber, r.styles.Info.Render(view.Stage.String()))
	fmt.Fprintf(&b, "Board: %s\n", r.Board(view.Community))
	fmt.Fprintf(&b, "%s", r.styles.Pot.Render(fmt.Sprintf("Pot: $%d", view.TotalPot())))
	if view.CurrentBet > 0 {
		fmt.Fprintf(&b, "  %s", r.styles.Pot.Render(fmt.Sprintf("Bet: $%d", view.CurrentBet)))
	}
	b.WriteString("\n\n")

	order := []int{1 - seat, seat}
	if seat < 0 || seat > 1 {
		order = []int{0, 1}
	}
	for _, i := range order {
		b.WriteString(r.player(view, view.Players[i]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) player(view game.Snapshot, p game.PlayerView) string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	marker := "  "
	if view.Stage.IsBetting() && view.ToAct == p.Seat {
		marker = r.styles.ToAct.Render("▶ ")
	}

	var status []string
	if p.Committed > 0 {
		status = append(status, fmt.Sprintf("bet $%d", p.Committed))
	}
	if p.AllIn {
		status = append(status, "all-in")
	}
	if res := view.Result; res != nil && p.Seat < len(res.Payouts) && res.Payouts[p.Seat] > 0 {
		status = append(status, r.styles.Success.Render(fmt.Sprintf("won $%d", res.Payouts[p.Seat])))
	}

	label := r.styles.Player.Render(name)
	if p.Folded {
		label = r.styles.Folded.Render(name)
		status = append(status, "folded")
	}
	line := fmt.Sprintf("%s%s  $%d  %s", marker, label, p.Chips, r.Hole(p))
	if res := view.Result; res != nil && res.Reason == game.EndShowdown && p.Seat < len(res.Hands) {
		line += "  " + r.styles.Info.Render(res.Hands[p.Seat])
	}
	if len(status) > 0 {
		line += "  " + r.styles.Info.Render("("+strings.Join(status, ", ")+")")
	}
	return line
}

// Actions lists what seat may do right now.
func (r *Renderer) Actions(view game.Snapshot, seat int) string {
	if len(view.Players) < 2 || seat < 0 || seat > 1 {
		return ""
	}
	if !view.Stage.IsBetting() {
		return r.styles.Info.Render("Enter: next hand")
	}
	if view.ToAct != seat {
		name := view.Players[view.ToAct].Name
		return r.styles.Info.Render(fmt.Sprintf("Waiting for %s...", name))
	}

	owed := view.ToCall(seat)
	call := "[c]heck"
	if owed > 0 {
		call = fmt.Sprintf("[c]all $%d", min(owed, view.Players[seat].Chips))
	}
	actions := []string{
		r.styles.Error.Render("[f]old"),
		r.styles.Success.Render(call),
	}
	if r.canRaise(view, seat) {
		actions = append(actions, r.styles.Warning.Render(fmt.Sprintf("[r]aise to $%d", view.CurrentBet+view.RaiseIncrement)))
	}
	return r.styles.Action.Render("Actions: ") + strings.Join(actions, " ")
}

func (r *Renderer) canRaise(view game.Snapshot, seat int) bool {
	me, opp := view.Players[seat], view.Opponent(seat)
	if me.Chips <= view.ToCall(seat) || opp.AllIn || opp.Chips == 0 {
		return false
	}
	return view.MaxRaises == 0 || view.RaisesThisStreet < view.MaxRaises
}

// Equity renders a win-probability hint.
func (r *Renderer) Equity(e evaluator.Equity) string {
	if e.Samples == 0 {
		return ""
	}
	return r.styles.Info.Render(fmt.Sprintf("Equity vs random hand: %s (%d samples)", e, e.Samples))
}

// Warning renders a non-fatal problem.
func (r *Renderer) Warning(msg string) string {
	if msg == "" {
		return ""
	}
	return r.styles.Warning.Render("⚠ " + msg)
}

// Log renders the last limit lines.
func (r *Renderer) Log(lines []string, limit int) string {
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return strings.Join(lines, "\n")
}
