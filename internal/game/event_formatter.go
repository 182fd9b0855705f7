package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/headsup/internal/deck"
)

// NoPerspective formats every event in the third person.
const NoPerspective = -1

// FormattingOptions controls how events are formatted for different contexts
type FormattingOptions struct {
	// Perspective is the seat written as "You", or NoPerspective.
	Perspective int
}

// EventFormatter turns game events into the human-readable log lines shown
// to players.
type EventFormatter struct {
	opts FormattingOptions
}

// NewEventFormatter creates a new event formatter with the given options
func NewEventFormatter(opts FormattingOptions) *EventFormatter {
	return &EventFormatter{opts: opts}
}

// Format returns the log line for an event, or "" for events that produce
// no line.
func (ef *EventFormatter) Format(event GameEvent) string {
	switch e := event.(type) {
	case HandStartEvent:
		return "New hand started!"
	case PlayerActionEvent:
		return ef.FormatPlayerAction(e)
	case StreetChangeEvent:
		return ef.FormatStreetChange(e)
	case ShowdownEvent:
		return ef.FormatShowdown(e)
	case HandEndEvent:
		return ef.FormatHandEnd(e)
	case HandAbortedEvent:
		if errors.Is(e.Cause, deck.ErrDeckExhausted) {
			return "Deck exhausted. Hand cancelled and all bets returned."
		}
		return fmt.Sprintf("Hand cancelled (%v). All bets returned.", e.Cause)
	default:
		return ""
	}
}

// FormatAll formats events in order, dropping empty lines.
func (ef *EventFormatter) FormatAll(events []GameEvent) []string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		if line := ef.Format(e); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FormatPlayerAction formats a player action event into a human-readable string
func (ef *EventFormatter) FormatPlayerAction(e PlayerActionEvent) string {
	you := ef.isViewer(e.Seat)
	name := e.Name

	var text string
	switch {
	case e.Action == Fold && you:
		text = fmt.Sprintf("You folded. %s wins the pot.", e.Opponent)
	case e.Action == Fold && ef.opts.Perspective != NoPerspective:
		text = fmt.Sprintf("%s folds. You win the pot!", name)
	case e.Action == Fold:
		text = fmt.Sprintf("%s folds. %s wins the pot.", name, e.Opponent)

	case e.AllIn && e.Action == Raise:
		text = ef.subject(you, name, "go", "goes") + fmt.Sprintf(" all-in, raising to $%d.", e.BetLevel)
	case e.AllIn && e.Amount > 0:
		text = ef.subject(you, name, "go", "goes") + fmt.Sprintf(" all-in for $%d.", e.Amount)

	case e.Action == Call && e.Amount == 0:
		text = ef.subject(you, name, "check", "checks") + "."
	case e.Action == Call && you:
		text = fmt.Sprintf("You called $%d.", e.Amount)
	case e.Action == Call && ef.opts.Perspective != NoPerspective:
		text = fmt.Sprintf("%s calls.", name)
	case e.Action == Call:
		text = fmt.Sprintf("%s calls $%d.", name, e.Amount)

	case e.Action == Raise && you:
		text = fmt.Sprintf("You raised to $%d.", e.BetLevel)
	case e.Action == Raise && ef.opts.Perspective != NoPerspective:
		text = fmt.Sprintf("%s raises!", name)
	default:
		text = fmt.Sprintf("%s raises to $%d.", name, e.BetLevel)
	}

	if e.Requested == Raise && e.Action == Call && e.Downgraded != nil {
		text = strings.TrimSuffix(text, ".") + fmt.Sprintf(" (%v).", e.Downgraded)
	}
	return text
}

// FormatStreetChange formats a street change event into a human-readable string
func (ef *EventFormatter) FormatStreetChange(e StreetChangeEvent) string {
	switch e.Stage {
	case Flop:
		return "Flop: " + deck.FormatCards(e.Community)
	case Turn, River:
		if len(e.Community) == 0 {
			return ""
		}
		label := "Turn"
		if e.Stage == River {
			label = "River"
		}
		return fmt.Sprintf("%s: %s", label, e.Community[len(e.Community)-1])
	case Showdown:
		return "Showdown! Revealing hands..."
	default:
		return ""
	}
}

// FormatShowdown lists both hands, one per line.
func (ef *EventFormatter) FormatShowdown(e ShowdownEvent) string {
	lines := make([]string, 0, len(e.Hands))
	for _, h := range e.Hands {
		lines = append(lines, fmt.Sprintf("%s %s: %s",
			ef.subject(ef.isViewer(h.Seat), h.Name, "show", "shows"),
			deck.FormatCards(h.Hole), h.Rank))
	}
	return strings.Join(lines, "\n")
}

// FormatHandEnd formats the pot award. Folds were already announced by the
// action line and produce no extra text.
func (ef *EventFormatter) FormatHandEnd(e HandEndEvent) string {
	res := e.Result
	switch {
	case res.Reason != EndShowdown:
		return ""
	case res.IsSplit():
		a, b := res.Payouts[res.Winners[0]], res.Payouts[res.Winners[1]]
		if a == b {
			return fmt.Sprintf("It's a tie! Pot split $%d each.", a)
		}
		return fmt.Sprintf("It's a tie! Pot split $%d/$%d.", a, b)
	case len(res.Winners) == 1 && ef.isViewer(res.Winners[0]):
		return fmt.Sprintf("You win the pot of $%d!", res.Pot)
	case len(res.Winners) == 1:
		return fmt.Sprintf("%s wins the pot of $%d.", seatName(e.Names, res.Winners[0]), res.Pot)
	default:
		return ""
	}
}

func (ef *EventFormatter) isViewer(seat int) bool {
	return ef.opts.Perspective != NoPerspective && seat == ef.opts.Perspective
}

func (ef *EventFormatter) subject(you bool, name, second, third string) string {
	if you {
		return "You " + second
	}
	return name + " " + third
}

func seatName(names []string, seat int) string {
	if seat >= 0 && seat < len(names) && names[seat] != "" {
		return names[seat]
	}
	return fmt.Sprintf("Seat %d", seat)
}
