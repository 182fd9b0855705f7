package game

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/headsup/internal/deck"
)

func TestFormatPlayerAction(t *testing.T) {
	t.Parallel()

	you := NewEventFormatter(FormattingOptions{Perspective: 0})
	neutral := NewEventFormatter(FormattingOptions{Perspective: NoPerspective})

	tests := []struct {
		name    string
		event   PlayerActionEvent
		you     string
		neutral string
	}{
		{
			name:    "human folds",
			event:   PlayerActionEvent{Seat: 0, Name: "You", Opponent: "AI", Action: Fold, Requested: Fold},
			you:     "You folded. AI wins the pot.",
			neutral: "You folds. AI wins the pot.",
		},
		{
			name:    "opponent folds",
			event:   PlayerActionEvent{Seat: 1, Name: "AI", Opponent: "You", Action: Fold, Requested: Fold},
			you:     "AI folds. You win the pot!",
			neutral: "AI folds. You wins the pot.",
		},
		{
			name:    "human calls",
			event:   PlayerActionEvent{Seat: 0, Name: "You", Action: Call, Requested: Call, Amount: 50},
			you:     "You called $50.",
			neutral: "You calls $50.",
		},
		{
			name:    "opponent calls",
			event:   PlayerActionEvent{Seat: 1, Name: "AI", Action: Call, Requested: Call, Amount: 50},
			you:     "AI calls.",
			neutral: "AI calls $50.",
		},
		{
			name:    "check",
			event:   PlayerActionEvent{Seat: 1, Name: "AI", Action: Call, Requested: Call},
			you:     "AI checks.",
			neutral: "AI checks.",
		},
		{
			name:    "human raises",
			event:   PlayerActionEvent{Seat: 0, Name: "You", Action: Raise, Requested: Raise, Amount: 100, BetLevel: 100},
			you:     "You raised to $100.",
			neutral: "You raises to $100.",
		},
		{
			name:    "opponent raises",
			event:   PlayerActionEvent{Seat: 1, Name: "AI", Action: Raise, Requested: Raise, Amount: 50, BetLevel: 50},
			you:     "AI raises!",
			neutral: "AI raises to $50.",
		},
		{
			name:    "short call goes all-in",
			event:   PlayerActionEvent{Seat: 1, Name: "AI", Action: Call, Requested: Call, Amount: 30, AllIn: true, Downgraded: ErrInsufficientChips},
			you:     "AI goes all-in for $30.",
			neutral: "AI goes all-in for $30.",
		},
		{
			name:    "capped raise",
			event:   PlayerActionEvent{Seat: 0, Name: "You", Action: Call, Requested: Raise, Amount: 50, Downgraded: ErrRaiseCapped},
			you:     "You called $50 (raise cap reached).",
			neutral: "You calls $50 (raise cap reached).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.you, you.FormatPlayerAction(tt.event))
			assert.Equal(t, tt.neutral, neutral.FormatPlayerAction(tt.event))
		})
	}
}

func TestFormatHandEnd(t *testing.T) {
	t.Parallel()

	ef := NewEventFormatter(FormattingOptions{Perspective: 0})
	names := []string{"You", "AI"}

	won := HandEndEvent{Names: names, Result: Result{Reason: EndShowdown, Winners: []int{0}, Payouts: []int{300, 0}, Pot: 300}}
	assert.Equal(t, "You win the pot of $300!", ef.FormatHandEnd(won))

	lost := HandEndEvent{Names: names, Result: Result{Reason: EndShowdown, Winners: []int{1}, Payouts: []int{0, 300}, Pot: 300}}
	assert.Equal(t, "AI wins the pot of $300.", ef.FormatHandEnd(lost))

	even := HandEndEvent{Names: names, Result: Result{Reason: EndShowdown, Winners: []int{0, 1}, Payouts: []int{150, 150}, Pot: 300}}
	assert.Equal(t, "It's a tie! Pot split $150 each.", ef.FormatHandEnd(even))

	odd := HandEndEvent{Names: names, Result: Result{Reason: EndShowdown, Winners: []int{0, 1}, Payouts: []int{51, 50}, Pot: 101}}
	assert.Equal(t, "It's a tie! Pot split $51/$50.", ef.FormatHandEnd(odd))

	folded := HandEndEvent{Names: names, Result: Result{Reason: EndFold, Winners: []int{1}, Payouts: []int{0, 50}, Pot: 50}}
	assert.Empty(t, ef.FormatHandEnd(folded))
}

func TestFormatFullHand(t *testing.T) {
	t.Parallel()

	r := newTestRound(t, RoundConfig{RaiseIncrement: 50}, []int{1000, 1000},
		scripted(t, "As Ad  Kc Kd  2c 7h 9s  Jd  3h"))
	ef := NewEventFormatter(FormattingOptions{Perspective: 0})

	var lines []string
	out := mustAct(t, r, 0, Raise)
	lines = append(lines, ef.FormatAll(out.Events)...)
	out = mustAct(t, r, 1, Call)
	lines = append(lines, ef.FormatAll(out.Events)...)
	for r.Stage != HandOver {
		out = mustAct(t, r, r.ToAct, Call)
		lines = append(lines, ef.FormatAll(out.Events)...)
	}

	require.NotEmpty(t, lines)
	assert.Equal(t, "You raised to $50.", lines[0])
	assert.Equal(t, "AI calls.", lines[1])
	assert.Equal(t, "Flop: 2♣ 7♥ 9♠", lines[2])
	assert.Contains(t, lines, "Turn: J♦")
	assert.Contains(t, lines, "River: 3♥")
	assert.Contains(t, lines, "Showdown! Revealing hands...")
	assert.Contains(t, lines, "You show A♠ A♦: Pair of Aces\nAI shows K♣ K♦: Pair of Kings")
	assert.Equal(t, "You win the pot of $100!", lines[len(lines)-1])
}

func TestFormatHandStartAndAbort(t *testing.T) {
	t.Parallel()

	ef := NewEventFormatter(FormattingOptions{Perspective: NoPerspective})
	assert.Equal(t, "New hand started!", ef.Format(HandStartEvent{}))
	assert.Equal(t, "Deck exhausted. Hand cancelled and all bets returned.",
		ef.Format(HandAbortedEvent{Cause: fmt.Errorf("deal flop: %w", deck.ErrDeckExhausted)}))
	assert.True(t, strings.HasPrefix(ef.Format(HandAbortedEvent{Cause: ErrChipConservation}), "Hand cancelled"))
}

func TestEventBusSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	var got []EventType
	unsubscribe := bus.Subscribe(EventSubscriberFunc(func(e GameEvent) {
		got = append(got, e.EventType())
	}))

	bus.Publish(HandStartEvent{})
	unsubscribe()
	unsubscribe()
	bus.Publish(HandEndEvent{})

	assert.Equal(t, []EventType{EventTypeHandStart}, got)
}
