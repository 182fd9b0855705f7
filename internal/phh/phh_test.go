package phh

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
)

func TestCard(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Th", Card(deck.MustParseCard("10♥")))
	assert.Equal(t, "As", Card(deck.MustParseCard("As")))
	assert.Equal(t, "2c", Card(deck.MustParseCard("2c")))
	assert.Equal(t, "??", Card(deck.Card{}))
	assert.Equal(t, "KdQd", Cards(deck.MustParseCards("Kd Qd"), 2))
	assert.Equal(t, "????", Cards(nil, 2))
}

type collector struct {
	hands []*HandHistory
}

func (c *collector) add(h *HandHistory) error {
	c.hands = append(c.hands, h)
	return nil
}

// play runs a round dealt from cards, feeding every event to rec.
func play(t *testing.T, rec *Recorder, cards string, actions ...game.Action) error {
	t.Helper()
	d, err := deck.FromCards(deck.MustParseCards(cards))
	require.NoError(t, err)
	r, err := game.NewRound(game.RoundConfig{RaiseIncrement: 50},
		[]game.PlayerSeat{{ID: "a", Name: "Alice", Chips: 1000}, {ID: "b", Name: "Bob", Chips: 1000}},
		nil, game.WithDeck(d))
	require.NoError(t, err)

	var events []game.GameEvent
	var actErr error
	for _, a := range actions {
		out, err := r.Act(r.ToAct, a)
		events = append(events, out.Events...)
		if err != nil {
			actErr = err
			break
		}
	}
	events = append(events, r.DrainEvents()...)
	for _, e := range events {
		rec.OnEvent(e)
	}
	return actErr
}

func TestRecorderShowdown(t *testing.T) {
	t.Parallel()

	var got collector
	rec := NewRecorder("main", 50, got.add, nil)
	require.NoError(t, play(t, rec, "As Ad  Kc Kd  2c 7h 9s  Jd  3h",
		game.Raise, game.Call,
		game.Call, game.Call,
		game.Call, game.Call,
		game.Call, game.Call))

	require.Len(t, got.hands, 1)
	h := got.hands[0]
	assert.Equal(t, FixedLimitHoldem, h.Variant)
	assert.Equal(t, []string{"Alice", "Bob"}, h.Players)
	assert.Equal(t, []int{1000, 1000}, h.StartingStacks)
	assert.Equal(t, []int{1050, 950}, h.FinishingStacks)
	assert.Equal(t, []int{100, 0}, h.Winnings)
	assert.Equal(t, []string{
		"d dh p1 ????", "d dh p2 ????",
		"p1 cbr 50", "p2 cc",
		"d db 2c7h9s", "p1 cc", "p2 cc",
		"d db Jd", "p1 cc", "p2 cc",
		"d db 3h", "p1 cc", "p2 cc",
		"p1 sm AsAd", "p2 sm KcKd",
	}, h.Actions)
}

func TestRecorderFoldAndAbort(t *testing.T) {
	t.Parallel()

	var got collector
	rec := NewRecorder("", 50, got.add, nil)
	require.NoError(t, play(t, rec, "As Ad  Kc Kd  2c 7h 9s  Jd  3h", game.Raise, game.Fold))
	err := play(t, rec, "As Ad  Kc Kd", game.Raise, game.Call)
	require.ErrorIs(t, err, deck.ErrDeckExhausted)

	require.Len(t, got.hands, 2)
	folded := got.hands[0]
	assert.Equal(t, []string{"d dh p1 ????", "d dh p2 ????", "p1 cbr 50", "p2 f"}, folded.Actions)
	assert.Equal(t, []int{1000, 1000}, folded.FinishingStacks, "uncalled raise comes back")

	aborted := got.hands[1]
	assert.Equal(t, []int{1000, 1000}, aborted.FinishingStacks)
	assert.Equal(t, []int{0, 0}, aborted.Winnings)
	assert.Contains(t, aborted.Metadata["aborted"], "deck exhausted")
}

func TestRecorderReportsSinkErrors(t *testing.T) {
	t.Parallel()

	var reported []error
	rec := NewRecorder("", 50, func(*HandHistory) error { return errors.New("disk full") },
		func(err error) { reported = append(reported, err) })
	require.NoError(t, play(t, rec, "As Ad  Kc Kd  2c 7h 9s  Jd  3h", game.Raise, game.Fold))
	require.Len(t, reported, 1)
	assert.EqualError(t, reported[0], "disk full")
}

func TestWriterAppendsNamedTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	rec := NewRecorder("main", 50, w.Write, nil)
	require.NoError(t, play(t, rec, "As Ad  Kc Kd  2c 7h 9s  Jd  3h", game.Raise, game.Fold))
	require.NoError(t, play(t, rec, "As Ad  Kc Kd  2c 7h 9s  Jd  3h", game.Call, game.Fold))

	out := buf.String()
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, 2, strings.Count(out, "[1]"), "both hands are hand 1 of their round")
	assert.Contains(t, out, `variant = "FT"`)
	assert.Contains(t, out, `small_bet = 50`)
	assert.Contains(t, out, `"p2 f"`)

	assert.Error(t, w.Write(nil))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriterStickyError(t *testing.T) {
	t.Parallel()

	w := NewWriter(failingWriter{})
	h := &HandHistory{Variant: FixedLimitHoldem, Hand: 1}
	first := w.Write(h)
	require.Error(t, first)
	assert.Equal(t, first, w.Write(h))
	assert.Zero(t, w.Count())
}

func TestEncode(t *testing.T) {
	t.Parallel()

	data, err := EncodeToBytes(&HandHistory{Variant: FixedLimitHoldem, Hand: 7, Actions: []string{"p1 f"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "hand = 7")
	assert.Error(t, Encode(&bytes.Buffer{}, nil))
}
