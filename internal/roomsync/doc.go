package roomsync

import (
	"fmt"
	"strings"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/game"
	"github.com/lox/headsup/internal/store"
)

const (
	// TablePath holds the room-level fields.
	TablePath    = "table"
	playerPrefix = "players/"

	logLimit = 50
)

// PlayerPath is the store path of a player's sub-document.
func PlayerPath(id string) string {
	return playerPrefix + id
}

// TableDoc is the room-level document. The pointer fields are required;
// a snapshot missing any of them is rejected as malformed.
type TableDoc struct {
	CommunityCards *[]deck.Card `json:"communityCards"`
	Pot            *int         `json:"pot"`
	CurrentBet     *int         `json:"currentBet"`
	RoundStage     *game.Stage  `json:"roundStage"`

	HandNumber     int          `json:"handNumber"`
	ToAct          int          `json:"toAct"`
	FirstToAct     int          `json:"firstToAct"`
	RaiseIncrement int          `json:"raiseIncrement"`
	MaxRaises      int          `json:"maxRaises,omitempty"`
	Raises         int          `json:"raises"`
	StartingChips  int          `json:"startingChips"`
	Deck           []deck.Card  `json:"deck"`
	Seats          []string     `json:"seats"`
	Result         *game.Result `json:"result,omitempty"`
	// Log keeps the last lines of the shared event log; LogSeq counts every
	// line ever appended.
	Log    []string `json:"log"`
	LogSeq int      `json:"logSeq"`
}

// PlayerDoc is a player's sub-document.
type PlayerDoc struct {
	Hand   *[]deck.Card `json:"hand"`
	Chips  *int         `json:"chips"`
	Bet    *int         `json:"bet"`
	Folded *bool        `json:"folded"`

	Name        string `json:"name"`
	Seat        int    `json:"seat"`
	AllIn       bool   `json:"allIn"`
	Acted       bool   `json:"acted"`
	Contributed int    `json:"contributed"`
}

func (t *TableDoc) validate() error {
	var missing []string
	if t.CommunityCards == nil {
		missing = append(missing, "communityCards")
	}
	if t.Pot == nil {
		missing = append(missing, "pot")
	}
	if t.CurrentBet == nil {
		missing = append(missing, "currentBet")
	}
	if t.RoundStage == nil {
		missing = append(missing, "roundStage")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: table missing %s", store.ErrMalformed, strings.Join(missing, ", "))
	}
	if len(t.Seats) > 2 {
		return fmt.Errorf("%w: table has %d seats", store.ErrMalformed, len(t.Seats))
	}
	if *t.Pot < 0 || *t.CurrentBet < 0 || len(*t.CommunityCards) > 5 {
		return fmt.Errorf("%w: table values out of range", store.ErrMalformed)
	}
	if *t.RoundStage < game.Preflop || *t.RoundStage > game.HandOver {
		return fmt.Errorf("%w: stage %d", store.ErrMalformed, int(*t.RoundStage))
	}
	return nil
}

func (p *PlayerDoc) validate(id string) error {
	var missing []string
	if p.Hand == nil {
		missing = append(missing, "hand")
	}
	if p.Chips == nil {
		missing = append(missing, "chips")
	}
	if p.Bet == nil {
		missing = append(missing, "bet")
	}
	if p.Folded == nil {
		missing = append(missing, "folded")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: player %s missing %s", store.ErrMalformed, id, strings.Join(missing, ", "))
	}
	if *p.Chips < 0 || *p.Bet < 0 || (len(*p.Hand) != 0 && len(*p.Hand) != 2) {
		return fmt.Errorf("%w: player %s values out of range", store.ErrMalformed, id)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// newTable returns the document of a room nobody has dealt in yet.
func newTable(cfg Config) TableDoc {
	return TableDoc{
		CommunityCards: ptr([]deck.Card{}),
		Pot:            ptr(0),
		CurrentBet:     ptr(0),
		RoundStage:     ptr(game.HandOver),
		RaiseIncrement: cfg.RaiseIncrement,
		MaxRaises:      cfg.MaxRaises,
		StartingChips:  cfg.StartingChips,
		Deck:           []deck.Card{},
		Seats:          []string{},
		Log:            []string{},
	}
}

func newPlayer(name string, seat, chips int) PlayerDoc {
	return PlayerDoc{
		Hand:   ptr([]deck.Card{}),
		Chips:  ptr(chips),
		Bet:    ptr(0),
		Folded: ptr(false),
		Name:   name,
		Seat:   seat,
	}
}

// room is a decoded, validated room document.
type room struct {
	revision int64
	table    TableDoc
	players  []PlayerDoc // indexed by seat
}

// decodeRoom validates a snapshot. It fails with store.ErrMalformed when
// any required field is missing, so a partial write is never applied.
func decodeRoom(snap store.Snapshot) (*room, error) {
	e := snap.Get(TablePath)
	if !e.Exists() {
		return nil, fmt.Errorf("%w: no table", store.ErrMalformed)
	}
	var t TableDoc
	if err := json.Unmarshal(e.Data, &t); err != nil {
		return nil, fmt.Errorf("%w: table: %v", store.ErrMalformed, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	rm := &room{revision: snap.Revision, table: t, players: make([]PlayerDoc, len(t.Seats))}
	for seat, id := range t.Seats {
		pe := snap.Get(PlayerPath(id))
		if !pe.Exists() {
			return nil, fmt.Errorf("%w: seat %d player %s missing", store.ErrMalformed, seat, id)
		}
		var p PlayerDoc
		if err := json.Unmarshal(pe.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: player %s: %v", store.ErrMalformed, id, err)
		}
		if err := p.validate(id); err != nil {
			return nil, err
		}
		rm.players[seat] = p
	}
	return rm, nil
}

// readRoom loads and validates the room inside a transaction.
func readRoom(txn *store.Txn) (*room, bool, error) {
	var t TableDoc
	ok, err := txn.GetJSON(TablePath, &t)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := t.validate(); err != nil {
		return nil, true, err
	}
	rm := &room{table: t, players: make([]PlayerDoc, len(t.Seats))}
	for seat, id := range t.Seats {
		var p PlayerDoc
		found, err := txn.GetJSON(PlayerPath(id), &p)
		if err != nil {
			return nil, true, err
		}
		if !found {
			return nil, true, fmt.Errorf("%w: seat %d player %s missing", store.ErrMalformed, seat, id)
		}
		if err := p.validate(id); err != nil {
			return nil, true, err
		}
		rm.players[seat] = p
	}
	return rm, true, nil
}

// write stages every document of the room.
func (rm *room) write(txn *store.Txn) error {
	if err := txn.PutJSON(TablePath, rm.table); err != nil {
		return err
	}
	for seat, id := range rm.table.Seats {
		if err := txn.PutJSON(PlayerPath(id), rm.players[seat]); err != nil {
			return err
		}
	}
	return nil
}

func (rm *room) stage() game.Stage { return *rm.table.RoundStage }

// round rebuilds the betting state machine from the documents.
func (rm *room) round() (*game.RoundState, error) {
	d, err := deck.FromCards(rm.table.Deck)
	if err != nil {
		return nil, fmt.Errorf("%w: deck: %v", store.ErrMalformed, err)
	}
	r := &game.RoundState{
		HandNumber:       rm.table.HandNumber,
		Stage:            *rm.table.RoundStage,
		Pot:              *rm.table.Pot,
		CurrentBet:       *rm.table.CurrentBet,
		RaiseIncrement:   rm.table.RaiseIncrement,
		MaxRaises:        rm.table.MaxRaises,
		RaisesThisStreet: rm.table.Raises,
		Community:        append([]deck.Card(nil), (*rm.table.CommunityCards)...),
		ToAct:            rm.table.ToAct,
		FirstToAct:       rm.table.FirstToAct,
		Result:           rm.table.Result,
		Deck:             d,
	}
	for seat, id := range rm.table.Seats {
		p := rm.players[seat]
		r.Players = append(r.Players, &game.Player{
			ID:          id,
			Name:        p.Name,
			Seat:        seat,
			Chips:       *p.Chips,
			Hole:        append([]deck.Card(nil), (*p.Hand)...),
			Committed:   *p.Bet,
			Contributed: p.Contributed,
			Folded:      *p.Folded,
			AllIn:       p.AllIn,
			Acted:       p.Acted,
		})
	}
	return r, nil
}

// apply copies a RoundState back into the documents and appends lines to
// the shared log.
func (rm *room) apply(r *game.RoundState, lines []string) {
	t := &rm.table
	t.CommunityCards = ptr(append([]deck.Card{}, r.Community...))
	t.Pot = ptr(r.Pot)
	t.CurrentBet = ptr(r.CurrentBet)
	t.RoundStage = ptr(r.Stage)
	t.HandNumber = r.HandNumber
	t.ToAct = r.ToAct
	t.FirstToAct = r.FirstToAct
	t.RaiseIncrement = r.RaiseIncrement
	t.MaxRaises = r.MaxRaises
	t.Raises = r.RaisesThisStreet
	t.Deck = r.Deck.Cards()
	t.Result = r.Result
	t.appendLog(lines...)

	for _, p := range r.Players {
		doc := &rm.players[p.Seat]
		doc.Hand = ptr(append([]deck.Card{}, p.Hole...))
		doc.Chips = ptr(p.Chips)
		doc.Bet = ptr(p.Committed)
		doc.Folded = ptr(p.Folded)
		doc.AllIn = p.AllIn
		doc.Acted = p.Acted
		doc.Contributed = p.Contributed
	}
}

func (t *TableDoc) appendLog(lines ...string) {
	t.Log = append(t.Log, lines...)
	t.LogSeq += len(lines)
	if n := len(t.Log) - logLimit; n > 0 {
		t.Log = append([]string{}, t.Log[n:]...)
	}
}

// linesSince returns the log lines appended after seq.
func (t *TableDoc) linesSince(seq int) []string {
	n := t.LogSeq - seq
	if n <= 0 {
		return nil
	}
	if n > len(t.Log) {
		n = len(t.Log)
	}
	return append([]string(nil), t.Log[len(t.Log)-n:]...)
}

// snapshot is the game view of the room. It has fewer than two players
// while the room is filling up.
func (rm *room) snapshot() (game.Snapshot, error) {
	r, err := rm.round()
	if err != nil {
		return game.Snapshot{}, err
	}
	return r.Snapshot(), nil
}
