package game

import "github.com/lox/headsup/internal/deck"

// PlayerView is a read-only copy of a Player.
type PlayerView struct {
	ID          string
	Name        string
	Seat        int
	Chips       int
	Hole        []deck.Card // nil when hidden from the viewer
	Committed   int
	Contributed int
	Folded      bool
	AllIn       bool
	Acted       bool
}

// Snapshot is a deep copy of a RoundState that is safe to keep and share.
type Snapshot struct {
	HandNumber       int
	Stage            Stage
	Pot              int
	CurrentBet       int
	RaiseIncrement   int
	MaxRaises        int
	RaisesThisStreet int
	Players          []PlayerView
	Community        []deck.Card
	ToAct            int
	FirstToAct       int
	Result           *Result
}

// Snapshot returns a deep copy of the current state with every hole card
// visible.
func (r *RoundState) Snapshot() Snapshot {
	s := Snapshot{
		HandNumber:       r.HandNumber,
		Stage:            r.Stage,
		Pot:              r.Pot,
		CurrentBet:       r.CurrentBet,
		RaiseIncrement:   r.RaiseIncrement,
		MaxRaises:        r.MaxRaises,
		RaisesThisStreet: r.RaisesThisStreet,
		Community:        r.communityCopy(),
		ToAct:            r.ToAct,
		FirstToAct:       r.FirstToAct,
		Players:          make([]PlayerView, len(r.Players)),
	}
	for i, p := range r.Players {
		s.Players[i] = PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			Seat:        p.Seat,
			Chips:       p.Chips,
			Hole:        append([]deck.Card(nil), p.Hole...),
			Committed:   p.Committed,
			Contributed: p.Contributed,
			Folded:      p.Folded,
			AllIn:       p.AllIn,
			Acted:       p.Acted,
		}
	}
	if r.Result != nil {
		res := *r.Result
		res.Winners = append([]int(nil), r.Result.Winners...)
		res.Payouts = append([]int(nil), r.Result.Payouts...)
		res.Hands = append([]string(nil), r.Result.Hands...)
		s.Result = &res
	}
	return s
}

// ForSeat hides the opponent's hole cards unless they were shown down.
func (s Snapshot) ForSeat(seat int) Snapshot {
	out := s
	out.Players = append([]PlayerView(nil), s.Players...)
	if s.Revealed() {
		return out
	}
	for i := range out.Players {
		if out.Players[i].Seat != seat {
			out.Players[i].Hole = nil
		}
	}
	return out
}

// Revealed reports whether both hands were shown at a showdown.
func (s Snapshot) Revealed() bool {
	return s.Stage == Showdown || (s.Result != nil && s.Result.Reason == EndShowdown)
}

// TotalPot returns the pot including chips committed on the open street.
func (s Snapshot) TotalPot() int {
	total := s.Pot
	for _, p := range s.Players {
		total += p.Committed
	}
	return total
}

// ToCall returns the chips seat must add to match the current bet.
func (s Snapshot) ToCall(seat int) int {
	return max(s.CurrentBet-s.Players[seat].Committed, 0)
}

// Opponent returns the other player's view.
func (s Snapshot) Opponent(seat int) PlayerView {
	return s.Players[1-seat]
}

// SeatOf returns the seat of the player with the given id, or -1.
func (s Snapshot) SeatOf(id string) int {
	for _, p := range s.Players {
		if p.ID == id {
			return p.Seat
		}
	}
	return -1
}

// Over reports whether the hand has been decided.
func (s Snapshot) Over() bool {
	return s.Stage == HandOver
}

func (r *RoundState) communityCopy() []deck.Card {
	return append([]deck.Card(nil), r.Community...)
}
