package game

import "github.com/lox/headsup/internal/deck"

// Player represents a player in a hand
type Player struct {
	ID    string
	Name  string
	Seat  int
	Chips int
	Hole  []deck.Card

	Committed   int // chips put in during the current street
	Contributed int // chips put in during the whole hand, refunded on abort
	Folded      bool
	AllIn       bool
	Acted       bool // acted since the bet level last changed
}

// DisplayName returns Name, falling back to ID.
func (p *Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// canAct reports whether the player still has decisions to make this hand.
func (p *Player) canAct() bool {
	return !p.Folded && !p.AllIn && p.Chips > 0
}

// commit moves up to amount chips from the stack into Committed. It returns
// the chips actually moved; a player who runs out is marked all-in.
func (p *Player) commit(amount int) int {
	if amount <= 0 {
		return 0
	}
	if amount >= p.Chips {
		amount = p.Chips
		p.AllIn = true
	}
	p.Chips -= amount
	p.Committed += amount
	p.Contributed += amount
	return amount
}
