package game

import (
	"fmt"

	"github.com/lox/headsup/internal/evaluator"
)

// Outcome describes what an Act call actually did.
type Outcome struct {
	Requested Action
	Applied   Action
	// Amount is the number of chips moved from the player's stack.
	Amount int
	// Downgraded is ErrInsufficientChips, ErrRaiseCapped or ErrOpponentAllIn
	// when the requested action could not be applied as asked.
	Downgraded   error
	StreetClosed bool
	Events       []GameEvent
}

// Act applies a betting action for seat. Running out of cards aborts the
// hand (everyone is refunded) and returns an error wrapping
// deck.ErrDeckExhausted.
func (r *RoundState) Act(seat int, action Action) (Outcome, error) {
	out := Outcome{Requested: action, Applied: action}

	if !r.Stage.IsBetting() {
		return out, ErrHandOver
	}
	if !action.Valid() {
		return out, fmt.Errorf("%w: %d", ErrUnknownAction, int(action))
	}
	if seat != r.ToAct {
		return out, fmt.Errorf("%w: seat %d acted, seat %d to act", ErrNotYourTurn, seat, r.ToAct)
	}

	p := r.Players[seat]
	opp := r.Opponent(seat)

	if action == Raise {
		switch {
		case !opp.canAct():
			out.Applied, out.Downgraded = Call, ErrOpponentAllIn
		case r.MaxRaises > 0 && r.RaisesThisStreet >= r.MaxRaises:
			out.Applied, out.Downgraded = Call, ErrRaiseCapped
		}
	}

	switch out.Applied {
	case Fold:
		p.Folded = true
		p.Acted = true
		r.emit(newPlayerActionEvent(r, p, out))
		r.awardFold(opp)
		out.Events = r.DrainEvents()
		return out, nil

	case Call:
		owed := r.ToCall(seat)
		out.Amount = p.commit(owed)
		if out.Amount < owed {
			out.Downgraded = ErrInsufficientChips
		}

	case Raise:
		target := r.CurrentBet + r.RaiseIncrement
		delta := target - p.Committed
		out.Amount = p.commit(delta)
		if out.Amount < delta {
			out.Downgraded = ErrInsufficientChips
		}
		if p.Committed > r.CurrentBet {
			r.CurrentBet = p.Committed
			r.RaisesThisStreet++
			opp.Acted = false
		} else {
			// Could not even cover the call, so this was a short all-in call.
			out.Applied = Call
		}
	}
	p.Acted = true
	r.emit(newPlayerActionEvent(r, p, out))

	if !r.bettingComplete() {
		r.ToAct = opp.Seat
		out.Events = r.DrainEvents()
		return out, nil
	}

	out.StreetClosed = true
	err := r.advance()
	out.Events = r.DrainEvents()
	return out, err
}

// bettingComplete reports whether the open street can close: every player
// who can still bet has acted and matched the bet level.
func (r *RoundState) bettingComplete() bool {
	for _, p := range r.Players {
		if p.Folded || p.AllIn {
			continue
		}
		if !p.Acted || p.Committed != r.CurrentBet {
			return false
		}
	}
	return true
}

// advance closes the current street and moves to the next, dealing the board
// as it goes. While fewer than two players can bet, streets close without
// action until the showdown.
func (r *RoundState) advance() error {
	for {
		r.closeStreet()
		next := r.Stage + 1

		if next == Showdown {
			r.Stage = Showdown
			r.emit(StreetChangeEvent{HandNumber: r.HandNumber, Stage: Showdown, Community: r.communityCopy(), timestamp: now()})
			return r.showdown()
		}

		need := next.boardSize() - len(r.Community)
		cards, err := r.Deck.Deal(need)
		if err != nil {
			r.Abort(err)
			return fmt.Errorf("deal %s: %w", next, err)
		}
		r.Community = append(r.Community, cards...)
		r.Stage = next
		r.emit(StreetChangeEvent{HandNumber: r.HandNumber, Stage: next, Community: r.communityCopy(), timestamp: now()})

		if r.canBet() {
			r.ToAct = r.FirstToAct
			return nil
		}
	}
}

// canBet reports whether both players still have chips behind.
func (r *RoundState) canBet() bool {
	for _, p := range r.Players {
		if !p.canAct() {
			return false
		}
	}
	return true
}

// closeStreet returns any uncalled chips, collects the rest into the pot and
// resets the per-street fields.
func (r *RoundState) closeStreet() {
	returnUncalled(r.Players)
	r.Pot += collectCommitted(r.Players)
	for _, p := range r.Players {
		p.Acted = false
	}
	r.CurrentBet = 0
	r.RaisesThisStreet = 0
}

func (r *RoundState) awardFold(winner *Player) {
	r.Pot += collectCommitted(r.Players)
	payouts := make([]int, len(r.Players))
	payouts[winner.Seat] = r.Pot
	r.finish(&Result{
		Reason:  EndFold,
		Winners: []int{winner.Seat},
		Payouts: payouts,
		Pot:     r.Pot,
	})
}

func (r *RoundState) showdown() error {
	ranks := make([]evaluator.HandRank, len(r.Players))
	hands := make([]string, len(r.Players))
	for i, p := range r.Players {
		rank, err := evaluator.Best(p.Hole, r.Community)
		if err != nil {
			r.Abort(err)
			return fmt.Errorf("evaluate seat %d: %w", i, err)
		}
		ranks[i] = rank
		hands[i] = rank.String()
	}
	r.emit(newShowdownEvent(r, ranks))

	var winners []int
	switch evaluator.Compare(ranks[0], ranks[1]) {
	case evaluator.Greater:
		winners = []int{0}
	case evaluator.Less:
		winners = []int{1}
	default:
		winners = []int{0, 1}
	}

	r.finish(&Result{
		Reason:  EndShowdown,
		Winners: winners,
		Payouts: SplitPot(r.Pot, len(r.Players), winners, r.FirstToAct),
		Pot:     r.Pot,
		Hands:   hands,
	})
	return nil
}

// finish pays out res and ends the hand.
func (r *RoundState) finish(res *Result) {
	for seat, amount := range res.Payouts {
		r.Players[seat].Chips += amount
	}
	for _, p := range r.Players {
		p.AllIn = false
	}
	r.Pot = 0
	r.CurrentBet = 0
	r.Stage = HandOver
	r.Result = res
	names := make([]string, len(r.Players))
	stacks := make([]int, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.DisplayName()
		stacks[i] = p.Chips
	}
	r.emit(HandEndEvent{HandNumber: r.HandNumber, Result: *res, Names: names, Stacks: stacks, timestamp: now()})
}
