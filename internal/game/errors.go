package game

import "errors"

var (
	// ErrNotYourTurn is returned when a seat acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrHandOver is returned for actions after the hand has been decided.
	ErrHandOver = errors.New("hand is over")
	// ErrUnknownAction is returned for actions other than fold, call and raise.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInsufficientChips marks a call or raise that was clamped to an
	// all-in. It is reported in Outcome.Downgraded, never returned.
	ErrInsufficientChips = errors.New("insufficient chips")
	// ErrRaiseCapped marks a raise turned into a call by the raise cap.
	ErrRaiseCapped = errors.New("raise cap reached")
	// ErrOpponentAllIn marks a raise turned into a call because the
	// opponent has nothing left to call it with.
	ErrOpponentAllIn = errors.New("opponent is all-in")

	// ErrInvalidRound is returned by NewRound for unusable seating.
	ErrInvalidRound = errors.New("invalid round")
	// ErrChipConservation means chips were created or destroyed.
	ErrChipConservation = errors.New("chip conservation violated")
)
