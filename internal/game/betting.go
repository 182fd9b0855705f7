package game

import (
	"fmt"
	"strings"
)

// Stage is the phase of a hand. Stages only move forward.
type Stage int

const (
	Preflop Stage = iota
	Flop
	Turn
	River
	Showdown
	HandOver
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case HandOver:
		return "handover"
	default:
		return "unknown"
	}
}

// ParseStage converts the String form back into a Stage.
func ParseStage(s string) (Stage, error) {
	for st := Preflop; st <= HandOver; st++ {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

func (s Stage) MarshalText() ([]byte, error) {
	if s < Preflop || s > HandOver {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	st, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// IsBetting reports whether players act during this stage.
func (s Stage) IsBetting() bool {
	return s >= Preflop && s <= River
}

// boardSize is the number of community cards showing during a stage.
func (s Stage) boardSize() int {
	switch s {
	case Preflop:
		return 0
	case Flop:
		return 3
	case Turn:
		return 4
	default:
		return 5
	}
}

// Action is a betting decision.
type Action int

const (
	Fold Action = iota
	Call
	Raise
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case Call:
		return "call"
	case Raise:
		return "raise"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a >= Fold && a <= Raise
}

// ParseAction accepts "fold", "call" or "raise" (any case). "check" is an
// alias for call.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold", "f":
		return Fold, nil
	case "call", "check", "c":
		return Call, nil
	case "raise", "r":
		return Raise, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	act, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = act
	return nil
}
