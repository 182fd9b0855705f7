// Package phh writes hand histories in the Poker Hand History format, a TOML
// layout for replaying hands in third-party tools.
package phh

import "time"

// FixedLimitHoldem is the PHH variant code for fixed-limit Texas hold'em.
const FixedLimitHoldem = "FT"

// HandHistory is one hand. Player pN is seat N-1.
type HandHistory struct {
	Variant           string         `toml:"variant"`
	Table             string         `toml:"table,omitempty"`
	Antes             []int          `toml:"antes"`
	BlindsOrStraddles []int          `toml:"blinds_or_straddles"`
	SmallBet          int            `toml:"small_bet"`
	BigBet            int            `toml:"big_bet"`
	StartingStacks    []int          `toml:"starting_stacks"`
	FinishingStacks   []int          `toml:"finishing_stacks,omitempty"`
	Winnings          []int          `toml:"winnings,omitempty"`
	Actions           []string       `toml:"actions"`
	Players           []string       `toml:"players,omitempty"`
	Hand              int            `toml:"hand"`
	Time              string         `toml:"time,omitempty"`
	Day               int            `toml:"day,omitempty"`
	Month             int            `toml:"month,omitempty"`
	Year              int            `toml:"year,omitempty"`
	Metadata          map[string]any `toml:"metadata,omitempty"`

	Timestamp time.Time `toml:"-"`
}

func (h *HandHistory) stamp(t time.Time) {
	h.Timestamp = t
	h.Time = t.Format("15:04:05")
	h.Day = t.Day()
	h.Month = int(t.Month())
	h.Year = t.Year()
}
