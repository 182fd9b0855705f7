// Package statistics summarises a series of heads-up hand results.
package statistics

import (
	"fmt"
	"math"
	"sort"
)

// Seats at a heads-up table, by betting order.
const (
	FirstToAct  = 0
	SecondToAct = 1
)

// HandResult is one hand from the tracked player's side.
type HandResult struct {
	Net            float64 // chips won or lost, in raise increments
	Seed           int64   // generator seed, for replaying the hand
	Position       int     // FirstToAct or SecondToAct
	WentToShowdown bool
	FinalPot       int // chips
	BoardCards     int // community cards dealt when the hand ended
}

// Moments accumulates enough to give a mean and sample variance.
type Moments struct {
	Hands int
	Sum   float64
	Sum2  float64
}

func (m *Moments) add(v float64) {
	m.Hands++
	m.Sum += v
	m.Sum2 += v * v
}

func (m *Moments) merge(o Moments) {
	m.Hands += o.Hands
	m.Sum += o.Sum
	m.Sum2 += o.Sum2
}

// Mean returns the average per hand.
func (m Moments) Mean() float64 {
	if m.Hands == 0 {
		return 0
	}
	return m.Sum / float64(m.Hands)
}

// Variance returns the sample variance.
func (m Moments) Variance() float64 {
	if m.Hands < 2 {
		return 0
	}
	mean := m.Mean()
	return (m.Sum2 - float64(m.Hands)*mean*mean) / float64(m.Hands-1)
}

func (m Moments) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// StdError returns the standard error of the mean.
func (m Moments) StdError() float64 {
	if m.Hands == 0 {
		return 0
	}
	return m.StdDev() / math.Sqrt(float64(m.Hands))
}

// ConfidenceInterval95 returns the normal-approximation 95% interval for
// the mean.
func (m Moments) ConfidenceInterval95() (float64, float64) {
	mean := m.Mean()
	margin := 1.96 * m.StdError()
	return mean - margin, mean + margin
}

// Statistics tracks a run of hands.
type Statistics struct {
	Moments
	Values []float64

	Showdowns       int
	ShowdownWins    int
	NonShowdownWins int
	ShowdownNet     float64 // wins and losses
	NonShowdownNet  float64

	Positions [2]Moments

	MaxPot int
	// Streets counts hands by community cards dealt when they ended:
	// 0 preflop, 3 flop, 4 turn, 5 river.
	Streets [6]int
}

// Add records one hand.
func (s *Statistics) Add(r HandResult) {
	s.add(r.Net)
	s.Values = append(s.Values, r.Net)

	if r.WentToShowdown {
		s.Showdowns++
		s.ShowdownNet += r.Net
		if r.Net > 0 {
			s.ShowdownWins++
		}
	} else {
		s.NonShowdownNet += r.Net
		if r.Net > 0 {
			s.NonShowdownWins++
		}
	}
	if r.Position == FirstToAct || r.Position == SecondToAct {
		s.Positions[r.Position].add(r.Net)
	}
	s.MaxPot = max(s.MaxPot, r.FinalPot)
	if r.BoardCards >= 0 && r.BoardCards < len(s.Streets) {
		s.Streets[r.BoardCards]++
	}
}

// Merge folds o into s. Workers each keep their own Statistics and merge at
// the end.
func (s *Statistics) Merge(o *Statistics) {
	if o == nil {
		return
	}
	s.merge(o.Moments)
	s.Values = append(s.Values, o.Values...)
	s.Showdowns += o.Showdowns
	s.ShowdownWins += o.ShowdownWins
	s.NonShowdownWins += o.NonShowdownWins
	s.ShowdownNet += o.ShowdownNet
	s.NonShowdownNet += o.NonShowdownNet
	for i := range s.Positions {
		s.Positions[i].merge(o.Positions[i])
	}
	s.MaxPot = max(s.MaxPot, o.MaxPot)
	for i := range s.Streets {
		s.Streets[i] += o.Streets[i]
	}
}

// Median returns the median result.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the interpolated value at p in [0, 1].
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.Values...)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Validate checks that the ledgers agree with each other.
func (s *Statistics) Validate() error {
	if s.Hands <= 0 {
		return fmt.Errorf("invalid hands count: %d", s.Hands)
	}
	if math.Abs(s.Sum-s.ShowdownNet-s.NonShowdownNet) > 1e-6 {
		return fmt.Errorf("ledger mismatch: total=%.6f showdown=%.6f non-showdown=%.6f",
			s.Sum, s.ShowdownNet, s.NonShowdownNet)
	}
	if len(s.Values) != s.Hands {
		return fmt.Errorf("kept %d values for %d hands", len(s.Values), s.Hands)
	}
	if s.ShowdownWins > s.Showdowns {
		return fmt.Errorf("showdown wins (%d) exceed showdowns (%d)", s.ShowdownWins, s.Showdowns)
	}
	if wins := s.ShowdownWins + s.NonShowdownWins; wins > s.Hands {
		return fmt.Errorf("total wins (%d) exceeds total hands (%d)", wins, s.Hands)
	}
	if n := s.Positions[0].Hands + s.Positions[1].Hands; n != s.Hands {
		return fmt.Errorf("position hands total (%d) does not match total hands (%d)", n, s.Hands)
	}
	return nil
}
