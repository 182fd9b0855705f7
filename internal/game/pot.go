package game

// collectCommitted moves every player's street commitment out of Committed
// and returns the total for the pot.
func collectCommitted(players []*Player) int {
	total := 0
	for _, p := range players {
		total += p.Committed
		p.Committed = 0
	}
	return total
}

// returnUncalled gives back the part of the largest commitment that nobody
// matched. With two players that happens when the caller was all-in for less.
func returnUncalled(players []*Player) {
	var top, second *Player
	for _, p := range players {
		switch {
		case top == nil || p.Committed > top.Committed:
			top, second = p, top
		case second == nil || p.Committed > second.Committed:
			second = p
		}
	}
	if top == nil || second == nil {
		return
	}
	excess := top.Committed - second.Committed
	if excess <= 0 {
		return
	}
	top.Committed -= excess
	top.Contributed -= excess
	top.Chips += excess
	top.AllIn = false
}

// SplitPot divides pot evenly between the winning seats and returns the
// payout per seat. Chips that do not divide evenly go one at a time to the
// winners starting from oddChipSeat and moving up, so nothing is lost.
func SplitPot(pot, seats int, winners []int, oddChipSeat int) []int {
	payouts := make([]int, seats)
	if len(winners) == 0 {
		return payouts
	}
	share := pot / len(winners)
	for _, w := range winners {
		payouts[w] = share
	}

	remainder := pot - share*len(winners)
	isWinner := make(map[int]bool, len(winners))
	for _, w := range winners {
		isWinner[w] = true
	}
	for i := 0; remainder > 0; i++ {
		seat := (oddChipSeat + i) % seats
		if isWinner[seat] {
			payouts[seat]++
			remainder--
		}
	}
	return payouts
}
