package scheduler

import "math/rand/v2"

// Deck hands out frame indices so that every frame gets one turn before any
// frame gets a second one.
type Deck struct {
	available []int
	used      []int
	rng       *rand.Rand
}

func NewDeck(n int, rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reset(n)
	return d
}

// Reset starts a new round over n frames.
func (d *Deck) Reset(n int) {
	d.available = make([]int, n)
	for i := range d.available {
		d.available[i] = i
	}
	d.used = d.used[:0]
}

// Draw takes a random available index that eligible accepts and marks it
// used. An empty deck is refilled from the used indices first. It returns
// false when no available index is eligible right now; the deck is left as
// it was apart from a refill.
func (d *Deck) Draw(eligible func(int) bool) (int, bool) {
	if len(d.available) == 0 {
		d.available, d.used = d.used, d.available[:0]
	}
	if len(d.available) == 0 {
		return -1, false
	}

	candidates := make([]int, 0, len(d.available))
	for pos, idx := range d.available {
		if eligible == nil || eligible(idx) {
			candidates = append(candidates, pos)
		}
	}
	if len(candidates) == 0 {
		return -1, false
	}

	pos := candidates[d.rng.IntN(len(candidates))]
	idx := d.available[pos]
	last := len(d.available) - 1
	d.available[pos] = d.available[last]
	d.available = d.available[:last]
	d.used = append(d.used, idx)
	return idx, true
}

// Available returns how many frames still have a turn in this round.
func (d *Deck) Available() int { return len(d.available) }

// Used returns how many frames had their turn in this round.
func (d *Deck) Used() int { return len(d.used) }
