package scheduler

import (
	"math/rand/v2"
	"testing"
)

func TestDeckRounds(t *testing.T) {
	d := NewDeck(5, rand.New(rand.NewPCG(3, 4)))

	for round := range 4 {
		seen := make(map[int]bool)
		for range 5 {
			idx, ok := d.Draw(nil)
			if !ok {
				t.Fatalf("round %d: draw failed", round)
			}
			if seen[idx] {
				t.Fatalf("round %d: %d drawn twice", round, idx)
			}
			seen[idx] = true
		}
		if d.Available() != 0 || d.Used() != 5 {
			t.Fatalf("round %d: available=%d used=%d", round, d.Available(), d.Used())
		}
	}
}

func TestDeckEligibility(t *testing.T) {
	d := NewDeck(3, rand.New(rand.NewPCG(5, 6)))

	idx, ok := d.Draw(func(i int) bool { return i == 2 })
	if !ok || idx != 2 {
		t.Fatalf("Draw = %d, %v; want 2", idx, ok)
	}
	if _, ok := d.Draw(func(i int) bool { return i == 2 }); ok {
		t.Fatal("drew 2 twice in one round")
	}
	if d.Available() != 2 {
		t.Fatalf("ineligible draw changed the deck: available=%d", d.Available())
	}
}

func TestDeckEmpty(t *testing.T) {
	d := NewDeck(0, rand.New(rand.NewPCG(1, 1)))
	if _, ok := d.Draw(nil); ok {
		t.Fatal("drew from an empty deck")
	}
}
