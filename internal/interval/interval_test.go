package interval

import (
	"math/rand"
	"testing"
	"time"
)

var base = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func closed(start, end int) Interval {
	e := at(end)
	return Interval{Start: at(start), End: &e}
}

func TestElapsed_MergesOverlaps(t *testing.T) {
	// [0,100] and [50,150] coalesce into 150s; [200,300] adds 100s.
	got := Elapsed([]Interval{closed(0, 100), closed(50, 150), closed(200, 300)}, at(400), false)
	if want := 250 * time.Second; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElapsed_OrderIndependent(t *testing.T) {
	intervals := []Interval{closed(0, 100), closed(50, 150), closed(200, 300), closed(120, 140), closed(10, 20)}
	want := Elapsed(intervals, at(500), false)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]Interval(nil), intervals...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Elapsed(shuffled, at(500), false); got != want {
			t.Fatalf("permutation %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestElapsed_NestedIntervals(t *testing.T) {
	got := Elapsed([]Interval{closed(0, 300), closed(50, 100), closed(150, 200)}, at(400), false)
	if want := 300 * time.Second; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElapsed_AdjacentIntervalsCoalesce(t *testing.T) {
	got := Elapsed([]Interval{closed(0, 100), closed(100, 200)}, at(300), false)
	if want := 200 * time.Second; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElapsed_OpenIntervalDiscardedWhenNotEligible(t *testing.T) {
	// A never-closed session from a past day contributes nothing.
	got := Elapsed([]Interval{{Start: at(0)}}, at(1000), false)
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestElapsed_OpenIntervalResolvesToNow(t *testing.T) {
	got := Elapsed([]Interval{{Start: at(0)}}, at(90), true)
	if want := 90 * time.Second; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElapsed_OpenIntervalMergesWithClosed(t *testing.T) {
	got := Elapsed([]Interval{closed(0, 60), {Start: at(30)}}, at(120), true)
	if want := 120 * time.Second; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElapsed_Empty(t *testing.T) {
	if got := Elapsed(nil, at(0), true); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestElapsed_DoesNotMutateInput(t *testing.T) {
	intervals := []Interval{closed(200, 300), closed(0, 100)}
	Elapsed(intervals, at(400), false)
	if !intervals[0].Start.Equal(at(200)) {
		t.Fatal("input slice was reordered")
	}
}

func TestSameDay(t *testing.T) {
	now := time.Date(2024, 5, 20, 23, 0, 0, 0, time.UTC)
	if !SameDay(time.Date(2024, 5, 20, 1, 0, 0, 0, time.UTC), now) {
		t.Fatal("same calendar day reported as different")
	}
	if SameDay(time.Date(2024, 5, 19, 23, 59, 0, 0, time.UTC), now) {
		t.Fatal("previous day reported as same")
	}
}
