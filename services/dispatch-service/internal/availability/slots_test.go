package availability

import (
	"testing"
	"time"
)

var day = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func iv(h1, m1, h2, m2 int) Interval {
	return Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	if Overlaps(iv(9, 0, 10, 0), iv(10, 0, 11, 0)) {
		t.Fatal("touching intervals must not overlap")
	}
	if !Overlaps(iv(9, 0, 10, 1), iv(10, 0, 11, 0)) {
		t.Fatal("expected overlap")
	}
	if !Overlaps(iv(9, 0, 17, 0), iv(12, 0, 13, 0)) {
		t.Fatal("expected containment to overlap")
	}
}

func TestSubtract(t *testing.T) {
	base := iv(9, 0, 17, 0)
	cases := []struct {
		name string
		busy []Interval
		want []Interval
	}{
		{"none", nil, []Interval{base}},
		{"inside", []Interval{iv(11, 0, 13, 0)}, []Interval{iv(9, 0, 11, 0), iv(13, 0, 17, 0)}},
		{"left edge", []Interval{iv(8, 0, 10, 0)}, []Interval{iv(10, 0, 17, 0)}},
		{"right edge", []Interval{iv(16, 0, 18, 0)}, []Interval{iv(9, 0, 16, 0)}},
		{"covers", []Interval{iv(8, 0, 18, 0)}, nil},
		{"exact", []Interval{base}, nil},
		{"unsorted overlapping", []Interval{iv(14, 0, 15, 0), iv(10, 0, 12, 0), iv(11, 0, 13, 0)},
			[]Interval{iv(9, 0, 10, 0), iv(13, 0, 14, 0), iv(15, 0, 17, 0)}},
		{"outside", []Interval{iv(6, 0, 9, 0), iv(17, 0, 19, 0)}, []Interval{base}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(base, tc.busy)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d intervals, got %d (%v)", len(tc.want), len(got), got)
			}
			for i := range got {
				if !got[i].Start.Equal(tc.want[i].Start) || !got[i].End.Equal(tc.want[i].End) {
					t.Fatalf("interval %d: expected %v, got %v", i, tc.want[i], got[i])
				}
			}
			for _, f := range got {
				if f.Empty() {
					t.Fatalf("empty interval in result: %v", f)
				}
				for _, b := range tc.busy {
					if Overlaps(f, b) {
						t.Fatalf("free %v overlaps busy %v", f, b)
					}
				}
			}
		})
	}
}

func TestSubtract_CoversBaseMinusBusy(t *testing.T) {
	base := iv(9, 0, 17, 0)
	busy := []Interval{iv(10, 0, 10, 30), iv(12, 0, 14, 0), iv(13, 0, 15, 0)}
	free := Subtract(base, busy)

	// Every minute of base is either free or busy, never both.
	for m := base.Start; m.Before(base.End); m = m.Add(time.Minute) {
		minute := Interval{Start: m, End: m.Add(time.Minute)}
		inFree, inBusy := false, false
		for _, f := range free {
			if Overlaps(f, minute) {
				inFree = true
			}
		}
		for _, b := range busy {
			if Overlaps(b, minute) {
				inBusy = true
			}
		}
		if inFree == inBusy {
			t.Fatalf("minute %s: free=%v busy=%v", m.Format("15:04"), inFree, inBusy)
		}
	}
}

func TestSubtract_DoesNotMutateInput(t *testing.T) {
	busy := []Interval{iv(14, 0, 15, 0), iv(10, 0, 11, 0)}
	_ = Subtract(iv(9, 0, 17, 0), busy)
	if !busy[0].Start.Equal(at(14, 0)) {
		t.Fatal("busy slice was reordered")
	}
}

func TestSplitIntoSlots_BackToBack(t *testing.T) {
	d := 40 * time.Minute
	free := []Interval{{Start: at(9, 0), End: at(9, 0).Add(3 * d)}}
	slots := SplitIntoSlots(free, d, 10)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, s := range slots {
		if s.Duration() != d {
			t.Fatalf("slot %d has length %s", i, s.Duration())
		}
		if i > 0 && !s.Start.Equal(slots[i-1].End) {
			t.Fatalf("slot %d does not start where slot %d ends", i, i-1)
		}
	}
}

func TestSplitIntoSlots_LimitAcrossIntervals(t *testing.T) {
	free := []Interval{iv(9, 0, 11, 0), iv(13, 0, 17, 0)}
	slots := SplitIntoSlots(free, time.Hour, 4)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if !slots[2].Start.Equal(at(13, 0)) || !slots[3].Start.Equal(at(14, 0)) {
		t.Fatalf("unexpected slots: %v", slots)
	}
}

func TestSplitIntoSlots_DropsShortTail(t *testing.T) {
	slots := SplitIntoSlots([]Interval{iv(9, 0, 10, 30)}, time.Hour, 5)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
}

func TestSplitIntoSlots_InvalidArgs(t *testing.T) {
	free := []Interval{iv(9, 0, 17, 0)}
	if SplitIntoSlots(free, 0, 5) != nil {
		t.Fatal("expected nil for zero duration")
	}
	if SplitIntoSlots(free, time.Hour, 0) != nil {
		t.Fatal("expected nil for zero limit")
	}
}

func TestClip(t *testing.T) {
	got, ok := Clip(iv(8, 0, 12, 0), iv(10, 0, 18, 0))
	if !ok || !got.Start.Equal(at(10, 0)) || !got.End.Equal(at(12, 0)) {
		t.Fatalf("unexpected clip: %v ok=%v", got, ok)
	}
	if _, ok := Clip(iv(8, 0, 10, 0), iv(10, 0, 18, 0)); ok {
		t.Fatal("touching intervals must not clip")
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]Interval{iv(9, 0, 17, 0), iv(10, 0, 12, 0), iv(16, 0, 18, 0), iv(18, 0, 19, 0), iv(20, 0, 20, 0)})
	want := []Interval{iv(9, 0, 18, 0), iv(18, 0, 19, 0)}
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if Merge(nil) != nil {
		t.Fatal("expected nil for no input")
	}
}
