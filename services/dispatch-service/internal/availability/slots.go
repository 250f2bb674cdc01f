package availability

import (
	"sort"
	"time"
)

// Interval is a half-open UTC range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clip returns the intersection of iv with window, or false when they do not overlap.
func Clip(iv, window Interval) (Interval, bool) {
	if !Overlaps(iv, window) {
		return Interval{}, false
	}
	out := iv
	if out.Start.Before(window.Start) {
		out.Start = window.Start
	}
	if out.End.After(window.End) {
		out.End = window.End
	}
	return out, !out.Empty()
}

// Subtract removes every busy interval from base and returns the disjoint,
// start-ordered remainder. busy is not modified.
func Subtract(base Interval, busy []Interval) []Interval {
	if base.Empty() {
		return nil
	}
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	SortByStart(sorted)

	var free []Interval
	cursor := base.Start
	for _, b := range sorted {
		if !b.End.After(cursor) || b.Empty() {
			continue
		}
		if !b.Start.Before(base.End) {
			break
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(base.End) {
			break
		}
	}
	if cursor.Before(base.End) {
		free = append(free, Interval{Start: cursor, End: base.End})
	}
	return free
}

// Merge unions overlapping intervals of a start-ordered slice. Touching
// intervals stay separate so each shift keeps its own slot grid.
func Merge(sorted []Interval) []Interval {
	var out []Interval
	for _, iv := range sorted {
		if iv.Empty() {
			continue
		}
		if n := len(out); n > 0 && iv.Start.Before(out[n-1].End) {
			if iv.End.After(out[n-1].End) {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// SplitIntoSlots cuts free intervals into back-to-back slots of exactly
// duration, walking the intervals in order and stopping once limit slots exist.
func SplitIntoSlots(free []Interval, duration time.Duration, limit int) []Interval {
	if duration <= 0 || limit <= 0 {
		return nil
	}
	var slots []Interval
	for _, iv := range free {
		for cursor := iv.Start; !cursor.Add(duration).After(iv.End); cursor = cursor.Add(duration) {
			slots = append(slots, Interval{Start: cursor, End: cursor.Add(duration)})
			if len(slots) >= limit {
				return slots
			}
		}
	}
	return slots
}

// SortByStart orders intervals by start, keeping the relative order of equal starts.
func SortByStart(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].Start.Before(ivs[j].Start)
	})
}
