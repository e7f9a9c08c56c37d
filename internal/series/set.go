package series

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/hpungsan/spans/internal/errors"
)

// A Set is a digital interval series: an ordered collection of disjoint
// closed intervals describing where a binary signal is on.
//
// After every exported method returns, members are sorted by Start, do not
// overlap, and no two of them touch (adjacent members are merged). A Set is
// not safe for concurrent mutation; callers sharing one must synchronize.
type Set struct {
	intervals []Interval
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{}
}

// FromIntervals builds a canonical Set from intervals given in any order,
// possibly overlapping. It returns an INVALID_INTERVAL error if any element
// has Start > End.
func FromIntervals(intervals []Interval) (*Set, error) {
	for _, iv := range intervals {
		if !iv.Valid() {
			return nil, errors.NewInvalidInterval(iv.Start, iv.End)
		}
	}
	return &Set{intervals: canonicalize(slices.Clone(intervals))}, nil
}

// FromPairs builds a canonical Set from (start, end) pairs. Every pair must
// have exactly two elements.
func FromPairs(pairs [][]int64) (*Set, error) {
	intervals := make([]Interval, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, errors.NewInvalidArgument(fmt.Sprintf("pair %d has %d elements, want 2", i, len(p)))
		}
		iv, err := NewInterval(p[0], p[1])
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return &Set{intervals: canonicalize(intervals)}, nil
}

// AddEvent inserts iv, merging it with every member it overlaps or touches.
// The set is left unchanged if iv is invalid.
func (s *Set) AddEvent(iv Interval) error {
	if !iv.Valid() {
		return errors.NewInvalidInterval(iv.Start, iv.End)
	}
	n := len(s.intervals)
	// Members are disjoint and sorted, so ends are sorted too.
	i := sort.Search(n, func(k int) bool { return succ(s.intervals[k].End) >= iv.Start })
	j := sort.Search(n, func(k int) bool { return s.intervals[k].Start > succ(iv.End) })
	if i < j {
		iv.Start = min(iv.Start, s.intervals[i].Start)
		iv.End = max(iv.End, s.intervals[j-1].End)
	}
	s.intervals = slices.Replace(s.intervals, i, j, iv)
	return nil
}

// AddInterval is a convenience form of AddEvent.
func (s *Set) AddInterval(start, end int64) error {
	iv, err := NewInterval(start, end)
	if err != nil {
		return err
	}
	return s.AddEvent(iv)
}

// CreateFromBoolRuns replaces the content of s with the runs of true values
// found in flags.
func (s *Set) CreateFromBoolRuns(flags []bool) {
	s.intervals = ExtractBoolRuns(flags).intervals
}

// Intervals returns a copy of the members of s in ascending order.
func (s *Set) Intervals() []Interval {
	if s == nil || len(s.intervals) == 0 {
		return []Interval{}
	}
	return slices.Clone(s.intervals)
}

// Len returns the number of members of s.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.intervals)
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	return &Set{intervals: slices.Clone(s.intervals)}
}

// Equal reports whether s and o hold the same members.
func (s *Set) Equal(o *Set) bool {
	return slices.Equal(s.Intervals(), o.Intervals())
}

// ContainsPoint reports whether t lies within a member of s.
func (s *Set) ContainsPoint(t int64) bool {
	n := s.Len()
	i := sort.Search(n, func(k int) bool { return s.intervals[k].End >= t })
	return i < n && s.intervals[i].Start <= t
}

// Extent returns the interval from the first start to the last end. The
// second value is false for an empty set.
func (s *Set) Extent() (Interval, bool) {
	n := s.Len()
	if n == 0 {
		return Interval{}, false
	}
	return Interval{Start: s.intervals[0].Start, End: s.intervals[n-1].End}, true
}

// Covered returns the total number of ticks covered by s.
func (s *Set) Covered() int64 {
	var total int64
	for _, iv := range s.Intervals() {
		total += iv.Len()
	}
	return total
}

// String returns a short summary suitable for logs.
func (s *Set) String() string {
	n := s.Len()
	ext, ok := s.Extent()
	if !ok {
		return "IntervalSet(0 intervals)"
	}
	noun := "intervals"
	if n == 1 {
		noun = "interval"
	}
	return fmt.Sprintf("IntervalSet(%s %s, %s ticks in %s)",
		humanize.Comma(int64(n)), noun, humanize.Comma(s.Covered()), ext)
}

// MarshalJSON encodes s as a list of [start, end] pairs.
func (s *Set) MarshalJSON() ([]byte, error) {
	pairs := make([][2]int64, 0, s.Len())
	for _, iv := range s.Intervals() {
		pairs = append(pairs, [2]int64{iv.Start, iv.End})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes a list of [start, end] pairs, canonicalizing them.
func (s *Set) UnmarshalJSON(data []byte) error {
	var pairs [][]int64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return errors.NewInvalidArgument(fmt.Sprintf("intervals must be a list of [start, end] pairs: %v", err))
	}
	decoded, err := FromPairs(pairs)
	if err != nil {
		return err
	}
	s.intervals = decoded.intervals
	return nil
}

// canonicalize sorts intervals by start and merges members that overlap or
// touch. It reuses the backing array of intervals.
func canonicalize(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return []Interval{}
	}
	slices.SortFunc(intervals, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})
	out := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if iv.Start <= succ(last.End) {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}
