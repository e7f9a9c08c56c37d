package series

import (
	"fmt"
	"math"

	"github.com/hpungsan/spans/internal/errors"
)

// Interval is a closed span [Start, End] over a discrete axis (sample index
// or time tick). Both bounds are inclusive.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// NewInterval returns the interval [start, end], or an INVALID_INTERVAL error
// if start is after end.
func NewInterval(start, end int64) (Interval, error) {
	if start > end {
		return Interval{}, errors.NewInvalidInterval(start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Valid reports whether Start <= End.
func (x Interval) Valid() bool {
	return x.Start <= x.End
}

// Overlaps reports whether x and y share at least one point.
func (x Interval) Overlaps(y Interval) bool {
	return x.Start <= y.End && y.Start <= x.End
}

// Contains reports whether t lies within x, bounds included.
func (x Interval) Contains(t int64) bool {
	return x.Start <= t && t <= x.End
}

// Touches reports whether x and y overlap or are adjacent, i.e. whether
// they would be merged into a single member of a Set.
func (x Interval) Touches(y Interval) bool {
	return x.Start <= succ(y.End) && y.Start <= succ(x.End)
}

// Len returns the number of ticks covered by x.
func (x Interval) Len() int64 {
	return x.End - x.Start + 1
}

// Intersect returns the intersection with the closed interval y. If no
// intersection is found, the second value returned by the method
// is false.
func (x Interval) Intersect(y Interval) (Interval, bool) {
	if !x.Overlaps(y) {
		return Interval{}, false
	}
	return Interval{Start: max(x.Start, y.Start), End: min(x.End, y.End)}, true
}

func (x Interval) String() string {
	return fmt.Sprintf("[%d, %d]", x.Start, x.End)
}

// succ returns v+1, saturating at math.MaxInt64.
func succ(v int64) int64 {
	if v == math.MaxInt64 {
		return v
	}
	return v + 1
}
