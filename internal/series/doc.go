/*
Package series implements digital interval series: canonical sets of disjoint
closed intervals over a discrete time axis.

It defines the type Interval, a closed span [Start, End] with overlap and
containment predicates, and the type Set, which keeps its members sorted,
non-overlapping and minimal under insertion. Two members that touch, such as
[0, 4] and [5, 9], are always merged into one.

A Set can be built from intervals, from (start, end) pairs, or from a
sequence of boolean flags, in which case each maximal run of true values
becomes one member:

	s := series.ExtractBoolRuns([]bool{true, true, false, false, true, true, true, false})
	s.Intervals() // [0, 1] [4, 6]

A Set is not safe for concurrent mutation.
*/
package series
