package series

// ExtractBoolRuns scans flags once and returns a Set with one member per
// maximal run of true values, spanning the run's first and last index.
//
//	[T T F F T T T F] -> {[0, 1], [4, 6]}
func ExtractBoolRuns(flags []bool) *Set {
	var intervals []Interval
	start := -1
	for i, on := range flags {
		switch {
		case on && start < 0:
			start = i
		case !on && start >= 0:
			intervals = append(intervals, Interval{Start: int64(start), End: int64(i - 1)})
			start = -1
		}
	}
	if start >= 0 {
		intervals = append(intervals, Interval{Start: int64(start), End: int64(len(flags) - 1)})
	}
	if intervals == nil {
		intervals = []Interval{}
	}
	// Runs are maximal and found left to right: already canonical.
	return &Set{intervals: intervals}
}

// Threshold maps every value to true when it is at least threshold.
func Threshold(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	for i, v := range values {
		flags[i] = v >= threshold
	}
	return flags
}
