package record

import (
	"github.com/hpungsan/spans/internal/series"
)

// Summary is a record's metadata without its intervals.
// Used by list operations to keep responses small.
type Summary struct {
	ID            string  `json:"id"`
	Workspace     string  `json:"workspace"`
	WorkspaceNorm string  `json:"workspace_norm"`
	Name          string  `json:"name"`
	NameNorm      string  `json:"name_norm"`
	Title         *string `json:"title,omitempty"`

	// IntervalCount is the number of members in the series
	IntervalCount int `json:"interval_count"`

	// CoveredTicks is the total number of ticks covered
	CoveredTicks int64 `json:"covered_ticks"`

	// Extent is [first start, last end], absent for an empty series
	Extent *series.Interval `json:"extent,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToSummary strips the intervals from r.
func (r *Record) ToSummary() Summary {
	s := Summary{
		ID:            r.ID,
		Workspace:     r.WorkspaceRaw,
		WorkspaceNorm: r.WorkspaceNorm,
		Name:          r.NameRaw,
		NameNorm:      r.NameNorm,
		Title:         r.Title,
		IntervalCount: r.IntervalCount,
		CoveredTicks:  r.CoveredTicks,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if ext, ok := r.Series.Extent(); ok {
		s.Extent = &ext
	}
	return s
}
