package record

import (
	"github.com/hpungsan/spans/internal/series"
)

// Record is a named interval series as stored in the database.
type Record struct {
	// ID is a ULID that uniquely identifies this record
	ID string

	// WorkspaceRaw is the original workspace string as provided by the user
	WorkspaceRaw string

	// WorkspaceNorm is the normalized workspace (lowercased, trimmed, collapsed spaces)
	WorkspaceNorm string

	// NameRaw is the original name as provided by the user
	NameRaw string

	// NameNorm is the normalized name, unique within a workspace
	NameNorm string

	// Title is an optional human-readable title
	Title *string

	// Series is the canonical interval set
	Series *series.Set

	// IntervalCount is the number of members in Series
	IntervalCount int

	// CoveredTicks is the total number of ticks covered by Series
	CoveredTicks int64

	// CreatedAt is the Unix timestamp when the record was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the record was last updated
	UpdatedAt int64
}

// New builds a record with normalized keys and derived counts filled in.
func New(id, workspace, name string, title *string, s *series.Set) *Record {
	r := &Record{
		ID:            id,
		WorkspaceRaw:  workspace,
		WorkspaceNorm: Normalize(workspace),
		NameRaw:       name,
		NameNorm:      Normalize(name),
		Title:         title,
	}
	r.SetSeries(s)
	return r
}

// SetSeries replaces the series and recomputes the derived counts.
func (r *Record) SetSeries(s *series.Set) {
	if s == nil {
		s = series.NewSet()
	}
	r.Series = s
	r.IntervalCount = s.Len()
	r.CoveredTicks = s.Covered()
}
