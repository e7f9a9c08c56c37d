package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Ref
	IncludeIntervals *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	record.Summary
	Intervals *series.Set `json:"intervals,omitempty"`
	Display   string      `json:"display"`
	FetchKey  FetchKey    `json:"fetch_key"`
}

// Fetch retrieves a series by ID or name.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	r, err := load(ctx, database, input.Ref)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{
		Summary:  r.ToSummary(),
		Display:  r.Series.String(),
		FetchKey: BuildFetchKey(r),
	}
	if input.IncludeIntervals == nil || *input.IncludeIntervals {
		out.Intervals = r.Series
	}
	return out, nil
}
