package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/spans/internal/db"
	"github.com/hpungsan/spans/internal/record"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Workspace string // defaults to "default"
	Limit     int    // default: 20, max: 100
	Offset    int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []record.Summary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List retrieves series summaries for a workspace with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	workspace := record.Normalize(record.Workspace(input.Workspace))

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	summaries, total, err := db.ListByWorkspace(ctx, database, workspace, limit, offset)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []record.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
