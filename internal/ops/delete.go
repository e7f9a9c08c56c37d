package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/spans/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Ref
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete permanently removes a series.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	if err := checkContext(ctx, "delete"); err != nil {
		return nil, err
	}
	r, err := load(ctx, database, input.Ref)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(ctx, database, r.ID); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: r.ID}, nil
}
