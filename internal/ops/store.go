package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/spans/internal/db"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

// StoreMode controls collision behavior.
type StoreMode string

const (
	StoreModeError   StoreMode = "error"   // default: fail on name collision
	StoreModeReplace StoreMode = "replace" // overwrite existing
)

// StoreInput contains parameters for the Store operation.
// Exactly one of Intervals and Flags must be set.
type StoreInput struct {
	Workspace string    // default: "default"
	Name      string    // required
	Title     *string   // default: same as name
	Intervals [][]int64 // [start, end] pairs in any order
	Flags     []bool    // per-tick flags; each run of true becomes an interval
	Mode      StoreMode // default: StoreModeError
}

// StoreOutput contains the result of the Store operation.
type StoreOutput struct {
	ID            string   `json:"id"`
	FetchKey      FetchKey `json:"fetch_key"`
	Created       bool     `json:"created"`
	IntervalCount int      `json:"interval_count"`
	CoveredTicks  int64    `json:"covered_ticks"`
}

// Store creates or replaces a named series.
func Store(ctx context.Context, database *sql.DB, input StoreInput) (*StoreOutput, error) {
	if err := checkContext(ctx, "store"); err != nil {
		return nil, err
	}

	var s *series.Set
	switch {
	case input.Intervals != nil && input.Flags != nil:
		return nil, errors.NewInvalidRequest("specify either intervals or flags, not both")
	case input.Intervals != nil:
		var err error
		if s, err = series.FromPairs(input.Intervals); err != nil {
			return nil, err
		}
	case input.Flags != nil:
		s = series.ExtractBoolRuns(input.Flags)
	default:
		return nil, errors.NewInvalidRequest("intervals or flags is required")
	}

	return storeSet(ctx, database, input.Workspace, input.Name, input.Title, input.Mode, s)
}

// storeSet validates the naming fields and writes s through q, which may be
// a transaction.
func storeSet(ctx context.Context, q db.Querier, workspace, name string, title *string, mode StoreMode, s *series.Set) (*StoreOutput, error) {
	workspace = record.Workspace(workspace)
	if mode == "" {
		mode = StoreModeError
	}
	if mode != StoreModeError && mode != StoreModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}
	if record.Normalize(name) == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if title == nil {
		t := strings.TrimSpace(name)
		title = &t
	}

	// The ID may be discarded if an upsert updates an existing record.
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	r := record.New(id, workspace, name, title, s)
	now := time.Now().Unix()
	r.CreatedAt, r.UpdatedAt = now, now

	out := &StoreOutput{
		ID:            id,
		FetchKey:      BuildFetchKey(r),
		Created:       true,
		IntervalCount: r.IntervalCount,
		CoveredTicks:  r.CoveredTicks,
	}

	if mode == StoreModeReplace {
		res, err := db.Upsert(ctx, q, r)
		if err != nil {
			return nil, err
		}
		out.ID = res.ID
		out.Created = res.Created
		return out, nil
	}

	if err := db.Insert(ctx, q, r); err != nil {
		return nil, err
	}
	return out, nil
}
