package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/spans/internal/boolean"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
)

// CombineInput contains parameters for the Combine operation.
type CombineInput struct {
	Left      Ref
	Right     *Ref    // required for binary operations, must be nil for NOT
	Operation string  // AND, OR, NOT, XOR, AND_NOT (case-insensitive)
	Domain    []int64 // optional [start, end] bounding NOT
	SaveAs    *SaveAs // optional; persists the result
}

// ResultOutput is the shape shared by operations that compute a new series.
type ResultOutput struct {
	Intervals     *series.Set  `json:"intervals"`
	IntervalCount int          `json:"interval_count"`
	CoveredTicks  int64        `json:"covered_ticks"`
	Display       string       `json:"display"`
	Saved         *StoreOutput `json:"saved,omitempty"`
}

// CombineOutput contains the result of the Combine operation.
type CombineOutput struct {
	Operation string `json:"operation"`
	ResultOutput
}

// Combine applies a boolean operation to stored series.
func Combine(ctx context.Context, database *sql.DB, input CombineInput) (*CombineOutput, error) {
	if err := checkContext(ctx, "combine"); err != nil {
		return nil, err
	}

	op, err := boolean.ParseOperation(input.Operation)
	if err != nil {
		return nil, err
	}
	domain, err := parseDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	left, err := load(ctx, database, input.Left)
	if err != nil {
		return nil, err
	}

	params := boolean.Params{Operation: op, Domain: domain}
	if input.Right != nil {
		right, err := load(ctx, database, *input.Right)
		if err != nil {
			return nil, err
		}
		params.Other = right.Series
	}

	result, err := boolean.Apply(left.Series, params)
	if err != nil {
		return nil, err
	}

	out := &CombineOutput{Operation: string(op)}
	if out.ResultOutput, err = finish(ctx, database, input.SaveAs, left.WorkspaceRaw, result); err != nil {
		return nil, err
	}
	return out, nil
}

// parseDomain converts an optional [start, end] pair.
func parseDomain(pair []int64) (*series.Interval, error) {
	if pair == nil {
		return nil, nil
	}
	if len(pair) != 2 {
		return nil, errors.NewInvalidArgument("domain must be a [start, end] pair")
	}
	iv, err := series.NewInterval(pair[0], pair[1])
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// finish builds the result shape and persists it when target is set.
func finish(ctx context.Context, database *sql.DB, target *SaveAs, workspace string, s *series.Set) (ResultOutput, error) {
	out := ResultOutput{
		Intervals:     s,
		IntervalCount: s.Len(),
		CoveredTicks:  s.Covered(),
		Display:       s.String(),
	}
	if target == nil {
		return out, nil
	}
	saved, err := save(ctx, database, target, workspace, s)
	if err != nil {
		return ResultOutput{}, err
	}
	out.Saved = saved
	return out, nil
}
