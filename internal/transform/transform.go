// Package transform names interval-series transforms and runs them through
// a single call path, whether they are built in or supplied from outside.
//
// A Transform maps one series to a new series. The set of kinds is closed:
// Boolean and Group are implemented here, and External wraps any function
// with the same shape. A Dispatcher maps names to transforms, and a Pipeline
// chains named steps.
package transform

import (
	"fmt"

	"github.com/hpungsan/spans/internal/boolean"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
)

// DefaultMaxSpacing is the gap bridged by a Group with no explicit spacing.
const DefaultMaxSpacing int64 = 1

// Transform maps a series to a new series. Implementations must not retain
// or modify their input.
type Transform interface {
	// Name identifies the transform for discovery and error messages.
	Name() string
	// Apply returns the transformed series.
	Apply(s *series.Set) (*series.Set, error)

	sealed()
}

// Boolean applies a fixed boolean operation.
type Boolean struct {
	Label  string
	Params boolean.Params
}

func (b *Boolean) Name() string {
	if b.Label != "" {
		return b.Label
	}
	return "boolean:" + string(b.Params.Operation)
}

func (b *Boolean) Apply(s *series.Set) (*series.Set, error) {
	return boolean.Apply(s, b.Params)
}

func (*Boolean) sealed() {}

// Group merges members separated by at most MaxSpacing empty ticks.
// Two members are joined when next.Start - prev.End - 1 <= MaxSpacing.
type Group struct {
	Label      string
	MaxSpacing int64
}

func (g *Group) Name() string {
	if g.Label != "" {
		return g.Label
	}
	return "group"
}

func (g *Group) Apply(s *series.Set) (*series.Set, error) {
	if g.MaxSpacing < 0 {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("max spacing must be >= 0, got %d", g.MaxSpacing))
	}
	ivs := s.Intervals()
	if len(ivs) == 0 {
		return series.NewSet(), nil
	}

	out := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		// Members are sorted and disjoint, so the gap is at least 1. The
		// unsigned difference cannot overflow.
		gap := uint64(iv.Start) - uint64(last.End) - 1
		if gap <= uint64(g.MaxSpacing) {
			last.End = iv.End
			continue
		}
		out = append(out, iv)
	}
	return series.FromIntervals(out)
}

func (*Group) sealed() {}

// Func is the calling convention for externally supplied transforms.
type Func func(s *series.Set) (*series.Set, error)

// External bridges a function defined outside this package.
type External struct {
	Label string
	Fn    Func
}

func (e *External) Name() string {
	if e.Label != "" {
		return e.Label
	}
	return "external"
}

func (e *External) Apply(s *series.Set) (*series.Set, error) {
	if e.Fn == nil {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("transform %q has no function", e.Name()))
	}
	out, err := e.Fn(s)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("transform %q returned no series", e.Name()))
	}
	return out, nil
}

func (*External) sealed() {}
