// Package boolean implements set algebra over digital interval series.
//
// Every operation is pure: operands are read, never modified, and the result
// is a new canonical series. Bounds are closed on both ends, so AND of [0, 10]
// and [10, 20] is [10, 10] and NOT of [5, 10] within [0, 20] is
// {[0, 4], [11, 20]}.
package boolean

import (
	"strings"

	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
)

// Operation selects a boolean operation.
type Operation string

const (
	AND    Operation = "AND"     // intersection
	OR     Operation = "OR"      // union
	NOT    Operation = "NOT"     // complement within a domain
	XOR    Operation = "XOR"     // symmetric difference
	AndNot Operation = "AND_NOT" // input minus other
)

// Operations lists the recognized selectors.
var Operations = []Operation{AND, OR, NOT, XOR, AndNot}

// ParseOperation parses a selector case-insensitively.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", errors.NewUnsupportedOperation(s)
}

// binary reports whether op needs a second series.
func (op Operation) binary() bool {
	switch op {
	case AND, OR, XOR, AndNot:
		return true
	}
	return false
}

// Params configures one call to Apply.
type Params struct {
	Operation Operation

	// Other is the second operand. Required for AND, OR, XOR and AND_NOT;
	// must be nil for NOT.
	Other *series.Set

	// Domain bounds the complement computed by NOT. When nil, NOT uses the
	// default extent [0, last end of the input]. Ignored by other operations.
	Domain *series.Interval
}

// Apply runs the operation described by p on s and returns a new series.
// A nil s is treated as empty.
func Apply(s *series.Set, p Params) (*series.Set, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	a := s.Intervals()

	var out []series.Interval
	switch p.Operation {
	case AND:
		out = intersect(a, p.Other.Intervals())
	case OR:
		out = append(a, p.Other.Intervals()...)
	case NOT:
		domain, ok := notDomain(s, p.Domain)
		if !ok {
			return series.NewSet(), nil
		}
		out = complement(a, domain)
	case XOR:
		b := p.Other.Intervals()
		out = append(difference(a, b), difference(b, a)...)
	case AndNot:
		out = difference(a, p.Other.Intervals())
	}
	// Sweeps already yield disjoint output; the merge pass restores
	// minimality where results touch.
	return series.FromIntervals(out)
}

func validate(p Params) error {
	switch {
	case p.Operation.binary():
		if p.Other == nil {
			return errors.NewMissingOperand(string(p.Operation))
		}
	case p.Operation == NOT:
		if p.Other != nil {
			return errors.NewUnexpectedOperand(string(p.Operation))
		}
		if p.Domain != nil && !p.Domain.Valid() {
			return errors.NewInvalidInterval(p.Domain.Start, p.Domain.End)
		}
	default:
		return errors.NewUnsupportedOperation(string(p.Operation))
	}
	return nil
}

// notDomain resolves the extent NOT complements within. The second value is
// false when the default extent is empty.
func notDomain(s *series.Set, explicit *series.Interval) (series.Interval, bool) {
	if explicit != nil {
		return *explicit, true
	}
	ext, ok := s.Extent()
	if !ok || ext.End < 0 {
		return series.Interval{}, false
	}
	return series.Interval{Start: 0, End: ext.End}, true
}

// intersect sweeps two sorted disjoint sequences and emits the overlap of
// every pair of members that share a point.
func intersect(a, b []series.Interval) []series.Interval {
	var out []series.Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if iv, ok := a[i].Intersect(b[j]); ok {
			out = append(out, iv)
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// complement returns the gaps of a within domain. a must be sorted and
// disjoint.
func complement(a []series.Interval, domain series.Interval) []series.Interval {
	var out []series.Interval
	cursor := domain.Start
	for _, iv := range a {
		if iv.End < cursor {
			continue
		}
		if iv.Start > domain.End {
			break
		}
		if iv.Start > cursor {
			out = append(out, series.Interval{Start: cursor, End: iv.Start - 1})
		}
		if iv.End >= domain.End {
			return out
		}
		cursor = iv.End + 1
	}
	out = append(out, series.Interval{Start: cursor, End: domain.End})
	return out
}

// difference returns the points of a that are not in b.
func difference(a, b []series.Interval) []series.Interval {
	if len(a) == 0 {
		return nil
	}
	extent := series.Interval{Start: a[0].Start, End: a[len(a)-1].End}
	return intersect(a, complement(b, extent))
}
