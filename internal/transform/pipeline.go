package transform

import (
	stderrors "errors"
	"fmt"

	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/series"
)

// Step names one transform in a Pipeline.
type Step struct {
	ID        string // shown in errors; defaults to the step position
	Transform string // registered name
}

// Pipeline runs named transforms in order, feeding each output to the next.
type Pipeline struct {
	Name  string
	Steps []Step
}

// Run applies every step to s through d. The first failing step aborts the
// run; its error carries the step ID and transform name.
func (p Pipeline) Run(d *Dispatcher, s *series.Set) (*series.Set, error) {
	cur := s
	if cur == nil {
		cur = series.NewSet()
	}
	for i, step := range p.Steps {
		out, err := d.Apply(step.Transform, cur)
		if err != nil {
			return nil, stepError(i, step, err)
		}
		cur = out
	}
	return cur.Clone(), nil
}

func stepError(i int, step Step, err error) error {
	id := step.ID
	if id == "" {
		id = fmt.Sprintf("#%d", i+1)
	}
	var se *errors.SpansError
	if stderrors.As(err, &se) {
		details := make(map[string]any, len(se.Details)+2)
		for k, v := range se.Details {
			details[k] = v
		}
		details["step_id"] = id
		details["transform"] = step.Transform
		return &errors.SpansError{
			Code:    se.Code,
			Status:  se.Status,
			Message: fmt.Sprintf("step %s (%s): %s", id, step.Transform, se.Message),
			Details: details,
		}
	}
	return fmt.Errorf("step %s (%s): %w", id, step.Transform, err)
}
