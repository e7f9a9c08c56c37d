package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/db"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/pipeline"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
	"github.com/hpungsan/spans/internal/transform"
)

// RunPipelineInput contains parameters for the RunPipeline operation.
type RunPipelineInput struct {
	Ref
	Path   string  // pipeline definition (.yaml, .yml or .json)
	SaveAs *SaveAs // optional; persists the result
}

// RunPipelineOutput contains the result of the RunPipeline operation.
type RunPipelineOutput struct {
	Pipeline string   `json:"pipeline"`
	Steps    []string `json:"steps"`
	ResultOutput
}

// RunPipeline loads a pipeline definition and runs it on a stored series.
// The definition path passes the same checks as an import file.
// Boolean steps resolve their "other" operand by name in the workspace of
// the input series.
func RunPipeline(ctx context.Context, database *sql.DB, cfg *config.Config, base *transform.Dispatcher, input RunPipelineInput) (*RunPipelineOutput, error) {
	if err := checkContext(ctx, "pipeline"); err != nil {
		return nil, err
	}
	if base == nil {
		base = transform.NewDefaultDispatcher(cfg)
	}

	if err := ValidatePipelinePath(input.Path, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		var se *errors.SpansError
		if stderrors.As(err, &se) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open pipeline file: %w", err))
	}
	def, err := pipeline.Load(file)
	file.Close()
	if err != nil {
		return nil, err
	}

	r, err := load(ctx, database, input.Ref)
	if err != nil {
		return nil, err
	}

	resolve := func(name string) (*series.Set, error) {
		other, err := db.GetByName(ctx, database, r.WorkspaceNorm, record.Normalize(name))
		if err != nil {
			return nil, err
		}
		return other.Series, nil
	}

	p, d, err := pipeline.Build(def, base, resolve)
	if err != nil {
		return nil, err
	}
	result, err := p.Run(d, r.Series)
	if err != nil {
		return nil, err
	}

	out := &RunPipelineOutput{Pipeline: p.Name, Steps: make([]string, 0, len(p.Steps))}
	for _, st := range p.Steps {
		out.Steps = append(out.Steps, st.ID)
	}
	if out.ResultOutput, err = finish(ctx, database, input.SaveAs, r.WorkspaceRaw, result); err != nil {
		return nil, err
	}
	return out, nil
}
