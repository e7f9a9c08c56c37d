package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/transform"
)

// ApplyInput contains parameters for the Apply operation.
type ApplyInput struct {
	Ref
	Transform string  // registered transform name
	SaveAs    *SaveAs // optional; persists the result
}

// ApplyOutput contains the result of the Apply operation.
type ApplyOutput struct {
	Transform string `json:"transform"`
	ResultOutput
}

// Apply runs a registered transform on a stored series. A nil dispatcher
// means the built-in transforms configured by cfg.
func Apply(ctx context.Context, database *sql.DB, cfg *config.Config, d *transform.Dispatcher, input ApplyInput) (*ApplyOutput, error) {
	if err := checkContext(ctx, "apply"); err != nil {
		return nil, err
	}
	if d == nil {
		d = transform.NewDefaultDispatcher(cfg)
	}

	r, err := load(ctx, database, input.Ref)
	if err != nil {
		return nil, err
	}
	result, err := d.Apply(input.Transform, r.Series)
	if err != nil {
		return nil, err
	}

	out := &ApplyOutput{Transform: input.Transform}
	if out.ResultOutput, err = finish(ctx, database, input.SaveAs, r.WorkspaceRaw, result); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformsOutput lists the registered transforms.
type TransformsOutput struct {
	Transforms []transform.Info `json:"transforms"`
}

// Transforms describes the transforms a dispatcher offers. A nil dispatcher
// means the built-in transforms configured by cfg.
func Transforms(cfg *config.Config, d *transform.Dispatcher) *TransformsOutput {
	if d == nil {
		d = transform.NewDefaultDispatcher(cfg)
	}
	return &TransformsOutput{Transforms: d.Describe()}
}
