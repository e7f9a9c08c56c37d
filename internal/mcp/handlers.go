package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/ops"
	"github.com/hpungsan/spans/internal/transform"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	dispatcher *transform.Dispatcher
}

// NewHandlers creates a Handlers. A nil dispatcher means the built-in
// transforms configured by cfg.
func NewHandlers(db *sql.DB, cfg *config.Config, d *transform.Dispatcher) *Handlers {
	if d == nil {
		d = transform.NewDefaultDispatcher(cfg)
	}
	return &Handlers{db: db, cfg: cfg, dispatcher: d}
}

// RefArgs addresses a series by id or by workspace and name.
type RefArgs struct {
	ID        string `json:"id,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Name      string `json:"name,omitempty"`
}

func (r RefArgs) ref() ops.Ref {
	return ops.Ref{ID: r.ID, Workspace: r.Workspace, Name: r.Name}
}

// SaveArgs are the optional result-persisting arguments.
type SaveArgs struct {
	SaveAs string `json:"save_as,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

func (s SaveArgs) target() *ops.SaveAs {
	if s.SaveAs == "" {
		return nil
	}
	return &ops.SaveAs{Name: s.SaveAs, Mode: ops.StoreMode(s.Mode)}
}

// StoreRequest represents the arguments for series_store.
type StoreRequest struct {
	Workspace string    `json:"workspace,omitempty"`
	Name      string    `json:"name"`
	Title     *string   `json:"title,omitempty"`
	Intervals [][]int64 `json:"intervals,omitempty"`
	Flags     []bool    `json:"flags,omitempty"`
	Mode      string    `json:"mode,omitempty"`
}

// FetchRequest represents the arguments for series_fetch.
type FetchRequest struct {
	RefArgs
	IncludeIntervals *bool `json:"include_intervals,omitempty"`
}

// ListRequest represents the arguments for series_list.
type ListRequest struct {
	Workspace string `json:"workspace,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// CombineRequest represents the arguments for series_combine.
type CombineRequest struct {
	Left      RefArgs  `json:"left"`
	Right     *RefArgs `json:"right,omitempty"`
	Operation string   `json:"operation"`
	Domain    []int64  `json:"domain,omitempty"`
	SaveArgs
}

// ApplyRequest represents the arguments for series_apply.
type ApplyRequest struct {
	RefArgs
	Transform string `json:"transform"`
	SaveArgs
}

// PipelineRequest represents the arguments for series_pipeline.
type PipelineRequest struct {
	RefArgs
	Path string `json:"path"`
	SaveArgs
}

// ExportRequest represents the arguments for series_export.
type ExportRequest struct {
	RefArgs
	Path      string   `json:"path,omitempty"`
	Delimiter string   `json:"delimiter,omitempty"`
	NoHeader  bool     `json:"no_header,omitempty"`
	Header    []string `json:"header,omitempty"`
}

// ImportRequest represents the arguments for series_import.
type ImportRequest struct {
	Path        string   `json:"path"`
	Workspace   string   `json:"workspace,omitempty"`
	Name        string   `json:"name"`
	Title       *string  `json:"title,omitempty"`
	Layout      string   `json:"layout,omitempty"`
	Delimiter   string   `json:"delimiter,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	SkipHeader  *bool    `json:"skip_header,omitempty"`
	FlipColumns bool     `json:"flip_columns,omitempty"`
	HeaderLines int      `json:"header_lines,omitempty"`
	DataColumn  *int     `json:"data_column,omitempty"`
	AllColumns  bool     `json:"all_columns,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
}

// HandleStore handles series_store.
func (h *Handlers) HandleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Store(ctx, h.db, ops.StoreInput{
		Workspace: input.Workspace,
		Name:      input.Name,
		Title:     input.Title,
		Intervals: input.Intervals,
		Flags:     input.Flags,
		Mode:      ops.StoreMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetch handles series_fetch.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		Ref:              input.ref(),
		IncludeIntervals: input.IncludeIntervals,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles series_list.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.List(ctx, h.db, ops.ListInput{
		Workspace: input.Workspace,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles series_delete.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefArgs](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{Ref: input.ref()})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCombine handles series_combine.
func (h *Handlers) HandleCombine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CombineRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	in := ops.CombineInput{
		Left:      input.Left.ref(),
		Operation: input.Operation,
		Domain:    input.Domain,
		SaveAs:    input.target(),
	}
	if input.Right != nil {
		right := input.Right.ref()
		in.Right = &right
	}
	result, err := ops.Combine(ctx, h.db, in)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleApply handles series_apply.
func (h *Handlers) HandleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ApplyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Apply(ctx, h.db, h.cfg, h.dispatcher, ops.ApplyInput{
		Ref:       input.ref(),
		Transform: input.Transform,
		SaveAs:    input.target(),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePipeline handles series_pipeline.
func (h *Handlers) HandlePipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PipelineRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.RunPipeline(ctx, h.db, h.cfg, h.dispatcher, ops.RunPipelineInput{
		Ref:    input.ref(),
		Path:   input.Path,
		SaveAs: input.target(),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles series_export.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Ref:       input.ref(),
		Path:      input.Path,
		Delimiter: input.Delimiter,
		NoHeader:  input.NoHeader,
		Header:    input.Header,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles series_import.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path:        input.Path,
		Workspace:   input.Workspace,
		Name:        input.Name,
		Title:       input.Title,
		Layout:      ops.Layout(input.Layout),
		Delimiter:   input.Delimiter,
		Mode:        ops.StoreMode(input.Mode),
		SkipHeader:  input.SkipHeader,
		FlipColumns: input.FlipColumns,
		HeaderLines: input.HeaderLines,
		DataColumn:  input.DataColumn,
		AllColumns:  input.AllColumns,
		Threshold:   input.Threshold,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTransformList handles transform_list.
func (h *Handlers) HandleTransformList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Transforms(h.cfg, h.dispatcher))
}

// errorResult builds an IsError result. INTERNAL errors keep their details
// out of the payload since they may carry paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}
	var se *errors.SpansError
	if stderrors.As(err, &se) {
		errorObj["code"] = se.Code
		errorObj["status"] = se.Status
		errorObj["message"] = se.Message
		if se.Code != errors.ErrInternal {
			// Keep wrapping context such as "step 2 (group): ...".
			if err != error(se) {
				errorObj["message"] = err.Error()
			}
			if se.Details != nil {
				errorObj["details"] = se.Details
			}
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
