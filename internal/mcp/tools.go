package mcp

import "github.com/mark3labs/mcp-go/mcp"

// pairSchema describes one [start, end] interval.
var pairSchema = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "integer"},
	"minItems": 2,
	"maxItems": 2,
}

var (
	idProp        = mcp.WithString("id", mcp.Description("Series ID. Use either id, or name with optional workspace."))
	workspaceProp = mcp.WithString("workspace", mcp.Description(`Workspace (default "default").`))
	nameProp      = mcp.WithString("name", mcp.Description("Series name, case-insensitive."))
	modeProp      = mcp.WithString("mode", mcp.Enum("error", "replace"),
		mcp.Description(`Name collision handling (default "error").`))
	saveAsProp = mcp.WithString("save_as", mcp.Description("Store the result under this name in the input series' workspace."))
)

var storeToolDef = mcp.NewTool("series_store",
	mcp.WithDescription("Store a named digital interval series. Intervals may overlap or touch; they are merged. "+
		"Alternatively pass flags, one boolean per tick, and each run of true becomes an interval."),
	workspaceProp,
	mcp.WithString("name", mcp.Required(), mcp.Description("Series name, unique per workspace.")),
	mcp.WithString("title", mcp.Description("Display title (defaults to name).")),
	mcp.WithArray("intervals", mcp.Items(pairSchema), mcp.Description("Closed [start, end] intervals.")),
	mcp.WithArray("flags", mcp.Items(map[string]any{"type": "boolean"}), mcp.Description("Per-tick on/off states.")),
	modeProp,
)

var fetchToolDef = mcp.NewTool("series_fetch",
	mcp.WithDescription("Fetch a stored series with its canonical intervals."),
	mcp.WithReadOnlyHintAnnotation(true),
	idProp, workspaceProp, nameProp,
	mcp.WithBoolean("include_intervals", mcp.Description("Include the interval list (default true).")),
)

var listToolDef = mcp.NewTool("series_list",
	mcp.WithDescription("List series summaries in a workspace, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	workspaceProp,
	mcp.WithNumber("limit", mcp.Description("Maximum items (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Items to skip.")),
)

var deleteToolDef = mcp.NewTool("series_delete",
	mcp.WithDescription("Permanently delete a series."),
	mcp.WithDestructiveHintAnnotation(true),
	idProp, workspaceProp, nameProp,
)

var combineToolDef = mcp.NewTool("series_combine",
	mcp.WithDescription("Apply a boolean operation to stored series. AND, OR, XOR and AND_NOT take a right operand; "+
		"NOT complements the left series within domain, by default [0, last end]."),
	mcp.WithObject("left", mcp.Required(), mcp.Description("Left series: {id} or {workspace, name}.")),
	mcp.WithObject("right", mcp.Description("Right series: {id} or {workspace, name}.")),
	mcp.WithString("operation", mcp.Required(), mcp.Enum("AND", "OR", "NOT", "XOR", "AND_NOT")),
	mcp.WithArray("domain", mcp.Items(map[string]any{"type": "integer"}), mcp.Description("[start, end] bounding NOT.")),
	saveAsProp, modeProp,
)

var applyToolDef = mcp.NewTool("series_apply",
	mcp.WithDescription("Run a registered transform (see transform_list) on a stored series."),
	idProp, workspaceProp, nameProp,
	mcp.WithString("transform", mcp.Required(), mcp.Description("Registered transform name.")),
	saveAsProp, modeProp,
)

var pipelineToolDef = mcp.NewTool("series_pipeline",
	mcp.WithDescription("Run a YAML or JSON pipeline definition on a stored series. Boolean steps resolve "+
		"their other operand by name in the input series' workspace."),
	idProp, workspaceProp, nameProp,
	mcp.WithString("path", mcp.Required(), mcp.Description("Pipeline file (.yaml, .yml or .json). Must be directly in ~/.spans/exports or an allowed_paths entry.")),
	saveAsProp, modeProp,
)

var exportToolDef = mcp.NewTool("series_export",
	mcp.WithDescription("Export a series to CSV, one start,end row per interval."),
	idProp, workspaceProp, nameProp,
	mcp.WithString("path", mcp.Description("Output .csv path (default ~/.spans/exports/<workspace>-<name>-<timestamp>.csv).")),
	mcp.WithString("delimiter", mcp.Description(`Column delimiter (default from config, "\t" for tab).`)),
	mcp.WithBoolean("no_header", mcp.Description("Omit the header row.")),
	mcp.WithArray("header", mcp.Items(map[string]any{"type": "string"}), mcp.Description("Two column names replacing start,end.")),
)

var importToolDef = mcp.NewTool("series_import",
	mcp.WithDescription("Import a series from CSV. Layout intervals reads start,end rows; layout binary_state "+
		"reads one sample per row and turns runs at or above threshold into intervals."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input .csv path.")),
	workspaceProp,
	mcp.WithString("name", mcp.Required(), mcp.Description("Series name; prefix when all_columns is set.")),
	mcp.WithString("layout", mcp.Enum("intervals", "binary_state")),
	mcp.WithString("delimiter", mcp.Description("Column delimiter.")),
	mcp.WithBoolean("skip_header", mcp.Description("intervals: skip the first row (default true).")),
	mcp.WithBoolean("flip_columns", mcp.Description("intervals: rows are end,start.")),
	mcp.WithNumber("header_lines", mcp.Description("binary_state: lines before the column-names row.")),
	mcp.WithNumber("data_column", mcp.Description("binary_state: zero-based column (default 1).")),
	mcp.WithBoolean("all_columns", mcp.Description("binary_state: import every column after the first.")),
	mcp.WithNumber("threshold", mcp.Description("binary_state: on when sample >= threshold (default from config).")),
	modeProp,
)

var transformListToolDef = mcp.NewTool("transform_list",
	mcp.WithDescription("List the transforms series_apply and pipelines can name."),
	mcp.WithReadOnlyHintAnnotation(true),
)
