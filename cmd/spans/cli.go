package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/ops"
)

// maxStdinBytes caps interval JSON piped to store.
const maxStdinBytes = 16 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "spans",
		Usage:   "Digital interval series store",
		Version: Version,
		Commands: []*cli.Command{
			storeCmd(db),
			fetchCmd(db),
			listCmd(db),
			deleteCmd(db),
			combineCmd(db),
			applyCmd(db, cfg),
			transformsCmd(cfg),
			pipelineCmd(db, cfg),
			exportCmd(db, cfg),
			importCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func workspaceFlag() cli.Flag {
	return &cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Value: "default", Usage: "Workspace name"}
}

func nameFlag() cli.Flag {
	return &cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Series name"}
}

func saveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "save-as", Aliases: []string{"s"}, Usage: "Store the result under this name"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
	}
}

// refAt addresses a series by the positional id at index i, or by
// --workspace and --name when it is absent.
func refAt(c *cli.Context, i int) ops.Ref {
	if c.NArg() > i {
		return ops.Ref{ID: c.Args().Get(i)}
	}
	return ops.Ref{Workspace: c.String("workspace"), Name: c.String("name")}
}

func saveTarget(c *cli.Context) *ops.SaveAs {
	name := c.String("save-as")
	if name == "" {
		return nil
	}
	return &ops.SaveAs{Name: name, Mode: ops.StoreMode(c.String("mode"))}
}

// storeCmd creates the store command.
func storeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Store a series from --interval flags, --flags, or JSON [[start,end],...] on stdin",
		Flags: []cli.Flag{
			workspaceFlag(),
			nameFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Series title (defaults to name)"},
			&cli.StringSliceFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Closed interval start:end (repeatable)"},
			&cli.StringFlag{Name: "flags", Aliases: []string{"f"}, Usage: "Per-tick states as 0/1 characters, e.g. 0111001"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			input := ops.StoreInput{
				Workspace: c.String("workspace"),
				Name:      c.String("name"),
				Mode:      ops.StoreMode(c.String("mode")),
			}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}

			switch {
			case c.IsSet("interval"):
				pairs, err := parseIntervals(c.StringSlice("interval"))
				if err != nil {
					return outputError(err)
				}
				input.Intervals = pairs
			case c.IsSet("flags"):
				flags, err := parseFlags(c.String("flags"))
				if err != nil {
					return outputError(err)
				}
				input.Flags = flags
			case stdinHasData():
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(err)
				}
				pairs := [][]int64{}
				if err := json.Unmarshal([]byte(text), &pairs); err != nil {
					return outputError(errors.NewInvalidRequest("stdin must be a JSON array of [start, end] pairs: " + err.Error()))
				}
				input.Intervals = pairs
			default:
				input.Intervals = [][]int64{}
			}

			output, err := ops.Store(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a series by ID or name",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			workspaceFlag(),
			nameFlag(),
			&cli.BoolFlag{Name: "no-intervals", Usage: "Exclude intervals from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{Ref: refAt(c, 0)}
			if c.Bool("no-intervals") {
				include := false
				input.IncludeIntervals = &include
			}
			output, err := ops.Fetch(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List series in a workspace",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Workspace: c.String("workspace"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a series",
		ArgsUsage: "[id]",
		Flags:     []cli.Flag{workspaceFlag(), nameFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{Ref: refAt(c, 0)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// combineCmd creates the combine command.
func combineCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "combine",
		Usage:     "Apply AND, OR, NOT, XOR or AND_NOT to stored series",
		ArgsUsage: "<operation> <left> [right]",
		Description: "Operands are a series ID, a name in --workspace, or workspace/name.\n" +
			"NOT takes only a left operand and complements it within --domain.",
		Flags: append([]cli.Flag{
			workspaceFlag(),
			&cli.StringFlag{Name: "domain", Aliases: []string{"d"}, Usage: "NOT domain start:end (default 0:last end)"},
		}, saveFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: spans combine <operation> <left> [right]"))
			}
			if c.NArg() > 3 {
				return outputError(errors.NewInvalidRequest("combine takes at most two operands"))
			}
			ws := c.String("workspace")
			input := ops.CombineInput{
				Operation: c.Args().Get(0),
				Left:      parseRef(c.Args().Get(1), ws),
				SaveAs:    saveTarget(c),
			}
			if c.NArg() == 3 {
				right := parseRef(c.Args().Get(2), ws)
				input.Right = &right
			}
			if c.IsSet("domain") {
				pair, err := parseInterval(c.String("domain"))
				if err != nil {
					return outputError(err)
				}
				input.Domain = pair
			}
			output, err := ops.Combine(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// applyCmd creates the apply command.
func applyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Run a registered transform on a series",
		ArgsUsage: "<transform> [id]",
		Flags:     append([]cli.Flag{workspaceFlag(), nameFlag()}, saveFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("usage: spans apply <transform> [id]"))
			}
			output, err := ops.Apply(c.Context, db, cfg, nil, ops.ApplyInput{
				Ref:       refAt(c, 1),
				Transform: c.Args().First(),
				SaveAs:    saveTarget(c),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// transformsCmd creates the transforms command.
func transformsCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "transforms",
		Usage: "List registered transforms",
		Action: func(_ *cli.Context) error {
			return outputJSON(ops.Transforms(cfg, nil))
		},
	}
}

// pipelineCmd creates the pipeline command.
func pipelineCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "pipeline",
		Usage:     "Run a YAML or JSON pipeline definition on a series",
		ArgsUsage: "<file> [id]",
		Flags:     append([]cli.Flag{workspaceFlag(), nameFlag()}, saveFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("usage: spans pipeline <file> [id]"))
			}
			output, err := ops.RunPipeline(c.Context, db, cfg, nil, ops.RunPipelineInput{
				Ref:    refAt(c, 1),
				Path:   c.Args().First(),
				SaveAs: saveTarget(c),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a series to CSV",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			workspaceFlag(),
			nameFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output .csv path (default ~/.spans/exports/...)"},
			&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Usage: `Column delimiter ("\t" for tab)`},
			&cli.BoolFlag{Name: "no-header", Usage: "Omit the header row"},
			&cli.StringFlag{Name: "header", Usage: "Custom header as two comma-separated names"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Ref:       refAt(c, 0),
				Path:      c.String("path"),
				Delimiter: c.String("delimiter"),
				NoHeader:  c.Bool("no-header"),
			}
			if h := c.String("header"); h != "" {
				input.Header = strings.Split(h, ",")
			}
			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a series from CSV",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			workspaceFlag(),
			nameFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Series title (defaults to name)"},
			&cli.StringFlag{Name: "layout", Value: string(ops.LayoutIntervals), Usage: "intervals|binary_state"},
			&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Usage: `Column delimiter ("\t" for tab)`},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
			&cli.BoolFlag{Name: "no-skip-header", Usage: "intervals: the first row is data"},
			&cli.BoolFlag{Name: "flip", Usage: "intervals: rows are end,start"},
			&cli.IntFlag{Name: "header-lines", Usage: "binary_state: lines before the column-names row"},
			&cli.IntFlag{Name: "data-column", Value: ops.DefaultDataColumn, Usage: "binary_state: zero-based column"},
			&cli.BoolFlag{Name: "all-columns", Usage: "binary_state: import every column after the first"},
			&cli.Float64Flag{Name: "threshold", Usage: "binary_state: on when sample >= threshold"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("usage: spans import <file>"))
			}
			input := ops.ImportInput{
				Path:        c.Args().First(),
				Workspace:   c.String("workspace"),
				Name:        c.String("name"),
				Layout:      ops.Layout(c.String("layout")),
				Delimiter:   c.String("delimiter"),
				Mode:        ops.StoreMode(c.String("mode")),
				FlipColumns: c.Bool("flip"),
				HeaderLines: c.Int("header-lines"),
				AllColumns:  c.Bool("all-columns"),
			}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}
			if c.Bool("no-skip-header") {
				skip := false
				input.SkipHeader = &skip
			}
			if c.IsSet("data-column") {
				col := c.Int("data-column")
				input.DataColumn = &col
			}
			if c.IsSet("threshold") {
				th := c.Float64("threshold")
				input.Threshold = &th
			}
			output, err := ops.Import(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if len(output.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("[%s] %d row(s) rejected, nothing imported", output.Errors[0].Code, len(output.Errors)), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var se *errors.SpansError
	if stderrors.As(err, &se) {
		msg := se.Message
		if err != error(se) {
			msg = err.Error()
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", se.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseInterval parses "start:end" into a pair.
func parseInterval(s string) ([]int64, error) {
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("interval %q must be start:end", s))
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("interval %q: bad start", s))
	}
	end, err := strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
	if err != nil {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("interval %q: bad end", s))
	}
	return []int64{start, end}, nil
}

func parseIntervals(values []string) ([][]int64, error) {
	pairs := make([][]int64, 0, len(values))
	for _, v := range values {
		pair, err := parseInterval(v)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// parseFlags turns "0110" into per-tick booleans.
func parseFlags(s string) ([]bool, error) {
	flags := make([]bool, 0, len(s))
	for i, ch := range s {
		switch ch {
		case '0':
			flags = append(flags, false)
		case '1':
			flags = append(flags, true)
		default:
			return nil, errors.NewInvalidArgument(fmt.Sprintf("flags: position %d is %q, want 0 or 1", i, ch))
		}
	}
	return flags, nil
}

// parseRef reads a combine operand: a ULID, "workspace/name", or a name in
// the default workspace.
func parseRef(s, workspace string) ops.Ref {
	if _, err := ulid.ParseStrict(s); err == nil {
		return ops.Ref{ID: s}
	}
	if ws, name, ok := strings.Cut(s, "/"); ok {
		return ops.Ref{Workspace: ws, Name: name}
	}
	return ops.Ref{Workspace: workspace, Name: s}
}
