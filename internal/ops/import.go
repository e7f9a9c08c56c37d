package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

// Layout selects how an import file is read.
type Layout string

const (
	// LayoutIntervals reads one start,end pair per row.
	LayoutIntervals Layout = "intervals"
	// LayoutBinaryState reads one sample per row; runs of samples at or
	// above the threshold become intervals, indexed by row number.
	LayoutBinaryState Layout = "binary_state"
)

// DefaultDataColumn is the binary-state column read when none is given.
// Column 0 usually holds time stamps.
const DefaultDataColumn = 1

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path      string    // required
	Workspace string    // default: "default"
	Name      string    // required; prefix for AllColumns
	Title     *string   // optional
	Layout    Layout    // default: LayoutIntervals
	Delimiter string    // default: cfg.CSVDelimiter
	Mode      StoreMode // default: error

	// Intervals layout.
	SkipHeader  *bool // default: true
	FlipColumns bool  // rows are end,start

	// Binary-state layout.
	HeaderLines int      // lines before the column-names row
	DataColumn  *int     // default: DefaultDataColumn
	AllColumns  bool     // import every column after the first as <name>_<column>
	Threshold   *float64 // default: cfg.BinaryThreshold
}

// ImportOutput contains the result of the Import operation.
// When Errors is non-empty nothing was stored.
type ImportOutput struct {
	Rows   int            `json:"rows"`
	Stored []*StoreOutput `json:"stored"`
	Errors []ImportError  `json:"errors"`
}

// ImportError describes a row that could not be read.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// namedSet is one series parsed from an import file.
type namedSet struct {
	name string
	set  *series.Set
}

// Import reads a CSV file and stores the series it describes.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := checkContext(ctx, "import"); err != nil {
		return nil, err
	}
	if record.Normalize(input.Name) == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if input.Mode == "" {
		input.Mode = StoreModeError
	}
	if input.Mode != StoreModeError && input.Mode != StoreModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}
	delim, err := delimiterFor(input.Delimiter, cfg)
	if err != nil {
		return nil, err
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		var se *errors.SpansError
		if stderrors.As(err, &se) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	out := &ImportOutput{Stored: []*StoreOutput{}, Errors: []ImportError{}}
	var sets []namedSet

	switch input.Layout {
	case "", LayoutIntervals:
		skip := input.SkipHeader == nil || *input.SkipHeader
		var s *series.Set
		s, out.Rows, out.Errors = ReadIntervalsCSV(file, delim, skip, input.FlipColumns)
		sets = []namedSet{{name: input.Name, set: s}}
	case LayoutBinaryState:
		opts := BinaryStateOptions{
			Delimiter:   delim,
			HeaderLines: input.HeaderLines,
			Column:      DefaultDataColumn,
			AllColumns:  input.AllColumns,
			Threshold:   config.DefaultConfig().BinaryThreshold,
		}
		if cfg != nil && cfg.BinaryThreshold > 0 {
			opts.Threshold = cfg.BinaryThreshold
		}
		if input.DataColumn != nil {
			opts.Column = *input.DataColumn
		}
		if input.Threshold != nil {
			opts.Threshold = *input.Threshold
		}
		var cols []BinaryColumn
		cols, out.Rows, out.Errors = ReadBinaryStateCSV(file, opts)
		for _, c := range cols {
			name := input.Name
			if input.AllColumns {
				name = input.Name + "_" + c.Name
			}
			sets = append(sets, namedSet{name: name, set: c.Set})
		}
	default:
		return nil, errors.NewInvalidRequest("layout must be one of: intervals, binary_state")
	}

	if len(out.Errors) > 0 {
		return out, nil
	}

	// Two columns that normalize to one name would overwrite each other.
	seen := make(map[string]string, len(sets))
	for _, ns := range sets {
		norm := record.Normalize(ns.name)
		if prev, ok := seen[norm]; ok {
			e := errors.NewInvalidRequest(fmt.Sprintf("%q and %q map to the same series name", prev, ns.name))
			e.Details = map[string]any{"name": norm}
			return nil, e
		}
		seen[norm] = ns.name
	}

	// All series are written in one transaction; any failure stores nothing.
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	workspace := record.Workspace(input.Workspace)
	for _, ns := range sets {
		stored, err := storeSet(ctx, tx, workspace, ns.name, input.Title, input.Mode, ns.set)
		if err != nil {
			return nil, err
		}
		out.Stored = append(out.Stored, stored)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// ReadIntervalsCSV parses start,end rows. skipHeader drops the first record;
// flip reads end,start. Rows that fail to parse are reported, not stored.
func ReadIntervalsCSV(r io.Reader, delim rune, skipHeader, flip bool) (*series.Set, int, []ImportError) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	s := series.NewSet()
	var errs []ImportError
	rows := 0
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !stderrors.As(err, &pe) {
				errs = append(errs, ImportError{Code: "PARSE_ERROR", Message: err.Error()})
				break
			}
			errs = append(errs, ImportError{Line: pe.StartLine, Code: "PARSE_ERROR", Message: pe.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if first && skipHeader {
			continue
		}
		rows++

		if len(rec) < 2 {
			errs = append(errs, ImportError{Line: line, Code: string(errors.ErrInvalidArgument),
				Message: fmt.Sprintf("expected 2 columns, got %d", len(rec))})
			continue
		}
		start, err1 := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		end, err2 := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err := stderrors.Join(err1, err2); err != nil {
			errs = append(errs, ImportError{Line: line, Code: string(errors.ErrInvalidArgument),
				Message: fmt.Sprintf("invalid interval bounds %q, %q", rec[0], rec[1])})
			continue
		}
		if flip {
			start, end = end, start
		}
		if err := s.AddInterval(start, end); err != nil {
			errs = append(errs, ImportError{Line: line, Code: string(errors.ErrInvalidInterval), Message: err.Error()})
		}
	}
	return s, rows, errs
}

// BinaryStateOptions configures ReadBinaryStateCSV.
type BinaryStateOptions struct {
	Delimiter   rune
	HeaderLines int     // lines skipped before the column-names row
	Column      int     // zero-based data column
	AllColumns  bool    // read every column after the first
	Threshold   float64 // samples >= Threshold are on
}

// BinaryColumn is the series extracted from one column.
type BinaryColumn struct {
	Name string
	Set  *series.Set
}

// ReadBinaryStateCSV reads a sampled state file. HeaderLines lines are
// skipped, the next line names the columns, and every following non-blank
// line is one sample. Row i of the data becomes tick i.
func ReadBinaryStateCSV(r io.Reader, opts BinaryStateOptions) ([]BinaryColumn, int, []ImportError) {
	if opts.HeaderLines < 0 {
		return nil, 0, []ImportError{{Code: string(errors.ErrInvalidArgument), Message: "header lines must not be negative"}}
	}
	if !opts.AllColumns && opts.Column < 0 {
		return nil, 0, []ImportError{{Code: string(errors.ErrInvalidArgument), Message: "data column must not be negative"}}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sep := string(opts.Delimiter)

	line := 0
	for line < opts.HeaderLines && sc.Scan() {
		line++
	}

	var names []string
	if sc.Scan() {
		line++
		names = splitFields(sc.Text(), sep)
	}

	var columns []int
	if opts.AllColumns {
		for i := 1; i < len(names); i++ {
			columns = append(columns, i)
		}
	} else {
		columns = []int{opts.Column}
	}

	samples := make([][]float64, len(columns))
	var errs []ImportError
	rows := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := splitFields(text, sep)
		rows++
		for j, col := range columns {
			if col >= len(fields) {
				errs = append(errs, ImportError{Line: line, Code: string(errors.ErrInvalidArgument),
					Message: fmt.Sprintf("row has %d columns, need column %d", len(fields), col)})
				break
			}
			v, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				errs = append(errs, ImportError{Line: line, Code: string(errors.ErrInvalidArgument),
					Message: fmt.Sprintf("invalid sample %q", fields[col])})
				break
			}
			samples[j] = append(samples[j], v)
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, ImportError{Line: line + 1, Code: "PARSE_ERROR", Message: err.Error()})
	}
	if len(errs) > 0 {
		return nil, rows, errs
	}

	out := make([]BinaryColumn, len(columns))
	for j, col := range columns {
		name := strconv.Itoa(col)
		if col < len(names) && names[col] != "" {
			name = names[col]
		}
		out[j] = BinaryColumn{
			Name: name,
			Set:  series.ExtractBoolRuns(series.Threshold(samples[j], opts.Threshold)),
		}
	}
	return out, rows, nil
}

// splitFields splits a line on sep and trims each field.
func splitFields(line, sep string) []string {
	fields := strings.Split(line, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
