package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

// DefaultHeader is the column row written above exported intervals.
var DefaultHeader = []string{"start", "end"}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Ref
	Path      string // optional, default: ~/.spans/exports/<workspace>-<name>-<timestamp>.csv
	Delimiter string // optional, default: cfg.CSVDelimiter
	NoHeader  bool   // omit the column row
	Header    []string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes a stored series to a CSV file with one start,end row per
// interval. The file is replaced atomically.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	if err := checkContext(ctx, "export"); err != nil {
		return nil, err
	}
	now := time.Now()

	r, err := load(ctx, database, input.Ref)
	if err != nil {
		return nil, err
	}

	delim, err := delimiterFor(input.Delimiter, cfg)
	if err != nil {
		return nil, err
	}
	header := input.Header
	if len(header) == 0 {
		header = DefaultHeader
	}
	if input.NoHeader {
		header = nil
	} else if len(header) != 2 {
		return nil, errors.NewInvalidArgument("header must have exactly two columns")
	}

	path := input.Path
	if path == "" {
		if path, err = defaultExportPath(r, now); err != nil {
			return nil, err
		}
	}
	// Default paths are validated too; workspace and name are user input.
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	err = writeAtomic(path, func(w io.Writer) error {
		return WriteIntervalsCSV(ctx, w, r.Series, delim, header)
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       path,
		Count:      r.Series.Len(),
		ExportedAt: now.Unix(),
	}, nil
}

// WriteIntervalsCSV writes s as start,end rows, preceded by header when it
// is non-empty.
func WriteIntervalsCSV(ctx context.Context, w io.Writer, s *series.Set, delim rune, header []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return errors.NewInternal(err)
		}
	}
	for i, iv := range s.Intervals() {
		if i%1024 == 0 && ctx.Err() != nil {
			return errors.NewCancelled("export")
		}
		row := []string{strconv.FormatInt(iv.Start, 10), strconv.FormatInt(iv.End, 10)}
		if err := cw.Write(row); err != nil {
			return errors.NewInternal(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// writeAtomic writes to a temp file beside path and renames it into place,
// leaving any existing file untouched on failure.
func writeAtomic(path string, write func(io.Writer) error) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename follows a symlinked destination.
	if isSymlink(path) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath returns ~/.spans/exports/<workspace>-<name>-<timestamp>.csv.
func defaultExportPath(r *record.Record, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s-%s-%s%s",
		SanitizeForFilename(r.WorkspaceNorm),
		SanitizeForFilename(r.NameNorm),
		now.Format("2006-01-02T150405"),
		FileExt)
	return filepath.Join(dir, filename), nil
}

// delimiterFor picks the explicit delimiter or falls back to cfg.
func delimiterFor(explicit string, cfg *config.Config) (rune, error) {
	if explicit == "" {
		return cfg.Delimiter(), nil
	}
	if explicit == `\t` {
		return '\t', nil
	}
	rs := []rune(explicit)
	if len(rs) != 1 || strings.ContainsAny(explicit, "\"\r\n") || rs[0] == utf8.RuneError {
		return 0, errors.NewInvalidArgument(fmt.Sprintf("invalid delimiter %q", explicit))
	}
	return rs[0], nil
}
