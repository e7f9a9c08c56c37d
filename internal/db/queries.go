package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

const selectColumns = `
	id, workspace_raw, workspace_norm, name_raw, name_norm, title,
	intervals_json, interval_count, covered_ticks, created_at, updated_at
`

// Querier is implemented by both *sql.DB and *sql.Tx, so writes can join a
// caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Insert stores a new record. A (workspace, name) collision fails with
// NAME_ALREADY_EXISTS.
func Insert(ctx context.Context, db Querier, r *record.Record) error {
	args, err := writeArgs(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO series (
			id, workspace_raw, workspace_norm, name_raw, name_norm, title,
			intervals_json, interval_count, covered_ticks, extent_start, extent_end,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewNameAlreadyExists(r.WorkspaceRaw, r.NameRaw)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// UpsertResult reports the outcome of Upsert.
type UpsertResult struct {
	ID      string
	Created bool
}

// Upsert inserts r, or replaces the intervals and title of the record with
// the same (workspace, name). The existing record keeps its ID and created_at.
func Upsert(ctx context.Context, db Querier, r *record.Record) (*UpsertResult, error) {
	args, err := writeArgs(r)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO series (
			id, workspace_raw, workspace_norm, name_raw, name_norm, title,
			intervals_json, interval_count, covered_ticks, extent_start, extent_end,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_norm, name_norm) DO UPDATE SET
			title = excluded.title,
			intervals_json = excluded.intervals_json,
			interval_count = excluded.interval_count,
			covered_ticks = excluded.covered_ticks,
			extent_start = excluded.extent_start,
			extent_end = excluded.extent_end,
			updated_at = excluded.updated_at
		RETURNING id
	`
	var id string
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &UpsertResult{ID: id, Created: id == r.ID}, nil
}

// GetByID retrieves a record by its ULID.
func GetByID(ctx context.Context, db *sql.DB, id string) (*record.Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM series WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// GetByName retrieves a record by normalized workspace and name.
func GetByName(ctx context.Context, db Querier, workspaceNorm, nameNorm string) (*record.Record, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM series WHERE workspace_norm = ? AND name_norm = ?`,
		workspaceNorm, nameNorm)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListByWorkspace returns summaries for a workspace ordered by most recently
// updated, plus the total number of records in the workspace.
func ListByWorkspace(ctx context.Context, db *sql.DB, workspaceNorm string, limit, offset int) ([]record.Summary, int, error) {
	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM series WHERE workspace_norm = ?`, workspaceNorm,
	).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, workspace_raw, workspace_norm, name_raw, name_norm, title,
			interval_count, covered_ticks, extent_start, extent_end, created_at, updated_at
		FROM series
		WHERE workspace_norm = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, workspaceNorm, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []record.Summary
	for rows.Next() {
		var (
			s                      record.Summary
			title                  sql.NullString
			extentStart, extentEnd sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID, &s.Workspace, &s.WorkspaceNorm, &s.Name, &s.NameNorm, &title,
			&s.IntervalCount, &s.CoveredTicks, &extentStart, &extentEnd, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.Title = fromNullString(title)
		if extentStart.Valid && extentEnd.Valid {
			s.Extent = &series.Interval{Start: extentStart.Int64, End: extentEnd.Int64}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// Delete permanently removes a record.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// UpdateIntervals replaces the series of an existing record and bumps
// updated_at. r is updated in place on success.
func UpdateIntervals(ctx context.Context, db *sql.DB, r *record.Record, s *series.Set) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.NewInternal(err)
	}
	extentStart, extentEnd := extentArgs(s)
	now := time.Now().Unix()

	result, err := db.ExecContext(ctx, `
		UPDATE series
		SET intervals_json = ?, interval_count = ?, covered_ticks = ?,
			extent_start = ?, extent_end = ?, updated_at = ?
		WHERE id = ?
	`, string(data), s.Len(), s.Covered(), extentStart, extentEnd, now, r.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(r.ID)
	}

	r.SetSeries(s)
	r.UpdatedAt = now
	return nil
}

// writeArgs returns the insert arguments for r in column order.
func writeArgs(r *record.Record) ([]any, error) {
	data, err := json.Marshal(r.Series)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	extentStart, extentEnd := extentArgs(r.Series)
	return []any{
		r.ID, r.WorkspaceRaw, r.WorkspaceNorm, r.NameRaw, r.NameNorm, toNullString(r.Title),
		string(data), r.IntervalCount, r.CoveredTicks, extentStart, extentEnd,
		r.CreatedAt, r.UpdatedAt,
	}, nil
}

func extentArgs(s *series.Set) (sql.NullInt64, sql.NullInt64) {
	ext, ok := s.Extent()
	if !ok {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ext.Start, Valid: true}, sql.NullInt64{Int64: ext.End, Valid: true}
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanRecord scans a single row into a Record.
func scanRecord(row *sql.Row) (*record.Record, error) {
	var (
		r             record.Record
		title         sql.NullString
		intervalsJSON string
	)
	err := row.Scan(
		&r.ID, &r.WorkspaceRaw, &r.WorkspaceNorm, &r.NameRaw, &r.NameNorm, &title,
		&intervalsJSON, &r.IntervalCount, &r.CoveredTicks, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Title = fromNullString(title)

	s := series.NewSet()
	if err := json.Unmarshal([]byte(intervalsJSON), s); err != nil {
		return nil, err
	}
	r.Series = s
	return &r, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
