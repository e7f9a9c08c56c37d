package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/spans/internal/db"
	"github.com/hpungsan/spans/internal/errors"
	"github.com/hpungsan/spans/internal/record"
	"github.com/hpungsan/spans/internal/series"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Ref addresses a stored series either by ID or by (workspace, name).
type Ref struct {
	ID        string
	Workspace string
	Name      string
}

// Address is a validated Ref.
type Address struct {
	ByID      bool
	ID        string
	Workspace string // normalized, defaulted to "default" for name-mode
	Name      string // normalized
}

// ValidateAddress validates addressing parameters and returns a normalized Address.
// Exactly one mode must be used: id alone, or name with an optional workspace.
func ValidateAddress(ref Ref) (*Address, error) {
	id := strings.TrimSpace(ref.ID)
	name := strings.TrimSpace(ref.Name)
	workspace := strings.TrimSpace(ref.Workspace)

	hasID := id != ""
	hasName := name != ""

	if hasID && (hasName || workspace != "") {
		return nil, errors.NewAmbiguousAddressing()
	}
	if !hasID && !hasName {
		return nil, errors.NewInvalidRequest("must specify either id or name")
	}
	if hasID {
		return &Address{ByID: true, ID: id}, nil
	}

	return &Address{
		Workspace: record.Normalize(record.Workspace(workspace)),
		Name:      record.Normalize(name),
	}, nil
}

// FetchKey is the (workspace, name) pair a stored series can be fetched by.
type FetchKey struct {
	Workspace string `json:"workspace"`
	Name      string `json:"name"`
}

// BuildFetchKey returns the fetch key for a record.
func BuildFetchKey(r *record.Record) FetchKey {
	return FetchKey{Workspace: r.WorkspaceRaw, Name: r.NameRaw}
}

// load resolves ref to a stored record.
func load(ctx context.Context, database *sql.DB, ref Ref) (*record.Record, error) {
	addr, err := ValidateAddress(ref)
	if err != nil {
		return nil, err
	}
	if addr.ByID {
		return db.GetByID(ctx, database, addr.ID)
	}
	return db.GetByName(ctx, database, addr.Workspace, addr.Name)
}

// SaveAs names the record an operation writes its result to.
type SaveAs struct {
	Workspace string    // default: workspace of the input series
	Name      string    // required
	Title     *string   // optional
	Mode      StoreMode // default: error
}

// save persists s under target, falling back to workspace when the target
// has none.
func save(ctx context.Context, database *sql.DB, target *SaveAs, workspace string, s *series.Set) (*StoreOutput, error) {
	ws := target.Workspace
	if strings.TrimSpace(ws) == "" {
		ws = workspace
	}
	return storeSet(ctx, database, ws, target.Name, target.Title, target.Mode, s)
}

// checkContext converts a finished context into a CANCELLED error.
func checkContext(ctx context.Context, op string) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
