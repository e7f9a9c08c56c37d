package record

import (
	"testing"

	"github.com/hpungsan/spans/internal/series"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "Whisker Contacts", want: "whisker contacts"},
		{name: "trim whitespace", input: "  trial  ", want: "trial"},
		{name: "collapse internal whitespace", input: "left    whisker", want: "left whisker"},
		{name: "tabs and newlines", input: "a\t\n  b", want: "a b"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n   ", want: ""},
		{name: "unicode characters", input: "  ÉTAT   Öffnen  ", want: "état öffnen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWorkspace(t *testing.T) {
	if got := Workspace(""); got != DefaultWorkspace {
		t.Errorf("Workspace(\"\") = %q, want %q", got, DefaultWorkspace)
	}
	if got := Workspace("  "); got != DefaultWorkspace {
		t.Errorf("Workspace(blank) = %q, want %q", got, DefaultWorkspace)
	}
	if got := Workspace("Lab A"); got != "Lab A" {
		t.Errorf("Workspace(Lab A) = %q", got)
	}
}

func TestNewDerivesFields(t *testing.T) {
	s, err := series.FromPairs([][]int64{{0, 9}, {20, 29}})
	if err != nil {
		t.Fatalf("FromPairs() error = %v", err)
	}
	r := New("01ID", "Lab  A", "Contacts", nil, s)

	if r.WorkspaceNorm != "lab a" {
		t.Errorf("WorkspaceNorm = %q, want %q", r.WorkspaceNorm, "lab a")
	}
	if r.NameNorm != "contacts" {
		t.Errorf("NameNorm = %q, want %q", r.NameNorm, "contacts")
	}
	if r.IntervalCount != 2 {
		t.Errorf("IntervalCount = %d, want 2", r.IntervalCount)
	}
	if r.CoveredTicks != 20 {
		t.Errorf("CoveredTicks = %d, want 20", r.CoveredTicks)
	}

	r.SetSeries(nil)
	if r.Series == nil || r.IntervalCount != 0 || r.CoveredTicks != 0 {
		t.Errorf("SetSeries(nil) left %+v", r)
	}
}

func TestToSummary(t *testing.T) {
	s, err := series.FromPairs([][]int64{{5, 10}, {20, 30}})
	if err != nil {
		t.Fatalf("FromPairs() error = %v", err)
	}
	title := "Contacts"
	r := New("01ID", "default", "contacts", &title, s)
	r.CreatedAt, r.UpdatedAt = 100, 200

	sum := r.ToSummary()
	if sum.ID != "01ID" || sum.Name != "contacts" || *sum.Title != "Contacts" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Extent == nil || *sum.Extent != (series.Interval{Start: 5, End: 30}) {
		t.Errorf("Extent = %v, want [5, 30]", sum.Extent)
	}
	if sum.CreatedAt != 100 || sum.UpdatedAt != 200 {
		t.Errorf("timestamps = %d/%d", sum.CreatedAt, sum.UpdatedAt)
	}

	empty := New("01ID", "default", "empty", nil, series.NewSet()).ToSummary()
	if empty.Extent != nil {
		t.Errorf("empty Extent = %v, want nil", empty.Extent)
	}
}
