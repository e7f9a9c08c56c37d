package ops

import (
	"context"
	"path/filepath"
	"testing"
)

// TestWorkflow_ContactCleanup runs the usual session: store raw detections,
// bridge short dropouts, mask artifacts, export, re-import and list.
func TestWorkflow_ContactCleanup(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	cfg, dir := exportConfig(t)

	_, err := Store(ctx, database, StoreInput{
		Workspace: "session-1",
		Name:      "contact raw",
		Flags:     []bool{true, true, false, true, true, false, false, false, true, true, true, true},
	})
	if err != nil {
		t.Fatalf("Store raw failed: %v", err)
	}
	mustStore(t, database, "session-1", "artifacts", []int64{9, 10})

	grouped, err := Apply(ctx, database, cfg, nil, ApplyInput{
		Ref:       Ref{Workspace: "session-1", Name: "contact raw"},
		Transform: "group",
		SaveAs:    &SaveAs{Name: "contact grouped"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if want := [][2]int64{{0, 4}, {8, 11}}; !equalPairs(pairsOf(grouped.Intervals), want) {
		t.Fatalf("grouped = %v, want %v", pairsOf(grouped.Intervals), want)
	}

	clean, err := Combine(ctx, database, CombineInput{
		Left:      Ref{Workspace: "session-1", Name: "contact grouped"},
		Right:     &Ref{Workspace: "session-1", Name: "artifacts"},
		Operation: "and_not",
		SaveAs:    &SaveAs{Name: "contact clean"},
	})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	if want := [][2]int64{{0, 4}, {8, 8}, {11, 11}}; !equalPairs(pairsOf(clean.Intervals), want) {
		t.Fatalf("clean = %v, want %v", pairsOf(clean.Intervals), want)
	}

	path := filepath.Join(dir, "clean.csv")
	if _, err := Export(ctx, database, cfg, ExportInput{Ref: Ref{ID: clean.Saved.ID}, Path: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := Import(ctx, database, cfg, ImportInput{Path: path, Workspace: "session-2", Name: "contact clean"}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	list1, err := List(ctx, database, ListInput{Workspace: "session-1"})
	if err != nil {
		t.Fatal(err)
	}
	if list1.Pagination.Total != 4 {
		t.Errorf("session-1 has %d series, want 4", list1.Pagination.Total)
	}
	list2, err := List(ctx, database, ListInput{Workspace: "session-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list2.Items) != 1 || list2.Items[0].CoveredTicks != 7 {
		t.Errorf("session-2 items = %+v", list2.Items)
	}

	if _, err := Delete(ctx, database, DeleteInput{Ref: Ref{Workspace: "session-1", Name: "contact raw"}}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	list1, _ = List(ctx, database, ListInput{Workspace: "session-1"})
	if list1.Pagination.Total != 3 {
		t.Errorf("after delete: %d series, want 3", list1.Pagination.Total)
	}
}
