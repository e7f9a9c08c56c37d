package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/db"
	"github.com/hpungsan/spans/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// testConfig returns a config that lets tests write under t.TempDir().
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

// run executes args and returns what the command wrote to stdout.
func run(t *testing.T, database *sql.DB, cfg *config.Config, args ...string) ([]byte, error) {
	t.Helper()
	app := newCLIApp(database, cfg)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := app.Run(append([]string{"spans"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout
	return buf.Bytes(), runErr
}

func mustRun(t *testing.T, database *sql.DB, cfg *config.Config, out any, args ...string) {
	t.Helper()
	b, err := run(t, database, cfg, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, b)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input       string
		expected    []int64
		expectError bool
	}{
		{input: "0:5", expected: []int64{0, 5}},
		{input: " -3 : 4 ", expected: []int64{-3, 4}},
		{input: "7:7", expected: []int64{7, 7}},
		{input: "5", expectError: true},
		{input: "a:5", expectError: true},
		{input: "1:b", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseInterval(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got[0] != tt.expected[0] || got[1] != tt.expected[1] {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	got, err := parseFlags("0110")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []bool{false, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if _, err := parseFlags("01x"); err == nil {
		t.Error("expected error for non-binary character")
	}
}

func TestParseRef(t *testing.T) {
	id := "01HZY3K7M8Q9R2T4V6W8X0Y2Z4"
	if ref := parseRef(id, "w"); ref.ID != id || ref.Name != "" {
		t.Errorf("ULID operand: %+v", ref)
	}
	if ref := parseRef("rig/contact", "w"); ref.Workspace != "rig" || ref.Name != "contact" {
		t.Errorf("qualified operand: %+v", ref)
	}
	if ref := parseRef("contact", "w"); ref.Workspace != "w" || ref.Name != "contact" {
		t.Errorf("bare operand: %+v", ref)
	}
}

func TestCLIStoreAndFetch(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	var stored ops.StoreOutput
	mustRun(t, database, cfg, &stored, "store", "-n", "contact", "-i", "5:8", "-i", "0:2", "-i", "3:4")
	if stored.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if stored.IntervalCount != 2 || stored.CoveredTicks != 9 {
		t.Errorf("expected 2 intervals covering 9 ticks, got %d / %d", stored.IntervalCount, stored.CoveredTicks)
	}

	t.Run("fetch by name", func(t *testing.T) {
		var out map[string]any
		mustRun(t, database, cfg, &out, "fetch", "--name=CONTACT")
		if out["id"] != stored.ID {
			t.Errorf("expected ID=%s, got %v", stored.ID, out["id"])
		}
		b, _ := json.Marshal(out["intervals"])
		if string(b) != "[[0,8]]" {
			t.Errorf("intervals = %s", b)
		}
	})

	t.Run("fetch by id without intervals", func(t *testing.T) {
		var out map[string]any
		mustRun(t, database, cfg, &out, "fetch", "--no-intervals", stored.ID)
		if _, ok := out["intervals"]; ok {
			t.Error("intervals should be omitted")
		}
	})

	t.Run("store from flags", func(t *testing.T) {
		var out ops.StoreOutput
		mustRun(t, database, cfg, &out, "store", "-n", "licks", "--flags", "0110011")
		if out.IntervalCount != 2 {
			t.Errorf("expected 2 runs, got %d", out.IntervalCount)
		}
	})
}

func TestCLIListAndDelete(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	for _, name := range []string{"a", "b", "c"} {
		mustRun(t, database, cfg, nil, "store", "-w", "rig", "-n", name, "-i", "0:1")
	}

	var list ops.ListOutput
	mustRun(t, database, cfg, &list, "list", "-w", "rig", "--limit", "2")
	if len(list.Items) != 2 || !list.Pagination.HasMore || list.Pagination.Total != 3 {
		t.Errorf("unexpected list: %+v", list.Pagination)
	}

	var del ops.DeleteOutput
	mustRun(t, database, cfg, &del, "delete", "-w", "rig", "-n", "b")
	if !del.Deleted {
		t.Error("expected deleted=true")
	}

	mustRun(t, database, cfg, &list, "list", "-w", "rig")
	if list.Pagination.Total != 2 {
		t.Errorf("expected 2 after delete, got %d", list.Pagination.Total)
	}
}

func TestCLICombine(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	mustRun(t, database, cfg, nil, "store", "-n", "a", "-i", "0:5")
	mustRun(t, database, cfg, nil, "store", "-w", "other", "-n", "b", "-i", "3:8")

	var out ops.CombineOutput
	mustRun(t, database, cfg, &out, "combine", "--save-as", "ab", "AND", "a", "other/b")
	if got := out.Intervals.Intervals(); len(got) != 1 || got[0].Start != 3 || got[0].End != 5 {
		t.Errorf("AND = %v", got)
	}
	if out.Saved == nil {
		t.Fatal("expected saved result")
	}

	mustRun(t, database, cfg, &out, "combine", "--domain", "0:9", "NOT", "a")
	if got := out.Intervals.Intervals(); len(got) != 1 || got[0].Start != 6 || got[0].End != 9 {
		t.Errorf("NOT = %v", got)
	}

	if _, err := run(t, database, cfg, "combine", "OR", "a"); err == nil {
		t.Error("expected error for missing right operand")
	}
	if _, err := run(t, database, cfg, "combine", "AND"); err == nil {
		t.Error("expected usage error")
	}
}

func TestCLIApplyAndPipeline(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	mustRun(t, database, cfg, nil, "store", "-n", "raw", "-i", "0:1", "-i", "3:4", "-i", "9:9")

	var applied ops.ApplyOutput
	mustRun(t, database, cfg, &applied, "apply", "--name", "raw", "group")
	if applied.IntervalCount != 2 {
		t.Errorf("group: expected 2 intervals, got %d", applied.IntervalCount)
	}

	var transforms ops.TransformsOutput
	mustRun(t, database, cfg, &transforms, "transforms")
	if len(transforms.Transforms) != 2 {
		t.Errorf("expected 2 transforms, got %d", len(transforms.Transforms))
	}

	path := filepath.Join(t.TempDir(), "tidy.yaml")
	def := "metadata: {name: tidy}\nsteps:\n  - transform_name: group\n    parameters: {max_spacing: 4}\n"
	if err := os.WriteFile(path, []byte(def), 0600); err != nil {
		t.Fatal(err)
	}
	var piped ops.RunPipelineOutput
	mustRun(t, database, cfg, &piped, "pipeline", "-n", "raw", "-s", "tidy", path)
	if piped.IntervalCount != 1 || piped.Saved == nil {
		t.Errorf("pipeline: %+v", piped.ResultOutput)
	}
}

func TestCLIExportImport(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	mustRun(t, database, cfg, nil, "store", "-n", "src", "-i", "0:2", "-i", "7:9")

	path := filepath.Join(t.TempDir(), "src.csv")
	var exported ops.ExportOutput
	mustRun(t, database, cfg, &exported, "export", "-n", "src", "--path", path)
	if exported.Count != 2 {
		t.Errorf("expected 2 rows, got %d", exported.Count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "start,end\n0,2\n7,9\n" {
		t.Errorf("unexpected CSV:\n%s", data)
	}

	var imported ops.ImportOutput
	mustRun(t, database, cfg, &imported, "import", "-n", "copy", path)
	if len(imported.Stored) != 1 || imported.Stored[0].IntervalCount != 2 {
		t.Errorf("unexpected import: %+v", imported)
	}

	t.Run("binary state", func(t *testing.T) {
		states := filepath.Join(t.TempDir(), "states.csv")
		content := "time,lick\n0,0\n1,1\n2,1\n3,0\n4,1\n"
		if err := os.WriteFile(states, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		var out ops.ImportOutput
		mustRun(t, database, cfg, &out, "import", "-n", "lick", "--layout", "binary_state", states)
		if len(out.Stored) != 1 || out.Stored[0].IntervalCount != 2 {
			t.Errorf("unexpected import: %+v", out)
		}
	})

	t.Run("bad rows import nothing", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.csv")
		if err := os.WriteFile(bad, []byte("start,end\n0,1\n5,2\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := run(t, database, cfg, "import", "-n", "bad", bad); err == nil {
			t.Error("expected error for rejected rows")
		}
		if _, err := ops.Fetch(context.Background(), database, ops.FetchInput{Ref: ops.Ref{Name: "bad"}}); err == nil {
			t.Error("series should not have been stored")
		}
	})
}

func TestCLIErrorHandling(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	tests := []struct {
		name string
		args []string
	}{
		{name: "fetch not found", args: []string{"fetch", "--name=nonexistent"}},
		{name: "delete not found", args: []string{"delete", "--name=nonexistent"}},
		{name: "store without name", args: []string{"store", "-i", "0:1"}},
		{name: "bad interval flag", args: []string{"store", "-n", "x", "-i", "0-1"}},
		{name: "reversed interval", args: []string{"store", "-n", "x", "-i", "5:1"}},
		{name: "apply unknown transform", args: []string{"apply", "--name", "x", "smooth"}},
		{name: "pipeline without file", args: []string{"pipeline"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit writes to stderr, so just verify the error is returned
			if _, err := run(t, database, cfg, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestOutputErrorFormat(t *testing.T) {
	_, err := ops.Fetch(context.Background(), setupTestDB(t), ops.FetchInput{Ref: ops.Ref{Name: "ghost"}})
	msg := outputError(err).Error()
	if !strings.HasPrefix(msg, "[NOT_FOUND] ") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, " [[0,1]] \n")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "[[0,1]]" {
			t.Errorf("expected trimmed input, got %q", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"spans"}, expected: false},
		{name: "store command", args: []string{"spans", "store"}, expected: true},
		{name: "combine command", args: []string{"spans", "combine"}, expected: true},
		{name: "pipeline command", args: []string{"spans", "pipeline"}, expected: true},
		{name: "help flag", args: []string{"spans", "--help"}, expected: true},
		{name: "short version flag", args: []string{"spans", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"spans", "--unknown"}, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"spans"}, expected: false},
		{name: "help flag", args: []string{"spans", "--help"}, expected: true},
		{name: "help subcommand", args: []string{"spans", "help"}, expected: true},
		{name: "version flag", args: []string{"spans", "--version"}, expected: true},
		{name: "store command is not help", args: []string{"spans", "store"}, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
