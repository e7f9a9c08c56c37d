package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.GroupMaxSpacing != def.GroupMaxSpacing {
		t.Errorf("GroupMaxSpacing = %d, want %d", cfg.GroupMaxSpacing, def.GroupMaxSpacing)
	}
	if cfg.BinaryThreshold != def.BinaryThreshold {
		t.Errorf("BinaryThreshold = %v, want %v", cfg.BinaryThreshold, def.BinaryThreshold)
	}
	if cfg.Delimiter() != ',' {
		t.Errorf("Delimiter() = %q, want ','", cfg.Delimiter())
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"group_max_spacing": 5, "binary_threshold": 0.7, "csv_delimiter": "\t"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GroupMaxSpacing != 5 {
		t.Errorf("GroupMaxSpacing = %d, want 5", cfg.GroupMaxSpacing)
	}
	if cfg.BinaryThreshold != 0.7 {
		t.Errorf("BinaryThreshold = %v, want 0.7", cfg.BinaryThreshold)
	}
	if cfg.Delimiter() != '\t' {
		t.Errorf("Delimiter() = %q, want tab", cfg.Delimiter())
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["series_delete", "series_combine"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "series_delete" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "series_delete")
	}
	if cfg.DisabledTools[1] != "series_combine" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "series_combine")
	}
}

func TestDelimiter_InvalidFallsBack(t *testing.T) {
	for _, d := range []string{"", ";;", "ab"} {
		cfg := &Config{CSVDelimiter: d}
		if got := cfg.Delimiter(); got != ',' {
			t.Errorf("Delimiter(%q) = %q, want ','", d, got)
		}
	}
	if got := (&Config{CSVDelimiter: ";"}).Delimiter(); got != ';' {
		t.Errorf("Delimiter(;) = %q, want ';'", got)
	}
	var nilCfg *Config
	if got := nilCfg.Delimiter(); got != ',' {
		t.Errorf("nil Delimiter() = %q, want ','", got)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `{"group_max_spacing": 4, "disabled_tools": ["series_delete"]}`)
	writeConfig(t, filepath.Join(repoRoot, DirName), `{"group_max_spacing": 2, "disabled_tools": ["series_combine"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.GroupMaxSpacing != 2 {
		t.Errorf("GroupMaxSpacing = %d, want 2 (repo override)", cfg.GroupMaxSpacing)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	writeConfig(t, globalDir, `{"binary_threshold": 0.9, "disabled_tools": ["series_delete"]}`)

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.BinaryThreshold != 0.9 {
		t.Errorf("BinaryThreshold = %v, want 0.9", cfg.BinaryThreshold)
	}
	if cfg.GroupMaxSpacing != 1 {
		t.Errorf("GroupMaxSpacing = %d, want 1 (default)", cfg.GroupMaxSpacing)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "series_delete" {
		t.Errorf("DisabledTools = %v, want [series_delete]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.GroupMaxSpacing != 1 || cfg.BinaryThreshold != 0.5 || cfg.CSVDelimiter != "," {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	tmpDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, filepath.Join(tmpDir, DirName), `{"disabled_types": ["transform"]}`)

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if len(cfg.DisabledTypes) != 1 || cfg.DisabledTypes[0] != "transform" {
		t.Errorf("DisabledTypes = %v, want [transform]", cfg.DisabledTypes)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{GroupMaxSpacing: 10, DBMaxOpenConns: 5, CSVDelimiter: ","}
	overlay := &Config{GroupMaxSpacing: 3, CSVDelimiter: ";"}

	result := Merge(base, overlay)

	if result.GroupMaxSpacing != 3 {
		t.Errorf("GroupMaxSpacing = %d, want 3 (overlay)", result.GroupMaxSpacing)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.CSVDelimiter != ";" {
		t.Errorf("CSVDelimiter = %q, want ;", result.CSVDelimiter)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{AllowUnsafePaths: true}, &Config{AllowUnsafePaths: false})
	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"series_delete", " series_combine "}}
	overlay := &Config{DisabledTools: []string{"series_combine", "series_apply", ""}}

	result := Merge(base, overlay)

	want := []string{"series_delete", "series_combine", "series_apply"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, filepath.Join(tmpDir, DirName), `{}`)
	configPath := filepath.Join(tmpDir, DirName, "config.json")

	if found := FindRepoConfig(tmpDir); found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if found := FindRepoConfig(subdir); found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if found := FindRepoConfig(t.TempDir()); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}
