package vcs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewProvider_NotGitRepo(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := NewProvider(tmpDir); err == nil {
		t.Error("NewProvider() expected error for non-git repo, got nil")
	}
}

func TestNewProvider_Subdirectory(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	subDir := filepath.Join(cwd, "testdata", "subdir-test")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	defer os.RemoveAll(filepath.Join(cwd, "testdata"))

	p, err := NewProvider(subDir)
	if err != nil {
		t.Fatalf("NewProvider from subdirectory failed: %v", err)
	}

	if p.RepoRoot() == subDir {
		t.Error("RepoRoot() returned subdirectory, expected parent repo root")
	}

	if _, err := os.Stat(filepath.Join(p.RepoRoot(), ".git")); os.IsNotExist(err) {
		t.Errorf("no .git directory at resolved root: %s", p.RepoRoot())
	}
}

func TestParseNameStatus(t *testing.T) {
	out := []byte("A\tfoo.go\nM\tbar.go\nD\tbaz.go\n")
	changes, err := parseNameStatus(out)
	if err != nil {
		t.Fatalf("parseNameStatus: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	want := []Change{
		{Path: "foo.go", Status: StatusAdded},
		{Path: "bar.go", Status: StatusModified},
		{Path: "baz.go", Status: StatusDeleted},
	}
	for i, c := range changes {
		if c != want[i] {
			t.Errorf("change %d: got %+v, want %+v", i, c, want[i])
		}
	}
}
