package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-lsp/internal/config"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		Project: config.Project{Root: root},
		Index: config.Index{
			MaxFileSize:      1024 * 1024,
			MaxFileCount:     1000,
			RespectGitignore: false,
		},
		Exclude: []string{"**/.git/**"},
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScan_AddedModifiedDeleted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "package b")

	s, err := NewScanner(root, testConfig(root))
	require.NoError(t, err)

	first, err := s.Scan(context.Background(), map[string]string{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, first.Added)
	assert.Empty(t, first.Modified)
	assert.Empty(t, first.Deleted)

	// Modify a.go, delete b.go, add c.go.
	time.Sleep(2 * time.Millisecond)
	writeFile(t, root, "a.go", "package a // changed")
	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))
	writeFile(t, root, "c.go", "package c")

	second, err := s.Scan(context.Background(), first.Hashes, first.FastCache)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.go"}, second.Added)
	assert.Equal(t, []string{"a.go"}, second.Modified)
	assert.Equal(t, []string{"b.go"}, second.Deleted)
}

func TestScan_ExcludesMatchingPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package keep")
	writeFile(t, root, "vendor/dep.go", "package dep")

	cfg := testConfig(root)
	cfg.Exclude = append(cfg.Exclude, "**/vendor/**")

	s, err := NewScanner(root, cfg)
	require.NoError(t, err)

	diff, err := s.Scan(context.Background(), map[string]string{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, diff.Added)
}

func TestScan_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", "0123456789")

	cfg := testConfig(root)
	cfg.Index.MaxFileSize = 5

	s, err := NewScanner(root, cfg)
	require.NoError(t, err)

	diff, err := s.Scan(context.Background(), map[string]string{}, nil)
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
}

func TestDigestFile_ReusesCacheOnUnchangedMtimeAndSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")

	s, err := NewScanner(root, testConfig(root))
	require.NoError(t, err)

	diff1, err := s.Scan(context.Background(), map[string]string{}, nil)
	require.NoError(t, err)

	diff2, err := s.Scan(context.Background(), diff1.Hashes, diff1.FastCache)
	require.NoError(t, err)
	assert.Empty(t, diff2.Modified, "unchanged file must not appear modified")
	assert.Equal(t, diff1.Hashes["a.go"], diff2.Hashes["a.go"])
}
