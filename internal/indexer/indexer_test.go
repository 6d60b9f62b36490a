package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-lsp/internal/config"
)

func newTestIndexer(t *testing.T, root, storeDir string) *Indexer {
	t.Helper()
	cfg, err := config.LoadWithRoot("", root)
	require.NoError(t, err)
	cfg.Store.Path = storeDir

	idx, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func writeGoFile(t *testing.T, root, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
}

// gopls is never present in the sandbox, so every cycle here exercises
// the lexical fallback path deterministically rather than a real
// language server.
func TestFullReindex_TwoFilesLexicalFallback(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "a.go", "package main\n\nfunc Run() {}\n")
	writeGoFile(t, root, "b.go", "package main\n\nfunc Helper() {}\n")

	idx := newTestIndexer(t, root, t.TempDir())
	result, err := idx.FullReindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesAdded)
	assert.True(t, result.FullReindex)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, result.DegradedFiles)

	names := map[string]bool{}
	for _, s := range idx.Graph().GetAllSymbols() {
		names[s.Name] = true
	}
	assert.True(t, names["Run"])
	assert.True(t, names["Helper"])
}

func TestIncremental_AddModifyDelete(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "a.go", "package main\n\nfunc Run() {}\n")

	storeDir := t.TempDir()
	idx := newTestIndexer(t, root, storeDir)
	_, err := idx.FullReindex(context.Background())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	// Reopen to prove the cycle persists and resumes across a fresh
	// Indexer, then mutate the tree and run an incremental cycle.
	idx2 := newTestIndexer(t, root, storeDir)
	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	writeGoFile(t, root, "a.go", "package main\n\nfunc RunRenamed() {}\n")
	writeGoFile(t, root, "c.go", "package main\n\nfunc New() {}\n")

	result, err := idx2.Incremental(context.Background())
	require.NoError(t, err)
	assert.False(t, result.FullReindex)
	assert.Equal(t, 1, result.FilesAdded)
	assert.Equal(t, 1, result.FilesModified)

	names := map[string]bool{}
	for _, s := range idx2.Graph().GetAllSymbols() {
		names[s.Name] = true
	}
	assert.True(t, names["RunRenamed"])
	assert.True(t, names["New"])
	assert.False(t, names["Run"])
}

func TestIncremental_DeletedFileClearsSymbols(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "a.go", "package main\n\nfunc Run() {}\n")
	writeGoFile(t, root, "b.go", "package main\n\nfunc Helper() {}\n")

	idx := newTestIndexer(t, root, t.TempDir())
	_, err := idx.FullReindex(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))
	result, err := idx.Incremental(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesDeleted)

	assert.Empty(t, idx.Graph().GetSymbolsInFile("b.go"))
	assert.NotEmpty(t, idx.Graph().GetSymbolsInFile("a.go"))
}

func TestIncremental_ModifiedFileReportsUpdatedAndDeletedCounts(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "b.go", "package main\n\nfunc Helper() {}\nfunc Old() {}\n")

	idx := newTestIndexer(t, root, t.TempDir())
	_, err := idx.FullReindex(context.Background())
	require.NoError(t, err)

	writeGoFile(t, root, "b.go", "package main\n\nfunc Helper() {}\n")
	result, err := idx.Incremental(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.SymbolsUpdated)
	assert.Equal(t, 1, result.SymbolsDeleted)
	assert.Equal(t, 0, result.SymbolsAdded)
}

// TestFullReindex_WipesStaleSymbolsFromDeletedFiles exercises the bug
// where a full reindex over an existing store left symbols from files
// deleted since the previous cycle stranded in the live graph.
func TestFullReindex_WipesStaleSymbolsFromDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "a.go", "package main\n\nfunc Run() {}\n")
	writeGoFile(t, root, "b.go", "package main\n\nfunc Helper() {}\n")

	storeDir := t.TempDir()
	idx := newTestIndexer(t, root, storeDir)
	_, err := idx.FullReindex(context.Background())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	idx2 := newTestIndexer(t, root, storeDir)
	result, err := idx2.FullReindex(context.Background())
	require.NoError(t, err)
	assert.True(t, result.FullReindex)

	assert.Empty(t, idx2.Graph().GetSymbolsInFile("b.go"))
	assert.NotEmpty(t, idx2.Graph().GetSymbolsInFile("a.go"))
}
