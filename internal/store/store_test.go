package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

func TestOpenCreatesDirAndLock(t *testing.T) {
	dir := t.TempDir() + "/store"

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "meta", "k1", []byte("hello")))

	val, ok, err := s.Load(ctx, "meta", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(val))

	_, ok, err = s.Load(ctx, "meta", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "meta", "k1", []byte("v1")))
	require.NoError(t, s.Save(ctx, "meta", "k1", []byte("v2")))

	val, ok, err := s.Load(ctx, "meta", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(val))
}

func TestGraphRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	g := graph.NewCodeGraph()
	g.AddSymbol(graph.Symbol{ID: "a.rs#0:foo", Name: "foo", FilePath: "a.rs"})
	g.AddSymbol(graph.Symbol{ID: "b.rs#0:bar", Name: "bar", FilePath: "b.rs"})
	g.AddEdge(graph.Edge{From: "b.rs#0:bar", To: "a.rs#0:foo", Kind: graph.EdgeReference})

	require.NoError(t, s.SaveGraph(ctx, g))

	loaded, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.SymbolCount())
	assert.Len(t, loaded.FindReferences("a.rs#0:foo"), 1)
}

func TestLoadGraphEmptyOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	g, err := s.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, g.SymbolCount())
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	meta := NewIndexMetadata("/proj")
	meta.FileCount = 3
	meta.FileHashes["a.rs"] = "deadbeef"

	require.NoError(t, s.SaveMetadata(ctx, meta))

	loaded, err := s.LoadMetadata(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.FileCount)
	assert.Equal(t, "deadbeef", loaded.FileHashes["a.rs"])
	assert.Equal(t, meta.IdentityTag, loaded.IdentityTag)
}

func TestUnframeRejectsBadMagic(t *testing.T) {
	_, err := unframe(magicGraph, versionGraph, frame(magicMeta, versionMeta, []byte("x")))
	assert.Error(t, err)
}

func TestUnframeRejectsUnknownVersion(t *testing.T) {
	_, err := unframe(magicGraph, versionGraph, frame(magicGraph, 99, []byte("x")))
	assert.Error(t, err)
}
