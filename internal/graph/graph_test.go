package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(id, name, file string, startLine, startChar, endLine, endChar int) Symbol {
	return Symbol{
		ID:       id,
		Name:     name,
		Kind:     KindFunction,
		FilePath: file,
		Range: Range{
			Start: Position{Line: startLine, Character: startChar},
			End:   Position{Line: endLine, Character: endChar},
		},
	}
}

func TestAddSymbol_IdempotentPreservesEdges(t *testing.T) {
	g := NewCodeGraph()
	a := sym("a#0:foo", "foo", "a.rs", 0, 0, 2, 0)
	b := sym("b#0:bar", "bar", "b.rs", 0, 0, 1, 0)
	g.AddSymbol(a)
	g.AddSymbol(b)
	require.True(t, g.AddEdge(Edge{From: "b#0:bar", To: "a#0:foo", Kind: EdgeReference}))

	// P2: re-adding the same symbol id is idempotent.
	countBefore := g.SymbolCount()
	g.AddSymbol(a)
	assert.Equal(t, countBefore, g.SymbolCount())
	assert.Len(t, g.FindReferences("a#0:foo"), 1)
}

func TestRemoveSymbol_ClearsReferences(t *testing.T) {
	g := NewCodeGraph()
	a := sym("a#0:foo", "foo", "a.rs", 0, 0, 2, 0)
	b := sym("b#0:bar", "bar", "b.rs", 0, 0, 1, 0)
	g.AddSymbol(a)
	g.AddSymbol(b)
	g.AddEdge(Edge{From: "b#0:bar", To: "a#0:foo", Kind: EdgeReference})

	g.RemoveSymbol("a#0:foo")

	// P1
	assert.Nil(t, g.FindSymbol("a#0:foo"))
	assert.Empty(t, g.FindReferences("a#0:foo"))
	assert.Nil(t, g.FindSymbol("a#0:foo"))
}

func TestGetSymbolsInFile_MatchesPartition(t *testing.T) {
	g := NewCodeGraph()
	a := sym("a#0:foo", "foo", "a.rs", 0, 0, 2, 0)
	b := sym("a#3:baz", "baz", "a.rs", 3, 0, 4, 0)
	c := sym("b#0:bar", "bar", "b.rs", 0, 0, 1, 0)
	g.AddSymbol(a)
	g.AddSymbol(b)
	g.AddSymbol(c)

	inFileA := g.GetSymbolsInFile("a.rs")
	require.Len(t, inFileA, 2)

	// P3: union over files equals the full symbol set filtered by file_path.
	all := g.GetAllSymbols()
	var wantInA []Symbol
	for _, s := range all {
		if s.FilePath == "a.rs" {
			wantInA = append(wantInA, s)
		}
	}
	assert.ElementsMatch(t, wantInA, inFileA)
}

func TestFindSymbolAt_SmallestEnclosingWins(t *testing.T) {
	g := NewCodeGraph()
	outer := sym("a#0:Outer", "Outer", "a.rs", 0, 0, 10, 0)
	inner := sym("a#2:inner", "inner", "a.rs", 2, 0, 4, 0)
	g.AddSymbol(outer)
	g.AddSymbol(inner)

	found := g.FindSymbolAt("a.rs", Position{Line: 3, Character: 0})
	require.NotNil(t, found)
	assert.Equal(t, "a#2:inner", found.ID)
}

func TestAddEdge_RejectsUnknownEndpoints(t *testing.T) {
	g := NewCodeGraph()
	g.AddSymbol(sym("a#0:foo", "foo", "a.rs", 0, 0, 1, 0))

	ok := g.AddEdge(Edge{From: "a#0:foo", To: "missing", Kind: EdgeReference})
	assert.False(t, ok)
}

func TestColdIndexTwoFileScenario(t *testing.T) {
	g := NewCodeGraph()
	foo := sym("a.rs#0:foo", "foo", "a.rs", 0, 0, 0, 14)
	bar := sym("b.rs#0:bar", "bar", "b.rs", 0, 0, 0, 20)
	g.AddSymbol(foo)
	g.AddSymbol(bar)
	g.AddEdge(Edge{From: "b.rs#0:bar", To: "a.rs#0:foo", Kind: EdgeReference})

	assert.Equal(t, 2, g.SymbolCount())
	refs := g.FindReferences("a.rs#0:foo")
	require.Len(t, refs, 1)
	assert.Equal(t, "b.rs", refs[0].FilePath)
}

func TestClearFile(t *testing.T) {
	g := NewCodeGraph()
	g.AddSymbol(sym("a#0:foo", "foo", "a.rs", 0, 0, 1, 0))
	g.AddSymbol(sym("a#2:bar", "bar", "a.rs", 2, 0, 3, 0))
	g.AddSymbol(sym("b#0:baz", "baz", "b.rs", 0, 0, 1, 0))

	g.ClearFile("a.rs")

	assert.Equal(t, 1, g.SymbolCount())
	assert.Empty(t, g.GetSymbolsInFile("a.rs"))
	assert.NotEmpty(t, g.GetSymbolsInFile("b.rs"))
}
