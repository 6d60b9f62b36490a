package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

func TestMatcher_PlainSubstring(t *testing.T) {
	match, err := matcher("Run", false)
	require.NoError(t, err)
	assert.True(t, match("RunServer"))
	assert.False(t, match("Helper"))
}

func TestMatcher_Regex(t *testing.T) {
	match, err := matcher("^Run.*Server$", true)
	require.NoError(t, err)
	assert.True(t, match("RunServer"))
	assert.False(t, match("RunServerNow"))
}

func TestMatcher_InvalidRegexIsAnError(t *testing.T) {
	_, err := matcher("(unclosed", true)
	assert.Error(t, err)
}

func TestSymbolLocation_IsOneIndexed(t *testing.T) {
	sym := graph.Symbol{
		FilePath: "/src/a.go",
		Range: graph.Range{
			Start: graph.Position{Line: 4, Character: 2},
		},
	}
	assert.Equal(t, "/src/a.go:5:3", symbolLocation(sym))
}
