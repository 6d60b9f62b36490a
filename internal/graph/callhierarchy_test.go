package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallHierarchy(t *testing.T) {
	g := NewCodeGraph()
	g.AddSymbol(sym("a#0:main", "main", "a.rs", 0, 0, 3, 0))
	g.AddSymbol(sym("a#4:helper", "helper", "a.rs", 4, 0, 6, 0))
	g.AddEdge(Edge{From: "a#0:main", To: "a#4:helper", Kind: EdgeCallsInto})

	callees := g.CalleesOf("a#0:main")
	assert.Len(t, callees, 1)
	assert.Equal(t, "helper", callees[0].Name)

	callers := g.CallersOf("a#4:helper")
	assert.Len(t, callers, 1)
	assert.Equal(t, "main", callers[0].Name)
}
