// Package extract converts LSP responses into graph symbols and edges
// via a priority-ordered strategy chain (§4.6.4): Workspace (90) →
// Document (70) → Lexical (10). Each strategy's applicability is judged
// from the LSP client's advertised capabilities (or, for Lexical, from
// the LSP client's absence entirely).
package extract

import (
	"context"

	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// Result is what a strategy produces for one extraction pass: the
// symbols found plus the edges inferable from LSP data alone
// (containment from document-symbol nesting; references are resolved
// separately, see ResolveReferences).
type Result struct {
	Symbols []graph.Symbol
	Edges   []graph.Edge
}

// FileRequest is one file's worth of extraction input.
type FileRequest struct {
	Path     string // project-relative
	URI      string
	Text     string
	FileSize int64
	LineCount int
}

// Situation is what a strategy's AppliesTo judges against: the
// language being indexed and whatever LSP capability/availability
// information the indexer gathered for it.
type Situation struct {
	Language     string
	Client       *lspclient.Client // nil if the server failed to spawn
	Capabilities lspclient.Capabilities
	FullReindex  bool // true for a cold index, false for per-file differential updates
}

// Strategy is one extraction approach in the chain.
type Strategy interface {
	Name() string
	Priority() int
	AppliesTo(s Situation) bool
	// ExtractProject is used by strategies that materialize the whole
	// project in one pass (Workspace). Others return an errNotSupported error.
	ExtractProject(ctx context.Context, root string, adapter *lang.Adapter, client *lspclient.Client) (Result, error)
	// ExtractFile is used by per-file strategies (Document, Lexical).
	ExtractFile(ctx context.Context, req FileRequest, adapter *lang.Adapter, client *lspclient.Client) (Result, error)
}

// Chain holds every registered strategy sorted by descending priority.
type Chain struct {
	strategies []Strategy
}

// NewChain builds the standard Workspace→Document→Lexical chain.
func NewChain() *Chain {
	c := &Chain{strategies: []Strategy{
		&WorkspaceStrategy{},
		&DocumentStrategy{},
		&LexicalStrategy{},
	}}
	return c
}

// Select returns the highest-priority strategy whose AppliesTo(s) is
// true, or nil if none apply. Lexical applies only when there is no
// client, so nil means a client is present but neither Workspace nor
// Document applies to its advertised capabilities.
func (c *Chain) Select(s Situation) Strategy {
	var best Strategy
	for _, strat := range c.strategies {
		if !strat.AppliesTo(s) {
			continue
		}
		if best == nil || strat.Priority() > best.Priority() {
			best = strat
		}
	}
	return best
}
