package indexer

import (
	"sort"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

// BatchUpdate stages one update cycle's changes before they touch the
// live graph, per spec §4.7 step 5: files_to_clear must apply before
// symbols_to_remove, which must apply before symbols_to_add, so a
// re-extracted file's stale symbols are gone before its fresh ones
// land.
type BatchUpdate struct {
	FilesToClear    []string
	SymbolsToRemove []string
	SymbolsToAdd    []graph.Symbol
	EdgesToAdd      []graph.Edge
}

// addChunkSize is the recommended insertion chunk size from §4.7 step 6
// — cache-friendly without holding the graph's write lock for an
// unbounded stretch on a very large batch.
const addChunkSize = 100

// Apply mutates g in exactly the order §4.7 step 6 requires: clear
// files, remove individually-targeted ids, then add new symbols in
// chunks, then add edges (deferred until every symbol in the batch
// exists, so an edge whose endpoint arrives later in the same batch
// still resolves).
func (b *BatchUpdate) Apply(g *graph.CodeGraph) {
	for _, path := range b.FilesToClear {
		g.ClearFile(path)
	}
	for _, id := range b.SymbolsToRemove {
		g.RemoveSymbol(id)
	}

	for start := 0; start < len(b.SymbolsToAdd); start += addChunkSize {
		end := start + addChunkSize
		if end > len(b.SymbolsToAdd) {
			end = len(b.SymbolsToAdd)
		}
		for _, sym := range b.SymbolsToAdd[start:end] {
			g.AddSymbol(sym)
		}
	}

	for _, e := range b.EdgesToAdd {
		g.AddEdge(e)
	}
}

// ClassifyCounts reports the added/updated/deleted counts spec §4.7
// step 9 requires, computed against g's state just before Apply runs:
// an id in SymbolsToAdd that already lives in g is an update, one that
// doesn't is a true add, and an id g is about to lose (via FilesToClear
// or SymbolsToRemove) that isn't replaced by this same batch is a
// delete. Must be called before Apply mutates g.
func (b *BatchUpdate) ClassifyCounts(g *graph.CodeGraph) (added, updated, deleted int) {
	addedIDs := make(map[string]bool, len(b.SymbolsToAdd))
	for _, sym := range b.SymbolsToAdd {
		addedIDs[sym.ID] = true
	}

	for id := range addedIDs {
		if g.FindSymbol(id) != nil {
			updated++
		} else {
			added++
		}
	}

	clearedIDs := make(map[string]bool)
	for _, path := range b.FilesToClear {
		for _, sym := range g.GetSymbolsInFile(path) {
			clearedIDs[sym.ID] = true
		}
	}
	for _, id := range b.SymbolsToRemove {
		clearedIDs[id] = true
	}
	for id := range clearedIDs {
		if !addedIDs[id] {
			deleted++
		}
	}
	return added, updated, deleted
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
