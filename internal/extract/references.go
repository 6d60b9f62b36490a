package extract

import (
	"context"
	"path/filepath"

	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// ResolveReferences issues textDocument/references for every symbol
// res's strategy pass discovered and turns the responses into graph
// edges: a Reference edge from the symbol enclosing each call site back
// to the definition it names, plus a self Definition edge per
// definition so find_definition(id) on a definition resolves to itself.
//
// A reference location falling inside a file res already extracted is
// resolved against res's own symbols; one outside it (a file indexed in
// an earlier cycle, or by a different language group) is resolved via
// externalLookup, which may be nil.
func ResolveReferences(ctx context.Context, client *lspclient.Client, root string, res Result, externalLookup func(filePath string, pos graph.Position) *graph.Symbol) []graph.Edge {
	if client == nil || len(res.Symbols) == 0 {
		return nil
	}

	byFile := make(map[string][]graph.Symbol, len(res.Symbols))
	for _, sym := range res.Symbols {
		byFile[sym.FilePath] = append(byFile[sym.FilePath], sym)
	}

	var edges []graph.Edge
	for _, def := range res.Symbols {
		edges = append(edges, graph.Edge{From: def.ID, To: def.ID, Kind: graph.EdgeDefinition})

		uri := "file://" + filepath.Join(root, def.FilePath)
		pos := lspclient.Position{Line: def.Range.Start.Line, Character: def.Range.Start.Character}
		locs, err := client.References(ctx, uri, pos, false)
		if err != nil {
			continue
		}

		for _, loc := range locs {
			refPath := uriToRelativePath(root, loc.URI)
			refPos := graph.Position{Line: loc.Range.Start.Line, Character: loc.Range.Start.Character}

			referencer := findEnclosing(byFile[refPath], refPos)
			if referencer == nil && externalLookup != nil {
				referencer = externalLookup(refPath, refPos)
			}
			if referencer == nil || referencer.ID == def.ID {
				continue
			}
			edges = append(edges, graph.Edge{From: referencer.ID, To: def.ID, Kind: graph.EdgeReference})
		}
	}
	return edges
}

// findEnclosing picks the smallest-range symbol in syms whose range
// contains pos, mirroring graph.CodeGraph.FindSymbolAt's tie-break so a
// reference pass can resolve call sites before a batch reaches the live
// graph.
func findEnclosing(syms []graph.Symbol, pos graph.Position) *graph.Symbol {
	var best *graph.Symbol
	for i := range syms {
		sym := &syms[i]
		if !sym.Range.Contains(pos) {
			continue
		}
		if best == nil || rangeSmaller(sym.Range, best.Range) ||
			(!rangeSmaller(best.Range, sym.Range) && sym.Range.Start.Before(best.Range.Start)) {
			best = sym
		}
	}
	return best
}

func rangeSmaller(a, b graph.Range) bool {
	al, ac := a.End.Line-a.Start.Line, a.End.Character-a.Start.Character
	bl, bc := b.End.Line-b.Start.Line, b.End.Character-b.Start.Character
	if al != bl {
		return al < bl
	}
	return ac < bc
}
