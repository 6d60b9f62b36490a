package extract

import (
	"context"
	"fmt"

	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// DocumentStrategy issues textDocument/documentSymbol per changed file
// and flattens the (possibly hierarchical) result depth-first, per spec
// §4.6.2. Parent-child nesting becomes a Containment edge.
type DocumentStrategy struct{}

func (s *DocumentStrategy) Name() string  { return "document" }
func (s *DocumentStrategy) Priority() int { return 70 }

func (s *DocumentStrategy) AppliesTo(sit Situation) bool {
	return sit.Client != nil && sit.Capabilities.DocumentSymbolProvider
}

func (s *DocumentStrategy) ExtractProject(ctx context.Context, root string, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	return Result{}, errNotSupported("document", "ExtractProject")
}

func (s *DocumentStrategy) ExtractFile(ctx context.Context, req FileRequest, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	hierarchical, flat, err := client.DocumentSymbols(ctx, req.URI, req.FileSize, req.LineCount)
	if err != nil {
		return Result{}, err
	}

	if len(hierarchical) > 0 {
		return flattenHierarchical(req.Path, hierarchical), nil
	}
	return flattenFlat(req.Path, flat), nil
}

func flattenHierarchical(filePath string, roots []lspclient.DocumentSymbol) Result {
	var pending []pendingSymbol
	var kinds []graph.SymbolKind
	var ranges []graph.Range
	var details []string
	var parentOf []int // index into pending, or -1 for root

	var walk func(sym lspclient.DocumentSymbol, parent int)
	walk = func(sym lspclient.DocumentSymbol, parent int) {
		idx := len(pending)
		pending = append(pending, pendingSymbol{
			filePath:  filePath,
			line:      sym.Range.Start.Line,
			character: sym.Range.Start.Character,
			name:      sym.Name,
		})
		kinds = append(kinds, mapKind(sym.Kind))
		ranges = append(ranges, toGraphRange(sym.Range))
		details = append(details, sym.Detail)
		parentOf = append(parentOf, parent)

		for _, child := range sym.Children {
			walk(child, idx)
		}
	}
	for _, root := range roots {
		walk(root, -1)
	}

	ids := resolveIDs(pending)

	result := Result{Symbols: make([]graph.Symbol, len(pending))}
	for i, p := range pending {
		result.Symbols[i] = graph.Symbol{
			ID:       ids[i],
			Name:     p.name,
			Kind:     kinds[i],
			FilePath: p.filePath,
			Range:    ranges[i],
			Detail:   details[i],
		}
	}
	for i, parent := range parentOf {
		if parent < 0 {
			continue
		}
		result.Edges = append(result.Edges, graph.Edge{From: ids[parent], To: ids[i], Kind: graph.EdgeContainment})
	}
	return result
}

func flattenFlat(filePath string, syms []lspclient.SymbolInformation) Result {
	pending := make([]pendingSymbol, len(syms))
	for i, sym := range syms {
		pending[i] = pendingSymbol{
			filePath:  filePath,
			line:      sym.Location.Range.Start.Line,
			character: sym.Location.Range.Start.Character,
			name:      sym.Name,
		}
	}
	ids := resolveIDs(pending)

	result := Result{Symbols: make([]graph.Symbol, len(syms))}
	for i, sym := range syms {
		result.Symbols[i] = graph.Symbol{
			ID:       ids[i],
			Name:     sym.Name,
			Kind:     mapKind(sym.Kind),
			FilePath: filePath,
			Range:    toGraphRange(sym.Location.Range),
		}
	}
	// SymbolInformation carries no hierarchy, so no Containment edges
	// are inferable here; flat servers simply produce a flat symbol set.
	return result
}

func errNotSupported(strategy, op string) error {
	return fmt.Errorf("%s strategy does not support %s", strategy, op)
}
