package extract

import (
	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// kindMap translates LSP SymbolKind codes to the engine's internal
// SymbolKind, explicit and total per spec §4.6.2: any LSP kind this map
// does not cover degrades to KindVariable. Grounded on
// original_source/crates/lsp/src/lsp_indexer.rs's convert_symbol_kind,
// extended with Struct/TypeAlias since this port's SymbolKind is richer
// than the original's. No LSP kind maps to KindTrait.
var kindMap = map[int]graph.SymbolKind{
	lspclient.SymbolKindFunction:      graph.KindFunction,
	lspclient.SymbolKindMethod:        graph.KindMethod,
	lspclient.SymbolKindConstructor:   graph.KindMethod,
	lspclient.SymbolKindClass:         graph.KindClass,
	lspclient.SymbolKindStruct:        graph.KindStruct,
	lspclient.SymbolKindInterface:     graph.KindInterface,
	lspclient.SymbolKindEnum:          graph.KindEnum,
	lspclient.SymbolKindModule:        graph.KindModule,
	lspclient.SymbolKindNamespace:     graph.KindNamespace,
	lspclient.SymbolKindPackage:       graph.KindNamespace,
	lspclient.SymbolKindVariable:      graph.KindVariable,
	lspclient.SymbolKindConstant:      graph.KindConstant,
	lspclient.SymbolKindField:         graph.KindField,
	lspclient.SymbolKindProperty:      graph.KindProperty,
	lspclient.SymbolKindTypeParameter: graph.KindTypeAlias,
}

func mapKind(lspKind int) graph.SymbolKind {
	if k, ok := kindMap[lspKind]; ok {
		return k
	}
	return graph.KindVariable
}

func toGraphRange(r lspclient.Range) graph.Range {
	return graph.Range{
		Start: graph.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   graph.Position{Line: r.End.Line, Character: r.End.Character},
	}
}
