// Package lsifconv is the mechanical transform between a CodeGraph and
// the Language Server Index Format: line-delimited JSON vertices and
// edges, one per line. Grounded on original_source's lsif_export/
// lsif_restore binaries and the generate_lsif/parse_lsif round trip
// they call — this package is deliberately thin, not a general LSIF
// toolkit: it emits just enough of the format (metaData, project,
// document, range vertices; contains edges) to carry a CodeGraph
// through export and back losslessly, stashing symbol identity, kind,
// and documentation as extra fields on the range vertex rather than
// modeling the full moniker/hover-result vertex chain a complete LSIF
// producer would.
package lsifconv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

const lsifVersion = "0.5.0"

// element is the shape shared by every LSIF line: a numeric-as-string
// id, "vertex" or "edge", and a label naming the concrete kind. Import
// decodes this first to dispatch on Label, then re-decodes the line
// into the concrete type.
type element struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type metaDataVertex struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Version  string   `json:"version"`
	ToolInfo toolInfo `json:"toolInfo"`
}

type toolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type projectVertex struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type documentVertex struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Label      string `json:"label"`
	URI        string `json:"uri"`
	LanguageID string `json:"languageId,omitempty"`
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// rangeVertex carries the symbol it was minted from, beyond what a
// strict LSIF range vertex would hold, so Import can reconstruct the
// graph without a side channel.
type rangeVertex struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Label         string   `json:"label"`
	Start         position `json:"start"`
	End           position `json:"end"`
	SymbolID      string   `json:"symbolId"`
	SymbolName    string   `json:"symbolName"`
	SymbolKind    string   `json:"symbolKind"`
	SymbolFile    string   `json:"symbolFile"`
	Detail        string   `json:"detail,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
}

type containsEdge struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	OutV  string `json:"outV"`
	InV   string `json:"inV"`
}

// lciEdge carries one graph.Edge between two symbol ranges. Not part of
// the LSIF vocabulary proper (LSIF has no generic "calls into" edge),
// but kept in the same line-delimited-JSON shape so a non-lci consumer
// can still skip it by label.
type lciEdge struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	OutV  string `json:"outV"`
	InV   string `json:"inV"`
}

var symbolKindNames = map[graph.SymbolKind]string{
	graph.KindFunction:  "function",
	graph.KindMethod:    "method",
	graph.KindClass:     "class",
	graph.KindStruct:    "struct",
	graph.KindInterface: "interface",
	graph.KindTrait:     "trait",
	graph.KindEnum:      "enum",
	graph.KindModule:    "module",
	graph.KindNamespace: "namespace",
	graph.KindVariable:  "variable",
	graph.KindConstant:  "constant",
	graph.KindField:     "field",
	graph.KindProperty:  "property",
	graph.KindTypeAlias: "type_alias",
}

var symbolKindByName = func() map[string]graph.SymbolKind {
	m := make(map[string]graph.SymbolKind, len(symbolKindNames))
	for k, v := range symbolKindNames {
		m[v] = k
	}
	return m
}()

var edgeKindNames = map[graph.EdgeKind]string{
	graph.EdgeDefinition:  "definition",
	graph.EdgeReference:   "reference",
	graph.EdgeContainment: "containment",
	graph.EdgeImplements:  "implements",
	graph.EdgeExtends:     "extends",
	graph.EdgeCallsInto:   "calls_into",
}

var edgeKindByName = func() map[string]graph.EdgeKind {
	m := make(map[string]graph.EdgeKind, len(edgeKindNames))
	for k, v := range edgeKindNames {
		m[v] = k
	}
	return m
}()

type idSeq struct{ next int }

func (s *idSeq) take() string {
	s.next++
	return fmt.Sprintf("%d", s.next)
}

// Export walks g and writes it to w as line-delimited LSIF JSON: one
// metaData vertex, one project vertex, one document vertex per distinct
// file (each linked from the project via a contains edge), one range
// vertex per symbol (linked from its document via a contains edge), and
// one lciEdge line per graph.Edge.
func Export(g *graph.CodeGraph, w io.Writer) error {
	enc := json.NewEncoder(w)
	ids := &idSeq{}

	metaID := ids.take()
	if err := enc.Encode(metaDataVertex{
		ID: metaID, Type: "vertex", Label: "metaData",
		Version:  lsifVersion,
		ToolInfo: toolInfo{Name: "lci-lsp", Version: lsifVersion},
	}); err != nil {
		return err
	}

	projectID := ids.take()
	if err := enc.Encode(projectVertex{ID: projectID, Type: "vertex", Label: "project", Kind: "multi"}); err != nil {
		return err
	}

	symbols := g.GetAllSymbols()

	documentIDs := make(map[string]string)
	rangeIDs := make(map[string]string) // symbol id -> range vertex id

	filesInOrder := []string{}
	for _, sym := range symbols {
		if _, ok := documentIDs[sym.FilePath]; !ok {
			documentIDs[sym.FilePath] = ""
			filesInOrder = append(filesInOrder, sym.FilePath)
		}
	}
	for _, file := range filesInOrder {
		docID := ids.take()
		documentIDs[file] = docID
		if err := enc.Encode(documentVertex{ID: docID, Type: "vertex", Label: "document", URI: "file://" + file}); err != nil {
			return err
		}
		if err := enc.Encode(containsEdge{ID: ids.take(), Type: "edge", Label: "contains", OutV: projectID, InV: docID}); err != nil {
			return err
		}
	}

	for _, sym := range symbols {
		rID := ids.take()
		rangeIDs[sym.ID] = rID
		kindName := symbolKindNames[sym.Kind]
		if err := enc.Encode(rangeVertex{
			ID: rID, Type: "vertex", Label: "range",
			Start:         position{Line: sym.Range.Start.Line, Character: sym.Range.Start.Character},
			End:           position{Line: sym.Range.End.Line, Character: sym.Range.End.Character},
			SymbolID:      sym.ID,
			SymbolName:    sym.Name,
			SymbolKind:    kindName,
			SymbolFile:    sym.FilePath,
			Detail:        sym.Detail,
			Documentation: sym.Documentation,
		}); err != nil {
			return err
		}
		if err := enc.Encode(containsEdge{ID: ids.take(), Type: "edge", Label: "contains", OutV: documentIDs[sym.FilePath], InV: rID}); err != nil {
			return err
		}
	}

	for _, sym := range symbols {
		for _, e := range g.OutgoingEdges(sym.ID) {
			fromRange, okFrom := rangeIDs[e.From]
			toRange, okTo := rangeIDs[e.To]
			if !okFrom || !okTo {
				continue
			}
			if err := enc.Encode(lciEdge{
				ID: ids.take(), Type: "edge", Label: "lciEdge",
				Kind: edgeKindNames[e.Kind], OutV: fromRange, InV: toRange,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// Import reads line-delimited LSIF JSON produced by Export (or any
// producer following the same range-vertex-carries-symbol convention)
// and rebuilds a CodeGraph.
func Import(r io.Reader) (*graph.CodeGraph, error) {
	g := graph.NewCodeGraph()

	symbolIDByRangeID := make(map[string]string)

	var pendingEdges []lciEdge

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var head element
		if err := json.Unmarshal([]byte(line), &head); err != nil {
			return nil, fmt.Errorf("lsifconv: invalid element: %w", err)
		}

		switch head.Label {
		case "range":
			var v rangeVertex
			if err := json.Unmarshal([]byte(line), &v); err != nil {
				return nil, err
			}
			symbolIDByRangeID[v.ID] = v.SymbolID
			kind, ok := symbolKindByName[v.SymbolKind]
			if !ok {
				kind = graph.KindVariable
			}
			g.AddSymbol(graph.Symbol{
				ID:       v.SymbolID,
				Name:     v.SymbolName,
				Kind:     kind,
				FilePath: v.SymbolFile,
				Range: graph.Range{
					Start: graph.Position{Line: v.Start.Line, Character: v.Start.Character},
					End:   graph.Position{Line: v.End.Line, Character: v.End.Character},
				},
				Detail:        v.Detail,
				Documentation: v.Documentation,
			})
		case "lciEdge":
			var e lciEdge
			if err := json.Unmarshal([]byte(line), &e); err != nil {
				return nil, err
			}
			pendingEdges = append(pendingEdges, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, e := range pendingEdges {
		fromID, ok := symbolIDByRangeID[e.OutV]
		if !ok {
			continue
		}
		toID, ok := symbolIDByRangeID[e.InV]
		if !ok {
			continue
		}
		kind, ok := edgeKindByName[e.Kind]
		if !ok {
			continue
		}
		g.AddEdge(graph.Edge{From: fromID, To: toID, Kind: kind})
	}

	return g, nil
}
