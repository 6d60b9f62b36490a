package extract

import "github.com/standardbeagle/lci-lsp/internal/graph"

// pendingSymbol is one not-yet-ided symbol discovered while flattening a
// file's document-symbol tree (or the lexical fallback's output). Ids
// are assigned only after every symbol in the file is known, so that a
// same-line collision can be detected and resolved consistently
// regardless of tree-walk order.
type pendingSymbol struct {
	filePath  string
	line      int
	character int
	name      string
}

// resolveIDs assigns ids for a file's symbols per §3/§7's disambiguation
// rule: the default form is "{file}#{line}:{name}"; every symbol whose
// default id collides with another's (two symbols on the same line with
// the same name — e.g. overloaded methods) escalates to
// "{file}#{line}:{character}:{name}" instead, so the rule is stable
// across runs (P5) independent of discovery order.
func resolveIDs(pending []pendingSymbol) []string {
	groups := make(map[string][]int, len(pending))
	for i, p := range pending {
		defaultID := graph.BuildID(p.filePath, p.line, p.name)
		groups[defaultID] = append(groups[defaultID], i)
	}

	ids := make([]string, len(pending))
	for defaultID, idxs := range groups {
		if len(idxs) == 1 {
			ids[idxs[0]] = defaultID
			continue
		}
		for _, i := range idxs {
			p := pending[i]
			ids[i] = graph.BuildDisambiguatedID(p.filePath, p.line, p.character, p.name)
		}
	}
	return ids
}
