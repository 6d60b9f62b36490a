package graph

// CallHierarchy answers "who calls this" / "what does this call"
// purely from CallsInto edges already present in the graph — no
// additional LSP round trips. This is a supplemented feature: the
// original implementation builds the same thing from its own graph
// (call_hierarchy.rs); nothing in spec.md excludes it, and the
// CallsInto edge kind it relies on is already part of §4.1's data
// model.

// CallersOf returns symbols with an outgoing CallsInto edge into id —
// i.e. everything that calls the symbol at id.
func (g *CodeGraph) CallersOf(id string) []Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Symbol
	for _, e := range g.incoming[id] {
		if e.Kind != EdgeCallsInto {
			continue
		}
		if sym, ok := g.byID[e.From]; ok {
			out = append(out, *sym)
		}
	}
	sortByPosition(out)
	return out
}

// CalleesOf returns symbols reachable via an outgoing CallsInto edge
// from id — i.e. everything the symbol at id calls.
func (g *CodeGraph) CalleesOf(id string) []Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Symbol
	for _, e := range g.outgoing[id] {
		if e.Kind != EdgeCallsInto {
			continue
		}
		if sym, ok := g.byID[e.To]; ok {
			out = append(out, *sym)
		}
	}
	sortByPosition(out)
	return out
}
