package extract

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// WorkspaceStrategy issues one or more workspace/symbol queries and
// materializes a fresh graph for the whole project in a single RPC
// round trip, the preferred path for a full re-index per spec §4.6.1.
type WorkspaceStrategy struct {
	// Queries is the curated query set issued after the empty query, for
	// servers that do not treat an empty query as "all symbols". Most
	// gopls-class servers do honor "", so this is only a supplement;
	// duplicate results across queries are dropped.
	Queries []string
}

func (s *WorkspaceStrategy) Name() string  { return "workspace" }
func (s *WorkspaceStrategy) Priority() int { return 90 }

func (s *WorkspaceStrategy) AppliesTo(sit Situation) bool {
	return sit.FullReindex && sit.Client != nil && sit.Capabilities.WorkspaceSymbolProvider
}

func (s *WorkspaceStrategy) ExtractProject(ctx context.Context, root string, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	queries := append([]string{""}, s.Queries...)

	seen := make(map[string]bool)
	var all []lspclient.SymbolInformation
	for _, q := range queries {
		syms, err := client.WorkspaceSymbol(ctx, q)
		if err != nil {
			return Result{}, err
		}
		for _, sym := range syms {
			key := sym.Location.URI + "#" + sym.Name + "#" + strconv.Itoa(sym.Location.Range.Start.Line)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, sym)
		}
	}

	return groupByFileAndFlatten(root, all), nil
}

func (s *WorkspaceStrategy) ExtractFile(ctx context.Context, req FileRequest, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	return Result{}, errNotSupported("workspace", "ExtractFile")
}

// groupByFileAndFlatten converts a flat cross-project SymbolInformation
// list into a Result, resolving id collisions per-file (a same-line
// collision in one file must not affect ids in another).
func groupByFileAndFlatten(root string, syms []lspclient.SymbolInformation) Result {
	byFile := make(map[string][]lspclient.SymbolInformation)
	order := make([]string, 0)
	for _, sym := range syms {
		path := uriToRelativePath(root, sym.Location.URI)
		if _, ok := byFile[path]; !ok {
			order = append(order, path)
		}
		byFile[path] = append(byFile[path], sym)
	}

	var result Result
	for _, path := range order {
		r := flattenFlat(path, byFile[path])
		result.Symbols = append(result.Symbols, r.Symbols...)
		result.Edges = append(result.Edges, r.Edges...)
	}
	return result
}

func uriToRelativePath(root, uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	path := u.Path
	rel := strings.TrimPrefix(path, strings.TrimSuffix(root, "/"))
	return strings.TrimPrefix(rel, "/")
}

