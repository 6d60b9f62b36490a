// Package indexer implements the Differential Indexer (C7): the single
// orchestration point that drives C3 (scan), C4 (language adapters), C5
// (LSP clients), C6 (extraction strategies), and C8 (the worker pool)
// through one update cycle, then applies the result to C1 (the graph)
// and commits it through C2 (the store) — mirroring the control flow
// spec §2 lays out.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/standardbeagle/lci-lsp/internal/config"
	"github.com/standardbeagle/lci-lsp/internal/extract"
	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/ierrors"
	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
	"github.com/standardbeagle/lci-lsp/internal/scan"
	"github.com/standardbeagle/lci-lsp/internal/store"
	"github.com/standardbeagle/lci-lsp/internal/telemetry"
	"github.com/standardbeagle/lci-lsp/internal/workerpool"
)

var log = telemetry.Component("indexer")

// UpdateResult summarizes one completed cycle, per spec §4.7 step 9.
type UpdateResult struct {
	FilesAdded      int
	FilesModified   int
	FilesDeleted    int
	SymbolsAdded    int
	SymbolsUpdated  int
	SymbolsDeleted  int
	Duration        time.Duration
	FullReindex     bool
	DegradedFiles   []string // extracted via the lexical fallback, or skipped this cycle after a recoverable LSP error (those are also in FailedFiles)
	FailedFiles     map[string]string
}

// Indexer owns the live graph, the persisted store, and the registries
// needed to run update cycles. Per §5, the graph is single-writer: only
// this type's goroutine calls graph mutation methods.
type Indexer struct {
	cfg      *config.Config
	store    *store.Store
	graph    *graph.CodeGraph
	metadata store.IndexMetadata
	registry *lang.Registry
	chain    *extract.Chain
	fastCache map[string]scan.FastHashEntry

	predictors map[string]*lspclient.TimeoutPredictor
}

// Open loads (or initializes) the persisted graph and metadata for
// cfg's project, per spec §4.7 step 1.
func Open(ctx context.Context, cfg *config.Config) (*Indexer, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	g, err := st.LoadGraph(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	meta, err := st.LoadMetadata(ctx, cfg.Project.Root)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Indexer{
		cfg:        cfg,
		store:      st,
		graph:      g,
		metadata:   meta,
		registry:   lang.NewRegistry(cfg),
		chain:      extract.NewChain(),
		predictors: make(map[string]*lspclient.TimeoutPredictor),
	}, nil
}

func (idx *Indexer) Close() error {
	return idx.store.Close()
}

// Graph exposes the live graph for read-only queries (search, stats).
func (idx *Indexer) Graph() *graph.CodeGraph { return idx.graph }

// ReplaceGraph swaps in g as the current graph and persists it, used by
// the import-lsif command to load a graph built outside of a normal scan
// cycle. File hashes are left untouched, so the next differential run
// still re-derives its diff from disk content rather than trusting the
// imported graph's completeness.
func (idx *Indexer) ReplaceGraph(ctx context.Context, g *graph.CodeGraph) error {
	idx.graph = g
	idx.metadata.SymbolCount = g.SymbolCount()
	if err := idx.store.SaveGraph(ctx, idx.graph); err != nil {
		return err
	}
	return idx.store.SaveMetadata(ctx, idx.metadata)
}

func (idx *Indexer) predictorFor(language string) *lspclient.TimeoutPredictor {
	if p, ok := idx.predictors[language]; ok {
		return p
	}
	min := time.Duration(idx.cfg.Performance.MinRequestTimeoutMs) * time.Millisecond
	max := time.Duration(idx.cfg.Performance.MaxRequestTimeoutMs) * time.Millisecond
	p := lspclient.NewTimeoutPredictor(min, max)
	idx.predictors[language] = p
	return p
}

func (idx *Indexer) workerWidth() int {
	if idx.cfg.Performance.ParallelFileWorkers > 0 {
		return workerpool.Width(idx.cfg.Performance.ParallelFileWorkers)
	}
	return workerpool.Width(runtime.NumCPU())
}

// FullReindex treats every present file as added and prefers the
// Workspace strategy, per spec §4.7's full_reindex mode.
func (idx *Indexer) FullReindex(ctx context.Context) (UpdateResult, error) {
	return idx.runCycle(ctx, true)
}

// Incremental runs scanner-detected deltas only, per spec §4.7's
// incremental mode.
func (idx *Indexer) Incremental(ctx context.Context) (UpdateResult, error) {
	return idx.runCycle(ctx, false)
}

func (idx *Indexer) runCycle(ctx context.Context, fullReindex bool) (UpdateResult, error) {
	start := time.Now()
	result := UpdateResult{FullReindex: fullReindex, FailedFiles: make(map[string]string)}

	scanner, err := scan.NewScanner(idx.cfg.Project.Root, idx.cfg)
	if err != nil {
		return result, err
	}

	previousHashes := idx.metadata.FileHashes
	if fullReindex {
		previousHashes = map[string]string{}
		idx.graph = graph.NewCodeGraph()
	}
	diff, newCommit, err := scanner.ScanWithVCSFastPath(ctx, previousHashes, idx.fastCache, idx.metadata.VCSCommit)
	if err != nil {
		return result, err
	}
	idx.fastCache = diff.FastCache

	result.FilesAdded = len(diff.Added)
	result.FilesModified = len(diff.Modified)
	result.FilesDeleted = len(diff.Deleted)

	changed := append(append([]string{}, diff.Added...), diff.Modified...)
	groups := idx.groupByLanguage(changed)

	batch := &BatchUpdate{}
	for _, path := range diff.Deleted {
		batch.FilesToClear = append(batch.FilesToClear, path)
	}
	languagesSeen := make(map[string]bool, len(groups))
	for language := range groups {
		languagesSeen[language] = true
	}
	for _, language := range sortedKeys(languagesSeen) {
		files := groups[language]
		adapter := idx.registry.ForExtension(filepath.Ext(files[0]))
		if adapter == nil {
			continue
		}
		res, degraded, failed := idx.extractLanguageGroup(ctx, language, adapter, files, fullReindex)
		batch.SymbolsToAdd = append(batch.SymbolsToAdd, res.Symbols...)
		batch.EdgesToAdd = append(batch.EdgesToAdd, res.Edges...)
		result.DegradedFiles = append(result.DegradedFiles, degraded...)
		for path, errMsg := range failed {
			result.FailedFiles[path] = errMsg
		}
	}
	for _, path := range diff.Modified {
		if _, failedThisCycle := result.FailedFiles[path]; failedThisCycle {
			continue // a file whose extraction failed keeps its previous symbols
		}
		batch.FilesToClear = append(batch.FilesToClear, path)
	}

	result.SymbolsAdded, result.SymbolsUpdated, result.SymbolsDeleted = batch.ClassifyCounts(idx.graph)
	batch.Apply(idx.graph)

	idx.metadata.FileHashes = diff.Hashes
	idx.metadata.FileCount = len(diff.Hashes)
	idx.metadata.SymbolCount = idx.graph.SymbolCount()
	idx.metadata.VCSCommit = newCommit

	if err := idx.store.SaveGraph(ctx, idx.graph); err != nil {
		return result, err
	}
	if err := idx.store.SaveMetadata(ctx, idx.metadata); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (idx *Indexer) groupByLanguage(paths []string) map[string][]string {
	groups := make(map[string][]string)
	for _, path := range paths {
		adapter := idx.registry.ForFile(path)
		if adapter == nil {
			continue
		}
		groups[adapter.LanguageID()] = append(groups[adapter.LanguageID()], path)
	}
	return groups
}

// extractLanguageGroup starts one LSP client for one language and
// extracts every file in files, using the Workspace strategy for a full
// reindex when the server advertises it, otherwise the Document
// strategy per file through the worker pool, falling back to Lexical
// extraction for every file when the client never came up.
func (idx *Indexer) extractLanguageGroup(ctx context.Context, language string, adapter *lang.Adapter, files []string, fullReindex bool) (extract.Result, []string, map[string]string) {
	failed := make(map[string]string)
	rootURI := "file://" + idx.cfg.Project.Root

	client, err := lspclient.Start(ctx, adapter, rootURI, idx.predictorFor(language))
	if err != nil {
		log.Warn("lsp server unavailable, using lexical fallback", "language", language, "error", err)
		return idx.extractLexical(ctx, adapter, files), files, failed
	}
	defer client.Shutdown(ctx)

	sit := extract.Situation{Language: language, Client: client, Capabilities: client.Capabilities(), FullReindex: fullReindex}
	strategy := idx.chain.Select(sit)

	switch {
	case strategy == nil:
		log.Warn("no applicable strategy for server capabilities, using lexical fallback", "language", language)
		return idx.extractLexical(ctx, adapter, files), files, failed
	case strategy.Name() == "workspace":
		res, err := strategy.ExtractProject(ctx, idx.cfg.Project.Root, adapter, client)
		if err == nil {
			res.Edges = append(res.Edges, idx.resolveReferences(ctx, client, res)...)
			return res, nil, failed
		}
		log.Warn("workspace strategy failed, falling back to document", "language", language, "error", err)
	}

	return idx.extractPerFile(ctx, adapter, client, files, failed)
}

// resolveReferences issues a references pass over res's definitions,
// per spec §4.1's find_references/find_definition contract. A call site
// outside res's own file set (e.g. indexed in a previous cycle) is
// resolved against the live graph instead.
func (idx *Indexer) resolveReferences(ctx context.Context, client *lspclient.Client, res extract.Result) []graph.Edge {
	return extract.ResolveReferences(ctx, client, idx.cfg.Project.Root, res, func(filePath string, pos graph.Position) *graph.Symbol {
		return idx.graph.FindSymbolAt(filePath, pos)
	})
}

func (idx *Indexer) extractPerFile(ctx context.Context, adapter *lang.Adapter, client *lspclient.Client, files []string, failed map[string]string) (extract.Result, []string, map[string]string) {
	docStrategy := &extract.DocumentStrategy{}

	units := make([]workerpool.Unit, len(files))
	for i, path := range files {
		path := path
		units[i] = workerpool.Unit{Path: path, Run: func(ctx context.Context) (interface{}, error) {
			req, err := idx.buildFileRequest(path)
			if err != nil {
				return nil, err
			}
			return docStrategy.ExtractFile(ctx, req, adapter, client)
		}}
	}

	fileResults := workerpool.Run(ctx, units, idx.workerWidth(), nil)

	var combined extract.Result
	var degraded []string
	for _, fr := range fileResults {
		if fr.Err != nil {
			failed[fr.Path] = fr.Err.Error()
			if ierrors.Recoverable(fr.Err) {
				degraded = append(degraded, fr.Path)
			}
			continue
		}
		res, ok := fr.Value.(extract.Result)
		if !ok {
			continue
		}
		combined.Symbols = append(combined.Symbols, res.Symbols...)
		combined.Edges = append(combined.Edges, res.Edges...)
	}
	combined.Edges = append(combined.Edges, idx.resolveReferences(ctx, client, combined)...)
	return combined, degraded, failed
}

func (idx *Indexer) extractLexical(ctx context.Context, adapter *lang.Adapter, files []string) extract.Result {
	strat := &extract.LexicalStrategy{}
	var combined extract.Result
	for _, path := range files {
		req, err := idx.buildFileRequest(path)
		if err != nil {
			continue
		}
		res, err := strat.ExtractFile(ctx, req, adapter, nil)
		if err != nil {
			log.Warn("lexical fallback failed", "path", path, "error", err)
			continue
		}
		combined.Symbols = append(combined.Symbols, res.Symbols...)
	}
	return combined
}

func (idx *Indexer) buildFileRequest(path string) (extract.FileRequest, error) {
	full := filepath.Join(idx.cfg.Project.Root, path)
	text, lineCount, size, err := readFileForExtraction(full)
	if err != nil {
		return extract.FileRequest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return extract.FileRequest{
		Path:      path,
		URI:       "file://" + full,
		Text:      text,
		FileSize:  size,
		LineCount: lineCount,
	}, nil
}
