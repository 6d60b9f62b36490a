package extract

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/lspclient"
)

// LexicalStrategy is the last-resort fallback (§4.6.3) used when
// spawning the language server failed entirely. It recognizes a small
// set of per-language definition keywords on non-comment/non-string
// lines via the adapter's lexical helpers, yielding Definition-only
// symbols: no references, no containment. Degraded and logged as such
// by the caller (internal/indexer).
type LexicalStrategy struct{}

func (s *LexicalStrategy) Name() string  { return "lexical" }
func (s *LexicalStrategy) Priority() int { return 10 }

func (s *LexicalStrategy) AppliesTo(sit Situation) bool {
	return sit.Client == nil
}

func (s *LexicalStrategy) ExtractProject(ctx context.Context, root string, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	return Result{}, errNotSupported("lexical", "ExtractProject")
}

var identifierAfterKeyword = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_]*`)

func (s *LexicalStrategy) ExtractFile(ctx context.Context, req FileRequest, adapter *lang.Adapter, client *lspclient.Client) (Result, error) {
	var pending []pendingSymbol
	scanner := bufio.NewScanner(strings.NewReader(req.Text))
	line := 0
	for scanner.Scan() {
		text := scanner.Text()
		for _, kw := range adapter.DefinitionKeywords() {
			col := indexKeyword(text, kw)
			if col < 0 {
				continue
			}
			if adapter.IsInStringOrComment(text, col) {
				continue
			}
			rest := text[col+len(kw):]
			name := identifierAfterKeyword.FindString(strings.TrimLeft(rest, " \t*&("))
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			pending = append(pending, pendingSymbol{
				filePath:  req.Path,
				line:      line,
				character: col,
				name:      name,
			})
			break // one definition keyword per line is enough for the fallback
		}
		line++
	}

	ids := resolveIDs(pending)
	result := Result{Symbols: make([]graph.Symbol, len(pending))}
	for i, p := range pending {
		result.Symbols[i] = graph.Symbol{
			ID:       ids[i],
			Name:     p.name,
			Kind:     graph.KindVariable,
			FilePath: p.filePath,
			Range: graph.Range{
				Start: graph.Position{Line: p.line, Character: p.character},
				End:   graph.Position{Line: p.line, Character: p.character + len(p.name)},
			},
		}
	}
	return result, nil
}

// indexKeyword returns the column of kw as a whole word in text, or -1.
func indexKeyword(text, kw string) int {
	idx := strings.Index(text, kw)
	for idx >= 0 {
		before := idx == 0 || !isIdentChar(text[idx-1])
		afterPos := idx + len(kw)
		after := afterPos >= len(text) || !isIdentChar(text[afterPos])
		if before && after {
			return idx
		}
		next := strings.Index(text[idx+1:], kw)
		if next < 0 {
			return -1
		}
		idx = idx + 1 + next
	}
	return -1
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
