// Package lang implements the Language Adapter (C4): spawning the right
// LSP server child process for a file's language, plus the purely
// lexical helpers used only by the degraded fallback extraction
// strategy (§4.6.3) when no LSP server is available. The adapter set
// is a closed, compiled-in table — no plugin loading — grounded on
// original_source's AdapterRegistry (crates/engine/src/adapters/mod.rs),
// which detects language by extension alone, never by shebang.
package lang

import (
	"os/exec"
	"strings"

	"github.com/standardbeagle/lci-lsp/internal/config"
)

// Adapter is everything the rest of the engine needs to know about one
// language: how to recognize its files, how to start its LSP server,
// and how to approximate extraction when that server is unavailable.
type Adapter struct {
	id             string
	extensions     []string
	command        string
	args           []string
	lineComment    string
	blockCommentOn string
	blockCommentOff string
	defKeywords    []string
}

func (a *Adapter) LanguageID() string            { return a.id }
func (a *Adapter) SupportedExtensions() []string { return a.extensions }

// SpawnLSPCommand returns an unstarted *exec.Cmd for the language
// server. Callers (internal/lspclient) set up piped stdio and Start it.
func (a *Adapter) SpawnLSPCommand() *exec.Cmd {
	return exec.Command(a.command, a.args...)
}

// DefinitionKeywords lists the tokens the lexical fallback looks for
// immediately before a symbol name to guess it is a definition site
// rather than a use site (e.g. "func", "class", "def").
func (a *Adapter) DefinitionKeywords() []string {
	return a.defKeywords
}

// IsInStringOrComment is a line-local heuristic (no AST, no multi-line
// state) used only by the lexical fallback to avoid treating occurrences
// inside comments/strings as references. It errs toward false negatives
// (missing a reference) over false positives, since the fallback path
// already accepts lower recall per spec §4.6.3.
func (a *Adapter) IsInStringOrComment(line string, col int) bool {
	if col < 0 || col > len(line) {
		col = len(line)
	}
	prefix := line[:col]

	if a.lineComment != "" {
		if idx := strings.Index(prefix, a.lineComment); idx >= 0 {
			return true
		}
	}
	if a.blockCommentOn != "" {
		if idx := strings.LastIndex(prefix, a.blockCommentOn); idx >= 0 {
			if !strings.Contains(prefix[idx:], a.blockCommentOff) {
				return true
			}
		}
	}

	quoteCount := strings.Count(prefix, `"`) + strings.Count(prefix, "'")
	return quoteCount%2 == 1
}

// BuildReferencePattern returns a word-boundary literal match pattern
// for name, the simplest reference heuristic the fallback strategy uses
// when no language server can resolve actual references.
func (a *Adapter) BuildReferencePattern(name string) string {
	return `\b` + regexpQuoteMeta(name) + `\b`
}

func regexpQuoteMeta(s string) string {
	special := `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Registry maps file extensions to their Adapter.
type Registry struct {
	byExt map[string]*Adapter
	all   []*Adapter
}

// NewRegistry builds the closed, compiled-in adapter set, applying any
// per-language command overrides from cfg.Languages (§6's config-file
// contract for pinning a specific server binary).
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{byExt: make(map[string]*Adapter)}
	for _, a := range defaultAdapters() {
		if override, ok := cfg.Languages[a.id]; ok {
			if override.Command != "" {
				a.command = override.Command
			}
			if len(override.Args) > 0 {
				a.args = override.Args
			}
		}
		r.all = append(r.all, a)
		for _, ext := range a.extensions {
			r.byExt[ext] = a
		}
	}
	return r
}

// ForExtension returns the adapter registered for ext (including the
// leading dot, e.g. ".go"), or nil if unrecognized.
func (r *Registry) ForExtension(ext string) *Adapter {
	return r.byExt[ext]
}

// ForFile resolves an adapter from a file path's final extension.
func (r *Registry) ForFile(path string) *Adapter {
	ext := extensionOf(path)
	return r.byExt[ext]
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[idx:]
}

// All returns every registered adapter, for capability-advertisement or
// diagnostics.
func (r *Registry) All() []*Adapter { return r.all }

func defaultAdapters() []*Adapter {
	return []*Adapter{
		{
			id:          "go",
			extensions:  []string{".go"},
			command:     "gopls",
			args:        []string{"serve"},
			lineComment: "//", blockCommentOn: "/*", blockCommentOff: "*/",
			defKeywords: []string{"func", "type", "const", "var"},
		},
		{
			id:          "typescript",
			extensions:  []string{".ts", ".tsx"},
			command:     "typescript-language-server",
			args:        []string{"--stdio"},
			lineComment: "//", blockCommentOn: "/*", blockCommentOff: "*/",
			defKeywords: []string{"function", "class", "interface", "const", "let", "type"},
		},
		{
			id:          "javascript",
			extensions:  []string{".js", ".jsx"},
			command:     "typescript-language-server",
			args:        []string{"--stdio"},
			lineComment: "//", blockCommentOn: "/*", blockCommentOff: "*/",
			defKeywords: []string{"function", "class", "const", "let"},
		},
		{
			id:          "python",
			extensions:  []string{".py"},
			command:     "pylsp",
			args:        nil,
			lineComment: "#",
			defKeywords: []string{"def", "class"},
		},
		{
			id:          "rust",
			extensions:  []string{".rs"},
			command:     "rust-analyzer",
			args:        nil,
			lineComment: "//", blockCommentOn: "/*", blockCommentOff: "*/",
			defKeywords: []string{"fn", "struct", "enum", "trait", "impl", "mod", "const", "static"},
		},
	}
}
