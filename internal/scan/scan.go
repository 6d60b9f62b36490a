// Package scan implements the File Scanner & Hasher (C3): enumerate a
// project's files honoring include/exclude globs and .gitignore,
// content-hash each one, and diff the result against a persisted
// file_hashes map to produce added/modified/deleted sets.
//
// Hashing is two-tiered, mirroring the teacher's FastHash pre-check
// pattern: an xxhash digest is used to cheaply confirm "this file's
// bytes didn't actually change" when only its mtime moved (e.g. a
// touch, or a checkout that doesn't alter content), avoiding a full
// cryptographic re-hash. The digest actually persisted in file_hashes
// and used for change detection is the 256-bit sha256 sum named in
// spec §4.3 — xxhash never substitutes for it, it only decides whether
// recomputing it is necessary.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lci-lsp/internal/config"
	"github.com/standardbeagle/lci-lsp/internal/ierrors"
	"github.com/standardbeagle/lci-lsp/internal/telemetry"
	"github.com/standardbeagle/lci-lsp/internal/vcs"
)

var log = telemetry.Component("scan")

// Scanner enumerates and hashes a project's files per cfg's
// include/exclude/size rules.
type Scanner struct {
	root      string
	cfg       *config.Config
	gitignore *config.GitignoreParser
}

func NewScanner(root string, cfg *config.Config) (*Scanner, error) {
	s := &Scanner{root: root, cfg: cfg}
	if cfg.Index.RespectGitignore {
		parser := config.NewGitignoreParser()
		if err := parser.LoadGitignore(root); err != nil {
			return nil, ierrors.NewConfigError("load gitignore", err)
		}
		s.gitignore = parser
	}
	return s, nil
}

// FastHashEntry is the per-file record the scanner uses to skip a full
// sha256 recompute across runs. Callers (internal/indexer) keep this map
// in memory between cycles; it is not persisted, so a new process
// re-hashes everything on its first scan, which is always safe.
type FastHashEntry struct {
	Size     int64
	ModTime  int64
	FastHash uint64
	Digest   string
}

// Diff is the result of comparing the current file set against a
// previously persisted file_hashes map.
type Diff struct {
	Added     []string
	Modified  []string
	Deleted   []string
	Hashes    map[string]string // path -> sha256 digest, for every currently present file
	FastCache map[string]FastHashEntry
}

// Scan walks the project root, honoring exclusions, and returns the
// content hash of every included file along with the added/modified/
// deleted sets relative to previousHashes. fastCache may be nil.
func (s *Scanner) Scan(ctx context.Context, previousHashes map[string]string, fastCache map[string]FastHashEntry) (Diff, error) {
	current := make(map[string]string)
	nextCache := make(map[string]FastHashEntry, len(fastCache))

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.excluded(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Warn("stat failed during scan", "path", rel, "error", err)
			return nil
		}
		if info.Size() > s.cfg.Index.MaxFileSize {
			return nil
		}

		digest, entry, err := s.digestFile(path, info, fastCache[rel])
		if err != nil {
			log.Warn("hash failed, skipping file", "path", rel, "error", err)
			return nil
		}
		current[rel] = digest
		nextCache[rel] = entry
		return nil
	})
	if err != nil {
		return Diff{}, ierrors.NewConfigError("scan project root", err)
	}

	diff := diffHashes(previousHashes, current)
	diff.FastCache = nextCache
	return diff, nil
}

// digestFile returns the sha256 digest for path, reusing prior's cached
// digest when either (a) size and mtime are unchanged, or (b) mtime
// moved but the xxhash fast hash shows the bytes didn't.
func (s *Scanner) digestFile(path string, info fs.FileInfo, prior FastHashEntry) (string, FastHashEntry, error) {
	size := info.Size()
	mtime := info.ModTime().UnixNano()

	if prior.Digest != "" && prior.Size == size && prior.ModTime == mtime {
		return prior.Digest, prior, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", FastHashEntry{}, err
	}

	fastHash := xxhash.Sum64(data)
	if prior.Digest != "" && prior.Size == size && prior.FastHash == fastHash {
		entry := FastHashEntry{Size: size, ModTime: mtime, FastHash: fastHash, Digest: prior.Digest}
		return prior.Digest, entry, nil
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	entry := FastHashEntry{Size: size, ModTime: mtime, FastHash: fastHash, Digest: digest}
	return digest, entry, nil
}

// ScanWithVCSFastPath narrows the full scan using vcs.Provider when the
// project is a git repository and prevCommit is non-empty, falling back
// to a full Scan on any VCS error. Per spec §4.3, deletions are always
// verified against previousHashes directly — the fast path may narrow
// the candidate set for hashing but must never cause a deletion to be
// missed.
func (s *Scanner) ScanWithVCSFastPath(ctx context.Context, previousHashes map[string]string, fastCache map[string]FastHashEntry, prevCommit string) (Diff, string, error) {
	if !s.cfg.Index.UseVCSFastPath || prevCommit == "" {
		diff, err := s.Scan(ctx, previousHashes, fastCache)
		return diff, prevCommit, err
	}

	provider, err := vcs.NewProvider(s.root)
	if err != nil || !provider.IsRepo() {
		log.Debug("vcs fast path unavailable, falling back to full scan", "error", err)
		diff, err := s.Scan(ctx, previousHashes, fastCache)
		return diff, prevCommit, err
	}

	head, err := provider.HeadCommit(ctx)
	if err != nil {
		log.Warn("vcs head lookup failed, falling back to full scan", "error", err)
		diff, scanErr := s.Scan(ctx, previousHashes, fastCache)
		return diff, prevCommit, scanErr
	}
	if head == prevCommit {
		diff, err := s.rehashChangedAndVerifyDeletions(nil, previousHashes, fastCache)
		return diff, head, err
	}

	changes, err := provider.DiffNameStatus(ctx, prevCommit, head)
	if err != nil {
		log.Warn("vcs diff failed, falling back to full scan", "error", err)
		diff, scanErr := s.Scan(ctx, previousHashes, fastCache)
		return diff, head, scanErr
	}

	diff, err := s.rehashChangedAndVerifyDeletions(changes, previousHashes, fastCache)
	return diff, head, err
}

func (s *Scanner) rehashChangedAndVerifyDeletions(changes []vcs.Change, previousHashes map[string]string, fastCache map[string]FastHashEntry) (Diff, error) {
	current := make(map[string]string, len(previousHashes))
	nextCache := make(map[string]FastHashEntry, len(fastCache))
	for path, hash := range previousHashes {
		current[path] = hash
		if entry, ok := fastCache[path]; ok {
			nextCache[path] = entry
		}
	}

	for _, c := range changes {
		if s.excluded(c.Path, false) {
			continue
		}
		switch c.Status {
		case vcs.StatusDeleted:
			delete(current, c.Path)
			delete(nextCache, c.Path)
		default:
			full := filepath.Join(s.root, c.Path)
			info, err := os.Stat(full)
			if err != nil {
				delete(current, c.Path)
				delete(nextCache, c.Path)
				continue
			}
			if info.Size() > s.cfg.Index.MaxFileSize {
				delete(current, c.Path)
				delete(nextCache, c.Path)
				continue
			}
			digest, entry, err := s.digestFile(full, info, fastCache[c.Path])
			if err != nil {
				continue
			}
			current[c.Path] = digest
			nextCache[c.Path] = entry
		}
	}

	// Never miss a deletion: every path previously known must still
	// exist on disk, regardless of what the VCS diff reported.
	for path := range previousHashes {
		if _, stillTracked := current[path]; !stillTracked {
			continue
		}
		if s.excluded(path, false) {
			delete(current, path)
			delete(nextCache, path)
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, path)); err != nil {
			delete(current, path)
			delete(nextCache, path)
		}
	}

	diff := diffHashes(previousHashes, current)
	diff.FastCache = nextCache
	return diff, nil
}

func diffHashes(previous, current map[string]string) Diff {
	diff := Diff{Hashes: current}

	for path, hash := range current {
		prevHash, existed := previous[path]
		if !existed {
			diff.Added = append(diff.Added, path)
		} else if prevHash != hash {
			diff.Modified = append(diff.Modified, path)
		}
	}
	for path := range previous {
		if _, stillPresent := current[path]; !stillPresent {
			diff.Deleted = append(diff.Deleted, path)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Modified)
	sort.Strings(diff.Deleted)
	return diff
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	slashed := filepath.ToSlash(rel)

	if len(s.cfg.Include) > 0 && !isDir {
		matched := false
		for _, pattern := range s.cfg.Include {
			if ok, _ := doublestar.Match(pattern, slashed); ok {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
	}

	for _, pattern := range s.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}

	if s.gitignore != nil && s.gitignore.ShouldIgnore(slashed, isDir) {
		return true
	}

	return false
}
