// Package vcs gives the scanner (C3) an optional fast path: when the
// project is a git repository, narrow the set of files considered for
// re-indexing to what changed between two commits instead of re-hashing
// the whole tree. §4.3 requires that this path never be allowed to miss
// a deletion, so every caller treats its output as a narrowing hint, not
// a replacement for the "diff on content hash" contract of C3.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ChangeStatus mirrors a subset of git's name-status letters; renames are
// reported as a delete+add pair since the graph keys symbols by path.
type ChangeStatus int

const (
	StatusAdded ChangeStatus = iota
	StatusModified
	StatusDeleted
)

type Change struct {
	Path   string
	Status ChangeStatus
}

// Provider wraps the subset of git plumbing commands C3's fast path
// needs. All methods shell out via exec.CommandContext so a slow or
// hung git process can be cancelled like any other external dependency.
type Provider struct {
	repoRoot string
}

// NewProvider resolves dir to its containing git repository's root.
// Returns an error (callers should fall back to a full scan) if dir is
// not inside a git working tree.
func NewProvider(dir string) (*Provider, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve repo dir: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = absDir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", absDir)
	}

	return &Provider{repoRoot: strings.TrimSpace(string(output))}, nil
}

func (p *Provider) RepoRoot() string { return p.repoRoot }

// IsRepo reports whether a .git directory is present at the resolved root.
func (p *Provider) IsRepo() bool {
	info, err := os.Stat(filepath.Join(p.repoRoot, ".git"))
	return err == nil && info.IsDir()
}

// HeadCommit returns the full hash of HEAD, used as the "last indexed
// commit" marker persisted by C2 between runs.
func (p *Provider) HeadCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = p.repoRoot
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// DiffNameStatus returns files changed between two commits. Deleted
// files are included; C3 treats every Deleted entry as authoritative
// regardless of what else the fast path narrows.
func (p *Provider) DiffNameStatus(ctx context.Context, fromCommit, toCommit string) ([]Change, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", "--no-renames", fromCommit, toCommit)
	cmd.Dir = p.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff --name-status %s %s: %w", fromCommit, toCommit, err)
	}
	return parseNameStatus(output)
}

func parseNameStatus(output []byte) ([]Change, error) {
	var changes []Change
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		changes = append(changes, Change{
			Path:   parts[1],
			Status: parseStatus(parts[0]),
		})
	}
	return changes, scanner.Err()
}

func parseStatus(letter string) ChangeStatus {
	if len(letter) == 0 {
		return StatusModified
	}
	switch letter[0] {
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	default:
		return StatusModified
	}
}

// ListAllFiles returns every tracked file. The scanner does not call it:
// with the fast path disabled or no prior indexed commit, it walks the
// directory tree instead.
func (p *Provider) ListAllFiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files")
	cmd.Dir = p.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if f := scanner.Text(); f != "" {
			files = append(files, f)
		}
	}
	return files, scanner.Err()
}
