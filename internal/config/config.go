// Package config loads and validates project configuration for the
// indexing engine: what to scan, how many workers to run, where the
// persisted index lives, and which command spawns each language's server.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Store       Store
	Languages   map[string]LanguageOverride
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
}

// Index controls file discovery and change detection (C3).
type Index struct {
	MaxFileSize      int64 // bytes; files larger than this are skipped
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool
	WatchDebounceMs  int
	UseVCSFastPath   bool // attempt the vcs_diff narrowing described in §4.3
}

// Performance controls the worker pool (C8) and the LSP timeout predictor
// bounds (C5).
type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect, capped at 8 per §4.8
	MinRequestTimeoutMs int
	MaxRequestTimeoutMs int
}

// Store configures the persistence layer (C2).
type Store struct {
	Path string // directory holding the embedded KV database
}

// LanguageOverride lets a project file replace the default spawn command
// for a language server (C4), e.g. to pin a specific gopls binary.
type LanguageOverride struct {
	Command string
	Args    []string
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	var projectConfig *Config
	kdlCfg, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	if kdlCfg != nil {
		projectConfig = kdlCfg
	}

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		cfg = baseConfig
	default:
		cfg = defaultConfig(searchDir)
	}

	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

func defaultConfig(root string) *Config {
	absRoot, err := resolveAbs(root)
	if err != nil {
		absRoot = root
	}

	return &Config{
		Version: 1,
		Project: Project{Root: absRoot},
		Index: Index{
			MaxFileSize:      10 * 1024 * 1024,
			MaxFileCount:     50000,
			FollowSymlinks:   false,
			RespectGitignore: true,
			WatchMode:        false,
			WatchDebounceMs:  300,
			UseVCSFastPath:   true,
		},
		Performance: Performance{
			ParallelFileWorkers: 0,
			MinRequestTimeoutMs: 3000,
			MaxRequestTimeoutMs: 60000,
		},
		Store: Store{
			Path: defaultStorePath(absRoot),
		},
		Languages: map[string]LanguageOverride{},
		Include:   []string{},
		Exclude: []string{
			"**/.git/**",
			"**/.*/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/out/**",
			"**/target/**",
			"**/bin/**",
			"**/obj/**",
			"**/__pycache__/**",
			"**/*.pyc",
		},
	}
}

// ParallelWorkers resolves the configured worker count into the bound
// described by §4.8: W = min(cpu_count, 8).
func (c *Config) ParallelWorkers() int {
	if c.Performance.ParallelFileWorkers > 0 {
		if c.Performance.ParallelFileWorkers > 8 {
			return 8
		}
		return c.Performance.ParallelFileWorkers
	}
	w := runtime.NumCPU()
	if w > 8 {
		w = 8
	}
	if w < 1 {
		w = 1
	}
	return w
}

func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		excludeSet := make(map[string]bool)
		for _, pattern := range base.Exclude {
			excludeSet[pattern] = true
		}
		for _, pattern := range project.Exclude {
			excludeSet[pattern] = true
		}
		merged.Exclude = make([]string, 0, len(excludeSet))
		for pattern := range excludeSet {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	if len(project.Languages) == 0 && len(base.Languages) > 0 {
		merged.Languages = base.Languages
	}

	return &merged
}

func resolveAbs(path string) (string, error) {
	return filepath.Abs(path)
}

func defaultStorePath(root string) string {
	return filepath.Join(root, ".lci-lsp")
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language configs and adds them to the exclusion list.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	detector := NewBuildArtifactDetector(c.Project.Root)
	detected := detector.DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}
