package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(10*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 50000, cfg.Index.MaxFileCount)
	assert.True(t, cfg.Index.RespectGitignore)
	assert.True(t, cfg.Index.UseVCSFastPath)
	assert.Equal(t, 3000, cfg.Performance.MinRequestTimeoutMs)
	assert.Equal(t, 60000, cfg.Performance.MaxRequestTimeoutMs)
}

func TestParseKDL_IndexSettings(t *testing.T) {
	kdlContent := `
index {
    max_file_size "5MB"
    max_file_count 5000
    follow_symlinks true
    respect_gitignore false
    watch_mode true
    watch_debounce_ms 500
    use_vcs_fast_path false
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(5*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 5000, cfg.Index.MaxFileCount)
	assert.True(t, cfg.Index.FollowSymlinks)
	assert.False(t, cfg.Index.RespectGitignore)
	assert.True(t, cfg.Index.WatchMode)
	assert.Equal(t, 500, cfg.Index.WatchDebounceMs)
	assert.False(t, cfg.Index.UseVCSFastPath)
}

func TestParseKDL_PerformanceSettings(t *testing.T) {
	kdlContent := `
performance {
    parallel_file_workers 4
    min_request_timeout_ms 1000
    max_request_timeout_ms 30000
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.Performance.ParallelFileWorkers)
	assert.Equal(t, 1000, cfg.Performance.MinRequestTimeoutMs)
	assert.Equal(t, 30000, cfg.Performance.MaxRequestTimeoutMs)
}

func TestParseKDL_LanguageOverride(t *testing.T) {
	kdlContent := `
language "go" {
    command "gopls"
    args "serve" "-rpc.trace"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	override, ok := cfg.Languages["go"]
	require.True(t, ok, "expected a language override for go")
	assert.Equal(t, "gopls", override.Command)
	assert.Equal(t, []string{"serve", "-rpc.trace"}, override.Args)
}

func TestParseKDL_FullConfig(t *testing.T) {
	kdlContent := `
project {
    root "."
    name "test-project"
}

index {
    max_file_size "5MB"
    max_file_count 5000
    respect_gitignore true
}

performance {
    parallel_file_workers 8
}

store {
    path "/tmp/lci-store"
}

exclude "**/.git/**" "**/node_modules/**"
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-project", cfg.Project.Name)
	assert.Equal(t, int64(5*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 5000, cfg.Index.MaxFileCount)
	assert.Equal(t, 8, cfg.Performance.ParallelFileWorkers)
	assert.Equal(t, "/tmp/lci-store", cfg.Store.Path)
	assert.Contains(t, cfg.Exclude, "**/.git/**")
	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"10":   10,
		"1KB":  1024,
		"5MB":  5 * 1024 * 1024,
		"1GB":  1024 * 1024 * 1024,
	}
	for input, want := range cases {
		got, err := parseSize(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}
