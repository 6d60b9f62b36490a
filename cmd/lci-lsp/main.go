// Command lci-lsp is the CLI surface over the indexing engine: each
// subcommand is a thin translation from urfave/cli flags to one
// internal/indexer or internal/lsifconv call, mirroring the teacher's
// cmd/lci layout (one cli.App, one file per command group) but against
// this engine's differential-indexer/LSP-driven core rather than the
// teacher's in-memory trigram/posting indexes.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/config"
	"github.com/standardbeagle/lci-lsp/internal/indexer"
	"github.com/standardbeagle/lci-lsp/internal/version"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}

	cfg, err := config.LoadWithRoot("", absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Project.Root = absRoot

	if storePath := c.String("store"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Include = append(cfg.Include, includes...)
	}
	return cfg, nil
}

// openIndexer loads config from the CLI context and opens the store plus
// persisted graph for it, the preamble most subcommands share.
func openIndexer(ctx context.Context, c *cli.Context) (*indexer.Indexer, *config.Config, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	idx, err := indexer.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	return idx, cfg, nil
}

func main() {
	app := &cli.App{
		Name:    "lci-lsp",
		Usage:   "LSP-driven symbol index for codebases",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root to index (default: current directory)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Directory holding the persisted index (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Additional include glob patterns",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Additional exclude glob patterns",
			},
		},
		Commands: []*cli.Command{
			indexCommand,
			differentialCommand,
			crawlCommand,
			searchCommand,
			statsCommand,
			exportLSIFCommand,
			importLSIFCommand,
			watchCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lci-lsp: %v\n", err)
		os.Exit(1)
	}
}
