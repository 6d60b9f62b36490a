package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/indexer"
)

var indexCommand = &cli.Command{
	Name:  "index",
	Usage: "Run a full reindex of the project root",
	Action: func(c *cli.Context) error {
		idx, _, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		result, err := idx.FullReindex(c.Context)
		if err != nil {
			return fmt.Errorf("full reindex: %w", err)
		}
		printUpdateResult(result)
		return nil
	},
}

var differentialCommand = &cli.Command{
	Name:  "differential",
	Usage: "Run an incremental update, indexing only what changed since the last run",
	Action: func(c *cli.Context) error {
		idx, _, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		result, err := idx.Incremental(c.Context)
		if err != nil {
			return fmt.Errorf("incremental update: %w", err)
		}
		printUpdateResult(result)
		return nil
	},
}

// crawlCommand is full_reindex under a different name, kept for parity
// with the original CLI's crawl subcommand.
var crawlCommand = &cli.Command{
	Name:  "crawl",
	Usage: "Alias for index: crawl the project root and build a fresh graph",
	Action: indexCommand.Action,
}

func printUpdateResult(r indexer.UpdateResult) {
	fmt.Printf("files: +%d ~%d -%d | symbols: +%d ~%d -%d | %s\n",
		r.FilesAdded, r.FilesModified, r.FilesDeleted,
		r.SymbolsAdded, r.SymbolsUpdated, r.SymbolsDeleted,
		r.Duration)
	if r.FullReindex {
		fmt.Println("mode: full reindex")
	} else {
		fmt.Println("mode: incremental")
	}
	if len(r.DegradedFiles) > 0 {
		fmt.Printf("degraded (lexical fallback or recoverable LSP error): %d file(s)\n", len(r.DegradedFiles))
		for _, f := range r.DegradedFiles {
			fmt.Printf("  %s\n", f)
		}
	}
	if len(r.FailedFiles) > 0 {
		fmt.Printf("failed: %d file(s)\n", len(r.FailedFiles))
		for f, reason := range r.FailedFiles {
			fmt.Printf("  %s: %s\n", f, reason)
		}
	}
}
