package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/indexer"
	"github.com/standardbeagle/lci-lsp/internal/lsifconv"
)

var exportLSIFCommand = &cli.Command{
	Name:      "export-lsif",
	Usage:     "Export the persisted graph as line-delimited LSIF JSON",
	ArgsUsage: "<output-file>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return fmt.Errorf("usage: lci-lsp export-lsif <output-file>")
		}
		idx, _, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		out, err := os.Create(c.Args().First())
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()

		if err := lsifconv.Export(idx.Graph(), out); err != nil {
			return fmt.Errorf("export lsif: %w", err)
		}
		fmt.Printf("exported %d symbols to %s\n", idx.Graph().SymbolCount(), c.Args().First())
		return nil
	},
}

var importLSIFCommand = &cli.Command{
	Name:      "import-lsif",
	Usage:     "Replace the persisted graph with the contents of an LSIF file",
	ArgsUsage: "<input-file>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return fmt.Errorf("usage: lci-lsp import-lsif <input-file>")
		}
		cfg, err := loadConfigWithOverrides(c)
		if err != nil {
			return err
		}

		in, err := os.Open(c.Args().First())
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer in.Close()

		g, err := lsifconv.Import(in)
		if err != nil {
			return fmt.Errorf("import lsif: %w", err)
		}

		idx, err := indexer.Open(c.Context, cfg)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()

		if err := idx.ReplaceGraph(c.Context, g); err != nil {
			return fmt.Errorf("persist imported graph: %w", err)
		}
		fmt.Printf("imported %d symbols from %s\n", g.SymbolCount(), c.Args().First())
		return nil
	},
}
