package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "Show symbol and file counts for the persisted index",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "by-kind", Usage: "Break the symbol count down by kind"},
	},
	Action: func(c *cli.Context) error {
		idx, cfg, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		symbols := idx.Graph().GetAllSymbols()
		files := make(map[string]bool)
		for _, sym := range symbols {
			files[sym.FilePath] = true
		}

		fmt.Printf("root:    %s\n", cfg.Project.Root)
		fmt.Printf("files:   %d\n", len(files))
		fmt.Printf("symbols: %d\n", len(symbols))

		if c.Bool("by-kind") {
			counts := make(map[graph.SymbolKind]int)
			for _, sym := range symbols {
				counts[sym.Kind]++
			}
			kinds := make([]graph.SymbolKind, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, k)
			}
			sort.Slice(kinds, func(i, j int) bool { return kinds[i].String() < kinds[j].String() })
			for _, k := range kinds {
				fmt.Printf("  %-12s %d\n", k.String(), counts[k])
			}
		}
		return nil
	},
}
