package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/graph"
)

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Search the persisted graph for symbols by name",
	ArgsUsage: "<pattern>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "regex", Aliases: []string{"E"}, Usage: "Treat pattern as a regular expression"},
		&cli.BoolFlag{Name: "definitions", Usage: "Show the definition for each matched symbol, if one is linked"},
		&cli.BoolFlag{Name: "references", Usage: "Show references for each matched symbol"},
		&cli.BoolFlag{Name: "callers", Usage: "Show callers of each matched symbol"},
		&cli.BoolFlag{Name: "callees", Usage: "Show callees of each matched symbol"},
		&cli.IntFlag{Name: "max-results", Value: 100, Usage: "Maximum number of matches to print"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return fmt.Errorf("usage: lci-lsp search <pattern>")
		}
		pattern := c.Args().First()

		idx, _, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		match, err := matcher(pattern, c.Bool("regex"))
		if err != nil {
			return err
		}

		symbols := idx.Graph().GetAllSymbols()
		sort.Slice(symbols, func(i, j int) bool {
			if symbols[i].FilePath != symbols[j].FilePath {
				return symbols[i].FilePath < symbols[j].FilePath
			}
			return symbols[i].Name < symbols[j].Name
		})

		maxResults := c.Int("max-results")
		printed := 0
		for _, sym := range symbols {
			if !match(sym.Name) {
				continue
			}
			if maxResults > 0 && printed >= maxResults {
				break
			}
			printSymbol(sym)
			if c.Bool("definitions") {
				if def := idx.Graph().FindDefinition(sym.ID); def != nil {
					fmt.Printf("    def -> %s\n", symbolLocation(*def))
				}
			}
			if c.Bool("references") {
				for _, ref := range idx.Graph().FindReferences(sym.ID) {
					fmt.Printf("    ref -> %s\n", symbolLocation(ref))
				}
			}
			if c.Bool("callers") {
				for _, caller := range idx.Graph().CallersOf(sym.ID) {
					fmt.Printf("    called by -> %s\n", symbolLocation(caller))
				}
			}
			if c.Bool("callees") {
				for _, callee := range idx.Graph().CalleesOf(sym.ID) {
					fmt.Printf("    calls -> %s\n", symbolLocation(callee))
				}
			}
			printed++
		}
		if printed == 0 {
			fmt.Println("no matches")
		}
		return nil
	},
}

func matcher(pattern string, useRegex bool) (func(string) bool, error) {
	if !useRegex {
		return func(name string) bool { return strings.Contains(name, pattern) }, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return re.MatchString, nil
}

func printSymbol(sym graph.Symbol) {
	fmt.Printf("%s  %s %s\n", symbolLocation(sym), sym.Kind, sym.Name)
}

func symbolLocation(sym graph.Symbol) string {
	return fmt.Sprintf("%s:%d:%d", sym.FilePath, sym.Range.Start.Line+1, sym.Range.Start.Character+1)
}
