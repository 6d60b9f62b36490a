package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-lsp/internal/watch"
)

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Watch the project root and run a differential cycle on every change",
	Action: func(c *cli.Context) error {
		idx, cfg, err := openIndexer(c.Context, c)
		if err != nil {
			return err
		}
		defer idx.Close()

		result, err := idx.FullReindex(c.Context)
		if err != nil {
			return fmt.Errorf("initial full reindex: %w", err)
		}
		printUpdateResult(result)

		w, err := watch.New(cfg, cfg.Project.Root, func(ctx context.Context) error {
			result, err := idx.Incremental(ctx)
			if err != nil {
				return err
			}
			printUpdateResult(result)
			return nil
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()

		fmt.Println("watching for changes, press Ctrl-C to stop")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}
