package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/internal/dev"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve routes when the app directory changes",
		Long: `Watch the app directory and print the routes whenever they change.

Only structural changes (files or directories added, removed or renamed)
can change routes. Edits to existing files are ignored.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(flags, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also report batches that left the routes unchanged")

	return cmd
}

func runWatch(flags *globalFlags, all bool) error {
	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.writeMetrics()

	ctx, cancel := signalContext()
	defer cancel()

	p, err := e.openProject()
	if err != nil {
		return err
	}
	appDir := hostPath(p.AppDir())

	watcher := dev.NewWatcher(dev.WatcherConfig{
		Paths:    dev.CollectWatchPaths(e.cfg, appDir),
		Ignore:   dev.IgnorePatterns(e.cfg),
		Debounce: e.cfg.Debounce(),
		Logger:   e.logger,
	})

	reloader := dev.NewReloader(p, dev.ReloaderOptions{
		ReportUnchanged: all,
		Logger:          e.logger,
		OnReload: func(ev dev.ReloadEvent) {
			res := ev.Snapshot.Resolution
			if !ev.RoutesChanged {
				info("%d changes, routes unchanged", len(ev.Changes))
				return
			}
			if len(ev.Changes) > 0 {
				fmt.Println()
				info("%d changes", len(ev.Changes))
			}
			for _, path := range res.Entrypoints.Keys() {
				info("%s", path)
			}
			for _, issue := range res.Issues {
				warn("%s", issue)
			}
			success("%d routes (generation %d)", res.Entrypoints.Len(), ev.Snapshot.Generation)
		},
		OnError: func(err error) {
			errorMsg("%v", err)
		},
	})

	printBanner()
	fmt.Println()
	info("Watching %s", appDir)
	fmt.Println()

	err = dev.Watch(ctx, watcher, reloader)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
