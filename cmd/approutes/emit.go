package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/internal/build"
	"github.com/vango-dev/approutes/pkg/assets"
	"github.com/vango-dev/approutes/pkg/routepath"
	"github.com/vango-dev/approutes/pkg/vfs"
)

type emitOptions struct {
	graph  string
	dryRun bool
	force  bool
}

func emitCmd(flags *globalFlags) *cobra.Command {
	opts := emitOptions{}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Write the assets of an asset graph",
		Long: `Walk an asset graph from its entries and write every reachable asset.

Server assets under the node root are written in place. Client assets
under the client relative root are rebased into the client output root.
Everything else is skipped. With an S3 bucket configured the assets are
uploaded instead of written to disk.

A manifest of server paths is written next to the server output. Server
assets whose content is unchanged since the last emit are not rewritten
unless --force is given.

Examples:
  approutes emit
  approutes emit --graph build/graph.json --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(flags, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.graph, "graph", "", "Asset graph file (default from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Resolve targets without writing")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Rewrite unchanged server assets")

	cmd.AddCommand(serverPathsCmd(flags, &opts))

	return cmd
}

func serverPathsCmd(flags *globalFlags, opts *emitOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "server-paths",
		Short: "List the server assets reachable from the graph entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			graph, err := e.loadGraph(opts.graph)
			if err != nil {
				return err
			}
			nodeRoot := filepath.ToSlash(e.cfg.NodeRootPath())
			paths, err := assets.AllServerPaths(ctx, graph.Entries, nodeRoot)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(paths)
			}
			for _, rel := range paths {
				pathname, err := routepath.PathnameForServerPath(nodeRoot, nodeRoot+"/"+rel, routepath.PagesPage)
				if err != nil {
					return err
				}
				info("%-40s %s", rel, pathname)
			}
			success("%d server paths", len(paths))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

// loadGraph reads the asset graph named by the flag or the config. Source
// files are resolved against the graph file's directory.
func (e *env) loadGraph(flagPath string) (*assets.Graph, error) {
	graphPath := e.cfg.GraphPath()
	if flagPath != "" {
		abs, err := filepath.Abs(flagPath)
		if err != nil {
			return nil, err
		}
		graphPath = abs
	}
	graph, err := assets.LoadGraphFile(graphPath, vfs.OS(filepath.Dir(graphPath)).Root())
	if err != nil {
		return nil, err
	}
	e.logger.Debug("loaded asset graph", "path", graphPath,
		"assets", len(graph.Assets), "entries", len(graph.Entries))
	return graph, nil
}

func runEmit(flags *globalFlags, opts emitOptions) error {
	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.writeMetrics()

	ctx, cancel := signalContext()
	defer cancel()

	graph, err := e.loadGraph(opts.graph)
	if err != nil {
		return err
	}

	var previous *assets.Manifest
	if !opts.force {
		previous, err = assets.Load(e.cfg.ManifestPath())
		switch {
		case errors.Is(err, fs.ErrNotExist):
			previous = nil
		case err != nil:
			warn("Ignoring unreadable manifest: %v", err)
			previous = nil
		}
	}

	sink, where := e.sink(opts.dryRun)

	printBanner()
	fmt.Println()

	emitter := build.New(build.Roots{
		NodeRoot:           filepath.ToSlash(e.cfg.NodeRootPath()),
		ClientRelativeRoot: filepath.ToSlash(e.cfg.ClientRelativeRootPath()),
		ClientOutputRoot:   filepath.ToSlash(e.cfg.ClientOutputRootPath()),
	}, build.Options{
		Sink:         sink,
		Concurrency:  e.cfg.Build.Concurrency,
		Previous:     previous,
		ManifestName: e.cfg.Build.Manifest,
		Logger:       e.logger,
		Telemetry:    e.telemetry,
		OnProgress: func(step string) {
			info("%s", step)
		},
	})

	result, err := emitter.Emit(ctx, graph.Entries)
	if err != nil {
		if result != nil {
			errorMsg("%d assets failed", countErrors(err))
		}
		return err
	}

	if !opts.dryRun {
		if err := emitter.WriteManifest(ctx, result); err != nil {
			return err
		}
	}

	fmt.Println()
	if opts.dryRun {
		for _, target := range result.Written {
			info("would write %s", target)
		}
		fmt.Println()
	}
	success("Emitted to %s in %s", where, result.Duration.Round(time.Millisecond))
	info("Written:    %d", len(result.Written))
	info("Unchanged:  %d", len(result.Unchanged))
	info("Skipped:    %d", result.Skipped)
	info("Server:     %d paths", len(result.ServerPaths))
	fmt.Println()

	return nil
}

// sink picks where assets go and describes it.
func (e *env) sink(dryRun bool) (build.Sink, string) {
	switch {
	case dryRun:
		return build.NewMemorySink(), "nowhere (dry run)"
	case e.cfg.HasS3():
		client := build.NewS3Client(build.S3Options{
			Region:    e.cfg.S3.Region,
			Endpoint:  e.cfg.S3.Endpoint,
			PathStyle: e.cfg.S3.PathStyle,
		})
		sink := build.NewS3Sink(client, e.cfg.S3.Bucket, e.cfg.S3.Prefix).
			Relative(filepath.ToSlash(e.cfg.Dir()))
		return sink, "s3://" + e.cfg.S3.Bucket + "/" + e.cfg.S3.Prefix
	default:
		return build.NewDiskSink(""), "disk"
	}
}

// countErrors counts the failures joined into err.
func countErrors(err error) int {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}
