package main

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/pkg/router"
)

type directoryMetadata struct {
	Dir      string          `json:"dir"`
	Metadata router.Metadata `json:"metadata"`
}

type metadataOutput struct {
	Global      *router.GlobalMetadata `json:"global"`
	Directories []directoryMetadata    `json:"directories,omitempty"`
}

func metadataCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show metadata files",
		Long: `Show the root-only metadata files (favicon, robots, sitemap).

With --all the icon, apple-icon, opengraph-image, twitter-image and
manifest files of every directory are listed as well, in the order
they apply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(flags, asJSON, all)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Include per-directory metadata")

	return cmd
}

func runMetadata(flags *globalFlags, asJSON, all bool) error {
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
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}

	out := metadataOutput{Global: snap.GlobalMetadata}
	if all {
		out.Directories = collectMetadata(p.AppDir().Name(), snap.Tree, nil)
	}

	if asJSON {
		return printJSON(out)
	}

	fmt.Println()
	global := out.Global
	if global.IsEmpty() {
		info("No global metadata")
	}
	printItem("favicon", global.Favicon)
	printItem("robots", global.Robots)
	printItem("sitemap", global.Sitemap)

	for _, dir := range out.Directories {
		fmt.Println()
		info("%s", dir.Dir)
		printAltItems("icon", dir.Metadata.Icon)
		printAltItems("apple", dir.Metadata.Apple)
		printAltItems("openGraph", dir.Metadata.OpenGraph)
		printAltItems("twitter", dir.Metadata.Twitter)
		printAltItems("favicon", dir.Metadata.Favicon)
		printItem("manifest", dir.Metadata.Manifest)
	}
	fmt.Println()
	return nil
}

// collectMetadata lists directories with metadata files in tree order.
func collectMetadata(dir string, tree *router.DirectoryTree, out []directoryMetadata) []directoryMetadata {
	if tree.Components != nil && !tree.Components.Metadata.IsEmpty() {
		out = append(out, directoryMetadata{Dir: dir, Metadata: tree.Components.Metadata})
	}
	for _, sub := range tree.Subdirectories {
		out = collectMetadata(path.Join(dir, sub.Name), sub.Tree, out)
	}
	return out
}

func printItem(label string, item *router.MetadataItem) {
	if item == nil {
		return
	}
	info("%-10s %s (%s)", label, item.Path.Name(), item.Kind)
}

func printAltItems(label string, items []router.MetadataWithAltItem) {
	for _, item := range items {
		if item.AltPath != nil {
			info("%-10s %s (%s, alt %s)", label, item.Path.Name(), item.Kind, item.AltPath.Name())
			continue
		}
		info("%-10s %s (%s)", label, item.Path.Name(), item.Kind)
	}
}
