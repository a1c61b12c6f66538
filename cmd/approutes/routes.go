package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/pkg/routepath"
	"github.com/vango-dev/approutes/pkg/router"
)

type routeEntry struct {
	Path        string            `json:"path"`
	AssetPrefix string            `json:"assetPrefix"`
	Entrypoint  router.Entrypoint `json:"entrypoint"`
}

type routesOutput struct {
	Routes      []routeEntry   `json:"routes"`
	Issues      []router.Issue `json:"issues"`
	Fingerprint string         `json:"fingerprint"`
}

func routesCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON   bool
		showTree bool
	)

	cmd := &cobra.Command{
		Use:   "routes [path...]",
		Short: "List the resolved entrypoints",
		Long: `Resolve the app directory and list every entrypoint.

Paths filter the listing to the given route paths. They are reduced to
entrypoint keys first, so "/blog/", "blog" and "/(site)/blog" all select
"/blog". Asset prefixes work too: "/index" selects the root page.

Examples:
  approutes routes
  approutes routes /blog/[slug] --json
  approutes routes --tree`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(flags, args, asJSON, showTree)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&showTree, "tree", false, "Print the classified directory tree as JSON")

	return cmd
}

func runRoutes(flags *globalFlags, args []string, asJSON, showTree bool) error {
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

	if showTree {
		return printJSON(snap.Tree)
	}

	filter, err := routeFilter(args)
	if err != nil {
		return err
	}

	out := routesOutput{
		Routes:      []routeEntry{},
		Issues:      snap.Resolution.Issues,
		Fingerprint: fmt.Sprintf("%016x", snap.Fingerprint),
	}
	for path, entry := range snap.Resolution.Entrypoints.All() {
		if filter != nil && !filter[path] {
			continue
		}
		out.Routes = append(out.Routes, routeEntry{
			Path:        path,
			AssetPrefix: routepath.AssetPrefixFromPathname(path),
			Entrypoint:  entry,
		})
	}
	if out.Issues == nil {
		out.Issues = []router.Issue{}
	}

	if asJSON {
		return printJSON(out)
	}

	fmt.Println()
	for _, r := range out.Routes {
		switch entry := r.Entrypoint.(type) {
		case *router.AppPage:
			info("page   %s", r.Path)
			for _, file := range pageFiles(entry.LoaderTree) {
				info("         %s", file)
			}
		case *router.AppRoute:
			info("route  %s", r.Path)
			info("         %s", entry.Path.Name())
		}
	}
	fmt.Println()
	for _, issue := range out.Issues {
		warn("%s", issue)
	}
	success("%d routes in %s", len(out.Routes), p.AppDir().Name())
	return nil
}

// routeFilter maps the requested paths to entrypoint keys. An argument also
// selects the pathname whose asset prefix it is, so "/index" lists the root.
// Nil means no filter.
func routeFilter(args []string) (map[string]bool, error) {
	if len(args) == 0 {
		return nil, nil
	}
	filter := make(map[string]bool, 2*len(args))
	for _, arg := range args {
		key, err := routepath.EntrypointKey(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid route path %q: %w", arg, err)
		}
		filter[key] = true
		filter[routepath.PathnameFromAssetPrefix(key)] = true
	}
	return filter, nil
}

// pageFiles lists the page and default files of a loader tree, depth first.
func pageFiles(tree *router.LoaderTree) []string {
	if tree == nil {
		return nil
	}
	var files []string
	if c := tree.Components; c != nil {
		if c.Page != nil {
			files = append(files, c.Page.Name())
		}
		if c.Default != nil {
			files = append(files, c.Default.Name())
		}
	}
	for _, slot := range tree.ParallelRoutes {
		files = append(files, pageFiles(slot.Tree)...)
	}
	return files
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
