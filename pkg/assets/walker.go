package assets

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// WalkerOptions configures a Walker.
type WalkerOptions struct {
	// Concurrency bounds how many References calls run at once.
	// Zero means 16.
	Concurrency int

	// Telemetry records a span per walk. Nil disables tracing.
	Telemetry *telemetry.Telemetry
}

// Walker traverses asset graphs.
type Walker struct {
	options WalkerOptions
}

// NewWalker creates a walker.
func NewWalker(options WalkerOptions) *Walker {
	if options.Concurrency <= 0 {
		options.Concurrency = 16
	}
	return &Walker{options: options}
}

// Reachable returns every asset reachable from entries, each exactly once,
// ordered so that an asset's references come before it. Cycles are safe;
// within a cycle the asset reached first comes last.
func Reachable(ctx context.Context, entries []OutputAsset) ([]OutputAsset, error) {
	return NewWalker(WalkerOptions{}).Reachable(ctx, entries)
}

type node struct {
	asset OutputAsset
	refs  []OutputAsset
}

// Reachable implements the package-level Reachable.
func (w *Walker) Reachable(ctx context.Context, entries []OutputAsset) ([]OutputAsset, error) {
	ctx, span := w.options.Telemetry.Start(ctx, "assets.Reachable",
		attribute.Int("entries", len(entries)))

	nodes, err := w.discover(ctx, entries)
	if err != nil {
		span.End(err)
		return nil, err
	}

	ordered := make([]OutputAsset, 0, len(nodes))
	visited := make(map[string]bool, len(nodes))
	var visit func(a OutputAsset)
	visit = func(a OutputAsset) {
		if visited[a.Path()] {
			return
		}
		visited[a.Path()] = true
		n := nodes[a.Path()]
		for _, ref := range n.refs {
			visit(ref)
		}
		ordered = append(ordered, n.asset)
	}
	for _, e := range entries {
		visit(e)
	}

	span.SetAttributes(attribute.Int("assets", len(ordered)))
	span.End(nil)
	return ordered, nil
}

// discover expands the graph breadth-first, fetching references of newly
// seen assets concurrently.
func (w *Walker) discover(ctx context.Context, entries []OutputAsset) (map[string]*node, error) {
	var mu sync.Mutex
	nodes := make(map[string]*node)
	sem := make(chan struct{}, w.options.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	var expand func(a OutputAsset)
	expand = func(a OutputAsset) {
		mu.Lock()
		if _, seen := nodes[a.Path()]; seen {
			mu.Unlock()
			return
		}
		n := &node{asset: a}
		nodes[a.Path()] = n
		mu.Unlock()

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			refs, err := a.References(gctx)
			<-sem
			if err != nil {
				return err
			}

			mu.Lock()
			n.refs = refs
			mu.Unlock()
			for _, ref := range refs {
				expand(ref)
			}
			return nil
		})
	}

	for _, e := range entries {
		expand(e)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ServerPaths returns the path relative to root of every asset inside
// root, in asset order. Assets outside root are skipped.
func ServerPaths(assets []OutputAsset, root string) []string {
	var paths []string
	for _, a := range assets {
		if rel, ok := vfs.Rel(root, a.Path()); ok && rel != "" {
			paths = append(paths, rel)
		}
	}
	return paths
}

// AllServerPaths walks entries and returns the root-relative paths of the
// reachable assets inside root.
func AllServerPaths(ctx context.Context, entries []OutputAsset, root string) ([]string, error) {
	all, err := Reachable(ctx, entries)
	if err != nil {
		return nil, err
	}
	return ServerPaths(all, root), nil
}
