package router

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/memo"
	"github.com/vango-dev/approutes/pkg/routepath"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// DefaultNotFoundComponent is the built-in component rendered in the
// children slot of the synthesized not-found pages, relative to the root of
// the app directory's file system.
const DefaultNotFoundComponent = "node_modules/next/dist/client/components/parallel-route-default.js"

// Resolution is the result of resolving a directory tree.
type Resolution struct {
	Entrypoints *Entrypoints
	Issues      []Issue
}

// ResolveKey identifies one memoized subtree resolution. Trees are
// immutable, so pointer identity is a sound key.
type ResolveKey struct {
	Tree      *DirectoryTree
	Directory string
	Prefix    string
}

func (k ResolveKey) String() string {
	return fmt.Sprintf("%p|%s|%s", k.Tree, k.Directory, k.Prefix)
}

// ResolveCache memoizes subtree resolutions.
type ResolveCache = memo.Cache[ResolveKey, *Resolution]

// NewResolveCache creates an LRU resolution cache holding size subtrees.
func NewResolveCache(size int) (ResolveCache, error) {
	return memo.NewLRU[ResolveKey, *Resolution](size, ResolveKey.String)
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// NotFoundComponent overrides DefaultNotFoundComponent.
	NotFoundComponent string

	// Cache memoizes subtree resolutions. Nil disables memoization.
	Cache ResolveCache

	// Concurrency bounds how many sibling subtrees are resolved at once.
	// Zero means unbounded.
	Concurrency int

	// Logger receives issue records. Defaults to slog.Default().
	Logger *slog.Logger

	// Telemetry records spans, issues and entrypoint counts.
	Telemetry *telemetry.Telemetry
}

// Resolver turns DirectoryTrees into Entrypoints.
type Resolver struct {
	options ResolverOptions
	cache   ResolveCache
	logger  *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(options ResolverOptions) *Resolver {
	if options.NotFoundComponent == "" {
		options.NotFoundComponent = DefaultNotFoundComponent
	}
	cache := options.Cache
	if cache == nil {
		cache = memo.None[ResolveKey, *Resolution]()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{options: options, cache: cache, logger: logger}
}

// ResolveEntrypoints resolves tree, built from appDir, without memoization.
func ResolveEntrypoints(ctx context.Context, appDir vfs.Path, tree *DirectoryTree) (*Resolution, error) {
	return NewResolver(ResolverOptions{}).Resolve(ctx, appDir, tree)
}

// Resolve returns the entrypoint table for tree. Conflicts are reported as
// issues; the only errors are context errors.
func (r *Resolver) Resolve(ctx context.Context, appDir vfs.Path, tree *DirectoryTree) (*Resolution, error) {
	ctx, span := r.options.Telemetry.Start(ctx, "router.Resolve",
		attribute.String("app_dir", appDir.String()))

	res, err := r.resolve(ctx, appDir, tree, "", "/")
	if err != nil {
		span.End(err)
		return nil, err
	}

	for _, issue := range res.Issues {
		r.logger.Warn("routing issue",
			"dir", issue.Dir.String(),
			"message", issue.Message)
		r.options.Telemetry.Issue(issue.Severity.String())
	}
	r.options.Telemetry.Entrypoints(res.Entrypoints.Len())
	span.SetAttributes(
		attribute.Int("entrypoints", res.Entrypoints.Len()),
		attribute.Int("issues", len(res.Issues)))
	span.End(nil)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, appDir vfs.Path, tree *DirectoryTree, directory, prefix string) (*Resolution, error) {
	key := ResolveKey{Tree: tree, Directory: directory, Prefix: prefix}
	return r.cache.Get(ctx, key, func(ctx context.Context) (*Resolution, error) {
		return r.resolveDirectory(ctx, appDir, tree, directory, prefix)
	})
}

// resolveDirectory registers, in order: the page, the default, the route
// handler, the root not-found pages, and then every subdirectory's entries
// in sorted name order.
func (r *Resolver) resolveDirectory(ctx context.Context, appDir vfs.Path, tree *DirectoryTree, directory, prefix string) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := newEntrypointTable(appDir)
	components := tree.Components
	parallel := routepath.IsParallelRoute(directory)

	leaf := func(segment string, leafComponents *Components) *LoaderTree {
		node := leafTree(segment, leafComponents)
		if parallel {
			return node
		}
		return wrapTree(directory, ChildrenSlot, node, components.WithoutLeafs())
	}

	if components.Page != nil {
		table.addPage(prefix, prefix, leaf(PageSegment, &Components{Page: components.Page}))
	}
	if components.Default != nil {
		table.addPage(prefix, prefix, leaf(DefaultSegment, &Components{Default: components.Default}))
	}
	if components.Route != nil {
		table.addRoute(prefix, prefix, *components.Route)
	}

	if prefix == "/" && components.NotFound != nil {
		fallback := appDir.FileSystem().Path(r.options.NotFoundComponent)
		notFound := wrapTree(directory, ChildrenSlot,
			leafTree(DefaultSegment, &Components{Default: &fallback}),
			components.WithoutLeafs())
		table.addPage("/not-found", "/not-found", notFound)
		table.addPage("/_not-found", "/_not-found", notFound)
	}

	children := make([]*Resolution, len(tree.Subdirectories))
	g, gctx := errgroup.WithContext(ctx)
	if r.options.Concurrency > 0 {
		g.SetLimit(r.options.Concurrency)
	}
	for i, sub := range tree.Subdirectories {
		childPrefix := prefix
		if routepath.ExtendsURL(sub.Name) {
			childPrefix = routepath.Join(prefix, sub.Name)
		}
		g.Go(func() error {
			res, err := r.resolve(gctx, appDir, sub.Tree, sub.Name, childPrefix)
			if err != nil {
				return err
			}
			children[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, sub := range tree.Subdirectories {
		child := children[i]
		table.issues = append(table.issues, child.Issues...)

		slot, ok := routepath.ParallelRouteKey(sub.Name)
		if !ok {
			slot = ChildrenSlot
		}

		for path, entry := range child.Entrypoints.All() {
			switch entry := entry.(type) {
			case *AppPage:
				loaderTree := entry.LoaderTree
				if !parallel {
					loaderTree = wrapTree(directory, slot, loaderTree, components.WithoutLeafs())
				}
				table.addPage(path, entry.Name, loaderTree)
			case *AppRoute:
				table.addRoute(path, entry.Name, entry.Path)
			}
		}
	}

	return &Resolution{Entrypoints: table.entrypoints, Issues: table.issues}, nil
}
