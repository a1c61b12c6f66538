// Package project ties route resolution to one app directory.
//
// A Project memoizes the directory tree per directory, the resolved
// entrypoints per subtree and the root-only global metadata. Watchers call
// Invalidate with the changed location; the next read rebuilds only the
// invalidated directories.
//
//	p, err := project.Open("/work/site", project.Options{})
//	snap, err := p.Snapshot(ctx)
//	for path, entry := range snap.Resolution.Entrypoints.All() {
//	    fmt.Println(path, entry.OriginalName())
//	}
package project

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/memo"
	"github.com/vango-dev/approutes/pkg/router"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// DefaultPageExtensions are used when Options.PageExtensions is empty.
var DefaultPageExtensions = []string{"tsx", "ts", "jsx", "js"}

// Options configures a Project.
type Options struct {
	// PageExtensions are the extensions of route source files, without dot.
	PageExtensions []string

	// NotFoundComponent overrides router.DefaultNotFoundComponent.
	NotFoundComponent string

	// CacheSize bounds each memo cache. Zero means 1024.
	CacheSize int

	// Concurrency bounds sibling work per directory. Zero means unbounded.
	Concurrency int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Telemetry records spans and metrics. Nil disables both.
	Telemetry *telemetry.Telemetry
}

// Project resolves the routes of one app directory.
type Project struct {
	appDir   vfs.Path
	options  Options
	logger   *slog.Logger
	trees    *memo.LRU[router.TreeKey, *router.DirectoryTree]
	resolved *memo.LRU[router.ResolveKey, *router.Resolution]
	global   *memo.LRU[vfs.Path, *router.GlobalMetadata]
	builder  *router.TreeBuilder
	resolver *router.Resolver

	generation atomic.Uint64
}

// Snapshot is a consistent view of the project's routes.
type Snapshot struct {
	// Generation is the invalidation count the snapshot was read at.
	Generation uint64

	Tree           *router.DirectoryTree
	Fingerprint    uint64
	Resolution     *router.Resolution
	GlobalMetadata *router.GlobalMetadata
}

// Open finds the app directory of the project at dir (app/ or src/app/)
// on the host file system.
func Open(dir string, options Options) (*Project, error) {
	appDir, err := router.RequireAppDir(vfs.OS(dir).Root())
	if err != nil {
		return nil, err
	}
	return New(appDir, options)
}

// New creates a project for appDir.
func New(appDir vfs.Path, options Options) (*Project, error) {
	if len(options.PageExtensions) == 0 {
		options.PageExtensions = DefaultPageExtensions
	}
	if options.CacheSize <= 0 {
		options.CacheSize = 1024
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	trees, err := memo.NewLRU[router.TreeKey, *router.DirectoryTree](options.CacheSize, router.TreeKey.String)
	if err != nil {
		return nil, err
	}
	resolved, err := memo.NewLRU[router.ResolveKey, *router.Resolution](options.CacheSize, router.ResolveKey.String)
	if err != nil {
		return nil, err
	}
	global, err := memo.NewLRU[vfs.Path, *router.GlobalMetadata](16, pathKey)
	if err != nil {
		return nil, err
	}

	return &Project{
		appDir:   appDir,
		options:  options,
		logger:   logger,
		trees:    trees,
		resolved: resolved,
		global:   global,
		builder: router.NewTreeBuilder(router.TreeBuilderOptions{
			PageExtensions: options.PageExtensions,
			Cache:          trees,
			Concurrency:    options.Concurrency,
			Logger:         logger,
			Telemetry:      options.Telemetry,
		}),
		resolver: router.NewResolver(router.ResolverOptions{
			NotFoundComponent: options.NotFoundComponent,
			Cache:             resolved,
			Concurrency:       options.Concurrency,
			Logger:            logger,
			Telemetry:         options.Telemetry,
		}),
	}, nil
}

func pathKey(p vfs.Path) string {
	return strconv.FormatUint(p.FileSystem().ID(), 10) + ":" + p.Name()
}

// AppDir returns the app directory.
func (p *Project) AppDir() vfs.Path {
	return p.appDir
}

// PageExtensions returns the configured page extensions.
func (p *Project) PageExtensions() []string {
	return append([]string(nil), p.options.PageExtensions...)
}

// Generation returns the number of invalidations so far.
func (p *Project) Generation() uint64 {
	return p.generation.Load()
}

// Tree returns the directory tree of the app directory.
func (p *Project) Tree(ctx context.Context) (*router.DirectoryTree, error) {
	return p.builder.Build(ctx, p.appDir)
}

// Entrypoints resolves the app directory's entrypoints.
func (p *Project) Entrypoints(ctx context.Context) (*router.Resolution, error) {
	tree, err := p.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return p.resolver.Resolve(ctx, p.appDir, tree)
}

// GlobalMetadata returns the root-only metadata of the app directory.
func (p *Project) GlobalMetadata(ctx context.Context) (*router.GlobalMetadata, error) {
	return p.global.Get(ctx, p.appDir, func(context.Context) (*router.GlobalMetadata, error) {
		return router.BuildGlobalMetadata(p.appDir, p.options.PageExtensions)
	})
}

// Snapshot reads tree, entrypoints and global metadata, retrying until no
// invalidation happened during the read.
func (p *Project) Snapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := p.options.Telemetry.Start(ctx, "project.Snapshot")
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			span.End(err)
			return nil, err
		}

		gen := p.Generation()
		snap, err := p.read(ctx)
		if err != nil {
			span.End(err)
			return nil, err
		}
		if p.Generation() == gen {
			snap.Generation = gen
			span.SetAttributes(
				attribute.Int("attempts", attempt),
				attribute.Int64("generation", int64(gen)))
			span.End(nil)
			return snap, nil
		}
		p.logger.Debug("snapshot raced an invalidation, retrying", "attempt", attempt)
	}
}

func (p *Project) read(ctx context.Context) (*Snapshot, error) {
	tree, err := p.Tree(ctx)
	if err != nil {
		return nil, err
	}
	resolution, err := p.resolver.Resolve(ctx, p.appDir, tree)
	if err != nil {
		return nil, err
	}
	global, err := p.GlobalMetadata(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Tree:           tree,
		Fingerprint:    tree.Fingerprint(),
		Resolution:     resolution,
		GlobalMetadata: global,
	}, nil
}

// Invalidate drops memoized results affected by a change at changed: the
// directory itself, everything beneath it and every ancestor. changed may
// name a file, in which case its directory and ancestors are dropped. It
// returns the number of dropped entries.
func (p *Project) Invalidate(changed vfs.Path) int {
	affects := func(dir vfs.Path) bool {
		return dir.IsInside(changed) || changed.IsInside(dir)
	}

	n := p.trees.Invalidate(func(k router.TreeKey) bool { return affects(k.Dir) })
	n += p.global.Invalidate(affects)
	p.generation.Add(1)

	p.options.Telemetry.Invalidated(n)
	p.logger.Debug("invalidated", "path", changed.String(), "entries", n)
	return n
}

// Purge drops every memoized result.
func (p *Project) Purge() {
	p.trees.Purge()
	p.resolved.Purge()
	p.global.Purge()
	p.generation.Add(1)
}
