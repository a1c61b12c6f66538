package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	rerrors "github.com/vango-dev/approutes/internal/errors"
	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/memo"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// ErrNotADirectory is wrapped by the error returned when the routes
// directory (or one of its subdirectories) is not a directory.
var ErrNotADirectory = vfs.ErrNotADirectory

// DirectoryTree is the classified content of one directory and, recursively,
// its routable subdirectories. Trees are immutable once built.
type DirectoryTree struct {
	// Subdirectories are sorted by name. Names are unescaped ("%5F" → "_").
	Subdirectories []Subdirectory

	// Components are the special and metadata files of this directory.
	Components *Components
}

// Subdirectory is a named child of a DirectoryTree.
type Subdirectory struct {
	Name string
	Tree *DirectoryTree
}

// Subdirectory returns the child tree with the given name, or nil.
func (t *DirectoryTree) Subdirectory(name string) *DirectoryTree {
	i := sort.Search(len(t.Subdirectories), func(i int) bool {
		return t.Subdirectories[i].Name >= name
	})
	if i < len(t.Subdirectories) && t.Subdirectories[i].Name == name {
		return t.Subdirectories[i].Tree
	}
	return nil
}

// Fingerprint returns a hash of everything routing depends on in the tree.
// It changes when any route in the tree changes and is stable otherwise.
func (t *DirectoryTree) Fingerprint() uint64 {
	d := xxhash.New()
	t.writeFingerprint(d)
	return d.Sum64()
}

func (t *DirectoryTree) writeFingerprint(d *xxhash.Digest) {
	data, _ := json.Marshal(t.Components)
	d.Write(data)
	for _, sub := range t.Subdirectories {
		d.WriteString("\x00" + sub.Name + "\x00")
		sub.Tree.writeFingerprint(d)
		d.WriteString("\x01")
	}
}

// MarshalJSON encodes the tree with subdirectories as an ordered object.
func (t *DirectoryTree) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"subdirectories":{`)
	for i, sub := range t.Subdirectories {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, sub.Name)
		b.WriteByte(':')
		data, err := json.Marshal(sub.Tree)
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteString(`},"components":`)
	data, err := json.Marshal(t.Components)
	if err != nil {
		return nil, err
	}
	b.Write(data)
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// TreeKey identifies one memoized directory tree.
type TreeKey struct {
	Dir        vfs.Path
	Extensions string
}

// String returns a representation unique among live keys.
func (k TreeKey) String() string {
	return strconv.FormatUint(k.Dir.FileSystem().ID(), 10) + ":" + k.Dir.Name() + "|" + k.Extensions
}

// TreeCache memoizes directory trees.
type TreeCache = memo.Cache[TreeKey, *DirectoryTree]

// NewTreeCache creates an LRU tree cache holding size directories.
func NewTreeCache(size int) (TreeCache, error) {
	return memo.NewLRU[TreeKey, *DirectoryTree](size, TreeKey.String)
}

// TreeBuilderOptions configures a TreeBuilder.
type TreeBuilderOptions struct {
	// PageExtensions are the extensions (without dot) of route source files.
	PageExtensions []string

	// Cache memoizes subtrees per directory. Nil disables memoization.
	Cache TreeCache

	// Concurrency bounds how many sibling subdirectories are built at once
	// per directory. Zero means unbounded.
	Concurrency int

	// Logger receives per-directory debug records. Defaults to slog.Default().
	Logger *slog.Logger

	// Telemetry records spans. Nil disables tracing.
	Telemetry *telemetry.Telemetry
}

// TreeBuilder builds DirectoryTrees bottom-up, one memoized node per
// directory, so a change in one directory only requires rebuilding that
// node and its ancestors.
type TreeBuilder struct {
	extensions []string
	extKey     string
	cache      TreeCache
	options    TreeBuilderOptions
	logger     *slog.Logger
}

// NewTreeBuilder creates a tree builder.
func NewTreeBuilder(options TreeBuilderOptions) *TreeBuilder {
	cache := options.Cache
	if cache == nil {
		cache = memo.None[TreeKey, *DirectoryTree]()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeBuilder{
		extensions: options.PageExtensions,
		extKey:     strings.Join(options.PageExtensions, ","),
		cache:      cache,
		options:    options,
		logger:     logger,
	}
}

// BuildTree builds the directory tree rooted at dir without memoization.
func BuildTree(ctx context.Context, dir vfs.Path, pageExtensions []string) (*DirectoryTree, error) {
	return NewTreeBuilder(TreeBuilderOptions{PageExtensions: pageExtensions}).Build(ctx, dir)
}

// Build returns the directory tree rooted at dir.
func (b *TreeBuilder) Build(ctx context.Context, dir vfs.Path) (*DirectoryTree, error) {
	ctx, span := b.options.Telemetry.Start(ctx, "router.BuildTree",
		attribute.String("dir", dir.String()))
	tree, err := b.build(ctx, dir)
	span.End(err)
	return tree, err
}

func (b *TreeBuilder) build(ctx context.Context, dir vfs.Path) (*DirectoryTree, error) {
	key := TreeKey{Dir: dir, Extensions: b.extKey}
	return b.cache.Get(ctx, key, func(ctx context.Context) (*DirectoryTree, error) {
		return b.buildDirectory(ctx, dir)
	})
}

func (b *TreeBuilder) buildDirectory(ctx context.Context, dir vfs.Path) (*DirectoryTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := dir.ReadDir()
	if err != nil {
		if errors.Is(err, vfs.ErrNotADirectory) {
			return nil, rerrors.New("E100").
				WithDetail(fmt.Sprintf("%s must be a directory", dir)).
				Wrap(err)
		}
		return nil, rerrors.New("E101").
			WithDetail(fmt.Sprintf("reading %s", dir)).
			Wrap(err)
	}

	scan := scanDirectory(entries, b.extensions)
	b.logger.Debug("scanned directory",
		"dir", dir.String(),
		"entries", len(entries),
		"subdirectories", len(scan.subdirectories))

	children := make([]*DirectoryTree, len(scan.subdirectories))
	g, gctx := errgroup.WithContext(ctx)
	if b.options.Concurrency > 0 {
		g.SetLimit(b.options.Concurrency)
	}
	for i, sub := range scan.subdirectories {
		g.Go(func() error {
			child, err := b.build(gctx, sub.path)
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Several escaped names can unescape to the same key; the one listed
	// last wins.
	byName := make(map[string]*DirectoryTree, len(children))
	for i, sub := range scan.subdirectories {
		byName[sub.name] = children[i]
	}
	subdirectories := make([]Subdirectory, 0, len(byName))
	for name, tree := range byName {
		subdirectories = append(subdirectories, Subdirectory{Name: name, Tree: tree})
	}
	sort.Slice(subdirectories, func(i, j int) bool {
		return subdirectories[i].Name < subdirectories[j].Name
	})

	return &DirectoryTree{
		Subdirectories: subdirectories,
		Components:     scan.components,
	}, nil
}

// BuildGlobalMetadata classifies the root-only metadata files (favicon,
// robots, sitemap) of appDir.
func BuildGlobalMetadata(appDir vfs.Path, pageExtensions []string) (*GlobalMetadata, error) {
	entries, err := appDir.ReadDir()
	if err != nil {
		if errors.Is(err, vfs.ErrNotADirectory) {
			return nil, rerrors.New("E100").
				WithDetail(fmt.Sprintf("%s must be a directory", appDir)).
				Wrap(err)
		}
		return nil, rerrors.New("E101").Wrap(err)
	}
	return scanGlobalMetadata(entries, pageExtensions), nil
}
