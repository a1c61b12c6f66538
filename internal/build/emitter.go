package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	rerrors "github.com/vango-dev/approutes/internal/errors"
	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/assets"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// Roots are the output locations the emitter decides between.
type Roots struct {
	// NodeRoot holds server output. Assets inside it are written in place.
	NodeRoot string

	// ClientRelativeRoot is where client assets live in the asset graph.
	ClientRelativeRoot string

	// ClientOutputRoot is where client assets are written.
	ClientOutputRoot string
}

// Disposition is the emitter's decision for one asset.
type Disposition int

const (
	// Skip leaves the asset alone; it lies outside every output root.
	Skip Disposition = iota

	// Node writes the asset at its own path.
	Node

	// Client writes the asset rebased into the client output root.
	Client
)

func (d Disposition) String() string {
	switch d {
	case Node:
		return "node"
	case Client:
		return "client"
	default:
		return "skipped"
	}
}

// Target decides where an asset with the given path is written. An empty
// root contains nothing.
func (r Roots) Target(assetPath string) (string, Disposition) {
	if r.NodeRoot != "" && vfs.IsInside(assetPath, r.NodeRoot) {
		return assetPath, Node
	}
	if r.ClientRelativeRoot != "" {
		if target, ok := vfs.Rebase(assetPath, r.ClientRelativeRoot, r.ClientOutputRoot); ok {
			return target, Client
		}
	}
	return "", Skip
}

// Options configures the emitter.
type Options struct {
	// Sink receives the writes. Default: a DiskSink using target paths as
	// host paths.
	Sink Sink

	// Concurrency bounds simultaneous writes. Zero means 16.
	Concurrency int

	// Previous is the manifest of an earlier emission. A server asset whose
	// fingerprint is unchanged is not rewritten when the sink implements
	// Reader and still holds the same content at the target.
	Previous *assets.Manifest

	// ManifestName is the file name of the server-path manifest, written
	// under NodeRoot by WriteManifest. Default: "server-paths.json".
	ManifestName string

	// Logger receives per-asset debug records. Defaults to slog.Default().
	Logger *slog.Logger

	// Telemetry records spans and per-disposition counts.
	Telemetry *telemetry.Telemetry

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Result contains the emission output.
type Result struct {
	// Duration is how long the emission took.
	Duration time.Duration

	// Written are the target paths written, sorted.
	Written []string

	// Unchanged are the target paths skipped because Previous matched.
	Unchanged []string

	// Skipped counts assets outside every output root.
	Skipped int

	// Manifest fingerprints every server asset, keyed by its path relative
	// to NodeRoot.
	Manifest *assets.Manifest

	// ServerPaths are the NodeRoot-relative paths of the server assets, in
	// asset order.
	ServerPaths []string
}

// Emitter writes output assets.
type Emitter struct {
	roots   Roots
	options Options
	logger  *slog.Logger
}

// New creates a new emitter.
func New(roots Roots, options Options) *Emitter {
	if options.Sink == nil {
		options.Sink = NewDiskSink("")
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 16
	}
	if options.ManifestName == "" {
		options.ManifestName = "server-paths.json"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{roots: roots, options: options, logger: logger}
}

// EmitAll writes assets to disk: in place under nodeRoot, rebased from
// clientRelativeRoot to clientOutputRoot, and not at all otherwise.
func EmitAll(ctx context.Context, assetList []assets.OutputAsset, nodeRoot, clientRelativeRoot, clientOutputRoot string) error {
	_, err := New(Roots{
		NodeRoot:           nodeRoot,
		ClientRelativeRoot: clientRelativeRoot,
		ClientOutputRoot:   clientOutputRoot,
	}, Options{}).EmitAll(ctx, assetList)
	return err
}

// Emit walks the graph from entries and writes every reachable asset.
func (e *Emitter) Emit(ctx context.Context, entries []assets.OutputAsset) (*Result, error) {
	e.progress("Walking asset graph...")
	all, err := assets.NewWalker(assets.WalkerOptions{
		Concurrency: e.options.Concurrency,
		Telemetry:   e.options.Telemetry,
	}).Reachable(ctx, entries)
	if err != nil {
		return nil, err
	}
	return e.EmitAll(ctx, all)
}

// EmitAll writes each asset according to Roots.Target. Writes are
// independent: a failed write does not stop the others, and EmitAll
// returns only after every write has finished, joining all failures.
func (e *Emitter) EmitAll(ctx context.Context, assetList []assets.OutputAsset) (*Result, error) {
	start := time.Now()
	ctx, span := e.options.Telemetry.Start(ctx, "build.EmitAll",
		attribute.Int("assets", len(assetList)))

	result := &Result{Manifest: assets.NewManifest()}
	var (
		mu   sync.Mutex
		errs []error
	)

	e.progress(fmt.Sprintf("Emitting %d assets...", len(assetList)))

	var g errgroup.Group
	g.SetLimit(e.options.Concurrency)
	for _, asset := range assetList {
		target, disposition := e.roots.Target(asset.Path())
		if disposition == Skip {
			result.Skipped++
			e.options.Telemetry.Asset(disposition.String())
			continue
		}
		if disposition == Node {
			if rel, ok := vfs.Rel(e.roots.NodeRoot, asset.Path()); ok && rel != "" {
				result.ServerPaths = append(result.ServerPaths, rel)
			}
		}

		g.Go(func() error {
			written, err := e.emitOne(ctx, asset, target, disposition, result.Manifest)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = append(errs, err)
				e.options.Telemetry.Asset("failed")
			case written:
				result.Written = append(result.Written, target)
				e.options.Telemetry.Asset(disposition.String())
			default:
				result.Unchanged = append(result.Unchanged, target)
				e.options.Telemetry.Asset("unchanged")
			}
			return nil
		})
	}
	g.Wait()

	sort.Strings(result.Written)
	sort.Strings(result.Unchanged)
	result.Duration = time.Since(start)

	err := errors.Join(errs...)
	span.SetAttributes(
		attribute.Int("written", len(result.Written)),
		attribute.Int("skipped", result.Skipped))
	span.End(err)
	if err != nil {
		return result, err
	}
	return result, nil
}

func (e *Emitter) emitOne(ctx context.Context, asset assets.OutputAsset, target string, disposition Disposition, manifest *assets.Manifest) (bool, error) {
	content, err := asset.Content(ctx)
	if err != nil {
		var re *rerrors.RouteError
		if errors.As(err, &re) {
			return false, err
		}
		return false, rerrors.New("E140").
			WithDetail(fmt.Sprintf("content of %s", asset.Path())).
			Wrap(err)
	}

	if disposition == Node {
		rel, _ := vfs.Rel(e.roots.NodeRoot, target)
		manifest.Record(rel, content)
		if e.options.Previous.Unchanged(rel, content) && e.stored(ctx, target, content) {
			e.logger.Debug("unchanged asset", "path", target)
			return false, nil
		}
	}

	if err := e.options.Sink.Write(ctx, target, content); err != nil {
		return false, rerrors.New("E141").
			WithDetail(fmt.Sprintf("writing %s", target)).
			Wrap(err)
	}
	e.logger.Debug("emitted asset",
		"path", asset.Path(),
		"target", target,
		"disposition", disposition.String(),
		"bytes", len(content))
	return true, nil
}

// stored reports whether the sink holds exactly content at target.
func (e *Emitter) stored(ctx context.Context, target string, content []byte) bool {
	reader, ok := e.options.Sink.(Reader)
	if !ok {
		return false
	}
	current, err := reader.Read(ctx, target)
	if err != nil {
		e.logger.Debug("rewriting asset", "path", target, "error", err)
		return false
	}
	return bytes.Equal(current, content)
}

// ManifestPath returns the target path of the server-path manifest.
func (e *Emitter) ManifestPath() string {
	return path.Join(e.roots.NodeRoot, e.options.ManifestName)
}

// WriteManifest writes the result's manifest through the sink.
func (e *Emitter) WriteManifest(ctx context.Context, result *Result) error {
	data, err := json.MarshalIndent(result.Manifest.All(), "", "  ")
	if err != nil {
		return err
	}
	target := e.ManifestPath()
	if err := e.options.Sink.Write(ctx, target, append(data, '\n')); err != nil {
		return rerrors.New("E141").
			WithDetail(fmt.Sprintf("writing %s", target)).
			Wrap(err)
	}
	return nil
}

func (e *Emitter) progress(step string) {
	if e.options.OnProgress != nil {
		e.options.OnProgress(step)
	}
}
