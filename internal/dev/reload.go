package dev

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vango-dev/approutes/pkg/project"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// ReloadEvent reports the routes after a batch of changes.
type ReloadEvent struct {
	// Snapshot is the consistent state after the changes.
	Snapshot *project.Snapshot

	// RoutesChanged is true when the tree fingerprint differs from the
	// previously reported one. The first event always has it set.
	RoutesChanged bool

	// Changes that triggered the event. Empty for the initial event.
	Changes []Change
}

// ReloaderOptions configures a Reloader.
type ReloaderOptions struct {
	// HostRoot is the host directory of the project's file system root.
	// Defaults to the file system name, which is the host directory for
	// vfs.OS file systems.
	HostRoot string

	// OnReload receives an event whenever routes changed. With
	// ReportUnchanged it also receives events for batches that left the
	// routes as they were.
	OnReload func(ReloadEvent)

	// ReportUnchanged delivers events with RoutesChanged false.
	ReportUnchanged bool

	// OnError receives resolution failures. The reloader keeps running.
	OnError func(error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Reloader invalidates a project on file changes and re-resolves it.
type Reloader struct {
	project *project.Project
	options ReloaderOptions
	logger  *slog.Logger

	mu          sync.Mutex
	fingerprint uint64
	primed      bool
}

// NewReloader creates a reloader for p.
func NewReloader(p *project.Project, options ReloaderOptions) *Reloader {
	if options.HostRoot == "" {
		options.HostRoot = p.AppDir().FileSystem().Name()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{project: p, options: options, logger: logger}
}

// Prime resolves the project and reports the initial routes.
func (r *Reloader) Prime(ctx context.Context) error {
	return r.reload(ctx, nil)
}

// Handle applies a batch of changes. Content-only changes leave directory
// listings intact and are skipped.
func (r *Reloader) Handle(ctx context.Context, changes []Change) error {
	invalidated := false
	for _, change := range changes {
		if change.Type != ChangeStructure {
			continue
		}
		path, ok := r.toProjectPath(change.Path)
		if !ok {
			r.logger.Debug("change outside project", "path", change.Path)
			continue
		}
		r.project.Invalidate(path)
		invalidated = true
	}
	if !invalidated {
		return nil
	}
	return r.reload(ctx, changes)
}

func (r *Reloader) toProjectPath(hostPath string) (vfs.Path, bool) {
	rel, err := filepath.Rel(r.options.HostRoot, hostPath)
	if err != nil {
		return vfs.Path{}, false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return vfs.Path{}, false
	}
	return r.project.AppDir().FileSystem().Path(rel), true
}

func (r *Reloader) reload(ctx context.Context, changes []Change) error {
	snap, err := r.project.Snapshot(ctx)
	if err != nil {
		r.logger.Error("failed to resolve routes", "error", err)
		if r.options.OnError != nil {
			r.options.OnError(err)
		}
		return err
	}

	r.mu.Lock()
	changed := !r.primed || snap.Fingerprint != r.fingerprint
	r.primed = true
	r.fingerprint = snap.Fingerprint
	r.mu.Unlock()

	if !changed {
		r.logger.Debug("routes unchanged", "changes", len(changes))
		if !r.options.ReportUnchanged {
			return nil
		}
	} else {
		r.logger.Info("routes changed",
			"entrypoints", snap.Resolution.Entrypoints.Len(),
			"issues", len(snap.Resolution.Issues))
	}

	if r.options.OnReload != nil {
		r.options.OnReload(ReloadEvent{
			Snapshot:      snap,
			RoutesChanged: changed,
			Changes:       changes,
		})
	}
	return nil
}

// Watch primes r and then handles every batch from w until ctx is done or
// the watcher stops.
func Watch(ctx context.Context, w *Watcher, r *Reloader) error {
	if err := r.Prime(ctx); err != nil {
		return err
	}
	w.OnChange(func(changes []Change) {
		// Failures are reported through OnError; watching continues.
		_ = r.Handle(ctx, changes)
	})
	return w.Start(ctx)
}
