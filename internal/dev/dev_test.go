package dev

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/approutes/internal/config"
	"github.com/vango-dev/approutes/pkg/project"
)

func startWatcher(t *testing.T, cfg WatcherConfig) (*Watcher, chan []Change) {
	t.Helper()
	watcher := NewWatcher(cfg)

	changes := make(chan []Change, 10)
	watcher.OnChange(func(c []Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go watcher.Start(ctx)

	select {
	case <-watcher.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not become ready")
	}
	return watcher, changes
}

func TestWatcher_NewFile(t *testing.T) {
	tmpDir := t.TempDir()
	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	newFile := filepath.Join(tmpDir, "page.tsx")
	if err := os.WriteFile(newFile, []byte("export default 1"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-changes:
		if len(batch) != 1 {
			t.Fatalf("Expected one change, got %v", batch)
		}
		if batch[0].Type != ChangeStructure {
			t.Errorf("Expected structure change, got %v", batch[0].Type)
		}
		if batch[0].Path != newFile {
			t.Errorf("Expected path %q, got %q", newFile, batch[0].Path)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for new file change")
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	tmpDir := t.TempDir()
	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	sub := filepath.Join(tmpDir, "blog")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for directory change")
	}

	nested := filepath.Join(sub, "page.tsx")
	if err := os.WriteFile(nested, nil, 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case batch := <-changes:
		if batch[0].Path != nested {
			t.Errorf("Expected path %q, got %q", nested, batch[0].Path)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for change in new directory")
	}
}

func TestWatcher_Ignore(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{tmpDir},
		Ignore: []string{"*.swp", "node_modules"},
	})

	if !watcher.shouldIgnore(filepath.Join(tmpDir, "page.tsx.swp")) {
		t.Error("Should ignore *.swp files")
	}
	if !watcher.shouldIgnore(filepath.Join(tmpDir, "node_modules", "lib.js")) {
		t.Error("Should ignore node_modules directory")
	}
	if watcher.shouldIgnore(filepath.Join(tmpDir, "page.tsx")) {
		t.Error("Should not ignore page.tsx")
	}
}

func TestWatcher_IgnoreSegments(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{"."},
		Ignore: []string{"tmp"},
	})

	if !watcher.shouldIgnore(filepath.Join("foo", "tmp", "bar.tsx")) {
		t.Error("Should ignore tmp directory segment")
	}
	if watcher.shouldIgnore(filepath.Join("foo", "attempt.tsx")) {
		t.Error("Should not ignore substring match")
	}
}

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want ChangeType
	}{
		{fsnotify.Create, ChangeStructure},
		{fsnotify.Remove, ChangeStructure},
		{fsnotify.Rename, ChangeStructure},
		{fsnotify.Write, ChangeContent},
		{fsnotify.Write | fsnotify.Create, ChangeStructure},
	}

	for _, tt := range tests {
		got := classifyChange(tt.op)
		if got != tt.want {
			t.Errorf("classifyChange(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_IsRunning(t *testing.T) {
	watcher, _ := startWatcher(t, WatcherConfig{Paths: []string{t.TempDir()}})

	if !watcher.IsRunning() {
		t.Error("Watcher should be running")
	}
	watcher.Stop()
	if watcher.IsRunning() {
		t.Error("Watcher should not be running after Stop")
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{Paths: []string{filepath.Join(t.TempDir(), "missing")}})
	if err := watcher.Start(context.Background()); err == nil {
		t.Error("Start should fail for a missing path")
	}
}

func TestCollectWatchPaths(t *testing.T) {
	cfg := config.New()
	cfg.SetDir("/project")

	got := CollectWatchPaths(cfg, "app", "/project/app/", "", "/abs")
	want := []string{filepath.Join("/project", "app"), "/abs"}
	if len(got) != len(want) {
		t.Fatalf("CollectWatchPaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CollectWatchPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	cfg.Watch.Ignore = []string{"drafts"}
	patterns := IgnorePatterns(cfg)
	if patterns[len(patterns)-1] != "drafts" {
		t.Errorf("IgnorePatterns = %v, want configured pattern last", patterns)
	}
	if len(patterns) != len(DefaultIgnore)+1 {
		t.Errorf("IgnorePatterns has %d entries, want %d", len(patterns), len(DefaultIgnore)+1)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []ReloadEvent
}

func (r *recorder) record(ev ReloadEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []ReloadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReloadEvent(nil), r.events...)
}

func newReloaderProject(t *testing.T) (string, *project.Project) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "app"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app", "page.tsx"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := project.Open(dir, project.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return dir, p
}

func TestReloader(t *testing.T) {
	dir, p := newReloaderProject(t)
	rec := &recorder{}
	r := NewReloader(p, ReloaderOptions{OnReload: rec.record})
	ctx := context.Background()

	if err := r.Prime(ctx); err != nil {
		t.Fatalf("Prime error: %v", err)
	}

	// A content write is skipped without resolving.
	page := filepath.Join(dir, "app", "page.tsx")
	os.WriteFile(page, []byte("changed"), 0644)
	if err := r.Handle(ctx, []Change{{Path: page, Type: ChangeContent}}); err != nil {
		t.Fatal(err)
	}

	// A structural change that leaves routes as they were is not reported.
	if err := r.Handle(ctx, []Change{{Path: page, Type: ChangeStructure}}); err != nil {
		t.Fatal(err)
	}

	blog := filepath.Join(dir, "app", "blog")
	os.MkdirAll(blog, 0755)
	os.WriteFile(filepath.Join(blog, "page.tsx"), nil, 0644)
	if err := r.Handle(ctx, []Change{{Path: blog, Type: ChangeStructure}}); err != nil {
		t.Fatal(err)
	}

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].RoutesChanged || len(events[0].Changes) != 0 {
		t.Errorf("initial event = %+v", events[0])
	}
	keys := events[1].Snapshot.Resolution.Entrypoints.Keys()
	if len(keys) != 2 || keys[1] != "/blog" {
		t.Errorf("entrypoints after change = %v, want [/ /blog]", keys)
	}
}

func TestReloader_ReportUnchanged(t *testing.T) {
	dir, p := newReloaderProject(t)
	rec := &recorder{}
	r := NewReloader(p, ReloaderOptions{OnReload: rec.record, ReportUnchanged: true})
	ctx := context.Background()

	r.Prime(ctx)
	r.Handle(ctx, []Change{{Path: filepath.Join(dir, "app", "page.tsx"), Type: ChangeStructure}})

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].RoutesChanged {
		t.Error("second event should report unchanged routes")
	}
}

func TestReloader_OutsideProject(t *testing.T) {
	_, p := newReloaderProject(t)
	r := NewReloader(p, ReloaderOptions{})
	before := p.Generation()

	r.Handle(context.Background(), []Change{{Path: "/elsewhere/page.tsx", Type: ChangeStructure}})
	if p.Generation() != before {
		t.Error("changes outside the project must not invalidate")
	}
}

func TestWatchEndToEnd(t *testing.T) {
	dir, p := newReloaderProject(t)
	events := make(chan ReloadEvent, 10)
	r := NewReloader(p, ReloaderOptions{OnReload: func(ev ReloadEvent) { events <- ev }})
	w := NewWatcher(WatcherConfig{
		Paths:    []string{filepath.Join(dir, "app")},
		Debounce: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, w, r)

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for initial event")
	}
	<-w.Ready()

	if err := os.WriteFile(filepath.Join(dir, "app", "route.ts"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if !ev.RoutesChanged {
			t.Error("Expected routes to change")
		}
		if len(ev.Snapshot.Resolution.Issues) != 1 {
			t.Errorf("Expected one page/route conflict, got %v", ev.Snapshot.Resolution.Issues)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for reload")
	}
}
