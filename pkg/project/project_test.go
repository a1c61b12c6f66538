package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/router"
	"github.com/vango-dev/approutes/pkg/vfs"
)

func newProject(t *testing.T, fsys fstest.MapFS, opts Options) *Project {
	t.Helper()
	appDir := vfs.New("project", fsys).Path("app")
	p, err := New(appDir, opts)
	require.NoError(t, err)
	return p
}

func file() *fstest.MapFile { return &fstest.MapFile{} }

func TestEntrypoints(t *testing.T) {
	fsys := fstest.MapFS{
		"app/layout.tsx":          file(),
		"app/page.tsx":            file(),
		"app/blog/page.tsx":       file(),
		"app/api/health/route.ts": file(),
		"app/favicon.ico":         file(),
	}
	p := newProject(t, fsys, Options{})

	res, err := p.Entrypoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/api/health", "/blog"}, res.Entrypoints.Keys())
	assert.Empty(t, res.Issues)

	global, err := p.GlobalMetadata(context.Background())
	require.NoError(t, err)
	require.NotNil(t, global.Favicon)
}

func TestInvalidateRebuildsChangedDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"app/page.tsx":      file(),
		"app/blog/page.tsx": file(),
		"app/shop/page.tsx": file(),
	}
	p := newProject(t, fsys, Options{})
	ctx := context.Background()

	before, err := p.Snapshot(ctx)
	require.NoError(t, err)
	shopBefore := before.Tree.Subdirectory("shop")

	fsys["app/blog/[slug]/page.tsx"] = file()

	// Without invalidation the memoized tree is served.
	stale, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Fingerprint, stale.Fingerprint)

	// The app and app/blog trees plus the global metadata of app.
	n := p.Invalidate(p.AppDir().Join("blog/[slug]"))
	assert.Equal(t, 3, n)

	after, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
	assert.Equal(t, []string{"/", "/blog", "/blog/[slug]", "/shop"}, after.Resolution.Entrypoints.Keys())
	assert.Same(t, shopBefore, after.Tree.Subdirectory("shop"), "unaffected siblings stay memoized")
	assert.Greater(t, after.Generation, before.Generation)
}

func TestInvalidateFile(t *testing.T) {
	fsys := fstest.MapFS{
		"app/page.tsx":      file(),
		"app/blog/page.tsx": file(),
	}
	p := newProject(t, fsys, Options{})
	ctx := context.Background()

	_, err := p.Snapshot(ctx)
	require.NoError(t, err)

	delete(fsys, "app/blog/page.tsx")
	fsys["app/blog/route.ts"] = file()
	p.Invalidate(p.AppDir().Join("blog/page.tsx"))

	res, err := p.Entrypoints(ctx)
	require.NoError(t, err)
	entry, ok := res.Entrypoints.Get("/blog")
	require.True(t, ok)
	assert.IsType(t, &router.AppRoute{}, entry)
}

func TestInvalidateDescendants(t *testing.T) {
	fsys := fstest.MapFS{
		"app/page.tsx":            file(),
		"app/docs/page.tsx":       file(),
		"app/docs/intro/page.tsx": file(),
	}
	p := newProject(t, fsys, Options{})
	ctx := context.Background()

	_, err := p.Tree(ctx)
	require.NoError(t, err)

	// app, app/docs and app/docs/intro are all affected.
	assert.Equal(t, 3, p.Invalidate(p.AppDir().Join("docs")))
}

func TestSnapshotIsConsistent(t *testing.T) {
	fsys := fstest.MapFS{"app/page.tsx": file()}
	p := newProject(t, fsys, Options{})

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.Generation(), snap.Generation)
	assert.Equal(t, snap.Tree.Fingerprint(), snap.Fingerprint)
	assert.NotNil(t, snap.GlobalMetadata)
}

func TestSnapshotCanceled(t *testing.T) {
	p := newProject(t, fstest.MapFS{"app/page.tsx": file()}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPurge(t *testing.T) {
	fsys := fstest.MapFS{"app/page.tsx": file()}
	p := newProject(t, fsys, Options{})
	ctx := context.Background()

	first, err := p.Tree(ctx)
	require.NoError(t, err)
	p.Purge()
	second, err := p.Tree(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := telemetry.New(telemetry.WithRegistry(reg))

	fsys := fstest.MapFS{
		"app/page.tsx":  file(),
		"app/route.ts":  file(),
		"app/a/page.ts": file(),
	}
	p := newProject(t, fsys, Options{Telemetry: tel})

	res, err := p.Entrypoints(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)

	count, err := testutil.GatherAndCount(reg, "approutes_issues_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, 2, p.Invalidate(p.AppDir()))
	expected := `
# HELP approutes_invalidations_total Total number of memoized directories invalidated
# TYPE approutes_invalidations_total counter
approutes_invalidations_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "approutes_invalidations_total"))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "app"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app", "page.tsx"), nil, 0644))

	p, err := Open(dir, Options{PageExtensions: []string{"tsx"}})
	require.NoError(t, err)
	assert.Equal(t, "src/app", p.AppDir().Name())
	assert.Equal(t, []string{"tsx"}, p.PageExtensions())

	res, err := p.Entrypoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, res.Entrypoints.Keys())
}

func TestOpenMissingAppDir(t *testing.T) {
	_, err := Open(t.TempDir(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E102")
}
