package main

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/approutes/internal/config"
	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/routepath"
	"github.com/vango-dev/approutes/pkg/router"
	"github.com/vango-dev/approutes/pkg/vfs"
)

func TestRouteFilter(t *testing.T) {
	filter, err := routeFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = routeFilter([]string{"blog/", "/(shop)//items"})
	require.NoError(t, err)
	assert.True(t, filter["/blog"])
	assert.True(t, filter["/items"])
	assert.False(t, filter["/(shop)/items"])

	filter, err = routeFilter([]string{"/index", "/index/index/docs"})
	require.NoError(t, err)
	assert.True(t, filter["/"])
	assert.True(t, filter["/index"])
	assert.True(t, filter["/index/docs"])

	_, err = routeFilter([]string{"/../etc"})
	assert.ErrorIs(t, err, routepath.ErrEscapesRoot)
}

func TestPageFilesAndMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"app/layout.tsx":               {},
		"app/page.tsx":                 {},
		"app/icon.png":                 {},
		"app/blog/opengraph-image.png": {},
		"app/blog/page.tsx":            {},
	}
	appDir := vfs.New("site", fsys).Path("app")
	ctx := context.Background()

	tree, err := router.BuildTree(ctx, appDir, []string{"tsx"})
	require.NoError(t, err)
	res, err := router.ResolveEntrypoints(ctx, appDir, tree)
	require.NoError(t, err)

	entry, ok := res.Entrypoints.Get("/")
	require.True(t, ok)
	page, ok := entry.(*router.AppPage)
	require.True(t, ok)
	files := pageFiles(page.LoaderTree)
	assert.Equal(t, []string{"app/page.tsx"}, files)

	dirs := collectMetadata("app", tree, nil)
	require.Len(t, dirs, 2)
	assert.Equal(t, "app", dirs[0].Dir)
	assert.Len(t, dirs[0].Metadata.Icon, 1)
	assert.Equal(t, "app/blog", dirs[1].Dir)
	assert.Len(t, dirs[1].Metadata.OpenGraph, 1)
}

func TestCountErrors(t *testing.T) {
	assert.Equal(t, 1, countErrors(errors.New("one")))
	assert.Equal(t, 2, countErrors(errors.Join(errors.New("a"), errors.New("b"))))
}

func TestCurrentVersionReportsDefaults(t *testing.T) {
	v := currentVersion()
	assert.Equal(t, version, v.Version)
	assert.Equal(t, config.DefaultPageExtensions, v.PageExtensions)
	assert.Equal(t, config.ConfigFileNames, v.ConfigFiles)
	assert.Equal(t, router.DefaultNotFoundComponent, v.NotFoundComponent)

	v.PageExtensions[0] = "mdx"
	assert.NotEqual(t, "mdx", config.DefaultPageExtensions[0])

	assert.Equal(t, ".tsx .ts .jsx .js", extensionList(config.DefaultPageExtensions))
	assert.Empty(t, extensionList(nil))
}

func TestTelemetryOptionsFromConfig(t *testing.T) {
	registry := prometheus.NewRegistry()
	tel := telemetry.New(telemetryOptions(config.MetricsConfig{
		Namespace: "site",
		Subsystem: "routes",
		Labels:    map[string]string{"project": "shop"},
		Buckets:   []float64{0.01, 0.1, 1},
		Tracer:    "shop-routes",
	}, registry)...)

	_, span := tel.Start(context.Background(), "router.Resolve")
	span.End(nil)

	families, err := registry.Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, family := range families {
		byName[family.GetName()] = family
	}

	duration, ok := byName["site_routes_operation_duration_seconds"]
	require.True(t, ok)
	metric := duration.GetMetric()[0]
	assert.Len(t, metric.GetHistogram().GetBucket(), 3)

	labels := map[string]string{}
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, map[string]string{"project": "shop", "operation": "router.Resolve"}, labels)
}
