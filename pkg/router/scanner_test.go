package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/approutes/pkg/vfs"
)

func TestMatchMetadataFile(t *testing.T) {
	tests := []struct {
		name    string
		want    metadataMatch
		matched bool
	}{
		{"icon.png", metadataMatch{kind: "icon", num: noSuffix}, true},
		{"icon12.png", metadataMatch{kind: "icon", num: 12}, true},
		{"icon.tsx", metadataMatch{kind: "icon", num: noSuffix, dynamic: true}, true},
		{"apple-icon3.jpg", metadataMatch{kind: "apple-icon", num: 3}, true},
		{"opengraph-image.gif", metadataMatch{kind: "opengraph-image", num: noSuffix}, true},
		{"manifest.webmanifest", metadataMatch{kind: "manifest", num: noSuffix}, true},
		{"icon99999999999.png", metadataMatch{kind: "icon", num: noSuffix}, true},
		{"icon.gif", metadataMatch{}, false},
		{"logo.png", metadataMatch{}, false},
		{"icon", metadataMatch{}, false},
		{"icon.alt.txt", metadataMatch{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchMetadataFile(tt.name, testExtensions)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanDirectorySlots(t *testing.T) {
	app := testApp(t,
		"page.tsx", "layout.tsx", "error.tsx", "loading.tsx", "template.tsx",
		"not-found.tsx", "default.tsx", "route.ts", "README.md", "page.css",
		"manifest.ts",
	)
	entries, err := app.ReadDir()
	require.NoError(t, err)

	scan := scanDirectory(entries, testExtensions)
	c := scan.components

	slots := map[string]*vfs.Path{
		"page.tsx":      c.Page,
		"layout.tsx":    c.Layout,
		"error.tsx":     c.Error,
		"loading.tsx":   c.Loading,
		"template.tsx":  c.Template,
		"not-found.tsx": c.NotFound,
		"default.tsx":   c.Default,
		"route.ts":      c.Route,
	}
	for name, slot := range slots {
		if assert.NotNil(t, slot, name) {
			assert.Equal(t, name, slot.Base())
		}
	}

	require.NotNil(t, c.Metadata.Manifest)
	assert.Equal(t, MetadataDynamic, c.Metadata.Manifest.Kind)
	assert.Equal(t, "manifest.ts", c.Metadata.Manifest.Path.Base())
	assert.Empty(t, scan.subdirectories)
}

func TestScanDirectoryMetadataOrder(t *testing.T) {
	app := testApp(t, "icon2.png", "icon.png", "icon10.png", "icon1.png", "icon3.tsx")
	entries, err := app.ReadDir()
	require.NoError(t, err)

	scan := scanDirectory(entries, testExtensions)
	assert.Equal(t,
		[]string{"icon.png", "icon1.png", "icon2.png", "icon3.tsx", "icon10.png"},
		names(scan.components.Metadata.Icon))

	for _, item := range scan.components.Metadata.Icon {
		want := MetadataStatic
		if item.Path.Base() == "icon3.tsx" {
			want = MetadataDynamic
		}
		assert.Equal(t, want, item.Kind, item.Path.Base())
	}
}

func TestScanDirectoryAltText(t *testing.T) {
	app := testApp(t,
		"opengraph-image.png", "opengraph-image.alt.txt",
		"twitter-image1.jpg",
		"twitter-image2.tsx", "twitter-image2.alt.txt",
	)
	entries, err := app.ReadDir()
	require.NoError(t, err)

	meta := scanDirectory(entries, testExtensions).components.Metadata

	require.Len(t, meta.OpenGraph, 1)
	require.NotNil(t, meta.OpenGraph[0].AltPath)
	assert.Equal(t, "app/opengraph-image.alt.txt", meta.OpenGraph[0].AltPath.Name())

	require.Len(t, meta.Twitter, 2)
	assert.Nil(t, meta.Twitter[0].AltPath, "static image without sidecar")
	assert.Nil(t, meta.Twitter[1].AltPath, "dynamic images never carry alt text")
}

func TestScanDirectoryManifest(t *testing.T) {
	app := testApp(t, "manifest.webmanifest", "manifest1.json")
	entries, err := app.ReadDir()
	require.NoError(t, err)

	meta := scanDirectory(entries, testExtensions).components.Metadata
	require.NotNil(t, meta.Manifest)
	assert.Equal(t, MetadataStatic, meta.Manifest.Kind)
	assert.Equal(t, "manifest.webmanifest", meta.Manifest.Path.Base())
}

func TestScanDirectorySubdirectories(t *testing.T) {
	app := testApp(t,
		"blog/page.tsx",
		"_components/button.tsx",
		"%5Fescaped/page.tsx",
		"(group)/page.tsx",
	)
	entries, err := app.ReadDir()
	require.NoError(t, err)

	var got []string
	for _, sub := range scanDirectory(entries, testExtensions).subdirectories {
		got = append(got, sub.name)
	}
	assert.ElementsMatch(t, []string{"blog", "_escaped", "(group)"}, got)
}

func TestScanGlobalMetadata(t *testing.T) {
	app := testApp(t, "favicon.ico", "robots.ts", "robots.txt", "sitemap.ts", "icon.png")

	global, err := BuildGlobalMetadata(app, testExtensions)
	require.NoError(t, err)

	require.NotNil(t, global.Favicon)
	assert.Equal(t, MetadataStatic, global.Favicon.Kind)

	require.NotNil(t, global.Robots)
	assert.Equal(t, MetadataStatic, global.Robots.Kind, "static overrides dynamic")
	assert.Equal(t, "robots.txt", global.Robots.Path.Base())

	require.NotNil(t, global.Sitemap)
	assert.Equal(t, MetadataDynamic, global.Sitemap.Kind)
	assert.False(t, global.IsEmpty())
}

func TestScanGlobalMetadataStaticFirst(t *testing.T) {
	// The dynamic candidate is listed after the static one.
	app := testApp(t, "sitemap.xml", "sitemap.xsl.ts")
	global, err := BuildGlobalMetadata(app, []string{"xsl.ts"})
	require.NoError(t, err)

	require.NotNil(t, global.Sitemap)
	assert.Equal(t, MetadataStatic, global.Sitemap.Kind)
	assert.Equal(t, "sitemap.xml", global.Sitemap.Path.Base())
}
