// Package assets models build output artifacts and their dependency graph.
//
// An OutputAsset has an identity path and references to the assets it
// depends on. Reachable walks the graph from a set of entries and returns
// every distinct asset once, dependencies first:
//
//	graph, err := assets.LoadGraphFile("graph.json", vfs.OS(".").Root())
//	all, err := assets.Reachable(ctx, graph.Entries)
//	paths := assets.ServerPaths(all, "/out/server")
//
// The server-path Manifest records the content fingerprint of every written
// server asset so a later emission can skip unchanged files.
package assets

import (
	"context"
)

// OutputAsset is a build artifact.
//
// Two assets with the same Path are the same asset; implementations must
// return equal content and references for equal paths.
type OutputAsset interface {
	// Path is the slash-separated identity path of the asset, also its
	// default write location.
	Path() string

	// References returns the assets this asset depends on.
	References(ctx context.Context) ([]OutputAsset, error)

	// Content returns the bytes to write.
	Content(ctx context.Context) ([]byte, error)
}

// ContentFunc produces asset content on demand.
type ContentFunc func(ctx context.Context) ([]byte, error)

// FileAsset is an OutputAsset with fixed references.
type FileAsset struct {
	path       string
	content    ContentFunc
	references []OutputAsset
}

// NewFileAsset creates an asset at path whose content is produced by content.
func NewFileAsset(path string, content ContentFunc, references ...OutputAsset) *FileAsset {
	return &FileAsset{path: path, content: content, references: references}
}

// StaticAsset creates an asset with fixed content.
func StaticAsset(path string, content []byte, references ...OutputAsset) *FileAsset {
	return NewFileAsset(path, func(context.Context) ([]byte, error) {
		return content, nil
	}, references...)
}

// Path implements OutputAsset.
func (a *FileAsset) Path() string {
	return a.path
}

// References implements OutputAsset.
func (a *FileAsset) References(context.Context) ([]OutputAsset, error) {
	return a.references, nil
}

// Content implements OutputAsset.
func (a *FileAsset) Content(ctx context.Context) ([]byte, error) {
	if a.content == nil {
		return nil, nil
	}
	return a.content(ctx)
}

// AddReference appends a dependency. It must not be called once the asset
// is being walked.
func (a *FileAsset) AddReference(ref OutputAsset) {
	a.references = append(a.references, ref)
}
