package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	rerrors "github.com/vango-dev/approutes/internal/errors"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// graphFile is the on-disk asset graph format:
//
//	{
//	  "assets": [
//	    {"path": "/out/server/app/page.js", "source": "build/page.js", "references": ["/out/static/chunk.js"]},
//	    {"path": "/out/static/chunk.js", "content": "console.log(1)"}
//	  ],
//	  "entries": ["/out/server/app/page.js"]
//	}
type graphFile struct {
	Assets  []graphAsset `json:"assets"`
	Entries []string     `json:"entries"`
}

type graphAsset struct {
	Path       string   `json:"path"`
	Source     string   `json:"source,omitempty"`
	Content    *string  `json:"content,omitempty"`
	References []string `json:"references,omitempty"`
}

// Graph is a loaded asset graph.
type Graph struct {
	// Entries are the roots to walk from, in file order.
	Entries []OutputAsset

	// Assets are all declared assets, in file order.
	Assets []OutputAsset
}

// LoadGraph decodes an asset graph. Source paths are read lazily through
// base; inline content is used as-is. Cycles are allowed.
func LoadGraph(r io.Reader, base vfs.Path) (*Graph, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var file graphFile
	if err := dec.Decode(&file); err != nil {
		return nil, rerrors.New("E142").Wrap(err)
	}

	byPath := make(map[string]*FileAsset, len(file.Assets))
	graph := &Graph{}
	for _, ga := range file.Assets {
		if ga.Path == "" {
			return nil, rerrors.New("E142").WithDetail("asset without a path")
		}
		if _, dup := byPath[ga.Path]; dup {
			return nil, rerrors.New("E142").WithDetail(fmt.Sprintf("duplicate asset %s", ga.Path))
		}
		if ga.Source != "" && ga.Content != nil {
			return nil, rerrors.New("E142").WithDetail(fmt.Sprintf("asset %s has both source and content", ga.Path))
		}

		var content ContentFunc
		switch {
		case ga.Content != nil:
			data := []byte(*ga.Content)
			content = func(context.Context) ([]byte, error) { return data, nil }
		case ga.Source != "":
			source := base.Join(ga.Source)
			content = func(context.Context) ([]byte, error) {
				data, err := source.Read()
				if err != nil {
					return nil, rerrors.New("E140").
						WithDetail(fmt.Sprintf("reading %s", source)).
						Wrap(err)
				}
				return data, nil
			}
		}

		asset := NewFileAsset(ga.Path, content)
		byPath[ga.Path] = asset
		graph.Assets = append(graph.Assets, asset)
	}

	for _, ga := range file.Assets {
		asset := byPath[ga.Path]
		for _, ref := range ga.References {
			target, ok := byPath[ref]
			if !ok {
				return nil, rerrors.New("E142").
					WithDetail(fmt.Sprintf("%s references unknown asset %s", ga.Path, ref))
			}
			asset.AddReference(target)
		}
	}

	for _, entry := range file.Entries {
		target, ok := byPath[entry]
		if !ok {
			return nil, rerrors.New("E142").
				WithDetail(fmt.Sprintf("unknown entry %s", entry))
		}
		graph.Entries = append(graph.Entries, target)
	}

	return graph, nil
}

// LoadGraphFile reads an asset graph from a file on the host.
func LoadGraphFile(path string, base vfs.Path) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.New("E142").WithLocation(path, 0, 0).Wrap(err)
	}
	graph, err := LoadGraph(bytes.NewReader(data), base)
	if err != nil {
		if re, ok := err.(*rerrors.RouteError); ok {
			re.WithLocation(path, 0, 0)
		}
		return nil, err
	}
	return graph, nil
}
