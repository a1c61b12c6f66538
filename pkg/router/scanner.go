package router

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/approutes/pkg/routepath"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// staticLocalMetadata lists the extensions accepted for static metadata
// files in any segment.
var staticLocalMetadata = map[string][]string{
	"icon":            {"ico", "jpg", "jpeg", "png", "svg"},
	"apple-icon":      {"jpg", "jpeg", "png"},
	"opengraph-image": {"jpg", "jpeg", "png", "gif"},
	"twitter-image":   {"jpg", "jpeg", "png", "gif"},
	"favicon":         {"ico"},
	"manifest":        {"webmanifest", "json"},
}

// staticGlobalMetadata lists the extensions accepted for static metadata
// files at the app root.
var staticGlobalMetadata = map[string][]string{
	"favicon": {"ico"},
	"robots":  {"txt"},
	"sitemap": {"xml"},
}

// noSuffix sorts before any numeric suffix.
const noSuffix = -1

var numericSuffix = regexp.MustCompile(`^(.*?)(\d*)$`)

// metadataMatch is the result of matching a file name against the metadata
// naming conventions.
type metadataMatch struct {
	kind    string
	num     int
	dynamic bool
}

// matchMetadataFile splits "icon12.png" into ("icon", 12) and checks the
// extension against the page extensions (dynamic) or the static table.
func matchMetadataFile(basename string, pageExtensions []string) (metadataMatch, bool) {
	stem, ext, ok := strings.Cut(basename, ".")
	if !ok {
		return metadataMatch{}, false
	}

	m := numericSuffix.FindStringSubmatch(stem)
	base := m[1]
	num := noSuffix
	if m[2] != "" {
		if n, err := strconv.ParseInt(m[2], 10, 32); err == nil {
			num = int(n)
		}
	}

	if slices.Contains(pageExtensions, ext) {
		return metadataMatch{kind: base, num: num, dynamic: true}, true
	}
	exts, ok := staticLocalMetadata[base]
	if !ok || !slices.Contains(exts, ext) {
		return metadataMatch{}, false
	}
	return metadataMatch{kind: base, num: num}, true
}

type numberedItem struct {
	num  int
	item MetadataWithAltItem
}

// directoryScan is the classification of one directory listing.
type directoryScan struct {
	components     *Components
	subdirectories []scannedSubdirectory
}

type scannedSubdirectory struct {
	name string
	path vfs.Path
}

// scanDirectory classifies the immediate entries of one directory.
// Files are assigned to component slots or metadata lists; subdirectories
// that are not private are returned for recursion, keyed by their
// unescaped name. Symlinks and unrecognized files are ignored.
func scanDirectory(entries []vfs.Entry, pageExtensions []string) directoryScan {
	components := &Components{}

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Type == vfs.File {
			files[e.Name] = true
		}
	}

	var icon, apple, openGraph, twitter, favicon []numberedItem
	var subdirectories []scannedSubdirectory

	for _, entry := range entries {
		switch entry.Type {
		case vfs.File:
			file := entry.Path

			if stem, ext, ok := strings.Cut(entry.Name, "."); ok && slices.Contains(pageExtensions, ext) {
				switch stem {
				case "page":
					components.Page = &file
				case "layout":
					components.Layout = &file
				case "error":
					components.Error = &file
				case "loading":
					components.Loading = &file
				case "template":
					components.Template = &file
				case "not-found":
					components.NotFound = &file
				case "default":
					components.Default = &file
				case "route":
					components.Route = &file
				case "manifest":
					components.Metadata.Manifest = &MetadataItem{Kind: MetadataDynamic, Path: file}
					continue
				}
			}

			match, ok := matchMetadataFile(entry.Name, pageExtensions)
			if !ok {
				continue
			}

			if match.kind == "manifest" {
				if match.num == noSuffix {
					components.Metadata.Manifest = &MetadataItem{Kind: MetadataStatic, Path: file}
				}
				continue
			}

			var list *[]numberedItem
			switch match.kind {
			case "icon":
				list = &icon
			case "apple-icon":
				list = &apple
			case "twitter-image":
				list = &twitter
			case "opengraph-image":
				list = &openGraph
			case "favicon":
				list = &favicon
			default:
				continue
			}

			item := MetadataWithAltItem{Kind: MetadataDynamic, Path: file}
			if !match.dynamic {
				item.Kind = MetadataStatic
				altName := altFileName(entry.Name)
				if files[altName] {
					alt := file.Parent().Join(altName)
					item.AltPath = &alt
				}
			}
			*list = append(*list, numberedItem{num: match.num, item: item})

		case vfs.Directory:
			if routepath.IsPrivate(entry.Name) {
				continue
			}
			subdirectories = append(subdirectories, scannedSubdirectory{
				name: routepath.UnescapeSegment(entry.Name),
				path: entry.Path,
			})

		default:
			// TODO: follow symlinks once the file system layer reports their targets.
		}
	}

	components.Metadata.Icon = sortNumbered(icon)
	components.Metadata.Apple = sortNumbered(apple)
	components.Metadata.Twitter = sortNumbered(twitter)
	components.Metadata.OpenGraph = sortNumbered(openGraph)
	components.Metadata.Favicon = sortNumbered(favicon)

	return directoryScan{
		components:     components,
		subdirectories: subdirectories,
	}
}

// altFileName returns the sidecar name for a static image:
// "icon1.png" → "icon1.alt.txt".
func altFileName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	return name + ".alt.txt"
}

// sortNumbered orders items by numeric suffix, keeping discovery order for
// ties, and drops the sort key.
func sortNumbered(list []numberedItem) []MetadataWithAltItem {
	if len(list) == 0 {
		return nil
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].num < list[j].num
	})
	items := make([]MetadataWithAltItem, len(list))
	for i, n := range list {
		items[i] = n.item
	}
	return items
}

// scanGlobalMetadata classifies the root-only metadata files. A static
// match always takes precedence over a dynamic one for the same slot.
func scanGlobalMetadata(entries []vfs.Entry, pageExtensions []string) *GlobalMetadata {
	metadata := &GlobalMetadata{}

	for _, entry := range entries {
		if entry.Type != vfs.File {
			continue
		}
		stem, ext, ok := strings.Cut(entry.Name, ".")
		if !ok {
			continue
		}

		var slot **MetadataItem
		switch stem {
		case "favicon":
			slot = &metadata.Favicon
		case "sitemap":
			slot = &metadata.Sitemap
		case "robots":
			slot = &metadata.Robots
		default:
			continue
		}

		if slices.Contains(pageExtensions, ext) {
			if *slot == nil || (*slot).Kind == MetadataDynamic {
				*slot = &MetadataItem{Kind: MetadataDynamic, Path: entry.Path}
			}
		}
		if slices.Contains(staticGlobalMetadata[stem], ext) {
			*slot = &MetadataItem{Kind: MetadataStatic, Path: entry.Path}
		}
	}

	return metadata
}
