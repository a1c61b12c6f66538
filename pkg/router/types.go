package router

import (
	"github.com/vango-dev/approutes/pkg/vfs"
)

// Components holds the special files found in one directory.
// Each slot is nil when the directory has no such file.
type Components struct {
	Page     *vfs.Path `json:"page,omitempty"`
	Layout   *vfs.Path `json:"layout,omitempty"`
	Error    *vfs.Path `json:"error,omitempty"`
	Loading  *vfs.Path `json:"loading,omitempty"`
	Template *vfs.Path `json:"template,omitempty"`
	NotFound *vfs.Path `json:"notFound,omitempty"`
	Default  *vfs.Path `json:"default,omitempty"`
	Route    *vfs.Path `json:"route,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// WithoutLeafs returns a copy without the slots that only make sense on the
// deepest node of a loader tree (page, default and route).
func (c *Components) WithoutLeafs() *Components {
	return &Components{
		Layout:   c.Layout,
		Error:    c.Error,
		Loading:  c.Loading,
		Template: c.Template,
		NotFound: c.NotFound,
		Metadata: c.Metadata,
	}
}

// IsEmpty reports whether no slot is set.
func (c *Components) IsEmpty() bool {
	return c.Page == nil && c.Layout == nil && c.Error == nil && c.Loading == nil &&
		c.Template == nil && c.NotFound == nil && c.Default == nil && c.Route == nil &&
		c.Metadata.IsEmpty()
}

// MergeComponents combines two component sets field by field. a wins where
// both have a value; metadata lists are concatenated with a's entries first.
func MergeComponents(a, b *Components) *Components {
	return &Components{
		Page:     firstPath(a.Page, b.Page),
		Layout:   firstPath(a.Layout, b.Layout),
		Error:    firstPath(a.Error, b.Error),
		Loading:  firstPath(a.Loading, b.Loading),
		Template: firstPath(a.Template, b.Template),
		NotFound: firstPath(a.NotFound, b.NotFound),
		Default:  firstPath(a.Default, b.Default),
		Route:    firstPath(a.Route, b.Route),
		Metadata: MergeMetadata(a.Metadata, b.Metadata),
	}
}

func firstPath(a, b *vfs.Path) *vfs.Path {
	if a != nil {
		return a
	}
	return b
}

// MetadataKind tells whether a metadata file is served as-is or generated
// by executing it.
type MetadataKind int

const (
	MetadataStatic MetadataKind = iota
	MetadataDynamic
)

func (k MetadataKind) String() string {
	if k == MetadataDynamic {
		return "dynamic"
	}
	return "static"
}

// MarshalText encodes the kind by name.
func (k MetadataKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MetadataItem is a single metadata file.
type MetadataItem struct {
	Kind MetadataKind `json:"kind"`
	Path vfs.Path     `json:"path"`
}

// MetadataWithAltItem is a metadata image, optionally paired with a
// "<name>.alt.txt" sidecar. Dynamic items never carry an alt path.
type MetadataWithAltItem struct {
	Kind    MetadataKind `json:"kind"`
	Path    vfs.Path     `json:"path"`
	AltPath *vfs.Path    `json:"altPath,omitempty"`
}

// Metadata holds the metadata files that may appear in any route segment.
// Each list is ordered by the numeric suffix of the file name.
type Metadata struct {
	Icon      []MetadataWithAltItem `json:"icon,omitempty"`
	Apple     []MetadataWithAltItem `json:"apple,omitempty"`
	Twitter   []MetadataWithAltItem `json:"twitter,omitempty"`
	OpenGraph []MetadataWithAltItem `json:"openGraph,omitempty"`
	Favicon   []MetadataWithAltItem `json:"favicon,omitempty"`
	Manifest  *MetadataItem         `json:"manifest,omitempty"`
}

// IsEmpty reports whether no metadata file was found.
func (m Metadata) IsEmpty() bool {
	return len(m.Icon) == 0 && len(m.Apple) == 0 && len(m.Twitter) == 0 &&
		len(m.OpenGraph) == 0 && len(m.Favicon) == 0 && m.Manifest == nil
}

// MergeMetadata concatenates the lists of a and b; a's manifest wins.
func MergeMetadata(a, b Metadata) Metadata {
	m := Metadata{
		Icon:      concat(a.Icon, b.Icon),
		Apple:     concat(a.Apple, b.Apple),
		Twitter:   concat(a.Twitter, b.Twitter),
		OpenGraph: concat(a.OpenGraph, b.OpenGraph),
		Favicon:   concat(a.Favicon, b.Favicon),
		Manifest:  a.Manifest,
	}
	if m.Manifest == nil {
		m.Manifest = b.Manifest
	}
	return m
}

func concat(a, b []MetadataWithAltItem) []MetadataWithAltItem {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]MetadataWithAltItem, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// GlobalMetadata holds the metadata files only recognized at the root of
// the app directory.
type GlobalMetadata struct {
	Favicon *MetadataItem `json:"favicon,omitempty"`
	Robots  *MetadataItem `json:"robots,omitempty"`
	Sitemap *MetadataItem `json:"sitemap,omitempty"`
}

// IsEmpty reports whether no global metadata file was found.
func (g *GlobalMetadata) IsEmpty() bool {
	return g.Favicon == nil && g.Robots == nil && g.Sitemap == nil
}
