package routepath

import (
	"fmt"
	"strings"

	"github.com/vango-dev/approutes/pkg/vfs"
)

// Directory naming conventions.
const (
	privatePrefix    = "_"
	parallelPrefix   = "@"
	escapedUnderline = "%5F"
)

// IsPrivate reports whether a directory name opts out of routing.
// Private directories start with an underscore.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, privatePrefix)
}

// IsRouteGroup reports whether name is a route group, e.g. "(marketing)".
// Route groups organize files without adding a URL segment.
func IsRouteGroup(name string) bool {
	return strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")")
}

// IsParallelRoute reports whether name is a parallel route slot, e.g. "@modal".
func IsParallelRoute(name string) bool {
	return strings.HasPrefix(name, parallelPrefix)
}

// ParallelRouteKey returns the slot name of a parallel route directory
// ("@modal" → "modal").
func ParallelRouteKey(name string) (string, bool) {
	return strings.CutPrefix(name, parallelPrefix)
}

// UnescapeSegment replaces every "%5F" with "_", so a directory can produce
// a literal leading underscore without becoming private.
func UnescapeSegment(name string) string {
	return strings.ReplaceAll(name, escapedUnderline, "_")
}

// ExtendsURL reports whether a directory contributes a URL segment.
func ExtendsURL(name string) bool {
	return !IsRouteGroup(name) && !IsParallelRoute(name)
}

// Join appends one segment to an absolute route path.
func Join(prefix, segment string) string {
	if prefix == "/" || prefix == "" {
		return "/" + segment
	}
	return prefix + "/" + segment
}

// AssetPrefixFromPathname maps a route pathname to the prefix used for its
// build output files: "/" becomes "/index" and paths under "/index" gain an
// extra "/index" so they cannot collide with the root.
func AssetPrefixFromPathname(pathname string) string {
	switch {
	case pathname == "/":
		return "/index"
	case pathname == "/index" || strings.HasPrefix(pathname, "/index/"):
		return "/index" + pathname
	default:
		return pathname
	}
}

// AssetPathFromPathname returns the output file path for pathname with ext.
func AssetPathFromPathname(pathname, ext string) string {
	return AssetPrefixFromPathname(pathname) + ext
}

// PathKind selects how PathnameForServerPath treats the root.
type PathKind int

const (
	PagesPage PathKind = iota
	PagesAPI
	Data
)

// PathnameForServerPath converts a file inside serverRoot into a route
// pathname. For data paths the root itself maps to "/index".
func PathnameForServerPath(serverRoot, serverPath string, kind PathKind) (string, error) {
	rel, ok := vfs.Rel(serverRoot, serverPath)
	if !ok {
		return "", fmt.Errorf("server path (%s) is not in server root (%s)", serverPath, serverRoot)
	}
	if kind == Data && rel == "" {
		return "/index", nil
	}
	return "/" + rel, nil
}
