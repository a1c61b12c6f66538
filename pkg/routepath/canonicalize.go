package routepath

import (
	"errors"
	"strings"
)

// Errors returned by EntrypointKey.
var (
	ErrBackslash     = errors.New("route path contains backslash")
	ErrNullByte      = errors.New("route path contains null byte")
	ErrPercentEscape = errors.New("route path has an invalid percent escape")
	ErrEscapesRoot   = errors.New("route path climbs above the root")
)

// EntrypointKey turns a user supplied route path into the key the resolver
// uses for it in an entrypoint table.
//
// Query strings and fragments are dropped, the path is made absolute,
// repeated slashes collapse, and "." and ".." segments resolve. Route group
// and parallel slot segments are removed since they never reach a URL, so
// "/(shop)/@modal/cart" and "/cart" name the same entrypoint. "%5F" decodes
// to "_" the same way it does in directory names.
func EntrypointKey(input string) (string, error) {
	path := input
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	if strings.Contains(path, `\`) {
		return "", ErrBackslash
	}
	if strings.Contains(path, "\x00") {
		return "", ErrNullByte
	}
	if err := checkEscapes(path); err != nil {
		return "", err
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", ErrEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, UnescapeSegment(seg))
		}
	}

	key := "/"
	for _, seg := range segments {
		if ExtendsURL(seg) {
			key = Join(key, seg)
		}
	}
	return key, nil
}

// PathnameFromAssetPrefix reverses AssetPrefixFromPathname.
func PathnameFromAssetPrefix(prefix string) string {
	switch {
	case prefix == "/index":
		return "/"
	case prefix == "/index/index" || strings.HasPrefix(prefix, "/index/index/"):
		return strings.TrimPrefix(prefix, "/index")
	default:
		return prefix
	}
}

func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrPercentEscape
		}
		if path[i+1] == '0' && path[i+2] == '0' {
			return ErrNullByte
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
