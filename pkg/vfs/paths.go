package vfs

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IsInside reports whether the slash path p equals root or lies beneath it.
// Both paths are compared textually; callers pass cleaned paths.
func IsInside(p, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return strings.HasPrefix(p, "/")
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

// Rel returns p relative to root ("" when they are equal), or false when p
// is outside root.
func Rel(root, p string) (string, bool) {
	if !IsInside(p, root) {
		return "", false
	}
	root = strings.TrimSuffix(root, "/")
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/"), true
}

// Rebase substitutes the prefix from with to, preserving the suffix of p.
func Rebase(p, from, to string) (string, bool) {
	rel, ok := Rel(from, p)
	if !ok {
		return "", false
	}
	to = strings.TrimSuffix(to, "/")
	if rel == "" {
		return to, true
	}
	return to + "/" + rel, true
}

// Fingerprint hashes a directory listing (names and entry types).
// Listings that differ only in file contents hash equally.
func Fingerprint(entries []Entry) uint64 {
	d := xxhash.New()
	for _, e := range entries {
		d.WriteString(e.Name)
		d.Write([]byte{0, byte(e.Type), 0})
	}
	return d.Sum64()
}
