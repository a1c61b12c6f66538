// Package vfs provides content-addressed handles into a read-only file system.
//
// A FileSystem wraps an io/fs.FS under a stable identity. Path values are
// small comparable handles (file system + slash-separated name) that can be
// used as map keys and cache keys:
//
//	fsys := vfs.OS("/work/project")
//	app := fsys.Root().Join("app")
//	entries, err := app.ReadDir()
//
// Two handles are equal iff they name the same location on the same
// FileSystem instance.
package vfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync/atomic"
)

// ErrNotADirectory is returned by ReadDir when the handle resolves to
// something other than a directory.
var ErrNotADirectory = errors.New("not a directory")

var nextID atomic.Uint64

// FileSystem is a named, read-only view of a directory tree.
type FileSystem struct {
	id   uint64
	name string
	fsys fs.FS
}

// New wraps fsys under the given display name.
func New(name string, fsys fs.FS) *FileSystem {
	return &FileSystem{
		id:   nextID.Add(1),
		name: name,
		fsys: fsys,
	}
}

// OS returns a FileSystem rooted at dir on the host.
func OS(dir string) *FileSystem {
	return New(dir, os.DirFS(dir))
}

// Name returns the display name of the file system.
func (f *FileSystem) Name() string {
	return f.name
}

// ID returns the process-unique identity of the file system.
func (f *FileSystem) ID() uint64 {
	return f.id
}

// Root returns the handle for the file system root.
func (f *FileSystem) Root() Path {
	return Path{fs: f, name: "."}
}

// Path returns the handle for a slash-separated name relative to the root.
func (f *FileSystem) Path(name string) Path {
	return f.Root().Join(name)
}

// EntryType classifies a directory entry.
type EntryType int

const (
	NotFound EntryType = iota
	File
	Directory
	Symlink
	Other
)

func (t EntryType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Other:
		return "other"
	default:
		return "notfound"
	}
}

// Entry is one immediate child of a directory.
type Entry struct {
	Name string
	Type EntryType
	Path Path
}

// Path is a handle to a location on a FileSystem.
// The zero value is not usable.
type Path struct {
	fs   *FileSystem
	name string
}

// FileSystem returns the file system the handle belongs to.
func (p Path) FileSystem() *FileSystem {
	return p.fs
}

// Name returns the slash-separated name relative to the file system root.
// The root itself is ".".
func (p Path) Name() string {
	return p.name
}

// IsZero reports whether p is the zero handle.
func (p Path) IsZero() bool {
	return p.fs == nil
}

// IsRoot reports whether p names the file system root.
func (p Path) IsRoot() bool {
	return p.name == "."
}

// Base returns the last element of the path.
func (p Path) Base() string {
	return path.Base(p.name)
}

// String returns "<fs name>/<name>" for display.
func (p Path) String() string {
	if p.fs == nil {
		return ""
	}
	if p.IsRoot() {
		return p.fs.name
	}
	return strings.TrimSuffix(p.fs.name, "/") + "/" + p.name
}

// Join appends a relative, slash-separated path.
func (p Path) Join(rel string) Path {
	joined := path.Join(p.name, rel)
	if joined == "" || joined == "/" {
		joined = "."
	}
	joined = strings.TrimPrefix(joined, "/")
	return Path{fs: p.fs, name: joined}
}

// Parent returns the containing directory. The root is its own parent.
func (p Path) Parent() Path {
	return Path{fs: p.fs, name: path.Dir(p.name)}
}

// IsInside reports whether p equals root or lies beneath it.
func (p Path) IsInside(root Path) bool {
	if p.fs != root.fs {
		return false
	}
	if root.IsRoot() {
		return true
	}
	return IsInside(p.name, root.name)
}

// RelativeTo returns p relative to root, or false if p is outside root.
func (p Path) RelativeTo(root Path) (string, bool) {
	if p.fs != root.fs {
		return "", false
	}
	if root.IsRoot() {
		if p.IsRoot() {
			return "", true
		}
		return p.name, true
	}
	return Rel(root.name, p.name)
}

// Type reports what p resolves to.
func (p Path) Type() (EntryType, error) {
	info, err := fs.Stat(p.fs.fsys, p.name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound, nil
		}
		return NotFound, err
	}
	return typeOf(info.Mode()), nil
}

// ReadDir lists the immediate entries of the directory at p, sorted by name.
// It returns an error wrapping ErrNotADirectory if p is not a directory.
func (p Path) ReadDir() ([]Entry, error) {
	typ, err := p.Type()
	if err != nil {
		return nil, err
	}
	if typ != Directory {
		return nil, fmt.Errorf("%s: %w", p, ErrNotADirectory)
	}

	dirents, err := fs.ReadDir(p.fs.fsys, p.name)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		entries = append(entries, Entry{
			Name: d.Name(),
			Type: typeOf(d.Type()),
			Path: p.Join(d.Name()),
		})
	}
	return entries, nil
}

// Read returns the contents of the file at p.
func (p Path) Read() ([]byte, error) {
	return fs.ReadFile(p.fs.fsys, p.name)
}

// MarshalJSON encodes the handle as its root-relative name.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.name)
}

func typeOf(mode fs.FileMode) EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode.IsDir():
		return Directory
	case mode.IsRegular():
		return File
	default:
		return Other
	}
}
