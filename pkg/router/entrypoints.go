package router

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/vango-dev/approutes/pkg/vfs"
)

// Entrypoint is the resolved build target for one URL path: either an
// *AppPage or an *AppRoute.
type Entrypoint interface {
	// OriginalName is the route path the entry was first discovered under.
	OriginalName() string

	entrypoint()
}

// AppPage renders a loader tree.
type AppPage struct {
	Name       string
	LoaderTree *LoaderTree
}

// AppRoute is a route handler file.
type AppRoute struct {
	Name string
	Path vfs.Path
}

func (p *AppPage) OriginalName() string  { return p.Name }
func (r *AppRoute) OriginalName() string { return r.Name }
func (*AppPage) entrypoint()             {}
func (*AppRoute) entrypoint()            {}

// MarshalJSON encodes the page with a "type" tag.
func (p *AppPage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string      `json:"type"`
		OriginalName string      `json:"originalName"`
		LoaderTree   *LoaderTree `json:"loaderTree"`
	}{"page", p.Name, p.LoaderTree})
}

// MarshalJSON encodes the route with a "type" tag.
func (r *AppRoute) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string   `json:"type"`
		OriginalName string   `json:"originalName"`
		Path         vfs.Path `json:"path"`
	}{"route", r.Name, r.Path})
}

// Entrypoints maps route paths to entrypoints in insertion order.
// The zero value is an empty table.
type Entrypoints struct {
	keys   []string
	values map[string]Entrypoint
}

// Len returns the number of entries.
func (e *Entrypoints) Len() int {
	return len(e.keys)
}

// Keys returns the route paths in insertion order.
func (e *Entrypoints) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Get returns the entrypoint registered at path.
func (e *Entrypoints) Get(path string) (Entrypoint, bool) {
	v, ok := e.values[path]
	return v, ok
}

// All iterates over the table in insertion order.
func (e *Entrypoints) All() iter.Seq2[string, Entrypoint] {
	return func(yield func(string, Entrypoint) bool) {
		for _, k := range e.keys {
			if !yield(k, e.values[k]) {
				return
			}
		}
	}
}

func (e *Entrypoints) set(path string, v Entrypoint) {
	if e.values == nil {
		e.values = make(map[string]Entrypoint)
	}
	if _, ok := e.values[path]; !ok {
		e.keys = append(e.keys, path)
	}
	e.values[path] = v
}

// MarshalJSON encodes the table as an object in insertion order.
func (e *Entrypoints) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, k)
		b.WriteByte(':')
		data, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Severity of an Issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue titles and categories.
const (
	IssueTitle    = "An issue occurred while preparing your app"
	IssueCategory = "app"
)

// Issue is a recoverable routing problem. Issues never abort resolution.
type Issue struct {
	Severity Severity `json:"severity"`
	Dir      vfs.Path `json:"dir"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Severity, i.Message, i.Dir)
}

// entrypointTable is an Entrypoints under construction together with the
// issues raised while registering into it.
type entrypointTable struct {
	appDir      vfs.Path
	entrypoints *Entrypoints
	issues      []Issue
}

func newEntrypointTable(appDir vfs.Path) *entrypointTable {
	return &entrypointTable{appDir: appDir, entrypoints: &Entrypoints{}}
}

func (t *entrypointTable) issue(format string, args ...any) {
	t.issues = append(t.issues, Issue{
		Severity: SeverityError,
		Dir:      t.appDir,
		Title:    IssueTitle,
		Category: IssueCategory,
		Message:  fmt.Sprintf(format, args...),
	})
}

// addPage registers a page at key. A page under the same original name is
// merged into the existing one; any other collision raises an issue and
// keeps the existing entry.
func (t *entrypointTable) addPage(key, originalName string, tree *LoaderTree) {
	existing, ok := t.entrypoints.Get(key)
	if !ok {
		t.entrypoints.set(key, &AppPage{Name: originalName, LoaderTree: tree})
		return
	}

	switch existing := existing.(type) {
	case *AppPage:
		if existing.Name != originalName {
			t.issue("Conflicting pages at %s: %s and %s", key, existing.Name, originalName)
			return
		}
		t.entrypoints.set(key, &AppPage{
			Name:       existing.Name,
			LoaderTree: MergeLoaderTrees(existing.LoaderTree, tree),
		})
	case *AppRoute:
		t.issue("Conflicting page and route at %s: route at %s and page at %s", key, existing.Name, originalName)
	}
}

// addRoute registers a route handler at key. Any collision raises an issue
// and keeps the existing entry.
func (t *entrypointTable) addRoute(key, originalName string, path vfs.Path) {
	existing, ok := t.entrypoints.Get(key)
	if !ok {
		t.entrypoints.set(key, &AppRoute{Name: originalName, Path: path})
		return
	}

	switch existing := existing.(type) {
	case *AppPage:
		t.issue("Conflicting route and page at %s: route at %s and page at %s", key, originalName, existing.Name)
	case *AppRoute:
		t.issue("Conflicting routes at %s: %s and %s", key, existing.Name, originalName)
	}
}
