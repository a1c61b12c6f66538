package router

import (
	"encoding/json"
	"strings"
)

// Segment labels and slot names used in loader trees.
const (
	// ChildrenSlot is the implicit parallel route every layout renders.
	ChildrenSlot = "children"

	// PageSegment labels the leaf holding a page component.
	PageSegment = "__PAGE__"

	// DefaultSegment labels the leaf holding a default component.
	DefaultSegment = "__DEFAULT__"
)

// LoaderTree describes how nested layouts and pages compose for one route.
// Nodes are immutable; merging builds new nodes that share unchanged
// children.
type LoaderTree struct {
	// Segment is the directory name this node was built from ("" at the root).
	Segment string

	// ParallelRoutes maps slot names to child trees in insertion order.
	ParallelRoutes []ParallelRoute

	// Components are the files rendered at this level.
	Components *Components
}

// ParallelRoute is one named slot of a LoaderTree.
type ParallelRoute struct {
	Key  string
	Tree *LoaderTree
}

// Slot returns the child tree for key, or nil.
func (t *LoaderTree) Slot(key string) *LoaderTree {
	for _, r := range t.ParallelRoutes {
		if r.Key == key {
			return r.Tree
		}
	}
	return nil
}

// SlotKeys returns the slot names in order.
func (t *LoaderTree) SlotKeys() []string {
	keys := make([]string, len(t.ParallelRoutes))
	for i, r := range t.ParallelRoutes {
		keys[i] = r.Key
	}
	return keys
}

// leafTree returns a bare leaf node holding only the given components.
func leafTree(segment string, components *Components) *LoaderTree {
	return &LoaderTree{Segment: segment, Components: components}
}

// wrapTree nests child under slot key of a new node labelled segment.
func wrapTree(segment, key string, child *LoaderTree, components *Components) *LoaderTree {
	return &LoaderTree{
		Segment:        segment,
		ParallelRoutes: []ParallelRoute{{Key: key, Tree: child}},
		Components:     components,
	}
}

// MergeLoaderTrees combines two loader trees for the same route. a's
// segment wins unless empty; slots are unioned in a-then-b order, merging
// recursively on collision; components merge with a winning per field.
func MergeLoaderTrees(a, b *LoaderTree) *LoaderTree {
	segment := a.Segment
	if segment == "" {
		segment = b.Segment
	}

	routes := make([]ParallelRoute, len(a.ParallelRoutes), len(a.ParallelRoutes)+len(b.ParallelRoutes))
	copy(routes, a.ParallelRoutes)
	routes = addParallelRoutes(routes, b.ParallelRoutes)

	return &LoaderTree{
		Segment:        segment,
		ParallelRoutes: routes,
		Components:     MergeComponents(a.Components, b.Components),
	}
}

func addParallelRoutes(routes, add []ParallelRoute) []ParallelRoute {
next:
	for _, r := range add {
		for i := range routes {
			if routes[i].Key == r.Key {
				routes[i].Tree = MergeLoaderTrees(routes[i].Tree, r.Tree)
				continue next
			}
		}
		routes = append(routes, r)
	}
	return routes
}

// MarshalJSON encodes the tree with parallel routes as an ordered object.
func (t *LoaderTree) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"segment":`)
	writeJSONString(&b, t.Segment)
	b.WriteString(`,"parallelRoutes":{`)
	for i, r := range t.ParallelRoutes {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, r.Key)
		b.WriteByte(':')
		data, err := json.Marshal(r.Tree)
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteString(`},"components":`)
	data, err := json.Marshal(t.Components)
	if err != nil {
		return nil, err
	}
	b.Write(data)
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func writeJSONString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}
