package assets

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(assets []OutputAsset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Path()
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestReachableDiamond(t *testing.T) {
	c := StaticAsset("/out/c.js", nil)
	a := StaticAsset("/out/a.js", nil, c)
	b := StaticAsset("/out/b.js", nil, c)
	entry := StaticAsset("/out/entry.js", nil, a, b)

	got, err := Reachable(context.Background(), []OutputAsset{entry})
	require.NoError(t, err)

	order := paths(got)
	assert.Equal(t, []string{"/out/c.js", "/out/a.js", "/out/b.js", "/out/entry.js"}, order)
	assert.Less(t, indexOf(order, "/out/c.js"), indexOf(order, "/out/a.js"))
	assert.Less(t, indexOf(order, "/out/c.js"), indexOf(order, "/out/b.js"))
}

func TestReachableDependenciesFirst(t *testing.T) {
	leaf := StaticAsset("/out/leaf.js", nil)
	mid := StaticAsset("/out/mid.js", nil, leaf)
	top := StaticAsset("/out/top.js", nil, mid, leaf)
	other := StaticAsset("/out/other.js", nil, mid)

	got, err := Reachable(context.Background(), []OutputAsset{top, other})
	require.NoError(t, err)
	order := paths(got)

	require.Len(t, order, 4)
	edges := [][2]string{
		{"/out/mid.js", "/out/leaf.js"},
		{"/out/top.js", "/out/mid.js"},
		{"/out/top.js", "/out/leaf.js"},
		{"/out/other.js", "/out/mid.js"},
	}
	for _, e := range edges {
		assert.Less(t, indexOf(order, e[1]), indexOf(order, e[0]), "%s before %s", e[1], e[0])
	}
}

func TestReachableCycle(t *testing.T) {
	a := StaticAsset("/out/a.js", nil)
	b := StaticAsset("/out/b.js", nil, a)
	a.AddReference(b)

	got, err := Reachable(context.Background(), []OutputAsset{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/out/b.js", "/out/a.js"}, paths(got))
}

func TestReachableDuplicateEntries(t *testing.T) {
	shared := StaticAsset("/out/shared.js", nil)
	a := StaticAsset("/out/a.js", nil, shared)

	got, err := Reachable(context.Background(), []OutputAsset{a, shared, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"/out/shared.js", "/out/a.js"}, paths(got))
}

type countingAsset struct {
	*FileAsset
	calls *atomic.Int32
	err   error
}

func (c countingAsset) References(ctx context.Context) ([]OutputAsset, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.FileAsset.References(ctx)
}

func TestReachableVisitsOnce(t *testing.T) {
	var calls atomic.Int32
	wrap := func(a *FileAsset) OutputAsset { return countingAsset{FileAsset: a, calls: &calls} }

	c := wrap(StaticAsset("/out/c.js", nil))
	a := wrap(StaticAsset("/out/a.js", nil, c))
	b := wrap(StaticAsset("/out/b.js", nil, c))
	entry := wrap(StaticAsset("/out/entry.js", nil, a, b))

	got, err := NewWalker(WalkerOptions{Concurrency: 1}).Reachable(context.Background(), []OutputAsset{entry})
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, int32(4), calls.Load())
}

func TestReachableError(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	broken := countingAsset{FileAsset: StaticAsset("/out/broken.js", nil), calls: &calls, err: boom}
	entry := StaticAsset("/out/entry.js", nil, broken)

	_, err := Reachable(context.Background(), []OutputAsset{entry})
	assert.ErrorIs(t, err, boom)
}

func TestServerPaths(t *testing.T) {
	assets := []OutputAsset{
		StaticAsset("/out/server/app/page.js", nil),
		StaticAsset("/out/static/chunk.js", nil),
		StaticAsset("/out/server", nil),
		StaticAsset("/out/server-other/x.js", nil),
		StaticAsset("/out/server/pages/api/users.js", nil),
	}

	assert.Equal(t,
		[]string{"app/page.js", "pages/api/users.js"},
		ServerPaths(assets, "/out/server"))
}

func TestAllServerPaths(t *testing.T) {
	chunk := StaticAsset("/out/static/chunk.js", nil)
	shared := StaticAsset("/out/server/shared.js", nil)
	page := StaticAsset("/out/server/app/page.js", nil, chunk, shared)

	got, err := AllServerPaths(context.Background(), []OutputAsset{page}, "/out/server/")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared.js", "app/page.js"}, got)
}
