package router

import (
	"testing"
	"testing/fstest"

	"github.com/vango-dev/approutes/pkg/vfs"
)

var testExtensions = []string{"tsx", "ts", "jsx", "js"}

// testApp returns the "app" directory of an in-memory project containing
// files (paths relative to the app directory).
func testApp(t *testing.T, files ...string) vfs.Path {
	t.Helper()
	m := fstest.MapFS{}
	for _, name := range files {
		m["app/"+name] = &fstest.MapFile{Data: []byte("export default 1")}
	}
	return vfs.New("project", m).Root().Join("app")
}

func names(items []MetadataWithAltItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Path.Base()
	}
	return out
}
