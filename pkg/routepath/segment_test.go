package routepath

import "testing"

func TestSegmentConventions(t *testing.T) {
	tests := []struct {
		name       string
		private    bool
		group      bool
		parallel   bool
		slot       string
		extendsURL bool
		unescaped  string
	}{
		{name: "blog", extendsURL: true, unescaped: "blog"},
		{name: "_components", private: true, extendsURL: true, unescaped: "_components"},
		{name: "(marketing)", group: true, unescaped: "(marketing)"},
		{name: "@modal", parallel: true, slot: "modal", unescaped: "@modal"},
		{name: "%5Fescaped", extendsURL: true, unescaped: "_escaped"},
		{name: "(open", extendsURL: true, unescaped: "(open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPrivate(tt.name); got != tt.private {
				t.Errorf("IsPrivate(%q) = %v, want %v", tt.name, got, tt.private)
			}
			if got := IsRouteGroup(tt.name); got != tt.group {
				t.Errorf("IsRouteGroup(%q) = %v, want %v", tt.name, got, tt.group)
			}
			if got := IsParallelRoute(tt.name); got != tt.parallel {
				t.Errorf("IsParallelRoute(%q) = %v, want %v", tt.name, got, tt.parallel)
			}
			slot, ok := ParallelRouteKey(tt.name)
			if ok != tt.parallel || slot != tt.slot {
				t.Errorf("ParallelRouteKey(%q) = (%q, %v), want (%q, %v)", tt.name, slot, ok, tt.slot, tt.parallel)
			}
			if got := ExtendsURL(tt.name); got != tt.extendsURL {
				t.Errorf("ExtendsURL(%q) = %v, want %v", tt.name, got, tt.extendsURL)
			}
			if got := UnescapeSegment(tt.name); got != tt.unescaped {
				t.Errorf("UnescapeSegment(%q) = %q, want %q", tt.name, got, tt.unescaped)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		prefix, segment, want string
	}{
		{"/", "blog", "/blog"},
		{"", "blog", "/blog"},
		{"/blog", "post", "/blog/post"},
	}
	for _, tt := range tests {
		if got := Join(tt.prefix, tt.segment); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.prefix, tt.segment, got, tt.want)
		}
	}
}

func TestAssetPathFromPathname(t *testing.T) {
	tests := []struct {
		pathname string
		want     string
	}{
		{"/", "/index.js"},
		{"/index", "/index/index.js"},
		{"/index/about", "/index/index/about.js"},
		{"/indexed", "/indexed.js"},
		{"/blog/post", "/blog/post.js"},
	}
	for _, tt := range tests {
		if got := AssetPathFromPathname(tt.pathname, ".js"); got != tt.want {
			t.Errorf("AssetPathFromPathname(%q) = %q, want %q", tt.pathname, got, tt.want)
		}
	}
}

func TestPathnameForServerPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		kind    PathKind
		want    string
		wantErr bool
	}{
		{"page", "/out/server/pages/about", PagesPage, "/about", false},
		{"root page", "/out/server/pages", PagesPage, "/", false},
		{"root data", "/out/server/pages", Data, "/index", false},
		{"api", "/out/server/pages/api/users", PagesAPI, "/api/users", false},
		{"outside root", "/elsewhere/about", PagesPage, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathnameForServerPath("/out/server/pages", tt.path, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathnameForServerPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PathnameForServerPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
