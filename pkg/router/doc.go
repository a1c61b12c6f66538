// Package router resolves an app directory into a table of entrypoints.
//
// Resolution runs in two passes. BuildTree classifies every directory
// bottom-up into a DirectoryTree; Resolve walks that tree depth-first and
// produces Entrypoints, an insertion-ordered table from URL path to either
// an *AppPage (a LoaderTree of nested layouts) or an *AppRoute (a route
// handler file).
//
// # File Conventions
//
//	app/
//	├── layout.tsx            → root layout
//	├── page.tsx              → /
//	├── not-found.tsx         → /not-found and /_not-found
//	├── icon.png, icon1.png   → metadata, ordered by numeric suffix
//	├── (marketing)/
//	│   └── about/page.tsx    → /about (groups add no URL segment)
//	├── @modal/
//	│   └── page.tsx          → slot "modal" of /
//	├── _components/          → private, never routed
//	├── %5Fescaped/page.tsx   → /_escaped
//	└── api/
//	    └── route.ts          → /api (route handler)
//
// # Conflicts
//
// Two registrations at the same URL path never abort resolution. Pages
// discovered under the same original name are merged; every other
// collision keeps the first registration and reports an Issue.
//
// # Usage
//
//	app := vfs.OS(projectDir).Root().Join("app")
//	tree, err := router.BuildTree(ctx, app, []string{"tsx", "ts"})
//	if err != nil {
//	    return err
//	}
//	res, err := router.ResolveEntrypoints(ctx, app, tree)
//	for path, entry := range res.Entrypoints.All() {
//	    fmt.Println(path, entry.OriginalName())
//	}
package router
