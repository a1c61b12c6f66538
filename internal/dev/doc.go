// Package dev keeps resolved routes current while files change.
//
// A Watcher registers fsnotify watches on every directory beneath its
// paths, collects events until they have been quiet for the debounce
// period and reports them as one batch. A Reloader turns each batch into
// project invalidations, reads a fresh snapshot and reports it when the
// tree fingerprint changed.
//
// # Usage
//
//	p, _ := project.Open(".", project.Options{})
//	w := dev.NewWatcher(dev.WatcherConfig{Paths: []string{"app"}})
//	r := dev.NewReloader(p, dev.ReloaderOptions{
//	    OnReload: func(ev dev.ReloadEvent) {
//	        fmt.Println(ev.Snapshot.Resolution.Entrypoints.Keys())
//	    },
//	})
//	if err := dev.Watch(ctx, w, r); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
//
// Content-only writes do not change any directory listing, so they never
// trigger a reload.
package dev
