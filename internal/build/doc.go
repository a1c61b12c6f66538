// Package build writes output assets.
//
// The Emitter decides a target for every asset from three roots:
//
//   - assets inside NodeRoot are written at their own path
//   - assets inside ClientRelativeRoot are rebased into ClientOutputRoot
//   - anything else is not written
//
// Writes run concurrently and independently. EmitAll waits for all of them
// and returns every failure joined into one error.
//
// # Usage
//
//	emitter := build.New(build.Roots{
//	    NodeRoot:           "/out/server",
//	    ClientRelativeRoot: "/out/client",
//	    ClientOutputRoot:   "/out/_next",
//	}, build.Options{})
//	result, err := emitter.Emit(ctx, graph.Entries)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Wrote %d assets in %s\n", len(result.Written), result.Duration)
//
// # Sinks
//
// Content goes through a Sink. DiskSink writes files atomically, S3Sink
// uploads objects and MemorySink keeps them for dry runs.
package build
