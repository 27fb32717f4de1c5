// Package async runs units of work on their own goroutines and hands the
// caller a [Handle] for each one.
//
// A [Group] tracks every goroutine it started so an owner can wait for
// all of them before shutting down:
//
//	g := async.NewGroup[string]()
//	h, err := g.Start(ctx, uuid.New(), func(ctx context.Context) string {
//		return fetch(ctx)
//	})
//	// ... do other work ...
//	v := h.Result() // blocks until the work returns
//
// There is no pool and no queue: every Start launches one goroutine
// immediately. Most callers should use the higher-level
// [github.com/adamwoolhether/ajax/client] package, which runs each
// request through a Group.
package async
