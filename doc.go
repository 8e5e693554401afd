// Package substrate bundles the in-process concurrency and
// observability building blocks: a ULID-named metric registry, an
// executor registry running named goroutine pools, and typed
// request/reply messaging backed by those executors.
//
// Most applications build one Platform at startup and inject its
// registries where they are needed:
//
//	platform, err := substrate.New()
//	if err != nil {
//		...
//	}
//	exec, err := platform.Executors.Register(
//		execution.NewBuilder(execution.NewExecutorID()).SetPoolSize(8))
//
// The subsystem packages (metrics, execution, reqrep, logging, ids)
// are importable on their own; the root package only wires them
// together and re-exports the types most call sites need.
package substrate
