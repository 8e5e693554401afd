// Package execution provides named worker pools (executors) and the
// process-wide executor registry.
//
// An executor owns a fixed set of worker goroutines started eagerly at
// registration, consuming an unbounded FIFO task queue; Spawn never
// blocks the caller. Executors are process-lifetime singletons: once
// registered they are never removed, and a reserved global executor is
// created lazily on first use.
//
// Every executor publishes spawned/completed/panicked task counters and
// a pool-size gauge into the metric registry it was built against. The
// active task count is always derived as spawned minus completed and
// never stored, so there is no decrement race to get wrong.
//
// Panic policy: by default a panicking task is recovered, counted, and
// optionally reported on a notification channel, and the worker keeps
// serving. An executor built with catch-panics disabled loses the
// worker instead — the pool permanently shrinks by one. That is a
// documented deployment hazard chosen by the caller, not an internal
// error.
package execution
