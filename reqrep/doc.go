// Package reqrep provides typed request/reply messaging between an
// application and backend services running on executors.
//
// A service is started with a Processor implementation and served by a
// single backend goroutine that owns the processor. Requests flow
// through a channel in arrival order, so a processor never needs its
// own locking. Each Process invocation is timed into a per-service
// histogram and wrapped in a trace span.
//
// Clients are cheap shareable handles. Send decouples the request from
// its reply through a ReplyReceiver; SendRecv couples them. A client
// clone shares the backend instance and its FIFO ordering guarantee
// only applies per client.
//
// A processing panic is counted and, by default, terminates the
// backend instance: pending and future callers observe
// ErrDisconnected. A processor implementing PanicRecoverer downgrades
// the panic to a per-request failure and keeps serving.
package reqrep
