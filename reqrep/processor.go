package reqrep

import "context"

// Processor implements a service's request handling. A single backend
// goroutine owns the processor: Init runs before the first request,
// Process runs for one request at a time in arrival order, and Destroy
// runs exactly once when the instance terminates. Process never needs
// internal locking for its own state.
type Processor[Req, Rep any] interface {
	// Init prepares the processor before the first request.
	Init(ctx context.Context)

	// Process handles one request and returns the reply.
	Process(ctx context.Context, req Req) Rep

	// Destroy releases processor resources on instance termination.
	Destroy()
}

// PanicRecoverer downgrades a processing panic to a per-request
// failure. When a processor implements it, the hook receives the panic
// value, the request's reply is never delivered, and the backend keeps
// serving. Without it a processing panic terminates the instance.
type PanicRecoverer interface {
	RecoverPanic(v any)
}

// ProcessorFunc adapts a plain function to a stateless Processor.
type ProcessorFunc[Req, Rep any] func(ctx context.Context, req Req) Rep

func (f ProcessorFunc[Req, Rep]) Init(context.Context) {}

func (f ProcessorFunc[Req, Rep]) Process(ctx context.Context, req Req) Rep { return f(ctx, req) }

func (f ProcessorFunc[Req, Rep]) Destroy() {}
