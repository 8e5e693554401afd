package reqrep

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/substratelabs/substrate/execution"
	"github.com/substratelabs/substrate/logging"
	"github.com/substratelabs/substrate/metrics"
)

// request is the envelope flowing through a service channel. The reply
// channel is buffered so the backend can deliver without waiting on
// the receiver.
type request[Req, Rep any] struct {
	id    MessageID
	req   Req
	reply chan Rep
}

// service is one backend instance. A single dedicated goroutine owns
// the processor and consumes the request channel; Process calls run on
// the executor pool so pool metrics cover service work.
type service[Req, Rep any] struct {
	id         ReqRepID
	instanceID InstanceID
	processor  Processor[Req, Rep]
	requests   chan request[Req, Rep]
	done       chan struct{}
	refs       atomic.Int64

	executor *execution.Executor
	registry *Registry
	timer    *metrics.Histogram
	sends    prometheus.Counter
	panics   prometheus.Counter
	tracer   trace.Tracer
	log      logging.ServiceLogger
}

// run is the backend loop. It terminates when the request channel
// closes (last client gone, pending requests drained) or when a
// processing panic is not downgraded by a PanicRecoverer.
func (s *service[Req, Rep]) run() {
	ctx := context.Background()
	defer s.shutdown()
	s.processor.Init(ctx)
	for msg := range s.requests {
		rep, elapsed, panicVal := s.process(ctx, msg)
		if panicVal != nil {
			s.panics.Inc()
			if rec, ok := s.processor.(PanicRecoverer); ok {
				rec.RecoverPanic(panicVal)
				continue
			}
			s.log.Error("processor panicked, instance terminating", nil,
				logging.LogFields{"message_id": msg.id.String(), "panic": panicVal})
			return
		}
		s.timer.Observe(metrics.Secs(elapsed))
		// best-effort: a discarded receiver never wedges the backend
		select {
		case msg.reply <- rep:
		default:
		}
	}
}

// process submits the Process call to the executor pool and awaits its
// outcome. The closure recovers its own panic so a processing panic is
// a service-level event, not an executor-level one.
func (s *service[Req, Rep]) process(ctx context.Context, msg request[Req, Rep]) (Rep, time.Duration, any) {
	type outcome struct {
		rep      Rep
		elapsed  time.Duration
		panicVal any
	}
	out := make(chan outcome, 1)
	s.executor.Spawn(func() {
		var o outcome
		start := time.Now()
		func() {
			defer func() {
				if v := recover(); v != nil {
					o.panicVal = v
				}
			}()
			spanCtx, span := s.tracer.Start(ctx, "reqrep.process",
				trace.WithAttributes(
					attribute.String("reqrep.id", s.id.String()),
					attribute.String("reqrep.message_id", msg.id.String()),
				))
			defer span.End()
			o.rep = s.processor.Process(spanCtx, msg.req)
		}()
		o.elapsed = time.Since(start)
		out <- o
	})
	o := <-out
	return o.rep, o.elapsed, o.panicVal
}

// shutdown runs exactly once, on backend exit.
func (s *service[Req, Rep]) shutdown() {
	s.processor.Destroy()
	close(s.done)
	s.registry.release(s.id)
	s.log.Info("service instance stopped", nil)
}

// unref drops one client reference; the last one closes the request
// channel and hands termination to the backend.
func (s *service[Req, Rep]) unref() {
	if s.refs.Add(-1) == 0 {
		close(s.requests)
	}
}
