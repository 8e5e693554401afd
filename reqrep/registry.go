package reqrep

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/substratelabs/substrate/execution"
	"github.com/substratelabs/substrate/logging"
	"github.com/substratelabs/substrate/metrics"
)

// Registry owns the shared service metric families and the
// ReqRepID → request/reply type bindings. A binding exists while at
// least one instance of the service is live; starting an instance
// whose types disagree with a live binding fails.
type Registry struct {
	mu       sync.Mutex
	services map[ReqRepID]*binding
	timers   map[ReqRepID]*metrics.Histogram

	metrics   *metrics.Registry
	executors *execution.Registry
	sm        *serviceMetrics
	tracer    trace.Tracer
}

type binding struct {
	reqType   reflect.Type
	repType   reflect.Type
	instances int
}

// NewRegistry creates a service registry publishing into the given
// metric registry and running backends on the given executors.
func NewRegistry(m *metrics.Registry, e *execution.Registry) (*Registry, error) {
	if m == nil {
		return nil, ErrNilMetricsRegistry
	}
	if e == nil {
		return nil, ErrNilExecutors
	}
	sm, err := registerServiceMetrics(m)
	if err != nil {
		return nil, err
	}
	return &Registry{
		services:  make(map[ReqRepID]*binding),
		timers:    make(map[ReqRepID]*metrics.Histogram),
		metrics:   m,
		executors: e,
		sm:        sm,
		tracer:    otel.Tracer("github.com/substratelabs/substrate/reqrep"),
	}, nil
}

// Config configures one backend instance of a service.
type Config struct {
	// ID names the service contract. A zero value gets a fresh id.
	ID ReqRepID

	// ChanBufSize is the request channel capacity. Zero means an
	// unbuffered rendezvous; senders suspend while the channel is full.
	ChanBufSize int

	// Buckets lays out the per-service process timer histogram.
	// Defaults to metrics.DefaultTimerBuckets. The layout is fixed by
	// the first instance of the service.
	Buckets metrics.TimerBuckets

	// Executor runs the backend and its Process calls. Defaults to the
	// registry's global executor.
	Executor *execution.Executor

	// Logger receives instance lifecycle events. Defaults to nop.
	Logger logging.ServiceLogger
}

// Start launches one backend instance and returns its first client.
// The client starts with reference count one; the backend terminates
// after the last client closes and the pending requests drain.
func Start[Req, Rep any](r *Registry, cfg Config, p Processor[Req, Rep]) (*Client[Req, Rep], error) {
	if p == nil {
		return nil, ErrNilProcessor
	}
	id := cfg.ID
	if id == (ReqRepID{}) {
		id = NewReqRepID()
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = metrics.DefaultTimerBuckets
	}
	exec := cfg.Executor
	if exec == nil {
		exec = r.executors.Global()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NopLogger()
	}

	timer, err := r.timer(id, buckets)
	if err != nil {
		return nil, err
	}
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	repType := reflect.TypeOf((*Rep)(nil)).Elem()
	if err := r.bind(id, reqType, repType); err != nil {
		return nil, err
	}

	s := &service[Req, Rep]{
		id:         id,
		instanceID: NewInstanceID(),
		processor:  p,
		requests:   make(chan request[Req, Rep], cfg.ChanBufSize),
		done:       make(chan struct{}),
		executor:   exec,
		registry:   r,
		timer:      timer,
		sends:      r.sm.sends.WithLabelValues(id.String()),
		panics:     r.sm.panics.WithLabelValues(id.String()),
		tracer:     r.tracer,
	}
	s.log = log.With(logging.LogFields{
		"reqrep_id":   id.String(),
		"instance_id": s.instanceID.String(),
	})
	s.refs.Store(1)
	exec.SpawnDedicated(s.run)
	s.log.Info("service instance started", logging.LogFields{"chan_buf_size": cfg.ChanBufSize})
	return &Client[Req, Rep]{svc: s}, nil
}

// timer returns the per-service process timer histogram, registering
// it on the first instance. The histogram's metric id is the ReqRepID,
// so each service carries its own bucket layout.
func (r *Registry) timer(id ReqRepID, buckets metrics.TimerBuckets) (*metrics.Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.timers[id]; ok {
		return h, nil
	}
	h, err := r.metrics.RegisterHistogram(
		metrics.NewTimerHistogramBuilder(metrics.MetricID(id), "ReqRep process timer in seconds", buckets))
	if err != nil {
		return nil, err
	}
	r.timers[id] = h
	return h, nil
}

func (r *Registry) bind(id ReqRepID, reqType, repType reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.services[id]; ok {
		if b.reqType != reqType || b.repType != repType {
			return fmt.Errorf("%w: %s is (%s, %s), not (%s, %s)",
				ErrTypeMismatch, id, b.reqType, b.repType, reqType, repType)
		}
		b.instances++
	} else {
		r.services[id] = &binding{reqType: reqType, repType: repType, instances: 1}
	}
	r.sm.instances.WithLabelValues(id.String()).Inc()
	return nil
}

func (r *Registry) release(id ReqRepID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.services[id]; ok {
		b.instances--
		if b.instances == 0 {
			delete(r.services, id)
		}
	}
	r.sm.instances.WithLabelValues(id.String()).Dec()
}

// ServiceIDs returns the ids of services with at least one live
// instance.
func (r *Registry) ServiceIDs() []ReqRepID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ReqRepID, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// InstanceCount returns the number of live instances for the service.
func (r *Registry) InstanceCount(id ReqRepID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.services[id]; ok {
		return b.instances
	}
	return 0
}

// GatherMetrics gathers the shared service metric families plus the
// process timers of every service that ever started an instance.
func (r *Registry) GatherMetrics() []*dto.MetricFamily {
	ids := MetricIDs()
	r.mu.Lock()
	for id := range r.timers {
		ids = append(ids, metrics.MetricID(id))
	}
	r.mu.Unlock()
	return r.metrics.GatherForMetricIDs(ids...)
}
