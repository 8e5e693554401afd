package execution

import (
	"fmt"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/substratelabs/substrate/metrics"
)

// Registry is the process-wide executor store. Executors are never
// removed once registered; the registry lives for the process lifetime
// and is injected by handle wherever executors are needed.
type Registry struct {
	mu        sync.RWMutex
	executors map[ExecutorID]*Executor
	global    *Executor

	metrics *metrics.Registry
	em      *executorMetrics
}

// NewRegistry creates an executor registry publishing into the given
// metric registry. The executor metric families are registered up
// front so fleet queries reconcile exactly against gathered metrics.
func NewRegistry(m *metrics.Registry) (*Registry, error) {
	if m == nil {
		return nil, ErrNilMetricsRegistry
	}
	em, err := registerExecutorMetrics(m)
	if err != nil {
		return nil, err
	}
	return &Registry{
		executors: make(map[ExecutorID]*Executor),
		metrics:   m,
		em:        em,
	}, nil
}

// Register builds the executor and starts its workers eagerly. It
// fails if the id is already registered or reserved; the caller may
// retry with a different id.
func (r *Registry) Register(b *Builder) (*Executor, error) {
	if b == nil {
		return nil, ErrNilBuilder
	}
	if b.poolSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, b.poolSize)
	}
	if b.id == GlobalExecutorID {
		return nil, ErrGlobalExecutorReserved
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executors[b.id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutorAlreadyRegistered, b.id)
	}
	e := newExecutor(b, r.em)
	r.executors[b.id] = e
	return e, nil
}

// Global returns the reserved global executor, building it with
// default configuration on first use.
func (r *Registry) Global() *Executor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.global == nil {
		r.global = newExecutor(NewBuilder(GlobalExecutorID), r.em)
	}
	return r.global
}

// Executor returns the executor registered under the id. Asking for
// the reserved global id returns the global executor, building it if
// needed.
func (r *Registry) Executor(id ExecutorID) (*Executor, bool) {
	if id == GlobalExecutorID {
		return r.Global(), true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[id]
	return e, ok
}

// IDs returns the ids of all live executors, the global one included
// once it has been built.
func (r *Registry) IDs() []ExecutorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ExecutorID, 0, len(r.executors)+1)
	for id := range r.executors {
		ids = append(ids, id)
	}
	if r.global != nil {
		ids = append(ids, GlobalExecutorID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Executors returns handles to all live executors.
func (r *Registry) Executors() []*Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	es := make([]*Executor, 0, len(r.executors)+1)
	for _, e := range r.executors {
		es = append(es, e)
	}
	if r.global != nil {
		es = append(es, r.global)
	}
	sort.Slice(es, func(i, j int) bool { return es[i].id.String() < es[j].id.String() })
	return es
}

// Count returns the number of live executors.
func (r *Registry) Count() int {
	return len(r.Executors())
}

// TotalThreads returns the sum of pool sizes across all executors.
func (r *Registry) TotalThreads() int {
	total := 0
	for _, e := range r.Executors() {
		total += e.PoolSize()
	}
	return total
}

// SpawnedTaskCount returns the total tasks spawned across all
// executors.
func (r *Registry) SpawnedTaskCount() uint64 {
	var total uint64
	for _, e := range r.Executors() {
		total += e.SpawnedTaskCount()
	}
	return total
}

// ThreadPoolSizes returns the current pool size per executor.
func (r *Registry) ThreadPoolSizes() map[ExecutorID]int {
	sizes := make(map[ExecutorID]int)
	for _, e := range r.Executors() {
		sizes[e.ID()] = e.PoolSize()
	}
	return sizes
}

// GatherMetrics gathers just the executor-related metric families.
func (r *Registry) GatherMetrics() []*dto.MetricFamily {
	return r.metrics.GatherForMetricIDs(MetricIDs()...)
}
