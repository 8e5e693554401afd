package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Registry is the process-wide metric collector store. It is created
// once at startup, injected by handle into every subsystem, and lives
// for the process lifetime. All methods are safe for concurrent use;
// registration is atomic with respect to readers — a reader never
// observes a collector with only some of its descriptors present.
type Registry struct {
	mu         sync.RWMutex
	inner      *prometheus.Registry
	descs      map[uint64]*Desc  // desc ID -> desc
	dims       map[string]uint64 // fq name -> dim hash
	collectors []Collector
	cache      map[uint64]Collector // desc ID -> get-or-register families
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		inner: prometheus.NewRegistry(),
		descs: make(map[uint64]*Desc),
		dims:  make(map[string]uint64),
		cache: make(map[uint64]Collector),
	}
}

// Register validates every descriptor owned by the collector and makes
// it visible to gathering. On any violation nothing is registered.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(c)
}

// MustRegister registers the collectors and panics on error. Intended
// for wiring done once at startup.
func (r *Registry) MustRegister(cs ...Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) registerLocked(c Collector) error {
	if c == nil {
		return ErrNilCollector
	}
	ds := c.Descs()
	if len(ds) == 0 {
		return ErrNoDescriptors
	}

	seen := make(map[uint64]bool, len(ds))
	for _, d := range ds {
		if dim, ok := r.dims[d.FQName()]; ok && dim != d.DimHash() {
			return fmt.Errorf("%w: %s", ErrDescMismatch, d.FQName())
		}
		if seen[d.ID()] || r.descs[d.ID()] != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, d.FQName())
		}
		seen[d.ID()] = true
	}

	if err := r.inner.Register(c); err != nil {
		return err
	}
	for _, d := range ds {
		r.descs[d.ID()] = d
		r.dims[d.FQName()] = d.DimHash()
	}
	r.collectors = append(r.collectors, c)
	return nil
}

// Descs returns all registered descriptors, sorted by name.
func (r *Registry) Descs() []*Desc {
	return r.DescsMatching(func(*Desc) bool { return true })
}

// DescsForMetricIDs returns the descriptors of the given metric ids.
// Unknown ids are silently ignored; an empty input yields an empty
// result.
func (r *Registry) DescsForMetricIDs(metricIDs ...MetricID) []*Desc {
	want := make(map[MetricID]bool, len(metricIDs))
	for _, id := range metricIDs {
		want[id] = true
	}
	return r.DescsMatching(func(d *Desc) bool { return want[d.MetricID()] })
}

// DescsForIDs returns the descriptors with the given descriptor ids.
// Unknown ids are silently ignored.
func (r *Registry) DescsForIDs(descIDs ...uint64) []*Desc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*Desc, 0, len(descIDs))
	for _, id := range descIDs {
		if d, ok := r.descs[id]; ok {
			matched = append(matched, d)
		}
	}
	sortDescs(matched)
	return matched
}

// DescsMatching returns the descriptors satisfying the predicate.
func (r *Registry) DescsMatching(pred func(*Desc) bool) []*Desc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*Desc
	for _, d := range r.descs {
		if pred(d) {
			matched = append(matched, d)
		}
	}
	sortDescs(matched)
	return matched
}

// Collectors returns all registered collector handles.
func (r *Registry) Collectors() []Collector {
	return r.CollectorsMatching(func(*Desc) bool { return true })
}

// CollectorsForMetricIDs returns the collectors owning descriptors for
// the given metric ids. Unknown ids are silently ignored.
func (r *Registry) CollectorsForMetricIDs(metricIDs ...MetricID) []Collector {
	want := make(map[MetricID]bool, len(metricIDs))
	for _, id := range metricIDs {
		want[id] = true
	}
	return r.CollectorsMatching(func(d *Desc) bool { return want[d.MetricID()] })
}

// CollectorsMatching returns the collectors owning at least one
// descriptor satisfying the predicate.
func (r *Registry) CollectorsMatching(pred func(*Desc) bool) []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Collector
	for _, c := range r.collectors {
		for _, d := range c.Descs() {
			if pred(d) {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched
}

// Gather collects a fresh snapshot of all metrics. Gathering never
// fails; families whose collect succeeded are always returned.
func (r *Registry) Gather() []*dto.MetricFamily {
	mfs, _ := r.inner.Gather()
	return mfs
}

// GatherForMetricIDs gathers only the families of the given metric ids.
// Unknown ids are silently ignored; an empty input yields an empty
// result.
func (r *Registry) GatherForMetricIDs(metricIDs ...MetricID) []*dto.MetricFamily {
	names := make([]string, len(metricIDs))
	for i, id := range metricIDs {
		names[i] = id.Name()
	}
	return r.GatherForDescNames(names...)
}

// GatherForDescNames gathers only the families with the given
// fully-qualified names.
func (r *Registry) GatherForDescNames(names ...string) []*dto.MetricFamily {
	if len(names) == 0 {
		return nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var matched []*dto.MetricFamily
	for _, mf := range r.Gather() {
		if want[mf.GetName()] {
			matched = append(matched, mf)
		}
	}
	return matched
}

// GatherForLabels gathers the metrics carrying all of the given label
// pairs. Families are returned with non-matching samples filtered out.
func (r *Registry) GatherForLabels(labels map[string]string) []*dto.MetricFamily {
	if len(labels) == 0 {
		return nil
	}
	var matched []*dto.MetricFamily
	for _, mf := range r.Gather() {
		var metrics []*dto.Metric
		for _, m := range mf.GetMetric() {
			if metricHasLabels(m, labels) {
				metrics = append(metrics, m)
			}
		}
		if len(metrics) > 0 {
			matched = append(matched, &dto.MetricFamily{
				Name:   mf.Name,
				Help:   mf.Help,
				Type:   mf.Type,
				Metric: metrics,
			})
		}
	}
	return matched
}

func metricHasLabels(m *dto.Metric, labels map[string]string) bool {
	for name, value := range labels {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WriteText encodes a fresh snapshot in the Prometheus text exposition
// format. The transform is pure: it has no effect on registry state.
func (r *Registry) WriteText(w io.Writer) error {
	for _, mf := range r.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// HTTPHandler returns a scrape handler serving this registry.
func (r *Registry) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(r.inner, promhttp.HandlerOpts{})
}

// RegisterCounter builds and registers the counter, or returns the
// previously registered counter with the identical descriptor.
func (r *Registry) RegisterCounter(b *CounterBuilder) (*Counter, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	counter, ok := c.(*Counter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return counter, nil
}

// RegisterCounterVec builds and registers the counter family, or
// returns the previously registered family with the identical
// descriptor.
func (r *Registry) RegisterCounterVec(b *CounterVecBuilder) (*CounterVec, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	vec, ok := c.(*CounterVec)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return vec, nil
}

// RegisterGauge builds and registers the gauge, or returns the
// previously registered gauge with the identical descriptor.
func (r *Registry) RegisterGauge(b *GaugeBuilder) (*Gauge, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	gauge, ok := c.(*Gauge)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return gauge, nil
}

// RegisterGaugeVec builds and registers the gauge family, or returns
// the previously registered family with the identical descriptor.
func (r *Registry) RegisterGaugeVec(b *GaugeVecBuilder) (*GaugeVec, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	vec, ok := c.(*GaugeVec)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return vec, nil
}

// RegisterHistogram builds and registers the histogram, or returns the
// previously registered histogram with the identical descriptor.
func (r *Registry) RegisterHistogram(b *HistogramBuilder) (*Histogram, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	hist, ok := c.(*Histogram)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return hist, nil
}

// RegisterHistogramVec builds and registers the histogram family, or
// returns the previously registered family with the identical
// descriptor.
func (r *Registry) RegisterHistogramVec(b *HistogramVecBuilder) (*HistogramVec, error) {
	c, err := r.getOrRegister(func() (Collector, error) { return b.Build() })
	if err != nil {
		return nil, err
	}
	vec, ok := c.(*HistogramVec)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescMismatch, c.Descs()[0].FQName())
	}
	return vec, nil
}

func (r *Registry) getOrRegister(build func() (Collector, error)) (Collector, error) {
	c, err := build()
	if err != nil {
		return nil, err
	}
	d := c.Descs()[0]

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[d.ID()]; ok {
		if existing.Descs()[0].DimHash() != d.DimHash() {
			return nil, fmt.Errorf("%w: %s", ErrDescMismatch, d.FQName())
		}
		return existing, nil
	}
	if err := r.registerLocked(c); err != nil {
		return nil, err
	}
	r.cache[d.ID()] = c
	return c, nil
}

func sortDescs(ds []*Desc) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].FQName() != ds[j].FQName() {
			return ds[i].FQName() < ds[j].FQName()
		}
		return ds[i].ID() < ds[j].ID()
	})
}
