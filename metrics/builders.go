package metrics

import "github.com/prometheus/client_golang/prometheus"

// CounterBuilder builds a Counter.
type CounterBuilder struct {
	id          MetricID
	help        string
	constLabels []ConstLabel
}

// NewCounterBuilder starts a Counter definition.
func NewCounterBuilder(id MetricID, help string) *CounterBuilder {
	return &CounterBuilder{id: id, help: help}
}

// WithConstLabel attaches a constant label pair.
func (b *CounterBuilder) WithConstLabel(id LabelID, value string) *CounterBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *CounterBuilder) Build() (*Counter, error) {
	d, err := NewDesc(b.id, b.help, nil, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &Counter{
		Counter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			ConstLabels: promConstLabels(d),
		}),
		desc: d,
	}, nil
}

// CounterVecBuilder builds a CounterVec.
type CounterVecBuilder struct {
	id          MetricID
	help        string
	varLabels   []LabelID
	constLabels []ConstLabel
}

// NewCounterVecBuilder starts a CounterVec definition. At least one
// variable label is required.
func NewCounterVecBuilder(id MetricID, help string, varLabels ...LabelID) *CounterVecBuilder {
	return &CounterVecBuilder{id: id, help: help, varLabels: varLabels}
}

// WithConstLabel attaches a constant label pair.
func (b *CounterVecBuilder) WithConstLabel(id LabelID, value string) *CounterVecBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *CounterVecBuilder) Build() (*CounterVec, error) {
	if len(b.varLabels) == 0 {
		return nil, ErrNoVariableLabels
	}
	d, err := NewDesc(b.id, b.help, b.varLabels, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &CounterVec{
		CounterVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			ConstLabels: promConstLabels(d),
		}, promVarLabels(d)),
		desc: d,
	}, nil
}

// GaugeBuilder builds a Gauge.
type GaugeBuilder struct {
	id          MetricID
	help        string
	constLabels []ConstLabel
}

// NewGaugeBuilder starts a Gauge definition.
func NewGaugeBuilder(id MetricID, help string) *GaugeBuilder {
	return &GaugeBuilder{id: id, help: help}
}

// WithConstLabel attaches a constant label pair.
func (b *GaugeBuilder) WithConstLabel(id LabelID, value string) *GaugeBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *GaugeBuilder) Build() (*Gauge, error) {
	d, err := NewDesc(b.id, b.help, nil, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &Gauge{
		Gauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			ConstLabels: promConstLabels(d),
		}),
		desc: d,
	}, nil
}

// GaugeVecBuilder builds a GaugeVec.
type GaugeVecBuilder struct {
	id          MetricID
	help        string
	varLabels   []LabelID
	constLabels []ConstLabel
}

// NewGaugeVecBuilder starts a GaugeVec definition. At least one
// variable label is required.
func NewGaugeVecBuilder(id MetricID, help string, varLabels ...LabelID) *GaugeVecBuilder {
	return &GaugeVecBuilder{id: id, help: help, varLabels: varLabels}
}

// WithConstLabel attaches a constant label pair.
func (b *GaugeVecBuilder) WithConstLabel(id LabelID, value string) *GaugeVecBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *GaugeVecBuilder) Build() (*GaugeVec, error) {
	if len(b.varLabels) == 0 {
		return nil, ErrNoVariableLabels
	}
	d, err := NewDesc(b.id, b.help, b.varLabels, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &GaugeVec{
		GaugeVec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			ConstLabels: promConstLabels(d),
		}, promVarLabels(d)),
		desc: d,
	}, nil
}

// HistogramBuilder builds a Histogram.
type HistogramBuilder struct {
	id          MetricID
	help        string
	buckets     []float64
	constLabels []ConstLabel
}

// NewHistogramBuilder starts a Histogram definition with explicit
// bucket upper bounds.
func NewHistogramBuilder(id MetricID, help string, buckets []float64) *HistogramBuilder {
	return &HistogramBuilder{id: id, help: help, buckets: buckets}
}

// NewTimerHistogramBuilder starts a Histogram definition with bucket
// bounds given as durations. Observations are reported in seconds.
func NewTimerHistogramBuilder(id MetricID, help string, buckets TimerBuckets) *HistogramBuilder {
	return &HistogramBuilder{id: id, help: help, buckets: buckets.Seconds()}
}

// WithConstLabel attaches a constant label pair.
func (b *HistogramBuilder) WithConstLabel(id LabelID, value string) *HistogramBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *HistogramBuilder) Build() (*Histogram, error) {
	if len(b.buckets) == 0 {
		return nil, ErrNoBuckets
	}
	d, err := NewDesc(b.id, b.help, nil, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &Histogram{
		Histogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			Buckets:     b.buckets,
			ConstLabels: promConstLabels(d),
		}),
		desc: d,
	}, nil
}

// HistogramVecBuilder builds a HistogramVec.
type HistogramVecBuilder struct {
	id          MetricID
	help        string
	buckets     []float64
	varLabels   []LabelID
	constLabels []ConstLabel
}

// NewHistogramVecBuilder starts a HistogramVec definition. At least one
// variable label is required.
func NewHistogramVecBuilder(id MetricID, help string, buckets []float64, varLabels ...LabelID) *HistogramVecBuilder {
	return &HistogramVecBuilder{id: id, help: help, buckets: buckets, varLabels: varLabels}
}

// NewTimerHistogramVecBuilder starts a HistogramVec definition with
// bucket bounds given as durations.
func NewTimerHistogramVecBuilder(id MetricID, help string, buckets TimerBuckets, varLabels ...LabelID) *HistogramVecBuilder {
	return &HistogramVecBuilder{id: id, help: help, buckets: buckets.Seconds(), varLabels: varLabels}
}

// WithConstLabel attaches a constant label pair.
func (b *HistogramVecBuilder) WithConstLabel(id LabelID, value string) *HistogramVecBuilder {
	b.constLabels = append(b.constLabels, ConstLabel{ID: id, Value: value})
	return b
}

// Build validates the definition and constructs the collector.
func (b *HistogramVecBuilder) Build() (*HistogramVec, error) {
	if len(b.varLabels) == 0 {
		return nil, ErrNoVariableLabels
	}
	if len(b.buckets) == 0 {
		return nil, ErrNoBuckets
	}
	d, err := NewDesc(b.id, b.help, b.varLabels, b.constLabels)
	if err != nil {
		return nil, err
	}
	return &HistogramVec{
		HistogramVec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        d.FQName(),
			Help:        d.Help(),
			Buckets:     b.buckets,
			ConstLabels: promConstLabels(d),
		}, promVarLabels(d)),
		desc: d,
	}, nil
}
