package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector is a prometheus collector that also exposes the substrate
// descriptors it owns, which is what the Registry validates against.
type Collector interface {
	prometheus.Collector
	Descs() []*Desc
}

// Counter is a single monotonically increasing counter.
type Counter struct {
	prometheus.Counter
	desc *Desc
}

// Descs implements Collector.
func (c *Counter) Descs() []*Desc { return []*Desc{c.desc} }

// CounterVec is a counter family keyed by variable-label values.
type CounterVec struct {
	*prometheus.CounterVec
	desc *Desc
}

// Descs implements Collector.
func (c *CounterVec) Descs() []*Desc { return []*Desc{c.desc} }

// Gauge is a single value that can go up and down.
type Gauge struct {
	prometheus.Gauge
	desc *Desc
}

// Descs implements Collector.
func (g *Gauge) Descs() []*Desc { return []*Desc{g.desc} }

// GaugeVec is a gauge family keyed by variable-label values.
type GaugeVec struct {
	*prometheus.GaugeVec
	desc *Desc
}

// Descs implements Collector.
func (g *GaugeVec) Descs() []*Desc { return []*Desc{g.desc} }

// Histogram is a single histogram, typically used as a timer.
type Histogram struct {
	prometheus.Histogram
	desc *Desc
}

// Descs implements Collector.
func (h *Histogram) Descs() []*Desc { return []*Desc{h.desc} }

// HistogramVec is a histogram family keyed by variable-label values.
type HistogramVec struct {
	*prometheus.HistogramVec
	desc *Desc
}

// Descs implements Collector.
func (h *HistogramVec) Descs() []*Desc { return []*Desc{h.desc} }

func promConstLabels(d *Desc) prometheus.Labels {
	if len(d.constLabels) == 0 {
		return nil
	}
	labels := make(prometheus.Labels, len(d.constLabels))
	for _, cl := range d.constLabels {
		labels[cl.ID.Name()] = cl.Value
	}
	return labels
}

func promVarLabels(d *Desc) []string {
	names := make([]string, len(d.varLabels))
	for i, vl := range d.varLabels {
		names[i] = vl.Name()
	}
	return names
}
