package metrics

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multiCollector bundles several collectors so a single registration
// owns multiple descriptors.
type multiCollector struct {
	collectors []Collector
}

func (m *multiCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

func (m *multiCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

func (m *multiCollector) Descs() []*Desc {
	var ds []*Desc
	for _, c := range m.collectors {
		ds = append(ds, c.Descs()...)
	}
	return ds
}

func mustCounter(t *testing.T, id MetricID, help string, constLabels ...ConstLabel) *Counter {
	t.Helper()
	b := NewCounterBuilder(id, help)
	for _, cl := range constLabels {
		b = b.WithConstLabel(cl.ID, cl.Value)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestRegisterDescriptorConsistency(t *testing.T) {
	metricID := NewMetricID()
	labelID := NewLabelID()

	t.Run("same name with differing const label values registers", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "A"})))
		require.NoError(t, r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "B"})))
		assert.Len(t, r.Descs(), 2)
	})

	t.Run("same name with different help fails", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "A"})))
		err := r.Register(mustCounter(t, metricID, "other help", ConstLabel{ID: labelID, Value: "B"}))
		assert.ErrorIs(t, err, ErrDescMismatch)
	})

	t.Run("same name with different label names fails", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "A"})))
		err := r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: NewLabelID(), Value: "A"}))
		assert.ErrorIs(t, err, ErrDescMismatch)
	})

	t.Run("identical name and const label values is a duplicate", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "A"})))
		err := r.Register(mustCounter(t, metricID, "help", ConstLabel{ID: labelID, Value: "A"}))
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	})

	t.Run("nil collector fails", func(t *testing.T) {
		assert.ErrorIs(t, NewRegistry().Register(nil), ErrNilCollector)
	})

	t.Run("collector without descriptors fails", func(t *testing.T) {
		assert.ErrorIs(t, NewRegistry().Register(&multiCollector{}), ErrNoDescriptors)
	})
}

func TestRegisterAllOrNothing(t *testing.T) {
	r := NewRegistry()
	sharedID := NewMetricID()
	labelID := NewLabelID()

	require.NoError(t, r.Register(mustCounter(t, sharedID, "help", ConstLabel{ID: labelID, Value: "A"})))

	// second collector owns one fresh desc and one conflicting desc
	freshID := NewMetricID()
	mc := &multiCollector{collectors: []Collector{
		mustCounter(t, freshID, "fresh"),
		mustCounter(t, sharedID, "conflicting help", ConstLabel{ID: labelID, Value: "B"}),
	}}
	err := r.Register(mc)
	require.ErrorIs(t, err, ErrDescMismatch)

	// the fresh descriptor must not have leaked in
	assert.Empty(t, r.DescsForMetricIDs(freshID))
	assert.Len(t, r.Descs(), 1)
}

func TestHelpBoundaryThroughCollectors(t *testing.T) {
	r := NewRegistry()

	c, err := NewCounterBuilder(NewMetricID(), strings.Repeat("h", MaxHelpLen)).Build()
	require.NoError(t, err)
	require.NoError(t, r.Register(c))

	_, err = NewCounterBuilder(NewMetricID(), strings.Repeat("h", MaxHelpLen+1)).Build()
	assert.ErrorIs(t, err, ErrHelpTooLong)
}

func TestVectorsRequireVariableLabels(t *testing.T) {
	_, err := NewCounterVecBuilder(NewMetricID(), "help").Build()
	assert.ErrorIs(t, err, ErrNoVariableLabels)

	_, err = NewGaugeVecBuilder(NewMetricID(), "help").Build()
	assert.ErrorIs(t, err, ErrNoVariableLabels)

	_, err = NewHistogramVecBuilder(NewMetricID(), "help", []float64{0.1}).Build()
	assert.ErrorIs(t, err, ErrNoVariableLabels)

	_, err = NewHistogramBuilder(NewMetricID(), "help", nil).Build()
	assert.ErrorIs(t, err, ErrNoBuckets)
}

func TestQueriesAndFilters(t *testing.T) {
	r := NewRegistry()
	metricID := NewMetricID()
	labelID := NewLabelID()

	vec, err := NewCounterVecBuilder(metricID, "requests", labelID).Build()
	require.NoError(t, err)
	require.NoError(t, r.Register(vec))
	vec.WithLabelValues("svc-1").Add(3)
	vec.WithLabelValues("svc-2").Inc()

	t.Run("empty selectors yield empty results and no error", func(t *testing.T) {
		assert.Empty(t, r.GatherForMetricIDs())
		assert.Empty(t, r.GatherForDescNames())
		assert.Empty(t, r.GatherForLabels(nil))
		assert.Empty(t, r.DescsForMetricIDs())
		assert.Empty(t, r.DescsForIDs())
		assert.Empty(t, r.CollectorsForMetricIDs())
	})

	t.Run("unmatched filter elements are silently ignored", func(t *testing.T) {
		ds := r.DescsForMetricIDs(metricID, NewMetricID())
		require.Len(t, ds, 1)
		assert.Equal(t, metricID, ds[0].MetricID())

		assert.Empty(t, r.GatherForMetricIDs(NewMetricID()))
	})

	t.Run("gather by metric id", func(t *testing.T) {
		mfs := r.GatherForMetricIDs(metricID)
		require.Len(t, mfs, 1)
		assert.Equal(t, metricID.Name(), mfs[0].GetName())
		assert.Len(t, mfs[0].GetMetric(), 2)
	})

	t.Run("gather by label pair filters samples", func(t *testing.T) {
		mfs := r.GatherForLabels(map[string]string{labelID.Name(): "svc-1"})
		require.Len(t, mfs, 1)
		require.Len(t, mfs[0].GetMetric(), 1)
		assert.Equal(t, float64(3), mfs[0].GetMetric()[0].GetCounter().GetValue())
	})

	t.Run("descs by id set", func(t *testing.T) {
		d := vec.Descs()[0]
		ds := r.DescsForIDs(d.ID(), 42)
		require.Len(t, ds, 1)
		assert.Equal(t, d.ID(), ds[0].ID())
	})

	t.Run("collector handles are returned for introspection", func(t *testing.T) {
		cs := r.CollectorsForMetricIDs(metricID)
		require.Len(t, cs, 1)
		assert.Same(t, Collector(vec), cs[0])
	})

	t.Run("gathering is a fresh snapshot", func(t *testing.T) {
		before := r.GatherForMetricIDs(metricID)[0].GetMetric()[0].GetCounter().GetValue()
		vec.WithLabelValues("svc-1").Inc()
		after := r.GatherForMetricIDs(metricID)[0].GetMetric()[0].GetCounter().GetValue()
		assert.Equal(t, before+1, after)
	})
}

func TestGetOrRegisterFamilies(t *testing.T) {
	r := NewRegistry()
	metricID := NewMetricID()
	labelID := NewLabelID()

	v1, err := r.RegisterCounterVec(NewCounterVecBuilder(metricID, "help", labelID))
	require.NoError(t, err)
	v2, err := r.RegisterCounterVec(NewCounterVecBuilder(metricID, "help", labelID))
	require.NoError(t, err)
	assert.Same(t, v1, v2)

	// schema drift on the same id is rejected
	_, err = r.RegisterCounterVec(NewCounterVecBuilder(metricID, "different help", labelID))
	assert.ErrorIs(t, err, ErrDescMismatch)

	// a different shape for the same descriptor is rejected
	_, err = r.RegisterGaugeVec(NewGaugeVecBuilder(metricID, "help", labelID))
	assert.ErrorIs(t, err, ErrDescMismatch)

	g, err := r.RegisterGauge(NewGaugeBuilder(NewMetricID(), "gauge"))
	require.NoError(t, err)
	g.Set(7)

	h, err := r.RegisterHistogram(NewTimerHistogramBuilder(NewMetricID(), "timer", DefaultTimerBuckets))
	require.NoError(t, err)
	h.Observe(Secs(15 * time.Millisecond))

	c, err := r.RegisterCounter(NewCounterBuilder(NewMetricID(), "counter"))
	require.NoError(t, err)
	c.Inc()

	hv, err := r.RegisterHistogramVec(NewTimerHistogramVecBuilder(NewMetricID(), "timer vec", DefaultTimerBuckets, labelID))
	require.NoError(t, err)
	hv.WithLabelValues("x").Observe(0.1)

	assert.Len(t, r.Descs(), 5)
}

func TestConcurrentRegisterAndGather(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c, err := NewCounterBuilder(NewMetricID(), "concurrent").Build()
			require.NoError(t, err)
			assert.NoError(t, r.Register(c))
			c.Inc()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				// a gathered collector must always carry its descriptor
				for _, mf := range r.Gather() {
					assert.NotEmpty(t, mf.GetName())
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.Descs(), 16)
	assert.Len(t, r.Collectors(), 16)
}

func TestTextExposition(t *testing.T) {
	r := NewRegistry()
	metricID := NewMetricID()
	c := mustCounter(t, metricID, "exposed counter")
	require.NoError(t, r.Register(c))
	c.Add(5)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), metricID.Name())
	assert.Contains(t, buf.String(), "exposed counter")

	srv := httptest.NewServer(r.HTTPHandler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestTimerHelpers(t *testing.T) {
	d := Time(func() { time.Sleep(time.Millisecond) })
	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.InDelta(t, 0.25, Secs(250*time.Millisecond), 1e-9)

	secs := TimerBuckets{time.Second, 2 * time.Second}.Seconds()
	assert.Equal(t, []float64{1, 2}, secs)
	assert.NotEmpty(t, DefaultTimerBuckets)
}
