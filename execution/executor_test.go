package execution

import (
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substratelabs/substrate/metrics"
)

func newTestRegistry(t *testing.T) (*Registry, *metrics.Registry) {
	t.Helper()
	m := metrics.NewRegistry()
	r, err := NewRegistry(m)
	require.NoError(t, err)
	return r, m
}

func gaugeValue(t *testing.T, mfs []*dto.MetricFamily, name, labelValue string) float64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("gauge %s{%s} not found", name, labelValue)
	return 0
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, labelValue string) float64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRegister(t *testing.T) {
	r, _ := newTestRegistry(t)

	t.Run("registers and starts eagerly", func(t *testing.T) {
		id := NewExecutorID()
		e, err := r.Register(NewBuilder(id).SetPoolSize(2))
		require.NoError(t, err)
		assert.Equal(t, id, e.ID())
		assert.Equal(t, 2, e.PoolSize())
		assert.True(t, e.CatchPanics())

		mfs := r.GatherMetrics()
		assert.Equal(t, float64(2), gaugeValue(t, mfs, ThreadPoolSizeGaugeMetricID.Name(), id.String()))
	})

	t.Run("duplicate id fails", func(t *testing.T) {
		id := NewExecutorID()
		_, err := r.Register(NewBuilder(id))
		require.NoError(t, err)
		_, err = r.Register(NewBuilder(id))
		assert.ErrorIs(t, err, ErrExecutorAlreadyRegistered)
	})

	t.Run("reserved global id fails", func(t *testing.T) {
		_, err := r.Register(NewBuilder(GlobalExecutorID))
		assert.ErrorIs(t, err, ErrGlobalExecutorReserved)
	})

	t.Run("invalid pool size fails", func(t *testing.T) {
		_, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(0))
		assert.ErrorIs(t, err, ErrInvalidPoolSize)
	})

	t.Run("nil builder fails", func(t *testing.T) {
		_, err := r.Register(nil)
		assert.ErrorIs(t, err, ErrNilBuilder)
	})

	t.Run("stack size hint is surfaced", func(t *testing.T) {
		e, err := r.Register(NewBuilder(NewExecutorID()).SetStackSize(64 * 1024))
		require.NoError(t, err)
		assert.Equal(t, 64*1024, e.StackSize())
	})
}

func TestSpawnCounts(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := NewExecutorID()
	e, err := r.Register(NewBuilder(id).SetPoolSize(4))
	require.NoError(t, err)

	const tasks = 50
	const panickers = 7
	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		i := i
		e.Spawn(func() {
			defer wg.Done()
			if i < panickers {
				panic("boom")
			}
		})
	}
	wg.Wait()

	require.Eventually(t, func() bool { return e.ActiveTaskCount() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(tasks), e.SpawnedTaskCount())
	assert.Equal(t, uint64(tasks), e.CompletedTaskCount())
	assert.Equal(t, uint64(panickers), e.PanickedTaskCount())

	mfs := r.GatherMetrics()
	assert.Equal(t, float64(tasks), counterValue(t, mfs, TaskSpawnedCounterMetricID.Name(), id.String()))
	assert.Equal(t, float64(tasks), counterValue(t, mfs, TaskCompletedCounterMetricID.Name(), id.String()))
	assert.Equal(t, float64(panickers), counterValue(t, mfs, TaskPanicCounterMetricID.Name(), id.String()))
}

func TestSpawnDoesNotBlock(t *testing.T) {
	r, _ := newTestRegistry(t)
	e, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(1))
	require.NoError(t, err)

	release := make(chan struct{})
	e.Spawn(func() { <-release })

	// the single worker is busy; further spawns must still return
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Spawn(func() {})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Spawn blocked while the pool was busy")
	}
	close(release)

	require.Eventually(t, func() bool { return e.ActiveTaskCount() == 0 }, time.Second, time.Millisecond)
}

func TestSpawnOrderIsFIFO(t *testing.T) {
	r, _ := newTestRegistry(t)
	e, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(1))
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		e.Spawn(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPanicNotification(t *testing.T) {
	r, _ := newTestRegistry(t)
	panics := make(chan TaskPanic, 1)
	id := NewExecutorID()
	e, err := r.Register(NewBuilder(id).SetPoolSize(1).SetPanicChan(panics))
	require.NoError(t, err)

	e.Spawn(func() { panic("kaput") })

	select {
	case p := <-panics:
		assert.Equal(t, id, p.ExecutorID)
		assert.Equal(t, "kaput", p.Value)
		assert.NotEmpty(t, p.Stack)
	case <-time.After(time.Second):
		t.Fatal("panic notification not delivered")
	}
}

func TestUncaughtPanicShrinksPool(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := NewExecutorID()
	e, err := r.Register(NewBuilder(id).SetPoolSize(2).SetCatchPanics(false))
	require.NoError(t, err)
	assert.False(t, e.CatchPanics())

	e.Spawn(func() { panic("worker killer") })
	require.Eventually(t, func() bool { return e.ActiveTaskCount() == 0 }, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return gaugeValue(t, r.GatherMetrics(), ThreadPoolSizeGaugeMetricID.Name(), id.String()) == 1
	}, time.Second, time.Millisecond)

	// the surviving worker keeps serving
	done := make(chan struct{})
	e.Spawn(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("surviving worker did not run the task")
	}
}

func TestSpawnDedicated(t *testing.T) {
	r, _ := newTestRegistry(t)
	e, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(1))
	require.NoError(t, err)

	// occupy the only pool worker, then run a dedicated task alongside
	block := make(chan struct{})
	e.Spawn(func() { <-block })

	done := make(chan struct{})
	e.SpawnDedicated(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dedicated task did not run while the pool was busy")
	}
	close(block)

	require.Eventually(t, func() bool { return e.ActiveTaskCount() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(2), e.SpawnedTaskCount())
}

func TestGlobalExecutor(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Equal(t, 0, r.Count(), "global executor must be lazy")

	g := r.Global()
	require.NotNil(t, g)
	assert.Equal(t, GlobalExecutorID, g.ID())
	assert.Same(t, g, r.Global())

	byID, ok := r.Executor(GlobalExecutorID)
	require.True(t, ok)
	assert.Same(t, g, byID)

	assert.Equal(t, 1, r.Count())
	assert.Contains(t, r.IDs(), GlobalExecutorID)
}

func TestRegistryTotalsReconcileWithMetrics(t *testing.T) {
	r, _ := newTestRegistry(t)

	e1, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(2))
	require.NoError(t, err)
	e2, err := r.Register(NewBuilder(NewExecutorID()).SetPoolSize(3))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, 5, r.TotalThreads())

	var wg sync.WaitGroup
	wg.Add(6)
	for i := 0; i < 4; i++ {
		e1.Spawn(func() { wg.Done() })
	}
	for i := 0; i < 2; i++ {
		e2.Spawn(func() { wg.Done() })
	}
	wg.Wait()
	assert.Equal(t, uint64(6), r.SpawnedTaskCount())

	mfs := r.GatherMetrics()
	total := counterValue(t, mfs, TaskSpawnedCounterMetricID.Name(), e1.ID().String()) +
		counterValue(t, mfs, TaskSpawnedCounterMetricID.Name(), e2.ID().String())
	assert.Equal(t, float64(6), total)

	sizes := r.ThreadPoolSizes()
	assert.Equal(t, 2, sizes[e1.ID()])
	assert.Equal(t, 3, sizes[e2.ID()])

	// workers started counter covers both pools
	for _, mf := range mfs {
		if mf.GetName() == ThreadsStartedCounterMetricID.Name() {
			assert.Equal(t, float64(5), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
