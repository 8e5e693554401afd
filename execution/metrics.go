package execution

import "github.com/substratelabs/substrate/metrics"

// Executor metric ids. Assigned once; stable for the life of the
// system (see the metrics package on why metrics are named by ULID).
var (
	// TaskSpawnedCounterMetricID counts tasks spawned, per executor.
	TaskSpawnedCounterMetricID = metrics.MustParseMetricID("01HZX3R8T2E5KQJ9W4N6P0VSGA")
	// TaskCompletedCounterMetricID counts tasks completed, per executor.
	TaskCompletedCounterMetricID = metrics.MustParseMetricID("01HZX3SDV7M2Q8KF5W9T4C6JNE")
	// TaskPanicCounterMetricID counts recovered task panics, per executor.
	TaskPanicCounterMetricID = metrics.MustParseMetricID("01HZX3TFG4B7DQ2M8KW5N9XCRA")
	// ThreadPoolSizeGaugeMetricID tracks live pool workers, per executor.
	ThreadPoolSizeGaugeMetricID = metrics.MustParseMetricID("01HZX3VJ5C8EQ2T7K4MWB6NDPG")
	// ThreadsStartedCounterMetricID counts workers started across all executors.
	ThreadsStartedCounterMetricID = metrics.MustParseMetricID("01HZX3WKQ9D4FT2B7M5XCJ8NVE")

	// ExecutorIDLabelID is the variable label carrying the executor id.
	ExecutorIDLabelID = metrics.MustParseLabelID("01HZX3XMN2F6QT8C4KW7B9DJSE")
)

// MetricIDs lists the executor-related metric ids, for scoped gathers.
func MetricIDs() []metrics.MetricID {
	return []metrics.MetricID{
		TaskSpawnedCounterMetricID,
		TaskCompletedCounterMetricID,
		TaskPanicCounterMetricID,
		ThreadPoolSizeGaugeMetricID,
		ThreadsStartedCounterMetricID,
	}
}

type executorMetrics struct {
	spawned        *metrics.CounterVec
	completed      *metrics.CounterVec
	panicked       *metrics.CounterVec
	poolSize       *metrics.GaugeVec
	threadsStarted *metrics.Counter
}

func registerExecutorMetrics(m *metrics.Registry) (*executorMetrics, error) {
	spawned, err := m.RegisterCounterVec(
		metrics.NewCounterVecBuilder(TaskSpawnedCounterMetricID, "Task spawned count", ExecutorIDLabelID))
	if err != nil {
		return nil, err
	}
	completed, err := m.RegisterCounterVec(
		metrics.NewCounterVecBuilder(TaskCompletedCounterMetricID, "Task completed count", ExecutorIDLabelID))
	if err != nil {
		return nil, err
	}
	panicked, err := m.RegisterCounterVec(
		metrics.NewCounterVecBuilder(TaskPanicCounterMetricID, "Task panic count", ExecutorIDLabelID))
	if err != nil {
		return nil, err
	}
	poolSize, err := m.RegisterGaugeVec(
		metrics.NewGaugeVecBuilder(ThreadPoolSizeGaugeMetricID, "Worker pool size", ExecutorIDLabelID))
	if err != nil {
		return nil, err
	}
	threadsStarted, err := m.RegisterCounter(
		metrics.NewCounterBuilder(ThreadsStartedCounterMetricID, "Total workers started across all executors"))
	if err != nil {
		return nil, err
	}
	return &executorMetrics{
		spawned:        spawned,
		completed:      completed,
		panicked:       panicked,
		poolSize:       poolSize,
		threadsStarted: threadsStarted,
	}, nil
}
