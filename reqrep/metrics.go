package reqrep

import "github.com/substratelabs/substrate/metrics"

// Service metric ids, shared across all services and labeled by
// ReqRepID. The per-service process timer histogram is not listed
// here: its MetricID is the ReqRepID itself, so every service gets its
// own bucket layout.
var (
	// ServiceInstanceCountMetricID tracks live backend instances, per service.
	ServiceInstanceCountMetricID = metrics.MustParseMetricID("01HZX40QW7K2TD8C5M9B4FNJGE")
	// RequestSendCounterMetricID counts requests accepted into a service
	// channel, per service.
	RequestSendCounterMetricID = metrics.MustParseMetricID("01HZX41RT5M8KC2W7D4Q9BNFJA")
	// ProcessorPanicCounterMetricID counts processing panics, per service.
	ProcessorPanicCounterMetricID = metrics.MustParseMetricID("01HZX42SV8N3FW5K7C2QD9MJTE")

	// ReqRepIDLabelID is the variable label carrying the service id.
	ReqRepIDLabelID = metrics.MustParseLabelID("01HZX43TW2P7QK4D8C5N9FMJVE")
)

// MetricIDs lists the shared service metric ids, for scoped gathers.
// Per-service timer ids are obtained from Registry.ServiceIDs.
func MetricIDs() []metrics.MetricID {
	return []metrics.MetricID{
		ServiceInstanceCountMetricID,
		RequestSendCounterMetricID,
		ProcessorPanicCounterMetricID,
	}
}

type serviceMetrics struct {
	instances *metrics.GaugeVec
	sends     *metrics.CounterVec
	panics    *metrics.CounterVec
}

func registerServiceMetrics(m *metrics.Registry) (*serviceMetrics, error) {
	instances, err := m.RegisterGaugeVec(
		metrics.NewGaugeVecBuilder(ServiceInstanceCountMetricID, "ReqRep service instance count", ReqRepIDLabelID))
	if err != nil {
		return nil, err
	}
	sends, err := m.RegisterCounterVec(
		metrics.NewCounterVecBuilder(RequestSendCounterMetricID, "ReqRep request send count", ReqRepIDLabelID))
	if err != nil {
		return nil, err
	}
	panics, err := m.RegisterCounterVec(
		metrics.NewCounterVecBuilder(ProcessorPanicCounterMetricID, "ReqRep processor panic count", ReqRepIDLabelID))
	if err != nil {
		return nil, err
	}
	return &serviceMetrics{instances: instances, sends: sends, panics: panics}, nil
}
