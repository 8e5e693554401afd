package substrate

import (
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/substratelabs/substrate/execution"
	"github.com/substratelabs/substrate/logging"
	"github.com/substratelabs/substrate/metrics"
	"github.com/substratelabs/substrate/reqrep"
)

// Aliases for the types most call sites need, so simple applications
// only import the root package.
type (
	LogFields     = logging.LogFields
	ServiceLogger = logging.ServiceLogger

	MetricRegistry   = metrics.Registry
	MetricID         = metrics.MetricID
	LabelID          = metrics.LabelID
	TimerBuckets     = metrics.TimerBuckets
	ExecutorRegistry = execution.Registry
	ExecutorID       = execution.ExecutorID
	ExecutorBuilder  = execution.Builder
	TaskPanic        = execution.TaskPanic
	ServiceRegistry  = reqrep.Registry
	ReqRepID         = reqrep.ReqRepID
	ReqRepConfig     = reqrep.Config
)

// Platform is the wired bundle of registries an application builds
// once at startup. The fields are exported; there is no hidden global.
type Platform struct {
	Metrics   *metrics.Registry
	Executors *execution.Registry
	Services  *reqrep.Registry
}

// New builds a platform: a fresh metric registry, an executor registry
// publishing into it, and a service registry running on those
// executors.
func New() (*Platform, error) {
	m := metrics.NewRegistry()
	execs, err := execution.NewRegistry(m)
	if err != nil {
		return nil, err
	}
	services, err := reqrep.NewRegistry(m, execs)
	if err != nil {
		return nil, err
	}
	return &Platform{Metrics: m, Executors: execs, Services: services}, nil
}

// Fleet is a point-in-time snapshot of everything the platform runs.
type Fleet struct {
	Timestamp      time.Time        `json:"timestamp"`
	Executors      []ExecutorStatus `json:"executors"`
	Services       []ServiceStatus  `json:"services"`
	MetricFamilies int              `json:"metric_families"`
}

// ExecutorStatus reports one executor's configuration and task counts.
type ExecutorStatus struct {
	ID        string `json:"id"`
	PoolSize  int    `json:"pool_size"`
	Spawned   uint64 `json:"spawned"`
	Completed uint64 `json:"completed"`
	Panicked  uint64 `json:"panicked"`
	Active    uint64 `json:"active"`
}

// ServiceStatus reports one service's live instance count.
type ServiceStatus struct {
	ID        string `json:"id"`
	Instances int    `json:"instances"`
}

// Fleet snapshots the platform. Executors and services are listed in
// id order.
func (p *Platform) Fleet() Fleet {
	f := Fleet{
		Timestamp:      time.Now().UTC(),
		MetricFamilies: len(p.Metrics.Descs()),
	}
	for _, e := range p.Executors.Executors() {
		f.Executors = append(f.Executors, ExecutorStatus{
			ID:        e.ID().String(),
			PoolSize:  e.PoolSize(),
			Spawned:   e.SpawnedTaskCount(),
			Completed: e.CompletedTaskCount(),
			Panicked:  e.PanickedTaskCount(),
			Active:    e.ActiveTaskCount(),
		})
	}
	for _, id := range p.Services.ServiceIDs() {
		f.Services = append(f.Services, ServiceStatus{
			ID:        id.String(),
			Instances: p.Services.InstanceCount(id),
		})
	}
	return f
}

// FleetReport returns the fleet snapshot as JSON.
func (p *Platform) FleetReport() ([]byte, error) {
	return sonic.Marshal(p.Fleet())
}

// WriteMetrics writes every registered metric family to w in the text
// exposition format.
func (p *Platform) WriteMetrics(w io.Writer) error {
	return p.Metrics.WriteText(w)
}
