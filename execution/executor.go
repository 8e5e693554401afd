package execution

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/substratelabs/substrate/ids"
	"github.com/substratelabs/substrate/logging"
)

// ExecutorID uniquely identifies an executor.
type ExecutorID ulid.ULID

// NewExecutorID returns a fresh ExecutorID.
func NewExecutorID() ExecutorID {
	return ExecutorID(ids.New())
}

// MustParseExecutorID decodes the canonical ULID encoding and panics on
// malformed input.
func MustParseExecutorID(s string) ExecutorID {
	return ExecutorID(ids.MustParse(s))
}

// ULID returns the underlying identifier.
func (e ExecutorID) ULID() ulid.ULID { return ulid.ULID(e) }

// String returns the canonical ULID encoding.
func (e ExecutorID) String() string { return ulid.ULID(e).String() }

// GlobalExecutorID names the reserved global executor, created lazily
// by the registry on first use.
var GlobalExecutorID = MustParseExecutorID("01HZX3Y0000000000000000000")

// TaskPanic carries the cause of a recovered task panic to the
// executor's panic-notification channel.
type TaskPanic struct {
	ExecutorID ExecutorID
	Value      any
	Stack      []byte
}

// Builder configures an executor for registration.
type Builder struct {
	id          ExecutorID
	poolSize    int
	stackSize   int
	catchPanics bool
	panicChan   chan<- TaskPanic
	log         logging.ServiceLogger
}

// NewBuilder starts an executor definition. Defaults: pool size =
// CPU core count, panics are caught, no panic channel, nop logger.
func NewBuilder(id ExecutorID) *Builder {
	return &Builder{
		id:          id,
		poolSize:    runtime.NumCPU(),
		catchPanics: true,
		log:         logging.NopLogger(),
	}
}

// SetPoolSize sets the number of pool workers.
func (b *Builder) SetPoolSize(n int) *Builder {
	b.poolSize = n
	return b
}

// SetStackSize records a worker stack-size hint. Goroutine stacks are
// managed by the Go runtime, so the value is configuration metadata
// surfaced through the StackSize accessor rather than an allocation
// request.
func (b *Builder) SetStackSize(n int) *Builder {
	b.stackSize = n
	return b
}

// SetCatchPanics controls whether a panicking task costs the pool a
// worker. With catching disabled, the worker that ran the task is lost.
func (b *Builder) SetCatchPanics(catch bool) *Builder {
	b.catchPanics = catch
	return b
}

// SetPanicChan installs a channel receiving the cause of every
// recovered task panic. Delivery is asynchronous and best-effort: if
// the channel is full the notification is dropped and logged.
func (b *Builder) SetPanicChan(ch chan<- TaskPanic) *Builder {
	b.panicChan = ch
	return b
}

// SetLogger installs a logger for executor lifecycle events.
func (b *Builder) SetLogger(log logging.ServiceLogger) *Builder {
	if log != nil {
		b.log = log
	}
	return b
}

// ExecutorID returns the id the executor will be registered under.
func (b *Builder) ExecutorID() ExecutorID { return b.id }

// PoolSize returns the configured pool size.
func (b *Builder) PoolSize() int { return b.poolSize }

// StackSize returns the configured stack-size hint.
func (b *Builder) StackSize() int { return b.stackSize }

// CatchPanics returns whether task panics are caught.
func (b *Builder) CatchPanics() bool { return b.catchPanics }

// Executor is a named worker pool for running spawned tasks. It is a
// shareable handle; all methods are safe for concurrent use.
type Executor struct {
	id          ExecutorID
	poolSize    int
	stackSize   int
	catchPanics bool
	panicChan   chan<- TaskPanic
	log         logging.ServiceLogger

	queue *taskQueue

	spawned   prometheus.Counter
	completed prometheus.Counter
	panicked  prometheus.Counter
	pool      prometheus.Gauge

	spawnedN   atomic.Uint64
	completedN atomic.Uint64
	panickedN  atomic.Uint64
}

func newExecutor(b *Builder, em *executorMetrics) *Executor {
	label := b.id.String()
	e := &Executor{
		id:          b.id,
		poolSize:    b.poolSize,
		stackSize:   b.stackSize,
		catchPanics: b.catchPanics,
		panicChan:   b.panicChan,
		log:         b.log.With(logging.LogFields{"executor_id": label}),
		queue:       newTaskQueue(),
		spawned:     em.spawned.WithLabelValues(label),
		completed:   em.completed.WithLabelValues(label),
		panicked:    em.panicked.WithLabelValues(label),
		pool:        em.poolSize.WithLabelValues(label),
	}
	for i := 0; i < e.poolSize; i++ {
		e.pool.Inc()
		em.threadsStarted.Inc()
		go e.worker()
	}
	e.log.Info("executor started", logging.LogFields{"pool_size": e.poolSize})
	return e
}

// Spawn queues the task for execution on an arbitrary pool worker. It
// never blocks the caller; the spawned count is incremented before the
// task is scheduled.
func (e *Executor) Spawn(task func()) {
	e.spawnedN.Add(1)
	e.spawned.Inc()
	e.queue.push(task)
}

// SpawnDedicated runs the task on its own goroutine instead of a pool
// worker. Intended for long-lived loops that would otherwise pin a
// pool worker; the task is counted and panic-handled exactly like a
// pool task.
func (e *Executor) SpawnDedicated(task func()) {
	e.spawnedN.Add(1)
	e.spawned.Inc()
	go e.runTask(task)
}

// ID returns the executor id.
func (e *Executor) ID() ExecutorID { return e.id }

// PoolSize returns the registration-time pool size.
func (e *Executor) PoolSize() int { return e.poolSize }

// StackSize returns the registration-time stack-size hint.
func (e *Executor) StackSize() int { return e.stackSize }

// CatchPanics returns whether task panics are caught.
func (e *Executor) CatchPanics() bool { return e.catchPanics }

// SpawnedTaskCount returns the number of tasks spawned so far.
func (e *Executor) SpawnedTaskCount() uint64 { return e.spawnedN.Load() }

// CompletedTaskCount returns the number of tasks that finished,
// including tasks that panicked.
func (e *Executor) CompletedTaskCount() uint64 { return e.completedN.Load() }

// PanickedTaskCount returns the number of tasks that panicked.
func (e *Executor) PanickedTaskCount() uint64 { return e.panickedN.Load() }

// ActiveTaskCount returns spawned minus completed. The value is
// derived on demand, never stored.
func (e *Executor) ActiveTaskCount() uint64 {
	return e.SpawnedTaskCount() - e.CompletedTaskCount()
}

func (e *Executor) worker() {
	for {
		task := e.queue.pop()
		if !e.runTask(task) {
			// worker lost to an uncaught panic; the pool shrinks
			e.pool.Dec()
			return
		}
	}
}

// runTask executes one task, translating a panic into counters and an
// optional notification. It reports whether the executing worker may
// keep serving.
func (e *Executor) runTask(task func()) (keep bool) {
	keep = true
	defer func() {
		if v := recover(); v != nil {
			e.completedN.Add(1)
			e.completed.Inc()
			e.panickedN.Add(1)
			e.panicked.Inc()
			e.notifyPanic(v)
			if !e.catchPanics {
				keep = false
				e.log.Error("task panicked, worker lost", nil, logging.LogFields{"panic": v})
			} else {
				e.log.Error("task panicked", nil, logging.LogFields{"panic": v})
			}
			return
		}
		e.completedN.Add(1)
		e.completed.Inc()
	}()
	task()
	return
}

func (e *Executor) notifyPanic(v any) {
	if e.panicChan == nil {
		return
	}
	p := TaskPanic{ExecutorID: e.id, Value: v, Stack: debug.Stack()}
	select {
	case e.panicChan <- p:
	default:
		e.log.Error("panic notification dropped: channel full", nil, nil)
	}
}

// taskQueue is an unbounded FIFO queue; pushes never block and pops
// block until a task is available. The queue lives as long as its
// executor, which is the process lifetime, so it is never closed.
type taskQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks []func()
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *taskQueue) push(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *taskQueue) pop() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 {
		q.cond.Wait()
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task
}
