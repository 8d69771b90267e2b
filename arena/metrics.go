package arena

import "github.com/prometheus/client_golang/prometheus"

// Metrics wires the arena's lifecycle and poll/step activity into
// Prometheus, the same collector-construction-and-register shape the
// teacher's engine package uses for its own operational counters.
type Metrics struct {
	arenasCreated   prometheus.Counter
	arenasDestroyed prometheus.Counter
	segsAllocated   prometheus.Counter
	segsFreed       prometheus.Counter
	segAllocFails   prometheus.Counter
	pollsRun        prometheus.Counter
	stepsRun        prometheus.Counter
	committed       prometheus.Gauge
	emergencyState  prometheus.Gauge
}

// NewMetrics builds and, if reg is non-nil, registers a Metrics instance.
// A nil registerer is fine for tests that don't care about Prometheus
// output; MustRegister is skipped in that case.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		arenasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "arena", Name: "created_total",
			Help: "Arenas created since process start.",
		}),
		arenasDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "arena", Name: "destroyed_total",
			Help: "Arenas destroyed since process start.",
		}),
		segsAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "seg", Name: "allocated_total",
			Help: "Segments allocated since process start.",
		}),
		segsFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "seg", Name: "freed_total",
			Help: "Segments freed since process start.",
		}),
		segAllocFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "seg", Name: "alloc_failures_total",
			Help: "Segment allocation attempts that failed for lack of address space or commit.",
		}),
		pollsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "arena", Name: "polls_total",
			Help: "ArenaPoll invocations that performed at least one step.",
		}),
		stepsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mps", Subsystem: "arena", Name: "steps_total",
			Help: "ArenaStep invocations.",
		}),
		committed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mps", Subsystem: "arena", Name: "committed_bytes",
			Help: "Bytes currently committed across all tracts.",
		}),
		emergencyState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mps", Subsystem: "arena", Name: "emergency",
			Help: "1 if any arena is currently in the emergency state, else 0.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.arenasCreated, m.arenasDestroyed,
			m.segsAllocated, m.segsFreed, m.segAllocFails,
			m.pollsRun, m.stepsRun, m.committed, m.emergencyState,
		)
	}
	return m
}

func (m *Metrics) ObserveArenaCreated()   { m.arenasCreated.Inc() }
func (m *Metrics) ObserveArenaDestroyed() { m.arenasDestroyed.Inc() }
func (m *Metrics) ObserveSegAlloc()       { m.segsAllocated.Inc() }
func (m *Metrics) ObserveSegFree()        { m.segsFreed.Inc() }
func (m *Metrics) ObserveSegAllocFail()   { m.segAllocFails.Inc() }
func (m *Metrics) ObservePoll()           { m.pollsRun.Inc() }
func (m *Metrics) ObserveStep()           { m.stepsRun.Inc() }
func (m *Metrics) SetCommitted(bytes float64) { m.committed.Set(bytes) }
func (m *Metrics) SetEmergency(on bool) {
	if on {
		m.emergencyState.Set(1)
	} else {
		m.emergencyState.Set(0)
	}
}
