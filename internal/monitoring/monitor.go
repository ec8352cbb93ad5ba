package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Check reports the health of one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// Gauge reports a value shown alongside the checks, such as the number of
// connected stream clients.
type Gauge func() interface{}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name    string  `json:"name"`
	OK      bool    `json:"ok"`
	Error   string  `json:"error,omitempty"`
	Latency float64 `json:"latencyMs"`
}

// Report is the health document served at /health.
type Report struct {
	OK            bool                   `json:"ok"`
	UptimeSeconds float64                `json:"uptimeSeconds"`
	Checks        []CheckResult          `json:"checks"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
}

// Monitor runs health checks and collects service information
type Monitor struct {
	checks       map[string]Check
	gauges       map[string]Gauge
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
	timeout      time.Duration
}

// NewMonitor creates a new monitoring instance. Each check gets at most
// timeout to answer.
func NewMonitor(timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Monitor{
		checks:    make(map[string]Check),
		gauges:    make(map[string]Gauge),
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
		timeout:   timeout,
	}
}

// Register adds a named health check, replacing any check with that name.
func (m *Monitor) Register(name string, check Check) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.checks[name] = check
}

// Observe adds a gauge evaluated on every report.
func (m *Monitor) Observe(name string, gauge Gauge) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.gauges[name] = gauge
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetrics returns recorded metrics, current gauge values and uptime.
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	metrics := make(map[string]interface{}, len(m.metrics)+len(m.gauges)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}
	for k, g := range m.gauges {
		metrics[k] = g()
	}
	metrics["uptime_seconds"] = m.Uptime().Seconds()

	return metrics
}

// Uptime returns how long the monitor has existed.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Report runs every check and reports overall health. Checks run one after
// another in name order.
func (m *Monitor) Report(ctx context.Context) Report {
	m.metricsMutex.RLock()
	names := make([]string, 0, len(m.checks))
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		names = append(names, name)
		checks[name] = check
	}
	m.metricsMutex.RUnlock()
	sort.Strings(names)

	report := Report{
		OK:            true,
		UptimeSeconds: m.Uptime().Seconds(),
		Checks:        make([]CheckResult, 0, len(names)),
		Metrics:       m.GetMetrics(),
	}
	delete(report.Metrics, "uptime_seconds")

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := checks[name](checkCtx)
		cancel()

		result := CheckResult{
			Name:    name,
			OK:      err == nil,
			Latency: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			result.Error = err.Error()
			report.OK = false
		}
		report.Checks = append(report.Checks, result)
	}
	return report
}
