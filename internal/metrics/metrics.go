package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	calls         map[string]int64
	attempts      map[string]int64
	failures      map[string]int64
	recoveries    map[string]int64
	exhausted     map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	healthStatus  map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalCalls int64                      `json:"total_calls"`
	Uptime     time.Duration              `json:"uptime"`
	Upstreams  map[string]UpstreamMetrics `json:"upstreams"`
}

type UpstreamMetrics struct {
	Calls       int64         `json:"calls"`
	Attempts    int64         `json:"attempts"`
	Failures    int64         `json:"transport_failures"`
	Recoveries  int64         `json:"recoveries"`
	Exhausted   int64         `json:"exhausted"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		calls:         make(map[string]int64),
		attempts:      make(map[string]int64),
		failures:      make(map[string]int64),
		recoveries:    make(map[string]int64),
		exhausted:     make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementCalls(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls[upstream]++
}

func (m *Metrics) RecordAttempt(upstream string, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.attempts[upstream]++
	if failed {
		m.failures[upstream]++
	}
}

func (m *Metrics) RecordRecovery(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.recoveries[upstream]++
}

func (m *Metrics) RecordExhausted(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.exhausted[upstream]++
}

func (m *Metrics) RecordResponse(upstream string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[upstream] = append(m.responseTimes[upstream], duration)
	if len(m.responseTimes[upstream]) > maxSamples {
		m.responseTimes[upstream] = m.responseTimes[upstream][1:]
	}

	if m.statusCodes[upstream] == nil {
		m.statusCodes[upstream] = make(map[int]int64)
	}
	m.statusCodes[upstream][statusCode]++
}

func (m *Metrics) UpdateHealthStatus(upstream string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[upstream] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(m.startTime),
		Upstreams: make(map[string]UpstreamMetrics),
	}

	all := make(map[string]bool)
	for _, set := range []map[string]int64{m.calls, m.attempts, m.failures, m.recoveries, m.exhausted} {
		for upstream := range set {
			all[upstream] = true
		}
	}
	for upstream := range m.responseTimes {
		all[upstream] = true
	}
	for upstream := range m.healthStatus {
		all[upstream] = true
	}

	for upstream := range all {
		snap.TotalCalls += m.calls[upstream]

		um := UpstreamMetrics{
			Calls:       m.calls[upstream],
			Attempts:    m.attempts[upstream],
			Failures:    m.failures[upstream],
			Recoveries:  m.recoveries[upstream],
			Exhausted:   m.exhausted[upstream],
			Healthy:     m.healthStatus[upstream],
			StatusCodes: copyCodes(m.statusCodes[upstream]),
		}

		durations := m.responseTimes[upstream]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			um.AvgResponse = average(sorted)
			um.P50Response = percentile(sorted, 0.50)
			um.P95Response = percentile(sorted, 0.95)
			um.P99Response = percentile(sorted, 0.99)
		}

		snap.Upstreams[upstream] = um
	}

	return snap
}

func copyCodes(codes map[int]int64) map[int]int64 {
	if codes == nil {
		return nil
	}
	out := make(map[int]int64, len(codes))
	for code, n := range codes {
		out[code] = n
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
