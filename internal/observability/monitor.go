package observability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/pkg/statx"
)

// latencyWindow is the number of recent successful calls kept per algorithm
// for rolling percentile estimation.
const latencyWindow = 100

// rpmBuckets is the width of the requests-per-minute sliding window.
const rpmBuckets = 60

// PerfRecord is one per-call performance signal.
type PerfRecord struct {
	Timestamp     time.Time
	Algorithm     domain.AlgorithmID
	ElapsedMS     float64
	ResultCount   int
	Success       bool
	Cancelled     bool
	AvgConfidence float64
	UserID        string
}

// AlertThresholds holds advisory alerting limits for the monitor.
type AlertThresholds struct {
	ErrorRateWarning    float64
	ErrorRateCritical   float64
	P95WarningMS        float64
	P95CriticalMS       float64
	SuccessRateCritical float64
	Cooldown            time.Duration
}

// DefaultAlertThresholds returns the advisory defaults.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ErrorRateWarning:    0.02,
		ErrorRateCritical:   0.05,
		P95WarningMS:        120,
		P95CriticalMS:       150,
		SuccessRateCritical: 0.90,
		Cooldown:            5 * time.Minute,
	}
}

// AlgorithmStats is a copy-out snapshot of one algorithm's aggregates.
type AlgorithmStats struct {
	Algorithm         domain.AlgorithmID `json:"algorithm"`
	TotalCalls        int64              `json:"total_calls"`
	Successes         int64              `json:"successes"`
	Failures          int64              `json:"failures"`
	Cancelled         int64              `json:"cancelled"`
	SuccessRate       float64            `json:"success_rate"`
	P50LatencyMS      float64            `json:"p50_latency_ms"`
	P90LatencyMS      float64            `json:"p90_latency_ms"`
	P95LatencyMS      float64            `json:"p95_latency_ms"`
	P99LatencyMS      float64            `json:"p99_latency_ms"`
	RequestsPerMinute float64            `json:"requests_per_minute"`
	AvgResultCount    float64            `json:"avg_result_count"`
}

type algStats struct {
	latencies [latencyWindow]float64
	latIdx    int
	latCount  int

	total     int64
	successes int64
	failures  int64
	cancelled int64

	resultCountSum int64

	// Sliding one-hour window of per-minute counts; each bucket covers one
	// unix minute, stamped so stale buckets are skipped on read.
	rpmCounts  [rpmBuckets]int64
	rpmMinutes [rpmBuckets]int64
}

func (s *algStats) recordLatency(ms float64) {
	s.latencies[s.latIdx] = ms
	s.latIdx = (s.latIdx + 1) % latencyWindow
	if s.latCount < latencyWindow {
		s.latCount++
	}
}

func (s *algStats) latencySample() []float64 {
	out := make([]float64, s.latCount)
	copy(out, s.latencies[:s.latCount])
	return out
}

// Monitor records per-algorithm performance and exposes the degradation
// signals consumed by the selector. Safe for concurrent use.
type Monitor struct {
	mu         sync.Mutex
	ring       []PerfRecord
	ringIdx    int
	ringCount  int
	perAlg     map[domain.AlgorithmID]*algStats
	thresholds AlertThresholds
	lastAlert  map[string]time.Time
	tests      map[string]*abTest
	now        func() time.Time
}

// NewMonitor builds a Monitor with a bounded record ring of ringSize entries.
func NewMonitor(ringSize int, thresholds AlertThresholds) *Monitor {
	if ringSize < 1000 {
		ringSize = 1000
	}
	return &Monitor{
		ring:       make([]PerfRecord, ringSize),
		perAlg:     make(map[domain.AlgorithmID]*algStats),
		thresholds: thresholds,
		lastAlert:  make(map[string]time.Time),
		tests:      make(map[string]*abTest),
		now:        time.Now,
	}
}

func (m *Monitor) stats(id domain.AlgorithmID) *algStats {
	s, ok := m.perAlg[id]
	if !ok {
		s = &algStats{}
		m.perAlg[id] = s
	}
	return s
}

// Record appends one performance record and updates aggregates.
func (m *Monitor) Record(rec PerfRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now()
	}

	m.mu.Lock()
	m.ring[m.ringIdx] = rec
	m.ringIdx = (m.ringIdx + 1) % len(m.ring)
	if m.ringCount < len(m.ring) {
		m.ringCount++
	}

	s := m.stats(rec.Algorithm)
	s.total++
	switch {
	case rec.Cancelled:
		s.cancelled++
		s.failures++
	case rec.Success:
		s.successes++
		s.recordLatency(rec.ElapsedMS)
		s.resultCountSum += int64(rec.ResultCount)
	default:
		s.failures++
	}

	minute := rec.Timestamp.Unix() / 60
	slot := int(minute % rpmBuckets)
	if s.rpmMinutes[slot] != minute {
		s.rpmMinutes[slot] = minute
		s.rpmCounts[slot] = 0
	}
	s.rpmCounts[slot]++

	alerts := m.collectAlertsLocked(rec.Algorithm, s)
	m.mu.Unlock()

	for _, a := range alerts {
		if a.critical {
			slog.Error("performance alert", slog.String("algorithm", string(rec.Algorithm)), slog.String("metric", a.metric), slog.Float64("value", a.value))
		} else {
			slog.Warn("performance alert", slog.String("algorithm", string(rec.Algorithm)), slog.String("metric", a.metric), slog.Float64("value", a.value))
		}
	}
}

type firedAlert struct {
	metric   string
	value    float64
	critical bool
}

// collectAlertsLocked evaluates advisory thresholds under the monitor lock
// and applies the per-(algorithm, metric) cooldown.
func (m *Monitor) collectAlertsLocked(id domain.AlgorithmID, s *algStats) []firedAlert {
	var fired []firedAlert
	now := m.now()
	emit := func(metric string, value float64, critical bool) {
		key := string(id) + "|" + metric
		if last, ok := m.lastAlert[key]; ok && now.Sub(last) < m.thresholds.Cooldown {
			return
		}
		m.lastAlert[key] = now
		fired = append(fired, firedAlert{metric: metric, value: value, critical: critical})
	}

	if s.total >= 20 {
		errRate := float64(s.failures) / float64(s.total)
		if errRate >= m.thresholds.ErrorRateCritical {
			emit("error_rate", errRate, true)
		} else if errRate >= m.thresholds.ErrorRateWarning {
			emit("error_rate", errRate, false)
		}
		successRate := float64(s.successes) / float64(s.total)
		if successRate < m.thresholds.SuccessRateCritical {
			emit("success_rate", successRate, true)
		}
	}
	if s.latCount >= 20 {
		p95 := statx.Percentile(s.latencySample(), 95)
		if p95 >= m.thresholds.P95CriticalMS {
			emit("p95_latency", p95, true)
		} else if p95 >= m.thresholds.P95WarningMS {
			emit("p95_latency", p95, false)
		}
	}
	return fired
}

// P95Latency returns the rolling p95 latency in milliseconds for id, or 0
// when no successful calls were observed yet.
func (m *Monitor) P95Latency(id domain.AlgorithmID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.perAlg[id]
	if !ok || s.latCount == 0 {
		return 0
	}
	return statx.Percentile(s.latencySample(), 95)
}

// SuccessRate returns successes/total for id; 1 when nothing was recorded so
// an unobserved algorithm is never considered degraded.
func (m *Monitor) SuccessRate(id domain.AlgorithmID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.perAlg[id]
	if !ok || s.total == 0 {
		return 1
	}
	return float64(s.successes) / float64(s.total)
}

// Snapshot returns a copy-out of id's aggregates.
func (m *Monitor) Snapshot(id domain.AlgorithmID) AlgorithmStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(id)
}

func (m *Monitor) snapshotLocked(id domain.AlgorithmID) AlgorithmStats {
	out := AlgorithmStats{Algorithm: id, SuccessRate: 1}
	s, ok := m.perAlg[id]
	if !ok {
		return out
	}
	out.TotalCalls = s.total
	out.Successes = s.successes
	out.Failures = s.failures
	out.Cancelled = s.cancelled
	if s.total > 0 {
		out.SuccessRate = float64(s.successes) / float64(s.total)
	}
	if s.latCount > 0 {
		sample := s.latencySample()
		out.P50LatencyMS = statx.Percentile(sample, 50)
		out.P90LatencyMS = statx.Percentile(sample, 90)
		out.P95LatencyMS = statx.Percentile(sample, 95)
		out.P99LatencyMS = statx.Percentile(sample, 99)
	}
	if s.successes > 0 {
		out.AvgResultCount = float64(s.resultCountSum) / float64(s.successes)
	}
	out.RequestsPerMinute = m.rpmLocked(s)
	return out
}

func (m *Monitor) rpmLocked(s *algStats) float64 {
	nowMinute := m.now().Unix() / 60
	var total int64
	var minutes int64
	for slot := 0; slot < rpmBuckets; slot++ {
		if s.rpmMinutes[slot] == 0 || nowMinute-s.rpmMinutes[slot] >= rpmBuckets {
			continue
		}
		total += s.rpmCounts[slot]
		minutes++
	}
	if minutes == 0 {
		return 0
	}
	return float64(total) / float64(minutes)
}

// AllStats returns a snapshot per algorithm that has recorded at least one
// call, plus zero-valued entries for registered-but-idle algorithms.
func (m *Monitor) AllStats() map[domain.AlgorithmID]AlgorithmStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.AlgorithmID]AlgorithmStats, len(domain.AllAlgorithms))
	for _, id := range domain.AllAlgorithms {
		out[id] = m.snapshotLocked(id)
	}
	return out
}

// Reset discards all recorded signals and aggregates. A/B tests survive a
// reset; their per-arm statistics do not.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring = make([]PerfRecord, len(m.ring))
	m.ringIdx = 0
	m.ringCount = 0
	m.perAlg = make(map[domain.AlgorithmID]*algStats)
	m.lastAlert = make(map[string]time.Time)
	for _, t := range m.tests {
		t.resetArms()
	}
}
