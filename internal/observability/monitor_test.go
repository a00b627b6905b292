package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

func newTestMonitor() *Monitor {
	return NewMonitor(1000, DefaultAlertThresholds())
}

func TestMonitorSuccessRate(t *testing.T) {
	m := newTestMonitor()
	assert.Equal(t, 1.0, m.SuccessRate(domain.AlgorithmNexten), "unobserved algorithm is healthy")

	for i := 0; i < 8; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, ElapsedMS: 10, ResultCount: 3, Success: true})
	}
	for i := 0; i < 2; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, ElapsedMS: 10, Success: false})
	}
	assert.InDelta(t, 0.8, m.SuccessRate(domain.AlgorithmNexten), 1e-9)
}

func TestMonitorPercentiles(t *testing.T) {
	m := newTestMonitor()
	for i := 1; i <= 100; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmSmart, ElapsedMS: float64(i), ResultCount: 1, Success: true})
	}
	snap := m.Snapshot(domain.AlgorithmSmart)
	assert.Equal(t, 50.0, snap.P50LatencyMS)
	assert.Equal(t, 90.0, snap.P90LatencyMS)
	assert.Equal(t, 95.0, snap.P95LatencyMS)
	assert.Equal(t, 99.0, snap.P99LatencyMS)
	assert.Equal(t, 95.0, m.P95Latency(domain.AlgorithmSmart))
}

func TestMonitorLatencyWindowRolls(t *testing.T) {
	m := newTestMonitor()
	// 100 slow calls, then 100 fast calls: window must only see the fast ones.
	for i := 0; i < 100; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmEnhanced, ElapsedMS: 500, Success: true})
	}
	for i := 0; i < 100; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmEnhanced, ElapsedMS: 5, Success: true})
	}
	assert.Equal(t, 5.0, m.P95Latency(domain.AlgorithmEnhanced))
}

func TestMonitorFailuresExcludedFromLatency(t *testing.T) {
	m := newTestMonitor()
	m.Record(PerfRecord{Algorithm: domain.AlgorithmHybrid, ElapsedMS: 10, Success: true})
	m.Record(PerfRecord{Algorithm: domain.AlgorithmHybrid, ElapsedMS: 9000, Success: false})
	assert.Equal(t, 10.0, m.P95Latency(domain.AlgorithmHybrid))
}

func TestMonitorCancelledCountsAsFailure(t *testing.T) {
	m := newTestMonitor()
	m.Record(PerfRecord{Algorithm: domain.AlgorithmSemantic, Cancelled: true})
	snap := m.Snapshot(domain.AlgorithmSemantic)
	assert.Equal(t, int64(1), snap.Cancelled)
	assert.Equal(t, int64(1), snap.Failures)
	assert.Equal(t, 0.0, snap.SuccessRate)
}

func TestMonitorAvgResultCount(t *testing.T) {
	m := newTestMonitor()
	m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, ResultCount: 2, Success: true})
	m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, ResultCount: 4, Success: true})
	assert.Equal(t, 3.0, m.Snapshot(domain.AlgorithmNexten).AvgResultCount)
}

func TestMonitorRequestsPerMinute(t *testing.T) {
	m := newTestMonitor()
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	for i := 0; i < 30; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmSmart, Success: true, Timestamp: base})
	}
	m.now = func() time.Time { return base.Add(time.Minute) }
	for i := 0; i < 10; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmSmart, Success: true, Timestamp: base.Add(time.Minute)})
	}
	// Two active one-minute buckets: (30 + 10) / 2.
	assert.Equal(t, 20.0, m.Snapshot(domain.AlgorithmSmart).RequestsPerMinute)
}

func TestMonitorReset(t *testing.T) {
	m := newTestMonitor()
	m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, Success: true, ElapsedMS: 5, ResultCount: 1})
	m.Reset()
	snap := m.Snapshot(domain.AlgorithmNexten)
	assert.Equal(t, int64(0), snap.TotalCalls)
	assert.Equal(t, 1.0, snap.SuccessRate)
}

func TestMonitorAlertCooldown(t *testing.T) {
	m := newTestMonitor()
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	// Drive error rate over the critical threshold.
	for i := 0; i < 25; i++ {
		m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, Success: false, Timestamp: base})
	}
	m.mu.Lock()
	first, ok := m.lastAlert["nexten|error_rate"]
	m.mu.Unlock()
	require.True(t, ok)

	// Further failures within the cooldown must not re-stamp the alert.
	m.now = func() time.Time { return base.Add(time.Minute) }
	m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, Success: false, Timestamp: base.Add(time.Minute)})
	m.mu.Lock()
	second := m.lastAlert["nexten|error_rate"]
	m.mu.Unlock()
	assert.Equal(t, first, second)

	// After the cooldown the alert fires again.
	m.now = func() time.Time { return base.Add(6 * time.Minute) }
	m.Record(PerfRecord{Algorithm: domain.AlgorithmNexten, Success: false, Timestamp: base.Add(6 * time.Minute)})
	m.mu.Lock()
	third := m.lastAlert["nexten|error_rate"]
	m.mu.Unlock()
	assert.True(t, third.After(first))
}

func TestAllStatsCoversRegistry(t *testing.T) {
	m := newTestMonitor()
	all := m.AllStats()
	assert.Len(t, all, len(domain.AllAlgorithms))
}
