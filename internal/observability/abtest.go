package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
	"github.com/fairyhunter13/match-orchestrator/pkg/statx"
)

// abTest is one running experiment routing traffic between two algorithms.
type abTest struct {
	id         string
	name       string
	algorithmA domain.AlgorithmID
	algorithmB domain.AlgorithmID
	split      float64
	startedAt  time.Time
	arms       map[domain.AlgorithmID]*armStats
}

type armStats struct {
	requests  int64
	successes int64
	latencyMS [latencyWindow]float64
	latIdx    int
	latCount  int
}

func (a *armStats) record(elapsedMS float64, success bool) {
	a.requests++
	if success {
		a.successes++
	}
	a.latencyMS[a.latIdx] = elapsedMS
	a.latIdx = (a.latIdx + 1) % latencyWindow
	if a.latCount < latencyWindow {
		a.latCount++
	}
}

func (t *abTest) resetArms() {
	t.arms = map[domain.AlgorithmID]*armStats{
		t.algorithmA: {},
		t.algorithmB: {},
	}
}

// ABArmSummary is one arm's aggregate in a significance summary.
type ABArmSummary struct {
	Algorithm     domain.AlgorithmID `json:"algorithm"`
	TotalRequests int64              `json:"total_requests"`
	MeanLatencyMS float64            `json:"mean_latency_ms"`
	P95LatencyMS  float64            `json:"p95_latency_ms"`
	SuccessRate   float64            `json:"success_rate"`
}

// ABTestSummary is the queryable state of one experiment.
type ABTestSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Split      float64        `json:"traffic_split"`
	StartedAt  time.Time      `json:"started_at"`
	AlgorithmA ABArmSummary   `json:"algorithm_a"`
	AlgorithmB ABArmSummary   `json:"algorithm_b"`
}

// StartABTest registers an experiment routing split of the traffic to a and
// the remainder to b. Fails when the name is taken or the split is out of
// range.
func (m *Monitor) StartABTest(name string, a, b domain.AlgorithmID, split float64) error {
	if name == "" {
		return fmt.Errorf("op=monitor.StartABTest: %w: test name required", domain.ErrInvalidRequest)
	}
	if split < 0 || split > 1 {
		return fmt.Errorf("op=monitor.StartABTest: %w: split %v outside [0,1]", domain.ErrInvalidRequest, split)
	}
	if !a.Valid() || !b.Valid() {
		return fmt.Errorf("op=monitor.StartABTest: %w: unknown algorithm", domain.ErrInvalidRequest)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tests[name]; exists {
		return fmt.Errorf("op=monitor.StartABTest: %w: test %q already running", domain.ErrInvalidRequest, name)
	}
	t := &abTest{
		id:         uuid.NewString(),
		name:       name,
		algorithmA: a,
		algorithmB: b,
		split:      split,
		startedAt:  m.now(),
	}
	t.resetArms()
	m.tests[name] = t
	return nil
}

// StopABTest removes a running experiment.
func (m *Monitor) StopABTest(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tests[name]; !exists {
		return fmt.Errorf("op=monitor.StopABTest: %w: test %q not found", domain.ErrInvalidRequest, name)
	}
	delete(m.tests, name)
	return nil
}

// Assign deterministically routes userID through the oldest active test
// (ties broken by name so assignment order is stable). Returns false when no
// test is active or userID is empty.
func (m *Monitor) Assign(userID string) (domain.AlgorithmID, string, bool) {
	if userID == "" {
		return "", "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tests) == 0 {
		return "", "", false
	}
	names := make([]string, 0, len(m.tests))
	for n := range m.tests {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := m.tests[names[i]], m.tests[names[j]]
		if !ti.startedAt.Equal(tj.startedAt) {
			return ti.startedAt.Before(tj.startedAt)
		}
		return names[i] < names[j]
	})
	t := m.tests[names[0]]
	arm := t.algorithmB
	if float64(statx.Bucket100(userID))/100 < t.split {
		arm = t.algorithmA
	}
	return arm, t.name, true
}

// RecordABOutcome attributes one routed request's outcome to its arm.
func (m *Monitor) RecordABOutcome(testName string, arm domain.AlgorithmID, elapsedMS float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[testName]
	if !ok {
		return
	}
	s, ok := t.arms[arm]
	if !ok {
		return
	}
	s.record(elapsedMS, success)
}

// ABResults returns the significance summary for one experiment.
func (m *Monitor) ABResults(name string) (ABTestSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[name]
	if !ok {
		return ABTestSummary{}, fmt.Errorf("op=monitor.ABResults: %w: test %q not found", domain.ErrInvalidRequest, name)
	}
	return ABTestSummary{
		ID:         t.id,
		Name:       t.name,
		Split:      t.split,
		StartedAt:  t.startedAt,
		AlgorithmA: summarizeArm(t.algorithmA, t.arms[t.algorithmA]),
		AlgorithmB: summarizeArm(t.algorithmB, t.arms[t.algorithmB]),
	}, nil
}

// ActiveABTests lists running experiment names.
func (m *Monitor) ActiveABTests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tests))
	for n := range m.tests {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func summarizeArm(id domain.AlgorithmID, s *armStats) ABArmSummary {
	out := ABArmSummary{Algorithm: id}
	if s == nil {
		return out
	}
	out.TotalRequests = s.requests
	if s.requests > 0 {
		out.SuccessRate = float64(s.successes) / float64(s.requests)
	}
	if s.latCount > 0 {
		sample := make([]float64, s.latCount)
		copy(sample, s.latencyMS[:s.latCount])
		var sum float64
		for _, v := range sample {
			sum += v
		}
		out.MeanLatencyMS = sum / float64(len(sample))
		out.P95LatencyMS = statx.Percentile(sample, 95)
	}
	return out
}
