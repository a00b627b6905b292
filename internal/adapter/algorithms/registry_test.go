package algorithms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/match-orchestrator/internal/domain"
)

func TestRegistryResolvesAllIDs(t *testing.T) {
	r := NewRegistry(nil, 0)
	for _, id := range domain.AllAlgorithms {
		exec := r.Get(id)
		require.NotNil(t, exec)
		assert.Equal(t, id, exec.Name())
	}
}

func TestRegistryUnavailableSentinelFails(t *testing.T) {
	r := NewRegistry(nil, 0)
	_, err := r.Get(domain.AlgorithmNexten).Execute(context.Background(), nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlgorithmFailure)
}

func TestRegistryUnknownIDFails(t *testing.T) {
	r := NewStubRegistry(0, 0)
	_, err := r.Get("bogus").Execute(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrAlgorithmFailure)
}

func TestStubRegistryExecutes(t *testing.T) {
	r := NewStubRegistry(0, 4)
	candidate := map[string]any{
		"id": "cand-1",
		"skills": []map[string]any{
			{"name": "go"}, {"name": "redis"},
		},
	}
	offers := []map[string]any{
		{"id": "o1", "required_skills": []string{"go", "redis"}},
		{"id": "o2", "required_skills": []string{"rust"}},
	}
	res, err := r.Get(domain.AlgorithmSmart).Execute(context.Background(), candidate, offers, nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "o1", res[0]["offer_id"])
	assert.InDelta(t, 0.9, res[0]["score"].(float64), 1e-9, "full overlap scores 0.3+0.6")
	assert.InDelta(t, 0.3, res[1]["score"].(float64), 1e-9, "no overlap scores base 0.3")
}

func TestStubReadsNextenShape(t *testing.T) {
	stub := NewStub(domain.AlgorithmNexten, 0)
	candidate := map[string]any{
		"cv": map[string]any{
			"skills": []map[string]any{{"name": "Go"}},
		},
	}
	offers := []map[string]any{
		{
			"job_info":     map[string]any{"id": "o1"},
			"requirements": map[string]any{"required_skills": []string{"go"}},
		},
	}
	res, err := stub.Execute(context.Background(), candidate, offers, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "o1", res[0]["offer_id"])
	assert.Equal(t, []string{"go"}, res[0]["matched_skills"])
}

func TestStubHonorsCancellation(t *testing.T) {
	stub := NewStub(domain.AlgorithmSemantic, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := stub.Execute(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimitedExecutorAdmission(t *testing.T) {
	blocker := &blockingExecutor{release: make(chan struct{})}
	r := NewRegistry(map[domain.AlgorithmID]domain.Executor{domain.AlgorithmSmart: blocker}, 1)
	exec := r.Get(domain.AlgorithmSmart)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Execute(context.Background(), nil, nil, nil)
	}()
	blocker.waitStarted()

	// Second caller cannot get a slot within its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := exec.Execute(ctx, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(blocker.release)
	wg.Wait()
}

type blockingExecutor struct {
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	running chan struct{}
}

func (b *blockingExecutor) Name() domain.AlgorithmID { return domain.AlgorithmSmart }

func (b *blockingExecutor) waitStarted() {
	b.mu.Lock()
	if b.running == nil {
		b.running = make(chan struct{})
	}
	ch := b.running
	b.mu.Unlock()
	<-ch
}

func (b *blockingExecutor) Execute(ctx context.Context, _ map[string]any, _ []map[string]any, _ map[string]any) ([]domain.NativeResult, error) {
	b.mu.Lock()
	if b.running == nil {
		b.running = make(chan struct{})
	}
	b.once.Do(func() { close(b.running) })
	b.mu.Unlock()
	select {
	case <-b.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
