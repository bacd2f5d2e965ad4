package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

type executorStub struct {
	mu        sync.Mutex
	err       error
	executed  []string
	requestID string
	failed    map[string]error
	failedCh  chan string
}

func newExecutorStub() *executorStub {
	return &executorStub{failed: make(map[string]error), failedCh: make(chan string, 4)}
}

func (s *executorStub) ExecuteRun(ctx context.Context, collegeID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, collegeID+"/"+runID)
	s.requestID = requestid.FromContext(ctx)
	return s.err
}

func (s *executorStub) MarkRunFailed(_ context.Context, runID string, cause error) error {
	s.mu.Lock()
	s.failed[runID] = cause
	s.mu.Unlock()
	s.failedCh <- runID
	return nil
}

func TestGenerationWorkerHandle(t *testing.T) {
	executor := newExecutorStub()
	worker := NewGenerationWorker(executor, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: GenerationJobPayload{CollegeID: "college-1", RequestID: "req-7"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"college-1/run-1"}, executor.executed)
	assert.Equal(t, "req-7", executor.requestID)
	assert.Empty(t, executor.failed)
}

func TestGenerationWorkerHandleReturnsFailureForRetry(t *testing.T) {
	executor := newExecutorStub()
	worker := NewGenerationWorker(executor, nil)

	for _, cause := range []error{
		appErrors.Clone(appErrors.ErrGenerationRunning, ""),
		errors.New("connection reset"),
	} {
		executor.err = cause
		err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: GenerationJobPayload{CollegeID: "college-1"}})
		assert.ErrorIs(t, err, cause)
	}
	assert.Empty(t, executor.failed)
}

func TestGenerationWorkerMissingRunIsFinal(t *testing.T) {
	executor := newExecutorStub()
	executor.err = appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	worker := NewGenerationWorker(executor, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: GenerationJobPayload{CollegeID: "college-1"}})
	require.NoError(t, err)
	assert.ErrorIs(t, executor.failed["run-1"], appErrors.ErrNotFound)
}

func TestGenerationWorkerInvalidPayload(t *testing.T) {
	executor := newExecutorStub()
	worker := NewGenerationWorker(executor, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: "college-1"})
	require.NoError(t, err)
	assert.Empty(t, executor.executed)
	assert.Contains(t, executor.failed, "run-1")
}

func TestGenerationWorkerMarksExhaustedRunsFailed(t *testing.T) {
	executor := newExecutorStub()
	executor.err = errors.New("boom")
	worker := NewGenerationWorker(executor, nil)

	queue := jobs.NewQueue("timetable-generation", worker.Handle, jobs.QueueConfig{
		MaxRetries:  1,
		RetryDelay:  5 * time.Millisecond,
		OnExhausted: worker.Exhausted,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(jobs.Job{ID: "run-9", Type: GenerationJobType, Payload: GenerationJobPayload{CollegeID: "college-1"}}))

	select {
	case runID := <-executor.failedCh:
		assert.Equal(t, "run-9", runID)
	case <-time.After(2 * time.Second):
		t.Fatal("run was never marked failed")
	}

	executor.mu.Lock()
	defer executor.mu.Unlock()
	assert.Len(t, executor.executed, 2)
	assert.EqualError(t, executor.failed["run-9"], "boom")
}
