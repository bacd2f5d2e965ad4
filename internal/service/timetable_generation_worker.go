package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

type generationExecutor interface {
	ExecuteRun(ctx context.Context, collegeID, runID string) error
	MarkRunFailed(ctx context.Context, runID string, cause error) error
}

// GenerationWorker executes queued timetable generation jobs.
type GenerationWorker struct {
	generator generationExecutor
	logger    *zap.Logger
}

// NewGenerationWorker constructs a worker.
func NewGenerationWorker(generator generationExecutor, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationWorker{generator: generator, logger: logger}
}

// Handle runs one job. A returned error lets the queue retry it; client-side
// failures such as a missing run are final and marked FAILED right away.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(GenerationJobPayload)
	if !ok || payload.CollegeID == "" {
		w.logger.Error("invalid generation job payload", zap.String("run_id", job.ID))
		if err := w.generator.MarkRunFailed(ctx, job.ID, fmt.Errorf("invalid job payload")); err != nil {
			w.logger.Warn("mark generation run failed", zap.String("run_id", job.ID), zap.Error(err))
		}
		return nil
	}

	ctx = requestid.WithContext(ctx, payload.RequestID)
	if err := w.generator.ExecuteRun(ctx, payload.CollegeID, job.ID); err != nil {
		switch {
		case errors.Is(err, appErrors.ErrGenerationRunning):
			w.logger.Info("generation job deferred while another run holds the lock",
				zap.String("run_id", job.ID),
				zap.String("college_id", payload.CollegeID),
				zap.Int("attempt", job.Attempt),
			)
			return err
		case appErrors.StatusOf(err) < http.StatusInternalServerError:
			w.logger.Warn("generation job rejected", zap.String("run_id", job.ID), zap.Error(err))
			if markErr := w.generator.MarkRunFailed(ctx, job.ID, err); markErr != nil {
				w.logger.Warn("mark generation run failed", zap.String("run_id", job.ID), zap.Error(markErr))
			}
			return nil
		}
		w.logger.Warn("generation job failed",
			zap.String("run_id", job.ID),
			zap.String("college_id", payload.CollegeID),
			zap.String("request_id", payload.RequestID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Exhausted marks the run FAILED once the queue gives up on it.
func (w *GenerationWorker) Exhausted(ctx context.Context, job jobs.Job, cause error) {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.generator.MarkRunFailed(markCtx, job.ID, cause); err != nil {
		w.logger.Error("mark generation run failed", zap.String("run_id", job.ID), zap.Error(err))
	}
}
