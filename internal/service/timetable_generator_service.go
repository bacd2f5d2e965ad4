package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// GenerationJobType labels queued timetable generation jobs.
const GenerationJobType = "timetable.generate"

const (
	defaultRunPageSize = 20
	maxRunPageSize     = 100
	lockReleaseTimeout = 5 * time.Second
)

type courseReader interface {
	ListByCollege(ctx context.Context, collegeID string) ([]models.Course, error)
}

type subjectReader interface {
	ListByCollege(ctx context.Context, collegeID string) ([]models.Subject, error)
}

type facultyReader interface {
	ListByCollege(ctx context.Context, collegeID string) ([]models.Faculty, error)
}

type classroomReader interface {
	ListByCollege(ctx context.Context, collegeID string) ([]models.Classroom, error)
}

type timetableWriter interface {
	ReplaceForCollege(ctx context.Context, exec sqlx.ExtContext, collegeID string, entries []models.TimetableEntry) error
}

type generationRunStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.GenerationRun) error
	ListByCollege(ctx context.Context, collegeID string, limit, offset int) ([]models.GenerationRun, int, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.GenerationRun, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.GenerationRunStatus, entriesCreated int, meta types.JSONText) error
}

type generationLocker interface {
	Acquire(ctx context.Context, collegeID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, collegeID, token string) error
}

type generationDispatcher interface {
	Enqueue(job jobs.Job) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableCatalog groups the readers feeding the generator.
type TimetableCatalog struct {
	Courses    courseReader
	Subjects   subjectReader
	Faculty    facultyReader
	Classrooms classroomReader
}

// GenerationJobPayload is carried by queued generation jobs. The job id is the run id.
type GenerationJobPayload struct {
	CollegeID string
	RequestID string
}

// TimetableGeneratorConfig governs generator behaviour.
type TimetableGeneratorConfig struct {
	FillerCap      int
	LibraryMinHour *int // nil keeps scheduler.DefaultLibraryMinHour
	SectionStep    int
	SectionGroups  []string
	Seed           int64
	LockTTL        time.Duration
}

// TimetableGeneratorService loads a college's catalog, runs the placement
// engine and swaps the stored timetable in one transaction.
type TimetableGeneratorService struct {
	catalog    TimetableCatalog
	entries    timetableWriter
	runs       generationRunStore
	locker     generationLocker
	tx         txProvider
	dispatcher generationDispatcher
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableGeneratorConfig
	now        func() time.Time
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	catalog TimetableCatalog,
	entries timetableWriter,
	runs generationRunStore,
	locker generationLocker,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &TimetableGeneratorService{
		catalog:   catalog,
		entries:   entries,
		runs:      runs,
		locker:    locker,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AttachDispatcher sets the queue used by GenerateAsync.
func (s *TimetableGeneratorService) AttachDispatcher(dispatcher generationDispatcher) {
	s.dispatcher = dispatcher
}

// Generate runs the engine for the college and, unless DryRun is set,
// replaces its timetable and records a versioned run.
func (s *TimetableGeneratorService) Generate(ctx context.Context, collegeID string, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validateRequest(collegeID, req); err != nil {
		return nil, err
	}
	seed := s.resolveSeed(req.Seed)

	if req.DryRun {
		result, err := s.plan(ctx, collegeID, seed)
		if err != nil {
			return nil, err
		}
		return &dto.GenerateTimetableResponse{
			Success:        true,
			EntriesCreated: len(result.Entries),
			Message:        fmt.Sprintf("Previewed %d timetable entries.", len(result.Entries)),
			DryRun:         true,
			Seed:           seed,
			Report:         result.Report(),
			Entries:        result.Entries,
		}, nil
	}

	release, err := s.acquire(ctx, collegeID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.now()
	result, err := s.plan(ctx, collegeID, seed)
	if err != nil {
		s.metrics.ObserveGeneration(GenerationStatusFailed, s.now().Sub(start), 0, 0)
		return nil, err
	}

	meta, err := reportMeta(result)
	if err != nil {
		return nil, err
	}
	run := &models.GenerationRun{
		CollegeID:      collegeID,
		Status:         models.GenerationRunStatusSucceeded,
		EntriesCreated: len(result.Entries),
		Seed:           seed,
		Meta:           meta,
	}
	err = s.persist(ctx, collegeID, result.Entries, func(exec sqlx.ExtContext) error {
		return s.runs.CreateVersioned(ctx, exec, run)
	})
	if err != nil {
		s.metrics.ObserveGeneration(GenerationStatusFailed, s.now().Sub(start), 0, 0)
		return nil, err
	}

	s.afterCommit(ctx, collegeID, run.ID, seed, result, s.now().Sub(start))

	return &dto.GenerateTimetableResponse{
		Success:        true,
		EntriesCreated: len(result.Entries),
		Message:        fmt.Sprintf("Generated %d timetable entries.", len(result.Entries)),
		RunID:          run.ID,
		Version:        run.Version,
		Seed:           seed,
		Report:         result.Report(),
	}, nil
}

// GenerateAsync records a pending run and hands it to the job queue.
func (s *TimetableGeneratorService) GenerateAsync(ctx context.Context, collegeID string, req dto.GenerateTimetableRequest) (*models.GenerationRun, error) {
	if err := s.validateRequest(collegeID, req); err != nil {
		return nil, err
	}
	if req.DryRun {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dry run is not supported for async generation")
	}
	if s.dispatcher == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async generation is not available")
	}

	run := &models.GenerationRun{
		CollegeID: collegeID,
		Status:    models.GenerationRunStatusPending,
		Seed:      s.resolveSeed(req.Seed),
	}
	if err := s.runs.CreateVersioned(ctx, nil, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation run")
	}

	job := jobs.Job{ID: run.ID, Type: GenerationJobType, Payload: GenerationJobPayload{
		CollegeID: collegeID,
		RequestID: requestid.FromContext(ctx),
	}}
	if err := s.dispatcher.Enqueue(job); err != nil {
		if markErr := s.MarkRunFailed(ctx, run.ID, err); markErr != nil {
			s.logger.Warn("mark generation run failed", zap.String("run_id", run.ID), zap.Error(markErr))
		}
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrQueueFull.Code, appErrors.ErrQueueFull.Status, appErrors.ErrQueueFull.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue timetable generation")
	}

	s.logger.Info("timetable generation queued",
		zap.String("college_id", collegeID),
		zap.String("run_id", run.ID),
		zap.Int("version", run.Version),
	)
	return run, nil
}

// ExecuteRun performs a queued run. Already succeeded runs are skipped so
// retried jobs stay idempotent.
func (s *TimetableGeneratorService) ExecuteRun(ctx context.Context, collegeID, runID string) error {
	run, err := s.runs.FindByID(ctx, collegeID, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	if run.Status == models.GenerationRunStatusSucceeded {
		return nil
	}

	release, err := s.acquire(ctx, collegeID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.runs.UpdateStatus(ctx, nil, run.ID, models.GenerationRunStatusRunning, 0, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark generation run running")
	}

	start := s.now()
	result, err := s.plan(ctx, collegeID, run.Seed)
	if err != nil {
		s.metrics.ObserveGeneration(GenerationStatusFailed, s.now().Sub(start), 0, 0)
		return err
	}
	meta, err := reportMeta(result)
	if err != nil {
		return err
	}

	err = s.persist(ctx, collegeID, result.Entries, func(exec sqlx.ExtContext) error {
		return s.runs.UpdateStatus(ctx, exec, run.ID, models.GenerationRunStatusSucceeded, len(result.Entries), meta)
	})
	if err != nil {
		s.metrics.ObserveGeneration(GenerationStatusFailed, s.now().Sub(start), 0, 0)
		return err
	}

	s.afterCommit(ctx, collegeID, run.ID, run.Seed, result, s.now().Sub(start))
	return nil
}

// MarkRunFailed stores the FAILED status with the cause in the run meta.
func (s *TimetableGeneratorService) MarkRunFailed(ctx context.Context, runID string, cause error) error {
	payload := map[string]string{}
	if cause != nil {
		payload["error"] = cause.Error()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.runs.UpdateStatus(ctx, nil, runID, models.GenerationRunStatusFailed, 0, types.JSONText(raw))
}

// ListRuns returns the college's generation history, newest first.
func (s *TimetableGeneratorService) ListRuns(ctx context.Context, collegeID string, query dto.GenerationRunQuery) ([]models.GenerationRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pagination")
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultRunPageSize
	}
	if size > maxRunPageSize {
		size = maxRunPageSize
	}

	runs, total, err := s.runs.ListByCollege(ctx, collegeID, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation runs")
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetRun returns one run of the college.
func (s *TimetableGeneratorService) GetRun(ctx context.Context, collegeID, id string) (*models.GenerationRun, error) {
	run, err := s.runs.FindByID(ctx, collegeID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	return run, nil
}

func (s *TimetableGeneratorService) validateRequest(collegeID string, req dto.GenerateTimetableRequest) error {
	if collegeID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "college is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	return nil
}

func (s *TimetableGeneratorService) resolveSeed(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	if s.cfg.Seed != 0 {
		return s.cfg.Seed
	}
	return s.now().UnixNano()
}

func (s *TimetableGeneratorService) acquire(ctx context.Context, collegeID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	token, err := s.locker.Acquire(ctx, collegeID, s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrGenerationRunning, "")
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
		defer cancel()
		if err := s.locker.Release(releaseCtx, collegeID, token); err != nil {
			s.logger.Warn("release generation lock", zap.String("college_id", collegeID), zap.Error(err))
		}
	}, nil
}

func (s *TimetableGeneratorService) loadInputs(ctx context.Context, collegeID string) (scheduler.Inputs, error) {
	in := scheduler.Inputs{CollegeID: collegeID}
	var err error
	if in.Courses, err = s.catalog.Courses.ListByCollege(ctx, collegeID); err != nil {
		return in, generationFailed(err)
	}
	if in.Subjects, err = s.catalog.Subjects.ListByCollege(ctx, collegeID); err != nil {
		return in, generationFailed(err)
	}
	if in.Faculty, err = s.catalog.Faculty.ListByCollege(ctx, collegeID); err != nil {
		return in, generationFailed(err)
	}
	if in.Classrooms, err = s.catalog.Classrooms.ListByCollege(ctx, collegeID); err != nil {
		return in, generationFailed(err)
	}
	return in, nil
}

func (s *TimetableGeneratorService) plan(ctx context.Context, collegeID string, seed int64) (*scheduler.Result, error) {
	in, err := s.loadInputs(ctx, collegeID)
	if err != nil {
		return nil, err
	}
	policy := scheduler.SemesterSplitPolicy{Step: s.cfg.SectionStep, Groups: s.cfg.SectionGroups}
	opts := scheduler.Options{FillerCap: s.cfg.FillerCap, LibraryMinHour: s.cfg.LibraryMinHour}
	return scheduler.Generate(in, policy, scheduler.NewDepartmentEligibility(in.Faculty), opts, scheduler.NewSeededShuffler(seed)), nil
}

func (s *TimetableGeneratorService) persist(ctx context.Context, collegeID string, entries []models.TimetableEntry, record func(exec sqlx.ExtContext) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider not configured")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return generationFailed(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = record(tx); err != nil {
		return generationFailed(err)
	}
	if err = s.entries.ReplaceForCollege(ctx, tx, collegeID, entries); err != nil {
		return generationFailed(err)
	}
	if err = tx.Commit(); err != nil {
		return generationFailed(err)
	}
	return nil
}

func (s *TimetableGeneratorService) afterCommit(ctx context.Context, collegeID, runID string, seed int64, result *scheduler.Result, elapsed time.Duration) {
	_ = s.cache.Invalidate(ctx, timetableCachePattern(collegeID))

	unplaced := result.UnplacedSessions()
	s.metrics.ObserveGeneration(GenerationStatusSucceeded, elapsed, len(result.Entries), unplaced)

	shortfalls := result.Shortfalls()
	s.logger.Info("timetable generated",
		zap.String("college_id", collegeID),
		zap.String("run_id", runID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.Int64("seed", seed),
		zap.Int("entries", len(result.Entries)),
		zap.Int("library_hours", result.LibraryHours),
		zap.Int("shortfalls", len(shortfalls)),
		zap.Duration("duration", elapsed),
	)
	if len(shortfalls) == 0 {
		return
	}
	s.logger.Warn("timetable generated with unplaced sessions",
		zap.String("college_id", collegeID),
		zap.Int("unplaced_sessions", unplaced),
	)
	for _, outcome := range shortfalls {
		s.logger.Debug("subject under-scheduled",
			zap.String("section", outcome.Section),
			zap.String("subject", outcome.SubjectCode),
			zap.Int("requested", outcome.Requested),
			zap.Int("placed", outcome.Placed()),
		)
	}
}

func reportMeta(result *scheduler.Result) (types.JSONText, error) {
	raw, err := json.Marshal(result.Report())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation report")
	}
	return types.JSONText(raw), nil
}

func generationFailed(err error) error {
	return appErrors.Wrap(err, appErrors.ErrGenerationFailed.Code, appErrors.ErrGenerationFailed.Status, appErrors.ErrGenerationFailed.Message)
}
