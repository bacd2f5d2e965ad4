package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, collegeID string, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateAsync(ctx context.Context, collegeID string, req dto.GenerateTimetableRequest) (*models.GenerationRun, error)
	ListRuns(ctx context.Context, collegeID string, query dto.GenerationRunQuery) ([]models.GenerationRun, *models.Pagination, error)
	GetRun(ctx context.Context, collegeID, id string) (*models.GenerationRun, error)
}

type timetableReader interface {
	List(ctx context.Context, collegeID string, query dto.TimetableQuery) ([]models.TimetableEntryDetail, bool, error)
	MoveEntry(ctx context.Context, collegeID, entryID string, req dto.MoveEntryRequest) (*models.TimetableEntry, error)
	Export(ctx context.Context, collegeID string, query dto.ExportTimetableQuery) (*dto.ExportedFile, error)
}

// TimetableHandler exposes timetable generation, reads and manual edits.
type TimetableHandler struct {
	generator timetableGenerator
	timetable timetableReader
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator *service.TimetableGeneratorService, timetable *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{generator: generator, timetable: timetable}
}

// bindGenerateRequest accepts an empty body as the default request.
func bindGenerateRequest(c *gin.Context) (dto.GenerateTimetableRequest, error) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload")
	}
	return req, nil
}

// Generate godoc
// @Summary Generate the college timetable
// @Description Replaces every timetable entry of the caller's college. Attendance records of the old timetable are removed. Set dryRun to preview without saving.
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := bindGenerateRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), collegeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateAsync godoc
// @Summary Queue timetable generation
// @Description Records a pending generation run and executes it in the background.
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timetable/generate/async [post]
func (h *TimetableHandler) GenerateAsync(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := bindGenerateRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	run, err := h.generator.GenerateAsync(c.Request.Context(), collegeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// ListRuns godoc
// @Summary List timetable generation runs
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.GenerationRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	runs, pagination, err := h.generator.ListRuns(c.Request.Context(), collegeID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// GetRun godoc
// @Summary Get a timetable generation run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	run, err := h.generator.GetRun(c.Request.Context(), collegeID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// List godoc
// @Summary Get the college timetable
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param section query string false "Section, e.g. BCA1A"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	entries, hit, err := h.timetable.List(c.Request.Context(), collegeID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// MoveEntry godoc
// @Summary Move a timetable entry
// @Description Moves one entry to another day and time. The section must be free at the destination; faculty and classroom must be free unless the entry is a library hour.
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Param payload body dto.MoveEntryRequest true "Destination"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries/{id} [patch]
func (h *TimetableHandler) MoveEntry(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MoveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "New day and start/end times are required."))
		return
	}
	entry, err := h.timetable.MoveEntry(c.Request.Context(), collegeID, c.Param("id"), req)
	if err != nil {
		var conflict *models.TimetableConflictError
		if errors.As(err, &conflict) {
			response.ErrorWithData(c, err, conflict)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil, map[string]interface{}{"message": "Timetable updated successfully."})
}

// Export godoc
// @Summary Download the college timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param section query string false "Section"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	collegeID, err := collegeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.timetable.Export(c.Request.Context(), collegeID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
