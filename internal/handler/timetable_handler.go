package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deptsched/timetable-api/internal/dto"
	"github.com/deptsched/timetable-api/internal/models"
	"github.com/deptsched/timetable-api/internal/service"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
	"github.com/deptsched/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error)
	GetBySection(ctx context.Context, query dto.TimetableQuery, sectionID string) (*models.Timetable, error)
	Workload(ctx context.Context, query dto.WorkloadQuery) ([]models.TeacherWorkload, error)
}

type scheduleChecker interface {
	Validate(ctx context.Context, academicYear string, parity models.Parity) (*models.ConflictReport, error)
}

// TimetableHandler exposes the scheduling endpoints.
type TimetableHandler struct {
	service   timetableGenerator
	validator scheduleChecker
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, checker *service.ScheduleValidator) *TimetableHandler {
	return &TimetableHandler{service: svc, validator: checker}
}

// Generate godoc
// @Summary Generate timetables for one academic year and parity
// @Description Runs the full pipeline and replaces all prior records for the key. Shortfalls are reported per section in the metadata.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List timetable documents for a generation key
// @Tags Timetables
// @Produce json
// @Param academicYear query string true "Academic year, e.g. 2026/2027"
// @Param parity query string true "Semester parity" Enums(ODD, EVEN)
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetBySection godoc
// @Summary Get one section's timetable document
// @Tags Timetables
// @Produce json
// @Param sectionId path string true "Section ID"
// @Param academicYear query string true "Academic year"
// @Param parity query string true "Semester parity" Enums(ODD, EVEN)
// @Success 200 {object} response.Envelope
// @Router /timetables/sections/{sectionId} [get]
func (h *TimetableHandler) GetBySection(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	result, err := h.service.GetBySection(c.Request.Context(), query, c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate a committed schedule for residual conflicts
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Validate schedule payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	report, err := h.validator.Validate(c.Request.Context(), req.AcademicYear, req.Parity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Workload godoc
// @Summary Get the teacher workload report for a generation key
// @Tags Timetables
// @Produce json
// @Param academicYear query string true "Academic year"
// @Param parity query string true "Semester parity" Enums(ODD, EVEN)
// @Success 200 {object} response.Envelope
// @Router /timetables/workload [get]
func (h *TimetableHandler) Workload(c *gin.Context) {
	var query dto.WorkloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid workload query"))
		return
	}
	result, err := h.service.Workload(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
