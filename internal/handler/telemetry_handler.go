package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edumeet/errwatch-backend/internal/common"
	"github.com/edumeet/errwatch-backend/internal/domain"
	"github.com/edumeet/errwatch-backend/internal/service"
	"github.com/edumeet/errwatch-backend/pkg/ginutil"
)

// TelemetryHandler handles error telemetry requests
type TelemetryHandler struct {
	service *service.TelemetryService
}

// NewTelemetryHandler creates a new TelemetryHandler
func NewTelemetryHandler(svc *service.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{service: svc}
}

// ingestResponse is the acknowledgement returned to the client reporter
type ingestResponse struct {
	Success  bool             `json:"success"`
	ErrorID  string           `json:"errorId"`
	Analysis domain.IngestAck `json:"analysis"`
}

// queryResponse bundles the filtered errors with the aggregate views
type queryResponse struct {
	Success       bool                  `json:"success"`
	Errors        []domain.StoredError  `json:"errors"`
	Report        domain.SummaryReport  `json:"report"`
	PageAnalytics *domain.PageAnalytics `json:"pageAnalytics,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// resolveRequest flips the resolved state of one stored error
type resolveRequest struct {
	ErrorID  string `json:"errorId" binding:"required"`
	Resolved bool   `json:"resolved"`
}

// IngestError handles POST /api/v2/telemetry/errors
// @Summary Ingest a client error report
// @Description Classifies, deduplicates and stores an error reported by page instrumentation
// @Tags telemetry
// @Accept json
// @Produce json
// @Param report body domain.ErrorReport true "error report"
// @Success 200 {object} ingestResponse
// @Failure 500 {object} common.APIResponse
// @Router /telemetry/errors [post]
func (h *TelemetryHandler) IngestError(c *gin.Context) {
	var report domain.ErrorReport
	if err := c.ShouldBindJSON(&report); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "invalid error report: "+err.Error())
		return
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	errorID, analysis, _ := h.service.Ingest(report)

	c.JSON(http.StatusOK, ingestResponse{
		Success:  true,
		ErrorID:  errorID,
		Analysis: analysis,
	})
}

// ListErrors handles GET /api/v2/telemetry/errors
// @Summary Query stored errors with analytics
// @Description Filters and sorts stored errors and derives per-page health analytics
// @Tags telemetry
// @Produce json
// @Param page query string false "page context filter (e.g. /meetings)"
// @Param severity query string false "severity filter (critical|high|medium|low)"
// @Param category query string false "category filter"
// @Param resolved query bool false "resolved filter (default false)"
// @Param limit query int false "max results (default 50)"
// @Success 200 {object} queryResponse
// @Failure 401 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Security BearerAuth
// @Router /telemetry/errors [get]
func (h *TelemetryHandler) ListErrors(c *gin.Context) {
	filter := domain.QueryFilter{
		PageContext: c.Query("page"),
		Severity:    domain.Severity(c.Query("severity")),
		Category:    c.Query("category"),
	}
	filter.Resolved = ginutil.QueryBool(c, "resolved", false)
	filter.Limit = ginutil.QueryInt(c, "limit", 0)

	result := h.service.Query(filter)

	errs := result.Errors
	if errs == nil {
		errs = []domain.StoredError{}
	}
	c.JSON(http.StatusOK, queryResponse{
		Success:       true,
		Errors:        errs,
		Report:        result.Report,
		PageAnalytics: result.PageAnalytics,
		Timestamp:     time.Now(),
	})
}

// ResolveError handles PATCH /api/v2/telemetry/errors
// @Summary Resolve or reopen a stored error
// @Description Flips the resolved state by id; an unknown id is a no-op
// @Tags telemetry
// @Accept json
// @Produce json
// @Param body body resolveRequest true "resolution"
// @Success 200 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Security BearerAuth
// @Router /telemetry/errors [patch]
func (h *TelemetryHandler) ResolveError(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "invalid resolve request: "+err.Error())
		return
	}

	h.service.Resolve(req.ErrorID, req.Resolved)

	c.JSON(http.StatusOK, common.APIResponse{Success: true})
}
