package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recontab/internal/domain"
	"recontab/internal/service"
)

const dateLayout = "2006-01-02"

// ReconciliationHandler handles reconciliation runs and their reports.
type ReconciliationHandler struct {
	reconService service.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconService: reconService}
}

// Run handles POST /api/v1/reconciliations
// @Summary Run a reconciliation
// @Description Upload a reference file (xlsx, xls, csv, txt or SAF-T xml) and reconcile it against the records held for the client
// @Tags reconciliations
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Reference file"
// @Param client_id formData string true "Client ID (UUID)"
// @Param type formData string true "iva, modelo10 or ambos"
// @Param period_start formData string true "First day of the period (YYYY-MM-DD)"
// @Param period_end formData string true "Last day of the period (YYYY-MM-DD)"
// @Param tolerance formData string false "Absolute tolerance in euros" default(0.01)
// @Param notify formData bool false "Email the report to the requesting user"
// @Success 201 {object} Response{data=domain.ReconciliationRun} "Completed run"
// @Failure 400 {object} ErrorResponseBody "Invalid input"
// @Failure 404 {object} ErrorResponseBody "Client not found"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ImportFailureBody "Reference file could not be imported"
// @Security BearerAuth
// @Router /reconciliations [post]
func (h *ReconciliationHandler) Run(c *gin.Context) {
	tenantID, userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	clientID, err := uuid.Parse(c.PostForm("client_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid client_id")
		return
	}

	period, err := parsePeriod(c.PostForm("period_start"), c.PostForm("period_end"))
	if err != nil {
		HandleError(c, err)
		return
	}

	input := service.RunInput{
		TenantID: tenantID,
		UserID:   userID,
		ClientID: clientID,
		Type:     domain.ReconciliationType(strings.ToLower(strings.TrimSpace(c.PostForm("type")))),
		Period:   period,
		Filename: header.Filename,
		Size:     header.Size,
		File:     file,
	}

	if raw := strings.TrimSpace(c.PostForm("tolerance")); raw != "" {
		tolerance, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
		if err != nil {
			HandleError(c, fmt.Errorf("%w: %q", domain.ErrInvalidTolerance, raw))
			return
		}
		input.Tolerance = &tolerance
	}
	if raw := c.PostForm("notify"); raw != "" {
		notify, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "notify must be a boolean")
			return
		}
		input.Notify = notify
	}

	run, err := h.reconService.Run(c.Request.Context(), input)
	if err != nil {
		var importErr *service.ImportError
		if errors.As(err, &importErr) {
			c.JSON(http.StatusUnprocessableEntity, APIResponse{
				Success: false,
				Data:    importErr.Run,
				Error: &APIError{
					Code:    "IMPORT_FAILED",
					Message: "reference file could not be imported",
					Details: importErr.Messages,
				},
			})
			return
		}
		HandleError(c, err)
		return
	}

	RespondCreated(c, run)
}

func parsePeriod(start, end string) (domain.Period, error) {
	s, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return domain.Period{}, fmt.Errorf("%w: period_start %q", domain.ErrInvalidPeriod, start)
	}
	e, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return domain.Period{}, fmt.Errorf("%w: period_end %q", domain.ErrInvalidPeriod, end)
	}
	return domain.Period{Start: s, End: e}, nil
}

// List handles GET /api/v1/reconciliations
// @Summary List reconciliation runs
// @Description List runs for the tenant, newest first. The result document is omitted.
// @Tags reconciliations
// @Produce json
// @Param client_id query string false "Only runs for this client"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.ReconciliationRun,meta=PagMeta} "List of runs"
// @Failure 400 {object} ErrorResponseBody "Invalid client ID"
// @Security BearerAuth
// @Router /reconciliations [get]
func (h *ReconciliationHandler) List(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	var clientID *uuid.UUID
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid client_id")
			return
		}
		clientID = &id
	}

	offset, limit := pagination(c)
	runs, total, err := h.reconService.List(c.Request.Context(), tenantID, clientID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/reconciliations/:id
// @Summary Get a reconciliation run
// @Tags reconciliations
// @Produce json
// @Param id path string true "Run ID (UUID)"
// @Success 200 {object} Response{data=domain.ReconciliationRun} "Run with its full result"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Run not found"
// @Security BearerAuth
// @Router /reconciliations/{id} [get]
func (h *ReconciliationHandler) GetByID(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}

	run, err := h.reconService.Get(c.Request.Context(), tenantID, runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, run)
}

// Report handles GET /api/v1/reconciliations/:id/report
// @Summary Download a reconciliation report
// @Tags reconciliations
// @Produce plain
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Run ID (UUID)"
// @Param format query string false "txt, csv or xlsx" default(txt)
// @Success 200 {file} file "Report"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or format"
// @Failure 404 {object} ErrorResponseBody "Run not found"
// @Failure 409 {object} ErrorResponseBody "Run failed"
// @Security BearerAuth
// @Router /reconciliations/{id}/report [get]
func (h *ReconciliationHandler) Report(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}
	format := domain.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ReportFormatText))))

	out, err := h.reconService.Export(c.Request.Context(), tenantID, runID, format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
