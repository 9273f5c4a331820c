package handler_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recontab/internal/domain"
	"recontab/internal/handler"
	"recontab/internal/service"
	"recontab/mocks"
)

const referenceCSV = "NIF;Nome;Total;IVA 23%\n123456789;Empresa A;123,00;23,00\n"

// multipartRun builds a POST /reconciliations request. Empty values are
// left out of the form.
func multipartRun(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if withFile {
		part, err := writer.CreateFormFile("file", "faturas.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(referenceCSV))
		require.NoError(t, err)
	}
	for k, v := range fields {
		if v != "" {
			require.NoError(t, writer.WriteField(k, v))
		}
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/v1/reconciliations", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func runFields(clientID uuid.UUID) map[string]string {
	return map[string]string{
		"client_id":    clientID.String(),
		"type":         "IVA",
		"period_start": "2024-01-01",
		"period_end":   "2024-03-31",
	}
}

func TestReconciliationHandler_Run_Success(t *testing.T) {
	mockSvc := new(mocks.MockReconciliationService)
	h := handler.NewReconciliationHandler(mockSvc)
	clientID := uuid.New()

	run := &domain.ReconciliationRun{ID: uuid.New(), ClientID: clientID, Status: domain.RunStatusCompleted, IsZeroDelta: true}
	mockSvc.On("Run", mock.Anything, mock.MatchedBy(func(in service.RunInput) bool {
		data, err := io.ReadAll(in.File)
		return err == nil &&
			in.TenantID == tenantID &&
			in.UserID == userID &&
			in.ClientID == clientID &&
			in.Type == domain.ReconciliationIVA &&
			in.Period.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			in.Period.End.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)) &&
			in.Tolerance != nil && in.Tolerance.String() == "0.5" &&
			in.Notify &&
			in.Filename == "faturas.csv" &&
			string(data) == referenceCSV
	})).Return(run, nil)

	fields := runFields(clientID)
	fields["tolerance"] = "0,50"
	fields["notify"] = "true"

	w := httptest.NewRecorder()
	c := newAuthedContext(w, domain.RoleMember)
	c.Request = multipartRun(t, fields, true)

	h.Run(c)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decode(t, w).Success)
	mockSvc.AssertExpectations(t)
}

func TestReconciliationHandler_Run_ImportFailure(t *testing.T) {
	mockSvc := new(mocks.MockReconciliationService)
	h := handler.NewReconciliationHandler(mockSvc)
	clientID := uuid.New()

	failed := &domain.ReconciliationRun{ID: uuid.New(), Status: domain.RunStatusFailed}
	mockSvc.On("Run", mock.Anything, mock.AnythingOfType("service.RunInput")).
		Return(nil, &service.ImportError{Run: failed, Messages: []string{"no header row found"}})

	w := httptest.NewRecorder()
	c := newAuthedContext(w, domain.RoleMember)
	c.Request = multipartRun(t, runFields(clientID), true)

	h.Run(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "IMPORT_FAILED", resp.Error.Code)
	assert.Equal(t, []string{"no header row found"}, resp.Error.Details)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, failed.ID.String(), data["id"])
	assert.Equal(t, "failed", data["status"])
}

func TestReconciliationHandler_Run_BadInput(t *testing.T) {
	clientID := uuid.New()

	tests := []struct {
		name     string
		mutate   func(map[string]string)
		withFile bool
		wantCode string
	}{
		{"missing file", func(map[string]string) {}, false, "MISSING_FILE"},
		{"bad client id", func(f map[string]string) { f["client_id"] = "abc" }, true, "INVALID_ID"},
		{"missing period end", func(f map[string]string) { f["period_end"] = "" }, true, "INVALID_PERIOD"},
		{"period in portuguese order", func(f map[string]string) { f["period_start"] = "01/01/2024" }, true, "INVALID_PERIOD"},
		{"bad tolerance", func(f map[string]string) { f["tolerance"] = "um euro" }, true, "INVALID_TOLERANCE"},
		{"bad notify", func(f map[string]string) { f["notify"] = "talvez" }, true, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(mocks.MockReconciliationService)
			h := handler.NewReconciliationHandler(mockSvc)
			fields := runFields(clientID)
			tt.mutate(fields)

			w := httptest.NewRecorder()
			c := newAuthedContext(w, domain.RoleMember)
			c.Request = multipartRun(t, fields, tt.withFile)

			h.Run(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w).Error.Code)
			mockSvc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestReconciliationHandler_Run_ServiceErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrClientNotFound, http.StatusNotFound, "CLIENT_NOT_FOUND"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{fmt.Errorf("wrapped: %w", domain.ErrInvalidReconciliationType), http.StatusBadRequest, "INVALID_TYPE"},
		{domain.ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			mockSvc := new(mocks.MockReconciliationService)
			h := handler.NewReconciliationHandler(mockSvc)
			mockSvc.On("Run", mock.Anything, mock.AnythingOfType("service.RunInput")).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c := newAuthedContext(w, domain.RoleMember)
			c.Request = multipartRun(t, runFields(uuid.New()), true)

			h.Run(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w).Error.Code)
		})
	}
}

func TestReconciliationHandler_List(t *testing.T) {
	t.Run("all clients", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		mockSvc.On("List", mock.Anything, tenantID, (*uuid.UUID)(nil), 0, 20).
			Return([]domain.ReconciliationRun{}, 0, nil)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations", nil)

		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("one client", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		clientID := uuid.New()
		mockSvc.On("List", mock.Anything, tenantID, mock.MatchedBy(func(id *uuid.UUID) bool {
			return id != nil && *id == clientID
		}), 10, 5).Return([]domain.ReconciliationRun{{ID: uuid.New()}}, 11, nil)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations?client_id="+clientID.String()+"&offset=10&limit=5", nil)

		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 11, decode(t, w).Meta.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad client id", func(t *testing.T) {
		h := handler.NewReconciliationHandler(new(mocks.MockReconciliationService))

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations?client_id=x", nil)

		h.List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReconciliationHandler_GetByID_NotFound(t *testing.T) {
	mockSvc := new(mocks.MockReconciliationService)
	h := handler.NewReconciliationHandler(mockSvc)
	runID := uuid.New()
	mockSvc.On("Get", mock.Anything, tenantID, runID).Return(nil, domain.ErrRunNotFound)

	w := httptest.NewRecorder()
	c := newAuthedContext(w, domain.RoleMember)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+runID.String(), nil)

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decode(t, w).Error.Code)
}

func TestReconciliationHandler_Report(t *testing.T) {
	runID := uuid.New()

	t.Run("defaults to text", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		mockSvc.On("Export", mock.Anything, tenantID, runID, domain.ReportFormatText).Return(&service.ExportedReport{
			Filename:    "Padaria_Central_iva_2024-04-02.txt",
			ContentType: domain.ReportContentTypes[domain.ReportFormatText],
			Data:        []byte("RECONCILIATION REPORT: IVA\n"),
		}, nil)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Params = gin.Params{{Key: "id", Value: runID.String()}}
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+runID.String()+"/report", nil)

		h.Report(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="Padaria_Central_iva_2024-04-02.txt"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "RECONCILIATION REPORT: IVA\n", w.Body.String())
	})

	t.Run("format is case insensitive", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		mockSvc.On("Export", mock.Anything, tenantID, runID, domain.ReportFormatXLSX).Return(&service.ExportedReport{
			Filename:    "r.xlsx",
			ContentType: domain.ReportContentTypes[domain.ReportFormatXLSX],
			Data:        []byte("PK"),
		}, nil)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Params = gin.Params{{Key: "id", Value: runID.String()}}
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+runID.String()+"/report?format=XLSX", nil)

		h.Report(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("failed run", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		mockSvc.On("Export", mock.Anything, tenantID, runID, domain.ReportFormatCSV).Return(nil, domain.ErrRunFailed)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Params = gin.Params{{Key: "id", Value: runID.String()}}
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+runID.String()+"/report?format=csv", nil)

		h.Report(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "RUN_FAILED", decode(t, w).Error.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		mockSvc := new(mocks.MockReconciliationService)
		h := handler.NewReconciliationHandler(mockSvc)
		mockSvc.On("Export", mock.Anything, tenantID, runID, domain.ReportFormat("pdf")).Return(nil, domain.ErrUnsupportedReportFormat)

		w := httptest.NewRecorder()
		c := newAuthedContext(w, domain.RoleMember)
		c.Params = gin.Params{{Key: "id", Value: runID.String()}}
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+runID.String()+"/report?format=pdf", nil)

		h.Report(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNSUPPORTED_FORMAT", decode(t, w).Error.Code)
	})
}
