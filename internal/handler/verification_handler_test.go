package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reportverify/internal/domain"
	"reportverify/internal/handler"
	"reportverify/internal/service"
	"reportverify/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *handler.VerificationHandler) *gin.Engine {
	r := gin.New()
	r.POST("/verifications", h.Create)
	r.POST("/verifications/from-storage", h.CreateFromStorage)
	r.GET("/verifications", h.List)
	r.GET("/verifications/:id", h.GetByID)
	r.DELETE("/verifications/:id", h.Delete)
	r.GET("/verifications/:id/sources/:kind", h.SourceURL)
	r.GET("/verifications/:id/export", h.Export)
	return r
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, name := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("PK fake workbook"))
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestVerificationHandler_Create_Success(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	run := &domain.VerificationRun{ID: uuid.New(), ReportName: "CQ091.xlsx", Passed: true}
	svc.On("VerifyUpload", mock.Anything, mock.MatchedBy(func(in service.VerifyUploadInput) bool {
		return in.DesignSpec.Name == "design.xlsx" && in.Report.Name == "CQ091.xlsx" && in.ExpectedVersion == "1.4"
	})).Return(run, nil)

	body, contentType := multipartBody(t,
		map[string]string{"design_spec": "design.xlsx", "report": "CQ091.xlsx"},
		map[string]string{"expected_version": "1.4"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/verifications", body)
	req.Header.Set("Content-Type", contentType)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestVerificationHandler_Create_MissingReport(t *testing.T) {
	svc := new(mocks.MockVerificationService)

	body, contentType := multipartBody(t, map[string]string{"design_spec": "design.xlsx"}, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/verifications", body)
	req.Header.Set("Content-Type", contentType)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
	svc.AssertNotCalled(t, "VerifyUpload", mock.Anything, mock.Anything)
}

func TestVerificationHandler_Create_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{errors.Join(domain.ErrDocumentRead, errors.New("zip: not a valid zip file")), http.StatusUnprocessableEntity, "DOCUMENT_UNREADABLE"},
		{errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := new(mocks.MockVerificationService)
			svc.On("VerifyUpload", mock.Anything, mock.Anything).Return(nil, tt.err)

			body, contentType := multipartBody(t, map[string]string{"design_spec": "d.xlsx", "report": "r.xlsx"}, nil)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/verifications", body)
			req.Header.Set("Content-Type", contentType)
			newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestVerificationHandler_CreateFromStorage(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	svc.On("VerifyStored", mock.Anything, service.VerifyStoredInput{
		DesignSpecKey: "inbox/design.xlsx",
		ReportKey:     "inbox/report.xlsx",
	}).Return(&domain.VerificationRun{ID: uuid.New()}, nil)
	r := newRouter(handler.NewVerificationHandler(svc))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/verifications/from-storage",
		strings.NewReader(`{"design_spec_key":"inbox/design.xlsx","report_key":"inbox/report.xlsx"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/verifications/from-storage", strings.NewReader(`{"report_key":"x.xlsx"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNumberOfCalls(t, "VerifyStored", 1)
}

func TestVerificationHandler_List(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	passed := false
	svc.On("List", mock.Anything, domain.RunFilter{Passed: &passed, Offset: 10, Limit: 20}).
		Return([]domain.VerificationRun{{ID: uuid.New()}}, 11, nil)
	r := newRouter(handler.NewVerificationHandler(svc))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications?passed=false&offset=10&limit=500", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 11, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/verifications?passed=maybe", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerificationHandler_GetByID(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(nil, domain.ErrNotFound)
	r := newRouter(handler.NewVerificationHandler(svc))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications/"+id.String(), http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/verifications/not-a-uuid", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
}

func TestVerificationHandler_Delete(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/verifications/"+id.String(), http.NoBody)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestVerificationHandler_SourceURL(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	id := uuid.New()
	svc.On("SourceURL", mock.Anything, id, domain.SourceReport).Return("https://signed", nil)
	svc.On("SourceURL", mock.Anything, id, domain.SourceKind("cover")).Return("", domain.ErrInvalidSourceKind)
	r := newRouter(handler.NewVerificationHandler(svc))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications/"+id.String()+"/sources/report", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://signed")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/verifications/"+id.String()+"/sources/cover", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func exportRun(id uuid.UUID) *domain.VerificationRun {
	return &domain.VerificationRun{
		ID:         id,
		ReportName: "CQ091 March.xlsx",
		CreatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Report: &domain.Report{
			Cover: domain.CoverResult{Version: domain.CheckResult{Name: "version", Message: "Version mismatch"}},
		},
	}
}

func TestVerificationHandler_Export_CSV(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(exportRun(id), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications/"+id.String()+"/export", http.NoBody)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="CQ091_March_findings_2025-03-01.csv"`, w.Header().Get("Content-Disposition"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBFCheck,Section"))
	assert.Contains(t, body, "cover,version,,,,,Version mismatch")
}

func TestVerificationHandler_Export_RunWithoutReport(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(&domain.VerificationRun{ID: id}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications/"+id.String()+"/export", http.NoBody)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)
}

func TestVerificationHandler_Export_InvalidID(t *testing.T) {
	svc := new(mocks.MockVerificationService)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/verifications/not-a-uuid/export", http.NoBody)
	newRouter(handler.NewVerificationHandler(svc)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(_ context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ready", nil, http.StatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(fakePinger{err: tt.err})
			r := gin.New()
			r.GET("/healthz", h.Liveness)
			r.GET("/readyz", h.Readiness)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)

			w = httptest.NewRecorder()
			req, _ = http.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
