package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reportverify/internal/csvexport"
	"reportverify/internal/domain"
	"reportverify/internal/middleware"
	"reportverify/internal/service"
)

// VerificationHandler handles verification run endpoints.
type VerificationHandler struct {
	svc service.VerificationService
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(svc service.VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// Create handles POST /api/v1/verifications
// @Summary Verify an uploaded report
// @Description Upload a design specification and a generated report (xlsx) and verify the report against it
// @Tags verifications
// @Accept multipart/form-data
// @Produce json
// @Param design_spec formData file true "Design specification workbook"
// @Param report formData file true "Generated report workbook"
// @Param expected_version formData string false "Expected report version (defaults to the configured version)"
// @Success 201 {object} Response{data=domain.VerificationRun} "Verification run"
// @Failure 400 {object} ErrorResponseBody "Missing document or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "Document could not be read"
// @Security BearerAuth
// @Router /verifications [post]
func (h *VerificationHandler) Create(c *gin.Context) {
	design, closeDesign, ok := formDocument(c, "design_spec")
	if !ok {
		return
	}
	defer closeDesign()
	report, closeReport, ok := formDocument(c, "report")
	if !ok {
		return
	}
	defer closeReport()

	run, err := h.svc.VerifyUpload(c.Request.Context(), service.VerifyUploadInput{
		DesignSpec:      design,
		Report:          report,
		ExpectedVersion: c.PostForm("expected_version"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	middleware.GetLogger(c).Info("verification run created",
		zap.Stringer("run_id", run.ID),
		zap.String("subject", middleware.GetSubject(c)),
		zap.Bool("passed", run.Passed),
	)
	RespondCreated(c, run)
}

func formDocument(c *gin.Context, field string) (service.Document, func(), bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", field+" field is required")
		return service.Document{}, nil, false
	}
	return documentFrom(file, header), func() { _ = file.Close() }, true
}

func documentFrom(file multipart.File, header *multipart.FileHeader) service.Document {
	return service.Document{Name: header.Filename, Body: file, Size: header.Size}
}

// CreateFromStorage handles POST /api/v1/verifications/from-storage
// @Summary Verify stored documents
// @Description Verify a report already in object storage against a stored design specification
// @Tags verifications
// @Accept json
// @Produce json
// @Param request body VerifyFromStorageRequest true "Storage keys"
// @Success 201 {object} Response{data=domain.VerificationRun} "Verification run"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 404 {object} ErrorResponseBody "Object not found"
// @Failure 422 {object} ErrorResponseBody "Document could not be read"
// @Security BearerAuth
// @Router /verifications/from-storage [post]
func (h *VerificationHandler) CreateFromStorage(c *gin.Context) {
	var req VerifyFromStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	run, err := h.svc.VerifyStored(c.Request.Context(), service.VerifyStoredInput{
		DesignSpecKey:   req.DesignSpecKey,
		ReportKey:       req.ReportKey,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, run)
}

// List handles GET /api/v1/verifications
// @Summary List verification runs
// @Description List verification runs, newest first, without their result trees
// @Tags verifications
// @Produce json
// @Param passed query bool false "Filter by outcome"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.VerificationRun,meta=PagMeta} "List of runs"
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Security BearerAuth
// @Router /verifications [get]
func (h *VerificationHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	filter := domain.RunFilter{Offset: offset, Limit: limit}
	if raw := c.Query("passed"); raw != "" {
		passed, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", "passed must be true or false")
			return
		}
		filter.Passed = &passed
	}

	runs, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/verifications/:id
// @Summary Get a verification run
// @Description Get a verification run with its full result tree
// @Tags verifications
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} Response{data=domain.VerificationRun} "Verification run"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /verifications/{id} [get]
func (h *VerificationHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	run, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// Delete handles DELETE /api/v1/verifications/:id
// @Summary Delete a verification run
// @Description Delete a verification run and the documents archived for it
// @Tags verifications
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} Response "Deleted"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /verifications/{id} [delete]
func (h *VerificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "verification run deleted"})
}

// SourceURL handles GET /api/v1/verifications/:id/sources/:kind
// @Summary Download link for a source document
// @Description Get a presigned download URL for the design specification or report of a run
// @Tags verifications
// @Produce json
// @Param id path string true "Run ID"
// @Param kind path string true "design_spec or report"
// @Success 200 {object} Response{data=SourceURLResponse} "Presigned URL"
// @Failure 400 {object} ErrorResponseBody "Invalid kind"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /verifications/{id}/sources/{kind} [get]
func (h *VerificationHandler) SourceURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	url, err := h.svc.SourceURL(c.Request.Context(), id, domain.SourceKind(c.Param("kind")))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, SourceURLResponse{URL: url})
}

// Export handles GET /api/v1/verifications/:id/export
// @Summary Export findings
// @Description Download the findings of a run as CSV, one row per failed check
// @Tags verifications
// @Produce text/csv
// @Param id path string true "Run ID"
// @Success 200 {file} file "Findings CSV"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /verifications/{id}/export [get]
func (h *VerificationHandler) Export(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	run, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	if run.Report == nil {
		HandleError(c, domain.ErrNotFound)
		return
	}

	filename := csvexport.BuildFilename(run.ReportName, "csv", run.CreatedAt)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteReport(run.Report); err != nil {
		middleware.GetLogger(c).Error("csv export failed", zap.Stringer("run_id", id), zap.Error(err))
		return
	}
	w.Flush()
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return uuid.Nil, false
	}
	return id, true
}
