package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// VerifyFromStorageRequest represents the verify-from-storage request body.
type VerifyFromStorageRequest struct {
	DesignSpecKey   string `json:"design_spec_key" binding:"required" example:"inbox/CQ091_design.xlsx"`
	ReportKey       string `json:"report_key" binding:"required" example:"inbox/2025-03/CQ091.xlsx"`
	ExpectedVersion string `json:"expected_version" example:"1.3"`
}

// SourceURLResponse represents a presigned download link.
type SourceURLResponse struct {
	URL string `json:"url" example:"https://reportverify-documents.s3.amazonaws.com/verifications/..."`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
