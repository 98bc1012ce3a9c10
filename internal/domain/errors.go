package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrDocumentRead        = errors.New("document read failed")
	ErrMissingDocument     = errors.New("both a design specification and a report are required")
	ErrInvalidSourceKind   = errors.New("unknown source document kind")
	ErrSourceNotArchived   = errors.New("source document was not archived")
)
