package domain

import "errors"

var (
	ErrNotFound                  = errors.New("resource not found")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrTenantInactive            = errors.New("tenant is inactive")
	ErrUserInactive              = errors.New("user is inactive")
	ErrUnsupportedFileType       = errors.New("unsupported file type")
	ErrFileTooLarge              = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed              = errors.New("file upload to storage failed")
	ErrClientNotFound            = errors.New("client not found")
	ErrDuplicateClientNIF        = errors.New("a client with this NIF already exists for this tenant")
	ErrInvalidNIF                = errors.New("invalid NIF")
	ErrInvalidReconciliationType = errors.New("invalid reconciliation type")
	ErrInvalidPeriod             = errors.New("invalid reconciliation period")
	ErrInvalidTolerance          = errors.New("invalid tolerance")
	ErrImportFailed              = errors.New("reference file could not be imported")
	ErrRunNotFound               = errors.New("reconciliation run not found")
	ErrRunFailed                 = errors.New("reconciliation run has no result")
	ErrUnsupportedReportFormat   = errors.New("unsupported report format")
)
