package domain

// FileType represents the reference file formats accepted for upload.
type FileType string

const (
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
	FileTypeCSV  FileType = "csv"
	FileTypeXML  FileType = "xml"
)

// AllowedFileTypes maps FileType to the MIME content type stored alongside the upload.
var AllowedFileTypes = map[FileType]string{
	FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FileTypeXLS:  "application/vnd.ms-excel",
	FileTypeCSV:  "text/csv",
	FileTypeXML:  "application/xml",
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"xlsx": FileTypeXLSX,
	"xls":  FileTypeXLS,
	"csv":  FileTypeCSV,
	"txt":  FileTypeCSV,
	"xml":  FileTypeXML,
}

// UserRole defines the role hierarchy within a tenant.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// FileStatus represents the lifecycle of an uploaded file.
type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusUploaded FileStatus = "uploaded"
	FileStatusFailed   FileStatus = "failed"
)

// ReconciliationType selects which monetary fields a run compares.
type ReconciliationType string

const (
	ReconciliationIVA      ReconciliationType = "iva"
	ReconciliationModelo10 ReconciliationType = "modelo10"
	ReconciliationAmbos    ReconciliationType = "ambos"
)

// IsValid reports whether t is one of the known reconciliation types.
func (t ReconciliationType) IsValid() bool {
	switch t {
	case ReconciliationIVA, ReconciliationModelo10, ReconciliationAmbos:
		return true
	}
	return false
}

// IncludesIVA reports whether runs of this type compare VAT fields.
func (t ReconciliationType) IncludesIVA() bool {
	return t == ReconciliationIVA || t == ReconciliationAmbos
}

// IncludesModelo10 reports whether runs of this type compare withholding fields.
func (t ReconciliationType) IncludesModelo10() bool {
	return t == ReconciliationModelo10 || t == ReconciliationAmbos
}

// InvoiceDirection tells deductible (purchase) VAT apart from liquidated (sales) VAT.
type InvoiceDirection string

const (
	DirectionDeductible InvoiceDirection = "deductible"
	DirectionLiquidated InvoiceDirection = "liquidated"
)

// RunStatus is the terminal state of a persisted reconciliation run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ReportFormat is an export format for a reconciliation run.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "txt"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// ReportContentTypes maps each export format to its response content type.
var ReportContentTypes = map[ReportFormat]string{
	ReportFormatText: "text/plain; charset=utf-8",
	ReportFormatCSV:  "text/csv; charset=utf-8",
	ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}
