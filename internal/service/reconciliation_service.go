package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"recontab/internal/config"
	"recontab/internal/domain"
	"recontab/internal/importer"
	"recontab/internal/port"
	"recontab/internal/reconcile"
	"recontab/internal/report"
)

// RunInput is the DTO for starting a reconciliation.
type RunInput struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ClientID  uuid.UUID
	Type      domain.ReconciliationType
	Period    domain.Period
	Tolerance *decimal.Decimal
	Notify    bool
	Filename  string
	Size      int64
	File      io.Reader
}

// ImportError is returned when the reference file cannot be turned into
// records. Run is the failed run that was persisted for it.
type ImportError struct {
	Run      *domain.ReconciliationRun
	Messages []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrImportFailed, strings.Join(e.Messages, "; "))
}

func (e *ImportError) Unwrap() error { return domain.ErrImportFailed }

// ExportedReport is a rendered report ready to be served.
type ExportedReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReconciliationService defines the reconciliation contract.
type ReconciliationService interface {
	Run(ctx context.Context, input RunInput) (*domain.ReconciliationRun, error)
	Get(ctx context.Context, tenantID, runID uuid.UUID) (*domain.ReconciliationRun, error)
	List(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, offset, limit int) ([]domain.ReconciliationRun, int, error)
	Export(ctx context.Context, tenantID, runID uuid.UUID, format domain.ReportFormat) (*ExportedReport, error)
}

type reconciliationService struct {
	clientRepo  port.ClientRepository
	userRepo    port.UserRepository
	fileRepo    port.FileMetaRepository
	runRepo     port.RunRepository
	sourceRepo  port.SourceRecordRepository
	storage     port.ObjectStorage
	emailSender port.EmailSender
	importer    *importer.Importer
	engine      *reconcile.Engine
	s3Cfg       *config.S3Config
	reconCfg    config.ReconConfig
	log         *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService implementation.
func NewReconciliationService(
	clientRepo port.ClientRepository,
	userRepo port.UserRepository,
	fileRepo port.FileMetaRepository,
	runRepo port.RunRepository,
	sourceRepo port.SourceRecordRepository,
	storage port.ObjectStorage,
	emailSender port.EmailSender,
	imp *importer.Importer,
	engine *reconcile.Engine,
	s3Cfg *config.S3Config,
	reconCfg config.ReconConfig,
	log *zap.Logger,
) ReconciliationService {
	return &reconciliationService{
		clientRepo:  clientRepo,
		userRepo:    userRepo,
		fileRepo:    fileRepo,
		runRepo:     runRepo,
		sourceRepo:  sourceRepo,
		storage:     storage,
		emailSender: emailSender,
		importer:    imp,
		engine:      engine,
		s3Cfg:       s3Cfg,
		reconCfg:    reconCfg,
		log:         log,
	}
}

func (s *reconciliationService) maxBytes() int64 {
	return s.s3Cfg.MaxFileSizeMB << 20
}

func (s *reconciliationService) Run(ctx context.Context, input RunInput) (*domain.ReconciliationRun, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReconciliationType, input.Type)
	}
	if !input.Period.Valid() {
		return nil, domain.ErrInvalidPeriod
	}
	fileType, err := importer.FileTypeOf(input.Filename)
	if err != nil {
		return nil, err
	}
	if input.Size > s.maxBytes() {
		return nil, domain.ErrFileTooLarge
	}

	engine := s.engine
	if input.Tolerance != nil {
		if engine, err = s.engine.WithTolerance(*input.Tolerance); err != nil {
			return nil, err
		}
	}

	client, err := s.clientRepo.GetByID(ctx, input.TenantID, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("reconciliationService.Run: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("reading reference file: %w", err)
	}
	if int64(len(data)) > s.maxBytes() {
		return nil, domain.ErrFileTooLarge
	}

	meta, err := s.storeReference(ctx, input, fileType, data)
	if err != nil {
		return nil, err
	}

	run := &domain.ReconciliationRun{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		ClientID:    input.ClientID,
		FileID:      &meta.ID,
		Type:        input.Type,
		PeriodStart: input.Period.Start,
		PeriodEnd:   input.Period.End,
		Tolerance:   engine.Tolerance(),
		CreatedBy:   input.UserID,
	}

	imported, err := s.importer.Import(data, input.Filename, input.Type)
	if err != nil {
		return nil, err
	}
	warnings := append([]string{}, imported.Warnings...)
	if !imported.Success() {
		return nil, s.fail(ctx, run, warnings, imported.Errors)
	}

	normalizer := engine.Normalizer()
	excel := normalizer.NormalizeExcel(imported.Rows, input.Type)
	warnings = append(warnings, excel.Warnings...)
	if !excel.Success {
		return nil, s.fail(ctx, run, warnings, excel.Errors)
	}

	rows, err := s.extractedRows(ctx, input)
	if err != nil {
		return nil, err
	}
	extracted := []reconcile.ExtractedRecord{}
	if len(rows) == 0 {
		warnings = append(warnings, "the system holds no records for this client and period")
	} else {
		ex := normalizer.NormalizeExtracted(rows, input.Type)
		warnings = append(warnings, ex.Warnings...)
		warnings = append(warnings, ex.Errors...)
		extracted = ex.Records
	}

	result, err := engine.Reconcile(input.Type, excel.Records, extracted)
	if err != nil {
		return nil, fmt.Errorf("reconciliationService.Run: %w", err)
	}

	run.Status = domain.RunStatusCompleted
	run.IsZeroDelta = result.IsZeroDelta
	run.MatchRate = result.Summary.MatchRate
	if run.Summary, err = json.Marshal(result.Summary); err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	if run.Result, err = json.Marshal(result); err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	if run.Warnings, err = json.Marshal(warnings); err != nil {
		return nil, fmt.Errorf("encoding warnings: %w", err)
	}
	run.Errors = json.RawMessage("[]")
	run.ReportKey = s.uploadReport(ctx, run, client, result, warnings)

	if err := s.runRepo.Create(ctx, run); err != nil {
		if run.ReportKey != "" {
			if delErr := s.storage.Delete(ctx, s.s3Cfg.Bucket, run.ReportKey); delErr != nil {
				s.log.Warn("orphaned report not removed", zap.String("key", run.ReportKey), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("reconciliationService.Run: %w", err)
	}

	s.log.Info("reconciliation completed",
		zap.String("run_id", run.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("type", string(run.Type)),
		zap.Bool("zero_delta", run.IsZeroDelta),
		zap.Int("match_rate", run.MatchRate),
		zap.Int("warnings", len(warnings)),
	)

	if input.Notify {
		s.notify(ctx, input, run, client, result.Summary)
	}
	return run, nil
}

// storeReference keeps a copy of the uploaded file. The metadata row is
// written first and marked failed if the upload does not go through.
func (s *reconciliationService) storeReference(ctx context.Context, input RunInput, fileType domain.FileType, data []byte) (*domain.FileMeta, error) {
	fileID := uuid.New()
	key := fmt.Sprintf("tenants/%s/reference/%s/%s", input.TenantID, fileID, input.Filename)
	meta := &domain.FileMeta{
		ID:           fileID,
		TenantID:     input.TenantID,
		UploadedBy:   input.UserID,
		FileName:     fileID.String() + "." + string(fileType),
		OriginalName: input.Filename,
		FileType:     fileType,
		FileSize:     int64(len(data)),
		S3Bucket:     s.s3Cfg.Bucket,
		S3Key:        key,
		ContentType:  domain.AllowedFileTypes[fileType],
		Status:       domain.FileStatusPending,
	}
	if err := s.fileRepo.Create(ctx, meta); err != nil {
		return nil, fmt.Errorf("creating file metadata: %w", err)
	}

	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: meta.ContentType,
		Size:        meta.FileSize,
	})
	if err != nil {
		s.log.Error("reference upload failed", zap.String("file_id", fileID.String()), zap.Error(err))
		if uerr := s.fileRepo.UpdateStatus(ctx, input.TenantID, fileID, domain.FileStatusFailed); uerr != nil {
			s.log.Error("marking file failed", zap.String("file_id", fileID.String()), zap.Error(uerr))
		}
		return nil, domain.ErrUploadFailed
	}

	if err := s.fileRepo.UpdateStatus(ctx, input.TenantID, fileID, domain.FileStatusUploaded); err != nil {
		return nil, fmt.Errorf("updating file status: %w", err)
	}
	meta.Status = domain.FileStatusUploaded
	return meta, nil
}

// fail persists run as failed and returns the ImportError describing it.
func (s *reconciliationService) fail(ctx context.Context, run *domain.ReconciliationRun, warnings, messages []string) error {
	run.Status = domain.RunStatusFailed
	run.Summary = json.RawMessage("{}")
	run.Result = json.RawMessage("{}")
	var err error
	if run.Warnings, err = json.Marshal(warnings); err != nil {
		return fmt.Errorf("encoding warnings: %w", err)
	}
	if run.Errors, err = json.Marshal(messages); err != nil {
		return fmt.Errorf("encoding errors: %w", err)
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return fmt.Errorf("reconciliationService.Run: %w", err)
	}
	s.log.Warn("reconciliation failed on import",
		zap.String("run_id", run.ID.String()),
		zap.Strings("errors", messages),
	)
	return &ImportError{Run: run, Messages: messages}
}

// extractedRows loads the system side of the run as raw rows, so it goes
// through the same coercion as the reference file.
func (s *reconciliationService) extractedRows(ctx context.Context, input RunInput) ([]reconcile.RawRow, error) {
	var rows []reconcile.RawRow
	if input.Type.IncludesIVA() {
		invoices, err := s.sourceRepo.ListInvoices(ctx, input.TenantID, input.ClientID, input.Period)
		if err != nil {
			return nil, fmt.Errorf("loading invoices: %w", err)
		}
		for _, inv := range invoices {
			cells := map[reconcile.Column]string{
				reconcile.ColumnNIF:       inv.CounterpartyNIF,
				reconcile.ColumnName:      inv.CounterpartyName,
				reconcile.ColumnDate:      isoDate(inv.DocumentDate),
				reconcile.ColumnDirection: string(inv.Direction),
			}
			amounts := reconcile.Amounts{
				TotalAmount:     inv.TotalAmount,
				VATStandard:     inv.VATStandard,
				VATIntermediate: inv.VATIntermediate,
				VATReduced:      inv.VATReduced,
			}
			rows = append(rows, sourceRow(len(rows)+1, inv.ID, cells, amounts, domain.ReconciliationIVA))
		}
	}
	if input.Type.IncludesModelo10() {
		withholdings, err := s.sourceRepo.ListWithholdings(ctx, input.TenantID, input.ClientID, input.Period)
		if err != nil {
			return nil, fmt.Errorf("loading withholdings: %w", err)
		}
		for _, w := range withholdings {
			cells := map[reconcile.Column]string{
				reconcile.ColumnNIF:            w.BeneficiaryNIF,
				reconcile.ColumnName:           w.BeneficiaryName,
				reconcile.ColumnDate:           isoDate(w.PaymentDate),
				reconcile.ColumnIncomeCategory: w.IncomeCategory,
			}
			amounts := reconcile.Amounts{
				GrossAmount:       w.GrossAmount,
				WithholdingAmount: w.WithholdingAmount,
			}
			rows = append(rows, sourceRow(len(rows)+1, w.ID, cells, amounts, domain.ReconciliationModelo10))
		}
	}
	return rows, nil
}

func sourceRow(line int, id uuid.UUID, cells map[reconcile.Column]string, amounts reconcile.Amounts, kind domain.ReconciliationType) reconcile.RawRow {
	for _, f := range reconcile.FieldsFor(kind) {
		cells[reconcile.AmountColumn(f)] = amounts.Get(f).String()
	}
	return reconcile.RawRow{Line: line, SourceID: id.String(), Cells: cells}
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (s *reconciliationService) meta(run *domain.ReconciliationRun, client *domain.Client, warnings []string) report.Meta {
	return report.Meta{
		RunID:       run.ID.String(),
		ClientName:  client.Name,
		ClientNIF:   client.NIF,
		Period:      domain.Period{Start: run.PeriodStart, End: run.PeriodEnd},
		GeneratedAt: time.Now().UTC(),
		Warnings:    warnings,
	}
}

// uploadReport stores the text report and returns its key. A failed upload
// does not fail the run; the report is rendered again on export.
func (s *reconciliationService) uploadReport(ctx context.Context, run *domain.ReconciliationRun, client *domain.Client, result *reconcile.Result, warnings []string) string {
	var buf bytes.Buffer
	opts := report.Options{PreviewLimit: s.reconCfg.PreviewLimit}
	if err := report.WriteText(&buf, s.meta(run, client, warnings), result, opts); err != nil {
		s.log.Error("rendering report", zap.String("run_id", run.ID.String()), zap.Error(err))
		return ""
	}

	key := fmt.Sprintf("tenants/%s/reports/%s.txt", run.TenantID, run.ID)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: domain.ReportContentTypes[domain.ReportFormatText],
		Size:        int64(buf.Len()),
	})
	if err != nil {
		s.log.Error("report upload failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		return ""
	}
	return key
}

// notify emails the requesting user. Delivery problems are logged only.
func (s *reconciliationService) notify(ctx context.Context, input RunInput, run *domain.ReconciliationRun, client *domain.Client, summary reconcile.Summary) {
	user, err := s.userRepo.GetByID(ctx, input.TenantID, input.UserID)
	if err != nil {
		s.log.Warn("notification skipped: user lookup failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		return
	}

	var reportURL string
	if run.ReportKey != "" {
		reportURL, err = s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, run.ReportKey, s.s3Cfg.PresignExpiry)
		if err != nil {
			s.log.Warn("presigning report url", zap.String("run_id", run.ID.String()), zap.Error(err))
		}
	}

	msg := port.ReportEmail{
		ToEmail:    user.Email,
		ToName:     user.FullName,
		RunID:      run.ID,
		ClientName: client.Name,
		Type:       run.Type,
		Period:     input.Period,
		Summary:    summary,
		ReportURL:  reportURL,
	}
	if err := s.emailSender.SendReconciliationReport(ctx, msg); err != nil {
		s.log.Error("sending reconciliation email", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func (s *reconciliationService) Get(ctx context.Context, tenantID, runID uuid.UUID) (*domain.ReconciliationRun, error) {
	run, err := s.runRepo.GetByID(ctx, tenantID, runID)
	if err != nil {
		return nil, fmt.Errorf("reconciliationService.Get: %w", err)
	}
	return run, nil
}

func (s *reconciliationService) List(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	runs, total, err := s.runRepo.ListByTenant(ctx, tenantID, port.RunFilter{ClientID: clientID}, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("reconciliationService.List: %w", err)
	}
	for i := range runs {
		runs[i].Result = nil
	}
	return runs, total, nil
}

func (s *reconciliationService) Export(ctx context.Context, tenantID, runID uuid.UUID, format domain.ReportFormat) (*ExportedReport, error) {
	contentType, ok := domain.ReportContentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedReportFormat, format)
	}

	run, err := s.runRepo.GetByID(ctx, tenantID, runID)
	if err != nil {
		return nil, fmt.Errorf("reconciliationService.Export: %w", err)
	}
	if run.Status != domain.RunStatusCompleted {
		return nil, domain.ErrRunFailed
	}
	client, err := s.clientRepo.GetByID(ctx, tenantID, run.ClientID)
	if err != nil {
		return nil, fmt.Errorf("reconciliationService.Export: %w", err)
	}

	out := &ExportedReport{
		Filename:    report.BuildFilename(client.Name, run.Type, format, run.CreatedAt),
		ContentType: contentType,
	}

	if format == domain.ReportFormatText && run.ReportKey != "" {
		data, err := s.storage.Download(ctx, s.s3Cfg.Bucket, run.ReportKey)
		if err == nil {
			out.Data = data
			return out, nil
		}
		s.log.Warn("stored report unavailable, rendering again",
			zap.String("run_id", run.ID.String()), zap.Error(err))
	}

	var result reconcile.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	var warnings []string
	if len(run.Warnings) > 0 {
		if err := json.Unmarshal(run.Warnings, &warnings); err != nil {
			return nil, fmt.Errorf("decoding warnings: %w", err)
		}
	}
	meta := s.meta(run, client, warnings)

	var buf bytes.Buffer
	switch format {
	case domain.ReportFormatText:
		err = report.WriteText(&buf, meta, &result, report.Options{PreviewLimit: s.reconCfg.PreviewLimit})
	case domain.ReportFormatCSV:
		err = report.WriteCSV(&buf, &result)
	case domain.ReportFormatXLSX:
		err = report.WriteXLSX(&buf, meta, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s report: %w", format, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
