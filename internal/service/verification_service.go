package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reportverify/internal/config"
	"reportverify/internal/domain"
	"reportverify/internal/port"
	"reportverify/internal/sheet"
	"reportverify/internal/verification"
)

// Document is one uploaded workbook.
type Document struct {
	Name string
	Body io.Reader
	Size int64
}

// VerifyUploadInput is the DTO for verifying two uploaded workbooks.
type VerifyUploadInput struct {
	DesignSpec      Document
	Report          Document
	ExpectedVersion string
}

// VerifyStoredInput is the DTO for verifying two workbooks already in object storage.
type VerifyStoredInput struct {
	DesignSpecKey   string `json:"design_spec_key" binding:"required"`
	ReportKey       string `json:"report_key" binding:"required"`
	ExpectedVersion string `json:"expected_version"`
}

// VerificationService defines the verification run contract.
type VerificationService interface {
	VerifyUpload(ctx context.Context, input VerifyUploadInput) (*domain.VerificationRun, error)
	VerifyStored(ctx context.Context, input VerifyStoredInput) (*domain.VerificationRun, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error)
	List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SourceURL(ctx context.Context, id uuid.UUID, kind domain.SourceKind) (string, error)
}

type verificationService struct {
	runRepo  port.VerificationRunRepository
	storage  port.ObjectStorage
	notifier port.Notifier
	profile  verification.Profile
	s3Cfg    *config.S3Config
	cfg      *config.VerifyConfig
	logger   *zap.Logger
}

// NewVerificationService creates a new VerificationService implementation.
func NewVerificationService(
	runRepo port.VerificationRunRepository,
	storage port.ObjectStorage,
	notifier port.Notifier,
	profile verification.Profile,
	s3Cfg *config.S3Config,
	cfg *config.VerifyConfig,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		runRepo:  runRepo,
		storage:  storage,
		notifier: notifier,
		profile:  profile,
		s3Cfg:    s3Cfg,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *verificationService) maxBytes() int64 {
	return s.cfg.MaxUploadMB * 1024 * 1024
}

// archivePrefix is the storage prefix owning the archived documents of a run.
func (s *verificationService) archivePrefix(runID uuid.UUID) string {
	return path.Join(s.s3Cfg.Prefix, runID.String()) + "/"
}

func (s *verificationService) VerifyUpload(ctx context.Context, input VerifyUploadInput) (*domain.VerificationRun, error) {
	docs := []Document{input.DesignSpec, input.Report}
	for _, d := range docs {
		if d.Name == "" || d.Body == nil {
			return nil, domain.ErrMissingDocument
		}
		if _, err := fileType(d.Name); err != nil {
			return nil, err
		}
		if d.Size > s.maxBytes() {
			return nil, domain.ErrFileTooLarge
		}
	}

	data := make([][]byte, len(docs))
	for i, d := range docs {
		b, err := io.ReadAll(io.LimitReader(d.Body, s.maxBytes()+1))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.Name, err)
		}
		if int64(len(b)) > s.maxBytes() {
			return nil, domain.ErrFileTooLarge
		}
		data[i] = b
	}

	runID := uuid.New()
	prefix := s.archivePrefix(runID)
	run := &domain.VerificationRun{
		ID:             runID,
		DesignSpecName: input.DesignSpec.Name,
		ReportName:     input.Report.Name,
		DesignSpecKey:  prefix + string(domain.SourceDesignSpec) + "/" + filepath.Base(input.DesignSpec.Name),
		ReportKey:      prefix + string(domain.SourceReport) + "/" + filepath.Base(input.Report.Name),
	}

	s.logger.Info("verifying uploaded documents",
		zap.Stringer("run_id", runID),
		zap.String("design_spec", run.DesignSpecName),
		zap.String("report", run.ReportName),
	)

	var design, report *sheet.Workbook
	var opens errgroup.Group
	opens.Go(func() (err error) {
		design, err = openWorkbook(run.DesignSpecName, data[0])
		return err
	})
	opens.Go(func() (err error) {
		report, err = openWorkbook(run.ReportName, data[1])
		return err
	})
	if err := opens.Wait(); err != nil {
		return nil, err
	}

	// Documents are archived only once both open, and every archived key is
	// removed again unless the run that references it is persisted.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.archive(gctx, run.DesignSpecKey, run.DesignSpecName, data[0])
	})
	g.Go(func() error {
		return s.archive(gctx, run.ReportKey, run.ReportName, data[1])
	})
	if err := g.Wait(); err != nil {
		s.discard(ctx, run.DesignSpecKey, run.ReportKey)
		return nil, err
	}

	saved, err := s.finish(ctx, run, design, report, input.ExpectedVersion)
	if err != nil {
		s.discard(ctx, run.DesignSpecKey, run.ReportKey)
		return nil, err
	}
	return saved, nil
}

// discard best-effort deletes archived objects that no stored run references.
func (s *verificationService) discard(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.storage.Delete(ctx, s.s3Cfg.Bucket, key); err != nil {
			s.logger.Warn("failed to discard archived document", zap.String("key", key), zap.Error(err))
			continue
		}
		s.logger.Debug("discarded archived document", zap.String("key", key))
	}
}

func (s *verificationService) VerifyStored(ctx context.Context, input VerifyStoredInput) (*domain.VerificationRun, error) {
	if input.DesignSpecKey == "" || input.ReportKey == "" {
		return nil, domain.ErrMissingDocument
	}

	run := &domain.VerificationRun{
		ID:             uuid.New(),
		DesignSpecName: path.Base(input.DesignSpecKey),
		ReportName:     path.Base(input.ReportKey),
		DesignSpecKey:  input.DesignSpecKey,
		ReportKey:      input.ReportKey,
	}

	s.logger.Info("verifying stored documents",
		zap.Stringer("run_id", run.ID),
		zap.String("design_spec_key", run.DesignSpecKey),
		zap.String("report_key", run.ReportKey),
	)

	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	var design, report *sheet.Workbook
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() (err error) {
		design, err = s.fetch(gctx, run.DesignSpecKey)
		return err
	})
	g.Go(func() (err error) {
		report, err = s.fetch(gctx, run.ReportKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.finish(ctx, run, design, report, input.ExpectedVersion)
}

// finish runs the checks, persists the run, and notifies on failure.
func (s *verificationService) finish(
	ctx context.Context,
	run *domain.VerificationRun,
	design, report *sheet.Workbook,
	expectedVersion string,
) (*domain.VerificationRun, error) {
	profile := s.profile
	if v := strings.TrimSpace(expectedVersion); v != "" {
		profile.ExpectedVersion = v
	}
	run.ExpectedVersion = profile.ExpectedVersion
	run.Report = verification.Run(design, report, profile)
	run.Passed = run.Report.Passed

	if err := s.runRepo.Create(ctx, run); err != nil {
		s.logger.Error("failed to persist verification run", zap.Stringer("run_id", run.ID), zap.Error(err))
		return nil, fmt.Errorf("saving verification run: %w", err)
	}

	s.logger.Info("verification finished",
		zap.Stringer("run_id", run.ID),
		zap.Bool("passed", run.Passed),
		zap.Int("failed_cells", run.Report.Reconciliation.FailedCells),
	)

	if !run.Passed && s.cfg.NotifyEmail != "" {
		if err := s.notifier.SendRunReport(ctx, s.cfg.NotifyEmail, run); err != nil {
			s.logger.Warn("failed to send run report", zap.Stringer("run_id", run.ID), zap.Error(err))
		}
	}
	return run, nil
}

func (s *verificationService) archive(ctx context.Context, key, name string, data []byte) error {
	ft, _ := fileType(name)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: domain.AllowedFileTypes[ft],
		Size:        int64(len(data)),
	})
	if err != nil {
		s.logger.Error("archive upload failed", zap.String("key", key), zap.Error(err))
		return domain.ErrUploadFailed
	}
	return nil
}

func (s *verificationService) fetch(ctx context.Context, key string) (*sheet.Workbook, error) {
	if _, err := fileType(key); err != nil {
		return nil, err
	}
	data, err := s.storage.Download(ctx, s.s3Cfg.Bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	return openWorkbook(key, data)
}

func (s *verificationService) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error) {
	return s.runRepo.GetByID(ctx, id)
}

func (s *verificationService) List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error) {
	return s.runRepo.List(ctx, filter)
}

// Delete removes a run and then the documents archived for it. Documents that
// were verified in place by storage key are left untouched. Once the run row is
// gone a failed object delete is only logged, so no stored run ever points at a
// missing archive.
func (s *verificationService) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.runRepo.Delete(ctx, id); err != nil {
		return err
	}

	prefix := s.archivePrefix(run.ID)
	for _, key := range []string{run.DesignSpecKey, run.ReportKey} {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.storage.Delete(ctx, s.s3Cfg.Bucket, key); err != nil {
			s.logger.Error("failed to delete archived document",
				zap.Stringer("run_id", id), zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Info("verification run deleted", zap.Stringer("run_id", id))
	return nil
}

func (s *verificationService) SourceURL(ctx context.Context, id uuid.UUID, kind domain.SourceKind) (string, error) {
	if !kind.Valid() {
		return "", domain.ErrInvalidSourceKind
	}
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	key := run.SourceKey(kind)
	if key == "" {
		return "", domain.ErrSourceNotArchived
	}
	return s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, key, s.s3Cfg.PresignExpiry)
}

func fileType(name string) (domain.FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", domain.ErrUnsupportedFileType
	}
	return ft, nil
}

func openWorkbook(name string, data []byte) (*sheet.Workbook, error) {
	wb, err := sheet.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentRead, name, err)
	}
	return wb, nil
}
