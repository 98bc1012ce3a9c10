package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"reportverify/internal/config"
	"reportverify/internal/domain"
	"reportverify/internal/port"
	"reportverify/internal/service"
	"reportverify/internal/verification"
	"reportverify/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type deps struct {
	repo     *mocks.MockVerificationRunRepo
	storage  *mocks.MockObjectStorage
	notifier *mocks.MockNotifier
	verify   config.VerifyConfig
}

func newDeps() *deps {
	return &deps{
		repo:     new(mocks.MockVerificationRunRepo),
		storage:  new(mocks.MockObjectStorage),
		notifier: new(mocks.MockNotifier),
		verify: config.VerifyConfig{
			MaxUploadMB:  1,
			FetchTimeout: 5 * time.Second,
			NotifyEmail:  "qa@example.org",
		},
	}
}

func (d *deps) service() service.VerificationService {
	s3Cfg := &config.S3Config{Bucket: "test-bucket", Prefix: "verifications", PresignExpiry: 600}
	return service.NewVerificationService(d.repo, d.storage, d.notifier,
		verification.DefaultProfile(), s3Cfg, &d.verify, zap.NewNop())
}

// workbookBytes returns a minimal xlsx with one labelled sheet.
func workbookBytes(t *testing.T, sheetName string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))
	require.NoError(t, f.SetCellValue(sheetName, "A1", sheetName))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadInput(t *testing.T) service.VerifyUploadInput {
	design := workbookBytes(t, "Standard Report 1")
	report := workbookBytes(t, "Cover")
	return service.VerifyUploadInput{
		DesignSpec: service.Document{Name: "design.xlsx", Body: bytes.NewReader(design), Size: int64(len(design))},
		Report:     service.Document{Name: "CQ091.xlsx", Body: bytes.NewReader(report), Size: int64(len(report))},
	}
}

func TestVerifyUpload_ArchivesPersistsAndNotifies(t *testing.T) {
	d := newDeps()
	d.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{Location: "s3://test-bucket/x"}, nil).Twice()
	d.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.VerificationRun")).Return(nil)
	d.notifier.On("SendRunReport", mock.Anything, "qa@example.org", mock.AnythingOfType("*domain.VerificationRun")).Return(nil)

	run, err := d.service().VerifyUpload(context.Background(), uploadInput(t))
	require.NoError(t, err)

	prefix := "verifications/" + run.ID.String() + "/"
	assert.Equal(t, prefix+"design_spec/design.xlsx", run.DesignSpecKey)
	assert.Equal(t, prefix+"report/CQ091.xlsx", run.ReportKey)
	assert.Equal(t, "1.3", run.ExpectedVersion)
	require.NotNil(t, run.Report)
	assert.False(t, run.Passed)
	assert.Equal(t, run.Report.Passed, run.Passed)

	d.storage.AssertExpectations(t)
	d.repo.AssertExpectations(t)
	d.notifier.AssertExpectations(t)

	for _, call := range d.storage.Calls {
		in := call.Arguments.Get(1).(port.UploadInput)
		assert.Equal(t, "test-bucket", in.Bucket)
		assert.Equal(t, domain.AllowedFileTypes[domain.FileTypeXLSX], in.ContentType)
	}
}

func TestVerifyUpload_ExpectedVersionOverride(t *testing.T) {
	d := newDeps()
	d.verify.NotifyEmail = ""
	d.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	d.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	in := uploadInput(t)
	in.ExpectedVersion = " 2.0 "
	run, err := d.service().VerifyUpload(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "2.0", run.ExpectedVersion)
	d.notifier.AssertNotCalled(t, "SendRunReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyUpload_RejectsInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.VerifyUploadInput)
		want   error
	}{
		{"missing report", func(in *service.VerifyUploadInput) { in.Report = service.Document{} }, domain.ErrMissingDocument},
		{"wrong extension", func(in *service.VerifyUploadInput) { in.DesignSpec.Name = "design.pdf" }, domain.ErrUnsupportedFileType},
		{"declared too large", func(in *service.VerifyUploadInput) { in.Report.Size = 2 << 20 }, domain.ErrFileTooLarge},
		{"body too large", func(in *service.VerifyUploadInput) {
			in.Report.Body = bytes.NewReader(make([]byte, 1<<20+1))
		}, domain.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			in := uploadInput(t)
			tt.mutate(&in)

			_, err := d.service().VerifyUpload(context.Background(), in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			d.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestVerifyUpload_UnreadableWorkbookIsNeverArchived(t *testing.T) {
	d := newDeps()

	in := uploadInput(t)
	in.Report.Body = strings.NewReader("this is not a zip archive")

	_, err := d.service().VerifyUpload(context.Background(), in)
	assert.True(t, errors.Is(err, domain.ErrDocumentRead))
	d.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerifyUpload_ArchiveFailureDiscardsBothKeys(t *testing.T) {
	d := newDeps()
	d.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.Contains(in.Key, "/design_spec/")
	})).Return(&port.UploadOutput{}, nil).Maybe()
	d.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.Contains(in.Key, "/report/")
	})).Return(nil, errors.New("bucket gone"))
	d.storage.On("Delete", mock.Anything, "test-bucket", mock.AnythingOfType("string")).Return(nil)

	_, err := d.service().VerifyUpload(context.Background(), uploadInput(t))
	assert.True(t, errors.Is(err, domain.ErrUploadFailed))
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assertDiscarded(t, d.storage)
}

func TestVerifyUpload_PersistFailureDiscardsBothKeys(t *testing.T) {
	d := newDeps()
	d.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil).Twice()
	d.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	d.storage.On("Delete", mock.Anything, "test-bucket", mock.AnythingOfType("string")).Return(nil)

	_, err := d.service().VerifyUpload(context.Background(), uploadInput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving verification run")
	d.notifier.AssertNotCalled(t, "SendRunReport", mock.Anything, mock.Anything, mock.Anything)
	assertDiscarded(t, d.storage)
}

// assertDiscarded checks that both archive keys of the run were deleted.
func assertDiscarded(t *testing.T, storage *mocks.MockObjectStorage) {
	t.Helper()
	var deleted []string
	for _, call := range storage.Calls {
		if call.Method == "Delete" {
			deleted = append(deleted, call.Arguments.String(2))
		}
	}
	require.Len(t, deleted, 2)
	var design, report bool
	for _, key := range deleted {
		assert.True(t, strings.HasPrefix(key, "verifications/"), key)
		design = design || strings.HasSuffix(key, "/design_spec/design.xlsx")
		report = report || strings.HasSuffix(key, "/report/CQ091.xlsx")
	}
	assert.True(t, design, "design spec key discarded")
	assert.True(t, report, "report key discarded")
}

func TestVerifyUpload_NotifierErrorIsNotFatal(t *testing.T) {
	d := newDeps()
	d.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	d.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	d.notifier.On("SendRunReport", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("ses throttled"))

	run, err := d.service().VerifyUpload(context.Background(), uploadInput(t))
	require.NoError(t, err)
	assert.NotNil(t, run)
}

func TestVerifyStored_FetchesBothDocuments(t *testing.T) {
	d := newDeps()
	d.verify.NotifyEmail = ""
	d.storage.On("Download", mock.Anything, "test-bucket", "inbox/design.xlsx").Return(workbookBytes(t, "Summary Report"), nil)
	d.storage.On("Download", mock.Anything, "test-bucket", "inbox/2025-03/report.xlsx").Return(workbookBytes(t, "Cover"), nil)
	d.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.VerificationRun")).Return(nil)

	run, err := d.service().VerifyStored(context.Background(), service.VerifyStoredInput{
		DesignSpecKey: "inbox/design.xlsx",
		ReportKey:     "inbox/2025-03/report.xlsx",
	})
	require.NoError(t, err)

	assert.Equal(t, "design.xlsx", run.DesignSpecName)
	assert.Equal(t, "report.xlsx", run.ReportName)
	assert.Equal(t, "inbox/2025-03/report.xlsx", run.ReportKey)
	d.storage.AssertExpectations(t)
	d.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestVerifyStored_MissingObject(t *testing.T) {
	d := newDeps()
	d.storage.On("Download", mock.Anything, "test-bucket", "inbox/design.xlsx").Return(nil, domain.ErrNotFound)
	d.storage.On("Download", mock.Anything, "test-bucket", "inbox/report.xlsx").Return(workbookBytes(t, "Cover"), nil).Maybe()

	_, err := d.service().VerifyStored(context.Background(), service.VerifyStoredInput{
		DesignSpecKey: "inbox/design.xlsx",
		ReportKey:     "inbox/report.xlsx",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerifyStored_RejectsBadKeys(t *testing.T) {
	d := newDeps()
	svc := d.service()

	_, err := svc.VerifyStored(context.Background(), service.VerifyStoredInput{DesignSpecKey: "a.xlsx"})
	assert.True(t, errors.Is(err, domain.ErrMissingDocument))

	_, err = svc.VerifyStored(context.Background(), service.VerifyStoredInput{DesignSpecKey: "a.csv", ReportKey: "b.csv"})
	assert.True(t, errors.Is(err, domain.ErrUnsupportedFileType))
	d.storage.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_RemovesOnlyArchivedDocuments(t *testing.T) {
	d := newDeps()
	id := uuid.New()
	run := &domain.VerificationRun{
		ID:            id,
		DesignSpecKey: "verifications/" + id.String() + "/design_spec/design.xlsx",
		ReportKey:     "inbox/report.xlsx",
	}
	d.repo.On("GetByID", mock.Anything, id).Return(run, nil)
	d.storage.On("Delete", mock.Anything, "test-bucket", run.DesignSpecKey).Return(nil)
	d.repo.On("Delete", mock.Anything, id).Return(nil)

	require.NoError(t, d.service().Delete(context.Background(), id))

	d.storage.AssertExpectations(t)
	d.storage.AssertNotCalled(t, "Delete", mock.Anything, "test-bucket", "inbox/report.xlsx")
	d.repo.AssertExpectations(t)
}

func TestDelete_StorageFailureAfterRunRemoved(t *testing.T) {
	d := newDeps()
	id := uuid.New()
	prefix := "verifications/" + id.String()
	run := &domain.VerificationRun{
		ID:            id,
		DesignSpecKey: prefix + "/design_spec/d.xlsx",
		ReportKey:     prefix + "/report/r.xlsx",
	}
	d.repo.On("GetByID", mock.Anything, id).Return(run, nil)
	d.repo.On("Delete", mock.Anything, id).Return(nil)
	d.storage.On("Delete", mock.Anything, "test-bucket", run.DesignSpecKey).Return(errors.New("denied"))
	d.storage.On("Delete", mock.Anything, "test-bucket", run.ReportKey).Return(nil)

	require.NoError(t, d.service().Delete(context.Background(), id))
	d.repo.AssertExpectations(t)
	d.storage.AssertExpectations(t)
}

func TestDelete_RepositoryFailureKeepsDocuments(t *testing.T) {
	d := newDeps()
	id := uuid.New()
	key := "verifications/" + id.String() + "/report/r.xlsx"
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.VerificationRun{ID: id, ReportKey: key}, nil)
	d.repo.On("Delete", mock.Anything, id).Return(errors.New("db down"))

	assert.Error(t, d.service().Delete(context.Background(), id))
	d.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestSourceURL(t *testing.T) {
	d := newDeps()
	id := uuid.New()
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.VerificationRun{ID: id, ReportKey: "k/report.xlsx"}, nil)
	d.storage.On("GetPresignedURL", mock.Anything, "test-bucket", "k/report.xlsx", int64(600)).Return("https://signed", nil)
	svc := d.service()

	url, err := svc.SourceURL(context.Background(), id, domain.SourceReport)
	require.NoError(t, err)
	assert.Equal(t, "https://signed", url)

	_, err = svc.SourceURL(context.Background(), id, domain.SourceDesignSpec)
	assert.True(t, errors.Is(err, domain.ErrSourceNotArchived))

	_, err = svc.SourceURL(context.Background(), id, domain.SourceKind("summary"))
	assert.True(t, errors.Is(err, domain.ErrInvalidSourceKind))
}

func TestGetAndList_DelegateToRepository(t *testing.T) {
	d := newDeps()
	id := uuid.New()
	passed := false
	filter := domain.RunFilter{Passed: &passed, Offset: 0, Limit: 20}
	d.repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)
	d.repo.On("List", mock.Anything, filter).Return([]domain.VerificationRun{{ID: id}}, 1, nil)
	svc := d.service()

	_, err := svc.Get(context.Background(), id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	runs, total, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, runs, 1)
}
