package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/backupsui/internal/handlers"
	"github.com/BradenHooton/backupsui/internal/models"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBackupName = "backup-2025-07-08_12-00-00.sql.gz"

func newBackupHandler(svc handlers.BackupServiceInterface, maxUpload int64) *handlers.BackupHandler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return handlers.NewBackupHandler(svc, &handlers.MockScheduleService{}, maxUpload, logger)
}

func multipartUpload(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.sql.gz")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestList_ReturnsFiles(t *testing.T) {
	svc := &handlers.MockBackupService{
		ListFunc: func(ctx context.Context) ([]models.BackupFile, error) {
			return []models.BackupFile{{Name: testBackupName, Date: "2025-07-08 12:00:01", Size: 1205302, SizeHuman: "1.1 MB"}}, nil
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest(http.MethodGet, "/api/list", nil))

	var resp handlers.ListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, testBackupName, resp.Files[0].Name)
	assert.Equal(t, "1.1 MB", resp.Files[0].SizeHuman)
}

func TestList_ToolFailureIsEmptyList(t *testing.T) {
	svc := &handlers.MockBackupService{
		ListFunc: func(ctx context.Context) ([]models.BackupFile, error) {
			return nil, models.ErrBackupFailed
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest(http.MethodGet, "/api/list", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files":[]}`, w.Body.String())
}

func TestCreate(t *testing.T) {
	handler := newBackupHandler(&handlers.MockBackupService{}, 1<<20)
	w := httptest.NewRecorder()
	handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/backup", nil))

	var resp pkghttp.MessageResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Backup generated successfully.", resp.Message)

	failing := newBackupHandler(&handlers.MockBackupService{
		CreateFunc: func(ctx context.Context) error { return models.ErrBackupFailed },
	}, 1<<20)
	w = httptest.NewRecorder()
	failing.Create(w, httptest.NewRequest(http.MethodPost, "/api/backup", nil))
	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "Failed to create backup.")
}

func TestRestore(t *testing.T) {
	var restored string
	svc := &handlers.MockBackupService{
		RestoreFunc: func(ctx context.Context, name string) error {
			restored = name
			return nil
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/restore", handlers.FilenameRequest{Filename: testBackupName})
	w := httptest.NewRecorder()
	handler.Restore(w, req)

	var resp pkghttp.MessageResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Backup restored successfully.", resp.Message)
	assert.Equal(t, testBackupName, restored)
}

func TestRestore_ValidatesFilename(t *testing.T) {
	called := false
	svc := &handlers.MockBackupService{
		RestoreFunc: func(ctx context.Context, name string) error {
			called = true
			return nil
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	tests := []struct {
		filename string
		want     string
	}{
		{"", "Missing filename"},
		{"--drop-database", "Invalid filename"},
		{"../../etc/passwd", "Invalid filename"},
		{"backup-latest.sql.gz", "Invalid filename"},
	}
	for _, tt := range tests {
		req := handlers.NewTestRequest(t, http.MethodPost, "/api/restore", handlers.FilenameRequest{Filename: tt.filename})
		w := httptest.NewRecorder()
		handler.Restore(w, req)
		handlers.AssertErrorResponse(t, w, http.StatusBadRequest, tt.want)
	}
	assert.False(t, called)
}

func TestRestore_ToolFailure(t *testing.T) {
	svc := &handlers.MockBackupService{
		RestoreFunc: func(ctx context.Context, name string) error { return models.ErrBackupFailed },
	}
	handler := newBackupHandler(svc, 1<<20)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/restore", handlers.FilenameRequest{Filename: testBackupName})
	w := httptest.NewRecorder()
	handler.Restore(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "Failed to restore backup.")
}

func TestDownload(t *testing.T) {
	payload := []byte{0x1f, 0x8b, 0x08, 0x00, 0x00}
	svc := &handlers.MockBackupService{
		DownloadFunc: func(ctx context.Context, name string) ([]byte, error) { return payload, nil },
	}
	handler := newBackupHandler(svc, 1<<20)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/download", handlers.FilenameRequest{Filename: testBackupName})
	w := httptest.NewRecorder()
	handler.Download(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+testBackupName+`"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestDownload_ToolFailure(t *testing.T) {
	handler := newBackupHandler(&handlers.MockBackupService{}, 1<<20)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/download", handlers.FilenameRequest{Filename: testBackupName})
	w := httptest.NewRecorder()
	handler.Download(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "Failed to download backup.")
}

func TestUpload(t *testing.T) {
	archive := []byte{0x1f, 0x8b, 0x08, 0x00, 0x01, 0x02}
	var uploaded []byte
	svc := &handlers.MockBackupService{
		UploadFunc: func(ctx context.Context, data []byte) error {
			uploaded = data
			return nil
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "file", archive))

	var resp pkghttp.MessageResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Backup uploaded successfully.", resp.Message)
	assert.Equal(t, archive, uploaded)
}

func TestUpload_RejectsNonGzip(t *testing.T) {
	called := false
	svc := &handlers.MockBackupService{
		UploadFunc: func(ctx context.Context, data []byte) error {
			called = true
			return nil
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	for _, content := range [][]byte{[]byte("SELECT 1;"), {0x1f}, {}} {
		w := httptest.NewRecorder()
		handler.Upload(w, multipartUpload(t, "file", content))
		handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "File is not a valid .gz archive")
	}
	assert.False(t, called)
}

func TestUpload_MissingFile(t *testing.T) {
	handler := newBackupHandler(&handlers.MockBackupService{}, 1<<20)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "other", []byte{0x1f, 0x8b}))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "Missing file")

	w = httptest.NewRecorder()
	handler.Upload(w, httptest.NewRequest(http.MethodPost, "/api/upload", nil))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "Missing file")
}

func TestUpload_TooLarge(t *testing.T) {
	handler := newBackupHandler(&handlers.MockBackupService{}, 64)

	content := append([]byte{0x1f, 0x8b}, bytes.Repeat([]byte{0}, 1024)...)
	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "file", content))

	handlers.AssertErrorResponse(t, w, http.StatusRequestEntityTooLarge, "File too large")
}

func TestUpload_ToolFailureHidesOutput(t *testing.T) {
	svc := &handlers.MockBackupService{
		UploadFunc: func(ctx context.Context, data []byte) error {
			return errors.New("s3: access denied for key AKIA...")
		},
	}
	handler := newBackupHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "file", []byte{0x1f, 0x8b}))

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "Failed to upload backup.")
}

func TestSchedule(t *testing.T) {
	next := "2025-07-09T02:00:00Z"
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := handlers.NewBackupHandler(&handlers.MockBackupService{}, &handlers.MockScheduleService{
		InfoFunc: func() models.ScheduleInfo {
			return models.ScheduleInfo{Title: "Backups", Schedule: "0 2 * * *", Retention: "7", NextRun: &next}
		},
	}, 1<<20, logger)

	w := httptest.NewRecorder()
	handler.Schedule(w, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title":"Backups","schedule":"0 2 * * *","retention":"7","nextRun":"2025-07-09T02:00:00Z"}`, w.Body.String())
}
