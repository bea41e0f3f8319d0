package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/backupsui/internal/models"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory
const multipartMemory = 32 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// BackupServiceInterface defines the interface for backup tool operations
type BackupServiceInterface interface {
	List(ctx context.Context) ([]models.BackupFile, error)
	Create(ctx context.Context) error
	Restore(ctx context.Context, name string) error
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, data []byte) error
}

// ScheduleServiceInterface provides the schedule summary
type ScheduleServiceInterface interface {
	Info() models.ScheduleInfo
}

// BackupHandler handles the backup API
type BackupHandler struct {
	service        BackupServiceInterface
	schedule       ScheduleServiceInterface
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewBackupHandler creates a new BackupHandler
func NewBackupHandler(service BackupServiceInterface, schedule ScheduleServiceInterface, maxUploadBytes int64, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		service:        service,
		schedule:       schedule,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// FilenameRequest names one backup
type FilenameRequest struct {
	Filename string `json:"filename" validate:"required,backupname"`
}

// ListResponse is the body of GET /api/list
type ListResponse struct {
	Files []models.BackupFile `json:"files"`
}

// List returns the available backups. A tool failure yields an empty list.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list backups", slog.Any("error", err))
		files = []models.BackupFile{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListResponse{Files: files})
}

// Create triggers a new backup
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Create(r.Context()); err != nil {
		pkghttp.WriteInternalError(w, "Failed to create backup.")
		return
	}
	pkghttp.WriteMessage(w, "Backup generated successfully.")
}

// Restore restores the named backup
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFilename(w, r)
	if !ok {
		return
	}

	if err := h.service.Restore(r.Context(), req.Filename); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid filename")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to restore backup.")
		return
	}
	pkghttp.WriteMessage(w, "Backup restored successfully.")
}

// Download streams the named backup as a gzip attachment
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFilename(w, r)
	if !ok {
		return
	}

	data, err := h.service.Download(r.Context(), req.Filename)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid filename")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to download backup.")
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload accepts a .gz archive in the multipart field "file"
func (h *BackupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		pkghttp.WriteRequestTooLarge(w, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			pkghttp.WriteRequestTooLarge(w, "File too large")
			return
		}
		pkghttp.WriteBadRequest(w, "Missing file")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("file")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to upload backup.")
		return
	}

	if !bytes.HasPrefix(data, gzipMagic) {
		pkghttp.WriteBadRequest(w, "File is not a valid .gz archive")
		return
	}

	if err := h.service.Upload(r.Context(), data); err != nil {
		pkghttp.WriteInternalError(w, "Failed to upload backup.")
		return
	}
	pkghttp.WriteMessage(w, "Backup uploaded successfully.")
}

// Schedule returns the automatic backup schedule
func (h *BackupHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.schedule.Info())
}

// decodeFilename reads and validates a {filename} body, writing 400 on failure
func decodeFilename(w http.ResponseWriter, r *http.Request) (FilenameRequest, bool) {
	var req FilenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return req, false
	}
	if req.Filename == "" {
		pkghttp.WriteBadRequest(w, "Missing filename")
		return req, false
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid filename")
		return req, false
	}
	return req, true
}
