package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/BradenHooton/backupsui/internal/services"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds an authenticated username to the request context
func WithSessionContext(req *http.Request, username string) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UsernameContextKey, username)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error message mismatch")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginWithPasswordFunc  func(ctx context.Context, username, password, clientIP string) (*services.LoginResult, error)
	LoginWithMagicLinkFunc func(ctx context.Context, token, clientIP string) (*services.LoginResult, error)
	GenerateMagicLinkFunc  func(ctx context.Context, username, password, baseURL string) (*services.MagicLinkResult, error)
}

func (m *MockAuthService) LoginWithPassword(ctx context.Context, username, password, clientIP string) (*services.LoginResult, error) {
	if m.LoginWithPasswordFunc != nil {
		return m.LoginWithPasswordFunc(ctx, username, password, clientIP)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) LoginWithMagicLink(ctx context.Context, token, clientIP string) (*services.LoginResult, error) {
	if m.LoginWithMagicLinkFunc != nil {
		return m.LoginWithMagicLinkFunc(ctx, token, clientIP)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockAuthService) GenerateMagicLink(ctx context.Context, username, password, baseURL string) (*services.MagicLinkResult, error) {
	if m.GenerateMagicLinkFunc != nil {
		return m.GenerateMagicLinkFunc(ctx, username, password, baseURL)
	}
	return nil, models.ErrInternalServer
}

// MockBackupService implements BackupServiceInterface for testing
type MockBackupService struct {
	ListFunc     func(ctx context.Context) ([]models.BackupFile, error)
	CreateFunc   func(ctx context.Context) error
	RestoreFunc  func(ctx context.Context, name string) error
	DownloadFunc func(ctx context.Context, name string) ([]byte, error)
	UploadFunc   func(ctx context.Context, data []byte) error
}

func (m *MockBackupService) List(ctx context.Context) ([]models.BackupFile, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []models.BackupFile{}, nil
}

func (m *MockBackupService) Create(ctx context.Context) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx)
	}
	return nil
}

func (m *MockBackupService) Restore(ctx context.Context, name string) error {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, name)
	}
	return nil
}

func (m *MockBackupService) Download(ctx context.Context, name string) ([]byte, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, name)
	}
	return nil, models.ErrBackupFailed
}

func (m *MockBackupService) Upload(ctx context.Context, data []byte) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, data)
	}
	return nil
}

// MockScheduleService implements ScheduleServiceInterface for testing
type MockScheduleService struct {
	InfoFunc func() models.ScheduleInfo
}

func (m *MockScheduleService) Info() models.ScheduleInfo {
	if m.InfoFunc != nil {
		return m.InfoFunc()
	}
	return models.ScheduleInfo{Title: "Database Backups", Schedule: "0 2 * * *", Retention: "7"}
}
