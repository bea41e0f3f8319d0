package services

import (
	"context"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
)

// MockCredentialVerifier implements CredentialVerifier for testing
type MockCredentialVerifier struct {
	VerifyCredentialsFunc func(ctx context.Context, username, password string) error
	Calls                 int
}

func (m *MockCredentialVerifier) VerifyCredentials(ctx context.Context, username, password string) error {
	m.Calls++
	if m.VerifyCredentialsFunc != nil {
		return m.VerifyCredentialsFunc(ctx, username, password)
	}
	return models.ErrInvalidCredentials
}

// MockMagicLinkCodec implements MagicLinkCodec for testing
type MockMagicLinkCodec struct {
	EncodeFunc func(username, password string) (string, error)
	DecodeFunc func(token string) (*models.MagicLinkPayload, error)
}

func (m *MockMagicLinkCodec) Encode(username, password string) (string, error) {
	if m.EncodeFunc != nil {
		return m.EncodeFunc(username, password)
	}
	return "", models.ErrInternalServer
}

func (m *MockMagicLinkCodec) Decode(token string) (*models.MagicLinkPayload, error) {
	if m.DecodeFunc != nil {
		return m.DecodeFunc(token)
	}
	return nil, models.ErrInvalidToken
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueFunc func(username string) (string, time.Time, error)
}

func (m *MockSessionIssuer) Issue(username string) (string, time.Time, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(username)
	}
	return "session-" + username, time.Now().Add(time.Hour), nil
}

// MockCredentialConfig implements CredentialConfig for testing
type MockCredentialConfig struct {
	ValidateFunc func() error
}

func (m *MockCredentialConfig) Validate() error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc()
	}
	return nil
}
