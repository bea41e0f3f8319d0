package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleService_Info(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := NewScheduleService("Database Backups", " 0 2 * * * ", "7", logger)
	s.now = func() time.Time { return time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC) }

	info := s.Info()
	assert.Equal(t, "Database Backups", info.Title)
	assert.Equal(t, "0 2 * * *", info.Schedule)
	assert.Equal(t, "7", info.Retention)
	require.NotNil(t, info.NextRun)
	assert.Equal(t, "2025-07-09T02:00:00Z", *info.NextRun)
}

func TestScheduleService_InvalidExpression(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := NewScheduleService("Backups", "every night", "7", logger)

	info := s.Info()
	assert.Equal(t, "every night", info.Schedule)
	assert.Nil(t, info.NextRun)
}
