package services

import (
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/robfig/cron/v3"
)

// ScheduleService describes the automatic backup schedule shown on the panel.
// The schedule itself is run by the backup tool's own cron; this only reads it.
type ScheduleService struct {
	title     string
	schedule  string
	retention string
	parsed    cron.Schedule
	now       func() time.Time
}

// NewScheduleService parses expr once. An unparseable expression is logged
// and the schedule is still displayed, just without a next run.
func NewScheduleService(title, expr, retention string, logger *slog.Logger) *ScheduleService {
	s := &ScheduleService{
		title:     title,
		schedule:  strings.TrimSpace(expr),
		retention: retention,
		now:       time.Now,
	}

	parsed, err := parseCronSchedule(s.schedule)
	if err != nil {
		logger.Warn("backup schedule is not a valid cron expression",
			slog.String("schedule", s.schedule),
			slog.Any("error", err))
	} else {
		s.parsed = parsed
	}
	return s
}

// Info returns the schedule summary and the next run time, if known
func (s *ScheduleService) Info() models.ScheduleInfo {
	info := models.ScheduleInfo{
		Title:     s.title,
		Schedule:  s.schedule,
		Retention: s.retention,
	}
	if s.parsed != nil {
		next := s.parsed.Next(s.now()).Format(time.RFC3339)
		info.NextRun = &next
	}
	return info
}

// parseCronSchedule accepts the standard 5-field format
func parseCronSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}
