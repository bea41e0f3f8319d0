package models

// BackupFile is one archive reported by the backup tool
type BackupFile struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"sizeHuman"`
}

// ScheduleInfo describes the configured automatic backup schedule
type ScheduleInfo struct {
	Title     string  `json:"title"`
	Schedule  string  `json:"schedule"`
	Retention string  `json:"retention"`
	NextRun   *string `json:"nextRun,omitempty"`
}
