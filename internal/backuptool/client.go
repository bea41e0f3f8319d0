package backuptool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/google/uuid"
)

const (
	// UploadPrefix and DownloadPrefix name the temp files handed to the tool
	UploadPrefix   = "upload_"
	DownloadPrefix = "download_"
)

// listLine matches one entry of `backup list`:
// 2025-07-08 12:00:01    1205302 backup-2025-07-08_12-00-00.sql.gz
var listLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s+(\d+)\s+(backup-\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.sql\.gz)$`)

var backupName = regexp.MustCompile(`^backup-\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.sql\.gz$`)

// ValidName reports whether name is a backup file name the tool produces.
// Anything else is refused before it reaches the tool's argument list.
func ValidName(name string) bool {
	return backupName.MatchString(name)
}

// DefaultVerifyTimeout bounds check-login when Config.VerifyTimeout is unset
const DefaultVerifyTimeout = 15 * time.Second

// Config holds the tool location and limits. VerifyTimeout applies to
// check-login only; logins are serialised, so it must stay short.
type Config struct {
	Binary        string
	TempDir       string
	Timeout       time.Duration
	VerifyTimeout time.Duration
}

// Client is the process facade over the external backup tool
type Client struct {
	config Config
	runner Runner
	logger *slog.Logger
}

// NewClient creates a new Client. A nil runner means ExecRunner.
func NewClient(config Config, runner Runner, logger *slog.Logger) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	if config.Binary == "" {
		config.Binary = "backup"
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.VerifyTimeout <= 0 {
		config.VerifyTimeout = DefaultVerifyTimeout
	}
	return &Client{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// TempDir returns the directory used for upload/download transfer files
func (c *Client) TempDir() string {
	return c.config.TempDir
}

// run executes a tool subcommand under the configured command timeout
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	return c.runWithin(ctx, c.config.Timeout, args...)
}

func (c *Client) runWithin(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := c.runner.Run(ctx, c.config.Binary, args...)
	c.logger.Debug("backup tool executed",
		slog.String("command", args[0]),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil))
	return output, err
}

// VerifyCredentials asks the tool whether username/password can log in to
// the database. Any failure, including a failure to start the tool, is
// reported as models.ErrInvalidCredentials; the tool output is only logged.
// Credentials are bound with '=' so a leading '-' cannot become a flag.
func (c *Client) VerifyCredentials(ctx context.Context, username, password string) error {
	output, err := c.runWithin(ctx, c.config.VerifyTimeout, "check-login", "--user="+username, "--password="+password)
	if err != nil {
		c.logger.Warn("credential check rejected",
			slog.Any("error", err),
			slog.String("output", strings.TrimSpace(string(output))))
		return models.ErrInvalidCredentials
	}
	return nil
}

// List returns the backups reported by the tool, in tool order.
// Lines that are not backup entries are skipped.
func (c *Client) List(ctx context.Context) ([]models.BackupFile, error) {
	output, err := c.run(ctx, "list")
	if err != nil {
		return nil, c.failure("list", output, err)
	}
	return ParseList(string(output)), nil
}

// ParseList extracts backup entries from `backup list` output
func ParseList(output string) []models.BackupFile {
	files := []models.BackupFile{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		match := listLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if match == nil {
			continue
		}
		size, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			continue
		}
		files = append(files, models.BackupFile{
			Name:      match[3],
			Date:      match[1],
			Size:      size,
			SizeHuman: HumanFileSize(size),
		})
	}
	return files
}

// Create triggers a new backup
func (c *Client) Create(ctx context.Context) error {
	output, err := c.run(ctx, "backup")
	if err != nil {
		return c.failure("backup", output, err)
	}
	return nil
}

// Restore restores the named backup into the database
func (c *Client) Restore(ctx context.Context, name string) error {
	if !ValidName(name) {
		return models.ErrBadRequest
	}
	output, err := c.run(ctx, "restore", name)
	if err != nil {
		return c.failure("restore", output, err)
	}
	return nil
}

// Download fetches the named backup into a temp file and returns its bytes
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, models.ErrBadRequest
	}
	tempPath := c.tempPath(DownloadPrefix)
	defer c.removeTemp(tempPath)

	output, err := c.run(ctx, "download", name, tempPath)
	if err != nil {
		return nil, c.failure("download", output, err)
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		c.logger.Error("failed to read downloaded backup", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read downloaded backup: %w", models.ErrBackupFailed)
	}
	return data, nil
}

// Upload writes data to a temp file and hands it to the tool
func (c *Client) Upload(ctx context.Context, data []byte) error {
	tempPath := c.tempPath(UploadPrefix)
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		c.logger.Error("failed to write upload temp file", slog.Any("error", err))
		return fmt.Errorf("failed to stage upload: %w", models.ErrBackupFailed)
	}
	defer c.removeTemp(tempPath)

	output, err := c.run(ctx, "upload", tempPath)
	if err != nil {
		return c.failure("upload", output, err)
	}
	return nil
}

func (c *Client) tempPath(prefix string) string {
	return filepath.Join(c.config.TempDir, prefix+uuid.New().String())
}

func (c *Client) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("failed to remove temp file", slog.String("path", path), slog.Any("error", err))
	}
}

// failure logs the tool output and returns a client-safe error
func (c *Client) failure(command string, output []byte, err error) error {
	c.logger.Error("backup command failed",
		slog.String("command", command),
		slog.Any("error", err),
		slog.String("output", strings.TrimSpace(string(output))))
	return fmt.Errorf("%s: %w", command, models.ErrBackupFailed)
}
