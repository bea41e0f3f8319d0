package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential verifier backends selectable with AUTH_VERIFIER
const (
	VerifierBackupTool = "backup-tool"
	VerifierPostgres   = "postgres"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Backup   BackupConfig
}

// DatabaseConfig holds the connection parameters of the database being backed up.
// The backup tool reads them itself; the panel only needs Password (magic-link
// key material) and a completeness check before delegating logins.
type DatabaseConfig struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	PublicBaseURL  string
	CookieSecure   bool
	TrustedProxies []string
}

type AuthConfig struct {
	SessionSecret           string
	Verifier                string
	LoginRateLimitPerMinute int
	FailureDelayMs          int
	FailureJitterMs         int
	VerifyTimeout           time.Duration
}

type BackupConfig struct {
	Binary          string
	TempDir         string
	CommandTimeout  time.Duration
	Title           string
	Schedule        string
	Retention       string
	CleanupInterval time.Duration
	TempMaxAge      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SERVICE_USER_ADMIN", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SERVICE_USER_ADMIN is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFile:        getEnv("LOG_FILE", ""),
			LogMaxSizeMB:   getEnvAsInt("LOG_MAX_SIZE_MB", 10),
			LogMaxBackups:  getEnvAsInt("LOG_MAX_BACKUPS", 3),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 100<<20)),
			PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
			CookieSecure:   getEnvAsBool("COOKIE_SECURE", true),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			SessionSecret:           sessionSecret,
			Verifier:                strings.ToLower(getEnv("AUTH_VERIFIER", VerifierBackupTool)),
			LoginRateLimitPerMinute: getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 20),
			FailureDelayMs:          getEnvAsInt("AUTH_FAILURE_DELAY_MS", 250),
			FailureJitterMs:         getEnvAsInt("AUTH_FAILURE_JITTER_MS", 250),
			VerifyTimeout:           getEnvAsDuration("AUTH_VERIFY_TIMEOUT", 15*time.Second),
		},
		Backup: BackupConfig{
			Binary:          getEnv("BACKUP_BIN", "backup"),
			TempDir:         getEnv("BACKUP_TEMP_DIR", os.TempDir()),
			CommandTimeout:  getEnvAsDuration("BACKUP_COMMAND_TIMEOUT", 30*time.Minute),
			Title:           getEnv("BACKUPS_UI_TITLE", "Database Backups"),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 2 * * *"),
			Retention:       getEnv("BACKUP_RETENTION", "7"),
			CleanupInterval: getEnvAsDuration("TEMP_CLEANUP_INTERVAL", 10*time.Minute),
			TempMaxAge:      getEnvAsDuration("TEMP_MAX_AGE", 1*time.Hour),
		},
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	switch cfg.Auth.Verifier {
	case VerifierBackupTool, VerifierPostgres:
	default:
		return nil, fmt.Errorf("AUTH_VERIFIER must be %q or %q (got %q)",
			VerifierBackupTool, VerifierPostgres, cfg.Auth.Verifier)
	}

	return cfg, nil
}

// LoadDatabase reads only the database section. Offline tools use it
// because they do not need the session secret.
func LoadDatabase() DatabaseConfig {
	_ = godotenv.Load()
	return loadDatabaseConfig()
}

// loadDatabaseConfig resolves <DB_TYPE>_HOST, <DB_TYPE>_PORT, ... for the active type.
// Missing values are left empty and reported by Validate at request time.
func loadDatabaseConfig() DatabaseConfig {
	dbType := strings.ToUpper(strings.TrimSpace(getEnv("DB_TYPE", "")))
	if dbType == "" {
		return DatabaseConfig{}
	}
	return DatabaseConfig{
		Type:     dbType,
		Host:     getEnv(dbType+"_HOST", ""),
		Port:     getEnv(dbType+"_PORT", ""),
		Name:     getEnv(dbType+"_DATABASE", ""),
		User:     getEnv(dbType+"_USER", ""),
		Password: getEnv(dbType+"_PASSWORD", ""),
		SSLMode:  getEnv(dbType+"_SSLMODE", "prefer"),
	}
}

// Validate reports the first missing database variable.
// The returned message names the variable and is meant for logs only.
func (c *DatabaseConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("DB_TYPE is not set")
	}
	fields := []struct {
		suffix string
		value  string
	}{
		{"HOST", c.Host},
		{"PORT", c.Port},
		{"DATABASE", c.Name},
		{"USER", c.User},
		{"PASSWORD", c.Password},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s_%s is not set", c.Type, f.suffix)
		}
	}
	return nil
}

// validateSessionSecret enforces minimum security standards for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SERVICE_USER_ADMIN must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SERVICE_USER_ADMIN cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
