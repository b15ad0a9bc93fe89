package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the timetable service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	SQLiteBusyTimeout time.Duration
	LogLevel          string
	RecheckOnUpdate   bool
	MaxBatchSize      int
	AdminRole         string
}

// Load parses configuration values from the process environment after merging
// an optional dotenv file. The file path comes from TIMETABLE_ENV_FILE and
// defaults to ".env"; a missing file is not an error. Variables already set in
// the environment take precedence over the file.
//
// Defaults apply to unset variables. Every malformed value is reported in a
// single error.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("TIMETABLE_ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:timetable.db",
		SQLiteBusyTimeout: 5 * time.Second,
		LogLevel:          "info",
		MaxBatchSize:      500,
		AdminRole:         "admin",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("TIMETABLE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TIMETABLE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("TIMETABLE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("TIMETABLE_SQLITE_BUSY_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, "TIMETABLE_SQLITE_BUSY_TIMEOUT")
		} else {
			cfg.SQLiteBusyTimeout = timeout
		}
	}

	if level := strings.ToLower(strings.TrimSpace(os.Getenv("TIMETABLE_LOG_LEVEL"))); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "TIMETABLE_LOG_LEVEL")
		}
	}

	if recheckValue := strings.TrimSpace(os.Getenv("TIMETABLE_RECHECK_ON_UPDATE")); recheckValue != "" {
		recheck, err := strconv.ParseBool(recheckValue)
		if err != nil {
			invalid = append(invalid, "TIMETABLE_RECHECK_ON_UPDATE")
		} else {
			cfg.RecheckOnUpdate = recheck
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("TIMETABLE_MAX_BATCH_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size < 0 {
			invalid = append(invalid, "TIMETABLE_MAX_BATCH_SIZE")
		} else {
			cfg.MaxBatchSize = size
		}
	}

	if role := strings.TrimSpace(os.Getenv("TIMETABLE_ADMIN_ROLE")); role != "" {
		cfg.AdminRole = role
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
