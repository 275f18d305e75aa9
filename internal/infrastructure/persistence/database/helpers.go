// Package database provides database helper functions
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/pkg/config"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Open resolves the configured driver to a connection. The sqlite3 driver
// uses the local file path; the libsql driver connects to a remote URL.
func Open(logger *logging.ChanneledLogger) (*DB, error) {
	switch config.DBDriver {
	case "libsql":
		if config.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required for the libsql driver")
		}
		if err := TestConnection(config.DBURL, logger); err != nil {
			return nil, err
		}
		return NewConnectionWithLogger("libsql", config.DBURL, logger)
	case "sqlite3":
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", config.DBPath)
		return NewConnectionWithLogger("sqlite3", dsn, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.DBDriver)
	}
}

// TestConnection verifies a remote libsql database is reachable.
func TestConnection(databaseURL string, logger *logging.ChanneledLogger) error {
	start := time.Now()
	logger.Database().Debug("Testing database connection", "databaseURL", databaseURL)

	db, err := sql.Open("libsql", databaseURL)
	if err != nil {
		logger.Database().Error("Failed to open connection", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	err = db.QueryRow("SELECT 1").Scan(&result)
	if err != nil {
		logger.Database().Error("Connection test query failed", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("connection test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	logger.Database().Info("Connection test successful", "databaseURL", databaseURL, "duration", time.Since(start))
	return nil
}

// CheckAndLogSlowQuery checks if a query duration exceeds the configured
// threshold and logs it on the slow query channel if it does.
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, sessionID string) {
	if duration > config.SlowQueryThreshold {
		logger.LogSlowQuery(query, duration, sessionID)
	}
}
