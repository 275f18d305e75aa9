// Package database provides schema instantiation
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema on startup.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS alerts (id TEXT PRIMARY KEY, session_id TEXT NOT NULL, participant_id TEXT NOT NULL, alert_type TEXT NOT NULL, severity TEXT NOT NULL, message TEXT NOT NULL, snapshot_ref TEXT, acknowledged BOOLEAN NOT NULL DEFAULT 0, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS findings (id TEXT PRIMARY KEY, session_id TEXT NOT NULL, sample_kind TEXT NOT NULL, kind TEXT NOT NULL, face_count INTEGER, gaze_direction TEXT, peak_dbfs REAL, audio_label TEXT, snapshot_ref TEXT, observed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS session_log (session_id TEXT PRIMARY KEY, participant_id TEXT NOT NULL, status TEXT NOT NULL, end_reason TEXT, started_at TIMESTAMP NOT NULL, ended_at TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_alerts_session_id ON alerts(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_alert_type ON alerts(alert_type)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_findings_session_id ON findings(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_findings_observed_at ON findings(observed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_session_log_participant_id ON session_log(participant_id)`,
}
