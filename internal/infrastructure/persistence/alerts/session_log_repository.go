package alerts

import (
	"fmt"
	"time"

	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/database"
)

// SQLSessionLogRepository records session lifecycle transitions for the
// post-exam record. Rows are keyed by session id; a restarted session with
// a fresh id gets a fresh row.
type SQLSessionLogRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLSessionLogRepository creates a new instance of the repository.
func NewSQLSessionLogRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLSessionLogRepository {
	return &SQLSessionLogRepository{
		db:     db,
		logger: logger,
	}
}

// RecordStart upserts the session row as active. The upsert keeps replayed
// start events idempotent.
func (r *SQLSessionLogRepository) RecordStart(sessionID, participantID string, startedAt time.Time) error {
	const query = `
		INSERT INTO session_log (session_id, participant_id, status, started_at)
		VALUES (?, ?, 'ACTIVE', ?)
		ON CONFLICT(session_id) DO NOTHING`

	start := time.Now()
	_, err := r.db.Exec(query, sessionID, participantID, startedAt.UTC().Format(sqliteTimeFormat))
	if err != nil {
		r.logger.Database().Error("Session start insert failed",
			"error", err.Error(), "sessionId", sessionID, "participantId", participantID)
		return fmt.Errorf("failed to record session start: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), sessionID)
	return nil
}

// RecordEnd closes out the session row with its terminal status and reason.
func (r *SQLSessionLogRepository) RecordEnd(sessionID, status, endReason string, endedAt time.Time) error {
	const query = `
		UPDATE session_log SET status = ?, end_reason = ?, ended_at = ?
		WHERE session_id = ?`

	start := time.Now()
	_, err := r.db.Exec(query, status, endReason, endedAt.UTC().Format(sqliteTimeFormat), sessionID)
	if err != nil {
		r.logger.Database().Error("Session end update failed",
			"error", err.Error(), "sessionId", sessionID, "status", status)
		return fmt.Errorf("failed to record session end: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), sessionID)
	return nil
}
