// Package alerts provides the concrete SQL-based implementations for
// alert and finding persistence.
//
// Alerts are the durable log the dashboard queries; findings are
// per-sample audit rows kept for post-exam review.
package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/database"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// AlertFilter narrows an alert log query. Zero values mean no filtering
// on that dimension.
type AlertFilter struct {
	SessionID     string
	ParticipantID string
	AlertType     string
	Since         time.Time
	Limit         int
}

// SQLAlertRepository handles durable alert persistence.
type SQLAlertRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLAlertRepository creates a new instance of the repository.
func NewSQLAlertRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLAlertRepository {
	return &SQLAlertRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one alert. The registry calls this before it mutates any
// session state, so a failed insert leaves no trace of the alert anywhere.
func (r *SQLAlertRepository) Append(ctx context.Context, alert *proctoring.Alert) error {
	const query = `
		INSERT INTO alerts (id, session_id, participant_id, alert_type, severity, message, snapshot_ref, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing alert insert",
		"alertId", alert.AlertID,
		"sessionId", alert.SessionID,
		"alertType", alert.AlertType,
		"severity", alert.Severity)

	var snapshotRef any
	if alert.SnapshotRef != "" {
		snapshotRef = alert.SnapshotRef
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		alert.AlertID,
		alert.SessionID,
		alert.ParticipantID,
		string(alert.AlertType),
		string(alert.Severity),
		alert.Message,
		snapshotRef,
		alert.Acknowledged,
		alert.TriggeredAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.logger.Database().Error("Alert insert failed",
			"error", err.Error(),
			"alertId", alert.AlertID,
			"sessionId", alert.SessionID,
			"alertType", alert.AlertType)
		return fmt.Errorf("failed to store alert: %w", err)
	}

	r.logger.Alert().Info("Alert persisted",
		"alertId", alert.AlertID,
		"sessionId", alert.SessionID,
		"alertType", alert.AlertType,
		"severity", alert.Severity,
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), alert.SessionID)
	return nil
}

// List retrieves alerts matching the filter, newest first.
func (r *SQLAlertRepository) List(filter AlertFilter) ([]*proctoring.Alert, error) {
	query := `
		SELECT id, session_id, participant_id, alert_type, severity, message, snapshot_ref, acknowledged, created_at
		FROM alerts
		WHERE 1=1`
	args := make([]any, 0, 5)

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.ParticipantID != "" {
		query += " AND participant_id = ?"
		args = append(args, filter.ParticipantID)
	}
	if filter.AlertType != "" {
		query += " AND alert_type = ?"
		args = append(args, filter.AlertType)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC().Format(sqliteTimeFormat))
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	start := time.Now()
	r.logger.Database().Debug("Loading alerts",
		"sessionId", filter.SessionID,
		"alertType", filter.AlertType,
		"limit", filter.Limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query alerts", "error", err.Error(), "sessionId", filter.SessionID)
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var results []*proctoring.Alert
	for rows.Next() {
		var alert proctoring.Alert
		var alertType, severity, createdAtStr string
		var snapshotRef sql.NullString

		err := rows.Scan(
			&alert.AlertID,
			&alert.SessionID,
			&alert.ParticipantID,
			&alertType,
			&severity,
			&alert.Message,
			&snapshotRef,
			&alert.Acknowledged,
			&createdAtStr,
		)
		if err != nil {
			r.logger.Database().Error("Failed to scan alert row", "error", err.Error())
			continue
		}

		alert.TriggeredAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			r.logger.Database().Error("Failed to parse alert timestamp", "error", err.Error(), "timestamp", createdAtStr)
			continue
		}

		alert.AlertType = proctoring.AlertType(alertType)
		alert.Severity = proctoring.Severity(severity)
		if snapshotRef.Valid {
			alert.SnapshotRef = snapshotRef.String
		}

		results = append(results, &alert)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for alerts", "error", err.Error())
		return nil, err
	}

	r.logger.Database().Info("Alerts loaded",
		"sessionId", filter.SessionID,
		"count", len(results),
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), filter.SessionID)
	return results, nil
}

// Acknowledge marks one alert as reviewed. Returns sql.ErrNoRows when the
// alert does not exist.
func (r *SQLAlertRepository) Acknowledge(alertID string) error {
	const query = `UPDATE alerts SET acknowledged = 1 WHERE id = ?`

	start := time.Now()
	result, err := r.db.Exec(query, alertID)
	if err != nil {
		r.logger.Database().Error("Alert acknowledge failed", "error", err.Error(), "alertId", alertID)
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read acknowledge result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	r.logger.Alert().Info("Alert acknowledged", "alertId", alertID, "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), "system")
	return nil
}

// CountBySession returns the total number of persisted alerts for a session.
func (r *SQLAlertRepository) CountBySession(sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM alerts WHERE session_id = ?`

	start := time.Now()
	var count int
	if err := r.db.QueryRow(query, sessionID).Scan(&count); err != nil {
		r.logger.Database().Error("Failed to count alerts", "error", err.Error(), "sessionId", sessionID)
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), sessionID)
	return count, nil
}

// parseTimestamp handles multiple timestamp formats
func parseTimestamp(timestampStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, timestampStr); err == nil {
		return t, nil
	}

	if t, err := time.Parse(sqliteTimeFormat, timestampStr); err == nil {
		return t, nil
	}

	if t, err := time.Parse("2006-01-02T15:04:05.000Z", timestampStr); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp format: %s", timestampStr)
}
