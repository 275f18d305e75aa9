package alerts

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/database"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

// SQLFindingRepository stores the per-sample audit trail. Writes are
// best-effort: a failed audit insert never blocks the alert pipeline.
type SQLFindingRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLFindingRepository creates a new instance of the repository.
func NewSQLFindingRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLFindingRepository {
	return &SQLFindingRepository{
		db:     db,
		logger: logger,
	}
}

// StoreFinding saves one classification result to the audit trail.
func (r *SQLFindingRepository) StoreFinding(finding *proctoring.Finding) error {
	findingID := security.GenerateULID()

	const query = `
		INSERT INTO findings (id, session_id, sample_kind, kind, face_count, gaze_direction, peak_dbfs, audio_label, snapshot_ref, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing finding insert",
		"findingId", findingID,
		"sessionId", finding.SessionID,
		"kind", finding.Kind,
		"sample", finding.Sample)

	var gaze, audioLabel, snapshotRef any
	if finding.Gaze != "" {
		gaze = string(finding.Gaze)
	}
	if len(finding.EventLabels) > 0 {
		audioLabel = strings.Join(finding.EventLabels, ",")
	}
	if finding.SnapshotRef != "" {
		snapshotRef = finding.SnapshotRef
	}

	var peakDBFS any
	if finding.Sample == proctoring.SampleAudio {
		peak := finding.PeakLevelDBFS
		// A non-finite peak cannot be represented in JSON once read back.
		if math.IsInf(peak, 0) || math.IsNaN(peak) || peak < proctoring.SilenceFloorDBFS {
			peak = proctoring.SilenceFloorDBFS
		}
		peakDBFS = peak
	}

	_, err := r.db.Exec(
		query,
		findingID,
		finding.SessionID,
		string(finding.Sample),
		string(finding.Kind),
		finding.FaceCount,
		gaze,
		peakDBFS,
		audioLabel,
		snapshotRef,
		finding.ObservedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.logger.Database().Error("Finding insert failed",
			"error", err.Error(),
			"findingId", findingID,
			"sessionId", finding.SessionID,
			"kind", finding.Kind)
		return fmt.Errorf("failed to store finding: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), finding.SessionID)
	return nil
}

// FindBySession retrieves the audit trail for one session in observation order.
func (r *SQLFindingRepository) FindBySession(sessionID string, limit int) ([]*proctoring.Finding, error) {
	query := `
		SELECT session_id, sample_kind, kind, face_count, gaze_direction, peak_dbfs, audio_label, snapshot_ref, observed_at
		FROM findings
		WHERE session_id = ?
		ORDER BY observed_at`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query findings", "error", err.Error(), "sessionId", sessionID)
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var results []*proctoring.Finding
	for rows.Next() {
		var finding proctoring.Finding
		var sampleKind, kind, observedAtStr string
		var faceCount sql.NullInt64
		var gaze, audioLabel, snapshotRef sql.NullString
		var peakDBFS sql.NullFloat64

		err := rows.Scan(
			&finding.SessionID,
			&sampleKind,
			&kind,
			&faceCount,
			&gaze,
			&peakDBFS,
			&audioLabel,
			&snapshotRef,
			&observedAtStr,
		)
		if err != nil {
			r.logger.Database().Error("Failed to scan finding row", "error", err.Error())
			continue
		}

		finding.ObservedAt, err = parseTimestamp(observedAtStr)
		if err != nil {
			r.logger.Database().Error("Failed to parse finding timestamp", "error", err.Error(), "timestamp", observedAtStr)
			continue
		}

		finding.Sample = proctoring.SampleKind(sampleKind)
		finding.Kind = proctoring.FindingKind(kind)
		if faceCount.Valid {
			finding.FaceCount = int(faceCount.Int64)
		}
		if gaze.Valid {
			finding.Gaze = proctoring.GazeDirection(gaze.String)
		}
		if peakDBFS.Valid {
			finding.PeakLevelDBFS = peakDBFS.Float64
		}
		if audioLabel.Valid && audioLabel.String != "" {
			finding.EventLabels = strings.Split(audioLabel.String, ",")
		}
		if snapshotRef.Valid {
			finding.SnapshotRef = snapshotRef.String
		}

		results = append(results, &finding)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for findings", "error", err.Error())
		return nil, err
	}

	r.logger.Database().Info("Findings loaded",
		"sessionId", sessionID,
		"count", len(results),
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), sessionID)
	return results, nil
}
