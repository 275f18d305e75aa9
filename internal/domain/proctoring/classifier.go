package proctoring

import "fmt"

// Thresholds carries the tunable cutoffs the classifier applies. Values come
// from configuration, never from constants in this package.
type Thresholds struct {
	// LoudnessDBFS is the peak level above which a loud_noise finding
	// raises an alert. dBFS values are <= 0, so e.g. -10.0 means "within
	// 10 dB of full scale".
	LoudnessDBFS float64
}

// Classify maps one finding (plus the session's previous status text) to at
// most one alert intent. First match wins, in priority order: missing face
// and extra faces dominate gaze, visual findings dominate audio, and a
// normal sample never alerts. The previous status is carried for parity
// with the registry's update path; current rules are stateless across
// samples: every anomalous sample alerts, with no debounce window.
func Classify(f *Finding, previousStatus string, t Thresholds) *AlertIntent {
	_ = previousStatus

	switch f.Kind {
	case FindingNoFace:
		return &AlertIntent{
			AlertType:   AlertNoFace,
			Severity:    SeverityHigh,
			Message:     "No face detected in submitted frame",
			SnapshotRef: f.SnapshotRef,
		}
	case FindingMultipleFaces:
		// Gaze is still computed on an arbitrary face for the status text,
		// but it must never raise a second looking_away alert here.
		return &AlertIntent{
			AlertType:   AlertMultipleFaces,
			Severity:    SeverityHigh,
			Message:     "Multiple faces detected in submitted frame",
			SnapshotRef: f.SnapshotRef,
		}
	case FindingGaze:
		if f.Gaze != GazeForward {
			return &AlertIntent{
				AlertType:   AlertLookingAway,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("Participant looking away (%s)", f.Gaze),
				SnapshotRef: f.SnapshotRef,
			}
		}
	case FindingLoudNoise:
		if f.PeakLevelDBFS > t.LoudnessDBFS {
			return &AlertIntent{
				AlertType: AlertLoudNoise,
				Severity:  SeverityMedium,
				Message:   fmt.Sprintf("Loud noise detected (peak %.1f dBFS)", f.PeakLevelDBFS),
			}
		}
	}

	return nil
}
