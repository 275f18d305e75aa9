package proctoring

import (
	"fmt"
	"strings"
	"time"
)

// FindingKind identifies what a single classification pass observed.
type FindingKind string

const (
	FindingNoFace        FindingKind = "no_face"
	FindingMultipleFaces FindingKind = "multiple_faces"
	FindingGaze          FindingKind = "gaze"
	FindingLoudNoise     FindingKind = "loud_noise"
	FindingAudioEvent    FindingKind = "audio_event"
	FindingNormal        FindingKind = "normal"
)

// GazeDirection is the classified gaze for a single-face sample.
type GazeDirection string

const (
	GazeForward GazeDirection = "forward"
	GazeLeft    GazeDirection = "left"
	GazeRight   GazeDirection = "right"
	GazeUp      GazeDirection = "up"
)

// SilenceFloorDBFS is the finite floor reported for a silent audio chunk.
// Peak levels below this are indistinguishable from silence, and a finite
// floor keeps stored findings representable in JSON.
const SilenceFloorDBFS = -120.0

// SampleKind distinguishes submitted payload types.
type SampleKind string

const (
	SampleImage SampleKind = "image"
	SampleAudio SampleKind = "audio"
)

// Finding is the normalized output of one classification pass over one
// submitted sample. Ephemeral: it is consumed by the classifier and the
// registry, then discarded (an audit row may be persisted separately).
type Finding struct {
	Kind          FindingKind    `json:"kind"`
	SessionID     string         `json:"sessionId"`
	ParticipantID string         `json:"participantId"`
	ObservedAt    time.Time      `json:"observedAt"`
	Sample        SampleKind     `json:"sample"`
	FaceCount     int            `json:"faceCount,omitempty"`
	Gaze          GazeDirection  `json:"gaze,omitempty"`
	PeakLevelDBFS float64        `json:"peakLevelDbfs,omitempty"`
	EventLabels   []string       `json:"eventLabels,omitempty"`
	SnapshotRef   string         `json:"snapshotRef,omitempty"`
	RawMetrics    map[string]any `json:"rawMetrics,omitempty"`
}

// StatusText renders the dashboard-facing summary for this finding.
func (f *Finding) StatusText() string {
	switch f.Kind {
	case FindingNoFace:
		return StatusTextNoFace
	case FindingMultipleFaces:
		return StatusTextMultipleFaces
	case FindingGaze:
		if f.Gaze == GazeForward {
			return StatusTextAttentive
		}
		return fmt.Sprintf("Looking Away (%s)", f.Gaze)
	case FindingLoudNoise:
		return StatusTextLoudNoise
	case FindingAudioEvent:
		if len(f.EventLabels) > 0 {
			return "Audio: " + strings.Join(f.EventLabels, ", ")
		}
		return StatusTextAttentive
	default:
		return StatusTextAttentive
	}
}
