// Package media provides snapshot evidence processing
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

var dataURLPattern = regexp.MustCompile(`^data:image/\w+;base64,`)

// SnapshotStore persists alert evidence snapshots to disk. Incoming frames
// are normalized to bounded-width WebP so the evidence directory stays small
// regardless of the client's camera resolution.
type SnapshotStore struct {
	baseDir  string
	maxWidth int
	quality  float32
	logger   *logging.ChanneledLogger
}

// NewSnapshotStore creates a SnapshotStore rooted at baseDir.
func NewSnapshotStore(baseDir string, maxWidth int, quality float32, logger *logging.ChanneledLogger) *SnapshotStore {
	return &SnapshotStore{
		baseDir:  baseDir,
		maxWidth: maxWidth,
		quality:  quality,
		logger:   logger,
	}
}

// DecodeSampleImage accepts either raw image bytes or a base64 data URL
// and returns the decoded binary payload.
func DecodeSampleImage(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	s := string(data)
	if dataURLPattern.MatchString(s) {
		b64Data := dataURLPattern.ReplaceAllString(s, "")
		decoded, err := base64.StdEncoding.DecodeString(b64Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image: %w", err)
		}
		return decoded, nil
	}
	return data, nil
}

// Store normalizes one frame and writes it under the session's evidence
// directory. Returns the snapshot ref used by alerts and session state.
func (s *SnapshotStore) Store(sessionID string, imageData []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode snapshot image: %w", err)
	}

	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	targetDir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}

	filename := security.GenerateULID() + ".webp"
	fullPath := filepath.Join(targetDir, filename)

	if err := webp.Save(fullPath, img, &webp.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	ref := sessionID + "/" + filename
	if s.logger != nil {
		s.logger.Evidence().Debug("Snapshot stored",
			"sessionId", sessionID, "ref", ref, "width", img.Bounds().Dx())
	}
	return ref, nil
}

// Resolve maps a snapshot ref back to its on-disk path. Refs containing
// path traversal are rejected.
func (s *SnapshotStore) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty snapshot ref")
	}
	if strings.Contains(ref, "..") || filepath.IsAbs(ref) {
		return "", fmt.Errorf("invalid snapshot ref: %s", ref)
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if _, err := os.Stat(fullPath); err != nil {
		return "", fmt.Errorf("snapshot not found: %w", err)
	}
	return fullPath, nil
}

// Purge removes all evidence for a session. Used by retention cleanup.
func (s *SnapshotStore) Purge(sessionID string) error {
	if sessionID == "" || strings.Contains(sessionID, "..") {
		return fmt.Errorf("invalid session id")
	}
	return os.RemoveAll(filepath.Join(s.baseDir, sessionID))
}
