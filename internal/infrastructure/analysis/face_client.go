// Package analysis wraps the external classification collaborators: the
// face/gaze model service and the audio loudness/event pipeline.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/pkg/config"
)

// FaceAnalysis is the face collaborator's verdict for one frame.
type FaceAnalysis struct {
	FaceCount     int      `json:"face_count"`
	GazeDirection *string  `json:"gaze_direction"`
	GazeRatio     *float64 `json:"gaze_ratio,omitempty"`
}

// FaceAnalyzer classifies one decoded frame.
type FaceAnalyzer interface {
	AnalyzeFrame(ctx context.Context, imageData []byte) (*FaceAnalysis, error)
}

// HTTPFaceAnalyzer calls the external face/landmark/gaze model service.
// A 4xx from the service means the payload was unparseable (DecodeError);
// 5xx or transport failure means the collaborator broke (ClassificationError).
type HTTPFaceAnalyzer struct {
	baseURL string
	client  *http.Client
	logger  *logging.ChanneledLogger
}

// NewHTTPFaceAnalyzer creates a client for the face model service.
func NewHTTPFaceAnalyzer(baseURL string, timeout time.Duration, logger *logging.ChanneledLogger) *HTTPFaceAnalyzer {
	return &HTTPFaceAnalyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// AnalyzeFrame submits one frame for face and gaze classification. The
// configured gaze ratio cutoff rides along so the model service and this
// core agree on what counts as looking away.
func (a *HTTPFaceAnalyzer) AnalyzeFrame(ctx context.Context, imageData []byte) (*FaceAnalysis, error) {
	start := time.Now()

	endpoint := a.baseURL + "/analyze?gaze_ratio_threshold=" +
		strconv.FormatFloat(config.GazeRatioThreshold, 'f', -1, 64)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(imageData))
	if err != nil {
		return nil, &proctoring.ClassificationError{Sample: proctoring.SampleImage, Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Classify().Error("Face analyzer request failed", "error", err.Error(), "duration", time.Since(start))
		return nil, &proctoring.ClassificationError{Sample: proctoring.SampleImage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &proctoring.ClassificationError{Sample: proctoring.SampleImage, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &proctoring.DecodeError{
			Sample: proctoring.SampleImage,
			Err:    fmt.Errorf("face analyzer rejected payload: status %d", resp.StatusCode),
		}
	default:
		a.logger.Classify().Error("Face analyzer returned server error",
			"status", resp.StatusCode, "duration", time.Since(start))
		return nil, &proctoring.ClassificationError{
			Sample: proctoring.SampleImage,
			Err:    fmt.Errorf("face analyzer failed: status %d", resp.StatusCode),
		}
	}

	var analysis FaceAnalysis
	if err := json.Unmarshal(body, &analysis); err != nil {
		return nil, &proctoring.ClassificationError{
			Sample: proctoring.SampleImage,
			Err:    fmt.Errorf("face analyzer response unparseable: %w", err),
		}
	}

	a.logger.Classify().Debug("Frame analyzed",
		"faceCount", analysis.FaceCount,
		"gazeDirection", analysis.GazeDirection,
		"duration", time.Since(start))
	return &analysis, nil
}
