package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
)

// AudioAnalysis is the audio pipeline's verdict for one chunk.
type AudioAnalysis struct {
	PeakLevelDBFS float64  `json:"peak_level_dbfs"`
	SampleRate    int      `json:"sample_rate"`
	EventLabels   []string `json:"detected_event_labels"`
}

// AudioAnalyzer classifies one submitted audio chunk.
type AudioAnalyzer interface {
	AnalyzeChunk(ctx context.Context, audioData []byte) (*AudioAnalysis, error)
}

// WaveAudioAnalyzer decodes 16-bit PCM WAV chunks and measures peak
// loudness locally. When an AssemblyAI key is configured, chunks are also
// submitted for speech detection so loud-noise alerts can carry a label.
type WaveAudioAnalyzer struct {
	aaiClient *assemblyai.Client
	logger    *logging.ChanneledLogger
}

// NewWaveAudioAnalyzer creates the audio analyzer. aaiAPIKey may be empty,
// in which case event labeling is skipped and only loudness is measured.
func NewWaveAudioAnalyzer(aaiAPIKey string, logger *logging.ChanneledLogger) *WaveAudioAnalyzer {
	a := &WaveAudioAnalyzer{logger: logger}
	if aaiAPIKey != "" {
		a.aaiClient = assemblyai.NewClient(aaiAPIKey)
	}
	return a
}

// AnalyzeChunk decodes the WAV payload and computes its peak dBFS level.
func (a *WaveAudioAnalyzer) AnalyzeChunk(ctx context.Context, audioData []byte) (*AudioAnalysis, error) {
	start := time.Now()

	samples, sampleRate, err := decodeWAV(audioData)
	if err != nil {
		return nil, &proctoring.DecodeError{Sample: proctoring.SampleAudio, Err: err}
	}

	analysis := &AudioAnalysis{
		PeakLevelDBFS: peakDBFS(samples),
		SampleRate:    sampleRate,
	}

	if a.aaiClient != nil {
		labels, err := a.detectEvents(ctx, audioData)
		if err != nil {
			// Labeling is best-effort; loudness alone is enough to alert on.
			a.logger.Classify().Warn("Audio event labeling failed", "error", err.Error())
		} else {
			analysis.EventLabels = labels
		}
	}

	a.logger.Classify().Debug("Audio chunk analyzed",
		"peakDbfs", analysis.PeakLevelDBFS,
		"sampleRate", analysis.SampleRate,
		"labels", analysis.EventLabels,
		"duration", time.Since(start))
	return analysis, nil
}

// detectEvents submits the chunk to AssemblyAI and reports a speech label
// when any words were transcribed.
func (a *WaveAudioAnalyzer) detectEvents(ctx context.Context, audioData []byte) ([]string, error) {
	transcript, err := a.aaiClient.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audioData), nil)
	if err != nil {
		return nil, err
	}

	if transcript.Text != nil && strings.TrimSpace(*transcript.Text) != "" {
		return []string{"speech"}, nil
	}
	return nil, nil
}

// decodeWAV parses a 16-bit PCM RIFF/WAVE payload and returns its samples.
func decodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("audio payload too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}

	var sampleRate int
	var bitsPerSample int
	var pcm []byte

	// Walk the chunk list; fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("malformed fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, 0, fmt.Errorf("unsupported audio format: %d (PCM required)", audioFormat)
			}
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (16-bit required)", bitsPerSample)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples, sampleRate, nil
}

// peakDBFS returns the peak level relative to full scale. Silence maps to
// the finite SilenceFloorDBFS floor rather than -Inf so the value survives
// JSON encoding downstream.
func peakDBFS(samples []int16) float64 {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	if peak == 0 {
		return proctoring.SilenceFloorDBFS
	}
	dbfs := 20 * math.Log10(float64(peak)/32768.0)
	if dbfs < proctoring.SilenceFloorDBFS {
		dbfs = proctoring.SilenceFloorDBFS
	}
	return dbfs
}
