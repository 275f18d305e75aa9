package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gingerol/examguard/internal/domain/proctoring"
)

// buildWAV assembles a minimal 16-bit PCM RIFF/WAVE payload.
func buildWAV(sampleRate int, samples []int16) []byte {
	var pcm bytes.Buffer
	for _, s := range samples {
		binary.Write(&pcm, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+pcm.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(pcm.Len()))
	buf.Write(pcm.Bytes())
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	want := []int16{0, 100, -200, 32767, -32768}
	payload := buildWAV(16000, want)

	samples, sampleRate, err := decodeWAV(payload)
	if err != nil {
		t.Fatalf("decodeWAV() error = %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", sampleRate)
	}
	if len(samples) != len(want) {
		t.Fatalf("len(samples) = %d, want %d", len(samples), len(want))
	}
	for i, s := range samples {
		if s != want[i] {
			t.Errorf("samples[%d] = %d, want %d", i, s, want[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"too short", []byte("RIFF")},
		{"wrong magic", bytes.Repeat([]byte("x"), 64)},
		{"missing data chunk", append([]byte("RIFF\x00\x00\x00\x00WAVE"), bytes.Repeat([]byte{0}, 40)...)},
	}

	for _, tc := range cases {
		if _, _, err := decodeWAV(tc.payload); err == nil {
			t.Errorf("%s: decodeWAV() succeeded, want error", tc.name)
		}
	}
}

func TestDecodeWAVRejectsCompressedFormat(t *testing.T) {
	payload := buildWAV(16000, []int16{1, 2, 3})
	// Flip the fmt audio format field from PCM to mu-law.
	binary.LittleEndian.PutUint16(payload[20:22], 7)

	if _, _, err := decodeWAV(payload); err == nil {
		t.Error("decodeWAV() accepted a non-PCM format")
	}
}

func TestPeakDBFS(t *testing.T) {
	if got := peakDBFS([]int16{0, 0, 0}); got != proctoring.SilenceFloorDBFS {
		t.Errorf("peakDBFS(silence) = %v, want %v", got, proctoring.SilenceFloorDBFS)
	}

	if got := peakDBFS([]int16{-32768}); math.Abs(got) > 0.001 {
		t.Errorf("peakDBFS(full scale) = %v, want ~0", got)
	}

	// Half scale is roughly -6 dBFS.
	got := peakDBFS([]int16{16384})
	if math.Abs(got-(-6.02)) > 0.01 {
		t.Errorf("peakDBFS(half scale) = %v, want ~-6.02", got)
	}
}

func TestAnalyzeChunk(t *testing.T) {
	analyzer := NewWaveAudioAnalyzer("", quietLogger(t))

	payload := buildWAV(16000, []int16{16384, -16384, 0})
	result, err := analyzer.AnalyzeChunk(context.Background(), payload)
	if err != nil {
		t.Fatalf("AnalyzeChunk() error = %v", err)
	}
	if result.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", result.SampleRate)
	}
	if math.Abs(result.PeakLevelDBFS-(-6.02)) > 0.01 {
		t.Errorf("PeakLevelDBFS = %v, want ~-6.02", result.PeakLevelDBFS)
	}
	if len(result.EventLabels) != 0 {
		t.Errorf("EventLabels = %v, want none without an API key", result.EventLabels)
	}
}

func TestAnalyzeChunkRejectsNonWAV(t *testing.T) {
	analyzer := NewWaveAudioAnalyzer("", quietLogger(t))

	_, err := analyzer.AnalyzeChunk(context.Background(), []byte("ID3 this is an mp3"))
	var decodeErr *proctoring.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
	if decodeErr.Sample != proctoring.SampleAudio {
		t.Errorf("DecodeError.Sample = %v, want audio", decodeErr.Sample)
	}
}
