package media

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeSampleImageRawBytes(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	decoded, err := DecodeSampleImage(raw)
	if err != nil {
		t.Fatalf("DecodeSampleImage() error = %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("raw bytes were not passed through unchanged")
	}
}

func TestDecodeSampleImageDataURL(t *testing.T) {
	payload := []byte("frame-bytes")
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	decoded, err := DecodeSampleImage([]byte(dataURL))
	if err != nil {
		t.Fatalf("DecodeSampleImage() error = %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("decoded = %q, want %q", decoded, payload)
	}
}

func TestDecodeSampleImageRejectsBadInput(t *testing.T) {
	if _, err := DecodeSampleImage(nil); err == nil {
		t.Error("DecodeSampleImage(nil) succeeded, want error")
	}
	if _, err := DecodeSampleImage([]byte("data:image/png;base64,!!!not-base64!!!")); err == nil {
		t.Error("DecodeSampleImage() accepted malformed base64")
	}
}

func TestResolve(t *testing.T) {
	baseDir := t.TempDir()
	store := NewSnapshotStore(baseDir, 640, 80, nil)

	sessionDir := filepath.Join(baseDir, "sess-1")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "frame.webp"), []byte("webp"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := store.Resolve("sess-1/frame.webp")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != filepath.Join(sessionDir, "frame.webp") {
		t.Errorf("Resolve() = %q", path)
	}

	if _, err := store.Resolve("sess-1/missing.webp"); err == nil {
		t.Error("Resolve() found a missing snapshot")
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := NewSnapshotStore(t.TempDir(), 640, 80, nil)

	for _, ref := range []string{"", "../etc/passwd", "sess-1/../../etc/passwd", "/etc/passwd"} {
		if _, err := store.Resolve(ref); err == nil {
			t.Errorf("Resolve(%q) succeeded, want error", ref)
		}
	}
}

func TestPurge(t *testing.T) {
	baseDir := t.TempDir()
	store := NewSnapshotStore(baseDir, 640, 80, nil)

	sessionDir := filepath.Join(baseDir, "sess-1")
	os.MkdirAll(sessionDir, 0755)
	os.WriteFile(filepath.Join(sessionDir, "frame.webp"), []byte("webp"), 0644)

	if err := store.Purge("sess-1"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Error("Purge() left the session directory behind")
	}

	if err := store.Purge("../outside"); err == nil {
		t.Error("Purge() accepted a traversal session id")
	}
}
