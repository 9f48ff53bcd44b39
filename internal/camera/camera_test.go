package camera

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMockCamera_CyclesFrames(t *testing.T) {
	cam := NewMockCamera([]byte("a"), []byte("b"))

	first := cam.Capture()
	second := cam.Capture()
	third := cam.Capture()

	if first == nil || second == nil || third == nil {
		t.Fatal("Capture returned nil with frames configured")
	}
	if string(first.Data) != "a" || string(second.Data) != "b" || string(third.Data) != "a" {
		t.Errorf("frames did not cycle: %q %q %q", first.Data, second.Data, third.Data)
	}
	if first.ID == second.ID {
		t.Error("frames share an ID")
	}
}

func TestMockCamera_FailEvery(t *testing.T) {
	cam := NewMockCamera([]byte("a"))
	cam.FailEvery = 2

	if cam.Capture() == nil {
		t.Error("first capture should succeed")
	}
	if cam.Capture() != nil {
		t.Error("second capture should fail")
	}
	if cam.Capture() == nil {
		t.Error("third capture should succeed")
	}
}

func TestMockCamera_ReleaseIdempotent(t *testing.T) {
	cam := NewMockCamera([]byte("a"))

	if err := cam.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := cam.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if cam.ReleaseCalls != 2 {
		t.Errorf("ReleaseCalls = %d, want 2", cam.ReleaseCalls)
	}
	if cam.Capture() != nil {
		t.Error("Capture after Release should return nil")
	}
}

func TestFixtureCamera(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Non-image files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cam, err := NewFixtureCamera(dir)
	if err != nil {
		t.Fatalf("NewFixtureCamera: %v", err)
	}

	// Fixtures are served in sorted order, then cycle.
	for i, want := range []string{"a.jpg", "b.jpg", "a.jpg"} {
		f := cam.Capture()
		if f == nil {
			t.Fatalf("capture %d returned nil", i)
		}
		if string(f.Data) != want {
			t.Errorf("capture %d = %q, want %q", i, f.Data, want)
		}
	}

	if err := cam.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if cam.Capture() != nil {
		t.Error("Capture after Release should return nil")
	}
}

func TestFixtureCamera_EmptyDir(t *testing.T) {
	if _, err := NewFixtureCamera(t.TempDir()); err == nil {
		t.Error("expected error for directory with no fixtures")
	}
}
