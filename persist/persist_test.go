package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/waypoint"
)

func testSession() *Session {
	undo := []*waypoint.Waypoint{
		waypoint.NewWaypoint("p1", map[string]any{"title": "draft", "published": false}),
		waypoint.NewWaypoint("p2", map[string]any{"title": "final"}),
	}
	redo := []*waypoint.Waypoint{
		waypoint.NewWaypoint("p3", map[string]any{"title": "discarded"}),
	}
	return FromWaypoints(undo, redo)
}

func TestRoundTripFormats(t *testing.T) {
	tests := []string{"session.json", "session.yaml", "session.yml", "session.toml"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			saved := testSession()

			if err := Save(path, saved); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded == nil {
				t.Fatal("Load returned nil session")
			}

			if len(loaded.Undo) != 2 || len(loaded.Redo) != 1 {
				t.Fatalf("stack sizes = %d/%d, want 2/1", len(loaded.Undo), len(loaded.Redo))
			}

			for i, rec := range loaded.Undo {
				if rec.Name != saved.Undo[i].Name {
					t.Errorf("undo[%d].Name = %q, want %q", i, rec.Name, saved.Undo[i].Name)
				}
				if rec.ID != saved.Undo[i].ID {
					t.Errorf("undo[%d].ID = %q, want %q", i, rec.ID, saved.Undo[i].ID)
				}
			}

			if got := loaded.Undo[0].Props["title"]; got != "draft" {
				t.Errorf("title = %v, want draft", got)
			}
			if got := loaded.Undo[0].Props["published"]; got != false {
				t.Errorf("published = %v, want false", got)
			}
		})
	}
}

func TestWaypointsRoundTrip(t *testing.T) {
	session := testSession()

	undo, redo := session.Waypoints()
	if len(undo) != 2 || len(redo) != 1 {
		t.Fatalf("stack sizes = %d/%d, want 2/1", len(undo), len(redo))
	}
	if undo[1].Name != "p2" {
		t.Errorf("undo[1].Name = %q, want p2", undo[1].Name)
	}
	if undo[0].Props["title"] != "draft" {
		t.Errorf("props = %v", undo[0].Props)
	}
}

func TestLoadMissingFile(t *testing.T) {
	session, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if session != nil {
		t.Error("missing file should yield a nil session")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ini")

	if err := Save(path, testSession()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Save: expected ErrUnsupportedFormat, got %v", err)
	}

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load: expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Path != path {
		t.Errorf("path = %q, want %q", parseErr.Path, path)
	}
	if parseErr.Unwrap() == nil {
		t.Error("ParseError should wrap the codec error")
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	sessions := make(chan *Session, 4)
	w, err := NewWatcher(path, func(s *Session) { sessions <- s },
		WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if w.Path() == "" {
		t.Error("Path should report the watched file")
	}

	if err := Save(path, testSession()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	select {
	case s := <-sessions:
		if len(s.Undo) != 2 || len(s.Redo) != 1 {
			t.Errorf("reloaded sizes = %d/%d, want 2/1", len(s.Undo), len(s.Redo))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	w, err := NewWatcher(path, func(*Session) {})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
