package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, dirpath string, debounce time.Duration) <-chan []string {
	t.Helper()
	calls := make(chan []string, 10)
	w, err := New(dirpath, debounce, func(ctx context.Context, changed []string) {
		calls <- changed
	}, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	})
	return calls
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dirpath := t.TempDir()
	calls := startWatcher(t, dirpath, 4*testDebounce)

	notes := filepath.Join(dirpath, "notes.md")
	for i := 0; i < 5; i++ {
		writeFile(t, notes, "revision")
	}
	writeFile(t, filepath.Join(dirpath, "plan.md"), "plan")

	select {
	case changed := <-calls:
		if len(changed) != 2 {
			t.Fatalf("expected 2 changed paths, got %v", changed)
		}
		if changed[0] != notes || changed[1] != filepath.Join(dirpath, "plan.md") {
			t.Errorf("unexpected changed paths %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected a callback after the burst")
	}

	select {
	case changed := <-calls:
		t.Errorf("expected a single callback for the burst, got a second with %v", changed)
	case <-time.After(20 * testDebounce):
	}
}

func TestWatcher_IgnoresArtifactsAndOtherFiles(t *testing.T) {
	dirpath := t.TempDir()
	calls := startWatcher(t, dirpath, testDebounce)

	writeFile(t, filepath.Join(dirpath, "notes_COMPACT.md"), "auth fn")
	writeFile(t, filepath.Join(dirpath, "image.png"), "png")
	writeFile(t, filepath.Join(dirpath, ".handoff-tmp-123"), "tmp")

	select {
	case changed := <-calls:
		t.Errorf("expected no callback, got %v", changed)
	case <-time.After(10 * testDebounce):
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), testDebounce, func(context.Context, []string) {}, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write markdown", fsnotify.Event{Name: "/d/notes.md", Op: fsnotify.Write}, true},
		{"create markdown", fsnotify.Event{Name: "/d/notes.md", Op: fsnotify.Create}, true},
		{"remove markdown", fsnotify.Event{Name: "/d/notes.md", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/d/notes.md", Op: fsnotify.Chmod}, false},
		{"compact artifact", fsnotify.Event{Name: "/d/notes_COMPACT.md", Op: fsnotify.Write}, false},
		{"not markdown", fsnotify.Event{Name: "/d/notes.txt", Op: fsnotify.Write}, false},
		{"hidden file", fsnotify.Event{Name: "/d/.notes.md", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRelevant(tt.event); got != tt.want {
				t.Errorf("isRelevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestPendingSet_DrainSortsAndEmpties(t *testing.T) {
	p := newPendingSet()
	p.add("b.md")
	p.add("a.md")
	p.add("b.md")

	got := p.drain()
	if len(got) != 2 || got[0] != "a.md" || got[1] != "b.md" {
		t.Fatalf("expected [a.md b.md], got %v", got)
	}
	if again := p.drain(); len(again) != 0 {
		t.Errorf("expected empty set after drain, got %v", again)
	}
}
