package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNew_RequiresCallback(t *testing.T) {
	if _, err := New(time.Millisecond, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}

func TestNew_RejectsBadGlob(t *testing.T) {
	_, err := New(time.Millisecond, []string{"[bad"}, nil, func([]string) {})
	if err == nil {
		t.Fatal("expected error for invalid glob pattern")
	}
}

func TestWatcher_ReportsChangesDebounced(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var batches [][]string
	done := make(chan struct{}, 1)

	w, err := New(50*time.Millisecond, nil, nil, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}
	go w.Start()

	target := filepath.Join(dir, "main.py")
	if err := os.WriteFile(target, []byte("def a(): pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Rapid consecutive writes should collapse into one batch.
	if err := os.WriteFile(target, []byte("def a(): pass\ndef b(): pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Errorf("expected one debounced batch, got %d", len(batches))
	}
	found := false
	for _, p := range batches[0] {
		if p == target {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in batch, got %v", target, batches[0])
	}
}

func TestWatcher_ExcludesFiles(t *testing.T) {
	w, err := New(time.Millisecond, []string{".git"}, []string{"*.tmp"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !w.excluded("scratch.tmp") {
		t.Error("expected *.tmp to be excluded")
	}
	if !w.excluded(filepath.Join("repo", ".git", "config.py")) {
		t.Error("expected paths under .git to be excluded")
	}
	if w.excluded("main.py") {
		t.Error("main.py should not be excluded")
	}
}
