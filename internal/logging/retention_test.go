package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clapper/internal/logging"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("log line\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("age %s: %v", name, err)
	}
	return path
}

func TestCleanupOldLogsPrunesByAgeAndPattern(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "render-old.log", 10*24*time.Hour)
	fresh := writeAgedFile(t, dir, "render-new.log", time.Hour)
	unrelated := writeAgedFile(t, dir, "notes.txt", 10*24*time.Hour)

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{Dir: dir, Pattern: "render-*.log"})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err = %v", old, err)
	}
	for _, path := range []string{fresh, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestCleanupOldLogsHonorsExclusions(t *testing.T) {
	dir := t.TempDir()
	pinned := writeAgedFile(t, dir, "clapper.log", 30*24*time.Hour)

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.log",
		Exclude: []string{pinned},
	})

	if _, err := os.Stat(pinned); err != nil {
		t.Fatalf("expected excluded file kept: %v", err)
	}
}

func TestCleanupOldLogsDisabledRetention(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "render-old.log", 30*24*time.Hour)

	logging.CleanupOldLogs(logging.NewNop(), 0, logging.RetentionTarget{Dir: dir, Pattern: "*.log"})

	if _, err := os.Stat(old); err != nil {
		t.Fatalf("expected file kept when retention disabled: %v", err)
	}
}
