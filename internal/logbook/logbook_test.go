package logbook

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailOfMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "nested", "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	lines, total := book.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v / %d", lines, total)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
	if _, total := nilBook.Tail(1); total != 0 {
		t.Fatalf("nil logbook reported entries")
	}
}

func TestEntriesAreStampedAndMirrored(t *testing.T) {
	var mirrored bytes.Buffer
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	book, err := New(filepath.Join(t.TempDir(), "journal.log"),
		WithClock(func() time.Time { return fixed }),
		WithMirror(slog.New(slog.NewTextHandler(&mirrored, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}
	book.Warn("paused with %d queued", 12)

	lines, _ := book.Tail(1)
	if want := "2024-03-01T12:00:00Z WARN  paused with 12 queued"; len(lines) != 1 || lines[0] != want {
		t.Fatalf("journal line = %q, want %q", lines, want)
	}
	out := mirrored.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "component=journal") {
		t.Fatalf("mirror output %q", out)
	}
}
