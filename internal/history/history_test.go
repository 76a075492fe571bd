package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{PageID: "first", Outcome: OutcomeOK, Links: 3, Subtitles: 2, Duration: 1500 * time.Millisecond, At: base},
		{PageID: "second", Server: "UpCloud", Outcome: OutcomeEmpty, At: base.Add(time.Minute)},
		{PageID: "third", Outcome: OutcomeError, At: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].PageID != "third" || got[1].PageID != "second" {
		t.Errorf("order = %q, %q; want third, second", got[0].PageID, got[1].PageID)
	}
	if got[1].Server != "UpCloud" {
		t.Errorf("Server = %q, want UpCloud", got[1].Server)
	}

	all, _ := s.Recent(ctx, 10)
	first := all[len(all)-1]
	if first.Links != 3 || first.Subtitles != 2 {
		t.Errorf("counts = %d/%d, want 3/2", first.Links, first.Subtitles)
	}
	if first.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %s, want 1.5s", first.Duration)
	}
	if !first.At.Equal(base) {
		t.Errorf("At = %s, want %s", first.At, base)
	}
}

func TestRecordStampsTime(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := s.Record(ctx, Entry{PageID: "x", Outcome: OutcomeOK}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Recent(ctx, 1)
	if len(got) != 1 || got[0].At.Before(before) {
		t.Errorf("entry not stamped with current time: %+v", got)
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	now := time.Now()
	s.Record(ctx, Entry{PageID: "old", Outcome: OutcomeOK, At: now.Add(-48 * time.Hour)})
	s.Record(ctx, Entry{PageID: "new", Outcome: OutcomeOK, At: now})

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	got, _ := s.Recent(ctx, 10)
	if len(got) != 1 || got[0].PageID != "new" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Record(ctx, Entry{PageID: "persisted", Outcome: OutcomeOK})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, _ := s.Recent(ctx, 10)
	if len(got) != 1 || got[0].PageID != "persisted" {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestFormatForDisplay(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local)
	lines := FormatForDisplay([]Entry{
		{PageID: "abc", Outcome: OutcomeOK, Links: 2, Subtitles: 1, Duration: 2 * time.Second, At: at, Server: "Vidcloud"},
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	for _, want := range []string{"2026-03-01 12:30", "abc", "ok", "2 links, 1 subs", "Vidcloud"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
}
