package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newKeyedLogger(t *testing.T, dir string) *Logger {
	t.Helper()
	l := NewLogger(dir, SourceCLI, nil)
	if err := l.SetHMACKey([]byte("vault password digest")); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	return l
}

func logFile(t *testing.T, dir string) string {
	t.Helper()
	files, _ := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if len(files) != 1 {
		t.Fatalf("expected one log file, got %d", len(files))
	}
	return files[0]
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir, SourceShell, nil)

	if l.Path() != dir {
		t.Errorf("expected path %s, got %s", dir, l.Path())
	}
	if l.prevHash != genesis {
		t.Errorf("expected prevHash %q, got %s", genesis, l.prevHash)
	}
	if l.sessionID == "" {
		t.Error("expected non-empty sessionID")
	}
}

func TestLogWithoutHMACKey(t *testing.T) {
	l := NewLogger(t.TempDir(), SourceCLI, nil)

	if err := l.LogSuccess(OpEntryRead, "github"); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("expected ErrKeyNotSet, got %v", err)
	}
	if _, err := l.Verify(); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("expected ErrKeyNotSet from Verify, got %v", err)
	}

	// Record swallows the error.
	l.Record(OpEntryRead, "github", nil)
}

func TestRecord(t *testing.T) {
	dir := t.TempDir()
	l := newKeyedLogger(t, dir)

	l.Record(OpEntryCreate, "github", nil)
	l.Record(OpEntryModify, "github", errors.New("memvault: invalid property id"))
	if err := l.LogDenied(OpMCPToolCall, "bank", "group not exposed"); err != nil {
		t.Fatalf("LogDenied failed: %v", err)
	}

	events, err := l.ListEvents(0, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	want := []struct {
		op     Operation
		result string
		msg    string
	}{
		{OpEntryCreate, ResultSuccess, ""},
		{OpEntryModify, ResultError, "memvault: invalid property id"},
		{OpMCPToolCall, ResultDenied, "group not exposed"},
	}
	for i, w := range want {
		ev := events[i]
		if ev.Operation != w.op || ev.Result != w.result || ev.Error != w.msg {
			t.Errorf("event %d: got %s/%s/%q, want %s/%s/%q", i, ev.Operation, ev.Result, ev.Error, w.op, w.result, w.msg)
		}
		if ev.Source != SourceCLI {
			t.Errorf("event %d: expected source cli, got %s", i, ev.Source)
		}
		if ev.Chain.Sequence != int64(i+1) {
			t.Errorf("event %d: expected sequence %d, got %d", i, i+1, ev.Chain.Sequence)
		}
	}

	// Names never reach the log in clear text.
	data, _ := os.ReadFile(logFile(t, dir))
	if bytes.Contains(data, []byte("github")) {
		t.Error("subject was written in clear text")
	}
	if events[0].Subject != events[1].Subject {
		t.Error("the same subject should produce the same digest")
	}
	if events[0].Subject == events[2].Subject {
		t.Error("different subjects should produce different digests")
	}
}

func TestChainPersistence(t *testing.T) {
	dir := t.TempDir()
	first := newKeyedLogger(t, dir)
	first.Record(OpVaultOpen, "personal", nil)
	first.Record(OpVaultPersist, "personal", nil)

	second := newKeyedLogger(t, dir)
	second.Record(OpVaultOpen, "personal", nil)

	res, err := second.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Valid || res.RecordsTotal != 3 {
		t.Errorf("expected a valid chain of 3, got valid=%v total=%d errors=%v", res.Valid, res.RecordsTotal, res.Errors)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	l := newKeyedLogger(t, t.TempDir())
	res, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Valid || res.RecordsTotal != 0 {
		t.Errorf("expected valid empty log, got %+v", res)
	}
}

func TestTamperingDetection(t *testing.T) {
	t.Run("modified record", func(t *testing.T) {
		dir := t.TempDir()
		l := newKeyedLogger(t, dir)
		for i := 0; i < 3; i++ {
			l.Record(OpEntryRead, "github", nil)
		}

		file := logFile(t, dir)
		data, _ := os.ReadFile(file)
		tampered := strings.Replace(string(data), `"op":"entry.read"`, `"op":"entry.delete"`, 1)
		if err := os.WriteFile(file, []byte(tampered), 0600); err != nil {
			t.Fatal(err)
		}

		res, err := newKeyedLogger(t, dir).Verify()
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if res.Valid || len(res.Errors) == 0 {
			t.Error("expected tampering to be detected")
		}
	})

	t.Run("deleted record", func(t *testing.T) {
		dir := t.TempDir()
		l := newKeyedLogger(t, dir)
		for i := 0; i < 3; i++ {
			l.Record(OpEntryRead, "github", nil)
		}

		file := logFile(t, dir)
		data, _ := os.ReadFile(file)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		kept := lines[0] + "\n" + lines[2] + "\n"
		if err := os.WriteFile(file, []byte(kept), 0600); err != nil {
			t.Fatal(err)
		}

		res, err := newKeyedLogger(t, dir).Verify()
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if res.Valid {
			t.Error("expected a removed record to break the chain")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		dir := t.TempDir()
		newKeyedLogger(t, dir).Record(OpEntryRead, "github", nil)

		other := NewLogger(dir, SourceCLI, nil)
		if err := other.SetHMACKey([]byte("another password")); err != nil {
			t.Fatal(err)
		}
		res, err := other.Verify()
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if res.Valid {
			t.Error("expected verification with another key to fail")
		}
	})
}

func TestListEventsLimitAndSince(t *testing.T) {
	l := newKeyedLogger(t, t.TempDir())
	for i := 0; i < 5; i++ {
		l.Record(OpEntryRead, "x", nil)
	}

	events, err := l.ListEvents(2, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[1].Chain.Sequence != 5 {
		t.Errorf("expected the two most recent events, got %d", len(events))
	}

	events, err = l.ListEvents(0, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events in the future, got %d", len(events))
	}
}

func TestExport(t *testing.T) {
	l := newKeyedLogger(t, t.TempDir())
	l.Record(OpGroupAdd, "web", nil)
	l.Record(OpGroupRemove, "web", errors.New("memvault: group is not empty"))

	data, err := l.Export("json", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("json export failed: %v", err)
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 exported events, got %d", len(events))
	}

	data, err = l.Export("csv", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "timestamp,operation,source,result,subject" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if len(lines) != 3 || !strings.Contains(lines[2], "group.remove,cli,error,") {
		t.Errorf("unexpected csv body: %q", lines)
	}
	subject := lines[1][strings.LastIndex(lines[1], ",")+1:]
	if len(subject) != 16 {
		t.Errorf("expected a truncated subject, got %q", subject)
	}

	data, err = l.Export("json", time.Time{}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "null" {
		t.Errorf("expected nothing before until, got %s", data)
	}

	if _, err := l.Export("xml", time.Time{}, time.Time{}); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestCSVSafe(t *testing.T) {
	tests := map[string]string{
		"=SUM(A1)": "'=SUM(A1)",
		"+1":       "'+1",
		"-1":       "'-1",
		"@cmd":     "'@cmd",
		"entry":    "entry",
		"":         "",
	}
	for in, want := range tests {
		if got := csvSafe(in); got != want {
			t.Errorf("csvSafe(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	l := newKeyedLogger(t, dir)
	l.Record(OpEntryRead, "a", nil)
	l.Record(OpEntryRead, "b", nil)

	// Age the first record.
	file := logFile(t, dir)
	events, err := readLogFile(file)
	if err != nil {
		t.Fatal(err)
	}
	events[0].Timestamp = time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339Nano)
	if err := rewriteLogFile(file, events); err != nil {
		t.Fatal(err)
	}

	n, err := l.Prune(24*time.Hour, true)
	if err != nil || n != 1 {
		t.Fatalf("dry run: expected 1, got %d (%v)", n, err)
	}
	if got, _ := readLogFile(file); len(got) != 2 {
		t.Errorf("dry run removed records")
	}

	n, err = l.Prune(24*time.Hour, false)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pruned, got %d (%v)", n, err)
	}
	got, _ := readLogFile(file)
	if len(got) != 1 || got[0].ID != events[1].ID {
		t.Errorf("expected only the recent record to remain")
	}

	n, err = l.Prune(time.Nanosecond, false)
	if err != nil || n != 1 {
		t.Fatalf("expected the last record pruned, got %d (%v)", n, err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("expected an emptied log file to be removed")
	}
}
