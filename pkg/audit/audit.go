// Package audit records session operations in an HMAC-chained JSONL log.
// Each record carries the HMAC of the previous one, so edits and deletions
// inside the log are detected by Verify.
package audit

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// MinDiskSpace is the free space required before a record is written.
const MinDiskSpace = 1024 * 1024

const (
	genesis      = "genesis"
	metaFileName = "audit.meta"
	hkdfInfo     = "pman-audit-v1"
)

// Operation names a recorded action.
type Operation string

// Operations
const (
	OpVaultOpen    Operation = "vault.open"
	OpVaultPersist Operation = "vault.persist"

	OpEntryCreate Operation = "entry.create"
	OpEntryModify Operation = "entry.modify"
	OpEntryRename Operation = "entry.rename"
	OpEntryDelete Operation = "entry.delete"
	OpEntryRead   Operation = "entry.read"

	OpGroupAdd    Operation = "group.add"
	OpGroupRename Operation = "group.rename"
	OpGroupRemove Operation = "group.remove"
	OpUserAdd     Operation = "user.add"
	OpUserRemove  Operation = "user.remove"

	OpMCPToolCall Operation = "mcp.tool_call"
)

// Sources
const (
	SourceCLI   = "cli"
	SourceShell = "shell"
	SourceMCP   = "mcp"
)

// Results
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDenied  = "denied"
)

// Errors
var (
	ErrKeyNotSet        = errors.New("audit: HMAC key not set")
	ErrInsufficientDisk = errors.New("audit: insufficient disk space")
)

// Event is one audit record.
type Event struct {
	Version   int       `json:"v"`
	ID        string    `json:"id"`
	Timestamp string    `json:"ts"`
	Operation Operation `json:"op"`
	Source    string    `json:"source"`
	SessionID string    `json:"session_id"`

	// Subject is the HMAC of the entry, group or vault name involved.
	Subject string `json:"subject,omitempty"`

	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
	Chain  Chain  `json:"chain"`
}

// Chain links a record to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
	HMAC     string `json:"hmac"`
}

type chainState struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

// Logger appends records to monthly files under one directory.
type Logger struct {
	mu        sync.Mutex
	path      string
	source    string
	hmacKey   []byte
	sequence  int64
	prevHash  string
	sessionID string
	log       *zap.Logger
}

// NewLogger returns a logger writing under path. Records are rejected until
// SetHMACKey is called.
func NewLogger(path, source string, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{
		path:      path,
		source:    source,
		prevHash:  genesis,
		sessionID: uuid.New().String(),
		log:       log,
	}
}

// Path returns the log directory.
func (l *Logger) Path() string { return l.path }

// SetHMACKey derives the record key from secret with HKDF-SHA256 and
// resumes the chain stored in the directory.
func (l *Logger) SetHMACKey(secret []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := make([]byte, 32)
	if _, err := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)).Read(key); err != nil {
		return fmt.Errorf("audit: failed to derive HMAC key: %w", err)
	}
	l.hmacKey = key

	if err := l.loadChainState(); err != nil {
		l.sequence = 0
		l.prevHash = genesis
	}
	return nil
}

// Record logs op and never fails; write errors go to the zap logger.
func (l *Logger) Record(op Operation, subject string, err error) {
	var logErr error
	if err != nil {
		logErr = l.LogError(op, subject, err.Error())
	} else {
		logErr = l.LogSuccess(op, subject)
	}
	if logErr != nil {
		l.log.Warn("audit record dropped", zap.String("op", string(op)), zap.Error(logErr))
	}
}

// LogSuccess records a successful operation.
func (l *Logger) LogSuccess(op Operation, subject string) error {
	return l.Log(op, ResultSuccess, subject, "")
}

// LogError records a failed operation.
func (l *Logger) LogError(op Operation, subject, message string) error {
	return l.Log(op, ResultError, subject, message)
}

// LogDenied records an operation refused by policy.
func (l *Logger) LogDenied(op Operation, subject, reason string) error {
	return l.Log(op, ResultDenied, subject, reason)
}

// Log appends one record to the chain.
func (l *Logger) Log(op Operation, result, subject, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return ErrKeyNotSet
	}
	if err := os.MkdirAll(l.path, 0700); err != nil {
		return fmt.Errorf("audit: failed to create directory: %w", err)
	}
	if err := l.checkDiskSpace(); err != nil {
		return err
	}

	ev := Event{
		Version:   1,
		ID:        newEventID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		Source:    l.source,
		SessionID: l.sessionID,
		Result:    result,
		Error:     message,
	}
	if subject != "" {
		ev.Subject = l.mac([]byte(subject))
	}

	ev.Chain.Sequence = l.sequence + 1
	ev.Chain.PrevHash = l.prevHash
	ev.Chain.HMAC = l.mac(recordData(&ev))

	if err := l.appendEvent(&ev); err != nil {
		return err
	}
	l.sequence = ev.Chain.Sequence
	l.prevHash = ev.Chain.HMAC
	return l.saveChainState()
}

// Verify walks every record and checks sequence, links and HMACs.
func (l *Logger) Verify() (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return nil, ErrKeyNotSet
	}
	events, err := l.readAll()
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{Valid: true}
	prev := genesis
	var seq int64 = 1
	for i := range events {
		ev := &events[i]
		res.RecordsTotal++
		if ev.Chain.Sequence != seq {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("sequence gap at %s: expected %d, got %d", ev.ID, seq, ev.Chain.Sequence))
		}
		if ev.Chain.PrevHash != prev {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("chain broken at %s", ev.ID))
		}
		if !hmac.Equal([]byte(ev.Chain.HMAC), []byte(l.mac(recordData(ev)))) {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("HMAC mismatch at %s", ev.ID))
		}
		prev = ev.Chain.HMAC
		seq++
	}
	return res, nil
}

// ListEvents returns the most recent records after since. limit 0 means all.
func (l *Logger) ListEvents(limit int, since time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}
	events = filterTime(events, since, time.Time{})
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Export renders records between since and until as "json" or "csv".
func (l *Logger) Export(format string, since, until time.Time) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}
	events = filterTime(events, since, until)

	switch format {
	case "json":
		return json.MarshalIndent(events, "", "  ")
	case "csv":
		return formatCSV(events)
	default:
		return nil, fmt.Errorf("audit: unsupported format: %s", format)
	}
}

// Prune removes records older than olderThan and returns how many were removed.
// Pruning breaks verification of the remaining chain head; callers should
// export first if they need the history.
func (l *Logger) Prune(olderThan time.Duration, dryRun bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	files, err := l.logFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range files {
		events, err := readLogFile(file)
		if err != nil {
			return removed, fmt.Errorf("audit: failed to read %s: %w", file, err)
		}
		var keep []Event
		for _, ev := range events {
			ts, err := time.Parse(time.RFC3339Nano, ev.Timestamp)
			if err == nil && ts.Before(cutoff) {
				removed++
				continue
			}
			keep = append(keep, ev)
		}
		if dryRun || len(keep) == len(events) {
			continue
		}
		if len(keep) == 0 {
			err = os.Remove(file)
		} else {
			err = rewriteLogFile(file, keep)
		}
		if err != nil {
			return removed, fmt.Errorf("audit: failed to prune %s: %w", file, err)
		}
	}
	return removed, nil
}

func (l *Logger) mac(data []byte) string {
	m := hmac.New(sha256.New, l.hmacKey)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

// recordData is the canonical form covered by the chain HMAC.
func recordData(ev *Event) []byte {
	return []byte(strings.Join([]string{
		fmt.Sprint(ev.Version), ev.ID, ev.Timestamp, string(ev.Operation),
		ev.Source, ev.SessionID, ev.Subject, ev.Result, ev.Error,
		fmt.Sprint(ev.Chain.Sequence), ev.Chain.PrevHash,
	}, "|"))
}

func (l *Logger) appendEvent(ev *Event) error {
	name := filepath.Join(l.path, time.Now().UTC().Format("2006-01")+".jsonl")
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}
	return nil
}

func (l *Logger) loadChainState() error {
	data, err := os.ReadFile(filepath.Join(l.path, metaFileName))
	if err != nil {
		return err
	}
	var st chainState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	l.sequence, l.prevHash = st.Sequence, st.PrevHash
	return nil
}

func (l *Logger) saveChainState() error {
	data, err := json.Marshal(chainState{Sequence: l.sequence, PrevHash: l.prevHash})
	if err != nil {
		return fmt.Errorf("audit: failed to marshal chain state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.path, metaFileName), data, 0600); err != nil {
		return fmt.Errorf("audit: failed to save chain state: %w", err)
	}
	return nil
}

// logFiles returns the monthly files in chronological order.
func (l *Logger) logFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(l.path, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("audit: failed to list log files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Logger) readAll() ([]Event, error) {
	files, err := l.logFiles()
	if err != nil {
		return nil, err
	}
	var all []Event
	for _, file := range files {
		events, err := readLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to read %s: %w", file, err)
		}
		all = append(all, events...)
	}
	return all, nil
}

func readLogFile(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse line: %w", err)
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}

func rewriteLogFile(path string, events []Event) error {
	var buf bytes.Buffer
	for i := range events {
		data, err := json.Marshal(&events[i])
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func filterTime(events []Event, since, until time.Time) []Event {
	if since.IsZero() && until.IsZero() {
		return events
	}
	var out []Event
	for _, ev := range events {
		ts, err := time.Parse(time.RFC3339Nano, ev.Timestamp)
		if err != nil {
			continue
		}
		if !since.IsZero() && !ts.After(since) {
			continue
		}
		if !until.IsZero() && ts.After(until) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func formatCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"timestamp", "operation", "source", "result", "subject"}); err != nil {
		return nil, err
	}
	for _, ev := range events {
		subject := ev.Subject
		if len(subject) > 16 {
			subject = subject[:16]
		}
		row := []string{ev.Timestamp, string(ev.Operation), ev.Source, ev.Result, subject}
		for i, f := range row {
			row[i] = csvSafe(f)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// csvSafe defuses values a spreadsheet would evaluate as a formula.
func csvSafe(field string) string {
	if field != "" && strings.ContainsRune("=+-@", rune(field[0])) {
		return "'" + field
	}
	return field
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
