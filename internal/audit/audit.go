// Package audit writes a tamper-evident log of playback sessions. Each JSON
// line carries the hash of its own canonical body and a chain hash linking
// it to the line before, so editing or deleting any line breaks the chain
// from that point on.
package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/playback"
)

// Entry is the hashed body of one audit line.
type Entry struct {
	ID       string `json:"id"`
	Time     string `json:"ts"`
	Event    string `json:"event"`
	Session  string `json:"session"`
	Scenario string `json:"scenario,omitempty"`
	Index    int    `json:"index"`
	Detail   string `json:"detail,omitempty"`
}

// line is the full on-disk record.
type line struct {
	Entry
	EntryHash string `json:"entry_hash"`
	PrevHash  string `json:"prev_hash"`
	ChainHash string `json:"chain_hash"`
}

// Log is a playback.Sink appending hash-chained entries to a file.
type Log struct {
	path   string
	file   *os.File
	sink   *writeTracker
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	prev     string
	scenario string
	written  int
	failed   int
	closed   bool
}

// writeTracker remembers the last error the file returned to zap, which
// otherwise only reports it on its error output.
type writeTracker struct {
	zapcore.WriteSyncer
	err error
}

func (w *writeTracker) Write(p []byte) (int, error) {
	n, err := w.WriteSyncer.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

// Open opens (or creates) the audit log at path. An existing chain is
// continued from its last line.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	prev, err := lastChainHash(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey: "event",
		LineEnding: zapcore.DefaultLineEnding,
	})
	sink := &writeTracker{WriteSyncer: zapcore.AddSync(f)}
	core := zapcore.NewCore(enc, sink, zapcore.InfoLevel)

	return &Log{
		path:   path,
		file:   f,
		sink:   sink,
		logger: zap.New(core, zap.ErrorOutput(zapcore.AddSync(io.Discard))),
		now:    time.Now,
		prev:   prev,
	}, nil
}

// Path returns the file the log writes to.
func (l *Log) Path() string { return l.path }

// Written returns the number of entries appended since Open.
func (l *Log) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Failed returns the number of entries that could not be hashed or written.
// A failed entry does not advance the chain.
func (l *Log) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_ = l.logger.Sync()
	return l.file.Close()
}

// Append hashes e onto the chain and writes it. ID and Time are filled in
// when empty.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time == "" {
		e.Time = l.now().UTC().Format(time.RFC3339Nano)
	}
	entryHash, err := hashEntry(e)
	if err != nil {
		l.failed++
		debug.LogKV("audit", "entry not hashed", "event", e.Event, "session", e.Session, "error", err)
		return
	}
	chain := chainHash(entryHash, l.prev)

	l.sink.err = nil
	l.logger.Info(e.Event,
		zap.String("id", e.ID),
		zap.String("ts", e.Time),
		zap.String("session", e.Session),
		zap.String("scenario", e.Scenario),
		zap.Int("index", e.Index),
		zap.String("detail", e.Detail),
		zap.String("entry_hash", entryHash),
		zap.String("prev_hash", l.prev),
		zap.String("chain_hash", chain),
	)
	if l.sink.err != nil {
		l.failed++
		debug.LogKV("audit", "entry not written", "path", l.path, "event", e.Event, "error", l.sink.err)
		return
	}
	l.prev = chain
	l.written++
}

func (l *Log) OnCleared(ev playback.Cleared) {
	l.mu.Lock()
	l.scenario = ev.ScenarioID
	l.mu.Unlock()
	l.Append(Entry{Event: "session_reset", Session: ev.SessionID, Scenario: ev.ScenarioID, Index: ev.Total})
}

// OnTyping is not audited.
func (l *Log) OnTyping(playback.Typing) {}

func (l *Log) OnMessage(ev playback.Message) {
	l.Append(Entry{Event: "turn_delivered", Session: ev.SessionID, Scenario: l.currentScenario(), Index: ev.Index, Detail: string(ev.Role)})
}

func (l *Log) OnReveal(ev playback.Reveal) {
	cats := make([]string, 0, len(ev.IOCs))
	for _, ioc := range ev.IOCs {
		cats = append(cats, ioc.Category)
	}
	l.Append(Entry{Event: "iocs_revealed", Session: ev.SessionID, Scenario: l.currentScenario(), Index: ev.Index, Detail: strings.Join(cats, ",")})
}

func (l *Log) OnEnded(ev playback.Ended) {
	l.Append(Entry{Event: "session_ended", Session: ev.SessionID, Scenario: l.currentScenario(), Index: ev.Total})
}

// OnTick is not audited.
func (l *Log) OnTick(playback.Tick) {}

func (l *Log) OnAutoPlay(ev playback.AutoPlayChanged) {
	name := "autoplay_stopped"
	if ev.Running {
		name = "autoplay_started"
	}
	l.Append(Entry{Event: name, Session: ev.SessionID, Scenario: l.currentScenario()})
}

func (l *Log) currentScenario() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scenario
}

// hashEntry returns sha256 over the canonical JSON body. Map keys marshal in
// sorted order, which keeps the encoding stable across field reordering.
func hashEntry(e Entry) (string, error) {
	body := map[string]any{
		"id":       e.ID,
		"ts":       e.Time,
		"event":    e.Event,
		"session":  e.Session,
		"scenario": e.Scenario,
		"index":    e.Index,
		"detail":   e.Detail,
	}
	canonical, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func chainHash(entryHash, prev string) string {
	sum := sha256.Sum256([]byte(entryHash + ":" + prev))
	return hex.EncodeToString(sum[:])
}

func lastChainHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("audit: read %s: %w", path, err)
	}
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return "", nil
	}
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	var last line
	if err := json.Unmarshal(data, &last); err != nil {
		return "", fmt.Errorf("audit: last line of %s is not an audit entry: %w", path, err)
	}
	return last.ChainHash, nil
}

// ChainError reports the first line at which the chain no longer verifies.
type ChainError struct {
	Line   int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain broken at line %d: %s", e.Line, e.Reason)
}

// Verify recomputes every hash in the file and returns the number of valid
// entries. The error is a *ChainError when the chain is broken.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	prev := ""
	n, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return n, &ChainError{Line: lineNo, Reason: "malformed JSON"}
		}
		want, err := hashEntry(l.Entry)
		if err != nil {
			return n, &ChainError{Line: lineNo, Reason: err.Error()}
		}
		switch {
		case want != l.EntryHash:
			return n, &ChainError{Line: lineNo, Reason: "entry hash mismatch"}
		case l.PrevHash != prev:
			return n, &ChainError{Line: lineNo, Reason: "previous hash mismatch"}
		case chainHash(l.EntryHash, prev) != l.ChainHash:
			return n, &ChainError{Line: lineNo, Reason: "chain hash mismatch"}
		}
		prev = l.ChainHash
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("audit: read %s: %w", path, err)
	}
	return n, nil
}
