// Package recording captures playback sessions as timestamped transcripts and
// persists them as JSON files.
package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
)

// Event types.
const (
	EventTyping   = "typing"
	EventMessage  = "message"
	EventReveal   = "reveal"
	EventEnded    = "ended"
	EventAutoPlay = "autoplay"
)

// Event is one recorded playback event.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Index     int            `json:"index,omitempty"`
	Role      scenario.Role  `json:"role,omitempty"`
	Text      string         `json:"text,omitempty"`
	IOCs      []scenario.IOC `json:"iocs,omitempty"`
	Running   *bool          `json:"running,omitempty"`
}

// Transcript is everything recorded for one session.
type Transcript struct {
	SessionID  string        `json:"session_id"`
	ScenarioID string        `json:"scenario_id"`
	Total      int           `json:"total"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Events     []Event       `json:"events"`
}

// Recorder is a playback.Sink that keeps the transcript of every session it
// sees. A Cleared event closes the current transcript and starts a new one.
type Recorder struct {
	Dir string

	now func() time.Time

	mu       sync.Mutex
	cur      Transcript
	finished []Transcript
}

// New creates a Recorder that saves into dir.
func New(dir string) *Recorder {
	return &Recorder{Dir: dir, now: time.Now}
}

func (r *Recorder) OnCleared(ev playback.Cleared) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A session nobody stepped through is not worth keeping.
	if r.cur.SessionID != "" && len(r.cur.Events) > 0 {
		r.finished = append(r.finished, r.cur)
	}
	r.cur = Transcript{
		SessionID:  ev.SessionID,
		ScenarioID: ev.ScenarioID,
		Total:      ev.Total,
		StartedAt:  r.now().UTC(),
	}
}

func (r *Recorder) OnTyping(ev playback.Typing) {
	r.record(Event{Type: EventTyping, Index: ev.Index, Role: ev.Role})
}

func (r *Recorder) OnMessage(ev playback.Message) {
	r.record(Event{Type: EventMessage, Index: ev.Index, Role: ev.Role, Text: ev.Text})
}

func (r *Recorder) OnReveal(ev playback.Reveal) {
	r.record(Event{Type: EventReveal, Index: ev.Index, IOCs: append([]scenario.IOC(nil), ev.IOCs...)})
}

func (r *Recorder) OnEnded(ev playback.Ended) {
	r.record(Event{Type: EventEnded, Index: ev.Total})
}

// OnTick only updates the elapsed time; ticks are not stored as events.
func (r *Recorder) OnTick(ev playback.Tick) {
	r.mu.Lock()
	r.cur.Elapsed = ev.Elapsed
	r.mu.Unlock()
}

func (r *Recorder) OnAutoPlay(ev playback.AutoPlayChanged) {
	running := ev.Running
	r.record(Event{Type: EventAutoPlay, Running: &running})
}

func (r *Recorder) record(ev Event) {
	ev.Timestamp = r.now().UTC()
	r.mu.Lock()
	r.cur.Events = append(r.cur.Events, ev)
	r.mu.Unlock()
}

// Transcript returns a copy of the current session's transcript.
func (r *Recorder) Transcript() Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.cur
	t.Events = append([]Event(nil), r.cur.Events...)
	return t
}

// Sessions returns the finished transcripts followed by the current one.
func (r *Recorder) Sessions() []Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transcript, 0, len(r.finished)+1)
	for _, t := range r.finished {
		t.Events = append([]Event(nil), t.Events...)
		out = append(out, t)
	}
	if r.cur.SessionID != "" {
		t := r.cur
		t.Events = append([]Event(nil), r.cur.Events...)
		out = append(out, t)
	}
	return out
}

// Save writes the current transcript to <Dir>/<session-id>.json and returns
// the path.
func (r *Recorder) Save() (string, error) {
	t := r.Transcript()
	if t.SessionID == "" {
		return "", fmt.Errorf("recording: no session recorded")
	}
	return r.write(t)
}

// SaveAll writes every recorded session, oldest first, and returns the
// paths. It writes nothing when no session was started.
func (r *Recorder) SaveAll() ([]string, error) {
	var paths []string
	for _, t := range r.Sessions() {
		path, err := r.write(t)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Recorder) write(t Transcript) (string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", fmt.Errorf("recording: create dir %s: %w", r.Dir, err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("recording: encode: %w", err)
	}
	path := filepath.Join(r.Dir, t.SessionID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("recording: write %s: %w", path, err)
	}
	debug.LogKV("recording", "transcript saved", "path", path, "events", len(t.Events))
	return path, nil
}

// Load reads a transcript written by Save.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("recording: decode %s: %w", path, err)
	}
	return &t, nil
}

// List returns the transcript files in dir, oldest name first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
