// Package playback steps through a scripted scenario one turn at a time,
// either on demand or on an auto-play timer, and reports each delivered turn
// and every IOC it unlocks to a Sink.
package playback

import (
	"sync"
	"time"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/hexid"
	"github.com/agusx1211/scamsim/internal/scenario"
)

// Phase is the engine's position in a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the engine's session.
type State struct {
	SessionID  string
	ScenarioID string
	Generation uint64
	Cursor     int
	Total      int
	Phase      Phase
	Running    bool
	Typing     bool
	Elapsed    time.Duration
	Revealed   []scenario.IOC
}

// Options configures an Engine. Zero values fall back to the wall clock,
// DefaultPacing, RandomJitter and hexid session ids.
type Options struct {
	Pacing    Pacing
	Clock     Clock
	Jitter    Jitter
	SessionID func() string
}

// Engine owns one playback session at a time. It is safe for concurrent use.
type Engine struct {
	sink      Sink
	pacing    Pacing
	clock     Clock
	jitter    Jitter
	sessionID func() string

	mu        sync.Mutex
	closed    bool
	gen       uint64
	sc        *scenario.Scenario
	session   string
	byIndex   map[int][]int
	revealed  map[int]bool
	unlocked  []scenario.IOC
	cursor    int
	started   bool
	endNotice bool
	running   bool
	typing    bool
	ticks     int

	// pending holds the single scheduled continuation: either a typing
	// delivery or the next auto-play step.
	pending slot
	tick    slot
}

// slot holds at most one armed timer. Re-arming or clearing it invalidates
// callbacks from any earlier arming.
type slot struct {
	timer Timer
	seq   uint64
}

func (s *slot) arm(c Clock, d time.Duration, fire func(seq uint64)) {
	s.clear()
	seq := s.seq
	s.timer = c.AfterFunc(d, func() { fire(seq) })
}

func (s *slot) clear() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

// take reports whether seq belongs to the armed timer and disarms it.
func (s *slot) take(seq uint64) bool {
	if s.timer == nil || s.seq != seq {
		return false
	}
	s.timer = nil
	return true
}

// New returns an idle engine with no scenario loaded. Call Reset to load one.
func New(sink Sink, opts Options) *Engine {
	if sink == nil {
		sink = Funcs{}
	}
	e := &Engine{
		sink:      sink,
		pacing:    opts.Pacing,
		clock:     opts.Clock,
		jitter:    opts.Jitter,
		sessionID: opts.SessionID,
	}
	if e.pacing == (Pacing{}) {
		e.pacing = DefaultPacing()
	}
	if e.pacing.Tick <= 0 {
		e.pacing.Tick = time.Second
	}
	if e.clock == nil {
		e.clock = WallClock()
	}
	if e.jitter == nil {
		e.jitter = RandomJitter
	}
	if e.sessionID == nil {
		e.sessionID = hexid.New
	}
	return e
}

// Reset cancels every pending timer and starts a fresh session on sc. The
// cursor returns to 0, revealed IOCs and elapsed time are cleared, and
// auto-play stops. Passing a different scenario switches scenarios.
func (e *Engine) Reset(sc *scenario.Scenario) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.pending.clear()
	e.tick.clear()
	e.gen++
	e.sc = sc
	e.session = e.sessionID()
	e.byIndex = indexIOCs(sc)
	e.revealed = make(map[int]bool)
	e.unlocked = nil
	e.cursor = 0
	e.started = false
	e.endNotice = false
	e.running = false
	e.typing = false
	e.ticks = 0

	debug.LogKV("playback", "session reset",
		"session", e.session,
		"scenario", scenarioID(sc),
		"generation", e.gen,
		"turns", e.totalLocked(),
	)
	e.sink.OnCleared(Cleared{SessionID: e.session, ScenarioID: scenarioID(sc), Total: e.totalLocked()})
}

// Step advances exactly one turn. Past the last turn the first call emits
// Ended and later calls do nothing until Reset. While a persona turn is
// still typing the call is absorbed so turns cannot be skipped or reordered.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked()
}

// StartAutoPlay steps now and keeps stepping after each delivery until the
// conversation ends or StopAutoPlay is called. It is a no-op while running.
func (e *Engine) StartAutoPlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.sc == nil || e.running {
		return
	}
	if e.cursor >= e.totalLocked() {
		e.stepLocked()
		return
	}

	e.running = true
	debug.LogKV("playback", "auto-play started", "session", e.session, "cursor", e.cursor)
	e.sink.OnAutoPlay(AutoPlayChanged{SessionID: e.session, Running: true})
	if e.typing {
		// The in-flight delivery schedules the next step.
		return
	}
	e.stepLocked()
}

// StopAutoPlay cancels the scheduled auto-play step. A persona turn that is
// already typing is still delivered. Idempotent.
func (e *Engine) StopAutoPlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopAutoPlayLocked()
}

// ToggleAutoPlay starts auto-play when stopped and stops it when running.
func (e *Engine) ToggleAutoPlay() {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		e.StopAutoPlay()
		return
	}
	e.StartAutoPlay()
}

// Elapsed returns the session time counted so far.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.ticks) * e.pacing.Tick
}

// Snapshot returns a copy of the current session state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		SessionID:  e.session,
		ScenarioID: scenarioID(e.sc),
		Generation: e.gen,
		Cursor:     e.cursor,
		Total:      e.totalLocked(),
		Phase:      e.phaseLocked(),
		Running:    e.running,
		Typing:     e.typing,
		Elapsed:    time.Duration(e.ticks) * e.pacing.Tick,
		Revealed:   append([]scenario.IOC(nil), e.unlocked...),
	}
}

// Close stops every timer. The engine ignores all calls afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.pending.clear()
	e.tick.clear()
	e.gen++
	e.running = false
	e.typing = false
	debug.LogKV("playback", "engine closed", "session", e.session)
}

func (e *Engine) stepLocked() {
	if e.closed || e.sc == nil || e.typing {
		return
	}

	total := e.totalLocked()
	if e.cursor >= total {
		if e.endNotice {
			return
		}
		e.endNotice = true
		debug.LogKV("playback", "conversation ended", "session", e.session, "turns", total)
		e.sink.OnEnded(Ended{SessionID: e.session, Total: total})
		return
	}

	// A manual step takes the place of a scheduled auto-play step.
	e.pending.clear()

	if !e.started {
		e.started = true
		e.armTickLocked()
	}

	turn := e.sc.Turns[e.cursor]
	if turn.Role == scenario.RolePersona {
		if delay := e.pacing.Typing.pick(e.jitter); delay > 0 {
			e.typing = true
			e.sink.OnTyping(Typing{SessionID: e.session, Index: e.cursor, Role: turn.Role, Delay: delay})
			gen := e.gen
			e.pending.arm(e.clock, delay, func(seq uint64) { e.fireTyping(gen, seq) })
			return
		}
	}
	e.deliverLocked()
}

func (e *Engine) fireTyping(gen, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || !e.pending.take(seq) || !e.typing {
		debug.LogKV("playback", "dropped stale typing timer", "generation", gen, "current", e.gen)
		return
	}
	e.typing = false
	e.deliverLocked()
}

func (e *Engine) fireAutoPlay(gen, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || !e.pending.take(seq) || !e.running {
		debug.LogKV("playback", "dropped stale auto-play timer", "generation", gen, "current", e.gen)
		return
	}
	e.stepLocked()
}

func (e *Engine) fireTick(gen, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || !e.tick.take(seq) {
		return
	}
	e.ticks++
	e.sink.OnTick(Tick{SessionID: e.session, Elapsed: time.Duration(e.ticks) * e.pacing.Tick})
	e.armTickLocked()
}

func (e *Engine) armTickLocked() {
	gen := e.gen
	e.tick.arm(e.clock, e.pacing.Tick, func(seq uint64) { e.fireTick(gen, seq) })
}

// deliverLocked emits the turn under the cursor, reveals its IOCs, then
// advances the cursor.
func (e *Engine) deliverLocked() {
	idx := e.cursor
	total := e.totalLocked()
	turn := e.sc.Turns[idx]

	e.sink.OnMessage(Message{
		SessionID: e.session,
		Index:     idx,
		Role:      turn.Role,
		Text:      turn.Text,
		Terminal:  idx == total-1,
	})

	var iocs []scenario.IOC
	for _, pos := range e.byIndex[idx] {
		if e.revealed[pos] {
			continue
		}
		e.revealed[pos] = true
		iocs = append(iocs, e.sc.IOCs[pos])
	}
	if len(iocs) > 0 {
		e.unlocked = append(e.unlocked, iocs...)
		debug.LogKV("playback", "iocs revealed", "session", e.session, "index", idx, "count", len(iocs))
		e.sink.OnReveal(Reveal{SessionID: e.session, Index: idx, IOCs: iocs})
	}

	e.cursor++

	if e.cursor >= total {
		e.tick.clear()
		e.stopAutoPlayLocked()
		return
	}
	if e.running {
		gen := e.gen
		delay := e.pacing.AutoPlay.pick(e.jitter)
		e.pending.arm(e.clock, delay, func(seq uint64) { e.fireAutoPlay(gen, seq) })
	}
}

func (e *Engine) stopAutoPlayLocked() {
	if !e.running {
		return
	}
	e.running = false
	if !e.typing {
		e.pending.clear()
	}
	debug.LogKV("playback", "auto-play stopped", "session", e.session, "cursor", e.cursor)
	e.sink.OnAutoPlay(AutoPlayChanged{SessionID: e.session, Running: false})
}

func (e *Engine) totalLocked() int {
	if e.sc == nil {
		return 0
	}
	return len(e.sc.Turns)
}

func (e *Engine) phaseLocked() Phase {
	switch {
	case e.sc != nil && e.cursor >= len(e.sc.Turns):
		return PhaseEnded
	case e.started:
		return PhasePlaying
	default:
		return PhaseIdle
	}
}

// indexIOCs maps each reveal index to the positions of its IOCs.
func indexIOCs(sc *scenario.Scenario) map[int][]int {
	out := make(map[int][]int)
	if sc == nil {
		return out
	}
	for i, ioc := range sc.IOCs {
		out[ioc.RevealAt] = append(out[ioc.RevealAt], i)
	}
	return out
}

func scenarioID(sc *scenario.Scenario) string {
	if sc == nil {
		return ""
	}
	return sc.ID
}
