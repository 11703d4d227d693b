package playback

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/agusx1211/scamsim/internal/scenario"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock fires callbacks only when Advance moves time past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	order   int
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, at: c.now + d, order: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing due timers in deadline order. A
// callback may schedule new timers; those fire too if they fall inside d.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.order < next.order) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// leakyClock never cancels anything: Stop reports false and every callback
// stays runnable, like a time.AfterFunc whose goroutine already started.
type leakyClock struct {
	mu  sync.Mutex
	fns []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	c.fns = append(c.fns, f)
	c.mu.Unlock()
	return leakyTimer{}
}

func (c *leakyClock) captured() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]func(){}, c.fns...)
}

// recorder logs every event as a short string.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.log = append(r.log, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.log = nil
	r.mu.Unlock()
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, ev := range r.events() {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) OnCleared(ev Cleared) { r.add("cleared %s %d", ev.ScenarioID, ev.Total) }
func (r *recorder) OnTyping(ev Typing) { r.add("typing %d", ev.Index) }
func (r *recorder) OnEnded(ev Ended) { r.add("ended %d", ev.Total) }
func (r *recorder) OnTick(ev Tick) { r.add("tick %s", ev.Elapsed) }
func (r *recorder) OnAutoPlay(ev AutoPlayChanged) { r.add("auto %v", ev.Running) }

func (r *recorder) OnMessage(ev Message) {
	if ev.Terminal {
		r.add("message %d %s terminal", ev.Index, ev.Role)
		return
	}
	r.add("message %d %s", ev.Index, ev.Role)
}

func (r *recorder) OnReveal(ev Reveal) {
	vals := make([]string, 0, len(ev.IOCs))
	for _, ioc := range ev.IOCs {
		vals = append(vals, ioc.Value)
	}
	r.add("reveal %d %s", ev.Index, strings.Join(vals, ","))
}

// eightTurns has persona turns at odd indices and IOCs at 4 and 6.
func eightTurns() *scenario.Scenario {
	sc := &scenario.Scenario{ID: "demo", Persona: "p"}
	for i := range 8 {
		role := scenario.RoleScammer
		if i%2 == 1 {
			role = scenario.RolePersona
		}
		sc.Turns = append(sc.Turns, scenario.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	sc.IOCs = []scenario.IOC{
		{Category: "upi", Value: "a@upi", RevealAt: 6},
		{Category: "phone", Value: "+91", RevealAt: 4},
		{Category: "url", Value: "b.example", RevealAt: 6},
	}
	return sc
}

func scammerOnly(n int) *scenario.Scenario {
	sc := &scenario.Scenario{ID: "plain", Persona: "p"}
	for i := range n {
		sc.Turns = append(sc.Turns, scenario.Turn{Role: scenario.RoleScammer, Text: fmt.Sprintf("line %d", i)})
	}
	return sc
}

var testPacing = Pacing{
	AutoPlay: Range{Min: 2 * time.Second, Max: 2 * time.Second},
	Typing:   Range{Min: time.Second, Max: time.Second},
	Tick:     time.Second,
}

func newTestEngine(t *testing.T, p Pacing) (*Engine, *fakeClock, *recorder) {
	t.Helper()
	clk := &fakeClock{}
	rec := &recorder{}
	n := 0
	e := New(rec, Options{
		Pacing: p,
		Clock:  clk,
		Jitter: NoJitter,
		SessionID: func() string {
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
	t.Cleanup(e.Close)
	return e, clk, rec
}

func TestStepDeliversTurnsInOrder(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(eightTurns())
	rec.reset()

	for range 8 {
		e.Step()
	}

	want := []string{
		"message 0 scammer",
		"message 1 persona",
		"message 2 scammer",
		"message 3 persona",
		"message 4 scammer",
		"reveal 4 +91",
		"message 5 persona",
		"message 6 scammer",
		"reveal 6 a@upi,b.example",
		"message 7 persona terminal",
	}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if got := e.Snapshot().Phase; got != PhaseEnded {
		t.Fatalf("phase = %v, want %v", got, PhaseEnded)
	}
}

func TestStepPastEndEmitsEndedOnce(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(scammerOnly(2))
	for range 5 {
		e.Step()
	}
	if got := rec.count("ended"); got != 1 {
		t.Fatalf("ended events = %d, want 1", got)
	}
	if got := rec.count("message"); got != 2 {
		t.Fatalf("message events = %d, want 2", got)
	}
	if got := e.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}
}

func TestEmptyScenarioEndsImmediately(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(&scenario.Scenario{ID: "empty"})
	e.Step()
	e.Step()
	want := []string{"cleared empty 0", "ended 0"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNilScenarioIgnoresCommands(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Step()
	e.StartAutoPlay()
	e.StopAutoPlay()
	clk.Advance(time.Minute)
	if got := rec.events(); len(got) != 0 {
		t.Fatalf("events = %v, want none", got)
	}
	if got := e.Snapshot().Phase; got != PhaseIdle {
		t.Fatalf("phase = %v, want %v", got, PhaseIdle)
	}
}

func TestPersonaTurnWaitsForTypingDelay(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	e.Step()
	e.Step()
	rec.reset()

	if !e.Snapshot().Typing {
		t.Fatal("Typing = false after stepping onto a persona turn")
	}
	clk.Advance(999 * time.Millisecond)
	if got := rec.count("message"); got != 0 {
		t.Fatalf("persona turn delivered before typing delay: %v", rec.events())
	}
	clk.Advance(time.Millisecond)
	if got := rec.count("message 1 persona"); got != 1 {
		t.Fatalf("persona turn not delivered after typing delay: %v", rec.events())
	}
	if e.Snapshot().Typing {
		t.Fatal("Typing = true after delivery")
	}
}

func TestStepWhileTypingIsAbsorbed(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	e.Step()
	e.Step() // persona starts typing
	e.Step()
	e.Step()
	clk.Advance(time.Second)

	var msgs []string
	for _, ev := range rec.events() {
		if strings.HasPrefix(ev, "message") {
			msgs = append(msgs, ev)
		}
	}
	want := []string{"message 0 scammer", "message 1 persona"}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := e.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}
}

func TestZeroTypingDelayDeliversImmediately(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(eightTurns())
	e.Step()
	e.Step()
	if got := rec.count("typing"); got != 0 {
		t.Fatalf("typing events = %d, want 0", got)
	}
	if got := e.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}
}

func TestAutoPlayRunsToEnd(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	rec.reset()

	e.StartAutoPlay()
	// 4 scammer turns + 4 persona turns each preceded by a 2s pause
	// after the first, plus 1s of typing per persona turn.
	clk.Advance(time.Minute)

	st := e.Snapshot()
	if st.Cursor != 8 {
		t.Fatalf("cursor = %d, want 8", st.Cursor)
	}
	if st.Running {
		t.Fatal("Running = true after reaching the end")
	}
	if got := rec.count("ended"); got != 0 {
		t.Fatalf("ended events = %d, want 0 from auto-play", got)
	}
	if got := rec.count("typing"); got != 4 {
		t.Fatalf("typing events = %d, want 4", got)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0", clk.Pending())
	}

	var autos []string
	for _, ev := range rec.events() {
		if strings.HasPrefix(ev, "auto") {
			autos = append(autos, ev)
		}
	}
	if diff := cmp.Diff([]string{"auto true", "auto false"}, autos); diff != "" {
		t.Fatalf("auto-play events mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoPlayPacing(t *testing.T) {
	e, clk, _ := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(3))

	e.StartAutoPlay()
	if got := e.Snapshot().Cursor; got != 1 {
		t.Fatalf("cursor after start = %d, want 1", got)
	}
	clk.Advance(1999 * time.Millisecond)
	if got := e.Snapshot().Cursor; got != 1 {
		t.Fatalf("cursor before pause elapsed = %d, want 1", got)
	}
	clk.Advance(time.Millisecond)
	if got := e.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor after pause = %d, want 2", got)
	}
}

func TestStartAutoPlayWhileRunningIsNoop(t *testing.T) {
	e, _, rec := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(4))
	e.StartAutoPlay()
	e.StartAutoPlay()
	if got := rec.count("message"); got != 1 {
		t.Fatalf("message events = %d, want 1", got)
	}
	if got := rec.count("auto true"); got != 1 {
		t.Fatalf("auto-play start events = %d, want 1", got)
	}
}

func TestStopAutoPlayIsIdempotent(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(4))
	e.StartAutoPlay()
	e.StopAutoPlay()
	e.StopAutoPlay()
	clk.Advance(time.Minute)

	if got := e.Snapshot().Cursor; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
	if got := rec.count("auto false"); got != 1 {
		t.Fatalf("auto-play stop events = %d, want 1", got)
	}
}

func TestStopAutoPlayLetsTypingFinish(t *testing.T) {
	e, clk, _ := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	e.StartAutoPlay()            // delivers 0, schedules step in 2s
	clk.Advance(2 * time.Second) // persona 1 starts typing
	if !e.Snapshot().Typing {
		t.Fatal("Typing = false, want persona typing")
	}
	e.StopAutoPlay()
	clk.Advance(time.Minute)

	st := e.Snapshot()
	if st.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", st.Cursor)
	}
	if st.Running || st.Typing {
		t.Fatalf("Running=%v Typing=%v, want both false", st.Running, st.Typing)
	}
}

func TestToggleAutoPlay(t *testing.T) {
	e, _, _ := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(4))
	e.ToggleAutoPlay()
	if !e.Snapshot().Running {
		t.Fatal("Running = false after first toggle")
	}
	e.ToggleAutoPlay()
	if e.Snapshot().Running {
		t.Fatal("Running = true after second toggle")
	}
}

func TestStartAutoPlayAtEndEmitsEndedOnce(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(scammerOnly(1))
	e.Step()
	e.StartAutoPlay()
	e.StartAutoPlay()
	if got := rec.count("ended"); got != 1 {
		t.Fatalf("ended events = %d, want 1", got)
	}
	if e.Snapshot().Running {
		t.Fatal("Running = true at end")
	}
}

func TestManualStepCancelsScheduledAutoStep(t *testing.T) {
	e, clk, _ := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(5))
	e.StartAutoPlay() // cursor 1, next in 2s
	clk.Advance(time.Second)
	e.Step() // cursor 2, next rescheduled to 2s from now
	clk.Advance(1500 * time.Millisecond)
	if got := e.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2 (old auto step should be cancelled)", got)
	}
	clk.Advance(500 * time.Millisecond)
	if got := e.Snapshot().Cursor; got != 3 {
		t.Fatalf("cursor = %d, want 3", got)
	}
}

func TestResetDropsStaleTimers(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	e.StartAutoPlay()
	clk.Advance(2 * time.Second) // persona typing in flight

	e.Reset(eightTurns())
	rec.reset()
	clk.Advance(time.Minute)

	if got := rec.events(); len(got) != 0 {
		t.Fatalf("events after reset = %v, want none", got)
	}
	st := e.Snapshot()
	if st.Cursor != 0 || st.Running || st.Typing || st.Elapsed != 0 || len(st.Revealed) != 0 {
		t.Fatalf("state after reset = %+v, want fresh", st)
	}
	if st.Phase != PhaseIdle {
		t.Fatalf("phase = %v, want %v", st.Phase, PhaseIdle)
	}
}

func TestCallbacksFromEarlierSessionDeliverNothing(t *testing.T) {
	clk := &leakyClock{}
	rec := &recorder{}
	e := New(rec, Options{Pacing: testPacing, Clock: clk, Jitter: NoJitter})
	defer e.Close()

	e.Reset(eightTurns())
	e.StartAutoPlay()
	for _, f := range clk.captured() {
		f() // tick plus the auto step, which starts typing turn 1
	}
	if !e.Snapshot().Typing {
		t.Fatalf("state = %+v, want persona typing", e.Snapshot())
	}
	stale := clk.captured()

	e.Reset(eightTurns())
	rec.reset()
	for _, f := range stale {
		f()
	}
	if got := rec.events(); len(got) != 0 {
		t.Fatalf("events after firing %d stale callbacks = %v, want none", len(stale), got)
	}
	st := e.Snapshot()
	if st.Cursor != 0 || st.Typing || st.Running || st.Elapsed != 0 {
		t.Fatalf("state after stale callbacks = %+v, want fresh", st)
	}

	// Stale callbacks must not touch the next session either.
	e.Step()
	for _, f := range stale {
		f()
	}
	want := []string{"message 0 scammer"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if got := e.Snapshot().Cursor; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
}

func TestRepeatedCallbackFiresOnce(t *testing.T) {
	clk := &leakyClock{}
	rec := &recorder{}
	e := New(rec, Options{Pacing: testPacing, Clock: clk, Jitter: NoJitter})
	defer e.Close()

	e.Reset(scammerOnly(3))
	e.StartAutoPlay()
	fns := clk.captured()
	for range 3 {
		for _, f := range fns {
			f()
		}
	}
	if got := rec.count("message"); got != 2 {
		t.Fatalf("messages = %d, want 2 (first step plus one auto step)", got)
	}
	if got := rec.count("tick"); got != 1 {
		t.Fatalf("ticks = %d, want 1", got)
	}
}

func TestResetStartsNewSession(t *testing.T) {
	e, _, rec := newTestEngine(t, Instant())
	e.Reset(eightTurns())
	first := e.Snapshot()
	e.Reset(scammerOnly(2))
	second := e.Snapshot()

	if first.SessionID == second.SessionID {
		t.Fatalf("session id reused: %q", first.SessionID)
	}
	if second.Generation <= first.Generation {
		t.Fatalf("generation = %d, want > %d", second.Generation, first.Generation)
	}
	if second.ScenarioID != "plain" || second.Total != 2 {
		t.Fatalf("state = %+v, want plain scenario with 2 turns", second)
	}
	want := []string{"cleared demo 8", "cleared plain 2"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRevealedIOCsAccumulate(t *testing.T) {
	e, _, _ := newTestEngine(t, Instant())
	e.Reset(eightTurns())
	for range 5 {
		e.Step()
	}
	if got := len(e.Snapshot().Revealed); got != 1 {
		t.Fatalf("revealed = %d, want 1", got)
	}
	for range 3 {
		e.Step()
	}
	var got []string
	for _, ioc := range e.Snapshot().Revealed {
		got = append(got, ioc.Value)
	}
	sort.Strings(got)
	if diff := cmp.Diff([]string{"+91", "a@upi", "b.example"}, got); diff != "" {
		t.Fatalf("revealed mismatch (-want +got):\n%s", diff)
	}
}

func TestElapsedClock(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(3))

	clk.Advance(5 * time.Second)
	if got := e.Elapsed(); got != 0 {
		t.Fatalf("Elapsed before first step = %v, want 0", got)
	}

	e.Step()
	clk.Advance(3 * time.Second)
	if got := e.Elapsed(); got != 3*time.Second {
		t.Fatalf("Elapsed = %v, want 3s", got)
	}
	if got := rec.count("tick"); got != 3 {
		t.Fatalf("tick events = %d, want 3", got)
	}

	e.Step()
	e.Step() // end of conversation stops the clock
	clk.Advance(10 * time.Second)
	if got := e.Elapsed(); got != 3*time.Second {
		t.Fatalf("Elapsed after end = %v, want 3s", got)
	}
}

func TestElapsedKeepsRunningWhenAutoPlayStops(t *testing.T) {
	e, clk, _ := newTestEngine(t, testPacing)
	e.Reset(scammerOnly(4))
	e.StartAutoPlay()
	e.StopAutoPlay()
	clk.Advance(4 * time.Second)
	if got := e.Elapsed(); got != 4*time.Second {
		t.Fatalf("Elapsed = %v, want 4s", got)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	e, clk, rec := newTestEngine(t, testPacing)
	e.Reset(eightTurns())
	e.StartAutoPlay()
	e.Close()
	rec.reset()

	clk.Advance(time.Minute)
	e.Step()
	e.StartAutoPlay()
	e.Reset(eightTurns())
	if got := rec.events(); len(got) != 0 {
		t.Fatalf("events after Close = %v, want none", got)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0", clk.Pending())
	}
}

func TestWallClockAutoPlay(t *testing.T) {
	done := make(chan struct{})
	var once sync.Once
	e := New(Funcs{
		AutoPlay: func(ev AutoPlayChanged) {
			if !ev.Running {
				once.Do(func() { close(done) })
			}
		},
	}, Options{
		Pacing: Pacing{
			AutoPlay: Range{Min: time.Millisecond, Max: 3 * time.Millisecond},
			Typing:   Range{Min: time.Millisecond, Max: 2 * time.Millisecond},
			Tick:     time.Millisecond,
		},
	})
	defer e.Close()

	e.Reset(eightTurns())
	e.StartAutoPlay()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("auto-play did not finish")
	}
	if got := e.Snapshot().Cursor; got != 8 {
		t.Fatalf("cursor = %d, want 8", got)
	}
}

func TestRangePick(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		jitter Jitter
		want   time.Duration
	}{
		{name: "min only", r: Range{Min: time.Second, Max: 2 * time.Second}, jitter: NoJitter, want: time.Second},
		{name: "max jitter reaches max", r: Range{Min: time.Second, Max: 2 * time.Second}, jitter: func(n time.Duration) time.Duration { return n - 1 }, want: 2 * time.Second},
		{name: "fixed range", r: Range{Min: time.Second, Max: time.Second}, jitter: func(n time.Duration) time.Duration { return n }, want: time.Second},
		{name: "inverted range", r: Range{Min: time.Second, Max: 0}, jitter: func(n time.Duration) time.Duration { return n }, want: time.Second},
		{name: "negative clamps", r: Range{Min: -time.Second}, jitter: NoJitter, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.pick(tt.jitter); got != tt.want {
				t.Fatalf("pick() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRandomJitterBounds(t *testing.T) {
	if got := RandomJitter(0); got != 0 {
		t.Fatalf("RandomJitter(0) = %v, want 0", got)
	}
	for range 100 {
		if got := RandomJitter(time.Second); got < 0 || got >= time.Second {
			t.Fatalf("RandomJitter(1s) = %v, want [0, 1s)", got)
		}
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{PhaseIdle: "idle", PhasePlaying: "playing", PhaseEnded: "ended", Phase(9): "unknown"} {
		if got := p.String(); got != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
