package playback

import (
	"time"

	"github.com/agusx1211/scamsim/internal/scenario"
)

// Cleared is emitted by Reset. It starts a new session.
type Cleared struct {
	SessionID  string
	ScenarioID string
	Total      int
}

// Typing is emitted when a persona turn is accepted but held back for the
// typing delay.
type Typing struct {
	SessionID string
	Index     int
	Role      scenario.Role
	Delay     time.Duration
}

// Message is one delivered turn. Terminal is set on the last turn.
type Message struct {
	SessionID string
	Index     int
	Role      scenario.Role
	Text      string
	Terminal  bool
}

// Reveal carries the IOCs unlocked by the turn at Index.
type Reveal struct {
	SessionID string
	Index     int
	IOCs      []scenario.IOC
}

// Ended is emitted once when Step is called past the last turn.
type Ended struct {
	SessionID string
	Total     int
}

// Tick reports elapsed session time, once per pacing tick.
type Tick struct {
	SessionID string
	Elapsed   time.Duration
}

// AutoPlayChanged reports the running flag flipping.
type AutoPlayChanged struct {
	SessionID string
	Running   bool
}

// Sink receives playback events in delivery order. Methods are called with
// the engine lock held and must not call back into the Engine.
type Sink interface {
	OnCleared(Cleared)
	OnTyping(Typing)
	OnMessage(Message)
	OnReveal(Reveal)
	OnEnded(Ended)
	OnTick(Tick)
	OnAutoPlay(AutoPlayChanged)
}

// Funcs adapts optional callbacks to a Sink. Nil fields are skipped.
type Funcs struct {
	Cleared  func(Cleared)
	Typing   func(Typing)
	Message  func(Message)
	Reveal   func(Reveal)
	Ended    func(Ended)
	Tick     func(Tick)
	AutoPlay func(AutoPlayChanged)
}

func (f Funcs) OnCleared(ev Cleared) {
	if f.Cleared != nil {
		f.Cleared(ev)
	}
}

func (f Funcs) OnTyping(ev Typing) {
	if f.Typing != nil {
		f.Typing(ev)
	}
}

func (f Funcs) OnMessage(ev Message) {
	if f.Message != nil {
		f.Message(ev)
	}
}

func (f Funcs) OnReveal(ev Reveal) {
	if f.Reveal != nil {
		f.Reveal(ev)
	}
}

func (f Funcs) OnEnded(ev Ended) {
	if f.Ended != nil {
		f.Ended(ev)
	}
}

func (f Funcs) OnTick(ev Tick) {
	if f.Tick != nil {
		f.Tick(ev)
	}
}

func (f Funcs) OnAutoPlay(ev AutoPlayChanged) {
	if f.AutoPlay != nil {
		f.AutoPlay(ev)
	}
}

// Tee returns a Sink that forwards every event to each sink in order.
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type tee []Sink

func (t tee) OnCleared(ev Cleared) {
	for _, s := range t {
		s.OnCleared(ev)
	}
}

func (t tee) OnTyping(ev Typing) {
	for _, s := range t {
		s.OnTyping(ev)
	}
}

func (t tee) OnMessage(ev Message) {
	for _, s := range t {
		s.OnMessage(ev)
	}
}

func (t tee) OnReveal(ev Reveal) {
	for _, s := range t {
		s.OnReveal(ev)
	}
}

func (t tee) OnEnded(ev Ended) {
	for _, s := range t {
		s.OnEnded(ev)
	}
}

func (t tee) OnTick(ev Tick) {
	for _, s := range t {
		s.OnTick(ev)
	}
}

func (t tee) OnAutoPlay(ev AutoPlayChanged) {
	for _, s := range t {
		s.OnAutoPlay(ev)
	}
}
