// Package events carries playback events from engine timer callbacks to the
// Bubble Tea program and other queue consumers.
package events

import (
	"time"

	"github.com/agusx1211/scamsim/internal/eventq"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
)

// ClearedMsg signals a fresh session on a (possibly different) scenario.
type ClearedMsg struct {
	SessionID  string
	ScenarioID string
	Total      int
}

// TypingMsg shows the typing indicator for the persona turn at Index.
type TypingMsg struct {
	SessionID string
	Index     int
	Delay     time.Duration
}

// MessageMsg appends one turn to the chat.
type MessageMsg struct {
	SessionID string
	Index     int
	Role      scenario.Role
	Text      string
	Terminal  bool
}

// RevealMsg adds IOCs to the evidence pane.
type RevealMsg struct {
	SessionID string
	Index     int
	IOCs      []scenario.IOC
}

// EndedMsg signals a step past the last turn.
type EndedMsg struct {
	SessionID string
	Total     int
}

// TickMsg updates the elapsed clock.
type TickMsg struct {
	SessionID string
	Elapsed   time.Duration
}

// AutoPlayMsg reflects the auto-play flag.
type AutoPlayMsg struct {
	SessionID string
	Running   bool
}

// ClosedMsg is delivered once the event queue is closed.
type ClosedMsg struct{}

// QueueSink converts playback events into the Msg types above and pushes
// them onto an unbounded queue, so the engine never blocks on a slow
// consumer and no turn is lost.
type QueueSink struct {
	out *eventq.Queue[any]
}

// NewQueueSink returns a sink pushing onto q.
func NewQueueSink(q *eventq.Queue[any]) *QueueSink {
	return &QueueSink{out: q}
}

func (s *QueueSink) OnCleared(ev playback.Cleared) {
	s.out.Push(ClearedMsg{SessionID: ev.SessionID, ScenarioID: ev.ScenarioID, Total: ev.Total})
}

func (s *QueueSink) OnTyping(ev playback.Typing) {
	s.out.Push(TypingMsg{SessionID: ev.SessionID, Index: ev.Index, Delay: ev.Delay})
}

func (s *QueueSink) OnMessage(ev playback.Message) {
	s.out.Push(MessageMsg{SessionID: ev.SessionID, Index: ev.Index, Role: ev.Role, Text: ev.Text, Terminal: ev.Terminal})
}

func (s *QueueSink) OnReveal(ev playback.Reveal) {
	s.out.Push(RevealMsg{SessionID: ev.SessionID, Index: ev.Index, IOCs: append([]scenario.IOC(nil), ev.IOCs...)})
}

func (s *QueueSink) OnEnded(ev playback.Ended) {
	s.out.Push(EndedMsg{SessionID: ev.SessionID, Total: ev.Total})
}

func (s *QueueSink) OnTick(ev playback.Tick) {
	s.out.Push(TickMsg{SessionID: ev.SessionID, Elapsed: ev.Elapsed})
}

func (s *QueueSink) OnAutoPlay(ev playback.AutoPlayChanged) {
	s.out.Push(AutoPlayMsg{SessionID: ev.SessionID, Running: ev.Running})
}
