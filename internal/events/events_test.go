package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agusx1211/scamsim/internal/eventq"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
)

func drainQueue(q *eventq.Queue[any]) []any {
	var got []any
	for {
		msg, ok := q.TryPop()
		if !ok {
			return got
		}
		got = append(got, msg)
	}
}

func TestQueueSinkConvertsEvents(t *testing.T) {
	q := eventq.NewQueue[any]()
	s := NewQueueSink(q)

	s.OnCleared(playback.Cleared{SessionID: "s1", ScenarioID: "demo", Total: 2})
	s.OnTyping(playback.Typing{SessionID: "s1", Index: 1, Role: scenario.RolePersona, Delay: time.Second})
	s.OnMessage(playback.Message{SessionID: "s1", Index: 1, Role: scenario.RolePersona, Text: "hi", Terminal: true})
	s.OnReveal(playback.Reveal{SessionID: "s1", Index: 1, IOCs: []scenario.IOC{{Category: "upi", Value: "x@y", RevealAt: 1}}})
	s.OnEnded(playback.Ended{SessionID: "s1", Total: 2})
	s.OnTick(playback.Tick{SessionID: "s1", Elapsed: 2 * time.Second})
	s.OnAutoPlay(playback.AutoPlayChanged{SessionID: "s1", Running: true})

	want := []any{
		ClearedMsg{SessionID: "s1", ScenarioID: "demo", Total: 2},
		TypingMsg{SessionID: "s1", Index: 1, Delay: time.Second},
		MessageMsg{SessionID: "s1", Index: 1, Role: scenario.RolePersona, Text: "hi", Terminal: true},
		RevealMsg{SessionID: "s1", Index: 1, IOCs: []scenario.IOC{{Category: "upi", Value: "x@y", RevealAt: 1}}},
		EndedMsg{SessionID: "s1", Total: 2},
		TickMsg{SessionID: "s1", Elapsed: 2 * time.Second},
		AutoPlayMsg{SessionID: "s1", Running: true},
	}
	if diff := cmp.Diff(want, drainQueue(q)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestQueueSinkKeepsEveryTurnForSlowConsumer(t *testing.T) {
	q := eventq.NewQueue[any]()
	e := playback.New(NewQueueSink(q), playback.Options{Pacing: playback.Instant()})
	defer e.Close()

	sc := &scenario.Scenario{ID: "long"}
	for i := range 500 {
		sc.Turns = append(sc.Turns, scenario.Turn{Role: scenario.RoleScammer, Text: fmt.Sprintf("turn %d", i)})
		sc.IOCs = append(sc.IOCs, scenario.IOC{Category: "url", Value: fmt.Sprintf("u%d.example", i), RevealAt: i})
	}
	e.Reset(sc)
	// Nothing reads until every step has been taken.
	for range len(sc.Turns) {
		e.Step()
	}

	var messages, reveals []int
	for _, msg := range drainQueue(q) {
		switch msg := msg.(type) {
		case MessageMsg:
			messages = append(messages, msg.Index)
		case RevealMsg:
			reveals = append(reveals, msg.Index)
		}
	}
	want := make([]int, len(sc.Turns))
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Fatalf("delivered message indexes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, reveals); diff != "" {
		t.Fatalf("revealed indexes (-want +got):\n%s", diff)
	}
}

func TestQueueSinkWithEngine(t *testing.T) {
	q := eventq.NewQueue[any]()
	e := playback.New(NewQueueSink(q), playback.Options{Pacing: playback.Instant()})
	defer e.Close()

	e.Reset(&scenario.Scenario{ID: "one", Turns: []scenario.Turn{{Role: scenario.RoleScammer, Text: "hello"}}})
	e.Step()

	ctx := context.Background()
	first, _ := q.Pop(ctx)
	if msg, ok := first.(ClearedMsg); !ok || msg.ScenarioID != "one" {
		t.Fatalf("first message = %#v, want ClearedMsg for one", first)
	}
	second, _ := q.Pop(ctx)
	if msg, ok := second.(MessageMsg); !ok || msg.Text != "hello" || !msg.Terminal {
		t.Fatalf("second message = %#v, want terminal hello", second)
	}
}
