package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/eventq"
	"github.com/agusx1211/scamsim/internal/events"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
	"github.com/agusx1211/scamsim/pkg/protocol"
)

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 15 * time.Second
)

// stateMsg and errorMsg are queued behind the engine's own events so the
// client sees them in the order commands were applied.
type stateMsg struct{ state playback.State }

type errorMsg struct{ err string }

// player is one WebSocket connection and the engine it owns.
type player struct {
	srv     *Server
	ws      *websocket.Conn
	queue   *eventq.Queue[any]
	engine  *playback.Engine
	current *scenario.Scenario
}

func (srv *Server) handlePlayWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(wsReadLimit)

	queue := eventq.NewQueue[any]()
	defer queue.Close()
	p := &player{
		srv:   srv,
		ws:    ws,
		queue: queue,
		engine: playback.New(events.NewQueueSink(queue), playback.Options{
			Pacing: srv.pacing,
			Clock:  srv.clock,
		}),
	}
	defer p.engine.Close()

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return p.readLoop(ctx) })
	g.Go(func() error { return p.writeLoop(ctx) })
	err = g.Wait()

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		debug.LogKV("webserver", "playback socket closed", "remote", r.RemoteAddr)
		return
	}
	debug.LogKV("webserver", "playback socket ended", "remote", r.RemoteAddr, "error", err)
	ws.Close(websocket.StatusInternalError, "playback ended")
}

func (p *player) readLoop(ctx context.Context) error {
	for {
		typ, data, err := p.ws.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			p.fail("binary frames are not supported")
			continue
		}
		msg, err := protocol.DecodeMsg(data)
		if err != nil {
			p.fail(err.Error())
			continue
		}
		if err := p.apply(msg); err != nil {
			p.fail(err.Error())
			continue
		}
		p.queue.Push(stateMsg{state: p.engine.Snapshot()})
	}
}

func (p *player) apply(msg *protocol.WireMsg) error {
	debug.LogKV("webserver", "playback command", "type", msg.Type)
	switch msg.Type {
	case protocol.CmdLoad:
		cmd, err := protocol.DecodeData[protocol.LoadCommand](msg)
		if err != nil {
			return err
		}
		sc, err := p.srv.Catalog().Scenario(cmd.Scenario)
		if err != nil {
			return err
		}
		p.current = sc
		p.engine.Reset(sc)
	case protocol.CmdReset:
		if p.current == nil {
			return errors.New("no scenario loaded")
		}
		p.engine.Reset(p.current)
	case protocol.CmdStep:
		if p.current == nil {
			return errors.New("no scenario loaded")
		}
		p.engine.Step()
	case protocol.CmdAuto:
		if p.current == nil {
			return errors.New("no scenario loaded")
		}
		p.engine.StartAutoPlay()
	case protocol.CmdStop:
		p.engine.StopAutoPlay()
	default:
		return fmt.Errorf("unknown command %q", msg.Type)
	}
	return nil
}

func (p *player) fail(reason string) {
	p.queue.Push(errorMsg{err: reason})
}

func (p *player) writeLoop(ctx context.Context) error {
	for {
		ev, ok := p.queue.Pop(ctx)
		if !ok {
			return ctx.Err()
		}
		msgType, payload, ok := toWire(ev)
		if !ok {
			continue
		}
		frame, err := protocol.EncodeMsg(msgType, payload)
		if err != nil {
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err = p.ws.Write(writeCtx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			return err
		}
	}
}

func toWire(ev any) (string, any, bool) {
	switch ev := ev.(type) {
	case events.ClearedMsg:
		return protocol.MsgCleared, protocol.WireCleared{SessionID: ev.SessionID, Scenario: ev.ScenarioID, Total: ev.Total}, true
	case events.TypingMsg:
		return protocol.MsgTyping, protocol.WireTyping{Index: ev.Index, DelayMS: ev.Delay.Milliseconds()}, true
	case events.MessageMsg:
		return protocol.MsgMessage, protocol.WireMessage{Index: ev.Index, Role: string(ev.Role), Text: ev.Text, Terminal: ev.Terminal}, true
	case events.RevealMsg:
		return protocol.MsgReveal, protocol.WireReveal{Index: ev.Index, IOCs: wireIOCs(ev.IOCs)}, true
	case events.EndedMsg:
		return protocol.MsgEnded, protocol.WireEnded{Total: ev.Total}, true
	case events.TickMsg:
		ms := ev.Elapsed.Milliseconds()
		return protocol.MsgTick, protocol.WireTick{ElapsedMS: ms, Display: protocol.FormatElapsed(ms)}, true
	case events.AutoPlayMsg:
		return protocol.MsgAutoPlay, protocol.WireAutoPlay{Running: ev.Running}, true
	case stateMsg:
		st := ev.state
		return protocol.MsgState, protocol.WireState{
			SessionID: st.SessionID,
			Scenario:  st.ScenarioID,
			Cursor:    st.Cursor,
			Total:     st.Total,
			Phase:     st.Phase.String(),
			Running:   st.Running,
			Typing:    st.Typing,
			ElapsedMS: st.Elapsed.Milliseconds(),
			Revealed:  wireIOCs(st.Revealed),
		}, true
	case errorMsg:
		return protocol.MsgError, protocol.WireError{Error: ev.err}, true
	default:
		return "", nil, false
	}
}

func wireIOCs(iocs []scenario.IOC) []protocol.WireIOC {
	out := make([]protocol.WireIOC, 0, len(iocs))
	for _, ioc := range iocs {
		out = append(out, protocol.WireIOC{Category: ioc.Category, Value: ioc.Value})
	}
	return out
}
