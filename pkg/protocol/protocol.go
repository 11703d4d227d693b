// Package protocol defines the JSON messages exchanged over the scamsim
// playback WebSocket.
//
// Every frame is one envelope:
//
//	{"type": "<kind>", "data": { ... }}
//
// Clients send commands:
//
//	{"type": "load", "data": {"scenario": "tech-support"}}
//	{"type": "step"}
//	{"type": "auto"}
//	{"type": "stop"}
//	{"type": "reset"}
//
// The server answers with playback events (cleared, typing, message, reveal,
// ended, tick, autoplay), a state snapshot after every command, and error
// frames for commands it cannot apply.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client command types.
const (
	CmdLoad  = "load"
	CmdStep  = "step"
	CmdAuto  = "auto"
	CmdStop  = "stop"
	CmdReset = "reset"
)

// Server message types.
const (
	MsgCleared  = "cleared"
	MsgTyping   = "typing"
	MsgMessage  = "message"
	MsgReveal   = "reveal"
	MsgEnded    = "ended"
	MsgTick     = "tick"
	MsgAutoPlay = "autoplay"
	MsgState    = "state"
	MsgError    = "error"
)

// WireMsg is the envelope for every frame.
type WireMsg struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoadCommand selects a scenario and starts a fresh session on it.
type LoadCommand struct {
	Scenario string `json:"scenario"`
}

// WireCleared starts a new session.
type WireCleared struct {
	SessionID string `json:"session_id"`
	Scenario  string `json:"scenario"`
	Total     int    `json:"total"`
}

// WireTyping shows a typing indicator for a persona turn.
type WireTyping struct {
	Index   int   `json:"index"`
	DelayMS int64 `json:"delay_ms"`
}

// WireMessage is one delivered turn.
type WireMessage struct {
	Index    int    `json:"index"`
	Role     string `json:"role"`
	Text     string `json:"text"`
	Terminal bool   `json:"terminal,omitempty"`
}

// WireIOC is one revealed indicator.
type WireIOC struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// WireReveal carries the IOCs unlocked by the turn at Index.
type WireReveal struct {
	Index int       `json:"index"`
	IOCs  []WireIOC `json:"iocs"`
}

// WireEnded is sent once when a step goes past the last turn.
type WireEnded struct {
	Total int `json:"total"`
}

// WireTick reports elapsed session time.
type WireTick struct {
	ElapsedMS int64  `json:"elapsed_ms"`
	Display   string `json:"display"`
}

// WireAutoPlay reports the auto-play flag.
type WireAutoPlay struct {
	Running bool `json:"running"`
}

// WireState is a full snapshot of the connection's engine.
type WireState struct {
	SessionID string    `json:"session_id"`
	Scenario  string    `json:"scenario,omitempty"`
	Cursor    int       `json:"cursor"`
	Total     int       `json:"total"`
	Phase     string    `json:"phase"`
	Running   bool      `json:"running"`
	Typing    bool      `json:"typing"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Revealed  []WireIOC `json:"revealed,omitempty"`
}

// WireError reports a rejected command.
type WireError struct {
	Error string `json:"error"`
}

// EncodeMsg wraps payload in an envelope. A nil payload omits data.
func EncodeMsg(msgType string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(WireMsg{Type: msgType, Data: data})
}

// DecodeMsg parses one envelope.
func DecodeMsg(frame []byte) (*WireMsg, error) {
	var msg WireMsg
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("protocol: message has no type")
	}
	return &msg, nil
}

// DecodeData unmarshals the envelope's data into T.
func DecodeData[T any](msg *WireMsg) (*T, error) {
	var v T
	if len(msg.Data) == 0 {
		return nil, fmt.Errorf("protocol: %s message has no data", msg.Type)
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", msg.Type, err)
	}
	return &v, nil
}

// FormatElapsed renders d milliseconds as MM:SS.
func FormatElapsed(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
