package socketio

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// State is the position of a Session in the handshake.
type State int

const (
	Connecting State = iota
	AwaitingNamespaceAck
	AwaitingResult
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AwaitingNamespaceAck:
		return "awaiting-namespace-ack"
	case AwaitingResult:
		return "awaiting-result"
	case Closed:
		return "closed"
	default:
		return "invalid"
	}
}

// CloseReason is sent with the close frame once the result has arrived.
const CloseReason = "41"

var sidPattern = regexp.MustCompile(`"sid"\s*:\s*"([^"]*)"`)

// resultKeys are the fields that make an event argument look like a getSources
// answer rather than an echo of the request.
var resultKeys = []string{"sources", "sources_1", "sources_2", "sourcesBackup", "tracks", "encrypted"}

// Step is the set of side effects produced by one transition.
type Step struct {
	Send     []string // frames to write, in order
	Terminal bool     // the result has arrived
	Result   string   // JSON object text of the result, when Terminal
	Close    bool     // the connection should be closed
}

// Session tracks one getSources exchange. It is not safe for concurrent use;
// a single reader goroutine owns it.
type Session struct {
	pageID      string
	state       State
	sid         string
	lastRequest string
}

// NewSession starts a session that will request sources for pageID.
func NewSession(pageID string) *Session {
	return &Session{pageID: pageID, state: Connecting}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// SID returns the session id captured from the namespace ack, if any.
func (s *Session) SID() string { return s.sid }

// Abort moves the session to Closed; later frames are ignored.
func (s *Session) Abort() { s.state = Closed }

// Step applies one inbound frame. Frames that are unexpected in the current
// state produce an empty Step.
func (s *Session) Step(f Frame) Step {
	if s.state == Closed {
		return Step{}
	}

	if f.Opcode == OpPing {
		return Step{Send: []string{Frame{Opcode: OpPong}.Encode()}}
	}

	switch s.state {
	case Connecting:
		if f.Opcode == OpOpen {
			s.state = AwaitingNamespaceAck
			return Step{Send: []string{Frame{Opcode: OpConnect}.Encode()}}
		}
	case AwaitingNamespaceAck:
		if f.Opcode == OpConnect {
			if m := sidPattern.FindStringSubmatch(f.Payload); m != nil {
				s.sid = m[1]
			}
			req := RequestFrame(s.pageID)
			s.lastRequest = requestArgs(req)
			s.state = AwaitingResult
			return Step{Send: []string{req}}
		}
	case AwaitingResult:
		if f.Opcode == OpEvent {
			obj, ok := s.resultObject(f.Payload)
			if !ok {
				return Step{}
			}
			s.state = Closed
			return Step{Terminal: true, Result: obj, Close: true}
		}
	}
	return Step{}
}

// resultObject extracts the JSON object carried by an event payload and
// reports whether it is a result. A bare object is a result unless it equals
// the request we sent; an event array must also carry result keys.
func (s *Session) resultObject(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(payload, "{"):
		if !json.Valid([]byte(payload)) || s.isEcho(payload) {
			return "", false
		}
		return payload, true
	case strings.HasPrefix(payload, "["):
		var parts []json.RawMessage
		if err := json.Unmarshal([]byte(payload), &parts); err != nil {
			return "", false
		}
		for _, p := range parts {
			obj := strings.TrimSpace(string(p))
			if !strings.HasPrefix(obj, "{") {
				continue
			}
			if s.isEcho(obj) || !hasResultKeys(obj) {
				return "", false
			}
			return obj, true
		}
	}
	return "", false
}

func (s *Session) isEcho(obj string) bool {
	return s.lastRequest != "" && compact(obj) == s.lastRequest
}

func hasResultKeys(obj string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return false
	}
	for _, k := range resultKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// requestArgs returns the compact argument object of a request frame.
func requestArgs(frame string) string {
	f, err := Decode(frame)
	if err != nil {
		return ""
	}
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(f.Payload), &parts); err != nil || len(parts) < 2 {
		return ""
	}
	return compact(string(parts[1]))
}

func compact(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
