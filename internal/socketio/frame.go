// Package socketio implements the small subset of the engine.io/socket.io
// text protocol needed to ask a resolver endpoint for stream sources.
package socketio

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Opcodes seen on the wire. Socket.io packets ride inside engine.io message
// packets, so a namespace connect is "4"+"0" = 40 and an event is 42.
const (
	OpOpen       = 0
	OpClose      = 1
	OpPing       = 2
	OpPong       = 3
	OpConnect    = 40
	OpDisconnect = 41
	OpEvent      = 42
)

// ErrNoOpcode is returned for frames that do not start with a decimal opcode.
var ErrNoOpcode = errors.New("frame has no opcode")

// Frame is a decoded text frame.
type Frame struct {
	Opcode  int
	Payload string
}

// Decode splits a raw frame into its leading decimal opcode and the payload
// that follows it. The payload is not validated.
func Decode(raw string) (Frame, error) {
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == 0 {
		return Frame{}, ErrNoOpcode
	}
	op, err := strconv.Atoi(raw[:i])
	if err != nil {
		return Frame{}, ErrNoOpcode
	}
	return Frame{Opcode: op, Payload: raw[i:]}, nil
}

// Encode renders a frame back to wire text.
func (f Frame) Encode() string {
	return strconv.Itoa(f.Opcode) + f.Payload
}

// EventName is the event the resolver answers.
const EventName = "getSources"

type sourcesRequest struct {
	ID string `json:"id"`
}

// RequestFrame builds 42["getSources",{"id":"<pageID>"}].
func RequestFrame(pageID string) string {
	args, _ := json.Marshal([]any{EventName, sourcesRequest{ID: pageID}})
	return Frame{Opcode: OpEvent, Payload: string(args)}.Encode()
}
