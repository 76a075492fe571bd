package socketio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(t *testing.T, s *Session, raw string) Step {
	t.Helper()
	f, err := Decode(raw)
	require.NoError(t, err)
	return s.Step(f)
}

func TestSessionHandshake(t *testing.T) {
	s := NewSession("abc")
	assert.Equal(t, Connecting, s.State())

	st := step(t, s, `0{"sid":"engine","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`)
	assert.Equal(t, []string{"40"}, st.Send)
	assert.Equal(t, AwaitingNamespaceAck, s.State())

	st = step(t, s, `40{"sid":"abc123"}`)
	assert.Equal(t, []string{`42["getSources",{"id":"abc"}]`}, st.Send)
	assert.Equal(t, "abc123", s.SID())
	assert.Equal(t, AwaitingResult, s.State())

	st = step(t, s, `42["getSources",{"title":"x"}]`)
	assert.False(t, st.Terminal, "request-shaped echo must be ignored")
	assert.Equal(t, AwaitingResult, s.State())

	st = step(t, s, `42{"sources":[{"file":"http://x/a.m3u8","type":"hls","label":"1080p"}],"encrypted":false}`)
	require.True(t, st.Terminal)
	assert.True(t, st.Close)
	assert.Equal(t, `{"sources":[{"file":"http://x/a.m3u8","type":"hls","label":"1080p"}],"encrypted":false}`, st.Result)
	assert.Equal(t, Closed, s.State())

	st = step(t, s, `42{"sources":[]}`)
	assert.Equal(t, Step{}, st, "closed session ignores frames")
}

func TestSessionIgnoresUnexpectedFrames(t *testing.T) {
	s := NewSession("abc")

	assert.Equal(t, Step{}, step(t, s, `40{"sid":"early"}`))
	assert.Equal(t, Step{}, step(t, s, `42{"sources":[]}`))
	assert.Equal(t, Connecting, s.State())
	assert.Empty(t, s.SID())

	step(t, s, `0{}`)
	assert.Equal(t, Step{}, step(t, s, `42{"sources":[]}`))
	assert.Equal(t, AwaitingNamespaceAck, s.State())
}

func TestSessionPing(t *testing.T) {
	s := NewSession("abc")
	step(t, s, `0{}`)

	st := step(t, s, "2")
	assert.Equal(t, []string{"3"}, st.Send)
	assert.Equal(t, AwaitingNamespaceAck, s.State())

	s.Abort()
	assert.Equal(t, Step{}, step(t, s, "2"))
}

func TestSessionResultDetection(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		terminal bool
		result   string
	}{
		{name: "bare object", payload: `{"sources":[],"tracks":[]}`, terminal: true, result: `{"sources":[],"tracks":[]}`},
		{name: "bare echo of request", payload: `{ "id": "abc" }`, terminal: false},
		{name: "event with result", payload: `["getSources",{"sources":"U2FsdGVk","encrypted":true}]`, terminal: true, result: `{"sources":"U2FsdGVk","encrypted":true}`},
		{name: "event echo of request", payload: `["getSources",{"id":"abc"}]`, terminal: false},
		{name: "event without result keys", payload: `["getSources",{"title":"x"}]`, terminal: false},
		{name: "malformed object", payload: `{"sources":`, terminal: false},
		{name: "malformed array", payload: `["getSources",`, terminal: false},
		{name: "scalar", payload: `"hello"`, terminal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("abc")
			step(t, s, `0{}`)
			step(t, s, `40{}`)

			st := step(t, s, "42"+tt.payload)
			assert.Equal(t, tt.terminal, st.Terminal)
			if tt.terminal {
				assert.Equal(t, tt.result, st.Result)
				assert.Equal(t, Closed, s.State())
			} else {
				assert.Equal(t, AwaitingResult, s.State())
			}
		})
	}
}
