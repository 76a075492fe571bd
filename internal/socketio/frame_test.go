package socketio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		op      int
		payload string
		wantErr bool
	}{
		{name: "open", raw: `0{"sid":"x","pingInterval":25000}`, op: 0, payload: `{"sid":"x","pingInterval":25000}`},
		{name: "namespace ack", raw: `40{"sid":"abc123"}`, op: 40, payload: `{"sid":"abc123"}`},
		{name: "event", raw: `42["getSources",{"id":"a"}]`, op: 42, payload: `["getSources",{"id":"a"}]`},
		{name: "bare ping", raw: "2", op: 2, payload: ""},
		{name: "no opcode", raw: `{"sid":"x"}`, wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "overflow", raw: "99999999999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoOpcode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, f.Opcode)
			assert.Equal(t, tt.payload, f.Payload)
			assert.Equal(t, tt.raw, f.Encode())
		})
	}
}

func TestRequestFrame(t *testing.T) {
	assert.Equal(t, `42["getSources",{"id":"dcPOVRE57YOT"}]`, RequestFrame("dcPOVRE57YOT"))
}
