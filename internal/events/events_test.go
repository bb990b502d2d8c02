package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_NamesRoundTrip(t *testing.T) {
	for k := KindSessionStart; k <= KindError; k++ {
		name := k.String()
		require.NotEqual(t, "unknown", name, "kind %d has no wire name", k)
		assert.Equal(t, k, ParseKind(name))
	}
	assert.Equal(t, KindUnknown, ParseKind("content_block:start"))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "content delta",
			raw:  `{"event":"content_block:delta","data":{"session_id":"s1","block_index":2,"delta":"He"}}`,
			want: ContentDelta{Meta: Meta{SessionID: "s1"}, BlockIndex: 2, Delta: "He"},
		},
		{
			name: "thinking delta",
			raw:  `{"event":"thinking:delta","data":{"session_id":"s1","delta":"hmm"}}`,
			want: ThinkingDelta{Meta: Meta{SessionID: "s1"}, Delta: "hmm"},
		},
		{
			name: "tool pre",
			raw:  `{"event":"tool:pre","data":{"session_id":"s1","tool_name":"bash","operation":"bash","input":{"command":"ls"}}}`,
			want: ToolPre{Meta: Meta{SessionID: "s1"}, ToolName: "bash", Operation: "bash", Input: map[string]any{"command": "ls"}},
		},
		{
			name: "approval required",
			raw: `{"event":"approval:required","data":{"session_id":"s1","approval_id":"a1","prompt":"Allow running: ls",` +
				`"options":["AlwaysAllow","Allow","Deny"],"timeout":300.0,"default":"deny","context":{"tool_name":"bash"}}}`,
			want: ApprovalRequired{
				Meta:       Meta{SessionID: "s1"},
				ApprovalID: "a1",
				Prompt:     "Allow running: ls",
				Options:    []string{"AlwaysAllow", "Allow", "Deny"},
				Timeout:    300,
				Default:    "deny",
				Context:    map[string]any{"tool_name": "bash"},
			},
		},
		{
			name: "prompt complete with usage",
			raw:  `{"event":"prompt:complete","data":{"session_id":"s1","response":"done","token_usage":{"input_tokens":10,"output_tokens":4}}}`,
			want: PromptComplete{Meta: Meta{SessionID: "s1"}, Response: "done", TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 4}},
		},
		{
			name: "error event",
			raw:  `{"event":"error","data":{"session_id":"s1","error":"boom"}}`,
			want: Error{Meta: Meta{SessionID: "s1"}, Message: "boom"},
		},
		{
			name: "missing data",
			raw:  `{"event":"session:end"}`,
			want: SessionEnd{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestDecode_UnknownEvent(t *testing.T) {
	got, err := Decode([]byte(`{"event":"content_block:start","data":{"session_id":"s9","block_type":"text"}}`))
	require.NoError(t, err)

	u, ok := got.(Unknown)
	require.True(t, ok, "expected Unknown, got %T", got)
	assert.Equal(t, "content_block:start", u.Name)
	assert.Equal(t, "s9", u.Session())
	assert.JSONEq(t, `{"session_id":"s9","block_type":"text"}`, string(u.Data))
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "keepalive"},
		{name: "no event name", raw: `{"data":{"session_id":"s1"}}`},
		{name: "data not an object", raw: `{"event":"content_block:delta","data":"He"}`},
		{name: "wrong field type", raw: `{"event":"content_block:delta","data":{"delta":5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			assert.Nil(t, ev)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.NotEmpty(t, decodeErr.Raw)
		})
	}
}

func TestEncode_DecodeInverse(t *testing.T) {
	in := ApprovalDenied{Meta: Meta{SessionID: "s1"}, ApprovalID: "a1", Decision: "deny", Reason: "timeout"}
	raw, err := Encode(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `{"event":"approval:denied"`))

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
