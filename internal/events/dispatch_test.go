package events

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func frame(name, data string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"data":%s}`, name, data))
}

func TestDispatch_PreservesOrder(t *testing.T) {
	var seen []string
	h := &Handlers{
		OnContentDelta:   func(ev ContentDelta) { seen = append(seen, "delta:"+ev.Delta) },
		OnPromptComplete: func(ev PromptComplete) { seen = append(seen, "complete:"+ev.Response) },
	}

	Dispatch(frame("content_block:delta", `{"session_id":"s1","delta":"He"}`), h)
	Dispatch(frame("content_block:delta", `{"session_id":"s1","delta":"llo"}`), h)
	Dispatch(frame("prompt:complete", `{"session_id":"s1","response":"Hello"}`), h)

	assert.Equal(t, []string{"delta:He", "delta:llo", "complete:Hello"}, seen)
}

func TestDispatch_ManyEventsOnceEachInOrder(t *testing.T) {
	var got []int
	h := &Handlers{OnContentDelta: func(ev ContentDelta) { got = append(got, ev.BlockIndex) }}

	want := make([]int, 200)
	for i := range want {
		want[i] = i
		Dispatch(frame("content_block:delta", fmt.Sprintf(`{"session_id":"s1","block_index":%d,"delta":"x"}`, i)), h)
	}
	assert.Equal(t, want, got)
}

func TestDispatch_RoutesToSingleHandler(t *testing.T) {
	calls := map[string]int{}
	h := &Handlers{
		OnToolPre:          func(ToolPre) { calls["tool:pre"]++ },
		OnToolPost:         func(ToolPost) { calls["tool:post"]++ },
		OnApprovalRequired: func(ApprovalRequired) { calls["approval:required"]++ },
		OnError:            func(Error) { calls["error"]++ },
	}

	Dispatch(frame("tool:post", `{"session_id":"s1","tool_name":"bash","duration_ms":12.5}`), h)
	assert.Equal(t, map[string]int{"tool:post": 1}, calls)
}

func TestDispatch_DropsMalformedAndUnknown(t *testing.T) {
	delivered := 0
	h := &Handlers{
		OnContentDelta: func(ContentDelta) { delivered++ },
		OnError:        func(Error) { delivered++ },
	}

	Dispatch([]byte("keepalive"), h)
	Dispatch([]byte(`{"event":"content_block:delta","data":[1,2]}`), h)
	Dispatch(frame("content_block:start", `{"session_id":"s1"}`), h)
	Dispatch(frame("content_block:delta", `{"session_id":"s1","delta":"ok"}`), h)

	assert.Equal(t, 1, delivered)
}

func TestDispatch_NilHandlers(t *testing.T) {
	assert.NotPanics(t, func() {
		Dispatch(frame("warning", `{"session_id":"s1","message":"careful"}`), &Handlers{})
		Dispatch(frame("warning", `{"session_id":"s1","message":"careful"}`), nil)
	})
}

func TestDispatch_LogsToHandlersLogger(t *testing.T) {
	var buf bytes.Buffer
	h := &Handlers{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	assert.Nil(t, Dispatch([]byte("keepalive"), h))
	assert.Equal(t, KindWarning, Dispatch(frame("warning", `{"session_id":"s1","message":"careful"}`), h).Kind())
	Dispatch(frame("content_block:start", `{"session_id":"s1"}`), h)

	assert.Contains(t, buf.String(), "dropping malformed event")
	assert.Contains(t, buf.String(), "ignoring unknown event")
}
