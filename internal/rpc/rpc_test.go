package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anchora "github.com/vremyavnikuda/anchora"
)

// echoHandler returns its params as the result.
type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, req Request) Response {
	return ResultResponse(req.Params)
}

func serve(t *testing.T, handler Handler, input string) []Response {
	t.Helper()
	var out bytes.Buffer
	s := NewServer(handler, strings.NewReader(input), &out)
	require.NoError(t, s.Serve(context.Background()))

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServe_EchoesResult(t *testing.T) {
	t.Parallel()
	responses := serve(t, echoHandler{}, `{"jsonrpc":"2.0","method":"echo","params":{"x":1},"id":1}`+"\n")
	require.Len(t, responses, 1)
	assert.Equal(t, "2.0", responses[0].JSONRPC)
	assert.Nil(t, responses[0].Error)
	require.NotNil(t, responses[0].ID)
	assert.Equal(t, "1", string(*responses[0].ID))
}

func TestServe_ParseError(t *testing.T) {
	t.Parallel()
	responses := serve(t, echoHandler{}, "{broken\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32700, responses[0].Error.Code)
}

func TestServe_InvalidRequest(t *testing.T) {
	t.Parallel()
	// Wrong version and missing method both fail the envelope check.
	responses := serve(t, echoHandler{},
		`{"jsonrpc":"1.0","method":"x","id":1}`+"\n"+`{"jsonrpc":"2.0","id":2}`+"\n")
	require.Len(t, responses, 2)
	for _, resp := range responses {
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32600, resp.Error.Code)
	}
}

func TestServe_NotificationGetsNoResponse(t *testing.T) {
	t.Parallel()
	responses := serve(t, echoHandler{}, `{"jsonrpc":"2.0","method":"echo"}`+"\n")
	assert.Empty(t, responses)
}

// nilResultHandler succeeds with no payload.
type nilResultHandler struct{}

func (nilResultHandler) Handle(ctx context.Context, req Request) Response {
	return ResultResponse(nil)
}

func TestServe_NilResultSerializesAsNull(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	s := NewServer(nilResultHandler{}, strings.NewReader(`{"jsonrpc":"2.0","method":"x","id":1}`+"\n"), &out)
	require.NoError(t, s.Serve(context.Background()))

	line := strings.TrimSpace(out.String())
	assert.Contains(t, line, `"result":null`)
	assert.NotContains(t, line, `"error"`)
}

func TestServe_SkipsBlankLines(t *testing.T) {
	t.Parallel()
	responses := serve(t, echoHandler{}, "\n  \n"+`{"jsonrpc":"2.0","method":"echo","id":7}`+"\n")
	assert.Len(t, responses, 1)
}

func newTestHandler(t *testing.T) *TaskHandler {
	t.Helper()
	engine, err := anchora.New(t.TempDir(), anchora.WithSearchPath(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewTaskHandler(engine)
}

func call(t *testing.T, h *TaskHandler, method string, params any) Response {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}
	return h.Handle(context.Background(), Request{JSONRPC: Version, Method: method, Params: raw})
}

func TestTaskHandler_MethodNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	resp := call(t, h, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
}

func TestTaskHandler_InvalidParams(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	resp := h.Handle(context.Background(), Request{
		JSONRPC: Version, Method: "create_task", Params: json.RawMessage(`"not an object"`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestTaskHandler_CreateAndFetchTasks(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)

	resp := call(t, h, "create_task", CreateTaskParams{Section: "dev", TaskID: "cache", Title: "Build the cache"})
	require.Nil(t, resp.Error)

	resp = call(t, h, "get_tasks", nil)
	require.Nil(t, resp.Error)
	doc, err := json.Marshal(resp.Result)
	require.NoError(t, err)

	var parsed struct {
		Sections map[string]map[string]struct {
			Title string `json:"title"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))
	assert.Equal(t, "Build the cache", parsed.Sections["dev"]["cache"].Title)
}

func TestTaskHandler_StatusAndDelete(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	require.Nil(t, call(t, h, "create_task", CreateTaskParams{Section: "dev", TaskID: "cache", Title: "t"}).Error)

	resp := call(t, h, "update_task_status", UpdateTaskStatusParams{Section: "dev", TaskID: "cache", Status: "done"})
	require.Nil(t, resp.Error)

	resp = call(t, h, "update_task_status", UpdateTaskStatusParams{Section: "dev", TaskID: "cache", Status: "bogus"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)

	resp = call(t, h, "delete_task", TaskParams{Section: "dev", TaskID: "cache"})
	require.Nil(t, resp.Error)

	resp = call(t, h, "delete_task", TaskParams{Section: "dev", TaskID: "cache"})
	assert.NotNil(t, resp.Error)
}

func TestTaskHandler_NotesFlow(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)

	resp := call(t, h, "create_note", CreateNoteParams{Title: "Fix the cache"})
	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var created struct {
		NoteID string `json:"note_id"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEmpty(t, created.NoteID)

	resp = call(t, h, "generate_task_link", NoteParams{NoteID: created.NoteID})
	require.Nil(t, resp.Error)
	data, err = json.Marshal(resp.Result)
	require.NoError(t, err)
	var link struct {
		Link string `json:"link"`
	}
	require.NoError(t, json.Unmarshal(data, &link))
	assert.Equal(t, "// notes:fix_the_cache:todo: Fix the cache", link.Link)

	resp = call(t, h, "delete_note", NoteParams{NoteID: created.NoteID})
	assert.Nil(t, resp.Error)
}

func TestTaskHandler_SearchRejectsBadStatus(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	resp := call(t, h, "search_tasks", SearchTasksParams{Query: "x", Statuses: []string{"bogus"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestTaskHandler_StatisticsAndOverview(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	require.Nil(t, call(t, h, "create_task", CreateTaskParams{Section: "dev", TaskID: "cache", Title: "t"}).Error)

	resp := call(t, h, "get_task_overview", nil)
	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var overview struct {
		TotalTasks int `json:"total_tasks"`
	}
	require.NoError(t, json.Unmarshal(data, &overview))
	assert.Equal(t, 1, overview.TotalTasks)

	resp = call(t, h, "get_statistics", nil)
	assert.Nil(t, resp.Error)
}
