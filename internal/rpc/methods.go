package rpc

import (
	"context"
	"encoding/json"

	anchora "github.com/vremyavnikuda/anchora"
	"github.com/vremyavnikuda/anchora/internal/graph"
	"github.com/vremyavnikuda/anchora/internal/search"
	"github.com/vremyavnikuda/anchora/internal/validate"
)

// Request parameter shapes. Field names match the editor protocol.

type CreateTaskParams struct {
	Section     string  `json:"section"`
	TaskID      string  `json:"task_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type UpdateTaskStatusParams struct {
	Section string `json:"section"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
}

type TaskParams struct {
	Section string `json:"section"`
	TaskID  string `json:"task_id"`
}

type CreateNoteParams struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Section         string `json:"section,omitempty"`
	SuggestedTaskID string `json:"suggested_task_id,omitempty"`
	SuggestedStatus string `json:"suggested_status,omitempty"`
}

type NoteParams struct {
	NoteID string `json:"note_id"`
}

type SearchTasksParams struct {
	Query    string   `json:"query"`
	Sections []string `json:"sections,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

type SuggestionsParams struct {
	PartialQuery string `json:"partial_query"`
	Limit        int    `json:"limit,omitempty"`
}

type CheckConflictsParams struct {
	Section string `json:"section"`
	TaskID  string `json:"task_id"`
	Title   string `json:"title,omitempty"`
}

// BasicResult is the generic success payload.
type BasicResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TaskHandler serves the task-manager method set over an Engine.
type TaskHandler struct {
	engine *anchora.Engine
}

// NewTaskHandler wraps an engine.
func NewTaskHandler(engine *anchora.Engine) *TaskHandler {
	return &TaskHandler{engine: engine}
}

// Handle dispatches one request to the engine.
func (h *TaskHandler) Handle(ctx context.Context, req Request) Response {
	switch req.Method {
	case "scan_project":
		return h.scanProject(ctx)
	case "get_tasks":
		return h.getTasks()
	case "create_task":
		return h.createTask(req.Params)
	case "update_task_status":
		return h.updateTaskStatus(req.Params)
	case "delete_task":
		return h.deleteTask(req.Params)
	case "find_task_references":
		return h.findTaskReferences(req.Params)
	case "create_note":
		return h.createNote(req.Params)
	case "get_notes":
		return ResultResponse(h.engine.Notes())
	case "generate_task_link":
		return h.generateTaskLink(req.Params)
	case "delete_note":
		return h.deleteNote(req.Params)
	case "search_tasks":
		return h.searchTasks(req.Params)
	case "get_statistics":
		return ResultResponse(h.engine.Statistics())
	case "get_task_overview":
		return ResultResponse(h.engine.Overview())
	case "validate_task_input":
		return h.validateTaskInput(req.Params)
	case "get_suggestions":
		return h.getSuggestions(req.Params)
	case "check_task_conflicts":
		return h.checkConflicts(req.Params)
	default:
		return ErrorResponse(ErrMethodNotFound())
	}
}

func decode[T any](raw json.RawMessage) (T, *Error) {
	var params T
	if len(raw) == 0 {
		return params, ErrInvalidParams()
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, ErrInvalidParams()
	}
	return params, nil
}

func (h *TaskHandler) scanProject(ctx context.Context) Response {
	result, err := h.engine.ScanWorkspace(ctx)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(result)
}

func (h *TaskHandler) getTasks() Response {
	data, err := h.engine.MarshalGraph()
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(json.RawMessage(data))
}

func (h *TaskHandler) createTask(raw json.RawMessage) Response {
	params, perr := decode[CreateTaskParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	if err := h.engine.CreateTask(params.Section, params.TaskID, params.Title, params.Description); err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(BasicResult{
		Success: true,
		Message: "task " + graph.QualifiedID(params.Section, params.TaskID) + " created",
	})
}

func (h *TaskHandler) updateTaskStatus(raw json.RawMessage) Response {
	params, perr := decode[UpdateTaskStatusParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	if err := h.engine.UpdateTaskStatus(params.Section, params.TaskID, params.Status); err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(BasicResult{
		Success: true,
		Message: "task " + graph.QualifiedID(params.Section, params.TaskID) + " status updated to " + params.Status,
	})
}

func (h *TaskHandler) deleteTask(raw json.RawMessage) Response {
	params, perr := decode[TaskParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	if err := h.engine.DeleteTask(params.Section, params.TaskID); err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(BasicResult{
		Success: true,
		Message: "task " + graph.QualifiedID(params.Section, params.TaskID) + " deleted",
	})
}

func (h *TaskHandler) findTaskReferences(raw json.RawMessage) Response {
	params, perr := decode[TaskParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	refs, err := h.engine.Query().References(params.Section, params.TaskID)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(refs)
}

func (h *TaskHandler) createNote(raw json.RawMessage) Response {
	params, perr := decode[CreateNoteParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	id, err := h.engine.CreateNote(params.Title, params.Content, params.Section, params.SuggestedTaskID, params.SuggestedStatus)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(struct {
		BasicResult
		NoteID string `json:"note_id"`
	}{BasicResult{Success: true, Message: "note created"}, id})
}

func (h *TaskHandler) generateTaskLink(raw json.RawMessage) Response {
	params, perr := decode[NoteParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	link, err := h.engine.NoteLink(params.NoteID)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(struct {
		Success bool   `json:"success"`
		Link    string `json:"link"`
	}{true, link})
}

func (h *TaskHandler) deleteNote(raw json.RawMessage) Response {
	params, perr := decode[NoteParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	if err := h.engine.DeleteNote(params.NoteID); err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(BasicResult{Success: true, Message: "note deleted"})
}

func (h *TaskHandler) searchTasks(raw json.RawMessage) Response {
	params, perr := decode[SearchTasksParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	q := search.Query{
		Text:     params.Query,
		Sections: params.Sections,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	for _, s := range params.Statuses {
		status, ok := graph.ParseStatus(s)
		if !ok {
			return ErrorResponse(ErrInvalidParams())
		}
		q.Statuses = append(q.Statuses, status)
	}
	result, err := h.engine.SearchTasks(q)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(result)
}

func (h *TaskHandler) validateTaskInput(raw json.RawMessage) Response {
	params, perr := decode[validate.Params](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	return ResultResponse(h.engine.ValidateTask(params))
}

func (h *TaskHandler) getSuggestions(raw json.RawMessage) Response {
	params, perr := decode[SuggestionsParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	suggestions, err := h.engine.Suggestions(params.PartialQuery, params.Limit)
	if err != nil {
		return ErrorResponse(ErrInternal(err))
	}
	return ResultResponse(suggestions)
}

func (h *TaskHandler) checkConflicts(raw json.RawMessage) Response {
	params, perr := decode[CheckConflictsParams](raw)
	if perr != nil {
		return ErrorResponse(perr)
	}
	return ResultResponse(h.engine.CheckConflicts(params.Section, params.TaskID, params.Title))
}
