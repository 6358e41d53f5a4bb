package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is written into Meta.Version for every new project document.
const SchemaVersion = "1.0.0"

// Status is a task's lifecycle state. The string values are the canonical
// names used in the persisted JSON document.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// ParseStatus maps a status keyword or one of its recognized synonyms to a
// Status. Matching is case-insensitive. Returns false for unknown tokens.
func ParseStatus(token string) (Status, bool) {
	switch strings.ToLower(token) {
	case "todo":
		return StatusTodo, true
	case "in_progress", "inprogress", "progress":
		return StatusInProgress, true
	case "done", "completed", "complete":
		return StatusDone, true
	case "blocked", "block":
		return StatusBlocked, true
	}
	return "", false
}

// TaskFile records where a task is annotated within a single source file:
// the ordered set of line numbers and an optional note per line.
type TaskFile struct {
	Lines []int          `json:"lines"`
	Notes map[int]string `json:"notes"`
}

// Task is a single tracked unit of work. Files maps a workspace-relative
// path to that file's annotation lines for this task.
type Task struct {
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	Status      Status               `json:"status"`
	Created     time.Time            `json:"created"`
	Updated     time.Time            `json:"updated"`
	Files       map[string]*TaskFile `json:"files"`
}

// NewTask creates a task with the default status and both timestamps set
// to now.
func NewTask(title string, description *string) *Task {
	now := time.Now().UTC()
	return &Task{
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		Created:     now,
		Updated:     now,
		Files:       make(map[string]*TaskFile),
	}
}

// AddLine records an annotation occurrence for this task. Duplicate line
// numbers within one file are kept once. An empty note leaves any existing
// note for that line untouched.
func (t *Task) AddLine(path string, line int, note string) {
	tf, ok := t.Files[path]
	if !ok {
		tf = &TaskFile{Lines: []int{}, Notes: make(map[int]string)}
		t.Files[path] = tf
	}
	seen := false
	for _, l := range tf.Lines {
		if l == line {
			seen = true
			break
		}
	}
	if !seen {
		tf.Lines = append(tf.Lines, line)
	}
	if note != "" {
		tf.Notes[line] = note
	}
	t.touch()
}

// UpdateStatus sets the task status and bumps Updated.
func (t *Task) UpdateStatus(status Status) {
	t.Status = status
	t.touch()
}

// touch bumps Updated, keeping it monotonically non-decreasing even if the
// wall clock steps backwards.
func (t *Task) touch() {
	if now := time.Now().UTC(); now.After(t.Updated) {
		t.Updated = now
	}
}

// Section groups tasks by identifier within one named section.
type Section map[string]*Task

// Index holds the two reverse lookups derived from Sections: file path to
// qualified task ids, and status to qualified task ids. It is a pure cache;
// Sections is always the source of truth.
type Index struct {
	Files         map[string][]string `json:"files"`
	TasksByStatus map[Status][]string `json:"tasks_by_status"`
}

// NewIndex returns an empty index.
func NewIndex() Index {
	return Index{
		Files:         make(map[string][]string),
		TasksByStatus: make(map[Status][]string),
	}
}

// Meta carries document-level metadata for the persisted graph.
type Meta struct {
	Version     string    `json:"version"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`
	ProjectName *string   `json:"project_name"`
}

// Project is the persistent task graph: metadata, sections of tasks, the
// derived index, and free-form notes awaiting promotion into tasks.
//
// Project is not safe for concurrent use. The owning Engine serializes all
// mutation behind its lock. Low-level mutators here do not rebuild the
// index; callers that complete a structural edit must call RebuildIndex
// before the index is read.
type Project struct {
	Meta     Meta               `json:"meta"`
	Sections map[string]Section `json:"sections"`
	Index    Index              `json:"index"`
	Notes    map[string]*Note   `json:"notes,omitempty"`
}

// New creates an empty project. projectName may be empty.
func New(projectName string) *Project {
	now := time.Now().UTC()
	meta := Meta{Version: SchemaVersion, Created: now, LastUpdated: now}
	if projectName != "" {
		meta.ProjectName = &projectName
	}
	return &Project{
		Meta:     meta,
		Sections: make(map[string]Section),
		Index:    NewIndex(),
	}
}

// QualifiedID returns the graph-unique id for a (section, task) pair.
func QualifiedID(section, taskID string) string {
	return section + "." + taskID
}

// Task looks up a task by section and id.
func (p *Project) Task(section, taskID string) (*Task, bool) {
	s, ok := p.Sections[section]
	if !ok {
		return nil, false
	}
	t, ok := s[taskID]
	return t, ok
}

// AddTask inserts a task, replacing any existing task under the same
// (section, task_id) pair. The section is created on demand.
func (p *Project) AddTask(section, taskID, title string, description *string) *Task {
	t := NewTask(title, description)
	s, ok := p.Sections[section]
	if !ok {
		s = make(Section)
		p.Sections[section] = s
	}
	s[taskID] = t
	p.Touch()
	return t
}

// UpdateTaskStatus sets the status of an existing task.
func (p *Project) UpdateTaskStatus(section, taskID string, status Status) error {
	t, ok := p.Task(section, taskID)
	if !ok {
		return fmt.Errorf("task not found: %s:%s", section, taskID)
	}
	t.UpdateStatus(status)
	p.Touch()
	return nil
}

// AddTaskLine records a file association (line plus optional note) for an
// existing task.
func (p *Project) AddTaskLine(section, taskID, path string, line int, note string) error {
	t, ok := p.Task(section, taskID)
	if !ok {
		return fmt.Errorf("task not found: %s:%s", section, taskID)
	}
	t.AddLine(path, line, note)
	p.Touch()
	return nil
}

// DeleteTask removes a task. If its section becomes empty the section key
// is removed too. The index is rebuilt before returning.
func (p *Project) DeleteTask(section, taskID string) error {
	s, ok := p.Sections[section]
	if !ok {
		return fmt.Errorf("section not found: %s", section)
	}
	if _, ok := s[taskID]; !ok {
		return fmt.Errorf("task not found: %s:%s", section, taskID)
	}
	delete(s, taskID)
	if len(s) == 0 {
		delete(p.Sections, section)
	}
	p.Touch()
	p.RebuildIndex()
	return nil
}

// RebuildIndex recomputes the reverse indices from Sections. The resulting
// id slices are sorted so repeated rebuilds of the same graph are
// byte-identical when serialized.
func (p *Project) RebuildIndex() {
	idx := NewIndex()
	for sectionName, section := range p.Sections {
		for taskID, task := range section {
			qid := QualifiedID(sectionName, taskID)
			for path, tf := range task.Files {
				// An emptied association (file rescanned with no hits for
				// this task) does not count as an annotation.
				if len(tf.Lines) == 0 {
					continue
				}
				idx.Files[path] = append(idx.Files[path], qid)
			}
			idx.TasksByStatus[task.Status] = append(idx.TasksByStatus[task.Status], qid)
		}
	}
	for _, ids := range idx.Files {
		sort.Strings(ids)
	}
	for _, ids := range idx.TasksByStatus {
		sort.Strings(ids)
	}
	p.Index = idx
}

// Touch bumps the document's LastUpdated timestamp.
func (p *Project) Touch() {
	if now := time.Now().UTC(); now.After(p.Meta.LastUpdated) {
		p.Meta.LastUpdated = now
	}
}

// TaskCount returns the number of tasks across all sections.
func (p *Project) TaskCount() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s)
	}
	return n
}
