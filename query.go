package anchora

import (
	"fmt"
	"sort"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// QueryBuilder is the read-side API over the engine's graph. All methods
// take shared access; returned tasks are live graph values and must be
// treated as read-only.
type QueryBuilder struct {
	engine *Engine
}

// Reference is one annotated source location for a task.
type Reference struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Note     string `json:"note,omitempty"`
}

// Task looks up a single task.
func (q *QueryBuilder) Task(section, taskID string) (*graph.Task, bool) {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()
	return q.engine.project.Task(section, taskID)
}

// Sections returns all section names, sorted.
func (q *QueryBuilder) Sections() []string {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()
	names := make([]string, 0, len(q.engine.project.Sections))
	for name := range q.engine.project.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TasksInSection returns a section's task ids, sorted.
func (q *QueryBuilder) TasksInSection(section string) []string {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()
	s, ok := q.engine.project.Sections[section]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TasksInFile returns the qualified ids of tasks annotated in a file,
// straight from the derived index.
func (q *QueryBuilder) TasksInFile(path string) []string {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()
	ids := q.engine.project.Index.Files[path]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// TasksWithStatus returns the qualified ids of tasks in a given status,
// straight from the derived index.
func (q *QueryBuilder) TasksWithStatus(status graph.Status) []string {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()
	ids := q.engine.project.Index.TasksByStatus[status]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// References lists every annotated location of a task, grouped by file
// path (sorted) with lines in recorded order.
func (q *QueryBuilder) References(section, taskID string) ([]Reference, error) {
	q.engine.mu.RLock()
	defer q.engine.mu.RUnlock()

	task, ok := q.engine.project.Task(section, taskID)
	if !ok {
		return nil, fmt.Errorf("task not found: %s:%s", section, taskID)
	}
	paths := make([]string, 0, len(task.Files))
	for path := range task.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var refs []Reference
	for _, path := range paths {
		tf := task.Files[path]
		for _, line := range tf.Lines {
			refs = append(refs, Reference{
				FilePath: path,
				Line:     line,
				Note:     tf.Notes[line],
			})
		}
	}
	return refs, nil
}
