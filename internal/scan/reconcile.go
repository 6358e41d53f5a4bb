package scan

import (
	"fmt"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// Warning is a soft, non-fatal condition collected while reconciling one
// file. It never aborts processing of the remaining hits.
type Warning struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Section string `json:"section"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s:%s: %s", w.Path, w.Line, w.Section, w.TaskID, w.Message)
}

// Report summarizes one file's reconciliation.
type Report struct {
	TasksCreated  int
	LinesRecorded int
	Warnings      []Warning
}

// Reconcile merges one file's ordered scan hits into the project graph.
//
// Every task association already recorded for path is first reset to
// empty (the task itself is never deleted), then the hits are applied in
// line order: a description-bearing label creates the task if it does not
// exist, a status-bearing label updates an existing task's status, and
// every hit records its line (plus optional note) against the task.
//
// A label that targets a (section, task_id) never defined by any
// description is reported as a warning and skipped; the graph never gains
// a titleless task. Reconciling identical content twice in a row is a
// fixed point: the second pass leaves task, file, line, and note content
// unchanged.
//
// The graph's last-updated timestamp is bumped once per reconciled file
// and the reverse indices are rebuilt before returning.
func Reconcile(p *graph.Project, path string, hits []Hit) Report {
	var rep Report

	// Clear phase: reset this file's entries everywhere. Titles,
	// descriptions, and statuses are untouched; the index rebuild at the
	// end ignores emptied entries.
	for _, section := range p.Sections {
		for _, task := range section {
			if tf, ok := task.Files[path]; ok {
				tf.Lines = []int{}
				tf.Notes = make(map[int]string)
			}
		}
	}

	// Apply phase, in original line order.
	for _, h := range hits {
		label := h.Label
		_, exists := p.Task(label.Section, label.TaskID)

		if label.Description != nil && !exists {
			p.AddTask(label.Section, label.TaskID, *label.Description, nil)
			rep.TasksCreated++
			exists = true
		}

		if !exists {
			reason := "reference to undefined task"
			if label.Status != nil {
				reason = "status update for undefined task"
			}
			rep.Warnings = append(rep.Warnings, Warning{
				Path:    path,
				Line:    h.Line,
				Section: label.Section,
				TaskID:  label.TaskID,
				Message: reason,
			})
			continue
		}

		if label.Status != nil {
			// Cannot fail: existence was just established.
			_ = p.UpdateTaskStatus(label.Section, label.TaskID, *label.Status)
		}

		note := ""
		if label.Note != nil {
			note = *label.Note
		}
		_ = p.AddTaskLine(label.Section, label.TaskID, path, h.Line, note)
		rep.LinesRecorded++
	}

	p.Touch()
	p.RebuildIndex()
	return rep
}
