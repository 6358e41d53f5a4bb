package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Note is a free-form idea captured outside any source file. A note can
// later be promoted into a task by generating its canonical annotation
// line and pasting it into code.
type Note struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Section         string    `json:"section,omitempty"`
	SuggestedTaskID string    `json:"suggested_task_id,omitempty"`
	SuggestedStatus *Status   `json:"suggested_status,omitempty"`
	Created         time.Time `json:"created"`
}

// AddNote stores a new note and returns its generated id.
func (p *Project) AddNote(title, content, section, suggestedTaskID string, suggestedStatus *Status) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("note title must not be empty")
	}
	if p.Notes == nil {
		p.Notes = make(map[string]*Note)
	}
	id := uuid.NewString()
	p.Notes[id] = &Note{
		ID:              id,
		Title:           title,
		Content:         content,
		Section:         section,
		SuggestedTaskID: suggestedTaskID,
		SuggestedStatus: suggestedStatus,
		Created:         time.Now().UTC(),
	}
	p.Touch()
	return id, nil
}

// Note looks up a note by id.
func (p *Project) Note(id string) (*Note, bool) {
	n, ok := p.Notes[id]
	return n, ok
}

// AllNotes returns all notes ordered by creation time, oldest first.
func (p *Project) AllNotes() []*Note {
	notes := make([]*Note, 0, len(p.Notes))
	for _, n := range p.Notes {
		notes = append(notes, n)
	}
	// Tie-break on id so equal timestamps still order deterministically.
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].Created.Equal(notes[j].Created) {
			return notes[i].Created.Before(notes[j].Created)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes
}

// DeleteNote removes a note by id.
func (p *Project) DeleteNote(id string) error {
	if _, ok := p.Notes[id]; !ok {
		return fmt.Errorf("note not found: %s", id)
	}
	delete(p.Notes, id)
	p.Touch()
	return nil
}

// NoteLink builds the canonical annotation line for a note:
//
//	// <section>:<task_id>:<status>: <title>
//
// The line re-parses into the same (section, task_id, status) triple, so
// pasting it into a source file and rescanning creates the task. Section
// defaults to "notes", the task id to a slug of the title, and the status
// to todo when the note does not suggest one.
func (p *Project) NoteLink(id string) (string, error) {
	n, ok := p.Notes[id]
	if !ok {
		return "", fmt.Errorf("note not found: %s", id)
	}
	section := n.Section
	if section == "" {
		section = "notes"
	}
	taskID := n.SuggestedTaskID
	if taskID == "" {
		taskID = slugIdentifier(n.Title)
	}
	status := StatusTodo
	if n.SuggestedStatus != nil {
		status = *n.SuggestedStatus
	}
	return fmt.Sprintf("// %s:%s:%s: %s", section, taskID, status, n.Title), nil
}

// slugIdentifier turns arbitrary text into a valid annotation identifier:
// a letter or underscore followed by letters, digits, and underscores.
func slugIdentifier(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r) && b.Len() > 0:
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteRune('_')
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if slug == "" {
		slug = "note"
	}
	return slug
}
