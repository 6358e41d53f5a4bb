package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNote_GeneratesID(t *testing.T) {
	t.Parallel()
	p := New("")
	id, err := p.AddNote("idea", "body", "dev", "task_9", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	n, ok := p.Note(id)
	require.True(t, ok)
	assert.Equal(t, "idea", n.Title)
	assert.Equal(t, "body", n.Content)
	assert.Equal(t, "dev", n.Section)
	assert.Equal(t, "task_9", n.SuggestedTaskID)
}

func TestAddNote_EmptyTitle(t *testing.T) {
	t.Parallel()
	p := New("")
	_, err := p.AddNote("   ", "", "", "", nil)
	assert.Error(t, err)
}

func TestAllNotes_OrderedByCreation(t *testing.T) {
	t.Parallel()
	p := New("")
	idA, err := p.AddNote("a", "", "", "", nil)
	require.NoError(t, err)
	idB, err := p.AddNote("b", "", "", "", nil)
	require.NoError(t, err)

	// Force distinct timestamps regardless of clock resolution.
	p.Notes[idA].Created = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Notes[idB].Created = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	notes := p.AllNotes()
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].Title)
	assert.Equal(t, "b", notes[1].Title)
}

func TestDeleteNote(t *testing.T) {
	t.Parallel()
	p := New("")
	id, err := p.AddNote("a", "", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, p.DeleteNote(id))
	assert.Error(t, p.DeleteNote(id))
}

func TestNoteLink_Defaults(t *testing.T) {
	t.Parallel()
	p := New("")
	id, err := p.AddNote("Fix the Cache", "", "", "", nil)
	require.NoError(t, err)

	link, err := p.NoteLink(id)
	require.NoError(t, err)
	assert.Equal(t, "// notes:fix_the_cache:todo: Fix the Cache", link)
}

func TestNoteLink_Suggestions(t *testing.T) {
	t.Parallel()
	p := New("")
	status := StatusInProgress
	id, err := p.AddNote("Retry logic", "", "dev", "retry", &status)
	require.NoError(t, err)

	link, err := p.NoteLink(id)
	require.NoError(t, err)
	assert.Equal(t, "// dev:retry:in_progress: Retry logic", link)
}

func TestNoteLink_MissingNote(t *testing.T) {
	t.Parallel()
	p := New("")
	_, err := p.NoteLink("missing")
	assert.Error(t, err)
}

func TestSlugIdentifier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Fix the cache", "fix_the_cache"},
		{"  spaced  out  ", "spaced_out"},
		{"123 leading digits", "leading_digits"},
		{"Ünïcode Träsh", "ünïcode_träsh"},
		{"!!!", "note"},
		{"", "note"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugIdentifier(tt.in), "input %q", tt.in)
	}
}
