package scan

import (
	"regexp"
	"strings"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// Label is the structured result of parsing one annotation line. At most
// one of Description and Note is set; Status may accompany Description or
// stand alone. A label with none of the optional fields is a bare
// reference to an already defined task.
type Label struct {
	Section     string
	TaskID      string
	Status      *graph.Status
	Description *string
	Note        *string
}

// Identifiers are a Unicode letter or underscore followed by Unicode
// letters, digits, and underscores, so sections and task ids can be
// written in any script.
const ident = `[\p{L}_][\p{L}\p{N}_]*`

var (
	// // section:task:status: description
	reWithStatus = regexp.MustCompile(`//\s*(` + ident + `):(` + ident + `):(` + ident + `):\s+(.+)`)
	// // section:task: description
	reDefinition = regexp.MustCompile(`//\s*(` + ident + `):(` + ident + `):\s+(.+)`)
	// // section:task:status  (recognized keyword, end of line)
	reStatusOnly = regexp.MustCompile(`(?i)//\s*(` + ident + `):(` + ident + `):(todo|in_progress|inprogress|progress|done|completed|complete|blocked|block)\s*$`)
	// // section:task:token  (end of line, token stored as a note)
	reWithNote = regexp.MustCompile(`//\s*(` + ident + `):(` + ident + `):([\p{L}\p{N}_]+)\s*$`)
	// // section:task  (bare reference, end of line)
	reReference = regexp.MustCompile(`//\s*(` + ident + `):(` + ident + `)\s*$`)
)

// ParseLine classifies one line of text into zero or one Label. The five
// annotation shapes are tried in fixed precedence order; the first match
// wins. A non-matching line is a normal outcome, not an error.
//
// Lines that look like block-comment bodies (starting with "/*" or "*",
// or ending with "*/") never match.
func ParseLine(line string) (Label, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/*") || strings.HasSuffix(line, "*/") || strings.HasPrefix(line, "*") {
		return Label{}, false
	}

	// Full definition with status. The third token must be a recognized
	// status keyword; an unrecognized token there matches no shape at
	// all, since the plain definition requires whitespace right after
	// its second colon.
	if m := reWithStatus.FindStringSubmatch(line); m != nil {
		if status, ok := graph.ParseStatus(m[3]); ok {
			desc := m[4]
			return Label{Section: m[1], TaskID: m[2], Status: &status, Description: &desc}, true
		}
	}

	// Plain definition: description is required and non-empty.
	if m := reDefinition.FindStringSubmatch(line); m != nil {
		desc := m[3]
		return Label{Section: m[1], TaskID: m[2], Description: &desc}, true
	}

	// Status update at end of line. Must be checked before the note shape
	// so ":done" is never stored as a literal note.
	if m := reStatusOnly.FindStringSubmatch(line); m != nil {
		if status, ok := graph.ParseStatus(m[3]); ok {
			return Label{Section: m[1], TaskID: m[2], Status: &status}, true
		}
	}

	// Trailing non-keyword token becomes a per-line note.
	if m := reWithNote.FindStringSubmatch(line); m != nil {
		if _, isStatus := graph.ParseStatus(m[3]); !isStatus {
			note := m[3]
			return Label{Section: m[1], TaskID: m[2], Note: &note}, true
		}
	}

	// Bare reference.
	if m := reReference.FindStringSubmatch(line); m != nil {
		return Label{Section: m[1], TaskID: m[2]}, true
	}

	return Label{}, false
}
