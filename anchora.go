package anchora

import (
	"github.com/vremyavnikuda/anchora/internal/graph"
	"github.com/vremyavnikuda/anchora/internal/scan"
	"github.com/vremyavnikuda/anchora/internal/search"
	"github.com/vremyavnikuda/anchora/internal/stats"
	"github.com/vremyavnikuda/anchora/internal/validate"
)

// Public type aliases for internal types used across the Engine API.
// They are aliases, not new types, so external consumers need no
// conversion.

type Project = graph.Project
type Section = graph.Section
type Task = graph.Task
type TaskFile = graph.TaskFile
type Status = graph.Status
type Note = graph.Note
type Label = scan.Label
type Hit = scan.Hit
type Warning = scan.Warning

type SearchQuery = search.Query
type SearchResult = search.Result
type SearchMatch = search.Match
type Suggestion = search.Suggestion
type Statistics = stats.Statistics
type Overview = stats.Overview
type ValidationParams = validate.Params
type ValidationResult = validate.Result
type ConflictCheck = validate.ConflictCheck

const (
	StatusTodo       = graph.StatusTodo
	StatusInProgress = graph.StatusInProgress
	StatusDone       = graph.StatusDone
	StatusBlocked    = graph.StatusBlocked
)

// ParseStatus maps a status keyword or synonym to a Status.
func ParseStatus(token string) (Status, bool) { return graph.ParseStatus(token) }

// ParseLine classifies one line of text into zero or one annotation Label.
func ParseLine(line string) (Label, bool) { return scan.ParseLine(line) }

// ScanContent returns the ordered annotation hits in a file's text.
func ScanContent(content string) []Hit { return scan.ScanContent(content) }
