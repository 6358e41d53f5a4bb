// Package validate checks task input before creation: identifier shape,
// length limits, reserved names, duplicate detection against the current
// graph, and alternative-id suggestions for conflicts.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// Config bounds the accepted input.
type Config struct {
	MinTaskIDLength      int
	MaxTaskIDLength      int
	MaxTitleLength       int
	MaxDescriptionLength int
	SimilarityThreshold  float64
}

// DefaultConfig mirrors the limits enforced on the editor side.
func DefaultConfig() Config {
	return Config{
		MinTaskIDLength:      2,
		MaxTaskIDLength:      50,
		MaxTitleLength:       200,
		MaxDescriptionLength: 2000,
		SimilarityThreshold:  0.8,
	}
}

// Params is one validation request.
type Params struct {
	Section            string  `json:"section"`
	TaskID             string  `json:"task_id"`
	Title              *string `json:"title,omitempty"`
	Description        *string `json:"description,omitempty"`
	CheckDuplicates    bool    `json:"check_duplicates"`
	SuggestAlternative bool    `json:"suggest_alternatives"`
}

// Issue is a single validation error or warning.
type Issue struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Result aggregates a validation run.
type Result struct {
	Valid          bool     `json:"is_valid"`
	Errors         []Issue  `json:"errors"`
	Warnings       []Issue  `json:"warnings"`
	AlternativeIDs []string `json:"alternative_ids,omitempty"`
}

// Conflict reports an existing task that clashes with proposed input.
type Conflict struct {
	Kind     string `json:"kind"` // duplicate_id | similar_title
	Section  string `json:"section"`
	TaskID   string `json:"task_id"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"` // error | warning
}

// ConflictCheck is the result of a conflict probe.
type ConflictCheck struct {
	HasConflicts bool       `json:"has_conflicts"`
	Conflicts    []Conflict `json:"conflicts"`
	Resolutions  []string   `json:"resolutions,omitempty"`
}

// Engine validates task input against a project graph.
type Engine struct {
	cfg       Config
	idPattern *regexp.Regexp
	reserved  map[string]bool
}

// NewEngine builds an Engine; a zero Config is replaced with defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxTaskIDLength == 0 {
		cfg = DefaultConfig()
	}
	reserved := map[string]bool{}
	for _, name := range []string{
		"new", "delete", "edit", "status", "all", "none", "null",
		"true", "false", "index", "meta", "sections", "notes",
	} {
		reserved[name] = true
	}
	return &Engine{
		cfg:       cfg,
		idPattern: regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`),
		reserved:  reserved,
	}
}

// Validate checks proposed task input against the rules and, when asked,
// against the existing graph.
func (e *Engine) Validate(p *graph.Project, params Params) *Result {
	res := &Result{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}

	e.checkIdentifier(res, "section", params.Section)
	e.checkIdentifier(res, "task_id", params.TaskID)

	if params.Title != nil && len([]rune(*params.Title)) > e.cfg.MaxTitleLength {
		res.Errors = append(res.Errors, Issue{
			Field:   "title",
			Message: fmt.Sprintf("title exceeds %d characters", e.cfg.MaxTitleLength),
		})
	}
	if params.Description != nil && len([]rune(*params.Description)) > e.cfg.MaxDescriptionLength {
		res.Errors = append(res.Errors, Issue{
			Field:   "description",
			Message: fmt.Sprintf("description exceeds %d characters", e.cfg.MaxDescriptionLength),
		})
	}

	if params.CheckDuplicates && p != nil {
		if _, exists := p.Task(params.Section, params.TaskID); exists {
			res.Errors = append(res.Errors, Issue{
				Field:      "task_id",
				Message:    fmt.Sprintf("task %s already exists", graph.QualifiedID(params.Section, params.TaskID)),
				Suggestion: "pick a different id or update the existing task",
			})
			if params.SuggestAlternative {
				res.AlternativeIDs = e.alternativeIDs(p, params.Section, params.TaskID)
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func (e *Engine) checkIdentifier(res *Result, field, value string) {
	if value == "" {
		res.Errors = append(res.Errors, Issue{Field: field, Message: field + " must not be empty"})
		return
	}
	if !e.idPattern.MatchString(value) {
		res.Errors = append(res.Errors, Issue{
			Field:      field,
			Message:    field + " must start with a letter or underscore and contain only letters, digits, underscores, and dashes",
			Suggestion: slug(value),
		})
		return
	}
	if field == "task_id" {
		if n := len(value); n < e.cfg.MinTaskIDLength || n > e.cfg.MaxTaskIDLength {
			res.Errors = append(res.Errors, Issue{
				Field:   field,
				Message: fmt.Sprintf("task_id length must be between %d and %d", e.cfg.MinTaskIDLength, e.cfg.MaxTaskIDLength),
			})
		}
	}
	if e.reserved[strings.ToLower(value)] {
		res.Warnings = append(res.Warnings, Issue{
			Field:   field,
			Message: fmt.Sprintf("%q is a reserved word and may be confusing", value),
		})
	}
}

// CheckConflicts probes the graph for clashes with a proposed
// (section, task_id): the same id in the same or another section, and
// tasks with very similar titles.
func (e *Engine) CheckConflicts(p *graph.Project, section, taskID string, title string) *ConflictCheck {
	check := &ConflictCheck{Conflicts: []Conflict{}}
	if p == nil {
		return check
	}

	for sectionName, tasks := range p.Sections {
		for id, task := range tasks {
			if id == taskID {
				severity := "warning"
				detail := "same task id in another section"
				if sectionName == section {
					severity = "error"
					detail = "task id already taken in this section"
				}
				check.Conflicts = append(check.Conflicts, Conflict{
					Kind: "duplicate_id", Section: sectionName, TaskID: id,
					Detail: detail, Severity: severity,
				})
				continue
			}
			if title != "" && similarity(title, task.Title) >= e.cfg.SimilarityThreshold {
				check.Conflicts = append(check.Conflicts, Conflict{
					Kind: "similar_title", Section: sectionName, TaskID: id,
					Detail:   fmt.Sprintf("title is close to %q", task.Title),
					Severity: "warning",
				})
			}
		}
	}

	check.HasConflicts = len(check.Conflicts) > 0
	if check.HasConflicts {
		check.Resolutions = append(check.Resolutions,
			"choose one of the suggested alternative ids",
			"update the existing task instead of creating a new one",
		)
	}
	return check
}

// alternativeIDs proposes free ids derived from the taken one.
func (e *Engine) alternativeIDs(p *graph.Project, section, taskID string) []string {
	var out []string
	for i := 2; len(out) < 3 && i < 100; i++ {
		candidate := fmt.Sprintf("%s_%d", taskID, i)
		if _, exists := p.Task(section, candidate); !exists {
			out = append(out, candidate)
		}
	}
	return out
}

// slug proposes a valid identifier for rejected input.
func slug(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '.', r == ':':
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "_-")
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "task_" + s
	}
	return s
}

// similarity is a normalized Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	dist := levenshtein(ra, rb)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
