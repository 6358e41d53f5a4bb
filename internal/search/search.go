// Package search maintains a SQLite-backed search index over the task
// graph: substring search with section/status filters, pagination, and
// prefix suggestions.
package search

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// Index is the SQLite data access layer for task search. The index is a
// pure cache: IndexProject rebuilds it wholesale from a Project.
type Index struct {
	db       *sql.DB
	rebuilds int
}

// Open opens (or creates) a search index database at path. Pass
// ":memory:" for an ephemeral index.
func Open(path string) (*Index, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=30000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping search index: %w", err)
	}
	ix := &Index{db: db}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// Close releases the database.
func (ix *Index) Close() error { return ix.db.Close() }

func (ix *Index) migrate() error {
	_, err := ix.db.Exec(`
CREATE TABLE IF NOT EXISTS tasks (
  qualified_id  TEXT PRIMARY KEY,
  section       TEXT NOT NULL,
  task_id       TEXT NOT NULL,
  title         TEXT NOT NULL,
  description   TEXT,
  status        TEXT NOT NULL,
  created       TIMESTAMP NOT NULL,
  updated       TIMESTAMP NOT NULL,
  file_count    INTEGER NOT NULL,
  haystack      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_section ON tasks(section);
CREATE INDEX IF NOT EXISTS idx_tasks_status  ON tasks(status);
`)
	if err != nil {
		return fmt.Errorf("migrate search index: %w", err)
	}
	return nil
}

// IndexProject rebuilds the index from the given project inside one
// transaction.
func (ix *Index) IndexProject(p *graph.Project) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO tasks
		(qualified_id, section, task_id, title, description, status, created, updated, file_count, haystack)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for sectionName, section := range p.Sections {
		for taskID, task := range section {
			hay := haystack(sectionName, taskID, task)
			if _, err := stmt.Exec(
				graph.QualifiedID(sectionName, taskID),
				sectionName, taskID, task.Title, task.Description,
				string(task.Status), task.Created, task.Updated,
				len(task.Files), hay,
			); err != nil {
				return fmt.Errorf("index task %s.%s: %w", sectionName, taskID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index rebuild: %w", err)
	}
	ix.rebuilds++
	return nil
}

// Rebuilds returns how many times the index was rebuilt since Open.
func (ix *Index) Rebuilds() int { return ix.rebuilds }

func haystack(section, taskID string, t *graph.Task) string {
	parts := []string{strings.ToLower(t.Title), strings.ToLower(section), strings.ToLower(taskID)}
	if t.Description != nil {
		parts = append(parts, strings.ToLower(*t.Description))
	}
	return strings.Join(parts, " ")
}

// Query is a search request. Empty Text matches every task, which makes
// filters usable on their own.
type Query struct {
	Text     string
	Sections []string
	Statuses []graph.Status
	Limit    int
	Offset   int
}

// Match is one task in a search result.
type Match struct {
	Section     string       `json:"section"`
	TaskID      string       `json:"task_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      graph.Status `json:"status"`
	Created     time.Time    `json:"created"`
	Updated     time.Time    `json:"updated"`
	FileCount   int          `json:"file_count"`
	Relevance   float64      `json:"relevance"`
	MatchType   string       `json:"match_type"` // exact | partial | fuzzy
}

// Result carries the matches plus search metadata.
type Result struct {
	Tasks        []Match `json:"tasks"`
	TotalCount   int     `json:"total_count"`
	SearchTimeMS int64   `json:"search_time_ms"`
}

// Search runs a substring search over titles, descriptions, sections, and
// task ids, applies the filters, and paginates.
func (ix *Index) Search(q Query) (*Result, error) {
	start := time.Now()

	var (
		where []string
		args  []any
	)
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle != "" {
		where = append(where, `haystack LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(needle)+"%")
	}
	if len(q.Sections) > 0 {
		where = append(where, `section IN (`+placeholders(len(q.Sections))+`)`)
		for _, s := range q.Sections {
			args = append(args, s)
		}
	}
	if len(q.Statuses) > 0 {
		where = append(where, `status IN (`+placeholders(len(q.Statuses))+`)`)
		for _, s := range q.Statuses {
			args = append(args, string(s))
		}
	}

	query := `SELECT section, task_id, title, description, status, created, updated, file_count FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var desc sql.NullString
		var status string
		if err := rows.Scan(&m.Section, &m.TaskID, &m.Title, &desc, &status, &m.Created, &m.Updated, &m.FileCount); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if desc.Valid {
			d := desc.String
			m.Description = &d
		}
		m.Status = graph.Status(status)
		m.Relevance, m.MatchType = scoreMatch(needle, m)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Relevance != matches[j].Relevance {
			return matches[i].Relevance > matches[j].Relevance
		}
		if !matches[i].Updated.Equal(matches[j].Updated) {
			return matches[i].Updated.After(matches[j].Updated)
		}
		return matches[i].Section+"."+matches[i].TaskID < matches[j].Section+"."+matches[j].TaskID
	})

	total := len(matches)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if q.Offset >= len(matches) {
		matches = nil
	} else {
		end := q.Offset + limit
		if end > len(matches) {
			end = len(matches)
		}
		matches = matches[q.Offset:end]
	}

	return &Result{
		Tasks:        matches,
		TotalCount:   total,
		SearchTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// scoreMatch ranks a row against the needle: exact title match beats a
// title substring, which beats a match found only in the description or
// identifiers.
func scoreMatch(needle string, m Match) (float64, string) {
	if needle == "" {
		return 0.5, "fuzzy"
	}
	title := strings.ToLower(m.Title)
	switch {
	case title == needle:
		return 1.0, "exact"
	case strings.Contains(title, needle):
		return 0.8, "partial"
	default:
		return 0.5, "fuzzy"
	}
}

// Suggestion is a completion candidate for a partial query.
type Suggestion struct {
	Text      string  `json:"text"`
	Kind      string  `json:"kind"` // section | task_id
	Relevance float64 `json:"relevance"`
	Frequency int     `json:"frequency"`
}

// Suggest returns up to limit prefix completions over section names and
// task ids, sections first.
func (ix *Index) Suggest(prefix string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	p := strings.ToLower(strings.TrimSpace(prefix))

	var suggestions []Suggestion
	rows, err := ix.db.Query(
		`SELECT section, COUNT(*) FROM tasks WHERE lower(section) LIKE ? ESCAPE '\' GROUP BY section`,
		likeEscape(p)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("suggest sections: %w", err)
	}
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Text, &s.Frequency); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		s.Kind = "section"
		s.Relevance = 0.9
		suggestions = append(suggestions, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest rows: %w", err)
	}

	rows, err = ix.db.Query(
		`SELECT DISTINCT task_id FROM tasks WHERE lower(task_id) LIKE ? ESCAPE '\'`,
		likeEscape(p)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("suggest task ids: %w", err)
	}
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		s.Kind = "task_id"
		s.Relevance = 0.8
		s.Frequency = 1
		suggestions = append(suggestions, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest rows: %w", err)
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Relevance != suggestions[j].Relevance {
			return suggestions[i].Relevance > suggestions[j].Relevance
		}
		if suggestions[i].Frequency != suggestions[j].Frequency {
			return suggestions[i].Frequency > suggestions[j].Frequency
		}
		return suggestions[i].Text < suggestions[j].Text
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// likeEscape neutralizes LIKE wildcards in user text; the queries pair it
// with ESCAPE '\'.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
