package anchora

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vremyavnikuda/anchora/internal/config"
	"github.com/vremyavnikuda/anchora/internal/graph"
	"github.com/vremyavnikuda/anchora/internal/scan"
	"github.com/vremyavnikuda/anchora/internal/search"
	"github.com/vremyavnikuda/anchora/internal/stats"
	"github.com/vremyavnikuda/anchora/internal/storage"
	"github.com/vremyavnikuda/anchora/internal/validate"
)

// Engine owns the task graph for one workspace and orchestrates the
// pipeline: file discovery, annotation scanning, reconciliation,
// persistence, and the read-side services (query, search, statistics,
// validation).
//
// All reconciliations against the graph are serialized behind the
// engine's lock: two files may reference the same task, so a single
// writer holds exclusive access for the duration of one file's
// clear+apply. Reads take shared access.
type Engine struct {
	mu        sync.RWMutex
	workspace string
	cfg       *config.Config
	storage   *storage.Manager
	search    *search.Index
	stats     *stats.Manager
	validator *validate.Engine
	project   *graph.Project
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cfg        *config.Config
	searchPath string
	emptyGraph bool
}

// WithConfig supplies a configuration instead of loading it from the
// workspace.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) { o.cfg = cfg }
}

// WithSearchPath overrides where the search index database lives. Pass
// ":memory:" for an ephemeral index.
func WithSearchPath(path string) Option {
	return func(o *engineOptions) { o.searchPath = path }
}

// WithEmptyGraph makes New fall back to an empty graph when the persisted
// document fails to load. Without it a corrupt document is a fatal error.
func WithEmptyGraph() Option {
	return func(o *engineOptions) { o.emptyGraph = true }
}

// New creates an Engine rooted at workspacePath, loading the persisted
// graph from .anchora/tasks.json when present.
func New(workspacePath string, opts ...Option) (*Engine, error) {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		cfg, err = config.Load(workspacePath)
		if err != nil {
			return nil, fmt.Errorf("anchora: load config: %w", err)
		}
	}

	st := storage.NewManager(workspacePath)
	if err := st.Initialize(); err != nil {
		return nil, fmt.Errorf("anchora: init storage: %w", err)
	}

	project, err := st.Load()
	if err != nil {
		if !o.emptyGraph {
			return nil, fmt.Errorf("anchora: load graph: %w", err)
		}
		project = graph.New(filepath.Base(workspacePath))
	}
	if cfg.ProjectName != "" {
		name := cfg.ProjectName
		project.Meta.ProjectName = &name
	}

	searchPath := o.searchPath
	if searchPath == "" {
		searchPath = filepath.Join(workspacePath, ".anchora", "search.db")
	}
	ix, err := search.Open(searchPath)
	if err != nil {
		return nil, fmt.Errorf("anchora: open search index: %w", err)
	}

	return &Engine{
		workspace: workspacePath,
		cfg:       cfg,
		storage:   st,
		search:    ix,
		stats:     stats.NewManager(30 * time.Second),
		validator: validate.NewEngine(validate.DefaultConfig()),
		project:   project,
	}, nil
}

// Close releases the engine's search index resources.
func (e *Engine) Close() error {
	return e.search.Close()
}

// Storage returns the underlying storage manager for backup and
// import/export operations.
func (e *Engine) Storage() *storage.Manager { return e.storage }

// Config returns the engine's active configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Query returns a read-side QueryBuilder over the graph.
func (e *Engine) Query() *QueryBuilder { return &QueryBuilder{engine: e} }

// ScanResult summarizes one workspace or file scan.
type ScanResult struct {
	FilesScanned int      `json:"files_scanned"`
	TasksFound   int      `json:"tasks_found"`
	TasksCreated int      `json:"tasks_created"`
	Warnings     []string `json:"warnings"`
}

// ScanWorkspace walks the workspace, scans every eligible file, and
// reconciles the findings into the graph. Files that fail to read are
// reported as warnings and skipped. Cancellation is honored between
// files: the graph is left exactly as of the last fully reconciled file
// and persisted before returning the context error.
func (e *Engine) ScanWorkspace(ctx context.Context) (*ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	paths, err := e.listFiles()
	if err != nil {
		return nil, fmt.Errorf("anchora: list files: %w", err)
	}

	result := &ScanResult{Warnings: []string{}}
	var ctxErr error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		if err := e.scanOne(path, result); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	e.project.RebuildIndex()
	if err := e.storage.Save(e.project); err != nil {
		return result, fmt.Errorf("anchora: save graph: %w", err)
	}
	return result, ctxErr
}

// ScanFile rescans a single file (absolute or workspace-relative). A file
// that no longer exists still reconciles: its associations are cleared
// without deleting any task.
func (e *Engine) ScanFile(ctx context.Context, path string) (*ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.workspace, path)
	}

	result := &ScanResult{Warnings: []string{}}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		rel, err := e.relPath(abs)
		if err != nil {
			return nil, err
		}
		scan.Reconcile(e.project, rel, nil)
	} else if err := e.scanOne(abs, result); err != nil {
		return nil, err
	}

	if err := e.storage.Save(e.project); err != nil {
		return result, fmt.Errorf("anchora: save graph: %w", err)
	}
	return result, nil
}

// scanOne reads, scans, and reconciles one file. Caller holds the lock.
func (e *Engine) scanOne(abs string, result *ScanResult) error {
	rel, err := e.relPath(abs)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	hits := scan.ScanContent(string(content))
	rep := scan.Reconcile(e.project, rel, hits)

	result.FilesScanned++
	result.TasksFound += len(hits)
	result.TasksCreated += rep.TasksCreated
	for _, w := range rep.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}
	return nil
}

// relPath converts an absolute path to the workspace-relative,
// slash-separated key used in the graph.
func (e *Engine) relPath(abs string) (string, error) {
	rel, err := filepath.Rel(e.workspace, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", abs, err)
	}
	return filepath.ToSlash(rel), nil
}

// listFiles walks the workspace honoring the configured ignore dirs,
// eligible extensions, and file size limit.
func (e *Engine) listFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(e.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != e.workspace && e.cfg.IgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !e.cfg.ShouldScan(d.Name()) {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > e.cfg.MaxFileSize {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// CreateTask inserts a task explicitly (outside any scan) and persists.
func (e *Engine) CreateTask(section, taskID, title string, description *string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.project.AddTask(section, taskID, title, description)
	e.project.RebuildIndex()
	e.stats.Record(stats.Activity{Kind: "created", Section: section, TaskID: taskID, Status: graph.StatusTodo})
	return e.storage.Save(e.project)
}

// UpdateTaskStatus parses the status token (synonyms allowed) and updates
// an existing task.
func (e *Engine) UpdateTaskStatus(section, taskID, statusToken string) error {
	status, ok := graph.ParseStatus(statusToken)
	if !ok {
		return fmt.Errorf("invalid status: %s", statusToken)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.project.UpdateTaskStatus(section, taskID, status); err != nil {
		return err
	}
	e.project.RebuildIndex()
	e.stats.Record(stats.Activity{Kind: "status_changed", Section: section, TaskID: taskID, Status: status})
	return e.storage.Save(e.project)
}

// DeleteTask removes a task (and its section when it empties) and
// persists.
func (e *Engine) DeleteTask(section, taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.project.DeleteTask(section, taskID); err != nil {
		return err
	}
	e.stats.Record(stats.Activity{Kind: "deleted", Section: section, TaskID: taskID})
	return e.storage.Save(e.project)
}

// CreateNote stores a free-form note and persists.
func (e *Engine) CreateNote(title, content, section, suggestedTaskID, suggestedStatus string) (string, error) {
	var st *graph.Status
	if suggestedStatus != "" {
		s, ok := graph.ParseStatus(suggestedStatus)
		if !ok {
			return "", fmt.Errorf("invalid status: %s", suggestedStatus)
		}
		st = &s
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.project.AddNote(title, content, section, suggestedTaskID, st)
	if err != nil {
		return "", err
	}
	return id, e.storage.Save(e.project)
}

// Notes returns all notes, oldest first.
func (e *Engine) Notes() []*graph.Note {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.AllNotes()
}

// DeleteNote removes a note and persists.
func (e *Engine) DeleteNote(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.project.DeleteNote(id); err != nil {
		return err
	}
	return e.storage.Save(e.project)
}

// NoteLink returns the canonical annotation line for a note. Pasting the
// line into a scanned source file promotes the note into a task.
func (e *Engine) NoteLink(id string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.NoteLink(id)
}

// SearchTasks rebuilds the search index from the current graph and runs
// the query.
func (e *Engine) SearchTasks(q search.Query) (*search.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.search.IndexProject(e.project); err != nil {
		return nil, err
	}
	return e.search.Search(q)
}

// Suggestions rebuilds the search index and returns prefix completions.
func (e *Engine) Suggestions(prefix string, limit int) ([]search.Suggestion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.search.IndexProject(e.project); err != nil {
		return nil, err
	}
	return e.search.Suggest(prefix, limit)
}

// Statistics returns the (possibly cached) statistics snapshot.
func (e *Engine) Statistics() *stats.Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats.Statistics(e.project)
}

// Overview computes the aggregate overview without touching the cache.
func (e *Engine) Overview() stats.Overview {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return stats.ComputeOverview(e.project)
}

// ValidateTask checks proposed task input against the graph.
func (e *Engine) ValidateTask(params validate.Params) *validate.Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validator.Validate(e.project, params)
}

// CheckConflicts probes the graph for clashes with a proposed task.
func (e *Engine) CheckConflicts(section, taskID, title string) *validate.ConflictCheck {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validator.CheckConflicts(e.project, section, taskID, title)
}

// MarshalGraph serializes the graph document under shared lock.
func (e *Engine) MarshalGraph() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return json.MarshalIndent(e.project, "", "  ")
}
