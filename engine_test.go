package anchora

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, ws string) *Engine {
	t.Helper()
	engine, err := New(ws, WithSearchPath(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func writeFile(t *testing.T, ws, rel, content string) {
	t.Helper()
	path := filepath.Join(ws, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanWorkspace_BuildsAndPersistsGraph(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "src/cache.go", "// dev:cache: build the cache\n// dev:cache:in_progress\n")
	writeFile(t, ws, "src/api.go", "// api:auth: add auth middleware\n")

	engine := newTestEngine(t, ws)
	result, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, 3, result.TasksFound)
	assert.Equal(t, 2, result.TasksCreated)
	assert.Empty(t, result.Warnings)

	// A second engine sees the persisted document.
	other := newTestEngine(t, ws)
	task, ok := other.Query().Task("dev", "cache")
	require.True(t, ok)
	assert.Equal(t, "build the cache", task.Title)
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, []string{"dev.cache"}, other.Query().TasksInFile("src/cache.go"))
}

func TestScanWorkspace_Idempotent(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:cache: build the cache\n")

	engine := newTestEngine(t, ws)
	first, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TasksCreated)

	second, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.TasksCreated)

	task, ok := engine.Query().Task("dev", "cache")
	require.True(t, ok)
	assert.Equal(t, []int{1}, task.Files["main.go"].Lines)
}

func TestScanWorkspace_SkipsIgnoredAndOversized(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:seen: visible\n")
	writeFile(t, ws, "node_modules/dep.go", "// dev:hidden_dep: skipped\n")
	writeFile(t, ws, ".secret/x.go", "// dev:hidden_dir: skipped\n")
	writeFile(t, ws, "big.go", "// dev:big_one: skipped\n"+strings.Repeat("x", 1<<20))

	engine := newTestEngine(t, ws)
	result, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, 1, result.TasksCreated)

	_, ok := engine.Query().Task("dev", "seen")
	assert.True(t, ok)
}

func TestScanWorkspace_CollectsUndefinedReferenceWarnings(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:ghost:done\n")

	engine := newTestEngine(t, ws)
	result, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "status update for undefined task")
	assert.Equal(t, 0, result.TasksCreated)
}

func TestScanWorkspace_CancelledContext(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:cache: t\n")

	engine := newTestEngine(t, ws)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.ScanWorkspace(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.FilesScanned)
}

func TestScanFile_RemovedFileClearsAssociations(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:cache: t\n")

	engine := newTestEngine(t, ws)
	_, err := engine.ScanWorkspace(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(ws, "main.go")))
	_, err = engine.ScanFile(context.Background(), "main.go")
	require.NoError(t, err)

	task, ok := engine.Query().Task("dev", "cache")
	require.True(t, ok, "task survives losing its last annotation")
	assert.Empty(t, task.Files["main.go"].Lines)
	assert.Empty(t, engine.Query().TasksInFile("main.go"))
}

func TestScanFile_RelativeAndAbsolute(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "// dev:cache: t\n")

	engine := newTestEngine(t, ws)
	_, err := engine.ScanFile(context.Background(), "main.go")
	require.NoError(t, err)
	_, err = engine.ScanFile(context.Background(), filepath.Join(ws, "main.go"))
	require.NoError(t, err)

	task, ok := engine.Query().Task("dev", "cache")
	require.True(t, ok)
	assert.Equal(t, []int{1}, task.Files["main.go"].Lines)
}

func TestCreateUpdateDeleteTask(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, t.TempDir())

	desc := "explicit task"
	require.NoError(t, engine.CreateTask("dev", "manual", "By hand", &desc))
	require.NoError(t, engine.UpdateTaskStatus("dev", "manual", "blocked"))

	task, ok := engine.Query().Task("dev", "manual")
	require.True(t, ok)
	assert.Equal(t, StatusBlocked, task.Status)

	assert.Error(t, engine.UpdateTaskStatus("dev", "manual", "nonsense"))
	assert.Error(t, engine.UpdateTaskStatus("dev", "missing", "done"))

	require.NoError(t, engine.DeleteTask("dev", "manual"))
	_, ok = engine.Query().Task("dev", "manual")
	assert.False(t, ok)
}

func TestNotes_LinkPromotesIntoTask(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	engine := newTestEngine(t, ws)

	id, err := engine.CreateNote("Fix the cache", "details", "", "", "")
	require.NoError(t, err)
	link, err := engine.NoteLink(id)
	require.NoError(t, err)

	writeFile(t, ws, "main.go", link+"\n")
	_, err = engine.ScanWorkspace(context.Background())
	require.NoError(t, err)

	task, ok := engine.Query().Task("notes", "fix_the_cache")
	require.True(t, ok)
	assert.Equal(t, "Fix the cache", task.Title)
	assert.Equal(t, StatusTodo, task.Status)
}

func TestSearchTasks_ThroughEngine(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, t.TempDir())
	require.NoError(t, engine.CreateTask("dev", "cache", "Response cache", nil))
	require.NoError(t, engine.CreateTask("ops", "deploy", "Ship it", nil))

	result, err := engine.SearchTasks(SearchQuery{Text: "cache"})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "cache", result.Tasks[0].TaskID)

	suggestions, err := engine.Suggestions("de", 5)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "dev", suggestions[0].Text)
}

func TestStatistics_ReflectActivity(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, t.TempDir())
	require.NoError(t, engine.CreateTask("dev", "cache", "t", nil))
	require.NoError(t, engine.UpdateTaskStatus("dev", "cache", "done"))

	st := engine.Statistics()
	assert.Equal(t, 1, st.Overview.TotalTasks)
	assert.Equal(t, 1, st.Overview.CompletedTasks)
	require.Len(t, st.RecentItems, 2)
	assert.Equal(t, "status_changed", st.RecentItems[0].Kind)

	ov := engine.Overview()
	assert.Equal(t, 1.0, ov.CompletionRate)
}

func TestValidateTask_ThroughEngine(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, t.TempDir())
	require.NoError(t, engine.CreateTask("dev", "cache", "t", nil))

	res := engine.ValidateTask(ValidationParams{Section: "dev", TaskID: "cache", CheckDuplicates: true})
	assert.False(t, res.Valid)

	check := engine.CheckConflicts("dev", "cache", "")
	assert.True(t, check.HasConflicts)
}

func TestNew_ProjectNameFromConfig(t *testing.T) {
	t.Setenv("ANCHORA_PROJECT_NAME", "configured")
	engine := newTestEngine(t, t.TempDir())

	data, err := engine.MarshalGraph()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"project_name": "configured"`)
}
