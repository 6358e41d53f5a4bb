package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(t.TempDir())
	require.NoError(t, m.Initialize())
	return m
}

func sampleProject() *graph.Project {
	p := graph.New("demo")
	p.AddTask("dev", "task_1", "first task", nil)
	p.AddTask("ops", "deploy", "ship it", nil)
	p.RebuildIndex()
	return p
}

func TestLoad_MissingFileYieldsFreshProject(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	m := NewManager(ws)

	p, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, p.TaskCount())
	require.NotNil(t, p.Meta.ProjectName)
	assert.Equal(t, filepath.Base(ws), *p.Meta.ProjectName)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, m.Save(sampleProject()))

	p, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, p.TaskCount())
	task, ok := p.Task("dev", "task_1")
	require.True(t, ok)
	assert.Equal(t, "first task", task.Title)
	assert.Equal(t, graph.StatusTodo, task.Status)
}

func TestLoad_CorruptDocumentIsFatal(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.TasksPath(), []byte("{not json"), 0o644))

	_, err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt graph document")
}

func TestLoad_SchemaViolationIsFatal(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	// Valid JSON, but missing the required top-level keys.
	require.NoError(t, os.WriteFile(m.TasksPath(), []byte(`{"meta": {}}`), 0o644))

	_, err := m.Load()
	assert.Error(t, err)
}

func TestBackup_CreateListCleanup(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, m.Save(sampleProject()))

	first, err := m.CreateBackup()
	require.NoError(t, err)
	assert.FileExists(t, first)

	backups, err := m.ListBackups()
	require.NoError(t, err)
	assert.Equal(t, []string{first}, backups)

	// Cleanup with room to spare removes nothing.
	require.NoError(t, m.CleanupBackups(5))
	backups, err = m.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	require.NoError(t, m.CleanupBackups(0))
	backups, err = m.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestCreateBackup_NoDocument(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	_, err := m.CreateBackup()
	assert.Error(t, err)
}

func TestRestoreBackup(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, m.Save(sampleProject()))
	backup, err := m.CreateBackup()
	require.NoError(t, err)

	// Mutate and persist, then restore the snapshot.
	p, err := m.Load()
	require.NoError(t, err)
	require.NoError(t, p.DeleteTask("dev", "task_1"))
	require.NoError(t, m.Save(p))

	require.NoError(t, m.RestoreBackup(backup))
	restored, err := m.Load()
	require.NoError(t, err)
	_, ok := restored.Task("dev", "task_1")
	assert.True(t, ok)
}

func TestRestoreBackup_InvalidDocument(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"meta": {}}`), 0o644))

	assert.Error(t, m.RestoreBackup(bad))
}

func TestExportImport(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, m.Save(sampleProject()))

	out := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, m.Export(out))
	assert.FileExists(t, out)

	other := newTestManager(t)
	require.NoError(t, other.Import(out))
	p, err := other.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, p.TaskCount())
}

func TestImport_RejectsInvalidDocument(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[]"), 0o644))

	assert.Error(t, m.Import(bad))
}

func TestVerify(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	assert.NoError(t, m.Verify(), "missing document verifies trivially")

	require.NoError(t, m.Save(sampleProject()))
	assert.NoError(t, m.Verify())

	require.NoError(t, os.WriteFile(m.TasksPath(), []byte("{}"), 0o644))
	assert.Error(t, m.Verify())
}

func TestStorageInfo(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	require.NoError(t, m.Save(sampleProject()))
	_, err := m.CreateBackup()
	require.NoError(t, err)

	info, err := m.StorageInfo()
	require.NoError(t, err)
	assert.True(t, info.DirExists)
	assert.True(t, info.TasksExists)
	assert.Positive(t, info.TasksFileSize)
	assert.Equal(t, 1, info.BackupCount)
	assert.NotNil(t, info.LastModified)
}
