// Package storage persists the task graph as a JSON document under the
// workspace's .anchora directory, with timestamped backups and schema
// validation on import.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

const (
	dirName      = ".anchora"
	tasksFile    = "tasks.json"
	backupPrefix = "tasks_backup_"
)

// Manager reads and writes the canonical {meta, sections, index} document
// for one workspace.
type Manager struct {
	anchoraDir string
	tasksPath  string
	workspace  string
}

// NewManager creates a Manager rooted at workspacePath. No filesystem
// access happens until Initialize, Load, or Save.
func NewManager(workspacePath string) *Manager {
	dir := filepath.Join(workspacePath, dirName)
	return &Manager{
		anchoraDir: dir,
		tasksPath:  filepath.Join(dir, tasksFile),
		workspace:  workspacePath,
	}
}

// TasksPath returns the path of the persisted document.
func (m *Manager) TasksPath() string { return m.tasksPath }

// Initialize creates the .anchora directory if missing.
func (m *Manager) Initialize() error {
	if err := os.MkdirAll(m.anchoraDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", m.anchoraDir, err)
	}
	return nil
}

// Load reads the persisted graph. A missing file yields a fresh project
// named after the workspace directory. A corrupt file is a fatal error
// surfaced to the caller; no partial repair is attempted.
func (m *Manager) Load() (*graph.Project, error) {
	data, err := os.ReadFile(m.tasksPath)
	if os.IsNotExist(err) {
		return graph.New(filepath.Base(m.workspace)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.tasksPath, err)
	}
	p, err := decodeProject(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt graph document %s: %w", m.tasksPath, err)
	}
	return p, nil
}

// Save writes the graph atomically so a crash mid-write never corrupts
// the existing document.
func (m *Manager) Save(p *graph.Project) error {
	if err := m.Initialize(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := atomic.WriteFile(m.tasksPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", m.tasksPath, err)
	}
	return nil
}

// CreateBackup copies the current document to a timestamped backup file
// and returns its path.
func (m *Manager) CreateBackup() (string, error) {
	data, err := os.ReadFile(m.tasksPath)
	if err != nil {
		return "", fmt.Errorf("read tasks file for backup: %w", err)
	}
	name := backupPrefix + time.Now().UTC().Format("20060102_150405") + ".json"
	path := filepath.Join(m.anchoraDir, name)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write backup %s: %w", path, err)
	}
	return path, nil
}

// ListBackups returns all backup file paths, oldest first.
func (m *Manager) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(m.anchoraDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.anchoraDir, err)
	}
	var backups []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, ".json") {
			backups = append(backups, filepath.Join(m.anchoraDir, name))
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// CleanupBackups removes the oldest backups until at most keep remain.
func (m *Manager) CleanupBackups(keep int) error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}
	for _, path := range backups[:len(backups)-keep] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove old backup %s: %w", path, err)
		}
	}
	return nil
}

// RestoreBackup replaces the current document with the given backup,
// backing the current document up first when one exists.
func (m *Manager) RestoreBackup(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", backupPath, err)
	}
	if _, err := decodeProject(data); err != nil {
		return fmt.Errorf("backup %s is not a valid graph document: %w", backupPath, err)
	}
	if _, err := os.Stat(m.tasksPath); err == nil {
		if _, err := m.CreateBackup(); err != nil {
			return err
		}
	}
	if err := atomic.WriteFile(m.tasksPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("restore %s: %w", m.tasksPath, err)
	}
	return nil
}

// Export writes the current document to an external path.
func (m *Manager) Export(path string) error {
	p, err := m.Load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("export to %s: %w", path, err)
	}
	return nil
}

// Import replaces the current document with an external one after schema
// validation, backing up the current document first when one exists.
func (m *Manager) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file %s: %w", path, err)
	}
	p, err := decodeProject(data)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if _, err := os.Stat(m.tasksPath); err == nil {
		if _, err := m.CreateBackup(); err != nil {
			return err
		}
	}
	return m.Save(p)
}

// Verify reports whether the persisted document loads and validates.
// A missing document verifies trivially.
func (m *Manager) Verify() error {
	if _, err := os.Stat(m.tasksPath); os.IsNotExist(err) {
		return nil
	}
	_, err := m.Load()
	return err
}

// Info describes the on-disk state of a workspace's storage.
type Info struct {
	DirExists     bool       `json:"dir_exists"`
	TasksExists   bool       `json:"tasks_exists"`
	TasksFileSize int64      `json:"tasks_file_size"`
	BackupCount   int        `json:"backup_count"`
	LastModified  *time.Time `json:"last_modified,omitempty"`
}

// StorageInfo gathers filesystem facts about the workspace store.
func (m *Manager) StorageInfo() (*Info, error) {
	info := &Info{}
	if _, err := os.Stat(m.anchoraDir); err == nil {
		info.DirExists = true
	}
	if st, err := os.Stat(m.tasksPath); err == nil {
		info.TasksExists = true
		info.TasksFileSize = st.Size()
		mod := st.ModTime().UTC()
		info.LastModified = &mod
	}
	backups, err := m.ListBackups()
	if err != nil {
		return nil, err
	}
	info.BackupCount = len(backups)
	return info, nil
}

// decodeProject validates raw bytes against the embedded document schema
// and unmarshals them into a Project.
func decodeProject(data []byte) (*graph.Project, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var p graph.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if p.Sections == nil {
		p.Sections = make(map[string]graph.Section)
	}
	return &p, nil
}
