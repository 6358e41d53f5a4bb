package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, cfg.ProjectName)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.Equal(t, 5, cfg.BackupKeep)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceInterval.Duration)
	assert.Contains(t, cfg.FileExtensions, "go")
	assert.Contains(t, cfg.IgnoredDirs, "node_modules")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	dir := filepath.Join(ws, ".anchora")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
project_name = "demo"
max_file_size = 2048
backup_keep = 2
debounce_interval = "250ms"
file_extensions = ["go", "rs"]
`), 0o644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ProjectName)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, 2, cfg.BackupKeep)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceInterval.Duration)
	assert.Equal(t, []string{"go", "rs"}, cfg.FileExtensions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ANCHORA_PROJECT_NAME", "from-env")
	t.Setenv("ANCHORA_MAX_FILE_SIZE", "4096")
	t.Setenv("ANCHORA_BACKUP_KEEP", "9")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ProjectName)
	assert.Equal(t, int64(4096), cfg.MaxFileSize)
	assert.Equal(t, 9, cfg.BackupKeep)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("ANCHORA_MAX_FILE_SIZE", "-1")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	dir := filepath.Join(ws, ".anchora")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0o644))

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestShouldScan(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.True(t, cfg.ShouldScan("main.go"))
	assert.True(t, cfg.ShouldScan("lib.RS"))
	assert.False(t, cfg.ShouldScan("binary.exe"))
	assert.False(t, cfg.ShouldScan("Makefile"))
	assert.False(t, cfg.ShouldScan("noext"))
}

func TestIgnoreDir(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.True(t, cfg.IgnoreDir("node_modules"))
	assert.True(t, cfg.IgnoreDir(".anchora"))
	assert.True(t, cfg.IgnoreDir(".hidden"), "hidden directories are always ignored")
	assert.False(t, cfg.IgnoreDir("src"))
}
