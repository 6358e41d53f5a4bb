// Package config loads scanner configuration from defaults, an optional
// .anchora/config.toml in the workspace, and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config controls file discovery and housekeeping for a workspace.
type Config struct {
	// ProjectName overrides the workspace directory name in graph metadata.
	ProjectName string `toml:"project_name"`

	// FileExtensions lists extensions (without dot) eligible for scanning.
	FileExtensions []string `toml:"file_extensions"`

	// IgnoredDirs are directory names skipped during workspace walks.
	IgnoredDirs []string `toml:"ignored_dirs"`

	// MaxFileSize is the largest file, in bytes, the scanner will read.
	MaxFileSize int64 `toml:"max_file_size"`

	// BackupKeep is how many timestamped backups to retain.
	BackupKeep int `toml:"backup_keep"`

	// DebounceInterval coalesces watcher events per path.
	DebounceInterval Duration `toml:"debounce_interval"`
}

// Duration wraps time.Duration with TOML text unmarshalling ("500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FileExtensions: []string{
			"rs", "ts", "tsx", "js", "jsx", "py", "java", "go",
			"c", "h", "cpp", "hpp", "cc", "cxx", "cs", "php", "rb",
			"swift", "kt", "scala", "dart", "ex", "exs", "erl", "hs",
			"ml", "clj", "lua", "sh", "sql", "vue", "svelte",
			"yaml", "yml", "toml", "md",
		},
		IgnoredDirs: []string{
			"target", "node_modules", ".git", ".vscode", ".anchora",
			"dist", "build", "__pycache__", ".idea", "out", "vendor",
		},
		MaxFileSize:      1 << 20, // 1 MiB
		BackupKeep:       5,
		DebounceInterval: Duration{500 * time.Millisecond},
	}
}

// Load builds the configuration for a workspace: defaults, then the
// workspace config file if present, then environment overrides.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".anchora", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max_file_size must be positive, got %d", cfg.MaxFileSize)
	}
	if cfg.BackupKeep < 0 {
		return nil, fmt.Errorf("backup_keep must not be negative, got %d", cfg.BackupKeep)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("ANCHORA_PROJECT_NAME"); v != "" {
		cfg.ProjectName = v
	}
	if v := os.Getenv("ANCHORA_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSize = n
		}
	}
	if v := os.Getenv("ANCHORA_BACKUP_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackupKeep = n
		}
	}
}

// ShouldScan reports whether a file name has an eligible extension.
func (c *Config) ShouldScan(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, e := range c.FileExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// IgnoreDir reports whether a directory name is excluded from walks.
// Hidden directories are always excluded.
func (c *Config) IgnoreDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, d := range c.IgnoredDirs {
		if d == name {
			return true
		}
	}
	return false
}
