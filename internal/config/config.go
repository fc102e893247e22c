package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the project configuration consumed by the code-assist engine.
type Config struct {
	// ProjectRoot is the project's base directory. Its modules are importable
	// even when it is not listed in ImportDirs.
	ProjectRoot string `yaml:"project_root" toml:"project_root" env:"PYASSIST_PROJECT_ROOT"`

	// ImportDirs are additional directories the project imports from.
	ImportDirs []string `yaml:"import_dirs" toml:"import_dirs" env:"PYASSIST_IMPORT_DIRS"`

	// DirUnsafeModules are always resolved by live introspection instead of
	// parsing their sources.
	DirUnsafeModules []string `yaml:"dir_unsafe_modules" toml:"dir_unsafe_modules"`

	// Python is the interpreter used for introspection. Empty disables it.
	Python string `yaml:"python" toml:"python" env:"PYASSIST_PYTHON"`

	// SystemPaths overrides the interpreter's sys.path for the system-wide index.
	SystemPaths []string `yaml:"system_paths" toml:"system_paths" env:"PYASSIST_SYSTEM_PATHS"`

	// SnapshotPath is a msgpack introspection snapshot used when the interpreter
	// is unavailable or fails.
	SnapshotPath string `yaml:"snapshot_path" toml:"snapshot_path" env:"PYASSIST_SNAPSHOT_PATH"`

	// Exclude holds glob patterns of directory or file base names skipped by
	// module listing and project scans.
	Exclude []string `yaml:"exclude" toml:"exclude"`

	// MaxFixes is the number of syntax errors the code-assist backend tolerates.
	MaxFixes int `yaml:"max_fixes" toml:"max_fixes" env:"PYASSIST_MAX_FIXES"`

	// IntrospectTimeoutSec bounds a single interpreter call.
	IntrospectTimeoutSec int `yaml:"introspect_timeout_sec" toml:"introspect_timeout_sec" env:"PYASSIST_INTROSPECT_TIMEOUT_SEC"`

	// IntrospectCacheSize is the number of introspected modules kept in memory.
	IntrospectCacheSize int `yaml:"introspect_cache_size" toml:"introspect_cache_size"`

	// DocSignaturePrefixes lists callee prefixes (e.g. "QtCore.") whose
	// calltips are replaced by signatures found in their docstrings.
	DocSignaturePrefixes []string `yaml:"doc_signature_prefixes" toml:"doc_signature_prefixes"`

	// Logging
	LogLevel string `yaml:"log_level" toml:"log_level" env:"PYASSIST_LOG_LEVEL"`
	Verbose  bool   `yaml:"verbose" toml:"verbose" env:"PYASSIST_VERBOSE"`

	// MetricsAddr enables a Prometheus endpoint in serve mode (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr" env:"PYASSIST_METRICS_ADDR"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProjectRoot:          "",
		ImportDirs:           nil,
		DirUnsafeModules:     []string{"os", "os.path", "sys", "xml", "collections", "unittest", "numpy", "scipy"},
		Python:               "python3",
		SystemPaths:          nil,
		SnapshotPath:         "",
		Exclude:              []string{"__pycache__", ".git", ".hg", ".svn", ".tox", ".venv", "venv", "node_modules"},
		MaxFixes:             7,
		IntrospectTimeoutSec: 10,
		IntrospectCacheSize:  256,
		DocSignaturePrefixes: []string{"QtCore.", "QtGui."},
		LogLevel:             "info",
		Verbose:              false,
		MetricsAddr:          "",
	}
}

// globalConfigFilePath returns the global config file path (~/.pyassist/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyassist/config.yaml"
	}
	return filepath.Join(home, ".pyassist", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.pyassist/config.yaml)
func projectConfigFilePath() string {
	return filepath.Join(".pyassist", "config.yaml")
}

// GlobalConfigPath is exported for the init and doctor commands.
func GlobalConfigPath() string { return globalConfigFilePath() }

// ProjectConfigPath is exported for the init and doctor commands.
func ProjectConfigPath() string { return projectConfigFilePath() }

// Load reads configuration with the following priority (highest to lowest):
// 1. Project-level config (./.pyassist/config.yaml)
// 2. Environment variables (a ./.env file is loaded first, never overriding the real environment)
// 3. Global config (~/.pyassist/config.yaml)
// 4. Defaults
//
// When a project-level config exists and sets no project_root, the current
// directory becomes the project root.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := decodeFile(globalConfigFilePath(), cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	projectConfigPath := projectConfigFilePath()
	if err := decodeFile(projectConfigPath, cfg); err == nil {
		if cfg.ProjectRoot == "" {
			if wd, err := os.Getwd(); err == nil {
				cfg.ProjectRoot = wd
			}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML or TOML file. The
// format is chosen by extension (.toml for TOML, anything else for YAML).
// Relative import dirs and project root are resolved against the file's directory.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := decodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil, err
	}

	applyEnvOverrides(cfg)

	base := filepath.Dir(path)
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = base
	} else if !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Join(base, cfg.ProjectRoot)
	}
	for i, dir := range cfg.ImportDirs {
		if !filepath.IsAbs(dir) {
			cfg.ImportDirs[i] = filepath.Join(cfg.ProjectRoot, dir)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeFile decodes path into cfg. A missing file yields an error wrapping fs.ErrNotExist.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their values.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified file path, YAML or TOML by extension.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewEncoder(f).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return enc.Close()
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PYASSIST_PROJECT_ROOT"); v != "" {
		cfg.ProjectRoot = v
	}
	if v := os.Getenv("PYASSIST_IMPORT_DIRS"); v != "" {
		cfg.ImportDirs = filepath.SplitList(v)
	}
	if v, ok := os.LookupEnv("PYASSIST_PYTHON"); ok {
		cfg.Python = v
	}
	if v := os.Getenv("PYASSIST_SYSTEM_PATHS"); v != "" {
		cfg.SystemPaths = filepath.SplitList(v)
	}
	if v := os.Getenv("PYASSIST_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("PYASSIST_MAX_FIXES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxFixes = i
		}
	}
	if v := os.Getenv("PYASSIST_INTROSPECT_TIMEOUT_SEC"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.IntrospectTimeoutSec = i
		}
	}
	if v := os.Getenv("PYASSIST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PYASSIST_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("PYASSIST_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// normalize cleans directory lists and removes duplicates, keeping order.
func (c *Config) normalize() {
	if c.ProjectRoot != "" {
		if abs, err := filepath.Abs(c.ProjectRoot); err == nil {
			c.ProjectRoot = abs
		}
	}

	seen := make(map[string]bool, len(c.ImportDirs))
	dirs := c.ImportDirs[:0]
	for _, dir := range c.ImportDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	c.ImportDirs = dirs
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.MaxFixes < 0 {
		return fmt.Errorf("max_fixes must be non-negative")
	}
	if c.IntrospectTimeoutSec <= 0 {
		return fmt.Errorf("introspect_timeout_sec must be positive")
	}
	if c.IntrospectCacheSize <= 0 {
		return fmt.Errorf("introspect_cache_size must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn or error)", c.LogLevel)
	}
	if c.ProjectRoot != "" && !filepath.IsAbs(c.ProjectRoot) {
		return fmt.Errorf("project_root must be absolute: %s", c.ProjectRoot)
	}
	return nil
}

// IntrospectTimeout returns the interpreter call timeout.
func (c *Config) IntrospectTimeout() time.Duration {
	return time.Duration(c.IntrospectTimeoutSec) * time.Second
}

// IsDirUnsafe reports whether module must be resolved by live introspection.
// A dotted module is dir-unsafe when the module itself or its top-level
// package is listed.
func (c *Config) IsDirUnsafe(module string) bool {
	top := module
	if i := strings.IndexByte(module, '.'); i > 0 {
		top = module[:i]
	}
	for _, name := range c.DirUnsafeModules {
		if name == module || name == top {
			return true
		}
	}
	return false
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
