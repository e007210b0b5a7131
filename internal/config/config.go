// internal/config/config.go
//
// This package handles configuration and the .phonon directory structure.
// A project that runs phonon gets a .phonon/ folder in its root holding
// config.yaml and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/phonon-interface/internal/dataset"
	"github.com/kingrea/phonon-interface/internal/interfaces"
	"github.com/kingrea/phonon-interface/internal/symmetry"
)

const (
	// PhononDir is the name of the directory we create in each project
	PhononDir = ".phonon"

	// Environment overrides, also read from <project>/.env.
	EnvInterface = "PHONON_INTERFACE"
	EnvSymprec   = "PHONON_SYMPREC"
	EnvLogLevel  = "PHONON_LOG_LEVEL"

	defaultLogLevel = 1
)

const defaultProjectConfigYAML = `# phonon project configuration
version: 1

# Simulation code whose file formats are read: vasp, abinit, pwscf, wien2k or elk.
interface: vasp

# Cartesian tolerance for the wien2k symmetry search.
symprec: 1.0e-05

# 0 silences status messages, 2 adds per-file detail.
log_level: 1

files:
  displacements: disp.yaml
  force_sets: FORCE_SETS

# The first force file holds the perfect supercell (vasp).
zero_point: false

# Treat wien2k supercells as P1 and expect forces for every atom.
wien2k_p1: false
`

// FilesConfig names the dataset files.
type FilesConfig struct {
	Displacements string `yaml:"displacements"`
	ForceSets     string `yaml:"force_sets"`
}

// ProjectConfig models .phonon/config.yaml.
type ProjectConfig struct {
	Version   int         `yaml:"version"`
	Interface string      `yaml:"interface"`
	Symprec   float64     `yaml:"symprec"`
	LogLevel  int         `yaml:"log_level"`
	Files     FilesConfig `yaml:"files"`
	ZeroPoint bool        `yaml:"zero_point"`
	Wien2kP1  bool        `yaml:"wien2k_p1"`
}

// Config holds the runtime configuration for phonon.
type Config struct {
	// ProjectDir is the directory where the user ran `phonon` from
	ProjectDir string

	// PhononProjectDir is ProjectDir/.phonon
	PhononProjectDir string

	Project ProjectConfig
}

// InitProjectDir creates the .phonon directory structure in the given
// project directory and writes a commented default config.yaml when none
// exists.
//
// Structure created:
// .phonon/
// ├── config.yaml
// └── logs/         <- phonon.log and journal.log
func InitProjectDir(projectDir string) error {
	phononDir := filepath.Join(projectDir, PhononDir)
	if err := os.MkdirAll(filepath.Join(phononDir, "logs"), 0755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(phononDir, "config.yaml"))
}

// NewConfig loads .phonon/config.yaml (if present) and applies environment
// overrides, including those from <projectDir>/.env.
func NewConfig(projectDir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(projectDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{
		ProjectDir:       projectDir,
		PhononProjectDir: filepath.Join(projectDir, PhononDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.PhononProjectDir, "logs")
}

// LogPath is the console mirror written by the logging package.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "phonon.log")
}

// JournalPath is the logbook of loader and assembler runs.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.PhononProjectDir, "config.yaml")
}

// Mode returns the configured interface mode.
func (c *Config) Mode() (interfaces.Mode, error) {
	return interfaces.ParseMode(c.Project.Interface)
}

// DisplacementsPath resolves files.displacements against the project directory.
func (c *Config) DisplacementsPath() string {
	return resolvePath(c.ProjectDir, c.Project.Files.Displacements)
}

// ForceSetsPath resolves files.force_sets against the project directory.
func (c *Config) ForceSetsPath() string {
	return resolvePath(c.ProjectDir, c.Project.Files.ForceSets)
}

// SetInterface updates the configured mode and persists the value back to
// .phonon/config.yaml.
func (c *Config) SetInterface(name string) error {
	mode, err := interfaces.ParseMode(name)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.Interface = string(mode)
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvInterface)); v != "" {
		c.Project.Interface = v
	}
	if v := strings.TrimSpace(getenv(EnvSymprec)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: invalid value %q", EnvSymprec, v)
		}
		c.Project.Symprec = f
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: invalid value %q", EnvLogLevel, v)
		}
		c.Project.LogLevel = n
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Interface: string(interfaces.DefaultMode),
		Symprec:   symmetry.DefaultSymprec,
		LogLevel:  defaultLogLevel,
		Files: FilesConfig{
			Displacements: dataset.DefaultDisplacementFile,
			ForceSets:     dataset.DefaultForceSetsFile,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Symprec == 0 {
		pc.Symprec = symmetry.DefaultSymprec
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Interface = strings.ToLower(strings.TrimSpace(pc.Interface))
	if pc.Interface == "" {
		pc.Interface = string(interfaces.DefaultMode)
	}
	pc.Files.Displacements = strings.TrimSpace(pc.Files.Displacements)
	if pc.Files.Displacements == "" {
		pc.Files.Displacements = dataset.DefaultDisplacementFile
	}
	pc.Files.ForceSets = strings.TrimSpace(pc.Files.ForceSets)
	if pc.Files.ForceSets == "" {
		pc.Files.ForceSets = dataset.DefaultForceSetsFile
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if !interfaces.Mode(pc.Interface).Valid() {
		return fmt.Errorf("interface: %w", &interfaces.UnsupportedModeError{Mode: interfaces.Mode(pc.Interface)})
	}
	if pc.Symprec <= 0 {
		return fmt.Errorf("symprec must be > 0")
	}
	if pc.LogLevel < 0 || pc.LogLevel > 2 {
		return fmt.Errorf("log_level must be 0, 1 or 2")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.PhononProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure phonon dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
