// Package config provides configuration management for bisync.
// It supports YAML configuration files, legacy TOML files, environment
// variables, and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/averill/bisync/internal/util"
)

// Config represents the complete bisync configuration.
type Config struct {
	// General configures paths and run-wide limits
	General GeneralConfig `yaml:"general" toml:"general"`

	// Hosts maps a host identifier to its element list and exclusions.
	// The reserved key "default" applies to hosts without an entry.
	Hosts map[string]HostConfig `yaml:"hosts" toml:"hosts"`

	// Exclusions holds global exclusion patterns passed to every transfer
	Exclusions []string `yaml:"exclusions" toml:"exclusions"`

	// ExtraAreas are additional directory pairs synced after the elements
	ExtraAreas []AreaConfig `yaml:"extra_areas,omitempty" toml:"extra_areas"`

	// Permissions configures the post-download permission pass
	Permissions PermissionsConfig `yaml:"permissions,omitempty" toml:"permissions"`

	// Notify enables a desktop notification when a run finishes
	Notify bool `yaml:"notify" toml:"notify"`
}

// GeneralConfig holds paths and run-wide limits.
type GeneralConfig struct {
	// LocalRoot is the local side of the synchronization (default: home)
	LocalRoot string `yaml:"local_root" toml:"local_root"`
	// MountPoint is where the cloud client mounts its drive
	MountPoint string `yaml:"mount_point" toml:"mount_point"`
	// SharedDir is the read-write backup area under the mount point
	SharedDir string `yaml:"shared_dir" toml:"shared_dir"`
	// ReadOnlyDir is the per-machine read-only backup area
	ReadOnlyDir string `yaml:"readonly_dir" toml:"readonly_dir"`
	// MountCheckFile is an optional sentinel expected under the remote root
	MountCheckFile string `yaml:"mount_check_file,omitempty" toml:"mount_check_file"`
	// LockFile is the path of the cross-invocation lock
	LockFile string `yaml:"lock_file" toml:"lock_file"`
	// LogFile is the plain-text log sink, empty to disable
	LogFile string `yaml:"log_file" toml:"log_file"`
	// TimeoutMinutes bounds each per-element transfer
	TimeoutMinutes uint `yaml:"timeout_minutes" toml:"timeout_minutes"`
	// MinFreeMB is the minimum free space required on the destination root
	MinFreeMB uint64 `yaml:"min_free_mb" toml:"min_free_mb"`
}

// HostConfig holds the element list and exclusions for one host.
type HostConfig struct {
	// Elements is the ordered list of relative paths to synchronize
	Elements []string `yaml:"elements" toml:"elements"`
	// Exclusions holds host-specific exclusion patterns
	Exclusions []string `yaml:"exclusions,omitempty" toml:"exclusions"`
}

// AreaConfig declares one extra local/remote directory pair.
type AreaConfig struct {
	Name      string   `yaml:"name" toml:"name"`
	LocalDir  string   `yaml:"local_dir" toml:"local_dir"`
	RemoteDir string   `yaml:"remote_dir" toml:"remote_dir"`
	Exclude   []string `yaml:"exclude,omitempty" toml:"exclude"`
}

// PermissionsConfig maps glob patterns to octal modes.
type PermissionsConfig struct {
	// Files maps file glob patterns to octal modes (e.g. "*.sh": "0755")
	Files map[string]string `yaml:"files,omitempty" toml:"files"`
	// Directories maps directory glob patterns to octal modes
	Directories map[string]string `yaml:"directories,omitempty" toml:"directories"`
}

// Default returns the default configuration.
func Default() *Config {
	home := util.HomeDir()
	mount := filepath.Join(home, "CloudDrive")
	return &Config{
		General: GeneralConfig{
			LocalRoot:      home,
			MountPoint:     mount,
			SharedDir:      filepath.Join(mount, "Backups", "Shared"),
			ReadOnlyDir:    filepath.Join(mount, "Backups", "Machines"),
			LockFile:       util.DefaultLockPath(),
			LogFile:        util.DefaultLogPath(),
			TimeoutMinutes: 30,
			MinFreeMB:      100,
		},
		Hosts:  map[string]HostConfig{},
		Notify: true,
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// legacyFileName is the name of the legacy TOML config file.
const legacyFileName = "config.toml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.ConfigPath(), configFileName)
}

// Load loads the configuration, merging with defaults. It prefers the YAML
// config file and falls back to the legacy TOML file; if neither exists the
// defaults plus environment overrides are returned.
func Load() (*Config, error) {
	if path := FilePath(); exists(path) {
		return LoadFromPath(path)
	}
	if path := filepath.Join(util.ConfigPath(), legacyFileName); exists(path) {
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.applyEnvironment()
	cfg.expandPaths()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are parsed as legacy TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	cfg.expandPaths()
	return cfg, nil
}

// Save writes the configuration to the YAML config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern BISYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("BISYNC_LOCAL_ROOT"); v != "" {
		c.General.LocalRoot = v
	}
	if v := os.Getenv("BISYNC_MOUNT_POINT"); v != "" {
		c.General.MountPoint = v
	}
	if v := os.Getenv("BISYNC_SHARED_DIR"); v != "" {
		c.General.SharedDir = v
	}
	if v := os.Getenv("BISYNC_READONLY_DIR"); v != "" {
		c.General.ReadOnlyDir = v
	}
	if v := os.Getenv("BISYNC_LOCK_FILE"); v != "" {
		c.General.LockFile = v
	}
	if v := os.Getenv("BISYNC_LOG_FILE"); v != "" {
		c.General.LogFile = v
	}
	if v := os.Getenv("BISYNC_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			c.General.TimeoutMinutes = uint(n)
		}
	}
	if v := os.Getenv("BISYNC_MIN_FREE_MB"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.General.MinFreeMB = n
		}
	}
	if v := os.Getenv("BISYNC_NOTIFY"); v != "" {
		c.Notify = parseBool(v)
	}
}

// expandPaths expands ~ in every configured path.
func (c *Config) expandPaths() {
	c.General.LocalRoot = util.ExpandPath(c.General.LocalRoot, "")
	c.General.MountPoint = util.ExpandPath(c.General.MountPoint, "")
	c.General.SharedDir = util.ExpandPath(c.General.SharedDir, "")
	c.General.ReadOnlyDir = util.ExpandPath(c.General.ReadOnlyDir, "")
	c.General.LockFile = util.ExpandPath(c.General.LockFile, "")
	c.General.LogFile = util.ExpandPath(c.General.LogFile, "")
	for i := range c.ExtraAreas {
		c.ExtraAreas[i].LocalDir = util.ExpandPath(c.ExtraAreas[i].LocalDir, "")
		c.ExtraAreas[i].RemoteDir = util.ExpandPath(c.ExtraAreas[i].RemoteDir, "")
	}
}

// HostFor returns the host section for the given hostname, falling back to
// the "default" entry. The second return is false when neither exists.
func (c *Config) HostFor(hostname string) (HostConfig, bool) {
	if hc, ok := c.Hosts[hostname]; ok {
		return hc, true
	}
	hc, ok := c.Hosts["default"]
	return hc, ok
}

// AllExclusions returns the global exclusions followed by the host-specific
// ones, in configuration order.
func (c *Config) AllExclusions(hostname string) []string {
	out := append([]string(nil), c.Exclusions...)
	if hc, ok := c.HostFor(hostname); ok {
		out = append(out, hc.Exclusions...)
	}
	return out
}

// Validate reports configuration problems that make a run impossible.
func (c *Config) Validate() error {
	if c.General.LocalRoot == "" {
		return fmt.Errorf("config: local_root must be set")
	}
	if !filepath.IsAbs(c.General.LocalRoot) {
		return fmt.Errorf("config: local_root must be absolute, got %q", c.General.LocalRoot)
	}
	if c.General.MountPoint == "" {
		return fmt.Errorf("config: mount_point must be set")
	}
	if c.General.SharedDir == "" || c.General.ReadOnlyDir == "" {
		return fmt.Errorf("config: shared_dir and readonly_dir must be set")
	}
	if c.General.TimeoutMinutes == 0 {
		return fmt.Errorf("config: timeout_minutes must be positive")
	}
	for _, area := range c.ExtraAreas {
		if area.Name == "" || area.LocalDir == "" || area.RemoteDir == "" {
			return fmt.Errorf("config: extra area needs name, local_dir and remote_dir")
		}
	}
	return nil
}

// Exists returns true if a config file exists.
func Exists() bool {
	return exists(FilePath()) || exists(filepath.Join(util.ConfigPath(), legacyFileName))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
