// Package config handles configuration loading and parsing for hookguard.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/logger"
	"github.com/dgerlanc/hookguard/internal/planmode"
	"github.com/dgerlanc/hookguard/internal/rules"
	"github.com/dgerlanc/hookguard/internal/tracker"
)

//go:embed config.toml
var defaultConfig []byte

// Config is the decoded configuration plus the rule registry compiled from it.
type Config struct {
	Include    []string         `toml:"include"`
	Escalation EscalationConfig `toml:"escalation"`
	PlanMode   PlanModeConfig   `toml:"plan_mode"`
	Rules      RulesConfig      `toml:"rules"`
	Log        LogConfig        `toml:"log"`
	Audit      AuditConfig      `toml:"audit"`

	// Registry holds the enabled built-in rules and the regex rules.
	Registry *rules.Registry `toml:"-"`
	// Undecoded lists keys present in the file that hookguard does not know.
	Undecoded []string `toml:"-"`
}

// EscalationConfig tunes the error tracker.
type EscalationConfig struct {
	Threshold int `toml:"threshold"`
}

// PlanModeConfig switches plan-mode signals on and off.
type PlanModeConfig struct {
	PermissionMode bool     `toml:"permission_mode"`
	FilePath       bool     `toml:"file_path"`
	PlanFiles      bool     `toml:"plan_files"`
	PlansDir       string   `toml:"plans_dir"`
	RecentMinutes  int      `toml:"recent_minutes"`
	PathPatterns   []string `toml:"path_patterns"`
}

// RulesConfig disables built-in rules and adds regex rules.
type RulesConfig struct {
	Disabled []string    `toml:"disabled"`
	Regex    []RegexRule `toml:"regex"`
}

// RegexRule is a [[rules.regex]] entry.
type RegexRule struct {
	ID            string   `toml:"id"`
	Summary       string   `toml:"summary"`
	Category      string   `toml:"category"`
	Priority      int      `toml:"priority"`
	Event         string   `toml:"event"`
	Tools         []string `toml:"tools"`
	Action        string   `toml:"action"`
	Pattern       string   `toml:"pattern"`
	Fix           string   `toml:"fix"`
	Marker        string   `toml:"marker"`
	Extensions    []string `toml:"extensions"`
	Exclude       []string `toml:"exclude"`
	RelaxedInPlan bool     `toml:"relaxed_in_plan"`
}

// LogConfig locates the structured log.
type LogConfig struct {
	Path string `toml:"path"`
}

// AuditConfig locates and bounds the decision audit log.
type AuditConfig struct {
	Path      string `toml:"path"`
	Disabled  bool   `toml:"disabled"`
	MaxSizeMB int    `toml:"max_size_mb"`
	Keep      int    `toml:"keep"`
}

var (
	// globalConfig is the loaded configuration
	globalConfig *Config
	// configInitialized tracks whether config has been loaded
	configInitialized bool
	// initErr is the error that forced a fallback to embedded defaults
	initErr error
	// configPath is the file globalConfig was read from, "" for embedded defaults
	configPath string
)

// baseline holds the values used for keys a config file leaves out.
func baseline() *Config {
	return &Config{
		Escalation: EscalationConfig{Threshold: tracker.DefaultThreshold},
		PlanMode: PlanModeConfig{
			PermissionMode: true,
			FilePath:       true,
			PlansDir:       "~/" + constants.ClaudeConfigDir + "/" + constants.ClaudePlansDir,
			RecentMinutes:  int(planmode.DefaultRecent / time.Minute),
			PathPatterns:   slices.Clone(planmode.DefaultPathPatterns),
		},
		Audit: AuditConfig{MaxSizeMB: 10, Keep: 5},
	}
}

// GetConfigDir returns the config directory path.
// Uses HOOKGUARD_CONFIG env var if set, otherwise ~/.config/hookguard
func GetConfigDir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.XDGConfigSubdir, constants.AppName), nil
}

// EnsureConfigFiles creates the config directory and writes default config file if it doesn't exist.
func EnsureConfigFiles(configDir string) error {
	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(configDir, constants.ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, defaultConfig, constants.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", constants.ConfigFileName, err)
		}
	}

	return nil
}

// LoadConfig parses TOML data without resolving includes.
func LoadConfig(data []byte) (*Config, error) {
	return LoadConfigWithDir(data, "")
}

// LoadConfigWithDir parses TOML data and resolves include paths relative to
// dir. Included files may only contribute rules; their other sections are
// ignored.
func LoadConfigWithDir(data []byte, dir string) (*Config, error) {
	cfg := baseline()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	for _, key := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, key.String())
	}

	if len(cfg.Include) > 0 {
		if dir == "" {
			return nil, fmt.Errorf("include requires a config directory")
		}
		seen := map[string]bool{}
		for _, inc := range cfg.Include {
			if err := loadInclude(cfg, dir, inc, seen); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadInclude(cfg *Config, dir, name string, seen map[string]bool) error {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	path = filepath.Clean(path)
	if seen[path] {
		return fmt.Errorf("circular include of %s", name)
	}
	seen[path] = true
	defer delete(seen, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read include %s: %w", name, err)
	}
	var inc Config
	if _, err := toml.Decode(string(data), &inc); err != nil {
		return fmt.Errorf("failed to parse include %s: %w", name, err)
	}
	cfg.Rules.Disabled = append(cfg.Rules.Disabled, inc.Rules.Disabled...)
	cfg.Rules.Regex = append(cfg.Rules.Regex, inc.Rules.Regex...)

	for _, nested := range inc.Include {
		if err := loadInclude(cfg, filepath.Dir(path), nested, seen); err != nil {
			return err
		}
	}
	return nil
}

// compile validates settings and builds the rule registry.
func (c *Config) compile() error {
	if c.Escalation.Threshold < 1 {
		return fmt.Errorf("escalation.threshold must be at least 1, got %d", c.Escalation.Threshold)
	}
	if c.PlanMode.RecentMinutes < 0 {
		return fmt.Errorf("plan_mode.recent_minutes must not be negative")
	}

	builtins, err := rules.NewRegistry(rules.Builtins()...)
	if err != nil {
		return err
	}
	for _, id := range c.Rules.Disabled {
		if _, ok := builtins.Get(id); !ok {
			return fmt.Errorf("%w: rules.disabled names unknown rule %q", rules.ErrInvalidRule, id)
		}
	}
	reg := builtins.Without(c.Rules.Disabled...)

	for _, rr := range c.Rules.Regex {
		rule, err := rules.CompileRegex(rr.spec())
		if err != nil {
			return err
		}
		if err := reg.Add(rule); err != nil {
			return err
		}
	}
	c.Registry = reg
	return nil
}

func (r RegexRule) spec() rules.RegexSpec {
	return rules.RegexSpec{
		ID:            r.ID,
		Summary:       r.Summary,
		Category:      r.Category,
		Priority:      r.Priority,
		Event:         r.Event,
		Tools:         r.Tools,
		Action:        r.Action,
		Pattern:       r.Pattern,
		Fix:           r.Fix,
		Marker:        r.Marker,
		Extensions:    r.Extensions,
		Exclude:       r.Exclude,
		RelaxedInPlan: r.RelaxedInPlan,
	}
}

// PlanModeOptions converts the [plan_mode] section for the detector.
func (c *Config) PlanModeOptions(e env.Env) planmode.Options {
	return planmode.Options{
		PermissionMode: c.PlanMode.PermissionMode,
		FilePath:       c.PlanMode.FilePath,
		PlanFiles:      c.PlanMode.PlanFiles,
		PathPatterns:   c.PlanMode.PathPatterns,
		PlansDir:       e.ExpandHome(c.PlanMode.PlansDir),
		Recent:         time.Duration(c.PlanMode.RecentMinutes) * time.Minute,
		Now:            e.Now,
	}
}

// LogPath returns the structured log path, or "" when it cannot be resolved.
func (c *Config) LogPath(e env.Env) string {
	return dataPath(e, c.Log.Path, constants.LogFileName)
}

// AuditPath returns the audit log path, or "" when it cannot be resolved.
func (c *Config) AuditPath(e env.Env) string {
	return dataPath(e, c.Audit.Path, constants.AuditFileName)
}

func dataPath(e env.Env, configured, name string) string {
	if configured != "" {
		return e.ExpandHome(configured)
	}
	dir := e.DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

// loadEmbeddedDefaults loads the embedded default config file.
func loadEmbeddedDefaults() *Config {
	cfg, err := LoadConfig(defaultConfig)
	if err != nil {
		// The embedded file is covered by tests; fall back to built-ins only.
		cfg = baseline()
		cfg.Registry, _ = rules.NewRegistry(rules.Builtins()...)
	}
	return cfg
}

func fallback(err error) error {
	globalConfig = loadEmbeddedDefaults()
	configInitialized = true
	initErr = err
	return err
}

// Init loads configuration from files, creating defaults if necessary.
// If loading fails, it falls back to embedded defaults and returns the
// error, which InitError also reports afterwards. Init does not log; call
// LogStatus once the logger is set up.
func Init() error {
	if configInitialized {
		return initErr
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return fallback(err)
	}

	if err := EnsureConfigFiles(configDir); err != nil {
		return fallback(err)
	}

	path := filepath.Join(configDir, constants.ConfigFileName)
	configData, err := os.ReadFile(path)
	if err != nil {
		return fallback(fmt.Errorf("failed to read %s: %w", constants.ConfigFileName, err))
	}

	cfg, err := LoadConfigWithDir(configData, configDir)
	if err != nil {
		return fallback(fmt.Errorf("failed to load config: %w", err))
	}

	globalConfig = cfg
	configPath = path
	configInitialized = true
	initErr = nil
	return nil
}

// LogStatus logs the outcome of the last Init.
func LogStatus() {
	if !configInitialized {
		return
	}
	if initErr != nil {
		logger.Warn("config load failed, using embedded defaults", "error", initErr)
		return
	}
	if len(globalConfig.Undecoded) > 0 {
		logger.Warn("unknown config keys ignored", "path", configPath, "keys", strings.Join(globalConfig.Undecoded, ", "))
	}
	logger.Debug("config loaded successfully",
		"path", configPath,
		"rules", globalConfig.Registry.Len(),
		"disabled", globalConfig.Rules.Disabled)
}

// Get returns the current configuration.
// If Init has not been called, it initializes with defaults.
func Get() *Config {
	if !configInitialized {
		_ = Init()
	}
	return globalConfig
}

// InitError returns the error that made Init fall back to embedded defaults.
func InitError() error {
	return initErr
}

// GetConfigPath returns the file the active configuration came from, or ""
// when the embedded defaults are in use.
func GetConfigPath() string {
	return configPath
}

// Reset resets the configuration state. Used for testing.
func Reset() {
	configInitialized = false
	globalConfig = nil
	initErr = nil
	configPath = ""
}

// GetDefaultConfig returns the embedded default configuration.
func GetDefaultConfig() []byte {
	return defaultConfig
}
