// Package config loads the surf configuration file and supplies defaults
// for everything the file leaves unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable settings for the CLI. Every field has a default;
// the config file only needs to name what it overrides.
type Config struct {
	// StateDir is where per-session records are stored
	StateDir string `yaml:"state_dir"`

	// ProfileDir is where saved domain profiles (cookies + local storage) live
	ProfileDir string `yaml:"profile_dir"`

	// DefaultSession is the session name used when --session is not given
	DefaultSession string `yaml:"default_session"`

	// Viewport dimensions for newly launched browsers
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	// UserAgent is sent by newly launched browsers
	UserAgent string `yaml:"user_agent"`

	// ActionPatterns are glob patterns (matched against lowercased element
	// names) that mark an element as action-intent for snapshot ranking
	ActionPatterns []string `yaml:"action_patterns"`
}

const (
	// DefaultSessionName is used when neither the flag nor the config file name one
	DefaultSessionName = "default"

	defaultViewportWidth  = 1280
	defaultViewportHeight = 720

	// Fixed desktop user agent so launched sessions render desktop layouts
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// defaultActionPatterns reproduce the built-in action-intent keyword set.
var defaultActionPatterns = []string{
	"*submit*", "*continue*", "*next*", "*save*", "*apply*", "*create*", "*sign*",
}

// Default returns a fully populated configuration.
func Default() *Config {
	return &Config{
		StateDir:       filepath.Join(os.TempDir(), "surf-sessions"),
		ProfileDir:     ".surf-profiles",
		DefaultSession: DefaultSessionName,
		ViewportWidth:  defaultViewportWidth,
		ViewportHeight: defaultViewportHeight,
		UserAgent:      defaultUserAgent,
		ActionPatterns: defaultActionPatterns,
	}
}

// Load reads the configuration from path, or from ~/.surf/config.yaml when
// path is empty. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// No home directory means no default config file; run on defaults.
			return cfg, nil
		}
		path = filepath.Join(homeDir, ".surf", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Guard against explicit empty overrides for fields the rest of the
	// tool assumes are non-empty.
	if cfg.StateDir == "" {
		cfg.StateDir = Default().StateDir
	}
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = Default().ProfileDir
	}
	if cfg.DefaultSession == "" {
		cfg.DefaultSession = DefaultSessionName
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = defaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = defaultViewportHeight
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if len(cfg.ActionPatterns) == 0 {
		cfg.ActionPatterns = defaultActionPatterns
	}

	return cfg, nil
}
