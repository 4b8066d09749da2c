// Package config provides configuration loading and management for boardseed.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/boardseed/desired"
)

// Config represents the complete boardseed configuration
type Config struct {
	Board     BoardConfig     `yaml:"board"`
	Manifest  string          `yaml:"manifest,omitempty"`
	GitHub    GitHubConfig    `yaml:"github"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Fields    FieldsConfig    `yaml:"fields"`
}

// BoardConfig configures the board to create and where its items live
type BoardConfig struct {
	// Owner is the account owning the board (resolved from the git remote if empty)
	Owner string `yaml:"owner,omitempty"`
	// Repo is the repository issues are filed in (resolved from the git remote if empty)
	Repo string `yaml:"repo,omitempty"`
	// Title is the title of the new board
	Title string `yaml:"title"`
	// Sprint is stamped on every item that does not set its own
	Sprint string `yaml:"sprint"`
}

// GitHubConfig configures the gh CLI adapter
type GitHubConfig struct {
	// Binary is the gh executable name or path
	Binary string `yaml:"binary"`
	// TokenEnv names the environment variable holding the access token
	TokenEnv string `yaml:"token_env"`
}

// WorkspaceConfig configures the local checkout
type WorkspaceConfig struct {
	// Path is the checkout whose origin remote supplies owner/repo (auto-detected from git if empty)
	Path string `yaml:"path,omitempty"`
}

// JournalConfig configures the run journal
type JournalConfig struct {
	// Path is the SQLite file (empty disables the journal)
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	// Textfile is written with adapter metrics at the end of a run (empty disables)
	Textfile string `yaml:"textfile,omitempty"`
}

// FieldsConfig configures field reconciliation
type FieldsConfig struct {
	// Strict fails the run when an existing field disagrees with the desired state
	Strict bool `yaml:"strict"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Board: BoardConfig{
			Title:  desired.DefaultBoardTitle,
			Sprint: desired.DefaultSprint,
		},
		GitHub: GitHubConfig{
			Binary:   "gh",
			TokenEnv: "GITHUB_TOKEN",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Board.Title == "" {
		return fmt.Errorf("board.title is required")
	}
	if c.Board.Sprint == "" {
		return fmt.Errorf("board.sprint is required")
	}
	if c.GitHub.Binary == "" {
		return fmt.Errorf("github.binary is required")
	}
	if c.GitHub.TokenEnv == "" {
		return fmt.Errorf("github.token_env is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Board
	if other.Board.Owner != "" {
		c.Board.Owner = other.Board.Owner
	}
	if other.Board.Repo != "" {
		c.Board.Repo = other.Board.Repo
	}
	if other.Board.Title != "" {
		c.Board.Title = other.Board.Title
	}
	if other.Board.Sprint != "" {
		c.Board.Sprint = other.Board.Sprint
	}

	if other.Manifest != "" {
		c.Manifest = other.Manifest
	}

	// GitHub
	if other.GitHub.Binary != "" {
		c.GitHub.Binary = other.GitHub.Binary
	}
	if other.GitHub.TokenEnv != "" {
		c.GitHub.TokenEnv = other.GitHub.TokenEnv
	}

	if other.Workspace.Path != "" {
		c.Workspace.Path = other.Workspace.Path
	}
	if other.Journal.Path != "" {
		c.Journal.Path = other.Journal.Path
	}
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}

	// Strict can only be switched on by a higher layer
	if other.Fields.Strict {
		c.Fields.Strict = true
	}
}
