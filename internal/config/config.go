package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dejo1307/archstyle/internal/classify"
)

// DefaultFile is the configuration file looked up in the repository root.
const DefaultFile = "archstyle.yaml"

// Config represents the archstyle.yaml configuration.
type Config struct {
	Repo       string           `yaml:"repo"`
	Ignore     []string         `yaml:"ignore"`
	Extractors []string         `yaml:"extractors"`
	Renderers  []string         `yaml:"renderers"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// OutputConfig controls where and how output artifacts are generated.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	WriteFacts bool   `yaml:"write_facts"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ClassifierConfig extends the built-in classification tables.
type ClassifierConfig struct {
	// ExtraPatterns maps table -> label -> additional patterns. Unknown labels are appended
	// with the lowest precedence.
	ExtraPatterns map[string]map[string][]string `yaml:"extra_patterns"`
	// Brokers extends the message broker vocabulary of the event-driven analyzer.
	Brokers []string `yaml:"brokers"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Repo: ".",
		Ignore: []string{
			"vendor/**",
			"node_modules/**",
			".git/**",
			"dist/**",
			"build/**",
			".archstyle/**",
		},
		Extractors: []string{"go", "typescript", "text", "manifest"},
		Renderers:  []string{"markdown"},
		Output: OutputConfig{
			Dir:        ".archstyle",
			WriteFacts: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = ".archstyle"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// IsExtractorEnabled returns true if the named extractor is enabled.
func (c *Config) IsExtractorEnabled(name string) bool {
	return contains(c.Extractors, name)
}

// IsRendererEnabled returns true if the named renderer is enabled.
func (c *Config) IsRendererEnabled(name string) bool {
	return contains(c.Renderers, name)
}

// Registry builds the classification registry with the configured extensions applied.
func (c *Config) Registry() (*classify.Registry, error) {
	reg := classify.NewRegistry()

	tables := make([]string, 0, len(c.Classifier.ExtraPatterns))
	for table := range c.Classifier.ExtraPatterns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		labels := make([]string, 0, len(c.Classifier.ExtraPatterns[table]))
		for label := range c.Classifier.ExtraPatterns[table] {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			if err := reg.Extend(table, label, c.Classifier.ExtraPatterns[table][label]...); err != nil {
				return nil, fmt.Errorf("classifier config: %w", err)
			}
		}
	}

	reg.AddBrokers(c.Classifier.Brokers...)
	return reg, nil
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger. Output goes to w, normally stderr, because the MCP
// transport owns stdout.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
