package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-yaml"
	"github.com/mieubrisse/stacktrace"

	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/rules"
)

// ConfigurationError reports a config.yml that cannot be used. Like an
// invalid rule table it is fatal before any document is touched.
type ConfigurationError struct {
	Filepath string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration in %s: %s", e.Filepath, e.Reason)
}

// CompressionConfig holds the pipeline thresholds.
type CompressionConfig struct {
	MinWordLength    int  `yaml:"minWordLength,omitempty"`
	MinReducedLength int  `yaml:"minReducedLength,omitempty"`
	Aggressive       bool `yaml:"aggressive,omitempty"`
}

// HandoffConfig represents the contents of .handoff/config.yml.
//
// Dictionary and Symbols are merged over the built-in tables unless
// ReplaceDefaults is set. An entry with an empty value removes that
// built-in rule.
type HandoffConfig struct {
	SourceDir       string            `yaml:"sourceDir,omitempty"`
	CompactDir      string            `yaml:"compactDir,omitempty"`
	HumanDir        string            `yaml:"humanDir,omitempty"`
	Workers         int               `yaml:"workers,omitempty"`
	Compression     CompressionConfig `yaml:"compression,omitempty"`
	Dictionary      map[string]string `yaml:"dictionary,omitempty"`
	Symbols         map[string]string `yaml:"symbols,omitempty"`
	Articles        []string          `yaml:"articles,omitempty"`
	NeverReduce     []string          `yaml:"neverReduce,omitempty"`
	ReplaceDefaults bool              `yaml:"replaceDefaults,omitempty"`
}

// GetSourceDir returns the configured source directory, defaulting to docs.
func (c *HandoffConfig) GetSourceDir() string {
	if c.SourceDir == "" {
		return DefaultSourceDirname
	}
	return c.SourceDir
}

// GetCompactDir returns the configured compact artifact directory.
func (c *HandoffConfig) GetCompactDir() string {
	if c.CompactDir == "" {
		return DefaultCompactDirname
	}
	return c.CompactDir
}

// GetHumanDir returns the configured human artifact directory.
func (c *HandoffConfig) GetHumanDir() string {
	if c.HumanDir == "" {
		return DefaultHumanDirname
	}
	return c.HumanDir
}

// GetWorkers returns the worker pool size, defaulting to the CPU count.
func (c *HandoffConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// EngineSettings returns pipeline settings with defaults filled in.
func (c *HandoffConfig) EngineSettings() engine.Settings {
	settings := engine.DefaultSettings()
	settings.Aggressive = c.Compression.Aggressive
	if c.Compression.MinWordLength > 0 {
		settings.Vowels.MinWordLength = c.Compression.MinWordLength
	}
	if c.Compression.MinReducedLength > 0 {
		settings.Vowels.MinReducedLength = c.Compression.MinReducedLength
	}
	return settings
}

// RuleOptions merges the configured rules with the built-in tables.
func (c *HandoffConfig) RuleOptions() rules.Options {
	opts := rules.DefaultOptions()
	if c.ReplaceDefaults {
		opts = rules.Options{
			Dictionary:  map[string]string{},
			Symbols:     map[string]string{},
			Articles:    opts.Articles,
			NeverReduce: opts.NeverReduce,
		}
	}
	mergeRules(opts.Dictionary, c.Dictionary)
	mergeRules(opts.Symbols, c.Symbols)
	if c.Articles != nil {
		opts.Articles = append([]string(nil), c.Articles...)
	}
	opts.NeverReduce = append(opts.NeverReduce, c.NeverReduce...)
	return opts
}

func mergeRules(dst map[string]string, src map[string]string) {
	for long, short := range src {
		if short == "" {
			delete(dst, long)
			continue
		}
		dst[long] = short
	}
}

// BuildRuleTable validates the merged rules and builds the shared table.
// The error is a *rules.ConfigurationError.
func (c *HandoffConfig) BuildRuleTable() (*rules.Table, error) {
	return rules.NewTable(c.RuleOptions())
}

// ReadHandoffConfig reads and validates config.yml. Returns an empty config
// if the file does not exist. Validation failures are returned unwrapped as
// *ConfigurationError or *rules.ConfigurationError so callers can tell them
// apart from I/O problems.
// The returned yaml.CommentMap captures any YAML comments for round-trip
// preservation; callers that only read config may discard it with _.
func ReadHandoffConfig(projectDirpath string) (*HandoffConfig, yaml.CommentMap, error) {
	configFilepath := GetConfigFilepath(projectDirpath)

	data, err := os.ReadFile(configFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &HandoffConfig{}, nil, nil
		}
		return nil, nil, stacktrace.Propagate(err, "failed to read config file '%s'", configFilepath)
	}

	var cfg HandoffConfig
	cm := yaml.CommentMap{}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.CommentToMap(cm)); err != nil {
		return nil, nil, &ConfigurationError{Filepath: configFilepath, Reason: err.Error()}
	}

	if err := validate(&cfg, projectDirpath, configFilepath); err != nil {
		return nil, nil, err
	}

	return &cfg, cm, nil
}

// Validate re-checks cfg, e.g. after command-line overrides of its
// directories.
func Validate(cfg *HandoffConfig, projectDirpath string) error {
	return validate(cfg, projectDirpath, GetConfigFilepath(projectDirpath))
}

func validate(cfg *HandoffConfig, projectDirpath string, configFilepath string) error {
	invalid := func(format string, args ...interface{}) error {
		return &ConfigurationError{Filepath: configFilepath, Reason: fmt.Sprintf(format, args...)}
	}

	if cfg.Workers < 0 {
		return invalid("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Compression.MinWordLength < 0 {
		return invalid("compression.minWordLength must not be negative, got %d", cfg.Compression.MinWordLength)
	}
	if cfg.Compression.MinReducedLength < 0 {
		return invalid("compression.minReducedLength must not be negative, got %d", cfg.Compression.MinReducedLength)
	}

	sourceDirpath := ResolveDirpath(projectDirpath, cfg.GetSourceDir())
	compactDirpath := ResolveDirpath(projectDirpath, cfg.GetCompactDir())
	humanDirpath := ResolveDirpath(projectDirpath, cfg.GetHumanDir())
	if compactDirpath == humanDirpath {
		return invalid("compactDir and humanDir must differ, both resolve to '%s'", compactDirpath)
	}
	if compactDirpath == sourceDirpath {
		return invalid("compactDir and sourceDir must differ, both resolve to '%s'", compactDirpath)
	}

	if _, err := cfg.BuildRuleTable(); err != nil {
		return err
	}
	return nil
}

// MarshalHandoffConfig renders cfg as YAML. Pass the yaml.CommentMap
// returned by ReadHandoffConfig to keep the user's comments.
func MarshalHandoffConfig(cfg *HandoffConfig, cm yaml.CommentMap) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if cm != nil {
		data, err = yaml.MarshalWithOptions(cfg, yaml.WithComment(cm))
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to marshal config")
	}
	return data, nil
}

// WriteHandoffConfig marshals and writes config.yml.
func WriteHandoffConfig(projectDirpath string, cfg *HandoffConfig, cm yaml.CommentMap) error {
	configFilepath := GetConfigFilepath(projectDirpath)

	data, err := MarshalHandoffConfig(cfg, cm)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFilepath), 0755); err != nil {
		return stacktrace.Propagate(err, "failed to create directory '%s'", filepath.Dir(configFilepath))
	}
	if err := os.WriteFile(configFilepath, data, 0644); err != nil {
		return stacktrace.Propagate(err, "failed to write config file '%s'", configFilepath)
	}

	return nil
}

const seedConfig = `# handoff configuration. Directories are relative to the project root.
sourceDir: docs
compactDir: .compressed
humanDir: .human/docs

# Worker pool size; defaults to the number of CPUs.
# workers: 4

compression:
  minWordLength: 6
  minReducedLength: 4
  aggressive: false

# Extra rules are merged over the built-in tables. An empty value removes a
# built-in rule; set replaceDefaults to start from an empty table.
# dictionary:
#   kubernetes: k8s
# symbols:
#   "greater than": "≫"
# articles: [a, an, the]
# neverReduce: [terraform]
`

// EnsureConfigFile creates config.yml with the documented defaults if it
// does not already exist.
func EnsureConfigFile(projectDirpath string) error {
	configFilepath := GetConfigFilepath(projectDirpath)

	if _, err := os.Stat(configFilepath); err == nil {
		return nil
	}
	return ResetConfigFile(projectDirpath)
}

// ResetConfigFile overwrites config.yml with the documented defaults.
func ResetConfigFile(projectDirpath string) error {
	configFilepath := GetConfigFilepath(projectDirpath)

	if err := os.MkdirAll(filepath.Dir(configFilepath), 0755); err != nil {
		return stacktrace.Propagate(err, "failed to create directory '%s'", filepath.Dir(configFilepath))
	}
	if err := os.WriteFile(configFilepath, []byte(seedConfig), 0644); err != nil {
		return stacktrace.Propagate(err, "failed to create config file '%s'", configFilepath)
	}

	return nil
}
