package semantic

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the default limit on one generation call.
const DefaultTimeout = 5 * time.Minute

// Config holds the inference integration configuration.
//
// When loading from a file, zero values are treated as "not set"
// and the defaults are kept, so partial files are allowed.
type Config struct {
	// Command is the command line of the inference CLI to run.
	// The prompt is supplied on stdin.
	Command string `yaml:"command"`

	// Models maps request complexity to a model name
	// passed to the CLI via --model.
	// Empty entries use the CLI's default model.
	Models Models `yaml:"models"`

	// Timeout is the maximum duration of one generation call.
	Timeout time.Duration `yaml:"timeout"`

	// RefineOptions are labeled quick refinement instructions.
	// They are loaded and kept with the configuration;
	// neither the engine nor the CLI reads them.
	RefineOptions []RefineOption `yaml:"refineOptions"`
}

// Models maps request complexity to model names.
type Models struct {
	Trivial  string `yaml:"trivial"`
	Standard string `yaml:"standard"`
	Complex  string `yaml:"complex"`
}

// For reports the model configured for the given complexity.
func (m Models) For(c Complexity) string {
	switch c {
	case Trivial:
		return m.Trivial
	case Complex:
		return m.Complex
	default:
		return m.Standard
	}
}

// RefineOption is a labeled refinement instruction.
type RefineOption struct {
	// Label is the display label for this option.
	Label string `yaml:"label"`

	// Prompt is the instruction appended to the next attempt.
	Prompt string `yaml:"prompt"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Command: "claude --print",
		Timeout: DefaultTimeout,
		RefineOptions: []RefineOption{
			{Label: "Keep both", Prompt: "Keep every line from both versions, even if repetitive."},
			{Label: "Prefer incoming", Prompt: "When in doubt, prefer the incoming version."},
			{Label: "Prefer current", Prompt: "When in doubt, prefer the current version."},
		},
	}
}

// LoadConfig reads configuration from the given path,
// layering it over the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %v: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(bs, &file); err != nil {
		return cfg, fmt.Errorf("parse %v: %w", path, err)
	}

	if file.Command != "" {
		cfg.Command = file.Command
	}
	if file.Timeout != 0 {
		cfg.Timeout = file.Timeout
	}
	if file.Models.Trivial != "" {
		cfg.Models.Trivial = file.Models.Trivial
	}
	if file.Models.Standard != "" {
		cfg.Models.Standard = file.Models.Standard
	}
	if file.Models.Complex != "" {
		cfg.Models.Complex = file.Models.Complex
	}
	if len(file.RefineOptions) > 0 {
		cfg.RefineOptions = file.RefineOptions
	}

	return cfg, nil
}
