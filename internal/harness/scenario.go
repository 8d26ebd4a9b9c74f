package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/puresh/internal/compiler"
)

// Scenario is one conformance case: a tree document, the config to
// transpile it with, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Script is the tree document path, relative to the scenario file.
	Script string `yaml:"script"`

	// Config is decoded like a puresh config file over the defaults.
	// Absent means DefaultConfig.
	Config yaml.Node `yaml:"config,omitempty"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden is an optional path, relative to the scenario file, holding
	// the exact expected script text.
	Golden string `yaml:"golden,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Expect is the required outcome of a run.
type Expect struct {
	// Outcome is compiled, rejected or failed.
	Outcome string `yaml:"outcome"`

	// Kind is the stage that stopped the run, for rejected and failed.
	Kind string `yaml:"kind,omitempty"`

	// Codes are the E1xx or V2xx codes the run must report, in order.
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion checks one property of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is the substring for script_contains and script_excludes.
	Text string `yaml:"text,omitempty"`

	// Lines are substrings that must match script lines in this order.
	Lines []string `yaml:"lines,omitempty"`

	// Kind narrows fix_count to one fix kind.
	Kind string `yaml:"kind,omitempty"`

	// Code is the violation code for warning.
	Code string `yaml:"code,omitempty"`

	// Count is the exact expected number for fix_count, warning and
	// warning_count.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertScriptContains = "script_contains"
	AssertScriptExcludes = "script_excludes"
	AssertLineOrder      = "line_order"
	AssertFixCount       = "fix_count"
	AssertWarning        = "warning"
	AssertWarningCount   = "warning_count"
)

// LoadScenario reads and validates a scenario file. Unknown fields are an
// error. Script and Golden are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.Path = path

	base := filepath.Dir(path)
	if s.Script != "" && !filepath.IsAbs(s.Script) {
		s.Script = filepath.Join(base, s.Script)
	}
	if s.Golden != "" && !filepath.IsAbs(s.Golden) {
		s.Golden = filepath.Join(base, s.Golden)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ScenarioFiles returns the .yaml and .yml files directly under dir,
// sorted.
func ScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// config decodes the scenario's config over the defaults.
func (s *Scenario) config() (compiler.Config, error) {
	if s.Config.Kind == 0 {
		return compiler.DefaultConfig(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return compiler.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := compiler.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return compiler.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Script == "" {
		return fmt.Errorf("script is required")
	}
	if _, err := os.Stat(s.Script); os.IsNotExist(err) {
		return fmt.Errorf("script file not found: %s", s.Script)
	}
	if _, err := s.config(); err != nil {
		return err
	}

	switch s.Expect.Outcome {
	case OutcomeCompiled:
		if s.Expect.Kind != "" || len(s.Expect.Codes) > 0 {
			return fmt.Errorf("expect: kind and codes only apply to rejected or failed outcomes")
		}
	case OutcomeRejected, OutcomeFailed:
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("expect.outcome %q must be compiled, rejected or failed", s.Expect.Outcome)
	}
	if s.Golden != "" && s.Expect.Outcome != OutcomeCompiled {
		return fmt.Errorf("golden requires a compiled outcome")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertScriptContains, AssertScriptExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertLineOrder:
		if len(a.Lines) < 2 {
			return fmt.Errorf("assertions[%d]: line_order needs at least two lines", index)
		}
	case AssertFixCount, AssertWarningCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertWarning:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for warning", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
