package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/puresh/internal/emit"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// ValidationLevel selects how strictly the input tree is checked before
// lowering.
type ValidationLevel string

const (
	// ValidationNone skips tree validation.
	ValidationNone ValidationLevel = "none"

	// ValidationMinimal rejects trees that cannot be lowered or emitted safely.
	ValidationMinimal ValidationLevel = "minimal"

	// ValidationStrict also rejects constructs the shell would reject at run
	// time, such as break outside a loop.
	ValidationStrict ValidationLevel = "strict"
)

// Valid reports whether l is a known level.
func (l ValidationLevel) Valid() bool {
	switch l {
	case ValidationNone, ValidationMinimal, ValidationStrict:
		return true
	}
	return false
}

// Config controls one pipeline run. It is passed by value and never shared.
type Config struct {
	Optimize        bool            `yaml:"optimize" json:"optimize"`
	ValidationLevel ValidationLevel `yaml:"validation_level" json:"validation_level"`
	StrictMode      bool            `yaml:"strict_mode" json:"strict_mode"`
	Target          emit.Target     `yaml:"target" json:"target"`
	Verify          verify.Level    `yaml:"verify" json:"verify"`
	Purify          purify.Options  `yaml:"purify" json:"purify"`
}

// DefaultConfig returns the default configuration: optimization on, minimal
// validation, strict mode off, POSIX target and strict verification.
func DefaultConfig() Config {
	return Config{
		Optimize:        true,
		ValidationLevel: ValidationMinimal,
		StrictMode:      false,
		Target:          emit.TargetPosix,
		Verify:          verify.LevelStrict,
		Purify:          purify.DefaultOptions(),
	}
}

// Check reports every invalid enumerated field.
func (c Config) Check() error {
	var errs []error
	if !c.ValidationLevel.Valid() {
		errs = append(errs, fmt.Errorf("invalid validation_level %q, must be none, minimal or strict", c.ValidationLevel))
	}
	if !c.Target.Valid() {
		errs = append(errs, fmt.Errorf("invalid target %q, must be posix, bash or dash", c.Target))
	}
	if !c.Verify.Valid() {
		errs = append(errs, fmt.Errorf("invalid verify level %q, must be none, basic or strict", c.Verify))
	}
	return errors.Join(errs...)
}

// Describe returns the configuration as canonical-JSON-ready values, for
// cache keys.
func (c Config) Describe() map[string]any {
	return map[string]any{
		"optimize":         c.Optimize,
		"validation_level": string(c.ValidationLevel),
		"strict_mode":      c.StrictMode,
		"target":           string(c.Target),
		"verify":           string(c.Verify),
		"purify": map[string]any{
			"remove_non_deterministic": c.Purify.RemoveNonDeterministic,
			"enforce_idempotency":      c.Purify.EnforceIdempotency,
		},
	}
}

// LoadConfig reads a YAML config file. Keys absent from the file keep their
// default values; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes YAML config from r over DefaultConfig.
func DecodeConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
