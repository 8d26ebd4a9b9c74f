package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/emit"
	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// Output is the result of a successful compile.
type Output struct {
	// Script is the emitted shell text.
	Script string `json:"script"`

	// Warnings are the advisory violations that did not block emission.
	Warnings []verify.Violation `json:"warnings"`

	// Fixes is the purification report. It is empty for Compile, which
	// expects an already purified script.
	Fixes *purify.Report `json:"fixes"`

	// Program is the optimized IR that was emitted.
	Program *ir.Program `json:"-"`

	// Digest is the content hash of Program.
	Digest string `json:"digest"`

	// Report is the full verification report.
	Report *verify.Report `json:"-"`
}

// Compile lowers an already purified script to shell text:
// validate, build, optimize, verify, emit. It stops at the first hard
// error, which is one of ValidationErrors, *BuildError, *OptimizeError,
// *verify.VerificationError or *emit.EmissionError.
func Compile(script *ast.Script, cfg Config) (*Output, error) {
	if script == nil {
		return nil, &BuildError{Message: "nil script"}
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if errs := Validate(script, cfg.ValidationLevel); len(errs) > 0 {
		slog.Debug("validation failed", "script", script.Name, "errors", len(errs))
		return nil, ValidationErrors(errs)
	}

	prog, err := Build(script)
	if err != nil {
		return nil, err
	}
	slog.Debug("built program", "script", script.Name, "statements", len(script.Statements), "effects", prog.Effects().String())

	prog, err = Optimize(prog, cfg)
	if err != nil {
		return nil, err
	}

	report := verify.Verify(prog, cfg.Verify)
	if err := report.Err(); err != nil {
		return nil, err
	}

	text, err := emit.Emit(prog, emit.Options{Target: cfg.Target, StrictMode: cfg.StrictMode})
	if err != nil {
		return nil, err
	}

	digest, err := ir.ProgramDigest(prog)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	warnings := report.Warnings()
	if warnings == nil {
		warnings = []verify.Violation{}
	}
	slog.Debug("compiled script",
		"script", script.Name,
		"target", string(cfg.Target),
		"warnings", len(warnings),
		"digest", digest,
	)
	return &Output{
		Script:   text,
		Warnings: warnings,
		Fixes:    &purify.Report{},
		Program:  prog,
		Digest:   digest,
		Report:   report,
	}, nil
}

// Transpile purifies script with cfg.Purify and compiles the result.
func Transpile(script *ast.Script, cfg Config) (*Output, error) {
	res, err := purify.Purify(script, cfg.Purify)
	if err != nil {
		return nil, err
	}
	out, err := Compile(res.Script, cfg)
	if err != nil {
		return nil, err
	}
	out.Fixes = res.Report
	return out, nil
}
