package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	pipelineFlags
}

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Script     string             `json:"script"`
	Level      verify.Level       `json:"level"`
	Effects    string             `json:"effects"`
	Violations []verify.Violation `json:"violations"`
	Errors     int                `json:"errors"`
	Warnings   int                `json:"warnings"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <tree-document>",
		Short: "List verification findings without emitting",
		Long: `Purify, validate, build and optimize a script tree, then report every
verification finding (V2xx) at the selected level.

Exit codes:
  0 - No blocking violations
  1 - Blocking violations, or the tree failed validation
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	opts.pipelineFlags.register(cmd)

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts.RootOptions, cmd, &opts.pipelineFlags)
	if err != nil {
		return formatter.CommandError(ErrCodeConfig, "resolving config", err)
	}
	doc, err := loadDocument(formatter, path)
	if err != nil {
		return err
	}

	purified, err := purify.Purify(doc.Script, cfg.Purify)
	if err != nil {
		return formatter.PipelineError(err)
	}
	if errs := compiler.Validate(purified.Script, cfg.ValidationLevel); len(errs) > 0 {
		return formatter.PipelineError(compiler.ValidationErrors(errs))
	}
	prog, err := compiler.Build(purified.Script)
	if err != nil {
		return formatter.PipelineError(err)
	}
	prog, err = compiler.Optimize(prog, cfg)
	if err != nil {
		return formatter.PipelineError(err)
	}

	report := verify.Verify(prog, cfg.Verify)
	result := VerifyResult{
		Script:     doc.Script.Name,
		Level:      cfg.Verify,
		Effects:    prog.Effects().String(),
		Violations: report.Violations,
		Errors:     len(report.Errors()),
		Warnings:   len(report.Warnings()),
	}
	if result.Violations == nil {
		result.Violations = []verify.Violation{}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputVerifyText(formatter, result, path)
	}

	if err := report.Err(); err != nil {
		return WrapExitError(ExitFailure, "verification failed", err)
	}
	return nil
}

func outputVerifyText(f *OutputFormatter, res VerifyResult, path string) {
	name := displayName(res.Script, path)
	if res.Level == verify.LevelNone {
		fmt.Fprintf(f.Writer, "- Verification skipped for %s (level none)\n", name)
		return
	}

	mark := "✓"
	if res.Errors > 0 {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s Verified %s at level %s: %d error(s), %d warning(s)\n",
		mark, name, res.Level, res.Errors, res.Warnings)
	if f.Verbose {
		fmt.Fprintf(f.Writer, "  effects: %s\n", res.Effects)
	}
	for _, v := range res.Violations {
		fmt.Fprintf(f.Writer, "  %s\n", v)
	}
}
