package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Level string
}

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Script string                     `json:"script"`
	Level  compiler.ValidationLevel   `json:"level"`
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <tree-document>",
		Short: "Check a script tree for structural errors",
		Long: `Decode a script tree and report every validation error (E1xx) at the
selected level. The tree is checked as written, before purification.

Exit codes:
  0 - Tree is valid
  1 - Validation errors found
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Level, "level", "", "validation level (none|minimal|strict); defaults to the config's")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts.RootOptions, cmd, nil)
	if err != nil {
		return formatter.CommandError(ErrCodeConfig, "resolving config", err)
	}
	level := cfg.ValidationLevel
	if opts.Level != "" {
		level = compiler.ValidationLevel(opts.Level)
		if !level.Valid() {
			return formatter.CommandError(ErrCodeConfig,
				fmt.Sprintf("invalid level %q: must be none, minimal or strict", opts.Level), nil)
		}
	}

	doc, err := loadDocument(formatter, path)
	if err != nil {
		return err
	}

	errs := compiler.Validate(doc.Script, level)
	result := ValidateResult{
		Script: doc.Script.Name,
		Level:  level,
		Valid:  len(errs) == 0,
		Errors: errs,
	}
	if result.Errors == nil {
		result.Errors = []compiler.ValidationError{}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		name := displayName(result.Script, path)
		if result.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s is valid (%s)\n", name, level)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s: %d validation error(s) (%s)\n", name, len(errs), level)
			for _, e := range errs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
	}

	if !result.Valid {
		return WrapExitError(ExitFailure, "validation failed", compiler.ValidationErrors(errs))
	}
	return nil
}
