package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter  string // scenario filter (glob pattern on the file name)
	Workers int
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every scenario file in a directory. Each scenario transpiles a
tree document and checks the outcome, assertions and golden script.
Compiled scenarios are also checked for determinism and idempotence.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  puresh test ./scenarios
  puresh test ./scenarios --filter "deploy*"
  puresh test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "scenarios run in parallel (0 = unlimited)")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return formatter.CommandError(ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}
	paths, err := harness.ScenarioFiles(dir)
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "finding scenarios", err)
	}
	paths, err = filterScenarios(paths, opts.Filter)
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "invalid filter pattern", err)
	}
	formatter.VerboseLog("Running %d scenario(s) from %s", len(paths), dir)

	summary, err := harness.RunFiles(ctx, paths, opts.Workers)
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "running scenarios", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", summary.Failed, summary.Total))
	}
	return nil
}

// filterScenarios keeps paths whose base name without extension matches
// pattern. An empty pattern keeps everything.
func filterScenarios(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		return paths, nil
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func outputTestText(f *OutputFormatter, summary *harness.Summary) {
	if summary.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return
	}

	for _, r := range summary.Results {
		name := r.Name
		if name == "" {
			name = filepath.Base(r.Path)
		}
		if r.Passed() {
			fmt.Fprintf(f.Writer, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", name)
		if r.Err != "" {
			fmt.Fprintf(f.Writer, "    %s\n", r.Err)
			continue
		}
		for _, e := range r.Result.Errors {
			fmt.Fprintf(f.Writer, "    %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n    "))
		}
	}
	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}
