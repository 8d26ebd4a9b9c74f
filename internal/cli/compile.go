package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/source"
	"github.com/roach88/puresh/internal/store"
	"github.com/roach88/puresh/internal/verify"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	pipelineFlags
	Output string // output file path
	Cache  string // SQLite cache and history database
}

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	Script   string             `json:"script"`
	Digest   string             `json:"digest"`
	Warnings []verify.Violation `json:"warnings"`
	Fixes    []purify.Fix       `json:"fixes"`
	Cached   bool               `json:"cached"`
	RunID    string             `json:"run_id,omitempty"`
	Output   string             `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <tree-document>",
		Short: "Purify and transpile a script tree to shell",
		Long: `Purify a script tree, then validate, build, optimize, verify and emit
it as shell text.

With --cache, results are keyed by the document's bytes and the
effective config; a hit skips the pipeline. Every run is recorded in
the cache's history.

Exit codes:
  0 - Script emitted
  1 - Rejected by validation (E1xx) or verification (V2xx)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	opts.pipelineFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the script to this file")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "SQLite compile cache and run history")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
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

	cache, history, s, err := openStore(formatter, opts.Cache)
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
	}

	key, err := store.KeyFor(doc.Raw, cfg.Describe())
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "hashing input", err)
	}
	run := &store.Run{
		Script:     doc.Script.Name,
		SourcePath: path,
		SourceHash: key.SourceHash,
		ConfigHash: key.ConfigHash,
	}

	result, err := compileCached(ctx, cache, key, doc, cfg)
	if err != nil {
		run.Outcome = store.OutcomeFailed
		run.Error = err.Error()
		recordRun(ctx, formatter, history, run)
		if isStoreError(err) {
			return formatter.CommandError(ErrCodeStore, "reading cache", err)
		}
		return formatter.PipelineError(err)
	}

	run.Outcome = store.OutcomeCompiled
	if result.Cached {
		run.Outcome = store.OutcomeCached
	}
	run.Digest = result.Digest
	run.Warnings = len(result.Warnings)
	run.Fixes = len(result.Fixes)
	recordRun(ctx, formatter, history, run)
	result.RunID = run.ID

	if opts.Output != "" {
		if err := writeFile(formatter, opts.Output, []byte(result.Script), 0o755); err != nil {
			return err
		}
		result.Output = opts.Output
	}
	return outputCompileSuccess(formatter, result)
}

type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func isStoreError(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}

// compileCached returns the cached entry for key or transpiles and saves
// the result. A failed save is logged and does not fail the compile.
func compileCached(ctx context.Context, cache store.Cache, key store.Key, doc *source.Document, cfg compiler.Config) (*CompileResult, error) {
	entry, ok, err := cache.Lookup(ctx, key)
	if err != nil {
		return nil, &storeError{err: err}
	}
	if ok {
		slog.Debug("cache hit", "script", doc.Script.Name, "source_hash", key.SourceHash)
		res := &CompileResult{
			Script:   entry.Script,
			Digest:   entry.Digest,
			Warnings: entry.Warnings,
			Fixes:    []purify.Fix{},
			Cached:   true,
		}
		if entry.Fixes != nil && entry.Fixes.Fixes != nil {
			res.Fixes = entry.Fixes.Fixes
		}
		return res, nil
	}

	out, err := compiler.Transpile(doc.Script, cfg)
	if err != nil {
		return nil, err
	}
	if err := cache.Save(ctx, key, store.Entry{
		Script:   out.Script,
		Digest:   out.Digest,
		Warnings: out.Warnings,
		Fixes:    out.Fixes,
	}); err != nil {
		slog.Warn("cache save failed", "script", doc.Script.Name, "error", err)
	}

	res := &CompileResult{
		Script:   out.Script,
		Digest:   out.Digest,
		Warnings: out.Warnings,
		Fixes:    []purify.Fix{},
	}
	if out.Fixes != nil && out.Fixes.Fixes != nil {
		res.Fixes = out.Fixes.Fixes
	}
	return res, nil
}

// recordRun appends run to history. Failures are logged only.
func recordRun(ctx context.Context, f *OutputFormatter, history store.History, run *store.Run) {
	if err := history.RecordRun(ctx, run); err != nil {
		slog.Warn("recording run failed", "script", run.Script, "error", err)
		return
	}
	if run.ID != "" {
		f.VerboseLog("Recorded run %s (%s)", run.ID, run.Outcome)
	}
}

// outputCompileSuccess prints the script to stdout, or a summary when it
// was written to a file. Warnings and fixes go to stderr in text mode.
func outputCompileSuccess(f *OutputFormatter, res *CompileResult) error {
	if f.Format == "json" {
		return f.Success(res)
	}

	diag := f.GetErrWriter()
	for _, fix := range res.Fixes {
		fmt.Fprintf(diag, "fix: %s\n", fix)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(diag, "warning: %s\n", w)
	}

	if res.Output == "" {
		_, err := fmt.Fprint(f.Writer, res.Script)
		return err
	}
	cached := ""
	if res.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(f.Writer, "✓ Wrote %s%s: %d fix(es), %d warning(s)\n", res.Output, cached, len(res.Fixes), len(res.Warnings))
	return nil
}
