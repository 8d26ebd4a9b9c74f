package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Cache  string
	Limit  int
	Source string // tree document whose runs to list
	Purge  bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded compile runs",
		Long: `List the compile runs recorded in a cache database, oldest first.

With a run ID (or a unique prefix of one), show that run. With --source,
list only runs of a tree document with the same bytes. --purge empties
the compile cache and keeps the history.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(cmd.Context(), opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cache, "cache", "", "SQLite compile cache and run history (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "most recent runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "list runs of this tree document")
	cmd.Flags().BoolVar(&opts.Purge, "purge", false, "delete all cached compile results")
	_ = cmd.MarkFlagRequired("cache")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Cache == "" {
		return formatter.CommandError(ErrCodeStore, "--cache is required", nil)
	}
	_, _, s, err := openStore(formatter, opts.Cache)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case opts.Purge:
		n, err := s.Purge(ctx)
		if err != nil {
			return formatter.CommandError(ErrCodeStore, "purging cache", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]int64{"purged": n})
		}
		fmt.Fprintf(formatter.Writer, "✓ Purged %d cached result(s)\n", n)
		return nil

	case id != "":
		run, err := s.ReadRun(ctx, id)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.CommandError(ErrCodeNotFound, fmt.Sprintf("run not found: %s", id), nil)
		}
		if err != nil {
			return formatter.CommandError(ErrCodeStore, "reading run", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(run)
		}
		outputRunDetail(formatter, run)
		return nil
	}

	var runs []store.Run
	if opts.Source != "" {
		doc, err := loadDocument(formatter, opts.Source)
		if err != nil {
			return err
		}
		runs, err = s.RunsForSource(ctx, ir.SourceHash(doc.Raw))
		if err != nil {
			return formatter.CommandError(ErrCodeStore, "listing runs", err)
		}
	} else {
		runs, err = s.ListRuns(ctx, opts.Limit)
		if err != nil {
			return formatter.CommandError(ErrCodeStore, "listing runs", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%-8s  %s  %-8s  %s\n",
			shortID(r.ID), r.CreatedAt.Format(time.RFC3339), r.Outcome, displayName(r.Script, r.SourcePath))
	}
	return nil
}

func outputRunDetail(f *OutputFormatter, r store.Run) {
	fmt.Fprintf(f.Writer, "Run %s (seq %d)\n", r.ID, r.Seq)
	fmt.Fprintf(f.Writer, "  script:   %s\n", displayName(r.Script, r.SourcePath))
	if r.SourcePath != "" {
		fmt.Fprintf(f.Writer, "  path:     %s\n", r.SourcePath)
	}
	fmt.Fprintf(f.Writer, "  outcome:  %s\n", r.Outcome)
	fmt.Fprintf(f.Writer, "  created:  %s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(f.Writer, "  engine:   %s\n", r.EngineVersion)
	if r.Digest != "" {
		fmt.Fprintf(f.Writer, "  digest:   %s\n", r.Digest)
	}
	fmt.Fprintf(f.Writer, "  fixes:    %d\n", r.Fixes)
	fmt.Fprintf(f.Writer, "  warnings: %d\n", r.Warnings)
	if r.Error != "" {
		fmt.Fprintf(f.Writer, "  error:    %s\n", r.Error)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
