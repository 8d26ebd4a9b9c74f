package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/emit"
	"github.com/roach88/puresh/internal/source"
	"github.com/roach88/puresh/internal/store"
	"github.com/roach88/puresh/internal/verify"
)

// pipelineFlags are the config overrides shared by compile and verify.
type pipelineFlags struct {
	Target          string
	Verify          string
	ValidationLevel string
	NoOptimize      bool
	StrictMode      bool
}

func (p *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.Target, "target", string(emit.TargetPosix), "shell dialect (posix|bash|dash)")
	cmd.Flags().StringVar(&p.Verify, "verify", string(verify.LevelStrict), "verification level (none|basic|strict)")
	cmd.Flags().StringVar(&p.ValidationLevel, "validation-level", string(compiler.ValidationMinimal), "tree validation level (none|minimal|strict)")
	cmd.Flags().BoolVar(&p.NoOptimize, "no-optimize", false, "skip constant folding")
	cmd.Flags().BoolVar(&p.StrictMode, "strict-mode", false, "emit set -eu")
}

// resolveConfig layers explicitly set flags over the --config file, which
// itself is layered over DefaultConfig.
func resolveConfig(opts *RootOptions, cmd *cobra.Command, p *pipelineFlags) (compiler.Config, error) {
	cfg := compiler.DefaultConfig()
	if opts.Config != "" {
		loaded, err := compiler.LoadConfig(opts.Config)
		if err != nil {
			return compiler.Config{}, err
		}
		cfg = loaded
	}
	if p == nil {
		return cfg, nil
	}

	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = emit.Target(p.Target)
	}
	if flags.Changed("verify") {
		cfg.Verify = verify.Level(p.Verify)
	}
	if flags.Changed("validation-level") {
		cfg.ValidationLevel = compiler.ValidationLevel(p.ValidationLevel)
	}
	if flags.Changed("no-optimize") {
		cfg.Optimize = !p.NoOptimize
	}
	if flags.Changed("strict-mode") {
		cfg.StrictMode = p.StrictMode
	}
	if err := cfg.Check(); err != nil {
		return compiler.Config{}, err
	}
	return cfg, nil
}

// loadDocument reads a tree document, reporting failures through f.
func loadDocument(f *OutputFormatter, path string) (*source.Document, error) {
	doc, err := source.Load(path)
	switch {
	case err == nil:
		f.VerboseLog("Loaded %s (%s, %d statement(s))", path, doc.Format, len(doc.Script.Statements))
		return doc, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("tree document not found: %s", path), nil)
	case source.IsDecodeError(err):
		return nil, f.CommandError(ErrCodeDecode, err.Error(), nil)
	default:
		return nil, f.CommandError(ErrCodeGeneric, "loading tree document", err)
	}
}

// openStore opens the SQLite store at path. An empty path yields the
// no-op cache and a nil store.
func openStore(f *OutputFormatter, path string) (store.Cache, store.History, *store.Store, error) {
	if path == "" {
		return store.NopCache{}, store.NopCache{}, nil, nil
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, nil, nil, f.CommandError(ErrCodeStore, "opening cache", err)
	}
	f.VerboseLog("Using cache %s", path)
	return s, s, s, nil
}

// writeFile writes data to path, creating or truncating it.
func writeFile(f *OutputFormatter, path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return f.CommandError(ErrCodeWriteFailed, "writing output file", err)
	}
	return nil
}
