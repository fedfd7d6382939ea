// declorder checks and rewrites the order of top-level declarations so
// every file reads top-down: imports, types, bindings, then functions, each
// declared before the declarations it depends on.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/declorder/internal/cache"
	"github.com/phobologic/declorder/internal/config"
	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/order"
)

var version = "dev"

// errViolations is returned when checked files are out of order. It sets
// the exit status without printing an error.
var errViolations = errors.New("declarations out of canonical order")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}
	if !errors.Is(err, errViolations) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// globalFlags are shared by every subcommand. Flags that are set override
// the configuration file.
type globalFlags struct {
	configPath       string
	langs            []string
	exclude          []string
	format           string
	cachePath        string
	maxFileSize      int64
	cycleFallback    string
	tieBreak         string
	noDependencySort bool
	functionBindings string
	noTypeReferences bool
	verbose          bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	chk := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "declorder [path]",
		Short: "Check that top-level declarations are in canonical order",
		Long: `declorder enforces a canonical order of top-level declarations.

Declarations are grouped into eight categories (imports, re-exports,
exported types, private types, exported bindings, private bindings,
exported functions, private functions). Within a category every
declaration comes before the declarations it references, so a file
reads from the entry points down to the helpers.

Running declorder without a subcommand is the same as "declorder check".`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, chk, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("declorder {{.Version}}\n")
	cmd.Flags().BoolP("version", "V", false, "show version and exit")

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "configuration file (default: "+config.FileName+" in the target directory)")
	pf.StringSliceVarP(&g.langs, "langs", "l", nil, "languages to include: "+strings.Join(lang.Names(), ", "))
	pf.StringSliceVar(&g.exclude, "exclude", nil, "gitignore-style patterns to skip (repeatable)")
	pf.StringVar(&g.format, "format", "toon", "output format: toon or text")
	pf.StringVar(&g.cachePath, "cache", "", "cache file path")
	pf.Int64Var(&g.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "skip files larger than this many bytes")
	pf.StringVar(&g.cycleFallback, "cycle-fallback", "", "order inside dependency cycles: alphabetical or original")
	pf.StringVar(&g.tieBreak, "tie-break", "", "order of unrelated declarations: source or alphabetical")
	pf.BoolVar(&g.noDependencySort, "no-dependency-sort", false, "only enforce category order")
	pf.StringVar(&g.functionBindings, "function-bindings", "", "category of bindings holding functions: binding or function")
	pf.BoolVar(&g.noTypeReferences, "no-type-references", false, "ignore references made only in type positions")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log progress to stderr")

	addCheckFlags(cmd, chk)
	cmd.AddCommand(
		newCheckCmd(g, stdout, stderr),
		newFixCmd(g, stdout, stderr),
		newOrderCmd(g, stdout, stderr),
		newInitCmd(stdout, stderr),
	)
	return cmd
}

// settings is the resolved configuration of one run.
type settings struct {
	cfg         config.Config
	order       order.Options
	classify    lang.ClassifyOptions
	fingerprint string
	logger      *slog.Logger
}

// resolve loads the configuration for target and applies the flags set on
// the command line.
func (g *globalFlags) resolve(cmd *cobra.Command, target string, stderr io.Writer) (*settings, error) {
	if g.format != "toon" && g.format != "text" {
		return nil, fmt.Errorf("unknown format %q (want toon or text)", g.format)
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	path := g.configPath
	if path == "" {
		path = config.Find(target)
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		logger.Debug("loaded config", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("langs") {
		cfg.Languages = trimAll(g.langs)
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, g.exclude...)
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = g.maxFileSize
	}
	if flags.Changed("cycle-fallback") {
		cfg.CycleFallback = g.cycleFallback
	}
	if flags.Changed("tie-break") {
		cfg.TieBreak = g.tieBreak
	}
	if g.noDependencySort {
		cfg.DependencySort = false
	}
	if flags.Changed("function-bindings") {
		cfg.FunctionBindings = g.functionBindings
	}
	if g.noTypeReferences {
		cfg.TypeReferences = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := cfg.OrderOptions()
	if err != nil {
		return nil, err
	}
	return &settings{
		cfg:         cfg,
		order:       opts,
		classify:    cfg.ClassifyOptions(),
		fingerprint: cfg.Fingerprint(),
		logger:      logger,
	}, nil
}

// openCache loads the cache file when one is configured. A cache that
// cannot be read is replaced by an empty one.
func (g *globalFlags) openCache(logger *slog.Logger) *cache.Cache {
	if g.cachePath == "" {
		return nil
	}
	c, err := cache.Load(g.cachePath, 0)
	if err != nil {
		logger.Warn("ignoring unreadable cache", "path", g.cachePath, "err", err)
	}
	return c
}

func (g *globalFlags) saveCache(c *cache.Cache, logger *slog.Logger) {
	if c == nil || !c.Dirty() {
		return
	}
	if err := c.Save(g.cachePath); err != nil {
		logger.Warn("failed to save cache", "path", g.cachePath, "err", err)
		return
	}
	logger.Debug("saved cache", "path", g.cachePath, "entries", c.Len())
}

// resolveTarget returns the absolute path named by args, defaulting to the
// current directory, and the directory discovered paths are relative to.
func resolveTarget(args []string) (target, base string, err error) {
	target = "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return "", "", fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", "", fmt.Errorf("path: %w", err)
	}
	if info.IsDir() {
		return target, target, nil
	}
	return target, filepath.Dir(target), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
