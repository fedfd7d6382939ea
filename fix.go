package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/declorder/internal/discover"
	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/order"
	"github.com/phobologic/declorder/internal/parse"
	"github.com/phobologic/declorder/internal/validate"
)

func newFixCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var dryRun, showDiff bool
	cmd := &cobra.Command{
		Use:   "fix [path]",
		Short: "Rewrite files into canonical declaration order",
		Long: `Rewrite every supported file under path (default: the current directory)
so its top-level declarations appear in canonical order. Comments directly
above a declaration move with it; other statements and blank lines stay
where they are.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, g, dryRun, showDiff, args, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the rewritten files instead of modifying them")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff of each change instead of modifying files")
	return cmd
}

func runFix(cmd *cobra.Command, g *globalFlags, dryRun, showDiff bool, args []string, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	target, base, err := resolveTarget(args)
	if err != nil {
		return err
	}
	s, err := g.resolve(cmd, target, stderr)
	if err != nil {
		return err
	}

	files, err := discover.Files(ctx, target, discover.Options{
		Languages:   s.cfg.Languages,
		Exclude:     s.cfg.Exclude,
		MaxFileSize: s.cfg.MaxFileSize,
	})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files found")
	}

	c := g.openCache(s.logger)
	a := &analyzer{base: base, settings: s, cache: c, needSource: true}
	results := a.analyzeFiles(ctx, files)

	fixed := 0
	for i := range results {
		res := &results[i]
		if len(res.violations) == 0 || res.canonical == nil {
			continue
		}
		out := validate.Fix(res.source, res.decls, res.canonical)
		if !converged(ctx, res.entry, out, s) {
			s.logger.Warn("rewritten file is still out of order", "path", res.entry.Path)
		}

		if showDiff {
			d, err := validate.Diff(filepath.ToSlash(res.entry.Path), res.source, out)
			if err != nil {
				return fmt.Errorf("diffing %s: %w", res.entry.Path, err)
			}
			_, _ = stdout.Write(d)
			fixed++
			continue
		}
		if dryRun {
			_, _ = fmt.Fprintf(stdout, "==> %s <==\n%s", res.entry.Path, out)
			fixed++
			continue
		}

		path := filepath.Join(base, res.entry.Path)
		if err := writeFileKeepMode(path, out); err != nil {
			return fmt.Errorf("writing %s: %w", res.entry.Path, err)
		}
		s.logger.Info("reordered", "path", res.entry.Path, "violations", len(res.violations))
		fixed++
	}
	g.saveCache(c, s.logger)

	verb := "reordered"
	if dryRun || showDiff {
		verb = "would reorder"
	}
	_, _ = fmt.Fprintf(stderr, "%s %d of %d files\n", verb, fixed, len(results))
	return nil
}

// converged reports whether the rewritten source is in canonical order.
func converged(ctx context.Context, f discover.FileEntry, source []byte, s *settings) bool {
	l := lang.Languages[f.Language]
	parser := l.NewParser()
	defer parser.Close()

	decls, err := parse.Declarations(ctx, l, parser, source, s.classify)
	if err != nil {
		return false
	}
	canonical, err := order.Assemble(decls, s.order)
	if err != nil {
		return false
	}
	return validate.InOrder(decls, canonical)
}

func writeFileKeepMode(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
