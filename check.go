package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phobologic/declorder/internal/discover"
	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/ranking"
	"github.com/phobologic/declorder/internal/toon"
)

type checkFlags struct {
	maxFiles       int
	file           string
	onlyViolations bool
}

func addCheckFlags(cmd *cobra.Command, chk *checkFlags) {
	cmd.Flags().IntVarP(&chk.maxFiles, "max-files", "n", 0, "report at most this many files, most violations first")
	cmd.Flags().StringVarP(&chk.file, "file", "f", "", "only report files whose path contains this substring")
	cmd.Flags().BoolVar(&chk.onlyViolations, "only-violations", false, "leave out files already in canonical order")
}

func newCheckCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	chk := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Report declarations that are out of canonical order",
		Long: `Check every supported file under path (default: the current directory)
and report each declaration found at a position other than its canonical
one. Exits with status 1 when any file is out of order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, chk, args, stdout, stderr)
		},
	}
	addCheckFlags(cmd, chk)
	return cmd
}

func runCheck(cmd *cobra.Command, g *globalFlags, chk *checkFlags, args []string, stdout, stderr io.Writer) error {
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
	s.logger.Debug("discovered files", "count", len(files))

	c := g.openCache(s.logger)
	a := &analyzer{base: base, settings: s, cache: c}
	results := a.analyzeFiles(ctx, files)
	g.saveCache(c, s.logger)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no files could be parsed")
	}

	full := report(target, results)
	view := full
	if chk.file != "" {
		view = ranking.FilterByFile(view, chk.file)
	}
	if chk.onlyViolations {
		view = ranking.OnlyViolations(view)
	}
	if chk.maxFiles > 0 {
		view = ranking.SelectFiles(ranking.ByViolations(view), chk.maxFiles)
	}

	writeReport(stdout, g.format, view)
	if full.ViolationCount() > 0 {
		return errViolations
	}
	return nil
}

func writeReport(w io.Writer, format string, r *model.Report) {
	if format == "toon" {
		_, _ = fmt.Fprintln(w, toon.Encode(r))
		return
	}

	files := 0
	for i := range r.Files {
		f := &r.Files[i]
		if len(f.Violations) > 0 {
			files++
		}
		for j := range f.Violations {
			v := &f.Violations[j]
			_, _ = fmt.Fprintf(w, "%s:%d: %s\n", f.Path, v.Line, v.Message())
		}
	}
	_, _ = fmt.Fprintf(w, "%d violations in %d of %d files\n", r.ViolationCount(), files, len(r.Files))
}
