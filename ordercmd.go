package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/order"
	"github.com/phobologic/declorder/internal/parse"
	"github.com/phobologic/declorder/internal/toon"
)

func newOrderCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "order <file>",
		Short: "Print the canonical declaration order of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd, g, args[0], stdout, stderr)
		},
	}
}

func runOrder(cmd *cobra.Command, g *globalFlags, file string, stdout, stderr io.Writer) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	s, err := g.resolve(cmd, path, stderr)
	if err != nil {
		return err
	}

	name := lang.ForExtension(filepath.Ext(path))
	if name == "" {
		return fmt.Errorf("%s: unsupported file type (supported languages: %v)", file, lang.Names())
	}
	l := lang.Languages[name]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	parser := l.NewParser()
	defer parser.Close()
	decls, err := parse.Declarations(cmd.Context(), l, parser, source, s.classify)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	canonical, err := order.Assemble(decls, s.order)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	if g.format == "toon" {
		_, _ = fmt.Fprintln(stdout, toon.EncodeOrder(file, canonical.Order))
		return nil
	}
	for cat := model.Category(0); cat < model.NumCategories; cat++ {
		group := canonical.ByCategory[cat]
		if len(group) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(stdout, "%s:\n", cat)
		for i := range group {
			_, _ = fmt.Fprintf(stdout, "  %s (line %d)\n", group[i].Name, group[i].Line)
		}
	}
	return nil
}
