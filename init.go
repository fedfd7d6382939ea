package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/declorder/internal/config"
)

const (
	sentinelStart = "<!-- declorder:start -->"
	sentinelEnd   = "<!-- declorder:end -->"
)

type initFlags struct {
	dryRun bool
	force  bool
	docs   string
}

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.FileName,
		Long: `Write a default ` + config.FileName + ` to dir (default: the current
directory). With --docs, also write a section describing the declaration
order to a markdown file. The section is wrapped in sentinel comments so it
can be updated in place on subsequent runs without touching surrounding
content.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(f, args, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print what would be written without modifying any file")
	cmd.Flags().BoolVar(&f.force, "force", false, "overwrite an existing "+config.FileName)
	cmd.Flags().StringVar(&f.docs, "docs", "", "markdown file to add the declaration order section to")
	return cmd
}

// runInit implements the `declorder init` subcommand.
func runInit(f *initFlags, args []string, stdout, stderr io.Writer) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(dir, config.FileName)

	if f.dryRun {
		_, _ = fmt.Fprintf(stdout, "==> %s <==\n%s", path, data)
	} else {
		_, err := os.Stat(path)
		switch {
		case err == nil && !f.force:
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	}

	if f.docs == "" {
		return nil
	}
	existing, _ := os.ReadFile(f.docs)
	updated := applySection(string(existing), generateSection())
	if f.dryRun {
		_, _ = fmt.Fprintf(stdout, "==> %s <==\n%s", f.docs, updated)
		return nil
	}
	if err := os.WriteFile(f.docs, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", f.docs, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote declorder section to %s\n", f.docs)
	return nil
}

// generateSection returns the full sentinel-wrapped declaration order
// documentation block.
func generateSection() string {
	body := `## Declaration order

Top-level declarations follow a fixed order, checked by ` + "`declorder`" + `:

1. imports
2. re-exports
3. exported types, then private types
4. exported bindings, then private bindings
5. exported functions, then private functions

Within each group a declaration comes before the declarations it uses, so
files read from the entry points down to the helpers. Declarations in a
reference cycle are kept together in alphabetical order.

**Run it:**
` + "```" + `bash
declorder                     # check the current directory
declorder check src/          # check a directory
declorder fix                 # rewrite files into canonical order
declorder order src/app.ts    # show the canonical order of one file
` + "```" + `

**All flags:** ` + "`declorder --help`"

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
