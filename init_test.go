package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/declorder/internal/config"
)

// TestApplySectionCreate verifies that applySection on empty content wraps the
// section in sentinels with a trailing newline.
func TestApplySectionCreate(t *testing.T) {
	t.Parallel()
	section := sentinelStart + "\nbody\n" + sentinelEnd
	got := applySection("", section)
	if !strings.Contains(got, sentinelStart) {
		t.Error("missing sentinel start")
	}
	if !strings.Contains(got, sentinelEnd) {
		t.Error("missing sentinel end")
	}
	if !strings.Contains(got, "body") {
		t.Error("missing body")
	}
}

// TestApplySectionAppend verifies that existing content without a sentinel block
// is preserved and the section is appended.
func TestApplySectionAppend(t *testing.T) {
	t.Parallel()
	existing := "# My Project\n\nSome existing content.\n"
	section := sentinelStart + "\nnew content\n" + sentinelEnd
	got := applySection(existing, section)

	if !strings.HasPrefix(got, existing) {
		t.Errorf("existing content should be preserved at start:\n%s", got)
	}
	if !strings.Contains(got, "new content") {
		t.Error("new content missing")
	}
}

// TestApplySectionUpdate verifies that an existing sentinel block is replaced
// precisely, leaving surrounding content intact.
func TestApplySectionUpdate(t *testing.T) {
	t.Parallel()
	before := "# Project\n\n"
	after := "\n\n## Other Section\n"
	old := before + sentinelStart + "\nold content\n" + sentinelEnd + after

	section := sentinelStart + "\nnew content\n" + sentinelEnd
	got := applySection(old, section)

	if !strings.HasPrefix(got, before) {
		t.Errorf("content before sentinel should be preserved:\n%s", got)
	}
	if !strings.HasSuffix(got, after) {
		t.Errorf("content after sentinel should be preserved:\n%s", got)
	}
	if strings.Contains(got, "old content") {
		t.Error("old content should be replaced")
	}
	if !strings.Contains(got, "new content") {
		t.Error("new content missing")
	}
}

// TestInitCreatesConfig verifies that init writes a loadable default config.
func TestInitCreatesConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}

	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config not loadable: %v", err)
	}
	if cfg.Fingerprint() != config.Default().Fingerprint() {
		t.Errorf("written config differs from defaults: %+v", cfg)
	}
	if !strings.Contains(stderr.String(), "wrote") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// TestInitRefusesOverwrite verifies that an existing config is kept unless
// --force is given.
func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte("tie-break: alphabetical\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", dir}, &stdout, &stderr); err == nil {
		t.Fatal("expected an error for an existing config")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "tie-break: alphabetical\n" {
		t.Error("existing config was modified")
	}

	if err := run([]string{"init", "--force", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "tie-break: source") {
		t.Errorf("config not overwritten:\n%s", data)
	}
}

// TestInitDryRun verifies that --dry-run prints the config and the docs
// section without creating or modifying any file.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	docs := filepath.Join(dir, "CONTRIBUTING.md")
	existing := "# My Project\n\nSome existing content.\n"
	if err := os.WriteFile(docs, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", "--dry-run", "--docs", docs, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		t.Error("--dry-run should not create the config")
	}
	data, _ := os.ReadFile(docs)
	if string(data) != existing {
		t.Error("--dry-run must not modify the docs file")
	}

	out := stdout.String()
	for _, want := range []string{"cycle-fallback: alphabetical", "# My Project", sentinelStart, sentinelEnd} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out)
		}
	}
}

// TestInitDocsIdempotent verifies that updating the docs section twice
// produces identical output.
func TestInitDocsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	docs := filepath.Join(dir, "CONTRIBUTING.md")

	var buf bytes.Buffer
	if err := run([]string{"init", "--docs", docs, dir}, &buf, &buf); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := os.ReadFile(docs)

	if err := run([]string{"init", "--force", "--docs", docs, dir}, &buf, &buf); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, _ := os.ReadFile(docs)

	if string(first) != string(second) {
		t.Errorf("init is not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if !strings.HasPrefix(string(first), sentinelStart) {
		t.Errorf("new docs file should start with the section:\n%s", first)
	}
}

// TestInitSectionContents verifies the generated section lists the
// categories and example invocations.
func TestInitSectionContents(t *testing.T) {
	t.Parallel()
	section := generateSection()

	for _, want := range []string{
		"--help",
		"imports",
		"private functions",
		"declorder fix",
		"declorder order",
	} {
		if !strings.Contains(section, want) {
			t.Errorf("generated section missing %q", want)
		}
	}
}
