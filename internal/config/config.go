// Package config loads .declorder.yaml project settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/order"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".declorder.yaml"

// DefaultMaxFileSize skips files over 1 MB.
const DefaultMaxFileSize = 1_000_000

// Config holds the project settings. Zero-valued strings mean the default.
type Config struct {
	CycleFallback    string   `yaml:"cycle-fallback"`
	TieBreak         string   `yaml:"tie-break"`
	DependencySort   bool     `yaml:"dependency-sort"`
	Unsorted         []string `yaml:"unsorted,omitempty"`
	FunctionBindings string   `yaml:"function-bindings"`
	TypeReferences   bool     `yaml:"type-references"`
	Languages        []string `yaml:"languages,omitempty"`
	Exclude          []string `yaml:"exclude,omitempty"`
	MaxFileSize      int64    `yaml:"max-file-size"`
}

// Default returns the settings used when no configuration file exists.
func Default() Config {
	return Config{
		CycleFallback:    string(order.CycleAlphabetical),
		TieBreak:         string(order.TieSource),
		DependencySort:   true,
		FunctionBindings: string(lang.AsBinding),
		TypeReferences:   true,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// Find returns the configuration file for root, which may be a directory
// or a file inside the project. It returns "" when none exists.
func Find(root string) string {
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Load reads a configuration file. Keys absent from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings with unknown values.
func (c Config) Validate() error {
	if _, err := c.OrderOptions(); err != nil {
		return err
	}
	switch lang.FunctionBindings(c.FunctionBindings) {
	case "", lang.AsBinding, lang.AsFunction:
	default:
		return fmt.Errorf("unknown function-bindings %q (want %q or %q)", c.FunctionBindings, lang.AsBinding, lang.AsFunction)
	}
	for _, name := range c.Languages {
		if _, ok := lang.Languages[name]; !ok {
			return fmt.Errorf("unknown language %q (supported: %s)", name, strings.Join(lang.Names(), ", "))
		}
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max-file-size must not be negative")
	}
	return nil
}

// OrderOptions converts the settings into sorter options.
func (c Config) OrderOptions() (order.Options, error) {
	opts := order.DefaultOptions()
	if c.CycleFallback != "" {
		opts.CycleFallback = order.CycleFallback(c.CycleFallback)
	}
	if c.TieBreak != "" {
		opts.TieBreak = order.TieBreak(c.TieBreak)
	}

	unsorted := make(map[model.Category]bool)
	if !c.DependencySort {
		for cat := model.Category(0); cat < model.NumCategories; cat++ {
			unsorted[cat] = true
		}
	}
	for _, name := range c.Unsorted {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return opts, fmt.Errorf("unsorted: %w", err)
		}
		unsorted[cat] = true
	}
	if len(unsorted) > 0 {
		opts.Unsorted = unsorted
	}
	return opts, opts.Validate()
}

// ClassifyOptions converts the settings into classifier options.
func (c Config) ClassifyOptions() lang.ClassifyOptions {
	opts := lang.DefaultClassifyOptions()
	if c.FunctionBindings != "" {
		opts.FunctionBindings = lang.FunctionBindings(c.FunctionBindings)
	}
	opts.TypeReferences = c.TypeReferences
	return opts
}

// Fingerprint identifies every setting that changes the result of checking
// a single file.
func (c Config) Fingerprint() string {
	opts, _ := c.OrderOptions()
	var unsorted []string
	for cat := range opts.Unsorted {
		unsorted = append(unsorted, cat.String())
	}
	sort.Strings(unsorted)
	cl := c.ClassifyOptions()
	return fmt.Sprintf("cycle=%s;tie=%s;unsorted=%s;bindings=%s;types=%t",
		opts.CycleFallback, opts.TieBreak, strings.Join(unsorted, ","), cl.FunctionBindings, cl.TypeReferences)
}

const header = `# declorder configuration.
#
# cycle-fallback: alphabetical | original
# tie-break: source | alphabetical
# unsorted: categories kept in source order, e.g. [private-bindings]
# function-bindings: binding | function
`

// Marshal renders the settings as a commented YAML document.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return append([]byte(header), data...), nil
}
