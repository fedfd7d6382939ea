package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/declorder/internal/cache"
	"github.com/phobologic/declorder/internal/discover"
	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/order"
	"github.com/phobologic/declorder/internal/parse"
	"github.com/phobologic/declorder/internal/validate"
)

// fileResult is the outcome of analyzing one file. Source, decls and
// canonical are only set when the file was parsed in this run.
type fileResult struct {
	entry        discover.FileEntry
	declarations int
	violations   []model.Violation
	source       []byte
	decls        []model.Declaration
	canonical    *order.Canonical
}

// analyzer parses files and compares them with their canonical order.
type analyzer struct {
	base     string // directory FileEntry paths are relative to
	settings *settings
	cache    *cache.Cache
	// needSource forces a parse of files whose cached result has
	// violations, so they can be rewritten.
	needSource bool
}

// analyzeFiles analyzes files concurrently and returns the results in the
// order of files. Files that cannot be read or parsed are logged and left
// out.
func (a *analyzer) analyzeFiles(ctx context.Context, files []discover.FileEntry) []fileResult {
	type result struct {
		index int
		res   fileResult
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	logger := a.settings.logger

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				f := files[idx]
				l := lang.Languages[f.Language]
				parser, ok := parsers[f.Language]
				if !ok {
					parser = l.NewParser()
					parsers[f.Language] = parser
				}

				res, err := a.analyze(ctx, l, parser, f)
				if err != nil {
					logger.Warn("skipping file", "path", f.Path, "err", err)
					continue
				}
				results <- result{index: idx, res: res}
			}
			for _, p := range parsers {
				p.Close()
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]fileResult, len(files))
	valid := make([]bool, len(files))
	for r := range results {
		indexed[r.index] = r.res
		valid[r.index] = true
	}

	var out []fileResult
	for i, v := range valid {
		if v {
			out = append(out, indexed[i])
		}
	}
	return out
}

func (a *analyzer) analyze(ctx context.Context, l *lang.Language, parser *sitter.Parser, f discover.FileEntry) (fileResult, error) {
	res := fileResult{entry: f}
	source, err := os.ReadFile(filepath.Join(a.base, f.Path))
	if err != nil {
		return res, err
	}

	var key string
	if a.cache != nil {
		key = cache.Key(source, f.Language, a.settings.fingerprint)
		if e, ok := a.cache.Get(key); ok && (!a.needSource || len(e.Violations) == 0) {
			a.settings.logger.Debug("cache hit", "path", f.Path)
			res.declarations = e.Declarations
			res.violations = relocate(e.Violations, f.Path)
			return res, nil
		}
	}

	decls, err := parse.Declarations(ctx, l, parser, source, a.settings.classify)
	if err != nil {
		return res, err
	}
	canonical, err := order.Assemble(decls, a.settings.order)
	if err != nil {
		return res, fmt.Errorf("ordering: %w", err)
	}

	res.declarations = len(decls)
	res.violations = validate.Check(f.Path, decls, canonical)
	res.source, res.decls, res.canonical = source, decls, canonical
	if a.cache != nil {
		a.cache.Put(key, cache.Entry{Declarations: len(decls), Violations: res.violations})
	}
	a.settings.logger.Debug("analyzed", "path", f.Path, "declarations", len(decls), "violations", len(res.violations))
	return res, nil
}

// relocate returns cached violations attributed to path. Cached entries
// are keyed by content, so they may come from an identical file elsewhere.
func relocate(violations []model.Violation, path string) []model.Violation {
	if len(violations) == 0 {
		return nil
	}
	out := slices.Clone(violations)
	for i := range out {
		out[i].File = path
	}
	return out
}

// report assembles the results into a Report rooted at root.
func report(root string, results []fileResult) *model.Report {
	r := &model.Report{Root: filepath.Base(root)}
	for i := range results {
		res := &results[i]
		r.Files = append(r.Files, model.FileReport{
			Path:         res.entry.Path,
			Language:     res.entry.Language,
			Declarations: res.declarations,
			Violations:   res.violations,
		})
	}
	return r
}
