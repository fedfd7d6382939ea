// Package ranking orders and narrows check reports so the files most in
// need of reordering are listed first.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/declorder/internal/model"
)

// ByViolations returns a new Report whose files are sorted by violation
// count, highest first, then by path.
func ByViolations(r *model.Report) *model.Report {
	files := make([]model.FileReport, len(r.Files))
	copy(files, r.Files)
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := len(files[i].Violations), len(files[j].Violations)
		if ni != nj {
			return ni > nj
		}
		return files[i].Path < files[j].Path
	})
	return &model.Report{Root: r.Root, Files: files}
}

// SelectFiles returns a new Report with only the top maxFiles files.
// If maxFiles is <= 0 or >= len(files), all files are returned.
func SelectFiles(r *model.Report, maxFiles int) *model.Report {
	if maxFiles <= 0 || maxFiles >= len(r.Files) {
		return r
	}
	return &model.Report{Root: r.Root, Files: r.Files[:maxFiles]}
}

// OnlyViolations returns a new Report without the files that are already
// in canonical order.
func OnlyViolations(r *model.Report) *model.Report {
	var files []model.FileReport
	for i := range r.Files {
		if len(r.Files[i].Violations) > 0 {
			files = append(files, r.Files[i])
		}
	}
	return &model.Report{Root: r.Root, Files: files}
}

// FilterByFile returns a new Report containing only files whose path
// contains substr (case-insensitive).
func FilterByFile(r *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	var files []model.FileReport
	for i := range r.Files {
		if strings.Contains(strings.ToLower(r.Files[i].Path), lower) {
			files = append(files, r.Files[i])
		}
	}
	return &model.Report{Root: r.Root, Files: files}
}
