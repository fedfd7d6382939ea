// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/declorder/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a check report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))

	var fileRows [][]string
	for i := range r.Files {
		f := &r.Files[i]
		fileRows = append(fileRows, []string{
			f.Path,
			f.Language,
			strconv.Itoa(f.Declarations),
			strconv.Itoa(len(f.Violations)),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "declarations", "violations"}, fileRows))

	var violationRows [][]string
	for i := range r.Files {
		f := &r.Files[i]
		for j := range f.Violations {
			v := &f.Violations[j]
			violationRows = append(violationRows, []string{
				f.Path,
				strconv.Itoa(v.Line),
				v.Name,
				v.Category.String(),
				string(v.Reason),
				v.Message(),
			})
		}
	}
	parts = append(parts, formatTabular("violations", []string{"file", "line", "name", "category", "reason", "message"}, violationRows))

	return strings.Join(parts, "\n")
}

// EncodeOrder renders the canonical order of one file, one row per
// declaration.
func EncodeOrder(path string, decls []model.Declaration) string {
	rows := make([][]string, len(decls))
	for i := range decls {
		d := &decls[i]
		rows[i] = []string{
			strconv.Itoa(i),
			d.Category.String(),
			d.Name,
			strconv.Itoa(d.Line),
		}
	}
	return fmt.Sprintf("file: %s\n%s", encodeValue(path),
		formatTabular("order", []string{"position", "category", "name", "line"}, rows))
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
