// Package validate compares a file's declaration order against its
// canonical order and rewrites files into canonical order.
package validate

import (
	"bytes"

	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/order"
)

// Check compares decls, in source order, with the canonical order position
// by position. Every position holding the wrong declaration yields one
// violation for the declaration that belongs there.
func Check(path string, decls []model.Declaration, canonical *order.Canonical) []model.Violation {
	if canonical == nil || len(canonical.Order) != len(decls) {
		return nil
	}

	actual := make(map[int]int, len(decls)) // span start -> source position
	for i := range decls {
		actual[decls[i].Start] = i
	}

	var violations []model.Violation
	for i := range canonical.Order {
		want, got := &canonical.Order[i], &decls[i]
		if want.Start == got.Start {
			continue
		}
		reason := model.ReasonDependency
		if want.Category != got.Category {
			reason = model.ReasonCategory
		}
		violations = append(violations, model.Violation{
			File:     path,
			Line:     want.Line,
			Name:     want.Name,
			Category: want.Category,
			Reason:   reason,
			Expected: i,
			Actual:   actual[want.Start],
			Before:   got.Name,
		})
	}
	return violations
}

// Fix rewrites source so its declarations appear in canonical order. The
// spans of decls are the slots; each slot receives the canonical
// declaration for its position while the text between slots stays put.
// Source is returned unchanged when decls and canonical disagree.
func Fix(source []byte, decls []model.Declaration, canonical *order.Canonical) []byte {
	if canonical == nil || len(canonical.Order) != len(decls) || !validSpans(source, decls) {
		return source
	}

	var buf bytes.Buffer
	buf.Grow(len(source))
	prev := 0
	for i := range decls {
		buf.Write(source[prev:decls[i].Start])
		want := &canonical.Order[i]
		buf.Write(source[want.Start:want.End])
		prev = decls[i].End
	}
	buf.Write(source[prev:])
	return buf.Bytes()
}

// InOrder reports whether decls already follow the canonical order.
func InOrder(decls []model.Declaration, canonical *order.Canonical) bool {
	if canonical == nil || len(canonical.Order) != len(decls) {
		return false
	}
	for i := range decls {
		if decls[i].Start != canonical.Order[i].Start {
			return false
		}
	}
	return true
}

// validSpans reports whether the spans are ordered, disjoint and inside
// source.
func validSpans(source []byte, decls []model.Declaration) bool {
	prev := 0
	for i := range decls {
		d := &decls[i]
		if d.Start < prev || d.End < d.Start || d.End > len(source) {
			return false
		}
		prev = d.End
	}
	return true
}
