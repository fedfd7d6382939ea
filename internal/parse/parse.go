// Package parse extracts classified top-level declarations from source
// files using tree-sitter.
package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/model"
)

// Declarations parses a source file and returns its top-level declarations
// in source order. The parser must be created for the correct language.
func Declarations(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, opts lang.ClassifyOptions) ([]model.Declaration, error) {
	if len(source) == 0 {
		return nil, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s source: %w", l.Name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s source has syntax errors", l.Name)
	}
	return l.Classify(root, source, opts), nil
}
