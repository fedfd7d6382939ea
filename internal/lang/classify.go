package lang

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/declorder/internal/model"
)

// classifier accumulates the declarations of one file while the top-level
// statements are visited in order.
type classifier struct {
	source []byte
	spans  spanBuilder
	decls  []model.Declaration

	pendingStart int // span start carried over from overload signatures
	lastRow      uint32
	lastIsDecl   bool
	seen         bool
}

func newClassifier(source []byte) *classifier {
	return &classifier{source: source, pendingStart: -1}
}

// comment handles a top-level comment. A comment on the same line as the end
// of the previous declaration trails it; others may lead the next one.
func (c *classifier) comment(n *sitter.Node) {
	if c.seen && n.StartPoint().Row == c.lastRow {
		if c.lastIsDecl {
			c.decls[len(c.decls)-1].End = int(n.EndByte())
		}
		return
	}
	c.spans.comment(n)
}

// other records a statement that declares nothing.
func (c *classifier) other(n *sitter.Node) {
	c.spans.reset()
	c.pendingStart = -1
	c.lastRow, c.lastIsDecl, c.seen = n.EndPoint().Row, false, true
}

// markStart begins a declaration whose span is completed by a later add.
func (c *classifier) markStart(n *sitter.Node) {
	if c.pendingStart < 0 {
		c.pendingStart = c.spans.start(n)
	}
	c.lastRow, c.lastIsDecl, c.seen = n.EndPoint().Row, false, true
}

func (c *classifier) add(n *sitter.Node, names []string, k kind, exported bool, body model.IdentList) {
	start := c.spans.start(n)
	if c.pendingStart >= 0 {
		start = c.pendingStart
		c.pendingStart = -1
	}
	c.decls = append(c.decls, newDeclaration(n, start, names, k, exported, body))
	c.lastRow, c.lastIsDecl, c.seen = n.EndPoint().Row, true, true
}
