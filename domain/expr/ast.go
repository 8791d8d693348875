package expr

import (
	"regexp"

	"github.com/artpar/sage/domain/dataset"
)

// node is one vertex of a compiled rule. Evaluation walks the tree with an
// evalContext; row is -1 for dataset-level (aggregate) evaluation.
type node interface {
	eval(ctx *evalContext, row int) (dataset.Value, error)
	walk(fn func(node))
}

type columnNode struct {
	name string
}

type literalNode struct {
	val dataset.Value
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

type notNode struct {
	inner node
}

type negNode struct {
	inner node
}

type inNode struct {
	operand node
	list    []dataset.Value
	negated bool
}

type isNullNode struct {
	operand node
	negated bool
}

type duplicatedNode struct {
	column string
}

type matchesNode struct {
	operand node
	re      *regexp.Regexp
	pattern string
}

type nowNode struct{}

type aggNode struct {
	fn     tokenKind // tokCount, tokSum, tokMin, tokMax, tokAvg
	column string    // empty for COUNT()
}

func (n *columnNode) walk(fn func(node))  { fn(n) }
func (n *literalNode) walk(fn func(node)) { fn(n) }
func (n *binaryNode) walk(fn func(node)) {
	fn(n)
	n.left.walk(fn)
	n.right.walk(fn)
}
func (n *notNode) walk(fn func(node)) {
	fn(n)
	n.inner.walk(fn)
}
func (n *negNode) walk(fn func(node)) {
	fn(n)
	n.inner.walk(fn)
}
func (n *inNode) walk(fn func(node)) {
	fn(n)
	n.operand.walk(fn)
}
func (n *isNullNode) walk(fn func(node)) {
	fn(n)
	n.operand.walk(fn)
}
func (n *duplicatedNode) walk(fn func(node)) { fn(n) }
func (n *matchesNode) walk(fn func(node)) {
	fn(n)
	n.operand.walk(fn)
}
func (n *nowNode) walk(fn func(node)) { fn(n) }
func (n *aggNode) walk(fn func(node)) { fn(n) }
