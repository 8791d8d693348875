package expr

import (
	"fmt"
	"time"

	"github.com/artpar/sage/domain/dataset"
)

// evalContext carries the dataset plus per-run caches shared across rows.
type evalContext struct {
	ds  *dataset.Dataset
	now time.Time

	dupFlags map[string][]bool
}

// duplicateFlags marks every row whose column value occurs more than once
// (all occurrences, not just the second and later ones).
func (ctx *evalContext) duplicateFlags(column string) ([]bool, error) {
	if flags, ok := ctx.dupFlags[column]; ok {
		return flags, nil
	}
	col, ok := ctx.ds.Column(column)
	if !ok {
		return nil, fmt.Errorf("column %q not present", column)
	}
	counts := make(map[string]int, len(col.Values))
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		counts[v.Key()]++
	}
	flags := make([]bool, len(col.Values))
	for i, v := range col.Values {
		if !v.IsNull() && counts[v.Key()] > 1 {
			flags[i] = true
		}
	}
	if ctx.dupFlags == nil {
		ctx.dupFlags = make(map[string][]bool)
	}
	ctx.dupFlags[column] = flags
	return flags, nil
}

func (n *literalNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	return n.val, nil
}

func (n *nowNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	return dataset.Time(ctx.now), nil
}

func (n *columnNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	if row < 0 {
		return dataset.Value{}, fmt.Errorf("column %q referenced outside row context", n.name)
	}
	v, ok := ctx.ds.Cell(n.name, row)
	if !ok {
		return dataset.Value{}, fmt.Errorf("column %q not present", n.name)
	}
	return v, nil
}

func (n *negNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	v, err := n.inner.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	if v.IsNull() {
		return dataset.Null(), nil
	}
	f, ok := v.AsNumber()
	if !ok {
		return dataset.Value{}, fmt.Errorf("cannot negate %s value", v.Kind)
	}
	return dataset.Number(-f), nil
}

func (n *notNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	v, err := n.inner.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	b, err := asBool(v)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.Bool(!b), nil
}

func (n *isNullNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	v, err := n.operand.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	isNull := v.IsNull()
	if n.negated {
		isNull = !isNull
	}
	return dataset.Bool(isNull), nil
}

func (n *inNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	v, err := n.operand.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	found := false
	if !v.IsNull() {
		for _, lit := range n.list {
			if v.Equal(lit) {
				found = true
				break
			}
		}
	}
	if n.negated {
		found = !found
	}
	return dataset.Bool(found), nil
}

func (n *matchesNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	v, err := n.operand.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	if v.IsNull() {
		return dataset.Bool(false), nil
	}
	return dataset.Bool(n.re.MatchString(v.String())), nil
}

func (n *duplicatedNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	if row < 0 {
		return dataset.Value{}, fmt.Errorf("DUPLICATED(%s) requires row context", n.column)
	}
	flags, err := ctx.duplicateFlags(n.column)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.Bool(flags[row]), nil
}

func (n *aggNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	if n.fn == tokCount {
		return dataset.Number(float64(ctx.ds.Rows())), nil
	}
	col, ok := ctx.ds.Column(n.column)
	if !ok {
		return dataset.Value{}, fmt.Errorf("column %q not present", n.column)
	}
	var (
		sum   float64
		count int
		min   float64
		max   float64
	)
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		f, ok := v.AsNumber()
		if !ok {
			return dataset.Value{}, fmt.Errorf("column %q has non-numeric value %q", n.column, v.String())
		}
		if count == 0 {
			min, max = f, f
		} else {
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
		}
		sum += f
		count++
	}
	switch n.fn {
	case tokSum:
		return dataset.Number(sum), nil
	case tokAvg:
		if count == 0 {
			return dataset.Null(), nil
		}
		return dataset.Number(sum / float64(count)), nil
	case tokMin:
		if count == 0 {
			return dataset.Null(), nil
		}
		return dataset.Number(min), nil
	case tokMax:
		if count == 0 {
			return dataset.Null(), nil
		}
		return dataset.Number(max), nil
	}
	return dataset.Value{}, fmt.Errorf("unknown aggregate")
}

func (n *binaryNode) eval(ctx *evalContext, row int) (dataset.Value, error) {
	switch n.op {
	case tokAnd, tokOr:
		return n.evalLogical(ctx, row)
	case tokEQ, tokNE, tokLT, tokLE, tokGT, tokGE:
		return n.evalComparison(ctx, row)
	case tokPlus, tokMinus, tokStar, tokSlash:
		return n.evalArithmetic(ctx, row)
	}
	return dataset.Value{}, fmt.Errorf("unknown operator")
}

func (n *binaryNode) evalLogical(ctx *evalContext, row int) (dataset.Value, error) {
	lv, err := n.left.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	lb, err := asBool(lv)
	if err != nil {
		return dataset.Value{}, err
	}
	if n.op == tokAnd && !lb {
		return dataset.Bool(false), nil
	}
	if n.op == tokOr && lb {
		return dataset.Bool(true), nil
	}
	rv, err := n.right.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	rb, err := asBool(rv)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.Bool(rb), nil
}

// evalComparison treats null operands and incomparable pairs as a failed
// comparison rather than an error; type conformance is the type check's job.
func (n *binaryNode) evalComparison(ctx *evalContext, row int) (dataset.Value, error) {
	lv, err := n.left.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	rv, err := n.right.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	if lv.IsNull() || rv.IsNull() {
		return dataset.Bool(false), nil
	}

	if n.op == tokEQ || n.op == tokNE {
		eq := lv.Equal(rv)
		if n.op == tokNE {
			eq = !eq
		}
		return dataset.Bool(eq), nil
	}

	c, ok := lv.Compare(rv)
	if !ok {
		return dataset.Bool(false), nil
	}
	switch n.op {
	case tokLT:
		return dataset.Bool(c < 0), nil
	case tokLE:
		return dataset.Bool(c <= 0), nil
	case tokGT:
		return dataset.Bool(c > 0), nil
	case tokGE:
		return dataset.Bool(c >= 0), nil
	}
	return dataset.Value{}, fmt.Errorf("unknown comparison")
}

func (n *binaryNode) evalArithmetic(ctx *evalContext, row int) (dataset.Value, error) {
	lv, err := n.left.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	rv, err := n.right.eval(ctx, row)
	if err != nil {
		return dataset.Value{}, err
	}
	if lv.IsNull() || rv.IsNull() {
		return dataset.Null(), nil
	}
	a, aok := lv.AsNumber()
	b, bok := rv.AsNumber()
	if !aok || !bok {
		return dataset.Value{}, fmt.Errorf("arithmetic on non-numeric values %q and %q", lv.String(), rv.String())
	}
	switch n.op {
	case tokPlus:
		return dataset.Number(a + b), nil
	case tokMinus:
		return dataset.Number(a - b), nil
	case tokStar:
		return dataset.Number(a * b), nil
	case tokSlash:
		if b == 0 {
			return dataset.Null(), nil
		}
		return dataset.Number(a / b), nil
	}
	return dataset.Value{}, fmt.Errorf("unknown arithmetic operator")
}

func asBool(v dataset.Value) (bool, error) {
	switch v.Kind {
	case dataset.KindBool:
		return v.Bool, nil
	case dataset.KindNull:
		return false, nil
	}
	return false, fmt.Errorf("expected boolean, got %s value %q", v.Kind, v.String())
}
