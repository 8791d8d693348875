// Package expr compiles and evaluates the restricted rule grammar used by
// catalog and package specifications. A rule is compiled once into an AST and
// evaluated as a pure function of (rule, dataset, row); it performs no
// mutation and sees nothing outside the supplied dataset.
package expr

import (
	"fmt"
	"sort"
	"time"

	"github.com/artpar/sage/domain/dataset"
)

// EvalError reports a rule that failed to compile or evaluate. It names the
// offending expression so callers can surface it in diagnostics.
type EvalError struct {
	Expr   string
	Detail string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("rule %q: %s", e.Expr, e.Detail)
}

// Expr is a compiled rule.
type Expr struct {
	src    string
	root   node
	hasAgg bool
}

// Compile parses src into an evaluable rule.
func Compile(src string) (*Expr, error) {
	if src == "" {
		return nil, &EvalError{Expr: src, Detail: "empty expression"}
	}
	toks, err := (&lexer{src: src}).lex()
	if err != nil {
		return nil, &EvalError{Expr: src, Detail: err.Error()}
	}
	root, err := (&parser{toks: toks}).parse()
	if err != nil {
		return nil, &EvalError{Expr: src, Detail: err.Error()}
	}
	e := &Expr{src: src, root: root}
	root.walk(func(n node) {
		if _, ok := n.(*aggNode); ok {
			e.hasAgg = true
		}
	})
	return e, nil
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.src }

// Columns returns the distinct column names the rule references, sorted.
// Used to populate diagnostic context with related-field values.
func (e *Expr) Columns() []string {
	seen := map[string]bool{}
	e.root.walk(func(n node) {
		switch t := n.(type) {
		case *columnNode:
			seen[t.name] = true
		case *duplicatedNode:
			seen[t.column] = true
		case *aggNode:
			if t.column != "" {
				seen[t.column] = true
			}
		}
	})
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// DuplicateColumn reports the column name when the rule is exactly a
// duplicate check (DUPLICATED(c) or NOT DUPLICATED(c)). Validators use this
// to expand every colliding occurrence into its own diagnostic.
func (e *Expr) DuplicateColumn() (string, bool) {
	switch n := e.root.(type) {
	case *duplicatedNode:
		return n.column, true
	case *notNode:
		if d, ok := n.inner.(*duplicatedNode); ok {
			return d.column, true
		}
	}
	return "", false
}

// Evaluator binds a clock to rule evaluation so NOW() is deterministic in
// tests. The zero Evaluator uses time.Now.
type Evaluator struct {
	Now func() time.Time
}

func (ev Evaluator) context(ds *dataset.Dataset) *evalContext {
	now := time.Now()
	if ev.Now != nil {
		now = ev.Now()
	}
	return &evalContext{ds: ds, now: now}
}

// EvalVector evaluates the rule once per row, returning an N-length vector
// where false marks a failing row.
func (e *Expr) EvalVector(ds *dataset.Dataset) ([]bool, error) {
	return Evaluator{}.EvalVector(e, ds)
}

// EvalScalar reduces the rule to a single boolean over the whole dataset.
// Rules containing aggregates evaluate once; plain row rules hold iff they
// hold for every row.
func (e *Expr) EvalScalar(ds *dataset.Dataset) (bool, error) {
	return Evaluator{}.EvalScalar(e, ds)
}

// EvalVector is the clock-aware form of Expr.EvalVector.
func (ev Evaluator) EvalVector(e *Expr, ds *dataset.Dataset) ([]bool, error) {
	if e.hasAgg {
		return nil, &EvalError{Expr: e.src, Detail: "aggregate rule cannot produce a row vector"}
	}
	ctx := ev.context(ds)
	out := make([]bool, ds.Rows())
	for row := range out {
		v, err := e.root.eval(ctx, row)
		if err != nil {
			return nil, &EvalError{Expr: e.src, Detail: err.Error()}
		}
		b, err := asBool(v)
		if err != nil {
			return nil, &EvalError{Expr: e.src, Detail: err.Error()}
		}
		out[row] = b
	}
	return out, nil
}

// EvalScalar is the clock-aware form of Expr.EvalScalar.
func (ev Evaluator) EvalScalar(e *Expr, ds *dataset.Dataset) (bool, error) {
	if e.hasAgg {
		ctx := ev.context(ds)
		v, err := e.root.eval(ctx, -1)
		if err != nil {
			return false, &EvalError{Expr: e.src, Detail: err.Error()}
		}
		b, err := asBool(v)
		if err != nil {
			return false, &EvalError{Expr: e.src, Detail: err.Error()}
		}
		return b, nil
	}
	vec, err := ev.EvalVector(e, ds)
	if err != nil {
		return false, err
	}
	for _, ok := range vec {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
