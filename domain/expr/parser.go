package expr

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/artpar/sage/domain/dataset"
)

// parser implements a recursive-descent parse of the rule grammar:
//
//	expr      := or
//	or        := and ( OR and )*
//	and       := unary ( AND unary )*
//	unary     := NOT unary | predicate
//	predicate := additive ( cmp additive | IS [NOT] NULL | [NOT] IN '(' list ')' )?
//	additive  := mult ( (+|-) mult )*
//	mult      := neg ( (*|/) neg )*
//	neg       := '-' neg | primary
//	primary   := literal | DATE str | NOW() | DUPLICATED(col) | MATCHES(e, str)
//	           | COUNT() | SUM(col) | MIN(col) | MAX(col) | AVG(col)
//	           | column | '(' expr ')'
type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance()    { p.pos++ }
func (p *parser) at(k tokenKind) bool {
	return p.cur().kind == k
}

func (p *parser) accept(k tokenKind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.accept(k) {
		return nil
	}
	return fmt.Errorf("position %d: expected %s, got %q", p.cur().pos, what, p.cur().text)
}

func (p *parser) parse() (node, error) {
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, fmt.Errorf("position %d: unexpected %q after expression", p.cur().pos, p.cur().text)
	}
	return n, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	return p.parsePredicate()
}

func (p *parser) parsePredicate() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	switch p.cur().kind {
	case tokEQ, tokNE, tokLT, tokLE, tokGT, tokGE:
		op := p.cur().kind
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op, left: left, right: right}, nil

	case tokIs:
		p.advance()
		negated := p.accept(tokNot)
		if err := p.expect(tokNull, "NULL"); err != nil {
			return nil, err
		}
		return &isNullNode{operand: left, negated: negated}, nil

	case tokNot:
		p.advance()
		if err := p.expect(tokIn, "IN"); err != nil {
			return nil, err
		}
		list, err := p.parseLiteralList()
		if err != nil {
			return nil, err
		}
		return &inNode{operand: left, list: list, negated: true}, nil

	case tokIn:
		p.advance()
		list, err := p.parseLiteralList()
		if err != nil {
			return nil, err
		}
		return &inNode{operand: left, list: list}, nil
	}

	return left, nil
}

func (p *parser) parseLiteralList() ([]dataset.Value, error) {
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var list []dataset.Value
	for {
		v, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		if p.accept(tokComma) {
			continue
		}
		break
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseLiteralValue() (dataset.Value, error) {
	neg := p.accept(tokMinus)
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return dataset.Value{}, fmt.Errorf("position %d: bad number %q", t.pos, t.text)
		}
		if neg {
			f = -f
		}
		return dataset.Number(f), nil
	case tokString:
		if neg {
			return dataset.Value{}, fmt.Errorf("position %d: cannot negate string", t.pos)
		}
		p.advance()
		return dataset.Text(t.text), nil
	case tokTrue:
		p.advance()
		return dataset.Bool(true), nil
	case tokFalse:
		p.advance()
		return dataset.Bool(false), nil
	}
	return dataset.Value{}, fmt.Errorf("position %d: expected literal, got %q", t.pos, t.text)
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(tokPlus) || p.at(tokMinus) {
		op := p.cur().kind
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseNeg()
	if err != nil {
		return nil, err
	}
	for p.at(tokStar) || p.at(tokSlash) {
		op := p.cur().kind
		p.advance()
		right, err := p.parseNeg()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNeg() (node, error) {
	if p.accept(tokMinus) {
		inner, err := p.parseNeg()
		if err != nil {
			return nil, err
		}
		return &negNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("position %d: bad number %q", t.pos, t.text)
		}
		return &literalNode{val: dataset.Number(f)}, nil

	case tokString:
		p.advance()
		return &literalNode{val: dataset.Text(t.text)}, nil

	case tokTrue:
		p.advance()
		return &literalNode{val: dataset.Bool(true)}, nil

	case tokFalse:
		p.advance()
		return &literalNode{val: dataset.Bool(false)}, nil

	case tokNull:
		p.advance()
		return &literalNode{val: dataset.Null()}, nil

	case tokDate:
		p.advance()
		lit := p.cur()
		if lit.kind != tokString {
			return nil, fmt.Errorf("position %d: DATE requires a quoted date", lit.pos)
		}
		p.advance()
		tm, ok := dataset.Text(lit.text).ParseTime()
		if !ok {
			return nil, fmt.Errorf("position %d: unparsable date %q", lit.pos, lit.text)
		}
		return &literalNode{val: dataset.Time(tm)}, nil

	case tokNow:
		p.advance()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &nowNode{}, nil

	case tokDuplicated:
		p.advance()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		col := p.cur()
		if col.kind != tokIdent {
			return nil, fmt.Errorf("position %d: DUPLICATED requires a column name", col.pos)
		}
		p.advance()
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &duplicatedNode{column: col.text}, nil

	case tokMatches:
		p.advance()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		operand, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokComma, ","); err != nil {
			return nil, err
		}
		pat := p.cur()
		if pat.kind != tokString {
			return nil, fmt.Errorf("position %d: MATCHES requires a quoted pattern", pat.pos)
		}
		p.advance()
		re, err := regexp.Compile(pat.text)
		if err != nil {
			return nil, fmt.Errorf("position %d: bad pattern %q: %v", pat.pos, pat.text, err)
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &matchesNode{operand: operand, re: re, pattern: pat.text}, nil

	case tokCount:
		p.advance()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &aggNode{fn: tokCount}, nil

	case tokSum, tokMin, tokMax, tokAvg:
		p.advance()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		col := p.cur()
		if col.kind != tokIdent {
			return nil, fmt.Errorf("position %d: aggregate requires a column name", col.pos)
		}
		p.advance()
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &aggNode{fn: t.kind, column: col.text}, nil

	case tokIdent:
		p.advance()
		return &columnNode{name: t.text}, nil

	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	return nil, fmt.Errorf("position %d: unexpected %q", t.pos, t.text)
}
