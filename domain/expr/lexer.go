package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokEQ // ==
	tokNE // !=
	tokLT
	tokLE
	tokGT
	tokGE
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma

	// Keywords, produced from identifiers.
	tokAnd
	tokOr
	tokNot
	tokIn
	tokIs
	tokNull
	tokTrue
	tokFalse
	tokDate
	tokNow
	tokDuplicated
	tokMatches
	tokCount
	tokSum
	tokMin
	tokMax
	tokAvg
)

var keywords = map[string]tokenKind{
	"AND":        tokAnd,
	"OR":         tokOr,
	"NOT":        tokNot,
	"IN":         tokIn,
	"IS":         tokIs,
	"NULL":       tokNull,
	"TRUE":       tokTrue,
	"FALSE":      tokFalse,
	"DATE":       tokDate,
	"NOW":        tokNow,
	"DUPLICATED": tokDuplicated,
	"MATCHES":    tokMatches,
	"COUNT":      tokCount,
	"SUM":        tokSum,
	"MIN":        tokMin,
	"MAX":        tokMax,
	"AVG":        tokAvg,
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) lex() ([]token, error) {
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '(':
		l.pos++
		return token{tokLParen, "(", start}, nil
	case ')':
		l.pos++
		return token{tokRParen, ")", start}, nil
	case ',':
		l.pos++
		return token{tokComma, ",", start}, nil
	case '+':
		l.pos++
		return token{tokPlus, "+", start}, nil
	case '-':
		l.pos++
		return token{tokMinus, "-", start}, nil
	case '*':
		l.pos++
		return token{tokStar, "*", start}, nil
	case '/':
		l.pos++
		return token{tokSlash, "/", start}, nil
	case '=':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{tokEQ, "==", start}, nil
		}
		return token{}, fmt.Errorf("position %d: expected == not =", start)
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{tokNE, "!=", start}, nil
		}
		return token{}, fmt.Errorf("position %d: unexpected '!'", start)
	case '<':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{tokLE, "<=", start}, nil
		}
		l.pos++
		return token{tokLT, "<", start}, nil
	case '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{tokGE, ">=", start}, nil
		}
		l.pos++
		return token{tokGT, ">", start}, nil
	case '\'', '"':
		return l.lexString(c)
	}

	if c >= '0' && c <= '9' || c == '.' {
		return l.lexNumber()
	}
	if isIdentStart(c) {
		return l.lexIdent()
	}

	return token{}, fmt.Errorf("position %d: unexpected character %q", start, string(c))
}

func (l *lexer) peek(ahead int) byte {
	if l.pos+ahead < len(l.src) {
		return l.src[l.pos+ahead]
	}
	return 0
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{tokString, b.String(), start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, fmt.Errorf("position %d: unterminated string", start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	text := l.src[start:l.pos]
	if text == "." {
		return token{}, fmt.Errorf("position %d: malformed number", start)
	}
	return token{tokNumber, text, start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if kw, ok := keywords[strings.ToUpper(text)]; ok {
		return token{kw, text, start}, nil
	}
	return token{tokIdent, text, start}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
