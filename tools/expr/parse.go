package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var functions = map[string]string{
	"sin":  "sin",
	"sen":  "sin",
	"cos":  "cos",
	"tan":  "tan",
	"tg":   "tan",
	"asin": "asin",
	"acos": "acos",
	"atan": "atan",
	"exp":  "exp",
	"log":  "ln",
	"ln":   "ln",
	"sqrt": "sqrt",
	"abs":  "abs",
}

type tokenKind int

const (
	tokNum tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	r := []rune(s)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(r) && unicode.IsDigit(r[i+1])):
			j := i
			for j < len(r) && (unicode.IsDigit(r[j]) || r[j] == '.') {
				j++
			}
			// exponent only when digits follow, so "2e" stays 2*e
			if j < len(r) && (r[j] == 'e' || r[j] == 'E') {
				k := j + 1
				if k < len(r) && (r[k] == '+' || r[k] == '-') {
					k++
				}
				if k < len(r) && unicode.IsDigit(r[k]) {
					for k < len(r) && unicode.IsDigit(r[k]) {
						k++
					}
					j = k
				}
			}
			v, err := strconv.ParseFloat(string(r[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("número inválido '%s'", string(r[i:j]))
			}
			toks = append(toks, token{kind: tokNum, num: v, text: string(r[i:j]), pos: i})
			i = j
		case c == 'π':
			toks = append(toks, token{kind: tokIdent, text: "pi", pos: i})
			i++
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(r[i:j]), pos: i})
			i = j
		case c == '*' && i+1 < len(r) && r[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^%", c):
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '·' || c == '×':
			toks = append(toks, token{kind: tokOp, text: "*", pos: i})
			i++
		case c == '(' || c == '[':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')' || c == ']':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, fmt.Errorf("símbolo no válido '%c'", c)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(r)})
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

// Parse builds an expression tree from s
func Parse(s string) (Node, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("expresión vacía")
	}
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("token inesperado '%s'", t.text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops string) bool {
	t := p.peek()
	return t.kind == tokOp && strings.Contains(ops, t.text)
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+-") {
		op := p.next().text[0]
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch t := p.peek(); {
		case t.kind == tokOp && strings.Contains("*/%", t.text):
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = Binary{Op: t.text[0], L: left, R: right}
		case t.kind == tokNum || t.kind == tokIdent || t.kind == tokLParen:
			// implicit multiplication: 2x, 3(x+1), (x+1)(x-1)
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = Binary{Op: '*', L: left, R: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.isOp("+-") {
		op := p.next().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			return Neg{X: x}, nil
		}
		return x, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOp("^") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: '^', L: base, R: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return Num{V: t.num}, nil
	case tokIdent:
		name := strings.ToLower(t.text)
		if fn, ok := functions[name]; ok && p.peek().kind == tokLParen {
			p.next()
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.next().kind != tokRParen {
				return nil, fmt.Errorf("falta ')' después de %s(", t.text)
			}
			return Call{Fn: fn, Arg: arg}, nil
		}
		if name == "pi" || name == "e" {
			return Var{Name: name}, nil
		}
		return Var{Name: t.text}, nil
	case tokLParen:
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("paréntesis no balanceados")
		}
		return n, nil
	case tokEOF:
		return nil, fmt.Errorf("expresión incompleta")
	}
	return nil, fmt.Errorf("token inesperado '%s'", t.text)
}
