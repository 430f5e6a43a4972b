// Package expr parses and manipulates the small math language used by the
// calculator, calculus and plotting tools: numbers, variables, the constants
// pi and e, + - * / % ^ (right-associative), implicit multiplication ("2x",
// "3(x+1)") and one-argument functions.
package expr

import (
	"strconv"
	"strings"
)

// Node is an expression tree node
type Node interface {
	String() string
	node()
}

// Num is a numeric literal
type Num struct{ V float64 }

// Var is a variable or named constant
type Var struct{ Name string }

// Neg is unary minus
type Neg struct{ X Node }

// Binary is a binary operation; Op is one of + - * / % ^
type Binary struct {
	Op   byte
	L, R Node
}

// Call is a one-argument function application
type Call struct {
	Fn  string
	Arg Node
}

func (Num) node()    {}
func (Var) node()    {}
func (Neg) node()    {}
func (Binary) node() {}
func (Call) node()   {}

// FormatNumber renders v with at most 10 significant digits
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

func prec(n Node) int {
	switch t := n.(type) {
	case Num:
		if t.V < 0 {
			return precNeg
		}
		return precAtom
	case Neg:
		return precNeg
	case Binary:
		switch t.Op {
		case '+', '-':
			return precAdd
		case '*', '/', '%':
			return precMul
		case '^':
			return precPow
		}
	}
	return precAtom
}

func wrap(n Node, paren bool) string {
	if paren {
		return "(" + n.String() + ")"
	}
	return n.String()
}

func (n Num) String() string { return FormatNumber(n.V) }

func (v Var) String() string { return v.Name }

func (n Neg) String() string {
	return "-" + wrap(n.X, prec(n.X) < precNeg || isNegative(n.X))
}

func (c Call) String() string { return c.Fn + "(" + c.Arg.String() + ")" }

func (b Binary) String() string {
	p := prec(b)
	var sb strings.Builder
	switch b.Op {
	case '^':
		sb.WriteString(wrap(b.L, prec(b.L) <= precPow))
		sb.WriteString("^")
		sb.WriteString(wrap(b.R, prec(b.R) < precPow))
		return sb.String()
	case '+':
		// a + -b prints as a - b
		if neg, ok := negated(b.R); ok {
			return Binary{Op: '-', L: b.L, R: neg}.String()
		}
	}
	sb.WriteString(wrap(b.L, prec(b.L) < p))
	switch b.Op {
	case '+', '-':
		sb.WriteString(" " + string(b.Op) + " ")
	default:
		sb.WriteByte(b.Op)
	}
	rp := prec(b.R)
	nonAssoc := b.Op == '-' || b.Op == '/' || b.Op == '%'
	sb.WriteString(wrap(b.R, rp < p || (rp == p && nonAssoc) || isNegative(b.R)))
	return sb.String()
}

func isNegative(n Node) bool {
	switch t := n.(type) {
	case Num:
		return t.V < 0
	case Neg:
		return true
	}
	return false
}

// negated returns -n when n is visibly negative
func negated(n Node) (Node, bool) {
	switch t := n.(type) {
	case Num:
		if t.V < 0 {
			return Num{-t.V}, true
		}
	case Neg:
		return t.X, true
	case Binary:
		switch t.Op {
		case '*':
			if c, ok := t.L.(Num); ok && c.V < 0 {
				if c.V == -1 {
					return t.R, true
				}
				return Binary{Op: '*', L: Num{-c.V}, R: t.R}, true
			}
		case '/':
			if l, ok := negated(t.L); ok {
				return Binary{Op: '/', L: l, R: t.R}, true
			}
		}
	}
	return nil, false
}

// Equal reports structural equality
func Equal(a, b Node) bool {
	return a.String() == b.String()
}

// Vars returns the free variables of n, excluding pi and e
func Vars(n Node) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Var:
			if !isConstant(t.Name) && !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		case Neg:
			walk(t.X)
		case Binary:
			walk(t.L)
			walk(t.R)
		case Call:
			walk(t.Arg)
		}
	}
	walk(n)
	return out
}

// DependsOn reports whether v occurs free in n
func DependsOn(n Node, v string) bool {
	for _, name := range Vars(n) {
		if name == v {
			return true
		}
	}
	return false
}

func isConstant(name string) bool {
	return name == "pi" || name == "e"
}
