package expr

import (
	"math"
)

// maxPower bounds integer exponents expanded by ToPoly
const maxPower = 16

// Poly holds polynomial coefficients indexed by degree
type Poly []float64

// Degree returns the degree of p; the zero polynomial has degree 0
func (p Poly) Degree() int {
	for i := len(p) - 1; i > 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}

func (p Poly) trim() Poly {
	return p[:p.Degree()+1]
}

func (p Poly) add(q Poly, sign float64) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	copy(out, p)
	for i, c := range q {
		out[i] += sign * c
	}
	return out.trim()
}

func (p Poly) mul(q Poly) Poly {
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out.trim()
}

func (p Poly) scale(k float64) Poly {
	out := make(Poly, len(p))
	for i, c := range p {
		out[i] = c * k
	}
	return out.trim()
}

// Eval evaluates p at x using Horner's rule
func (p Poly) Eval(x float64) float64 {
	var v float64
	for i := len(p) - 1; i >= 0; i-- {
		v = v*x + p[i]
	}
	return v
}

// ToPoly converts n into a polynomial in v. It fails on any other free
// variable, on functions, and on division by a non-constant.
func ToPoly(n Node, v string) (Poly, bool) {
	switch t := n.(type) {
	case Num:
		return Poly{t.V}, true
	case Var:
		if t.Name == v {
			return Poly{0, 1}, true
		}
		return nil, false
	case Neg:
		p, ok := ToPoly(t.X, v)
		if !ok {
			return nil, false
		}
		return p.scale(-1), true
	case Binary:
		l, ok := ToPoly(t.L, v)
		if !ok {
			return nil, false
		}
		r, ok := ToPoly(t.R, v)
		if !ok {
			return nil, false
		}
		switch t.Op {
		case '+':
			return l.add(r, 1), true
		case '-':
			return l.add(r, -1), true
		case '*':
			return l.mul(r), true
		case '/':
			if r.Degree() != 0 || r[0] == 0 {
				return nil, false
			}
			return l.scale(1 / r[0]), true
		case '^':
			if r.Degree() != 0 {
				return nil, false
			}
			k := r[0]
			if k < 0 || k > maxPower || k != math.Trunc(k) {
				return nil, false
			}
			out := Poly{1}
			for i := 0; i < int(k); i++ {
				out = out.mul(l)
			}
			return out, true
		}
	}
	return nil, false
}

// clean snaps float noise to the nearest integer
func clean(c float64) float64 {
	if r := math.Round(c); math.Abs(c-r) < 1e-9 {
		if r == 0 {
			return 0 // drop the sign of -0
		}
		return r
	}
	return c
}

// fraction finds a small denominator for c; den is 1 when none fits
func fraction(c float64) (num, den float64) {
	if c == math.Trunc(c) {
		return c, 1
	}
	for q := 2.0; q <= 12; q++ {
		if p := c * q; math.Abs(p-math.Round(p)) < 1e-9 {
			return math.Round(p), q
		}
	}
	return c, 1
}

// Node renders p as an expression in v, highest degree first
func (p Poly) Node(v string) Node {
	var acc Node
	for k := p.Degree(); k >= 0; k-- {
		c := clean(p[k])
		if c == 0 {
			continue
		}
		var term Node
		if k == 0 {
			term = Num{c}
		} else {
			var m Node = Var{v}
			if k > 1 {
				m = Binary{Op: '^', L: Var{v}, R: Num{float64(k)}}
			}
			num, den := fraction(c)
			switch {
			case den > 1 && num == 1:
				term = Binary{Op: '/', L: m, R: Num{den}}
			case den > 1 && num == -1:
				term = Binary{Op: '/', L: Neg{m}, R: Num{den}}
			case den > 1:
				term = Binary{Op: '/', L: Binary{Op: '*', L: Num{num}, R: m}, R: Num{den}}
			case c == 1:
				term = m
			case c == -1:
				term = Neg{m}
			default:
				term = Binary{Op: '*', L: Num{c}, R: m}
			}
		}
		if acc == nil {
			acc = term
		} else {
			acc = Binary{Op: '+', L: acc, R: term}
		}
	}
	if acc == nil {
		return Num{0}
	}
	return acc
}

// DivPoly divides a by b, returning quotient and remainder
func DivPoly(a, b Poly) (q, r Poly, ok bool) {
	b = b.trim()
	db := b.Degree()
	if db == 0 && b[0] == 0 {
		return nil, nil, false
	}
	if db == 0 {
		return a.scale(1 / b[0]), Poly{0}, true
	}
	r = append(Poly(nil), a.trim()...)
	if r.Degree() < db {
		return Poly{0}, r, true
	}
	q = make(Poly, r.Degree()-db+1)
	for r.Degree() >= db {
		k := r.Degree() - db
		c := r[r.Degree()] / b[db]
		q[k] = c
		for i := 0; i <= db; i++ {
			r[i+k] -= c * b[i]
		}
		r[k+db] = 0
		r = r.trim()
	}
	for i := range r {
		r[i] = clean(r[i])
	}
	return q.trim(), r.trim(), true
}

// IsZero reports whether every coefficient is (numerically) zero
func (p Poly) IsZero() bool {
	for _, c := range p {
		if math.Abs(c) > 1e-12 {
			return false
		}
	}
	return true
}

// linear reports whether n is a*v + b with a != 0
func linear(n Node, v string) (a, b float64, ok bool) {
	p, ok := ToPoly(n, v)
	if !ok || p.Degree() != 1 {
		return 0, 0, false
	}
	return p[1], p[0], true
}
