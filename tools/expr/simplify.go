package expr

import "math"

// Simplify folds constants, applies algebraic identities and normalizes
// single-variable polynomial subtrees into expanded form.
func Simplify(n Node) Node {
	switch t := n.(type) {
	case Neg:
		x := Simplify(t.X)
		switch u := x.(type) {
		case Num:
			return Num{-u.V}
		case Neg:
			return u.X
		}
		return normalize(Neg{x})
	case Binary:
		l, r := Simplify(t.L), Simplify(t.R)
		return normalize(simplifyBinary(t.Op, l, r))
	case Call:
		arg := Simplify(t.Arg)
		if c, ok := arg.(Num); ok {
			// only exact results fold, so sqrt(2) stays symbolic
			if v, err := call(t.Fn, c.V); err == nil && v == math.Trunc(v) {
				return Num{v}
			}
		}
		return Call{Fn: t.Fn, Arg: arg}
	}
	return n
}

func isNum(n Node, v float64) bool {
	c, ok := n.(Num)
	return ok && c.V == v
}

func simplifyBinary(op byte, l, r Node) Node {
	lc, lok := l.(Num)
	rc, rok := r.(Num)
	if lok && rok {
		if v, err := apply(op, lc.V, rc.V); err == nil && !math.IsInf(v, 0) {
			return Num{clean(v)}
		}
	}
	switch op {
	case '+':
		if isNum(l, 0) {
			return r
		}
		if isNum(r, 0) {
			return l
		}
		if Equal(l, r) {
			return simplifyBinary('*', Num{2}, l)
		}
	case '-':
		if isNum(r, 0) {
			return l
		}
		if isNum(l, 0) {
			return Simplify(Neg{r})
		}
		if Equal(l, r) {
			return Num{0}
		}
	case '*':
		if isNum(l, 0) || isNum(r, 0) {
			return Num{0}
		}
		if isNum(l, 1) {
			return r
		}
		if isNum(r, 1) {
			return l
		}
		if isNum(l, -1) {
			return Simplify(Neg{r})
		}
		if rok && !lok {
			return simplifyBinary('*', rc, l)
		}
		// c1*(c2*x) -> (c1*c2)*x
		if inner, ok := r.(Binary); ok && lok && inner.Op == '*' {
			if c2, ok := inner.L.(Num); ok {
				return simplifyBinary('*', Num{lc.V * c2.V}, inner.R)
			}
		}
		if Equal(l, r) {
			return Binary{Op: '^', L: l, R: Num{2}}
		}
	case '/':
		if isNum(l, 0) && !isNum(r, 0) {
			return Num{0}
		}
		if isNum(r, 1) {
			return l
		}
		if Equal(l, r) && !isNum(r, 0) {
			return Num{1}
		}
	case '^':
		if isNum(r, 0) {
			return Num{1}
		}
		if isNum(r, 1) {
			return l
		}
		if isNum(l, 1) {
			return Num{1}
		}
		// (x^a)^b -> x^(a*b)
		if inner, ok := l.(Binary); ok && inner.Op == '^' && rok {
			if a, ok := inner.R.(Num); ok {
				return Binary{Op: '^', L: inner.L, R: Num{clean(a.V * rc.V)}}
			}
		}
	}
	return Binary{Op: op, L: l, R: r}
}

// normalize expands n when it is a polynomial in its only free variable,
// and cancels exact polynomial quotients
func normalize(n Node) Node {
	vars := Vars(n)
	if len(vars) != 1 {
		return n
	}
	v := vars[0]
	if p, ok := ToPoly(n, v); ok {
		return p.Node(v)
	}
	b, ok := n.(Binary)
	if !ok || b.Op != '/' {
		return n
	}
	num, ok := ToPoly(b.L, v)
	if !ok {
		return n
	}
	den, ok := ToPoly(b.R, v)
	if !ok {
		return n
	}
	q, rem, ok := DivPoly(num, den)
	if ok && rem.IsZero() {
		return q.Node(v)
	}
	return n
}
