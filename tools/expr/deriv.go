package expr

import "fmt"

func mul(a, b Node) Node { return Binary{Op: '*', L: a, R: b} }
func div(a, b Node) Node { return Binary{Op: '/', L: a, R: b} }
func add(a, b Node) Node { return Binary{Op: '+', L: a, R: b} }
func sub(a, b Node) Node { return Binary{Op: '-', L: a, R: b} }
func pow(a, b Node) Node { return Binary{Op: '^', L: a, R: b} }

// Derivative differentiates n with respect to v and simplifies the result
func Derivative(n Node, v string) (Node, error) {
	d, err := derive(n, v)
	if err != nil {
		return nil, err
	}
	return Simplify(d), nil
}

func derive(n Node, v string) (Node, error) {
	if !DependsOn(n, v) {
		return Num{0}, nil
	}
	switch t := n.(type) {
	case Var:
		return Num{1}, nil
	case Neg:
		d, err := derive(t.X, v)
		if err != nil {
			return nil, err
		}
		return Neg{d}, nil
	case Binary:
		dl, err := derive(t.L, v)
		if err != nil {
			return nil, err
		}
		dr, err := derive(t.R, v)
		if err != nil {
			return nil, err
		}
		switch t.Op {
		case '+':
			return add(dl, dr), nil
		case '-':
			return sub(dl, dr), nil
		case '*':
			return add(mul(dl, t.R), mul(t.L, dr)), nil
		case '/':
			return div(sub(mul(dl, t.R), mul(t.L, dr)), pow(t.R, Num{2})), nil
		case '^':
			switch {
			case !DependsOn(t.R, v):
				return mul(mul(t.R, pow(t.L, sub(t.R, Num{1}))), dl), nil
			case Equal(t.L, Var{"e"}):
				return mul(n, dr), nil
			case !DependsOn(t.L, v):
				return mul(mul(n, Call{"ln", t.L}), dr), nil
			default:
				// x^x and friends: d(f^g) = f^g * (g' ln f + g f'/f)
				return mul(n, add(mul(dr, Call{"ln", t.L}), div(mul(t.R, dl), t.L))), nil
			}
		}
		return nil, fmt.Errorf("no sé derivar el operador '%c'", t.Op)
	case Call:
		du, err := derive(t.Arg, v)
		if err != nil {
			return nil, err
		}
		u := t.Arg
		var outer Node
		switch t.Fn {
		case "sin":
			outer = Call{"cos", u}
		case "cos":
			outer = Neg{Call{"sin", u}}
		case "tan":
			outer = div(Num{1}, pow(Call{"cos", u}, Num{2}))
		case "asin":
			outer = div(Num{1}, Call{"sqrt", sub(Num{1}, pow(u, Num{2}))})
		case "acos":
			outer = Neg{div(Num{1}, Call{"sqrt", sub(Num{1}, pow(u, Num{2}))})}
		case "atan":
			outer = div(Num{1}, add(Num{1}, pow(u, Num{2})))
		case "exp":
			outer = t
		case "ln":
			outer = div(Num{1}, u)
		case "sqrt":
			outer = div(Num{1}, mul(Num{2}, t))
		case "abs":
			outer = div(u, t)
		default:
			return nil, fmt.Errorf("no sé derivar %s", t.Fn)
		}
		return mul(outer, du), nil
	}
	return nil, fmt.Errorf("no sé derivar %s", n)
}
