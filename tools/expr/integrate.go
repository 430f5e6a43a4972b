package expr

import (
	"errors"
	"math"
)

// ErrNoAntiderivative is returned for integrands outside the supported rules
var ErrNoAntiderivative = errors.New("no encontré una primitiva elemental con las reglas disponibles")

// Integrate returns an antiderivative of n with respect to v, without the
// constant. Supported: polynomials, linearity, constant factors, powers and
// elementary functions of a linear argument, and k/(a*v+b).
func Integrate(n Node, v string) (Node, error) {
	f, err := integrate(Simplify(n), v)
	if err != nil {
		return nil, err
	}
	return Simplify(f), nil
}

func integrate(n Node, v string) (Node, error) {
	if !DependsOn(n, v) {
		return mul(n, Var{v}), nil
	}
	if p, ok := ToPoly(n, v); ok {
		out := make(Poly, len(p)+1)
		for k, c := range p {
			out[k+1] = c / float64(k+1)
		}
		return out.Node(v), nil
	}
	switch t := n.(type) {
	case Neg:
		f, err := integrate(t.X, v)
		if err != nil {
			return nil, err
		}
		return Neg{f}, nil
	case Binary:
		return integrateBinary(t, v)
	case Call:
		a, _, ok := linear(t.Arg, v)
		if !ok {
			return nil, ErrNoAntiderivative
		}
		u := t.Arg
		var f Node
		switch t.Fn {
		case "sin":
			f = Neg{Call{"cos", u}}
		case "cos":
			f = Call{"sin", u}
		case "tan":
			f = Neg{Call{"ln", Call{"abs", Call{"cos", u}}}}
		case "exp":
			f = t
		case "ln":
			f = sub(mul(u, t), u)
		case "sqrt":
			f = mul(div(Num{2}, Num{3}), pow(u, Num{1.5}))
		default:
			return nil, ErrNoAntiderivative
		}
		return overSlope(f, a), nil
	}
	return nil, ErrNoAntiderivative
}

func integrateBinary(t Binary, v string) (Node, error) {
	switch t.Op {
	case '+', '-':
		l, err := integrate(t.L, v)
		if err != nil {
			return nil, err
		}
		r, err := integrate(t.R, v)
		if err != nil {
			return nil, err
		}
		return Binary{Op: t.Op, L: l, R: r}, nil
	case '*':
		if !DependsOn(t.L, v) {
			r, err := integrate(t.R, v)
			if err != nil {
				return nil, err
			}
			return mul(t.L, r), nil
		}
		if !DependsOn(t.R, v) {
			l, err := integrate(t.L, v)
			if err != nil {
				return nil, err
			}
			return mul(t.R, l), nil
		}
	case '/':
		if !DependsOn(t.R, v) {
			l, err := integrate(t.L, v)
			if err != nil {
				return nil, err
			}
			return div(l, t.R), nil
		}
		if !DependsOn(t.L, v) {
			if a, _, ok := linear(t.R, v); ok {
				return overSlope(mul(t.L, Call{"ln", Call{"abs", t.R}}), a), nil
			}
		}
	case '^':
		if !DependsOn(t.R, v) {
			a, _, ok := linear(t.L, v)
			k, isNum := Simplify(t.R).(Num)
			if !ok || !isNum {
				return nil, ErrNoAntiderivative
			}
			if k.V == -1 {
				return overSlope(Call{"ln", Call{"abs", t.L}}, a), nil
			}
			return overSlope(div(pow(t.L, Num{k.V + 1}), Num{k.V + 1}), a), nil
		}
		if !DependsOn(t.L, v) {
			a, _, ok := linear(t.R, v)
			if !ok {
				return nil, ErrNoAntiderivative
			}
			if Equal(t.L, Var{"e"}) {
				return overSlope(t, a), nil
			}
			base, err := Eval(t.L, nil)
			if err != nil || base <= 0 || base == 1 {
				return nil, ErrNoAntiderivative
			}
			return div(t, Num{a * math.Log(base)}), nil
		}
	}
	return nil, ErrNoAntiderivative
}

// overSlope divides f by the slope of a linear substitution
func overSlope(f Node, a float64) Node {
	if a == 1 {
		return f
	}
	return div(f, Num{a})
}
