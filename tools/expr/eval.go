package expr

import (
	"errors"
	"fmt"
	"math"
)

// ErrDivisionByZero is returned when a denominator evaluates to zero
var ErrDivisionByZero = errors.New("división entre cero")

// ErrDomain is returned when a function is evaluated outside its domain
var ErrDomain = errors.New("fuera del dominio")

// Eval evaluates n with the given variable bindings. pi and e are always
// defined. % follows floored modulo.
func Eval(n Node, env map[string]float64) (float64, error) {
	switch t := n.(type) {
	case Num:
		return t.V, nil
	case Var:
		if v, ok := env[t.Name]; ok {
			return v, nil
		}
		switch t.Name {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}
		return 0, fmt.Errorf("variable no definida '%s'", t.Name)
	case Neg:
		x, err := Eval(t.X, env)
		return -x, err
	case Binary:
		l, err := Eval(t.L, env)
		if err != nil {
			return 0, err
		}
		r, err := Eval(t.R, env)
		if err != nil {
			return 0, err
		}
		return apply(t.Op, l, r)
	case Call:
		x, err := Eval(t.Arg, env)
		if err != nil {
			return 0, err
		}
		return call(t.Fn, x)
	}
	return 0, fmt.Errorf("nodo desconocido %T", n)
}

func apply(op byte, l, r float64) (float64, error) {
	switch op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	case '%':
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l - r*math.Floor(l/r), nil
	case '^':
		if l == 0 && r < 0 {
			return 0, ErrDivisionByZero
		}
		v := math.Pow(l, r)
		if math.IsNaN(v) {
			return 0, fmt.Errorf("%w: %s^%s", ErrDomain, FormatNumber(l), FormatNumber(r))
		}
		return v, nil
	}
	return 0, fmt.Errorf("operador no permitido '%c'", op)
}

func call(fn string, x float64) (float64, error) {
	var v float64
	switch fn {
	case "sin":
		v = math.Sin(x)
	case "cos":
		v = math.Cos(x)
	case "tan":
		v = math.Tan(x)
	case "asin":
		v = math.Asin(x)
	case "acos":
		v = math.Acos(x)
	case "atan":
		v = math.Atan(x)
	case "exp":
		v = math.Exp(x)
	case "ln":
		if x <= 0 {
			return 0, fmt.Errorf("%w: ln(%s)", ErrDomain, FormatNumber(x))
		}
		v = math.Log(x)
	case "sqrt":
		if x < 0 {
			return 0, fmt.Errorf("%w: sqrt(%s)", ErrDomain, FormatNumber(x))
		}
		v = math.Sqrt(x)
	case "abs":
		v = math.Abs(x)
	default:
		return 0, fmt.Errorf("función desconocida '%s'", fn)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s(%s)", ErrDomain, fn, FormatNumber(x))
	}
	return v, nil
}

// Func compiles n into a function of one variable
func Func(n Node, v string) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		return Eval(n, map[string]float64{v: x})
	}
}
