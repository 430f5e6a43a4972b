package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/korjavin/profesorbot/tools/expr"
)

// num6 renders v with 6 significant digits
func num6(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func calc(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return "Uso: /calc 2*(3+4)^2"
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("No pude evaluar la expresión. Detalle: %v", err)
	}
	v, err := expr.Eval(n, nil)
	if err != nil {
		return fmt.Sprintf("No pude evaluar la expresión. Detalle: %v", err)
	}
	if math.IsInf(v, 0) {
		return "No pude evaluar la expresión. Detalle: desbordamiento"
	}
	return fmt.Sprintf("Resultado: **%s**", expr.FormatNumber(v))
}

func variable(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "x"
	}
	return v
}

func deriva(input, v string) string {
	v = variable(v)
	if strings.TrimSpace(input) == "" {
		return "Uso: /deriva x^3 + 2x [x]"
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("Error al derivar: %v", err)
	}
	d, err := expr.Derivative(n, v)
	if err != nil {
		return fmt.Sprintf("Error al derivar: %v", err)
	}
	return fmt.Sprintf("d/d%s %s = **%s**", v, expr.Simplify(n), d)
}

func integra(input, v string) string {
	v = variable(v)
	if strings.TrimSpace(input) == "" {
		return "Uso: /integra 3x^2 [x]"
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("Error al integrar: %v", err)
	}
	f, err := expr.Integrate(n, v)
	if err != nil {
		return fmt.Sprintf("Error al integrar: %v", err)
	}
	return fmt.Sprintf("∫ %s d%s = **%s + C**", expr.Simplify(n), v, f)
}

// parsePoint reads a limit point: a number, an expression of constants, or
// oo/inf/∞ with an optional sign
func parsePoint(at string) (float64, string, error) {
	at = strings.TrimSpace(at)
	if at == "" {
		at = "0"
	}
	sign := ""
	body := at
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		sign, body = body[:1], strings.TrimSpace(body[1:])
	}
	switch strings.ToLower(body) {
	case "oo", "inf", "infinito", "∞":
		if sign == "-" {
			return math.Inf(-1), "-oo", nil
		}
		return math.Inf(1), "oo", nil
	}
	n, err := expr.Parse(at)
	if err != nil {
		return 0, "", err
	}
	v, err := expr.Eval(n, nil)
	if err != nil {
		return 0, "", err
	}
	return v, expr.Simplify(n).String(), nil
}

func formatLimit(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "oo"
	case math.IsInf(v, -1):
		return "-oo"
	}
	return num6(v)
}

func limite(input, v, at, dir string) string {
	v = variable(v)
	if strings.TrimSpace(input) == "" {
		return "Uso: /limite sin(x)/x x->0 [+|-]"
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("Error al calcular el límite: %v", err)
	}
	point, label, err := parsePoint(at)
	if err != nil {
		return fmt.Sprintf("Error al calcular el límite: %v", err)
	}
	side, mark := 0, ""
	switch strings.TrimSpace(dir) {
	case "+":
		side, mark = 1, "⁺"
	case "-":
		side, mark = -1, "⁻"
	}
	l, err := expr.Limit(n, v, point, side)
	if err != nil {
		return fmt.Sprintf("Error al calcular el límite: %v", err)
	}
	return fmt.Sprintf("lim%s_{%s→%s} %s = **%s**", mark, v, label, expr.Simplify(n), formatLimit(l))
}

func formatRoot(c complex128) string {
	re, im := real(c), imag(c)
	imPart := "I"
	if math.Abs(im) != 1 {
		imPart = num6(math.Abs(im)) + "*I"
	}
	switch {
	case re == 0 && im < 0:
		return "-" + imPart
	case re == 0:
		return imPart
	case im < 0:
		return num6(re) + " - " + imPart
	}
	return num6(re) + " + " + imPart
}

func resuelve(eq, v string) string {
	v = variable(v)
	eq = strings.TrimSpace(eq)
	if eq == "" {
		return "Uso: /resuelve x^2-4=0"
	}
	var n expr.Node
	if left, right, ok := strings.Cut(eq, "="); ok {
		l, err := expr.Parse(left)
		if err != nil {
			return fmt.Sprintf("Error al resolver: %v", err)
		}
		r, err := expr.Parse(right)
		if err != nil {
			return fmt.Sprintf("Error al resolver: %v", err)
		}
		n = expr.Binary{Op: '-', L: l, R: r}
	} else {
		var err error
		if n, err = expr.Parse(eq); err != nil {
			return fmt.Sprintf("Error al resolver: %v", err)
		}
	}
	reals, nonReal, err := expr.Roots(n, v)
	if err != nil {
		return fmt.Sprintf("Soluciones en %s: **%v**", v, err)
	}
	parts := make([]string, 0, len(reals)+len(nonReal))
	for _, r := range reals {
		parts = append(parts, num6(r))
	}
	for _, c := range nonReal {
		parts = append(parts, formatRoot(c))
	}
	return fmt.Sprintf("Soluciones en %s: **[%s]**", v, strings.Join(parts, ", "))
}

func simplifica(input string) string {
	if strings.TrimSpace(input) == "" {
		return "Uso: /simplifica (x^2-1)/(x-1)"
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("Error al simplificar: %v", err)
	}
	return fmt.Sprintf("Simplificado: **%s**", expr.Simplify(n))
}
