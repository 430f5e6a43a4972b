package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var atomicMass = map[string]float64{
	"H": 1.008, "He": 4.0026, "Li": 6.94, "Be": 9.0122, "B": 10.81,
	"C": 12.011, "N": 14.007, "O": 15.999, "F": 18.998, "Ne": 20.180,
	"Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.085, "P": 30.974,
	"S": 32.06, "Cl": 35.45, "Ar": 39.948,
	"K": 39.098, "Ca": 40.078, "Sc": 44.956, "Ti": 47.867, "V": 50.942,
	"Cr": 51.996, "Mn": 54.938, "Fe": 55.845, "Co": 58.933, "Ni": 58.693,
	"Cu": 63.546, "Zn": 65.38, "Br": 79.904, "Ag": 107.868, "I": 126.904, "Ba": 137.327,
	"Sr": 87.62, "Sn": 118.71, "Pb": 207.2, "Hg": 200.59,
}

type formulaParser struct {
	s   []rune
	pos int
}

// countAtoms expands a formula such as "Ca(OH)2" into element counts.
// An element is an uppercase letter plus an optional lowercase one; a
// lowercase first letter is accepted the same way.
func countAtoms(formula string) (map[string]int, error) {
	p := &formulaParser{s: []rune(strings.TrimSpace(formula))}
	counts, err := p.group()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("paréntesis no balanceados")
	}
	return counts, nil
}

func (p *formulaParser) number() int {
	start := p.pos
	for p.pos < len(p.s) && unicode.IsDigit(p.s[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 1
	}
	n, _ := strconv.Atoi(string(p.s[start:p.pos]))
	return n
}

func (p *formulaParser) group() (map[string]int, error) {
	counts := map[string]int{}
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case unicode.IsSpace(c):
			p.pos++
		case unicode.IsLetter(c):
			j := p.pos + 1
			if j < len(p.s) && unicode.IsLower(p.s[j]) {
				j++
			}
			elem := string(p.s[p.pos:j])
			p.pos = j
			counts[elem] += p.number()
		case c == '(':
			p.pos++
			sub, err := p.group()
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.s) || p.s[p.pos] != ')' {
				return nil, fmt.Errorf("paréntesis no balanceados")
			}
			p.pos++
			mult := p.number()
			for k, v := range sub {
				counts[k] += v * mult
			}
		case c == ')':
			return counts, nil
		case unicode.IsDigit(c):
			return nil, fmt.Errorf("token inesperado '%c'", c)
		default:
			return nil, fmt.Errorf("símbolo no válido en fórmula: '%c'", c)
		}
	}
	return counts, nil
}

func molarMass(formula string) string {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return "Uso: /mm Ca(OH)2"
	}
	counts, err := countAtoms(formula)
	if err != nil {
		return fmt.Sprintf("Error al interpretar la fórmula: %v", err)
	}
	var total float64
	var missing []string
	for elem, n := range counts {
		m, ok := atomicMass[elem]
		if !ok {
			missing = append(missing, elem)
			continue
		}
		total += m * float64(n)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Sprintf("Elementos no soportados en tabla local: %s.", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("⚗️ M_%s = **%.4f g/mol**", formula, total)
}
