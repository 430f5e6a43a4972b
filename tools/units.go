package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// dims counts exponents of length, mass, time, temperature and amount
type dims [5]int

type unit struct {
	factor float64 // to SI base
	offset float64 // added before scaling; temperature scales only
	dims   dims
}

var (
	dLength = dims{1, 0, 0, 0, 0}
	dMass   = dims{0, 1, 0, 0, 0}
	dTime   = dims{0, 0, 1, 0, 0}
	dTemp   = dims{0, 0, 0, 1, 0}
	dAmount = dims{0, 0, 0, 0, 1}
	dArea   = dims{2, 0, 0, 0, 0}
	dVolume = dims{3, 0, 0, 0, 0}
	dSpeed  = dims{1, 0, -1, 0, 0}
	dFreq   = dims{0, 0, -1, 0, 0}
	dForce  = dims{1, 1, -2, 0, 0}
	dEnergy = dims{2, 1, -2, 0, 0}
	dPower  = dims{2, 1, -3, 0, 0}
	dPress  = dims{-1, 1, -2, 0, 0}
)

var unitTable = map[string]unit{
	"m": {factor: 1, dims: dLength}, "km": {factor: 1e3, dims: dLength},
	"cm": {factor: 1e-2, dims: dLength}, "mm": {factor: 1e-3, dims: dLength},
	"um": {factor: 1e-6, dims: dLength}, "µm": {factor: 1e-6, dims: dLength},
	"nm": {factor: 1e-9, dims: dLength}, "mi": {factor: 1609.344, dims: dLength},
	"ft": {factor: 0.3048, dims: dLength}, "in": {factor: 0.0254, dims: dLength},
	"yd": {factor: 0.9144, dims: dLength},

	"kg": {factor: 1, dims: dMass}, "g": {factor: 1e-3, dims: dMass},
	"mg": {factor: 1e-6, dims: dMass}, "t": {factor: 1e3, dims: dMass},
	"lb": {factor: 0.45359237, dims: dMass}, "oz": {factor: 0.028349523125, dims: dMass},

	"s": {factor: 1, dims: dTime}, "ms": {factor: 1e-3, dims: dTime},
	"min": {factor: 60, dims: dTime}, "h": {factor: 3600, dims: dTime},
	"hr": {factor: 3600, dims: dTime}, "d": {factor: 86400, dims: dTime},
	"day": {factor: 86400, dims: dTime},

	"K": {factor: 1, dims: dTemp}, "degC": {factor: 1, offset: 273.15, dims: dTemp},
	"°C": {factor: 1, offset: 273.15, dims: dTemp}, "degF": {factor: 5.0 / 9, offset: 459.67, dims: dTemp},
	"°F": {factor: 5.0 / 9, offset: 459.67, dims: dTemp},

	"mol": {factor: 1, dims: dAmount}, "mmol": {factor: 1e-3, dims: dAmount},

	"ha": {factor: 1e4, dims: dArea},
	"L":  {factor: 1e-3, dims: dVolume}, "l": {factor: 1e-3, dims: dVolume},
	"mL": {factor: 1e-6, dims: dVolume}, "ml": {factor: 1e-6, dims: dVolume},

	"mph": {factor: 0.44704, dims: dSpeed}, "kph": {factor: 1 / 3.6, dims: dSpeed},
	"knot": {factor: 1852.0 / 3600, dims: dSpeed},

	"Hz": {factor: 1, dims: dFreq}, "kHz": {factor: 1e3, dims: dFreq},
	"rpm": {factor: 1.0 / 60, dims: dFreq},

	"N": {factor: 1, dims: dForce}, "kN": {factor: 1e3, dims: dForce},

	"J": {factor: 1, dims: dEnergy}, "kJ": {factor: 1e3, dims: dEnergy},
	"cal": {factor: 4.184, dims: dEnergy}, "kcal": {factor: 4184, dims: dEnergy},
	"eV": {factor: 1.602176634e-19, dims: dEnergy}, "Wh": {factor: 3600, dims: dEnergy},
	"kWh": {factor: 3.6e6, dims: dEnergy},

	"W": {factor: 1, dims: dPower}, "kW": {factor: 1e3, dims: dPower},
	"hp": {factor: 745.69987158227022, dims: dPower},

	"Pa": {factor: 1, dims: dPress}, "kPa": {factor: 1e3, dims: dPress},
	"bar": {factor: 1e5, dims: dPress}, "atm": {factor: 101325, dims: dPress},
	"mmHg": {factor: 133.322387415, dims: dPress}, "psi": {factor: 6894.757293168, dims: dPress},
}

var (
	quantityRe = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)\s*(.*)$`)
	unitTermRe = regexp.MustCompile(`^([^\d^²³]+?)(?:\^?(-?\d+)|(²)|(³))?$`)
	opSpaceRe  = regexp.MustCompile(`\s*([*/])\s*`)
)

// foldedUnits resolves lowercased input such as "degc" or "kpa"
var foldedUnits = func() map[string]unit {
	m := make(map[string]unit, len(unitTable))
	for name, u := range unitTable {
		if _, exact := unitTable[strings.ToLower(name)]; !exact {
			m[strings.ToLower(name)] = u
		}
	}
	return m
}()

// parseUnit reads products and quotients of table units with integer
// powers: "km/h", "kg*m/s^2", "m2", "cm³"
func parseUnit(s string) (unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return unit{}, fmt.Errorf("falta la unidad")
	}
	s = strings.ReplaceAll(s, "·", "*")
	s = opSpaceRe.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), "*")
	out := unit{factor: 1}
	sign := 1
	var parts int
	for s != "" {
		i := strings.IndexAny(s, "*/")
		term := s
		next := ""
		op := byte(0)
		if i >= 0 {
			term, op, next = s[:i], s[i], s[i+1:]
		}
		if term != "" {
			u, pow, err := parseUnitTerm(term)
			if err != nil {
				return unit{}, err
			}
			pow *= sign
			for k := 0; k < abs(pow); k++ {
				if pow > 0 {
					out.factor *= u.factor
				} else {
					out.factor /= u.factor
				}
			}
			for d := range out.dims {
				out.dims[d] += u.dims[d] * pow
			}
			if u.offset != 0 {
				out.offset = u.offset
			}
			parts++
		}
		sign = 1
		if op == '/' {
			sign = -1
		}
		s = next
	}
	if out.offset != 0 && (parts != 1 || out.dims != dTemp) {
		return unit{}, fmt.Errorf("las escalas de temperatura con cero desplazado no se pueden combinar con otras unidades")
	}
	return out, nil
}

func parseUnitTerm(term string) (unit, int, error) {
	m := unitTermRe.FindStringSubmatch(term)
	if m == nil {
		return unit{}, 0, fmt.Errorf("unidad no válida '%s'", term)
	}
	u, ok := unitTable[m[1]]
	if !ok {
		u, ok = foldedUnits[strings.ToLower(m[1])]
	}
	if !ok {
		return unit{}, 0, fmt.Errorf("unidad desconocida '%s'", m[1])
	}
	pow := 1
	switch {
	case m[2] != "":
		pow, _ = strconv.Atoi(m[2])
	case m[3] != "":
		pow = 2
	case m[4] != "":
		pow = 3
	}
	return u, pow, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func convert(input string) string {
	left, right, ok := strings.Cut(strings.TrimSpace(input), "->")
	if !ok {
		return "Uso: /u 60 km/h -> m/s"
	}
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)

	value := 1.0
	unitText := left
	if m := quantityRe.FindStringSubmatch(left); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return fmt.Sprintf("Error en conversión de unidades: número inválido '%s'", m[1])
		}
		value, unitText = v, strings.TrimSpace(m[2])
	}

	from, err := parseUnit(unitText)
	if err != nil {
		return fmt.Sprintf("Error en conversión de unidades: %v", err)
	}
	to, err := parseUnit(right)
	if err != nil {
		return fmt.Sprintf("Error en conversión de unidades: %v", err)
	}
	if from.dims != to.dims {
		return fmt.Sprintf("Error en conversión de unidades: no se puede convertir %s a %s (dimensiones distintas)", unitText, right)
	}
	base := (value + from.offset) * from.factor
	result := base/to.factor - to.offset
	return fmt.Sprintf("%s %s = **%s %s**", num6(value), unitText, num6(result), right)
}
