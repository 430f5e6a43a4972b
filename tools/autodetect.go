package tools

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	convertRe   = regexp.MustCompile(`(?i)(convierte|convertir|pasar)\s+(.+?)\s+(a|en)\s+(.+)$`)
	molarRe     = regexp.MustCompile(`(?i)masa\s+molar\s+de\s+([A-Za-z0-9()]+)`)
	suvatPairRe = regexp.MustCompile(`(?i)\b([uvats])\s*=\s*([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
	numberRe    = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)
	digitRe     = regexp.MustCompile(`\d`)
	arithRe     = regexp.MustCompile(`^[0-9.\s+\-*/^()%]+$`)
)

// Autodetect picks a tool for free text. Rules are tried in order and the
// first match wins: unit conversion phrasing, molar mass, inline kinematics
// values, a mean over a list of numbers, and a bare arithmetic expression.
func Autodetect(text string) (string, Payload, bool) {
	raw := strings.TrimSpace(text)
	t := strings.ToLower(raw)

	if m := convertRe.FindStringSubmatch(raw); m != nil {
		left, right := strings.TrimSpace(m[2]), strings.TrimSpace(m[4])
		return Units, Payload{Expr: left + " -> " + right}, true
	}

	if m := molarRe.FindStringSubmatch(raw); m != nil {
		return MolarMass, Payload{Formula: strings.TrimSpace(m[1])}, true
	}

	if strings.Contains(t, "m/s") || strings.Contains(t, "cinetica") || strings.Contains(t, "cinética") || strings.Contains(t, "suvat") {
		values := map[string]float64{}
		for _, m := range suvatPairRe.FindAllStringSubmatch(t, -1) {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				values[m[1]] = v
			}
		}
		if len(values) >= 3 {
			return Suvat, Payload{Values: values}, true
		}
	}

	if strings.Contains(t, "media") && digitRe.MatchString(t) {
		if nums := numberRe.FindAllString(t, -1); len(nums) >= 2 {
			return Stats, Payload{List: strings.Join(nums, ",")}, true
		}
	}

	if t != "" && arithRe.MatchString(t) && strings.ContainsAny(t, "+-*/^") {
		return Calc, Payload{Expr: raw}, true
	}

	return "", Payload{}, false
}
