package tools

import (
	"fmt"
	"math"
	"strings"
)

// kinematics holds the known SUVAT quantities by name
type kinematics map[string]float64

func (k kinematics) has(names ...string) bool {
	for _, n := range names {
		if _, ok := k[n]; !ok {
			return false
		}
	}
	return true
}

func (k kinematics) put(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	k[name] = v
}

// solve applies v = u + at, s = ut + at²/2 and v² = u² + 2as in that order,
// filling every quantity that becomes determined
func (k kinematics) solve() {
	if !k.has("v") && k.has("u", "a", "t") {
		k.put("v", k["u"]+k["a"]*k["t"])
	}
	if !k.has("u") && k.has("v", "a", "t") {
		k.put("u", k["v"]-k["a"]*k["t"])
	}
	if !k.has("a") && k.has("v", "u", "t") && k["t"] != 0 {
		k.put("a", (k["v"]-k["u"])/k["t"])
	}
	if !k.has("t") && k.has("v", "u", "a") && k["a"] != 0 {
		k.put("t", (k["v"]-k["u"])/k["a"])
	}

	if !k.has("s") && k.has("u", "t", "a") {
		t := k["t"]
		k.put("s", k["u"]*t+0.5*k["a"]*t*t)
	}
	if !k.has("u") && k.has("s", "t", "a") && k["t"] != 0 {
		t := k["t"]
		k.put("u", (k["s"]-0.5*k["a"]*t*t)/t)
	}
	if !k.has("a") && k.has("s", "u", "t") && k["t"] != 0 {
		t := k["t"]
		k.put("a", 2*(k["s"]-k["u"]*t)/(t*t))
	}
	if !k.has("t") && k.has("s", "u", "a") {
		u, a, s := k["u"], k["a"], k["s"]
		if a == 0 {
			if u != 0 {
				k.put("t", s/u)
			}
		} else if disc := u*u + 2*a*s; disc >= 0 {
			// a/2 t² + u t - s = 0, preferring the non-negative root
			r1 := (-u + math.Sqrt(disc)) / a
			r2 := (-u - math.Sqrt(disc)) / a
			if r1 >= 0 {
				k.put("t", r1)
			} else {
				k.put("t", r2)
			}
		}
	}

	if !k.has("v") && k.has("u", "a", "s") {
		if sq := k["u"]*k["u"] + 2*k["a"]*k["s"]; sq >= 0 {
			k.put("v", math.Sqrt(sq))
		}
	}
	if !k.has("u") && k.has("v", "a", "s") {
		if sq := k["v"]*k["v"] - 2*k["a"]*k["s"]; sq >= 0 {
			k.put("u", math.Sqrt(sq))
		}
	}
	if !k.has("a") && k.has("v", "u", "s") && k["s"] != 0 {
		k.put("a", (k["v"]*k["v"]-k["u"]*k["u"])/(2*k["s"]))
	}
	if !k.has("s") && k.has("v", "u", "a") && k["a"] != 0 {
		k.put("s", (k["v"]*k["v"]-k["u"]*k["u"])/(2*k["a"]))
	}
}

var suvatUnits = []struct{ name, unit string }{
	{"u", "m/s"}, {"v", "m/s"}, {"a", "m/s^2"}, {"t", "s"}, {"s", "m"},
}

func suvat(values map[string]float64) string {
	k := kinematics{}
	for name, val := range values {
		switch name = strings.ToLower(name); name {
		case "u", "v", "a", "t", "s":
			k.put(name, val)
		}
	}
	if len(k) < 3 {
		return "Proporciona al menos 3 variables. Ej: /suvat u=0 v=20 a=5"
	}
	k.solve()

	lines := make([]string, 0, len(suvatUnits))
	for _, q := range suvatUnits {
		if v, ok := k[q.name]; ok {
			lines = append(lines, fmt.Sprintf("%s = %s %s", q.name, num6(v), q.unit))
		}
	}
	return "🏎️ Cinemática (SUVAT):\n" + strings.Join(lines, "\n")
}
