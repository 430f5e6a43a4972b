package quiz

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
)

const fallbackExplanation = "Generado localmente (respaldo) por fallo de la IA."

// seededRand returns a generator that always yields the same sequence for
// the same session, index, subject and topic
func seededRand(sessionID int64, index int, subject, topic string) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%s:%s", sessionID, index, subject, topic)
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Fallback builds a question locally when the model cannot. The correct
// option is generated first and then shuffled into place.
func Fallback(sessionID int64, index int, subject, topic string) Payload {
	r := seededRand(sessionID, index, subject, topic)
	subj := strings.ToLower(subject)
	if subj == "" {
		subj = "general"
	}

	var question string
	var options []string
	switch {
	case containsAny(subj, "cálculo", "calculo"):
		a := between(r, 1, 6)
		b := between(r, 0, 8)
		n := []int{2, 3, 4}[r.IntN(3)]
		question = fmt.Sprintf("Deriva: f(x) = %dx^%d + %dx", a, n, b)
		signFlip := fmt.Sprintf("%dx^%d - %d", a*n, n-1, b)
		if b == 0 {
			// -0 would read the same as the right answer
			signFlip = fmt.Sprintf("%dx^%d + 1", a*n, n-1)
		}
		options = []string{
			fmt.Sprintf("%dx^%d + %d", a*n, n-1, b),
			fmt.Sprintf("%dx^%d + %d", a*n, n+1, b),
			fmt.Sprintf("%dx^%d + %d", a, n-1, b),
			signFlip,
		}
	case containsAny(subj, "álgebra", "algebra"):
		x, y, z := between(r, -3, 4), between(r, -3, 4), between(r, -3, 4)
		question = fmt.Sprintf("Calcula el producto punto: v·w si v=(%d,%d) y w=(%d,%d).", x, y, y, z)
		v := x*y + y*z
		options = []string{strconv.Itoa(v), strconv.Itoa(v + 2), strconv.Itoa(v - 3), strconv.Itoa(v + 5)}
	case containsAny(subj, "física", "fisica"):
		u, a, t := between(r, 0, 10), between(r, 1, 5), between(r, 2, 8)
		v := u + a*t
		question = fmt.Sprintf("Movimiento uniformemente acelerado: si u=%d m/s, a=%d m/s² y t=%d s, ¿cuál es v?", u, a, t)
		wrongT := v + t
		if t == a {
			wrongT = v + 2*a
		}
		options = []string{
			fmt.Sprintf("%d m/s", v),
			fmt.Sprintf("%d m/s", v+a),
			fmt.Sprintf("%d m/s", v-a),
			fmt.Sprintf("%d m/s", wrongT),
		}
	case containsAny(subj, "probabilidad", "estad"):
		data := make([]string, 5)
		sum := 0
		for i := range data {
			d := between(r, 1, 9)
			sum += d
			data[i] = strconv.Itoa(d)
		}
		mean := float64(sum) / 5
		question = fmt.Sprintf("¿Cuál es la media de los datos [%s]?", strings.Join(data, ", "))
		options = []string{
			fmt.Sprintf("%.2f", mean),
			fmt.Sprintf("%.2f", mean+1),
			fmt.Sprintf("%.2f", mean-1),
			fmt.Sprintf("%.2f", mean+0.5),
		}
	case containsAny(subj, "química", "quimica"):
		question = "¿Cuántos moles hay en 18 g de H₂O? (M(H₂O)=18 g/mol)"
		options = []string{"1 mol", "0.5 mol", "2 mol", "18 mol"}
	default:
		question = "¿Cuál de estas opciones describe mejor una derivada?"
		options = []string{
			"Tasa de cambio instantánea",
			"Área bajo la curva",
			"Promedio de un conjunto de datos",
			"Producto cruz entre vectores",
		}
	}

	order := []int{0, 1, 2, 3}
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	shuffled := make([]string, len(options))
	correct := 0
	for i, src := range order {
		shuffled[i] = options[src]
		if src == 0 {
			correct = i
		}
	}
	return Payload{
		Question:     question,
		Options:      shuffled,
		CorrectIndex: correct,
		Explanation:  fallbackExplanation,
	}
}
