package tools

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

var listSepRe = regexp.MustCompile(`[,\s]+`)

func parseList(s string) ([]float64, error) {
	var out []float64
	for _, f := range listSepRe.Split(strings.TrimSpace(s), -1) {
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("valor no numérico '%s'", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// quantile interpolates linearly between closest ranks, the usual
// spreadsheet definition
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func statsList(list string) string {
	vals, err := parseList(list)
	if err != nil {
		return fmt.Sprintf("Error al calcular estadísticas: %v", err)
	}
	if len(vals) == 0 {
		return "Uso: /stats 1,2,2,3,5"
	}
	data := stats.Float64Data(vals)
	mean, _ := data.Mean()
	median, _ := data.Median()
	minV, _ := data.Min()
	maxV, _ := data.Max()

	sd := "desv.est. = N/A"
	if len(vals) > 1 {
		v, err := data.StandardDeviationSample()
		if err == nil {
			sd = "desv.est. = " + num6(v)
		}
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	msg := []string{
		fmt.Sprintf("n = %d", len(vals)),
		"media = " + num6(mean),
		"mediana = " + num6(median),
		sd,
		"min = " + num6(minV),
		"max = " + num6(maxV),
		"Q1 = " + num6(quantile(sorted, 0.25)),
		"Q3 = " + num6(quantile(sorted, 0.75)),
	}
	return "📊 Estadísticos básicos:\n" + strings.Join(msg, "\n")
}
