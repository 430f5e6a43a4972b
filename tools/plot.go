package tools

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/korjavin/profesorbot/tools/expr"
)

const (
	plotWidth   = 640
	plotHeight  = 480
	plotMargin  = 24
	plotSamples = 800
)

var (
	plotBackground = color.RGBA{255, 255, 255, 255}
	plotGrid       = color.RGBA{230, 230, 230, 255}
	plotAxis       = color.RGBA{90, 90, 90, 255}
	plotLine       = color.RGBA{31, 119, 180, 255}
)

var errXSpec = errors.New("formato x inválido")

type xRange struct {
	name     string
	min, max float64
	step     float64
	hasStep  bool
}

func evalConst(s string) (float64, error) {
	n, err := expr.Parse(s)
	if err != nil {
		return 0, err
	}
	return expr.Eval(n, nil)
}

func parseXSpec(spec string) (xRange, error) {
	if strings.TrimSpace(spec) == "" {
		spec = "x:-5:5"
	}
	parts := strings.Split(spec, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 3 && len(parts) != 4 {
		return xRange{}, errXSpec
	}
	r := xRange{name: parts[0]}
	bounds := []string{parts[1], parts[len(parts)-1]}
	var err error
	if r.min, err = evalConst(bounds[0]); err != nil {
		return xRange{}, err
	}
	if r.max, err = evalConst(bounds[1]); err != nil {
		return xRange{}, err
	}
	if len(parts) == 4 {
		if r.step, err = evalConst(parts[2]); err != nil {
			return xRange{}, err
		}
		r.hasStep = true
	}
	return r, nil
}

func (x xRange) samples() []float64 {
	n := plotSamples
	if x.hasStep && x.step != 0 {
		n = int(math.Abs((x.max-x.min)/x.step)) + 1
		if n < 2 {
			n = 2
		}
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = x.min + (x.max-x.min)*float64(i)/float64(n-1)
	}
	return xs
}

func (r *Registry) plot(input, spec string) string {
	input = strings.TrimSpace(input)
	if l, rest, ok := strings.Cut(input, "="); ok && strings.TrimSpace(l) == "y" {
		input = strings.TrimSpace(rest)
	}
	if input == "" {
		return "Uso: /plot y=sin(x) x:-6.28:6.28"
	}
	xr, err := parseXSpec(spec)
	if err != nil {
		if errors.Is(err, errXSpec) {
			return "Formato x inválido. Usa x:min:max o x:min:step:max"
		}
		return fmt.Sprintf("Error al graficar: %v", err)
	}
	if xr.min == xr.max {
		return "El rango en x no puede ser igual."
	}
	n, err := expr.Parse(input)
	if err != nil {
		return fmt.Sprintf("Error al graficar: %v", err)
	}
	for _, v := range expr.Vars(n) {
		if v != xr.name {
			return fmt.Sprintf("Error al graficar: variable no definida '%s'", v)
		}
	}

	f := expr.Func(n, xr.name)
	xs := xr.samples()
	ys := make([]float64, len(xs))
	finite := 0
	for i, x := range xs {
		y, err := f(x)
		if err != nil || math.IsInf(y, 0) {
			y = math.NaN()
		} else {
			finite++
		}
		ys[i] = y
	}
	if finite == 0 {
		return "Error al graficar: la función no tiene valores reales en el rango"
	}

	if err := os.MkdirAll(r.plotDir, 0o755); err != nil {
		return fmt.Sprintf("Error al graficar: %v", err)
	}
	path := filepath.Join(r.plotDir, fmt.Sprintf("plot_%s.png", uuid.NewString()[:8]))
	if err := writePlot(path, xs, ys); err != nil {
		r.log.Errorf("Failed to write plot %s: %v", path, err)
		return fmt.Sprintf("Error al graficar: %v", err)
	}
	r.log.Infof("Plot of y=%s written to %s", input, path)
	return "🖼️ Gráfica guardada en: " + path
}

func writePlot(path string, xs, ys []float64) error {
	img := renderPlot(xs, ys)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return file.Close()
}

func renderPlot(xs, ys []float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	for px := 0; px < plotWidth; px++ {
		for py := 0; py < plotHeight; py++ {
			img.Set(px, py, plotBackground)
		}
	}

	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		if !math.IsNaN(y) {
			ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
		}
	}
	if ymin == ymax {
		ymin, ymax = ymin-1, ymax+1
	}
	xmin, xmax := xs[0], xs[len(xs)-1]

	toPx := func(x, y float64) (int, int) {
		px := plotMargin + (x-xmin)/(xmax-xmin)*float64(plotWidth-2*plotMargin)
		py := plotHeight - plotMargin - (y-ymin)/(ymax-ymin)*float64(plotHeight-2*plotMargin)
		return clampPx(px, plotWidth), clampPx(py, plotHeight)
	}

	for i := 0; i <= 10; i++ {
		gx := plotMargin + i*(plotWidth-2*plotMargin)/10
		gy := plotMargin + i*(plotHeight-2*plotMargin)/10
		drawLine(img, gx, plotMargin, gx, plotHeight-plotMargin, plotGrid)
		drawLine(img, plotMargin, gy, plotWidth-plotMargin, gy, plotGrid)
	}
	if ymin <= 0 && ymax >= 0 {
		x0, y0 := toPx(xmin, 0)
		x1, _ := toPx(xmax, 0)
		drawLine(img, x0, y0, x1, y0, plotAxis)
	}
	if xmin <= 0 && xmax >= 0 || xmax <= 0 && xmin >= 0 {
		x0, y0 := toPx(0, ymin)
		_, y1 := toPx(0, ymax)
		drawLine(img, x0, y0, x0, y1, plotAxis)
	}

	for i := 1; i < len(xs); i++ {
		if math.IsNaN(ys[i-1]) || math.IsNaN(ys[i]) {
			continue
		}
		x0, y0 := toPx(xs[i-1], ys[i-1])
		x1, y1 := toPx(xs[i], ys[i])
		drawLine(img, x0, y0, x1, y1, plotLine)
	}
	return img
}

// clampPx keeps off-canvas points near the canvas so lines stay short
func clampPx(v float64, size int) int {
	if math.IsNaN(v) {
		return -1
	}
	return int(math.Round(math.Max(-1, math.Min(float64(size), v))))
}

// drawLine is Bresenham's algorithm, clipped to the image bounds
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	bounds := img.Bounds()
	e := dx + dy
	for {
		if (image.Point{X: x0, Y: y0}).In(bounds) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}
