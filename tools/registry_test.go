package tools

import (
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, r *Registry, name string, p Payload) string {
	t.Helper()
	return r.Run(context.Background(), name, p)
}

func TestRunUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, UnknownTool, run(t, r, "nope", Payload{}))
	assert.Equal(t, "Resultado: **5**", run(t, r, " CALC ", Payload{Expr: "2+3"}))
}

func TestCalc(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, "Resultado: **98**", run(t, r, Calc, Payload{Expr: "2*(3+4)^2"}))
	assert.Equal(t, "Resultado: **0.3**", run(t, r, Calc, Payload{Expr: "0.1+0.2"}))
	assert.Equal(t, "Uso: /calc 2*(3+4)^2", run(t, r, Calc, Payload{}))
	assert.Contains(t, run(t, r, Calc, Payload{Expr: "1/0"}), "No pude evaluar la expresión")
	assert.Contains(t, run(t, r, Calc, Payload{Expr: "import os"}), "No pude evaluar la expresión")
}

func TestCalculusTools(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, "d/dx x^3 = **3*x^2**", run(t, r, Deriva, Payload{Expr: "x^3"}))
	assert.Equal(t, "d/dt t^2 = **2*t**", run(t, r, Deriva, Payload{Expr: "t^2", Var: "t"}))
	assert.Equal(t, "∫ x^2 dx = **x^3/3 + C**", run(t, r, Integra, Payload{Expr: "x^2", Var: "x"}))
	assert.Contains(t, run(t, r, Integra, Payload{Expr: "sin(x^2)"}), "Error al integrar")

	assert.Equal(t, "lim_{x→0} sin(x)/x = **1**", run(t, r, Limite, Payload{Expr: "sin(x)/x", Var: "x", At: "0"}))
	assert.Equal(t, "lim⁺_{x→0} 1/x = **oo**", run(t, r, Limite, Payload{Expr: "1/x", Var: "x", At: "0", Dir: "+"}))
	assert.Equal(t, "lim_{x→oo} 1/x = **0**", run(t, r, Limite, Payload{Expr: "1/x", Var: "x", At: "oo"}))
	assert.Contains(t, run(t, r, Limite, Payload{Expr: "1/x", Var: "x", At: "0"}), "no coinciden")

	assert.Equal(t, "Soluciones en x: **[-2, 2]**", run(t, r, Resuelve, Payload{Eq: "x^2-4=0"}))
	assert.Equal(t, "Soluciones en x: **[3]**", run(t, r, Resuelve, Payload{Eq: "2x = x + 3"}))
	assert.Equal(t, "Soluciones en x: **[-I, I]**", run(t, r, Resuelve, Payload{Eq: "x^2+1"}))
	assert.Equal(t, "Uso: /resuelve x^2-4=0", run(t, r, Resuelve, Payload{}))

	assert.Equal(t, "Simplificado: **x + 1**", run(t, r, Simplifica, Payload{Expr: "(x^2-1)/(x-1)"}))
}

func TestUnits(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, "60 km/h = **16.6667 m/s**", run(t, r, Units, Payload{Expr: "60 km/h -> m/s"}))
	assert.Equal(t, "25 degC = **77 degF**", run(t, r, Units, Payload{Expr: "25 degC -> degF"}))
	assert.Equal(t, "1 km / h = **0.277778 m/s**", run(t, r, Units, Payload{Expr: "1 km / h -> m/s"}))
	assert.Equal(t, "2 kwh = **7.2e+06 j**", run(t, r, Units, Payload{Expr: "2 kwh -> j"}))
	assert.Contains(t, run(t, r, Units, Payload{Expr: "1 km -> kg"}), "dimensiones distintas")
	assert.Contains(t, run(t, r, Units, Payload{Expr: "1 furlong -> m"}), "unidad desconocida 'furlong'")
	assert.Equal(t, "Uso: /u 60 km/h -> m/s", run(t, r, Units, Payload{Expr: "60 km/h"}))
}

func TestMolarMass(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, "⚗️ M_Ca(OH)2 = **74.0920 g/mol**", run(t, r, MolarMass, Payload{Formula: "Ca(OH)2"}))
	assert.Equal(t, "⚗️ M_H2O = **18.0150 g/mol**", run(t, r, MolarMass, Payload{Formula: "H2O"}))
	assert.Equal(t, "Elementos no soportados en tabla local: Uu, Xx.", run(t, r, MolarMass, Payload{Formula: "XxUu"}))
	assert.Contains(t, run(t, r, MolarMass, Payload{Formula: "Ca(OH"}), "paréntesis no balanceados")
	assert.Contains(t, run(t, r, MolarMass, Payload{Formula: "H2-O"}), "símbolo no válido")
	assert.Equal(t, "Uso: /mm Ca(OH)2", run(t, r, MolarMass, Payload{}))
}

func TestSuvat(t *testing.T) {
	r := NewRegistry(nil)
	out := run(t, r, Suvat, Payload{Values: map[string]float64{"u": 0, "v": 20, "a": 5}})
	assert.Equal(t, "🏎️ Cinemática (SUVAT):\nu = 0 m/s\nv = 20 m/s\na = 5 m/s^2\nt = 4 s\ns = 40 m", out)

	out = run(t, r, Suvat, Payload{Values: map[string]float64{"u": 0, "a": 2, "s": 100}})
	assert.Contains(t, out, "t = 10 s")
	assert.Contains(t, out, "v = 20 m/s")

	out = run(t, r, Suvat, Payload{Values: map[string]float64{"u": 1, "v": 2}})
	assert.Equal(t, "Proporciona al menos 3 variables. Ej: /suvat u=0 v=20 a=5", out)
	assert.Equal(t, "Proporciona al menos 3 variables. Ej: /suvat u=0 v=20 a=5", run(t, r, Suvat, Payload{}))
}

func TestStats(t *testing.T) {
	r := NewRegistry(nil)
	out := run(t, r, Stats, Payload{List: "1,2,2,3,5"})
	assert.True(t, strings.HasPrefix(out, "📊 Estadísticos básicos:\n"))
	for _, want := range []string{"n = 5", "media = 2.6", "mediana = 2", "desv.est. = 1.51658", "min = 1", "max = 5", "Q1 = 2", "Q3 = 3"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, run(t, r, Stats, Payload{List: "7"}), "desv.est. = N/A")
	assert.Equal(t, "Uso: /stats 1,2,2,3,5", run(t, r, Stats, Payload{List: " "}))
	assert.Contains(t, run(t, r, Stats, Payload{List: "1, dos"}), "valor no numérico 'dos'")
}

func TestWiki(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Derivada", r.URL.Query().Get("srsearch"))
		_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Derivada"}]}}`))
	})
	mux.HandleFunc("/api/rest_v1/page/summary/Derivada", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"extract":"La derivada mide el cambio.","content_urls":{"desktop":{"page":"https://es.wikipedia.org/wiki/Derivada"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewRegistry(nil, WithWikiEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	out := run(t, r, Wiki, Payload{Query: "Derivada", Lang: "es"})
	assert.Equal(t, "**Derivada** — La derivada mide el cambio.\n\nEnlace: https://es.wikipedia.org/wiki/Derivada", out)
	assert.Equal(t, "Uso: /wiki Transformada de Laplace", run(t, r, Wiki, Payload{}))
}

func TestWikiNoResultsAndFailure(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
	}))
	defer empty.Close()
	r := NewRegistry(nil, WithWikiEndpoint(empty.URL))
	assert.Equal(t, "No encontré resultados en Wikipedia.", run(t, r, Wiki, Payload{Query: "zzz"}))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()
	r = NewRegistry(nil, WithWikiEndpoint(broken.URL))
	assert.Contains(t, run(t, r, Wiki, Payload{Query: "zzz"}), "Error al consultar Wikipedia")
}

func TestPlotWritesPNG(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(nil, WithPlotDir(dir))

	out := run(t, r, Plot, Payload{Expr: "y=sin(x)", XSpec: "x:-pi:pi"})
	require.True(t, strings.HasPrefix(out, "🖼️ Gráfica guardada en: "), out)
	path := strings.TrimPrefix(out, "🖼️ Gráfica guardada en: ")
	assert.True(t, strings.HasPrefix(path, dir))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, plotWidth, img.Bounds().Dx())
	assert.Equal(t, plotHeight, img.Bounds().Dy())

	out = run(t, r, Plot, Payload{Expr: "1/x", XSpec: "x:-1:0.5:1"})
	assert.True(t, strings.HasPrefix(out, "🖼️"), out)
}

func TestPlotErrors(t *testing.T) {
	r := NewRegistry(nil, WithPlotDir(t.TempDir()))
	assert.Equal(t, "Formato x inválido. Usa x:min:max o x:min:step:max", run(t, r, Plot, Payload{Expr: "x", XSpec: "x:1"}))
	assert.Equal(t, "El rango en x no puede ser igual.", run(t, r, Plot, Payload{Expr: "x", XSpec: "x:1:1"}))
	assert.Contains(t, run(t, r, Plot, Payload{Expr: "x+y", XSpec: "x:0:1"}), "variable no definida 'y'")
	assert.Contains(t, run(t, r, Plot, Payload{Expr: "sqrt(x)", XSpec: "x:-5:-1"}), "no tiene valores reales")
}

func TestAnalyze(t *testing.T) {
	code := `import os
from sys import argv

class A:
    def f(self, x):
        if x and x > 1:
            return [i for i in range(x)]
        return 0

def g():
    for i in range(3):
        pass
`
	r := NewRegistry(nil)
	out := run(t, r, Analiza, Payload{Code: code})
	assert.Equal(t, "🧩 Análisis estático del código:\n"+
		"- líneas (no vacías): 10\n"+
		"- funciones: 2\n"+
		"- clases: 1\n"+
		"- imports: 2\n"+
		"- complejidad ciclomatica (aprox): 5\n", out)

	assert.Contains(t, run(t, r, Analiza, Payload{Code: "def f(:\n    pass\n"}), "Error al analizar el código: sintaxis inválida")
}

func TestAutodetect(t *testing.T) {
	cases := []struct {
		in   string
		name string
		want Payload
	}{
		{"2*(3+4)^2", Calc, Payload{Expr: "2*(3+4)^2"}},
		{"convierte 60 km/h a m/s", Units, Payload{Expr: "60 km/h -> m/s"}},
		{"Pasar 25 degC en K", Units, Payload{Expr: "25 degC -> K"}},
		{"¿Cuál es la masa molar de Ca(OH)2?", MolarMass, Payload{Formula: "Ca(OH)2"}},
		{"cinetica u=0 a=2 t=10", Suvat, Payload{Values: map[string]float64{"u": 0, "a": 2, "t": 10}}},
		{"la media de 1, 2, 3.5", Stats, Payload{List: "1,2,3.5"}},
	}
	for _, tc := range cases {
		name, p, ok := Autodetect(tc.in)
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.want, p, tc.in)
	}

	for _, in := range []string{"hola, ¿qué es una derivada?", "2024", "x+1", "u=1 v=2 m/s", "la media es 4", ""} {
		_, _, ok := Autodetect(in)
		assert.False(t, ok, in)
	}
}

func TestAutodetectedArithmeticRunsWithoutLLM(t *testing.T) {
	name, p, ok := Autodetect("2*(3+4)^2")
	require.True(t, ok)
	assert.Equal(t, "Resultado: **98**", NewRegistry(nil).Run(context.Background(), name, p))
}
