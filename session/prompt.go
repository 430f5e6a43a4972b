package session

import (
	"fmt"
	"strings"

	"github.com/korjavin/profesorbot/models"
)

const memoryAnswerLimit = 280

var subjectKeywords = []struct {
	subject string
	words   []string
}{
	{"Cálculo", []string{"deriv", "integral", "límite", "limite", "serie", "teorema fundamental"}},
	{"Álgebra Lineal", []string{"matriz", "vector", "autovalor", "autovector", "diagonalizar"}},
	{"Física", []string{"fuerza", "velocidad", "aceleración", "aceleracion", "newton", "circuito", "ohm", "voltaje"}},
	{"Química", []string{"mol", "reacción", "reaccion", "estequiometría", "estequiometria", "ácido", "acido", "base", "ph"}},
	{"Probabilidad y Estadística", []string{"probabilidad", "estadística", "estadistica", "media", "varianza", "distribución", "distribucion"}},
	{"Programación", []string{"programación", "programacion", "código", "codigo", "algoritmo", "complejidad", "python"}},
}

var topicKeywords = []string{
	"límite", "limite", "derivada", "integral", "series",
	"matriz", "vector", "autovalor", "autovector",
	"ley de ohm", "segunda ley de newton",
	"ph", "estequiometría", "estequiometria",
	"distribución normal", "distribucion normal", "varianza", "regresión", "regresion",
	"complejidad", "algoritmo",
}

// guessSubject picks the first subject whose keywords appear in text
func guessSubject(text string) string {
	t := strings.ToLower(text)
	for _, s := range subjectKeywords {
		for _, w := range s.words {
			if strings.Contains(t, w) {
				return s.subject
			}
		}
	}
	return models.DefaultSubject
}

// guessTopic returns the first known topic keyword in text, or its first
// five words
func guessTopic(text string) string {
	t := strings.ToLower(text)
	for _, k := range topicKeywords {
		if strings.Contains(t, k) {
			return k
		}
	}
	words := strings.Fields(text)
	if len(words) > 5 {
		words = words[:5]
	}
	if len(words) == 0 {
		return "general"
	}
	return strings.Join(words, " ")
}

// needsTopic reports whether the topic is still a placeholder
func needsTopic(topic string) bool {
	switch strings.ToLower(strings.TrimSpace(topic)) {
	case "", "-", "general":
		return true
	}
	return false
}

// memoryBlock renders recent doubts, newest first, with flattened answers
func memoryBlock(doubts []models.Doubt) string {
	chunks := make([]string, 0, len(doubts))
	for _, d := range doubts {
		a := strings.TrimSpace(strings.ReplaceAll(d.Answer, "\n", " "))
		if r := []rune(a); len(r) > memoryAnswerLimit {
			a = string(r[:memoryAnswerLimit-3]) + "..."
		}
		chunks = append(chunks, fmt.Sprintf("- [%s] P: %s\n  R: %s", d.CreatedAt.Format("2006-01-02 15:04:05"), d.Question, a))
	}
	return strings.Join(chunks, "\n")
}

var sizeRules = map[models.ResponseSize]string{
	models.SizeShort:  "Responde en 5–8 líneas.",
	models.SizeNormal: "Responde en 10–15 líneas.",
	models.SizeLong:   "Responde en 18–25 líneas (sin paja).",
}

var modeRules = map[models.Mode]string{
	models.ModeTutor: "Eres un profesor asesor. Explica paso a paso. " +
		"Si es numérico: fórmula → sustitución con unidades → resultado. " +
		"Si faltan datos, pide solo lo indispensable.",
	models.ModeDirecto: "Da la respuesta directa y luego 2–4 líneas de verificación.",
	models.ModeRepaso:  "Primero da una definición corta, luego 1 ejemplo mínimo, luego 3 preguntas de auto-chequeo.",
	models.ModeLab:     "Actúa como guía de laboratorio: procedimiento, supuestos, y qué medir. Evita teoría larga.",
	models.ModeQuiz:    "No expliques de más: haz preguntas tipo examen y corrige.",
}

func tutorPrompt(user string, st models.SessionState, memory, question string) string {
	mode, ok := modeRules[st.Mode]
	if !ok {
		mode = modeRules[models.ModeTutor]
	}
	size, ok := sizeRules[st.ResponseSize]
	if !ok {
		size = sizeRules[models.SizeNormal]
	}
	if memory == "" {
		memory = "—"
	}
	return "Eres profesor asesor de ciencias básicas de ingeniería.\n" +
		"Sé claro, preciso y útil.\n" +
		mode + "\n" +
		size + "\n\n" +
		fmt.Sprintf("Estudiante: %s\n", user) +
		fmt.Sprintf("Materia: %s\n", st.Subject) +
		fmt.Sprintf("Tema: %s\n\n", st.Topic) +
		"Memoria (últimas interacciones relevantes):\n" +
		memory + "\n\n" +
		"Pregunta:\n" +
		question + "\n"
}

func helpText(unknown string) string {
	base := "Comandos disponibles:\n" +
		"• `/materia Calculo`\n" +
		"• `/tema Limites laterales`\n" +
		"• `/quiz start` | `/quiz reset`\n" +
		"• `/modo tutor|directo|repaso|lab|quiz`\n" +
		"• `/mem on|off` | `/size corta|normal|larga`\n" +
		"• `/usuario Ana` | `/usuarios` | `/progreso`\n\n" +
		"Tools:\n" +
		"• `/calc 2*(3+4)^2`\n" +
		"• `/wiki Transformada de Laplace`\n" +
		"• `/deriva sin(x)^2 x`  | `/integra e^(2x) x`\n" +
		"• `/limite (sin(x))/x x->0 +`\n" +
		"• `/resuelve x^2-5x+6=0` | `/simplifica (x^2-1)/(x-1)`\n" +
		"• `/u 60 km/h -> m/s`\n" +
		"• `/mm Ca(OH)2`\n" +
		"• `/suvat u=0 a=2 t=10`\n" +
		"• `/stats 1,2,2,3,5`\n" +
		"• `/plot y=sin(x)+x^2 x:-2*pi:2*pi`\n" +
		"• `/analiza ```python ... ```\n"
	if unknown != "" {
		return fmt.Sprintf("No entendí: `%s`\n\n", unknown) + base
	}
	return base
}
