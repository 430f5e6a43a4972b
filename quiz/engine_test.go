package quiz

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/profesorbot/ai"
	"github.com/korjavin/profesorbot/database"
	"github.com/korjavin/profesorbot/models"
)

// scriptedProvider answers with the given texts in order
type scriptedProvider struct {
	texts   []string
	calls   []ai.GenerationConfig
	prompts []string
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, prompt string, cfg ai.GenerationConfig) (*ai.Response, error) {
	i := len(p.calls)
	p.calls = append(p.calls, cfg)
	p.prompts = append(p.prompts, prompt)
	if i < len(p.texts) {
		return &ai.Response{Text: p.texts[i]}, nil
	}
	return &ai.Response{}, nil
}

func newStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "quiz.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newClient(p ai.Provider) *ai.Client {
	return ai.NewClient(p, "test-model", ai.GenerationConfig{Temperature: 0.2, TopP: 0.9, TopK: 40, MaxOutputTokens: 700}, nil)
}

func quizContext(t *testing.T, db *database.DB, subject string) Context {
	t.Helper()
	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)
	return Context{UserID: uid, UserName: "Ana", Subject: subject, Topic: "Derivadas", Size: models.SizeNormal}
}

func TestExtractObject(t *testing.T) {
	obj := ExtractObject("```json\n{\"question\":\"q\"}\n```")
	require.NotNil(t, obj)
	assert.Equal(t, "q", obj["question"])

	obj = ExtractObject("Claro, aquí está: {\"question\":\"q2\",\"x\":{\"y\":1}} ¡suerte!")
	require.NotNil(t, obj)
	assert.Equal(t, "q2", obj["question"])

	assert.Nil(t, ExtractObject(""))
	assert.Nil(t, ExtractObject("sin json"))
	assert.Nil(t, ExtractObject("[1,2,3]"))
	assert.Nil(t, ExtractObject("{roto"))
}

func TestValidate(t *testing.T) {
	p, err := Parse(`{"question":" ¿2+2? ","options":["4","3",5,"22"],"correct_index":0.0,"explanation":"suma"}`)
	require.NoError(t, err)
	assert.Equal(t, "¿2+2?", p.Question)
	assert.Equal(t, []string{"4", "3", "5", "22"}, p.Options)
	assert.Equal(t, 0, p.CorrectIndex)
	assert.Equal(t, "suma", p.Explanation)

	bad := []string{
		`{"question":"","options":["a","b","c","d"],"correct_index":1}`,
		`{"question":"q","options":["a","b","c"],"correct_index":1}`,
		`{"question":"q","options":["a","b","c"," "],"correct_index":1}`,
		`{"question":"q","options":["a","b","c","d"],"correct_index":4}`,
		`{"question":"q","options":["a","b","c","d"],"correct_index":1.5}`,
		`{"question":"q","options":["a","b","c","d"],"correct_index":"1"}`,
		`{"question":"q","options":["a","b","c","d"]}`,
		`{"question":"q","options":"a,b,c,d","correct_index":1}`,
	}
	for _, in := range bad {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestParseChoice(t *testing.T) {
	for in, want := range map[string]int{"a": 0, " B ": 1, "c": 2, "D": 3, "1": 0, "4": 3} {
		got, ok := ParseChoice(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "E", "5", "0", "AB", "la b"} {
		_, ok := ParseChoice(in)
		assert.False(t, ok, in)
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	for _, subject := range []string{"Cálculo", "Álgebra Lineal", "Física", "Probabilidad y Estadística", "Química", "Historia", ""} {
		a := Fallback(7, 3, subject, "tema")
		b := Fallback(7, 3, subject, "tema")
		assert.Equal(t, a, b, subject)
		assert.True(t, a.valid(), subject)
		assert.Equal(t, fallbackExplanation, a.Explanation)
	}

	assert.Equal(t, "1 mol", Fallback(1, 1, "Química", "-").Options[Fallback(1, 1, "Química", "-").CorrectIndex])
	general := Fallback(1, 1, "General", "-")
	assert.Equal(t, "Tasa de cambio instantánea", general.Options[general.CorrectIndex])

	stats := Fallback(2, 5, "Estadística", "media")
	for _, o := range stats.Options {
		assert.Regexp(t, regexp.MustCompile(`^-?\d+\.\d{2}$`), o)
	}

	calc := Fallback(3, 2, "calculo", "-")
	assert.True(t, strings.HasPrefix(calc.Question, "Deriva: f(x) = "))
	assert.NotContains(t, calc.Options[calc.CorrectIndex], " - ")
}

func TestFallbackOptionsAreDistinct(t *testing.T) {
	for _, subject := range []string{"Cálculo", "Álgebra", "Física", "Estadística"} {
		for session := int64(1); session <= 300; session++ {
			p := Fallback(session, 1, subject, "-")
			seen := map[string]bool{}
			for _, o := range p.Options {
				seen[o] = true
			}
			require.Len(t, seen, 4, "%s session %d: %v", subject, session, p.Options)
		}
	}
}

func TestEngineWithoutLLMUsesFallback(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "Química")
	e := NewEngine(db, nil, nil)

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "📝 **Quiz #1**  (Química · Derivadas)\n\n"), out)
	assert.Contains(t, out, "A) ")
	assert.True(t, strings.HasSuffix(out, "Responde con **A/B/C/D**."))

	st := e.State()
	require.True(t, st.Pending())
	assert.Equal(t, 1, st.QIndex)
	correct := *st.LastCorrectIndex
	assert.Equal(t, "1 mol", st.LastOptions[correct])

	wrong := (correct + 1) % 4
	out, err = e.HandleInput(context.Background(), qc, string(rune('a'+wrong)))
	require.NoError(t, err)
	assert.Equal(t, "Incorrecto. La correcta era **"+string(letters[correct])+"**.\nTu respuesta: **"+string(letters[wrong])+"**.\nEscribe **siguiente** para otra pregunta.", out)

	out, err = e.HandleInput(context.Background(), qc, string(rune('1'+correct)))
	require.NoError(t, err)
	assert.Equal(t, AnsweredText, out)
	assert.True(t, e.State().Answered)

	qs, err := db.QuizQuestions(*st.SessionID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.NotNil(t, qs[0].UserAnswerIndex)
	assert.Equal(t, wrong, *qs[0].UserAnswerIndex, "the first answer is kept")
	assert.False(t, *qs[0].IsCorrect)
	assert.Equal(t, fallbackExplanation, qs[0].Explanation)

	out, err = e.HandleInput(context.Background(), qc, "zzz")
	require.NoError(t, err)
	assert.Equal(t, ChoiceHelpText, out)

	out, err = e.HandleInput(context.Background(), qc, "Siguiente")
	require.NoError(t, err)
	assert.Contains(t, out, "📝 **Quiz #2**")
	assert.Equal(t, 2, e.State().QIndex)
	assert.False(t, e.State().Answered)

	correct = *e.State().LastCorrectIndex
	out, err = e.HandleInput(context.Background(), qc, string(rune('1'+correct)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Correcto.\n"), out)
}

func TestEngineResetFinishesSession(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "General")
	e := NewEngine(db, nil, nil)

	_, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	sessionID := *e.State().SessionID

	e.Reset()
	assert.False(t, e.Active())
	assert.Nil(t, e.State().SessionID)

	s, err := db.GetQuizSession(sessionID)
	require.NoError(t, err)
	assert.NotNil(t, s.FinishedAt)
	assert.Equal(t, QuestionsPerSession, s.NQuestions)
	assert.Equal(t, "normal", s.Difficulty)

	out, err := e.Answer("A")
	require.NoError(t, err)
	assert.Equal(t, NoQuestionText, out)

	out, err = e.Next(context.Background(), qc)
	require.NoError(t, err)
	assert.Equal(t, NoSessionText, out)
}

func TestEngineRestartFinishesRunningSession(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "General")
	e := NewEngine(db, nil, nil)

	_, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	first := *e.State().SessionID

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.Contains(t, out, "📝 **Quiz #1**")
	second := *e.State().SessionID
	assert.NotEqual(t, first, second)

	s, err := db.GetQuizSession(first)
	require.NoError(t, err)
	assert.NotNil(t, s.FinishedAt)
	s, err = db.GetQuizSession(second)
	require.NoError(t, err)
	assert.Nil(t, s.FinishedAt)
}

func TestEngineUsesModelJSON(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "Cálculo")
	p := &scriptedProvider{texts: []string{
		"```json\n{\"question\":\"d/dx x^2\",\"options\":[\"x\",\"2x\",\"x^2\",\"2\"],\"correct_index\":1,\"explanation\":\"regla de la potencia\"}\n```",
	}}
	e := NewEngine(db, newClient(p), nil)

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.Contains(t, out, "**d/dx x^2**")
	assert.Contains(t, out, "B) 2x\n")

	require.Len(t, p.calls, 1)
	cfg := p.calls[0]
	assert.True(t, cfg.JSON)
	assert.InDelta(t, 0.35, cfg.Temperature, 1e-6)
	assert.Equal(t, 420, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.ReasoningBudget)
	assert.Equal(t, 0, *cfg.ReasoningBudget)
	assert.Contains(t, p.prompts[0], "Seed: Ana:Cálculo:Derivadas:")
	assert.Contains(t, p.prompts[0], "Dificultad: media")

	assert.Equal(t, 1, *e.State().LastCorrectIndex)
}

func TestEngineRepairsOnce(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "Cálculo")
	p := &scriptedProvider{texts: []string{
		"Pregunta: ¿cuánto es 2+2? opciones 3, 4, 5, 6",
		`{"question":"¿2+2?","options":["3","4","5","6"],"correct_index":1,"explanation":""}`,
	}}
	e := NewEngine(db, newClient(p), nil)

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.Contains(t, out, "**¿2+2?**")

	require.Len(t, p.calls, 2)
	assert.Equal(t, float32(0), p.calls[1].Temperature)
	assert.Equal(t, float32(1), p.calls[1].TopP)
	assert.Equal(t, 1, p.calls[1].TopK)
	assert.Contains(t, p.prompts[1], "Texto:\nPregunta: ¿cuánto es 2+2?")
}

func TestEngineFallsBackAfterFailedRepair(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "Química")
	p := &scriptedProvider{texts: []string{"no json", "todavía no"}}
	e := NewEngine(db, newClient(p), nil)

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.Contains(t, out, "18 g de H₂O")
	assert.Len(t, p.calls, 2)
}

func TestEngineInvalidFallbackKeepsIndex(t *testing.T) {
	db := newStore(t)
	qc := quizContext(t, db, "General")
	e := NewEngine(db, nil, nil)
	e.fallback = func(int64, int, string, string) Payload { return Payload{Question: "q"} }

	out, err := e.Start(context.Background(), qc)
	require.NoError(t, err)
	assert.Equal(t, InvalidText, out)
	st := e.State()
	assert.True(t, st.Active)
	assert.Equal(t, 0, st.QIndex)
	assert.False(t, st.Pending())

	qs, err := db.QuizQuestions(*st.SessionID)
	require.NoError(t, err)
	assert.Empty(t, qs)
}
