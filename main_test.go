package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/config"
	"github.com/korjavin/profesorbot/database"
	"github.com/korjavin/profesorbot/models"
	"github.com/korjavin/profesorbot/session"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "cli.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunChat(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)

	w, err := session.NewWorker(context.Background(), session.Deps{Store: newTestDB(t)}, "Ana", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("/materia Física\n\n2+2\n")
	require.NoError(t, runChat(context.Background(), w, in, &out))

	assert.Equal(t, "Materia: **Física**\n\nResultado: **4**\n\n", out.String())
}

func TestProgressReport(t *testing.T) {
	db := newTestDB(t)

	_, err := progressReport(db, "Nadie", "Física", "General")
	assert.ErrorContains(t, err, `user "Nadie" not found`)

	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)

	out, err := progressReport(db, "Ana", "Física", "General")
	require.NoError(t, err)
	assert.Equal(t, "No quiz answers yet for Ana on Física / General", out)

	tid, err := db.GetOrCreateTopic("Física", "General")
	require.NoError(t, err)
	sid, err := db.StartQuizSession(uid, tid, "mixed", 10)
	require.NoError(t, err)
	for i, correct := range []bool{true, false} {
		_, err := db.LogQuizQuestion(models.QuizQuestion{
			SessionID: sid, Index: i + 1, Question: "¿?",
			Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0,
		})
		require.NoError(t, err)
		answer := 1
		if correct {
			answer = 0
		}
		_, err = db.UpdateQuizAnswer(sid, i+1, answer, correct, "")
		require.NoError(t, err)
	}

	out, err = progressReport(db, "Ana", "Física", "General")
	require.NoError(t, err)
	assert.Equal(t, "📈 Progreso en **Física / General**\nPreguntas: 2 · Correctas: 1 · Precisión: 50.0%\nBloques de 5: #1 50%", out)
}

func TestGenerationDefaults(t *testing.T) {
	gc := generationDefaults(config.Default().Generation)
	assert.InDelta(t, 0.2, gc.Temperature, 1e-6)
	assert.Equal(t, 700, gc.MaxOutputTokens)
	require.NotNil(t, gc.ReasoningBudget, "a zero budget must still reach the provider")
	assert.Equal(t, 0, *gc.ReasoningBudget)

	gc = generationDefaults(config.Generation{ReasoningBudget: 128})
	require.NotNil(t, gc.ReasoningBudget)
	assert.Equal(t, 128, *gc.ReasoningBudget)
}

func TestNewLLMWithoutKey(t *testing.T) {
	cfg := config.Default()
	llm, err := newLLM(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, llm)
}
