package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/korjavin/profesorbot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock advances one second on every call
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	id1, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)
	id2, err := db.GetOrCreateUser("  Ana ")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	guest, err := db.GetOrCreateUser("")
	require.NoError(t, err)
	guestID, err := db.GetUserID(models.DefaultUser)
	require.NoError(t, err)
	assert.Equal(t, guest, guestID)
}

func TestListRenameDeleteUsers(t *testing.T) {
	db := newTestDB(t)
	for _, name := range []string{"bruno", "Ana", "carla"} {
		_, err := db.GetOrCreateUser(name)
		require.NoError(t, err)
	}

	names, err := db.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "bruno", "carla"}, names)

	ok, err := db.RenameUser("bruno", "Ana")
	require.NoError(t, err)
	assert.False(t, ok, "rename onto an existing name is refused")

	ok, err = db.RenameUser("bruno", "Beto")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.DeleteUser("carla")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.DeleteUser("nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	names, err = db.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Beto"}, names)

	_, err = db.GetUserID("carla")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateTopicDefaults(t *testing.T) {
	db := newTestDB(t)

	id1, err := db.GetOrCreateTopic("", "")
	require.NoError(t, err)
	id2, err := db.GetOrCreateTopic(models.DefaultSubject, models.DefaultTopic)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := db.GetOrCreateTopic("Cálculo", "Límites")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestRecentDoubtsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	db.now = fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)
	tid, err := db.GetOrCreateTopic("Cálculo", "Límites")
	require.NoError(t, err)
	other, err := db.GetOrCreateTopic("Física", "-")
	require.NoError(t, err)

	_, err = db.LogDoubt(uid, tid, "¿qué es un límite?", "Un valor al que se aproxima…")
	require.NoError(t, err)
	_, err = db.LogDoubt(uid, other, "fuerza", "F = m a")
	require.NoError(t, err)
	_, err = db.LogDoubt(uid, tid, "lim sin(x)/x", "1")
	require.NoError(t, err)

	doubts, err := db.RecentDoubts(uid, tid, 10)
	require.NoError(t, err)
	require.Len(t, doubts, 2)
	assert.Equal(t, "lim sin(x)/x", doubts[0].Question)
	assert.Equal(t, "1", doubts[0].Answer)
	assert.Equal(t, "¿qué es un límite?", doubts[1].Question)
	assert.Equal(t, "Un valor al que se aproxima…", doubts[1].Answer)
	assert.True(t, doubts[0].CreatedAt.After(doubts[1].CreatedAt))

	limited, err := db.RecentDoubts(uid, tid, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLastContextForUser(t *testing.T) {
	db := newTestDB(t)
	db.now = fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)

	_, err = db.LastContextForUser(uid)
	assert.ErrorIs(t, err, ErrNotFound)

	tid, err := db.GetOrCreateTopic("Química", "pH")
	require.NoError(t, err)
	_, err = db.LogDoubt(uid, tid, "¿qué es el pH?", "…")
	require.NoError(t, err)

	lc, err := db.LastContextForUser(uid)
	require.NoError(t, err)
	assert.Equal(t, models.LastContext{Subject: "Química", Topic: "pH", Question: "¿qué es el pH?"}, *lc)
}

func TestQuizLifecycle(t *testing.T) {
	db := newTestDB(t)

	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)
	tid, err := db.GetOrCreateTopic("Cálculo", "Derivadas")
	require.NoError(t, err)

	sid, err := db.StartQuizSession(uid, tid, "corta", 10)
	require.NoError(t, err)

	_, err = db.LogQuizQuestion(models.QuizQuestion{
		SessionID: sid, Index: 1, Question: "Q1",
		Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2, Explanation: "porque sí",
	})
	require.NoError(t, err)

	_, err = db.LogQuizQuestion(models.QuizQuestion{SessionID: sid, Index: 1, Question: "dup", Options: []string{"a", "b", "c", "d"}})
	assert.Error(t, err, "index is unique per session")

	ok, err := db.UpdateQuizAnswer(sid, 1, 1, false, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.UpdateQuizAnswer(sid, 7, 1, false, "")
	require.NoError(t, err)
	assert.False(t, ok)

	questions, err := db.QuizQuestions(sid)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	q := questions[0]
	assert.Equal(t, []string{"a", "b", "c", "d"}, q.Options)
	assert.Equal(t, "porque sí", q.Explanation, "blank explanation keeps the stored one")
	require.NotNil(t, q.UserAnswerIndex)
	assert.Equal(t, 1, *q.UserAnswerIndex)
	require.NotNil(t, q.IsCorrect)
	assert.False(t, *q.IsCorrect)

	ok, err = db.UpdateQuizAnswer(sid, 1, 2, true, "nueva")
	require.NoError(t, err)
	assert.True(t, ok)
	questions, err = db.QuizQuestions(sid)
	require.NoError(t, err)
	assert.Equal(t, "nueva", questions[0].Explanation)

	session, err := db.GetQuizSession(sid)
	require.NoError(t, err)
	assert.Equal(t, "corta", session.Difficulty)
	assert.Equal(t, 10, session.NQuestions)
	assert.Nil(t, session.FinishedAt)

	require.NoError(t, db.FinishQuizSession(sid))
	session, err = db.GetQuizSession(sid)
	require.NoError(t, err)
	assert.NotNil(t, session.FinishedAt)
}

func TestTopicStatsAndProgressBlocks(t *testing.T) {
	db := newTestDB(t)
	db.now = fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	uid, err := db.GetOrCreateUser("Ana")
	require.NoError(t, err)
	tid, err := db.GetOrCreateTopic("Física", "Cinemática")
	require.NoError(t, err)

	empty, err := db.TopicStats(uid, tid)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStats{}, empty)

	blocks, err := db.ProgressBlocks(uid, tid, 5)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	sid, err := db.StartQuizSession(uid, tid, "normal", 10)
	require.NoError(t, err)
	// 7 questions: answered correct on 1,2,3,6; 7 left unanswered
	correct := map[int]bool{1: true, 2: true, 3: true, 4: false, 5: false, 6: true}
	for i := 1; i <= 7; i++ {
		_, err := db.LogQuizQuestion(models.QuizQuestion{SessionID: sid, Index: i, Question: "q", Options: []string{"a", "b", "c", "d"}})
		require.NoError(t, err)
		if c, ok := correct[i]; ok {
			_, err := db.UpdateQuizAnswer(sid, i, 0, c, "")
			require.NoError(t, err)
		}
	}

	stats, err := db.TopicStats(uid, tid)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 4, stats.Correct)
	assert.InDelta(t, 57.142857, stats.Accuracy, 1e-4)

	blocks, err = db.ProgressBlocks(uid, tid, 5)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[0].Block)
	assert.InDelta(t, 60.0, blocks[0].Accuracy, 1e-9)
	assert.Equal(t, 2, blocks[1].Block)
	assert.InDelta(t, 50.0, blocks[1].Accuracy, 1e-9)
}
