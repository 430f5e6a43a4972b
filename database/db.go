package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/korjavin/profesorbot/models"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// DB handles all database operations
type DB struct {
	conn *sql.DB
	log  *zap.SugaredLogger
	now  func() time.Time
}

// New creates a new database connection and initializes tables
func New(dbPath string, logger *zap.SugaredLogger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=off&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err = createTables(db); err != nil {
		return nil, err
	}

	logger.Infof("Database ready at %s", dbPath)
	return &DB{conn: db, log: logger, now: time.Now}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			topic TEXT NOT NULL,
			UNIQUE(subject, topic)
		)`,
		`CREATE TABLE IF NOT EXISTS doubts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			topic_id INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			topic_id INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			n_questions INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			q_index INTEGER NOT NULL,
			question TEXT NOT NULL,
			options_json TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			user_answer_index INTEGER,
			is_correct INTEGER,
			explanation TEXT,
			UNIQUE(session_id, q_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_doubts_user ON doubts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_doubts_topic ON doubts(topic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_sess_user_topic ON quiz_sessions(user_id, topic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_q_session ON quiz_questions(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func normalizeUser(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.DefaultUser
	}
	return name
}

func normalizeTopic(subject, topic string) (string, string) {
	subject = strings.TrimSpace(subject)
	topic = strings.TrimSpace(topic)
	if subject == "" {
		subject = models.DefaultSubject
	}
	if topic == "" {
		topic = models.DefaultTopic
	}
	return subject, topic
}

// GetOrCreateUser resolves a user name to its id, creating the row on first use
func (db *DB) GetOrCreateUser(name string) (int64, error) {
	name = normalizeUser(name)
	if _, err := db.conn.Exec("INSERT OR IGNORE INTO users (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	var id int64
	if err := db.conn.QueryRow("SELECT id FROM users WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	return id, nil
}

// GetUserID returns the id of an existing user
func (db *DB) GetUserID(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrNotFound
	}
	var id int64
	err := db.conn.QueryRow("SELECT id FROM users WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return id, err
}

// ListUsers returns all user names in case-insensitive alphabetical order
func (db *DB) ListUsers() ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM users ORDER BY LOWER(name) ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RenameUser renames a user. It reports false when the old name does not
// exist or the new one is already taken.
func (db *DB) RenameUser(oldName, newName string) (bool, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return false, nil
	}
	res, err := db.conn.Exec("UPDATE OR IGNORE users SET name = ? WHERE name = ?", newName, oldName)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteUser removes only the user row; doubts and quizzes stay as history
func (db *DB) DeleteUser(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	res, err := db.conn.Exec("DELETE FROM users WHERE name = ?", name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetOrCreateTopic resolves a (subject, topic) pair to its id
func (db *DB) GetOrCreateTopic(subject, topic string) (int64, error) {
	subject, topic = normalizeTopic(subject, topic)
	if _, err := db.conn.Exec("INSERT OR IGNORE INTO topics (subject, topic) VALUES (?, ?)", subject, topic); err != nil {
		return 0, fmt.Errorf("failed to insert topic: %w", err)
	}
	var id int64
	err := db.conn.QueryRow("SELECT id FROM topics WHERE subject = ? AND topic = ?", subject, topic).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read topic id: %w", err)
	}
	return id, nil
}

// LogDoubt appends a question/answer interaction
func (db *DB) LogDoubt(userID, topicID int64, question, answer string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO doubts (user_id, topic_id, question, answer, timestamp) VALUES (?, ?, ?, ?, ?)",
		userID, topicID, question, answer, db.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log doubt: %w", err)
	}
	return res.LastInsertId()
}

// RecentDoubts returns up to limit doubts of a user on a topic, newest first
func (db *DB) RecentDoubts(userID, topicID int64, limit int) ([]models.Doubt, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, topic_id, question, answer, timestamp
		FROM doubts
		WHERE user_id = ? AND topic_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		userID, topicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Doubt
	for rows.Next() {
		var d models.Doubt
		var ts int64
		if err := rows.Scan(&d.ID, &d.UserID, &d.TopicID, &d.Question, &d.Answer, &ts); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(0, ts).UTC()
		result = append(result, d)
	}
	return result, rows.Err()
}

// LastContextForUser returns subject, topic and question of the user's latest
// doubt, or ErrNotFound when the user has no history
func (db *DB) LastContextForUser(userID int64) (*models.LastContext, error) {
	var lc models.LastContext
	err := db.conn.QueryRow(`
		SELECT t.subject, t.topic, d.question
		FROM doubts d
		JOIN topics t ON t.id = d.topic_id
		WHERE d.user_id = ?
		ORDER BY d.timestamp DESC, d.id DESC
		LIMIT 1`,
		userID,
	).Scan(&lc.Subject, &lc.Topic, &lc.Question)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

// StartQuizSession creates a quiz session and returns its id
func (db *DB) StartQuizSession(userID, topicID int64, difficulty string, nQuestions int) (int64, error) {
	difficulty = strings.TrimSpace(difficulty)
	if difficulty == "" {
		difficulty = string(models.SizeNormal)
	}
	res, err := db.conn.Exec(
		"INSERT INTO quiz_sessions (user_id, topic_id, difficulty, n_questions, started_at) VALUES (?, ?, ?, ?, ?)",
		userID, topicID, difficulty, nQuestions, db.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start quiz session: %w", err)
	}
	return res.LastInsertId()
}

// FinishQuizSession stamps finished_at on a session
func (db *DB) FinishQuizSession(sessionID int64) error {
	_, err := db.conn.Exec("UPDATE quiz_sessions SET finished_at = ? WHERE id = ?", db.now().UnixNano(), sessionID)
	return err
}

// GetQuizSession loads a quiz session by id
func (db *DB) GetQuizSession(sessionID int64) (*models.QuizSession, error) {
	var s models.QuizSession
	var started int64
	var finished sql.NullInt64
	err := db.conn.QueryRow(
		"SELECT id, user_id, topic_id, difficulty, n_questions, started_at, finished_at FROM quiz_sessions WHERE id = ?",
		sessionID,
	).Scan(&s.ID, &s.UserID, &s.TopicID, &s.Difficulty, &s.NQuestions, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		s.FinishedAt = &t
	}
	return &s, nil
}

// LogQuizQuestion appends an emitted question
func (db *DB) LogQuizQuestion(q models.QuizQuestion) (int64, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, err
	}
	var isCorrect any
	if q.IsCorrect != nil {
		isCorrect = boolToInt(*q.IsCorrect)
	}
	var answer any
	if q.UserAnswerIndex != nil {
		answer = *q.UserAnswerIndex
	}
	res, err := db.conn.Exec(`
		INSERT INTO quiz_questions
		(session_id, q_index, question, options_json, correct_index, user_answer_index, is_correct, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.SessionID, q.Index, q.Question, string(options), q.CorrectIndex, answer, isCorrect, q.Explanation,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log quiz question: %w", err)
	}
	return res.LastInsertId()
}

// UpdateQuizAnswer records the user's answer for (session, index). A blank
// explanation keeps the stored one.
func (db *DB) UpdateQuizAnswer(sessionID int64, qIndex, userAnswerIndex int, isCorrect bool, explanation string) (bool, error) {
	res, err := db.conn.Exec(`
		UPDATE quiz_questions
		SET user_answer_index = ?, is_correct = ?, explanation = COALESCE(NULLIF(?, ''), explanation)
		WHERE session_id = ? AND q_index = ?`,
		userAnswerIndex, boolToInt(isCorrect), explanation, sessionID, qIndex,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update quiz answer: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// QuizQuestions returns all questions of a session ordered by index
func (db *DB) QuizQuestions(sessionID int64) ([]models.QuizQuestion, error) {
	rows, err := db.conn.Query(`
		SELECT session_id, q_index, question, options_json, correct_index, user_answer_index, is_correct, COALESCE(explanation, '')
		FROM quiz_questions
		WHERE session_id = ?
		ORDER BY q_index ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.QuizQuestion
	for rows.Next() {
		var q models.QuizQuestion
		var options string
		var answer, correct sql.NullInt64
		if err := rows.Scan(&q.SessionID, &q.Index, &q.Question, &options, &q.CorrectIndex, &answer, &correct, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("corrupt options for question %d: %w", q.Index, err)
		}
		if answer.Valid {
			a := int(answer.Int64)
			q.UserAnswerIndex = &a
		}
		if correct.Valid {
			c := correct.Int64 == 1
			q.IsCorrect = &c
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

// TopicStats retrieves total, correct and accuracy over every quiz question of
// the user on the topic
func (db *DB) TopicStats(userID, topicID int64) (models.TopicStats, error) {
	var total int
	var correct sql.NullInt64
	err := db.conn.QueryRow(`
		SELECT COUNT(*), SUM(is_correct)
		FROM quiz_questions
		WHERE session_id IN (
			SELECT id FROM quiz_sessions WHERE user_id = ? AND topic_id = ?
		)`,
		userID, topicID,
	).Scan(&total, &correct)
	if err != nil {
		return models.TopicStats{}, err
	}

	stats := models.TopicStats{Total: total, Correct: int(correct.Int64)}
	if total > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(total) * 100
	}
	return stats, nil
}

// ProgressBlocks computes accuracy per block of blockSize questions in
// chronological order. Unanswered questions count as incorrect.
func (db *DB) ProgressBlocks(userID, topicID int64, blockSize int) ([]models.ProgressBlock, error) {
	rows, err := db.conn.Query(`
		SELECT q.is_correct
		FROM quiz_questions q
		JOIN quiz_sessions s ON s.id = q.session_id
		WHERE s.user_id = ? AND s.topic_id = ?
		ORDER BY s.started_at ASC, s.id ASC, q.q_index ASC`,
		userID, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []int
	for rows.Next() {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, int(v.Int64))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if blockSize < 1 {
		blockSize = 1
	}
	var blocks []models.ProgressBlock
	for i, b := 0, 1; i < len(values); i, b = i+blockSize, b+1 {
		end := min(i+blockSize, len(values))
		sum := 0
		for _, v := range values[i:end] {
			sum += v
		}
		blocks = append(blocks, models.ProgressBlock{
			Block:    b,
			Accuracy: float64(sum) / float64(end-i) * 100,
		})
	}
	return blocks, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
