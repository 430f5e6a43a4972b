package models

import "time"

// User is a student identified by a unique display name
type User struct {
	ID   int64
	Name string
}

// Topic is a (subject, topic) pair
type Topic struct {
	ID      int64
	Subject string
	Topic   string
}

// Doubt is one logged question/answer interaction
type Doubt struct {
	ID        int64
	UserID    int64
	TopicID   int64
	Question  string
	Answer    string
	CreatedAt time.Time
}

// LastContext is the most recent doubt of a user joined with its topic
type LastContext struct {
	Subject  string
	Topic    string
	Question string
}

// QuizSession is one persisted quiz run
type QuizSession struct {
	ID         int64
	UserID     int64
	TopicID    int64
	Difficulty string
	NQuestions int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// QuizQuestion stores an emitted question and, once answered, the user's answer
type QuizQuestion struct {
	SessionID       int64
	Index           int
	Question        string
	Options         []string
	CorrectIndex    int
	UserAnswerIndex *int
	IsCorrect       *bool
	Explanation     string
}

// TopicStats is the aggregate quiz accuracy of a user on a topic
type TopicStats struct {
	Total    int
	Correct  int
	Accuracy float64
}

// ProgressBlock is the accuracy of one fixed-size chronological chunk of questions
type ProgressBlock struct {
	Block    int
	Accuracy float64
}
