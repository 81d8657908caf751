package attempt

import (
	"database/sql"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/grading"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Attempt struct {
	ID           string `json:"id"`
	AssessmentID string `json:"assessment_id"`
	UserID       string `json:"user_id"`
	StartedAt    int64  `json:"started_at"`
	CompletedAt  *int64 `json:"completed_at,omitempty"`
	Score        *int   `json:"score,omitempty"`
	// Counts frozen at submit, alongside Score.
	CorrectCount   *int `json:"correct_count,omitempty"`
	TotalQuestions *int `json:"total_questions,omitempty"`
}

// Status is derived from CompletedAt.
func (a Attempt) Status() Status {
	if a.CompletedAt != nil {
		return StatusCompleted
	}
	return StatusActive
}

type attemptRow struct {
	ID           string        `db:"id"`
	AssessmentID string        `db:"assessment_id"`
	UserID       string        `db:"user_id"`
	StartedAt    int64         `db:"started_at"`
	CompletedAt  sql.NullInt64 `db:"completed_at"`
	Score        sql.NullInt64 `db:"score"`
	Correct      sql.NullInt64 `db:"correct_count"`
	Total        sql.NullInt64 `db:"total_questions"`
}

func (r attemptRow) attempt() Attempt {
	a := Attempt{ID: r.ID, AssessmentID: r.AssessmentID, UserID: r.UserID, StartedAt: r.StartedAt}
	if r.CompletedAt.Valid {
		v := r.CompletedAt.Int64
		a.CompletedAt = &v
	}
	a.Score = nullInt(r.Score)
	a.CorrectCount = nullInt(r.Correct)
	a.TotalQuestions = nullInt(r.Total)
	return a
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

type answerRow struct {
	ID         string         `db:"id"`
	AttemptID  string         `db:"attempt_id"`
	QuestionID string         `db:"question_id"`
	ItemID     sql.NullString `db:"item_id"`
	AnswerText string         `db:"answer_text"`
	IsCorrect  sql.NullBool   `db:"is_correct"`
}

// Started is what a student receives on start: the attempt and the
// assessment without answer keys.
type Started struct {
	Attempt    Attempt               `json:"attempt"`
	Assessment assessment.Assessment `json:"assessment"`
}

// GradedAttempt is the completed attempt with its grading breakdown.
type GradedAttempt struct {
	Attempt Attempt `json:"attempt"`
	grading.GradedAttempt
}

type ListOpts struct {
	AssessmentID string
	Status       Status
	Limit        int
	Offset       int
}

// ResultView is the "your answer" vs "correct answer" rendering of a
// completed attempt.
type ResultView struct {
	AttemptID       string           `json:"attempt_id"`
	AssessmentID    string           `json:"assessment_id"`
	AssessmentTitle string           `json:"assessment_title"`
	StartedAt       int64            `json:"started_at"`
	CompletedAt     int64            `json:"completed_at"`
	Score           int              `json:"score"`
	CorrectCount    int              `json:"correct_count"`
	TotalQuestions  int              `json:"total_questions"`
	Questions       []QuestionResult `json:"questions"`
}

type QuestionResult struct {
	QuestionID string             `json:"question_id"`
	Variant    assessment.Variant `json:"variant"`
	Title      string             `json:"title"`
	Correct    *bool              `json:"correct"`
	Items      []ItemResult       `json:"items"`
	// Removed marks answers to a question that is no longer part of the
	// assessment. Only the stored answers and their grades remain.
	Removed bool `json:"removed,omitempty"`
}

type ItemResult struct {
	ItemID        string `json:"item_id,omitempty"`
	Prompt        string `json:"prompt"`
	YourAnswer    string `json:"your_answer"`
	Answered      bool   `json:"answered"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       *bool  `json:"correct"`
}
