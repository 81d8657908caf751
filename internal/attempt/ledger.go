package attempt

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/db"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
	"github.com/mind-engage/mindengage-lingua/internal/grading"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
	syncx "github.com/mind-engage/mindengage-lingua/internal/sync"
)

// AssessmentReader is the read side of the assessment store.
type AssessmentReader interface {
	Get(ctx context.Context, id string) (assessment.Assessment, error)
}

// Ledger runs the attempt state machine: NotStarted -> Active -> Completed.
// At most one Active attempt exists per (assessment, user) and a score is
// recorded at most once per attempt.
type Ledger struct {
	db          *sqlx.DB
	assessments AssessmentReader
	grader      *grading.Engine
	events      *syncx.EventRepo
	log         logger.Logger
	now         func() time.Time
}

func NewLedger(dbx *sqlx.DB, assessments AssessmentReader, grader *grading.Engine, events *syncx.EventRepo, log logger.Logger) *Ledger {
	return &Ledger{db: dbx, assessments: assessments, grader: grader, events: events, log: log, now: time.Now}
}

// Start opens an attempt and returns it with the student view of the
// assessment.
func (l *Ledger) Start(ctx context.Context, assessmentID, userID string) (Started, error) {
	a, err := l.assessments.Get(ctx, assessmentID)
	if err != nil {
		return Started{}, err
	}
	att := Attempt{ID: uuid.NewString(), AssessmentID: assessmentID, UserID: userID, StartedAt: l.now().Unix()}

	err = db.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		var active int
		if err := tx.GetContext(ctx, &active,
			`SELECT COUNT(*) FROM attempts WHERE assessment_id=$1 AND user_id=$2 AND completed_at IS NULL`,
			assessmentID, userID); err != nil {
			return err
		}
		if active > 0 {
			return errs.ErrAlreadyActive
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (id,assessment_id,user_id,started_at) VALUES ($1,$2,$3,$4)`,
			att.ID, att.AssessmentID, att.UserID, att.StartedAt)
		if db.IsUniqueViolation(err) {
			// lost a race with a concurrent start for the same pair
			return errs.ErrAlreadyActive
		}
		if err != nil {
			return err
		}
		return l.events.Append(ctx, tx, syncx.EventAttemptStarted, att.ID, map[string]any{
			"assessment_id": assessmentID, "user_id": userID,
		})
	})
	if err != nil {
		return Started{}, errs.Storage("start attempt", err)
	}
	return Started{Attempt: att, Assessment: a.StudentView()}, nil
}

// Submit grades answers and completes the attempt. The write transaction is
// detached from ctx cancellation: once it begins, the score is recorded even
// if the caller goes away.
func (l *Ledger) Submit(ctx context.Context, attemptID, userID string, answers grading.Answers) (GradedAttempt, error) {
	att, err := l.Get(ctx, attemptID, userID)
	if err != nil {
		return GradedAttempt{}, err
	}
	if att.CompletedAt != nil {
		return GradedAttempt{}, errs.ErrAlreadyCompleted
	}
	a, err := l.assessments.Get(ctx, att.AssessmentID)
	if err != nil {
		return GradedAttempt{}, err
	}
	graded, err := l.grader.Grade(a.Questions, answers)
	if err != nil {
		return GradedAttempt{}, err
	}
	rows := answerRows(att.ID, graded)
	completedAt := l.now().Unix()

	txCtx := context.WithoutCancel(ctx)
	err = db.WithTx(txCtx, l.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(txCtx,
			`UPDATE attempts SET completed_at=$1, score=$2, correct_count=$3, total_questions=$4
			 WHERE id=$5 AND user_id=$6 AND completed_at IS NULL`,
			completedAt, graded.ScorePercent, graded.CorrectCount, graded.TotalQuestions, att.ID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errs.ErrAlreadyCompleted
		}
		if err := insertAnswers(txCtx, tx, rows); err != nil {
			return err
		}
		return l.events.Append(txCtx, tx, syncx.EventAttemptSubmitted, att.ID, map[string]any{
			"assessment_id":   att.AssessmentID,
			"user_id":         userID,
			"score":           graded.ScorePercent,
			"correct_count":   graded.CorrectCount,
			"total_questions": graded.TotalQuestions,
		})
	})
	if errors.Is(err, errs.ErrAlreadyCompleted) {
		l.log.Warn("concurrent submit rejected", "attempt_id", att.ID)
	}
	if err != nil {
		return GradedAttempt{}, errs.Storage("submit attempt", err)
	}

	att.CompletedAt = &completedAt
	score, correct, total := graded.ScorePercent, graded.CorrectCount, graded.TotalQuestions
	att.Score, att.CorrectCount, att.TotalQuestions = &score, &correct, &total
	return GradedAttempt{Attempt: att, GradedAttempt: graded}, nil
}

// Get returns the attempt if it belongs to userID. Attempts of other users
// are reported as not found.
func (l *Ledger) Get(ctx context.Context, attemptID, userID string) (Attempt, error) {
	var row attemptRow
	err := l.db.GetContext(ctx, &row,
		`SELECT id,assessment_id,user_id,started_at,completed_at,score,correct_count,total_questions FROM attempts WHERE id=$1`, attemptID)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, errs.NotFound("attempt")
	}
	if err != nil {
		return Attempt{}, errs.Storage("get attempt", err)
	}
	if row.UserID != userID {
		return Attempt{}, errs.NotFound("attempt")
	}
	return row.attempt(), nil
}

// ListForUser lists the user's attempts, newest first.
func (l *Ledger) ListForUser(ctx context.Context, userID string, opts ListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	where := []string{"user_id=$1"}
	args := []any{userID}
	if opts.AssessmentID != "" {
		args = append(args, opts.AssessmentID)
		where = append(where, "assessment_id=$"+strconv.Itoa(len(args)))
	}
	switch opts.Status {
	case StatusActive:
		where = append(where, "completed_at IS NULL")
	case StatusCompleted:
		where = append(where, "completed_at IS NOT NULL")
	}
	args = append(args, opts.Limit, opts.Offset)
	query := `SELECT id,assessment_id,user_id,started_at,completed_at,score,correct_count,total_questions FROM attempts WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY started_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []attemptRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errs.Storage("list attempts", err)
	}
	out := make([]Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.attempt())
	}
	return out, nil
}

func answerRows(attemptID string, g grading.GradedAttempt) []answerRow {
	var out []answerRow
	for _, q := range g.Questions {
		for _, it := range q.Items {
			if !it.Answered {
				continue
			}
			r := answerRow{ID: uuid.NewString(), AttemptID: attemptID, QuestionID: q.QuestionID, AnswerText: it.Answer}
			if it.ItemID != "" {
				r.ItemID = sql.NullString{String: it.ItemID, Valid: true}
			}
			if it.Correct != nil {
				r.IsCorrect = sql.NullBool{Bool: *it.Correct, Valid: true}
			}
			out = append(out, r)
		}
	}
	return out
}

func insertAnswers(ctx context.Context, tx *sqlx.Tx, rows []answerRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*6)
	for _, r := range rows {
		args = append(args, r.ID, r.AttemptID, r.QuestionID, r.ItemID, r.AnswerText, r.IsCorrect)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO answers (id,attempt_id,question_id,item_id,answer_text,is_correct) VALUES `+db.Placeholders(len(rows), 6),
		args...)
	return err
}
