package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-lingua/internal/db"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
	syncx "github.com/mind-engage/mindengage-lingua/internal/sync"
)

type SQLStore struct {
	db     *sqlx.DB
	events *syncx.EventRepo
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(dbx *sqlx.DB, events *syncx.EventRepo) *SQLStore {
	return &SQLStore{db: dbx, events: events, now: time.Now}
}

type assessmentRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Language    string `db:"language"`
	Level       int    `db:"level"`
	Category    string `db:"category"`
	DurationMin int    `db:"duration_min"`
	TagsJSON    string `db:"tags_json"`
	CreatedBy   string `db:"created_by"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (s *SQLStore) Create(ctx context.Context, authorID string, d Draft) (Assessment, error) {
	if err := ValidateDraft(d); err != nil {
		return Assessment{}, err
	}
	now := s.now().Unix()
	a := Assessment{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Language:    d.Language,
		Level:       d.Level,
		Category:    d.Category,
		DurationMin: d.DurationMin,
		Tags:        normalizeTags(d.Tags),
		CreatedBy:   authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tags, _ := json.Marshal(a.Tags)
	questions := prepareQuestions(a.ID, d.Questions)

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assessments (id,title,description,language,level,category,duration_min,tags_json,created_by,created_at,updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			a.ID, a.Title, a.Description, a.Language, a.Level, a.Category, a.DurationMin, string(tags), a.CreatedBy, a.CreatedAt, a.UpdatedAt); err != nil {
			return err
		}
		if err := insertQuestions(ctx, tx, questions); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, syncx.EventAssessmentCreated, a.ID, map[string]any{
			"created_by": authorID, "questions": len(questions),
		})
	})
	if err != nil {
		return Assessment{}, errs.CreateFailed(err)
	}
	a.Questions = questions
	return a, nil
}

// ReplaceQuestions overwrites the header fields and swaps the whole question
// set. Order indices of the new set are 0..N-1.
func (s *SQLStore) ReplaceQuestions(ctx context.Context, id string, d Draft) (Assessment, error) {
	if err := ValidateDraft(d); err != nil {
		return Assessment{}, err
	}
	tags, _ := json.Marshal(normalizeTags(d.Tags))
	questions := prepareQuestions(id, d.Questions)

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE assessments SET title=$1, description=$2, language=$3, level=$4, category=$5,
			 duration_min=$6, tags_json=$7, updated_at=$8 WHERE id=$9`,
			strings.TrimSpace(d.Title), strings.TrimSpace(d.Description), d.Language, d.Level, d.Category,
			d.DurationMin, string(tags), s.now().Unix(), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return errs.NotFound("assessment")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE assessment_id=$1`, id); err != nil {
			return err
		}
		if err := insertQuestions(ctx, tx, questions); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, syncx.EventQuestionsReplaced, id, map[string]any{"questions": len(questions)})
	})
	if err != nil {
		return Assessment{}, errs.Storage("replace questions", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the assessment; questions, payload rows, attempts and
// answers go with it through ON DELETE CASCADE.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return errs.NotFound("assessment")
		}
		return s.events.Append(ctx, tx, syncx.EventAssessmentDeleted, id, map[string]any{})
	})
	return errs.Storage("delete assessment", err)
}

func (s *SQLStore) Get(ctx context.Context, id string) (Assessment, error) {
	var row assessmentRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id,title,description,language,level,category,duration_min,tags_json,created_by,created_at,updated_at
		 FROM assessments WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, errs.NotFound("assessment")
	}
	if err != nil {
		return Assessment{}, errs.Storage("get assessment", err)
	}
	a := Assessment{
		ID: row.ID, Title: row.Title, Description: row.Description, Language: row.Language,
		Level: row.Level, Category: row.Category, DurationMin: row.DurationMin,
		CreatedBy: row.CreatedBy, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.TagsJSON), &a.Tags); err != nil || a.Tags == nil {
		a.Tags = []string{}
	}
	qs, err := s.loadQuestions(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	a.Questions = qs
	return a, nil
}

func (s *SQLStore) loadQuestions(ctx context.Context, assessmentID string) ([]Question, error) {
	var bases []QuestionRow
	if err := s.db.SelectContext(ctx, &bases,
		`SELECT id,assessment_id,variant,title,instructions,order_index
		 FROM questions WHERE assessment_id=$1 ORDER BY order_index`, assessmentID); err != nil {
		return nil, errs.Storage("load questions", err)
	}

	const scope = ` WHERE question_id IN (SELECT id FROM questions WHERE assessment_id=$1) ORDER BY question_id, position`
	var all ChildRows
	if err := s.db.SelectContext(ctx, &all.MultipleChoice,
		`SELECT id,question_id,position,text,options_json,correct_answer FROM mc_items`+scope, assessmentID); err != nil {
		return nil, errs.Storage("load multiple choice items", err)
	}
	if err := s.db.SelectContext(ctx, &all.Matching,
		`SELECT id,question_id,position,term,translation FROM matching_items`+scope, assessmentID); err != nil {
		return nil, errs.Storage("load matching items", err)
	}
	if err := s.db.SelectContext(ctx, &all.FillInBlank,
		`SELECT id,question_id,position,sentence,answer FROM fill_blank_items`+scope, assessmentID); err != nil {
		return nil, errs.Storage("load fill-in-blank items", err)
	}
	if err := s.db.SelectContext(ctx, &all.Flashcards,
		`SELECT id,question_id,position,term,translation,example FROM flashcard_items`+scope, assessmentID); err != nil {
		return nil, errs.Storage("load flashcard items", err)
	}

	byQuestion := map[string]*ChildRows{}
	group := func(qid string) *ChildRows {
		c, ok := byQuestion[qid]
		if !ok {
			c = &ChildRows{}
			byQuestion[qid] = c
		}
		return c
	}
	for _, r := range all.MultipleChoice {
		c := group(r.QuestionID)
		c.MultipleChoice = append(c.MultipleChoice, r)
	}
	for _, r := range all.Matching {
		c := group(r.QuestionID)
		c.Matching = append(c.Matching, r)
	}
	for _, r := range all.FillInBlank {
		c := group(r.QuestionID)
		c.FillInBlank = append(c.FillInBlank, r)
	}
	for _, r := range all.Flashcards {
		c := group(r.QuestionID)
		c.Flashcards = append(c.Flashcards, r)
	}

	out := make([]Question, 0, len(bases))
	for _, b := range bases {
		var c ChildRows
		if g, ok := byQuestion[b.ID]; ok {
			c = *g
		}
		q, err := Decode(b, c)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Summary, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		where = append(where, "LOWER(a.title) LIKE "+arg("%"+strings.ToLower(q)+"%"))
	}
	if opts.CreatedBy != "" {
		where = append(where, "a.created_by = "+arg(opts.CreatedBy))
	}
	query := `SELECT a.id, a.title, a.language, a.level, a.category, a.duration_min, a.created_by, a.created_at,
	  (SELECT COUNT(*) FROM questions q WHERE q.assessment_id = a.id) AS question_count
	  FROM assessments a`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id LIMIT " + arg(opts.Limit) + " OFFSET " + arg(opts.Offset)

	out := []Summary{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errs.Storage("list assessments", err)
	}
	return out, nil
}

// prepareQuestions assigns ids and dense order indices.
func prepareQuestions(assessmentID string, in []Question) []Question {
	out := make([]Question, len(in))
	for i, q := range in {
		q.ID = uuid.NewString()
		q.AssessmentID = assessmentID
		q.Order = i
		q.Choices = nil
		q.MultipleChoice = cloneWithIDs(q.MultipleChoice, func(it *MultipleChoiceItem) { it.ID = uuid.NewString() })
		q.Matching = cloneWithIDs(q.Matching, func(it *MatchingItem) { it.ID = uuid.NewString() })
		q.FillInBlank = cloneWithIDs(q.FillInBlank, func(it *FillInBlankItem) { it.ID = uuid.NewString() })
		q.Flashcards = cloneWithIDs(q.Flashcards, func(it *FlashcardItem) { it.ID = uuid.NewString() })
		out[i] = q
	}
	return out
}

func cloneWithIDs[T any](in []T, setID func(*T)) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	for i := range out {
		setID(&out[i])
	}
	return out
}

// insertQuestions writes base rows and payload rows with one multi-row
// INSERT per table.
func insertQuestions(ctx context.Context, tx *sqlx.Tx, questions []Question) error {
	var (
		bases []QuestionRow
		child ChildRows
	)
	for _, q := range questions {
		base, rows, err := Encode(q)
		if err != nil {
			return err
		}
		bases = append(bases, base)
		child.append(rows)
	}

	if len(bases) > 0 {
		args := make([]any, 0, len(bases)*6)
		for _, b := range bases {
			args = append(args, b.ID, b.AssessmentID, b.Variant, b.Title, b.Instructions, b.OrderIndex)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id,assessment_id,variant,title,instructions,order_index) VALUES `+db.Placeholders(len(bases), 6),
			args...); err != nil {
			return err
		}
	}
	if n := len(child.MultipleChoice); n > 0 {
		args := make([]any, 0, n*6)
		for _, r := range child.MultipleChoice {
			args = append(args, r.ID, r.QuestionID, r.Position, r.Text, r.OptionsJSON, r.CorrectAnswer)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mc_items (id,question_id,position,text,options_json,correct_answer) VALUES `+db.Placeholders(n, 6),
			args...); err != nil {
			return err
		}
	}
	if n := len(child.Matching); n > 0 {
		args := make([]any, 0, n*5)
		for _, r := range child.Matching {
			args = append(args, r.ID, r.QuestionID, r.Position, r.Term, r.Translation)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matching_items (id,question_id,position,term,translation) VALUES `+db.Placeholders(n, 5),
			args...); err != nil {
			return err
		}
	}
	if n := len(child.FillInBlank); n > 0 {
		args := make([]any, 0, n*5)
		for _, r := range child.FillInBlank {
			args = append(args, r.ID, r.QuestionID, r.Position, r.Sentence, r.Answer)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fill_blank_items (id,question_id,position,sentence,answer) VALUES `+db.Placeholders(n, 5),
			args...); err != nil {
			return err
		}
	}
	if n := len(child.Flashcards); n > 0 {
		args := make([]any, 0, n*6)
		for _, r := range child.Flashcards {
			args = append(args, r.ID, r.QuestionID, r.Position, r.Term, r.Translation, r.Example)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flashcard_items (id,question_id,position,term,translation,example) VALUES `+db.Placeholders(n, 6),
			args...); err != nil {
			return err
		}
	}
	return nil
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
