package attempt

import (
	"context"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
)

// Assembler renders completed attempts. It never writes.
type Assembler struct {
	ledger      *Ledger
	db          *sqlx.DB
	assessments AssessmentReader
}

func NewAssembler(ledger *Ledger, dbx *sqlx.DB, assessments AssessmentReader) *Assembler {
	return &Assembler{ledger: ledger, db: dbx, assessments: assessments}
}

func (r *Assembler) Assemble(ctx context.Context, attemptID, requesterID string) (ResultView, error) {
	att, err := r.ledger.Get(ctx, attemptID, requesterID)
	if err != nil {
		return ResultView{}, err
	}
	if att.CompletedAt == nil {
		return ResultView{}, errs.ErrNotCompleted
	}

	var (
		answers []answerRow
		a       assessment.Assessment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.db.SelectContext(gctx, &answers,
			`SELECT id,attempt_id,question_id,item_id,answer_text,is_correct FROM answers WHERE attempt_id=$1 ORDER BY question_id, item_id`, att.ID)
		return errs.Storage("load answers", err)
	})
	g.Go(func() error {
		var err error
		a, err = r.assessments.Get(gctx, att.AssessmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ResultView{}, err
	}

	view := ResultView{
		AttemptID:       att.ID,
		AssessmentID:    a.ID,
		AssessmentTitle: a.Title,
		StartedAt:       att.StartedAt,
		CompletedAt:     *att.CompletedAt,
		Questions:       make([]QuestionResult, 0, len(a.Questions)),
	}

	byItem := map[string]answerRow{}
	byQuestion := map[string]answerRow{}
	for _, ans := range answers {
		if ans.ItemID.Valid {
			byItem[ans.ItemID.String] = ans
		} else {
			byQuestion[ans.QuestionID] = ans
		}
	}
	used := map[string]bool{}

	var correct, total int
	for _, q := range a.Questions {
		items := q.Items()
		qr := QuestionResult{QuestionID: q.ID, Variant: q.Variant, Title: q.Title, Items: make([]ItemResult, 0, len(items))}
		allCorrect := len(items) > 0
		for _, it := range items {
			ir := ItemResult{ItemID: it.ID, Prompt: it.Prompt, CorrectAnswer: assessment.StripCorrectMarker(it.Answer)}
			ans, ok := byItem[it.ID]
			if ok {
				ir.YourAnswer = ans.AnswerText
				ir.Answered = true
				used[ans.ID] = true
			}
			if q.Variant.Gradable() {
				c := ok && ans.IsCorrect.Valid && ans.IsCorrect.Bool
				ir.Correct = &c
				allCorrect = allCorrect && c
			}
			qr.Items = append(qr.Items, ir)
		}
		if ans, ok := byQuestion[q.ID]; ok {
			qr.Items = append(qr.Items, ItemResult{YourAnswer: ans.AnswerText, Answered: true})
			used[ans.ID] = true
		}
		if q.Variant.Gradable() {
			qr.Correct = &allCorrect
			total++
			if allCorrect {
				correct++
			}
		}
		view.Questions = append(view.Questions, qr)
	}
	view.Questions = append(view.Questions, removedQuestions(answers, used)...)

	// Score and counts are what was recorded at submit. The counts above are
	// only a fallback for attempts stored without them.
	if att.Score != nil {
		view.Score = *att.Score
	}
	view.CorrectCount, view.TotalQuestions = correct, total
	if att.CorrectCount != nil && att.TotalQuestions != nil {
		view.CorrectCount, view.TotalQuestions = *att.CorrectCount, *att.TotalQuestions
	}
	return view, nil
}

// removedQuestions renders answers whose question or item was replaced after
// the attempt was graded, grouped by question in answer order.
func removedQuestions(answers []answerRow, used map[string]bool) []QuestionResult {
	var out []QuestionResult
	index := map[string]int{}
	for _, ans := range answers {
		if used[ans.ID] {
			continue
		}
		i, ok := index[ans.QuestionID]
		if !ok {
			i = len(out)
			index[ans.QuestionID] = i
			out = append(out, QuestionResult{QuestionID: ans.QuestionID, Removed: true})
		}
		ir := ItemResult{ItemID: ans.ItemID.String, YourAnswer: ans.AnswerText, Answered: true}
		if ans.IsCorrect.Valid {
			c := ans.IsCorrect.Bool
			ir.Correct = &c
		}
		out[i].Items = append(out[i].Items, ir)
	}
	return out
}
