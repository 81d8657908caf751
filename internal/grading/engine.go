package grading

import (
	"math"
	"sort"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
)

// Answers maps an item id to the submitted value. A question id may stand in
// for the item id when the question has exactly one item.
type Answers map[string]string

// ItemGrade is the outcome for one payload item. ItemID is empty for a
// value recorded against a flashcards question as a whole.
type ItemGrade struct {
	ItemID   string `json:"item_id,omitempty"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
	Correct  *bool  `json:"correct"` // nil when ungraded
}

type QuestionGrade struct {
	QuestionID string             `json:"question_id"`
	Variant    assessment.Variant `json:"variant"`
	Correct    *bool              `json:"correct"` // nil for flashcards
	Items      []ItemGrade        `json:"items"`
}

// GradedAttempt is the aggregate over all questions of an assessment.
type GradedAttempt struct {
	ScorePercent   int             `json:"score"`
	CorrectCount   int             `json:"correct_count"`
	TotalQuestions int             `json:"total_questions"`
	Questions      []QuestionGrade `json:"questions"`
}

// Strategy decides correctness of one item for one variant.
type Strategy interface {
	Gradable() bool
	Correct(item assessment.Item, answer string) bool
}

type Engine struct {
	strategies map[assessment.Variant]Strategy
}

// NewEngine installs built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[assessment.Variant]Strategy{
			assessment.VariantMultipleChoice: multipleChoiceStrategy{},
			assessment.VariantFillInBlank:    exactTextStrategy{},
			assessment.VariantMatching:       exactTextStrategy{},
			assessment.VariantFlashcards:     ungradedStrategy{},
		},
	}
}

// Grade scores answers against questions. It has no side effects.
func (e *Engine) Grade(questions []assessment.Question, answers Answers) (GradedAttempt, error) {
	if err := checkKeys(questions, answers); err != nil {
		return GradedAttempt{}, err
	}
	out := GradedAttempt{Questions: make([]QuestionGrade, 0, len(questions))}
	for _, q := range questions {
		s, ok := e.strategies[q.Variant]
		if !ok {
			return GradedAttempt{}, errs.UnknownVariant(string(q.Variant))
		}
		qg := gradeQuestion(s, q, answers)
		if s.Gradable() {
			out.TotalQuestions++
			if *qg.Correct {
				out.CorrectCount++
			}
		}
		out.Questions = append(out.Questions, qg)
	}
	out.ScorePercent = ScorePercent(out.CorrectCount, out.TotalQuestions)
	return out, nil
}

// ScorePercent is round(correct/total*100), and 0 when nothing is gradable.
func ScorePercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func gradeQuestion(s Strategy, q assessment.Question, answers Answers) QuestionGrade {
	items := q.Items()
	qg := QuestionGrade{QuestionID: q.ID, Variant: q.Variant, Items: make([]ItemGrade, 0, len(items))}

	allCorrect := len(items) > 0
	for _, it := range items {
		val, answered := answers[it.ID]
		if !answered && len(items) == 1 {
			val, answered = answers[q.ID]
		}
		ig := ItemGrade{ItemID: it.ID, Answer: val, Answered: answered}
		if s.Gradable() {
			ok := answered && s.Correct(it, val)
			ig.Correct = &ok
			allCorrect = allCorrect && ok
		}
		qg.Items = append(qg.Items, ig)
	}

	if !s.Gradable() {
		// flashcards may be acknowledged as a whole
		if val, ok := answers[q.ID]; ok && len(items) != 1 {
			qg.Items = append(qg.Items, ItemGrade{Answer: val, Answered: true})
		}
		return qg
	}
	qg.Correct = &allCorrect
	return qg
}

// checkKeys rejects answers that name no item or question of this
// assessment, and question-level answers to multi-item questions.
func checkKeys(questions []assessment.Question, answers Answers) error {
	items := map[string]bool{}
	questionItems := map[string]int{}
	ungraded := map[string]bool{}
	for _, q := range questions {
		n := 0
		for _, it := range q.Items() {
			items[it.ID] = true
			n++
		}
		questionItems[q.ID] = n
		ungraded[q.ID] = !q.Variant.Gradable()
	}
	var bad []errs.FieldError
	for key := range answers {
		if items[key] {
			continue
		}
		n, isQuestion := questionItems[key]
		switch {
		case !isQuestion:
			bad = append(bad, errs.FieldError{Field: key, Error: "unknown question or item"})
		case n != 1 && !ungraded[key]:
			bad = append(bad, errs.FieldError{Field: key, Error: "question has several items; answer each item"})
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Slice(bad, func(i, j int) bool { return bad[i].Field < bad[j].Field })
	return errs.Validation(errs.CodeInvalidAnswers, "answers do not match the assessment", bad...)
}
