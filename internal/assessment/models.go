package assessment

import (
	"sort"
	"strings"
)

// Variant is the discriminant of a Question's payload.
type Variant string

const (
	VariantMultipleChoice Variant = "multiple_choice"
	VariantMatching       Variant = "matching"
	VariantFillInBlank    Variant = "fill_in_blank"
	VariantFlashcards     Variant = "flashcards"
)

// Gradable reports whether questions of this variant count toward the score.
func (v Variant) Gradable() bool { return v != VariantFlashcards }

// BlankMarker marks the gap in a fill-in-blank sentence.
const BlankMarker = "___"

type MultipleChoiceItem struct {
	ID            string   `json:"id,omitempty"`
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswer string   `json:"correct_answer,omitempty" validate:"required"`
}

type MatchingItem struct {
	ID          string `json:"id,omitempty"`
	Term        string `json:"term" validate:"required"`
	Translation string `json:"translation,omitempty" validate:"required"`
}

type FillInBlankItem struct {
	ID       string `json:"id,omitempty"`
	Sentence string `json:"sentence" validate:"required"`
	Answer   string `json:"answer,omitempty" validate:"required"`
}

type FlashcardItem struct {
	ID          string  `json:"id,omitempty"`
	Term        string  `json:"term" validate:"required"`
	Translation string  `json:"translation" validate:"required"`
	Example     *string `json:"example,omitempty"`
}

// Question is a tagged union: Variant selects which one of the payload
// slices is populated.
type Question struct {
	ID           string  `json:"id,omitempty"`
	AssessmentID string  `json:"assessment_id,omitempty"`
	Variant      Variant `json:"variant" validate:"required,oneof=multiple_choice matching fill_in_blank flashcards"`
	Title        string  `json:"title"`
	Instructions string  `json:"instructions,omitempty"`
	Order        int     `json:"order"`

	MultipleChoice []MultipleChoiceItem `json:"multiple_choice,omitempty" validate:"dive"`
	Matching       []MatchingItem       `json:"matching,omitempty" validate:"dive"`
	FillInBlank    []FillInBlankItem    `json:"fill_in_blank,omitempty" validate:"dive"`
	Flashcards     []FlashcardItem      `json:"flashcards,omitempty" validate:"dive"`

	// Choices is only set on student views of matching questions: the
	// translations detached from their terms.
	Choices []string `json:"choices,omitempty"`
}

type Assessment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Language    string     `json:"language,omitempty"`
	Level       int        `json:"level"`
	Category    string     `json:"category,omitempty"`
	DurationMin int        `json:"duration_min"`
	Tags        []string   `json:"tags"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   int64      `json:"created_at"`
	UpdatedAt   int64      `json:"updated_at"`
	Questions   []Question `json:"questions"`
}

// Draft is the authoring input for Create and ReplaceQuestions.
type Draft struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Language    string     `json:"language" validate:"omitempty,max=32"`
	Level       int        `json:"level" validate:"gte=0,lte=6"`
	Category    string     `json:"category" validate:"omitempty,max=64"`
	DurationMin int        `json:"duration_min" validate:"gte=0"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,required,max=64"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
}

// Summary is a list row.
type Summary struct {
	ID            string `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	Language      string `json:"language,omitempty" db:"language"`
	Level         int    `json:"level" db:"level"`
	Category      string `json:"category,omitempty" db:"category"`
	DurationMin   int    `json:"duration_min" db:"duration_min"`
	CreatedBy     string `json:"created_by" db:"created_by"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
	QuestionCount int    `json:"question_count" db:"question_count"`
}

type ListOpts struct {
	Q         string
	CreatedBy string
	Limit     int
	Offset    int
}

// StudentView returns a copy without anything that reveals correct answers.
func (a Assessment) StudentView() Assessment {
	out := a
	out.Questions = make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		out.Questions[i] = q.StudentView()
	}
	return out
}

// StudentView strips correct answers from a question.
func (q Question) StudentView() Question {
	out := q
	if q.MultipleChoice != nil {
		out.MultipleChoice = make([]MultipleChoiceItem, len(q.MultipleChoice))
		for i, it := range q.MultipleChoice {
			opts := make([]string, len(it.Options))
			for j, o := range it.Options {
				opts[j] = StripCorrectMarker(o)
			}
			out.MultipleChoice[i] = MultipleChoiceItem{ID: it.ID, Text: it.Text, Options: opts}
		}
	}
	if q.Matching != nil {
		out.Matching = make([]MatchingItem, len(q.Matching))
		choices := make([]string, 0, len(q.Matching))
		for i, it := range q.Matching {
			out.Matching[i] = MatchingItem{ID: it.ID, Term: it.Term}
			choices = append(choices, it.Translation)
		}
		sort.Strings(choices)
		out.Choices = choices
	}
	if q.FillInBlank != nil {
		out.FillInBlank = make([]FillInBlankItem, len(q.FillInBlank))
		for i, it := range q.FillInBlank {
			out.FillInBlank[i] = FillInBlankItem{ID: it.ID, Sentence: it.Sentence}
		}
	}
	return out
}

const correctMarker = "(correct)"

// StripCorrectMarker trims s and removes a trailing "(correct)" marker in any
// letter case. Authors may tag the right option that way.
func StripCorrectMarker(s string) string {
	t := strings.TrimSpace(s)
	if n := len(t) - len(correctMarker); n >= 0 && strings.EqualFold(t[n:], correctMarker) {
		t = strings.TrimSpace(t[:n])
	}
	return t
}
