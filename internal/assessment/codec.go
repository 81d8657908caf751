package assessment

import (
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/mind-engage/mindengage-lingua/internal/errs"
)

// QuestionRow is the base row of a question.
type QuestionRow struct {
	ID           string `db:"id"`
	AssessmentID string `db:"assessment_id"`
	Variant      string `db:"variant"`
	Title        string `db:"title"`
	Instructions string `db:"instructions"`
	OrderIndex   int    `db:"order_index"`
}

type MCRow struct {
	ID            string `db:"id"`
	QuestionID    string `db:"question_id"`
	Position      int    `db:"position"`
	Text          string `db:"text"`
	OptionsJSON   string `db:"options_json"`
	CorrectAnswer string `db:"correct_answer"`
}

type MatchingRow struct {
	ID          string `db:"id"`
	QuestionID  string `db:"question_id"`
	Position    int    `db:"position"`
	Term        string `db:"term"`
	Translation string `db:"translation"`
}

type FillBlankRow struct {
	ID         string `db:"id"`
	QuestionID string `db:"question_id"`
	Position   int    `db:"position"`
	Sentence   string `db:"sentence"`
	Answer     string `db:"answer"`
}

type FlashcardRow struct {
	ID          string         `db:"id"`
	QuestionID  string         `db:"question_id"`
	Position    int            `db:"position"`
	Term        string         `db:"term"`
	Translation string         `db:"translation"`
	Example     sql.NullString `db:"example"`
}

// ChildRows holds payload rows, one slice per variant table.
type ChildRows struct {
	MultipleChoice []MCRow
	Matching       []MatchingRow
	FillInBlank    []FillBlankRow
	Flashcards     []FlashcardRow
}

func (c *ChildRows) append(o ChildRows) {
	c.MultipleChoice = append(c.MultipleChoice, o.MultipleChoice...)
	c.Matching = append(c.Matching, o.Matching...)
	c.FillInBlank = append(c.FillInBlank, o.FillInBlank...)
	c.Flashcards = append(c.Flashcards, o.Flashcards...)
}

// Item is a variant-neutral view of one payload entry: what is asked, what
// is expected, and the options when there are any.
type Item struct {
	ID      string
	Prompt  string
	Answer  string
	Options []string
}

// payloadShape is the per-variant part of the codec.
type payloadShape struct {
	count  func(q Question) int
	encode func(q Question) (ChildRows, error)
	decode func(c ChildRows, q *Question) error
	items  func(q Question) []Item
	rows   func(c ChildRows) int
}

var shapes = map[Variant]payloadShape{
	VariantMultipleChoice: {
		count: func(q Question) int { return len(q.MultipleChoice) },
		encode: func(q Question) (ChildRows, error) {
			var c ChildRows
			for i, it := range q.MultipleChoice {
				opts, err := json.Marshal(it.Options)
				if err != nil {
					return ChildRows{}, err
				}
				c.MultipleChoice = append(c.MultipleChoice, MCRow{
					ID: it.ID, QuestionID: q.ID, Position: i,
					Text: it.Text, OptionsJSON: string(opts), CorrectAnswer: it.CorrectAnswer,
				})
			}
			return c, nil
		},
		decode: func(c ChildRows, q *Question) error {
			q.MultipleChoice = make([]MultipleChoiceItem, 0, len(c.MultipleChoice))
			for _, r := range c.MultipleChoice {
				var opts []string
				if err := json.Unmarshal([]byte(r.OptionsJSON), &opts); err != nil {
					return errs.VariantMismatch("question %s: item %s: malformed options: %v", q.ID, r.ID, err)
				}
				q.MultipleChoice = append(q.MultipleChoice, MultipleChoiceItem{
					ID: r.ID, Text: r.Text, Options: opts, CorrectAnswer: r.CorrectAnswer,
				})
			}
			return nil
		},
		items: func(q Question) []Item {
			out := make([]Item, len(q.MultipleChoice))
			for i, it := range q.MultipleChoice {
				out[i] = Item{ID: it.ID, Prompt: it.Text, Answer: it.CorrectAnswer, Options: it.Options}
			}
			return out
		},
		rows: func(c ChildRows) int { return len(c.MultipleChoice) },
	},
	VariantMatching: {
		count: func(q Question) int { return len(q.Matching) },
		encode: func(q Question) (ChildRows, error) {
			var c ChildRows
			for i, it := range q.Matching {
				c.Matching = append(c.Matching, MatchingRow{
					ID: it.ID, QuestionID: q.ID, Position: i, Term: it.Term, Translation: it.Translation,
				})
			}
			return c, nil
		},
		decode: func(c ChildRows, q *Question) error {
			q.Matching = make([]MatchingItem, 0, len(c.Matching))
			for _, r := range c.Matching {
				q.Matching = append(q.Matching, MatchingItem{ID: r.ID, Term: r.Term, Translation: r.Translation})
			}
			return nil
		},
		items: func(q Question) []Item {
			out := make([]Item, len(q.Matching))
			for i, it := range q.Matching {
				out[i] = Item{ID: it.ID, Prompt: it.Term, Answer: it.Translation}
			}
			return out
		},
		rows: func(c ChildRows) int { return len(c.Matching) },
	},
	VariantFillInBlank: {
		count: func(q Question) int { return len(q.FillInBlank) },
		encode: func(q Question) (ChildRows, error) {
			var c ChildRows
			for i, it := range q.FillInBlank {
				c.FillInBlank = append(c.FillInBlank, FillBlankRow{
					ID: it.ID, QuestionID: q.ID, Position: i, Sentence: it.Sentence, Answer: it.Answer,
				})
			}
			return c, nil
		},
		decode: func(c ChildRows, q *Question) error {
			q.FillInBlank = make([]FillInBlankItem, 0, len(c.FillInBlank))
			for _, r := range c.FillInBlank {
				q.FillInBlank = append(q.FillInBlank, FillInBlankItem{ID: r.ID, Sentence: r.Sentence, Answer: r.Answer})
			}
			return nil
		},
		items: func(q Question) []Item {
			out := make([]Item, len(q.FillInBlank))
			for i, it := range q.FillInBlank {
				out[i] = Item{ID: it.ID, Prompt: it.Sentence, Answer: it.Answer}
			}
			return out
		},
		rows: func(c ChildRows) int { return len(c.FillInBlank) },
	},
	VariantFlashcards: {
		count: func(q Question) int { return len(q.Flashcards) },
		encode: func(q Question) (ChildRows, error) {
			var c ChildRows
			for i, it := range q.Flashcards {
				row := FlashcardRow{ID: it.ID, QuestionID: q.ID, Position: i, Term: it.Term, Translation: it.Translation}
				if it.Example != nil {
					row.Example = sql.NullString{String: *it.Example, Valid: true}
				}
				c.Flashcards = append(c.Flashcards, row)
			}
			return c, nil
		},
		decode: func(c ChildRows, q *Question) error {
			q.Flashcards = make([]FlashcardItem, 0, len(c.Flashcards))
			for _, r := range c.Flashcards {
				it := FlashcardItem{ID: r.ID, Term: r.Term, Translation: r.Translation}
				if r.Example.Valid {
					ex := r.Example.String
					it.Example = &ex
				}
				q.Flashcards = append(q.Flashcards, it)
			}
			return nil
		},
		items: func(q Question) []Item {
			out := make([]Item, len(q.Flashcards))
			for i, it := range q.Flashcards {
				out[i] = Item{ID: it.ID, Prompt: it.Term, Answer: it.Translation}
			}
			return out
		},
		rows: func(c ChildRows) int { return len(c.Flashcards) },
	},
}

// Encode splits a tagged question into its base row and the child rows of
// its variant table. Item ids and the question id must already be assigned.
func Encode(q Question) (QuestionRow, ChildRows, error) {
	shape, ok := shapes[q.Variant]
	if !ok {
		return QuestionRow{}, ChildRows{}, errs.UnknownVariant(string(q.Variant))
	}
	for v, other := range shapes {
		if v != q.Variant && other.count(q) > 0 {
			return QuestionRow{}, ChildRows{}, errs.VariantMismatch("question %s: tagged %s but carries %s items", q.ID, q.Variant, v)
		}
	}
	if q.Variant.Gradable() && shape.count(q) == 0 {
		return QuestionRow{}, ChildRows{}, errs.VariantMismatch("question %s: %s payload is empty", q.ID, q.Variant)
	}
	rows, err := shape.encode(q)
	if err != nil {
		return QuestionRow{}, ChildRows{}, err
	}
	base := QuestionRow{
		ID:           q.ID,
		AssessmentID: q.AssessmentID,
		Variant:      string(q.Variant),
		Title:        q.Title,
		Instructions: q.Instructions,
		OrderIndex:   q.Order,
	}
	return base, rows, nil
}

// Decode rebuilds a tagged question. All child rows must belong to the
// variant named by the base row.
func Decode(base QuestionRow, c ChildRows) (Question, error) {
	v := Variant(base.Variant)
	shape, ok := shapes[v]
	if !ok {
		return Question{}, errs.UnknownVariant(base.Variant)
	}
	for ov, other := range shapes {
		if ov != v && other.rows(c) > 0 {
			return Question{}, errs.VariantMismatch("question %s: tagged %s but has %s rows", base.ID, v, ov)
		}
	}
	sortChildRows(&c)
	q := Question{
		ID:           base.ID,
		AssessmentID: base.AssessmentID,
		Variant:      v,
		Title:        base.Title,
		Instructions: base.Instructions,
		Order:        base.OrderIndex,
	}
	if err := shape.decode(c, &q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Items lists the payload entries of q in position order.
func (q Question) Items() []Item {
	shape, ok := shapes[q.Variant]
	if !ok {
		return nil
	}
	return shape.items(q)
}

func sortChildRows(c *ChildRows) {
	sort.SliceStable(c.MultipleChoice, func(i, j int) bool { return c.MultipleChoice[i].Position < c.MultipleChoice[j].Position })
	sort.SliceStable(c.Matching, func(i, j int) bool { return c.Matching[i].Position < c.Matching[j].Position })
	sort.SliceStable(c.FillInBlank, func(i, j int) bool { return c.FillInBlank[i].Position < c.FillInBlank[j].Position })
	sort.SliceStable(c.Flashcards, func(i, j int) bool { return c.Flashcards[i].Position < c.Flashcards[j].Position })
}
