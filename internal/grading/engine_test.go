package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
	"github.com/mind-engage/mindengage-lingua/internal/grading"
)

func mc(id, itemID, correct string, options ...string) assessment.Question {
	return assessment.Question{
		ID:      id,
		Variant: assessment.VariantMultipleChoice,
		MultipleChoice: []assessment.MultipleChoiceItem{
			{ID: itemID, Text: "?", Options: options, CorrectAnswer: correct},
		},
	}
}

func blank(id, itemID, answer string) assessment.Question {
	return assessment.Question{
		ID:          id,
		Variant:     assessment.VariantFillInBlank,
		FillInBlank: []assessment.FillInBlankItem{{ID: itemID, Sentence: "The capital of France is ___", Answer: answer}},
	}
}

func TestGrade_MultipleChoice(t *testing.T) {
	q := mc("q1", "i1", "Paris", "London", "Rome", "Paris (Correct)")
	e := grading.NewEngine()

	cases := []struct {
		answer string
		want   bool
	}{
		{"Paris", true},
		{"  paris ", true},
		{"Paris (correct)", true},
		{"2", true},
		{" 2 ", true},
		{"0", false},
		{"Rome", false},
		{"two", false},
		{"", false},
	}
	for _, tc := range cases {
		g, err := e.Grade([]assessment.Question{q}, grading.Answers{"i1": tc.answer})
		require.NoError(t, err)
		require.NotNil(t, g.Questions[0].Correct)
		assert.Equal(t, tc.want, *g.Questions[0].Correct, "answer %q", tc.answer)
	}
}

func TestGrade_MultipleChoiceCorrectNotAmongOptions(t *testing.T) {
	q := mc("q1", "i1", "Berlin", "London", "Rome")
	g, err := grading.NewEngine().Grade([]assessment.Question{q}, grading.Answers{"i1": "1"})
	require.NoError(t, err)
	assert.False(t, *g.Questions[0].Correct)
}

func TestGrade_FillInBlank(t *testing.T) {
	q := blank("q1", "i1", "paris")
	e := grading.NewEngine()

	g, err := e.Grade([]assessment.Question{q}, grading.Answers{"i1": "  Paris "})
	require.NoError(t, err)
	assert.True(t, *g.Questions[0].Correct)

	g, err = e.Grade([]assessment.Question{q}, grading.Answers{"i1": "pariss"})
	require.NoError(t, err)
	assert.False(t, *g.Questions[0].Correct)
}

func TestGrade_QuestionIDAlias(t *testing.T) {
	q := blank("q1", "i1", "paris")
	g, err := grading.NewEngine().Grade([]assessment.Question{q}, grading.Answers{"q1": "Paris"})
	require.NoError(t, err)
	assert.True(t, *g.Questions[0].Correct)
	assert.True(t, g.Questions[0].Items[0].Answered)
}

func TestGrade_MatchingNeedsEveryPair(t *testing.T) {
	q := assessment.Question{
		ID:      "q1",
		Variant: assessment.VariantMatching,
		Matching: []assessment.MatchingItem{
			{ID: "p1", Term: "gato", Translation: "cat"},
			{ID: "p2", Term: "perro", Translation: "dog"},
		},
	}
	e := grading.NewEngine()

	g, err := e.Grade([]assessment.Question{q}, grading.Answers{"p1": "Cat", "p2": "dog"})
	require.NoError(t, err)
	assert.True(t, *g.Questions[0].Correct)
	assert.Equal(t, 100, g.ScorePercent)

	g, err = e.Grade([]assessment.Question{q}, grading.Answers{"p1": "cat"})
	require.NoError(t, err)
	assert.False(t, *g.Questions[0].Correct)
	assert.True(t, *g.Questions[0].Items[0].Correct)
	assert.False(t, g.Questions[0].Items[1].Answered)
	assert.Equal(t, 0, g.ScorePercent)
}

func TestGrade_Scoring(t *testing.T) {
	questions := []assessment.Question{
		mc("q1", "i1", "B", "A", "B"),
		blank("q2", "i2", "paris"),
	}
	g, err := grading.NewEngine().Grade(questions, grading.Answers{"i1": "B", "i2": "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, 50, g.ScorePercent)
	assert.Equal(t, 1, g.CorrectCount)
	assert.Equal(t, 2, g.TotalQuestions)
	require.Len(t, g.Questions, 2)
	assert.Equal(t, "q1", g.Questions[0].QuestionID)
}

func TestGrade_UnansweredCountsAsWrong(t *testing.T) {
	questions := []assessment.Question{
		blank("q1", "i1", "a"),
		blank("q2", "i2", "b"),
		blank("q3", "i3", "c"),
	}
	g, err := grading.NewEngine().Grade(questions, grading.Answers{"i1": "a"})
	require.NoError(t, err)
	assert.Equal(t, 33, g.ScorePercent)
	assert.Equal(t, 3, g.TotalQuestions)
}

func TestGrade_FlashcardsAreUngraded(t *testing.T) {
	deck := assessment.Question{
		ID:      "q1",
		Variant: assessment.VariantFlashcards,
		Flashcards: []assessment.FlashcardItem{
			{ID: "f1", Term: "hola", Translation: "hello"},
			{ID: "f2", Term: "adiós", Translation: "goodbye"},
		},
	}
	e := grading.NewEngine()

	g, err := e.Grade([]assessment.Question{deck}, grading.Answers{"q1": "seen"})
	require.NoError(t, err)
	assert.Equal(t, 0, g.ScorePercent)
	assert.Equal(t, 0, g.TotalQuestions)
	assert.Nil(t, g.Questions[0].Correct)
	for _, it := range g.Questions[0].Items {
		assert.Nil(t, it.Correct)
	}

	g, err = e.Grade([]assessment.Question{deck, blank("q2", "i2", "x")}, grading.Answers{"i2": "x"})
	require.NoError(t, err)
	assert.Equal(t, 100, g.ScorePercent)
	assert.Equal(t, 1, g.TotalQuestions)
}

func TestGrade_RejectsUnknownKeys(t *testing.T) {
	questions := []assessment.Question{blank("q1", "i1", "a")}
	_, err := grading.NewEngine().Grade(questions, grading.Answers{"i1": "a", "nope": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidAnswers)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "nope", e.Fields[0].Field)
}

func TestGrade_RejectsQuestionKeyOnMultiItemQuestion(t *testing.T) {
	q := assessment.Question{
		ID:      "q1",
		Variant: assessment.VariantMatching,
		Matching: []assessment.MatchingItem{
			{ID: "p1", Term: "gato", Translation: "cat"},
			{ID: "p2", Term: "perro", Translation: "dog"},
		},
	}
	_, err := grading.NewEngine().Grade([]assessment.Question{q}, grading.Answers{"q1": "cat"})
	assert.ErrorIs(t, err, errs.ErrInvalidAnswers)
}

func TestGrade_UnknownVariant(t *testing.T) {
	_, err := grading.NewEngine().Grade([]assessment.Question{{ID: "q1", Variant: "essay"}}, nil)
	assert.ErrorIs(t, err, errs.ErrUnknownVariant)
}

func TestScorePercent(t *testing.T) {
	assert.Equal(t, 0, grading.ScorePercent(0, 0))
	assert.Equal(t, 67, grading.ScorePercent(2, 3))
	assert.Equal(t, 50, grading.ScorePercent(1, 2))
	assert.Equal(t, 100, grading.ScorePercent(4, 4))
}

func TestGrade_QuestionKeyedScenario(t *testing.T) {
	questions := []assessment.Question{
		mc("q1", "i1", "4", "3", "4", "5"),
		blank("q2", "i2", "yes"),
	}
	g, err := grading.NewEngine().Grade(questions, grading.Answers{"q1": "4", "q2": "no"})
	require.NoError(t, err)
	assert.Equal(t, 50, g.ScorePercent)
	assert.Equal(t, 1, g.CorrectCount)
	assert.Equal(t, 2, g.TotalQuestions)
}
