package grading

import (
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
)

// normalize lower-cases and trims.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeChoice is normalize plus removal of a trailing "(correct)" marker.
func normalizeChoice(s string) string {
	return strings.ToLower(assessment.StripCorrectMarker(s))
}

// multipleChoiceStrategy matches on normalized text first. Failing that it
// accepts the 0-based position of the correct option, so "2" is right when
// the third option is the correct one.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Gradable() bool { return true }

func (multipleChoiceStrategy) Correct(item assessment.Item, answer string) bool {
	want := normalizeChoice(item.Answer)
	if normalizeChoice(answer) == want {
		return true
	}
	correctIdx := -1
	for i, o := range item.Options {
		if normalizeChoice(o) == want {
			correctIdx = i
			break
		}
	}
	if correctIdx < 0 {
		return false
	}
	// a non-numeric answer just fails this check
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false
	}
	return n == correctIdx
}

// exactTextStrategy serves fill-in-blank and matching: normalized equality,
// no stemming.
type exactTextStrategy struct{}

func (exactTextStrategy) Gradable() bool { return true }

func (exactTextStrategy) Correct(item assessment.Item, answer string) bool {
	return normalize(answer) == normalize(item.Answer)
}

type ungradedStrategy struct{}

func (ungradedStrategy) Gradable() bool                       { return false }
func (ungradedStrategy) Correct(assessment.Item, string) bool { return false }
