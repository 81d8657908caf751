package assessment

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-lingua/internal/errs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(questionPayload, Question{})
	return v
}

// questionPayload checks the tagged-union shape of a draft question: the
// payload named by the variant is the only one populated, and it is non-empty
// unless the variant is ungraded.
func questionPayload(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	shape, ok := shapes[q.Variant]
	if !ok {
		return // reported by the oneof tag
	}
	for v, other := range shapes {
		if v != q.Variant && other.count(q) > 0 {
			sl.ReportError(q.Variant, "variant", "Variant", "payload_mismatch", string(v))
		}
	}
	if q.Variant.Gradable() && shape.count(q) == 0 {
		sl.ReportError(q.Variant, "variant", "Variant", "payload_required", "")
	}
}

// ValidateDraft returns an *errs.Error with per-field details, or nil.
func ValidateDraft(d Draft) error {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation(errs.CodeInvalidDraft, err.Error())
	}
	fields := make([]errs.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errs.FieldError{
			Field: strings.TrimPrefix(fe.Namespace(), "Draft."),
			Error: fieldMessage(fe),
		})
	}
	return errs.Validation(errs.CodeInvalidDraft, "invalid assessment draft", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "payload_mismatch":
		return "carries a " + fe.Param() + " payload"
	case "payload_required":
		return "needs at least one item"
	}
	return "failed " + fe.Tag()
}
