// Package errs holds the error taxonomy shared by the authoring, delivery and
// grading packages. HTTP handlers map Kind to a status code; Code is the stable
// machine-readable identifier sent to clients.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
	KindIntegrity
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindIntegrity:
		return "integrity"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

const (
	CodeInvalidDraft     = "invalid_draft"
	CodeInvalidAnswers   = "invalid_answers"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeAlreadyActive    = "already_active"
	CodeAlreadyCompleted = "already_completed"
	CodeNotCompleted     = "not_completed"
	CodeUnknownVariant   = "unknown_variant"
	CodeVariantMismatch  = "variant_mismatch"
	CodeCreateFailed     = "create_failed"
	CodeStorage          = "storage"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same Code, so the package-level values
// below work as sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidDraft     = &Error{Kind: KindValidation, Code: CodeInvalidDraft, Message: "invalid assessment draft"}
	ErrInvalidAnswers   = &Error{Kind: KindValidation, Code: CodeInvalidAnswers, Message: "invalid answers"}
	ErrNotFound         = &Error{Kind: KindNotFound, Code: CodeNotFound, Message: "not found"}
	ErrForbidden        = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "forbidden"}
	ErrAlreadyActive    = &Error{Kind: KindConflict, Code: CodeAlreadyActive, Message: "an attempt is already active for this assessment"}
	ErrAlreadyCompleted = &Error{Kind: KindConflict, Code: CodeAlreadyCompleted, Message: "attempt already completed"}
	ErrNotCompleted     = &Error{Kind: KindInvalidState, Code: CodeNotCompleted, Message: "attempt not completed"}
	ErrUnknownVariant   = &Error{Kind: KindIntegrity, Code: CodeUnknownVariant, Message: "unknown question variant"}
	ErrVariantMismatch  = &Error{Kind: KindIntegrity, Code: CodeVariantMismatch, Message: "question payload does not match its variant"}
	ErrCreateFailed     = &Error{Kind: KindStorage, Code: CodeCreateFailed, Message: "create assessment failed"}
	ErrStorage          = &Error{Kind: KindStorage, Code: CodeStorage, Message: "storage failure"}
)

func Validation(code, msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Code: code, Message: msg, Fields: fields}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func UnknownVariant(tag string) error {
	return &Error{Kind: KindIntegrity, Code: CodeUnknownVariant, Message: fmt.Sprintf("unknown question variant %q", tag)}
}

func VariantMismatch(format string, args ...any) error {
	return &Error{Kind: KindIntegrity, Code: CodeVariantMismatch, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a driver or transaction failure. The cause is kept for logs
// and errors.As, the message stays generic.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: op, Err: err}
}

// CreateFailed wraps any failure that aborted the create transaction. Typed
// errors raised inside the transaction (integrity, validation) pass through.
func CreateFailed(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return err
	}
	return &Error{Kind: KindStorage, Code: CodeCreateFailed, Message: "create assessment failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeStorage
// for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}
