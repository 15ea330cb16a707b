package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalid  = errors.New("invalid")
	ErrNotFound = errors.New("not found")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:\n")
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{
		Field:   field,
		Message: msg,
	})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// Fields lists the violated field paths in insertion order.
func (e ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		out = append(out, item.Field)
	}
	return out
}

// InvalidDocumentError reports a document that was excluded from the collection.
type InvalidDocumentError struct {
	ID         string
	Violations ValidationError
}

func NewInvalidDocument(id, field, msg string) *InvalidDocumentError {
	e := &InvalidDocumentError{ID: id}
	e.Violations.Add(field, msg)
	return e
}

func (e *InvalidDocumentError) Error() string {
	parts := make([]string, 0, len(e.Violations.Items))
	for _, item := range e.Violations.Items {
		parts = append(parts, item.Error())
	}
	return fmt.Sprintf("invalid document %q: %s", e.ID, strings.Join(parts, "; "))
}

func (e *InvalidDocumentError) Is(target error) bool {
	return target == ErrInvalid
}

// StoreUnavailableError wraps a failure of the document store itself.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("document store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
