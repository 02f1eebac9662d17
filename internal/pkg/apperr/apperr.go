package apperr

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies service errors so handlers can map them to HTTP status codes.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindStateConflict Kind = "state_conflict"
)

// Error carries an error kind, a human-readable message, and (for validation
// errors) a map of field name to violation detail.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for f, msg := range e.Fields {
			parts = append(parts, f+": "+msg)
		}
		return e.Message + " (" + strings.Join(parts, "; ") + ")"
	}
	return e.Message
}

// Validation builds a field-level validation error. All violated fields are
// reported together rather than failing fast on the first.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// ValidationField builds a validation error for a single field.
func ValidationField(field, msg string) *Error {
	return Validation(map[string]string{field: msg})
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func StateConflict(msg string) *Error {
	return &Error{Kind: KindStateConflict, Message: msg}
}

// As unwraps err into *Error if possible.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// HTTPStatus maps an error to the transport status code handlers should send.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindForbidden:
		return fiber.StatusForbidden
	case KindStateConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Details returns the field map for validation errors, nil otherwise.
// Handlers pass this through as the error response details object.
func Details(err error) interface{} {
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		return e.Fields
	}
	return nil
}
