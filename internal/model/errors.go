package model

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a referenced template, document, or draft instance that
// does not exist. Wrap it with context: fmt.Errorf("store: template %s: %w",
// id, model.ErrNotFound).
var ErrNotFound = errors.New("not found")

// ValidationError reports caller input the pipeline refuses to process:
// empty documents, template id collisions, missing required answers.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
