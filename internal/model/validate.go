package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add records a failure for field. An empty message is ignored so checks
// can be chained without branching.
func (e *ValidationError) Add(field, msg string) {
	if msg == "" {
		return
	}
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// Err returns e as an error when it holds failures, nil otherwise.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// checkText validates a trimmed string against required and max-length rules.
func checkText(s string, required bool, max int) string {
	n := len([]rune(strings.TrimSpace(s)))
	if required && n == 0 {
		return "is required"
	}
	if max > 0 && n > max {
		return fmt.Sprintf("must be %d characters or fewer", max)
	}
	return ""
}

func checkEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "is required"
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Sprintf("invalid email address %q", s)
	}
	return ""
}

func checkID(id int64) string {
	if id <= 0 {
		return "must be a positive id"
	}
	return ""
}
