package validation

import (
	"fmt"
	"strings"
)

// ValidationError is a field-level, user-correctable problem. Its message is
// safe to show verbatim.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fail(field, reason string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

// Results collects every field error of one submission instead of stopping at
// the first.
type Results struct {
	errors []*ValidationError
}

// Add records err if it is a *ValidationError; nil is ignored. Any other
// error is recorded under the "general" field.
func (r *Results) Add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		r.errors = append(r.errors, ve)
		return
	}
	r.errors = append(r.errors, &ValidationError{Field: "general", Reason: err.Error()})
}

func (r *Results) Valid() bool {
	return len(r.errors) == 0
}

func (r *Results) Errors() []*ValidationError {
	return r.errors
}

// Fields returns the failing field names in the order they failed.
func (r *Results) Fields() []string {
	fields := make([]string, 0, len(r.errors))
	for _, e := range r.errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func (r *Results) Error() string {
	parts := make([]string, 0, len(r.errors))
	for _, e := range r.errors {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Err returns r as an error, or nil when nothing failed.
func (r *Results) Err() error {
	if r.Valid() {
		return nil
	}
	return r
}
