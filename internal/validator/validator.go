// Package validator provides a Validator type for accumulating field-level
// validation errors and the rules the book form applies to raw input.
package validator

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validator holds a map of field names to their validation error messages.
// A Validator with an empty Errors map is considered valid.
type Validator struct {
	Errors map[string]string
}

// New creates and returns a fresh, empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if the Errors map contains no entries.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records key as failing with the given message.
// If key already has an error it is not overwritten, so the first
// failure for a field is always the one that is reported.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key with message only when ok is false.
// Use this as a single-line guard:
//
//	v.Check(validator.NotBlank(title), "title", "must be provided")
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Clear removes any error recorded for key.
func (v *Validator) Clear(key string) {
	delete(v.Errors, key)
}

// Has reports whether key currently has an error.
func (v *Validator) Has(key string) bool {
	_, ok := v.Errors[key]
	return ok
}

// NotBlank returns true if value contains anything besides whitespace.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxChars returns true if value, trimmed, has at most n characters.
func MaxChars(value string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(value)) <= n
}

// Between returns true if min <= value <= max.
func Between(value, min, max int) bool {
	return value >= min && value <= max
}

// OptionalIntBetween returns true if value is blank, or parses as an integer
// within [min, max].
func OptionalIntBetween(value string, min, max int) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return Between(n, min, max)
}

// In returns true if value is present in the list slice.
func In(value string, list ...string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}
