package form

import (
	"strconv"
	"strings"
	"time"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/googlebooks"
	"github.com/aoideee/bookshelf/internal/validator"
)

// Field names, as used in error maps.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldYear        = "year"
	FieldGenre       = "genre"
	FieldDescription = "description"
)

// User-facing validation messages.
const (
	msgRequired = "This field is required"
	msgTooLong  = "This field must be at most 255 characters"
	msgYear     = "Enter a valid year"
)

// Fields holds the raw text of every form input.
type Fields struct {
	Title       string
	Author      string
	Year        string
	Genre       string
	Description string
}

// Get returns the raw value of the named field.
func (f Fields) Get(name string) string {
	switch name {
	case FieldTitle:
		return f.Title
	case FieldAuthor:
		return f.Author
	case FieldYear:
		return f.Year
	case FieldGenre:
		return f.Genre
	case FieldDescription:
		return f.Description
	}
	return ""
}

func (f *Fields) set(name, value string) {
	switch name {
	case FieldTitle:
		f.Title = value
	case FieldAuthor:
		f.Author = value
	case FieldYear:
		f.Year = value
	case FieldGenre:
		f.Genre = value
	case FieldDescription:
		f.Description = value
	}
}

// Payload builds the request body: title and author trimmed, blank optional
// strings absent, and year present only when the trimmed raw value is
// non-empty. Fields must have passed validation.
func (f Fields) Payload() data.BookInput {
	in := data.BookInput{
		Title:  strings.TrimSpace(f.Title),
		Author: strings.TrimSpace(f.Author),
	}
	if g := strings.TrimSpace(f.Genre); g != "" {
		in.Genre = &g
	}
	if d := strings.TrimSpace(f.Description); d != "" {
		in.Description = &d
	}
	if y := strings.TrimSpace(f.Year); y != "" {
		if n, err := strconv.Atoi(y); err == nil {
			in.Year = &n
		}
	}
	return in
}

// FieldsFromBook fills the form from a stored book. Absent values become "".
func FieldsFromBook(b data.Book) Fields {
	f := Fields{Title: b.Title, Author: b.Author}
	if b.Year != nil {
		f.Year = strconv.Itoa(*b.Year)
	}
	if b.Genre != nil {
		f.Genre = *b.Genre
	}
	if b.Description != nil {
		f.Description = *b.Description
	}
	return f
}

// FieldsFromLookup fills the form from a search result. Autofill does not
// keep the absent/empty distinction: anything missing becomes "".
func FieldsFromLookup(r googlebooks.Result) Fields {
	f := Fields{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Description: r.Description,
	}
	if r.Year != nil {
		f.Year = strconv.Itoa(*r.Year)
	}
	return f
}

// checkField applies every rule of the named field to value and returns the
// first failure message, or "" when the value passes.
func checkField(name, value string, now time.Time) string {
	v := validator.New()
	switch name {
	case FieldTitle, FieldAuthor:
		v.Check(validator.NotBlank(value), name, msgRequired)
		v.Check(validator.MaxChars(value, data.MaxTextLength), name, msgTooLong)
	case FieldGenre:
		v.Check(validator.MaxChars(value, data.MaxTextLength), name, msgTooLong)
	case FieldYear:
		v.Check(validator.OptionalIntBetween(value, data.MinYear, data.MaxYear(now)), name, msgYear)
	}
	return v.Errors[name]
}

// validateFields checks every field and returns the failures.
func validateFields(f Fields, now time.Time) *validator.Validator {
	v := validator.New()
	for _, name := range fieldNames {
		if msg := checkField(name, f.Get(name), now); msg != "" {
			v.AddError(name, msg)
		}
	}
	return v
}

var fieldNames = []string{FieldTitle, FieldAuthor, FieldYear, FieldGenre, FieldDescription}

func knownField(name string) bool {
	return validator.In(name, fieldNames...)
}
