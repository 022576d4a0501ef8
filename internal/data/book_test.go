package data

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBookInput_Normalize(t *testing.T) {
	in := BookInput{
		Title:       "  Dune ",
		Author:      "\tFrank Herbert\n",
		Genre:       strPtr("   "),
		Description: strPtr(" Spice. "),
	}
	in.Normalize()

	assert.Equal(t, "Dune", in.Title)
	assert.Equal(t, "Frank Herbert", in.Author)
	assert.Nil(t, in.Genre, "blank genre must become absent")
	require.NotNil(t, in.Description)
	assert.Equal(t, "Spice.", *in.Description)
}

func TestBookInput_Validate(t *testing.T) {
	maxYear := MaxYear(time.Now())

	tests := []struct {
		name   string
		input  BookInput
		fields []string
	}{
		{name: "minimal", input: BookInput{Title: "Dune", Author: "Herbert"}},
		{name: "all fields", input: BookInput{Title: "Dune", Author: "Herbert", Genre: strPtr("SF"), Description: strPtr("x"), Year: intPtr(1965)}},
		{name: "missing title", input: BookInput{Author: "Herbert"}, fields: []string{"title"}},
		{name: "missing both", input: BookInput{}, fields: []string{"title", "author"}},
		{name: "long author", input: BookInput{Title: "T", Author: strings.Repeat("a", 256)}, fields: []string{"author"}},
		{name: "255 multibyte runes", input: BookInput{Title: strings.Repeat("é", 255), Author: "A"}},
		{name: "long genre", input: BookInput{Title: "T", Author: "A", Genre: strPtr(strings.Repeat("g", 256))}, fields: []string{"genre"}},
		{name: "year lower bound", input: BookInput{Title: "T", Author: "A", Year: intPtr(1000)}},
		{name: "year upper bound", input: BookInput{Title: "T", Author: "A", Year: intPtr(maxYear)}},
		{name: "year too small", input: BookInput{Title: "T", Author: "A", Year: intPtr(999)}, fields: []string{"year"}},
		{name: "year too large", input: BookInput{Title: "T", Author: "A", Year: intPtr(maxYear + 1)}, fields: []string{"year"}},
		{name: "year zero", input: BookInput{Title: "T", Author: "A", Year: intPtr(0)}, fields: []string{"year"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.input.Validate()
			if len(tt.fields) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Len(t, errs, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestBookInput_Apply(t *testing.T) {
	book := &Book{ID: 7, Title: "Old", Author: "Old", Genre: strPtr("Old")}
	in := BookInput{Title: "New", Author: "Author", Year: intPtr(2001)}
	in.Apply(book)

	assert.Equal(t, int64(7), book.ID, "id must never change")
	assert.Equal(t, "New", book.Title)
	assert.Nil(t, book.Genre)
	assert.Equal(t, 2001, *book.Year)
}

func TestMaxYear(t *testing.T) {
	now := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2027, MaxYear(now))
}

func TestCustomRulesRegistered(t *testing.T) {
	in := BookInput{Title: strings.Repeat("é", MaxTextLength+1), Author: "A", Year: intPtr(MinYear - 1)}
	errs := in.Validate()
	assert.Equal(t, "must not be more than 255 characters long", errs["title"])
	assert.Equal(t, "must be a valid year", errs["year"])
}

func TestMustRegister_PanicsOnFailure(t *testing.T) {
	assert.Panics(t, func() { mustRegister("", validateMaxChars) })
}
