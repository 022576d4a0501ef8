// Package data provides the data models and database interaction logic
// for the book catalog.
package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxTextLength is the longest title, author, or genre the catalog accepts,
// counted in characters after trimming.
const MaxTextLength = 255

// MinYear is the earliest publication year the catalog accepts.
const MinYear = 1000

// Book represents a single catalog entry.
// It maps directly to a row in the "books" table.
type Book struct {
	ID          int64     `json:"id"`                    // Assigned by the database, never changed afterwards
	Title       string    `json:"title"`                 // Never empty in a persisted book
	Author      string    `json:"author"`                // Never empty in a persisted book
	Year        *int      `json:"year,omitempty"`        // nil when the year is unknown
	Genre       *string   `json:"genre,omitempty"`       // nil when absent, distinct from ""
	Description *string   `json:"description,omitempty"` // nil when absent, distinct from ""
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookInput holds the fields a client sends when creating or replacing a book.
// Optional fields are pointers so that "not provided" is omitted from the
// JSON body instead of being sent as zero or null.
type BookInput struct {
	Title       string  `json:"title"                 validate:"required,maxchars"`
	Author      string  `json:"author"                validate:"required,maxchars"`
	Genre       *string `json:"genre,omitempty"       validate:"omitempty,maxchars"`
	Description *string `json:"description,omitempty"`
	Year        *int    `json:"year,omitempty"        validate:"omitempty,bookyear"`
}

// Normalize trims title and author and maps blank optional strings to nil.
func (in *BookInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Genre = trimOptional(in.Genre)
	in.Description = trimOptional(in.Description)
}

// Validate checks the input against its struct tags and returns a map of
// JSON field name to message, or nil when the input is valid.
// Normalize should be called first.
func (in *BookInput) Validate() map[string]string {
	err := bookValidate.Struct(in)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"input": err.Error()}
	}

	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[jsonName(fe.Field())] = messageFor(fe.Tag())
	}
	return out
}

// Apply copies the input onto book, replacing every payload field.
func (in *BookInput) Apply(book *Book) {
	book.Title = in.Title
	book.Author = in.Author
	book.Year = in.Year
	book.Genre = in.Genre
	book.Description = in.Description
}

// MaxYear returns the latest publication year accepted at time now.
func MaxYear(now time.Time) int {
	return now.Year() + 1
}

// bookValidate is shared by every BookInput; validator.Validate caches
// struct metadata and is safe for concurrent use.
var bookValidate *validator.Validate

func init() {
	bookValidate = validator.New()
	mustRegister("maxchars", validateMaxChars)
	mustRegister("bookyear", validateBookYear)
}

// mustRegister panics if a custom rule cannot be registered.
func mustRegister(tag string, fn validator.Func) {
	if err := bookValidate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("data: register %q validation: %v", tag, err))
	}
}

func validateMaxChars(fl validator.FieldLevel) bool {
	return len([]rune(fl.Field().String())) <= MaxTextLength
}

func validateBookYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	return year >= MinYear && year <= MaxYear(time.Now())
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "must be provided"
	case "maxchars":
		return "must not be more than 255 characters long"
	case "bookyear":
		return "must be a valid year"
	default:
		return "is invalid"
	}
}

func jsonName(field string) string {
	return strings.ToLower(field)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
