// Package view defines what the client core hands to the presentation layer.
// The flow is one way: the core renders, it never reads rendered output back.
package view

import (
	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/googlebooks"
)

// Level is the severity of a Notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
}

// Stats summarises the records currently shown.
type Stats struct {
	Books   int
	Genres  int
	Authors int
}

// List is the catalog page: the filtered records plus everything needed to
// draw the filter controls.
type List struct {
	Records []data.Book
	Genres  []string
	Search  string
	Genre   string
	Stats   Stats
}

// Empty reports whether the empty state should be shown.
func (l List) Empty() bool { return len(l.Records) == 0 }

// LookupStatus is the state of the third-party search panel.
type LookupStatus int

const (
	LookupIdle LookupStatus = iota
	LookupLoading
	LookupResults
	LookupNoResults
	LookupError
)

// Lookup is the search panel.
type Lookup struct {
	Status  LookupStatus
	Query   string
	Results []googlebooks.Result
	Message string
}

// FieldErrors maps a form field name to the message shown next to it.
// An empty map clears every field error.
type FieldErrors map[string]string

// Renderer draws catalog state.
type Renderer interface {
	RenderList(List)
}

// Notifier shows transient notifications.
type Notifier interface {
	Notify(Notification)
}

// FormRenderer draws field errors next to form inputs.
type FormRenderer interface {
	RenderFieldErrors(FieldErrors)
}

// LookupRenderer draws the search panel.
type LookupRenderer interface {
	RenderLookup(Lookup)
}

// Discard implements every rendering interface and draws nothing.
type Discard struct{}

func (Discard) RenderList(List)               {}
func (Discard) Notify(Notification)           {}
func (Discard) RenderFieldErrors(FieldErrors) {}
func (Discard) RenderLookup(Lookup)           {}
