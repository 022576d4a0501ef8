// Package form drives the add and edit book forms: field validation,
// payload construction, and submission against the catalog API.
//
// A Controller moves through Idle → Validating → Submitting → Success|Failed
// and back to Idle. Validation always finishes before any network call, and
// a submit attempted while another is in flight is rejected.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/googlebooks"
	"github.com/aoideee/bookshelf/internal/validator"
	"github.com/aoideee/bookshelf/internal/view"
)

// State is a step of the submission state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrSubmitInProgress is returned by Submit while an earlier submission has
// not finished.
var ErrSubmitInProgress = errors.New("form: submit already in progress")

// ErrUnknownField is returned for a field name the form does not have.
var ErrUnknownField = errors.New("form: unknown field")

// ValidationError lists the fields that blocked a submission. It never
// involves the network.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}
	return "form: invalid input: " + strings.Join(parts, "; ")
}

// Store is the remote side of the form.
type Store interface {
	Get(ctx context.Context, id int64) (data.Book, error)
	Create(ctx context.Context, in data.BookInput) (data.Book, error)
	Update(ctx context.Context, id int64, in data.BookInput) (data.Book, error)
}

// Reloader refreshes the catalog after a successful submission.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Outcome describes a successful submission.
type Outcome struct {
	Book data.Book
	// NavigateAway is set in edit mode: the caller should leave the form.
	NavigateAway bool
}

// Controller owns one form's values, field errors and submission state.
// It is safe for concurrent use.
type Controller struct {
	store        Store
	reloader     Reloader
	notifier     view.Notifier
	renderer     view.FormRenderer
	now          func() time.Time
	logger       *slog.Logger
	onTransition func(from, to State)

	mu     sync.Mutex
	editID int64 // 0 in create mode
	fields Fields
	errors *validator.Validator
	state  State
}

// Option configures a Controller.
type Option func(*Controller)

// WithReloader reloads r after every successful submission.
func WithReloader(r Reloader) Option {
	return func(c *Controller) { c.reloader = r }
}

// WithNotifier receives success and failure notifications.
func WithNotifier(n view.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithRenderer receives the field errors every time they change.
func WithRenderer(r view.FormRenderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// WithClock overrides the clock used by the year rule.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithTransitionHook calls fn on every state change, with the lock held.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) { c.onTransition = fn }
}

// NewCreate returns a controller for the add-book form.
func NewCreate(store Store, opts ...Option) *Controller {
	return newController(store, 0, opts)
}

// NewEdit returns a controller for editing book id. Call Load to populate it.
func NewEdit(store Store, id int64, opts ...Option) *Controller {
	return newController(store, id, opts)
}

func newController(store Store, id int64, opts []Option) *Controller {
	c := &Controller{
		store:    store,
		notifier: view.Discard{},
		renderer: view.Discard{},
		now:      time.Now,
		logger:   slog.Default(),
		editID:   id,
		errors:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Editing reports whether the form edits an existing book.
func (c *Controller) Editing() bool {
	return c.editID != 0
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fields returns the current raw values.
func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// Errors returns a copy of the field errors currently shown.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.errors.Errors)
}

// Load fetches the book being edited and fills the form with it.
func (c *Controller) Load(ctx context.Context) error {
	if !c.Editing() {
		return nil
	}
	book, err := c.store.Get(ctx, c.editID)
	if err != nil {
		c.logger.Error("load book for edit", "id", c.editID, "error", err)
		c.notifier.Notify(view.Notification{Level: view.LevelError, Message: "Could not load book data"})
		return fmt.Errorf("load book %d: %w", c.editID, err)
	}

	c.mu.Lock()
	c.fields = FieldsFromBook(book)
	c.errors = validator.New()
	c.mu.Unlock()
	c.renderer.RenderFieldErrors(view.FieldErrors{})
	return nil
}

// Set changes one field. A change can clear the field's error but never
// raises one; that happens on Blur or Submit.
func (c *Controller) Set(name, value string) error {
	if !knownField(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	c.mu.Lock()
	c.fields.set(name, value)
	cleared := false
	if c.errors.Has(name) && checkField(name, value, c.now()) == "" {
		c.errors.Clear(name)
		cleared = true
	}
	errs := view.FieldErrors(maps.Clone(c.errors.Errors))
	c.mu.Unlock()

	if cleared {
		c.renderer.RenderFieldErrors(errs)
	}
	return nil
}

// Blur validates one field and raises or clears its error. It reports
// whether the field is valid.
func (c *Controller) Blur(name string) (bool, error) {
	if !knownField(name) {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	c.mu.Lock()
	msg := checkField(name, c.fields.Get(name), c.now())
	c.errors.Clear(name)
	if msg != "" {
		c.errors.AddError(name, msg)
	}
	errs := view.FieldErrors(maps.Clone(c.errors.Errors))
	c.mu.Unlock()

	c.renderer.RenderFieldErrors(errs)
	return msg == "", nil
}

// Autofill replaces every field with a search result's values.
func (c *Controller) Autofill(r googlebooks.Result) {
	c.mu.Lock()
	c.fields = FieldsFromLookup(r)
	now := c.now()
	for name := range c.errors.Errors {
		if checkField(name, c.fields.Get(name), now) == "" {
			c.errors.Clear(name)
		}
	}
	errs := view.FieldErrors(maps.Clone(c.errors.Errors))
	c.mu.Unlock()

	c.renderer.RenderFieldErrors(errs)
	c.notifier.Notify(view.Notification{Level: view.LevelSuccess, Message: "Fields filled in automatically"})
}

// Submit validates the form and, if every rule passes, creates or updates
// the book. On success the catalog is reloaded; a create also clears the
// form. On a remote failure the entered values are kept.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}

	c.transition(StateValidating)
	c.errors = validateFields(c.fields, c.now())
	if !c.errors.Valid() {
		errs := maps.Clone(c.errors.Errors)
		c.transition(StateIdle)
		c.mu.Unlock()
		c.renderer.RenderFieldErrors(view.FieldErrors(errs))
		return Outcome{}, &ValidationError{Fields: errs}
	}

	payload := c.fields.Payload()
	c.transition(StateSubmitting)
	c.mu.Unlock()

	c.renderer.RenderFieldErrors(view.FieldErrors{})

	var (
		book data.Book
		err  error
	)
	if c.Editing() {
		book, err = c.store.Update(ctx, c.editID, payload)
	} else {
		book, err = c.store.Create(ctx, payload)
	}

	if err != nil {
		c.mu.Lock()
		c.transition(StateFailed)
		c.transition(StateIdle)
		c.mu.Unlock()

		c.logger.Error("submit book", "editing", c.Editing(), "error", err)
		c.notifier.Notify(view.Notification{Level: view.LevelError, Message: c.failureMessage()})
		return Outcome{}, fmt.Errorf("submit book: %w", err)
	}

	c.mu.Lock()
	c.transition(StateSuccess)
	if !c.Editing() {
		c.fields = Fields{}
	}
	c.mu.Unlock()

	c.notifier.Notify(view.Notification{Level: view.LevelSuccess, Message: c.successMessage()})
	if c.reloader != nil {
		// The reloader reports its own failures to the user.
		if err := c.reloader.Reload(ctx); err != nil {
			c.logger.Warn("reload after submit", "error", err)
		}
	}

	c.mu.Lock()
	c.transition(StateIdle)
	c.mu.Unlock()

	return Outcome{Book: book, NavigateAway: c.Editing()}, nil
}

// transition moves to state. c.mu must be held.
func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
}

func (c *Controller) successMessage() string {
	if c.Editing() {
		return "Book updated"
	}
	return "Book added"
}

func (c *Controller) failureMessage() string {
	if c.Editing() {
		return "Could not update book. Try again."
	}
	return "Could not add book. Try again."
}
