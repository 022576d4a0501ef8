// Package catalog holds the client's local copy of the book collection and
// the filtered view derived from it.
//
// The Cache exclusively owns both sets. The filtered view is recomputed from
// the full set whenever the criteria or the full set change; it is never
// edited directly.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/view"
)

// AnyGenre is the Criteria.Genre value that matches every record.
const AnyGenre = ""

// ErrSuperseded is returned by Load when a newer Load was issued before this
// one's response arrived. The response is dropped.
var ErrSuperseded = errors.New("catalog: superseded by a newer load")

// Store is the remote side the cache reads from and deletes through.
type Store interface {
	List(ctx context.Context) ([]data.Book, error)
	Delete(ctx context.Context, id int64) error
}

// Criteria selects the records shown in the filtered view.
type Criteria struct {
	Search string // case-insensitive substring; "" matches everything
	Genre  string // exact genre, or AnyGenre
}

// Matches reports whether book passes the criteria. Absent optional fields
// never match a search term or a concrete genre.
func (c Criteria) Matches(book data.Book) bool {
	return c.matchesSearch(book) && c.matchesGenre(book)
}

func (c Criteria) matchesSearch(book data.Book) bool {
	if c.Search == "" {
		return true
	}
	term := strings.ToLower(c.Search)
	if strings.Contains(strings.ToLower(book.Title), term) ||
		strings.Contains(strings.ToLower(book.Author), term) {
		return true
	}
	if book.Genre != nil && strings.Contains(strings.ToLower(*book.Genre), term) {
		return true
	}
	return book.Description != nil && strings.Contains(strings.ToLower(*book.Description), term)
}

func (c Criteria) matchesGenre(book data.Book) bool {
	if c.Genre == AnyGenre {
		return true
	}
	return book.Genre != nil && *book.Genre == c.Genre
}

// Cache is the page-session copy of the collection.
// It is safe for concurrent use; every mutation happens under one lock.
type Cache struct {
	store    Store
	renderer view.Renderer
	notifier view.Notifier
	logger   *slog.Logger

	mu       sync.RWMutex
	all      []data.Book
	filtered []data.Book
	criteria Criteria
	issued   uint64 // sequence number of the most recent Load
	version  uint64 // bumped on every change of the filtered view

	renderMu sync.Mutex
	rendered uint64 // version of the last list handed to the renderer
}

// Option configures a Cache.
type Option func(*Cache)

// WithRenderer makes the cache render the list after every change.
func WithRenderer(r view.Renderer) Option {
	return func(c *Cache) { c.renderer = r }
}

// WithNotifier receives a notification for every failed remote call.
func WithNotifier(n view.Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New returns an empty cache reading from store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		renderer: view.Discard{},
		notifier: view.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the full collection and replaces the local copy with it,
// re-applying the current criteria. On failure the previous contents stay in
// place and the error is returned after a notification has been shown.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	books, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("load books", "seq", seq, "error", err)
		c.notifier.Notify(view.Notification{Level: view.LevelError, Message: "Could not load books"})
		return fmt.Errorf("load books: %w", err)
	}

	c.mu.Lock()
	if latest := c.issued; seq != latest {
		c.mu.Unlock()
		c.logger.Debug("dropping stale load", "seq", seq, "latest", latest)
		return ErrSuperseded
	}
	c.all = books
	c.recompute()
	version, list := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Debug("books loaded", "seq", seq, "count", len(books))
	c.render(version, list)
	return nil
}

// SetFilter replaces the criteria and recomputes the filtered view before
// returning.
func (c *Cache) SetFilter(criteria Criteria) {
	c.mu.Lock()
	c.criteria = criteria
	c.recompute()
	version, list := c.bumpLocked()
	c.mu.Unlock()

	c.render(version, list)
}

// Criteria returns the criteria in effect.
func (c *Cache) Criteria() Criteria {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria
}

// View returns the list view model as the renderer would receive it.
func (c *Cache) View() view.List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listLocked()
}

// Filtered returns a copy of the filtered view in full-set order.
func (c *Cache) Filtered() []data.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.filtered)
}

// All returns a copy of the full set.
func (c *Cache) All() []data.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.all)
}

// Genres returns the distinct non-empty genres of the full set, sorted.
func (c *Cache) Genres() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return distinctGenres(c.all)
}

// Stats counts the records, genres and authors of the filtered view.
func (c *Cache) Stats() view.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsOf(c.filtered)
}

// Delete removes book id remotely and reloads on success. On failure the
// cache is left untouched.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Error("delete book", "id", id, "error", err)
		c.notifier.Notify(view.Notification{Level: view.LevelError, Message: "Could not delete book"})
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	c.notifier.Notify(view.Notification{Level: view.LevelSuccess, Message: "Book deleted"})
	return c.Load(ctx)
}

// Reload satisfies the form's reloader; it is Load under another name.
func (c *Cache) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// recompute rebuilds the filtered view. c.mu must be held for writing.
func (c *Cache) recompute() {
	filtered := make([]data.Book, 0, len(c.all))
	for _, book := range c.all {
		if c.criteria.Matches(book) {
			filtered = append(filtered, book)
		}
	}
	c.filtered = filtered
}

// bumpLocked records a state change and returns its version with the view
// to render. c.mu must be held for writing.
func (c *Cache) bumpLocked() (uint64, view.List) {
	c.version++
	return c.version, c.listLocked()
}

// render hands list to the renderer unless a newer version was already
// rendered. Renders never run concurrently, so the screen ends on the latest
// state.
func (c *Cache) render(version uint64, list view.List) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if version < c.rendered {
		c.logger.Debug("dropping stale render", "version", version, "rendered", c.rendered)
		return
	}
	c.rendered = version
	c.renderer.RenderList(list)
}

// listLocked builds the view model. c.mu must be held.
func (c *Cache) listLocked() view.List {
	return view.List{
		Records: slices.Clone(c.filtered),
		Genres:  distinctGenres(c.all),
		Search:  c.criteria.Search,
		Genre:   c.criteria.Genre,
		Stats:   statsOf(c.filtered),
	}
}

func distinctGenres(books []data.Book) []string {
	seen := make(map[string]struct{})
	genres := []string{}
	for _, b := range books {
		if b.Genre == nil || *b.Genre == "" {
			continue
		}
		if _, ok := seen[*b.Genre]; ok {
			continue
		}
		seen[*b.Genre] = struct{}{}
		genres = append(genres, *b.Genre)
	}
	slices.Sort(genres)
	return genres
}

func statsOf(books []data.Book) view.Stats {
	genres := make(map[string]struct{})
	authors := make(map[string]struct{})
	for _, b := range books {
		if b.Genre != nil && *b.Genre != "" {
			genres[*b.Genre] = struct{}{}
		}
		authors[b.Author] = struct{}{}
	}
	return view.Stats{Books: len(books), Genres: len(genres), Authors: len(authors)}
}
