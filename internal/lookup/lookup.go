// Package lookup searches a third-party book catalog so the book form can be
// filled in with one click.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aoideee/bookshelf/internal/googlebooks"
	"github.com/aoideee/bookshelf/internal/view"
)

// ErrEmptyQuery rejects a blank search before any request is made.
var ErrEmptyQuery = errors.New("lookup: empty query")

// EmptyQueryMessage is what the user is told about a blank search.
const EmptyQueryMessage = "Enter the book name to search"

// ErrSuperseded is returned when a newer search was started before this
// one's response arrived. The response is not shown.
var ErrSuperseded = errors.New("lookup: superseded by a newer search")

// ErrNoSuchResult is returned by Select for an index outside the results.
var ErrNoSuchResult = errors.New("lookup: no such result")

// Searcher runs one search round trip.
type Searcher interface {
	Search(ctx context.Context, query string) ([]googlebooks.Result, error)
}

// Bridge holds the state of the search panel.
// It is safe for concurrent use.
type Bridge struct {
	searcher Searcher
	renderer view.LookupRenderer
	notifier view.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	issued  uint64
	state   view.Lookup
	version uint64 // bumped on every state change

	renderMu sync.Mutex
	rendered uint64 // version of the last state handed to the renderer
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRenderer receives the panel state after every change.
func WithRenderer(r view.LookupRenderer) Option {
	return func(b *Bridge) { b.renderer = r }
}

// WithNotifier receives validation and failure notifications.
func WithNotifier(n view.Notifier) Option {
	return func(b *Bridge) { b.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New returns an idle Bridge.
func New(s Searcher, opts ...Option) *Bridge {
	b := &Bridge{
		searcher: s,
		renderer: view.Discard{},
		notifier: view.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current panel state.
func (b *Bridge) State() view.Lookup {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneLookup(b.state)
}

// Search looks query up. Zero results is a valid outcome reported as
// view.LookupNoResults, not as an error.
func (b *Bridge) Search(ctx context.Context, query string) (view.Lookup, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.notifier.Notify(view.Notification{Level: view.LevelWarning, Message: EmptyQueryMessage})
		return b.State(), ErrEmptyQuery
	}

	b.mu.Lock()
	b.issued++
	seq := b.issued
	loadingVersion, loading := b.setLocked(view.Lookup{Status: view.LookupLoading, Query: query})
	b.mu.Unlock()
	b.render(loadingVersion, loading)

	results, err := b.searcher.Search(ctx, query)
	if err != nil {
		b.logger.Error("lookup search", "query", query, "seq", seq, "error", err)
		b.notifier.Notify(view.Notification{Level: view.LevelError, Message: "Search failed: " + err.Error()})
	}

	b.mu.Lock()
	if seq != b.issued {
		b.mu.Unlock()
		b.logger.Debug("dropping stale lookup", "query", query, "seq", seq)
		if err != nil {
			return view.Lookup{}, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		return view.Lookup{}, ErrSuperseded
	}

	var next view.Lookup
	switch {
	case err != nil:
		next = view.Lookup{Status: view.LookupError, Query: query, Message: err.Error()}
	case len(results) == 0:
		next = view.Lookup{Status: view.LookupNoResults, Query: query}
	default:
		next = view.Lookup{Status: view.LookupResults, Query: query, Results: results}
	}
	version, state := b.setLocked(next)
	b.mu.Unlock()

	b.render(version, state)
	if err != nil {
		return state, fmt.Errorf("lookup %q: %w", query, err)
	}
	return state, nil
}

// Select returns result i (zero-based) of the current results and closes
// the panel.
func (b *Bridge) Select(i int) (googlebooks.Result, error) {
	b.mu.Lock()
	if b.state.Status != view.LookupResults || i < 0 || i >= len(b.state.Results) {
		b.mu.Unlock()
		return googlebooks.Result{}, ErrNoSuchResult
	}
	chosen := b.state.Results[i]
	version, idle := b.setLocked(view.Lookup{Status: view.LookupIdle})
	b.mu.Unlock()

	b.render(version, idle)
	return chosen, nil
}

// Clear closes the panel. Any search still in flight will be ignored.
func (b *Bridge) Clear() {
	b.mu.Lock()
	b.issued++
	version, idle := b.setLocked(view.Lookup{Status: view.LookupIdle})
	b.mu.Unlock()

	b.render(version, idle)
}

// setLocked replaces the panel state and returns its version with a copy to
// render. b.mu must be held.
func (b *Bridge) setLocked(l view.Lookup) (uint64, view.Lookup) {
	b.state = l
	b.version++
	return b.version, cloneLookup(l)
}

// render hands l to the renderer unless a newer state was already rendered.
func (b *Bridge) render(version uint64, l view.Lookup) {
	b.renderMu.Lock()
	defer b.renderMu.Unlock()
	if version < b.rendered {
		b.logger.Debug("dropping stale render", "version", version, "rendered", b.rendered)
		return
	}
	b.rendered = version
	b.renderer.RenderLookup(l)
}

func cloneLookup(l view.Lookup) view.Lookup {
	l.Results = slices.Clone(l.Results)
	return l
}
