package lookup

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/bookshelf/internal/googlebooks"
	"github.com/aoideee/bookshelf/internal/remote"
	"github.com/aoideee/bookshelf/internal/view"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results []googlebooks.Result
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, q string) ([]googlebooks.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.results, s.err
}

type recorder struct {
	mu            sync.Mutex
	states        []view.Lookup
	notifications []view.Notification
}

func (r *recorder) RenderLookup(l view.Lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, l)
}

func (r *recorder) Notify(n view.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func TestSearch_EmptyQueryNeverHitsNetwork(t *testing.T) {
	s := &fakeSearcher{}
	rec := &recorder{}
	b := New(s, WithNotifier(rec), WithRenderer(rec))

	_, err := b.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, s.queries)
	assert.Empty(t, rec.states)
	require.Len(t, rec.notifications, 1)
	assert.Equal(t, view.LevelWarning, rec.notifications[0].Level)

	var re *remote.RemoteError
	assert.False(t, errors.As(err, &re), "a blank query is not a remote error")
}

func TestSearch_NoResultsIsNotAnError(t *testing.T) {
	s := &fakeSearcher{results: []googlebooks.Result{}}
	rec := &recorder{}
	b := New(s, WithNotifier(rec), WithRenderer(rec))

	state, err := b.Search(context.Background(), "asimov")
	require.NoError(t, err)
	assert.Equal(t, view.LookupNoResults, state.Status)
	assert.Empty(t, rec.notifications)
	require.Len(t, rec.states, 2)
	assert.Equal(t, view.LookupLoading, rec.states[0].Status)
	assert.Equal(t, view.LookupNoResults, rec.states[1].Status)
}

func TestSearch_Results(t *testing.T) {
	s := &fakeSearcher{results: []googlebooks.Result{{Title: "Dune"}, {Title: "Dune Messiah"}}}
	b := New(s)

	state, err := b.Search(context.Background(), " dune ")
	require.NoError(t, err)
	assert.Equal(t, []string{"dune"}, s.queries)
	assert.Equal(t, view.LookupResults, state.Status)
	assert.Len(t, state.Results, 2)

	chosen, err := b.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", chosen.Title)
	assert.Equal(t, view.LookupIdle, b.State().Status, "selecting closes the panel")

	_, err = b.Select(0)
	assert.ErrorIs(t, err, ErrNoSuchResult)
}

func TestSearch_RemoteError(t *testing.T) {
	s := &fakeSearcher{err: &remote.RemoteError{StatusCode: http.StatusBadGateway, Message: "upstream down"}}
	rec := &recorder{}
	b := New(s, WithNotifier(rec))

	state, err := b.Search(context.Background(), "dune")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, remote.StatusCode(err))
	assert.Equal(t, view.LookupError, state.Status)
	require.Len(t, rec.notifications, 1)
	assert.Equal(t, view.LevelError, rec.notifications[0].Level)
}

// gatedSearcher blocks every call until released with that call's results.
type gatedSearcher struct {
	calls chan chan []googlebooks.Result
}

func (s *gatedSearcher) Search(context.Context, string) ([]googlebooks.Result, error) {
	reply := make(chan []googlebooks.Result)
	s.calls <- reply
	return <-reply, nil
}

func TestSearch_LastIssuedWins(t *testing.T) {
	s := &gatedSearcher{calls: make(chan chan []googlebooks.Result)}
	b := New(s)

	type outcome struct {
		state view.Lookup
		err   error
	}
	out := make(chan outcome, 2)
	search := func(q string) {
		st, err := b.Search(context.Background(), q)
		out <- outcome{st, err}
	}

	go search("first")
	first := <-s.calls
	go search("second")
	second := <-s.calls

	second <- []googlebooks.Result{{Title: "Second"}}
	got := <-out
	require.NoError(t, got.err)

	first <- []googlebooks.Result{{Title: "First"}}
	got = <-out
	assert.ErrorIs(t, got.err, ErrSuperseded)

	state := b.State()
	assert.Equal(t, "second", state.Query)
	require.Len(t, state.Results, 1)
	assert.Equal(t, "Second", state.Results[0].Title)
}

func TestClear_DropsInFlightSearch(t *testing.T) {
	s := &gatedSearcher{calls: make(chan chan []googlebooks.Result)}
	b := New(s)

	errs := make(chan error, 1)
	go func() {
		_, err := b.Search(context.Background(), "dune")
		errs <- err
	}()
	reply := <-s.calls
	b.Clear()
	reply <- []googlebooks.Result{{Title: "Dune"}}

	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Equal(t, view.LookupIdle, b.State().Status)
}

// gatedRenderer holds up the render of one status until released.
type gatedRenderer struct {
	recorder
	block   view.LookupStatus
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRenderer) RenderLookup(l view.Lookup) {
	if l.Status == g.block {
		g.entered <- struct{}{}
		<-g.release
	}
	g.recorder.RenderLookup(l)
}

func TestClear_LateResultsRenderNeverReopensPanel(t *testing.T) {
	g := &gatedRenderer{
		block:   view.LookupResults,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	b := New(&fakeSearcher{results: []googlebooks.Result{{Title: "Dune"}}}, WithRenderer(g))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := b.Search(context.Background(), "dune")
		assert.NoError(t, err)
	}()
	<-g.entered

	go func() {
		defer wg.Done()
		b.Clear()
	}()
	require.Eventually(t, func() bool { return b.State().Status == view.LookupIdle }, time.Second, time.Millisecond)

	close(g.release)
	wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.states)
	assert.Equal(t, view.LookupIdle, g.states[len(g.states)-1].Status)
}
