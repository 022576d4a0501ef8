package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/form"
	"github.com/aoideee/bookshelf/internal/googlebooks"
)

// fakeAPI serves the catalog endpoints from memory and records every write.
type fakeAPI struct {
	mu      sync.Mutex
	books   []data.Book
	results []googlebooks.Result
	writes  []string
	bodies  []map[string]any
}

func ptr[T any](v T) *T { return &v }

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/books", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.books)
	})
	mux.HandleFunc("GET /api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if i := f.index(r); i >= 0 {
			writeJSON(w, http.StatusOK, f.books[i])
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	mux.HandleFunc("POST /api/books", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var in data.BookInput
		raw := f.record(r, &in)
		f.writes = append(f.writes, "POST")
		f.bodies = append(f.bodies, raw)
		book := data.Book{ID: int64(len(f.books) + 1)}
		in.Apply(&book)
		f.books = append(f.books, book)
		writeJSON(w, http.StatusCreated, book)
	})
	mux.HandleFunc("PUT /api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var in data.BookInput
		raw := f.record(r, &in)
		f.writes = append(f.writes, "PUT "+r.PathValue("id"))
		f.bodies = append(f.bodies, raw)
		i := f.index(r)
		in.Apply(&f.books[i])
		writeJSON(w, http.StatusOK, f.books[i])
	})
	mux.HandleFunc("DELETE /api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes = append(f.writes, "DELETE "+r.PathValue("id"))
		i := f.index(r)
		f.books = append(f.books[:i], f.books[i+1:]...)
		writeJSON(w, http.StatusOK, map[string]string{"message": "book successfully deleted"})
	})
	mux.HandleFunc("GET /api/genres", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []string{"Classic", "Sci-Fi"})
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, data.Stats{TotalBooks: 3, TotalGenres: 2, TotalAuthors: 2})
	})
	mux.HandleFunc("GET /api/search-google-books", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"books": f.results, "totalItems": len(f.results)})
	})
	return mux
}

func (f *fakeAPI) index(r *http.Request) int {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	for i, b := range f.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) record(r *http.Request, in *data.BookInput) map[string]any {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r.Body)
	_ = json.Unmarshal(buf.Bytes(), in)
	raw := map[string]any{}
	_ = json.Unmarshal(buf.Bytes(), &raw)
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	api := &fakeAPI{books: []data.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Year: ptr(1965), Genre: ptr("Sci-Fi")},
		{ID: 2, Title: "Emma", Author: "Jane Austen", Genre: ptr("Classic")},
		{ID: 3, Title: "Persuasion", Author: "Jane Austen", Genre: ptr("Classic")},
	}}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return api, srv.URL
}

// shelf runs the CLI against url and returns stdout.
func shelf(t *testing.T, url, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHELF_API_URL", "")
	t.Setenv("SHELF_NO_COLOR", "1")
	full := append([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--api-url", url,
	}, args...)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestList_FiltersByGenre(t *testing.T) {
	_, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "list", "--genre", "Classic")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")
	assert.Contains(t, out, "Persuasion")
	assert.NotContains(t, out, "Dune")
	assert.Contains(t, out, "2 books · 1 genres · 1 authors")
}

func TestList_SearchWithNoMatches(t *testing.T) {
	_, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "list", "-s", "tolkien")
	require.NoError(t, err)
	assert.Contains(t, out, "No books found.")
}

func TestShow(t *testing.T) {
	_, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "title:       Dune")
	assert.Contains(t, out, "year:        1965")

	_, err = shelf(t, url, "", "show", "42")
	assert.Error(t, err)
}

func TestAdd(t *testing.T) {
	api, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "add", "--title", " Hyperion ", "--author", "Dan Simmons", "--year", "1989")
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Book added")
	assert.Contains(t, out, "id:          4")

	require.Equal(t, []string{"POST"}, api.writes)
	assert.Equal(t, map[string]any{"title": "Hyperion", "author": "Dan Simmons", "year": float64(1989)}, api.bodies[0])
}

func TestAdd_InvalidNeverReachesServer(t *testing.T) {
	api, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "add", "--title", "Hyperion", "--year", "12")
	var verr *form.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"author": "This field is required", "year": "Enter a valid year"}, verr.Fields)
	assert.Contains(t, out, "author: This field is required")
	assert.Empty(t, api.writes)
}

func TestAdd_FromLookup(t *testing.T) {
	api, url := newFakeAPI(t)
	api.results = []googlebooks.Result{
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Year: ptr(1937), Genre: "Fiction"},
		{Title: "The Hobbit: Graphic Novel", Author: "Chuck Dixon"},
	}

	_, err := shelf(t, url, "", "add", "--from", "hobbit", "--pick", "2", "--genre", "Comics")
	require.NoError(t, err)
	require.Len(t, api.bodies, 1)
	assert.Equal(t, map[string]any{"title": "The Hobbit: Graphic Novel", "author": "Chuck Dixon", "genre": "Comics"}, api.bodies[0])
}

func TestEdit_ClearsAndReplaces(t *testing.T) {
	api, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "edit", "1", "--author", "F. Herbert", "--clear", "genre")
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Book updated")

	require.Equal(t, []string{"PUT 1"}, api.writes)
	assert.Equal(t, map[string]any{"title": "Dune", "author": "F. Herbert", "year": float64(1965)}, api.bodies[0])
}

func TestDelete_Confirmation(t *testing.T) {
	api, url := newFakeAPI(t)

	out, err := shelf(t, url, "n\n", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `Delete "Emma" by Jane Austen? [y/N]`)
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, api.writes)

	out, err = shelf(t, url, "y\n", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Book deleted")
	assert.Equal(t, []string{"DELETE 2"}, api.writes)
}

func TestLookup(t *testing.T) {
	api, url := newFakeAPI(t)
	api.results = []googlebooks.Result{{Title: "Dune Messiah", Year: ptr(1969)}}

	out, err := shelf(t, url, "", "lookup", "dune", "messiah")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Dune Messiah by unknown author")

	api.results = nil
	out, err = shelf(t, url, "", "lookup", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No books found. Try a different search.")

	_, err = shelf(t, url, "", "lookup", "   ")
	assert.Error(t, err)
}

func TestGenresAndStats(t *testing.T) {
	_, url := newFakeAPI(t)

	out, err := shelf(t, url, "", "genres")
	require.NoError(t, err)
	assert.Equal(t, "Classic\nSci-Fi\n", out)

	out, err = shelf(t, url, "", "stats")
	require.NoError(t, err)
	assert.Equal(t, "books: 3\ngenres: 2\nauthors: 2\n", out)
}

func TestBadAPIURL(t *testing.T) {
	_, err := shelf(t, "not a url", "", "stats")
	assert.ErrorContains(t, err, "api.url")
}
