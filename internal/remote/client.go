// Package remote is the HTTP client for the catalog API. Every method issues
// exactly one round trip and reports any failure as a *RemoteError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/googlebooks"
)

// Client talks to the catalog API rooted at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Timeouts are whatever hc enforces.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for the API at baseURL, e.g. "http://localhost:4000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every book in server order.
func (c *Client) List(ctx context.Context) ([]data.Book, error) {
	books := []data.Book{}
	if err := c.do(ctx, http.MethodGet, "/api/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Get returns the book with the given id.
func (c *Client) Get(ctx context.Context, id int64) (data.Book, error) {
	var book data.Book
	err := c.do(ctx, http.MethodGet, bookPath(id), nil, &book)
	return book, err
}

// Create stores a new book and returns it with its server-assigned id.
func (c *Client) Create(ctx context.Context, in data.BookInput) (data.Book, error) {
	var book data.Book
	err := c.do(ctx, http.MethodPost, "/api/books", in, &book)
	return book, err
}

// Update replaces the payload fields of book id.
func (c *Client) Update(ctx context.Context, id int64, in data.BookInput) (data.Book, error) {
	var book data.Book
	err := c.do(ctx, http.MethodPut, bookPath(id), in, &book)
	return book, err
}

// Delete removes book id. Any response body is ignored.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

// Genres returns the server's sorted list of distinct genres.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	genres := []string{}
	if err := c.do(ctx, http.MethodGet, "/api/genres", nil, &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

// Stats returns collection-wide counts.
func (c *Client) Stats(ctx context.Context) (data.Stats, error) {
	var s data.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &s)
	return s, err
}

// Search queries the third-party lookup endpoint. A response with no books
// yields an empty slice and a nil error.
func (c *Client) Search(ctx context.Context, query string) ([]googlebooks.Result, error) {
	var res googlebooks.Results
	path := "/api/search-google-books?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if res.Books == nil {
		res.Books = []googlebooks.Result{}
	}
	return res.Books, nil
}

func bookPath(id int64) string {
	return "/api/books/" + strconv.FormatInt(id, 10)
}

// do performs one request. body, when non-nil, is sent as JSON; dst, when
// non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return &RemoteError{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug("request done", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}

	if dst == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// errorMessage extracts the "error" member of a JSON error body. Field error
// maps are flattened into "field: message" pairs.
func errorMessage(resp *http.Response) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil {
			return s
		}
		var fields map[string]string
		if json.Unmarshal(env.Error, &fields) == nil {
			return joinFields(fields)
		}
	}
	return http.StatusText(resp.StatusCode)
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
