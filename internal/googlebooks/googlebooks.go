// Package googlebooks queries the Google Books volumes API and maps each
// volume onto the flat result shape the book form can autofill from.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// DefaultBaseURL is the public volumes endpoint.
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// DefaultMaxResults matches the number of suggestions the form shows.
	DefaultMaxResults = 5

	defaultTimeout = 10 * time.Second
)

// ErrEmptyQuery is returned when Search is called with a blank query.
var ErrEmptyQuery = errors.New("googlebooks: query must not be empty")

// Result is one suggested book. Year is nil when the published date has no
// four-digit year; the string fields are empty when Google has no value.
type Result struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Author      string   `json:"author,omitempty"`
	Year        *int     `json:"year,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	PageCount   int      `json:"pageCount,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// Results is the outcome of one search.
type Results struct {
	TotalItems int      `json:"totalItems"`
	Books      []Result `json:"books"`
}

// Cache stores search results by normalized query.
type Cache interface {
	Get(ctx context.Context, query string) (Results, bool, error)
	Set(ctx context.Context, query string, results Results) error
}

// Config configures a Client. Zero values select the defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	HTTPClient *http.Client
	Cache      Cache
	Logger     *slog.Logger
}

// Client searches Google Books.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	http       *http.Client
	cache      Cache
	logger     *slog.Logger
	sanitizer  *bluemonday.Policy
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		http:       cfg.HTTPClient,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		sanitizer:  bluemonday.StrictPolicy(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxResults <= 0 {
		c.maxResults = DefaultMaxResults
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Search looks query up and returns at most the configured number of results.
// A query with no matches returns empty Results and a nil error.
func (c *Client) Search(ctx context.Context, query string) (Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, ErrEmptyQuery
	}

	key := strings.ToLower(query)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			// A broken cache must not take search down with it.
			c.logger.Warn("lookup cache read failed", "query", key, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	results, err := c.fetch(ctx, query)
	if err != nil {
		return Results{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, results); err != nil {
			c.logger.Warn("lookup cache write failed", "query", key, "error", err)
		}
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, query string) (Results, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Results{}, fmt.Errorf("googlebooks: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Results{}, fmt.Errorf("googlebooks: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Results{}, fmt.Errorf("googlebooks: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Results{}, fmt.Errorf("googlebooks: decode response: %w", err)
	}

	results := Results{TotalItems: payload.TotalItems, Books: make([]Result, 0, len(payload.Items))}
	for _, item := range payload.Items {
		results.Books = append(results.Books, c.toResult(item.VolumeInfo))
	}
	return results, nil
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	PageCount           int      `json:"pageCount"`
	Language            string   `json:"language"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

func (c *Client) toResult(v volumeInfo) Result {
	r := Result{
		Title:       v.Title,
		Authors:     v.Authors,
		Author:      strings.Join(v.Authors, ", "),
		Year:        yearOf(v.PublishedDate),
		Categories:  v.Categories,
		Genre:       strings.Join(v.Categories, ", "),
		Description: c.plainText(v.Description),
		Thumbnail:   v.ImageLinks.Thumbnail,
		Publisher:   v.Publisher,
		PageCount:   v.PageCount,
		Language:    v.Language,
	}
	for _, id := range v.IndustryIdentifiers {
		if id.Type == "ISBN_13" || id.Type == "ISBN_10" {
			r.ISBN = id.Identifier
			break
		}
	}
	return r
}

// plainText strips markup from s. bluemonday escapes the text it keeps, so the
// result is unescaped again before it reaches a form field.
func (c *Client) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(s)))
}

// yearOf extracts the year from "YYYY", "YYYY-MM" or "YYYY-MM-DD".
func yearOf(published string) *int {
	head, _, _ := strings.Cut(published, "-")
	if len(head) != 4 {
		return nil
	}
	for _, r := range head {
		if r < '0' || r > '9' {
			return nil
		}
	}
	year, _ := strconv.Atoi(head)
	return &year
}
