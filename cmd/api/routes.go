// cmd/api/routes.go
package main

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the middleware chain.
//
// Middleware chain (outermost → innermost):
//
//	requestID → logRequest → recoverPanic → rateLimit → router
//
// Current endpoints:
//
//	GET    /api/books                 – list books (?search=&genre=)
//	POST   /api/books                 – create a book
//	GET    /api/books/:id             – show one book
//	PUT    /api/books/:id             – replace a book's fields
//	DELETE /api/books/:id             – delete a book
//	GET    /api/genres                – distinct genres
//	GET    /api/authors               – distinct authors
//	GET    /api/stats                 – collection counts
//	GET    /api/search-google-books   – third-party lookup (?q=)
//	GET    /metrics                   – Prometheus metrics
//
// Background work started here stops when ctx is done.
func (app *applicationDependencies) routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/api/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/api/books", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/api/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPut, "/api/books/:id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/api/books/:id", app.deleteBookHandler)

	router.HandlerFunc(http.MethodGet, "/api/genres", app.listGenresHandler)
	router.HandlerFunc(http.MethodGet, "/api/authors", app.listAuthorsHandler)
	router.HandlerFunc(http.MethodGet, "/api/stats", app.statsHandler)

	router.HandlerFunc(http.MethodGet, "/api/search-google-books", app.searchGoogleBooksHandler)

	router.Handler(http.MethodGet, "/metrics", app.metrics.handler())

	return app.requestID(app.logRequest(app.recoverPanic(app.rateLimit(ctx, router))))
}
