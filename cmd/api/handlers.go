// cmd/api/handlers.go
// This file contains the HTTP request handlers for the books resource and
// the lookup endpoint.
package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/googlebooks"
)

// createBookHandler handles POST /api/books.
// It validates the JSON body, inserts the book and responds 201 with the
// stored record, including its database-assigned id.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.BookInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Normalize()
	if errs := input.Validate(); errs != nil {
		app.failedValidationResponse(w, r, errs)
		return
	}

	book := &data.Book{}
	input.Apply(book)

	err = app.books.Insert(r.Context(), book)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, book, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /api/books/:id.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, book, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /api/books.
// The optional search and genre query parameters narrow the list; the
// response is always a bare JSON array.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	filters := data.Filters{
		Search: app.readString(qs, "search", ""),
		Genre:  app.readString(qs, "genre", ""),
	}

	books, err := app.books.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, books, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PUT /api/books/:id.
// Every payload field is replaced; an omitted optional field is cleared.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input data.BookInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Normalize()
	if errs := input.Validate(); errs != nil {
		app.failedValidationResponse(w, r, errs)
		return
	}

	book, err := app.books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	input.Apply(book)

	err = app.books.Update(r.Context(), book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, book, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /api/books/:id.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.books.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listGenresHandler handles GET /api/genres.
func (app *applicationDependencies) listGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := app.books.Genres(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, genres, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listAuthorsHandler handles GET /api/authors.
func (app *applicationDependencies) listAuthorsHandler(w http.ResponseWriter, r *http.Request) {
	authors, err := app.books.Authors(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, authors, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// statsHandler handles GET /api/stats.
func (app *applicationDependencies) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.books.Stats(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, stats, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// searchGoogleBooksHandler handles GET /api/search-google-books?q=.
// A search with no matches is a 200 with an empty books array.
func (app *applicationDependencies) searchGoogleBooksHandler(w http.ResponseWriter, r *http.Request) {
	query := app.readString(r.URL.Query(), "q", "")

	results, err := app.search.Search(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, googlebooks.ErrEmptyQuery):
			app.badRequestResponse(w, r, errors.New("the search parameter q is required"))
		default:
			app.badGatewayResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{
		"success":    true,
		"totalItems": results.TotalItems,
		"books":      results.Books,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
