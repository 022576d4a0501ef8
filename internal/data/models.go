// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// queryTimeout bounds every statement issued by BookModel.
const queryTimeout = 3 * time.Second

// Models is a top-level container that groups all database model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sql directly.
type Models struct {
	Books BookModel
}

// NewModels constructs a Models value wired up to the given database connection pool.
func NewModels(db *sql.DB) Models {
	return Models{
		Books: BookModel{DB: db},
	}
}

// ErrRecordNotFound is returned when a query finds no matching row.
var ErrRecordNotFound = errors.New("record not found")

// Filters narrows a book listing. The zero value lists every book.
type Filters struct {
	Search string // case-insensitive substring of title, author or genre
	Genre  string // case-insensitive substring of genre; "" means any
}

// Stats summarises the whole collection.
type Stats struct {
	TotalBooks   int `json:"total_books"`
	TotalGenres  int `json:"total_genres"`
	TotalAuthors int `json:"total_authors"`
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sql.DB
}

// Insert adds a new book record to the database.
// The database-assigned id and timestamps are written back into book.
func (m BookModel) Insert(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (title, author, year, genre, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query,
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.Description,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
}

// Get retrieves a single book by its primary key.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, title, author, year, genre, description, created_at, updated_at
		FROM books
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	book, err := scanBook(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

// GetAll retrieves every book matching filters in insertion order.
func (m BookModel) GetAll(ctx context.Context, filters Filters) ([]*Book, error) {
	// An empty parameter disables its clause, so one statement serves every filter.
	query := `
		SELECT id, title, author, year, genre, description, created_at, updated_at
		FROM books
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%'
		               OR author ILIKE '%' || $1 || '%'
		               OR genre ILIKE '%' || $1 || '%')
		AND ($2 = '' OR genre ILIKE '%' || $2 || '%')
		ORDER BY id ASC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query,
		strings.TrimSpace(filters.Search),
		strings.TrimSpace(filters.Genre),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// Update saves every payload field of book. The database refreshes
// updated_at, which is scanned back into the struct.
// Returns ErrRecordNotFound if the book no longer exists.
func (m BookModel) Update(ctx context.Context, book *Book) error {
	query := `
		UPDATE books
		SET title = $1, author = $2, year = $3, genre = $4, description = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at`

	args := []any{
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.Description,
		book.ID,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&book.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	return err
}

// Delete removes the book with the given id from the database.
// Returns ErrRecordNotFound if no matching record exists.
func (m BookModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Genres returns the distinct non-blank genres, sorted ascending.
func (m BookModel) Genres(ctx context.Context) ([]string, error) {
	return m.distinct(ctx, `
		SELECT DISTINCT genre FROM books
		WHERE genre IS NOT NULL AND btrim(genre) <> ''
		ORDER BY genre ASC`)
}

// Authors returns the distinct non-blank authors, sorted ascending.
func (m BookModel) Authors(ctx context.Context) ([]string, error) {
	return m.distinct(ctx, `
		SELECT DISTINCT author FROM books
		WHERE btrim(author) <> ''
		ORDER BY author ASC`)
}

// Stats counts books, distinct genres and distinct authors.
func (m BookModel) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT count(*), count(DISTINCT genre), count(DISTINCT author)
		FROM books`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Stats
	err := m.DB.QueryRowContext(ctx, query).Scan(&s.TotalBooks, &s.TotalGenres, &s.TotalAuthors)
	return s, err
}

func (m BookModel) distinct(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var (
		book        Book
		year        sql.NullInt64
		genre       sql.NullString
		description sql.NullString
	)
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&year,
		&genre,
		&description,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if year.Valid {
		y := int(year.Int64)
		book.Year = &y
	}
	if genre.Valid {
		book.Genre = &genre.String
	}
	if description.Valid {
		book.Description = &description.String
	}
	return &book, nil
}
