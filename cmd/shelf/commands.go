package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aoideee/bookshelf/internal/catalog"
	"github.com/aoideee/bookshelf/internal/data"
	"github.com/aoideee/bookshelf/internal/form"
	"github.com/aoideee/bookshelf/internal/lookup"
)

// ListCmd prints the catalog through the record cache.
type ListCmd struct {
	Search string `help:"Case-insensitive text to look for in title, author, genre or description." short:"s"`
	Genre  string `help:"Only show books with exactly this genre." short:"g"`
}

// Run executes the list command.
func (c *ListCmd) Run(sh *shell) error {
	sh.cache.SetFilter(catalog.Criteria{Search: c.Search, Genre: c.Genre})
	if err := sh.cache.Load(sh.ctx); err != nil {
		return err
	}
	sh.renderer.RenderList(sh.cache.View())
	return nil
}

// ShowCmd prints one book in full.
type ShowCmd struct {
	ID int64 `arg:"" help:"Book id."`
}

// Run executes the show command.
func (c *ShowCmd) Run(sh *shell) error {
	book, err := sh.remote.Get(sh.ctx, c.ID)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	printBook(sh.out, book)
	return nil
}

// BookFlags are the form inputs shared by add and edit. An empty flag
// leaves the field as it is.
type BookFlags struct {
	Title       string `help:"Title."`
	Author      string `help:"Author."`
	Year        string `help:"Publication year."`
	Genre       string `help:"Genre."`
	Description string `help:"Description."`
}

func (f BookFlags) apply(ctl *form.Controller) error {
	for _, kv := range []struct{ name, value string }{
		{form.FieldTitle, f.Title},
		{form.FieldAuthor, f.Author},
		{form.FieldYear, f.Year},
		{form.FieldGenre, f.Genre},
		{form.FieldDescription, f.Description},
	} {
		if kv.value == "" {
			continue
		}
		if err := ctl.Set(kv.name, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// AddCmd creates a book, optionally prefilled from a Google Books search.
type AddCmd struct {
	Book BookFlags `embed:""`

	From string `help:"Search Google Books and prefill the form from a result." placeholder:"QUERY"`
	Pick int    `help:"Which search result to prefill from (1-based)." default:"1"`
}

// Run executes the add command.
func (c *AddCmd) Run(sh *shell) error {
	ctl := form.NewCreate(sh.remote,
		form.WithReloader(sh.cache),
		form.WithNotifier(sh.renderer),
		form.WithRenderer(sh.renderer),
		form.WithLogger(sh.logger),
	)

	if c.From != "" {
		if err := autofill(sh, ctl, c.From, c.Pick); err != nil {
			return err
		}
	}
	if err := c.Book.apply(ctl); err != nil {
		return err
	}

	out, err := ctl.Submit(sh.ctx)
	if err != nil {
		return err
	}
	printBook(sh.out, out.Book)
	return nil
}

// EditCmd changes an existing book.
type EditCmd struct {
	ID   int64     `arg:"" help:"Book id."`
	Book BookFlags `embed:""`

	Clear []string `help:"Fields to empty: year, genre or description." placeholder:"FIELD"`
}

// Run executes the edit command.
func (c *EditCmd) Run(sh *shell) error {
	ctl := form.NewEdit(sh.remote, c.ID,
		form.WithReloader(sh.cache),
		form.WithNotifier(sh.renderer),
		form.WithRenderer(sh.renderer),
		form.WithLogger(sh.logger),
	)
	if err := ctl.Load(sh.ctx); err != nil {
		return err
	}
	for _, name := range c.Clear {
		if err := ctl.Set(name, ""); err != nil {
			return err
		}
	}
	if err := c.Book.apply(ctl); err != nil {
		return err
	}

	out, err := ctl.Submit(sh.ctx)
	if err != nil {
		return err
	}
	if out.NavigateAway {
		printBook(sh.out, out.Book)
	}
	return nil
}

// DeleteCmd removes a book after confirmation.
type DeleteCmd struct {
	ID  int64 `arg:"" help:"Book id."`
	Yes bool  `help:"Do not ask for confirmation." short:"y"`
}

// Run executes the delete command.
func (c *DeleteCmd) Run(sh *shell) error {
	if !c.Yes {
		book, err := sh.remote.Get(sh.ctx, c.ID)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		ok, err := confirm(sh.in, sh.out, fmt.Sprintf("Delete %q by %s?", book.Title, book.Author))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(sh.out, "Cancelled.")
			return nil
		}
	}
	return sh.cache.Delete(sh.ctx, c.ID)
}

// LookupCmd searches Google Books and can add a result to the catalog.
type LookupCmd struct {
	Query []string `arg:"" help:"Book name to search for."`
	Add   int      `help:"Add the Nth result to the catalog." placeholder:"N"`
}

// Run executes the lookup command.
func (c *LookupCmd) Run(sh *shell) error {
	query := strings.Join(c.Query, " ")
	if c.Add == 0 {
		bridge := lookup.New(sh.remote,
			lookup.WithRenderer(sh.renderer),
			lookup.WithNotifier(sh.renderer),
			lookup.WithLogger(sh.logger),
		)
		_, err := bridge.Search(sh.ctx, query)
		return err
	}

	ctl := form.NewCreate(sh.remote,
		form.WithReloader(sh.cache),
		form.WithNotifier(sh.renderer),
		form.WithRenderer(sh.renderer),
		form.WithLogger(sh.logger),
	)
	if err := autofill(sh, ctl, query, c.Add); err != nil {
		return err
	}
	out, err := ctl.Submit(sh.ctx)
	if err != nil {
		return err
	}
	printBook(sh.out, out.Book)
	return nil
}

// GenresCmd prints the distinct genres known to the server.
type GenresCmd struct{}

// Run executes the genres command.
func (c *GenresCmd) Run(sh *shell) error {
	genres, err := sh.remote.Genres(sh.ctx)
	if err != nil {
		return fmt.Errorf("genres: %w", err)
	}
	for _, g := range genres {
		fmt.Fprintln(sh.out, g)
	}
	return nil
}

// StatsCmd prints the server's collection counts.
type StatsCmd struct{}

// Run executes the stats command.
func (c *StatsCmd) Run(sh *shell) error {
	s, err := sh.remote.Stats(sh.ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Fprintf(sh.out, "books: %d\ngenres: %d\nauthors: %d\n", s.TotalBooks, s.TotalGenres, s.TotalAuthors)
	return nil
}

// autofill runs a lookup and copies result pick (1-based) into ctl.
func autofill(sh *shell, ctl *form.Controller, query string, pick int) error {
	bridge := lookup.New(sh.remote,
		lookup.WithNotifier(sh.renderer),
		lookup.WithLogger(sh.logger),
	)
	state, err := bridge.Search(sh.ctx, query)
	if err != nil {
		return err
	}
	if len(state.Results) == 0 {
		return errors.New("no books found, try a different search")
	}
	result, err := bridge.Select(pick - 1)
	if err != nil {
		return fmt.Errorf("result %d: %w", pick, err)
	}
	ctl.Autofill(result)
	return nil
}

func printBook(w io.Writer, b data.Book) {
	fmt.Fprintf(w, "id:          %d\n", b.ID)
	fmt.Fprintf(w, "title:       %s\n", b.Title)
	fmt.Fprintf(w, "author:      %s\n", b.Author)
	if b.Year != nil {
		fmt.Fprintf(w, "year:        %s\n", strconv.Itoa(*b.Year))
	}
	if b.Genre != nil {
		fmt.Fprintf(w, "genre:       %s\n", *b.Genre)
	}
	if b.Description != nil {
		fmt.Fprintf(w, "description: %s\n", *b.Description)
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
