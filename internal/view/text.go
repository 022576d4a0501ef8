package view

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// descriptionLimit is how many characters of a description a list shows.
const descriptionLimit = 120

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	genreStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})

	levelStyles = map[Level]lipgloss.Style{
		LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"}),
		LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "3", Dark: "11"}),
		LevelError:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"}),
	}
)

// TextRenderer writes every view to a terminal.
// It is safe for concurrent use.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextRenderer returns a renderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// RenderList prints the records followed by the stats line.
func (r *TextRenderer) RenderList(l List) {
	var b strings.Builder

	if l.Empty() {
		b.WriteString(dimStyle.Render("No books found."))
		b.WriteString("\n")
	}
	for _, book := range l.Records {
		fmt.Fprintf(&b, "%s %s %s\n",
			dimStyle.Render(fmt.Sprintf("#%d", book.ID)),
			titleStyle.Render(book.Title),
			"by "+book.Author,
		)

		var meta []string
		if book.Year != nil {
			meta = append(meta, strconv.Itoa(*book.Year))
		}
		if book.Genre != nil && *book.Genre != "" {
			meta = append(meta, genreStyle.Render(*book.Genre))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(meta, " · "))
		}
		if book.Description != nil && *book.Description != "" {
			fmt.Fprintf(&b, "   %s\n", dimStyle.Render(Truncate(*book.Description, descriptionLimit)))
		}
	}

	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d books · %d genres · %d authors",
		l.Stats.Books, l.Stats.Genres, l.Stats.Authors)))

	r.write(b.String())
}

// Notify prints a one-line notification.
func (r *TextRenderer) Notify(n Notification) {
	style := levelStyles[n.Level]
	r.write(style.Render(fmt.Sprintf("[%s] %s", n.Level, n.Message)) + "\n")
}

// RenderFieldErrors prints one line per field, in field name order.
func (r *TextRenderer) RenderFieldErrors(errs FieldErrors) {
	if len(errs) == 0 {
		return
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(levelStyles[LevelError].Render(fmt.Sprintf("  %s: %s", f, errs[f])))
		b.WriteString("\n")
	}
	r.write(b.String())
}

// RenderLookup prints the search panel.
func (r *TextRenderer) RenderLookup(l Lookup) {
	var b strings.Builder
	switch l.Status {
	case LookupIdle:
		return
	case LookupLoading:
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("Searching for "+strconv.Quote(l.Query)+"..."))
	case LookupNoResults:
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("No books found. Try a different search."))
	case LookupError:
		fmt.Fprintf(&b, "%s\n", levelStyles[LevelError].Render("Search failed: "+l.Message))
	case LookupResults:
		for i, res := range l.Results {
			author := res.Author
			if author == "" {
				author = "unknown author"
			}
			fmt.Fprintf(&b, "%s %s %s\n", dimStyle.Render(fmt.Sprintf("[%d]", i+1)), titleStyle.Render(res.Title), "by "+author)

			var meta []string
			if res.Year != nil {
				meta = append(meta, strconv.Itoa(*res.Year))
			}
			if res.Genre != "" {
				meta = append(meta, genreStyle.Render(res.Genre))
			}
			if res.Publisher != "" {
				meta = append(meta, res.Publisher)
			}
			if len(meta) > 0 {
				fmt.Fprintf(&b, "    %s\n", strings.Join(meta, " · "))
			}
		}
	}
	r.write(b.String())
}

func (r *TextRenderer) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.w, s)
}

// Truncate shortens s to at most n characters, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
