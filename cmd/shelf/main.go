// Command shelf is a terminal client for the bookshelf catalog API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/aoideee/bookshelf/internal/catalog"
	"github.com/aoideee/bookshelf/internal/config"
	"github.com/aoideee/bookshelf/internal/remote"
	"github.com/aoideee/bookshelf/internal/view"
)

var version = "dev"

// CLI is the top-level command structure for shelf.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Config  string           `help:"Config file." type:"path" placeholder:"PATH"`
	APIURL  string           `name:"api-url" help:"Catalog API base URL. Overrides the config file."`
	Verbose bool             `help:"Log requests to stderr." short:"v"`

	List   ListCmd   `cmd:"" help:"List books, optionally filtered."`
	Show   ShowCmd   `cmd:"" help:"Show one book."`
	Add    AddCmd    `cmd:"" help:"Add a book."`
	Edit   EditCmd   `cmd:"" help:"Edit a book."`
	Delete DeleteCmd `cmd:"" help:"Delete a book."`
	Lookup LookupCmd `cmd:"" help:"Search Google Books."`
	Genres GenresCmd `cmd:"" help:"List the genres in the catalog."`
	Stats  StatsCmd  `cmd:"" help:"Show collection counts."`
}

// shell carries the wired client core into every command's Run method.
type shell struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	renderer *view.TextRenderer
	remote   *remote.Client
	cache    *catalog.Cache
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "shelf:", err)
		os.Exit(1)
	}
}

// run parses args, wires the client core and runs the selected command.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("shelf"),
		kong.Description("A terminal client for the bookshelf catalog."),
		kong.Vars{"version": version},
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	sh, err := newShell(ctx, &cli, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	return kctx.Run(sh)
}

func newShell(ctx context.Context, cli *CLI, stdin io.Reader, stdout, stderr io.Writer) (*shell, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	if cli.Verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if !cfg.Display.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	renderer := view.NewTextRenderer(stdout)
	rc := remote.New(cfg.API.URL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		remote.WithLogger(logger),
	)

	return &shell{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		in:       stdin,
		out:      stdout,
		renderer: renderer,
		remote:   rc,
		cache:    catalog.New(rc, catalog.WithNotifier(renderer), catalog.WithLogger(logger)),
	}, nil
}

// loadConfig layers the config file, SHELF_* variables and flags.
func loadConfig(cli *CLI) (*config.Config, error) {
	path := cli.Config
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if cli.APIURL != "" {
		cfg.API.URL = cli.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
