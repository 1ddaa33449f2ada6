package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/check"
	"github.com/minute-repeater/restocked/extract"
	"github.com/minute-repeater/restocked/fetch"
	"github.com/minute-repeater/restocked/goquery"
	reshttp "github.com/minute-repeater/restocked/http"
	"github.com/minute-repeater/restocked/jsonld"
	"github.com/minute-repeater/restocked/rod"
	reslog "github.com/minute-repeater/restocked/slog"
	"github.com/minute-repeater/restocked/sqlite"
)

func main() {
	// A missing .env file is fine; env vars still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by the SQLite service implementations.
	DB *sqlite.DB

	// Services exposed for end-to-end testing.
	ProductService      restocked.ProductService
	TrackedItemService  restocked.TrackedItemService
	NotificationService restocked.NotificationService
	CheckRunService     restocked.CheckRunService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(stderr, nil))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("restocked"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'restocked --help' to see available commands")
	}

	if first := args[0]; first == "help" || first == "--help" || first == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	dbPath := cli.DB
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	m.DB = sqlite.NewDB(dbPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintln(stderr, "Hint: Set RESTOCKED_DB to use a different database path")
		return fmt.Errorf("failed to open database at %q: %w", dbPath, err)
	}
	defer m.Close()

	m.ProductService = sqlite.NewProductService(m.DB)
	m.TrackedItemService = sqlite.NewTrackedItemService(m.DB)
	m.NotificationService = sqlite.NewNotificationService(m.DB)
	m.CheckRunService = sqlite.NewCheckRunService(m.DB)

	deps.DB = m.DB
	deps.FetchTimeout = cli.FetchTimeout
	deps.Products = m.ProductService
	deps.Items = m.TrackedItemService
	deps.Notifications = m.NotificationService
	deps.CheckRuns = m.CheckRunService

	// The list command works from the store alone; everything else needs
	// the retrieval pipeline.
	if cmd != "list" {
		fetcher, err := buildFetcher(cli, logger)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or pass --no-browser")
			return err
		}
		defer fetcher.Close()

		deps.Fetcher = fetcher
		deps.Extractor = reslog.NewLoggingExtractor(extract.NewChain(
			jsonld.NewStrategy(cli.MaxVariants),
			goquery.NewStrategy(cli.MaxVariants),
		), logger)
	}

	switch cmd {
	case "serve":
		deps.Worker = newWorker(deps, cli.Serve.Interval, cli.Serve.Concurrency, cli.RPS)
	case "check":
		deps.Worker = newWorker(deps, cli.Check.Interval, cli.Check.Concurrency, cli.RPS)
	}

	return kongCtx.Run(deps)
}

// buildFetcher composes the HTTP path with the optional browser path.
func buildFetcher(cli *CLI, logger *slog.Logger) (restocked.Fetcher, error) {
	primary := reshttp.NewFetcher(reshttp.WithTimeout(cli.FetchTimeout))

	var browser restocked.Fetcher
	if cli.Browser {
		rodFetcher, err := rod.NewFetcher(rod.WithTimeout(cli.FetchTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		browser = rodFetcher
	}

	return reslog.NewLoggingFetcher(fetch.NewFetcher(primary, browser), logger), nil
}

func newWorker(deps *Dependencies, interval time.Duration, concurrency int, rps float64) *check.Worker {
	return &check.Worker{
		Items:         deps.Items,
		Products:      deps.Products,
		Notifications: deps.Notifications,
		CheckRuns:     deps.CheckRuns,
		Fetcher:       deps.Fetcher,
		Extractor:     deps.Extractor,
		RateLimiter:   check.NewDomainLimiter(rps, 1),
		Concurrency:   concurrency,
		Interval:      interval,
		Logger:        deps.Logger,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "restocked.db"
	}
	dir := filepath.Join(home, ".restocked")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "restocked.db")
}
