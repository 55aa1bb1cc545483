package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sitescan"
	"github.com/fwojciec/sitescan/crawl"
	"github.com/fwojciec/sitescan/goquery"
	sitescanhttp "github.com/fwojciec/sitescan/http"
	sitescanprom "github.com/fwojciec/sitescan/prometheus"
	sitescanslog "github.com/fwojciec/sitescan/slog"
	"github.com/fwojciec/sitescan/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Data directory holding the registry and per-domain databases.
	// Set before calling Run().
	DataDir string

	// User agent sent with crawler requests.
	UserAgent string

	// Registry database, opened by Run.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults taken from the
// environment.
func NewMain() *Main {
	ua := os.Getenv("SITESCAN_USER_AGENT")
	if ua == "" {
		ua = sitescan.DefaultUserAgent
	}
	return &Main{
		DataDir:   defaultDataDir(),
		UserAgent: ua,
	}
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
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitescan"),
		kong.Description("Crawl a website and query its structure."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sitescan --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	workspace := sqlite.NewWorkspace(m.DataDir)
	m.DB, err = workspace.OpenRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "Hint: Set SITESCAN_DATA to use a different data directory\n")
		return fmt.Errorf("failed to open registry in %q: %w", m.DataDir, err)
	}
	defer m.Close()

	registry := sqlite.NewRegistryService(m.DB)
	metrics := prometheus.NewRegistry()
	metricsPublisher, err := sitescanprom.NewPublisher(metrics)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	deps.Logger = logger
	deps.Sites = workspace
	deps.Registry = registry
	deps.Metrics = metrics
	deps.Publisher = crawl.Publishers{sitescanslog.NewLoggingPublisher(logger), metricsPublisher}
	deps.NewSession = m.sessionFactory(workspace, registry, logger)

	return kongCtx.Run(deps)
}

// sessionFactory wires the network stack into a crawl session constructor.
func (m *Main) sessionFactory(sites sitescan.SiteService, registry sitescan.RegistryService, logger *slog.Logger) func(sitescan.EventPublisher) *crawl.Session {
	return func(publisher sitescan.EventPublisher) *crawl.Session {
		sitemaps := sitescanslog.NewLoggingSitemapService(sitescanhttp.NewSitemapService(nil, m.UserAgent), logger)
		fetcher := sitescanslog.NewLoggingFetcher(sitescanhttp.NewFetcher(sitescanhttp.WithUserAgent(m.UserAgent)), logger)

		return &crawl.Session{
			Sites:     sites,
			Registry:  registry,
			Policies:  sitescanhttp.NewPolicyGate(nil, m.UserAgent, sitemaps),
			Fetcher:   fetcher,
			Extractor: goquery.NewExtractor(),
			Publisher: publisher,
		}
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("SITESCAN_DATA"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sitescan"
	}
	return filepath.Join(home, ".sitescan")
}
