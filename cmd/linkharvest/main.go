// Command linkharvest scrapes professional profiles from a URL list,
// resumably, with CAPTCHA handling and progress persistence.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/maksud51/linkharvest/browser"
	"github.com/maksud51/linkharvest/config"
	"github.com/maksud51/linkharvest/export"
	"github.com/maksud51/linkharvest/extract"
	"github.com/maksud51/linkharvest/harvester"
	"github.com/maksud51/linkharvest/humanize"
	"github.com/maksud51/linkharvest/metrics"
	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/scrape"
	"github.com/maksud51/linkharvest/search"
	"github.com/maksud51/linkharvest/store"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	dbPath     string
)

func main() {
	root := &cobra.Command{
		Use:          "linkharvest",
		Short:        "Resumable profile scraper with CAPTCHA handling",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "progress database path (overrides config)")

	root.AddCommand(
		newScrapeCmd(),
		newSearchCmd(),
		newResumeCmd(),
		newRetryFailedCmd(),
		newExportCmd(),
		newStatsCmd(),
		newHarvesterCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newScrapeCmd() *cobra.Command {
	var inputFile string
	cmd := &cobra.Command{
		Use:   "scrape [URL...]",
		Short: "Scrape the given profile URLs (plus --input file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if inputFile != "" {
				fromFile, err := readURLFile(inputFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given: pass them as arguments or via --input")
			}
			return runBatch(func(ctx context.Context, s *scrape.Session) (scrape.Stats, error) {
				return s.RunURLs(ctx, urls)
			})
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one profile URL per line")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		location   string
		maxResults int
		enqueue    bool
	)
	cmd := &cobra.Command{
		Use:   "search KEYWORDS...",
		Short: "Find candidate profile URLs via people search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			m := metrics.New()
			defer serveMetrics(cfg.MetricsListen, m)()

			env, err := startBrowser(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer env.close(cfg)

			if maxResults == 0 {
				maxResults = cfg.Search.MaxResults
			}
			s := search.New(search.Config{
				Navigator:  env.nav,
				Page:       env.page,
				MaxPages:   cfg.Search.MaxPages,
				MaxResults: maxResults,
			})

			urls, err := s.Run(ctx, search.Query{
				Keywords: strings.Join(args, " "),
				Location: location,
			})
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Println(u)
			}
			if !enqueue || len(urls) == 0 {
				return nil
			}

			st, err := store.Open(cfg.DBPath, store.WithMaxRetries(cfg.Scrape.MaxProfileRetries))
			if err != nil {
				return err
			}
			defer st.Close()
			for _, u := range urls {
				if err := st.AddPending(ctx, u); err != nil {
					return err
				}
			}
			slog.Info("search results queued", "count", len(urls))
			return nil
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "location filter")
	cmd.Flags().IntVar(&maxResults, "max", 0, "stop after this many URLs (default from config)")
	cmd.Flags().BoolVar(&enqueue, "queue", false, "add found URLs to the progress database as pending")
	return cmd
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Continue scraping every pending URL in the progress database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(func(ctx context.Context, s *scrape.Session) (scrape.Stats, error) {
				return s.Run(ctx)
			})
		},
	}
}

func newRetryFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-failed",
		Short: "Move failed URLs back to pending and scrape them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(func(ctx context.Context, s *scrape.Session) (scrape.Stats, error) {
				return s.Run(ctx)
			})
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath, store.WithMaxRetries(cfg.Scrape.MaxProfileRetries))
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := signalContext()
			defer cancel()
			n, err := st.ResetFailedToPending(ctx)
			if err != nil {
				return err
			}
			slog.Info("failed urls reset", "count", n)
			return nil
		},
	}
}

// browserEnv is the live browser session plus the navigator driving it.
type browserEnv struct {
	sess    *browser.Session
	page    *navigator.RodPage
	nav     *navigator.Navigator
	tracker *navigator.Tracker
}

// startBrowser launches the session and wires up the navigator: metrics,
// relay, cookie restore, and idle mouse motion while a challenge is polled.
func startBrowser(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*browserEnv, error) {
	sess := browser.NewSession(browser.Config{
		RemoteURL:        cfg.Browser.RemoteURL,
		Headless:         cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		Proxy:            cfg.Browser.Proxy,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
	})
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	if cfg.Browser.CookiesFile != "" {
		if err := sess.LoadCookies(cfg.Browser.CookiesFile); err != nil {
			slog.Warn("cookie restore failed", "path", cfg.Browser.CookiesFile, "error", err)
		}
	}

	page := navigator.NewRodPage(sess.Page())
	tracker := navigator.NewTracker(cfg.Captcha.MaxAttempts)

	navOpts := []navigator.Option{
		navigator.WithMetrics(m),
		navigator.WithLocalSolveTime(cfg.Captcha.LocalSolveTime),
		navigator.WithScreenshotDir(filepath.Join(cfg.LogsDir, "screenshots")),
		navigator.WithIdleMotion(func(ctx context.Context) {
			humanize.IdleMouse(ctx, sess.Page())
		}),
	}
	if cfg.Captcha.ContinueOnExhaustion != nil {
		navOpts = append(navOpts, navigator.WithContinueOnExhaustion(*cfg.Captcha.ContinueOnExhaustion))
	}
	if cfg.Harvester.URL != "" {
		relay := harvester.NewClient(cfg.Harvester.URL, harvester.WithMetrics(m))
		if relay.Healthy(ctx) {
			autoSolve := cfg.Harvester.AutoSolve == nil || *cfg.Harvester.AutoSolve
			navOpts = append(navOpts, navigator.WithRelay(
				relay, cfg.Captcha.RelayTimeout, cfg.Harvester.PollInterval, autoSolve))
			slog.Info("captcha relay available", "url", cfg.Harvester.URL)
		} else {
			slog.Warn("captcha relay unreachable, continuing without it", "url", cfg.Harvester.URL)
		}
	}

	return &browserEnv{
		sess:    sess,
		page:    page,
		nav:     navigator.New(page, tracker, navOpts...),
		tracker: tracker,
	}, nil
}

// close saves the cookie jar for the next run and tears the browser down.
func (e *browserEnv) close(cfg *config.Config) {
	if cfg.Browser.CookiesFile != "" {
		if err := e.sess.SaveCookies(cfg.Browser.CookiesFile); err != nil {
			slog.Warn("cookie save failed", "path", cfg.Browser.CookiesFile, "error", err)
		}
	}
	e.sess.Close()
}

// serveMetrics exposes the Prometheus registry while a batch runs. Returns a
// shutdown func, a no-op when no listen address is configured.
func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return func() { srv.Close() }
}

// runBatch wires browser, navigator, extractor, store and orchestrator, runs
// fn, and prints the session stats.
func runBatch(fn func(context.Context, *scrape.Session) (scrape.Stats, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	st, err := store.Open(cfg.DBPath, store.WithMaxRetries(cfg.Scrape.MaxProfileRetries))
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	defer serveMetrics(cfg.MetricsListen, m)()

	env, err := startBrowser(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer env.close(cfg)

	ext := extract.New(env.page, extract.WithMetrics(m))

	session := scrape.New(scrape.Config{
		Navigator:  env.nav,
		Extractor:  ext,
		Store:      st,
		Tracker:    env.tracker,
		Metrics:    m,
		NavTimeout: cfg.Navigator.Timeout,
		NavRetries: cfg.Navigator.MaxRetries,
		DelayMin:   cfg.Scrape.DelayMin,
		DelayMax:   cfg.Scrape.DelayMax,
		Settle: func(ctx context.Context) {
			humanize.NaturalScroll(ctx, env.sess.Page())
		},
	})

	stats, err := fn(ctx, session)
	printStats(stats)
	return err
}

func printStats(stats scrape.Stats) {
	fmt.Printf("processed: %d\nscraped:   %d\nfailed:    %d\nskipped:   %d\n",
		stats.Processed, stats.Scraped, stats.Failed, stats.Skipped)
	fmt.Printf("captcha:   %d challenged, %d solved, %d blocked\n",
		stats.Captcha.Challenged, stats.Captcha.Solved, stats.Captcha.Blocked)
}

func newExportCmd() *cobra.Command {
	var (
		format          string
		output          string
		minCompleteness float64
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed profiles as JSON or a Markdown report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.CompletedRecords(ctx, minCompleteness)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no completed profiles at completeness >= %.0f", minCompleteness)
			}

			exp := export.New()
			switch format {
			case "json":
				if output == "" {
					return exp.JSON(os.Stdout, records)
				}
				return exp.WriteJSONFile(output, records)
			case "markdown", "md":
				if output == "" {
					return exp.Markdown(os.Stdout, records)
				}
				return exp.WriteMarkdownFile(output, records)
			default:
				return fmt.Errorf("unknown format %q (json, markdown)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, markdown)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&minCompleteness, "min-completeness", 0, "minimum completeness score 0-100")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("pending:   %d\ncompleted: %d\nfailed:    %d\ntotal:     %d\n",
				s.Pending, s.Completed, s.Failed, s.Total)
			fmt.Printf("avg completeness: %.1f%%\n", s.AvgScore)
			return nil
		},
	}
}

func newHarvesterCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Run the CAPTCHA relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Harvester.Listen
			}
			ctx, cancel := signalContext()
			defer cancel()

			srv := harvester.NewServer(harvester.NewQueue(), slog.Default())
			slog.Info("harvester relay listening", "addr", listen)
			return srv.Run(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "bind address (default from config)")
	return cmd
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
