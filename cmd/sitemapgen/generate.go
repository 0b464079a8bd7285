package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/sitemapgen/sitemapgen/internal/classify"
	"github.com/sitemapgen/sitemapgen/internal/config"
	"github.com/sitemapgen/sitemapgen/internal/crawler"
	"github.com/sitemapgen/sitemapgen/internal/database"
	"github.com/sitemapgen/sitemapgen/internal/generator"
	applog "github.com/sitemapgen/sitemapgen/internal/log"
	"github.com/sitemapgen/sitemapgen/internal/model"
	"github.com/sitemapgen/sitemapgen/internal/pipeline"
	"github.com/sitemapgen/sitemapgen/internal/report"
	"github.com/sitemapgen/sitemapgen/internal/sitemap"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [site-url...]",
		Short: "Crawl a website and generate XML sitemaps",
		Long: `Generate crawls a website and produces XML sitemaps for it.

The run has three phases:
- Discover sitemaps the site already publishes (robots.txt and
  well-known locations) and extract their URLs
- Crawl the site from its homepage, honoring robots.txt rules
- Write one sitemap file per top-level directory plus a sitemap index

Each URL is categorized by its place in the site hierarchy, which
determines its priority and change frequency in the sitemap.

Examples:
  # Generate sitemaps for a single site
  sitemapgen generate example.com

  # Generate for multiple sites concurrently
  sitemapgen generate site1.com site2.com site3.com

  # Write sitemap files to a custom directory
  sitemapgen generate -O ./public example.com

  # Crawl more pages with a shorter politeness delay
  sitemapgen generate --max-crawl 5000 --delay 200ms example.com

  # Skip the crawl and rebuild from the site's published sitemaps
  sitemapgen generate --skip-crawl example.com

  # Output the run report as JSON
  sitemapgen generate --json example.com

Configuration file (.sitemapgen) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      depth: 5
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runGenerateCmd,
	}

	// Sitemap output flags
	cmd.Flags().IntP("max-urls", "u", config.DefaultMaxURLsPerSitemap,
		"Maximum URLs per sitemap file before splitting into parts")
	cmd.Flags().StringP("output-dir", "O", config.DefaultOutputDir,
		"Directory to write sitemap files to")

	// Crawl behavior flags
	cmd.Flags().IntP("max-crawl", "p", config.DefaultMaxCrawlPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl recursion depth")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Politeness delay between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")

	// Phase selection flags
	cmd.Flags().Bool("skip-sitemaps", false,
		"Skip discovering sitemaps the site already publishes")
	cmd.Flags().Bool("skip-crawl", false,
		"Skip crawling; use only discovered sitemaps and essential URLs")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent sites when multiple URLs are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitemapgen in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runGenerateCmd executes the generate command.
func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential scrubbing
	logger := applog.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runGenerate(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.MaxURLsPerSitemap, err = cmd.Flags().GetInt("max-urls")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.MaxCrawlPages, err = cmd.Flags().GetInt("max-crawl")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.InsecureTLS, err = cmd.Flags().GetBool("insecure")
	if err != nil {
		return nil, err
	}

	cfg.SkipSitemapDiscovery, err = cmd.Flags().GetBool("skip-sitemaps")
	if err != nil {
		return nil, err
	}

	cfg.SkipCrawl, err = cmd.Flags().GetBool("skip-crawl")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Normalize positional arguments (site URLs)
	cfg.Targets = make([]string, 0, len(args))
	for _, arg := range args {
		target, err := normalizeTarget(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid site URL %q: %w", arg, err)
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, nil
}

// normalizeTarget converts a user-supplied site URL into canonical form:
// scheme://host with no path and no trailing slash. A bare domain gets
// an https:// scheme.
func normalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}

// runGenerate executes the generation run for all configured targets.
func runGenerate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting generation",
		"targets", cfg.Targets,
		"outputDir", cfg.OutputDir,
		"batchSize", cfg.BatchSize,
	)

	// Open the history database. Failure is not fatal: runs still work,
	// they just lose stable lastmod dates and history.
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history database unavailable, lastmod dates will not be stable",
				"dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			logger.Info("history database opened", "dir", cfg.DBDir)
		}
	}

	client := newHTTPClient(cfg)

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchGenerate(ctx, cfg, client, db, logger)
	}

	return runSequentialGenerate(ctx, cfg, client, db, logger)
}

// runSequentialGenerate processes targets one at a time with progress
// feedback on stderr.
func runSequentialGenerate(ctx context.Context, cfg *config.Config, client *http.Client, db *database.HistoryDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := buildPipeline(cfg, client, db, logger, target)
		genReport := model.NewGenerationReport(target)

		var spin *spinner.Spinner
		if !cfg.Verbose {
			spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			spin.Suffix = fmt.Sprintf(" Generating sitemaps for %s...", target)
			spin.Start()
		}

		err := p.Execute(ctx, genReport)

		if spin != nil {
			spin.Stop()
		}

		if err != nil {
			logger.Error("generation failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Generation error for %s: %v\n", target, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if err := outputReport(cfg, genReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}
	}

	return nil
}

// runBatchGenerate processes multiple targets concurrently using
// BatchProcessor.
func runBatchGenerate(ctx context.Context, cfg *config.Config, client *http.Client, db *database.HistoryDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch generation for %d sites (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(target string) *pipeline.Pipeline {
			return buildPipeline(cfg, client, db, logger, target)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Stream reports as targets finish; the mutex keeps interleaved
	// output readable.
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(genReport *model.GenerationReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Completed: %s\n", index+1, len(cfg.Targets), genReport.Target)

		if err := outputReport(cfg, genReport); err != nil {
			logger.Error("report failed", "target", genReport.Target, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch generation completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// newHTTPClient builds the HTTP client shared by discovery and crawling.
func newHTTPClient(cfg *config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Explicit user opt-in via --insecure
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// buildPipeline assembles the step sequence for one target, applying
// site-specific overrides from the config file.
func buildPipeline(cfg *config.Config, client *http.Client, db *database.HistoryDB, logger *slog.Logger, target string) *pipeline.Pipeline {
	siteConfig := siteConfigFor(cfg, target)
	classifier := classify.New(target)

	p := pipeline.New(
		pipeline.WithLogger(logger),
	)

	var discoverStep *pipeline.DiscoverStep
	if !cfg.SkipSitemapDiscovery {
		discoverer := sitemap.NewDiscoverer(client,
			sitemap.WithUserAgent(cfg.UserAgent),
			sitemap.WithMaxBodySize(cfg.MaxBodySize),
			sitemap.WithMaxChildSitemaps(config.MaxChildSitemaps),
			sitemap.WithLogger(logger),
		)
		discoverStep = pipeline.NewDiscoverStep(discoverer)
		p.AddStep(discoverStep)
	}

	if !cfg.SkipCrawl {
		p.AddStep(pipeline.NewCrawlStep(buildSpider(cfg, client, logger, siteConfig, classifier), classifier, discoverStep))
	}

	p.AddStep(pipeline.NewEssentialsStep(classifier))
	p.AddStep(pipeline.NewDedupeStep())
	p.AddStep(pipeline.NewOrganizeStep(classifier))

	if db != nil {
		p.AddStep(pipeline.NewLastModStep(db))
	}

	outputDir := outputDirFor(cfg, target)
	gen := generator.New(target, outputDir,
		generator.WithMaxURLsPerFile(cfg.MaxURLsPerSitemap),
		generator.WithLogger(logger),
	)
	p.AddStep(pipeline.NewWriteStep(gen, outputDir))

	if db != nil {
		p.AddStep(pipeline.NewPersistStep(db))
	}

	return p
}

// buildSpider creates the crawler for a target with site overrides applied.
// The classifier gates the frontier so links excluded from the sitemap,
// such as logout pages and binary assets, are never fetched.
func buildSpider(cfg *config.Config, client *http.Client, logger *slog.Logger, siteConfig config.SiteConfig, classifier *classify.Classifier) *crawler.Spider {
	depth := cfg.CrawlDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}

	delay := cfg.CrawlDelay
	if siteConfig.DelayMillis > 0 {
		delay = time.Duration(siteConfig.DelayMillis) * time.Millisecond
	}

	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxCrawlPages),
		crawler.WithFrontierLimit(cfg.FrontierLimit),
		crawler.WithDelay(delay),
		crawler.WithRetries(cfg.MaxRetries, config.DefaultRetryDelay),
		crawler.WithSpiderUserAgent(cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(cfg.MaxBodySize),
		crawler.WithSpiderLogger(logger),
		crawler.WithLinkFilter(classifier.IsValid),
	}

	headers := make(map[string]string, len(siteConfig.Headers)+1)
	for k, v := range siteConfig.Headers {
		headers[k] = v
	}
	if siteConfig.Cookie != "" {
		headers["Cookie"] = siteConfig.Cookie
	}
	if len(headers) > 0 {
		opts = append(opts, crawler.WithExtraHeaders(headers))
	}

	if len(siteConfig.IgnorePatterns) > 0 {
		opts = append(opts, crawler.WithIgnorePatterns(siteConfig.IgnorePatterns))
	}
	if len(siteConfig.FollowPatterns) > 0 {
		opts = append(opts, crawler.WithFollowPatterns(siteConfig.FollowPatterns))
	}

	return crawler.NewSpider(client, opts...)
}

// siteConfigFor returns the merged site configuration for a target.
// Config file keys are bare hosts, so the target's scheme is stripped
// before lookup.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}

	host := target
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}

	return cfg.SiteConfigs.GetSiteConfig(host)
}

// outputDirFor returns the sitemap output directory for a target. With
// multiple targets each site writes into its own host-named
// subdirectory so files do not collide.
func outputDirFor(cfg *config.Config, target string) string {
	if len(cfg.Targets) <= 1 {
		return cfg.OutputDir
	}

	host := target
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	host = strings.ReplaceAll(host, ":", "_")

	return filepath.Join(cfg.OutputDir, host)
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, genReport *model.GenerationReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(genReport)
	return err
}
