package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/sitemapgen/sitemapgen/internal/classify"
	"github.com/sitemapgen/sitemapgen/internal/crawler"
	"github.com/sitemapgen/sitemapgen/internal/database"
	"github.com/sitemapgen/sitemapgen/internal/generator"
	"github.com/sitemapgen/sitemapgen/internal/model"
	"github.com/sitemapgen/sitemapgen/internal/sitemap"
)

// DiscoverStep finds the site's existing sitemaps and extracts their
// URLs into the report. It also captures the parsed robots.txt for the
// crawl step.
type DiscoverStep struct {
	discoverer *sitemap.Discoverer

	// Robots holds the parsed robots.txt after Do runs, nil if the site
	// has none.
	Robots *robotstxt.RobotsData
}

// NewDiscoverStep creates a DiscoverStep using the given discoverer.
func NewDiscoverStep(discoverer *sitemap.Discoverer) *DiscoverStep {
	return &DiscoverStep{discoverer: discoverer}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string { return "discover_sitemaps" }

// Do discovers and extracts existing sitemaps. Extraction failures are
// recorded as issues rather than failing the run: a broken published
// sitemap is exactly the situation this tool fixes.
func (s *DiscoverStep) Do(ctx context.Context, report *model.GenerationReport) error {
	result, err := s.discoverer.Discover(ctx, report.Target)
	if err != nil {
		return fmt.Errorf("discover sitemaps: %w", err)
	}

	s.Robots = result.Robots
	if result.Robots == nil {
		report.AddIssue(model.NewIssue(model.IssueRobotsUnavailable,
			report.Target+"/robots.txt", "robots.txt missing or unparsable"))
	}

	for _, sitemapURL := range result.Sitemaps {
		records, err := s.discoverer.Extract(ctx, sitemapURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report.AddIssue(model.NewIssue(model.IssueSitemapUnparsable, sitemapURL, err.Error()))
			continue
		}

		report.ExistingSitemaps = append(report.ExistingSitemaps, sitemapURL)
		for _, record := range records {
			report.AddURL(record)
		}
	}

	return nil
}

// CrawlStep crawls the site from its homepage and adds the discovered
// pages as URL records.
type CrawlStep struct {
	spider     *crawler.Spider
	classifier *classify.Classifier

	// discover, when set, supplies robots.txt rules found during
	// discovery.
	discover *DiscoverStep

	now func() time.Time
}

// NewCrawlStep creates a CrawlStep. The discover step may be nil when
// sitemap discovery is skipped.
func NewCrawlStep(spider *crawler.Spider, classifier *classify.Classifier, discover *DiscoverStep) *CrawlStep {
	return &CrawlStep{
		spider:     spider,
		classifier: classifier,
		discover:   discover,
		now:        time.Now,
	}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Do runs the crawl and converts successful HTML pages into URL records.
func (s *CrawlStep) Do(ctx context.Context, report *model.GenerationReport) error {
	if s.discover != nil && s.discover.Robots != nil {
		s.spider.SetRobots(s.discover.Robots)
	}

	pages, err := s.spider.Crawl(ctx, report.Target+"/")
	if err != nil && len(pages) == 0 {
		return fmt.Errorf("crawl %s: %w", report.Target, err)
	}

	report.Pages = pages
	report.PagesCrawled = len(pages)

	now := s.now()
	for _, page := range pages {
		if !page.IsSuccess() {
			continue
		}
		// Non-HTML responses still belong in the sitemap; their links
		// just cannot be followed.
		if !page.IsHTML() {
			report.AddIssue(model.NewIssue(model.IssueNonHTML, page.URL, page.ContentType))
		}
		if !s.classifier.IsValid(page.URL) {
			continue
		}

		record := s.classifier.Categorize(page.URL)
		record.Source = model.SourceCrawler
		record.LastMod = now
		if !page.LastModified.IsZero() {
			record.LastMod = page.LastModified
		}
		report.AddURL(record)
	}

	for _, issue := range s.spider.Issues() {
		report.AddIssue(issue)
	}

	// A cancelled crawl still produced partial pages; surface the
	// cancellation after recording them.
	return err
}

// EssentialsStep adds the essential URL set so common pages appear in
// the sitemap even when neither discovery nor the crawl found them.
type EssentialsStep struct {
	classifier *classify.Classifier
	now        func() time.Time
}

// NewEssentialsStep creates an EssentialsStep.
func NewEssentialsStep(classifier *classify.Classifier) *EssentialsStep {
	return &EssentialsStep{classifier: classifier, now: time.Now}
}

// Name returns the step name.
func (s *EssentialsStep) Name() string { return "essential_urls" }

// Do appends the categorized essential URLs.
func (s *EssentialsStep) Do(_ context.Context, report *model.GenerationReport) error {
	now := s.now()
	for _, record := range s.classifier.Essentials() {
		record.LastMod = now
		report.AddURL(record)
	}
	return nil
}

// DedupeStep removes duplicate URL records, keeping the first
// occurrence. Earlier steps run in trust order: existing sitemaps,
// then the crawl, then generated essentials.
type DedupeStep struct{}

// NewDedupeStep creates a DedupeStep.
func NewDedupeStep() *DedupeStep { return &DedupeStep{} }

// Name returns the step name.
func (s *DedupeStep) Name() string { return "dedupe" }

// Do deduplicates report.URLs by location.
func (s *DedupeStep) Do(_ context.Context, report *model.GenerationReport) error {
	seen := make(map[string]bool, len(report.URLs))
	unique := make([]model.URLRecord, 0, len(report.URLs))

	for _, record := range report.URLs {
		if record.Loc == "" || seen[record.Loc] {
			continue
		}
		seen[record.Loc] = true
		unique = append(unique, record)
	}

	report.URLs = unique
	return nil
}

// OrganizeStep fills in missing categories and computes the directory
// and category breakdowns.
type OrganizeStep struct {
	classifier *classify.Classifier
}

// NewOrganizeStep creates an OrganizeStep.
func NewOrganizeStep(classifier *classify.Classifier) *OrganizeStep {
	return &OrganizeStep{classifier: classifier}
}

// Name returns the step name.
func (s *OrganizeStep) Name() string { return "organize" }

// Do categorizes records that arrived without a category (existing
// sitemaps carry freq and priority but no category) and tallies the
// breakdowns.
func (s *OrganizeStep) Do(_ context.Context, report *model.GenerationReport) error {
	directories := make(map[string]int)
	categories := make(map[string]int)

	for i := range report.URLs {
		record := &report.URLs[i]
		if record.Category == "" {
			classified := s.classifier.Categorize(record.Loc)
			record.Category = classified.Category
			record.Depth = classified.Depth
		}
		directories[record.TopDirectory()]++
		categories[string(record.Category)]++
	}

	report.DirectoryCounts = directories
	report.CategoryCounts = categories
	return nil
}

// LastModStep reconciles each record's lastmod date against the history
// database so unchanged pages keep their previous date across runs.
type LastModStep struct {
	db  *database.HistoryDB
	now func() time.Time
}

// NewLastModStep creates a LastModStep.
func NewLastModStep(db *database.HistoryDB) *LastModStep {
	return &LastModStep{db: db, now: time.Now}
}

// Name returns the step name.
func (s *LastModStep) Name() string { return "reconcile_lastmod" }

// Do updates lastmod dates using the content hashes of crawled pages.
// Records without a crawled page keep their current date.
func (s *LastModStep) Do(ctx context.Context, report *model.GenerationReport) error {
	hashes := make(map[string]string, len(report.Pages))
	for _, page := range report.Pages {
		if page.Hash != "" {
			hashes[page.URL] = page.Hash
		}
	}

	now := s.now()
	for i := range report.URLs {
		record := &report.URLs[i]
		hash, ok := hashes[record.Loc]
		if !ok {
			continue
		}
		lastMod, err := s.db.ReconcileLastMod(ctx, report.Target, record.Loc, hash, now)
		if err != nil {
			return fmt.Errorf("reconcile lastmod for %s: %w", record.Loc, err)
		}
		record.LastMod = lastMod
	}

	return nil
}

// WriteStep writes the sitemap files and index.
type WriteStep struct {
	generator *generator.Generator
	outputDir string
}

// NewWriteStep creates a WriteStep writing into outputDir.
func NewWriteStep(gen *generator.Generator, outputDir string) *WriteStep {
	return &WriteStep{generator: gen, outputDir: outputDir}
}

// Name returns the step name.
func (s *WriteStep) Name() string { return "write_sitemaps" }

// Do writes the sitemap files and records what was written.
func (s *WriteStep) Do(_ context.Context, report *model.GenerationReport) error {
	result, err := s.generator.Generate(report.URLs)
	if err != nil {
		return fmt.Errorf("write sitemaps: %w", err)
	}

	report.OutputDir = s.outputDir
	report.SitemapFiles = result.Files
	report.IndexFile = result.IndexFile
	report.DirectoryCounts = result.DirectoryCounts
	return nil
}

// PersistStep stores the finished run in the history database.
type PersistStep struct {
	db *database.HistoryDB
}

// NewPersistStep creates a PersistStep.
func NewPersistStep(db *database.HistoryDB) *PersistStep {
	return &PersistStep{db: db}
}

// Name returns the step name.
func (s *PersistStep) Name() string { return "persist_run" }

// Do saves the run. The report's RunID must be set by the caller.
func (s *PersistStep) Do(ctx context.Context, report *model.GenerationReport) error {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	if err := s.db.SaveRun(ctx, report); err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	return nil
}
