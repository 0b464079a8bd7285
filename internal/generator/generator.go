// Package generator writes sitemap XML files organized by directory
// structure, splitting oversized sets and producing a sitemap index
// that references every file.
package generator

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/model"
	"github.com/sitemapgen/sitemapgen/internal/sitemap"
)

// IndexFileName is the name of the sitemap index file.
const IndexFileName = "sitemap_index.xml"

// fileNamePattern strips characters that are unsafe in sitemap file names.
var fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Generator writes a site's sitemap files.
type Generator struct {
	baseURL        string
	outputDir      string
	maxURLsPerFile int
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxURLsPerFile sets the URL cap per sitemap file. Directories with
// more URLs are split into part files. The protocol limit is 50000.
func WithMaxURLsPerFile(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxURLsPerFile = n
		}
	}
}

// WithLogger sets the logger for generation progress.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock overrides the time source used for index lastmod stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator that writes files for the site at baseURL
// into outputDir. The directory is created on first write.
func New(baseURL, outputDir string, opts ...Option) *Generator {
	g := &Generator{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		outputDir:      outputDir,
		maxURLsPerFile: 50000,
		logger:         slog.New(slog.DiscardHandler),
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Result describes the files a generation produced.
type Result struct {
	// Files are the sitemap file names, relative to the output directory.
	Files []string

	// IndexFile is the sitemap index file name.
	IndexFile string

	// DirectoryCounts maps top-level directory names to URL counts.
	DirectoryCounts map[string]int
}

// Generate writes one sitemap per top-level directory plus a sitemap
// index. Directories exceeding the per-file cap are split into part
// files. The records should already be deduplicated.
func (g *Generator) Generate(records []model.URLRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no URLs to write")
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	groups, order := groupByDirectory(records)

	result := &Result{
		DirectoryCounts: make(map[string]int, len(groups)),
	}

	for _, dir := range order {
		urls := groups[dir]
		result.DirectoryCounts[dir] = len(urls)

		if len(urls) > g.maxURLsPerFile {
			chunks := (len(urls) + g.maxURLsPerFile - 1) / g.maxURLsPerFile
			g.logger.Info("splitting directory sitemap",
				slog.String("directory", dir),
				slog.Int("parts", chunks))

			for i := 0; i < chunks; i++ {
				start := i * g.maxURLsPerFile
				end := min(start+g.maxURLsPerFile, len(urls))
				name := fileName(fmt.Sprintf("%s-part%d", dir, i+1))
				if err := g.writeURLSet(name, urls[start:end]); err != nil {
					return nil, err
				}
				result.Files = append(result.Files, name)
			}
			continue
		}

		name := fileName(dir)
		if err := g.writeURLSet(name, urls); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, name)
	}

	indexFile, err := g.writeIndex(result.Files)
	if err != nil {
		return nil, err
	}
	result.IndexFile = indexFile

	return result, nil
}

// writeURLSet writes a single sitemap file.
func (g *Generator) writeURLSet(name string, records []model.URLRecord) error {
	g.logger.Info("writing sitemap",
		slog.String("file", name),
		slog.Int("urls", len(records)))
	return g.writeXML(name, sitemap.NewURLSet(records))
}

// writeIndex writes the sitemap index referencing all written files by
// their absolute URL at the site root.
func (g *Generator) writeIndex(files []string) (string, error) {
	locs := make([]string, 0, len(files))
	for _, f := range files {
		locs = append(locs, g.baseURL+"/"+f)
	}

	idx := sitemap.NewIndex(locs, g.now())
	if err := g.writeXML(IndexFileName, idx); err != nil {
		return "", err
	}

	g.logger.Info("writing sitemap index",
		slog.String("file", IndexFileName),
		slog.Int("sitemaps", len(files)))
	return IndexFileName, nil
}

func (g *Generator) writeXML(name string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	content := append([]byte(xml.Header), data...)
	content = append(content, '\n')

	path := filepath.Join(g.outputDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// groupByDirectory groups records by their top-level directory and
// returns a deterministic directory order: homepage first, then
// alphabetical. Within a directory, higher-priority URLs come first.
func groupByDirectory(records []model.URLRecord) (map[string][]model.URLRecord, []string) {
	groups := make(map[string][]model.URLRecord)
	for _, r := range records {
		dir := r.TopDirectory()
		groups[dir] = append(groups[dir], r)
	}

	order := make([]string, 0, len(groups))
	for dir := range groups {
		order = append(order, dir)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i] == "homepage" {
			return true
		}
		if order[j] == "homepage" {
			return false
		}
		return order[i] < order[j]
	})

	for _, urls := range groups {
		sort.SliceStable(urls, func(i, j int) bool {
			if urls[i].Priority != urls[j].Priority {
				return urls[i].Priority > urls[j].Priority
			}
			return urls[i].Loc < urls[j].Loc
		})
	}

	return groups, order
}

// fileName maps a directory name to its sitemap file name. The homepage
// group owns the canonical sitemap.xml name.
func fileName(dir string) string {
	if dir == "homepage" {
		return "sitemap.xml"
	}
	clean := fileNamePattern.ReplaceAllString(strings.ToLower(dir), "")
	if clean == "" {
		clean = "other"
	}
	return "sitemap-" + clean + ".xml"
}
