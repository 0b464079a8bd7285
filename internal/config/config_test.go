package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxURLsPerSitemap != DefaultMaxURLsPerSitemap {
		t.Errorf("expected max urls %d, got %d", DefaultMaxURLsPerSitemap, cfg.MaxURLsPerSitemap)
	}
	if cfg.MaxCrawlPages != DefaultMaxCrawlPages {
		t.Errorf("expected max crawl %d, got %d", DefaultMaxCrawlPages, cfg.MaxCrawlPages)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("expected output dir %q, got %q", DefaultOutputDir, cfg.OutputDir)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultTimeout, cfg.Timeout)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("expected batch size %d, got %d", DefaultBatchSize, cfg.BatchSize)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected max retries %d, got %d", DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.FrontierLimit != DefaultFrontierLimit {
		t.Errorf("expected frontier limit %d, got %d", DefaultFrontierLimit, cfg.FrontierLimit)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://example.com"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: ErrNoTarget,
		},
		{
			name:    "zero max urls",
			mutate:  func(c *Config) { c.MaxURLsPerSitemap = 0 },
			wantErr: ErrInvalidMaxURLs,
		},
		{
			name:    "negative max crawl",
			mutate:  func(c *Config) { c.MaxCrawlPages = -1 },
			wantErr: ErrInvalidMaxCrawl,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative crawl delay",
			mutate:  func(c *Config) { c.CrawlDelay = -time.Second },
			wantErr: ErrInvalidCrawlDelay,
		},
		{
			name:    "negative max body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "conflicting report formats",
			mutate:  func(c *Config) { c.JSONReport = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "nothing to discover",
			mutate:  func(c *Config) { c.SkipCrawl = true; c.SkipSitemapDiscovery = true },
			wantErr: ErrNothingToDiscover,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads sites and defaults", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  depth: 5
  ignorePatterns:
    - "/admin/*"
sites:
  example.com:
    cookie: "session=abc"
    depth: 8
    headers:
      Authorization: "Bearer token"
  other.org:
    followPatterns:
      - "/docs/*"
`
		path := filepath.Join(t.TempDir(), ".sitemapgen")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if cf.Defaults.Depth != 5 {
			t.Errorf("expected default depth 5, got %d", cf.Defaults.Depth)
		}
		if len(cf.Sites) != 2 {
			t.Fatalf("expected 2 sites, got %d", len(cf.Sites))
		}
		if cf.Sites["example.com"].Cookie != "session=abc" {
			t.Errorf("unexpected cookie %q", cf.Sites["example.com"].Cookie)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml returns error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".sitemapgen")
		if err := os.WriteFile(path, []byte("sites: [not a map"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})

	t.Run("empty file yields empty sites map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".sitemapgen")
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected non-nil sites map")
		}
	})
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Depth:          4,
			IgnorePatterns: []string{"/private/*"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Cookie: "auth=xyz",
				Depth:  9,
				Headers: map[string]string{
					"X-Custom": "value",
				},
			},
		},
	}

	t.Run("merges site over defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("example.com")
		if sc.Depth != 9 {
			t.Errorf("expected depth 9, got %d", sc.Depth)
		}
		if sc.Cookie != "auth=xyz" {
			t.Errorf("unexpected cookie %q", sc.Cookie)
		}
		// Defaults survive when not overridden.
		if len(sc.IgnorePatterns) != 1 || sc.IgnorePatterns[0] != "/private/*" {
			t.Errorf("expected inherited ignore patterns, got %v", sc.IgnorePatterns)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("unknown.net")
		if sc.Depth != 4 {
			t.Errorf("expected default depth 4, got %d", sc.Depth)
		}
		if sc.Cookie != "" {
			t.Errorf("expected no cookie, got %q", sc.Cookie)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	// Not parallel: changes the working directory.

	t.Run("explicit path wins when it exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("sites:"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("missing explicit path returns empty", func(t *testing.T) {
		if got := FindConfigFile("/no/such/file.yaml"); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})

	t.Run("finds config in current directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites:"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		t.Chdir(dir)

		got := FindConfigFile("")
		if filepath.Base(got) != DefaultConfigFile {
			t.Errorf("expected to find %s, got %q", DefaultConfigFile, got)
		}
	})
}
