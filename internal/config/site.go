package config

// SiteConfig holds per-site overrides for a single host. This allows
// customizing crawl behavior for sites that need authentication or have
// areas that should not appear in the sitemap.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// DelayMillis overrides the global crawl delay, in milliseconds.
	DelayMillis int `yaml:"delayMillis,omitempty"`

	// IgnorePatterns are URL path patterns to exclude from the crawl and
	// the sitemap. Patterns use glob syntax (e.g. "/admin/*", "*.pdf").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to restrict the crawl to.
	// If set, only matching URLs are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .sitemapgen configuration file.
type File struct {
	// Sites maps hostnames to their overrides. Keys are bare hosts
	// (e.g. "example.com"), without a scheme.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to every site unless a
	// site-specific entry overrides them again.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged configuration for a host: defaults
// overlaid with the site-specific entry, non-zero fields winning.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.DelayMillis != 0 {
		result.DelayMillis = siteConfig.DelayMillis
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}
