// Package main provides the entry point for the sitemapgen CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitemapgen.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapgen",
		Short: "XML sitemap generator for websites",
		Long: `sitemapgen crawls a website and generates XML sitemaps organized by
directory, along with a sitemap index ready for search engine submission.

It discovers sitemaps the site already publishes, crawls the site while
honoring robots.txt, categorizes every URL by its place in the site
hierarchy, and writes one sitemap file per top-level directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
