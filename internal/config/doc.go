// Package config provides configuration management for sitemapgen.
package config
