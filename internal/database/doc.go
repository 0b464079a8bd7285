// Package database provides SQLite-backed storage for generation run
// history and per-URL content hashes.
//
// The run history powers the history subcommand: listing past runs for
// a site and diffing the URL sets of two runs. The URL table keeps a
// content hash per URL so lastmod dates stay stable across runs when
// the page content has not changed.
package database
