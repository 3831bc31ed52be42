// Command shelfctl works on a tubeshelf library directly, without going
// through the HTTP server. It reads the same configuration as the server
// (environment, .env and TUBESHELF_CONFIG) and its flags override it.
//
// Usage:
//
//	shelfctl [flags] <command>
//
// Commands:
//
//	list        List the library (--page, --limit)
//	search      Find videos whose title contains a query
//	stats       Count videos, sidecars and cached thumbnails
//	thumbnail   Generate or look up the thumbnail for a title
//	download    Fetch a URL with yt-dlp, then normalize file names
//	normalize   Replace underscores and hyphens in file names with spaces
//	version     Print build information
//
// Results are printed as an aligned table when stdout is a terminal and as
// JSON otherwise; --output table|json forces either.
package main
