// Package downloader acquires new videos with yt-dlp.
//
// A download runs synchronously in the videos directory and writes the
// video plus its .info.json sidecar. Afterwards a rename pass replaces
// underscores and hyphens in every directory entry with spaces, so titles
// read naturally in the catalog.
package downloader
